package tune

import (
	"math"
	"time"

	"github.com/cockroachdb/errors"

	hops "github.com/modsim/hops-sub002"
	"github.com/modsim/hops-sub002/analyze"
	"github.com/modsim/hops-sub002/rng"
)

// Target scores a chain after it has been run with a candidate step size.
// Larger scores are better.
type Target interface {
	Name() string
	// Score runs n transitions of c with s and scores them. The chain's
	// history is empty and its step size already set when Score is called.
	Score(c Tunable, s *rng.Stream, n int) (float64, error)
}

// AcceptanceRate scores how close the acceptance rate of a test run is to
// Target:
//
//	1 - |rate - Target|^Order / scale^Order
//
// where scale is 1-Target above the target and Target below it, so the
// score lies in [0, 1] and equals 1 exactly on target.
type AcceptanceRate struct {
	Target float64
	// Order is the exponent of the distance. If 0, defaults to 1.
	Order int
}

func (a AcceptanceRate) Name() string { return "AcceptanceRate" }

func (a AcceptanceRate) Score(c Tunable, s *rng.Stream, n int) (float64, error) {
	rate, err := c.Draw(s, n, 1)
	if err != nil {
		return math.NaN(), err
	}
	return a.score(rate), nil
}

func (a AcceptanceRate) score(rate float64) float64 {
	order := float64(a.Order)
	if a.Order == 0 {
		order = 1
	}
	scale := a.Target
	if rate > a.Target {
		scale = 1 - a.Target
	}
	return 1 - math.Pow(math.Abs(rate-a.Target), order)/math.Pow(scale, order)
}

func (a AcceptanceRate) validate() error {
	if !(a.Target > 0 && a.Target < 1) {
		return errors.Wrapf(hops.ErrInvalidSettings, "tune: acceptance rate target %v outside (0, 1)", a.Target)
	}
	if a.Order < 0 {
		return errors.Wrapf(hops.ErrInvalidSettings, "tune: negative order %d", a.Order)
	}
	return nil
}

// ESJD scores a test run by its expected squared jump distance. The chain
// must record its states.
type ESJD struct {
	// ConsiderTimeCost divides the jump distance by the wall time of the
	// test run in seconds.
	ConsiderTimeCost bool

	now func() time.Time
}

func (e ESJD) Name() string {
	if e.ConsiderTimeCost {
		return "ExpectedSquaredJumpDistancePerSecond"
	}
	return "ExpectedSquaredJumpDistance"
}

func (e ESJD) Score(c Tunable, s *rng.Stream, n int) (float64, error) {
	now := e.now
	if now == nil {
		now = time.Now
	}
	start := now()
	if _, err := c.Draw(s, n, 1); err != nil {
		return math.NaN(), err
	}
	elapsed := now().Sub(start).Seconds()

	states := c.States()
	if len(states) < 2 {
		return math.NaN(), errors.Wrap(hops.ErrInvalidSettings, "tune: ESJD needs a chain that records its states")
	}
	esjd := analyze.ExpectedSquaredJumpDistance(states)
	if e.ConsiderTimeCost && elapsed > 0 {
		esjd /= elapsed
	}
	return esjd, nil
}
