// Package distribution provides the scalar step distributions used by the
// hit-and-run family to move along a chord of the polytope.
package distribution

import (
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/modsim/hops-sub002/rng"
)

// ErrEmptyChord is returned when a chord does not strictly contain zero.
var ErrEmptyChord = errors.New("distribution: chord does not contain the current point")

// Step draws an offset t along a chord [lower, upper] around the current
// point, with lower < 0 < upper.
type Step interface {
	Draw(s *rng.Stream, lower, upper float64) (float64, error)
	// LogCorrection returns log q(y→x) - log q(x→y) for the move by t, where
	// the chord seen from y is [lower-t, upper-t].
	LogCorrection(t, lower, upper float64) float64
}

// Scaler is implemented by step distributions with a tunable width.
type Scaler interface {
	Scale() float64
	SetScale(float64) error
}

// Uniform draws offsets uniformly over the whole chord. It is symmetric, so
// its correction is zero.
type Uniform struct{}

func (Uniform) Draw(s *rng.Stream, lower, upper float64) (float64, error) {
	if err := checkChord(lower, upper); err != nil {
		return math.NaN(), err
	}
	for {
		t := lower + s.UniformOpen()*(upper-lower)
		if t > lower && t < upper {
			return t, nil
		}
	}
}

func (Uniform) LogCorrection(t, lower, upper float64) float64 { return 0 }

// Gaussian draws offsets from a normal distribution with mean zero and
// standard deviation Sigma, truncated to the chord.
type Gaussian struct {
	Sigma float64
}

// NewGaussian returns a truncated Gaussian step with the given width.
func NewGaussian(sigma float64) (*Gaussian, error) {
	g := &Gaussian{}
	if err := g.SetScale(sigma); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Gaussian) Scale() float64 { return g.Sigma }

func (g *Gaussian) SetScale(sigma float64) error {
	if !(sigma > 0) || math.IsInf(sigma, 1) {
		return errors.Newf("distribution: invalid Gaussian step width %v", sigma)
	}
	g.Sigma = sigma
	return nil
}

func (g *Gaussian) Draw(s *rng.Stream, lower, upper float64) (float64, error) {
	if lower >= 0 || upper <= 0 || math.IsNaN(lower) || math.IsNaN(upper) {
		return math.NaN(), errors.Wrapf(ErrEmptyChord, "[%v, %v]", lower, upper)
	}
	a, b := lower/g.Sigma, upper/g.Sigma
	lo, hi := distuv.UnitNormal.CDF(a), distuv.UnitNormal.CDF(b)
	if hi-lo < 1e-12 {
		// The chord is tiny relative to Sigma, where the normal is flat.
		return Uniform{}.Draw(s, lower, upper)
	}
	for {
		p := lo + s.UniformOpen()*(hi-lo)
		t := g.Sigma * distuv.UnitNormal.Quantile(p)
		if t > lower && t < upper {
			return t, nil
		}
	}
}

func (g *Gaussian) LogCorrection(t, lower, upper float64) float64 {
	return g.logMass(lower, upper) - g.logMass(lower-t, upper-t)
}

// logMass is the log probability of [lower, upper] under N(0, Sigma²).
func (g *Gaussian) logMass(lower, upper float64) float64 {
	a, b := lower/g.Sigma, upper/g.Sigma
	if a > 0 {
		// Both bounds in the right tail: use survival functions.
		a, b = -b, -a
	}
	return math.Log(distuv.UnitNormal.CDF(b) - distuv.UnitNormal.CDF(a))
}

func checkChord(lower, upper float64) error {
	if !(lower < 0 && upper > 0) || math.IsInf(lower, 0) || math.IsInf(upper, 0) {
		return errors.Wrapf(ErrEmptyChord, "[%v, %v]", lower, upper)
	}
	return nil
}
