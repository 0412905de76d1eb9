// Package proposal implements the proposal mechanisms of the sampler:
// coordinate hit-and-run, hit-and-run, Gaussian and ball random walks,
// adaptive Metropolis, the Dikin walk, CSmMALA with and without gradient
// drift, and billiard-reflecting MALA.
//
// Every proposer owns a strictly interior state and caches its slack
// b - A·x. Hit-and-run variants update the slack incrementally on
// acceptance; all proposers recompute it from scratch every
// SlackRefreshInterval accepted moves to stop floating point drift.
package proposal

import (
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"

	hops "github.com/modsim/hops-sub002"
	"github.com/modsim/hops-sub002/logger"
)

// DefaultSlackRefreshInterval is the number of accepted moves between exact
// slack recomputations when none is configured.
const DefaultSlackRefreshInterval = 1000

var log logger.Logger = logger.NewLogger("WARNING", "Proposal")

// SetLogger replaces the package logger, which reports slack drift at debug
// level. A nil l restores the default WARNING logger. SetLogger must not be
// called while proposers are in use.
func SetLogger(l logger.Logger) {
	if l == nil {
		l = logger.NewLogger("WARNING", "Proposal")
	}
	log = l
}

var errNoProposal = errors.New("proposal: no pending proposal to accept")

// walk holds the state shared by all proposers.
type walk struct {
	p        *hops.Polytope
	state    []float64
	proposal []float64
	slack    []float64

	pending bool
	accepts int
	refresh int
}

func newWalk(p *hops.Polytope, x0 []float64, refresh int) (walk, error) {
	m, n := p.Dims()
	if len(x0) != n {
		return walk{}, errors.Wrapf(hops.ErrDimensionMismatch, "start of length %d in %d dimensions", len(x0), n)
	}
	if refresh == 0 {
		refresh = DefaultSlackRefreshInterval
	}
	w := walk{
		p:        p,
		state:    make([]float64, n),
		proposal: make([]float64, n),
		slack:    make([]float64, m),
		refresh:  refresh,
	}
	if err := w.setState(x0); err != nil {
		return walk{}, err
	}
	return w, nil
}

func (w *walk) setState(x []float64) error {
	if len(x) != len(w.state) {
		return errors.Wrapf(hops.ErrDimensionMismatch, "state of length %d in %d dimensions", len(x), len(w.state))
	}
	slack := w.p.Slack(nil, x)
	if !hops.Feasible(slack) {
		return hops.NewInfeasibleStateError(x, slack)
	}
	copy(w.state, x)
	copy(w.proposal, x)
	copy(w.slack, slack)
	w.pending = false
	return nil
}

func (w *walk) State() []float64    { return append([]float64(nil), w.state...) }
func (w *walk) Proposal() []float64 { return append([]float64(nil), w.proposal...) }
func (w *walk) Dim() int            { return len(w.state) }

// commit makes the proposal the state, with slack the slack at the
// proposal. slack is copied.
func (w *walk) commit(slack []float64) error {
	if !w.pending {
		return errNoProposal
	}
	if !hops.Feasible(slack) {
		return hops.NewInfeasibleStateError(w.proposal, slack)
	}
	copy(w.state, w.proposal)
	copy(w.slack, slack)
	w.pending = false
	w.accepts++
	if w.refresh > 0 && w.accepts%w.refresh == 0 {
		return w.refreshSlack()
	}
	return nil
}

// refreshSlack recomputes the slack at the current state exactly.
func (w *walk) refreshSlack() error {
	exact := w.p.Slack(nil, w.state)
	var drift float64
	for i, s := range exact {
		drift = math.Max(drift, math.Abs(s-w.slack[i]))
	}
	if drift > 1e-9*w.p.SlackScale() {
		log.Debugf("slack drift %v corrected after %d accepted moves", drift, w.accepts)
	}
	if !hops.Feasible(exact) {
		return hops.NewInfeasibleStateError(w.state, exact)
	}
	copy(w.slack, exact)
	return nil
}

// chordBounds returns the largest backward and forward offsets along a
// direction with constraint projections t = A·d that keep the slack s
// positive.
func chordBounds(slack, t, direction []float64) (backward, forward float64, err error) {
	backward, forward = math.Inf(-1), math.Inf(1)
	for i, ti := range t {
		switch {
		case ti > 0:
			forward = math.Min(forward, slack[i]/ti)
		case ti < 0:
			backward = math.Max(backward, slack[i]/ti)
		}
	}
	if math.IsInf(forward, 1) || math.IsInf(backward, -1) {
		return backward, forward, &hops.DegenerateChordError{
			Direction: append([]float64(nil), direction...),
			Backward:  backward,
			Forward:   forward,
		}
	}
	return backward, forward, nil
}

// normal fills dst with independent standard normal draws.
func normal(dst []float64, s interface{ NormFloat64() float64 }) {
	for i := range dst {
		dst[i] = s.NormFloat64()
	}
}

// clipToUnit scales v to unit Euclidean norm if it is longer.
func clipToUnit(v []float64) {
	if n := floats.Norm(v, 2); n > 1 {
		floats.Scale(1/n, v)
	}
}
