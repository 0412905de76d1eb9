package hops

import (
	"math"

	"github.com/cockroachdb/errors"

	"github.com/modsim/hops-sub002/rng"
)

// Settings controls how NewChain stacks layers around a proposer. The zero
// value gives a bare Metropolis–Hastings chain without recording.
type Settings struct {
	// Transformation, if set, maps the proposer's rounded space back to the
	// original space before anything else sees the state.
	Transformation Transformation

	// Model, if set, couples the chain to a target density. It must be nil
	// for proposers that carry their own likelihood.
	Model Model
	// Coldness scales the likelihood difference. If 0, defaults to 1.
	Coldness float64

	RecordStates          bool
	RecordAcceptanceRates bool
	RecordTimestamps      bool
	RecordLikelihoods     bool
}

// StartFinder finds a point strictly inside a polytope.
type StartFinder interface {
	FindStart(p *Polytope) ([]float64, error)
}

// Chain drives a stack of layers through draw and thinning cycles.
type Chain struct {
	drawer   Drawer
	recorder Recorder
}

// NewChain assembles the stack
//
//	proposer → transformation → model → Metropolis–Hastings → recorders
//
// as selected by settings. A nil settings is the zero value.
func NewChain(p Proposer, settings *Settings) (*Chain, error) {
	if settings == nil {
		settings = &Settings{}
	}
	if settings.Transformation != nil {
		p = NewTransformationLayer(p, settings.Transformation)
	}
	if settings.Model != nil {
		ml, err := NewModelLayer(p, settings.Model, settings.Coldness)
		if err != nil {
			return nil, err
		}
		p = ml
	}
	var d Drawer = NewMetropolisHastings(p)
	if settings.RecordLikelihoods {
		r, err := NewLikelihoodRecorder(d)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidSettings, err.Error())
		}
		d = r
	}
	if settings.RecordTimestamps {
		d = NewTimestampRecorder(d)
	}
	if settings.RecordAcceptanceRates {
		r, err := NewAcceptanceRateRecorder(d)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidSettings, err.Error())
		}
		d = r
	}
	if settings.RecordStates {
		d = NewStateRecorder(d)
	}
	return NewChainFromDrawer(d), nil
}

// NewChainFromDrawer wraps an already assembled stack.
func NewChainFromDrawer(d Drawer) *Chain {
	c := &Chain{drawer: d}
	c.recorder, _ = d.(Recorder)
	return c
}

// Draw performs n·thinning transitions and stores one record after every
// thinning transitions. It returns the fraction of those transitions that
// were accepted. Draw panics if n or thinning is not positive.
func (c *Chain) Draw(s *rng.Stream, n, thinning int) (float64, error) {
	if n <= 0 {
		panic("hops: non-positive number of samples")
	}
	if thinning <= 0 {
		panic("hops: non-positive thinning")
	}
	var accepted int
	for i := 0; i < n; i++ {
		for j := 0; j < thinning; j++ {
			ok, err := c.drawer.Draw(s)
			if err != nil {
				return math.NaN(), err
			}
			if ok {
				accepted++
			}
		}
		if c.recorder != nil {
			c.recorder.StoreRecord()
		}
	}
	return float64(accepted) / float64(n*thinning), nil
}

// WriteHistory writes every recorded series to w.
func (c *Chain) WriteHistory(w Writer) error {
	if c.recorder == nil {
		return nil
	}
	return c.recorder.WriteHistory(w)
}

// ClearHistory discards every recorded series.
func (c *Chain) ClearHistory() {
	if c.recorder != nil {
		c.recorder.ClearHistory()
	}
}

// States returns the states recorded so far, or nil if states are not
// recorded.
func (c *Chain) States() [][]float64 {
	if r, ok := As[*StateRecorder](c.drawer); ok {
		return r.States()
	}
	return nil
}

func (c *Chain) State() []float64 { return c.drawer.State() }

// SetState restarts the chain at x.
func (c *Chain) SetState(x []float64) error {
	setter, ok := As[StateSetter](c.drawer)
	if !ok {
		return errors.New("hops: chain state cannot be set")
	}
	return setter.SetState(x)
}

// StepSize returns the step size of the underlying proposer, or NaN if it
// has none.
func (c *Chain) StepSize() float64 {
	if s, ok := As[StepSizer](c.drawer); ok {
		return s.StepSize()
	}
	return math.NaN()
}

func (c *Chain) SetStepSize(v float64) error {
	s, ok := As[StepSizer](c.drawer)
	if !ok {
		return errors.New("hops: chain has no step size")
	}
	return s.SetStepSize(v)
}

// AcceptanceRate returns the acceptance rate since the last reset.
func (c *Chain) AcceptanceRate() float64 {
	if r, ok := As[AcceptanceRater](c.drawer); ok {
		return r.AcceptanceRate()
	}
	return math.NaN()
}

func (c *Chain) ResetAcceptanceRate() {
	if m, ok := As[*MetropolisHastings](c.drawer); ok {
		m.ResetAcceptanceRate()
	}
}

func (c *Chain) Unwrap() any { return c.drawer }
