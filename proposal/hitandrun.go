package proposal

import (
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"

	hops "github.com/modsim/hops-sub002"
	"github.com/modsim/hops-sub002/distribution"
	"github.com/modsim/hops-sub002/rng"
)

// chord is the part of a pending hit-and-run move needed to accept it or to
// compute its detailed balance correction.
type chord struct {
	step     distribution.Step
	t        []float64 // A·direction
	offset   float64
	backward float64
	forward  float64
	next     []float64 // slack scratch
}

func newChord(step distribution.Step, m int) chord {
	if step == nil {
		step = distribution.Uniform{}
	}
	return chord{step: step, t: make([]float64, m), next: make([]float64, m)}
}

func (c *chord) draw(s *rng.Stream, slack, direction []float64) error {
	var err error
	c.backward, c.forward, err = chordBounds(slack, c.t, direction)
	if err != nil {
		return err
	}
	c.offset, err = c.step.Draw(s, c.backward, c.forward)
	return err
}

// nextSlack returns the slack after moving by offset along the direction.
func (c *chord) nextSlack(slack []float64) []float64 {
	floats.AddScaledTo(c.next, slack, -c.offset, c.t)
	return c.next
}

func (c *chord) logAcceptanceProbability() float64 {
	return c.step.LogCorrection(c.offset, c.backward, c.forward)
}

func (c *chord) stepSize() float64 {
	if sc, ok := c.step.(distribution.Scaler); ok {
		return sc.Scale()
	}
	return math.NaN()
}

func (c *chord) setStepSize(v float64) error {
	sc, ok := c.step.(distribution.Scaler)
	if !ok {
		return errors.Newf("proposal: step distribution %T has no step size", c.step)
	}
	return sc.SetScale(v)
}

// CoordinateHitAndRun moves along one coordinate axis at a time, cycling
// through the coordinates in order. With a uniform step every candidate is
// accepted; a Gaussian step adds a detailed balance correction.
type CoordinateHitAndRun struct {
	walk
	chord
	cols  [][]float64
	coord int
	dir   []float64
}

// NewCoordinateHitAndRun starts at x0, which must lie strictly inside p. A
// nil step is the uniform step.
func NewCoordinateHitAndRun(p *hops.Polytope, x0 []float64, step distribution.Step) (*CoordinateHitAndRun, error) {
	w, err := newWalk(p, x0, 0)
	if err != nil {
		return nil, err
	}
	m, n := p.Dims()
	cols := make([][]float64, n)
	for j := range cols {
		cols[j] = p.Col(nil, j)
	}
	return &CoordinateHitAndRun{
		walk:  w,
		chord: newChord(step, m),
		cols:  cols,
		dir:   make([]float64, n),
	}, nil
}

func (c *CoordinateHitAndRun) Propose(s *rng.Stream) error {
	j := c.coord
	c.coord = (c.coord + 1) % len(c.cols)
	copy(c.t, c.cols[j])
	for i := range c.dir {
		c.dir[i] = 0
	}
	c.dir[j] = 1
	if err := c.chord.draw(s, c.slack, c.dir); err != nil {
		return err
	}
	copy(c.proposal, c.state)
	c.proposal[j] += c.offset
	c.pending = true
	return nil
}

func (c *CoordinateHitAndRun) AcceptProposal() error {
	if !c.pending {
		return errNoProposal
	}
	return c.commit(c.nextSlack(c.slack))
}

func (c *CoordinateHitAndRun) LogAcceptanceProbability() (float64, error) {
	return c.logAcceptanceProbability(), nil
}

func (c *CoordinateHitAndRun) SetState(x []float64) error { return c.setState(x) }
func (c *CoordinateHitAndRun) StepSize() float64          { return c.stepSize() }
func (c *CoordinateHitAndRun) SetStepSize(v float64) error {
	return c.setStepSize(v)
}

// HitAndRun moves along uniformly random directions.
type HitAndRun struct {
	walk
	chord
	dir []float64
}

// NewHitAndRun starts at x0, which must lie strictly inside p. A nil step
// is the uniform step.
func NewHitAndRun(p *hops.Polytope, x0 []float64, step distribution.Step) (*HitAndRun, error) {
	w, err := newWalk(p, x0, 0)
	if err != nil {
		return nil, err
	}
	m, n := p.Dims()
	return &HitAndRun{
		walk:  w,
		chord: newChord(step, m),
		dir:   make([]float64, n),
	}, nil
}

func (h *HitAndRun) Propose(s *rng.Stream) error {
	for {
		normal(h.dir, s)
		if n := floats.Norm(h.dir, 2); n > 0 {
			floats.Scale(1/n, h.dir)
			break
		}
	}
	h.p.MulVec(h.t, h.dir)
	if err := h.chord.draw(s, h.slack, h.dir); err != nil {
		return err
	}
	floats.AddScaledTo(h.proposal, h.state, h.offset, h.dir)
	h.pending = true
	return nil
}

func (h *HitAndRun) AcceptProposal() error {
	if !h.pending {
		return errNoProposal
	}
	return h.commit(h.nextSlack(h.slack))
}

func (h *HitAndRun) LogAcceptanceProbability() (float64, error) {
	return h.logAcceptanceProbability(), nil
}

func (h *HitAndRun) SetState(x []float64) error  { return h.setState(x) }
func (h *HitAndRun) StepSize() float64           { return h.stepSize() }
func (h *HitAndRun) SetStepSize(v float64) error { return h.setStepSize(v) }
