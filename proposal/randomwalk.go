package proposal

import (
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"

	hops "github.com/modsim/hops-sub002"
	"github.com/modsim/hops-sub002/rng"
)

// RandomWalkSettings configures the Gaussian and ball walks. Zero fields
// take their defaults; the default step size is 1.
type RandomWalkSettings struct {
	StepSize             float64
	SlackRefreshInterval int
}

// randomWalk is the part shared by symmetric random walks: a candidate
// inside the polytope has log acceptance 0, any other is rejected.
type randomWalk struct {
	walk
	name      string
	stepSize  float64
	propSlack []float64
	feasible  bool
	delta     []float64
}

func newRandomWalk(name string, p *hops.Polytope, x0 []float64, settings *RandomWalkSettings) (randomWalk, error) {
	if settings == nil {
		settings = &RandomWalkSettings{}
	}
	w, err := newWalk(p, x0, settings.SlackRefreshInterval)
	if err != nil {
		return randomWalk{}, err
	}
	m, n := p.Dims()
	r := randomWalk{
		walk:      w,
		name:      name,
		propSlack: make([]float64, m),
		delta:     make([]float64, n),
	}
	step := settings.StepSize
	if step == 0 {
		step = 1
	}
	if err := r.SetStepSize(step); err != nil {
		return randomWalk{}, err
	}
	return r, nil
}

// move makes state + delta the pending candidate.
func (r *randomWalk) move() {
	floats.AddTo(r.proposal, r.state, r.delta)
	r.p.Slack(r.propSlack, r.proposal)
	r.feasible = hops.Feasible(r.propSlack)
	r.pending = true
}

func (r *randomWalk) LogAcceptanceProbability() (float64, error) {
	if !r.feasible {
		return math.Inf(-1), nil
	}
	return 0, nil
}

func (r *randomWalk) AcceptProposal() error {
	if !r.pending {
		return errNoProposal
	}
	if !r.feasible {
		return hops.NewInfeasibleStateError(r.proposal, r.propSlack)
	}
	return r.commit(r.propSlack)
}

func (r *randomWalk) SetState(x []float64) error { return r.setState(x) }

func (r *randomWalk) StepSize() float64 { return r.stepSize }

func (r *randomWalk) SetStepSize(step float64) error {
	if !(step > 0) || math.IsInf(step, 1) {
		return errors.Wrapf(hops.ErrInvalidSettings, "%s step size %v", r.name, step)
	}
	r.stepSize = step
	return nil
}

// GaussianWalk is the Gaussian random walk y = x + σ·z with z standard
// normal and σ the step size.
type GaussianWalk struct {
	randomWalk
}

// NewGaussianWalk starts a Gaussian random walk at x0 inside p. A nil
// settings uses the defaults.
func NewGaussianWalk(p *hops.Polytope, x0 []float64, settings *RandomWalkSettings) (*GaussianWalk, error) {
	r, err := newRandomWalk("Gaussian walk", p, x0, settings)
	if err != nil {
		return nil, err
	}
	return &GaussianWalk{randomWalk: r}, nil
}

func (g *GaussianWalk) Propose(s *rng.Stream) error {
	normal(g.delta, s)
	floats.Scale(g.stepSize, g.delta)
	g.move()
	return nil
}

// BallWalk moves to a point drawn uniformly from the ball around the state
// whose radius is the step size.
type BallWalk struct {
	randomWalk
}

// NewBallWalk starts a ball walk at x0 inside p. A nil settings uses the
// defaults.
func NewBallWalk(p *hops.Polytope, x0 []float64, settings *RandomWalkSettings) (*BallWalk, error) {
	r, err := newRandomWalk("ball walk", p, x0, settings)
	if err != nil {
		return nil, err
	}
	return &BallWalk{randomWalk: r}, nil
}

func (b *BallWalk) Propose(s *rng.Stream) error {
	normal(b.delta, s)
	norm := floats.Norm(b.delta, 2)
	radius := b.stepSize * math.Pow(s.UniformOpen(), 1/float64(len(b.delta)))
	floats.Scale(radius/norm, b.delta)
	b.move()
	return nil
}
