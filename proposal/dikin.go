package proposal

import (
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	hops "github.com/modsim/hops-sub002"
	"github.com/modsim/hops-sub002/metric"
	"github.com/modsim/hops-sub002/rng"
)

// DefaultDikinStepSize is the Dikin walk step size used when none is set.
const DefaultDikinStepSize = 0.075

// DikinSettings configures a Dikin walk. Zero fields take their defaults.
type DikinSettings struct {
	StepSize             float64
	SlackRefreshInterval int
}

// Dikin is the Dikin walk. Candidates are drawn from N(x, c²·H(x)⁻¹), where
// H is the Dikin ellipsoid at x and c = sqrt(stepSize/d).
type Dikin struct {
	walk
	dikin *metric.Dikin

	stepSize         float64
	covarianceFactor float64
	geometricFactor  float64

	stateFact *metric.Factorization
	propFact  *metric.Factorization
	propSlack []float64
	feasible  bool
	factored  bool

	h     mat.SymDense
	z     []float64
	noise []float64
	delta []float64
}

// NewDikin starts a Dikin walk at x0 inside p. A nil settings uses the
// defaults.
func NewDikin(p *hops.Polytope, x0 []float64, settings *DikinSettings) (*Dikin, error) {
	if settings == nil {
		settings = &DikinSettings{}
	}
	w, err := newWalk(p, x0, settings.SlackRefreshInterval)
	if err != nil {
		return nil, err
	}
	m, n := p.Dims()
	d := &Dikin{
		walk:      w,
		dikin:     metric.NewDikin(p),
		stateFact: &metric.Factorization{},
		propFact:  &metric.Factorization{},
		propSlack: make([]float64, m),
		z:         make([]float64, n),
		noise:     make([]float64, n),
		delta:     make([]float64, n),
	}
	step := settings.StepSize
	if step == 0 {
		step = DefaultDikinStepSize
	}
	if err := d.SetStepSize(step); err != nil {
		return nil, err
	}
	if err := d.factorState(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dikin) factorState() error {
	d.dikin.FromSlack(&d.h, d.slack)
	return d.stateFact.Factorize(&d.h, "dikin", d.state)
}

func (d *Dikin) Propose(s *rng.Stream) error {
	normal(d.z, s)
	if err := d.stateFact.ScaleNoise(d.noise, d.z); err != nil {
		return errors.Wrap(err, "scaling Dikin noise")
	}
	floats.AddScaledTo(d.proposal, d.state, d.covarianceFactor, d.noise)
	d.p.Slack(d.propSlack, d.proposal)
	d.feasible = hops.Feasible(d.propSlack)
	d.factored = false
	d.pending = true
	return nil
}

// LogAcceptanceProbability returns -Inf for a candidate outside the
// polytope. Otherwise it is
//
//	log√det H(y) - log√det H(x) + d/(2s)·(‖y-x‖²_H(x) - ‖y-x‖²_H(y)).
func (d *Dikin) LogAcceptanceProbability() (float64, error) {
	if !d.feasible {
		return math.Inf(-1), nil
	}
	if err := d.factorProposal(); err != nil {
		return math.Inf(-1), err
	}
	floats.SubTo(d.delta, d.proposal, d.state)
	return d.propFact.LogSqrtDet - d.stateFact.LogSqrtDet +
		d.geometricFactor*(d.stateFact.SquaredNorm(d.delta)-d.propFact.SquaredNorm(d.delta)), nil
}

func (d *Dikin) factorProposal() error {
	if d.factored {
		return nil
	}
	d.dikin.FromSlack(&d.h, d.propSlack)
	if err := d.propFact.Factorize(&d.h, "dikin", d.proposal); err != nil {
		return err
	}
	d.factored = true
	return nil
}

func (d *Dikin) AcceptProposal() error {
	if !d.pending {
		return errNoProposal
	}
	if !d.feasible {
		return hops.NewInfeasibleStateError(d.proposal, d.propSlack)
	}
	if err := d.factorProposal(); err != nil {
		return err
	}
	if err := d.commit(d.propSlack); err != nil {
		return err
	}
	d.stateFact, d.propFact = d.propFact, d.stateFact
	d.factored = false
	return nil
}

func (d *Dikin) SetState(x []float64) error {
	if err := d.setState(x); err != nil {
		return err
	}
	return d.factorState()
}

func (d *Dikin) StepSize() float64 { return d.stepSize }

func (d *Dikin) SetStepSize(step float64) error {
	if !(step > 0) || math.IsInf(step, 1) {
		return errors.Wrapf(hops.ErrInvalidSettings, "Dikin step size %v", step)
	}
	n := float64(d.Dim())
	d.stepSize = step
	d.covarianceFactor = math.Sqrt(step / n)
	d.geometricFactor = n / (2 * step)
	return nil
}
