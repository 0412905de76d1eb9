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

// CSmMALASettings configures CSmMALA. Unlike the other settings structs the
// zero FisherWeight is meaningful (pure Dikin metric), so use
// DefaultCSmMALASettings as the starting point.
type CSmMALASettings struct {
	// StepSize is the scale s; the proposal covariance is (s²/d)·M⁻¹.
	// If 0, defaults to 1.
	StepSize float64
	// FisherWeight w mixes the metric M = w·F + (1-w)·H.
	FisherWeight         float64
	SlackRefreshInterval int
}

// DefaultCSmMALASettings returns step size 1 and Fisher weight 0.5.
func DefaultCSmMALASettings() *CSmMALASettings {
	return &CSmMALASettings{StepSize: 1, FisherWeight: 0.5}
}

// CSmMALA is the constrained simplified manifold MALA. Its local metric mixes
// the model's Fisher information with the Dikin ellipsoid, and candidates
// are drawn from N(μ(x), c²·M(x)⁻¹) with drift
//
//	μ(x) = x + ½·c²·M(x)⁻¹·g(x),  c = s/√d,
//
// where g is the log likelihood gradient clipped to unit norm. Without
// gradient the drift is the identity.
type CSmMALA struct {
	walk
	model    hops.Model
	gradient hops.Gradienter
	metric   *metric.Mixed

	stepSize         float64
	covarianceFactor float64
	geometricFactor  float64

	stateFact  *metric.Factorization
	propFact   *metric.Factorization
	stateDrift []float64
	propDrift  []float64
	stateNLL   float64
	propNLL    float64
	propSlack  []float64
	feasible   bool
	evaluated  bool

	m     mat.SymDense
	z     []float64
	noise []float64
	grad  []float64
	solve []float64
	diff  []float64
}

// NewCSmMALA starts CSmMALA at x0 inside p. The model must provide the log
// likelihood gradient; Fisher information is used if the model provides it,
// otherwise the metric is the Dikin ellipsoid alone. A nil settings uses
// DefaultCSmMALASettings.
func NewCSmMALA(p *hops.Polytope, model hops.Model, x0 []float64, settings *CSmMALASettings) (*CSmMALA, error) {
	g, ok := model.(hops.Gradienter)
	if !ok {
		return nil, errors.Wrapf(hops.ErrInvalidSettings, "model %T has no gradient, use NewCSmMALANoGradient", model)
	}
	return newCSmMALA(p, model, g, x0, settings)
}

// NewCSmMALANoGradient starts CSmMALA without drift. Only the negative log
// likelihood and, if present, the Fisher information of the model are used.
func NewCSmMALANoGradient(p *hops.Polytope, model hops.Model, x0 []float64, settings *CSmMALASettings) (*CSmMALA, error) {
	return newCSmMALA(p, model, nil, x0, settings)
}

func newCSmMALA(p *hops.Polytope, model hops.Model, g hops.Gradienter, x0 []float64, settings *CSmMALASettings) (*CSmMALA, error) {
	if model == nil {
		return nil, errors.Wrap(hops.ErrInvalidSettings, "nil model")
	}
	if settings == nil {
		settings = DefaultCSmMALASettings()
	}
	w, err := newWalk(p, x0, settings.SlackRefreshInterval)
	if err != nil {
		return nil, err
	}
	fisher, _ := model.(hops.FisherInformer)
	mixed, err := metric.NewMixed(p, fisher, settings.FisherWeight)
	if err != nil {
		return nil, err
	}
	m, n := p.Dims()
	c := &CSmMALA{
		walk:       w,
		model:      model,
		gradient:   g,
		metric:     mixed,
		stateFact:  &metric.Factorization{},
		propFact:   &metric.Factorization{},
		stateDrift: make([]float64, n),
		propDrift:  make([]float64, n),
		propSlack:  make([]float64, m),
		z:          make([]float64, n),
		noise:      make([]float64, n),
		grad:       make([]float64, n),
		solve:      make([]float64, n),
		diff:       make([]float64, n),
	}
	step := settings.StepSize
	if step == 0 {
		step = 1
	}
	if err := c.SetStepSize(step); err != nil {
		return nil, err
	}
	return c, nil
}

// evaluate computes the metric factorization, drift and likelihood at x.
func (c *CSmMALA) evaluate(fact *metric.Factorization, drift []float64, x []float64) (float64, error) {
	if _, err := c.metric.Compute(&c.m, x); err != nil {
		return math.NaN(), err
	}
	if err := fact.Factorize(&c.m, "csmmala", x); err != nil {
		return math.NaN(), err
	}
	copy(drift, x)
	if c.gradient != nil {
		c.gradient.LogLikelihoodGradient(c.grad, x)
		clipToUnit(c.grad)
		if err := fact.Solve(c.solve, c.grad); err != nil {
			return math.NaN(), errors.Wrap(err, "solving for drift")
		}
		floats.AddScaled(drift, 0.5*c.covarianceFactor*c.covarianceFactor, c.solve)
	}
	return c.model.NegativeLogLikelihood(x), nil
}

func (c *CSmMALA) Propose(s *rng.Stream) error {
	normal(c.z, s)
	if err := c.stateFact.ScaleNoise(c.noise, c.z); err != nil {
		return errors.Wrap(err, "scaling CSmMALA noise")
	}
	floats.AddScaledTo(c.proposal, c.stateDrift, c.covarianceFactor, c.noise)
	c.p.Slack(c.propSlack, c.proposal)
	c.feasible = hops.Feasible(c.propSlack)
	c.evaluated = false
	c.pending = true
	return nil
}

// LogAcceptanceProbability returns -Inf for a candidate outside the
// polytope without touching the model. Otherwise it is
//
//	NLL(x) - NLL(y) + log√det M(y) - log√det M(x)
//	  + 1/(2c²)·(‖y-μ(x)‖²_M(x) - ‖x-μ(y)‖²_M(y)).
func (c *CSmMALA) LogAcceptanceProbability() (float64, error) {
	if !c.feasible {
		return math.Inf(-1), nil
	}
	if err := c.evaluateProposal(); err != nil {
		return math.Inf(-1), err
	}
	floats.SubTo(c.diff, c.proposal, c.stateDrift)
	forward := c.stateFact.SquaredNorm(c.diff)
	floats.SubTo(c.diff, c.state, c.propDrift)
	backward := c.propFact.SquaredNorm(c.diff)
	return c.stateNLL - c.propNLL +
		c.propFact.LogSqrtDet - c.stateFact.LogSqrtDet +
		c.geometricFactor*(forward-backward), nil
}

func (c *CSmMALA) evaluateProposal() error {
	if c.evaluated {
		return nil
	}
	nll, err := c.evaluate(c.propFact, c.propDrift, c.proposal)
	if err != nil {
		return err
	}
	c.propNLL = nll
	c.evaluated = true
	return nil
}

func (c *CSmMALA) AcceptProposal() error {
	if !c.pending {
		return errNoProposal
	}
	if !c.feasible {
		return hops.NewInfeasibleStateError(c.proposal, c.propSlack)
	}
	if err := c.evaluateProposal(); err != nil {
		return err
	}
	if err := c.commit(c.propSlack); err != nil {
		return err
	}
	c.stateFact, c.propFact = c.propFact, c.stateFact
	c.stateDrift, c.propDrift = c.propDrift, c.stateDrift
	c.stateNLL = c.propNLL
	c.evaluated = false
	return nil
}

func (c *CSmMALA) SetState(x []float64) error {
	if err := c.setState(x); err != nil {
		return err
	}
	return c.evaluateState()
}

func (c *CSmMALA) evaluateState() error {
	nll, err := c.evaluate(c.stateFact, c.stateDrift, c.state)
	if err != nil {
		return err
	}
	c.stateNLL = nll
	return nil
}

func (c *CSmMALA) StateNegativeLogLikelihood() float64 { return c.stateNLL }

func (c *CSmMALA) FisherWeight() float64 { return c.metric.Weight }

func (c *CSmMALA) StepSize() float64 { return c.stepSize }

// SetStepSize changes the scale and recomputes the drift at the current
// state.
func (c *CSmMALA) SetStepSize(step float64) error {
	if !(step > 0) || math.IsInf(step, 1) {
		return errors.Wrapf(hops.ErrInvalidSettings, "CSmMALA step size %v", step)
	}
	n := float64(c.Dim())
	c.stepSize = step
	c.covarianceFactor = step / math.Sqrt(n)
	c.geometricFactor = n / (2 * step * step)
	c.evaluated = false
	return c.evaluateState()
}
