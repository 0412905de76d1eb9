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

// DefaultMaxReflections is the reflection cap used when none is set.
const DefaultMaxReflections = 100

// BilliardSettings configures BilliardMALA. Zero fields take their
// defaults: step size 1 and DefaultMaxReflections.
type BilliardSettings struct {
	StepSize             float64
	MaxReflections       int
	SlackRefreshInterval int
}

// BilliardMALA takes Langevin steps under a metric given by the model's
// Fisher information and reflects candidates that would leave the polytope
// specularly off its faces. The metric is global when the Fisher information
// is constant or absent (identity); otherwise it is re-evaluated per point.
//
// A move x -> u -> y, with u the Gaussian endpoint and y its reflection, is
// paired with the reverse move y -> u' -> x where u' = y - ‖u-x‖·d and d is
// the direction of travel on arrival at y. Specular reflection preserves
// length and is time reversible, so the acceptance ratio compares the
// Gaussian densities of u around μ(x) and of u' around μ(y). A trajectory
// cut short by the reflection cap has no reverse and is always rejected.
type BilliardMALA struct {
	walk
	model    hops.Model
	gradient hops.Gradienter
	fisher   hops.FisherInformer
	global   bool

	stepSize         float64
	covarianceFactor float64
	geometricFactor  float64
	maxReflections   int

	stateFact   *metric.Factorization
	propFact    *metric.Factorization
	stateDrift  []float64
	propDrift   []float64
	unreflected []float64
	reversed    []float64
	stateNLL    float64
	propNLL     float64
	propSlack   []float64
	feasible    bool
	evaluated   bool
	reflection  Reflection

	z     []float64
	noise []float64
	grad  []float64
	solve []float64
	diff  []float64
}

// NewBilliardMALA starts billiard MALA at x0 inside p. A model without a
// gradient gives zero drift.
func NewBilliardMALA(p *hops.Polytope, model hops.Model, x0 []float64, settings *BilliardSettings) (*BilliardMALA, error) {
	if model == nil {
		return nil, errors.Wrap(hops.ErrInvalidSettings, "nil model")
	}
	if settings == nil {
		settings = &BilliardSettings{}
	}
	w, err := newWalk(p, x0, settings.SlackRefreshInterval)
	if err != nil {
		return nil, err
	}
	m, n := p.Dims()
	b := &BilliardMALA{
		walk:           w,
		model:          model,
		maxReflections: settings.MaxReflections,
		stateFact:      &metric.Factorization{},
		propFact:       &metric.Factorization{},
		stateDrift:     make([]float64, n),
		propDrift:      make([]float64, n),
		unreflected:    make([]float64, n),
		reversed:       make([]float64, n),
		propSlack:      make([]float64, m),
		z:              make([]float64, n),
		noise:          make([]float64, n),
		grad:           make([]float64, n),
		solve:          make([]float64, n),
		diff:           make([]float64, n),
	}
	if b.maxReflections == 0 {
		b.maxReflections = DefaultMaxReflections
	}
	if b.maxReflections < 0 {
		return nil, errors.Wrapf(hops.ErrInvalidSettings, "max reflections %d", settings.MaxReflections)
	}
	b.gradient, _ = model.(hops.Gradienter)
	b.fisher, _ = model.(hops.FisherInformer)
	switch f := b.fisher.(type) {
	case nil:
		b.global = true
		if err := b.stateFact.Factorize(identity(n), "identity", x0); err != nil {
			return nil, err
		}
	case hops.ConstantFisherInformer:
		if f.ConstantFisherInformation() {
			b.global = true
			if err := b.stateFact.Factorize(f.FisherInformation(x0), "fisher", x0); err != nil {
				return nil, err
			}
		}
	}
	step := settings.StepSize
	if step == 0 {
		step = 1
	}
	if err := b.SetStepSize(step); err != nil {
		return nil, err
	}
	return b, nil
}

func identity(n int) *mat.SymDense {
	id := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		id.SetSym(i, i, 1)
	}
	return id
}

// evaluate computes the metric (unless global), drift and likelihood at x.
func (b *BilliardMALA) evaluate(fact *metric.Factorization, drift, x []float64) (float64, error) {
	if !b.global {
		if err := fact.Factorize(b.fisher.FisherInformation(x), "fisher", x); err != nil {
			return math.NaN(), err
		}
	}
	copy(drift, x)
	if b.gradient != nil {
		b.gradient.LogLikelihoodGradient(b.grad, x)
		if err := fact.Solve(b.solve, b.grad); err != nil {
			return math.NaN(), errors.Wrap(err, "solving for drift")
		}
		floats.AddScaled(drift, 0.5*b.covarianceFactor*b.covarianceFactor, b.solve)
	}
	return b.model.NegativeLogLikelihood(x), nil
}

// factors returns the factorizations at the state and at the proposal.
func (b *BilliardMALA) factors() (state, prop *metric.Factorization) {
	if b.global {
		return b.stateFact, b.stateFact
	}
	return b.stateFact, b.propFact
}

func (b *BilliardMALA) Propose(s *rng.Stream) error {
	normal(b.z, s)
	if err := b.stateFact.ScaleNoise(b.noise, b.z); err != nil {
		return errors.Wrap(err, "scaling billiard noise")
	}
	floats.AddScaledTo(b.unreflected, b.stateDrift, b.covarianceFactor, b.noise)
	b.reflection = Reflect(b.p, b.state, b.unreflected, b.maxReflections)
	copy(b.proposal, b.reflection.Point)
	b.p.Slack(b.propSlack, b.proposal)
	b.feasible = b.reflection.Complete && hops.Feasible(b.propSlack)
	if b.feasible {
		floats.SubTo(b.diff, b.unreflected, b.state)
		floats.AddScaledTo(b.reversed, b.proposal, -floats.Norm(b.diff, 2), b.reflection.Direction)
	}
	b.evaluated = false
	b.pending = true
	return nil
}

// LogAcceptanceProbability returns -Inf for a candidate outside the
// polytope or cut short by the reflection cap. Otherwise it is
//
//	NLL(x) - NLL(y) + log√det M(y) - log√det M(x)
//	  + 1/(2c²)·(‖u-μ(x)‖²_M(x) - ‖u'-μ(y)‖²_M(y)).
func (b *BilliardMALA) LogAcceptanceProbability() (float64, error) {
	if !b.feasible {
		return math.Inf(-1), nil
	}
	if err := b.evaluateProposal(); err != nil {
		return math.Inf(-1), err
	}
	stateFact, propFact := b.factors()
	floats.SubTo(b.diff, b.unreflected, b.stateDrift)
	forward := stateFact.SquaredNorm(b.diff)
	floats.SubTo(b.diff, b.reversed, b.propDrift)
	backward := propFact.SquaredNorm(b.diff)
	return b.stateNLL - b.propNLL +
		propFact.LogSqrtDet - stateFact.LogSqrtDet +
		b.geometricFactor*(forward-backward), nil
}

func (b *BilliardMALA) evaluateProposal() error {
	if b.evaluated {
		return nil
	}
	_, propFact := b.factors()
	nll, err := b.evaluate(propFact, b.propDrift, b.proposal)
	if err != nil {
		return err
	}
	b.propNLL = nll
	b.evaluated = true
	return nil
}

func (b *BilliardMALA) AcceptProposal() error {
	if !b.pending {
		return errNoProposal
	}
	if !b.reflection.Complete {
		return errors.Wrapf(hops.ErrInfeasibleState, "reflection cap of %d reached", b.maxReflections)
	}
	if !b.feasible {
		return hops.NewInfeasibleStateError(b.proposal, b.propSlack)
	}
	if err := b.evaluateProposal(); err != nil {
		return err
	}
	if err := b.commit(b.propSlack); err != nil {
		return err
	}
	if !b.global {
		b.stateFact, b.propFact = b.propFact, b.stateFact
	}
	b.stateDrift, b.propDrift = b.propDrift, b.stateDrift
	b.stateNLL = b.propNLL
	b.evaluated = false
	return nil
}

// LastReflection returns the reflection outcome of the pending candidate.
func (b *BilliardMALA) LastReflection() Reflection { return b.reflection }

func (b *BilliardMALA) SetState(x []float64) error {
	if err := b.setState(x); err != nil {
		return err
	}
	return b.evaluateState()
}

func (b *BilliardMALA) evaluateState() error {
	nll, err := b.evaluate(b.stateFact, b.stateDrift, b.state)
	if err != nil {
		return err
	}
	b.stateNLL = nll
	return nil
}

func (b *BilliardMALA) StateNegativeLogLikelihood() float64 { return b.stateNLL }
func (b *BilliardMALA) MaxReflections() int                 { return b.maxReflections }
func (b *BilliardMALA) StepSize() float64                   { return b.stepSize }

func (b *BilliardMALA) SetStepSize(step float64) error {
	if !(step > 0) || math.IsInf(step, 1) {
		return errors.Wrapf(hops.ErrInvalidSettings, "billiard MALA step size %v", step)
	}
	n := float64(b.Dim())
	b.stepSize = step
	b.covarianceFactor = step / math.Sqrt(n)
	b.geometricFactor = n / (2 * step * step)
	b.evaluated = false
	return b.evaluateState()
}
