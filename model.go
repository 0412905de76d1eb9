package hops

import (
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/modsim/hops-sub002/rng"
)

// Model is a target density known up to a constant through its negative log
// likelihood.
type Model interface {
	NegativeLogLikelihood(x []float64) float64
}

// Gradienter is implemented by models that can compute the gradient of the
// log likelihood. If grad is nil a new slice is allocated.
type Gradienter interface {
	LogLikelihoodGradient(grad, x []float64) []float64
}

// FisherInformer is implemented by models with an expected Fisher
// information matrix.
type FisherInformer interface {
	FisherInformation(x []float64) *mat.SymDense
}

// ConstantFisherInformer is implemented by models whose Fisher information
// does not depend on x.
type ConstantFisherInformer interface {
	FisherInformer
	ConstantFisherInformation() bool
}

// ModelLayer couples a proposer without its own likelihood to a target
// model. Its log acceptance probability is the inner contribution plus
// coldness·(NLL(state) - NLL(proposal)).
type ModelLayer struct {
	inner    Proposer
	prober   AcceptanceProber
	model    Model
	coldness float64

	stateNLL    float64
	proposalNLL float64
}

// NewModelLayer wraps inner with model. A coldness of zero means one.
// Wrapping a proposer that already reports a likelihood is an error, since
// the likelihood would enter the acceptance probability twice.
func NewModelLayer(inner Proposer, model Model, coldness float64) (*ModelLayer, error) {
	if model == nil {
		return nil, errors.Wrap(ErrInvalidSettings, "nil model")
	}
	if _, ok := As[LikelihoodReporter](inner); ok {
		return nil, ErrLikelihoodAlreadyPresent
	}
	if coldness == 0 {
		coldness = 1
	}
	if coldness < 0 || coldness > 1 || math.IsNaN(coldness) {
		return nil, errors.Wrapf(ErrInvalidSettings, "coldness %v outside (0, 1]", coldness)
	}
	l := &ModelLayer{
		inner:    inner,
		model:    model,
		coldness: coldness,
	}
	l.prober, _ = inner.(AcceptanceProber)
	l.stateNLL = model.NegativeLogLikelihood(inner.State())
	return l, nil
}

func (l *ModelLayer) Propose(s *rng.Stream) error {
	return l.inner.Propose(s)
}

func (l *ModelLayer) AcceptProposal() error {
	if err := l.inner.AcceptProposal(); err != nil {
		return err
	}
	l.stateNLL = l.proposalNLL
	return nil
}

func (l *ModelLayer) LogAcceptanceProbability() (float64, error) {
	var logProb float64
	if l.prober != nil {
		v, err := l.prober.LogAcceptanceProbability()
		if err != nil {
			return math.Inf(-1), err
		}
		logProb = v
	}
	if math.IsInf(logProb, -1) {
		l.proposalNLL = math.Inf(1)
		return logProb, nil
	}
	l.proposalNLL = l.model.NegativeLogLikelihood(l.inner.Proposal())
	return logProb + l.coldness*(l.stateNLL-l.proposalNLL), nil
}

func (l *ModelLayer) StateNegativeLogLikelihood() float64 { return l.stateNLL }

// SetState forwards to the inner proposer and recomputes the likelihood.
func (l *ModelLayer) SetState(x []float64) error {
	setter, ok := As[StateSetter](l.inner)
	if !ok {
		return errors.Newf("hops: %T cannot set its state", l.inner)
	}
	if err := setter.SetState(x); err != nil {
		return err
	}
	l.stateNLL = l.model.NegativeLogLikelihood(l.inner.State())
	return nil
}

func (l *ModelLayer) State() []float64    { return l.inner.State() }
func (l *ModelLayer) Proposal() []float64 { return l.inner.Proposal() }
func (l *ModelLayer) Dim() int            { return l.inner.Dim() }
func (l *ModelLayer) Coldness() float64   { return l.coldness }
func (l *ModelLayer) Unwrap() any         { return l.inner }
