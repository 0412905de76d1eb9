package hops

import (
	"github.com/modsim/hops-sub002/rng"
)

// Proposer is the capability every proposal mechanism provides. A proposer
// owns its current state and at most one pending candidate: Propose
// overwrites the candidate, AcceptProposal commits it.
type Proposer interface {
	// Propose draws a new candidate from the current state.
	Propose(s *rng.Stream) error
	// AcceptProposal makes the pending candidate the current state.
	AcceptProposal() error
	// State returns a copy of the current state.
	State() []float64
	// Proposal returns a copy of the pending candidate.
	Proposal() []float64
	// Dim returns the dimension of the state.
	Dim() int
}

// AcceptanceProber is implemented by proposers and layers that contribute to
// the log Metropolis–Hastings acceptance probability of the pending
// candidate. A candidate outside the polytope yields -Inf and a nil error;
// errors are reserved for genuine failures.
type AcceptanceProber interface {
	LogAcceptanceProbability() (float64, error)
}

// LikelihoodReporter is implemented by stages that know the negative log
// likelihood of the current state.
type LikelihoodReporter interface {
	StateNegativeLogLikelihood() float64
}

// StepSizer is implemented by proposers with a tunable scale.
type StepSizer interface {
	StepSize() float64
	SetStepSize(float64) error
}

// StateSetter is implemented by proposers whose current state can be
// replaced, for example to restart from a new feasible point.
type StateSetter interface {
	SetState(x []float64) error
}

// Unwrapper is implemented by every layer that wraps an inner stage.
type Unwrapper interface {
	Unwrap() any
}

// As walks the Unwrap chain starting at layer and returns the outermost stage
// implementing T. Layers that override a capability, such as the
// transformation layer's State, are found before the stages they wrap.
func As[T any](layer any) (T, bool) {
	for layer != nil {
		if t, ok := layer.(T); ok {
			return t, true
		}
		u, ok := layer.(Unwrapper)
		if !ok {
			break
		}
		layer = u.Unwrap()
	}
	var zero T
	return zero, false
}
