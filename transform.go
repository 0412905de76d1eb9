package hops

import (
	"github.com/cockroachdb/errors"

	"github.com/modsim/hops-sub002/rng"
)

// Transformation maps points of a rounded space y into the original space x
// and back. If dst is nil a new slice is allocated.
type Transformation interface {
	Apply(dst, y []float64) []float64
	Revert(dst, x []float64) []float64
}

// TransformationLayer wraps a proposer that samples in a rounded space. The
// inner proposer works entirely on y; states and candidates are mapped to x
// only when they are reported outward.
type TransformationLayer struct {
	inner Proposer
	t     Transformation
}

func NewTransformationLayer(inner Proposer, t Transformation) *TransformationLayer {
	return &TransformationLayer{inner: inner, t: t}
}

func (l *TransformationLayer) Propose(s *rng.Stream) error { return l.inner.Propose(s) }
func (l *TransformationLayer) AcceptProposal() error       { return l.inner.AcceptProposal() }
func (l *TransformationLayer) State() []float64            { return l.t.Apply(nil, l.inner.State()) }
func (l *TransformationLayer) Proposal() []float64         { return l.t.Apply(nil, l.inner.Proposal()) }
func (l *TransformationLayer) Dim() int                    { return l.inner.Dim() }
func (l *TransformationLayer) Unwrap() any                 { return l.inner }

// LogAcceptanceProbability forwards the inner contribution. A linear
// transformation has a constant Jacobian, so no correction is added.
func (l *TransformationLayer) LogAcceptanceProbability() (float64, error) {
	if p, ok := l.inner.(AcceptanceProber); ok {
		return p.LogAcceptanceProbability()
	}
	return 0, nil
}

// SetState maps x into the rounded space and sets it on the inner proposer.
func (l *TransformationLayer) SetState(x []float64) error {
	setter, ok := As[StateSetter](l.inner)
	if !ok {
		return errors.Newf("hops: %T cannot set its state", l.inner)
	}
	return setter.SetState(l.t.Revert(nil, x))
}

// RoundTrip returns Apply(Revert(x)).
func (l *TransformationLayer) RoundTrip(x []float64) []float64 {
	return l.t.Apply(nil, l.t.Revert(nil, x))
}
