package model

import (
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"

	hops "github.com/modsim/hops-sub002"
)

// Mixture is the weighted sum of component densities. Weights are
// normalized on construction. A Mixture is safe for concurrent use if its
// components are. It has no gradient; see GradientMixture.
type Mixture struct {
	components []hops.Model
	logWeights []float64
}

func NewMixture(components []hops.Model, weights []float64) (*Mixture, error) {
	if len(components) == 0 {
		return nil, errors.Wrap(hops.ErrInvalidSettings, "mixture without components")
	}
	if weights == nil {
		weights = make([]float64, len(components))
		for i := range weights {
			weights[i] = 1
		}
	}
	if len(weights) != len(components) {
		return nil, errors.Wrapf(hops.ErrDimensionMismatch, "%d weights for %d components", len(weights), len(components))
	}
	sum := floats.Sum(weights)
	logWeights := make([]float64, len(weights))
	for i, w := range weights {
		if !(w > 0) {
			return nil, errors.Wrapf(hops.ErrInvalidSettings, "mixture weight %v", w)
		}
		logWeights[i] = math.Log(w / sum)
	}
	return &Mixture{
		components: components,
		logWeights: logWeights,
	}, nil
}

// logComponents returns log(w_i) + log p_i(x) for every component.
func (m *Mixture) logComponents(x []float64) []float64 {
	logp := make([]float64, len(m.components))
	for i, c := range m.components {
		logp[i] = m.logWeights[i] - c.NegativeLogLikelihood(x)
	}
	return logp
}

func (m *Mixture) NegativeLogLikelihood(x []float64) float64 {
	return -floats.LogSumExp(m.logComponents(x))
}

// GradientMixture is a Mixture whose components all provide the log
// likelihood gradient.
type GradientMixture struct {
	*Mixture
	gradients []hops.Gradienter
}

// NewGradientMixture is like NewMixture but requires every component to
// implement hops.Gradienter.
func NewGradientMixture(components []hops.Model, weights []float64) (*GradientMixture, error) {
	m, err := NewMixture(components, weights)
	if err != nil {
		return nil, err
	}
	gradients := make([]hops.Gradienter, len(components))
	for i, c := range components {
		g, ok := c.(hops.Gradienter)
		if !ok {
			return nil, errors.Wrapf(hops.ErrInvalidSettings, "mixture component %d (%T) has no gradient", i, c)
		}
		gradients[i] = g
	}
	return &GradientMixture{Mixture: m, gradients: gradients}, nil
}

// LogLikelihoodGradient is the responsibility-weighted sum of the component
// gradients.
func (m *GradientMixture) LogLikelihoodGradient(grad, x []float64) []float64 {
	if grad == nil {
		grad = make([]float64, len(x))
	}
	for i := range grad {
		grad[i] = 0
	}
	logp := m.logComponents(x)
	total := floats.LogSumExp(logp)
	part := make([]float64, len(x))
	for i, g := range m.gradients {
		g.LogLikelihoodGradient(part, x)
		floats.AddScaled(grad, math.Exp(logp[i]-total), part)
	}
	return grad
}
