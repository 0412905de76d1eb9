package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/functions"

	hops "github.com/modsim/hops-sub002"
)

var (
	_ hops.Gradienter             = (*Gaussian)(nil)
	_ hops.ConstantFisherInformer = (*Gaussian)(nil)
	_ hops.Gradienter             = (*Rosenbrock)(nil)
	_ hops.FisherInformer         = (*Rosenbrock)(nil)
	_ hops.Gradienter             = (*GradientMixture)(nil)
)

// checkGradient compares the analytic log likelihood gradient with central
// finite differences of the negative log likelihood.
func checkGradient(t *testing.T, name string, m interface {
	hops.Model
	hops.Gradienter
}, x []float64) {
	want := fd.Gradient(nil, func(x []float64) float64 { return -m.NegativeLogLikelihood(x) }, x, &fd.Settings{Formula: fd.Central})
	got := m.LogLikelihoodGradient(nil, x)
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-4*(1+math.Abs(want[i])), "Case %s: component %d", name, i)
	}
}

func TestGaussian(t *testing.T) {
	cov := mat.NewSymDense(2, []float64{2, 0.5, 0.5, 1})
	g, err := NewGaussian([]float64{1, -1}, cov)
	require.NoError(t, err)

	// NLL at the mean is log(2π) + ½·log det Σ.
	want := math.Log(2*math.Pi) + 0.5*math.Log(2*1-0.25)
	assert.InDelta(t, want, g.NegativeLogLikelihood([]float64{1, -1}), 1e-12)
	assert.Equal(t, []float64{0, 0}, g.LogLikelihoodGradient(nil, []float64{1, -1}))
	checkGradient(t, "Gaussian", g, []float64{0.3, 0.7})

	var prod mat.Dense
	prod.Mul(g.FisherInformation(nil), cov)
	assert.True(t, mat.EqualApprox(&prod, eye(2), 1e-12))
	assert.True(t, g.ConstantFisherInformation())

	_, err = NewGaussian([]float64{0}, cov)
	assert.ErrorIs(t, err, hops.ErrDimensionMismatch)
}

func TestRosenbrock(t *testing.T) {
	r, err := NewRosenbrock(0.5, []float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 4, r.Dim())
	assert.Equal(t, 0.0, r.NegativeLogLikelihood([]float64{1, 1, 2, 4}))
	checkGradient(t, "Rosenbrock", r, []float64{0.2, -0.1, 1.5, 0.3})

	for _, x := range [][]float64{{0, 0, 0, 0}, {1, 1, 2, 4}, {-1, 3, 0.5, -2}} {
		var chol mat.Cholesky
		assert.True(t, chol.Factorize(r.FisherInformation(x)), "regularized Hessian at %v not positive definite", x)
	}

	_, err = NewRosenbrock(0, []float64{1})
	assert.ErrorIs(t, err, hops.ErrInvalidSettings)
}

func TestRosenbrockMatchesExtendedRosenbrock(t *testing.T) {
	var ref functions.ExtendedRosenbrock
	r, err := NewRosenbrock(1, []float64{1})
	require.NoError(t, err)
	for _, x := range [][]float64{{-1.2, 1}, {0, 0}, {1, 1}, {0.5, -0.3}} {
		assert.InDelta(t, ref.Func(x), r.NegativeLogLikelihood(x), 1e-12, "x = %v", x)

		grad := make([]float64, 2)
		ref.Grad(grad, x)
		got := r.LogLikelihoodGradient(nil, x)
		for i := range grad {
			assert.InDelta(t, -grad[i], got[i], 1e-12, "x = %v: gradient %d", x, i)
		}

		hess := mat.NewDense(2, 2, nil)
		fd.Jacobian(hess, ref.Grad, x, &fd.JacobianSettings{Formula: fd.Central})
		assert.True(t, mat.EqualApprox(hess, r.Hessian(x), 1e-4*(1+mat.Norm(hess, math.Inf(1)))), "x = %v: Hessian %v", x, mat.Formatted(r.Hessian(x)))
	}
}

func TestMixture(t *testing.T) {
	a, err := NewIsotropicGaussian([]float64{-2}, 1)
	require.NoError(t, err)
	b, err := NewIsotropicGaussian([]float64{2}, 1)
	require.NoError(t, err)
	m, err := NewGradientMixture([]hops.Model{a, b}, []float64{1, 3})
	require.NoError(t, err)

	x := []float64{0.4}
	want := -math.Log(0.25*math.Exp(-a.NegativeLogLikelihood(x)) + 0.75*math.Exp(-b.NegativeLogLikelihood(x)))
	assert.InDelta(t, want, m.NegativeLogLikelihood(x), 1e-12)
	checkGradient(t, "Mixture", m, x)

	_, err = NewMixture([]hops.Model{a}, []float64{-1})
	assert.ErrorIs(t, err, hops.ErrInvalidSettings)
}

type flat struct{}

func (flat) NegativeLogLikelihood(x []float64) float64 { return 0 }

func TestMixtureWithoutGradient(t *testing.T) {
	a, err := NewIsotropicGaussian([]float64{0}, 1)
	require.NoError(t, err)
	components := []hops.Model{a, flat{}}

	m, err := NewMixture(components, nil)
	require.NoError(t, err)
	var target hops.Model = m
	_, ok := target.(hops.Gradienter)
	assert.False(t, ok)
	want := -math.Log(0.5*math.Exp(-a.NegativeLogLikelihood([]float64{1})) + 0.5)
	assert.InDelta(t, want, m.NegativeLogLikelihood([]float64{1}), 1e-12)

	_, err = NewGradientMixture(components, nil)
	assert.ErrorIs(t, err, hops.ErrInvalidSettings)
}

func eye(n int) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, 1)
	}
	return d
}
