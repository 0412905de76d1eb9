// Package model provides target densities for the samplers.
package model

import (
	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"

	hops "github.com/modsim/hops-sub002"
)

// Gaussian is the multivariate normal target N(μ, Σ). Its Fisher
// information is the constant precision Σ⁻¹.
type Gaussian struct {
	normal    *distmv.Normal
	mean      []float64
	precision *mat.SymDense
}

// NewGaussian returns N(mean, cov). cov must be positive definite.
func NewGaussian(mean []float64, cov mat.Symmetric) (*Gaussian, error) {
	if cov.SymmetricDim() != len(mean) {
		return nil, errors.Wrapf(hops.ErrDimensionMismatch, "mean of length %d, covariance of size %d", len(mean), cov.SymmetricDim())
	}
	normal, ok := distmv.NewNormal(mean, cov, nil)
	if !ok {
		return nil, errors.Wrap(hops.ErrInvalidSettings, "covariance is not positive definite")
	}
	var chol mat.Cholesky
	if !chol.Factorize(cov) {
		return nil, errors.Wrap(hops.ErrInvalidSettings, "covariance is not positive definite")
	}
	precision := &mat.SymDense{}
	if err := chol.InverseTo(precision); err != nil {
		return nil, errors.Wrap(err, "inverting covariance")
	}
	return &Gaussian{
		normal:    normal,
		mean:      append([]float64(nil), mean...),
		precision: precision,
	}, nil
}

// NewIsotropicGaussian returns N(mean, σ²·I).
func NewIsotropicGaussian(mean []float64, sigma float64) (*Gaussian, error) {
	n := len(mean)
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		cov.SetSym(i, i, sigma*sigma)
	}
	return NewGaussian(mean, cov)
}

func (g *Gaussian) Dim() int { return len(g.mean) }

func (g *Gaussian) NegativeLogLikelihood(x []float64) float64 {
	return -g.normal.LogProb(x)
}

// LogLikelihoodGradient returns -Σ⁻¹·(x - μ).
func (g *Gaussian) LogLikelihoodGradient(grad, x []float64) []float64 {
	if len(x) != len(g.mean) {
		panic("model: length mismatch")
	}
	if grad == nil {
		grad = make([]float64, len(x))
	}
	diff := make([]float64, len(x))
	floats.SubTo(diff, g.mean, x)
	out := mat.NewVecDense(len(grad), grad)
	out.MulVec(g.precision, mat.NewVecDense(len(diff), diff))
	return grad
}

// FisherInformation returns a copy of the precision matrix.
func (g *Gaussian) FisherInformation(x []float64) *mat.SymDense {
	out := mat.NewSymDense(len(g.mean), nil)
	out.CopySym(g.precision)
	return out
}

func (g *Gaussian) ConstantFisherInformation() bool { return true }
