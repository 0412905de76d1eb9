package model

import (
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	hops "github.com/modsim/hops-sub002"
)

// Rosenbrock is the banana-shaped target with negative log likelihood
//
//	scale · Σ_i [100·(x_{2i}² - x_{2i+1})² + (x_{2i} - shift_i)²]
//
// in 2·len(shift) dimensions.
type Rosenbrock struct {
	Scale float64
	Shift []float64
}

// NewRosenbrock returns a Rosenbrock target. scale must be positive.
func NewRosenbrock(scale float64, shift []float64) (*Rosenbrock, error) {
	if !(scale > 0) {
		return nil, errors.Wrapf(hops.ErrInvalidSettings, "Rosenbrock scale %v", scale)
	}
	if len(shift) == 0 {
		return nil, errors.Wrap(hops.ErrInvalidSettings, "empty Rosenbrock shift")
	}
	return &Rosenbrock{Scale: scale, Shift: append([]float64(nil), shift...)}, nil
}

func (r *Rosenbrock) Dim() int { return 2 * len(r.Shift) }

func (r *Rosenbrock) check(x []float64) {
	if len(x) != r.Dim() {
		panic("model: length mismatch")
	}
}

func (r *Rosenbrock) NegativeLogLikelihood(x []float64) float64 {
	r.check(x)
	var nll float64
	for i, s := range r.Shift {
		a, b := x[2*i], x[2*i+1]
		nll += 100*(a*a-b)*(a*a-b) + (a-s)*(a-s)
	}
	return r.Scale * nll
}

func (r *Rosenbrock) LogLikelihoodGradient(grad, x []float64) []float64 {
	r.check(x)
	if grad == nil {
		grad = make([]float64, len(x))
	}
	for i, s := range r.Shift {
		a, b := x[2*i], x[2*i+1]
		grad[2*i] = -r.Scale * (400*a*(a*a-b) + 2*(a-s))
		grad[2*i+1] = -r.Scale * 200 * (b - a*a)
	}
	return grad
}

// Hessian returns the Hessian of the negative log likelihood at x.
func (r *Rosenbrock) Hessian(x []float64) *mat.SymDense {
	r.check(x)
	h := mat.NewSymDense(len(x), nil)
	for i := range r.Shift {
		a, b := x[2*i], x[2*i+1]
		h.SetSym(2*i, 2*i, r.Scale*(1200*a*a-400*b+2))
		h.SetSym(2*i, 2*i+1, -r.Scale*400*a)
		h.SetSym(2*i+1, 2*i+1, r.Scale*200)
	}
	return h
}

// FisherInformation returns the Hessian regularized to be positive
// definite: every eigenvalue λ is mapped to λ·coth(λ/λmax).
func (r *Rosenbrock) FisherInformation(x []float64) *mat.SymDense {
	h := r.Hessian(x)
	var eig mat.EigenSym
	if ok := eig.Factorize(h, true); !ok {
		panic("model: Rosenbrock Hessian eigendecomposition failed")
	}
	values := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	scale := floats.Max(values)
	if scale <= 0 {
		scale = 1
	}
	n := len(values)
	for i, v := range values {
		values[i] = softAbs(v, 1/scale)
	}
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			var sum float64
			for k, v := range values {
				sum += vecs.At(i, k) * v * vecs.At(j, k)
			}
			out.SetSym(i, j, sum)
		}
	}
	return out
}

// softAbs returns λ·coth(α·λ), which tends to 1/α at λ = 0.
func softAbs(lambda, alpha float64) float64 {
	if math.Abs(alpha*lambda) < 1e-8 {
		return 1 / alpha
	}
	return lambda / math.Tanh(alpha*lambda)
}
