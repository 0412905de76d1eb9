package gp

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Kernel is a covariance function between two input points.
type Kernel interface {
	Covariance(x, y []float64) float64
}

// SquaredExponential is the kernel σ²·exp(-‖x-y‖²/(2ℓ²)).
type SquaredExponential struct {
	Sigma  float64
	Length float64
}

func (k SquaredExponential) Covariance(x, y []float64) float64 {
	d := floats.Distance(x, y, 2)
	return k.Sigma * k.Sigma * math.Exp(-0.5*d*d/(k.Length*k.Length))
}

// UniformBall is the indicator kernel 1{‖x-y‖ ≤ Radius}. It is used to
// average observation errors over neighbouring inputs.
type UniformBall struct {
	Radius float64
}

func (k UniformBall) Covariance(x, y []float64) float64 {
	if floats.Distance(x, y, 2) <= k.Radius {
		return 1
	}
	return 0
}

// CovarianceMatrix returns the len(x)×len(y) matrix k(x_i, y_j). Both x
// and y must be non-empty.
func CovarianceMatrix(k Kernel, x, y [][]float64) *mat.Dense {
	c := mat.NewDense(len(x), len(y), nil)
	for i, xi := range x {
		for j, yj := range y {
			c.Set(i, j, k.Covariance(xi, yj))
		}
	}
	return c
}

// SymCovarianceMatrix returns the symmetric matrix k(x_i, x_j).
func SymCovarianceMatrix(k Kernel, x [][]float64) *mat.SymDense {
	c := mat.NewSymDense(len(x), nil)
	for i, xi := range x {
		for j := i; j < len(x); j++ {
			c.SetSym(i, j, k.Covariance(xi, x[j]))
		}
	}
	return c
}
