// Package gp implements a Gaussian process regression surrogate evaluated on
// a fixed grid of inputs, with joint posterior sampling for Thompson
// sampling.
package gp

import (
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/modsim/hops-sub002/rng"
)

// ErrNotPositiveDefinite is returned when the observed covariance cannot be
// factorized even after adding jitter to its diagonal.
var ErrNotPositiveDefinite = errors.New("gp: observed covariance is not positive definite")

const (
	initialJitter  = 1e-10
	maxJitterTries = 8
)

// GP is a Gaussian process with a constant prior mean. Observations carry a
// noise variance that is added to the diagonal of the observed covariance.
// A GP is not safe for concurrent use.
type GP struct {
	kernel    Kernel
	priorMean float64

	x     [][]float64
	y     []float64
	noise []float64
}

// New returns a GP with no observations.
func New(kernel Kernel, priorMean float64) *GP {
	return &GP{kernel: kernel, priorMean: priorMean}
}

// Observe records value y with noise variance noise at x. If x was observed
// before, the stored value and noise are replaced.
func (g *GP) Observe(x []float64, y, noise float64) {
	if i := g.index(x); i >= 0 {
		g.y[i] = y
		g.noise[i] = noise
		return
	}
	g.x = append(g.x, append([]float64(nil), x...))
	g.y = append(g.y, y)
	g.noise = append(g.noise, noise)
}

func (g *GP) index(x []float64) int {
	for i, xi := range g.x {
		if floats.Equal(xi, x) {
			return i
		}
	}
	return -1
}

// Len returns the number of distinct observed inputs.
func (g *GP) Len() int { return len(g.x) }

// Observations returns copies of the observed inputs, values and noise
// variances in the order they were first observed.
func (g *GP) Observations() (x [][]float64, y, noise []float64) {
	x = make([][]float64, len(g.x))
	for i, xi := range g.x {
		x[i] = append([]float64(nil), xi...)
	}
	return x, append([]float64(nil), g.y...), append([]float64(nil), g.noise...)
}

// Posterior is the joint posterior of a GP over a grid of inputs.
type Posterior struct {
	Mean       []float64
	Covariance *mat.SymDense

	sqrt *mat.Dense
}

// Posterior computes the posterior mean and covariance on grid.
func (g *GP) Posterior(grid [][]float64) (*Posterior, error) {
	if len(grid) == 0 {
		return nil, errors.New("gp: empty grid")
	}
	n := len(grid)
	mean := make([]float64, n)
	for i := range mean {
		mean[i] = g.priorMean
	}
	prior := SymCovarianceMatrix(g.kernel, grid)
	if len(g.x) == 0 {
		return &Posterior{Mean: mean, Covariance: prior}, nil
	}

	chol, err := g.factorize()
	if err != nil {
		return nil, err
	}
	resid := make([]float64, len(g.y))
	for i, v := range g.y {
		resid[i] = v - g.priorMean
	}
	var alpha mat.VecDense
	if err := chol.SolveVecTo(&alpha, mat.NewVecDense(len(resid), resid)); err != nil {
		return nil, errors.Wrap(ErrNotPositiveDefinite, err.Error())
	}
	cross := CovarianceMatrix(g.kernel, g.x, grid)
	var m mat.VecDense
	m.MulVec(cross.T(), &alpha)
	for i := range mean {
		mean[i] += m.AtVec(i)
	}

	var w mat.Dense
	if err := chol.SolveTo(&w, cross); err != nil {
		return nil, errors.Wrap(ErrNotPositiveDefinite, err.Error())
	}
	var reduce mat.Dense
	reduce.Mul(cross.T(), &w)
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			r := 0.5 * (reduce.At(i, j) + reduce.At(j, i))
			cov.SetSym(i, j, prior.At(i, j)-r)
		}
	}
	return &Posterior{Mean: mean, Covariance: cov}, nil
}

// factorize returns the Cholesky factor of the observed covariance, adding
// growing jitter to the diagonal when the plain matrix is numerically
// singular.
func (g *GP) factorize() (*mat.Cholesky, error) {
	k := SymCovarianceMatrix(g.kernel, g.x)
	scale := 0.0
	for i, e := range g.noise {
		k.SetSym(i, i, k.At(i, i)+e)
		scale = math.Max(scale, k.At(i, i))
	}
	var chol mat.Cholesky
	if chol.Factorize(k) {
		return &chol, nil
	}
	jitter := initialJitter * (1 + scale)
	for try := 0; try < maxJitterTries; try++ {
		kj := mat.NewSymDense(len(g.x), nil)
		kj.CopySym(k)
		for i := range g.x {
			kj.SetSym(i, i, kj.At(i, i)+jitter)
		}
		if chol.Factorize(kj) {
			return &chol, nil
		}
		jitter *= 10
	}
	return nil, errors.Wrapf(ErrNotPositiveDefinite, "%d observations, jitter up to %g", len(g.x), jitter/10)
}

// Argmax returns the grid index of the largest posterior mean and its
// value. Ties resolve to the lowest index.
func (p *Posterior) Argmax() (int, float64) {
	i := floats.MaxIdx(p.Mean)
	return i, p.Mean[i]
}

// Variance returns the marginal posterior variance at grid index i.
func (p *Posterior) Variance(i int) float64 {
	return p.Covariance.At(i, i)
}

// Sample draws one joint sample of the posterior over the grid and returns
// it with the index of its largest element. The covariance square root is
// computed by a symmetric eigendecomposition on first use; negative
// eigenvalues from rounding are treated as zero.
func (p *Posterior) Sample(s *rng.Stream) (draw []float64, argmax int, err error) {
	if p.sqrt == nil {
		if err := p.factorSqrt(); err != nil {
			return nil, 0, err
		}
	}
	n := len(p.Mean)
	z := make([]float64, n)
	for i := range z {
		z[i] = s.NormFloat64()
	}
	var v mat.VecDense
	v.MulVec(p.sqrt, mat.NewVecDense(n, z))
	draw = make([]float64, n)
	for i := range draw {
		draw[i] = p.Mean[i] + v.AtVec(i)
	}
	return draw, floats.MaxIdx(draw), nil
}

func (p *Posterior) factorSqrt() error {
	var eig mat.EigenSym
	if ok := eig.Factorize(p.Covariance, true); !ok {
		return errors.New("gp: eigendecomposition of posterior covariance failed")
	}
	values := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	for j, l := range values {
		c := math.Sqrt(math.Max(l, 0))
		for i := range values {
			vecs.Set(i, j, vecs.At(i, j)*c)
		}
	}
	p.sqrt = &vecs
	return nil
}
