package hops

import (
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/mat"
)

// Polytope is the feasible region {x : A·x < b}. A may be any mat.Matrix
// implementation, dense or sparse; the samplers only read it through
// matrix-vector products and row/column views. A Polytope must not be
// modified after it is handed to a proposal.
type Polytope struct {
	a mat.Matrix
	b []float64
}

// NewPolytope returns the polytope A·x < b. The slice b is copied.
func NewPolytope(a mat.Matrix, b []float64) (*Polytope, error) {
	m, n := a.Dims()
	if m != len(b) {
		return nil, errors.Wrapf(ErrDimensionMismatch, "A has %d rows, b has length %d", m, len(b))
	}
	if m == 0 || n == 0 {
		return nil, errors.Wrap(ErrInvalidSettings, "empty constraint matrix")
	}
	return &Polytope{
		a: a,
		b: append([]float64(nil), b...),
	}, nil
}

// Box returns the axis-aligned box lower < x < upper written as [I; -I].
func Box(lower, upper []float64) (*Polytope, error) {
	if len(lower) != len(upper) {
		return nil, errors.Wrapf(ErrDimensionMismatch, "bounds of length %d and %d", len(lower), len(upper))
	}
	d := len(lower)
	a := mat.NewDense(2*d, d, nil)
	b := make([]float64, 2*d)
	for i := 0; i < d; i++ {
		if !(lower[i] < upper[i]) {
			return nil, errors.Wrapf(ErrInvalidSettings, "lower bound %v not below upper bound %v", lower[i], upper[i])
		}
		a.Set(i, i, 1)
		b[i] = upper[i]
		a.Set(d+i, i, -1)
		b[d+i] = -lower[i]
	}
	return NewPolytope(a, b)
}

// Dims returns the number of constraints and the dimension of the space.
func (p *Polytope) Dims() (constraints, dim int) {
	return p.a.Dims()
}

// A returns the constraint matrix. It must not be modified.
func (p *Polytope) A() mat.Matrix { return p.a }

// B returns the constraint bounds. The returned slice must not be modified.
func (p *Polytope) B() []float64 { return p.b }

// MulVec stores A·v into dst and returns it. If dst is nil a new slice is
// allocated.
func (p *Polytope) MulVec(dst, v []float64) []float64 {
	m, n := p.a.Dims()
	if len(v) != n {
		panic("hops: length mismatch")
	}
	if dst == nil {
		dst = make([]float64, m)
	}
	if len(dst) != m {
		panic("hops: length mismatch")
	}
	out := mat.NewVecDense(m, dst)
	out.MulVec(p.a, mat.NewVecDense(n, v))
	return dst
}

// Slack stores b - A·x into dst and returns it. If dst is nil a new slice
// is allocated.
func (p *Polytope) Slack(dst, x []float64) []float64 {
	dst = p.MulVec(dst, x)
	for i, bi := range p.b {
		dst[i] = bi - dst[i]
	}
	return dst
}

// Contains returns whether A·x < b holds strictly.
func (p *Polytope) Contains(x []float64) bool {
	return Feasible(p.Slack(nil, x))
}

// Row returns a copy of constraint row i.
func (p *Polytope) Row(dst []float64, i int) []float64 {
	return mat.Row(dst, i, p.a)
}

// Col returns a copy of column j of A.
func (p *Polytope) Col(dst []float64, j int) []float64 {
	return mat.Col(dst, j, p.a)
}

// Feasible returns whether every slack is strictly positive.
func Feasible(slack []float64) bool {
	for _, s := range slack {
		if !(s > 0) {
			return false
		}
	}
	return true
}

// SlackScale is the magnitude against which slack drift is measured.
func (p *Polytope) SlackScale() float64 {
	var max float64
	for _, v := range p.b {
		max = math.Max(max, math.Abs(v))
	}
	return 1 + max
}
