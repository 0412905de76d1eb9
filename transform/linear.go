// Package transform provides state transformations for samplers that work
// in a rounded copy of the polytope.
package transform

import (
	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/mat"

	hops "github.com/modsim/hops-sub002"
)

// Linear is the map x = L·y + Shift with L lower triangular and
// nonsingular.
type Linear struct {
	l     *mat.TriDense
	shift []float64
}

// NewLinear returns the map x = l·y + shift. A nil shift is zero.
func NewLinear(l *mat.TriDense, shift []float64) (*Linear, error) {
	n, kind := l.Triangle()
	if kind != mat.Lower {
		return nil, errors.Wrap(hops.ErrInvalidSettings, "transform: L must be lower triangular")
	}
	if shift == nil {
		shift = make([]float64, n)
	}
	if len(shift) != n {
		return nil, errors.Wrapf(hops.ErrDimensionMismatch, "transform: L is %d×%d, shift has length %d", n, n, len(shift))
	}
	for i := 0; i < n; i++ {
		if l.At(i, i) == 0 {
			return nil, errors.Wrapf(hops.ErrInvalidSettings, "transform: L is singular at row %d", i)
		}
	}
	t := mat.NewTriDense(n, mat.Lower, nil)
	t.Copy(l)
	return &Linear{l: t, shift: append([]float64(nil), shift...)}, nil
}

// NewLinearFromCovariance returns the map whose L is the lower Cholesky
// factor of cov. It sends the unit ball onto the ellipsoid with covariance
// cov centred at shift.
func NewLinearFromCovariance(cov *mat.SymDense, shift []float64) (*Linear, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(cov); !ok {
		return nil, errors.Wrap(hops.ErrInvalidSettings, "transform: covariance is not positive definite")
	}
	var l mat.TriDense
	chol.LTo(&l)
	return NewLinear(&l, shift)
}

func (t *Linear) Dim() int { return len(t.shift) }

// L returns the transformation matrix. It must not be modified.
func (t *Linear) L() mat.Triangular { return t.l }

// Apply sets dst = L·y + Shift.
func (t *Linear) Apply(dst, y []float64) []float64 {
	n := len(t.shift)
	if len(y) != n {
		panic("transform: dimension mismatch")
	}
	if dst == nil {
		dst = make([]float64, n)
	}
	v := mat.NewVecDense(n, dst)
	v.MulVec(t.l, mat.NewVecDense(n, append([]float64(nil), y...)))
	for i, s := range t.shift {
		dst[i] += s
	}
	return dst
}

// Revert sets dst = L⁻¹·(x − Shift).
func (t *Linear) Revert(dst, x []float64) []float64 {
	n := len(t.shift)
	if len(x) != n {
		panic("transform: dimension mismatch")
	}
	if dst == nil {
		dst = make([]float64, n)
	}
	for i, s := range t.shift {
		dst[i] = x[i] - s
	}
	// Forward substitution in place.
	raw := t.l.RawTriangular()
	for i := 0; i < n; i++ {
		sum := dst[i]
		row := raw.Data[i*raw.Stride : i*raw.Stride+i]
		for j, v := range row {
			sum -= v * dst[j]
		}
		dst[i] = sum / raw.Data[i*raw.Stride+i]
	}
	return dst
}

// Polytope rewrites {x : A·x < b} in the rounded coordinates y, giving
// {y : (A·L)·y < b − A·Shift}.
func (t *Linear) Polytope(p *hops.Polytope) (*hops.Polytope, error) {
	m, n := p.Dims()
	if n != len(t.shift) {
		return nil, errors.Wrapf(hops.ErrDimensionMismatch, "transform: polytope has dimension %d, transformation %d", n, len(t.shift))
	}
	var al mat.Dense
	al.Mul(p.A(), t.l)
	b := p.MulVec(make([]float64, m), t.shift)
	for i, v := range p.B() {
		b[i] = v - b[i]
	}
	return hops.NewPolytope(&al, b)
}

var _ hops.Transformation = (*Linear)(nil)
