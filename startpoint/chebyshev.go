// Package startpoint finds interior starting points of polytopes.
package startpoint

import (
	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	hops "github.com/modsim/hops-sub002"
)

// ErrNoInterior is returned when a polytope has an empty interior.
var ErrNoInterior = errors.New("startpoint: polytope has no interior")

const defaultTol = 1e-10

// ChebyshevCenter finds the center of the largest ball inscribed in a
// polytope by solving
//
//	maximize r  subject to  a_i·x + ‖a_i‖·r ≤ b_i,  r ≥ 0
//
// with the simplex method.
type ChebyshevCenter struct {
	// Tol is the simplex tolerance. If 0, defaults to 1e-10.
	Tol float64
}

// Find returns the Chebyshev center of p and the radius of its inscribed
// ball. Solver failures such as an unbounded polytope are returned wrapped.
func (c ChebyshevCenter) Find(p *hops.Polytope) (center []float64, radius float64, err error) {
	m, n := p.Dims()
	tol := c.Tol
	if tol == 0 {
		tol = defaultTol
	}

	// Variables are (x, r); the last row bounds r from below.
	g := mat.NewDense(m+1, n+1, nil)
	h := make([]float64, m+1)
	row := make([]float64, n)
	for i := 0; i < m; i++ {
		p.Row(row, i)
		for j, v := range row {
			g.Set(i, j, v)
		}
		g.Set(i, n, floats.Norm(row, 2))
		h[i] = p.B()[i]
	}
	g.Set(m, n, -1)
	obj := make([]float64, n+1)
	obj[n] = -1

	cStd, aStd, bStd := lp.Convert(obj, g, h, nil, nil)
	opt, z, err := lp.Simplex(cStd, aStd, bStd, tol, nil)
	if err != nil {
		return nil, 0, errors.Wrap(err, "startpoint: chebyshev center")
	}
	// Convert splits every free variable v into v⁺ - v⁻.
	nv := n + 1
	center = make([]float64, n)
	for j := range center {
		center[j] = z[j] - z[nv+j]
	}
	radius = -opt
	if radius <= tol {
		return center, radius, ErrNoInterior
	}
	return center, radius, nil
}

// FindStart returns the Chebyshev center of p.
func (c ChebyshevCenter) FindStart(p *hops.Polytope) ([]float64, error) {
	x, _, err := c.Find(p)
	return x, err
}

var _ hops.StartFinder = ChebyshevCenter{}
