// Package metric computes the local metrics of the Riemannian proposals: the
// Dikin ellipsoid of the polytope's log barrier, model Fisher information,
// and convex mixtures of the two.
package metric

import (
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	hops "github.com/modsim/hops-sub002"
)

// Dikin computes the Hessian of the log barrier -Σ log(b - A·x),
//
//	H(x) = Aᵀ·diag(1/s²)·A,  s = b - A·x.
type Dikin struct {
	p      *hops.Polytope
	slack  []float64
	scaled *mat.Dense
}

func NewDikin(p *hops.Polytope) *Dikin {
	m, n := p.Dims()
	return &Dikin{
		p:      p,
		slack:  make([]float64, m),
		scaled: mat.NewDense(m, n, nil),
	}
}

// Compute stores H(x) in dst and returns it. If dst is nil a new matrix is
// allocated. Compute fails with an *hops.InfeasibleStateError outside the
// polytope.
func (d *Dikin) Compute(dst *mat.SymDense, x []float64) (*mat.SymDense, error) {
	d.p.Slack(d.slack, x)
	if !hops.Feasible(d.slack) {
		return nil, hops.NewInfeasibleStateError(x, d.slack)
	}
	return d.FromSlack(dst, d.slack), nil
}

// FromSlack computes H from a slack vector that is already known.
func (d *Dikin) FromSlack(dst *mat.SymDense, slack []float64) *mat.SymDense {
	d.scaled.Copy(d.p.A())
	for i, s := range slack {
		floats.Scale(1/s, d.scaled.RawRowView(i))
	}
	if dst == nil {
		dst = &mat.SymDense{}
	}
	dst.SymOuterK(1, d.scaled.T())
	return dst
}

// Mixed is the convex combination w·F(x) + (1-w)·H(x) of a model's Fisher
// information F and the Dikin ellipsoid H. A nil Fisher means H alone.
type Mixed struct {
	Dikin  *Dikin
	Fisher hops.FisherInformer
	Weight float64

	dikin mat.SymDense
}

// NewMixed returns the mixture with the given Fisher weight in [0, 1].
func NewMixed(p *hops.Polytope, fisher hops.FisherInformer, weight float64) (*Mixed, error) {
	if weight < 0 || weight > 1 || math.IsNaN(weight) {
		return nil, errors.Wrapf(hops.ErrInvalidSettings, "fisher weight %v outside [0, 1]", weight)
	}
	return &Mixed{Dikin: NewDikin(p), Fisher: fisher, Weight: weight}, nil
}

// Compute stores the mixed metric at x in dst and returns it.
func (m *Mixed) Compute(dst *mat.SymDense, x []float64) (*mat.SymDense, error) {
	if m.Fisher == nil || m.Weight == 0 {
		return m.Dikin.Compute(dst, x)
	}
	if dst == nil {
		dst = &mat.SymDense{}
	}
	fisher := m.Fisher.FisherInformation(x)
	if m.Weight == 1 {
		if dst.IsEmpty() {
			n := fisher.SymmetricDim()
			dst.ReuseAsSym(n)
		}
		dst.CopySym(fisher)
		return dst, nil
	}
	if _, err := m.Dikin.Compute(&m.dikin, x); err != nil {
		return nil, err
	}
	m.dikin.ScaleSym(1-m.Weight, &m.dikin)
	if dst.IsEmpty() {
		dst.ReuseAsSym(fisher.SymmetricDim())
	}
	dst.ScaleSym(m.Weight, fisher)
	dst.AddSym(dst, &m.dikin)
	return dst, nil
}

// Factorization caches the Cholesky factorization M = Uᵀ·U of a metric and
// its log square-root determinant.
type Factorization struct {
	Metric     mat.SymDense
	Chol       mat.Cholesky
	LogSqrtDet float64

	work mat.VecDense
}

// Factorize copies metric and factorizes it. name identifies the metric in
// the returned *hops.MetricFactorizationError.
func (f *Factorization) Factorize(metric *mat.SymDense, name string, x []float64) error {
	n := metric.SymmetricDim()
	if f.Metric.IsEmpty() {
		f.Metric.ReuseAsSym(n)
	}
	f.Metric.CopySym(metric)
	if ok := f.Chol.Factorize(&f.Metric); !ok {
		return &hops.MetricFactorizationError{Metric: name, Point: append([]float64(nil), x...)}
	}
	f.LogSqrtDet = 0.5 * f.Chol.LogDet()
	return nil
}

// ScaleNoise stores U⁻¹·z in dst, a draw from N(0, M⁻¹) when z is standard
// normal.
func (f *Factorization) ScaleNoise(dst, z []float64) error {
	out := mat.NewVecDense(len(dst), dst)
	return out.SolveVec(f.Chol.RawU(), mat.NewVecDense(len(z), z))
}

// Solve stores M⁻¹·v in dst.
func (f *Factorization) Solve(dst, v []float64) error {
	out := mat.NewVecDense(len(dst), dst)
	return f.Chol.SolveVecTo(out, mat.NewVecDense(len(v), v))
}

// SquaredNorm returns vᵀ·M·v.
func (f *Factorization) SquaredNorm(v []float64) float64 {
	vec := mat.NewVecDense(len(v), v)
	return mat.Inner(vec, &f.Metric, vec)
}
