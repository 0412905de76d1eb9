package proposal

import (
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	hops "github.com/modsim/hops-sub002"
	"github.com/modsim/hops-sub002/metric"
	"github.com/modsim/hops-sub002/rng"
)

const (
	// DefaultAdaptiveWarmUp is the number of states observed before the
	// empirical covariance replaces the reference covariance.
	DefaultAdaptiveWarmUp = 100
	// DefaultAdaptiveEpsilon weighs the reference covariance added to the
	// empirical one.
	DefaultAdaptiveEpsilon = 1e-3
)

// AdaptiveMetropolisSettings configures AdaptiveMetropolis. Zero fields take
// their defaults.
type AdaptiveMetropolisSettings struct {
	// StepSize s scales the proposal covariance by s². If 0, defaults to
	// 2.38/√d.
	StepSize float64
	// Epsilon is the weight of the reference covariance in the adapted
	// covariance, divided by the dimension.
	Epsilon float64
	WarmUp  int
	// Reference is the covariance used during warm-up. If nil, the inverse
	// Dikin ellipsoid at the start point is used.
	Reference            mat.Symmetric
	SlackRefreshInterval int
}

// AdaptiveMetropolis is the adaptive Metropolis walk of Haario et al. The
// proposal is N(x, s²·C), where C is a reference covariance R during
// warm-up and afterwards the empirical covariance of all states seen so
// far plus (ε/d)·R.
type AdaptiveMetropolis struct {
	randomWalk
	epsilon   float64
	warmUp    int
	reference *mat.SymDense

	seen      int
	mean      []float64
	comoment  *mat.SymDense
	cov       mat.SymDense
	chol      mat.Cholesky
	lower     mat.TriDense
	z         []float64
	deviation []float64
}

// NewAdaptiveMetropolis starts an adaptive Metropolis walk at x0 inside p.
// A nil settings uses the defaults.
func NewAdaptiveMetropolis(p *hops.Polytope, x0 []float64, settings *AdaptiveMetropolisSettings) (*AdaptiveMetropolis, error) {
	if settings == nil {
		settings = &AdaptiveMetropolisSettings{}
	}
	_, n := p.Dims()
	step := settings.StepSize
	if step == 0 {
		step = 2.38 / math.Sqrt(float64(n))
	}
	r, err := newRandomWalk("adaptive Metropolis", p, x0, &RandomWalkSettings{
		StepSize:             step,
		SlackRefreshInterval: settings.SlackRefreshInterval,
	})
	if err != nil {
		return nil, err
	}
	a := &AdaptiveMetropolis{
		randomWalk: r,
		epsilon:    settings.Epsilon,
		warmUp:     settings.WarmUp,
		mean:       make([]float64, n),
		comoment:   mat.NewSymDense(n, nil),
		z:          make([]float64, n),
		deviation:  make([]float64, n),
	}
	if a.epsilon == 0 {
		a.epsilon = DefaultAdaptiveEpsilon
	}
	if a.warmUp == 0 {
		a.warmUp = DefaultAdaptiveWarmUp
	}
	if a.epsilon < 0 || a.warmUp < 0 {
		return nil, errors.Wrapf(hops.ErrInvalidSettings, "adaptive Metropolis epsilon %v and warm-up %d", a.epsilon, a.warmUp)
	}
	a.epsilon /= float64(n)

	if settings.Reference != nil {
		if settings.Reference.SymmetricDim() != n {
			return nil, errors.Wrapf(hops.ErrDimensionMismatch, "reference covariance of size %d in %d dimensions", settings.Reference.SymmetricDim(), n)
		}
		a.reference = mat.NewSymDense(n, nil)
		a.reference.CopySym(settings.Reference)
	} else {
		h, err := metric.NewDikin(p).Compute(nil, x0)
		if err != nil {
			return nil, err
		}
		var chol mat.Cholesky
		if !chol.Factorize(h) {
			return nil, &hops.MetricFactorizationError{Metric: "dikin", Point: append([]float64(nil), x0...)}
		}
		a.reference = mat.NewSymDense(n, nil)
		if err := chol.InverseTo(a.reference); err != nil {
			return nil, errors.Wrap(err, "inverting Dikin ellipsoid")
		}
	}
	if !a.chol.Factorize(a.reference) {
		return nil, &hops.MetricFactorizationError{Metric: "reference covariance", Point: append([]float64(nil), x0...)}
	}
	a.chol.LTo(&a.lower)
	return a, nil
}

// observe adds x to the running mean and covariance.
func (a *AdaptiveMetropolis) observe(x []float64) {
	a.seen++
	floats.SubTo(a.deviation, x, a.mean)
	floats.AddScaled(a.mean, 1/float64(a.seen), a.deviation)
	a.comoment.SymRankOne(a.comoment, float64(a.seen-1)/float64(a.seen), mat.NewVecDense(len(a.deviation), a.deviation))
}

// adapt refactorizes the proposal covariance after warm-up. If the adapted
// covariance is not positive definite the previous factor is kept.
func (a *AdaptiveMetropolis) adapt() {
	if a.seen <= a.warmUp {
		return
	}
	a.cov.ScaleSym(1/float64(a.seen-1), a.comoment)
	var reg mat.SymDense
	reg.ScaleSym(a.epsilon, a.reference)
	a.cov.AddSym(&a.cov, &reg)
	var chol mat.Cholesky
	if !chol.Factorize(&a.cov) {
		log.Warningf("adapted covariance not positive definite after %d states, keeping previous", a.seen)
		return
	}
	a.chol = chol
	a.chol.LTo(&a.lower)
}

// Propose records the current state in the covariance estimate and draws
// y = x + s·L·z with C = L·Lᵀ.
func (a *AdaptiveMetropolis) Propose(s *rng.Stream) error {
	a.observe(a.state)
	a.adapt()
	normal(a.z, s)
	out := mat.NewVecDense(len(a.delta), a.delta)
	out.MulVec(&a.lower, mat.NewVecDense(len(a.z), a.z))
	floats.Scale(a.stepSize, a.delta)
	a.move()
	return nil
}

// Samples returns the number of states seen by the covariance estimate.
func (a *AdaptiveMetropolis) Samples() int { return a.seen }

// Covariance returns the covariance C currently in use, without the s²
// factor.
func (a *AdaptiveMetropolis) Covariance() *mat.SymDense {
	var c mat.SymDense
	c.SymOuterK(1, &a.lower)
	return &c
}
