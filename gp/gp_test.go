package gp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/modsim/hops-sub002/rng"
)

func grid(lo, hi float64, n int) [][]float64 {
	g := make([][]float64, n)
	for i := range g {
		g[i] = []float64{lo + (hi-lo)*float64(i)/float64(n-1)}
	}
	return g
}

func TestKernels(t *testing.T) {
	se := SquaredExponential{Sigma: 2, Length: 0.5}
	assert.Equal(t, 4.0, se.Covariance([]float64{1}, []float64{1}))
	assert.InDelta(t, 4*math.Exp(-2), se.Covariance([]float64{0, 0}, []float64{0, 1}), 1e-14)

	ball := UniformBall{Radius: 1}
	assert.Equal(t, 1.0, ball.Covariance([]float64{0}, []float64{1}))
	assert.Equal(t, 0.0, ball.Covariance([]float64{0}, []float64{1.01}))
	assert.Equal(t, 1.0, UniformBall{}.Covariance([]float64{3}, []float64{3}))

	c := CovarianceMatrix(se, [][]float64{{0}, {1}}, [][]float64{{0}, {1}, {2}})
	r, k := c.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, k)
	assert.Equal(t, c.At(1, 2), c.At(0, 1))
}

func TestPriorPosterior(t *testing.T) {
	g := New(SquaredExponential{Sigma: 1, Length: 1}, 0.5)
	post, err := g.Posterior(grid(-1, 1, 5))
	require.NoError(t, err)
	for i, m := range post.Mean {
		assert.Equal(t, 0.5, m)
		assert.Equal(t, 1.0, post.Variance(i))
	}
	_, err = g.Posterior(nil)
	assert.Error(t, err)
}

func TestPosteriorInterpolates(t *testing.T) {
	g := New(SquaredExponential{Sigma: 1, Length: 1}, 0)
	gr := grid(-2, 2, 21)
	f := func(x float64) float64 { return math.Sin(x) }
	for _, i := range []int{0, 4, 8, 12, 16, 20} {
		g.Observe(gr[i], f(gr[i][0]), 1e-8)
	}
	require.Equal(t, 6, g.Len())

	post, err := g.Posterior(gr)
	require.NoError(t, err)
	for _, i := range []int{0, 4, 8, 12, 16, 20} {
		assert.InDelta(t, f(gr[i][0]), post.Mean[i], 1e-4, "observed point %d", i)
		assert.Less(t, post.Variance(i), 1e-4)
	}
	for i, x := range gr {
		assert.InDelta(t, f(x[0]), post.Mean[i], 0.05, "grid point %d", i)
		assert.GreaterOrEqual(t, post.Variance(i), -1e-9)
	}
	// sin peaks at π/2, between grid points 17 and 18.
	idx, _ := post.Argmax()
	assert.GreaterOrEqual(t, idx, 17)
	assert.LessOrEqual(t, idx, 18)
}

func TestObserveReplaces(t *testing.T) {
	g := New(SquaredExponential{Sigma: 1, Length: 1}, 0)
	g.Observe([]float64{0}, 1, 0.1)
	g.Observe([]float64{1}, 2, 0.1)
	g.Observe([]float64{0}, 3, 0.2)
	x, y, noise := g.Observations()
	assert.Equal(t, [][]float64{{0}, {1}}, x)
	assert.Equal(t, []float64{3, 2}, y)
	assert.Equal(t, []float64{0.2, 0.1}, noise)

	x[0][0] = 7
	x2, _, _ := g.Observations()
	assert.Equal(t, 0.0, x2[0][0])
}

func TestJitterRecoversSingularCovariance(t *testing.T) {
	// Two noiseless observations this close give a numerically singular
	// covariance.
	g := New(SquaredExponential{Sigma: 1, Length: 1}, 0)
	g.Observe([]float64{0}, 1, 0)
	g.Observe([]float64{1e-12}, 1, 0)
	post, err := g.Posterior(grid(-1, 1, 3))
	require.NoError(t, err)
	assert.InDelta(t, 1, post.Mean[1], 1e-3)
}

func TestSampleMatchesPosterior(t *testing.T) {
	g := New(SquaredExponential{Sigma: 1, Length: 0.5}, 0)
	gr := grid(0, 1, 4)
	g.Observe(gr[0], -1, 0.01)
	g.Observe(gr[3], 1, 0.01)
	post, err := g.Posterior(gr)
	require.NoError(t, err)

	s := rng.New(11, 0)
	const n = 20000
	col := make([]float64, n)
	var counts [4]int
	samples := make([][]float64, n)
	for i := range samples {
		draw, idx, err := post.Sample(s)
		require.NoError(t, err)
		samples[i] = draw
		counts[idx]++
	}
	for j := range gr {
		for i := range samples {
			col[i] = samples[i][j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		sd := math.Sqrt(post.Variance(j))
		assert.InDelta(t, post.Mean[j], mean, 5*sd/math.Sqrt(n)+1e-12, "grid point %d", j)
		assert.InDelta(t, sd, std, 0.05*sd+1e-6, "grid point %d", j)
	}
	assert.Greater(t, counts[3], counts[0])
}

func TestSampleIsReproducible(t *testing.T) {
	g := New(SquaredExponential{Sigma: 1, Length: 1}, 0)
	g.Observe([]float64{0.3}, 0.2, 0.05)
	post, err := g.Posterior(grid(0, 1, 10))
	require.NoError(t, err)
	a, ia, err := post.Sample(rng.New(3, 1))
	require.NoError(t, err)
	b, ib, err := post.Sample(rng.New(3, 1))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, ia, ib)
}
