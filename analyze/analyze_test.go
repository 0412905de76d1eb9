package analyze

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hops "github.com/modsim/hops-sub002"
	"github.com/modsim/hops-sub002/proposal"
	"github.com/modsim/hops-sub002/rng"
)

func TestStatistics(t *testing.T) {
	states := [][]float64{{0, 1}, {2, 1}, {4, 4}}
	assert.Equal(t, []float64{2, 2}, Mean(states))
	sd := StdDev(states)
	assert.InDelta(t, 2, sd[0], 1e-14)
	assert.InDelta(t, math.Sqrt(3), sd[1], 1e-14)

	cov := Covariance(states)
	assert.InDelta(t, 4, cov.At(0, 0), 1e-14)
	assert.InDelta(t, 3, cov.At(0, 1), 1e-14)
	assert.InDelta(t, 3, cov.At(1, 1), 1e-14)

	// Jumps of squared length 4 and 13.
	assert.InDelta(t, 8.5, ExpectedSquaredJumpDistance(states), 1e-14)
	assert.True(t, math.IsNaN(ExpectedSquaredJumpDistance(states[:1])))
	assert.Nil(t, Mean(nil))
}

func TestBatchMeansStandardError(t *testing.T) {
	s := rng.New(1, 0)
	x := make([]float64, 100000)
	for i := range x {
		x[i] = s.NormFloat64()
	}
	assert.InDelta(t, 1/math.Sqrt(float64(len(x))), BatchMeansStandardError(x, 50), 0.0012)

	// A strongly correlated AR(1) series has a much larger error.
	y := make([]float64, len(x))
	for i := 1; i < len(y); i++ {
		y[i] = 0.95*y[i-1] + x[i]
	}
	assert.Greater(t, BatchMeansStandardError(y, 50), 5*BatchMeansStandardError(x, 50))

	assert.True(t, math.IsNaN(BatchMeansStandardError(x[:3], 5)))
	assert.Panics(t, func() { BatchMeansStandardError(x, 1) })
}

func TestExpectedError(t *testing.T) {
	e, eim := ExpectedError([]float64{1, 3, 1, 3}, 2)
	assert.Equal(t, 1.0, e)
	assert.Equal(t, 0.0, eim)
}

func boxChain(int) (*hops.Chain, error) {
	box, err := hops.Box([]float64{0, 0}, []float64{1, 1})
	if err != nil {
		return nil, err
	}
	p, err := proposal.NewCoordinateHitAndRun(box, []float64{0.5, 0.5}, nil)
	if err != nil {
		return nil, err
	}
	return hops.NewChain(p, &hops.Settings{RecordStates: true})
}

func TestReplicateIsReproducible(t *testing.T) {
	settings := Settings{NewChain: boxChain, Seed: 42, Samples: 200, Concurrent: 3}
	a, err := Replicate(6, settings)
	require.NoError(t, err)
	settings.Concurrent = 1
	b, err := Replicate(6, settings)
	require.NoError(t, err)
	require.Len(t, a, 6)
	for i := range a {
		assert.Equal(t, a[i].States, b[i].States, "replicate %d", i)
		assert.Len(t, a[i].States, 200)
		assert.Equal(t, 1.0, a[i].AcceptanceRate)
	}
	assert.NotEqual(t, a[0].States, a[1].States)

	means := make([]float64, len(a))
	for i, r := range a {
		means[i] = Mean(r.States)[0]
	}
	e, _ := ExpectedError(means, 0.5)
	assert.Less(t, e, 0.1)
}

func TestReplicateErrors(t *testing.T) {
	_, err := Replicate(2, Settings{NewChain: boxChain})
	assert.ErrorIs(t, err, hops.ErrInvalidSettings)

	bare := func(int) (*hops.Chain, error) {
		box, _ := hops.Box([]float64{0}, []float64{1})
		p, _ := proposal.NewHitAndRun(box, []float64{0.5}, nil)
		return hops.NewChain(p, nil)
	}
	_, err = Replicate(2, Settings{NewChain: bare, Samples: 10})
	assert.ErrorIs(t, err, hops.ErrInvalidSettings)
}

func TestTable(t *testing.T) {
	states := make([][]float64, 40)
	for i := range states {
		states[i] = []float64{float64(i), -float64(i)}
	}
	var buf bytes.Buffer
	Table(&buf, Summarize("chr", states, 0.25))
	out := buf.String()
	assert.Contains(t, out, "chr")
	assert.Contains(t, out, "19.5")
	assert.Contains(t, out, "-19.5")
	assert.Contains(t, out, "0.25")
}

func TestBatches(t *testing.T) {
	for _, test := range []struct {
		name string
		n, k int
		want [][2]int
	}{
		{"even", 6, 3, [][2]int{{0, 2}, {2, 4}, {4, 6}}},
		{"remainder", 10, 3, [][2]int{{0, 4}, {4, 7}, {7, 10}}},
		{"more batches than data", 2, 5, [][2]int{{0, 1}, {1, 2}}},
		{"empty", 0, 3, [][2]int{}},
	} {
		assert.Equal(t, test.want, Batches(test.n, test.k), "Case %s", test.name)
	}
	assert.Panics(t, func() { Batches(3, 0) })
	assert.Panics(t, func() { Batches(-1, 2) })
}
