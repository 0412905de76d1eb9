package distribution

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/modsim/hops-sub002/rng"
)

func TestStepsStayOnChord(t *testing.T) {
	gauss, err := NewGaussian(0.5)
	require.NoError(t, err)
	for _, test := range []struct {
		Name         string
		Step         Step
		Lower, Upper float64
	}{
		{Name: "UniformSymmetric", Step: Uniform{}, Lower: -1, Upper: 1},
		{Name: "UniformSkewed", Step: Uniform{}, Lower: -1e-3, Upper: 10},
		{Name: "GaussianWide", Step: gauss, Lower: -10, Upper: 10},
		{Name: "GaussianNarrow", Step: gauss, Lower: -1e-14, Upper: 1e-14},
		{Name: "GaussianOneSided", Step: gauss, Lower: -1e-6, Upper: 3},
	} {
		s := rng.New(1, 0)
		for i := 0; i < 5000; i++ {
			v, err := test.Step.Draw(s, test.Lower, test.Upper)
			require.NoError(t, err, "Case %s", test.Name)
			if v <= test.Lower || v >= test.Upper {
				t.Fatalf("Case %s: draw %v outside (%v, %v)", test.Name, v, test.Lower, test.Upper)
			}
		}
	}
}

func TestUniformMoments(t *testing.T) {
	s := rng.New(2, 0)
	x := make([]float64, 20000)
	for i := range x {
		x[i], _ = Uniform{}.Draw(s, -1, 3)
	}
	assert.InDelta(t, 1, stat.Mean(x, nil), 0.05)
	assert.InDelta(t, 4/math.Sqrt(12), stat.StdDev(x, nil), 0.05)
}

func TestGaussianMoments(t *testing.T) {
	g, err := NewGaussian(2)
	require.NoError(t, err)
	s := rng.New(3, 0)
	x := make([]float64, 20000)
	for i := range x {
		x[i], err = g.Draw(s, -100, 100)
		require.NoError(t, err)
	}
	assert.InDelta(t, 0, stat.Mean(x, nil), 0.1)
	assert.InDelta(t, 2, stat.StdDev(x, nil), 0.1)
}

func TestLogCorrection(t *testing.T) {
	assert.Equal(t, 0.0, Uniform{}.LogCorrection(0.3, -1, 1))

	g, err := NewGaussian(1)
	require.NoError(t, err)
	assert.InDelta(t, 0, g.LogCorrection(0, -1, 1), 1e-14)

	n := distuv.UnitNormal
	step := 0.4
	want := math.Log(n.CDF(1)-n.CDF(-1)) - math.Log(n.CDF(1-step)-n.CDF(-1-step))
	got := g.LogCorrection(step, -1, 1)
	assert.InDelta(t, want, got, 1e-12)
	assert.Greater(t, got, 0.0)
	// Moving back must undo the correction.
	assert.InDelta(t, -got, g.LogCorrection(-step, -1-step, 1-step), 1e-12)
}

func TestInvalidChords(t *testing.T) {
	g, err := NewGaussian(1)
	require.NoError(t, err)
	s := rng.New(4, 0)
	for _, step := range []Step{Uniform{}, g} {
		_, err := step.Draw(s, 0.5, 1)
		assert.True(t, errors.Is(err, ErrEmptyChord))
	}
	_, err = Uniform{}.Draw(s, math.Inf(-1), 1)
	assert.True(t, errors.Is(err, ErrEmptyChord))

	_, err = NewGaussian(0)
	assert.Error(t, err)
	assert.Error(t, g.SetScale(-1))
}
