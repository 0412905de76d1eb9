package tune

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hops "github.com/modsim/hops-sub002"
	"github.com/modsim/hops-sub002/proposal"
	"github.com/modsim/hops-sub002/rng"
)

// fakeChain accepts with probability 1/(1+step/best), so its acceptance rate
// is one half exactly at step size best.
type fakeChain struct {
	best    float64
	step    float64
	states  [][]float64
	cleared int
}

func (f *fakeChain) SetStepSize(v float64) error {
	f.step = v
	return nil
}

func (f *fakeChain) ClearHistory() {
	f.states = nil
	f.cleared++
}

func (f *fakeChain) Draw(s *rng.Stream, n, thinning int) (float64, error) {
	p := 1 / (1 + f.step/f.best)
	var accepted int
	x := 0.0
	for i := 0; i < n*thinning; i++ {
		if s.Float64() < p {
			accepted++
			x += f.step
		}
		if (i+1)%thinning == 0 {
			f.states = append(f.states, []float64{x})
		}
	}
	return float64(accepted) / float64(n*thinning), nil
}

func (f *fakeChain) States() [][]float64 { return f.states }

func fakeChains(n int, best float64) ([]Tunable, []*fakeChain) {
	chains := make([]Tunable, n)
	fakes := make([]*fakeChain, n)
	for i := range chains {
		fakes[i] = &fakeChain{best: best}
		chains[i] = fakes[i]
	}
	return chains, fakes
}

func acceptanceSettings(seed uint64) *Settings {
	return &Settings{
		Target:                    AcceptanceRate{Target: 0.5},
		IterationsToTestStepSize:  200,
		PosteriorUpdateIterations: 60,
		IterationsForConvergence:  5,
		StepSizeGridSize:          41,
		StepSizeLowerBound:        1e-3,
		StepSizeUpperBound:        10,
		SmoothingLength:           0.2,
		RandomSeed:                seed,
		Concurrent:                2,
	}
}

func TestTuneFindsBestStepSize(t *testing.T) {
	const best = 0.1
	chains, fakes := fakeChains(4, best)
	res, err := Tune(chains, rng.Streams(3, 4), acceptanceSettings(3))
	require.NoError(t, err)

	assert.InDelta(t, math.Log10(best), math.Log10(res.StepSize), 0.3)
	assert.LessOrEqual(t, res.Rounds, 60)
	assert.Len(t, res.Grid, 41)
	assert.Len(t, res.PosteriorMean, 41)
	assert.Len(t, res.PosteriorVariance, 41)
	assert.NotEmpty(t, res.Observations)
	assert.InDelta(t, -3, res.Grid[0], 1e-12)
	assert.InDelta(t, 1, res.Grid[40], 1e-12)

	var count int
	for _, o := range res.Observations {
		assert.Positive(t, o.Count)
		assert.GreaterOrEqual(t, o.Variance, 0.0)
		count += o.Count
	}
	assert.Equal(t, res.Rounds, count)

	for _, f := range fakes {
		assert.Equal(t, res.StepSize, f.step)
		assert.Nil(t, f.states)
		assert.Equal(t, count+1, f.cleared)
	}
}

func TestTuneIsDeterministic(t *testing.T) {
	run := func() *Result {
		chains, _ := fakeChains(3, 0.03)
		res, err := Tune(chains, rng.Streams(17, 3), acceptanceSettings(17))
		require.NoError(t, err)
		return res
	}
	a, b := run(), run()
	assert.Equal(t, a.StepSize, b.StepSize)
	assert.Equal(t, a.Rounds, b.Rounds)
	assert.Equal(t, a.Converged, b.Converged)
	assert.Equal(t, a.Observations, b.Observations)
	assert.Equal(t, a.PosteriorMean, b.PosteriorMean)
}

func TestTuneConcurrencyDoesNotChangeResult(t *testing.T) {
	settings := acceptanceSettings(5)
	chains, _ := fakeChains(4, 1)
	a, err := Tune(chains, rng.Streams(5, 4), settings)
	require.NoError(t, err)

	settings.Concurrent = 1
	chains, _ = fakeChains(4, 1)
	b, err := Tune(chains, rng.Streams(5, 4), settings)
	require.NoError(t, err)
	assert.Equal(t, a.Observations, b.Observations)
	assert.Equal(t, a.StepSize, b.StepSize)
}

func TestTuneSettingsErrors(t *testing.T) {
	chains, _ := fakeChains(2, 1)
	streams := rng.Streams(1, 2)
	for _, test := range []struct {
		name    string
		chains  []Tunable
		streams []*rng.Stream
		mutate  func(*Settings)
	}{
		{"mismatched streams", chains, streams[:1], nil},
		{"no chains", nil, nil, nil},
		{"no target", chains, streams, func(s *Settings) { s.Target = nil }},
		{"bad acceptance target", chains, streams, func(s *Settings) { s.Target = AcceptanceRate{Target: 1} }},
		{"grid too small", chains, streams, func(s *Settings) { s.StepSizeGridSize = 1 }},
		{"inverted bounds", chains, streams, func(s *Settings) { s.StepSizeLowerBound, s.StepSizeUpperBound = 1, 0.1 }},
		{"negative bound", chains, streams, func(s *Settings) { s.StepSizeLowerBound = -1 }},
		{"negative smoothing", chains, streams, func(s *Settings) { s.SmoothingLength = -1 }},
		{"negative iterations", chains, streams, func(s *Settings) { s.PosteriorUpdateIterations = -1 }},
	} {
		settings := acceptanceSettings(1)
		if test.mutate != nil {
			test.mutate(settings)
		}
		_, err := Tune(test.chains, test.streams, settings)
		assert.ErrorIs(t, err, hops.ErrInvalidSettings, "Case %s", test.name)
	}
	_, err := Tune(chains, streams, nil)
	assert.ErrorIs(t, err, hops.ErrInvalidSettings)
}

func TestAcceptanceRateScore(t *testing.T) {
	for _, test := range []struct {
		target AcceptanceRate
		rate   float64
		want   float64
	}{
		{AcceptanceRate{Target: 0.25}, 0.25, 1},
		{AcceptanceRate{Target: 0.25}, 0, 0},
		{AcceptanceRate{Target: 0.25}, 1, 0},
		{AcceptanceRate{Target: 0.25}, 0.625, 0.5},
		{AcceptanceRate{Target: 0.25}, 0.125, 0.5},
		{AcceptanceRate{Target: 0.25, Order: 2}, 0.125, 0.75},
	} {
		assert.InDelta(t, test.want, test.target.score(test.rate), 1e-14, "target %+v rate %v", test.target, test.rate)
	}
}

func TestESJDScore(t *testing.T) {
	c := &fakeChain{best: 1, step: 1}
	got, err := ESJD{}.Score(c, rng.New(2, 0), 1000)
	require.NoError(t, err)
	// Half the transitions jump by one.
	assert.InDelta(t, 0.5, got, 0.05)

	clock := time.Unix(0, 0)
	timed := ESJD{ConsiderTimeCost: true, now: func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}}
	c.ClearHistory()
	perSecond, err := timed.Score(c, rng.New(2, 0), 1000)
	require.NoError(t, err)
	assert.InDelta(t, got, perSecond, 1e-12)
	assert.Equal(t, "ExpectedSquaredJumpDistancePerSecond", timed.Name())

	_, err = ESJD{}.Score(&noStates{}, rng.New(1, 0), 10)
	assert.ErrorIs(t, err, hops.ErrInvalidSettings)
}

type noStates struct{ fakeChain }

func (*noStates) States() [][]float64 { return nil }

func TestTuneDikinChains(t *testing.T) {
	box, err := hops.Box([]float64{0, 0}, []float64{1, 1})
	require.NoError(t, err)
	chains := make([]Tunable, 3)
	hopsChains := make([]*hops.Chain, 3)
	for i := range chains {
		p, err := proposal.NewDikin(box, []float64{0.5, 0.5}, nil)
		require.NoError(t, err)
		c, err := hops.NewChain(p, &hops.Settings{RecordStates: true})
		require.NoError(t, err)
		chains[i], hopsChains[i] = c, c
	}
	res, err := Tune(chains, rng.Streams(9, 3), &Settings{
		Target:                    ESJD{},
		IterationsToTestStepSize:  50,
		PosteriorUpdateIterations: 20,
		StepSizeGridSize:          20,
		StepSizeLowerBound:        1e-3,
		StepSizeUpperBound:        10,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.StepSize, 1e-3*(1-1e-12))
	assert.LessOrEqual(t, res.StepSize, 10*(1+1e-12))
	for _, c := range hopsChains {
		assert.Equal(t, res.StepSize, c.StepSize())
		assert.Empty(t, c.States())
	}
}
