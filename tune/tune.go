// Package tune finds proposal step sizes by Bayesian optimization. A
// Gaussian process models the score of a Target as a function of
// log10(step size) on a fixed grid. Thompson sampling from its posterior
// picks the next step size to test.
package tune

import (
	"math"
	"runtime"
	"sync"

	"github.com/cockroachdb/errors"

	hops "github.com/modsim/hops-sub002"
	"github.com/modsim/hops-sub002/gp"
	"github.com/modsim/hops-sub002/logger"
	"github.com/modsim/hops-sub002/rng"
)

const (
	defaultIterationsToTestStepSize  = 100
	defaultPosteriorUpdateIterations = 100
	defaultPureSamplingIterations    = 1
	defaultIterationsForConvergence  = 5
	defaultStepSizeGridSize          = 100
	defaultStepSizeLowerBound        = 1e-5
	defaultStepSizeUpperBound        = 1
)

// Tunable is a chain whose step size can be tuned. *hops.Chain implements
// it.
type Tunable interface {
	SetStepSize(float64) error
	ClearHistory()
	Draw(s *rng.Stream, n, thinning int) (float64, error)
	States() [][]float64
}

// Settings controls Tune. Zero-valued fields take their defaults.
type Settings struct {
	// Target is the objective to maximize. It is required.
	Target Target

	IterationsToTestStepSize int // Transitions per chain and evaluation. Default 100.

	// PosteriorUpdateIterations bounds the number of rounds. Each round
	// makes PureSamplingIterations evaluations and then updates the
	// posterior. Defaults 100 and 1.
	PosteriorUpdateIterations int
	PureSamplingIterations    int

	// IterationsForConvergence is the number of consecutive rounds the
	// maximizer of the posterior mean must stay put. Default 5.
	IterationsForConvergence int

	// The log10 grid has StepSizeGridSize points spanning the bounds.
	// Defaults 100, 1e-5 and 1.
	StepSizeGridSize   int
	StepSizeLowerBound float64
	StepSizeUpperBound float64

	// SmoothingLength is the radius, in log10 units, over which observation
	// errors are averaged before they enter the Gaussian process.
	SmoothingLength float64

	// RandomSeed seeds the Thompson sampling stream.
	RandomSeed uint64

	// Concurrent is the number of chains evaluated at once. If 0,
	// defaults to runtime.GOMAXPROCS(0).
	Concurrent int

	// Logger receives per-round progress at DEBUG and the result at INFO.
	// If nil, a logger at WARNING level is used.
	Logger logger.Logger
}

func (s *Settings) withDefaults() (Settings, error) {
	if s == nil {
		return Settings{}, errors.Wrap(hops.ErrInvalidSettings, "tune: nil settings")
	}
	out := *s
	if out.Target == nil {
		return out, errors.Wrap(hops.ErrInvalidSettings, "tune: no target")
	}
	if a, ok := out.Target.(AcceptanceRate); ok {
		if err := a.validate(); err != nil {
			return out, err
		}
	}
	setDefault(&out.IterationsToTestStepSize, defaultIterationsToTestStepSize)
	setDefault(&out.PosteriorUpdateIterations, defaultPosteriorUpdateIterations)
	setDefault(&out.PureSamplingIterations, defaultPureSamplingIterations)
	setDefault(&out.IterationsForConvergence, defaultIterationsForConvergence)
	setDefault(&out.StepSizeGridSize, defaultStepSizeGridSize)
	if out.StepSizeLowerBound == 0 {
		out.StepSizeLowerBound = defaultStepSizeLowerBound
	}
	if out.StepSizeUpperBound == 0 {
		out.StepSizeUpperBound = defaultStepSizeUpperBound
	}
	if out.Concurrent == 0 {
		out.Concurrent = runtime.GOMAXPROCS(0)
	}
	if out.Logger == nil {
		out.Logger = logger.NewLogger("WARNING", "Tuner")
	}

	switch {
	case out.IterationsToTestStepSize < 0, out.PosteriorUpdateIterations < 0,
		out.PureSamplingIterations < 0, out.IterationsForConvergence < 0, out.Concurrent < 0:
		return out, errors.Wrap(hops.ErrInvalidSettings, "tune: negative iteration count")
	case out.StepSizeGridSize < 2:
		return out, errors.Wrapf(hops.ErrInvalidSettings, "tune: grid size %d below 2", out.StepSizeGridSize)
	case !(out.StepSizeLowerBound > 0):
		return out, errors.Wrapf(hops.ErrInvalidSettings, "tune: non-positive lower bound %v", out.StepSizeLowerBound)
	case !(out.StepSizeLowerBound < out.StepSizeUpperBound):
		return out, errors.Wrapf(hops.ErrInvalidSettings, "tune: lower bound %v not below upper bound %v",
			out.StepSizeLowerBound, out.StepSizeUpperBound)
	case out.SmoothingLength < 0:
		return out, errors.Wrapf(hops.ErrInvalidSettings, "tune: negative smoothing length %v", out.SmoothingLength)
	}
	return out, nil
}

func setDefault(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

// Observation is the aggregate of every evaluation at one grid point.
type Observation struct {
	LogStepSize float64
	Mean        float64
	Variance    float64
	Count       int
}

// Result is the outcome of Tune.
type Result struct {
	// StepSize maximizes the posterior mean; MaximumValue is that maximum.
	StepSize     float64
	MaximumValue float64

	// Converged reports whether the maximizer was stable for
	// IterationsForConvergence rounds before the round budget ran out.
	Converged bool
	Rounds    int

	// Grid holds log10 step sizes; PosteriorMean and PosteriorVariance are
	// the final posterior on it.
	Grid              []float64
	PosteriorMean     []float64
	PosteriorVariance []float64
	Observations      []Observation
}

// Tune searches the step size maximizing settings.Target. chains[i] is
// driven exclusively by streams[i], and chains are evaluated concurrently.
// Tune leaves every chain at the returned step size with its history
// cleared. Failing to converge is reported through Result.Converged and is
// not an error.
func Tune(chains []Tunable, streams []*rng.Stream, settings *Settings) (*Result, error) {
	if len(chains) == 0 {
		return nil, errors.Wrap(hops.ErrInvalidSettings, "tune: no chains")
	}
	if len(chains) != len(streams) {
		return nil, errors.Wrapf(hops.ErrInvalidSettings, "tune: %d chains but %d random streams", len(chains), len(streams))
	}
	set, err := settings.withDefaults()
	if err != nil {
		return nil, err
	}
	t := newTuner(chains, streams, set)
	if err := t.run(); err != nil {
		return nil, err
	}
	return t.result()
}

type tuner struct {
	chains   []Tunable
	streams  []*rng.Stream
	settings Settings
	log      logger.Logger

	grid      []float64
	points    [][]float64
	surrogate *gp.GP
	sampler   *rng.Stream

	observed map[int]*Observation
	order    []int

	posterior *gp.Posterior
	rounds    int
	converged bool
}

func newTuner(chains []Tunable, streams []*rng.Stream, set Settings) *tuner {
	n := set.StepSizeGridSize
	lo, hi := math.Log10(set.StepSizeLowerBound), math.Log10(set.StepSizeUpperBound)
	grid := make([]float64, n)
	points := make([][]float64, n)
	for i := range grid {
		grid[i] = lo + (hi-lo)*float64(i)/float64(n-1)
		points[i] = []float64{grid[i]}
	}
	return &tuner{
		chains:    chains,
		streams:   streams,
		settings:  set,
		log:       set.Logger,
		grid:      grid,
		points:    points,
		surrogate: gp.New(gp.SquaredExponential{Sigma: 1, Length: 1}, 0),
		sampler:   rng.New(set.RandomSeed, uint64(len(chains))),
		observed:  make(map[int]*Observation),
	}
}

func (t *tuner) run() error {
	var err error
	t.posterior, err = t.surrogate.Posterior(t.points)
	if err != nil {
		return err
	}
	var same, last int
	for t.rounds = 0; t.rounds < t.settings.PosteriorUpdateIterations; t.rounds++ {
		if same >= t.settings.IterationsForConvergence {
			t.converged = true
			break
		}
		for j := 0; j < t.settings.PureSamplingIterations; j++ {
			_, idx, err := t.posterior.Sample(t.sampler)
			if err != nil {
				return err
			}
			mean, variance, err := t.evaluate(t.grid[idx])
			if err != nil {
				return errors.Wrapf(err, "tune: evaluating step size %g", math.Pow(10, t.grid[idx]))
			}
			t.record(idx, mean, variance)
			t.log.Debugf("round %d: step size %.4g scored %.4g ± %.2g", t.rounds, math.Pow(10, t.grid[idx]), mean, math.Sqrt(variance))
		}
		if err := t.updatePosterior(); err != nil {
			return err
		}
		idx, max := t.posterior.Argmax()
		if idx != last || max == 0 {
			same = 0
		} else {
			same++
		}
		last = idx
		t.log.Debugf("round %d: best step size %.4g with posterior mean %.4g", t.rounds, math.Pow(10, t.grid[idx]), max)
	}
	if same >= t.settings.IterationsForConvergence {
		t.converged = true
	}
	return nil
}

// record folds one evaluation into the running mean and variance of its
// grid point.
func (t *tuner) record(idx int, mean, variance float64) {
	o, ok := t.observed[idx]
	if !ok {
		t.observed[idx] = &Observation{LogStepSize: t.grid[idx], Mean: mean, Variance: variance, Count: 1}
		t.order = append(t.order, idx)
		return
	}
	m := float64(o.Count)
	old := o.Mean
	o.Mean = (m*o.Mean + mean) / (m + 1)
	o.Variance = (m*(o.Variance+old*old)+variance+mean*mean)/(m+1) - o.Mean*o.Mean
	if o.Variance < 0 {
		o.Variance = 0
	}
	o.Count++
}

// updatePosterior smooths the observation errors over the uniform ball of
// radius SmoothingLength and refits the surrogate.
func (t *tuner) updatePosterior() error {
	ball := gp.UniformBall{Radius: t.settings.SmoothingLength}
	for _, i := range t.order {
		var sum, weight float64
		for _, j := range t.order {
			w := ball.Covariance(t.points[i], t.points[j])
			sum += w * t.observed[j].Variance
			weight += w
		}
		t.surrogate.Observe(t.points[i], t.observed[i].Mean, sum/weight)
	}
	var err error
	t.posterior, err = t.surrogate.Posterior(t.points)
	return err
}

// evaluate sets every chain to the step size 10^logStepSize and scores it
// concurrently. It returns the mean and variance of the scores across
// chains.
func (t *tuner) evaluate(logStepSize float64) (mean, variance float64, err error) {
	step := math.Pow(10, logStepSize)
	scores := make([]float64, len(t.chains))
	errs := make([]error, len(t.chains))

	work := make(chan int)
	var wg sync.WaitGroup
	workers := t.settings.Concurrent
	if workers > len(t.chains) {
		workers = len(t.chains)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				scores[i], errs[i] = t.score(i, step)
			}
		}()
	}
	for i := range t.chains {
		work <- i
	}
	close(work)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return math.NaN(), math.NaN(), errors.Wrapf(err, "chain %d", i)
		}
	}
	var sum, sumSq float64
	for _, s := range scores {
		sum += s
		sumSq += s * s
	}
	n := float64(len(scores))
	mean = sum / n
	variance = sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, variance, nil
}

func (t *tuner) score(i int, step float64) (float64, error) {
	c := t.chains[i]
	if err := c.SetStepSize(step); err != nil {
		return math.NaN(), err
	}
	c.ClearHistory()
	return t.settings.Target.Score(c, t.streams[i], t.settings.IterationsToTestStepSize)
}

func (t *tuner) result() (*Result, error) {
	idx, max := t.posterior.Argmax()
	step := math.Pow(10, t.grid[idx])
	for i, c := range t.chains {
		if err := c.SetStepSize(step); err != nil {
			return nil, errors.Wrapf(err, "tune: setting tuned step size on chain %d", i)
		}
		c.ClearHistory()
	}
	res := &Result{
		StepSize:          step,
		MaximumValue:      max,
		Converged:         t.converged,
		Rounds:            t.rounds,
		Grid:              append([]float64(nil), t.grid...),
		PosteriorMean:     append([]float64(nil), t.posterior.Mean...),
		PosteriorVariance: make([]float64, len(t.grid)),
		Observations:      make([]Observation, 0, len(t.order)),
	}
	for i := range res.PosteriorVariance {
		res.PosteriorVariance[i] = t.posterior.Variance(i)
	}
	for _, i := range t.order {
		res.Observations = append(res.Observations, *t.observed[i])
	}
	t.log.Infof("%s: step size %.4g, maximum %.4g, converged %v after %d rounds",
		t.settings.Target.Name(), step, max, t.converged, t.rounds)
	return res, nil
}

var _ Tunable = (*hops.Chain)(nil)
