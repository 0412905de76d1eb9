// Package analyze summarizes sampled chains and runs replicated chains
// concurrently.
package analyze

import (
	"math"
	"runtime"
	"sync"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	hops "github.com/modsim/hops-sub002"
	"github.com/modsim/hops-sub002/rng"
)

// Column returns coordinate j of every state.
func Column(states [][]float64, j int) []float64 {
	c := make([]float64, len(states))
	for i, s := range states {
		c[i] = s[j]
	}
	return c
}

// Mean returns the coordinate-wise sample mean of states.
func Mean(states [][]float64) []float64 {
	if len(states) == 0 {
		return nil
	}
	m := make([]float64, len(states[0]))
	for j := range m {
		m[j] = stat.Mean(Column(states, j), nil)
	}
	return m
}

// StdDev returns the coordinate-wise sample standard deviation of states.
func StdDev(states [][]float64) []float64 {
	if len(states) == 0 {
		return nil
	}
	s := make([]float64, len(states[0]))
	for j := range s {
		s[j] = stat.StdDev(Column(states, j), nil)
	}
	return s
}

// Covariance returns the sample covariance matrix of states.
func Covariance(states [][]float64) *mat.SymDense {
	n := len(states[0])
	x := mat.NewDense(len(states), n, nil)
	for i, s := range states {
		x.SetRow(i, s)
	}
	var c mat.SymDense
	stat.CovarianceMatrix(&c, x, nil)
	return &c
}

// ExpectedSquaredJumpDistance returns the mean squared Euclidean distance
// between consecutive states, or NaN with fewer than two states.
func ExpectedSquaredJumpDistance(states [][]float64) float64 {
	if len(states) < 2 {
		return math.NaN()
	}
	var sum float64
	for i := 1; i < len(states); i++ {
		d := floats.Distance(states[i], states[i-1], 2)
		sum += d * d
	}
	return sum / float64(len(states)-1)
}

// BatchMeansStandardError estimates the Monte Carlo standard error of the
// mean of a correlated series x from the spread of the means of batches
// contiguous batches. It returns NaN if x is shorter than batches.
func BatchMeansStandardError(x []float64, batches int) float64 {
	if batches < 2 {
		panic("analyze: fewer than two batches")
	}
	if len(x) < batches {
		return math.NaN()
	}
	bounds := Batches(len(x), batches)
	means := make([]float64, len(bounds))
	for b, r := range bounds {
		means[b] = stat.Mean(x[r[0]:r[1]], nil)
	}
	return stat.StdErr(stat.StdDev(means, nil), float64(batches))
}

// Summary describes one chain.
type Summary struct {
	Name           string
	Samples        int
	Mean           []float64
	StdDev         []float64
	StdErr         []float64 // batch means standard error of Mean
	ESJD           float64
	AcceptanceRate float64
}

const summaryBatches = 20

// Summarize computes a Summary of states.
func Summarize(name string, states [][]float64, acceptanceRate float64) Summary {
	s := Summary{
		Name:           name,
		Samples:        len(states),
		Mean:           Mean(states),
		StdDev:         StdDev(states),
		ESJD:           ExpectedSquaredJumpDistance(states),
		AcceptanceRate: acceptanceRate,
	}
	s.StdErr = make([]float64, len(s.Mean))
	for j := range s.StdErr {
		s.StdErr[j] = BatchMeansStandardError(Column(states, j), summaryBatches)
	}
	return s
}

// Settings describes a replicated sampling experiment.
type Settings struct {
	// NewChain builds the chain for replicate i. Each replicate must own its
	// chain.
	NewChain func(i int) (*hops.Chain, error)

	Seed     uint64
	Samples  int
	Thinning int // If 0, defaults to 1.

	// Concurrent is the number of replicates run at once. If 0, defaults
	// to runtime.GOMAXPROCS(0).
	Concurrent int
}

// Run is the outcome of one replicate.
type Run struct {
	States         [][]float64
	AcceptanceRate float64
}

// Replicate runs nRuns independent chains, replicate i drawing from stream
// (settings.Seed, i). The results do not depend on scheduling.
func Replicate(nRuns int, settings Settings) ([]Run, error) {
	if settings.Samples <= 0 {
		return nil, errors.Wrapf(hops.ErrInvalidSettings, "analyze: %d samples", settings.Samples)
	}
	thinning := settings.Thinning
	if thinning == 0 {
		thinning = 1
	}
	nWorkers := settings.Concurrent
	if nWorkers == 0 {
		nWorkers = runtime.GOMAXPROCS(0)
	}

	runs := make([]Run, nRuns)
	errs := make([]error, nRuns)
	id := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < nWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range id {
				runs[k], errs[k] = replicate(k, thinning, settings)
			}
		}()
	}
	for i := 0; i < nRuns; i++ {
		id <- i
	}
	close(id)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, errors.Wrapf(err, "replicate %d", i)
		}
	}
	return runs, nil
}

func replicate(k, thinning int, settings Settings) (Run, error) {
	c, err := settings.NewChain(k)
	if err != nil {
		return Run{}, err
	}
	rate, err := c.Draw(rng.New(settings.Seed, uint64(k)), settings.Samples, thinning)
	if err != nil {
		return Run{}, err
	}
	states := c.States()
	if states == nil {
		return Run{}, errors.Wrap(hops.ErrInvalidSettings, "analyze: chain does not record states")
	}
	return Run{States: states, AcceptanceRate: rate}, nil
}

// ExpectedError returns the mean absolute error of a set of estimates from
// truth and the standard error of that mean.
func ExpectedError(estimates []float64, truth float64) (expErr, eim float64) {
	e := make([]float64, len(estimates))
	for i, v := range estimates {
		e[i] = math.Abs(v - truth)
	}
	mean, std := stat.MeanStdDev(e, nil)
	return mean, stat.StdErr(std, float64(len(e)))
}
