package hops

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
)

var (
	// ErrDegenerateChord is matched by every *DegenerateChordError.
	ErrDegenerateChord = errors.New("hops: degenerate chord")
	// ErrMetricFactorization is matched by every *MetricFactorizationError.
	ErrMetricFactorization = errors.New("hops: metric is not positive definite")
	// ErrInfeasibleState is matched by every *InfeasibleStateError.
	ErrInfeasibleState = errors.New("hops: state violates A·x < b")

	ErrInvalidSettings          = errors.New("hops: invalid settings")
	ErrDimensionMismatch        = errors.New("hops: dimension mismatch")
	ErrLikelihoodAlreadyPresent = errors.New("hops: proposal already carries a likelihood")
)

// DegenerateChordError reports a line through the current state that is not
// bounded by the polytope in at least one direction.
type DegenerateChordError struct {
	Direction []float64
	Backward  float64
	Forward   float64
}

func (e *DegenerateChordError) Error() string {
	return fmt.Sprintf("hops: degenerate chord: bounds [%v, %v] along direction of length %d",
		e.Backward, e.Forward, len(e.Direction))
}

func (e *DegenerateChordError) Is(target error) bool { return target == ErrDegenerateChord }

// MetricFactorizationError reports a local metric that could not be Cholesky
// factorized. Metric names which metric failed, e.g. "dikin" or "fisher".
type MetricFactorizationError struct {
	Metric string
	Point  []float64
}

func (e *MetricFactorizationError) Error() string {
	return fmt.Sprintf("hops: %s metric is not positive definite at point of dimension %d", e.Metric, len(e.Point))
}

func (e *MetricFactorizationError) Is(target error) bool { return target == ErrMetricFactorization }

// InfeasibleStateError reports a state that touches or crosses a face of the
// polytope. It is never clamped away.
type InfeasibleStateError struct {
	Point    []float64
	MinSlack float64
}

func (e *InfeasibleStateError) Error() string {
	return fmt.Sprintf("hops: state infeasible, minimum slack %v", e.MinSlack)
}

func (e *InfeasibleStateError) Is(target error) bool { return target == ErrInfeasibleState }

// NewInfeasibleStateError builds an *InfeasibleStateError from the slack at x.
func NewInfeasibleStateError(x, slack []float64) *InfeasibleStateError {
	min := math.Inf(1)
	for _, v := range slack {
		min = math.Min(min, v)
	}
	return &InfeasibleStateError{Point: append([]float64(nil), x...), MinSlack: min}
}
