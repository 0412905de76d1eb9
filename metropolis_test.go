package hops

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/modsim/hops-sub002/rng"
)

// stepper is a one dimensional proposer that proposes state+1 and reports
// a fixed log acceptance probability.
type stepper struct {
	state, proposal float64
	logAlpha        float64
	err             error
	stepSize        float64
}

func (s *stepper) Propose(*rng.Stream) error {
	s.proposal = s.state + 1
	return nil
}

func (s *stepper) AcceptProposal() error {
	s.state = s.proposal
	return nil
}

func (s *stepper) LogAcceptanceProbability() (float64, error) { return s.logAlpha, s.err }
func (s *stepper) State() []float64                           { return []float64{s.state} }
func (s *stepper) Proposal() []float64                        { return []float64{s.proposal} }
func (s *stepper) Dim() int                                   { return 1 }
func (s *stepper) StepSize() float64                          { return s.stepSize }
func (s *stepper) SetStepSize(v float64) error {
	s.stepSize = v
	return nil
}

func (s *stepper) SetState(x []float64) error {
	s.state = x[0]
	return nil
}

func TestMetropolisHastingsAlwaysAccepts(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := NewMockProposer(ctrl)
	p.EXPECT().Propose(gomock.Any()).Return(nil).Times(10)
	p.EXPECT().AcceptProposal().Return(nil).Times(10)

	// A proposer without acceptance probability is accepted unconditionally.
	mh := NewMetropolisHastings(p)
	assert.True(t, math.IsNaN(mh.AcceptanceRate()))
	s := rng.New(1, 0)
	for i := 0; i < 10; i++ {
		ok, err := mh.Draw(s)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 1.0, mh.AcceptanceRate())
	mh.ResetAcceptanceRate()
	assert.True(t, math.IsNaN(mh.AcceptanceRate()))
}

func TestMetropolisHastingsRejects(t *testing.T) {
	p := &stepper{logAlpha: math.Inf(-1)}
	mh := NewMetropolisHastings(p)
	s := rng.New(2, 0)
	for i := 0; i < 100; i++ {
		ok, err := mh.Draw(s)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, 0.0, mh.AcceptanceRate())
	assert.Equal(t, []float64{0}, mh.State())
	proposed, accepted := mh.Counts()
	assert.Equal(t, 100, proposed)
	assert.Equal(t, 0, accepted)
}

func TestMetropolisHastingsRate(t *testing.T) {
	p := &stepper{logAlpha: math.Log(0.3)}
	mh := NewMetropolisHastings(p)
	s := rng.New(3, 0)
	for i := 0; i < 20000; i++ {
		_, err := mh.Draw(s)
		require.NoError(t, err)
	}
	assert.InDelta(t, 0.3, mh.AcceptanceRate(), 0.02)
	_, accepted := mh.Counts()
	assert.Equal(t, float64(accepted), p.state)
}

func TestMetropolisHastingsPropagatesErrors(t *testing.T) {
	boom := &MetricFactorizationError{Metric: "dikin"}
	p := &stepper{err: boom}
	mh := NewMetropolisHastings(p)
	_, err := mh.Draw(rng.New(4, 0))
	assert.True(t, errors.Is(err, ErrMetricFactorization))
	assert.Equal(t, []float64{0}, p.State())
}
