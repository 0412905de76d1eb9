package hops

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type reportingStepper struct{ stepper }

func (r *reportingStepper) StateNegativeLogLikelihood() float64 { return 0 }

func TestModelLayerAddsLikelihood(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := NewMockModel(ctrl)
	m.EXPECT().NegativeLogLikelihood([]float64{0.0}).Return(2.0)
	m.EXPECT().NegativeLogLikelihood([]float64{1.0}).Return(5.0)

	inner := &stepper{logAlpha: 0.25}
	l, err := NewModelLayer(inner, m, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 2.0, l.StateNegativeLogLikelihood())

	require.NoError(t, l.Propose(nil))
	got, err := l.LogAcceptanceProbability()
	require.NoError(t, err)
	assert.InDelta(t, 0.25+0.5*(2.0-5.0), got, 1e-15)

	require.NoError(t, l.AcceptProposal())
	assert.Equal(t, 5.0, l.StateNegativeLogLikelihood())
	assert.Equal(t, []float64{1}, l.State())
}

func TestModelLayerSkipsLikelihoodOnRejection(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := NewMockModel(ctrl)
	// Only the start state is evaluated.
	m.EXPECT().NegativeLogLikelihood(gomock.Any()).Return(1.0).Times(1)

	l, err := NewModelLayer(&stepper{logAlpha: math.Inf(-1)}, m, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, l.Coldness())
	require.NoError(t, l.Propose(nil))
	got, err := l.LogAcceptanceProbability()
	require.NoError(t, err)
	assert.True(t, math.IsInf(got, -1))
}

func TestModelLayerRefusesSecondLikelihood(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := NewMockModel(ctrl)
	_, err := NewModelLayer(&reportingStepper{}, m, 1)
	assert.ErrorIs(t, err, ErrLikelihoodAlreadyPresent)

	_, err = NewModelLayer(&stepper{}, m, 2)
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestAsFindsCapabilities(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := NewMockModel(ctrl)
	m.EXPECT().NegativeLogLikelihood(gomock.Any()).Return(0.0).AnyTimes()

	inner := &stepper{stepSize: 0.1}
	chain, err := NewChain(inner, &Settings{Model: m, RecordStates: true, RecordLikelihoods: true})
	require.NoError(t, err)

	s, ok := As[StepSizer](chain)
	require.True(t, ok)
	assert.Equal(t, 0.1, s.StepSize())

	_, ok = As[LikelihoodReporter](chain.Unwrap())
	assert.True(t, ok)
	_, ok = As[*TransformationLayer](chain.Unwrap())
	assert.False(t, ok)
}
