package hops

import (
	"math"

	"github.com/modsim/hops-sub002/rng"
)

// Drawer performs single Markov chain transitions.
type Drawer interface {
	// Draw performs one transition and reports whether it moved.
	Draw(s *rng.Stream) (accepted bool, err error)
	State() []float64
}

// MetropolisHastings filters candidates of a proposer with the
// Metropolis–Hastings rule. Proposers without an acceptance probability are
// accepted unconditionally.
type MetropolisHastings struct {
	proposer Proposer
	prober   AcceptanceProber

	proposed int
	accepted int
}

// NewMetropolisHastings wraps p. It must sit directly above any model
// coupling so that it sees the fully summed log acceptance probability.
func NewMetropolisHastings(p Proposer) *MetropolisHastings {
	m := &MetropolisHastings{proposer: p}
	m.prober, _ = p.(AcceptanceProber)
	return m
}

// Draw proposes a candidate and accepts it if log(u) < log α for
// u ~ Uniform(0, 1).
func (m *MetropolisHastings) Draw(s *rng.Stream) (bool, error) {
	if err := m.proposer.Propose(s); err != nil {
		return false, err
	}
	m.proposed++
	logAlpha := 0.0
	if m.prober != nil {
		v, err := m.prober.LogAcceptanceProbability()
		if err != nil {
			return false, err
		}
		logAlpha = v
	}
	if math.Log(s.UniformOpen()) >= logAlpha {
		return false, nil
	}
	if err := m.proposer.AcceptProposal(); err != nil {
		return false, err
	}
	m.accepted++
	return true, nil
}

// AcceptanceRate returns accepted/proposed since the last reset, or NaN if
// nothing has been proposed.
func (m *MetropolisHastings) AcceptanceRate() float64 {
	if m.proposed == 0 {
		return math.NaN()
	}
	return float64(m.accepted) / float64(m.proposed)
}

// ResetAcceptanceRate zeroes both counters. The chain state is untouched.
func (m *MetropolisHastings) ResetAcceptanceRate() {
	m.proposed = 0
	m.accepted = 0
}

func (m *MetropolisHastings) Counts() (proposed, accepted int) { return m.proposed, m.accepted }
func (m *MetropolisHastings) State() []float64                 { return m.proposer.State() }
func (m *MetropolisHastings) Unwrap() any                      { return m.proposer }
