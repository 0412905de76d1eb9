// Package rng provides seeded, stream-indexed random number sources. Every
// chain owns exactly one Stream, so parallel chains draw statistically
// independent and reproducible sequences no matter how they are scheduled.
package rng

import (
	"golang.org/x/exp/rand"
)

// Stream is a PCG random source identified by a (seed, id) pair. It embeds
// a *rand.Rand, so it can be handed to anything expecting a rand.Source.
type Stream struct {
	*rand.Rand
	seed uint64
	id   uint64
}

// New returns the stream with the given seed and stream index. Two streams
// with the same pair produce identical sequences.
func New(seed, id uint64) *Stream {
	src := &rand.PCGSource{}
	src.Seed(mix(seed, id))
	return &Stream{
		Rand: rand.New(src),
		seed: seed,
		id:   id,
	}
}

// Streams returns n streams sharing a seed with indices 0, ..., n-1.
func Streams(seed uint64, n int) []*Stream {
	s := make([]*Stream, n)
	for i := range s {
		s[i] = New(seed, uint64(i))
	}
	return s
}

// Key returns the seed and stream index the stream was created with.
func (s *Stream) Key() (seed, id uint64) {
	return s.seed, s.id
}

// UniformOpen returns a uniform draw from the open interval (0, 1).
func (s *Stream) UniformOpen() float64 {
	for {
		u := s.Float64()
		if u != 0 {
			return u
		}
	}
}

// mix combines seed and stream index with two rounds of splitmix64 so that
// neighbouring indices land far apart in the PCG state space.
func mix(seed, id uint64) uint64 {
	return splitmix(seed ^ splitmix(id+0x9e3779b97f4a7c15))
}

func splitmix(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
