// Package random provides independent, reproducible random streams.
//
// Every simulated entity owns one Stream seeded from its stable identifier,
// so results do not depend on which worker processes the entity or in what
// order. A Stream is not safe for concurrent use and must never be shared
// between entities.
package random

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mathext/prng"
)

// Stream is a Mersenne-Twister backed uniform generator.
type Stream struct {
	rng   *rand.Rand
	seed  uint64
	draws int64
}

// New returns a stream seeded with seed.
func New(seed uint64) *Stream {
	src := prng.NewMT19937()
	src.Seed(seed)
	return &Stream{
		rng:  rand.New(src),
		seed: seed,
	}
}

// SeedFor derives the seed of the entity at index: base + index*stride.
func SeedFor(base int64, index int, stride int64) uint64 {
	return uint64(base + int64(index)*stride)
}

// Float64 returns a uniform draw in [0, 1).
func (s *Stream) Float64() float64 {
	s.draws++
	return s.rng.Float64()
}

// Seed returns the seed the stream was created with.
func (s *Stream) Seed() uint64 {
	return s.seed
}

// Draws reports how many values have been consumed.
func (s *Stream) Draws() int64 {
	return s.draws
}
