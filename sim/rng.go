package sim

import (
	"hash/fnv"
	"math/rand"
)

// Named random streams used by the synthetic arrival feed.
const (
	StreamArrivals = "arrivals"
	StreamService  = "service"
)

// RandomStreams hands out one independently seeded *rand.Rand per named
// stream, all derived from a single seed. Draws from one stream never shift
// another, so changing the service rate leaves the arrival sequence intact.
//
// Not safe for concurrent use.
type RandomStreams struct {
	seed    int64
	streams map[string]*rand.Rand
}

// NewRandomStreams creates a stream set rooted at seed.
func NewRandomStreams(seed int64) *RandomStreams {
	return &RandomStreams{seed: seed, streams: make(map[string]*rand.Rand)}
}

// Stream returns the generator for name, seeded with seed XOR fnv1a(name).
// Repeated calls with the same name return the same generator.
func (s *RandomStreams) Stream(name string) *rand.Rand {
	if rng, ok := s.streams[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(s.seed ^ fnv1a64(name)))
	s.streams[name] = rng
	return rng
}

// Seed returns the root seed.
func (s *RandomStreams) Seed() int64 {
	return s.seed
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
