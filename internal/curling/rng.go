package curling

import "math/rand/v2"

// Rand is the randomness the shot heuristic needs. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// NewRand returns a deterministic source for the given seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0))
}

// spread returns a symmetric jitter in [-width/2, width/2).
func spread(r Rand, width float64) float64 {
	return (r.Float64() - 0.5) * width
}

// between returns a value in [lo, hi).
func between(r Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}
