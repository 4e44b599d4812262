package arena

import "math/rand"

// Rand is the only source of randomness for placement, AI and tie breaks.
type Rand interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
}

// NewRand returns a seeded source.
func NewRand(seed int64) Rand {
	return rand.New(rand.NewSource(seed))
}

func uniform(r Rand, lo, hi float64) float64 {
	return r.Float64()*(hi-lo) + lo
}
