package engine

import (
	mathrand "math/rand/v2"

	"github.com/cespare/xxhash/v2"
)

// Source is the single randomness stream every strategy draws from
type Source interface {
	// Next returns a float in [0, 1)
	Next() float64
}

// Rand is a math/rand/v2 PCG generator keyed by a seed string
type Rand struct {
	rng    *mathrand.Rand
	seed   string
	seeded bool
}

// NewRand returns a generator for seed. Equal seeds give identical
// sequences; an empty seed gives a non-deterministic generator.
func NewRand(seed string) *Rand {
	if seed == "" {
		return &Rand{rng: mathrand.New(mathrand.NewPCG(mathrand.Uint64(), mathrand.Uint64()))}
	}
	h := xxhash.Sum64String(seed)
	return &Rand{
		rng:    mathrand.New(mathrand.NewPCG(h, h^0x9e3779b97f4a7c15)),
		seed:   seed,
		seeded: true,
	}
}

// Next implements Source
func (r *Rand) Next() float64 {
	return r.rng.Float64()
}

// Seed returns the seed string; empty for an unseeded generator
func (r *Rand) Seed() string {
	return r.seed
}

// Seeded reports whether the generator is deterministic
func (r *Rand) Seeded() bool {
	return r.seeded
}

// intN draws an index in [0, n) from src
func intN(src Source, n int) int {
	if n <= 1 {
		return 0
	}
	i := int(src.Next() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// chance draws once and reports success with probability p. p <= 0 never
// draws, so disabled probabilities leave the stream untouched.
func chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	return src.Next() < p
}
