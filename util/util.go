// Package util provides shared helpers for diverset.
package util

import "math/rand"

// RNG struct encapsulates the random number generator and seed.
//
// Every select call owns its own RNG; ambient/global random state is never
// consulted, which is what makes seeded runs reproducible.
type RNG struct {
	rand *rand.Rand
	seed int64
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)), // nolint gosec
		seed: seed,
	}
}

// Intn returns a uniform random int in [0, n).
func (r *RNG) Intn(n int) int {
	return r.rand.Intn(n)
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 {
	return r.seed
}

// GenerateRandomData generates n pseudo-random byte slices of the given size.
// Test helper for building fingerprintable content.
func (r *RNG) GenerateRandomData(n, size int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = make([]byte, size)
		r.rand.Read(out[i]) // nolint errcheck
	}
	return out
}
