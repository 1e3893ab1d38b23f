package testutil

import (
	"math/rand"
	"sync"
)

// RNG is a seeded pseudo-random source that is safe for concurrent use, so
// tests stay reproducible from their seed.
type RNG struct {
	mu   sync.Mutex
	src  *rand.Rand
	seed int64
}

// NewRNG returns an RNG seeded with seed.
func NewRNG(seed int64) *RNG {
	return &RNG{src: rand.New(rand.NewSource(seed)), seed: seed}
}

// Reset rewinds the RNG to its seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.src = rand.New(rand.NewSource(r.seed))
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 { return r.seed }

// Intn returns a value in [0, n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Intn(n)
}

// Uint64 returns a uniformly distributed uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Uint64()
}

// Pattern returns n booleans, each true with probability density.
func (r *RNG) Pattern(n int, density float64) []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]bool, n)
	for i := range out {
		out[i] = r.src.Float64() < density
	}
	return out
}

// Runs returns n booleans made of alternating runs whose lengths are drawn
// from [1, maxRun]. The first run is true when startSet is set.
func (r *RNG) Runs(n, maxRun int, startSet bool) []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]bool, n)
	val := startSet
	for i := 0; i < n; {
		l := 1 + r.src.Intn(maxRun)
		for j := 0; j < l && i < n; j++ {
			out[i] = val
			i++
		}
		val = !val
	}
	return out
}

// BitSizes returns the bitmap sizes used by exhaustive tests, in ascending
// order. Sizes above 1000 are omitted in short mode by callers that are
// quadratic in the size.
func BitSizes() []int {
	return []int{
		1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 15, 16, 17, 31, 32, 33,
		63, 64, 65, 66, 100, 127, 128, 129, 191, 192, 193,
		255, 256, 257, 320, 500, 511, 512, 513, 640, 999, 1000,
		1023, 1024, 1025, 2047, 2048, 2049, 4095, 4096, 4097,
	}
}
