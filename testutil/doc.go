// Package testutil provides testing utilities for pagealloc.
//
// This package is intended for use in tests and benchmarks only.
//
// # Random Patterns
//
//	rng := testutil.NewRNG(seed)
//	pattern := rng.Pattern(1000, 0.3) // ~30% of entries true
//
// # Bitmap Sizes
//
// BitSizes lists the bit counts exercised by bitmap tests: tiny sizes,
// sizes around group boundaries, and a few odd large ones.
package testutil
