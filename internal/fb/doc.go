// Package fb implements a flat bitmap: a fixed-capacity bit vector stored as a
// caller-owned slice of 64-bit groups.
//
// # Layout
//
// Bit i lives in group i/GroupBits at offset i%GroupBits, least significant
// bit first. Callers may rely on this layout and manipulate groups directly.
//
//	┌──────────────────────┬──────────────────────┬───────────────────────┐
//	│ group 0              │ group 1              │ group n-1             │
//	│ bits [0, 63]         │ bits [64, 127]       │ live bits │ padding=0 │
//	└──────────────────────┴──────────────────────┴───────────────────────┘
//
// When nbits is not a multiple of GroupBits the final group carries padding
// bits. Padding bits are always zero; every mutator preserves that.
//
// # Usage
//
// The bitmap does not record its own size. Every function takes nbits, and
// the caller sizes the storage with NGroups:
//
//	nbits := 512
//	bits := make([]uint64, fb.NGroups(nbits))
//	fb.Init(bits, nbits)
//
//	fb.SetRange(bits, nbits, 0, 30)
//	begin, n, ok := fb.URangeIter(bits, nbits, 0) // 30, 482, true
//
// # Searching
//
// FFS/FFU scan forward and return nbits when nothing is found; FLS/FLU scan
// backward and return -1. The run iterators build on them:
//
//   - SRangeIter/URangeIter report a run starting at or after the query
//     position, clipped so it never begins before it.
//   - SRangeRIter/URangeRIter report a run ending at or before the query
//     position, extended back to the run's true beginning.
//
// # Preconditions
//
// Out-of-range arguments are caller bugs. They are checked only when built
// with -tags invariants; release builds do no bounds checking beyond Go's own.
//
// # Thread Safety
//
// None of the functions synchronize. Callers must serialize mutation of a
// given bitmap.
package fb
