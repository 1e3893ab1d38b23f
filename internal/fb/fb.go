package fb

import (
	"math/bits"

	"github.com/hupe1980/pagealloc/internal/invariants"
)

func checkStorage(fb []uint64, nbits int) {
	if invariants.Enabled {
		invariants.Check(nbits >= 1, "fb: nbits must be positive, got %d", nbits)
		invariants.Check(len(fb) >= NGroups(nbits), "fb: %d groups cannot hold %d bits", len(fb), nbits)
	}
}

func checkBit(fb []uint64, nbits, i int) {
	if invariants.Enabled {
		checkStorage(fb, nbits)
		invariants.Check(i >= 0 && i < nbits, "fb: bit %d out of range [0, %d)", i, nbits)
	}
}

func checkRange(fb []uint64, nbits, start, n int) {
	if invariants.Enabled {
		checkStorage(fb, nbits)
		invariants.Check(start >= 0 && n >= 0 && start+n <= nbits,
			"fb: range [%d, %d) out of range [0, %d)", start, start+n, nbits)
	}
}

// checkPadding verifies that the padding bits of the final group are clear.
func checkPadding(fb []uint64, nbits int) {
	if invariants.Enabled {
		last := fb[NGroups(nbits)-1]
		invariants.Check(last&^lastGroupMask(nbits) == 0, "fb: padding bits set in final group %#x", last)
	}
}

// Init clears every live and padding bit of an nbits bitmap.
func Init(fb []uint64, nbits int) {
	checkStorage(fb, nbits)
	clear(fb[:NGroups(nbits)])
}

// Get reports whether bit i is set.
func Get(fb []uint64, nbits, i int) bool {
	checkBit(fb, nbits, i)
	gi, off := locate(i)
	return fb[gi]&(uint64(1)<<off) != 0
}

// Set sets bit i.
func Set(fb []uint64, nbits, i int) {
	checkBit(fb, nbits, i)
	gi, off := locate(i)
	fb[gi] |= uint64(1) << off
}

// Unset clears bit i.
func Unset(fb []uint64, nbits, i int) {
	checkBit(fb, nbits, i)
	gi, off := locate(i)
	fb[gi] &^= uint64(1) << off
}

// span is [start, start+n) broken into groups: an optional leading partial
// group, whole groups [lo, hi), and an optional trailing partial group. A zero
// mask marks an absent partial group.
type span struct {
	head     int
	headMask uint64
	lo, hi   int
	tail     int
	tailMask uint64
}

// split decomposes a non-empty range into its span.
func split(start, n int) span {
	gi, off := locate(start)
	egi, eoff := locate(start + n)

	if gi == egi {
		return span{head: gi, headMask: rangeMask(off, eoff-off), lo: gi + 1, hi: gi + 1}
	}

	s := span{head: gi, lo: gi, hi: egi, tail: egi}
	if off != 0 {
		s.headMask = maskFrom(off)
		s.lo = gi + 1
	}
	if eoff != 0 {
		s.tailMask = rangeMask(0, eoff)
	}
	return s
}

// SetRange sets every bit in [start, start+n).
func SetRange(fb []uint64, nbits, start, n int) {
	checkRange(fb, nbits, start, n)
	if n == 0 {
		return
	}
	s := split(start, n)
	if s.headMask != 0 {
		fb[s.head] |= s.headMask
	}
	for i := s.lo; i < s.hi; i++ {
		fb[i] = allOnes
	}
	if s.tailMask != 0 {
		fb[s.tail] |= s.tailMask
	}
	checkPadding(fb, nbits)
}

// UnsetRange clears every bit in [start, start+n).
func UnsetRange(fb []uint64, nbits, start, n int) {
	checkRange(fb, nbits, start, n)
	if n == 0 {
		return
	}
	s := split(start, n)
	if s.headMask != 0 {
		fb[s.head] &^= s.headMask
	}
	for i := s.lo; i < s.hi; i++ {
		fb[i] = 0
	}
	if s.tailMask != 0 {
		fb[s.tail] &^= s.tailMask
	}
}

// SCount returns the number of set bits in [start, start+n).
func SCount(fb []uint64, nbits, start, n int) int {
	checkRange(fb, nbits, start, n)
	if n == 0 {
		return 0
	}
	s := split(start, n)
	count := bits.OnesCount64(fb[s.head] & s.headMask)
	for i := s.lo; i < s.hi; i++ {
		count += bits.OnesCount64(fb[i])
	}
	if s.tailMask != 0 {
		count += bits.OnesCount64(fb[s.tail] & s.tailMask)
	}
	return count
}

// UCount returns the number of unset bits in [start, start+n).
func UCount(fb []uint64, nbits, start, n int) int {
	return n - SCount(fb, nbits, start, n)
}

// Full reports whether every live bit is set.
func Full(fb []uint64, nbits int) bool {
	checkStorage(fb, nbits)
	last := NGroups(nbits) - 1
	for i := 0; i < last; i++ {
		if fb[i] != allOnes {
			return false
		}
	}
	mask := lastGroupMask(nbits)
	return fb[last]&mask == mask
}

// Empty reports whether every live bit is clear.
func Empty(fb []uint64, nbits int) bool {
	checkStorage(fb, nbits)
	for _, g := range fb[:NGroups(nbits)] {
		if g != 0 {
			return false
		}
	}
	return true
}
