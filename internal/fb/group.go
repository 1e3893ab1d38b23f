package fb

import "math/bits"

const (
	// GroupBits is the width of a storage group in bits.
	GroupBits = 64

	groupShift = 6
	groupMask  = GroupBits - 1
	allOnes    = ^uint64(0)
)

// NGroups returns the number of groups needed to hold nbits bits.
func NGroups(nbits int) int {
	return (nbits + GroupBits - 1) >> groupShift
}

// locate maps bit i to its group index and intra-group offset.
func locate(i int) (int, uint) {
	return i >> groupShift, uint(i) & groupMask
}

// maskFrom returns a mask with bits [off, GroupBits) set.
func maskFrom(off uint) uint64 {
	return allOnes << off
}

// maskThrough returns a mask with bits [0, off] set.
func maskThrough(off uint) uint64 {
	return allOnes >> (groupMask - off)
}

// rangeMask returns n consecutive set bits starting at off. n must be in
// [1, GroupBits] and off+n must not exceed GroupBits.
func rangeMask(off, n uint) uint64 {
	return (allOnes >> (GroupBits - n)) << off
}

// lastGroupMask returns the live-bit mask of the final group of an nbits bitmap.
func lastGroupMask(nbits int) uint64 {
	rem := uint(nbits) & groupMask
	if rem == 0 {
		return allOnes
	}
	return allOnes >> (GroupBits - rem)
}

// groupFFS returns the offset of the lowest set bit. g must be non-zero.
func groupFFS(g uint64) uint {
	return uint(bits.TrailingZeros64(g))
}

// groupFLS returns the offset of the highest set bit. g must be non-zero.
func groupFLS(g uint64) uint {
	return groupMask - uint(bits.LeadingZeros64(g))
}

// groupFind looks for a bit equal to val in g, starting at off (inclusive)
// and moving up when forward is set, down otherwise.
func groupFind(g uint64, off uint, val, forward bool) (uint, bool) {
	if !val {
		g = ^g
	}
	if forward {
		g &= maskFrom(off)
		if g == 0 {
			return 0, false
		}
		return groupFFS(g), true
	}
	g &= maskThrough(off)
	if g == 0 {
		return 0, false
	}
	return groupFLS(g), true
}
