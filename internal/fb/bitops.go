package fb

// And stores a AND b into dst. dst may alias either operand.
func And(dst, a, b []uint64, nbits int) {
	checkStorage(dst, nbits)
	for i := range NGroups(nbits) {
		dst[i] = a[i] & b[i]
	}
}

// Or stores a OR b into dst. dst may alias either operand.
func Or(dst, a, b []uint64, nbits int) {
	checkStorage(dst, nbits)
	for i := range NGroups(nbits) {
		dst[i] = a[i] | b[i]
	}
}

// Not stores the complement of src into dst, keeping padding bits clear. dst
// may alias src.
func Not(dst, src []uint64, nbits int) {
	checkStorage(dst, nbits)
	ngroups := NGroups(nbits)
	for i := range ngroups {
		dst[i] = ^src[i]
	}
	dst[ngroups-1] &= lastGroupMask(nbits)
}
