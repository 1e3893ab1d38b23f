package fb

// find returns the nearest bit at or beyond start, in the given direction,
// whose value equals val. It returns nbits (forward) or -1 (backward) when no
// such bit exists.
func find(fb []uint64, nbits, start int, val, forward bool) int {
	checkBit(fb, nbits, start)
	gi, off := locate(start)

	if forward {
		if o, ok := groupFind(fb[gi], off, val, true); ok {
			// An unset search can land on a padding bit of the final group.
			return min(gi<<groupShift+int(o), nbits)
		}
		ngroups := NGroups(nbits)
		for gi++; gi < ngroups; gi++ {
			g := fb[gi]
			if !val {
				g = ^g
			}
			if g != 0 {
				return min(gi<<groupShift+int(groupFFS(g)), nbits)
			}
		}
		return nbits
	}

	if o, ok := groupFind(fb[gi], off, val, false); ok {
		return gi<<groupShift + int(o)
	}
	for gi--; gi >= 0; gi-- {
		g := fb[gi]
		if !val {
			g = ^g
		}
		if g != 0 {
			return gi<<groupShift + int(groupFLS(g))
		}
	}
	return -1
}

// FFS returns the smallest set bit >= start, or nbits if there is none.
func FFS(fb []uint64, nbits, start int) int {
	return find(fb, nbits, start, true, true)
}

// FFU returns the smallest unset bit >= start, or nbits if there is none.
func FFU(fb []uint64, nbits, start int) int {
	return find(fb, nbits, start, false, true)
}

// FLS returns the largest set bit <= start, or -1 if there is none.
func FLS(fb []uint64, nbits, start int) int {
	return find(fb, nbits, start, true, false)
}

// FLU returns the largest unset bit <= start, or -1 if there is none.
func FLU(fb []uint64, nbits, start int) int {
	return find(fb, nbits, start, false, false)
}
