package fb

// rangeIter finds the first run of val bits at or after start. The run is
// clipped to begin no earlier than start.
func rangeIter(fb []uint64, nbits, start int, val bool) (int, int, bool) {
	begin := find(fb, nbits, start, val, true)
	if begin == nbits {
		return 0, 0, false
	}
	end := find(fb, nbits, begin, !val, true)
	return begin, end - begin, true
}

// rangeRIter finds the last run of val bits at or before start. The run keeps
// its true beginning but ends no later than start.
func rangeRIter(fb []uint64, nbits, start int, val bool) (int, int, bool) {
	last := find(fb, nbits, start, val, false)
	if last == -1 {
		return 0, 0, false
	}
	begin := find(fb, nbits, last, !val, false) + 1
	return begin, last - begin + 1, true
}

// SRangeIter reports the run of set bits at or after start.
//
// If bit start is set the run begins at start; otherwise it begins at the next
// set bit. The length always reaches the run's true end. ok is false when no
// bit at or after start is set.
func SRangeIter(fb []uint64, nbits, start int) (begin, length int, ok bool) {
	return rangeIter(fb, nbits, start, true)
}

// URangeIter is SRangeIter for unset bits.
func URangeIter(fb []uint64, nbits, start int) (begin, length int, ok bool) {
	return rangeIter(fb, nbits, start, false)
}

// SRangeRIter reports the run of set bits at or before start, scanning
// backward.
//
// The run ends at the nearest set bit at or before start and begins at the
// run's true beginning. ok is false when no bit at or before start is set.
func SRangeRIter(fb []uint64, nbits, start int) (begin, length int, ok bool) {
	return rangeRIter(fb, nbits, start, true)
}

// URangeRIter is SRangeRIter for unset bits.
func URangeRIter(fb []uint64, nbits, start int) (begin, length int, ok bool) {
	return rangeRIter(fb, nbits, start, false)
}
