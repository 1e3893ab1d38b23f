package fb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/pagealloc/testutil"
)

// iterSimple walks bit by bit from start in the given direction to the first
// bit equal to val, then keeps walking while bits equal val.
func iterSimple(b []uint64, nbits, start int, val, forward bool) (int, int, bool) {
	step := 1
	if !forward {
		step = -1
	}
	for begin := start; begin != nbits && begin != -1; begin += step {
		if Get(b, nbits, begin) != val {
			continue
		}
		end := begin
		for end != nbits && end != -1 && Get(b, nbits, end) == val {
			end += step
		}
		if forward {
			return begin, end - begin, true
		}
		return end + 1, begin - end, true
	}
	return 0, 0, false
}

func iterAt(b []uint64, nbits, pos int, val, forward bool) (int, int, bool) {
	switch {
	case val && forward:
		return SRangeIter(b, nbits, pos)
	case val:
		return SRangeRIter(b, nbits, pos)
	case forward:
		return URangeIter(b, nbits, pos)
	default:
		return URangeRIter(b, nbits, pos)
	}
}

func expectIterResults(t *testing.T, b []uint64, nbits int) {
	t.Helper()
	for pos := 0; pos < nbits; pos++ {
		for _, val := range []bool{false, true} {
			for _, forward := range []bool{false, true} {
				begin, n, ok := iterAt(b, nbits, pos, val, forward)
				wbegin, wn, wok := iterSimple(b, nbits, pos, val, forward)
				if ok != wok || (ok && (begin != wbegin || n != wn)) {
					t.Fatalf("nbits=%d pos=%d val=%v forward=%v: got (%d, %d, %v), want (%d, %d, %v)",
						nbits, pos, val, forward, begin, n, ok, wbegin, wn, wok)
				}
			}
		}
	}
}

// setPattern3 alternates runs of three set and three unset bits.
func setPattern3(b []uint64, nbits int, zeroSet bool) {
	for i := 0; i < nbits; i++ {
		if (i%6 < 3) == zeroSet {
			Set(b, nbits, i)
		} else {
			Unset(b, nbits, i)
		}
	}
}

func TestIterRange_Scenario(t *testing.T) {
	nbits := 100
	b := newBitmap(nbits)
	SetRange(b, nbits, 0, 30)

	begin, n, ok := SRangeIter(b, nbits, 10)
	assert.True(t, ok)
	assert.Equal(t, 10, begin)
	assert.Equal(t, 20, n)

	begin, n, ok = URangeIter(b, nbits, 10)
	assert.True(t, ok)
	assert.Equal(t, 30, begin)
	assert.Equal(t, 70, n)

	begin, n, ok = SRangeRIter(b, nbits, 10)
	assert.True(t, ok)
	assert.Equal(t, 0, begin)
	assert.Equal(t, 11, n)

	_, _, ok = URangeRIter(b, nbits, 10)
	assert.False(t, ok)
}

func TestIterRange_Simple(t *testing.T) {
	const (
		limit = 30
		nbits = 100
	)
	b := newBitmap(nbits)

	// Only the first limit bits set.
	SetRange(b, nbits, 0, limit)
	for i := 0; i < limit; i++ {
		begin, n, ok := SRangeIter(b, nbits, i)
		require.True(t, ok, "srange_iter at %d", i)
		require.Equal(t, i, begin)
		require.Equal(t, limit-i, n)

		begin, n, ok = URangeIter(b, nbits, i)
		require.True(t, ok, "urange_iter at %d", i)
		require.Equal(t, limit, begin)
		require.Equal(t, nbits-limit, n)

		begin, n, ok = SRangeRIter(b, nbits, i)
		require.True(t, ok, "srange_riter at %d", i)
		require.Equal(t, 0, begin)
		require.Equal(t, i+1, n)

		_, _, ok = URangeRIter(b, nbits, i)
		require.False(t, ok, "urange_riter at %d", i)
	}
	for i := limit; i < nbits; i++ {
		_, _, ok := SRangeIter(b, nbits, i)
		require.False(t, ok, "srange_iter at %d", i)

		begin, n, ok := URangeIter(b, nbits, i)
		require.True(t, ok, "urange_iter at %d", i)
		require.Equal(t, i, begin)
		require.Equal(t, nbits-i, n)

		begin, n, ok = SRangeRIter(b, nbits, i)
		require.True(t, ok, "srange_riter at %d", i)
		require.Equal(t, 0, begin)
		require.Equal(t, limit, n)

		begin, n, ok = URangeRIter(b, nbits, i)
		require.True(t, ok, "urange_riter at %d", i)
		require.Equal(t, limit, begin)
		require.Equal(t, i-limit+1, n)
	}

	// Only the first limit bits unset.
	UnsetRange(b, nbits, 0, limit)
	SetRange(b, nbits, limit, nbits-limit)
	for i := 0; i < limit; i++ {
		begin, n, ok := SRangeIter(b, nbits, i)
		require.True(t, ok, "srange_iter at %d", i)
		require.Equal(t, limit, begin)
		require.Equal(t, nbits-limit, n)

		begin, n, ok = URangeIter(b, nbits, i)
		require.True(t, ok, "urange_iter at %d", i)
		require.Equal(t, i, begin)
		require.Equal(t, limit-i, n)

		_, _, ok = SRangeRIter(b, nbits, i)
		require.False(t, ok, "srange_riter at %d", i)

		begin, n, ok = URangeRIter(b, nbits, i)
		require.True(t, ok, "urange_riter at %d", i)
		require.Equal(t, 0, begin)
		require.Equal(t, i+1, n)
	}
	for i := limit; i < nbits; i++ {
		begin, n, ok := SRangeIter(b, nbits, i)
		require.True(t, ok, "srange_iter at %d", i)
		require.Equal(t, i, begin)
		require.Equal(t, nbits-i, n)

		_, _, ok = URangeIter(b, nbits, i)
		require.False(t, ok, "urange_iter at %d", i)

		begin, n, ok = SRangeRIter(b, nbits, i)
		require.True(t, ok, "srange_riter at %d", i)
		require.Equal(t, limit, begin)
		require.Equal(t, i-limit+1, n)

		begin, n, ok = URangeRIter(b, nbits, i)
		require.True(t, ok, "urange_riter at %d", i)
		require.Equal(t, 0, begin)
		require.Equal(t, limit, n)
	}
}

func TestIterRange_Exhaustive(t *testing.T) {
	for _, nbits := range sizes(1000) {
		b := newBitmap(nbits)
		half := max(nbits/2, 1)

		setPattern3(b, nbits, true)
		expectIterResults(t, b, nbits)

		setPattern3(b, nbits, false)
		expectIterResults(t, b, nbits)

		SetRange(b, nbits, 0, nbits)
		UnsetRange(b, nbits, 0, half)
		expectIterResults(t, b, nbits)

		UnsetRange(b, nbits, 0, nbits)
		SetRange(b, nbits, 0, half)
		expectIterResults(t, b, nbits)
	}
}

func TestIterRange_RandomRuns(t *testing.T) {
	rng := testutil.NewRNG(2024)
	for _, nbits := range sizes(1000) {
		for _, maxRun := range []int{1, 7, 70, 200} {
			b := fromPattern(rng.Runs(nbits, maxRun, rng.Intn(2) == 0))
			expectIterResults(t, b, nbits)
		}
	}
}

func TestIterRange_WalkCoversBitmap(t *testing.T) {
	rng := testutil.NewRNG(5)
	nbits := 777
	pattern := rng.Runs(nbits, 90, true)
	b := fromPattern(pattern)

	// Alternating forward walks over set and unset runs tile the bitmap.
	covered := 0
	for pos := 0; pos < nbits; {
		begin, n, ok := SRangeIter(b, nbits, pos)
		if !ok || begin != pos {
			begin, n, ok = URangeIter(b, nbits, pos)
		}
		require.True(t, ok)
		require.Equal(t, pos, begin)
		covered += n
		pos += n
	}
	assert.Equal(t, nbits, covered)

	// Backward walks do the same from the top.
	covered = 0
	for pos := nbits - 1; pos >= 0; {
		begin, n, ok := SRangeRIter(b, nbits, pos)
		if !ok || begin+n-1 != pos {
			begin, n, ok = URangeRIter(b, nbits, pos)
		}
		require.True(t, ok)
		require.Equal(t, pos, begin+n-1)
		covered += n
		pos = begin - 1
	}
	assert.Equal(t, nbits, covered)
}
