package pageslab

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/pagealloc/internal/fb"
	"github.com/hupe1980/pagealloc/internal/invariants"
)

// Slab tracks page occupancy for one contiguous span of memory.
//
// A page is active while it is handed out, and touched from the time it is
// first handed out until it is purged. Touched pages that are no longer
// active are dirty: they still hold memory the OS could reclaim.
type Slab struct {
	mem      []byte
	npages   int
	pageSize int

	active  []uint64
	touched []uint64
	// scratch holds the dirty set during Purge.
	scratch []uint64

	nactive     int
	ntouched    int
	longestFree int
}

// New creates a slab of npages pages of pageSize bytes over mem. mem must be
// at least npages*pageSize bytes long.
func New(mem []byte, npages, pageSize int) *Slab {
	if invariants.Enabled {
		invariants.Check(npages > 0 && pageSize > 0, "pageslab: bad geometry %d x %d", npages, pageSize)
		invariants.Check(len(mem) >= npages*pageSize, "pageslab: %d bytes cannot hold %d pages", len(mem), npages)
	}
	ngroups := fb.NGroups(npages)
	s := &Slab{
		mem:         mem,
		npages:      npages,
		pageSize:    pageSize,
		active:      make([]uint64, ngroups),
		touched:     make([]uint64, ngroups),
		scratch:     make([]uint64, ngroups),
		longestFree: npages,
	}
	fb.Init(s.active, npages)
	fb.Init(s.touched, npages)
	return s
}

// NPages returns the number of pages in the slab.
func (s *Slab) NPages() int { return s.npages }

// PageSize returns the page size in bytes.
func (s *Slab) PageSize() int { return s.pageSize }

// NActive returns the number of active pages.
func (s *Slab) NActive() int { return s.nactive }

// NTouched returns the number of touched pages, active or not.
func (s *Slab) NTouched() int { return s.ntouched }

// NDirty returns the number of touched pages that are not active.
func (s *Slab) NDirty() int { return s.ntouched - s.nactive }

// LongestFreeRange returns the length of the longest run of inactive pages.
func (s *Slab) LongestFreeRange() int { return s.longestFree }

// Empty reports whether no page is active.
func (s *Slab) Empty() bool { return fb.Empty(s.active, s.npages) }

// Full reports whether every page is active.
func (s *Slab) Full() bool { return fb.Full(s.active, s.npages) }

// Reserve marks the first run of n free pages active and returns its first
// page. It returns false when no run is long enough.
func (s *Slab) Reserve(n int) (int, bool) {
	if n <= 0 || n > s.longestFree {
		return 0, false
	}

	chosen := -1
	// Longest free run once the reservation is made.
	longest := 0
	for start := 0; start < s.npages; {
		begin, length, ok := fb.URangeIter(s.active, s.npages, start)
		if !ok {
			break
		}
		start = begin + length
		if chosen == -1 && length >= n {
			chosen = begin
			length -= n
		}
		longest = max(longest, length)
	}
	if chosen == -1 {
		invariants.Check(false, "pageslab: longest free range %d is stale", s.longestFree)
		return 0, false
	}

	fb.SetRange(s.active, s.npages, chosen, n)
	s.nactive += n

	s.ntouched += fb.UCount(s.touched, s.npages, chosen, n)
	fb.SetRange(s.touched, s.npages, chosen, n)

	s.longestFree = longest
	return chosen, true
}

// Unreserve marks [page, page+n) inactive. The pages stay touched until the
// next Purge.
func (s *Slab) Unreserve(page, n int) {
	if invariants.Enabled {
		invariants.Check(s.Reserved(page, n), "pageslab: unreserving [%d, %d) which is not fully active", page, page+n)
	}
	fb.UnsetRange(s.active, s.npages, page, n)
	s.nactive -= n

	// The freed run merges with free neighbours on both sides.
	begin, _, _ := fb.URangeRIter(s.active, s.npages, page)
	_, length, _ := fb.URangeIter(s.active, s.npages, page)
	s.longestFree = max(s.longestFree, page-begin+length)
}

// Reserved reports whether every page in [page, page+n) is active.
func (s *Slab) Reserved(page, n int) bool {
	if page < 0 || n <= 0 || page+n > s.npages {
		return false
	}
	return fb.SCount(s.active, s.npages, page, n) == n
}

// Bytes returns the memory backing [page, page+n).
func (s *Slab) Bytes(page, n int) []byte {
	lo := page * s.pageSize
	hi := lo + n*s.pageSize
	return s.mem[lo:hi:hi]
}

// HighestActive returns the highest active page, or -1 when the slab is empty.
func (s *Slab) HighestActive() int {
	return fb.FLS(s.active, s.npages, s.npages-1)
}

// ActivePages returns a snapshot of the active page indices.
func (s *Slab) ActivePages() *roaring.Bitmap {
	rb := roaring.New()
	s.ForEachActiveRange(func(begin, n int) bool {
		rb.AddRange(uint64(begin), uint64(begin+n))
		return true
	})
	return rb
}

// ForEachActiveRange calls fn for each maximal run of active pages, in
// ascending order, until fn returns false.
func (s *Slab) ForEachActiveRange(fn func(begin, n int) bool) {
	for start := 0; start < s.npages; {
		begin, n, ok := fb.SRangeIter(s.active, s.npages, start)
		if !ok || !fn(begin, n) {
			return
		}
		start = begin + n
	}
}
