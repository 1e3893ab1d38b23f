package pageslab

import "github.com/hupe1980/pagealloc/internal/fb"

// PurgeFunc releases the memory of pages [page, page+n).
type PurgeFunc func(page, n int) error

// Purge hands every dirty run to fn, lowest first, and marks the purged pages
// untouched. It returns the number of pages purged. If fn fails, Purge stops;
// the failed run and every run after it stay dirty.
func (s *Slab) Purge(fn PurgeFunc) (int, error) {
	if s.NDirty() == 0 {
		return 0, nil
	}

	dirty := s.scratch
	fb.Not(dirty, s.active, s.npages)
	fb.And(dirty, dirty, s.touched, s.npages)

	purged := 0
	for start := 0; start < s.npages; {
		begin, n, ok := fb.SRangeIter(dirty, s.npages, start)
		if !ok {
			break
		}
		if err := fn(begin, n); err != nil {
			return purged, err
		}
		fb.UnsetRange(s.touched, s.npages, begin, n)
		s.ntouched -= n
		purged += n
		start = begin + n
	}
	return purged, nil
}

// DirtyRanges calls fn for each maximal run of dirty pages, in ascending
// order, until fn returns false.
func (s *Slab) DirtyRanges(fn func(begin, n int) bool) {
	if s.NDirty() == 0 {
		return
	}
	dirty := s.scratch
	fb.Not(dirty, s.active, s.npages)
	fb.And(dirty, dirty, s.touched, s.npages)
	for start := 0; start < s.npages; {
		begin, n, ok := fb.SRangeIter(dirty, s.npages, start)
		if !ok || !fn(begin, n) {
			return
		}
		start = begin + n
	}
}
