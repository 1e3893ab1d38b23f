package pagealloc

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/pagealloc/internal/conv"
	"github.com/hupe1980/pagealloc/internal/mmap"
	"github.com/hupe1980/pagealloc/internal/pageslab"
	"github.com/hupe1980/pagealloc/internal/resource"
)

// Allocation is a run of pages handed out by Alloc.
type Allocation struct {
	// Slab identifies the slab holding the pages.
	Slab uint32
	// Page is the first page of the run within its slab.
	Page int
	// Pages is the length of the run.
	Pages int
	// Data is the memory of the run, truncated to the requested size. Its
	// capacity spans every page of the run.
	Data []byte
}

// Stats is a point-in-time view of allocator occupancy.
type Stats struct {
	Slabs       int
	ActivePages int
	DirtyPages  int
	EmptySlabs  int
	MappedBytes int64
	MemoryLimit int64
}

type slabEntry struct {
	id uint32

	mu      sync.Mutex
	slab    *pageslab.Slab
	mapping *mmap.Mapping
}

// Allocator hands out page runs from anonymously mapped slabs.
//
// It is safe for concurrent use. The slab table is guarded by one lock and
// each slab's bitmaps by its own, so allocations in different slabs do not
// contend once the table is read.
type Allocator struct {
	opts      options
	slabBytes int
	rc        *resource.Controller
	logger    *Logger
	metrics   MetricsCollector

	mu     sync.RWMutex
	slabs  []*slabEntry // ascending id; first fit walks this order
	byID   map[uint32]*slabEntry
	nextID int
	closed bool
}

// New creates an Allocator. No memory is mapped until the first Alloc.
func New(optFns ...Option) (*Allocator, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	slabBytes, err := conv.PagesToBytes(opts.slabPages, opts.pageSize)
	if err != nil {
		return nil, &ErrInvalidOption{Option: "SlabPages", Value: opts.slabPages, cause: err}
	}

	return &Allocator{
		opts:      opts,
		slabBytes: slabBytes,
		rc: resource.NewController(resource.Config{
			MemoryLimitBytes: opts.memoryLimit,
			MaxPurgeWorkers:  int64(opts.purgeWorkers),
			PurgeBytesPerSec: opts.purgeRate,
		}),
		logger:  opts.logger,
		metrics: opts.metricsCollector,
		byID:    make(map[uint32]*slabEntry),
	}, nil
}

// PageSize returns the page size in bytes.
func (a *Allocator) PageSize() int { return a.opts.pageSize }

// SlabPages returns the number of pages per slab.
func (a *Allocator) SlabPages() int { return a.opts.slabPages }

// Alloc returns a run of pages holding at least size bytes. It reuses the
// lowest slab with a long enough free run and maps a new slab only when none
// has one.
//
// Pages of a fresh slab are zero. Recycled pages keep whatever the previous
// owner wrote unless a Purge released them on a platform that zero-fills
// released memory.
func (a *Allocator) Alloc(ctx context.Context, size int) (Allocation, error) {
	start := time.Now()
	alloc, pages, err := a.alloc(ctx, size)
	a.metrics.RecordAlloc(pages, time.Since(start), err)
	if err != nil {
		a.logger.LogAllocFailure(ctx, size, err)
	}
	return alloc, err
}

func (a *Allocator) alloc(ctx context.Context, size int) (Allocation, int, error) {
	if err := ctx.Err(); err != nil {
		return Allocation{}, 0, err
	}
	if size <= 0 {
		return Allocation{}, 0, ErrInvalidSize
	}
	pages, err := conv.PagesFor(size, a.opts.pageSize)
	if err != nil || pages > a.opts.slabPages {
		return Allocation{}, pages, fmt.Errorf("%w: %d bytes, slab holds %d", ErrTooLarge, size, a.slabBytes)
	}

	a.mu.RLock()
	if a.closed {
		a.mu.RUnlock()
		return Allocation{}, pages, ErrClosed
	}
	alloc, ok := a.reserveExisting(pages, size)
	a.mu.RUnlock()
	if ok {
		return alloc, pages, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return Allocation{}, pages, ErrClosed
	}
	// Another caller may have freed or mapped memory since the read pass.
	if alloc, ok := a.reserveExisting(pages, size); ok {
		return alloc, pages, nil
	}

	e, err := a.mapSlab(ctx)
	if err != nil {
		return Allocation{}, pages, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	page, ok := e.slab.Reserve(pages)
	if !ok {
		return Allocation{}, pages, fmt.Errorf("%w: fresh slab cannot hold %d pages", ErrTooLarge, pages)
	}
	return a.newAllocation(e, page, pages, size), pages, nil
}

// reserveExisting runs first fit over the mapped slabs. The caller holds a.mu.
func (a *Allocator) reserveExisting(pages, size int) (Allocation, bool) {
	for _, e := range a.slabs {
		e.mu.Lock()
		if e.slab.LongestFreeRange() >= pages {
			if page, ok := e.slab.Reserve(pages); ok {
				alloc := a.newAllocation(e, page, pages, size)
				e.mu.Unlock()
				return alloc, true
			}
		}
		e.mu.Unlock()
	}
	return Allocation{}, false
}

// newAllocation builds the handle for a fresh reservation. The caller holds e.mu.
func (a *Allocator) newAllocation(e *slabEntry, page, pages, size int) Allocation {
	data := e.slab.Bytes(page, pages)
	return Allocation{
		Slab:  e.id,
		Page:  page,
		Pages: pages,
		Data:  data[:size],
	}
}

// mapSlab maps and registers a new slab. The caller holds a.mu for writing.
func (a *Allocator) mapSlab(ctx context.Context) (*slabEntry, error) {
	id, err := conv.IntToUint32(a.nextID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSlabLimit, err)
	}

	if err := a.rc.AcquireMemory(int64(a.slabBytes)); err != nil {
		err = translateError(err)
		a.logger.LogSlabMapped(ctx, id, a.slabBytes, err)
		return nil, err
	}
	m, err := mmap.MapAnon(a.slabBytes)
	if err != nil {
		a.rc.ReleaseMemory(int64(a.slabBytes))
		err = fmt.Errorf("map slab: %w", err)
		a.logger.LogSlabMapped(ctx, id, a.slabBytes, err)
		return nil, err
	}

	e := &slabEntry{
		id:      id,
		slab:    pageslab.New(m.Bytes(), a.opts.slabPages, a.opts.pageSize),
		mapping: m,
	}
	a.nextID++
	a.slabs = append(a.slabs, e)
	a.byID[id] = e

	a.logger.LogSlabMapped(ctx, id, a.slabBytes, nil)
	a.recordSlabs()
	return e, nil
}

// recordSlabs reports the mapped slab count. The caller holds a.mu.
func (a *Allocator) recordSlabs() {
	a.metrics.RecordSlabs(len(a.slabs), int64(len(a.slabs))*int64(a.slabBytes))
}

// Free returns an allocation's pages to its slab. The pages stay dirty until
// the next Purge. Freeing an allocation twice returns ErrInvalidAllocation.
func (a *Allocator) Free(alloc Allocation) error {
	err := a.free(alloc)
	a.metrics.RecordFree(alloc.Pages, err)
	return err
}

func (a *Allocator) free(alloc Allocation) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}

	e, ok := a.byID[alloc.Slab]
	if !ok {
		return fmt.Errorf("%w: unknown slab %d", ErrInvalidAllocation, alloc.Slab)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.slab.Reserved(alloc.Page, alloc.Pages) {
		return fmt.Errorf("%w: pages [%d, %d) of slab %d are not allocated",
			ErrInvalidAllocation, alloc.Page, alloc.Page+alloc.Pages, alloc.Slab)
	}
	e.slab.Unreserve(alloc.Page, alloc.Pages)
	return nil
}

// Purge returns the memory of every dirty page to the OS and unmaps empty
// slabs beyond the retained count. It returns the number of pages purged.
//
// Slabs are purged concurrently up to the configured worker count, and the
// purge rate limit paces each dirty run. A cancelled context stops the pass;
// pages not yet purged stay dirty for the next call.
func (a *Allocator) Purge(ctx context.Context) (int, error) {
	start := time.Now()

	a.mu.RLock()
	if a.closed {
		a.mu.RUnlock()
		return 0, ErrClosed
	}
	entries := slices.Clone(a.slabs)
	a.mu.RUnlock()

	var purged atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.rc.MaxPurgeWorkers())
	for _, e := range entries {
		g.Go(func() error {
			// Worker slots are shared by concurrent Purge calls.
			if err := a.rc.AcquirePurgeWorker(gctx); err != nil {
				return err
			}
			defer a.rc.ReleasePurgeWorker()

			n, err := a.purgeSlab(gctx, e)
			purged.Add(int64(n))
			return err
		})
	}
	err := g.Wait()

	released := 0
	if err == nil {
		released, err = a.releaseEmpty(ctx)
	}

	total := int(purged.Load())
	a.metrics.RecordPurge(total, time.Since(start), err)
	a.logger.LogPurge(ctx, total, released, err)
	return total, err
}

func (a *Allocator) purgeSlab(ctx context.Context, e *slabEntry) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pageSize := a.opts.pageSize
	n, err := e.slab.Purge(func(page, npages int) error {
		bytes := npages * pageSize
		if err := a.rc.AcquirePurge(ctx, bytes); err != nil {
			return err
		}
		return e.mapping.AdviseRange(page*pageSize, bytes, mmap.AccessDontNeed)
	})
	if err != nil {
		return n, fmt.Errorf("purge slab %d: %w", e.id, translateError(err))
	}
	return n, nil
}

// releaseEmpty unmaps empty slabs, keeping the lowest RetainEmptySlabs of
// them mapped.
func (a *Allocator) releaseEmpty(ctx context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return 0, ErrClosed
	}

	var errs []error
	kept := 0
	released := 0
	a.slabs = slices.DeleteFunc(a.slabs, func(e *slabEntry) bool {
		e.mu.Lock()
		empty := e.slab.Empty()
		e.mu.Unlock()
		if !empty {
			return false
		}
		if kept < a.opts.retainEmptySlabs {
			kept++
			return false
		}

		err := e.mapping.Close()
		a.logger.LogSlabReleased(ctx, e.id, a.slabBytes, err)
		if err != nil {
			errs = append(errs, fmt.Errorf("unmap slab %d: %w", e.id, err))
			return false
		}
		a.rc.ReleaseMemory(int64(a.slabBytes))
		delete(a.byID, e.id)
		released++
		return true
	})

	if released > 0 {
		a.recordSlabs()
	}
	return released, errors.Join(errs...)
}

// Stats returns current occupancy. It returns the zero Stats after Close.
func (a *Allocator) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return Stats{}
	}

	st := Stats{
		Slabs:       len(a.slabs),
		MappedBytes: a.rc.MemoryUsage(),
		MemoryLimit: a.rc.MemoryLimit(),
	}
	for _, e := range a.slabs {
		e.mu.Lock()
		st.ActivePages += e.slab.NActive()
		st.DirtyPages += e.slab.NDirty()
		if e.slab.Empty() {
			st.EmptySlabs++
		}
		e.mu.Unlock()
	}
	return st
}

// ActivePages returns a snapshot of the allocated page indices of a slab.
func (a *Allocator) ActivePages(slab uint32) (*roaring.Bitmap, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil, ErrClosed
	}

	e, ok := a.byID[slab]
	if !ok {
		return nil, fmt.Errorf("%w: unknown slab %d", ErrInvalidAllocation, slab)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.slab.ActivePages(), nil
}

// Close unmaps every slab. Memory from outstanding allocations must not be
// used afterwards. Subsequent operations return ErrClosed; Close itself is
// idempotent.
func (a *Allocator) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true

	var firstErr error
	for _, e := range a.slabs {
		e.mu.Lock()
		if err := e.mapping.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("unmap slab %d: %w", e.id, err)
		}
		e.mu.Unlock()
		a.rc.ReleaseMemory(int64(a.slabBytes))
	}
	a.slabs = nil
	clear(a.byID)
	a.recordSlabs()
	return firstErr
}
