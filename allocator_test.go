package pagealloc

import (
	"context"
	"errors"
	"os"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/pagealloc/testutil"
)

func newTestAllocator(t *testing.T, opts ...Option) *Allocator {
	t.Helper()
	a, err := New(append([]Option{WithSlabPages(16)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNew_Defaults(t *testing.T) {
	a, err := New()
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, max(DefaultPageSize, os.Getpagesize()), a.PageSize())
	assert.Equal(t, DefaultSlabPages, a.SlabPages())
	assert.Zero(t, a.Stats().Slabs)
}

func TestNew_InvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		opt    Option
		option string
	}{
		{"zero page size", WithPageSize(0), "PageSize"},
		{"non power of two", WithPageSize(3 * os.Getpagesize()), "PageSize"},
		{"below os page", WithPageSize(os.Getpagesize() / 2), "PageSize"},
		{"zero slab pages", WithSlabPages(0), "SlabPages"},
		{"negative memory limit", WithMemoryLimit(-1), "MemoryLimit"},
		{"negative purge rate", WithPurgeRate(-1), "PurgeRate"},
		{"zero purge workers", WithPurgeWorkers(0), "PurgeWorkers"},
		{"negative retain", WithRetainEmptySlabs(-1), "RetainEmptySlabs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opt)
			require.Error(t, err)
			var ioe *ErrInvalidOption
			require.ErrorAs(t, err, &ioe)
			assert.Equal(t, tt.option, ioe.Option)
		})
	}
}

func TestAlloc(t *testing.T) {
	ctx := context.Background()
	a := newTestAllocator(t)
	ps := a.PageSize()

	buf, err := a.Alloc(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), buf.Slab)
	assert.Equal(t, 0, buf.Page)
	assert.Equal(t, 1, buf.Pages)
	assert.Len(t, buf.Data, 1)
	assert.Equal(t, ps, cap(buf.Data))

	buf, err = a.Alloc(ctx, ps+1)
	require.NoError(t, err)
	assert.Equal(t, 1, buf.Page)
	assert.Equal(t, 2, buf.Pages)
	assert.Len(t, buf.Data, ps+1)

	// Fresh slab memory is zero and writable.
	full := buf.Data[:cap(buf.Data)]
	for i := range full {
		require.Zero(t, full[i])
		full[i] = 0xAB
	}

	st := a.Stats()
	assert.Equal(t, 1, st.Slabs)
	assert.Equal(t, 3, st.ActivePages)
	assert.Equal(t, int64(16*ps), st.MappedBytes)
}

func TestAlloc_Errors(t *testing.T) {
	ctx := context.Background()
	a := newTestAllocator(t)

	_, err := a.Alloc(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidSize)
	_, err = a.Alloc(ctx, -5)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = a.Alloc(ctx, 16*a.PageSize()+1)
	assert.ErrorIs(t, err, ErrTooLarge)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = a.Alloc(cctx, 1)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Zero(t, a.Stats().Slabs)
}

func TestAlloc_FirstFitAcrossSlabs(t *testing.T) {
	ctx := context.Background()
	a := newTestAllocator(t, WithSlabPages(4))
	ps := a.PageSize()

	first, err := a.Alloc(ctx, 3*ps)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), first.Slab)
	assert.Equal(t, 0, first.Page)

	// Slab 0 has a single free page left.
	second, err := a.Alloc(ctx, 2*ps)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), second.Slab)
	assert.Equal(t, 0, second.Page)

	third, err := a.Alloc(ctx, ps)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), third.Slab)
	assert.Equal(t, 3, third.Page)

	// A freed hole in slab 0 is reused before slab 1's tail.
	require.NoError(t, a.Free(first))
	fourth, err := a.Alloc(ctx, 2*ps)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), fourth.Slab)
	assert.Equal(t, 0, fourth.Page)

	assert.Equal(t, 2, a.Stats().Slabs)
}

func TestAlloc_MemoryLimit(t *testing.T) {
	ctx := context.Background()
	ps := os.Getpagesize()
	a := newTestAllocator(t, WithPageSize(ps), WithSlabPages(4), WithMemoryLimit(int64(4*ps)))

	buf, err := a.Alloc(ctx, 4*ps)
	require.NoError(t, err)

	_, err = a.Alloc(ctx, 1)
	require.ErrorIs(t, err, ErrMemoryLimitExceeded)

	// Freeing makes room in the existing slab.
	require.NoError(t, a.Free(buf))
	_, err = a.Alloc(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4*ps), a.Stats().MappedBytes)
}

func TestFree(t *testing.T) {
	ctx := context.Background()
	a := newTestAllocator(t)

	buf, err := a.Alloc(ctx, 2*a.PageSize())
	require.NoError(t, err)
	require.NoError(t, a.Free(buf))
	assert.Zero(t, a.Stats().ActivePages)
	assert.Equal(t, 2, a.Stats().DirtyPages)

	t.Run("double free", func(t *testing.T) {
		err := a.Free(buf)
		assert.ErrorIs(t, err, ErrInvalidAllocation)
	})

	t.Run("unknown slab", func(t *testing.T) {
		err := a.Free(Allocation{Slab: 42, Page: 0, Pages: 1})
		assert.ErrorIs(t, err, ErrInvalidAllocation)
	})

	t.Run("out of range", func(t *testing.T) {
		err := a.Free(Allocation{Slab: 0, Page: 15, Pages: 2})
		assert.ErrorIs(t, err, ErrInvalidAllocation)
	})

	t.Run("partially free", func(t *testing.T) {
		other, err := a.Alloc(ctx, 1)
		require.NoError(t, err)
		err = a.Free(Allocation{Slab: other.Slab, Page: other.Page, Pages: 2})
		assert.ErrorIs(t, err, ErrInvalidAllocation)
		assert.NoError(t, a.Free(other))
	})
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	a := newTestAllocator(t, WithRetainEmptySlabs(1))

	keep, err := a.Alloc(ctx, a.PageSize())
	require.NoError(t, err)
	bufs := make([]Allocation, 3)
	for i := range bufs {
		bufs[i], err = a.Alloc(ctx, 2*a.PageSize())
		require.NoError(t, err)
		for j := range bufs[i].Data {
			bufs[i].Data[j] = 0xCD
		}
	}
	require.NoError(t, a.Free(bufs[0]))
	require.NoError(t, a.Free(bufs[2]))
	assert.Equal(t, 4, a.Stats().DirtyPages)

	purged, err := a.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, purged)
	assert.Zero(t, a.Stats().DirtyPages)
	assert.Equal(t, 3, a.Stats().ActivePages)

	purged, err = a.Purge(ctx)
	require.NoError(t, err)
	assert.Zero(t, purged)

	if runtime.GOOS == "linux" {
		// MADV_DONTNEED on private anonymous memory zero-fills on next touch.
		again, err := a.Alloc(ctx, 2*a.PageSize())
		require.NoError(t, err)
		assert.Equal(t, bufs[0].Page, again.Page)
		for _, b := range again.Data {
			require.Zero(t, b)
		}
	}
	assert.Equal(t, 0, keep.Page)
}

func TestPurge_ReleasesEmptySlabs(t *testing.T) {
	ctx := context.Background()
	a := newTestAllocator(t, WithSlabPages(2), WithRetainEmptySlabs(1))
	ps := a.PageSize()

	var bufs []Allocation
	for range 3 {
		buf, err := a.Alloc(ctx, 2*ps)
		require.NoError(t, err)
		bufs = append(bufs, buf)
	}
	require.Equal(t, 3, a.Stats().Slabs)

	for _, buf := range bufs[1:] {
		require.NoError(t, a.Free(buf))
	}
	_, err := a.Purge(ctx)
	require.NoError(t, err)

	// Slab 0 is busy, slab 1 is retained, slab 2 is unmapped.
	st := a.Stats()
	assert.Equal(t, 2, st.Slabs)
	assert.Equal(t, 1, st.EmptySlabs)
	assert.Equal(t, int64(2*2*ps), st.MappedBytes)

	_, err = a.ActivePages(2)
	assert.ErrorIs(t, err, ErrInvalidAllocation)
	assert.ErrorIs(t, a.Free(bufs[2]), ErrInvalidAllocation)

	// The retained slab serves the next request without a new mapping.
	buf, err := a.Alloc(ctx, ps)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), buf.Slab)
	assert.Equal(t, 2, a.Stats().Slabs)
}

func TestPurge_NoRetention(t *testing.T) {
	ctx := context.Background()
	a := newTestAllocator(t, WithRetainEmptySlabs(0))

	buf, err := a.Alloc(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, a.Free(buf))

	purged, err := a.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)
	assert.Equal(t, Stats{}, a.Stats())
}

func TestPurge_Canceled(t *testing.T) {
	a := newTestAllocator(t, WithPurgeRate(1<<30))

	buf, err := a.Alloc(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, a.Free(buf))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Purge(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, a.Stats().DirtyPages)
	assert.Equal(t, 1, a.Stats().Slabs)
}

func TestPurge_RateLimited(t *testing.T) {
	ctx := context.Background()
	ps := os.Getpagesize()
	a := newTestAllocator(t, WithPageSize(ps), WithPurgeRate(int64(ps)*1000), WithPurgeWorkers(2))

	var bufs []Allocation
	for range 4 {
		buf, err := a.Alloc(ctx, ps)
		require.NoError(t, err)
		bufs = append(bufs, buf)
	}
	for _, buf := range bufs {
		require.NoError(t, a.Free(buf))
	}

	purged, err := a.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, purged)
}

func TestActivePages(t *testing.T) {
	ctx := context.Background()
	a := newTestAllocator(t)
	ps := a.PageSize()

	x, err := a.Alloc(ctx, 2*ps)
	require.NoError(t, err)
	y, err := a.Alloc(ctx, 3*ps)
	require.NoError(t, err)
	require.NoError(t, a.Free(x))

	rb, err := a.ActivePages(y.Slab)
	require.NoError(t, err)
	assert.Equal(t, []uint32{2, 3, 4}, rb.ToArray())

	_, err = a.ActivePages(9)
	assert.ErrorIs(t, err, ErrInvalidAllocation)
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	a, err := New(WithSlabPages(4))
	require.NoError(t, err)

	buf, err := a.Alloc(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	_, err = a.Alloc(ctx, 1)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, a.Free(buf), ErrClosed)
	_, err = a.Purge(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = a.ActivePages(0)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, Stats{}, a.Stats())

	var nilAlloc *Allocator
	assert.NoError(t, nilAlloc.Close())
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	mc := &BasicMetricsCollector{}
	a := newTestAllocator(t, WithMetricsCollector(mc), WithRetainEmptySlabs(0))

	buf, err := a.Alloc(ctx, 3*a.PageSize())
	require.NoError(t, err)
	_, err = a.Alloc(ctx, 0)
	require.Error(t, err)
	require.NoError(t, a.Free(buf))
	require.Error(t, a.Free(buf))

	stats := mc.GetStats()
	assert.Equal(t, int64(2), stats.AllocCount)
	assert.Equal(t, int64(1), stats.AllocErrors)
	assert.Equal(t, int64(3), stats.AllocPages)
	assert.Equal(t, int64(2), stats.FreeCount)
	assert.Equal(t, int64(1), stats.FreeErrors)
	assert.Equal(t, int64(1), stats.MappedSlabs)

	_, err = a.Purge(ctx)
	require.NoError(t, err)
	stats = mc.GetStats()
	assert.Equal(t, int64(1), stats.PurgeCount)
	assert.Equal(t, int64(3), stats.PurgedPages)
	assert.Zero(t, stats.MappedSlabs)
	assert.Zero(t, stats.MappedBytes)
}

func TestConcurrentAllocFree(t *testing.T) {
	ctx := context.Background()
	a := newTestAllocator(t, WithSlabPages(64), WithPurgeWorkers(4))
	ps := a.PageSize()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := testutil.NewRNG(int64(w))
			var live []Allocation
			for i := 0; i < 300; i++ {
				if len(live) > 0 && rng.Intn(2) == 0 {
					j := rng.Intn(len(live))
					if err := a.Free(live[j]); err != nil {
						errs <- err
						return
					}
					live = append(live[:j], live[j+1:]...)
					continue
				}
				buf, err := a.Alloc(ctx, (1+rng.Intn(4))*ps)
				if err != nil {
					errs <- err
					return
				}
				// Ownership check: nobody else writes into our pages.
				buf.Data[0] = byte(w)
				live = append(live, buf)
				if i%50 == 0 {
					if _, err := a.Purge(ctx); err != nil {
						errs <- err
						return
					}
				}
				for _, l := range live {
					if l.Data[0] != byte(w) {
						errs <- errors.New("allocation overwritten by another worker")
						return
					}
				}
			}
			for _, l := range live {
				if err := a.Free(l); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Zero(t, a.Stats().ActivePages)
}
