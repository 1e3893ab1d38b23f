// Package pagealloc provides a page-run allocator over anonymously mapped
// slabs.
//
// Memory is mapped in fixed-size slabs. Each slab is split into equally sized
// pages tracked by flat bitmaps, and an allocation is a contiguous run of
// pages inside one slab. Freed pages stay mapped and dirty until Purge hands
// them back to the OS; fully empty slabs beyond a retained count are unmapped.
//
// # Quick Start
//
//	ctx := context.Background()
//	a, err := pagealloc.New(
//	    pagealloc.WithSlabPages(256),
//	    pagealloc.WithMemoryLimit(64<<20),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer a.Close()
//
//	buf, err := a.Alloc(ctx, 10_000) // three 4 KiB pages
//	if err != nil {
//	    log.Fatal(err)
//	}
//	copy(buf.Data, payload)
//	_ = a.Free(buf)
//
//	purged, err := a.Purge(ctx) // return dirty pages to the OS
//
// # Placement
//
// Alloc is first fit: slabs are tried in the order they were mapped, and
// within a slab the lowest free run long enough wins. Each slab tracks its
// longest free run, so slabs that cannot satisfy a request are skipped
// without scanning.
//
// # Purging
//
// A page is dirty once it has been allocated and freed without an
// intervening purge. Purge walks dirty runs slab by slab, in parallel up to
// WithPurgeWorkers, and paces the bytes it releases with WithPurgeRate.
//
// # Observability
//
// WithLogger accepts a *Logger wrapping log/slog. WithMetricsCollector
// accepts any MetricsCollector; BasicMetricsCollector keeps atomic counters
// and the prommetrics package exports them to Prometheus.
//
// # Thread Safety
//
// An Allocator is safe for concurrent use.
package pagealloc
