package pagealloc

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// prommetrics package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordAlloc is called after each Alloc.
	// pages is the number of pages requested, err is nil if successful.
	RecordAlloc(pages int, duration time.Duration, err error)

	// RecordFree is called after each Free.
	RecordFree(pages int, err error)

	// RecordPurge is called after each Purge with the number of pages
	// returned to the OS.
	RecordPurge(pages int, duration time.Duration, err error)

	// RecordSlabs is called whenever a slab is mapped or unmapped.
	// slabs is the number of mapped slabs, bytes their total size.
	RecordSlabs(slabs int, bytes int64)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAlloc(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordFree(int, error)                 {}
func (NoopMetricsCollector) RecordPurge(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSlabs(int, int64)                {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AllocCount      atomic.Int64
	AllocErrors     atomic.Int64
	AllocPages      atomic.Int64
	AllocTotalNanos atomic.Int64
	FreeCount       atomic.Int64
	FreeErrors      atomic.Int64
	FreePages       atomic.Int64
	PurgeCount      atomic.Int64
	PurgeErrors     atomic.Int64
	PurgedPages     atomic.Int64
	PurgeTotalNanos atomic.Int64
	MappedSlabs     atomic.Int64
	MappedBytes     atomic.Int64
}

// RecordAlloc implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAlloc(pages int, duration time.Duration, err error) {
	b.AllocCount.Add(1)
	b.AllocTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AllocErrors.Add(1)
		return
	}
	b.AllocPages.Add(int64(pages))
}

// RecordFree implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFree(pages int, err error) {
	b.FreeCount.Add(1)
	if err != nil {
		b.FreeErrors.Add(1)
		return
	}
	b.FreePages.Add(int64(pages))
}

// RecordPurge implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPurge(pages int, duration time.Duration, err error) {
	b.PurgeCount.Add(1)
	b.PurgeTotalNanos.Add(duration.Nanoseconds())
	b.PurgedPages.Add(int64(pages))
	if err != nil {
		b.PurgeErrors.Add(1)
	}
}

// RecordSlabs implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSlabs(slabs int, bytes int64) {
	b.MappedSlabs.Store(int64(slabs))
	b.MappedBytes.Store(bytes)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AllocCount:    b.AllocCount.Load(),
		AllocErrors:   b.AllocErrors.Load(),
		AllocPages:    b.AllocPages.Load(),
		AllocAvgNanos: avg(b.AllocTotalNanos.Load(), b.AllocCount.Load()),
		FreeCount:     b.FreeCount.Load(),
		FreeErrors:    b.FreeErrors.Load(),
		FreePages:     b.FreePages.Load(),
		PurgeCount:    b.PurgeCount.Load(),
		PurgeErrors:   b.PurgeErrors.Load(),
		PurgedPages:   b.PurgedPages.Load(),
		PurgeAvgNanos: avg(b.PurgeTotalNanos.Load(), b.PurgeCount.Load()),
		MappedSlabs:   b.MappedSlabs.Load(),
		MappedBytes:   b.MappedBytes.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AllocCount    int64
	AllocErrors   int64
	AllocPages    int64
	AllocAvgNanos int64
	FreeCount     int64
	FreeErrors    int64
	FreePages     int64
	PurgeCount    int64
	PurgeErrors   int64
	PurgedPages   int64
	PurgeAvgNanos int64
	MappedSlabs   int64
	MappedBytes   int64
}
