package pagealloc

import (
	"errors"
	"os"

	"github.com/hupe1980/pagealloc/internal/conv"
)

const (
	// DefaultPageSize is the page size used when WithPageSize is not given,
	// raised to the OS page size where that is larger.
	DefaultPageSize = 4096

	// DefaultSlabPages is the number of pages per slab used when
	// WithSlabPages is not given.
	DefaultSlabPages = 512

	// DefaultRetainEmptySlabs is the number of empty slabs Purge keeps mapped.
	DefaultRetainEmptySlabs = 1
)

type options struct {
	pageSize         int
	slabPages        int
	memoryLimit      int64
	purgeRate        int64
	purgeWorkers     int
	retainEmptySlabs int
	metricsCollector MetricsCollector
	logger           *Logger
}

func defaultOptions() options {
	return options{
		pageSize:         max(DefaultPageSize, os.Getpagesize()),
		slabPages:        DefaultSlabPages,
		purgeWorkers:     1,
		retainEmptySlabs: DefaultRetainEmptySlabs,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
}

func (o *options) validate() error {
	osPage := os.Getpagesize()
	if o.pageSize <= 0 || o.pageSize&(o.pageSize-1) != 0 || o.pageSize%osPage != 0 {
		return &ErrInvalidOption{
			Option: "PageSize",
			Value:  o.pageSize,
			cause:  errors.New("must be a power of two and a multiple of the OS page size"),
		}
	}
	if o.slabPages <= 0 {
		return &ErrInvalidOption{Option: "SlabPages", Value: o.slabPages}
	}
	if _, err := conv.PagesToBytes(o.slabPages, o.pageSize); err != nil {
		return &ErrInvalidOption{Option: "SlabPages", Value: o.slabPages, cause: err}
	}
	if o.memoryLimit < 0 {
		return &ErrInvalidOption{Option: "MemoryLimit", Value: o.memoryLimit}
	}
	if o.purgeRate < 0 {
		return &ErrInvalidOption{Option: "PurgeRate", Value: o.purgeRate}
	}
	if o.purgeWorkers <= 0 {
		return &ErrInvalidOption{Option: "PurgeWorkers", Value: o.purgeWorkers}
	}
	if o.retainEmptySlabs < 0 {
		return &ErrInvalidOption{Option: "RetainEmptySlabs", Value: o.retainEmptySlabs}
	}
	return nil
}

// Option configures an Allocator.
type Option func(*options)

// WithPageSize sets the page size in bytes. It must be a power of two and a
// multiple of the OS page size so purged pages can be handed back to the
// kernel.
func WithPageSize(size int) Option {
	return func(o *options) {
		o.pageSize = size
	}
}

// WithSlabPages sets the number of pages in each slab. It also bounds the
// largest single allocation.
func WithSlabPages(n int) Option {
	return func(o *options) {
		o.slabPages = n
	}
}

// WithMemoryLimit caps the total bytes of mapped slab memory. Zero means no
// limit.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithPurgeRate caps how many bytes per second Purge returns to the OS. Zero
// means unlimited.
func WithPurgeRate(bytesPerSec int64) Option {
	return func(o *options) {
		o.purgeRate = bytesPerSec
	}
}

// WithPurgeWorkers sets how many slabs are purged concurrently.
func WithPurgeWorkers(n int) Option {
	return func(o *options) {
		o.purgeWorkers = n
	}
}

// WithRetainEmptySlabs sets how many empty slabs Purge keeps mapped for
// reuse. Empty slabs beyond this count are unmapped.
func WithRetainEmptySlabs(n int) Option {
	return func(o *options) {
		o.retainEmptySlabs = n
	}
}

// WithLogger sets the logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets the metrics collector.
//
// If nil is passed, NoopMetricsCollector is used.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}
