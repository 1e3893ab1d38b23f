package resource

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when a reservation would push mapped
// memory past the limit.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config sets the allocator-wide limits. Zero values mean unlimited, except
// MaxPurgeWorkers which falls back to one.
type Config struct {
	// MemoryLimitBytes caps the bytes of mapped slab memory.
	MemoryLimitBytes int64

	// MaxPurgeWorkers caps how many slabs are purged at the same time.
	MaxPurgeWorkers int64

	// PurgeBytesPerSec caps how fast dirty pages go back to the OS. It is
	// also the burst size.
	PurgeBytesPerSec int64
}

// Controller enforces the limits of a Config. A nil *Controller enforces
// nothing.
type Controller struct {
	cfg Config

	budget *semaphore.Weighted // nil when memory is unlimited
	mapped atomic.Int64

	workers *semaphore.Weighted
	pacer   *rate.Limiter // nil when purging is unpaced
}

// NewController returns a Controller for cfg.
func NewController(cfg Config) *Controller {
	cfg.MaxPurgeWorkers = max(cfg.MaxPurgeWorkers, 1)
	c := &Controller{
		cfg:     cfg,
		workers: semaphore.NewWeighted(cfg.MaxPurgeWorkers),
	}
	if cfg.MemoryLimitBytes > 0 {
		c.budget = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}
	if cfg.PurgeBytesPerSec > 0 {
		c.pacer = rate.NewLimiter(rate.Limit(cfg.PurgeBytesPerSec), int(cfg.PurgeBytesPerSec))
	}
	return c
}

// AcquireMemory charges bytes against the memory limit. It never blocks; when
// the limit would be exceeded it returns ErrMemoryLimitExceeded and charges
// nothing.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	if c.budget != nil && !c.budget.TryAcquire(bytes) {
		return ErrMemoryLimitExceeded
	}
	c.mapped.Add(bytes)
	return nil
}

// ReleaseMemory returns bytes charged by AcquireMemory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	if c.budget != nil {
		c.budget.Release(bytes)
	}
	c.mapped.Add(-bytes)
}

// MemoryUsage returns the bytes currently charged.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.mapped.Load()
}

// MemoryLimit returns the memory limit, or 0 when unlimited.
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// MaxPurgeWorkers returns the purge concurrency limit.
func (c *Controller) MaxPurgeWorkers() int {
	if c == nil {
		return 1
	}
	return int(c.cfg.MaxPurgeWorkers)
}

// AcquirePurgeWorker blocks until a purge worker slot is free or ctx is done.
func (c *Controller) AcquirePurgeWorker(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.workers.Acquire(ctx, 1)
}

// TryAcquirePurgeWorker takes a purge worker slot if one is free.
func (c *Controller) TryAcquirePurgeWorker() bool {
	if c == nil {
		return true
	}
	return c.workers.TryAcquire(1)
}

// ReleasePurgeWorker frees a slot taken by AcquirePurgeWorker or
// TryAcquirePurgeWorker.
func (c *Controller) ReleasePurgeWorker() {
	if c == nil {
		return
	}
	c.workers.Release(1)
}

// AcquirePurge blocks until bytes may be purged under the rate limit or ctx is
// done. Requests larger than the burst wait for it in burst-sized steps.
func (c *Controller) AcquirePurge(ctx context.Context, bytes int) error {
	if c == nil || c.pacer == nil {
		return nil
	}
	burst := c.pacer.Burst()
	for ; bytes > 0; bytes -= burst {
		if err := c.pacer.WaitN(ctx, min(bytes, burst)); err != nil {
			return err
		}
	}
	return nil
}

// TryAcquirePurge reports whether bytes may be purged right now, consuming
// the allowance if so.
func (c *Controller) TryAcquirePurge(bytes int) bool {
	if c == nil || c.pacer == nil {
		return true
	}
	return c.pacer.AllowN(time.Now(), bytes)
}
