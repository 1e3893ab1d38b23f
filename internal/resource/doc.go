// Package resource enforces allocator-wide limits.
//
// A Controller tracks three independent budgets:
//
//	memory   AcquireMemory / ReleaseMemory                  fail fast, never blocks
//	workers  AcquirePurgeWorker / ReleasePurgeWorker        weighted semaphore
//	rate     AcquirePurge / TryAcquirePurge                 token bucket in bytes
//
// The memory budget is charged once per mapped slab and refunded when the
// slab is unmapped:
//
//	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 30})
//	if err := rc.AcquireMemory(slabBytes); err != nil {
//	    return err // ErrMemoryLimitExceeded
//	}
//	defer rc.ReleaseMemory(slabBytes)
//
// The purge rate paces madvise work so a large purge does not stall the
// process:
//
//	if err := rc.AcquirePurge(ctx, runBytes); err != nil {
//	    return err
//	}
//
// Every method is safe on a nil *Controller and then imposes no limit.
package resource
