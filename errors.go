package pagealloc

import (
	"errors"
	"fmt"

	"github.com/hupe1980/pagealloc/internal/mmap"
	"github.com/hupe1980/pagealloc/internal/resource"
)

var (
	// ErrClosed is returned by operations on a closed Allocator.
	ErrClosed = errors.New("allocator is closed")

	// ErrInvalidSize is returned when an allocation size is not positive.
	ErrInvalidSize = errors.New("allocation size must be positive")

	// ErrTooLarge is returned when an allocation does not fit in a single slab.
	ErrTooLarge = errors.New("allocation larger than a slab")

	// ErrInvalidAllocation is returned when freeing an allocation that is not
	// live: an unknown slab, a range that was already freed, or a range that
	// was never handed out.
	ErrInvalidAllocation = errors.New("invalid allocation")

	// ErrMemoryLimitExceeded is returned when mapping another slab would exceed
	// the configured memory limit.
	ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

	// ErrSlabLimit is returned when the slab id space is exhausted.
	ErrSlabLimit = errors.New("too many slabs")
)

// ErrInvalidOption indicates a rejected configuration value.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidOption struct {
	Option string
	Value  any
	cause  error
}

func (e *ErrInvalidOption) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("invalid option %s=%v: %v", e.Option, e.Value, e.cause)
	}
	return fmt.Sprintf("invalid option %s=%v", e.Option, e.Value)
}

func (e *ErrInvalidOption) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, resource.ErrMemoryLimitExceeded) {
		return fmt.Errorf("%w: %w", ErrMemoryLimitExceeded, err)
	}
	if errors.Is(err, mmap.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}

	return err
}
