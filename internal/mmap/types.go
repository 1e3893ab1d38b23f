package mmap

import "errors"

// AccessPattern is advice about how a range of a mapping will be used.
type AccessPattern int

const (
	// AccessDefault resets any earlier advice.
	AccessDefault AccessPattern = iota
	// AccessWillNeed asks the kernel to fault the range in ahead of use.
	AccessWillNeed
	// AccessDontNeed hands the backing pages of the range back to the kernel.
	// The range stays mapped. On Linux and Windows it reads back as zero on
	// next touch; elsewhere the old contents may survive.
	AccessDontNeed
)

var (
	// ErrClosed is returned when using a mapping after Close.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned when the requested mapping size is not positive.
	ErrInvalidSize = errors.New("mmap: invalid size")
	// ErrOutOfBounds is returned for a range that does not lie inside the mapping.
	ErrOutOfBounds = errors.New("mmap: out of bounds")
)
