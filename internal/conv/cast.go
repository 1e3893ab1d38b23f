package conv

import (
	"fmt"
	"math"
)

// IntToUint32 converts int to uint32 safely.
func IntToUint32(v int) (uint32, error) {
	if v < 0 {
		return 0, fmt.Errorf("integer overflow: %d cannot be converted to uint32 (negative)", v)
	}
	if uint64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("integer overflow: %d cannot be converted to uint32 (too large)", v)
	}
	return uint32(v), nil
}

// PagesFor returns the number of pageSize pages needed to hold size bytes.
func PagesFor(size, pageSize int) (int, error) {
	if size < 0 || pageSize <= 0 {
		return 0, fmt.Errorf("invalid size %d for page size %d", size, pageSize)
	}
	// size + pageSize - 1 must not overflow.
	if size > math.MaxInt-(pageSize-1) {
		return 0, fmt.Errorf("integer overflow: %d bytes cannot be rounded to %d-byte pages", size, pageSize)
	}
	return (size + pageSize - 1) / pageSize, nil
}

// PagesToBytes returns n*pageSize.
func PagesToBytes(n, pageSize int) (int, error) {
	if n < 0 || pageSize <= 0 {
		return 0, fmt.Errorf("invalid page count %d for page size %d", n, pageSize)
	}
	if n > math.MaxInt/pageSize {
		return 0, fmt.Errorf("integer overflow: %d pages of %d bytes", n, pageSize)
	}
	return n * pageSize, nil
}
