package mmap

import "sync/atomic"

// Mapping is a private read-write anonymous mapping.
type Mapping struct {
	data   []byte
	closed atomic.Bool
}

// MapAnon maps size bytes of zero-filled anonymous memory.
func MapAnon(size int) (*Mapping, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	data, err := osMap(size)
	if err != nil {
		return nil, err
	}
	return &Mapping{data: data}, nil
}

// Bytes returns the mapped memory, or nil once the mapping is closed. The
// slice must not be used after Close.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Size returns the length of the mapping in bytes.
func (m *Mapping) Size() int { return len(m.data) }

// Advise applies pattern to the whole mapping.
func (m *Mapping) Advise(pattern AccessPattern) error {
	return m.AdviseRange(0, len(m.data), pattern)
}

// AdviseRange applies pattern to [offset, offset+size). Ranges that are not
// aligned to the OS page size are accepted and left alone.
func (m *Mapping) AdviseRange(offset, size int, pattern AccessPattern) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if offset < 0 || size < 0 || offset > len(m.data)-size {
		return ErrOutOfBounds
	}
	if size == 0 {
		return nil
	}
	return osAdvise(m.data[offset:offset+size:offset+size], pattern)
}

// Close unmaps the memory. Calling it again is a no-op.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	return osUnmap(m.data)
}
