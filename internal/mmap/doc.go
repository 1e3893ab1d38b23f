// Package mmap maps anonymous memory for slabs and returns idle pages of it to
// the kernel.
//
//	m, err := mmap.MapAnon(512 * 4096)
//	if err != nil {
//	    return err
//	}
//	defer m.Close()
//
//	buf := m.Bytes()
//	_ = m.AdviseRange(8*4096, 8*4096, mmap.AccessDontNeed) // drop pages [8, 16)
//
// On Unix the mapping is mmap(2) with MAP_ANON|MAP_PRIVATE and advice goes
// through madvise(2). On Windows it is VirtualAlloc, and AccessDontNeed
// decommits and recommits the range.
//
// Close may race with other methods only through its atomic flag; callers
// must stop touching Bytes before calling it.
package mmap
