//go:build unix

package mmap

import "golang.org/x/sys/unix"

var advice = map[AccessPattern]int{
	AccessDefault:  unix.MADV_NORMAL,
	AccessWillNeed: unix.MADV_WILLNEED,
	AccessDontNeed: unix.MADV_DONTNEED,
}

func osMap(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
}

func osUnmap(data []byte) error {
	return unix.Munmap(data)
}

func osAdvise(data []byte, pattern AccessPattern) error {
	adv, ok := advice[pattern]
	if !ok {
		adv = unix.MADV_NORMAL
	}
	// EINVAL means an unaligned range; advice is only a hint.
	if err := unix.Madvise(data, adv); err != nil && err != unix.EINVAL {
		return err
	}
	return nil
}
