//go:build windows

package mmap

import (
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

func addr(data []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(data)))
}

func osMap(size int) ([]byte, error) {
	// Committed pages are only backed by physical memory once touched.
	p, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), size), nil
}

func osUnmap(data []byte) error {
	return windows.VirtualFree(addr(data), 0, windows.MEM_RELEASE)
}

func osAdvise(data []byte, pattern AccessPattern) error {
	if pattern != AccessDontNeed {
		return nil
	}
	// Decommitting rounds out to whole pages, so only aligned ranges are
	// safe to release.
	page := uintptr(os.Getpagesize())
	p, n := addr(data), uintptr(len(data))
	if p%page != 0 || n%page != 0 {
		return nil
	}
	if err := windows.VirtualFree(p, n, windows.MEM_DECOMMIT); err != nil {
		return err
	}
	_, err := windows.VirtualAlloc(p, n, windows.MEM_COMMIT, windows.PAGE_READWRITE)
	return err
}
