// Package mmapio implements the memory-mapped input acquisition path of
// spec §4.4/§5: map a file with sequential-access advice, and release
// (unmap) the already-processed page-aligned prefix as the NDJSON pipeline
// advances window by window, so resident memory stays bounded by one
// window's worth of pages.
package mmapio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/fastjq/fastjq/internal/diag"
)

// File is a memory-mapped, progressively-releasable view of a file. It is
// not safe for concurrent Release calls.
type File struct {
	f        *os.File
	data     []byte
	pageSize int
	released int // bytes already released from the front of data
}

// Open memory-maps path for sequential reading. Callers should check
// DISABLE_MMAP before calling Open and use a buffered reader instead when
// set (spec §6.2).
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mmapio: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmapio: %w", err)
	}
	size := info.Size()
	if size == 0 {
		return &File{f: f, data: nil, pageSize: os.Getpagesize()}, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmapio: mmap: %w", err)
	}
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
	diag.WindowOpened(0, len(data))
	return &File{f: f, data: data, pageSize: os.Getpagesize()}, nil
}

// Bytes returns the full mapped region. Callers must not retain slices into
// it past the corresponding Release call for that region.
func (m *File) Bytes() []byte { return m.data }

// Release advises the OS that the page-aligned prefix up to (but not past)
// upTo bytes from the start of the mapping is no longer needed, per spec
// §4.4 step 5 / §5's "progressive unmap" resident-set bound. It is safe to
// call with a upTo that isn't page-aligned; the call rounds down.
func (m *File) Release(upTo int) {
	if m.data == nil || upTo <= m.released {
		return
	}
	aligned := (upTo / m.pageSize) * m.pageSize
	if aligned <= m.released {
		return
	}
	_ = unix.Madvise(m.data[m.released:aligned], unix.MADV_DONTNEED)
	diag.WindowReleased(m.released, aligned-m.released)
	m.released = aligned
}

// Close unmaps the file and closes the underlying descriptor.
func (m *File) Close() error {
	var err error
	if m.data != nil {
		err = unix.Munmap(m.data)
	}
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}
