// Package shmem provides the memory-mapped file region that both sides of a bridge session read
// and write blocks through.
package shmem

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

var (
	// ErrCapacity is returned when a read or write would cross the end of the region.
	ErrCapacity = errors.New("shared memory capacity exceeded")
	// ErrUnsupported is returned on platforms without mmap support.
	ErrUnsupported = errors.New("shared memory regions are not supported on this platform")
	// ErrClosed is returned when a closed region is used.
	ErrClosed = errors.New("shared memory region is closed")
)

// DefaultPath returns the backing file name for the session owned by process pid. An empty dir
// uses os.TempDir().
func DefaultPath(dir string, pid int) string {
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, fmt.Sprintf("boofbridge_mmap_%d", pid))
}

// Region is a fixed capacity byte buffer backed by a file mapped into memory. A Region is not
// safe for concurrent use; callers serialize access.
type Region struct {
	path     string
	capacity int
	file     *os.File
	mem      []byte
	offset   int
}

// Create creates (or truncates) the file at path, sizes it to size bytes and maps it.
func Create(path string, size int) (*Region, error) {
	if size <= 0 {
		return nil, errors.Errorf("invalid region size %d", size)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o600)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create region file %s", path)
	}
	if err := file.Truncate(int64(size)); err != nil {
		//nolint:errcheck
		file.Close()
		return nil, errors.Wrap(err, "failed to size region file")
	}
	return mapFile(path, file, size)
}

// Open maps an existing file at its current size. The other side of the session must have
// created and sized it already.
func Open(path string) (*Region, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open region file %s", path)
	}
	info, err := file.Stat()
	if err != nil {
		//nolint:errcheck
		file.Close()
		return nil, errors.Wrap(err, "failed to stat region file")
	}
	if info.Size() == 0 {
		//nolint:errcheck
		file.Close()
		return nil, errors.Errorf("region file %s is empty", path)
	}
	return mapFile(path, file, int(info.Size()))
}

func mapFile(path string, file *os.File, size int) (*Region, error) {
	mem, err := mmap(file, size)
	if err != nil {
		//nolint:errcheck
		file.Close()
		return nil, err
	}
	return &Region{path: path, capacity: size, file: file, mem: mem}, nil
}

// Path returns the backing file path.
func (r *Region) Path() string {
	return r.path
}

// Capacity returns the size of the region in bytes.
func (r *Region) Capacity() int {
	return r.capacity
}

// Offset returns the current cursor.
func (r *Region) Offset() int {
	return r.offset
}

// Seek moves the cursor to an absolute offset.
func (r *Region) Seek(offset int) error {
	if r.mem == nil {
		return ErrClosed
	}
	if offset < 0 || offset > r.capacity {
		return errors.Wrapf(ErrCapacity, "seek to %d in region of %d bytes", offset, r.capacity)
	}
	r.offset = offset
	return nil
}

// Read returns the next n bytes and advances the cursor. The returned slice aliases the mapping
// and is only valid until the next write by either process.
func (r *Region) Read(n int) ([]byte, error) {
	if r.mem == nil {
		return nil, ErrClosed
	}
	if n < 0 || n > r.capacity-r.offset {
		return nil, errors.Wrapf(ErrCapacity, "read of %d bytes at offset %d in region of %d bytes",
			n, r.offset, r.capacity)
	}
	b := r.mem[r.offset : r.offset+n]
	r.offset += n
	return b, nil
}

// Write copies b at the cursor and advances it. Nothing is written if b does not fit.
func (r *Region) Write(b []byte) error {
	if r.mem == nil {
		return ErrClosed
	}
	if len(b) > r.capacity-r.offset {
		return errors.Wrapf(ErrCapacity, "write of %d bytes at offset %d in region of %d bytes",
			len(b), r.offset, r.capacity)
	}
	r.offset += copy(r.mem[r.offset:], b)
	return nil
}

// Close unmaps the region and closes the file. The file itself is left on disk.
func (r *Region) Close() error {
	if r.mem == nil {
		return nil
	}
	err := munmap(r.mem)
	r.mem = nil
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	return err
}
