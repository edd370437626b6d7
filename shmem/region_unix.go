//go:build unix

package shmem

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func mmap(file *os.File, size int) ([]byte, error) {
	mem, err := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrap(err, "failed to mmap region")
	}
	return mem, nil
}

func munmap(mem []byte) error {
	return errors.Wrap(unix.Munmap(mem), "failed to unmap region")
}
