//go:build unix

package shmem

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestCreateAndOpenShareBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region")
	remote, err := Create(path, 64)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, remote.Close(), test.ShouldBeNil)
	}()
	test.That(t, remote.Capacity(), test.ShouldEqual, 64)
	test.That(t, remote.Path(), test.ShouldEqual, path)

	local, err := Open(path)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, local.Close(), test.ShouldBeNil)
	}()
	test.That(t, local.Capacity(), test.ShouldEqual, 64)

	test.That(t, local.Write([]byte{1, 2, 3}), test.ShouldBeNil)
	test.That(t, local.Offset(), test.ShouldEqual, 3)

	got, err := remote.Read(3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, []byte{1, 2, 3})

	test.That(t, remote.Seek(10), test.ShouldBeNil)
	test.That(t, remote.Write([]byte{9}), test.ShouldBeNil)
	test.That(t, local.Seek(10), test.ShouldBeNil)
	got, err = local.Read(1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, []byte{9})
}

func TestBoundsChecked(t *testing.T) {
	r, err := Create(filepath.Join(t.TempDir(), "region"), 8)
	test.That(t, err, test.ShouldBeNil)
	defer r.Close()

	test.That(t, r.Seek(6), test.ShouldBeNil)
	err = r.Write([]byte{1, 2, 3})
	test.That(t, errors.Is(err, ErrCapacity), test.ShouldBeTrue)
	test.That(t, r.Offset(), test.ShouldEqual, 6)

	test.That(t, r.Seek(0), test.ShouldBeNil)
	all, err := r.Read(8)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, all, test.ShouldResemble, make([]byte, 8))

	_, err = r.Read(1)
	test.That(t, errors.Is(err, ErrCapacity), test.ShouldBeTrue)
	test.That(t, errors.Is(r.Seek(9), ErrCapacity), test.ShouldBeTrue)
	test.That(t, errors.Is(r.Seek(-1), ErrCapacity), test.ShouldBeTrue)

	test.That(t, r.Seek(4), test.ShouldBeNil)
	_, err = r.Read(math.MaxInt)
	test.That(t, errors.Is(err, ErrCapacity), test.ShouldBeTrue)
	test.That(t, r.Offset(), test.ShouldEqual, 4)
}

func TestClose(t *testing.T) {
	r, err := Create(filepath.Join(t.TempDir(), "region"), 8)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.Close(), test.ShouldBeNil)
	test.That(t, r.Close(), test.ShouldBeNil)
	test.That(t, r.Write([]byte{1}), test.ShouldEqual, ErrClosed)
	_, err = r.Read(1)
	test.That(t, err, test.ShouldEqual, ErrClosed)
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = Create(filepath.Join(t.TempDir(), "zero"), 0)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDefaultPath(t *testing.T) {
	test.That(t, DefaultPath("/tmp/x", 42), test.ShouldEqual, "/tmp/x/boofbridge_mmap_42")
	test.That(t, filepath.Base(DefaultPath("", 7)), test.ShouldEqual, "boofbridge_mmap_7")
}
