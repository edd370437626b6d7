package wire

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

var (
	// ErrProtocolMismatch is returned when a block's tag differs from the one the reader expects.
	ErrProtocolMismatch = errors.New("protocol mismatch")
	// ErrShape is returned for elements that do not share a shape, or images with an unexpected
	// band count.
	ErrShape = errors.New("inconsistent element shape")
	// ErrTruncated is returned when a block is shorter than its header says.
	ErrTruncated = errors.New("truncated block")
)

// Header precedes every list block. DOF is only encoded for tuple tags.
type Header struct {
	Tag   Tag
	Count int
	DOF   int
}

// Size returns the encoded size of the header.
func (h Header) Size() int {
	return h.Tag.HeaderSize()
}

// PayloadSize returns the number of bytes of elements that follow the header. It fails with
// ErrTruncated when no block could be that large.
func (h Header) PayloadSize() (int, error) {
	if h.Tag.Family() == FamilyTuple {
		return blockSize(h.Count, h.DOF, h.Tag.Width())
	}
	return blockSize(h.Count, h.Tag.ElementSize(0))
}

// AppendHeader appends the big-endian encoding of h to dst.
func AppendHeader(dst []byte, h Header) ([]byte, error) {
	if h.Tag.Family() == FamilyUnknown || h.Tag.Family() == FamilyImage {
		return nil, errors.Errorf("%v is not a list tag", h.Tag)
	}
	if h.Count < 0 || int64(h.Count) > math.MaxUint32 {
		return nil, errors.Errorf("count %d out of range", h.Count)
	}
	dst = binary.BigEndian.AppendUint16(dst, uint16(h.Tag))
	dst = binary.BigEndian.AppendUint32(dst, uint32(h.Count))
	if h.Tag.Family() == FamilyTuple {
		if h.DOF < 0 || int64(h.DOF) > math.MaxUint32 {
			return nil, errors.Errorf("dof %d out of range", h.DOF)
		}
		dst = binary.BigEndian.AppendUint32(dst, uint32(h.DOF))
	}
	return dst, nil
}

// ReadHeader parses a list header from the front of src and checks its tag against want.
func ReadHeader(src []byte, want Tag) (Header, error) {
	if len(src) < 2 {
		return Header{}, errors.Wrap(ErrTruncated, "missing tag")
	}
	tag := Tag(binary.BigEndian.Uint16(src))
	if tag != want {
		return Header{}, errors.Wrapf(ErrProtocolMismatch, "expected %v, found %v", want, tag)
	}
	if len(src) < tag.HeaderSize() {
		return Header{}, errors.Wrapf(ErrTruncated, "%v header needs %d bytes, have %d",
			tag, tag.HeaderSize(), len(src))
	}
	h := Header{Tag: tag, Count: int(binary.BigEndian.Uint32(src[2:]))}
	if tag.Family() == FamilyTuple {
		h.DOF = int(binary.BigEndian.Uint32(src[6:]))
	}
	return h, nil
}

// ImageHeader precedes an image block.
type ImageHeader struct {
	Tag    Tag
	Width  int
	Height int
	Bands  int
}

// PayloadSize returns the number of pixel bytes that follow the header.
func (h ImageHeader) PayloadSize() (int, error) {
	return blockSize(h.Width, h.Height, h.Bands, h.Tag.Width())
}

// blockSize multiplies the dimensions read from a header.
func blockSize(dims ...int) (int, error) {
	n := 1
	for _, d := range dims {
		if d < 0 {
			return 0, errors.Wrapf(ErrShape, "negative dimension in %v", dims)
		}
		if d != 0 && n > math.MaxInt/d {
			return 0, errors.Wrapf(ErrTruncated, "%v exceeds the largest possible block", dims)
		}
		n *= d
	}
	return n, nil
}

// AppendImageHeader appends the big-endian encoding of h to dst.
func AppendImageHeader(dst []byte, h ImageHeader) []byte {
	dst = binary.BigEndian.AppendUint16(dst, uint16(h.Tag))
	dst = binary.BigEndian.AppendUint32(dst, uint32(h.Width))
	dst = binary.BigEndian.AppendUint32(dst, uint32(h.Height))
	return binary.BigEndian.AppendUint32(dst, uint32(h.Bands))
}

// ReadImageHeader parses an image header from the front of src and checks its tag against want.
func ReadImageHeader(src []byte, want Tag) (ImageHeader, error) {
	if len(src) < ImageHeaderSize {
		return ImageHeader{}, errors.Wrapf(ErrTruncated, "image header needs %d bytes, have %d",
			ImageHeaderSize, len(src))
	}
	tag := Tag(binary.BigEndian.Uint16(src))
	if tag != want {
		return ImageHeader{}, errors.Wrapf(ErrProtocolMismatch, "expected %v, found %v", want, tag)
	}
	return ImageHeader{
		Tag:    tag,
		Width:  int(binary.BigEndian.Uint32(src[2:])),
		Height: int(binary.BigEndian.Uint32(src[6:])),
		Bands:  int(binary.BigEndian.Uint32(src[10:])),
	}, nil
}
