package wire

import (
	"github.com/pkg/errors"
)

// ElementCodec converts one kind of list element to and from its fixed-width encoding.
type ElementCodec[E any] interface {
	// Tag is written into (and expected from) every block header.
	Tag() Tag
	// ElementSize is the encoded size of one element for the given dof.
	ElementSize(dof int) int
	// DOF returns the shared per-element field count of elems, or 0 for fixed-shape elements.
	DOF(elems []E) (int, error)
	// Put encodes e at the front of dst.
	Put(dst []byte, e E)
	// Get decodes one element from the front of src.
	Get(src []byte, dof int) E
}

// EncodeBlock returns the header and elements of elems as one block.
func EncodeBlock[E any](c ElementCodec[E], elems []E) ([]byte, error) {
	return AppendBlock(nil, c, elems)
}

// AppendBlock appends the block encoding of elems to dst, growing it as needed.
func AppendBlock[E any](dst []byte, c ElementCodec[E], elems []E) ([]byte, error) {
	dof, err := c.DOF(elems)
	if err != nil {
		return nil, err
	}
	return appendBlock(dst, c, elems, dof)
}

func appendBlock[E any](dst []byte, c ElementCodec[E], elems []E, dof int) ([]byte, error) {
	h := Header{Tag: c.Tag(), Count: len(elems), DOF: dof}
	dst, err := AppendHeader(dst, h)
	if err != nil {
		return nil, err
	}
	size := c.ElementSize(dof)
	start := len(dst)
	dst = grow(dst, len(elems)*size)
	for i, e := range elems {
		c.Put(dst[start+i*size:], e)
	}
	return dst, nil
}

// AppendChunk is AppendBlock for a slice of a larger list whose dof is already known.
func AppendChunk[E any](dst []byte, c ElementCodec[E], elems []E, dof int) ([]byte, error) {
	return appendBlock(dst, c, elems, dof)
}

// DecodeBlock parses a block that must carry the codec's tag.
func DecodeBlock[E any](c ElementCodec[E], src []byte) ([]E, error) {
	h, err := ReadHeader(src, c.Tag())
	if err != nil {
		return nil, err
	}
	return AppendElements(nil, c, h, src[h.Size():])
}

// AppendElements decodes h.Count elements from payload and appends them to dst.
func AppendElements[E any](dst []E, c ElementCodec[E], h Header, payload []byte) ([]E, error) {
	if h.Tag != c.Tag() {
		return nil, errors.Wrapf(ErrProtocolMismatch, "expected %v, found %v", c.Tag(), h.Tag)
	}
	size := c.ElementSize(h.DOF)
	if size == 0 && h.Count > 0 {
		return nil, errors.Wrapf(ErrShape, "%d %v elements of zero size", h.Count, h.Tag)
	}
	need, err := h.PayloadSize()
	if err != nil {
		return nil, err
	}
	if len(payload) < need {
		return nil, errors.Wrapf(ErrTruncated, "%d %v elements need %d bytes, have %d",
			h.Count, h.Tag, need, len(payload))
	}
	if dst == nil {
		dst = make([]E, 0, h.Count)
	}
	for i := 0; i < h.Count; i++ {
		dst = append(dst, c.Get(payload[i*size:], h.DOF))
	}
	return dst, nil
}

func grow(b []byte, n int) []byte {
	if cap(b)-len(b) < n {
		nb := make([]byte, len(b), len(b)+n)
		copy(nb, b)
		b = nb
	}
	return b[:len(b)+n]
}
