package worker

import (
	"github.com/pkg/errors"

	"go.viam.com/boofbridge/bridge"
	"go.viam.com/boofbridge/transfer"
	"go.viam.com/boofbridge/wire"
)

// view is the worker's end of the shared memory region.
type view struct{}

func (view) String() string {
	return "BoofMemoryMapped"
}

// imageObject holds the encoded pixels of an image.
type imageObject struct {
	h   wire.ImageHeader
	pix []byte
}

func (img *imageObject) class() string {
	switch {
	case img.h.Tag == wire.TagImageF32:
		return ClassGrayF32
	case img.h.Bands > 1:
		return ClassInterleavedU8
	default:
		return ClassGrayU8
	}
}

func (img *imageObject) String() string {
	return img.class()
}

func (w *Worker) invokeView(_ *view, method string, args []bridge.Value) (bridge.Value, error) {
	if w.region == nil {
		return bridge.Value{}, ErrNoSharedMemory
	}
	switch method {
	case transfer.MethodReadList:
		return w.readList(args)
	case transfer.MethodWriteList:
		return w.writeList(args)
	case transfer.MethodReadImage:
		return w.readImage(args)
	case transfer.MethodWriteImage:
		return w.writeImage(args)
	}
	return bridge.Value{}, errors.Wrapf(ErrNoSuchMethod, "%s on %s", method, ClassMemoryMapped)
}

func (w *Worker) listArg(args []bridge.Value, i int) (*list, error) {
	h, err := handleArg(args, i)
	if err != nil {
		return nil, err
	}
	obj, err := w.lookup(h)
	if err != nil {
		return nil, err
	}
	l, ok := obj.(*list)
	if !ok {
		return nil, errors.Errorf("%v is not a list", h)
	}
	return l, nil
}

func tagArg(args []bridge.Value, i int) (wire.Tag, error) {
	n, err := intArg(args, i)
	if err != nil {
		return 0, err
	}
	tag := wire.Tag(n)
	if n < 0 || !tag.Valid() {
		return 0, errors.Errorf("unknown tag %d", n)
	}
	return tag, nil
}

// readList appends the chunk in the region to the destination list.
func (w *Worker) readList(args []bridge.Value) (bridge.Value, error) {
	l, err := w.listArg(args, 0)
	if err != nil {
		return bridge.Value{}, err
	}
	tag, err := tagArg(args, 1)
	if err != nil {
		return bridge.Value{}, err
	}
	if err := w.region.Seek(0); err != nil {
		return bridge.Value{}, err
	}
	hb, err := w.region.Read(tag.HeaderSize())
	if err != nil {
		return bridge.Value{}, err
	}
	h, err := wire.ReadHeader(hb, tag)
	if err != nil {
		return bridge.Value{}, err
	}
	n, err := h.PayloadSize()
	if err != nil {
		return bridge.Value{}, err
	}
	payload, err := w.region.Read(n)
	if err != nil {
		return bridge.Value{}, err
	}
	if err := l.appendBlock(h, payload); err != nil {
		return bridge.Value{}, err
	}
	return bridge.IntValue(int64(h.Count)), nil
}

// writeList writes the chunk of the source list starting at the requested offset.
func (w *Worker) writeList(args []bridge.Value) (bridge.Value, error) {
	l, err := w.listArg(args, 0)
	if err != nil {
		return bridge.Value{}, err
	}
	tag, err := tagArg(args, 1)
	if err != nil {
		return bridge.Value{}, err
	}
	offset, err := intArg(args, 2)
	if err != nil {
		return bridge.Value{}, err
	}
	maxPer := transfer.MaxPerChunk(w.region.Capacity(), tag.ElementSize(l.dof))
	if maxPer < 1 && l.count > int(offset) {
		return bridge.Value{}, errors.Errorf("%v element does not fit in the region", tag)
	}
	h, payload, err := l.chunk(tag, int(offset), maxPer)
	if err != nil {
		return bridge.Value{}, err
	}
	block, err := wire.AppendHeader(make([]byte, 0, h.Size()+len(payload)), h)
	if err != nil {
		return bridge.Value{}, err
	}
	block = append(block, payload...)
	if err := w.region.Seek(0); err != nil {
		return bridge.Value{}, err
	}
	if err := w.region.Write(block); err != nil {
		return bridge.Value{}, err
	}
	return bridge.IntValue(int64(h.Count)), nil
}

// readImage copies the image in the region into the destination image, or a new one when the
// destination is null.
func (w *Worker) readImage(args []bridge.Value) (bridge.Value, error) {
	tag, err := tagArg(args, 0)
	if err != nil {
		return bridge.Value{}, err
	}
	if err := w.region.Seek(0); err != nil {
		return bridge.Value{}, err
	}
	hb, err := w.region.Read(wire.ImageHeaderSize)
	if err != nil {
		return bridge.Value{}, err
	}
	h, err := wire.ReadImageHeader(hb, tag)
	if err != nil {
		return bridge.Value{}, err
	}
	n, err := h.PayloadSize()
	if err != nil {
		return bridge.Value{}, err
	}
	pix, err := w.region.Read(n)
	if err != nil {
		return bridge.Value{}, err
	}
	img := &imageObject{h: h, pix: append([]byte(nil), pix...)}

	dst, err := arg(args, 1)
	if err != nil || dst.IsNull() {
		return bridge.HandleValue(w.add(img.class(), img)), nil
	}
	dh, err := dst.AsHandle()
	if err != nil {
		return bridge.Value{}, err
	}
	obj, err := w.lookup(dh)
	if err != nil {
		return bridge.Value{}, err
	}
	existing, ok := obj.(*imageObject)
	if !ok {
		return bridge.Value{}, errors.Errorf("%v is not an image", dh)
	}
	*existing = *img
	return bridge.HandleValue(w.handleOf(dh.ID)), nil
}

// writeImage copies the source image into the region.
func (w *Worker) writeImage(args []bridge.Value) (bridge.Value, error) {
	h, err := handleArg(args, 0)
	if err != nil {
		return bridge.Value{}, err
	}
	obj, err := w.lookup(h)
	if err != nil {
		return bridge.Value{}, err
	}
	img, ok := obj.(*imageObject)
	if !ok {
		return bridge.Value{}, errors.Errorf("%v is not an image", h)
	}
	block := append(wire.AppendImageHeader(make([]byte, 0, wire.ImageHeaderSize+len(img.pix)), img.h), img.pix...)
	if err := w.region.Seek(0); err != nil {
		return bridge.Value{}, err
	}
	if err := w.region.Write(block); err != nil {
		return bridge.Value{}, err
	}
	return bridge.NullValue(), nil
}
