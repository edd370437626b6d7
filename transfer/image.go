package transfer

import (
	"context"
	"image"

	"github.com/pkg/errors"

	"go.viam.com/boofbridge/bridge"
	"go.viam.com/boofbridge/wire"
)

// Images are written as a single block; one larger than the region fails with
// shmem.ErrCapacity before anything is written.

// SendGray copies img into a remote single band U8 image. A nil dst asks the remote side to
// allocate a new image. The handle of the remote image is returned.
func SendGray(ctx context.Context, ch *Channel, img *image.Gray, dst *bridge.Handle) (bridge.Handle, error) {
	return ch.sendImage(ctx, wire.TagImageU8, wire.EncodeGray(img), dst)
}

// SendGrayF32 copies img into a remote single band F32 image.
func SendGrayF32(ctx context.Context, ch *Channel, img *wire.GrayF32, dst *bridge.Handle) (bridge.Handle, error) {
	return ch.sendImage(ctx, wire.TagImageF32, wire.EncodeGrayF32(img), dst)
}

// SendInterleaved copies img into a remote interleaved U8 image.
func SendInterleaved(ctx context.Context, ch *Channel, img *wire.InterleavedU8, dst *bridge.Handle) (bridge.Handle, error) {
	return ch.sendImage(ctx, wire.TagImageU8, wire.EncodeInterleaved(img), dst)
}

func (ch *Channel) sendImage(ctx context.Context, tag wire.Tag, block []byte, dst *bridge.Handle) (bridge.Handle, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if err := ch.region.Seek(0); err != nil {
		return bridge.Handle{}, err
	}
	if err := ch.region.Write(block); err != nil {
		return bridge.Handle{}, errors.Wrapf(err, "%v image", tag)
	}
	dstVal, err := bridge.ValueOf(dst)
	if err != nil {
		return bridge.Handle{}, err
	}
	v, err := ch.bridge.Invoke(ctx, ch.view, MethodReadImage, bridge.IntValue(int64(tag)), dstVal)
	if err != nil {
		return bridge.Handle{}, err
	}
	ch.logger.CDebugw(ctx, "sent image", "tag", tag, "bytes", len(block))
	return v.AsHandle()
}

// ReceiveGray copies the remote single band U8 image src.
func ReceiveGray(ctx context.Context, ch *Channel, src bridge.Handle) (*image.Gray, error) {
	var img *image.Gray
	err := ch.receiveImage(ctx, src, wire.TagImageU8, func(block []byte) (err error) {
		img, err = wire.DecodeGray(block)
		return err
	})
	return img, err
}

// ReceiveGrayF32 copies the remote single band F32 image src.
func ReceiveGrayF32(ctx context.Context, ch *Channel, src bridge.Handle) (*wire.GrayF32, error) {
	var img *wire.GrayF32
	err := ch.receiveImage(ctx, src, wire.TagImageF32, func(block []byte) (err error) {
		img, err = wire.DecodeGrayF32(block)
		return err
	})
	return img, err
}

// ReceiveInterleaved copies the remote interleaved U8 image src.
func ReceiveInterleaved(ctx context.Context, ch *Channel, src bridge.Handle) (*wire.InterleavedU8, error) {
	var img *wire.InterleavedU8
	err := ch.receiveImage(ctx, src, wire.TagImageU8, func(block []byte) (err error) {
		img, err = wire.DecodeInterleaved(block)
		return err
	})
	return img, err
}

// receiveImage asks the remote side to write src into the region and hands the block to decode
// while the channel is still locked.
func (ch *Channel) receiveImage(ctx context.Context, src bridge.Handle, tag wire.Tag, decode func([]byte) error) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if _, err := ch.bridge.Invoke(ctx, ch.view, MethodWriteImage, bridge.HandleValue(src)); err != nil {
		return err
	}
	if err := ch.region.Seek(0); err != nil {
		return err
	}
	hb, err := ch.region.Read(wire.ImageHeaderSize)
	if err != nil {
		return err
	}
	h, err := wire.ReadImageHeader(hb, tag)
	if err != nil {
		return err
	}
	if err := ch.region.Seek(0); err != nil {
		return err
	}
	n, err := h.PayloadSize()
	if err != nil {
		return err
	}
	block, err := ch.region.Read(wire.ImageHeaderSize + n)
	if err != nil {
		return errors.Wrapf(err, "%dx%dx%d %v image", h.Width, h.Height, h.Bands, tag)
	}
	return decode(block)
}
