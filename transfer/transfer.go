// Package transfer moves lists and images between the local process and the remote worker
// through a shared memory region. Every block is written at offset zero and the other side is
// told to consume (or produce) it with a bridge call, so the region is never touched by both
// sides at once.
package transfer

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/boofbridge/bridge"
	"go.viam.com/boofbridge/logging"
	"go.viam.com/boofbridge/shmem"
	"go.viam.com/boofbridge/wire"
)

// HeaderReserve is the number of bytes at the front of the region kept for a block header when
// sizing chunks.
const HeaderReserve = 100

// Remote methods on the worker's view of the region.
const (
	MethodReadList   = "readList"
	MethodWriteList  = "writeList"
	MethodReadImage  = "readImage"
	MethodWriteImage = "writeImage"
	MethodSize       = "size"
)

var (
	// ErrOverDelivery is returned when a chunk carries more elements than are still expected.
	ErrOverDelivery = errors.New("remote delivered more elements than expected")
	// ErrUnderDelivery is returned when the remote side stops producing before the expected
	// number of elements arrived.
	ErrUnderDelivery = errors.New("remote delivered fewer elements than expected")
)

// A Channel couples a shared memory region with the bridge and the remote handle of the
// worker's view of the same file. Transfers on one Channel are serialized.
type Channel struct {
	mu      sync.Mutex
	region  *shmem.Region
	bridge  bridge.Bridge
	view    bridge.Handle
	logger  logging.Logger
	scratch []byte
}

// NewChannel returns a Channel over region. view is the remote object that reads and writes
// the other end of the mapping.
func NewChannel(region *shmem.Region, b bridge.Bridge, view bridge.Handle, logger logging.Logger) *Channel {
	return &Channel{region: region, bridge: b, view: view, logger: logger}
}

// Region returns the local end of the mapping.
func (ch *Channel) Region() *shmem.Region {
	return ch.region
}

// Close unmaps the region once no transfer is running. Transfers after Close fail with
// shmem.ErrClosed.
func (ch *Channel) Close() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.region.Close()
}

// MaxPerChunk returns how many elements of elemSize bytes fit in one chunk of a region of
// capacity bytes.
func MaxPerChunk(capacity, elemSize int) int {
	if elemSize <= 0 {
		return 0
	}
	return (capacity - HeaderReserve) / elemSize
}

// Send writes elems to the remote list dst, splitting them into as many chunks as the region
// requires. Each chunk header carries the number of elements in that chunk.
func Send[E any](ctx context.Context, ch *Channel, c wire.ElementCodec[E], dst bridge.Handle, elems []E) error {
	dof, err := c.DOF(elems)
	if err != nil {
		return err
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if len(elems) == 0 {
		return sendChunk(ctx, ch, c, dst, elems, dof)
	}

	size := c.ElementSize(dof)
	maxPer := MaxPerChunk(ch.region.Capacity(), size)
	if maxPer < 1 {
		return errors.Wrapf(shmem.ErrCapacity, "%v element of %d bytes does not fit in a region of %d bytes",
			c.Tag(), size, ch.region.Capacity())
	}

	chunks := 0
	for sent := 0; sent < len(elems); chunks++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := len(elems) - sent
		if n > maxPer {
			n = maxPer
		}
		if err := sendChunk(ctx, ch, c, dst, elems[sent:sent+n], dof); err != nil {
			return errors.Wrapf(err, "sending %v chunk at element %d", c.Tag(), sent)
		}
		sent += n
	}
	ch.logger.CDebugw(ctx, "sent list", "tag", c.Tag(), "count", len(elems), "chunks", chunks)
	return nil
}

func sendChunk[E any](ctx context.Context, ch *Channel, c wire.ElementCodec[E], dst bridge.Handle, elems []E, dof int) error {
	var err error
	ch.scratch, err = wire.AppendChunk(ch.scratch[:0], c, elems, dof)
	if err != nil {
		return err
	}
	if err := ch.region.Seek(0); err != nil {
		return err
	}
	if err := ch.region.Write(ch.scratch); err != nil {
		return err
	}
	_, err = ch.bridge.Invoke(ctx, ch.view, MethodReadList,
		bridge.HandleValue(dst), bridge.IntValue(int64(c.Tag())))
	return err
}

// ReceiveN reads expected elements from the remote list src. The remote side is asked for one
// chunk at a time, starting from the number of elements received so far.
func ReceiveN[E any](ctx context.Context, ch *Channel, c wire.ElementCodec[E], src bridge.Handle, expected int) ([]E, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	out := make([]E, 0, expected)
	dof := -1
	for len(out) < expected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := ch.bridge.Invoke(ctx, ch.view, MethodWriteList,
			bridge.HandleValue(src), bridge.IntValue(int64(c.Tag())), bridge.IntValue(int64(len(out)))); err != nil {
			return nil, errors.Wrapf(err, "requesting %v chunk at element %d", c.Tag(), len(out))
		}
		h, payload, err := ch.readChunk(c.Tag())
		if err != nil {
			return nil, err
		}
		remaining := expected - len(out)
		if h.Count > remaining {
			return nil, errors.Wrapf(ErrOverDelivery, "chunk of %d %v elements with %d remaining", h.Count, c.Tag(), remaining)
		}
		if h.Count == 0 {
			return nil, errors.Wrapf(ErrUnderDelivery, "received %d of %d %v elements", len(out), expected, c.Tag())
		}
		if dof >= 0 && h.DOF != dof {
			return nil, errors.Wrapf(wire.ErrShape, "chunk dof %d differs from %d", h.DOF, dof)
		}
		dof = h.DOF
		out, err = wire.AppendElements(out, c, h, payload)
		if err != nil {
			return nil, err
		}
	}
	ch.logger.CDebugw(ctx, "received list", "tag", c.Tag(), "count", expected)
	return out, nil
}

func (ch *Channel) readChunk(tag wire.Tag) (wire.Header, []byte, error) {
	if err := ch.region.Seek(0); err != nil {
		return wire.Header{}, nil, err
	}
	hb, err := ch.region.Read(tag.HeaderSize())
	if err != nil {
		return wire.Header{}, nil, err
	}
	h, err := wire.ReadHeader(hb, tag)
	if err != nil {
		return wire.Header{}, nil, err
	}
	n, err := h.PayloadSize()
	if err != nil {
		return wire.Header{}, nil, err
	}
	payload, err := ch.region.Read(n)
	if err != nil {
		return wire.Header{}, nil, errors.Wrapf(err, "chunk of %d %v elements", h.Count, tag)
	}
	return h, payload, nil
}

// Receive reads the whole remote list src, asking it for its size first.
func Receive[E any](ctx context.Context, ch *Channel, c wire.ElementCodec[E], src bridge.Handle) ([]E, error) {
	v, err := ch.bridge.Invoke(ctx, src, MethodSize)
	if err != nil {
		return nil, err
	}
	size, err := v.AsInt()
	if err != nil {
		return nil, errors.Wrap(err, "list size")
	}
	return ReceiveN(ctx, ch, c, src, int(size))
}
