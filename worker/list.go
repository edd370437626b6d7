package worker

import (
	"fmt"

	"github.com/pkg/errors"

	"go.viam.com/boofbridge/bridge"
	"go.viam.com/boofbridge/wire"
)

// list holds encoded elements of a single tag. The tag is fixed by the first non-empty write.
type list struct {
	tag   wire.Tag
	typed bool
	dof   int
	count int
	data  []byte
}

func (l *list) String() string {
	if !l.typed {
		return "[]"
	}
	return fmt.Sprintf("%v[%d]", l.tag, l.count)
}

func (l *list) invoke(method string) (bridge.Value, error) {
	switch method {
	case "size":
		return bridge.IntValue(int64(l.count)), nil
	case MethodClear:
		*l = list{}
		return bridge.NullValue(), nil
	}
	return bridge.Value{}, errors.Wrapf(ErrNoSuchMethod, "%s on list", method)
}

// appendBlock adds the elements of one chunk.
func (l *list) appendBlock(h wire.Header, payload []byte) error {
	if h.Count == 0 {
		return nil
	}
	if !l.typed {
		l.tag, l.dof, l.typed = h.Tag, h.DOF, true
	}
	if h.Tag != l.tag {
		return errors.Wrapf(wire.ErrProtocolMismatch, "list holds %v, chunk is %v", l.tag, h.Tag)
	}
	if h.DOF != l.dof {
		return errors.Wrapf(wire.ErrShape, "list dof %d, chunk dof %d", l.dof, h.DOF)
	}
	l.data = append(l.data, payload...)
	l.count += h.Count
	return nil
}

// chunk returns the header and payload of at most maxPer elements starting at offset.
func (l *list) chunk(tag wire.Tag, offset, maxPer int) (wire.Header, []byte, error) {
	if l.typed && tag != l.tag {
		return wire.Header{}, nil, errors.Wrapf(wire.ErrProtocolMismatch, "list holds %v, requested %v", l.tag, tag)
	}
	if offset < 0 || offset > l.count {
		return wire.Header{}, nil, errors.Errorf("offset %d out of range for list of %d", offset, l.count)
	}
	n := l.count - offset
	if n > maxPer {
		n = maxPer
	}
	size := tag.ElementSize(l.dof)
	return wire.Header{Tag: tag, Count: n, DOF: l.dof}, l.data[offset*size : (offset+n)*size], nil
}
