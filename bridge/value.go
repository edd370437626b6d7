package bridge

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// Kind is the type of a Value.
type Kind int

// Value kinds.
const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindStrings
	KindHandle
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindStrings:
		return "strings"
	case KindHandle:
		return "handle"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ErrKind is returned when a Value is read as the wrong kind.
var ErrKind = errors.New("wrong value kind")

// Handle is an opaque reference to an object living in the remote process. Config marks objects
// the remote side reports as configuration objects.
type Handle struct {
	ID     uint64
	Class  string
	Config bool
}

func (h Handle) String() string {
	return fmt.Sprintf("%s@%d", h.Class, h.ID)
}

// EntryPoint is the remote object every session starts from.
var EntryPoint = Handle{ID: 0, Class: "pyboof.PyBoofEntryPoint"}

// Value is a primitive or a remote handle passed through the bridge.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	ss   []string
	h    Handle
}

// NullValue returns the null value.
func NullValue() Value { return Value{} }

// BoolValue wraps b.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// IntValue wraps i.
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// FloatValue wraps f.
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

// StringValue wraps s.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// StringsValue wraps ss.
func StringsValue(ss []string) Value { return Value{kind: KindStrings, ss: ss} }

// HandleValue wraps h.
func HandleValue(h Handle) Value { return Value{kind: KindHandle, h: h} }

// ValueOf converts a Go value to a Value.
func ValueOf(v interface{}) (Value, error) {
	switch x := v.(type) {
	case nil:
		return NullValue(), nil
	case Value:
		return x, nil
	case Handle:
		return HandleValue(x), nil
	case *Handle:
		if x == nil {
			return NullValue(), nil
		}
		return HandleValue(*x), nil
	case bool:
		return BoolValue(x), nil
	case int:
		return IntValue(int64(x)), nil
	case int8:
		return IntValue(int64(x)), nil
	case int16:
		return IntValue(int64(x)), nil
	case int32:
		return IntValue(int64(x)), nil
	case int64:
		return IntValue(x), nil
	case uint8:
		return IntValue(int64(x)), nil
	case uint16:
		return IntValue(int64(x)), nil
	case uint32:
		return IntValue(int64(x)), nil
	case uint64:
		if x > math.MaxInt64 {
			return Value{}, errors.Errorf("%d overflows int64", x)
		}
		return IntValue(int64(x)), nil
	case float32:
		return FloatValue(float64(x)), nil
	case float64:
		return FloatValue(x), nil
	case string:
		return StringValue(x), nil
	case []string:
		return StringsValue(x), nil
	}
	return Value{}, errors.Errorf("cannot pass %T through the bridge", v)
}

// ValuesOf converts each argument with ValueOf.
func ValuesOf(args ...interface{}) ([]Value, error) {
	vals := make([]Value, 0, len(args))
	for i, a := range args {
		v, err := ValueOf(a)
		if err != nil {
			return nil, errors.Wrapf(err, "argument %d", i)
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// Kind returns the kind of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsConfig reports whether v is a handle to a remote configuration object.
func (v Value) IsConfig() bool { return v.kind == KindHandle && v.h.Config }

func (v Value) expect(k Kind) error {
	if v.kind != k {
		return errors.Wrapf(ErrKind, "value is %v, not %v", v.kind, k)
	}
	return nil
}

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, error) {
	return v.b, v.expect(KindBool)
}

// AsInt returns the integer held by v.
func (v Value) AsInt() (int64, error) {
	return v.i, v.expect(KindInt)
}

// AsFloat returns the number held by v. Integers are converted.
func (v Value) AsFloat() (float64, error) {
	if v.kind == KindInt {
		return float64(v.i), nil
	}
	return v.f, v.expect(KindFloat)
}

// AsString returns the string held by v.
func (v Value) AsString() (string, error) {
	return v.s, v.expect(KindString)
}

// AsStrings returns the string list held by v.
func (v Value) AsStrings() ([]string, error) {
	return v.ss, v.expect(KindStrings)
}

// AsHandle returns the handle held by v.
func (v Value) AsHandle() (Handle, error) {
	return v.h, v.expect(KindHandle)
}

// Interface returns v as a plain Go value.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindStrings:
		return v.ss
	case KindHandle:
		return v.h
	case KindNull:
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindStrings:
		return "[" + strings.Join(v.ss, ", ") + "]"
	case KindBool, KindInt, KindFloat, KindHandle:
	}
	return fmt.Sprint(v.Interface())
}
