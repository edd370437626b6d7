package bridge

import (
	"strconv"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/structpb"
)

// Messages on the gRPC transport are structpb.Struct. Integers travel as decimal strings so that
// 64-bit values and handle IDs survive the float64 number representation.

func handleToProto(h Handle) *structpb.Value {
	return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		"id":     structpb.NewStringValue(strconv.FormatUint(h.ID, 10)),
		"class":  structpb.NewStringValue(h.Class),
		"config": structpb.NewBoolValue(h.Config),
	}})
}

func handleFromProto(pv *structpb.Value) (Handle, error) {
	s := pv.GetStructValue()
	if s == nil {
		return Handle{}, errors.New("handle is not a struct")
	}
	id, err := strconv.ParseUint(s.Fields["id"].GetStringValue(), 10, 64)
	if err != nil {
		return Handle{}, errors.Wrap(err, "bad handle id")
	}
	return Handle{
		ID:     id,
		Class:  s.Fields["class"].GetStringValue(),
		Config: s.Fields["config"].GetBoolValue(),
	}, nil
}

func valueToProto(v Value) *structpb.Value {
	fields := map[string]*structpb.Value{"kind": structpb.NewStringValue(v.kind.String())}
	switch v.kind {
	case KindBool:
		fields["v"] = structpb.NewBoolValue(v.b)
	case KindInt:
		fields["v"] = structpb.NewStringValue(strconv.FormatInt(v.i, 10))
	case KindFloat:
		fields["v"] = structpb.NewNumberValue(v.f)
	case KindString:
		fields["v"] = structpb.NewStringValue(v.s)
	case KindStrings:
		list := make([]*structpb.Value, 0, len(v.ss))
		for _, s := range v.ss {
			list = append(list, structpb.NewStringValue(s))
		}
		fields["v"] = structpb.NewListValue(&structpb.ListValue{Values: list})
	case KindHandle:
		fields["v"] = handleToProto(v.h)
	case KindNull:
	}
	return structpb.NewStructValue(&structpb.Struct{Fields: fields})
}

func valueFromProto(pv *structpb.Value) (Value, error) {
	s := pv.GetStructValue()
	if s == nil {
		return NullValue(), nil
	}
	raw := s.Fields["v"]
	switch kind := s.Fields["kind"].GetStringValue(); kind {
	case KindNull.String(), "":
		return NullValue(), nil
	case KindBool.String():
		return BoolValue(raw.GetBoolValue()), nil
	case KindInt.String():
		i, err := strconv.ParseInt(raw.GetStringValue(), 10, 64)
		if err != nil {
			return Value{}, errors.Wrap(err, "bad int value")
		}
		return IntValue(i), nil
	case KindFloat.String():
		return FloatValue(raw.GetNumberValue()), nil
	case KindString.String():
		return StringValue(raw.GetStringValue()), nil
	case KindStrings.String():
		list := raw.GetListValue().GetValues()
		ss := make([]string, 0, len(list))
		for _, item := range list {
			ss = append(ss, item.GetStringValue())
		}
		return StringsValue(ss), nil
	case KindHandle.String():
		h, err := handleFromProto(raw)
		if err != nil {
			return Value{}, err
		}
		return HandleValue(h), nil
	default:
		return Value{}, errors.Errorf("unknown value kind %q", kind)
	}
}

func valuesToProto(vals []Value) *structpb.Value {
	list := make([]*structpb.Value, 0, len(vals))
	for _, v := range vals {
		list = append(list, valueToProto(v))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: list})
}

func valuesFromProto(pv *structpb.Value) ([]Value, error) {
	list := pv.GetListValue().GetValues()
	vals := make([]Value, 0, len(list))
	for i, item := range list {
		v, err := valueFromProto(item)
		if err != nil {
			return nil, errors.Wrapf(err, "argument %d", i)
		}
		vals = append(vals, v)
	}
	return vals, nil
}

type invokeRequest struct {
	target Handle
	method string
	args   []Value
}

func (r invokeRequest) toProto() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"target": handleToProto(r.target),
		"method": structpb.NewStringValue(r.method),
		"args":   valuesToProto(r.args),
	}}
}

func invokeRequestFromProto(s *structpb.Struct) (invokeRequest, error) {
	target, err := handleFromProto(s.GetFields()["target"])
	if err != nil {
		return invokeRequest{}, err
	}
	args, err := valuesFromProto(s.GetFields()["args"])
	if err != nil {
		return invokeRequest{}, err
	}
	return invokeRequest{target: target, method: s.GetFields()["method"].GetStringValue(), args: args}, nil
}

type fieldRequest struct {
	target Handle
	name   string
	value  Value
}

func (r fieldRequest) toProto() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"target": handleToProto(r.target),
		"name":   structpb.NewStringValue(r.name),
		"value":  valueToProto(r.value),
	}}
}

func fieldRequestFromProto(s *structpb.Struct) (fieldRequest, error) {
	target, err := handleFromProto(s.GetFields()["target"])
	if err != nil {
		return fieldRequest{}, err
	}
	value, err := valueFromProto(s.GetFields()["value"])
	if err != nil {
		return fieldRequest{}, err
	}
	return fieldRequest{target: target, name: s.GetFields()["name"].GetStringValue(), value: value}, nil
}

type constructRequest struct {
	class string
	args  []Value
}

func (r constructRequest) toProto() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"class": structpb.NewStringValue(r.class),
		"args":  valuesToProto(r.args),
	}}
}

func constructRequestFromProto(s *structpb.Struct) (constructRequest, error) {
	args, err := valuesFromProto(s.GetFields()["args"])
	if err != nil {
		return constructRequest{}, err
	}
	return constructRequest{class: s.GetFields()["class"].GetStringValue(), args: args}, nil
}

func replyToProto(v Value) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{"value": valueToProto(v)}}
}

func replyFromProto(s *structpb.Struct) (Value, error) {
	return valueFromProto(s.GetFields()["value"])
}
