package protolink

import (
	"fmt"
	"reflect"

	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/funvibe/dynlink/pkg/linker"
)

var (
	int32Type = reflect.TypeFor[int32]()
	bytesType = reflect.TypeFor[[]byte]()
)

// scalarTypes maps scalar field kinds to the Go type both message flavours
// store them as.
var scalarTypes = map[protoreflect.Kind]reflect.Type{
	protoreflect.BoolKind:     reflect.TypeFor[bool](),
	protoreflect.Int32Kind:    int32Type,
	protoreflect.Sint32Kind:   int32Type,
	protoreflect.Sfixed32Kind: int32Type,
	protoreflect.Int64Kind:    reflect.TypeFor[int64](),
	protoreflect.Sint64Kind:   reflect.TypeFor[int64](),
	protoreflect.Sfixed64Kind: reflect.TypeFor[int64](),
	protoreflect.Uint32Kind:   reflect.TypeFor[uint32](),
	protoreflect.Fixed32Kind:  reflect.TypeFor[uint32](),
	protoreflect.Uint64Kind:   reflect.TypeFor[uint64](),
	protoreflect.Fixed64Kind:  reflect.TypeFor[uint64](),
	protoreflect.FloatKind:    reflect.TypeFor[float32](),
	protoreflect.DoubleKind:   reflect.TypeFor[float64](),
	protoreflect.StringKind:   reflect.TypeFor[string](),
	protoreflect.BytesKind:    bytesType,
}

// scalar converts v to the Go representation of a scalar or enum field.
// Enums accept their value name as well as a number.
func scalar(v any, fd protoreflect.FieldDescriptor, conv linker.Converter) (any, error) {
	if fd.Kind() == protoreflect.EnumKind {
		if name, ok := v.(string); ok {
			ev := fd.Enum().Values().ByName(protoreflect.Name(name))
			if ev == nil {
				return nil, fmt.Errorf("%w: %s has no value %q", linker.ErrInvocation, fd.Enum().FullName(), name)
			}
			return int32(ev.Number()), nil
		}
		rv, err := coerce(v, int32Type, conv)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", linker.ErrInvocation, fd.FullName(), err)
		}
		return int32(rv.Int()), nil
	}
	t, ok := scalarTypes[fd.Kind()]
	if !ok {
		return nil, fmt.Errorf("%w: field %s of kind %s is not scalar", linker.ErrInvocation, fd.FullName(), fd.Kind())
	}
	rv, err := coerce(v, t, conv)
	if err != nil {
		return nil, fmt.Errorf("%w: field %s: %v", linker.ErrInvocation, fd.FullName(), err)
	}
	return rv.Interface(), nil
}

// coerce is conv.Convert extended with range-checked numeric narrowing, so
// that a plain int can be stored in an int32 field when it fits.
func coerce(v any, t reflect.Type, conv linker.Converter) (reflect.Value, error) {
	rv, err := conv.Convert(v, t)
	if err == nil {
		return rv, nil
	}
	src := reflect.ValueOf(v)
	if !src.IsValid() {
		return rv, err
	}
	dst := reflect.New(t).Elem()
	switch {
	case src.CanInt() && dst.CanInt():
		if dst.OverflowInt(src.Int()) {
			return reflect.Value{}, fmt.Errorf("%d overflows %s", src.Int(), t)
		}
		return src.Convert(t), nil
	case src.CanInt() && dst.CanUint():
		if n := src.Int(); n < 0 || dst.OverflowUint(uint64(n)) {
			return reflect.Value{}, fmt.Errorf("%d overflows %s", n, t)
		}
		return src.Convert(t), nil
	case src.CanUint() && dst.CanUint():
		if dst.OverflowUint(src.Uint()) {
			return reflect.Value{}, fmt.Errorf("%d overflows %s", src.Uint(), t)
		}
		return src.Convert(t), nil
	case src.CanUint() && dst.CanInt():
		if n := src.Uint(); n > 1<<63-1 || dst.OverflowInt(int64(n)) {
			return reflect.Value{}, fmt.Errorf("%d overflows %s", n, t)
		}
		return src.Convert(t), nil
	case src.CanFloat() && dst.CanFloat():
		if dst.OverflowFloat(src.Float()) {
			return reflect.Value{}, fmt.Errorf("%g overflows %s", src.Float(), t)
		}
		return src.Convert(t), nil
	case src.Kind() == reflect.String && t == bytesType:
		return reflect.ValueOf([]byte(src.String())), nil
	}
	return rv, err
}

// dynamicValue prepares v for dynamic.Message.TrySetFieldByNumber, which
// only accepts the exact Go type of a field.
func dynamicValue(v any, fd protoreflect.FieldDescriptor, conv linker.Converter) (any, error) {
	if v == nil || fd.IsMap() {
		return v, nil
	}
	if fd.IsList() {
		elems := reflect.ValueOf(v)
		if k := elems.Kind(); k != reflect.Slice && k != reflect.Array {
			return nil, fmt.Errorf("%w: repeated field %s needs a slice, got %T", linker.ErrInvocation, fd.FullName(), v)
		}
		out := make([]any, elems.Len())
		for i := range out {
			ev, err := dynamicElem(elems.Index(i).Interface(), fd, conv)
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	}
	return dynamicElem(v, fd, conv)
}

func dynamicElem(v any, fd protoreflect.FieldDescriptor, conv linker.Converter) (any, error) {
	if fd.Message() != nil {
		// dynamic.Message checks message types itself
		return v, nil
	}
	return scalar(v, fd, conv)
}

// toValue converts a single element for a google.golang.org/protobuf message.
func toValue(v any, fd protoreflect.FieldDescriptor, conv linker.Converter) (protoreflect.Value, error) {
	switch fd.Kind() {
	case protoreflect.MessageKind, protoreflect.GroupKind:
		var pm proto.Message
		switch m := v.(type) {
		case proto.Message:
			pm = m
		case *dynamic.Message:
			return protoreflect.Value{}, fmt.Errorf("%w: field %s needs a generated message, got a dynamic one", linker.ErrInvocation, fd.FullName())
		default:
			return protoreflect.Value{}, fmt.Errorf("%w: field %s needs a message, got %T", linker.ErrInvocation, fd.FullName(), v)
		}
		if got := pm.ProtoReflect().Descriptor().FullName(); got != fd.Message().FullName() {
			return protoreflect.Value{}, fmt.Errorf("%w: field %s needs %s, got %s", linker.ErrInvocation, fd.FullName(), fd.Message().FullName(), got)
		}
		return protoreflect.ValueOfMessage(pm.ProtoReflect()), nil
	case protoreflect.EnumKind:
		n, err := scalar(v, fd, conv)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfEnum(protoreflect.EnumNumber(n.(int32))), nil
	}
	s, err := scalar(v, fd, conv)
	if err != nil {
		return protoreflect.Value{}, err
	}
	return protoreflect.ValueOf(s), nil
}

// fromValue converts a field value to plain Go: lists become []any, maps
// map[any]any, enums int32 and unset message fields nil.
func fromValue(v protoreflect.Value, fd protoreflect.FieldDescriptor, has bool) any {
	switch {
	case fd.IsList():
		l := v.List()
		out := make([]any, l.Len())
		for i := range out {
			out[i] = fromElem(l.Get(i), fd)
		}
		return out
	case fd.IsMap():
		out := make(map[any]any, v.Map().Len())
		v.Map().Range(func(k protoreflect.MapKey, mv protoreflect.Value) bool {
			out[k.Interface()] = fromElem(mv, fd.MapValue())
			return true
		})
		return out
	case fd.Message() != nil && !has:
		return nil
	}
	return fromElem(v, fd)
}

func fromElem(v protoreflect.Value, fd protoreflect.FieldDescriptor) any {
	switch fd.Kind() {
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return v.Message().Interface()
	case protoreflect.EnumKind:
		return int32(v.Enum())
	}
	return v.Interface()
}
