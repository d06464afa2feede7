// Package protolink links dynamic operations on protobuf messages.
//
// Message fields are properties: "dyn:getProp:display_name" and
// "dyn:getProp:displayName" both read field display_name. getItem and setItem
// take the field name as key, and getLength reports how many fields are
// populated. Both runtime-built messages (*dynamic.Message from
// github.com/jhump/protoreflect) and any google.golang.org/protobuf message
// are supported.
//
// Names that are not fields are declined so that a fallback linker can still
// expose the Go methods of the message type.
//
// Importing the package registers the linker as discoverable under "protobuf".
package protolink

import (
	"fmt"
	"reflect"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/funvibe/dynlink/internal/config"
	"github.com/funvibe/dynlink/pkg/linker"
)

// Name is the discoverable registration name.
const Name = "protobuf"

func init() {
	linker.RegisterDiscoverable(Name, New())
}

// Linker is a stateless linker for protobuf messages.
type Linker struct{}

// New creates a protobuf linker.
func New() *Linker { return &Linker{} }

// message abstracts the two message flavours.
type message interface {
	descriptor() protoreflect.MessageDescriptor
	// guard accepts receivers of the same flavour and message type.
	guard() linker.Guard
	get(recv any, fd protoreflect.FieldDescriptor) (any, error)
	set(recv any, fd protoreflect.FieldDescriptor, v any, conv linker.Converter) error
	populated(recv any) int
}

func messageOf(recv any) message {
	switch m := recv.(type) {
	case *dynamic.Message:
		if m == nil {
			return nil
		}
		return dynamicMessage{md: m.GetMessageDescriptor()}
	case proto.Message:
		pm := m.ProtoReflect()
		if !pm.IsValid() {
			return nil
		}
		return generatedMessage{typ: reflect.TypeOf(recv), md: pm.Descriptor()}
	}
	return nil
}

// TryLink implements linker.GuardingLinker.
func (l *Linker) TryLink(req *linker.LinkRequest, svc linker.Services) (*linker.GuardedInvocation, error) {
	if len(req.Args) == 0 || !req.Descriptor.IsDynamic() {
		return nil, nil
	}
	msg := messageOf(req.Args[0])
	if msg == nil {
		return nil, nil
	}

	switch req.Descriptor.Operation() {
	case config.OpGetProp:
		fd := l.field(req, msg)
		if fd == nil {
			return nil, nil
		}
		l.logLinked(req, svc, fd)
		return linker.NewGuardedInvocation(func(args ...any) (res any, err error) {
			defer recoverInvocation(&err)
			return msg.get(args[0], fd)
		}, msg.guard()), nil

	case config.OpSetProp:
		if len(req.Args) < 2 {
			return nil, nil
		}
		fd := l.field(req, msg)
		if fd == nil {
			return nil, nil
		}
		if fd.IsMap() {
			return nil, linker.Declinef(linker.ErrConstruction, "map field %s cannot be replaced", fd.FullName())
		}
		l.logLinked(req, svc, fd)
		conv := svc.Converter()
		return linker.NewGuardedInvocation(func(args ...any) (res any, err error) {
			defer recoverInvocation(&err)
			return nil, msg.set(args[0], fd, args[1], conv)
		}, msg.guard()), nil

	case config.OpGetItem:
		if !stringKey(req.Args...) {
			return nil, nil
		}
		return linker.NewGuardedInvocation(func(args ...any) (res any, err error) {
			defer recoverInvocation(&err)
			fd, err := keyField(msg, args[1])
			if err != nil {
				return nil, err
			}
			return msg.get(args[0], fd)
		}, linker.AndGuards(msg.guard(), stringKey)), nil

	case config.OpSetItem:
		if len(req.Args) < 3 || !stringKey(req.Args...) {
			return nil, nil
		}
		conv := svc.Converter()
		return linker.NewGuardedInvocation(func(args ...any) (res any, err error) {
			defer recoverInvocation(&err)
			fd, err := keyField(msg, args[1])
			if err != nil {
				return nil, err
			}
			if fd.IsMap() {
				return nil, fmt.Errorf("%w: map field %s cannot be replaced", linker.ErrInvocation, fd.FullName())
			}
			return nil, msg.set(args[0], fd, args[2], conv)
		}, linker.AndGuards(msg.guard(), stringKey)), nil

	case config.OpGetLength:
		return linker.NewGuardedInvocation(func(args ...any) (any, error) {
			return msg.populated(args[0]), nil
		}, msg.guard()), nil
	}
	return nil, nil
}

func (l *Linker) field(req *linker.LinkRequest, msg message) protoreflect.FieldDescriptor {
	name, ok := req.Descriptor.Operand()
	if !ok {
		return nil
	}
	return findField(msg.descriptor(), name)
}

func (l *Linker) logLinked(req *linker.LinkRequest, svc linker.Services, fd protoreflect.FieldDescriptor) {
	svc.Logger().Debug("linked protobuf field",
		"descriptor", req.Descriptor.String(),
		"field", string(fd.FullName()))
}

// findField resolves name as a proto field name first, then as a JSON name.
func findField(md protoreflect.MessageDescriptor, name string) protoreflect.FieldDescriptor {
	fields := md.Fields()
	if fd := fields.ByName(protoreflect.Name(name)); fd != nil {
		return fd
	}
	return fields.ByJSONName(name)
}

func keyField(msg message, key any) (protoreflect.FieldDescriptor, error) {
	name, ok := key.(string)
	if !ok {
		return nil, fmt.Errorf("%w: field key %T is not a string", linker.ErrInvocation, key)
	}
	fd := findField(msg.descriptor(), name)
	if fd == nil {
		return nil, fmt.Errorf("%w: %s has no field %q", linker.ErrInvocation, msg.descriptor().FullName(), name)
	}
	return fd, nil
}

// stringKey accepts argument lists whose key (args[1]) is a field name.
func stringKey(args ...any) bool {
	if len(args) < 2 {
		return false
	}
	_, ok := args[1].(string)
	return ok
}

func recoverInvocation(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", linker.ErrInvocation, r)
	}
}

// dynamicMessage handles *dynamic.Message receivers built from a runtime
// descriptor.
type dynamicMessage struct {
	md *desc.MessageDescriptor
}

func (d dynamicMessage) descriptor() protoreflect.MessageDescriptor {
	return d.md.UnwrapMessage()
}

func (d dynamicMessage) guard() linker.Guard {
	md := d.md
	return func(args ...any) bool {
		if len(args) == 0 {
			return false
		}
		m, ok := args[0].(*dynamic.Message)
		return ok && m != nil && m.GetMessageDescriptor() == md
	}
}

func (d dynamicMessage) get(recv any, fd protoreflect.FieldDescriptor) (any, error) {
	v, err := recv.(*dynamic.Message).TryGetFieldByNumber(int(fd.Number()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", linker.ErrInvocation, err)
	}
	return v, nil
}

func (d dynamicMessage) set(recv any, fd protoreflect.FieldDescriptor, v any, conv linker.Converter) error {
	val, err := dynamicValue(v, fd, conv)
	if err != nil {
		return err
	}
	if err := recv.(*dynamic.Message).TrySetFieldByNumber(int(fd.Number()), val); err != nil {
		return fmt.Errorf("%w: %v", linker.ErrInvocation, err)
	}
	return nil
}

func (d dynamicMessage) populated(recv any) int {
	m := recv.(*dynamic.Message)
	n := 0
	fields := d.descriptor().Fields()
	for i := 0; i < fields.Len(); i++ {
		if m.HasFieldNumber(int(fields.Get(i).Number())) {
			n++
		}
	}
	return n
}

// generatedMessage handles google.golang.org/protobuf messages, generated or
// dynamicpb.
type generatedMessage struct {
	typ reflect.Type
	md  protoreflect.MessageDescriptor
}

func (g generatedMessage) descriptor() protoreflect.MessageDescriptor { return g.md }

func (g generatedMessage) guard() linker.Guard {
	typ, md := g.typ, g.md
	return func(args ...any) bool {
		if len(args) == 0 || args[0] == nil || reflect.TypeOf(args[0]) != typ {
			return false
		}
		// dynamicpb shares one Go type across descriptors
		return args[0].(proto.Message).ProtoReflect().Descriptor() == md
	}
}

func (g generatedMessage) get(recv any, fd protoreflect.FieldDescriptor) (any, error) {
	pm := recv.(proto.Message).ProtoReflect()
	return fromValue(pm.Get(fd), fd, pm.Has(fd)), nil
}

func (g generatedMessage) set(recv any, fd protoreflect.FieldDescriptor, v any, conv linker.Converter) error {
	pm := recv.(proto.Message).ProtoReflect()
	if v == nil {
		pm.Clear(fd)
		return nil
	}
	if fd.IsList() {
		elems := reflect.ValueOf(v)
		if k := elems.Kind(); k != reflect.Slice && k != reflect.Array {
			return fmt.Errorf("%w: repeated field %s needs a slice, got %T", linker.ErrInvocation, fd.FullName(), v)
		}
		list := pm.NewField(fd).List()
		for i := 0; i < elems.Len(); i++ {
			ev, err := toValue(elems.Index(i).Interface(), fd, conv)
			if err != nil {
				return err
			}
			list.Append(ev)
		}
		pm.Set(fd, protoreflect.ValueOfList(list))
		return nil
	}
	pv, err := toValue(v, fd, conv)
	if err != nil {
		return err
	}
	pm.Set(fd, pv)
	return nil
}

func (g generatedMessage) populated(recv any) int {
	n := 0
	recv.(proto.Message).ProtoReflect().Range(func(protoreflect.FieldDescriptor, protoreflect.Value) bool {
		n++
		return true
	})
	return n
}
