package beans

import (
	"fmt"
	"reflect"

	"github.com/funvibe/dynlink/internal/config"
	"github.com/funvibe/dynlink/pkg/linker"
)

// instanceLinker links operations on values of one runtime type.
type instanceLinker struct {
	typ   reflect.Type
	facet *facet
	guard linker.Guard
}

func newInstanceLinker(t reflect.Type) *instanceLinker {
	return &instanceLinker{
		typ:   t,
		facet: newFacet(t),
		guard: linker.TypeGuard(t),
	}
}

func (l *instanceLinker) TryLink(req *linker.LinkRequest, svc linker.Services) (*linker.GuardedInvocation, error) {
	switch req.Descriptor.Operation() {
	case config.OpGetProp:
		return l.linkGetProp(req)
	case config.OpSetProp:
		return l.linkSetProp(req, svc)
	case config.OpCallPropWithThis:
		return l.linkCall(req, svc)
	case config.OpGetLength:
		return l.linkGetLength()
	case config.OpGetItem:
		return l.linkGetItem(req, svc)
	case config.OpSetItem:
		return l.linkSetItem(req, svc)
	}
	return nil, nil
}

func (l *instanceLinker) linkGetProp(req *linker.LinkRequest) (*linker.GuardedInvocation, error) {
	name, ok := req.Descriptor.Operand()
	if !ok {
		return nil, nil
	}
	if g := l.facet.getter(name); g != nil {
		return linker.NewGuardedInvocation(memberTarget(&Selection{Member: g}, linker.DefaultConverter), l.guard), nil
	}
	if sf, ok := l.facet.field(name); ok {
		return linker.NewGuardedInvocation(fieldGetter(sf), l.guard), nil
	}
	return nil, nil
}

func (l *instanceLinker) linkSetProp(req *linker.LinkRequest, svc linker.Services) (*linker.GuardedInvocation, error) {
	name, ok := req.Descriptor.Operand()
	if !ok || len(req.Args) < 2 {
		return nil, nil
	}
	if setters := l.facet.setter(name); len(setters) > 0 {
		argTypes := req.ArgTypes()
		sel, err := SelectOverload(setters, argTypes, svc.Converter())
		if err != nil {
			return nil, linker.Declinef(err, "setting %s on %s", name, l.typ)
		}
		target := memberTarget(sel, svc.Converter())
		return linker.NewGuardedInvocation(discardResult(target), l.argsGuard(argTypes)), nil
	}
	if sf, ok := l.facet.field(name); ok {
		if !l.facet.fieldsWritable() {
			return nil, linker.Declinef(linker.ErrConstruction, "field %s of %s is not addressable", sf.Name, l.typ)
		}
		return linker.NewGuardedInvocation(fieldSetter(sf, svc.Converter()), l.argsGuard(req.ArgTypes())), nil
	}
	return nil, nil
}

func (l *instanceLinker) linkCall(req *linker.LinkRequest, svc linker.Services) (*linker.GuardedInvocation, error) {
	name, ok := req.Descriptor.Operand()
	if !ok {
		return nil, nil
	}
	cands := l.facet.method(name)
	if len(cands) == 0 {
		return nil, nil
	}
	argTypes := req.ArgTypes()
	sel, err := SelectOverload(cands, argTypes, svc.Converter())
	if err != nil {
		return nil, linker.Declinef(err, "calling %s on %s", name, l.typ)
	}
	return linker.NewGuardedInvocation(memberTarget(sel, svc.Converter()), l.argsGuard(argTypes)), nil
}

// argsGuard pins the operand types next to the receiver type. Selection and
// conversion both depend on them, so a cached target only ever sees operands
// a fresh link would also have accepted.
func (l *instanceLinker) argsGuard(argTypes []reflect.Type) linker.Guard {
	return linker.AndGuards(l.guard, linker.ArgTypesGuard(argTypes))
}

func discardResult(t linker.Target) linker.Target {
	return func(args ...any) (any, error) {
		_, err := t(args...)
		return nil, err
	}
}

func fieldGetter(sf reflect.StructField) linker.Target {
	return func(args ...any) (res any, err error) {
		defer recoverInvocation(&err)
		v, err := structValue(args, sf)
		if err != nil {
			return nil, err
		}
		fv, err := v.FieldByIndexErr(sf.Index)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", linker.ErrInvocation, err)
		}
		return fv.Interface(), nil
	}
}

func fieldSetter(sf reflect.StructField, conv linker.Converter) linker.Target {
	return func(args ...any) (res any, err error) {
		defer recoverInvocation(&err)
		if len(args) < 2 {
			return nil, fmt.Errorf("%w: setting field %s needs a value", linker.ErrInvocation, sf.Name)
		}
		v, err := structValue(args, sf)
		if err != nil {
			return nil, err
		}
		fv, err := v.FieldByIndexErr(sf.Index)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", linker.ErrInvocation, err)
		}
		nv, err := conv.Convert(args[1], sf.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", linker.ErrInvocation, sf.Name, err)
		}
		fv.Set(nv)
		return nil, nil
	}
}

func structValue(args []any, sf reflect.StructField) (reflect.Value, error) {
	if len(args) == 0 {
		return reflect.Value{}, fmt.Errorf("%w: field %s without receiver", linker.ErrInvocation, sf.Name)
	}
	v := reflect.ValueOf(args[0])
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("%w: field %s of nil %s", linker.ErrInvocation, sf.Name, v.Type())
		}
		v = v.Elem()
	}
	return v, nil
}
