package beans

import (
	"fmt"
	"reflect"

	"github.com/funvibe/dynlink/internal/config"
	"github.com/funvibe/dynlink/pkg/linker"
)

var (
	classType   = reflect.TypeFor[*Class]()
	staticsType = reflect.TypeFor[*Statics]()
)

// classLinker links operations whose receiver is a *Class: "new" calls a
// constructor and "getProp:statics" yields the static surface. Everything
// else is handled as an ordinary *Class instance.
type classLinker struct {
	self *instanceLinker
}

func newClassLinker() *classLinker {
	return &classLinker{self: newInstanceLinker(classType)}
}

func (l *classLinker) TryLink(req *linker.LinkRequest, svc linker.Services) (*linker.GuardedInvocation, error) {
	class, ok := req.Args[0].(*Class)
	if !ok {
		return nil, nil
	}
	switch req.Descriptor.Operation() {
	case config.OpNew:
		return l.linkNew(class, req, svc)
	case config.OpGetProp:
		if name, ok := req.Descriptor.Operand(); ok && name == config.StaticsProperty {
			statics := class.Statics()
			return linker.NewGuardedInvocation(func(args ...any) (any, error) {
				return statics, nil
			}, linker.IdentityGuard(class)), nil
		}
	}
	return l.self.TryLink(req, svc)
}

func (l *classLinker) linkNew(class *Class, req *linker.LinkRequest, svc linker.Services) (*linker.GuardedInvocation, error) {
	ctors := class.Constructors()
	if len(ctors) == 0 {
		return nil, linker.Declinef(linker.ErrNoApplicableMember, "%s has no constructors", class)
	}
	argTypes := req.ArgTypes()
	sel, err := SelectOverload(ctors, argTypes, svc.Converter())
	if err != nil {
		return nil, linker.Declinef(err, "constructing %s", class.Type())
	}
	return linker.NewGuardedInvocation(memberTarget(sel, svc.Converter()), identityGuard(class, argTypes)), nil
}

// staticsLinker links property access and calls on a class's Statics marker.
type staticsLinker struct{}

func (staticsLinker) TryLink(req *linker.LinkRequest, svc linker.Services) (*linker.GuardedInvocation, error) {
	statics, ok := req.Args[0].(*Statics)
	if !ok {
		return nil, nil
	}
	name, ok := req.Descriptor.Operand()
	if !ok {
		return nil, nil
	}
	class := statics.Class()
	guard := linker.IdentityGuard(statics)

	switch req.Descriptor.Operation() {
	case config.OpGetProp:
		if p := class.staticProperty(name); p != nil && p.getter != nil {
			return linker.NewGuardedInvocation(memberTarget(&Selection{Member: p.getter}, svc.Converter()), guard), nil
		}
		if fv, ok := class.staticField(name); ok {
			return linker.NewGuardedInvocation(func(args ...any) (any, error) {
				return fv.Interface(), nil
			}, guard), nil
		}
	case config.OpSetProp:
		if len(req.Args) < 2 {
			return nil, nil
		}
		conv := svc.Converter()
		if p := class.staticProperty(name); p != nil && p.setter != nil {
			sel, err := SelectOverload([]*Member{p.setter}, req.ArgTypes(), conv)
			if err != nil {
				return nil, linker.Declinef(err, "setting static %s of %s", name, class.Type())
			}
			return linker.NewGuardedInvocation(discardResult(memberTarget(sel, conv)), identityGuard(statics, req.ArgTypes())), nil
		}
		if fv, ok := class.staticField(name); ok {
			return linker.NewGuardedInvocation(func(args ...any) (res any, err error) {
				defer recoverInvocation(&err)
				nv, err := conv.Convert(args[1], fv.Type())
				if err != nil {
					return nil, fmt.Errorf("%w: static field %s: %v", linker.ErrInvocation, name, err)
				}
				fv.Set(nv)
				return nil, nil
			}, identityGuard(statics, req.ArgTypes())), nil
		}
	case config.OpCallPropWithThis:
		cands := class.staticMethod(name)
		if len(cands) == 0 {
			return nil, nil
		}
		argTypes := req.ArgTypes()
		sel, err := SelectOverload(cands, argTypes, svc.Converter())
		if err != nil {
			return nil, linker.Declinef(err, "calling static %s of %s", name, class.Type())
		}
		return linker.NewGuardedInvocation(memberTarget(sel, svc.Converter()), identityGuard(statics, argTypes)), nil
	}
	return nil, nil
}

func identityGuard(recv any, argTypes []reflect.Type) linker.Guard {
	return linker.AndGuards(linker.IdentityGuard(recv), linker.ArgTypesGuard(argTypes))
}
