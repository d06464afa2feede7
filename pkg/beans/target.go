package beans

import (
	"fmt"
	"reflect"

	"github.com/funvibe/dynlink/pkg/linker"
)

var errorType = reflect.TypeFor[error]()

// memberTarget turns a selected member into a target. args[0] is the
// receiver; it is passed to the member only when the member takes one.
func memberTarget(sel *Selection, conv linker.Converter) linker.Target {
	return func(args ...any) (any, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("%w: %s called without receiver", linker.ErrInvocation, sel.Member.Name)
		}
		return invokeMember(sel, args[0], args[1:], conv)
	}
}

func invokeMember(sel *Selection, recv any, args []any, conv linker.Converter) (res any, err error) {
	defer recoverInvocation(&err)

	m := sel.Member
	ft := m.fn.Type()
	in := make([]reflect.Value, 0, len(args)+1)
	if m.withReceiver {
		rv, err := conv.Convert(recv, ft.In(0))
		if err != nil {
			return nil, fmt.Errorf("%w: receiver of %s: %v", linker.ErrInvocation, m.Name, err)
		}
		in = append(in, rv)
	}

	spread := m.Variadic && sel.Spread
	switch {
	case spread && len(args) < m.FixedArity():
		return nil, fmt.Errorf("%w: %s expects at least %d arguments, got %d", linker.ErrInvocation, m, m.FixedArity(), len(args))
	case !spread && len(args) != len(m.Params):
		return nil, fmt.Errorf("%w: %s expects %d arguments, got %d", linker.ErrInvocation, m, len(m.Params), len(args))
	}

	for i, a := range args {
		pt := paramType(m, i, spread)
		v, err := conv.Convert(a, pt)
		if err != nil {
			return nil, fmt.Errorf("%w: argument %d of %s: %v", linker.ErrInvocation, i, m, err)
		}
		in = append(in, v)
	}

	var out []reflect.Value
	if m.Variadic && !spread {
		out = m.fn.CallSlice(in)
	} else {
		out = m.fn.Call(in)
	}
	return foldResults(out)
}

func paramType(m *Member, i int, spread bool) reflect.Type {
	if spread && i >= m.FixedArity() {
		return m.Params[m.FixedArity()].Elem()
	}
	return m.Params[i]
}

// foldResults maps Go results onto a single value: none is nil, a trailing
// error becomes the error, two or more other results become []any.
func foldResults(out []reflect.Value) (any, error) {
	if n := len(out); n > 0 && out[n-1].Type() == errorType {
		var err error
		if !out[n-1].IsNil() {
			err = out[n-1].Interface().(error)
		}
		out = out[:n-1]
		if err != nil {
			return nil, err
		}
	}
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	}
	vals := make([]any, len(out))
	for i, o := range out {
		vals[i] = o.Interface()
	}
	return vals, nil
}

func recoverInvocation(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", linker.ErrInvocation, r)
	}
}
