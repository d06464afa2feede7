package beans

import (
	"fmt"
	"reflect"
	"strings"
)

// MemberKind tells where a candidate member came from.
type MemberKind int

const (
	MemberMethod      MemberKind = iota // method of the receiver type
	MemberExtension                     // func registered for a type, receiver as first parameter
	MemberStatic                        // func registered in a class's static surface
	MemberConstructor                   // func registered as a class constructor
)

// Member is one overload candidate: a method, extension function, static
// function or constructor.
type Member struct {
	Name string
	// Params are the parameter types, receiver excluded. For a variadic
	// member the last entry is the slice type.
	Params   []reflect.Type
	Variadic bool
	Kind     MemberKind

	fn           reflect.Value
	withReceiver bool
}

// FixedArity is the number of parameters that must always be supplied.
func (m *Member) FixedArity() int {
	if m.Variadic {
		return len(m.Params) - 1
	}
	return len(m.Params)
}

// NumResults returns the number of results of the underlying func.
func (m *Member) NumResults() int {
	return m.fn.Type().NumOut()
}

func (m *Member) String() string {
	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		if m.Variadic && i == len(m.Params)-1 {
			params[i] = "..." + p.Elem().String()
			continue
		}
		params[i] = p.String()
	}
	return fmt.Sprintf("%s(%s)", m.Name, strings.Join(params, ", "))
}

// methodMember wraps a method from a type's method set.
func methodMember(m reflect.Method) *Member {
	ft := m.Type
	params := make([]reflect.Type, 0, ft.NumIn()-1)
	for i := 1; i < ft.NumIn(); i++ {
		params = append(params, ft.In(i))
	}
	return &Member{
		Name:         m.Name,
		Params:       params,
		Variadic:     ft.IsVariadic(),
		Kind:         MemberMethod,
		fn:           m.Func,
		withReceiver: true,
	}
}

// funcMember wraps a plain func. With a receiver the first parameter is
// the receiver and is not part of Params.
func funcMember(name string, fn any, kind MemberKind, withReceiver bool) (*Member, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("%s: expected a non-nil func, got %T", name, fn)
	}
	ft := v.Type()
	start := 0
	if withReceiver {
		if ft.NumIn() == 0 || (ft.IsVariadic() && ft.NumIn() == 1) {
			return nil, fmt.Errorf("%s: extension func must take the receiver as first parameter", name)
		}
		start = 1
	}
	params := make([]reflect.Type, 0, ft.NumIn()-start)
	for i := start; i < ft.NumIn(); i++ {
		params = append(params, ft.In(i))
	}
	return &Member{
		Name:         name,
		Params:       params,
		Variadic:     ft.IsVariadic(),
		Kind:         kind,
		fn:           v,
		withReceiver: withReceiver,
	}, nil
}

// receiverType is the first parameter of an extension member.
func (m *Member) receiverType() reflect.Type {
	if !m.withReceiver {
		return nil
	}
	return m.fn.Type().In(0)
}
