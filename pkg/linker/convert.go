package linker

import (
	"fmt"
	"reflect"
)

// Conversion ranks how an argument type converts to a parameter type.
// Lower is better; ConvNone means not applicable.
type Conversion int

const (
	ConvIdentity   Conversion = iota // same type
	ConvAssignable                   // Go assignability, including interface satisfaction
	ConvWidening                     // lossless numeric widening
	ConvNone                         // not convertible
)

func (c Conversion) String() string {
	switch c {
	case ConvIdentity:
		return "identity"
	case ConvAssignable:
		return "assignable"
	case ConvWidening:
		return "widening"
	default:
		return "none"
	}
}

// Converter is the conversion policy used by overload resolution and by
// targets that adapt their arguments. Language runtimes can plug their own
// table; DefaultConverter follows Go assignability plus numeric widening.
type Converter interface {
	// Rank reports how from converts to to. A nil from stands for an untyped nil argument.
	Rank(from, to reflect.Type) Conversion
	// Convert converts v to a value of type to.
	Convert(v any, to reflect.Type) (reflect.Value, error)
}

// DefaultConverter is the Go conversion table.
var DefaultConverter Converter = goConverter{}

type goConverter struct{}

func (goConverter) Rank(from, to reflect.Type) Conversion {
	if from == nil {
		if nillable(to.Kind()) {
			return ConvAssignable
		}
		return ConvNone
	}
	if from == to {
		return ConvIdentity
	}
	if from.AssignableTo(to) {
		return ConvAssignable
	}
	if widens(from, to) {
		return ConvWidening
	}
	return ConvNone
}

func (c goConverter) Convert(v any, to reflect.Type) (reflect.Value, error) {
	if v == nil {
		if nillable(to.Kind()) {
			return reflect.Zero(to), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot use nil as %s", to)
	}
	rv := reflect.ValueOf(v)
	switch c.Rank(rv.Type(), to) {
	case ConvIdentity, ConvAssignable:
		return rv, nil
	case ConvWidening:
		return rv.Convert(to), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", rv.Type(), to)
}

func nillable(k reflect.Kind) bool {
	switch k {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return true
	}
	return false
}

func isSigned(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUnsigned(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

// widens reports lossless-enough numeric widening between basic kinds.
// Named types of the same kind (int -> time.Duration) widen too.
func widens(from, to reflect.Type) bool {
	fk, tk := from.Kind(), to.Kind()
	switch {
	case isSigned(fk) && isSigned(tk):
		return from.Bits() <= to.Bits()
	case isUnsigned(fk) && isUnsigned(tk):
		return from.Bits() <= to.Bits()
	case isUnsigned(fk) && isSigned(tk):
		return from.Bits() < to.Bits()
	case (isSigned(fk) || isUnsigned(fk)) && isFloat(tk):
		return true
	case isFloat(fk) && isFloat(tk):
		return from.Bits() <= to.Bits()
	}
	return false
}
