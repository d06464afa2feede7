package linker

import "reflect"

// LinkRequest bundles a descriptor with the arguments of one invocation
// attempt. Args[0] is the receiver by convention. Requests are owned by the
// caller and must be treated as read-only by linkers.
type LinkRequest struct {
	Descriptor CallDescriptor
	Args       []any
}

// NewLinkRequest creates a request for the given descriptor and arguments.
func NewLinkRequest(desc CallDescriptor, args ...any) *LinkRequest {
	return &LinkRequest{Descriptor: desc, Args: args}
}

// Receiver returns Args[0]. ok is false when the request carries no arguments.
func (r *LinkRequest) Receiver() (any, bool) {
	if len(r.Args) == 0 {
		return nil, false
	}
	return r.Args[0], true
}

// Operands returns the arguments after the receiver.
func (r *LinkRequest) Operands() []any {
	if len(r.Args) <= 1 {
		return nil
	}
	return r.Args[1:]
}

// ArgTypes returns the runtime types of the operands. A nil operand has a
// nil type.
func (r *LinkRequest) ArgTypes() []reflect.Type {
	ops := r.Operands()
	types := make([]reflect.Type, len(ops))
	for i, op := range ops {
		types[i] = reflect.TypeOf(op)
	}
	return types
}
