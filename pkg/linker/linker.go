package linker

import "log/slog"

// GuardingLinker resolves a link request into a guarded invocation.
//
// A linker returns (nil, nil) when the request is outside its competence, or
// an error wrapping ErrDeclined to decline with a reason. Declining must have
// no observable side effects. Any other error aborts linking.
type GuardingLinker interface {
	TryLink(req *LinkRequest, svc Services) (*GuardedInvocation, error)
}

// LinkerFunc adapts a function to GuardingLinker.
type LinkerFunc func(req *LinkRequest, svc Services) (*GuardedInvocation, error)

func (f LinkerFunc) TryLink(req *LinkRequest, svc Services) (*GuardedInvocation, error) {
	return f(req, svc)
}

// Services is the handle a linker receives from the chain.
type Services interface {
	// Link runs the whole chain for a nested request.
	Link(req *LinkRequest) (*GuardedInvocation, error)
	// Converter returns the conversion policy for argument types.
	Converter() Converter
	// Logger returns the logger linkers should report through.
	Logger() *slog.Logger
}
