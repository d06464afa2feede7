// Package linker defines the dynamic linking protocol: call descriptors, link
// requests, guarded invocations, the GuardingLinker contract and the chain that
// tries linkers in order until one of them produces an invocation.
//
// A linker that does not recognise a request declines by returning a nil
// invocation. Declining is the normal, frequent path: every request is offered
// to several linkers and most of them will not be interested.
package linker

import (
	"fmt"
	"strings"

	"github.com/funvibe/dynlink/internal/config"
)

// CallDescriptor is an immutable description of a dynamic operation: the name
// tokens ("dyn", "getProp", "name") and the number of arguments the call site
// passes, receiver included.
//
// CallDescriptor is comparable and can be used as a map key.
type CallDescriptor struct {
	name  string
	count int
	arity int
}

// NewCallDescriptor creates a descriptor from a colon separated name.
// Arity is the number of arguments at the call site, receiver included;
// pass -1 when the call site does not fix it.
func NewCallDescriptor(name string, arity int) CallDescriptor {
	count := 0
	if name != "" {
		count = strings.Count(name, config.TokenSeparator) + 1
	}
	return CallDescriptor{name: name, count: count, arity: arity}
}

// Descriptor is a convenience constructor that joins tokens with ':'.
func Descriptor(arity int, tokens ...string) CallDescriptor {
	return NewCallDescriptor(strings.Join(tokens, config.TokenSeparator), arity)
}

// Name returns the full colon separated name.
func (d CallDescriptor) Name() string { return d.name }

// Arity returns the call-site arity, or -1 if unspecified.
func (d CallDescriptor) Arity() int { return d.arity }

// TokenCount returns the number of name tokens.
func (d CallDescriptor) TokenCount() int { return d.count }

// Token returns token i, or "" when i is out of range.
func (d CallDescriptor) Token(i int) string {
	if i < 0 || i >= d.count {
		return ""
	}
	rest := d.name
	for ; i > 0; i-- {
		idx := strings.Index(rest, config.TokenSeparator)
		rest = rest[idx+1:]
	}
	if idx := strings.Index(rest, config.TokenSeparator); idx >= 0 {
		return rest[:idx]
	}
	return rest
}

// Namespace returns token 0.
func (d CallDescriptor) Namespace() string { return d.Token(0) }

// Operation returns token 1.
func (d CallDescriptor) Operation() string { return d.Token(1) }

// Operand returns token 2, typically a property or method name.
func (d CallDescriptor) Operand() (string, bool) {
	if d.count < 3 {
		return "", false
	}
	return d.Token(2), true
}

// IsDynamic reports whether the descriptor names an operation in the "dyn"
// namespace. Linkers check this first and decline when it is false.
func (d CallDescriptor) IsDynamic() bool {
	return d.count >= 2 && d.Token(0) == config.Namespace
}

func (d CallDescriptor) String() string {
	if d.arity < 0 {
		return d.name
	}
	return fmt.Sprintf("%s/%d", d.name, d.arity)
}
