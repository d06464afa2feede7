package linker

import (
	"fmt"
	"reflect"
)

// Target is a resolved, invokable operation. It receives the same argument
// tuple the call site passes, receiver first.
type Target func(args ...any) (any, error)

// Guard reports whether a cached Target is still valid for an argument tuple.
// Guards run on every cached invocation and must be cheap.
type Guard func(args ...any) bool

// GuardedInvocation pairs a Target with the Guard that keeps it valid.
// A nil Guard means the target is unconditionally valid.
type GuardedInvocation struct {
	Target Target
	Guard  Guard
}

// NewGuardedInvocation creates a guarded invocation.
func NewGuardedInvocation(target Target, guard Guard) *GuardedInvocation {
	return &GuardedInvocation{Target: target, Guard: guard}
}

// Accepts evaluates the guard against args.
func (g *GuardedInvocation) Accepts(args ...any) bool {
	return g.Guard == nil || g.Guard(args...)
}

// Invoke runs the target if the guard accepts args. The target is never run
// when the guard fails; ErrGuardFailed is returned instead and the caller is
// expected to relink.
func (g *GuardedInvocation) Invoke(args ...any) (any, error) {
	if !g.Accepts(args...) {
		return nil, ErrGuardFailed
	}
	return g.Target(args...)
}

// WithGuard returns a copy of g whose guard also requires extra.
func (g *GuardedInvocation) WithGuard(extra Guard) *GuardedInvocation {
	return &GuardedInvocation{Target: g.Target, Guard: AndGuards(g.Guard, extra)}
}

func (g *GuardedInvocation) String() string {
	if g.Guard == nil {
		return "GuardedInvocation(unguarded)"
	}
	return fmt.Sprintf("GuardedInvocation(%p)", g.Target)
}

// TypeGuard accepts argument tuples whose receiver has exactly type t.
func TypeGuard(t reflect.Type) Guard {
	return func(args ...any) bool {
		return len(args) > 0 && args[0] != nil && reflect.TypeOf(args[0]) == t
	}
}

// IdentityGuard accepts argument tuples whose receiver is v itself.
// v must be comparable, typically a pointer.
func IdentityGuard(v any) Guard {
	return func(args ...any) bool {
		return len(args) > 0 && args[0] == v
	}
}

// ArgTypesGuard pins the number of operands and their runtime types. It is
// used when a target was picked from an overload set by argument types.
func ArgTypesGuard(types []reflect.Type) Guard {
	pinned := append([]reflect.Type(nil), types...)
	return func(args ...any) bool {
		if len(args) != len(pinned)+1 {
			return false
		}
		for i, t := range pinned {
			if reflect.TypeOf(args[i+1]) != t {
				return false
			}
		}
		return true
	}
}

// AndGuards combines guards; nil guards are skipped.
func AndGuards(guards ...Guard) Guard {
	var live []Guard
	for _, g := range guards {
		if g != nil {
			live = append(live, g)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	}
	return func(args ...any) bool {
		for _, g := range live {
			if !g(args...) {
				return false
			}
		}
		return true
	}
}
