package linker

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDeclined marks a diagnostic decline: the linker is not applicable and
// says why. The chain treats it exactly like a nil invocation.
var ErrDeclined = errors.New("declined")

var (
	// ErrAmbiguousOverload means several candidates applied and none was most specific.
	ErrAmbiguousOverload = fmt.Errorf("%w: ambiguous overload", ErrDeclined)
	// ErrNoApplicableMember means no candidate accepted the argument types.
	ErrNoApplicableMember = fmt.Errorf("%w: no applicable method or constructor", ErrDeclined)
	// ErrConstruction means a resolved member could not be turned into a target.
	ErrConstruction = fmt.Errorf("%w: cannot construct invocation", ErrDeclined)
)

var (
	// ErrUnlinkableCallSite is matched by UnlinkableCallSiteError.
	ErrUnlinkableCallSite = errors.New("no such dynamic method")
	// ErrGuardFailed is returned by GuardedInvocation.Invoke when the guard rejects the arguments.
	ErrGuardFailed = errors.New("guard rejected arguments")
	// ErrInvocation wraps failures raised by a target while it runs.
	ErrInvocation = errors.New("invocation failed")
	// ErrIndexOutOfBounds is a runtime bounds failure of getItem/setItem.
	ErrIndexOutOfBounds = fmt.Errorf("%w: index out of bounds", ErrInvocation)
)

// UnlinkableCallSiteError is returned when every linker in the chain declined.
type UnlinkableCallSiteError struct {
	Descriptor CallDescriptor
	// Declines holds the diagnostic declines collected along the chain.
	Declines []error
}

func (e *UnlinkableCallSiteError) Error() string {
	if len(e.Declines) == 0 {
		return fmt.Sprintf("%s: %s", ErrUnlinkableCallSite, e.Descriptor)
	}
	reasons := make([]string, len(e.Declines))
	for i, d := range e.Declines {
		reasons[i] = d.Error()
	}
	return fmt.Sprintf("%s: %s (%s)", ErrUnlinkableCallSite, e.Descriptor, strings.Join(reasons, "; "))
}

func (e *UnlinkableCallSiteError) Is(target error) bool {
	return target == ErrUnlinkableCallSite
}

// Declinef builds a diagnostic decline wrapping reason.
func Declinef(reason error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), reason)
}

// IsDecline reports whether err is a diagnostic decline.
func IsDecline(err error) bool {
	return errors.Is(err, ErrDeclined)
}
