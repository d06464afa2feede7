// Package beans implements the fallback linker for plain Go values.
//
// The linker makes any value's conventional surface linkable:
//   - GetX/IsX and SetX methods as readers and writers of property "x"
//     for dyn:getProp and dyn:setProp;
//   - exported struct fields as properties, unless an accessor of the same
//     name exists;
//   - all exported methods (plus registered extension methods) for
//     dyn:callPropWithThis, with overload resolution and variadic calls;
//   - dyn:getLength, dyn:getItem and dyn:setItem on arrays, slices and maps
//     (dyn:getLength also on strings, channels and types with Len() int);
//   - dyn:new on a *Class, calling its registered constructors;
//   - the static surface of a class through its virtual "statics" property.
//
// The linker keeps one specialised linker per receiver runtime type. It is
// meant to be the last linker in a chain so that it sees only requests that no
// language-specific linker claimed.
package beans

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/funvibe/dynlink/pkg/linker"
)

// CachePolicy controls how concurrent first use of a type is handled.
type CachePolicy int

const (
	// CacheExactlyOnce builds each type linker at most once.
	CacheExactlyOnce CachePolicy = iota
	// CacheRacy lets concurrent first callers build in parallel; one result
	// is stored and every caller uses the stored one.
	CacheRacy
)

func (p CachePolicy) String() string {
	if p == CacheRacy {
		return "racy"
	}
	return "exactly_once"
}

// Linker is the type-keyed fallback linker.
type Linker struct {
	policy CachePolicy

	mu          sync.Mutex
	linkers     sync.Map // reflect.Type -> linker.GuardingLinker
	constructed atomic.Int64
}

// Option configures a Linker.
type Option func(*Linker)

// WithCachePolicy sets the construction policy of the type cache.
func WithCachePolicy(p CachePolicy) Option {
	return func(l *Linker) {
		l.policy = p
	}
}

// New creates a linker with its own type cache.
func New(opts ...Option) *Linker {
	l := &Linker{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var shared = New()

// Shared returns the process-wide linker. Its cache lives as long as the
// process.
func Shared() *Linker { return shared }

// TryLink implements linker.GuardingLinker.
func (l *Linker) TryLink(req *linker.LinkRequest, svc linker.Services) (*linker.GuardedInvocation, error) {
	if len(req.Args) == 0 {
		// no receiver, nothing to dispatch on
		return nil, nil
	}
	if !req.Descriptor.IsDynamic() {
		return nil, nil
	}
	recv := req.Args[0]
	if recv == nil {
		return nil, nil
	}
	return l.linkerFor(reflect.TypeOf(recv), svc).TryLink(req, svc)
}

// Constructed returns how many type linkers were built so far.
func (l *Linker) Constructed() int64 {
	return l.constructed.Load()
}

// Cached reports whether a type linker for t exists.
func (l *Linker) Cached(t reflect.Type) bool {
	_, ok := l.linkers.Load(t)
	return ok
}

func (l *Linker) linkerFor(t reflect.Type, svc linker.Services) linker.GuardingLinker {
	if tl, ok := l.linkers.Load(t); ok {
		return tl.(linker.GuardingLinker)
	}
	if l.policy == CacheRacy {
		tl, _ := l.linkers.LoadOrStore(t, l.build(t, svc))
		return tl.(linker.GuardingLinker)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if tl, ok := l.linkers.Load(t); ok {
		return tl.(linker.GuardingLinker)
	}
	tl := l.build(t, svc)
	l.linkers.Store(t, tl)
	return tl
}

func (l *Linker) build(t reflect.Type, svc linker.Services) linker.GuardingLinker {
	l.constructed.Add(1)
	svc.Logger().Debug("building type linker", "type", t.String(), "policy", l.policy.String())
	switch t {
	case classType:
		return newClassLinker()
	case staticsType:
		return staticsLinker{}
	}
	return newInstanceLinker(t)
}
