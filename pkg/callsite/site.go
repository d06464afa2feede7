// Package callsite provides relinkable call sites: a call site caches the
// guarded invocations it has linked and relinks when none of their guards
// accepts the arguments of a call.
package callsite

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/funvibe/dynlink/internal/config"
	"github.com/funvibe/dynlink/pkg/linker"
)

// State describes how many receiver shapes a site has seen.
type State int

const (
	// Uninitialized: nothing linked yet.
	Uninitialized State = iota
	// Monomorphic: one cached invocation.
	Monomorphic
	// Polymorphic: several cached invocations, none evicted.
	Polymorphic
	// Megamorphic: the chain overflowed and entries were evicted.
	Megamorphic
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Monomorphic:
		return "monomorphic"
	case Polymorphic:
		return "polymorphic"
	case Megamorphic:
		return "megamorphic"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Linker is what a site links through; *linker.DynamicLinker implements it.
type Linker interface {
	Link(req *linker.LinkRequest) (*linker.GuardedInvocation, error)
}

// Site is a call site for one descriptor. It is safe for concurrent use:
// Invoke reads an immutable snapshot of the cached chain, relinking swaps in a
// new snapshot under a mutex.
type Site struct {
	id       uuid.UUID
	linker   Linker
	desc     linker.CallDescriptor
	maxChain int
	logger   *slog.Logger

	mu          sync.Mutex
	chain       atomic.Pointer[[]*linker.GuardedInvocation]
	relinks     atomic.Int64
	megamorphic atomic.Bool
}

// Option configures a Site.
type Option func(*Site)

// WithMaxChain bounds the number of cached invocations. Values below 1 are
// ignored.
func WithMaxChain(n int) Option {
	return func(s *Site) {
		if n > 0 {
			s.maxChain = n
		}
	}
}

// WithLogger sets the logger relinks are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(s *Site) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates an empty call site for desc.
func New(l Linker, desc linker.CallDescriptor, opts ...Option) *Site {
	s := &Site{
		id:       uuid.New(),
		linker:   l,
		desc:     desc,
		maxChain: config.DefaultMaxChain,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID identifies the site in logs.
func (s *Site) ID() uuid.UUID { return s.id }

// Descriptor returns the descriptor the site links.
func (s *Site) Descriptor() linker.CallDescriptor { return s.desc }

// Invoke calls the first cached invocation whose guard accepts args, linking
// a new one when none does. Linking errors, including
// *linker.UnlinkableCallSiteError, are returned unchanged and leave the cache
// as it was.
func (s *Site) Invoke(args ...any) (any, error) {
	for _, inv := range s.entries() {
		if inv.Accepts(args...) {
			return inv.Target(args...)
		}
	}
	inv, err := s.relink(args)
	if err != nil {
		return nil, err
	}
	return inv.Target(args...)
}

func (s *Site) entries() []*linker.GuardedInvocation {
	if p := s.chain.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *Site) relink(args []any) (*linker.GuardedInvocation, error) {
	inv, err := s.linker.Link(linker.NewLinkRequest(s.desc, args...))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	old := s.entries()
	// a concurrent miss may have cached a matching invocation meanwhile
	for _, e := range old {
		if e.Accepts(args...) {
			s.mu.Unlock()
			return e, nil
		}
	}
	next := make([]*linker.GuardedInvocation, 0, min(len(old)+1, s.maxChain))
	next = append(next, inv)
	for _, e := range old {
		if len(next) == s.maxChain {
			s.megamorphic.Store(true)
			break
		}
		next = append(next, e)
	}
	s.chain.Store(&next)
	s.mu.Unlock()

	n := s.relinks.Add(1)
	s.logger.Debug("relinked call site",
		"site", s.id.String(),
		"descriptor", s.desc.String(),
		"type", receiverType(args),
		"chain", len(next),
		"relinks", n)
	return inv, nil
}

func receiverType(args []any) string {
	if len(args) == 0 {
		return "<none>"
	}
	return fmt.Sprintf("%T", args[0])
}

// Relinks returns how many invocations were added to the site.
func (s *Site) Relinks() int64 { return s.relinks.Load() }

// Len returns the number of cached invocations.
func (s *Site) Len() int { return len(s.entries()) }

// State reports the polymorphism of the site.
func (s *Site) State() State {
	switch n := len(s.entries()); {
	case s.megamorphic.Load():
		return Megamorphic
	case n == 0:
		return Uninitialized
	case n == 1:
		return Monomorphic
	default:
		return Polymorphic
	}
}

// Reset discards every cached invocation. The relink counter is kept.
func (s *Site) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chain.Store(nil)
	s.megamorphic.Store(false)
}
