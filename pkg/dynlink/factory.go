// Package dynlink assembles linker chains.
//
// A Factory orders linkers as: prioritized linkers, then linkers discovered
// through linker.RegisterDiscoverable, then the fallback linkers. Without an
// explicit fallback the process-wide beans linker is used, so every chain can
// link plain Go values.
//
//	d := dynlink.NewFactory().CreateLinker()
//	site := callsite.New(d, linker.NewCallDescriptor("dyn:getProp:name", 1))
//	name, err := site.Invoke(person)
package dynlink

import (
	"log/slog"
	"reflect"

	"github.com/funvibe/dynlink/internal/config"
	"github.com/funvibe/dynlink/pkg/beans"
	"github.com/funvibe/dynlink/pkg/callsite"
	"github.com/funvibe/dynlink/pkg/linker"
	_ "github.com/funvibe/dynlink/pkg/protolink" // registers the protobuf linker
)

// Factory creates DynamicLinkers.
type Factory struct {
	// prioritized linkers run first, in the given order.
	prioritized []linker.GuardingLinker

	// fallback linkers run last. Empty means beans.Shared().
	fallback []linker.GuardingLinker

	// discovery enables the discoverable registry.
	discovery bool

	converter linker.Converter
	logger    *slog.Logger

	// maxChain is handed to call sites created by NewCallSite.
	maxChain int
}

// Option configures a Factory.
type Option func(*Factory)

// WithPrioritized appends linkers that run before any discovered linker.
func WithPrioritized(ls ...linker.GuardingLinker) Option {
	return func(f *Factory) { f.prioritized = append(f.prioritized, ls...) }
}

// WithFallback appends linkers that run after every discovered linker.
func WithFallback(ls ...linker.GuardingLinker) Option {
	return func(f *Factory) { f.fallback = append(f.fallback, ls...) }
}

// WithoutDiscovery leaves discoverable linkers out of the chain.
func WithoutDiscovery() Option {
	return func(f *Factory) { f.discovery = false }
}

// WithConverter sets the conversion policy of created chains.
func WithConverter(c linker.Converter) Option {
	return func(f *Factory) { f.converter = c }
}

// WithLogger sets the logger of created chains and call sites.
func WithLogger(l *slog.Logger) Option {
	return func(f *Factory) { f.logger = l }
}

// FromConfig applies cfg: discovery, the cache policy of the fallback and
// the chain size of call sites. cfg is expected to be validated.
func FromConfig(cfg *config.Config) Option {
	return func(f *Factory) {
		f.discovery = cfg.Discovery
		f.maxChain = cfg.CallSite.MaxChain
		if cfg.CachePolicy == config.CachePolicyRacy {
			f.fallback = append(f.fallback, beans.New(beans.WithCachePolicy(beans.CacheRacy)))
		}
	}
}

// NewFactory creates a factory with discovery enabled.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		discovery: true,
		converter: linker.DefaultConverter,
		logger:    slog.Default(),
		maxChain:  config.DefaultMaxChain,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Linkers returns the chain CreateLinker would build, in order. Discovered
// linkers whose type was already given explicitly are skipped.
func (f *Factory) Linkers() []linker.GuardingLinker {
	fallback := f.fallback
	if len(fallback) == 0 {
		fallback = []linker.GuardingLinker{beans.Shared()}
	}

	explicit := make(map[reflect.Type]bool)
	for _, l := range f.prioritized {
		explicit[reflect.TypeOf(l)] = true
	}
	for _, l := range fallback {
		explicit[reflect.TypeOf(l)] = true
	}

	chain := append([]linker.GuardingLinker(nil), f.prioritized...)
	if f.discovery {
		for _, l := range linker.Discoverable() {
			if explicit[reflect.TypeOf(l)] {
				continue
			}
			chain = append(chain, l)
		}
	}
	return append(chain, fallback...)
}

// CreateLinker builds the chain.
func (f *Factory) CreateLinker() *linker.DynamicLinker {
	chain := f.Linkers()
	f.logger.Debug("created dynamic linker", "linkers", len(chain), "discovery", f.discovery)
	return linker.NewDynamicLinker(chain,
		linker.WithConverter(f.converter),
		linker.WithLogger(f.logger))
}

// NewCallSite creates a call site over d with the factory's chain size and
// logger.
func (f *Factory) NewCallSite(d *linker.DynamicLinker, desc linker.CallDescriptor) *callsite.Site {
	return callsite.New(d, desc,
		callsite.WithMaxChain(f.maxChain),
		callsite.WithLogger(f.logger))
}
