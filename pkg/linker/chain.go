package linker

import (
	"fmt"
	"log/slog"
	"slices"
)

// DynamicLinker is the chain of linkers a call site links through. Linkers are
// tried in registration order and the first invocation wins. The chain is
// immutable and safe for concurrent use.
type DynamicLinker struct {
	linkers   []GuardingLinker
	converter Converter
	logger    *slog.Logger
}

// Option configures a DynamicLinker.
type Option func(*DynamicLinker)

// WithConverter sets the conversion policy handed to linkers.
func WithConverter(c Converter) Option {
	return func(d *DynamicLinker) {
		if c != nil {
			d.converter = c
		}
	}
}

// WithLogger sets the logger handed to linkers.
func WithLogger(l *slog.Logger) Option {
	return func(d *DynamicLinker) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDynamicLinker creates a chain over linkers in the given order.
func NewDynamicLinker(linkers []GuardingLinker, opts ...Option) *DynamicLinker {
	d := &DynamicLinker{
		linkers:   slices.Clone(linkers),
		converter: DefaultConverter,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Link resolves req through the chain. When every linker declines it returns
// an *UnlinkableCallSiteError.
func (d *DynamicLinker) Link(req *LinkRequest) (*GuardedInvocation, error) {
	var declines []error
	for _, l := range d.linkers {
		inv, err := l.TryLink(req, d)
		if err != nil {
			if IsDecline(err) {
				d.logger.Debug("linker declined", "descriptor", req.Descriptor.String(), "reason", err)
				declines = append(declines, err)
				continue
			}
			return nil, fmt.Errorf("linking %s: %w", req.Descriptor, err)
		}
		if inv != nil {
			return inv, nil
		}
	}
	return nil, &UnlinkableCallSiteError{Descriptor: req.Descriptor, Declines: declines}
}

// Linkers returns the chain in order.
func (d *DynamicLinker) Linkers() []GuardingLinker {
	return slices.Clone(d.linkers)
}

func (d *DynamicLinker) Converter() Converter { return d.converter }

func (d *DynamicLinker) Logger() *slog.Logger { return d.logger }
