package dynlink

import (
	"testing"

	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/funvibe/dynlink/internal/config"
	"github.com/funvibe/dynlink/pkg/beans"
	"github.com/funvibe/dynlink/pkg/callsite"
	"github.com/funvibe/dynlink/pkg/linker"
	"github.com/funvibe/dynlink/pkg/protolink"
)

func TestFactory_DefaultChain(t *testing.T) {
	chain := NewFactory().Linkers()
	if len(chain) < 2 {
		t.Fatalf("expected discovered linkers plus fallback, got %d", len(chain))
	}
	if chain[len(chain)-1] != linker.GuardingLinker(beans.Shared()) {
		t.Errorf("fallback must be last, got %T", chain[len(chain)-1])
	}
	if _, ok := chain[0].(*protolink.Linker); !ok {
		t.Errorf("expected the protobuf linker first, got %T", chain[0])
	}
}

func TestFactory_WithoutDiscovery(t *testing.T) {
	chain := NewFactory(WithoutDiscovery()).Linkers()
	if len(chain) != 1 || chain[0] != linker.GuardingLinker(beans.Shared()) {
		t.Fatalf("expected only the shared beans linker, got %v", chain)
	}
}

func TestFactory_Order(t *testing.T) {
	var order []string
	recorder := func(name string) linker.GuardingLinker {
		return linker.LinkerFunc(func(req *linker.LinkRequest, svc linker.Services) (*linker.GuardedInvocation, error) {
			order = append(order, name)
			return nil, nil
		})
	}
	fallback := beans.New()
	d := NewFactory(
		WithPrioritized(recorder("first"), recorder("second")),
		WithFallback(fallback),
	).CreateLinker()

	linkers := d.Linkers()
	if linkers[len(linkers)-1] != linker.GuardingLinker(fallback) {
		t.Fatalf("explicit fallback must be last, got %T", linkers[len(linkers)-1])
	}

	inv, err := d.Link(linker.NewLinkRequest(linker.NewCallDescriptor("dyn:getProp:value", 1), wrapperspb.String("hi")))
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("prioritized linkers ran as %v", order)
	}
	if fallback.Constructed() != 0 {
		t.Error("protobuf fields must resolve before the fallback sees the request")
	}
	res, err := inv.Invoke(wrapperspb.String("hi"))
	if err != nil || res != "hi" {
		t.Errorf("invoke = %v, %v", res, err)
	}
}

func TestFactory_DiscoveredDuplicatesSkipped(t *testing.T) {
	chain := NewFactory(WithPrioritized(protolink.New())).Linkers()
	n := 0
	for _, l := range chain {
		if _, ok := l.(*protolink.Linker); ok {
			n++
		}
	}
	if n != 1 {
		t.Errorf("expected one protobuf linker, got %d", n)
	}
}

func TestFactory_GoMethodsOnMessagesReachFallback(t *testing.T) {
	d := NewFactory(WithFallback(beans.New())).CreateLinker()
	msg := wrapperspb.String("hi")
	inv, err := d.Link(linker.NewLinkRequest(linker.NewCallDescriptor("dyn:callPropWithThis:getValue", 1), msg))
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if res, err := inv.Invoke(msg); err != nil || res != "hi" {
		t.Errorf("getValue() = %v, %v", res, err)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.CachePolicy = config.CachePolicyRacy
	cfg.Discovery = false
	cfg.CallSite.MaxChain = 1

	f := NewFactory(FromConfig(cfg))
	chain := f.Linkers()
	if len(chain) != 1 {
		t.Fatalf("expected a single fallback, got %d linkers", len(chain))
	}
	if l, ok := chain[0].(*beans.Linker); !ok || l == beans.Shared() {
		t.Fatalf("expected a private racy beans linker, got %T", chain[0])
	}

	type a struct{ Name string }
	type b struct{ Name string }
	site := f.NewCallSite(f.CreateLinker(), linker.NewCallDescriptor("dyn:getProp:name", 1))
	for _, recv := range []any{&a{"x"}, &b{"y"}} {
		if _, err := site.Invoke(recv); err != nil {
			t.Fatalf("invoke: %v", err)
		}
	}
	if site.State() != callsite.Megamorphic {
		t.Errorf("state = %s, want megamorphic with a chain of 1", site.State())
	}
}
