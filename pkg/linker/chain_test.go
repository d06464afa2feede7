package linker

import (
	"errors"
	"reflect"
	"testing"
)

func declining() GuardingLinker {
	return LinkerFunc(func(req *LinkRequest, svc Services) (*GuardedInvocation, error) {
		return nil, nil
	})
}

func constant(v any) GuardingLinker {
	return LinkerFunc(func(req *LinkRequest, svc Services) (*GuardedInvocation, error) {
		if !req.Descriptor.IsDynamic() {
			return nil, nil
		}
		return NewGuardedInvocation(func(args ...any) (any, error) { return v, nil }, nil), nil
	})
}

func TestDynamicLinker_FirstWins(t *testing.T) {
	d := NewDynamicLinker([]GuardingLinker{declining(), constant("first"), constant("second")})
	inv, err := d.Link(NewLinkRequest(Descriptor(1, "dyn", "getProp", "x"), 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, _ := inv.Invoke(1)
	if res != "first" {
		t.Fatalf("result = %v, want first", res)
	}
}

func TestDynamicLinker_Unlinkable(t *testing.T) {
	reason := LinkerFunc(func(req *LinkRequest, svc Services) (*GuardedInvocation, error) {
		return nil, Declinef(ErrNoApplicableMember, "f on %s", reflect.TypeOf(req.Args[0]))
	})
	d := NewDynamicLinker([]GuardingLinker{declining(), reason, constant("x")})

	desc := NewCallDescriptor("lang:getProp:x", 1)
	_, err := d.Link(NewLinkRequest(desc, 1))
	if !errors.Is(err, ErrUnlinkableCallSite) {
		t.Fatalf("expected ErrUnlinkableCallSite, got %v", err)
	}
	var ue *UnlinkableCallSiteError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnlinkableCallSiteError, got %T", err)
	}
	if ue.Descriptor != desc {
		t.Errorf("descriptor = %v, want %v", ue.Descriptor, desc)
	}
	if len(ue.Declines) != 1 || !errors.Is(ue.Declines[0], ErrNoApplicableMember) {
		t.Errorf("declines = %v", ue.Declines)
	}
}

func TestDynamicLinker_HardError(t *testing.T) {
	boom := errors.New("boom")
	failing := LinkerFunc(func(req *LinkRequest, svc Services) (*GuardedInvocation, error) {
		return nil, boom
	})
	d := NewDynamicLinker([]GuardingLinker{failing, constant("never")})
	_, err := d.Link(NewLinkRequest(Descriptor(1, "dyn", "getLength"), 1))
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if errors.Is(err, ErrUnlinkableCallSite) {
		t.Fatal("hard errors are not unlinkable call sites")
	}
}

func TestDynamicLinker_NestedLink(t *testing.T) {
	outer := LinkerFunc(func(req *LinkRequest, svc Services) (*GuardedInvocation, error) {
		if req.Descriptor.Operation() != "outer" {
			return nil, nil
		}
		inner, err := svc.Link(NewLinkRequest(Descriptor(1, "dyn", "inner"), req.Args...))
		if err != nil {
			return nil, err
		}
		return NewGuardedInvocation(func(args ...any) (any, error) {
			v, err := inner.Target(args...)
			return []any{"outer", v}, err
		}, inner.Guard), nil
	})
	innerL := LinkerFunc(func(req *LinkRequest, svc Services) (*GuardedInvocation, error) {
		if req.Descriptor.Operation() != "inner" {
			return nil, nil
		}
		return NewGuardedInvocation(func(args ...any) (any, error) { return "inner", nil }, nil), nil
	})
	d := NewDynamicLinker([]GuardingLinker{outer, innerL})
	inv, err := d.Link(NewLinkRequest(Descriptor(1, "dyn", "outer"), 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, _ := inv.Invoke(0)
	if got := res.([]any); got[0] != "outer" || got[1] != "inner" {
		t.Fatalf("result = %v", res)
	}
}

func TestDiscoverableRegistry(t *testing.T) {
	RegisterDiscoverable("zz-test", declining())
	RegisterDiscoverable("aa-test", declining())
	defer UnregisterDiscoverable("zz-test")
	defer UnregisterDiscoverable("aa-test")

	names := DiscoverableNames()
	ia, iz := -1, -1
	for i, n := range names {
		switch n {
		case "aa-test":
			ia = i
		case "zz-test":
			iz = i
		}
	}
	if ia < 0 || iz < 0 || ia > iz {
		t.Fatalf("names = %v", names)
	}
	if len(Discoverable()) != len(names) {
		t.Fatal("Discoverable and DiscoverableNames disagree")
	}
}
