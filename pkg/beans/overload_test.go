package beans

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/funvibe/dynlink/pkg/linker"
)

func members(t *testing.T, fns ...any) []*Member {
	t.Helper()
	out := make([]*Member, len(fns))
	for i, fn := range fns {
		m, err := funcMember("f", fn, MemberStatic, false)
		if err != nil {
			t.Fatalf("funcMember: %v", err)
		}
		out[i] = m
	}
	return out
}

func typesOf(args ...any) []reflect.Type {
	out := make([]reflect.Type, len(args))
	for i, a := range args {
		out[i] = reflect.TypeOf(a)
	}
	return out
}

func TestSelectOverload(t *testing.T) {
	fInt := func(int) {}
	fString := func(string) {}
	fIntInt := func(int, int) {}
	fVar := func(...int) {}
	cands := members(t, fInt, fString, fIntInt, fVar)

	tests := []struct {
		args   []any
		want   int
		spread bool
	}{
		{[]any{5}, 0, false},
		{[]any{"x"}, 1, false},
		{[]any{1, 2}, 2, false},
		{[]any{1, 2, 3}, 3, true},
		{[]any{}, 3, true},
		{[]any{[]int{1}}, 3, false},
	}
	for _, tt := range tests {
		sel, err := SelectOverload(cands, typesOf(tt.args...), linker.DefaultConverter)
		if err != nil {
			t.Errorf("%v: unexpected error: %v", tt.args, err)
			continue
		}
		if sel.Member != cands[tt.want] {
			t.Errorf("%v: selected %s, want %s", tt.args, sel.Member, cands[tt.want])
		}
		if sel.Spread != tt.spread {
			t.Errorf("%v: spread = %v, want %v", tt.args, sel.Spread, tt.spread)
		}
	}
}

func TestSelectOverload_MostSpecific(t *testing.T) {
	cands := members(t,
		func(any) {},
		func(fmt.Stringer) {},
	)
	sel, err := SelectOverload(cands, typesOf(both{}), linker.DefaultConverter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.Member != cands[1] {
		t.Errorf("selected %s, want the Stringer overload", sel.Member)
	}

	cands = members(t,
		func(float64, float64) {},
		func(int, int) {},
	)
	sel, err = SelectOverload(cands, typesOf(1, 2), linker.DefaultConverter)
	if err != nil || sel.Member != cands[1] {
		t.Errorf("int args should prefer (int, int), got %v, %v", sel, err)
	}
}

func TestSelectOverload_CostBreaksMutualConversion(t *testing.T) {
	cands := members(t,
		func(int64) {},
		func(int) {},
	)
	sel, err := SelectOverload(cands, typesOf(7), linker.DefaultConverter)
	if err != nil || sel.Member != cands[1] {
		t.Fatalf("expected identity match, got %v, %v", sel, err)
	}
}

func TestSelectOverload_Ambiguous(t *testing.T) {
	cands := members(t,
		func(fmt.Stringer) {},
		func(error) {},
	)
	_, err := SelectOverload(cands, typesOf(both{}), linker.DefaultConverter)
	if !errors.Is(err, linker.ErrAmbiguousOverload) {
		t.Fatalf("expected ErrAmbiguousOverload, got %v", err)
	}
	if !linker.IsDecline(err) {
		t.Fatal("ambiguity must be a decline")
	}
}

func TestSelectOverload_NoneApplicable(t *testing.T) {
	cands := members(t, func(int) {}, func(string, string) {})
	for _, args := range [][]any{{1.5}, {"a"}, {1, 2, 3}} {
		if _, err := SelectOverload(cands, typesOf(args...), linker.DefaultConverter); !errors.Is(err, linker.ErrNoApplicableMember) {
			t.Errorf("%v: expected ErrNoApplicableMember, got %v", args, err)
		}
	}
}

func TestSelectOverload_NilArgument(t *testing.T) {
	cands := members(t, func(int) {}, func(*Person) {})
	sel, err := SelectOverload(cands, []reflect.Type{nil}, linker.DefaultConverter)
	if err != nil || sel.Member != cands[1] {
		t.Fatalf("nil should select the pointer overload, got %v, %v", sel, err)
	}
}

func TestMember_String(t *testing.T) {
	m := members(t, func(string, ...int) {})[0]
	if got := m.String(); got != "f(string, ...int)" {
		t.Errorf("String() = %q", got)
	}
	if m.FixedArity() != 1 {
		t.Errorf("FixedArity() = %d", m.FixedArity())
	}
}

func TestPropertyName(t *testing.T) {
	tests := []struct {
		method string
		prop   string
		kind   AccessorKind
		ok     bool
	}{
		{"GetName", "name", Getter, true},
		{"IsActive", "active", BoolGetter, true},
		{"SetURL", "URL", Setter, true},
		{"GetX", "x", Getter, true},
		{"Get", "", NotAccessor, false},
		{"Getaway", "", NotAccessor, false},
		{"Issue", "", NotAccessor, false},
		{"Close", "", NotAccessor, false},
	}
	for _, tt := range tests {
		prop, kind, ok := PropertyName(tt.method)
		if prop != tt.prop || kind != tt.kind || ok != tt.ok {
			t.Errorf("PropertyName(%q) = %q, %v, %v", tt.method, prop, kind, ok)
		}
	}
	if ExportedName("add") != "Add" {
		t.Error("ExportedName")
	}
	for in, want := range map[string]string{"Name": "name", "name": "name", "URL": "URL", "ID": "ID", "X": "x", "": ""} {
		if got := PropertyKey(in); got != want {
			t.Errorf("PropertyKey(%q) = %q, want %q", in, got, want)
		}
	}
}
