package surface

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const demoPkg = "github.com/funvibe/dynlink/internal/surface/testdata/demo"

func loadDemo(t *testing.T) *Inspector {
	t.Helper()
	ins := NewInspector(".")
	if _, err := ins.Load("./testdata/demo"); err != nil {
		t.Skipf("cannot load packages in this environment: %v", err)
	}
	return ins
}

func TestInspect_Person(t *testing.T) {
	ins := loadDemo(t)
	r, err := ins.Inspect(demoPkg, "Person", true)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}

	want := &Report{
		Package: demoPkg,
		Type:    "*demo.Person",
		Properties: []Property{
			{Name: "ID", Type: "int", Readable: true, Writable: true, Via: "field"},
			{Name: "adult", Type: "bool", Readable: true, Via: "accessor"},
			{Name: "age", Type: "int", Readable: true, Writable: true, Via: "accessor"},
			{Name: "base", Type: "demo.Base", Readable: true, Writable: true, Via: "field"},
			{Name: "name", Type: "string", Readable: true, Writable: true, Via: "accessor"},
			{Name: "note", Type: "string", Readable: true, Writable: true, Via: "field"},
		},
		Methods: []Method{
			{Name: "Email", Arity: 0, Results: 2},
			{Name: "GetName", Arity: 0, Results: 1},
			{Name: "IsAdult", Arity: 0, Results: 1},
			{Name: "SetAge", Arity: 1, Results: 0},
			{Name: "Tags", Arity: 2, Variadic: true, Results: 1},
		},
	}
	if diff := cmp.Diff(want, r); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestInspect_ValueReceiverIsReadOnly(t *testing.T) {
	ins := loadDemo(t)
	r, err := ins.Inspect(demoPkg, "Person", false)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if len(r.Methods) != 0 {
		t.Errorf("pointer methods leaked into the value method set: %v", r.Methods)
	}
	for _, p := range r.Properties {
		if p.Writable {
			t.Errorf("property %s should be read-only on a value receiver", p.Name)
		}
	}
}

func TestInspect_Collections(t *testing.T) {
	ins := loadDemo(t)
	tests := []struct {
		typ     string
		pointer bool
		want    []string
	}{
		{"Names", false, []string{"getLength", "getItem", "setItem"}},
		{"Grid", false, []string{"getLength", "getItem"}},
		{"Grid", true, []string{"getLength", "getItem", "setItem"}},
		{"Bag", false, []string{"getLength"}},
		{"Person", true, nil},
	}
	for _, tt := range tests {
		r, err := ins.Inspect(demoPkg, tt.typ, tt.pointer)
		if err != nil {
			t.Fatalf("Inspect(%s): %v", tt.typ, err)
		}
		if diff := cmp.Diff(tt.want, r.Collection); diff != "" {
			t.Errorf("%s (pointer=%v) collection mismatch (-want +got):\n%s", tt.typ, tt.pointer, diff)
		}
	}
}

func TestInspect_Errors(t *testing.T) {
	ins := loadDemo(t)
	if _, err := ins.Inspect(demoPkg, "Missing", false); err == nil {
		t.Error("expected error for a missing type")
	}
	if _, err := ins.Inspect("example.com/nope", "T", false); err == nil {
		t.Error("expected error for a package that was not loaded")
	}
}
