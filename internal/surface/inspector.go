// Package surface reports, from source, what the beans linker exposes for a
// Go type: properties, methods and collection operations.
//
// It mirrors the runtime rules of package beans using go/types instead of
// reflect, so a type can be checked without running the program.
package surface

import (
	"fmt"
	"go/types"
	"os"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/funvibe/dynlink/internal/config"
	"github.com/funvibe/dynlink/pkg/beans"
)

// Report is the linkable surface of one receiver type.
type Report struct {
	// Package is the import path of the type.
	Package string

	// Type is the receiver type as written, e.g. "*demo.Person".
	Type string

	// Properties are ordered by name.
	Properties []Property

	// Methods are ordered by name, the way dyn:callPropWithThis sees them.
	Methods []Method

	// Collection lists the supported collection operations
	// (getLength, getItem, setItem).
	Collection []string
}

// Property describes one dyn:getProp / dyn:setProp name.
type Property struct {
	Name     string
	Type     string
	Readable bool
	Writable bool
	// Via is "accessor" when a getter or setter backs the property, "field"
	// when only a struct field does.
	Via string
}

// Method describes one exported method.
type Method struct {
	Name     string
	Arity    int
	Variadic bool
	Results  int
}

// Inspector loads Go packages and reports type surfaces.
type Inspector struct {
	// dir is the directory packages are loaded from.
	dir string

	// loadedPkgs caches loaded packages by import path.
	loadedPkgs map[string]*packages.Package
}

// NewInspector creates an inspector loading packages relative to dir.
// An empty dir means the working directory.
func NewInspector(dir string) *Inspector {
	return &Inspector{
		dir:        dir,
		loadedPkgs: make(map[string]*packages.Package),
	}
}

// Load loads the packages matching patterns.
func (ins *Inspector) Load(patterns ...string) ([]string, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes,
		Dir:  ins.dir,
		Env:  append(os.Environ(), "GOWORK=off"),
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("loading packages: %w", err)
	}

	var errs []string
	var paths []string
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			errs = append(errs, fmt.Sprintf("%s: %s", pkg.PkgPath, e.Msg))
		}
		ins.loadedPkgs[pkg.PkgPath] = pkg
		paths = append(paths, pkg.PkgPath)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("package errors:\n  %s", strings.Join(errs, "\n  "))
	}
	return paths, nil
}

// Inspect reports the surface of typeName in the loaded package pkgPath.
// With pointer set the receiver is *typeName, which is how values with
// pointer-receiver methods are normally linked.
func (ins *Inspector) Inspect(pkgPath, typeName string, pointer bool) (*Report, error) {
	pkg, ok := ins.loadedPkgs[pkgPath]
	if !ok {
		return nil, fmt.Errorf("package %s not loaded", pkgPath)
	}
	obj := pkg.Types.Scope().Lookup(typeName)
	if obj == nil {
		return nil, fmt.Errorf("type %q not found in package %s", typeName, pkgPath)
	}
	tn, ok := obj.(*types.TypeName)
	if !ok {
		return nil, fmt.Errorf("%q is not a type in package %s", typeName, pkgPath)
	}

	var recv types.Type = tn.Type()
	if pointer {
		recv = types.NewPointer(recv)
	}
	return newReport(pkgPath, recv, (*types.Package).Name), nil
}

func newReport(pkgPath string, recv types.Type, qual types.Qualifier) *Report {
	r := &Report{
		Package: pkgPath,
		Type:    types.TypeString(recv, qual),
	}
	props := make(map[string]*Property)
	prop := func(name string) *Property {
		p, ok := props[name]
		if !ok {
			p = &Property{Name: name}
			props[name] = p
		}
		return p
	}

	hasLen := false
	mset := types.NewMethodSet(recv)
	for i := 0; i < mset.Len(); i++ {
		fn := mset.At(i).Obj().(*types.Func)
		if !fn.Exported() {
			continue
		}
		sig := fn.Type().(*types.Signature)
		r.Methods = append(r.Methods, Method{
			Name:     fn.Name(),
			Arity:    sig.Params().Len(),
			Variadic: sig.Variadic(),
			Results:  sig.Results().Len(),
		})

		if fn.Name() == config.LenMethodName && sig.Params().Len() == 0 && sig.Results().Len() == 1 &&
			types.Identical(sig.Results().At(0).Type(), types.Typ[types.Int]) {
			hasLen = true
		}

		name, kind, ok := beans.PropertyName(fn.Name())
		if !ok {
			continue
		}
		switch kind {
		case beans.Getter, beans.BoolGetter:
			if t, ok := getterType(sig); ok {
				p := prop(name)
				// GetX wins over IsX
				if p.Readable && p.Via == "accessor" && kind == beans.BoolGetter {
					continue
				}
				p.Readable, p.Via, p.Type = true, "accessor", types.TypeString(t, qual)
			}
		case beans.Setter:
			if sig.Params().Len() == 1 && !sig.Variadic() {
				p := prop(name)
				p.Writable, p.Via = true, "accessor"
				if p.Type == "" {
					p.Type = types.TypeString(sig.Params().At(0).Type(), qual)
				}
			}
		}
	}

	_, isPtr := recv.(*types.Pointer)
	if st, ok := structOf(recv); ok {
		for _, f := range visibleFields(st) {
			p := prop(beans.PropertyKey(f.Name()))
			if !p.Readable {
				p.Readable = true
				p.Type = types.TypeString(f.Type(), qual)
				if p.Via == "" {
					p.Via = "field"
				}
			}
			if isPtr && !p.Writable {
				p.Writable = true
			}
		}
	}

	for _, p := range props {
		r.Properties = append(r.Properties, *p)
	}
	sort.Slice(r.Properties, func(i, j int) bool { return r.Properties[i].Name < r.Properties[j].Name })
	sort.Slice(r.Methods, func(i, j int) bool { return r.Methods[i].Name < r.Methods[j].Name })
	r.Collection = collectionOps(recv, hasLen)
	return r
}

func getterType(sig *types.Signature) (types.Type, bool) {
	if sig.Params().Len() != 0 {
		return nil, false
	}
	res := sig.Results()
	switch res.Len() {
	case 1:
		if isError(res.At(0).Type()) {
			return nil, false
		}
		return res.At(0).Type(), true
	case 2:
		if isError(res.At(1).Type()) {
			return res.At(0).Type(), true
		}
	}
	return nil, false
}

func isError(t types.Type) bool {
	return types.Identical(t, types.Universe.Lookup("error").Type())
}

func structOf(t types.Type) (*types.Struct, bool) {
	if p, ok := t.(*types.Pointer); ok {
		t = p.Elem()
	}
	st, ok := t.Underlying().(*types.Struct)
	return st, ok
}

// visibleFields returns the exported fields reachable without ambiguity,
// promoted through exported embedded structs. A shallower field hides deeper
// ones of the same name; two at the same depth hide each other.
func visibleFields(st *types.Struct) []*types.Var {
	type entry struct {
		field *types.Var
		depth int
		dup   bool
	}
	found := make(map[string]*entry)
	var walk func(st *types.Struct, depth int, seen map[*types.Struct]bool)
	walk = func(st *types.Struct, depth int, seen map[*types.Struct]bool) {
		if seen[st] {
			return
		}
		seen[st] = true
		for i := 0; i < st.NumFields(); i++ {
			f := st.Field(i)
			if !f.Exported() {
				continue
			}
			switch e, ok := found[f.Name()]; {
			case !ok || depth < e.depth:
				found[f.Name()] = &entry{field: f, depth: depth}
			case depth == e.depth:
				e.dup = true
			}
			if f.Embedded() {
				if inner, ok := structOf(f.Type()); ok {
					walk(inner, depth+1, seen)
				}
			}
		}
	}
	walk(st, 0, make(map[*types.Struct]bool))

	var out []*types.Var
	for _, e := range found {
		if !e.dup {
			out = append(out, e.field)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

func collectionOps(recv types.Type, hasLen bool) []string {
	all := []string{config.OpGetLength, config.OpGetItem, config.OpSetItem}
	switch u := recv.Underlying().(type) {
	case *types.Slice, *types.Map:
		return all
	case *types.Array:
		// not addressable through a value receiver
		return all[:2]
	case *types.Pointer:
		if _, ok := u.Elem().Underlying().(*types.Array); ok {
			return all
		}
	case *types.Basic:
		if u.Info()&types.IsString != 0 {
			return all[:1]
		}
	case *types.Chan:
		return all[:1]
	}
	if hasLen {
		return all[:1]
	}
	return nil
}
