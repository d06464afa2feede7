package beans

import (
	"reflect"
	"strings"

	"github.com/funvibe/dynlink/internal/config"
)

// facet is the linkable surface of one runtime type, computed once when the
// type's linker is built.
type facet struct {
	typ     reflect.Type
	getters map[string]*Member
	setters map[string][]*Member
	fields  map[string]reflect.StructField
	methods map[string][]*Member
	lenFn   *Member
}

func newFacet(t reflect.Type) *facet {
	f := &facet{
		typ:     t,
		getters: make(map[string]*Member),
		setters: make(map[string][]*Member),
		fields:  make(map[string]reflect.StructField),
		methods: make(map[string][]*Member),
	}

	for i := 0; i < t.NumMethod(); i++ {
		f.addMethod(methodMember(t.Method(i)))
	}
	if c := lookupClass(t); c != nil {
		for _, ms := range c.extensionMethods() {
			for _, m := range ms {
				f.addMethod(m)
			}
		}
	}

	st := t
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	if st.Kind() == reflect.Struct {
		for _, sf := range reflect.VisibleFields(st) {
			if !sf.IsExported() || !exportedPath(st, sf.Index) {
				continue
			}
			f.fields[PropertyKey(sf.Name)] = sf
		}
	}
	return f
}

func (f *facet) addMethod(m *Member) {
	f.methods[m.Name] = append(f.methods[m.Name], m)

	if m.Name == config.LenMethodName && len(m.Params) == 0 && m.NumResults() == 1 &&
		m.fn.Type().Out(0).Kind() == reflect.Int {
		f.lenFn = m
	}

	prop, kind, ok := PropertyName(m.Name)
	if !ok {
		return
	}
	switch kind {
	case Getter, BoolGetter:
		if len(m.Params) != 0 || !returnsValue(m) {
			return
		}
		// GetX wins over IsX when both exist
		if prev, ok := f.getters[prop]; ok && kind == BoolGetter && !strings.HasPrefix(prev.Name, config.BoolGetterPrefix) {
			return
		}
		f.getters[prop] = m
	case Setter:
		if len(m.Params) == 1 && !m.Variadic {
			f.setters[prop] = append(f.setters[prop], m)
		}
	}
}

// exportedPath reports whether every embedded field on the way to a promoted
// field is exported; reflect refuses to hand out values reached otherwise.
func exportedPath(t reflect.Type, index []int) bool {
	for _, i := range index[:len(index)-1] {
		sf := t.Field(i)
		if !sf.IsExported() {
			return false
		}
		t = sf.Type
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
	}
	return true
}

// returnsValue accepts T and (T, error).
func returnsValue(m *Member) bool {
	ft := m.fn.Type()
	switch ft.NumOut() {
	case 1:
		return ft.Out(0) != errorType
	case 2:
		return ft.Out(1) == errorType
	}
	return false
}

func (f *facet) method(name string) []*Member {
	if ms, ok := f.methods[name]; ok {
		return ms
	}
	return f.methods[ExportedName(name)]
}

func (f *facet) getter(name string) *Member {
	return f.getters[PropertyKey(name)]
}

func (f *facet) setter(name string) []*Member {
	return f.setters[PropertyKey(name)]
}

func (f *facet) field(name string) (reflect.StructField, bool) {
	sf, ok := f.fields[PropertyKey(name)]
	return sf, ok
}

// fieldsWritable reports whether field writes can reach the struct, which
// requires a pointer receiver.
func (f *facet) fieldsWritable() bool {
	return f.typ.Kind() == reflect.Pointer && f.typ.Elem().Kind() == reflect.Struct
}
