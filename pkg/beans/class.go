package beans

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// Class is a linkable type descriptor. Passing a *Class as the receiver of a
// "dyn:new" operation calls one of its constructors, and its "statics"
// property yields the Statics marker for its static surface.
//
// Go has neither constructors nor static members, so both are registered
// explicitly: constructors are funcs returning the type, statics are funcs,
// variables and getter/setter pairs grouped under the type. Extension methods
// add overloads to the instance surface of the type.
//
// Register classes before their instances are first linked: the instance
// surface of a type is computed once.
type Class struct {
	typ     reflect.Type
	statics *Statics

	mu            sync.RWMutex
	constructors  []*Member
	staticMethods map[string][]*Member
	staticFields  map[string]reflect.Value
	staticProps   map[string]*staticProperty
	extensions    map[string][]*Member
}

// Statics is the synthetic receiver that stands for a class's static surface.
type Statics struct {
	class *Class
}

// Class returns the class the statics belong to.
func (s *Statics) Class() *Class { return s.class }

func (s *Statics) String() string { return "statics of " + s.class.typ.String() }

type staticProperty struct {
	getter *Member
	setter *Member
}

var classes sync.Map // reflect.Type -> *Class

// ClassOf returns the class for t, creating an empty one on first use.
// The same *Class is returned for the lifetime of the process.
func ClassOf(t reflect.Type) *Class {
	if c, ok := classes.Load(t); ok {
		return c.(*Class)
	}
	c := newClass(t)
	actual, _ := classes.LoadOrStore(t, c)
	return actual.(*Class)
}

// ClassFor returns the class for T.
func ClassFor[T any]() *Class {
	return ClassOf(reflect.TypeFor[T]())
}

// lookupClass returns the class for t only if one was created.
func lookupClass(t reflect.Type) *Class {
	if c, ok := classes.Load(t); ok {
		return c.(*Class)
	}
	return nil
}

func newClass(t reflect.Type) *Class {
	c := &Class{
		typ:           t,
		staticMethods: make(map[string][]*Member),
		staticFields:  make(map[string]reflect.Value),
		staticProps:   make(map[string]*staticProperty),
		extensions:    make(map[string][]*Member),
	}
	c.statics = &Statics{class: c}
	return c
}

// ClassOption registers a member with a class.
type ClassOption func(*Class) error

// Register applies opts to the class of t and returns it.
func Register(t reflect.Type, opts ...ClassOption) (*Class, error) {
	c := ClassOf(t)
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("registering %s: %w", t, err)
		}
	}
	return c, nil
}

// MustRegister is Register that panics on error. Meant for init().
func MustRegister(t reflect.Type, opts ...ClassOption) *Class {
	c, err := Register(t, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// WithConstructor adds a constructor. fn must return the class type, or the
// class type and an error.
func WithConstructor(fn any) ClassOption {
	return func(c *Class) error {
		m, err := funcMember("new", fn, MemberConstructor, false)
		if err != nil {
			return err
		}
		ft := m.fn.Type()
		if ft.NumOut() == 0 || !ft.Out(0).AssignableTo(c.typ) {
			return fmt.Errorf("constructor %s does not return %s", ft, c.typ)
		}
		if ft.NumOut() > 2 || (ft.NumOut() == 2 && ft.Out(1) != errorType) {
			return fmt.Errorf("constructor %s must return %s or (%s, error)", ft, c.typ, c.typ)
		}
		c.constructors = append(c.constructors, m)
		return nil
	}
}

// WithStaticMethod adds a static function. Registering several funcs under one
// name creates an overload set.
func WithStaticMethod(name string, fn any) ClassOption {
	return func(c *Class) error {
		m, err := funcMember(name, fn, MemberStatic, false)
		if err != nil {
			return err
		}
		key := ExportedName(name)
		c.staticMethods[key] = append(c.staticMethods[key], m)
		return nil
	}
}

// WithStaticField exposes the variable ptr points to as a static field.
func WithStaticField(name string, ptr any) ClassOption {
	return func(c *Class) error {
		v := reflect.ValueOf(ptr)
		if v.Kind() != reflect.Pointer || v.IsNil() {
			return fmt.Errorf("static field %s: expected a non-nil pointer, got %T", name, ptr)
		}
		c.staticFields[PropertyKey(name)] = v.Elem()
		return nil
	}
}

// WithStaticProperty exposes a static property through a getter func() T and
// an optional setter func(T). Either may be nil.
func WithStaticProperty(name string, getter, setter any) ClassOption {
	return func(c *Class) error {
		p := &staticProperty{}
		if getter != nil {
			m, err := funcMember(name, getter, MemberStatic, false)
			if err != nil {
				return err
			}
			if len(m.Params) != 0 || m.NumResults() == 0 {
				return fmt.Errorf("static property %s: getter must be func() T", name)
			}
			p.getter = m
		}
		if setter != nil {
			m, err := funcMember(name, setter, MemberStatic, false)
			if err != nil {
				return err
			}
			if len(m.Params) != 1 || m.Variadic {
				return fmt.Errorf("static property %s: setter must be func(T)", name)
			}
			p.setter = m
		}
		if p.getter == nil && p.setter == nil {
			return fmt.Errorf("static property %s: needs a getter or a setter", name)
		}
		c.staticProps[PropertyKey(name)] = p
		return nil
	}
}

// WithExtensionMethod adds fn to the instance surface of the class type under
// name. fn takes the receiver as its first parameter. Extension methods join
// the overload set of a native method with the same name; an extension named
// SetX adds a setter overload for property x.
func WithExtensionMethod(name string, fn any) ClassOption {
	return func(c *Class) error {
		m, err := funcMember(ExportedName(name), fn, MemberExtension, true)
		if err != nil {
			return err
		}
		if !c.typ.AssignableTo(m.receiverType()) {
			return fmt.Errorf("extension %s: receiver %s does not accept %s", name, m.receiverType(), c.typ)
		}
		c.extensions[m.Name] = append(c.extensions[m.Name], m)
		return nil
	}
}

// Type returns the described Go type.
func (c *Class) Type() reflect.Type { return c.typ }

// Name returns the Go type name.
func (c *Class) Name() string { return c.typ.String() }

// Statics returns the marker for the class's static surface. It is the same
// value on every call.
func (c *Class) Statics() *Statics { return c.statics }

func (c *Class) String() string { return "class " + c.typ.String() }

// Constructors returns a snapshot of the registered constructors.
func (c *Class) Constructors() []*Member {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.constructors)
}

func (c *Class) staticMethod(name string) []*Member {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if ms, ok := c.staticMethods[name]; ok {
		return slices.Clone(ms)
	}
	return slices.Clone(c.staticMethods[ExportedName(name)])
}

func (c *Class) staticField(name string) (reflect.Value, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.staticFields[PropertyKey(name)]
	return v, ok
}

func (c *Class) staticProperty(name string) *staticProperty {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.staticProps[PropertyKey(name)]
}

func (c *Class) extensionMethods() map[string][]*Member {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string][]*Member, len(c.extensions))
	for name, ms := range c.extensions {
		out[name] = slices.Clone(ms)
	}
	return out
}
