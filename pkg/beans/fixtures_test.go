package beans

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/funvibe/dynlink/pkg/linker"
)

var errBoom = errors.New("boom")

type Person struct {
	Name  string
	Age   int
	Email string
	nick  string
}

func (p *Person) GetName() string { return "Mr. " + p.Name }

func (p *Person) IsAdult() bool { return p.Age >= 18 }

func (p *Person) SetAge(age int) { p.Age = age }

func (p *Person) Greet(other string) string {
	return fmt.Sprintf("Hello %s, I am %s", other, p.Name)
}

func (p *Person) Sum(xs ...int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}

func (p *Person) Fail() error { return errBoom }

func (p *Person) Divide(a, b int) (int, error) {
	if b == 0 {
		return 0, errBoom
	}
	return a / b, nil
}

func (p *Person) Crash() { panic("crashed") }

type Point struct{ X, Y int }

type Bag struct{ items []string }

func (b *Bag) Len() int { return len(b.items) }

type Employee struct {
	*Person
	Title string
}

// Overloaded only has extension methods, registered below.
type Overloaded struct{ calls int }

var _ = MustRegister(reflect.TypeFor[*Overloaded](),
	WithExtensionMethod("f", func(o *Overloaded, i int) string { return "f(int)" }),
	WithExtensionMethod("f", func(o *Overloaded, s string) string { return "f(string)" }),
	WithExtensionMethod("f", func(o *Overloaded, a, b int) string { return "f(int,int)" }),
	WithExtensionMethod("f", func(o *Overloaded, xs ...int) string { return fmt.Sprintf("f(int...)%d", len(xs)) }),
	WithExtensionMethod("setLevel", func(o *Overloaded, level int) { o.calls = level }),
	WithExtensionMethod("setLevel", func(o *Overloaded, level string) { o.calls = len(level) }),
)

type Widget struct {
	Label string
	Size  int
}

func (w *Widget) Area() int { return w.Size * w.Size }

var (
	widgetCount   = 0
	widgetVersion = "1.0"
)

var widgetClass = MustRegister(reflect.TypeFor[*Widget](),
	WithConstructor(func() *Widget { return &Widget{Label: "default"} }),
	WithConstructor(func(size int) *Widget { return &Widget{Label: "sized", Size: size} }),
	WithConstructor(func(label string, size int) (*Widget, error) {
		if size < 0 {
			return nil, errBoom
		}
		return &Widget{Label: label, Size: size}, nil
	}),
	WithStaticMethod("max", func(a, b int) int { return max(a, b) }),
	WithStaticMethod("max", func(a, b float64) float64 { return max(a, b) }),
	WithStaticMethod("max", func(xs ...int) string { return fmt.Sprintf("variadic %d", len(xs)) }),
	WithStaticField("count", &widgetCount),
	WithStaticProperty("version", func() string { return widgetVersion }, func(v string) { widgetVersion = v }),
)

type both struct{}

func (both) String() string { return "both" }
func (both) Error() string  { return "both" }

type Ambiguous struct{}

var ambiguousClass = MustRegister(reflect.TypeFor[*Ambiguous](),
	WithConstructor(func(s fmt.Stringer) *Ambiguous { return &Ambiguous{} }),
	WithConstructor(func(e error) *Ambiguous { return &Ambiguous{} }),
)

// chain wraps l in a one-linker chain so it receives real services.
func chain(l *Linker) *linker.DynamicLinker {
	return linker.NewDynamicLinker([]linker.GuardingLinker{l})
}

func mustLink(t *testing.T, d *linker.DynamicLinker, name string, args ...any) *linker.GuardedInvocation {
	t.Helper()
	inv, err := d.Link(linker.NewLinkRequest(linker.NewCallDescriptor(name, len(args)), args...))
	if err != nil {
		t.Fatalf("linking %s: %v", name, err)
	}
	return inv
}

func mustInvoke(t *testing.T, inv *linker.GuardedInvocation, args ...any) any {
	t.Helper()
	res, err := inv.Invoke(args...)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	return res
}

func linkErr(d *linker.DynamicLinker, name string, args ...any) error {
	_, err := d.Link(linker.NewLinkRequest(linker.NewCallDescriptor(name, len(args)), args...))
	return err
}
