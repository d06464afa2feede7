package main

import (
	"fmt"
	"reflect"
	"sort"

	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/funvibe/dynlink/pkg/beans"
)

// Person is the demo bean.
type Person struct {
	Name string
	Age  int
}

func (p *Person) GetName() string { return p.Name }

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

// Widget demonstrates constructors and statics.
type Widget struct {
	Label string
	Size  int
}

var widgetCount int

var widgetClass = beans.MustRegister(reflect.TypeFor[*Widget](),
	beans.WithConstructor(func() *Widget {
		widgetCount++
		return &Widget{Label: "default"}
	}),
	beans.WithConstructor(func(size int) *Widget {
		widgetCount++
		return &Widget{Label: "sized", Size: size}
	}),
	beans.WithStaticMethod("max", func(a, b int) int { return max(a, b) }),
	beans.WithStaticMethod("max", func(a, b float64) float64 { return max(a, b) }),
	beans.WithStaticField("count", &widgetCount),
)

var demos = map[string]func() any{
	"person":       func() any { return &Person{Name: "Ada", Age: 36} },
	"widget-class": func() any { return widgetClass },
	"statics":      func() any { return widgetClass.Statics() },
	"list":         func() any { return []int{10, 20, 30} },
	"map":          func() any { return map[string]int{"one": 1, "two": 2} },
	"text":         func() any { return "hello" },
	"message":      func() any { return wrapperspb.String("hello") },
}

func demoReceiver(name string) (any, bool) {
	mk, ok := demos[name]
	if !ok {
		return nil, false
	}
	return mk(), true
}

func demoNames() []string {
	names := make([]string, 0, len(demos))
	for name := range demos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
