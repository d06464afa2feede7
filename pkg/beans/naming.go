package beans

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/funvibe/dynlink/internal/config"
)

// AccessorKind classifies a method by the bean naming convention.
type AccessorKind int

const (
	NotAccessor AccessorKind = iota
	Getter                   // GetName
	BoolGetter               // IsName
	Setter                   // SetName
)

func (k AccessorKind) String() string {
	switch k {
	case Getter:
		return "getter"
	case BoolGetter:
		return "is-getter"
	case Setter:
		return "setter"
	default:
		return "method"
	}
}

// PropertyName maps an accessor method name to its property name:
// GetName and IsName read "name", SetName writes "name". The rune after the
// prefix must be upper case, so Getaway is not an accessor.
func PropertyName(method string) (string, AccessorKind, bool) {
	for _, p := range []struct {
		prefix string
		kind   AccessorKind
	}{
		{config.GetterPrefix, Getter},
		{config.BoolGetterPrefix, BoolGetter},
		{config.SetterPrefix, Setter},
	} {
		rest, ok := strings.CutPrefix(method, p.prefix)
		if !ok || rest == "" {
			continue
		}
		r, _ := utf8.DecodeRuneInString(rest)
		if !unicode.IsUpper(r) {
			continue
		}
		return PropertyKey(rest), p.kind, true
	}
	return "", NotAccessor, false
}

// PropertyKey normalises a property or field name so that "Name" and "name"
// address the same property. Names starting with two upper-case runes keep
// their case: URL stays "URL", not "uRL".
func PropertyKey(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError && size == 0 {
		return ""
	}
	if next, _ := utf8.DecodeRuneInString(name[size:]); unicode.IsUpper(r) && unicode.IsUpper(next) {
		return name
	}
	lower := unicode.ToLower(r)
	if lower == r {
		return name
	}
	return string(lower) + name[size:]
}

// ExportedName maps a dynamic method name to the Go method name: "add" -> "Add".
func ExportedName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError && size == 0 {
		return ""
	}
	upper := unicode.ToUpper(r)
	if upper == r {
		return name
	}
	return string(upper) + name[size:]
}
