package beans

import (
	"fmt"
	"reflect"

	"github.com/funvibe/dynlink/pkg/linker"
)

// Selection is the outcome of overload resolution.
type Selection struct {
	Member *Member
	// Spread is true when trailing arguments are passed one by one into the
	// variadic parameter rather than as a ready-made slice.
	Spread bool
	// Cost is the summed conversion rank of all arguments.
	Cost int

	params []reflect.Type // parameter types expanded to the call arity
}

// SelectOverload picks the candidate that best fits args.
//
// Candidates whose parameter count equals len(args) are tried first, with
// each argument checked against its parameter by conv. Only when none of them
// applies are variadic candidates considered, with trailing arguments checked
// against the element type. Among applicable candidates the most specific one
// wins; if there is no single most specific candidate, the one with the
// lowest conversion cost wins, and a tie on cost is ambiguous.
//
// The returned errors wrap linker.ErrNoApplicableMember or
// linker.ErrAmbiguousOverload and are therefore declines.
func SelectOverload(cands []*Member, args []reflect.Type, conv linker.Converter) (*Selection, error) {
	var applicable []*Selection
	for _, c := range cands {
		if len(c.Params) != len(args) {
			continue
		}
		if cost, ok := applies(c.Params, args, conv); ok {
			applicable = append(applicable, &Selection{Member: c, Cost: cost, params: c.Params})
		}
	}
	if len(applicable) == 0 {
		for _, c := range cands {
			if !c.Variadic || c.FixedArity() > len(args) {
				continue
			}
			params := expandParams(c, len(args))
			if cost, ok := applies(params, args, conv); ok {
				applicable = append(applicable, &Selection{Member: c, Spread: true, Cost: cost, params: params})
			}
		}
	}

	switch len(applicable) {
	case 0:
		return nil, fmt.Errorf("%s: %w", describeCall(cands, args), linker.ErrNoApplicableMember)
	case 1:
		return applicable[0], nil
	}

	best := mostSpecific(applicable, conv)
	switch len(best) {
	case 0:
		// mutually convertible parameter lists (int vs int64) dominate each other
		best = applicable
	case 1:
		return best[0], nil
	}
	var cheapest []*Selection
	for _, s := range best {
		switch {
		case len(cheapest) == 0 || s.Cost < cheapest[0].Cost:
			cheapest = []*Selection{s}
		case s.Cost == cheapest[0].Cost:
			cheapest = append(cheapest, s)
		}
	}
	if len(cheapest) == 1 {
		return cheapest[0], nil
	}
	names := make([]string, len(cheapest))
	for i, s := range cheapest {
		names[i] = s.Member.String()
	}
	return nil, fmt.Errorf("%s matches %v: %w", describeCall(cands, args), names, linker.ErrAmbiguousOverload)
}

func applies(params, args []reflect.Type, conv linker.Converter) (int, bool) {
	cost := 0
	for i, p := range params {
		r := conv.Rank(args[i], p)
		if r == linker.ConvNone {
			return 0, false
		}
		cost += int(r)
	}
	return cost, true
}

func expandParams(m *Member, n int) []reflect.Type {
	fixed := m.FixedArity()
	params := make([]reflect.Type, n)
	copy(params, m.Params[:fixed])
	elem := m.Params[fixed].Elem()
	for i := fixed; i < n; i++ {
		params[i] = elem
	}
	return params
}

// mostSpecific returns the selections no other selection is strictly more
// specific than. A is more specific than B when every parameter of A
// converts to the matching parameter of B and at least one differs.
func mostSpecific(sels []*Selection, conv linker.Converter) []*Selection {
	var out []*Selection
	for i, a := range sels {
		dominated := false
		for j, b := range sels {
			if i != j && moreSpecific(b.params, a.params, conv) {
				dominated = true
				break
			}
		}
		if !dominated {
			out = append(out, a)
		}
	}
	return out
}

func moreSpecific(a, b []reflect.Type, conv linker.Converter) bool {
	strict := false
	for i := range a {
		if conv.Rank(a[i], b[i]) == linker.ConvNone {
			return false
		}
		if a[i] != b[i] {
			strict = true
		}
	}
	return strict
}

func describeCall(cands []*Member, args []reflect.Type) string {
	name := "<none>"
	if len(cands) > 0 {
		name = cands[0].Name
	}
	return fmt.Sprintf("%s%v", name, args)
}
