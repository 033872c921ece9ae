package eval

import (
	"math/big"
	"strings"

	"github.com/deepsen/smli/internal/core"
)

// matchPattern tests value against pat, returning an environment extending
// env with every name pat binds on success. On failure it returns (env, false) unchanged.
func matchPattern(pat core.CorePattern, value Value, env *Environment) (*Environment, bool) {
	switch pat := pat.(type) {
	case *core.WildcardPattern:
		return env, true

	case *core.VarPattern:
		return env.Extend(pat.Name, value), true

	case *core.LitPattern:
		if litEquals(pat.Value, value) {
			return env, true
		}
		return env, false

	case *core.TuplePattern:
		tv, ok := value.(*TupleValue)
		if !ok || len(tv.Elems) != len(pat.Elements) {
			return env, false
		}
		for i, p := range pat.Elements {
			var ok bool
			env, ok = matchPattern(p, tv.Elems[i], env)
			if !ok {
				return env, false
			}
		}
		return env, true

	case *core.RecordPattern:
		rv, ok := value.(*RecordValue)
		if !ok {
			return env, false
		}
		for label, p := range pat.Fields {
			fv, ok := rv.Fields[label]
			if !ok {
				return env, false
			}
			env, ok = matchPattern(p, fv, env)
			if !ok {
				return env, false
			}
		}
		return env, true

	case *core.ListPattern:
		elems, ok := listElems(value)
		if !ok {
			return env, false
		}
		if pat.Tail == nil {
			if len(elems) != len(pat.Elements) {
				return env, false
			}
		} else if len(elems) < len(pat.Elements) {
			return env, false
		}
		for i, p := range pat.Elements {
			var ok bool
			env, ok = matchPattern(p, elems[i], env)
			if !ok {
				return env, false
			}
		}
		if pat.Tail != nil {
			rest := &ListValue{Elems: append([]Value{}, elems[len(pat.Elements):]...)}
			var ok bool
			env, ok = matchPattern(*pat.Tail, rest, env)
			if !ok {
				return env, false
			}
		}
		return env, true

	case *core.ConstructorPattern:
		if name, ok := strings.CutPrefix(pat.Name, "$as:"); ok {
			inner := pat.Args[0]
			var matched bool
			env, matched = matchPattern(inner, value, env)
			if !matched {
				return env, false
			}
			return env.Extend(name, value), true
		}
		cv, ok := value.(*ConstructorValue)
		if !ok || cv.Name != pat.Name {
			return env, false
		}
		if len(pat.Args) == 0 {
			return env, true
		}
		if cv.Arg == nil {
			return env, false
		}
		return matchPattern(pat.Args[0], cv.Arg, env)
	}
	return env, false
}

// listElems returns the element slice of a List or Bag value.
func listElems(v Value) ([]Value, bool) {
	switch v := v.(type) {
	case *ListValue:
		return v.Elems, true
	case *BagValue:
		return v.Elems, true
	}
	return nil, false
}

func litEquals(pv interface{}, value Value) bool {
	switch pv := pv.(type) {
	case *big.Int:
		iv, ok := value.(IntValue)
		return ok && iv.V.Cmp(pv) == 0
	case float64:
		rv, ok := value.(RealValue)
		return ok && rv.V == pv
	case string:
		sv, ok := value.(StringValue)
		return ok && sv.V == pv
	case rune:
		cv, ok := value.(CharValue)
		return ok && cv.V == pv
	case bool:
		bv, ok := value.(BoolValue)
		return ok && bv.V == pv
	case nil:
		_, ok := value.(UnitValue)
		return ok
	}
	return false
}
