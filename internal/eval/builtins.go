package eval

import (
	"fmt"
	"math"
	"math/big"
)

// builtinArity gives the total argument count each $builtin name curries to
// before CallBuiltin actually runs it,
// mirroring internal/infer/builtins.go's registered type schemes.
var builtinArity = map[string]int{
	"print": 1, "toText": 1,
	"explode": 1, "implode": 1, "ord": 1, "chr": 1,
	"length": 1, "hd": 1, "tl": 1, "rev": 1, "null": 1, "concat": 1,
	"map": 2, "filter": 2, "foldl": 3, "foldr": 3, "app": 2,
	"nth": 2, "iterate": 2,
	"abs": 1, "floor": 1, "ceil": 1, "round": 1, "trunc": 1,
	"intToReal": 1, "realToInt": 1,
}

// BuiltinNames lists every name reachable through the `$builtin` module, in
// no particular order.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtinArity))
	for name := range builtinArity {
		names = append(names, name)
	}
	return names
}

// NewBuiltin returns the curried (zero-argument) entry point for name.
func NewBuiltin(name string) (*BuiltinValue, bool) {
	arity, ok := builtinArity[name]
	if !ok {
		return nil, false
	}
	return &BuiltinValue{Name: name, Arity: arity}, true
}

// CallBuiltin runs a fully-saturated builtin call. Higher-order builtins
// (map, filter, foldl, foldr, app, iterate) call back into the evaluator via
// ev.apply so user closures and other builtins work interchangeably as the
// function argument.
func (ev *Evaluator) CallBuiltin(name string, args []Value) (Value, error) {
	switch name {
	case "print":
		fmt.Print(Print(args[0]))
		return UnitValue{}, nil
	case "toText":
		return StringValue{V: Print(args[0])}, nil

	case "explode":
		s, ok := args[0].(StringValue)
		if !ok {
			return nil, fmt.Errorf("explode: argument must be string")
		}
		runes := []rune(s.V)
		elems := make([]Value, len(runes))
		for i, r := range runes {
			elems[i] = CharValue{V: r}
		}
		return &ListValue{Elems: elems}, nil

	case "implode":
		elems, ok := listElems(args[0])
		if !ok {
			return nil, fmt.Errorf("implode: argument must be a list")
		}
		runes := make([]rune, len(elems))
		for i, v := range elems {
			c, ok := v.(CharValue)
			if !ok {
				return nil, fmt.Errorf("implode: list must contain chars")
			}
			runes[i] = c.V
		}
		return StringValue{V: string(runes)}, nil

	case "ord":
		c, ok := args[0].(CharValue)
		if !ok {
			return nil, fmt.Errorf("ord: argument must be char")
		}
		return NewInt(int64(c.V)), nil

	case "chr":
		n, ok := args[0].(IntValue)
		if !ok {
			return nil, fmt.Errorf("chr: argument must be int")
		}
		if !n.V.IsInt64() || n.V.Sign() < 0 || n.V.Int64() > 0x10FFFF {
			return nil, raise("Chr", nil)
		}
		return CharValue{V: rune(n.V.Int64())}, nil

	case "length":
		elems, ok := listElems(args[0])
		if !ok {
			return nil, fmt.Errorf("length: argument must be a list")
		}
		return NewInt(int64(len(elems))), nil

	case "hd":
		elems, ok := listElems(args[0])
		if !ok || len(elems) == 0 {
			return nil, raise("Empty", nil)
		}
		return elems[0], nil

	case "tl":
		elems, ok := listElems(args[0])
		if !ok || len(elems) == 0 {
			return nil, raise("Empty", nil)
		}
		return &ListValue{Elems: append([]Value{}, elems[1:]...)}, nil

	case "rev":
		elems, ok := listElems(args[0])
		if !ok {
			return nil, fmt.Errorf("rev: argument must be a list")
		}
		out := make([]Value, len(elems))
		for i, v := range elems {
			out[len(elems)-1-i] = v
		}
		return &ListValue{Elems: out}, nil

	case "null":
		elems, ok := listElems(args[0])
		if !ok {
			return nil, fmt.Errorf("null: argument must be a list")
		}
		return BoolValue{V: len(elems) == 0}, nil

	case "concat":
		outer, ok := listElems(args[0])
		if !ok {
			return nil, fmt.Errorf("concat: argument must be a list of lists")
		}
		var out []Value
		for _, v := range outer {
			inner, ok := listElems(v)
			if !ok {
				return nil, fmt.Errorf("concat: argument must be a list of lists")
			}
			out = append(out, inner...)
		}
		return &ListValue{Elems: out}, nil

	case "nth":
		elems, ok := listElems(args[0])
		if !ok {
			return nil, fmt.Errorf("nth: first argument must be a list")
		}
		n, ok := args[1].(IntValue)
		if !ok {
			return nil, fmt.Errorf("nth: second argument must be int")
		}
		if !n.V.IsInt64() {
			return nil, raise("Subscript", nil)
		}
		i := n.V.Int64()
		if i < 0 || i >= int64(len(elems)) {
			return nil, raise("Subscript", nil)
		}
		return elems[i], nil

	case "map":
		elems, ok := listElems(args[1])
		if !ok {
			return nil, fmt.Errorf("map: second argument must be a list")
		}
		out := make([]Value, len(elems))
		for i, v := range elems {
			r, err := ev.apply(args[0], v)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return &ListValue{Elems: out}, nil

	case "filter":
		elems, ok := listElems(args[1])
		if !ok {
			return nil, fmt.Errorf("filter: second argument must be a list")
		}
		var out []Value
		for _, v := range elems {
			r, err := ev.apply(args[0], v)
			if err != nil {
				return nil, err
			}
			b, ok := r.(BoolValue)
			if !ok {
				return nil, fmt.Errorf("filter: predicate must return bool")
			}
			if b.V {
				out = append(out, v)
			}
		}
		return &ListValue{Elems: out}, nil

	case "foldl":
		elems, ok := listElems(args[2])
		if !ok {
			return nil, fmt.Errorf("foldl: third argument must be a list")
		}
		acc := args[1]
		for _, v := range elems {
			step, err := ev.apply(args[0], v)
			if err != nil {
				return nil, err
			}
			acc, err = ev.apply(step, acc)
			if err != nil {
				return nil, err
			}
		}
		return acc, nil

	case "foldr":
		elems, ok := listElems(args[2])
		if !ok {
			return nil, fmt.Errorf("foldr: third argument must be a list")
		}
		acc := args[1]
		for i := len(elems) - 1; i >= 0; i-- {
			step, err := ev.apply(args[0], elems[i])
			if err != nil {
				return nil, err
			}
			var err2 error
			acc, err2 = ev.apply(step, acc)
			if err2 != nil {
				return nil, err2
			}
		}
		return acc, nil

	case "app":
		elems, ok := listElems(args[1])
		if !ok {
			return nil, fmt.Errorf("app: second argument must be a list")
		}
		for _, v := range elems {
			if _, err := ev.apply(args[0], v); err != nil {
				return nil, err
			}
		}
		return UnitValue{}, nil

	case "iterate":
		// Monotone fixed-point iteration for recursive queries: step is
		// called with (accumulated set, newest rows) and returns the next
		// batch; iteration halts once a batch contributes nothing new, and
		// the result is the union of every batch.
		seedElems, ok := listElems(args[0])
		if !ok {
			return nil, fmt.Errorf("iterate: seed must be a collection")
		}
		acc := append([]Value{}, seedElems...)
		newRows := append([]Value{}, seedElems...)
		for len(newRows) > 0 {
			r, err := ev.CallFunction(args[1], []Value{
				&ListValue{Elems: append([]Value{}, acc...)},
				&ListValue{Elems: newRows},
			})
			if err != nil {
				return nil, err
			}
			batch, ok := listElems(r)
			if !ok {
				return nil, fmt.Errorf("iterate: step must return a collection")
			}
			var fresh []Value
			for _, v := range batch {
				dup := false
				for _, o := range acc {
					if valuesEqual(o, v) {
						dup = true
						break
					}
				}
				if !dup {
					fresh = append(fresh, v)
					acc = append(acc, v)
				}
			}
			newRows = fresh
		}
		return &ListValue{Elems: acc}, nil

	case "abs":
		n, ok := args[0].(IntValue)
		if !ok {
			return nil, fmt.Errorf("abs: argument must be int")
		}
		return IntValue{V: new(big.Int).Abs(n.V)}, nil

	case "floor":
		r, ok := args[0].(RealValue)
		if !ok {
			return nil, fmt.Errorf("floor: argument must be real")
		}
		return realToIntValue(math.Floor(r.V))

	case "ceil":
		r, ok := args[0].(RealValue)
		if !ok {
			return nil, fmt.Errorf("ceil: argument must be real")
		}
		return realToIntValue(math.Ceil(r.V))

	case "round":
		r, ok := args[0].(RealValue)
		if !ok {
			return nil, fmt.Errorf("round: argument must be real")
		}
		return realToIntValue(math.RoundToEven(r.V))

	case "trunc":
		r, ok := args[0].(RealValue)
		if !ok {
			return nil, fmt.Errorf("trunc: argument must be real")
		}
		return realToIntValue(math.Trunc(r.V))

	case "intToReal":
		n, ok := args[0].(IntValue)
		if !ok {
			return nil, fmt.Errorf("intToReal: argument must be int")
		}
		f := new(big.Float).SetInt(n.V)
		v, _ := f.Float64()
		return RealValue{V: v}, nil

	case "realToInt":
		r, ok := args[0].(RealValue)
		if !ok {
			return nil, fmt.Errorf("realToInt: argument must be real")
		}
		return realToIntValue(r.V)
	}
	return nil, fmt.Errorf("unknown builtin %q", name)
}

// realToIntValue converts a float already rounded to an integral value into
// an IntValue, raising Overflow for non-finite inputs.
func realToIntValue(f float64) (Value, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, raise("Overflow", nil)
	}
	bi, _ := big.NewFloat(f).Int(nil)
	return IntValue{V: bi}, nil
}
