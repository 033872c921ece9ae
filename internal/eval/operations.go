package eval

import (
	"fmt"
	"math/big"

	"github.com/deepsen/smli/internal/core"
)

func (ev *Evaluator) evalBinOp(env *Environment, e *core.BinOp) (Value, error) {
	switch e.Op {
	case "elem", "notelem":
		lv, err := ev.Eval(env, e.Left)
		if err != nil {
			return nil, err
		}
		rv, err := ev.Eval(env, e.Right)
		if err != nil {
			return nil, err
		}
		elems, ok := listElems(rv)
		if !ok {
			return nil, fmt.Errorf("%s: right operand must be a list", e.Op)
		}
		found := false
		for _, x := range elems {
			if valuesEqual(lv, x) {
				found = true
				break
			}
		}
		if e.Op == "notelem" {
			found = !found
		}
		return BoolValue{V: found}, nil

	case "o":
		lv, err := ev.Eval(env, e.Left)
		if err != nil {
			return nil, err
		}
		rv, err := ev.Eval(env, e.Right)
		if err != nil {
			return nil, err
		}
		return &NativeValue{Fn: func(x Value) (Value, error) {
			mid, err := ev.apply(rv, x)
			if err != nil {
				return nil, err
			}
			return ev.apply(lv, mid)
		}}, nil
	}

	lv, err := ev.Eval(env, e.Left)
	if err != nil {
		return nil, err
	}
	rv, err := ev.Eval(env, e.Right)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case "=":
		return BoolValue{V: valuesEqual(lv, rv)}, nil
	case "<>":
		return BoolValue{V: !valuesEqual(lv, rv)}, nil
	case "<", "<=", ">", ">=":
		c, err := valuesCompare(lv, rv)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case "<":
			return BoolValue{V: c < 0}, nil
		case "<=":
			return BoolValue{V: c <= 0}, nil
		case ">":
			return BoolValue{V: c > 0}, nil
		default:
			return BoolValue{V: c >= 0}, nil
		}

	case "+", "-", "*":
		return arith(e.Op, lv, rv)

	case "/":
		l, lok := lv.(RealValue)
		r, rok := rv.(RealValue)
		if !lok || !rok {
			return nil, fmt.Errorf("/: operands must be real")
		}
		return RealValue{V: l.V / r.V}, nil

	case "div", "mod":
		l, lok := lv.(IntValue)
		r, rok := rv.(IntValue)
		if !lok || !rok {
			return nil, fmt.Errorf("%s: operands must be int", e.Op)
		}
		if r.V.Sign() == 0 {
			return nil, raise("Div", nil)
		}
		// Floor division: big.Int.QuoRem truncates toward zero (remainder's
		// sign matches the dividend's); ML semantics is floor division,
		// whose remainder's sign matches the divisor's, so adjust by one
		// whenever the truncated remainder disagrees with the divisor's sign.
		q, m := new(big.Int), new(big.Int)
		q.QuoRem(l.V, r.V, m)
		if m.Sign() != 0 && (m.Sign() < 0) != (r.V.Sign() < 0) {
			q.Sub(q, big.NewInt(1))
			m.Add(m, r.V)
		}
		if e.Op == "div" {
			return IntValue{V: q}, nil
		}
		return IntValue{V: m}, nil

	case "^":
		l, lok := lv.(StringValue)
		r, rok := rv.(StringValue)
		if !lok || !rok {
			return nil, fmt.Errorf("^: operands must be string")
		}
		return StringValue{V: l.V + r.V}, nil

	case "::":
		tail, ok := listElems(rv)
		if !ok {
			return nil, fmt.Errorf("::: right operand must be a list")
		}
		return &ListValue{Elems: append([]Value{lv}, tail...)}, nil

	case "@":
		switch l := lv.(type) {
		case *ListValue:
			r, ok := rv.(*ListValue)
			if !ok {
				return nil, fmt.Errorf("@: operands must be the same kind of collection")
			}
			return &ListValue{Elems: append(append([]Value{}, l.Elems...), r.Elems...)}, nil
		case *BagValue:
			r, ok := rv.(*BagValue)
			if !ok {
				return nil, fmt.Errorf("@: operands must be the same kind of collection")
			}
			return &BagValue{Elems: append(append([]Value{}, l.Elems...), r.Elems...)}, nil
		}
		return nil, fmt.Errorf("@: operands must be lists or bags")
	}
	return nil, fmt.Errorf("unhandled binary operator %q", e.Op)
}

func arith(op string, lv, rv Value) (Value, error) {
	switch l := lv.(type) {
	case IntValue:
		r, ok := rv.(IntValue)
		if !ok {
			return nil, fmt.Errorf("%s: operands must both be int", op)
		}
		out := new(big.Int)
		switch op {
		case "+":
			out.Add(l.V, r.V)
		case "-":
			out.Sub(l.V, r.V)
		case "*":
			out.Mul(l.V, r.V)
		}
		return IntValue{V: out}, nil
	case RealValue:
		r, ok := rv.(RealValue)
		if !ok {
			return nil, fmt.Errorf("%s: operands must both be real", op)
		}
		switch op {
		case "+":
			return RealValue{V: l.V + r.V}, nil
		case "-":
			return RealValue{V: l.V - r.V}, nil
		default:
			return RealValue{V: l.V * r.V}, nil
		}
	}
	return nil, fmt.Errorf("%s: operands must be int or real", op)
}

func (ev *Evaluator) evalUnOp(env *Environment, e *core.UnOp) (Value, error) {
	v, err := ev.Eval(env, e.Operand)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case "not":
		b, ok := v.(BoolValue)
		if !ok {
			return nil, fmt.Errorf("not: operand must be bool")
		}
		return BoolValue{V: !b.V}, nil
	default: // "~"
		switch v := v.(type) {
		case IntValue:
			return IntValue{V: new(big.Int).Neg(v.V)}, nil
		case RealValue:
			return RealValue{V: -v.V}, nil
		}
		return nil, fmt.Errorf("~: operand must be int or real")
	}
}

// valuesEqual implements structural equality across every value kind
// : numbers compare by value, collections/tuples/records
// element-wise, constructors by name and payload.
func valuesEqual(a, b Value) bool {
	switch a := a.(type) {
	case IntValue:
		bv, ok := b.(IntValue)
		return ok && a.V.Cmp(bv.V) == 0
	case RealValue:
		bv, ok := b.(RealValue)
		return ok && a.V == bv.V
	case BoolValue:
		bv, ok := b.(BoolValue)
		return ok && a.V == bv.V
	case CharValue:
		bv, ok := b.(CharValue)
		return ok && a.V == bv.V
	case StringValue:
		bv, ok := b.(StringValue)
		return ok && a.V == bv.V
	case UnitValue:
		_, ok := b.(UnitValue)
		return ok
	case *TupleValue:
		bv, ok := b.(*TupleValue)
		if !ok || len(a.Elems) != len(bv.Elems) {
			return false
		}
		for i := range a.Elems {
			if !valuesEqual(a.Elems[i], bv.Elems[i]) {
				return false
			}
		}
		return true
	case *RecordValue:
		bv, ok := b.(*RecordValue)
		if !ok || len(a.Fields) != len(bv.Fields) {
			return false
		}
		for k, v := range a.Fields {
			ov, ok := bv.Fields[k]
			if !ok || !valuesEqual(v, ov) {
				return false
			}
		}
		return true
	case *ListValue:
		bv, ok := b.(*ListValue)
		if !ok || len(a.Elems) != len(bv.Elems) {
			return false
		}
		for i := range a.Elems {
			if !valuesEqual(a.Elems[i], bv.Elems[i]) {
				return false
			}
		}
		return true
	case *BagValue:
		bv, ok := b.(*BagValue)
		if !ok || len(a.Elems) != len(bv.Elems) {
			return false
		}
		return bagEqual(a.Elems, bv.Elems)
	case *ConstructorValue:
		bv, ok := b.(*ConstructorValue)
		if !ok || a.Name != bv.Name {
			return false
		}
		if a.Arg == nil || bv.Arg == nil {
			return a.Arg == nil && bv.Arg == nil
		}
		return valuesEqual(a.Arg, bv.Arg)
	}
	return false
}

// bagEqual compares two multisets for equality irrespective of order.
func bagEqual(a, b []Value) bool {
	used := make([]bool, len(b))
	for _, x := range a {
		found := false
		for j, y := range b {
			if !used[j] && valuesEqual(x, y) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// valuesCompare gives a total order over ordinally-comparable value kinds
// (numbers, chars, strings, bools, tuples lexicographically), used by `<`
// `<=` `>` `>=` and by the `order` relational step.
func valuesCompare(a, b Value) (int, error) {
	switch a := a.(type) {
	case IntValue:
		bv, ok := b.(IntValue)
		if !ok {
			return 0, fmt.Errorf("cannot compare int with %s", kindName(b))
		}
		return a.V.Cmp(bv.V), nil
	case RealValue:
		bv, ok := b.(RealValue)
		if !ok {
			return 0, fmt.Errorf("cannot compare real with %s", kindName(b))
		}
		switch {
		case a.V < bv.V:
			return -1, nil
		case a.V > bv.V:
			return 1, nil
		default:
			return 0, nil
		}
	case CharValue:
		bv, ok := b.(CharValue)
		if !ok {
			return 0, fmt.Errorf("cannot compare char with %s", kindName(b))
		}
		return int(a.V) - int(bv.V), nil
	case StringValue:
		bv, ok := b.(StringValue)
		if !ok {
			return 0, fmt.Errorf("cannot compare string with %s", kindName(b))
		}
		switch {
		case a.V < bv.V:
			return -1, nil
		case a.V > bv.V:
			return 1, nil
		default:
			return 0, nil
		}
	case BoolValue:
		bv, ok := b.(BoolValue)
		if !ok {
			return 0, fmt.Errorf("cannot compare bool with %s", kindName(b))
		}
		if a.V == bv.V {
			return 0, nil
		}
		if !a.V {
			return -1, nil
		}
		return 1, nil
	case *TupleValue:
		bv, ok := b.(*TupleValue)
		if !ok || len(a.Elems) != len(bv.Elems) {
			return 0, fmt.Errorf("cannot compare tuples of different shape")
		}
		for i := range a.Elems {
			c, err := valuesCompare(a.Elems[i], bv.Elems[i])
			if err != nil {
				return 0, err
			}
			if c != 0 {
				return c, nil
			}
		}
		return 0, nil
	}
	return 0, fmt.Errorf("values of type %s are not ordered", kindName(a))
}
