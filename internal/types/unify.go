package types

import (
	"fmt"
	"sync/atomic"
)

// rowTailCounter mints ids for row-tail variables synthesized mid-unification
// (two open records unifying with disjoint extra fields both need a fresh
// shared tail). Counted downward from -1 so these ids never collide with the
// resolver's TVarGen, which counts upward from 0.
var rowTailCounter int64

func freshRowTail() *TVar {
	id := atomic.AddInt64(&rowTailCounter, -1)
	return &TVar{Id: int(id)}
}

// Substitution maps type-variable ids to their resolved Type.
type Substitution map[int]Type

// ApplySubst recursively substitutes every TVar in t per sub.
func ApplySubst(sub Substitution, t Type) Type {
	switch t := t.(type) {
	case *TVar:
		if rep, ok := sub[t.Id]; ok {
			return ApplySubst(sub, rep)
		}
		return t
	case *TFunc:
		return &TFunc{Param: ApplySubst(sub, t.Param), Result: ApplySubst(sub, t.Result)}
	case *TTuple:
		elems := make([]Type, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = ApplySubst(sub, e)
		}
		return &TTuple{Elems: elems}
	case *TList:
		return &TList{Elem: ApplySubst(sub, t.Elem)}
	case *TBag:
		return &TBag{Elem: ApplySubst(sub, t.Elem)}
	case *TOption:
		return &TOption{Elem: ApplySubst(sub, t.Elem)}
	case *TRecord:
		fields := make(map[string]Type, len(t.Row.Fields))
		for k, v := range t.Row.Fields {
			fields[k] = ApplySubst(sub, v)
		}
		tail := t.Row.Tail
		if tail != nil {
			if rep, ok := sub[tail.Id]; ok {
				switch r := ApplySubst(sub, rep).(type) {
				case *TRecord:
					for k, v := range r.Row.Fields {
						fields[k] = v
					}
					tail = r.Row.Tail
				case *TVar:
					tail = r
				}
			}
		}
		return &TRecord{Row: RecordRow{Fields: fields, Tail: tail}}
	case *TCon:
		args := make([]Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = ApplySubst(sub, a)
		}
		return &TCon{Name: t.Name, Args: args}
	default:
		return t
	}
}

// Compose returns a substitution equivalent to applying s1 then s2.
func Compose(s1, s2 Substitution) Substitution {
	out := Substitution{}
	for k, v := range s1 {
		out[k] = ApplySubst(s2, v)
	}
	for k, v := range s2 {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out
}

// UnifyError carries the two conflicting types for a structured diagnostic.
type UnifyError struct {
	Left, Right Type
	Detail      string
}

func (e *UnifyError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("cannot unify %s with %s: %s", e.Left, e.Right, e.Detail)
	}
	return fmt.Sprintf("cannot unify %s with %s", e.Left, e.Right)
}

// Unify performs Martelli-Montanari unification with an occurs check and
// returns the extended substitution; sub itself is not modified.
func Unify(sub Substitution, a, b Type) (Substitution, error) {
	a = ApplySubst(sub, a)
	b = ApplySubst(sub, b)

	if Equal(a, b) {
		return sub, nil
	}

	if va, ok := a.(*TVar); ok {
		return bindVar(sub, va, b)
	}
	if vb, ok := b.(*TVar); ok {
		return bindVar(sub, vb, a)
	}

	switch at := a.(type) {
	case *TFunc:
		bt, ok := b.(*TFunc)
		if !ok {
			return nil, &UnifyError{Left: a, Right: b}
		}
		sub, err := Unify(sub, at.Param, bt.Param)
		if err != nil {
			return nil, err
		}
		return Unify(sub, at.Result, bt.Result)

	case *TTuple:
		bt, ok := b.(*TTuple)
		if !ok || len(at.Elems) != len(bt.Elems) {
			return nil, &UnifyError{Left: a, Right: b}
		}
		var err error
		for i := range at.Elems {
			sub, err = Unify(sub, at.Elems[i], bt.Elems[i])
			if err != nil {
				return nil, err
			}
		}
		return sub, nil

	case *TList:
		bt, ok := b.(*TList)
		if !ok {
			return nil, &UnifyError{Left: a, Right: b}
		}
		return Unify(sub, at.Elem, bt.Elem)

	case *TBag:
		bt, ok := b.(*TBag)
		if !ok {
			return nil, &UnifyError{Left: a, Right: b}
		}
		return Unify(sub, at.Elem, bt.Elem)

	case *TOption:
		bt, ok := b.(*TOption)
		if !ok {
			return nil, &UnifyError{Left: a, Right: b}
		}
		return Unify(sub, at.Elem, bt.Elem)

	case *TRecord:
		bt, ok := b.(*TRecord)
		if !ok {
			return nil, &UnifyError{Left: a, Right: b}
		}
		return unifyRows(sub, at.Row, bt.Row)

	case *TCon:
		bt, ok := b.(*TCon)
		if !ok || at.Name != bt.Name || len(at.Args) != len(bt.Args) {
			return nil, &UnifyError{Left: a, Right: b}
		}
		var err error
		for i := range at.Args {
			sub, err = Unify(sub, at.Args[i], bt.Args[i])
			if err != nil {
				return nil, err
			}
		}
		return sub, nil

	default:
		return nil, &UnifyError{Left: a, Right: b}
	}
}

// unifyRows unifies two record rows, resolving flex records:
// fields present in one and not the other flow to the open tail of the
// other; two closed rows must have identical field sets.
func unifyRows(sub Substitution, a, b RecordRow) (Substitution, error) {
	var err error
	shared := []string{}
	for name := range a.Fields {
		if _, ok := b.Fields[name]; ok {
			shared = append(shared, name)
		}
	}
	for _, name := range shared {
		sub, err = Unify(sub, a.Fields[name], b.Fields[name])
		if err != nil {
			return nil, err
		}
	}

	onlyA := fieldsNotIn(a.Fields, b.Fields)
	onlyB := fieldsNotIn(b.Fields, a.Fields)

	switch {
	case len(onlyA) == 0 && len(onlyB) == 0:
		if a.Tail == nil || b.Tail == nil {
			return sub, nil
		}
		return bindVar(sub, a.Tail, &TRecord{Row: RecordRow{Fields: map[string]Type{}, Tail: b.Tail}})

	case len(onlyA) == 0 && (a.Tail != nil || b.Tail != nil):
		// a is missing fields that b has; a's tail (if open) absorbs them.
		if a.Tail == nil {
			return nil, &UnifyError{Left: &TRecord{Row: a}, Right: &TRecord{Row: b}, Detail: "missing fields"}
		}
		return bindVar(sub, a.Tail, &TRecord{Row: RecordRow{Fields: onlyB, Tail: b.Tail}})

	case len(onlyB) == 0 && (a.Tail != nil || b.Tail != nil):
		if b.Tail == nil {
			return nil, &UnifyError{Left: &TRecord{Row: a}, Right: &TRecord{Row: b}, Detail: "missing fields"}
		}
		return bindVar(sub, b.Tail, &TRecord{Row: RecordRow{Fields: onlyA, Tail: a.Tail}})

	case a.Tail != nil && b.Tail != nil:
		freshTail := freshRowTail()
		sub, err = bindVar(sub, a.Tail, &TRecord{Row: RecordRow{Fields: onlyB, Tail: freshTail}})
		if err != nil {
			return nil, err
		}
		return bindVar(sub, b.Tail, &TRecord{Row: RecordRow{Fields: onlyA, Tail: freshTail}})

	default:
		return nil, &UnifyError{Left: &TRecord{Row: a}, Right: &TRecord{Row: b}, Detail: "incompatible record fields"}
	}
}

func fieldsNotIn(a, b map[string]Type) map[string]Type {
	out := map[string]Type{}
	for k, v := range a {
		if _, ok := b[k]; !ok {
			out[k] = v
		}
	}
	return out
}

func bindVar(sub Substitution, v *TVar, t Type) (Substitution, error) {
	if tv, ok := t.(*TVar); ok && tv.Id == v.Id {
		return sub, nil
	}
	if occurs(v.Id, t) {
		return nil, &UnifyError{Left: v, Right: t, Detail: "occurs check failed"}
	}
	next := Substitution{v.Id: t}
	for k, existing := range sub {
		next[k] = ApplySubst(Substitution{v.Id: t}, existing)
	}
	return next, nil
}

func occurs(id int, t Type) bool {
	switch t := t.(type) {
	case *TVar:
		return t.Id == id
	case *TFunc:
		return occurs(id, t.Param) || occurs(id, t.Result)
	case *TTuple:
		for _, e := range t.Elems {
			if occurs(id, e) {
				return true
			}
		}
	case *TList:
		return occurs(id, t.Elem)
	case *TBag:
		return occurs(id, t.Elem)
	case *TOption:
		return occurs(id, t.Elem)
	case *TRecord:
		if t.Row.Tail != nil && t.Row.Tail.Id == id {
			return true
		}
		for _, f := range t.Row.Fields {
			if occurs(id, f) {
				return true
			}
		}
	case *TCon:
		for _, a := range t.Args {
			if occurs(id, a) {
				return true
			}
		}
	}
	return false
}

// TVarGen mints fresh type variables, scoped to one compile unit.
type TVarGen struct{ next int }

func NewTVarGen() *TVarGen { return &TVarGen{} }

func (g *TVarGen) Fresh() *TVar {
	v := &TVar{Id: g.next}
	g.next++
	return v
}
