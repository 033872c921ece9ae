package normalize

import (
	"fmt"

	"github.com/deepsen/smli/internal/ast"
	"github.com/deepsen/smli/internal/core"
	"github.com/deepsen/smli/internal/errors"
	"github.com/deepsen/smli/internal/types"
)

// TypeOf resolves a scan variable's static type, looked up by the
// typechecker's own result rather than read off the core node: core.CoreExpr
// carries no per-node Type field (a known limitation recorded in
// DESIGN.md), so the normalizer is handed this side table instead.
type TypeOf func(varName string) (types.Type, bool)

// solveExtents rewrites every bare scan (`from v where P`, Source == nil) in
// expr to a concrete Source, or reports NM001 when none can be derived.
func solveExtents(expr core.CoreExpr, env *types.Env, typeOf TypeOf) (core.CoreExpr, []*errors.Report) {
	var reports []*errors.Report
	result := transform(expr, func(e core.CoreExpr) core.CoreExpr {
		f, ok := e.(*core.From)
		if !ok {
			return e
		}
		head := make([]core.Scan, len(f.Head))
		copy(head, f.Head)
		for i, sc := range head {
			if sc.Source != nil {
				continue
			}
			vp, ok := sc.Pattern.(*core.VarPattern)
			if !ok {
				continue
			}
			src, err := deriveExtent(vp, f.Steps, env, typeOf)
			if err != nil {
				reports = append(reports, errors.NewNormalization(spanOf(f), err.Error()))
				continue
			}
			head[i] = core.Scan{Pattern: sc.Pattern, Source: src}
		}
		return &core.From{CoreNode: f.CoreNode, Kind: f.Kind, Head: head, Steps: f.Steps, Plan: f.Plan}
	})
	return result, reports
}

func spanOf(e core.CoreExpr) *ast.Span {
	p := e.OriginalSpan()
	return &ast.Span{Start: p, End: p}
}

// deriveExtent picks a Source for an unconstrained scan variable, in the
// two stages: a type-driven extent for an enumerable type,
// else constraint propagation from an `elem`/pattern predicate naming the
// variable among the pipeline's Where steps.
func deriveExtent(vp *core.VarPattern, steps []core.Step, env *types.Env, typeOf TypeOf) (core.CoreExpr, error) {
	if typeOf != nil {
		if t, ok := typeOf(vp.Name); ok {
			if src, ok := extentForType(t, env); ok {
				return src, nil
			}
		}
	}
	if src, ok := extentFromPredicates(vp.Name, steps); ok {
		return src, nil
	}
	return nil, fmt.Errorf("cannot determine a finite extent for %q: add an explicit `in` source or a membership predicate", vp.Name)
}

// extentForType enumerates the finitely inhabited types: bool,
// unit, enumerable datatypes (including unary constructors over finite
// argument types), `option` of a finite type, and tuples/records of finite
// types (cartesian product). Anything else (int, real, string, open records,
// recursive datatypes) has no finite extent and falls through to
// predicate-driven narrowing.
func extentForType(t types.Type, env *types.Env) (core.CoreExpr, bool) {
	elems, ok := enumerate(t, env, map[string]bool{})
	if !ok {
		return nil, false
	}
	return &core.List{Elements: elems}, true
}

func enumerate(t types.Type, env *types.Env, seen map[string]bool) ([]core.CoreExpr, bool) {
	switch t := t.(type) {
	case *types.TPrim:
		switch t.Name {
		case types.TBool:
			return []core.CoreExpr{
				&core.Lit{Kind: core.BoolLit, Value: true},
				&core.Lit{Kind: core.BoolLit, Value: false},
			}, true
		case types.TUnit:
			return []core.CoreExpr{&core.Lit{Kind: core.UnitLit, Value: nil}}, true
		}
		return nil, false

	case *types.TOption:
		inner, ok := enumerate(t.Elem, env, seen)
		if !ok {
			return nil, false
		}
		out := []core.CoreExpr{&core.ConstructorApp{Name: "NONE"}}
		for _, e := range inner {
			out = append(out, &core.ConstructorApp{Name: "SOME", Arg: e})
		}
		return out, true

	case *types.TTuple:
		parts := make([][]core.CoreExpr, len(t.Elems))
		for i, et := range t.Elems {
			es, ok := enumerate(et, env, seen)
			if !ok {
				return nil, false
			}
			parts[i] = es
		}
		var out []core.CoreExpr
		for _, combo := range cartesian(parts) {
			out = append(out, &core.Tuple{Elements: combo})
		}
		return out, true

	case *types.TRecord:
		if t.Row.Tail != nil {
			return nil, false
		}
		names := types.SortedFieldNames(t.Row.Fields)
		parts := make([][]core.CoreExpr, len(names))
		for i, n := range names {
			es, ok := enumerate(t.Row.Fields[n], env, seen)
			if !ok {
				return nil, false
			}
			parts[i] = es
		}
		var out []core.CoreExpr
		for _, combo := range cartesian(parts) {
			fields := make(map[string]core.CoreExpr, len(names))
			for i, n := range names {
				fields[n] = combo[i]
			}
			out = append(out, &core.Record{Fields: fields})
		}
		return out, true

	case *types.TCon:
		if env == nil || seen[t.Name] {
			return nil, false // recursive datatypes are unbounded
		}
		dt, ok := env.LookupDatatype(t.Name)
		if !ok {
			return nil, false
		}
		seen[t.Name] = true
		defer delete(seen, t.Name)
		sub := types.Substitution{}
		for i, pid := range dt.TypeParams {
			if i < len(t.Args) {
				sub[pid] = t.Args[i]
			}
		}
		var out []core.CoreExpr
		for _, ctor := range dt.Constructors {
			if ctor.ArgType == nil {
				out = append(out, &core.ConstructorApp{Name: ctor.Name})
				continue
			}
			args, ok := enumerate(types.ApplySubst(sub, ctor.ArgType), env, seen)
			if !ok {
				return nil, false
			}
			for _, a := range args {
				out = append(out, &core.ConstructorApp{Name: ctor.Name, Arg: a})
			}
		}
		if len(out) == 0 {
			return nil, false
		}
		return out, true
	}
	return nil, false
}

// cartesian builds every combination of one element per part, first part
// varying slowest.
func cartesian(parts [][]core.CoreExpr) [][]core.CoreExpr {
	out := [][]core.CoreExpr{{}}
	for _, part := range parts {
		var next [][]core.CoreExpr
		for _, combo := range out {
			for _, e := range part {
				next = append(next, append(append([]core.CoreExpr{}, combo...), e))
			}
		}
		out = next
	}
	return out
}

// extentFromPredicates narrows a scan from the pipeline's own predicates
// : `name elem e` makes e the source, `name = e` makes the
// singleton [e] the source. An equality gives the tightest bound so it wins
// over a membership; either way the Where step is left in place rather than
// removed, since the remaining predicates still intersect the extent at run
// time (proving a predicate redundant needs more than a syntactic match).
func extentFromPredicates(name string, steps []core.Step) (core.CoreExpr, bool) {
	var elemSrc core.CoreExpr
	for _, st := range steps {
		if st.Kind != core.StepWhere && st.Kind != core.StepRequire {
			continue
		}
		for _, cond := range conjuncts(st.Cond) {
			if src, exact, ok := predicateSource(name, cond); ok {
				if exact {
					return src, true
				}
				if elemSrc == nil {
					elemSrc = src
				}
			}
		}
	}
	return elemSrc, elemSrc != nil
}

// conjuncts splits a short-circuit conjunction (`andalso` lowers to
// If(a, b, false), and merged where steps take the same shape) into its
// parts, so narrowing sees through fused predicates.
func conjuncts(cond core.CoreExpr) []core.CoreExpr {
	if iff, ok := cond.(*core.If); ok {
		if lit, ok := iff.Else.(*core.Lit); ok && lit.Kind == core.BoolLit && lit.Value == false {
			return append(conjuncts(iff.Cond), conjuncts(iff.Then)...)
		}
	}
	return []core.CoreExpr{cond}
}

func predicateSource(name string, cond core.CoreExpr) (src core.CoreExpr, exact, ok bool) {
	bin, isBin := cond.(*core.BinOp)
	if !isBin {
		return nil, false, false
	}
	switch bin.Op {
	case "elem":
		if v, isVar := bin.Left.(*core.Var); isVar && v.Name == name {
			return bin.Right, false, true
		}
	case "=":
		if v, isVar := bin.Left.(*core.Var); isVar && v.Name == name && countUses(name, bin.Right).count == 0 {
			return &core.List{Elements: []core.CoreExpr{bin.Right}}, true, true
		}
		if v, isVar := bin.Right.(*core.Var); isVar && v.Name == name && countUses(name, bin.Left).count == 0 {
			return &core.List{Elements: []core.CoreExpr{bin.Left}}, true, true
		}
	}
	return nil, false, false
}
