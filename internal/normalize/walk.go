// Package normalize implements the core normalizer: inlining and
// dead-binding elimination, `from`-pipeline query fusion, the extent solver
// for unconstrained scan variables, and backend push-down. It takes the
// typed core term internal/infer produces and returns a semantically
// equivalent, smaller term internal/eval runs.
package normalize

import "github.com/deepsen/smli/internal/core"

// mapChildren rewrites expr's immediate sub-expressions through f, leaving
// expr's own shape and any non-expression fields untouched. Callers recurse
// by passing a closure that calls itself on the result.
func mapChildren(expr core.CoreExpr, f func(core.CoreExpr) core.CoreExpr) core.CoreExpr {
	switch e := expr.(type) {
	case *core.Var, *core.VarGlobal, *core.Lit:
		return e

	case *core.Tuple:
		elems := make([]core.CoreExpr, len(e.Elements))
		for i, el := range e.Elements {
			elems[i] = f(el)
		}
		return &core.Tuple{CoreNode: e.CoreNode, Elements: elems}

	case *core.ConstructorApp:
		var arg core.CoreExpr
		if e.Arg != nil {
			arg = f(e.Arg)
		}
		return &core.ConstructorApp{CoreNode: e.CoreNode, Name: e.Name, Arg: arg}

	case *core.Raise:
		return &core.Raise{CoreNode: e.CoreNode, Exn: f(e.Exn)}

	case *core.Handle:
		arms := make([]core.HandleArm, len(e.Arms))
		for i, a := range e.Arms {
			arms[i] = core.HandleArm{Pattern: a.Pattern, Body: f(a.Body)}
		}
		return &core.Handle{CoreNode: e.CoreNode, Body: f(e.Body), Arms: arms}

	case *core.Lambda:
		return &core.Lambda{CoreNode: e.CoreNode, Params: e.Params, Body: f(e.Body)}

	case *core.Let:
		return &core.Let{CoreNode: e.CoreNode, Name: e.Name, Value: f(e.Value), Body: f(e.Body)}

	case *core.LetRec:
		binds := make([]core.RecBinding, len(e.Bindings))
		for i, b := range e.Bindings {
			binds[i] = core.RecBinding{Name: b.Name, Value: f(b.Value)}
		}
		return &core.LetRec{CoreNode: e.CoreNode, Bindings: binds, Body: f(e.Body)}

	case *core.App:
		args := make([]core.CoreExpr, len(e.Args))
		for i, a := range e.Args {
			args[i] = f(a)
		}
		return &core.App{CoreNode: e.CoreNode, Func: f(e.Func), Args: args}

	case *core.If:
		return &core.If{CoreNode: e.CoreNode, Cond: f(e.Cond), Then: f(e.Then), Else: f(e.Else)}

	case *core.Match:
		arms := make([]core.MatchArm, len(e.Arms))
		for i, a := range e.Arms {
			var guard core.CoreExpr
			if a.Guard != nil {
				guard = f(a.Guard)
			}
			arms[i] = core.MatchArm{Pattern: a.Pattern, Guard: guard, Body: f(a.Body)}
		}
		return &core.Match{CoreNode: e.CoreNode, Scrutinee: f(e.Scrutinee), Arms: arms, Exhaustive: e.Exhaustive, FailExn: e.FailExn}

	case *core.BinOp:
		return &core.BinOp{CoreNode: e.CoreNode, Op: e.Op, Left: f(e.Left), Right: f(e.Right)}

	case *core.UnOp:
		return &core.UnOp{CoreNode: e.CoreNode, Op: e.Op, Operand: f(e.Operand)}

	case *core.Record:
		fields := make(map[string]core.CoreExpr, len(e.Fields))
		for k, v := range e.Fields {
			fields[k] = f(v)
		}
		return &core.Record{CoreNode: e.CoreNode, Fields: fields}

	case *core.RecordAccess:
		return &core.RecordAccess{CoreNode: e.CoreNode, Record: f(e.Record), Field: e.Field}

	case *core.List:
		elems := make([]core.CoreExpr, len(e.Elements))
		for i, el := range e.Elements {
			elems[i] = f(el)
		}
		return &core.List{CoreNode: e.CoreNode, Elements: elems}

	case *core.From:
		return &core.From{CoreNode: e.CoreNode, Kind: e.Kind, Head: mapScans(e.Head, f), Steps: mapSteps(e.Steps, f), Plan: e.Plan}

	default:
		return expr
	}
}

func mapScans(scans []core.Scan, f func(core.CoreExpr) core.CoreExpr) []core.Scan {
	out := make([]core.Scan, len(scans))
	for i, s := range scans {
		var src core.CoreExpr
		if s.Source != nil {
			src = f(s.Source)
		}
		out[i] = core.Scan{Pattern: s.Pattern, Source: src}
	}
	return out
}

func mapAggs(specs []core.AggSpec, f func(core.CoreExpr) core.CoreExpr) []core.AggSpec {
	out := make([]core.AggSpec, len(specs))
	for i, s := range specs {
		out[i] = core.AggSpec{Name: s.Name, Agg: s.Agg, Expr: f(s.Expr)}
	}
	return out
}

func mapSteps(steps []core.Step, f func(core.CoreExpr) core.CoreExpr) []core.Step {
	out := make([]core.Step, len(steps))
	for i, st := range steps {
		ns := st
		switch st.Kind {
		case core.StepWhere, core.StepRequire:
			if st.Cond != nil {
				ns.Cond = f(st.Cond)
			}
		case core.StepJoin:
			ns.JoinScans = mapScans(st.JoinScans, f)
			if st.JoinOn != nil {
				ns.JoinOn = f(st.JoinOn)
			}
		case core.StepGroup:
			gf := make([]core.GroupField, len(st.GroupFields))
			for j, g := range st.GroupFields {
				gf[j] = core.GroupField{Name: g.Name, Expr: f(g.Expr)}
			}
			ns.GroupFields = gf
			ns.ComputeSpecs = mapAggs(st.ComputeSpecs, f)
		case core.StepOrder:
			keys := make([]core.OrderKey, len(st.OrderKeys))
			for j, k := range st.OrderKeys {
				keys[j] = core.OrderKey{Expr: f(k.Expr), Desc: k.Desc}
			}
			ns.OrderKeys = keys
		case core.StepTake, core.StepSkip:
			if st.CountExpr != nil {
				ns.CountExpr = f(st.CountExpr)
			}
		case core.StepYield:
			if st.YieldExpr != nil {
				ns.YieldExpr = f(st.YieldExpr)
			}
		case core.StepThrough:
			if st.ThroughFn != nil {
				ns.ThroughFn = f(st.ThroughFn)
			}
		case core.StepCompute:
			ns.Aggs = mapAggs(st.Aggs, f)
		case core.StepInto:
			if st.IntoFn != nil {
				ns.IntoFn = f(st.IntoFn)
			}
		case core.StepUnion, core.StepIntersect, core.StepExcept:
			operands := make([]core.SetOperand, len(st.SetOperands))
			for j, op := range st.SetOperands {
				operands[j] = core.SetOperand{Source: f(op.Source), Distinct: op.Distinct}
			}
			ns.SetOperands = operands
		}
		out[i] = ns
	}
	return out
}

// transform applies f bottom-up over expr: every sub-expression is
// transformed first, then f runs on the rewritten node.
func transform(expr core.CoreExpr, f func(core.CoreExpr) core.CoreExpr) core.CoreExpr {
	rewritten := mapChildren(expr, func(child core.CoreExpr) core.CoreExpr {
		return transform(child, f)
	})
	return f(rewritten)
}

// patternBinds reports whether pat introduces a binding named name,
// shielding an outer binding of the same name from substitution beneath it.
func patternBinds(pat core.CorePattern, name string) bool {
	switch p := pat.(type) {
	case *core.VarPattern:
		return p.Name == name
	case *core.TuplePattern:
		for _, e := range p.Elements {
			if patternBinds(e, name) {
				return true
			}
		}
	case *core.ConstructorPattern:
		for _, e := range p.Args {
			if patternBinds(e, name) {
				return true
			}
		}
	case *core.ListPattern:
		for _, e := range p.Elements {
			if patternBinds(e, name) {
				return true
			}
		}
		if p.Tail != nil && patternBinds(*p.Tail, name) {
			return true
		}
	case *core.RecordPattern:
		for _, e := range p.Fields {
			if patternBinds(e, name) {
				return true
			}
		}
	}
	return false
}
