package infer

import (
	"github.com/deepsen/smli/internal/ast"
	"github.com/deepsen/smli/internal/core"
	"github.com/deepsen/smli/internal/errors"
	"github.com/deepsen/smli/internal/types"
)

// collType wraps an element type as either an ordered (list) or unordered
// (bag) collection, the only two result shapes a `from` pipeline can have.
func collType(elem types.Type, unordered bool) types.Type {
	if unordered {
		return &types.TBag{Elem: elem}
	}
	return &types.TList{Elem: elem}
}

// elemOf extracts the element type and orderedness of a scan source's type,
// unifying it against a fresh list-or-bag shape when not yet known.
func (inf *Inferencer) elemOf(sub types.Substitution, srcT types.Type, pos ast.Pos) (types.Type, bool, types.Substitution) {
	switch t := types.ApplySubst(sub, srcT).(type) {
	case *types.TList:
		return t.Elem, false, sub
	case *types.TBag:
		return t.Elem, true, sub
	default:
		elem := inf.freshVar()
		sub = inf.unify(sub, srcT, &types.TList{Elem: elem}, pos)
		return elem, false, sub
	}
}

// inferPipeline type-checks and lowers a `from`/`exists`/`forall`
// expression. Extent solving for bare-variable scans (no `in
// e`) is deferred to the normalizer; here a scan with no Source simply binds
// a fresh type for its pattern, to be resolved once the finite-domain
// extent is known.
func (inf *Inferencer) inferPipeline(e *ast.PipelineExpr, sub types.Substitution) (types.Type, core.CoreExpr, types.Substitution) {
	savedEnv := inf.env
	unordered := false
	inf.checkPipelineShape(e)
	coreHead := make([]core.Scan, len(e.Head))
	for i, sc := range e.Head {
		pr, s := inf.inferPattern(sc.Pattern, sub)
		sub = s
		var srcC core.CoreExpr
		if sc.Source != nil {
			srcT, sc2, s2 := inf.inferExpr(sc.Source, sub)
			sub = s2
			elem, un, s3 := inf.elemOf(s2, srcT, sc.Pos)
			sub = s3
			sub = inf.unify(sub, pr.typ, elem, sc.Pos)
			srcC = sc2
			unordered = unordered || un
		}
		if sc.Source == nil {
			if id, ok := sc.Pattern.(*ast.Ident); ok && !isConstructorName(id.Name) {
				inf.scanTypes[id.Name] = pr.typ
			}
		}
		for n, t := range pr.binds {
			inf.env = inf.env.Extend(n, &types.ValueBinding{Scheme: types.Mono(t)})
		}
		coreHead[i] = core.Scan{Pattern: pr.core, Source: srcC}
	}

	var yieldT types.Type
	var rowT types.Type // row record type after a `group` step, if any
	var terminalT types.Type
	coreSteps := make([]core.Step, len(e.Steps))
	for i, st := range e.Steps {
		switch st.Kind {
		case ast.StepWhere, ast.StepRequire:
			condT, condC, s := inf.inferExpr(st.Cond, sub)
			sub = inf.unify(s, condT, types.Bool, st.Pos)
			kind := core.StepWhere
			if st.Kind == ast.StepRequire {
				kind = core.StepRequire
			}
			coreSteps[i] = core.Step{Kind: kind, Cond: condC}

		case ast.StepJoin:
			joinScans := make([]core.Scan, len(st.JoinScans))
			for j, sc := range st.JoinScans {
				pr, s := inf.inferPattern(sc.Pattern, sub)
				sub = s
				var srcC core.CoreExpr
				if sc.Source != nil {
					srcT, sc2, s2 := inf.inferExpr(sc.Source, sub)
					sub = s2
					elem, un, s3 := inf.elemOf(s2, srcT, sc.Pos)
					sub = s3
					sub = inf.unify(sub, pr.typ, elem, sc.Pos)
					srcC = sc2
					unordered = unordered || un
				}
				for n, t := range pr.binds {
					inf.env = inf.env.Extend(n, &types.ValueBinding{Scheme: types.Mono(t)})
				}
				joinScans[j] = core.Scan{Pattern: pr.core, Source: srcC}
			}
			var onC core.CoreExpr
			if st.JoinOn != nil {
				onT, oc, s := inf.inferExpr(st.JoinOn, sub)
				sub = inf.unify(s, onT, types.Bool, st.Pos)
				onC = oc
			}
			coreSteps[i] = core.Step{Kind: core.StepJoin, JoinScans: joinScans, JoinOn: onC}

		case ast.StepGroup:
			// Key expressions and aggregate operands are inferred in the
			// pre-group scope; the group then replaces the row wholesale with
			// a record of the key fields plus the aggregate fields.
			var gf []core.GroupField
			rowFields := map[string]types.Type{}
			addField := func(name string, t types.Type, c core.CoreExpr) {
				if _, dup := rowFields[name]; dup {
					inf.errf(errors.TY006, inf.spanOf(st.Pos), "duplicate field %q in group", name)
					return
				}
				rowFields[name] = t
				if c != nil {
					gf = append(gf, core.GroupField{Name: name, Expr: c})
				}
			}
			if rec, ok := st.GroupKey.(*ast.Record); ok {
				for _, f := range rec.Fields {
					ft, fc, s := inf.inferExpr(f.Value, sub)
					sub = s
					addField(f.Label, ft, fc)
				}
			} else {
				name, ok := groupFieldName(st.GroupKey)
				if !ok {
					inf.errf(errors.TY006, inf.spanOf(st.Pos), "cannot derive a field name for group key; use a label")
					name = "key"
				}
				keyT, keyC, s := inf.inferExpr(st.GroupKey, sub)
				sub = s
				addField(name, keyT, keyC)
			}
			specs := make([]core.AggSpec, len(st.ComputeSpecs))
			for j, a := range st.ComputeSpecs {
				at, ac, s2 := inf.inferExpr(a.Expr, sub)
				sub = s2
				specs[j] = core.AggSpec{Name: a.Name, Agg: a.Agg, Expr: ac}
				name := a.Name
				if name == "" {
					name = a.Agg
				}
				addField(name, resultTypeOfAgg(a.Agg, at), nil)
			}
			inf.env = savedEnv
			for n, t := range rowFields {
				inf.env = inf.env.Extend(n, &types.ValueBinding{Scheme: types.Mono(t)})
			}
			rowT = &types.TRecord{Row: types.RecordRow{Fields: rowFields}}
			yieldT = nil
			coreSteps[i] = core.Step{Kind: core.StepGroup, GroupFields: gf, ComputeSpecs: specs}

		case ast.StepOrder:
			unordered = false // order re-imposes order
			keys := make([]core.OrderKey, len(st.OrderKeys))
			for j, k := range st.OrderKeys {
				_, kc, s := inf.inferExpr(k.Expr, sub)
				sub = s
				keys[j] = core.OrderKey{Expr: kc, Desc: k.Desc}
			}
			coreSteps[i] = core.Step{Kind: core.StepOrder, OrderKeys: keys}

		case ast.StepTake, ast.StepSkip:
			if unordered {
				inf.errf(errors.TY011, inf.spanOf(st.Pos), "take/skip on an unordered pipeline; order it first")
			}
			ct, cc, s := inf.inferExpr(st.CountExpr, sub)
			sub = inf.unify(s, ct, types.Int, st.Pos)
			kind := core.StepTake
			if st.Kind == ast.StepSkip {
				kind = core.StepSkip
			}
			coreSteps[i] = core.Step{Kind: kind, CountExpr: cc}

		case ast.StepDistinct:
			coreSteps[i] = core.Step{Kind: core.StepDistinct}

		case ast.StepUnorder:
			unordered = true
			coreSteps[i] = core.Step{Kind: core.StepUnorder}

		case ast.StepYield:
			yt, yc, s := inf.inferExpr(st.YieldExpr, sub)
			sub = s
			yieldT = yt
			rowT = nil
			// A record-typed yield re-seeds the scope: its field names become
			// the bindings subsequent steps see.
			if rt, ok := types.ApplySubst(sub, yt).(*types.TRecord); ok {
				inf.env = savedEnv
				for n, t := range rt.Row.Fields {
					inf.env = inf.env.Extend(n, &types.ValueBinding{Scheme: types.Mono(t)})
				}
			}
			coreSteps[i] = core.Step{Kind: core.StepYield, YieldExpr: yc}

		case ast.StepThrough:
			fnT, fnC, s := inf.inferExpr(st.ThroughFn, sub)
			sub = s
			pr, s2 := inf.inferPattern(st.ThroughPattern, sub)
			sub = s2
			resultTV := inf.freshVar()
			elemT := inf.freshVar()
			sub = inf.unify(sub, fnT, &types.TFunc{Param: elemT, Result: resultTV}, st.Pos)
			sub = inf.unify(sub, pr.typ, resultTV, st.Pos)
			for n, t := range pr.binds {
				inf.env = inf.env.Extend(n, &types.ValueBinding{Scheme: types.Mono(t)})
			}
			coreSteps[i] = core.Step{Kind: core.StepThrough, ThroughPattern: pr.core, ThroughFn: fnC}

		case ast.StepCompute:
			aggs := make([]core.AggSpec, len(st.Aggs))
			var single types.Type
			fields := map[string]types.Type{}
			for j, a := range st.Aggs {
				at, ac, s := inf.inferExpr(a.Expr, sub)
				sub = s
				aggs[j] = core.AggSpec{Name: a.Name, Agg: a.Agg, Expr: ac}
				if a.Name == "" {
					single = resultTypeOfAgg(a.Agg, at)
				} else {
					fields[a.Name] = resultTypeOfAgg(a.Agg, at)
				}
			}
			if len(st.Aggs) == 1 && st.Aggs[0].Name == "" {
				terminalT = single
			} else {
				terminalT = &types.TRecord{Row: types.RecordRow{Fields: fields}}
			}
			coreSteps[i] = core.Step{Kind: core.StepCompute, Aggs: aggs}

		case ast.StepInto:
			fnT, fnC, s := inf.inferExpr(st.IntoFn, sub)
			sub = s
			elemT := yieldT
			if elemT == nil {
				elemT = inf.freshVar()
			}
			resultTV := inf.freshVar()
			sub = inf.unify(sub, fnT, &types.TFunc{Param: collType(elemT, unordered), Result: resultTV}, st.Pos)
			terminalT = resultTV
			coreSteps[i] = core.Step{Kind: core.StepInto, IntoFn: fnC}

		case ast.StepUnion, ast.StepIntersect, ast.StepExcept:
			elemT := yieldT
			if elemT == nil {
				elemT = inf.freshVar()
			}
			operands := make([]core.SetOperand, len(st.SetOperands))
			for j, op := range st.SetOperands {
				opT, opC, s := inf.inferExpr(op.Source, sub)
				sub = s
				opElem, _, s2 := inf.elemOf(s, opT, st.Pos)
				sub = inf.unify(s2, opElem, elemT, st.Pos)
				operands[j] = core.SetOperand{Source: opC, Distinct: op.Distinct}
			}
			kind := core.StepUnion
			switch st.Kind {
			case ast.StepIntersect:
				kind = core.StepIntersect
			case ast.StepExcept:
				kind = core.StepExcept
			}
			coreSteps[i] = core.Step{Kind: kind, SetOperands: operands}
		}
	}
	var resultT types.Type
	switch e.Kind {
	case ast.PipelineExists, ast.PipelineForall:
		resultT = types.Bool
	default:
		switch {
		case terminalT != nil:
			resultT = terminalT
		case yieldT != nil:
			resultT = collType(yieldT, unordered)
		case rowT != nil:
			resultT = collType(rowT, unordered)
		default:
			scans := append([]ast.Scan{}, e.Head...)
			for _, st := range e.Steps {
				if st.Kind == ast.StepJoin {
					scans = append(scans, st.JoinScans...)
				}
			}
			resultT = collType(inf.rowRecordType(scans), unordered)
		}
	}
	inf.env = savedEnv

	kind := core.PipelineFrom
	switch e.Kind {
	case ast.PipelineExists:
		kind = core.PipelineExists
	case ast.PipelineForall:
		kind = core.PipelineForall
	}
	return resultT, &core.From{CoreNode: inf.node(e.Pos), Kind: kind, Head: coreHead, Steps: coreSteps}, sub
}

// rowRecordType gives the default element type of a pipeline with no
// terminal yield/group/compute/into: the sole scan variable's own type for a
// one-scan head, a record of the scan variable names otherwise. A `from` of
// no scans has type `unit list` with one row. Non-variable
// head patterns are skipped (their destructured names are bound individually
// but the whole-row shape is only meaningful for simple `x in xs` scans);
// see DESIGN.md.
func (inf *Inferencer) rowRecordType(head []ast.Scan) types.Type {
	if len(head) == 0 {
		return types.Unit
	}
	fields := map[string]types.Type{}
	for _, sc := range head {
		if id, ok := sc.Pattern.(*ast.Ident); ok && !isConstructorName(id.Name) {
			if b, ok := inf.env.Lookup(id.Name); ok {
				if vb, ok := b.(*types.ValueBinding); ok {
					fields[id.Name] = vb.Scheme.Type
				}
			}
		}
	}
	if len(head) == 1 && len(fields) == 1 {
		for _, t := range fields {
			return t
		}
	}
	if len(fields) == 0 {
		return inf.freshVar()
	}
	return &types.TRecord{Row: types.RecordRow{Fields: fields}}
}

// checkPipelineShape enforces the kind-specific step restrictions:
// `compute` and `into` may only appear as the last step of a
// `from`, never inside `exists`/`forall`, and a `forall` must end in
// `require`.
func (inf *Inferencer) checkPipelineShape(e *ast.PipelineExpr) {
	quantified := e.Kind == ast.PipelineExists || e.Kind == ast.PipelineForall
	for i, st := range e.Steps {
		switch st.Kind {
		case ast.StepCompute, ast.StepInto:
			if quantified {
				inf.errf(errors.TY011, inf.spanOf(st.Pos), "compute/into is not allowed in exists/forall")
			} else if i != len(e.Steps)-1 {
				inf.errf(errors.TY011, inf.spanOf(st.Pos), "compute/into must be the last step")
			}
		case ast.StepRequire:
			if e.Kind != ast.PipelineForall {
				inf.errf(errors.TY011, inf.spanOf(st.Pos), "require is only allowed in forall")
			}
		}
	}
	if e.Kind == ast.PipelineForall {
		if n := len(e.Steps); n == 0 || e.Steps[n-1].Kind != ast.StepRequire {
			inf.errf(errors.TY011, inf.spanOf(e.Pos), "forall must end in require")
		}
	}
}

// groupFieldName derives the field name a bare (non-record) group key
// contributes: `x` names `x`, `e.a`/`#a e` names `a`. Anything else needs an
// explicit label via the record form.
func groupFieldName(e ast.Expr) (string, bool) {
	switch e := e.(type) {
	case *ast.Ident:
		return e.Name, true
	case *ast.RecordSelect:
		return e.Label, true
	}
	return "", false
}

// resultTypeOfAgg gives the result type of one aggregator applied to an
// expression of type t: `count` is always int,
// every other aggregator preserves its operand's numeric type.
func resultTypeOfAgg(agg string, t types.Type) types.Type {
	if agg == "count" {
		return types.Int
	}
	return t
}
