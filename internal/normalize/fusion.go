package normalize

import "github.com/deepsen/smli/internal/core"

// fuseFrom applies the query-fusion rules to one `from` pipeline,
// in the order that exposes the most structure to a later backend push-down.
func fuseFrom(f *core.From) *core.From {
	f = flattenNestedScan(f)
	f.Steps = mergeAdjacentWhere(f.Steps)
	f.Steps = dropDeadYields(f.Steps)
	f.Steps = dropIdentityYield(f.Steps, f.Head)
	return f
}

// mergeAdjacentWhere merges two consecutive `where` steps into one, evaluated
// as a short-circuiting conjunction.
func mergeAdjacentWhere(steps []core.Step) []core.Step {
	var out []core.Step
	for i := 0; i < len(steps); i++ {
		st := steps[i]
		if st.Kind == core.StepWhere && i+1 < len(steps) && steps[i+1].Kind == core.StepWhere {
			merged := st
			merged.Cond = &core.If{
				CoreNode: nodeOf(st.Cond),
				Cond:     st.Cond,
				Then:     steps[i+1].Cond,
				Else:     &core.Lit{CoreNode: nodeOf(st.Cond), Kind: core.BoolLit, Value: false},
			}
			out = append(out, merged)
			i++
			continue
		}
		out = append(out, st)
	}
	return out
}

// dropDeadYields collapses a `yield` step immediately followed by another
// `yield`. A record yield's field bindings are substituted
// into the successor; a non-record yield binds no name the successor could
// observe and is dropped outright. Record fields that reference each other's
// labels would need simultaneous substitution, so those pairs are left
// unfused.
func dropDeadYields(steps []core.Step) []core.Step {
	steps = append([]core.Step{}, steps...)
	var out []core.Step
	for i := 0; i < len(steps); i++ {
		st := steps[i]
		if st.Kind == core.StepYield && i+1 < len(steps) && steps[i+1].Kind == core.StepYield {
			if rec, ok := st.YieldExpr.(*core.Record); ok {
				if !fieldsIndependent(rec) {
					out = append(out, st)
					continue
				}
				next := steps[i+1].YieldExpr
				for label, fe := range rec.Fields {
					next = substVar(label, fe, next)
				}
				steps[i+1].YieldExpr = next
			}
			continue
		}
		out = append(out, st)
	}
	return out
}

func fieldsIndependent(rec *core.Record) bool {
	for label := range rec.Fields {
		for other, fe := range rec.Fields {
			if other != label && countUses(label, fe).count > 0 {
				return false
			}
		}
	}
	return true
}

// dropIdentityYield removes a `yield` that names exactly the pipeline's own
// head bindings (`yield {a = a, b = b}` for a `from a, b...`, or `yield v`
// for a single-scan `from v in...`) since it reproduces the row the
// pipeline materializes by default. The check only applies
// while the head bindings still ARE the current row: any earlier step that
// reshapes the row (group, join, through, yield) disables it for the rest of
// the pipeline.
func dropIdentityYield(steps []core.Step, head []core.Scan) []core.Step {
	names := make(map[string]bool, len(head))
	var single string
	for _, sc := range head {
		if vp, ok := sc.Pattern.(*core.VarPattern); ok {
			names[vp.Name] = true
			single = vp.Name
		}
	}
	if len(names) != 1 {
		single = ""
	}
	var out []core.Step
	reshaped := false
	for _, st := range steps {
		if st.Kind == core.StepYield && !reshaped {
			if isIdentityRecord(st.YieldExpr, names) {
				continue
			}
			if v, ok := st.YieldExpr.(*core.Var); ok && single != "" && v.Name == single {
				continue
			}
		}
		switch st.Kind {
		case core.StepYield, core.StepGroup, core.StepJoin, core.StepThrough:
			reshaped = true
		}
		out = append(out, st)
	}
	return out
}

func isIdentityRecord(e core.CoreExpr, names map[string]bool) bool {
	rec, ok := e.(*core.Record)
	if !ok || len(rec.Fields) != len(names) || len(names) < 2 {
		return false
	}
	for label, fe := range rec.Fields {
		if !names[label] {
			return false
		}
		v, ok := fe.(*core.Var)
		if !ok || v.Name != label {
			return false
		}
	}
	return true
}

// flattenNestedScan implements `from v in (from … yield e) …` flattening
// : the inner pipeline's scans and steps become the outer
// pipeline's leading scans/steps, and every later reference to v is
// rewritten to the inner yield expression. When the outer pipeline never
// re-shapes its row: a bare-variable e needs no extra step if its name is
// v's or the outer pipeline has a single scan; any other e over a single
// outer scan gets a terminal `yield e`, so the flattened pipeline still
// materializes v's values rather than the inner scan's; with several outer
// scans, such a pipeline is left unflattened.
func flattenNestedScan(f *core.From) *core.From {
	if len(f.Head) == 0 {
		return f
	}
	first := f.Head[0]
	vp, ok := first.Pattern.(*core.VarPattern)
	if !ok || first.Source == nil {
		return f
	}
	inner, ok := first.Source.(*core.From)
	if !ok || inner.Kind != core.PipelineFrom || inner.Plan != nil {
		return f
	}
	n := len(inner.Steps)
	if n == 0 || inner.Steps[n-1].Kind != core.StepYield {
		return f
	}
	yieldExpr := inner.Steps[n-1].YieldExpr
	innerSteps := inner.Steps[:n-1]

	// The rewrite recomputes v as its defining expression; any step that
	// materializes the row before an outer step re-shapes it would observe
	// the inner scan's bindings instead of v, so bail out of those.
	reshapeIdx := -1
	for i, st := range f.Steps {
		if st.Kind == core.StepYield || st.Kind == core.StepGroup || st.Kind == core.StepCompute || st.Kind == core.StepInto {
			reshapeIdx = i
			break
		}
	}
	for i, st := range f.Steps {
		if reshapeIdx >= 0 && i >= reshapeIdx {
			break
		}
		switch st.Kind {
		case core.StepDistinct, core.StepThrough, core.StepUnion, core.StepIntersect, core.StepExcept:
			return f
		}
	}
	appendYield := false
	if reshapeIdx < 0 {
		yv, ident := yieldExpr.(*core.Var)
		switch {
		case ident && (yv.Name == vp.Name || len(f.Head) == 1):
			// The inner scan variable stands in for v directly.
		case len(f.Head) == 1:
			appendYield = true
		default:
			return f
		}
	}

	subst := func(e core.CoreExpr) core.CoreExpr { return substVar(vp.Name, yieldExpr, e) }

	restHead := make([]core.Scan, len(f.Head)-1)
	for i, sc := range f.Head[1:] {
		src := sc.Source
		if src != nil {
			src = subst(src)
		}
		restHead[i] = core.Scan{Pattern: sc.Pattern, Source: src}
	}

	newHead := append(append([]core.Scan{}, inner.Head...), restHead...)
	newSteps := append(append([]core.Step{}, innerSteps...), mapSteps(f.Steps, subst)...)
	if appendYield {
		newSteps = append(newSteps, core.Step{Kind: core.StepYield, YieldExpr: yieldExpr})
	}
	return &core.From{CoreNode: f.CoreNode, Kind: f.Kind, Head: newHead, Steps: newSteps}
}

func nodeOf(e core.CoreExpr) core.CoreNode {
	if e == nil {
		return core.CoreNode{}
	}
	return core.CoreNode{NodeID: e.ID(), CoreSpan: e.Span(), OrigSpan: e.OriginalSpan()}
}

// builtinMapFilter recognizes a saturated call to the `map`/`filter`
// builtins and lowers it to the equivalent `from` pipeline, given a
// fresh row-variable name supplied by the caller.
func builtinMapFilter(e *core.App, freshName string) (core.CoreExpr, bool) {
	inner, ok := e.Func.(*core.App)
	if !ok || len(inner.Args) != 1 || len(e.Args) != 1 {
		return nil, false
	}
	ref, ok := inner.Func.(*core.VarGlobal)
	if !ok || ref.Ref.Module != "$builtin" {
		return nil, false
	}
	fn := inner.Args[0]
	source := e.Args[0]
	rowVar := &core.Var{CoreNode: e.CoreNode, Name: freshName}
	switch ref.Ref.Name {
	case "map":
		return &core.From{
			CoreNode: e.CoreNode,
			Kind:     core.PipelineFrom,
			Head:     []core.Scan{{Pattern: &core.VarPattern{Name: freshName}, Source: source}},
			Steps: []core.Step{
				{Kind: core.StepYield, YieldExpr: &core.App{CoreNode: e.CoreNode, Func: fn, Args: []core.CoreExpr{rowVar}}},
			},
		}, true
	case "filter":
		return &core.From{
			CoreNode: e.CoreNode,
			Kind:     core.PipelineFrom,
			Head:     []core.Scan{{Pattern: &core.VarPattern{Name: freshName}, Source: source}},
			Steps: []core.Step{
				{Kind: core.StepWhere, Cond: &core.App{CoreNode: e.CoreNode, Func: fn, Args: []core.CoreExpr{rowVar}}},
				{Kind: core.StepYield, YieldExpr: rowVar},
			},
		}, true
	}
	return nil, false
}
