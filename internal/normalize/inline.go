package normalize

import "github.com/deepsen/smli/internal/core"

// usage classifies how many times and how safely a let-bound name is used
// in its body: underGuard is set once the walk has descended
// into an If arm, a Match arm body/guard, or a Lambda body — any of those
// make a single occurrence unsafe to treat as ONCE_SAFE, since it is not
// unconditionally evaluated in the same order as the binding.
type usage struct {
	count      int
	underGuard bool
}

// countUses walks expr counting free occurrences of name as a Var,
// conservatively stopping at any construct that rebinds name (the shadowed
// occurrences belong to the inner binding, not this one).
func countUses(name string, expr core.CoreExpr) usage {
	var u usage
	var walk func(e core.CoreExpr, guarded bool)
	walk = func(e core.CoreExpr, guarded bool) {
		switch e := e.(type) {
		case *core.Var:
			if e.Name == name {
				u.count++
				if guarded {
					u.underGuard = true
				}
			}
		case *core.Lambda:
			if !containsParam(e.Params, name) {
				walk(e.Body, true)
			}
		case *core.Let:
			walk(e.Value, guarded)
			if e.Name != name {
				walk(e.Body, guarded)
			}
		case *core.LetRec:
			rebinds := false
			for _, b := range e.Bindings {
				if b.Name == name {
					rebinds = true
				}
			}
			if !rebinds {
				for _, b := range e.Bindings {
					walk(b.Value, true)
				}
				walk(e.Body, guarded)
			}
		case *core.If:
			walk(e.Cond, guarded)
			walk(e.Then, true)
			walk(e.Else, true)
		case *core.Match:
			walk(e.Scrutinee, guarded)
			for _, arm := range e.Arms {
				if patternBinds(arm.Pattern, name) {
					continue
				}
				if arm.Guard != nil {
					walk(arm.Guard, true)
				}
				walk(arm.Body, true)
			}
		case *core.From:
			shadowed := false
			for _, sc := range e.Head {
				if sc.Source != nil {
					walk(sc.Source, guarded)
				}
				if patternBinds(sc.Pattern, name) {
					shadowed = true
				}
			}
			if !shadowed {
				walkSteps(e.Steps, name, true, walk)
			}
		default:
			mapChildren(e, func(child core.CoreExpr) core.CoreExpr {
				walk(child, guarded)
				return child
			})
		}
	}
	walk(expr, false)
	return u
}

func walkSteps(steps []core.Step, name string, guarded bool, walk func(core.CoreExpr, bool)) {
	for _, st := range steps {
		switch st.Kind {
		case core.StepWhere, core.StepRequire:
			if st.Cond != nil {
				walk(st.Cond, guarded)
			}
		case core.StepJoin:
			for _, sc := range st.JoinScans {
				if sc.Source != nil {
					walk(sc.Source, guarded)
				}
			}
			if st.JoinOn != nil {
				walk(st.JoinOn, guarded)
			}
		case core.StepGroup:
			for _, g := range st.GroupFields {
				walk(g.Expr, guarded)
			}
			for _, a := range st.ComputeSpecs {
				walk(a.Expr, guarded)
			}
		case core.StepOrder:
			for _, k := range st.OrderKeys {
				walk(k.Expr, guarded)
			}
		case core.StepTake, core.StepSkip:
			if st.CountExpr != nil {
				walk(st.CountExpr, guarded)
			}
		case core.StepYield:
			if st.YieldExpr != nil {
				walk(st.YieldExpr, guarded)
			}
		case core.StepThrough:
			if st.ThroughFn != nil {
				walk(st.ThroughFn, guarded)
			}
		case core.StepCompute:
			for _, a := range st.Aggs {
				walk(a.Expr, guarded)
			}
		case core.StepInto:
			if st.IntoFn != nil {
				walk(st.IntoFn, guarded)
			}
		case core.StepUnion, core.StepIntersect, core.StepExcept:
			for _, op := range st.SetOperands {
				walk(op.Source, guarded)
			}
		}
	}
}

func containsParam(params []string, name string) bool {
	for _, p := range params {
		if p == name {
			return true
		}
	}
	return false
}

// isInlineAtomic reports whether e is ATOMIC: a literal, variable, or
// constructor with no args.
func isInlineAtomic(e core.CoreExpr) bool {
	switch e := e.(type) {
	case *core.Lit, *core.Var, *core.VarGlobal:
		return true
	case *core.ConstructorApp:
		return e.Arg == nil
	}
	return false
}

// isCheap bounds MULTI_SAFE's "total, cheap expression" test to a small fixed node-count threshold, the "implementer picks a
// size threshold" the spec leaves open.
const cheapThreshold = 6

func isCheap(e core.CoreExpr) bool {
	n := 0
	var count func(core.CoreExpr)
	count = func(e core.CoreExpr) {
		n++
		switch e.(type) {
		case *core.App, *core.Handle, *core.Raise, *core.From, *core.Lambda, *core.LetRec:
			n += cheapThreshold // disqualify: calls/effects/pipelines/closures aren't "cheap"
			return
		}
		mapChildren(e, func(child core.CoreExpr) core.CoreExpr {
			count(child)
			return child
		})
	}
	count(e)
	return n <= cheapThreshold
}

// substVar replaces every free occurrence of name in expr with replacement,
// stopping at any construct that rebinds name.
func substVar(name string, replacement, expr core.CoreExpr) core.CoreExpr {
	switch e := expr.(type) {
	case *core.Var:
		if e.Name == name {
			return replacement
		}
		return e
	case *core.Lambda:
		if containsParam(e.Params, name) {
			return e
		}
	case *core.Let:
		value := substVar(name, replacement, e.Value)
		if e.Name == name {
			return &core.Let{CoreNode: e.CoreNode, Name: e.Name, Value: value, Body: e.Body}
		}
		return &core.Let{CoreNode: e.CoreNode, Name: e.Name, Value: value, Body: substVar(name, replacement, e.Body)}
	case *core.LetRec:
		for _, b := range e.Bindings {
			if b.Name == name {
				return e
			}
		}
	case *core.Match:
		scrut := substVar(name, replacement, e.Scrutinee)
		arms := make([]core.MatchArm, len(e.Arms))
		for i, arm := range e.Arms {
			if patternBinds(arm.Pattern, name) {
				arms[i] = arm
				continue
			}
			var guard core.CoreExpr
			if arm.Guard != nil {
				guard = substVar(name, replacement, arm.Guard)
			}
			arms[i] = core.MatchArm{Pattern: arm.Pattern, Guard: guard, Body: substVar(name, replacement, arm.Body)}
		}
		return &core.Match{CoreNode: e.CoreNode, Scrutinee: scrut, Arms: arms, Exhaustive: e.Exhaustive, FailExn: e.FailExn}
	case *core.From:
		head := make([]core.Scan, len(e.Head))
		shadowed := false
		for i, sc := range e.Head {
			src := sc.Source
			if src != nil {
				src = substVar(name, replacement, src)
			}
			head[i] = core.Scan{Pattern: sc.Pattern, Source: src}
			if patternBinds(sc.Pattern, name) {
				shadowed = true
			}
		}
		steps := e.Steps
		if !shadowed {
			steps = mapSteps(e.Steps, func(child core.CoreExpr) core.CoreExpr {
				return substVar(name, replacement, child)
			})
		}
		return &core.From{CoreNode: e.CoreNode, Kind: e.Kind, Head: head, Steps: steps, Plan: e.Plan}
	}
	return mapChildren(expr, func(child core.CoreExpr) core.CoreExpr {
		return substVar(name, replacement, child)
	})
}

// freeVars collects expr's free variable names.
func freeVars(e core.CoreExpr) map[string]bool {
	free := map[string]bool{}
	var walk func(e core.CoreExpr, bound map[string]bool)
	walk = func(e core.CoreExpr, bound map[string]bool) {
		switch e := e.(type) {
		case *core.Var:
			if !bound[e.Name] {
				free[e.Name] = true
			}
		case *core.Lambda:
			walk(e.Body, withNames(bound, e.Params))
		case *core.Let:
			walk(e.Value, bound)
			walk(e.Body, withNames(bound, []string{e.Name}))
		case *core.LetRec:
			var names []string
			for _, b := range e.Bindings {
				names = append(names, b.Name)
			}
			inner := withNames(bound, names)
			for _, b := range e.Bindings {
				walk(b.Value, inner)
			}
			walk(e.Body, inner)
		case *core.Match:
			walk(e.Scrutinee, bound)
			for _, arm := range e.Arms {
				inner := withNames(bound, patternBoundNames(arm.Pattern))
				if arm.Guard != nil {
					walk(arm.Guard, inner)
				}
				walk(arm.Body, inner)
			}
		case *core.Handle:
			walk(e.Body, bound)
			for _, arm := range e.Arms {
				walk(arm.Body, withNames(bound, patternBoundNames(arm.Pattern)))
			}
		case *core.From:
			inner := bound
			for _, sc := range e.Head {
				if sc.Source != nil {
					walk(sc.Source, inner)
				}
				inner = withNames(inner, patternBoundNames(sc.Pattern))
			}
			walkSteps(e.Steps, "", false, func(child core.CoreExpr, _ bool) {
				walk(child, inner)
			})
		default:
			mapChildren(e, func(child core.CoreExpr) core.CoreExpr {
				walk(child, bound)
				return child
			})
		}
	}
	walk(e, map[string]bool{})
	return free
}

func withNames(bound map[string]bool, names []string) map[string]bool {
	if len(names) == 0 {
		return bound
	}
	next := make(map[string]bool, len(bound)+len(names))
	for n := range bound {
		next[n] = true
	}
	for _, n := range names {
		next[n] = true
	}
	return next
}

func patternBoundNames(pat core.CorePattern) []string {
	var out []string
	var walk func(p core.CorePattern)
	walk = func(p core.CorePattern) {
		switch p := p.(type) {
		case *core.VarPattern:
			out = append(out, p.Name)
		case *core.TuplePattern:
			for _, e := range p.Elements {
				walk(e)
			}
		case *core.ConstructorPattern:
			for _, e := range p.Args {
				walk(e)
			}
		case *core.ListPattern:
			for _, e := range p.Elements {
				walk(e)
			}
			if p.Tail != nil {
				walk(*p.Tail)
			}
		case *core.RecordPattern:
			for _, e := range p.Fields {
				walk(e)
			}
		}
	}
	walk(pat)
	return out
}

// captureRisk reports whether substituting replacement for name inside body
// would place a free variable of replacement under a binder of that same
// variable, changing its meaning. Bindings at risk are simply kept rather
// than alpha-renamed in place.
func captureRisk(name string, replacement, body core.CoreExpr) bool {
	free := freeVars(replacement)
	if len(free) == 0 {
		return false
	}
	risk := false
	var walk func(e core.CoreExpr, shadowed bool)
	walk = func(e core.CoreExpr, shadowed bool) {
		if risk {
			return
		}
		switch e := e.(type) {
		case *core.Var:
			if e.Name == name && shadowed {
				risk = true
			}
		case *core.Lambda:
			if containsParam(e.Params, name) {
				return
			}
			walk(e.Body, shadowed || anyIn(free, e.Params))
		case *core.Let:
			walk(e.Value, shadowed)
			if e.Name != name {
				walk(e.Body, shadowed || free[e.Name])
			}
		case *core.LetRec:
			var names []string
			for _, b := range e.Bindings {
				if b.Name == name {
					return
				}
				names = append(names, b.Name)
			}
			inner := shadowed || anyIn(free, names)
			for _, b := range e.Bindings {
				walk(b.Value, inner)
			}
			walk(e.Body, inner)
		case *core.Match:
			walk(e.Scrutinee, shadowed)
			for _, arm := range e.Arms {
				if patternBinds(arm.Pattern, name) {
					continue
				}
				inner := shadowed || anyIn(free, patternBoundNames(arm.Pattern))
				if arm.Guard != nil {
					walk(arm.Guard, inner)
				}
				walk(arm.Body, inner)
			}
		case *core.Handle:
			walk(e.Body, shadowed)
			for _, arm := range e.Arms {
				if patternBinds(arm.Pattern, name) {
					continue
				}
				walk(arm.Body, shadowed || anyIn(free, patternBoundNames(arm.Pattern)))
			}
		case *core.From:
			inner := shadowed
			rebound := false
			for _, sc := range e.Head {
				if sc.Source != nil {
					walk(sc.Source, inner)
				}
				if patternBinds(sc.Pattern, name) {
					rebound = true
				}
				inner = inner || anyIn(free, patternBoundNames(sc.Pattern))
			}
			if !rebound {
				walkSteps(e.Steps, "", false, func(child core.CoreExpr, _ bool) {
					walk(child, inner)
				})
			}
		default:
			mapChildren(e, func(child core.CoreExpr) core.CoreExpr {
				walk(child, shadowed)
				return child
			})
		}
	}
	walk(body, false)
	return risk
}

func anyIn(set map[string]bool, names []string) bool {
	for _, n := range names {
		if set[n] {
			return true
		}
	}
	return false
}

// inlinePass runs one bottom-up rewrite of every Let in expr, substituting
// DEAD/ATOMIC/ONCE_SAFE/MULTI_SAFE bindings and leaving
// MULTI_UNSAFE bindings in place.
func inlinePass(expr core.CoreExpr) (core.CoreExpr, bool) {
	changed := false
	result := transform(expr, func(e core.CoreExpr) core.CoreExpr {
		let, ok := e.(*core.Let)
		if !ok {
			return e
		}
		u := countUses(let.Name, let.Body)
		if u.count == 0 {
			if isPureDroppable(let.Value) {
				changed = true
				return let.Body
			}
			return let
		}
		if captureRisk(let.Name, let.Value, let.Body) {
			return let
		}
		switch {
		case isInlineAtomic(let.Value):
			changed = true
			return substVar(let.Name, let.Value, let.Body)
		case u.count == 1 && !u.underGuard:
			changed = true
			return substVar(let.Name, let.Value, let.Body)
		case u.count > 1 && isCheap(let.Value):
			changed = true
			return substVar(let.Name, let.Value, let.Body)
		default:
			return let
		}
	})
	return result, changed
}

// isPureDroppable reports whether a DEAD binding's right-hand side can be
// dropped outright without changing observable behavior: it must not itself
// raise or call out.
func isPureDroppable(e core.CoreExpr) bool {
	switch e := e.(type) {
	case *core.Lit, *core.Var, *core.VarGlobal, *core.Lambda:
		return true
	case *core.Tuple:
		for _, el := range e.Elements {
			if !isPureDroppable(el) {
				return false
			}
		}
		return true
	case *core.Record:
		for _, v := range e.Fields {
			if !isPureDroppable(v) {
				return false
			}
		}
		return true
	case *core.ConstructorApp:
		return e.Arg == nil || isPureDroppable(e.Arg)
	case *core.RecordAccess:
		return isPureDroppable(e.Record)
	}
	return false
}

// DefaultInlinePassCount bounds the fixed-point iteration.
const DefaultInlinePassCount = 32

// Inline runs inlinePass to a fixed point, bounded by maxPasses.
func Inline(expr core.CoreExpr, maxPasses int) core.CoreExpr {
	if maxPasses <= 0 {
		maxPasses = DefaultInlinePassCount
	}
	for i := 0; i < maxPasses; i++ {
		next, changed := inlinePass(expr)
		expr = next
		if !changed {
			break
		}
	}
	return expr
}
