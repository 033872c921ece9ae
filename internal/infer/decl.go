package infer

import (
	"fmt"
	"sort"

	"github.com/deepsen/smli/internal/ast"
	"github.com/deepsen/smli/internal/core"
	"github.com/deepsen/smli/internal/errors"
	"github.com/deepsen/smli/internal/types"
)

var syntheticCounter uint64

func freshSynthName(prefix string) string {
	syntheticCounter++
	return fmt.Sprintf("$%s%d", prefix, syntheticCounter)
}

// isSyntacticValue implements the value restriction: only expressions
// built from literals, variables, lambdas, and value-preserving
// constructors are safe to generalize.
func isSyntacticValue(e ast.Expr) bool {
	switch e := e.(type) {
	case *ast.Literal, *ast.Ident, *ast.FnExpr:
		return true
	case *ast.Tuple:
		for _, el := range e.Elements {
			if !isSyntacticValue(el) {
				return false
			}
		}
		return true
	case *ast.ListExpr:
		for _, el := range e.Elements {
			if !isSyntacticValue(el) {
				return false
			}
		}
		return true
	case *ast.Record:
		for _, f := range e.Fields {
			if !isSyntacticValue(f.Value) {
				return false
			}
		}
		return true
	case *ast.Annotated:
		return isSyntacticValue(e.Expr)
	case *ast.Apply:
		if id, ok := e.Fn.(*ast.Ident); ok && isConstructorName(id.Name) {
			return isSyntacticValue(e.Arg)
		}
		return false
	}
	return false
}

// lowerBindingPattern builds the core form of `val <pattern> = <value>`:
// a Let binding a synthetic name to a (possibly pattern-matching) result,
// followed by one Let per bound name extracting it back out. A simple
// VarPattern short-circuits straight to a single Let. continuation is
// spliced in as the innermost Body.
func (inf *Inferencer) lowerBindingPattern(pr patResult, valueC core.CoreExpr, pos ast.Pos, continuation core.CoreExpr) core.CoreExpr {
	if vp, ok := pr.core.(*core.VarPattern); ok {
		return &core.Let{CoreNode: inf.node(pos), Name: vp.Name, Value: valueC, Body: continuation}
	}
	names := make([]string, 0, len(pr.binds))
	for n := range pr.binds {
		names = append(names, n)
	}
	sort.Strings(names)
	if len(names) == 0 {
		// Irrefutable-but-binds-nothing pattern (e.g. a literal or `_`):
		// still must run for its match-failure (Bind) side effect.
		return &core.Let{
			CoreNode: inf.node(pos),
			Name:     freshSynthName("discard"),
			Value: &core.Match{
				CoreNode:   inf.node(pos),
				Scrutinee:  valueC,
				Arms:       []core.MatchArm{{Pattern: pr.core, Body: &core.Lit{Kind: core.UnitLit}}},
				Exhaustive: false,
				FailExn:    "Bind",
			},
			Body: continuation,
		}
	}
	fields := make(map[string]core.CoreExpr, len(names))
	for i, n := range names {
		fields[fmt.Sprintf("%d", i+1)] = &core.Var{Name: n}
	}
	bundle := freshSynthName("pat")
	matchExpr := &core.Match{
		CoreNode:   inf.node(pos),
		Scrutinee:  valueC,
		Arms:       []core.MatchArm{{Pattern: pr.core, Body: &core.Record{Fields: fields}}},
		Exhaustive: false,
		FailExn:    "Bind",
	}
	body := continuation
	for i := len(names) - 1; i >= 0; i-- {
		body = &core.Let{
			CoreNode: inf.node(pos),
			Name:     names[i],
			Value:    &core.RecordAccess{Record: &core.Var{Name: bundle}, Field: fmt.Sprintf("%d", i+1)},
			Body:     body,
		}
	}
	return &core.Let{CoreNode: inf.node(pos), Name: bundle, Value: matchExpr, Body: body}
}

func (inf *Inferencer) genScheme(value ast.Expr, t types.Type) *types.Scheme {
	if isSyntacticValue(value) {
		return types.Generalize(inf.env, t)
	}
	return types.Mono(t)
}

// inferDecl handles every non-recursive-group top-level declaration kind.
func (inf *Inferencer) inferDecl(d ast.Decl, sub types.Substitution) (*Result, types.Substitution) {
	switch d := d.(type) {
	case *ast.ValDecl:
		return inf.inferValDecl(d, sub)
	case *ast.ValRecDecl:
		r, s := inf.inferRecGroup([]ast.Decl{d}, sub)
		return &r, s
	case *ast.FunDecl:
		r, s := inf.inferRecGroup([]ast.Decl{d}, sub)
		return &r, s
	case *ast.DatatypeDecl:
		return inf.inferDatatypeDecl(d, sub)
	case *ast.TypeAliasDecl:
		inf.typeAliases[d.Name] = aliasDef{params: d.TypeParams, def: d.Def}
		return nil, sub
	case *ast.OverDecl:
		return inf.inferOverDecl(d, sub)
	case *ast.InstDecl:
		return inf.inferInstDecl(d, sub)
	case *ast.ExceptionDecl:
		return inf.inferExceptionDecl(d, sub)
	case *ast.SignatureDecl:
		return nil, sub
	case *ast.UseDecl:
		return inf.inferUseDecl(d, sub)
	case *ast.ExprDecl:
		t, c, s := inf.inferExpr(d.Value, sub)
		sub = s
		scheme := inf.genScheme(d.Value, types.ApplySubst(sub, t))
		inf.env = inf.env.Extend("it", &types.ValueBinding{Scheme: scheme})
		return &Result{Decl: c, Bindings: []Binding{{Name: "it", Scheme: scheme}}}, sub
	}
	return nil, sub
}

func (inf *Inferencer) inferValDecl(d *ast.ValDecl, sub types.Substitution) (*Result, types.Substitution) {
	valT, valC, s := inf.inferExpr(d.Value, sub)
	sub = s
	pr, s2 := inf.inferPattern(d.Pattern, sub)
	sub = inf.unify(s2, pr.typ, valT, d.Pos)

	names := make([]string, 0, len(pr.binds))
	for n := range pr.binds {
		names = append(names, n)
	}
	sort.Strings(names)
	bindings := make([]Binding, 0, len(names))
	for _, n := range names {
		scheme := inf.genScheme(d.Value, types.ApplySubst(sub, pr.binds[n]))
		inf.env = inf.env.Extend(n, &types.ValueBinding{Scheme: scheme})
		bindings = append(bindings, Binding{Name: n, Scheme: scheme})
	}
	sentinel := core.CoreExpr(&core.Lit{Kind: core.UnitLit})
	if len(names) > 0 {
		sentinel = &core.Var{Name: names[len(names)-1]}
	}
	decl := inf.lowerBindingPattern(pr, valC, d.Pos, sentinel)
	return &Result{Decl: decl, Bindings: bindings}, sub
}

// valClause is one inferred member of a plain `val ... and ...` chain,
// awaiting the group's simultaneous binding.
type valClause struct {
	d    *ast.ValDecl
	pr   patResult
	valC core.CoreExpr
	tmp  string
}

// inferValClauses infers every clause of a `val ... and ...` chain against
// the environment as it stood before the group: a clause's RHS sees the
// outer bindings, never a sibling's.
func (inf *Inferencer) inferValClauses(group []*ast.ValDecl, sub types.Substitution) ([]valClause, types.Substitution) {
	savedEnv := inf.env
	clauses := make([]valClause, len(group))
	for i, d := range group {
		inf.env = savedEnv
		valT, valC, s := inf.inferExpr(d.Value, sub)
		sub = s
		pr, s2 := inf.inferPattern(d.Pattern, sub)
		sub = inf.unify(s2, pr.typ, valT, d.Pos)
		clauses[i] = valClause{d: d, pr: pr, valC: valC, tmp: freshSynthName("and")}
	}
	inf.env = savedEnv
	return clauses, sub
}

// bindValClauses extends the environment with every clause's names in
// clause order (a later clause of the same name shadows an earlier one)
// and returns the display bindings.
func (inf *Inferencer) bindValClauses(clauses []valClause, sub types.Substitution) []Binding {
	var bindings []Binding
	for _, c := range clauses {
		names := make([]string, 0, len(c.pr.binds))
		for n := range c.pr.binds {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			scheme := inf.genScheme(c.d.Value, types.ApplySubst(sub, c.pr.binds[n]))
			inf.env = inf.env.Extend(n, &types.ValueBinding{Scheme: scheme})
			bindings = append(bindings, Binding{Name: n, Scheme: scheme})
		}
	}
	return bindings
}

// wrapValClauses lowers a chain around body: every RHS is evaluated into a
// synthetic temporary before any clause's pattern binds, so a clause's
// value can never observe a sibling binding at run time either.
func (inf *Inferencer) wrapValClauses(clauses []valClause, body core.CoreExpr) core.CoreExpr {
	for i := len(clauses) - 1; i >= 0; i-- {
		c := clauses[i]
		body = inf.lowerBindingPattern(c.pr, &core.Var{CoreNode: inf.node(c.d.Pos), Name: c.tmp}, c.d.Pos, body)
	}
	for i := len(clauses) - 1; i >= 0; i-- {
		c := clauses[i]
		body = &core.Let{CoreNode: inf.node(c.d.Pos), Name: c.tmp, Value: c.valC, Body: body}
	}
	return body
}

// inferValGroup handles one `and`-joined run of plain ValDecls as a single
// simultaneous binding group.
func (inf *Inferencer) inferValGroup(group []*ast.ValDecl, sub types.Substitution) (Result, types.Substitution) {
	clauses, sub := inf.inferValClauses(group, sub)
	bindings := inf.bindValClauses(clauses, sub)
	sentinel := core.CoreExpr(&core.Lit{Kind: core.UnitLit})
	if len(bindings) > 0 {
		sentinel = &core.Var{Name: bindings[len(bindings)-1].Name}
	}
	return Result{Decl: inf.wrapValClauses(clauses, sentinel), Bindings: bindings}, sub
}

// inferRecGroup handles one `and`-joined run of ValRecDecl/FunDecl as a
// single mutually-recursive LetRec.
func (inf *Inferencer) inferRecGroup(group []ast.Decl, sub types.Substitution) (Result, types.Substitution) {
	names := make([]string, len(group))
	placeholders := make([]*types.TVar, len(group))
	savedEnv := inf.env
	for i, d := range group {
		names[i] = declName(d)
		placeholders[i] = inf.freshVar()
		inf.env = inf.env.Extend(names[i], &types.ValueBinding{Scheme: types.Mono(placeholders[i])})
	}
	bindings := make([]core.RecBinding, len(group))
	for i, d := range group {
		var bodyT types.Type
		var bodyC core.CoreExpr
		switch d := d.(type) {
		case *ast.ValRecDecl:
			bodyT, bodyC, sub = inf.inferExpr(d.Value, sub)
		case *ast.FunDecl:
			bodyT, bodyC, sub = inf.inferFunClauses(d.Name, d.Clauses, sub)
		}
		sub = inf.unify(sub, placeholders[i], bodyT, group[i].Position())
		bindings[i] = core.RecBinding{Name: names[i], Value: bodyC}
	}
	// Generalize against the environment as it stood before the group's own
	// monomorphic placeholders were introduced.
	outerEnv := inf.env
	inf.env = savedEnv
	resultBindings := make([]Binding, len(group))
	for i, d := range group {
		t := types.ApplySubst(sub, placeholders[i])
		var scheme *types.Scheme
		if _, isFun := d.(*ast.FunDecl); isFun {
			scheme = types.Generalize(inf.env, t)
		} else if vr, ok := d.(*ast.ValRecDecl); ok {
			scheme = inf.genScheme(vr.Value, t)
		}
		inf.env = inf.env.Extend(names[i], &types.ValueBinding{Scheme: scheme})
		resultBindings[i] = Binding{Name: names[i], Scheme: scheme}
	}
	_ = outerEnv
	sentinel := core.CoreExpr(&core.Var{Name: names[len(names)-1]})
	decl := &core.LetRec{CoreNode: inf.node(group[0].Position()), Bindings: bindings, Body: sentinel}
	return Result{Decl: decl, Bindings: resultBindings}, sub
}

func declName(d ast.Decl) string {
	switch d := d.(type) {
	case *ast.ValRecDecl:
		return d.Name
	case *ast.FunDecl:
		return d.Name
	}
	return ""
}

// inferFunClauses lowers a multi-clause `fun` definition into nested
// lambdas over synthetic parameter names wrapping a single Match that
// dispatches on clauses in order, falling through to a Match exception.
func (inf *Inferencer) inferFunClauses(name string, clauses []ast.FunClause, sub types.Substitution) (types.Type, core.CoreExpr, types.Substitution) {
	arity := len(clauses[0].Params)
	argNames := make([]string, arity)
	argTVs := make([]types.Type, arity)
	for i := range argNames {
		argNames[i] = freshSynthName("arg")
		argTVs[i] = inf.freshVar()
	}
	resultTV := inf.freshVar()
	savedEnv := inf.env
	arms := make([]core.MatchArm, len(clauses))
	for ci, clause := range clauses {
		inf.env = savedEnv
		elemPats := make([]core.CorePattern, arity)
		for pi, p := range clause.Params {
			pr, s := inf.inferPattern(p, sub)
			sub = inf.unify(s, pr.typ, argTVs[pi], clause.Pos)
			elemPats[pi] = pr.core
			for n, t := range pr.binds {
				inf.env = inf.env.Extend(n, &types.ValueBinding{Scheme: types.Mono(t)})
			}
		}
		var guardC core.CoreExpr
		if clause.Guard != nil {
			gt, gc, s := inf.inferExpr(clause.Guard, sub)
			sub = inf.unify(s, gt, types.Bool, clause.Pos)
			guardC = gc
		}
		bodyT, bodyC, s := inf.inferExpr(clause.Body, sub)
		sub = inf.unify(s, bodyT, resultTV, clause.Pos)
		var pat core.CorePattern = &core.TuplePattern{Elements: elemPats}
		if arity == 1 {
			pat = elemPats[0]
		}
		arms[ci] = core.MatchArm{Pattern: pat, Guard: guardC, Body: bodyC}
		_ = ci
	}
	inf.env = savedEnv
	var scrutinee core.CoreExpr
	if arity == 1 {
		scrutinee = &core.Var{Name: argNames[0]}
	} else {
		elems := make([]core.CoreExpr, arity)
		for i, n := range argNames {
			elems[i] = &core.Var{Name: n}
		}
		scrutinee = &core.Tuple{Elements: elems}
	}
	match := &core.Match{Scrutinee: scrutinee, Arms: arms, Exhaustive: false, FailExn: "Match"}
	inf.checkFunClauseCoverage(clauses, argTVs, sub)
	body := core.CoreExpr(match)
	var fnT types.Type = resultTV
	for i := arity - 1; i >= 0; i-- {
		body = &core.Lambda{Params: []string{argNames[i]}, Body: body}
		fnT = &types.TFunc{Param: argTVs[i], Result: fnT}
	}
	// The result is one single-param Lambda per parameter, nested; no
	// multi-param Lambda is built. This keeps function values curried,
	// consistent with Apply's one-argument-at-a-time shape.
	return fnT, body, sub
}

// checkFunClauseCoverage reuses the `case`-expression coverage checker
// (checkCoverage) for a multi-clause `fun` definition's synthesized match,
// so the literal-clause case (`fun f 1 =... | f 2 =...` warns
// NON-EXHAUSTIVE) fires the same way a hand-written `case` would.
func (inf *Inferencer) checkFunClauseCoverage(clauses []ast.FunClause, argTVs []types.Type, sub types.Substitution) {
	arity := len(clauses[0].Params)
	arms := make([]ast.CaseArm, len(clauses))
	for i, clause := range clauses {
		var pat ast.Pattern = clause.Params[0]
		if arity != 1 {
			pat = &ast.TuplePattern{Elements: clause.Params, Pos: clause.Pos}
		}
		arms[i] = ast.CaseArm{Pattern: pat, Guard: clause.Guard, Pos: clause.Pos}
	}
	var scrutT types.Type
	if arity == 1 {
		scrutT = types.ApplySubst(sub, argTVs[0])
	} else {
		elems := make([]types.Type, arity)
		for i, t := range argTVs {
			elems[i] = types.ApplySubst(sub, t)
		}
		scrutT = &types.TTuple{Elems: elems}
	}
	inf.checkCoverage(clauses[0].Pos, scrutT, arms)
}

func (inf *Inferencer) inferDatatypeDecl(d *ast.DatatypeDecl, sub types.Substitution) (*Result, types.Substitution) {
	for _, b := range d.Bindings {
		tvars := map[string]*types.TVar{}
		var typeParamIDs []int
		for _, p := range b.TypeParams {
			v := inf.freshVar()
			tvars[p] = v
			typeParamIDs = append(typeParamIDs, v.Id)
		}
		args := make([]types.Type, len(typeParamIDs))
		for i, id := range typeParamIDs {
			args[i] = &types.TVar{Id: id}
		}
		resultT := &types.TCon{Name: b.Name, Args: args}
		inf.env = inf.env.Extend(b.Name, &types.TypeConBinding{Arity: len(b.TypeParams)})

		var ctors []types.DatatypeCtor
		for idx, c := range b.Constructors {
			var argType types.Type
			var schemeType types.Type = resultT
			if c.Arg != nil {
				argType = inf.resolveTypeExpr(c.Arg, tvars)
				schemeType = &types.TFunc{Param: argType, Result: resultT}
			}
			scheme := &types.Scheme{Vars: typeParamIDs, Type: schemeType}
			inf.env = inf.env.Extend(c.Name, &types.ConstructorBinding{
				Datatype: b.Name, ArgType: argType, Scheme: scheme, Index: idx,
			})
			ctors = append(ctors, types.DatatypeCtor{Name: c.Name, ArgType: argType})
		}
		inf.env = inf.env.ExtendDatatype(&types.Datatype{Name: b.Name, TypeParams: typeParamIDs, Constructors: ctors})
	}
	return nil, sub
}

func (inf *Inferencer) inferExceptionDecl(d *ast.ExceptionDecl, sub types.Substitution) (*Result, types.Substitution) {
	var argType types.Type
	if d.Arg != nil {
		argType = inf.resolveTypeExpr(d.Arg, map[string]*types.TVar{})
	}
	inf.env = inf.env.Extend(d.Name, &types.ExceptionBinding{ArgType: argType})
	return nil, sub
}

func (inf *Inferencer) inferOverDecl(d *ast.OverDecl, sub types.Substitution) (*Result, types.Substitution) {
	tvars := map[string]*types.TVar{}
	sigT := inf.resolveTypeExpr(d.Signature, tvars)
	var vars []int
	for _, v := range tvars {
		vars = append(vars, v.Id)
	}
	group := types.NewOverloadGroup(d.Name, &types.Scheme{Vars: vars, Type: sigT})
	inf.env = inf.env.Extend(d.Name, &types.OverloadBinding{Group: group})
	return nil, sub
}

func (inf *Inferencer) inferInstDecl(d *ast.InstDecl, sub types.Substitution) (*Result, types.Substitution) {
	b, ok := inf.env.Lookup(d.Name)
	if !ok {
		inf.errf(errors.TY007, inf.spanOf(d.Pos), "val inst %q: no matching `over` declaration", d.Name)
		return nil, sub
	}
	ob, ok := b.(*types.OverloadBinding)
	if !ok {
		inf.errf(errors.TY007, inf.spanOf(d.Pos), "%q is not an overload group", d.Name)
		return nil, sub
	}
	valT, valC, s := inf.inferExpr(d.Value, sub)
	sub = s
	resolvedT := types.ApplySubst(sub, valT)
	scheme := types.Generalize(inf.env, resolvedT)
	ob.Group.AddInstance(scheme)
	instName := overloadInstanceName(d.Name, argTypeOf(resolvedT))
	inf.env = inf.env.Extend(instName, &types.ValueBinding{Scheme: scheme})
	decl := &core.Let{CoreNode: inf.node(d.Pos), Name: instName, Value: valC, Body: &core.Var{Name: instName}}
	return &Result{Decl: decl, Bindings: []Binding{{Name: instName, Scheme: scheme}}}, sub
}

// argTypeOf extracts the parameter type an overload instance is keyed on:
// the argument type of a function instance, or the instance's own type for
// a non-function overload.
func argTypeOf(t types.Type) types.Type {
	if fn, ok := t.(*types.TFunc); ok {
		return fn.Param
	}
	return t
}

func (inf *Inferencer) sysf(code, format string, args ...interface{}) {
	inf.reports = append(inf.reports, errors.NewSystem(code, fmt.Sprintf(format, args...)))
}

func (inf *Inferencer) inferUseDecl(d *ast.UseDecl, sub types.Substitution) (*Result, types.Substitution) {
	if inf.UseResolver == nil {
		inf.sysf(errors.SYS001, "use %q: no source resolver configured", d.Path)
		return nil, sub
	}
	if inf.UseDepth+1 > inf.MaxUseDepth {
		inf.sysf(errors.SYS003, "use %q: exceeds maximum use-nesting depth", d.Path)
		return nil, sub
	}
	inf.UseDepth++
	results, err := inf.UseResolver.Resolve(d.Path)
	inf.UseDepth--
	if err != nil {
		inf.sysf(errors.SYS001, "use %q: %s", d.Path, err.Error())
		return nil, sub
	}
	if len(results) == 0 {
		return nil, sub
	}
	// Fold the used file's declarations into one chain so they occupy a
	// single Program.Decls slot (the evaluator walks each the same as any
	// other nested Let/LetRec chain).
	var bindings []Binding
	for _, r := range results {
		bindings = append(bindings, r.Bindings...)
	}
	decl := results[len(results)-1].Decl
	for i := len(results) - 2; i >= 0; i-- {
		decl = spliceBody(results[i].Decl, decl)
	}
	return &Result{Decl: decl, Bindings: bindings}, sub
}

// spliceBody replaces outer's innermost Body/Var-sentinel with inner,
// threading a sequence of top-level binding chains into one.
func spliceBody(outer core.CoreExpr, inner core.CoreExpr) core.CoreExpr {
	switch o := outer.(type) {
	case *core.Let:
		o.Body = spliceBody(o.Body, inner)
		return o
	case *core.LetRec:
		o.Body = inner
		return o
	default:
		return inner
	}
}

// checkCoverage performs a shallow exhaustiveness/redundancy check against
// the scrutinee type's constructor space. A guarded catch-all (`_ when g`) does not close the space, since a
// failing guard falls through to the next clause. Nested coverage
// inside tuple/record/list sub-patterns is intentionally out of scope; see
// DESIGN.md.
func (inf *Inferencer) checkCoverage(pos ast.Pos, scrutT types.Type, arms []ast.CaseArm) {
	switch t := scrutT.(type) {
	case *types.TCon:
		dt, ok := inf.env.LookupDatatype(t.Name)
		if !ok {
			inf.checkOpenCoverage(pos, arms)
			return
		}
		seen := map[string]bool{}
		catchAll := false
		for _, arm := range arms {
			if catchAll {
				inf.reports = append(inf.reports, errors.NewMatchCoverage(errors.MC001, inf.spanOf(arm.Pos), "redundant clause"))
				continue
			}
			switch p := arm.Pattern.(type) {
			case *ast.ConstructorPattern:
				if arm.Guard == nil {
					if seen[p.Name] {
						inf.reports = append(inf.reports, errors.NewMatchCoverage(errors.MC001, inf.spanOf(arm.Pos), "redundant clause"))
					}
					seen[p.Name] = true
				}
			case *ast.WildcardPattern, *ast.Ident:
				if arm.Guard == nil {
					catchAll = true
				}
			}
		}
		if catchAll {
			return
		}
		for _, c := range dt.Constructors {
			if !seen[c.Name] {
				inf.reports = append(inf.reports, errors.NewMatchCoverage(errors.MC002, inf.spanOf(pos), fmt.Sprintf("non-exhaustive match: missing %q", c.Name)))
				return
			}
		}
	case *types.TPrim:
		if t.Name == types.TBool {
			inf.checkBoolCoverage(pos, arms)
			return
		}
		if t.Name == types.TUnit {
			return // () is a single inhabitant; any pattern (literal unit, wildcard, or var) covers it
		}
		inf.checkOpenCoverage(pos, arms)
	case *types.TList:
		inf.checkListCoverage(pos, arms)
	default:
		// Tuples, records, function types and unresolved type variables are
		// not enumerated here; redundancy among catch-alls still applies.
		inf.checkOpenCoverage(pos, arms)
	}
}

// checkBoolCoverage treats bool as the two-constructor enumeration
// {false, true}.
func (inf *Inferencer) checkBoolCoverage(pos ast.Pos, arms []ast.CaseArm) {
	seenTrue, seenFalse, catchAll := false, false, false
	for _, arm := range arms {
		if catchAll {
			inf.reports = append(inf.reports, errors.NewMatchCoverage(errors.MC001, inf.spanOf(arm.Pos), "redundant clause"))
			continue
		}
		switch p := arm.Pattern.(type) {
		case *ast.Literal:
			if p.Kind != ast.BoolLit || arm.Guard != nil {
				continue
			}
			b, _ := p.Value.(bool)
			if b {
				if seenTrue {
					inf.reports = append(inf.reports, errors.NewMatchCoverage(errors.MC001, inf.spanOf(arm.Pos), "redundant clause"))
				}
				seenTrue = true
			} else {
				if seenFalse {
					inf.reports = append(inf.reports, errors.NewMatchCoverage(errors.MC001, inf.spanOf(arm.Pos), "redundant clause"))
				}
				seenFalse = true
			}
		case *ast.WildcardPattern, *ast.Ident:
			if arm.Guard == nil {
				catchAll = true
			}
		}
	}
	if catchAll || (seenTrue && seenFalse) {
		return
	}
	missing := "true"
	if seenTrue {
		missing = "false"
	}
	inf.reports = append(inf.reports, errors.NewMatchCoverage(errors.MC002, inf.spanOf(pos), fmt.Sprintf("non-exhaustive match: missing %q", missing)))
}

// checkListCoverage treats `list` as the `[]`/`::` two-constructor
// enumeration: a list is built from `[]` and `::`.
func (inf *Inferencer) checkListCoverage(pos ast.Pos, arms []ast.CaseArm) {
	seenNil, seenCons, catchAll := false, false, false
	for _, arm := range arms {
		if catchAll {
			inf.reports = append(inf.reports, errors.NewMatchCoverage(errors.MC001, inf.spanOf(arm.Pos), "redundant clause"))
			continue
		}
		switch p := arm.Pattern.(type) {
		case *ast.ListPattern:
			if arm.Guard != nil {
				continue
			}
			if len(p.Elements) == 0 {
				seenNil = true
			} else {
				seenCons = true // a fixed-length literal list still only covers part of `::`'s space, but is treated as closing it here (no deeper element-count tracking)
			}
		case *ast.ConsPattern:
			if arm.Guard == nil {
				seenCons = true
			}
		case *ast.WildcardPattern, *ast.Ident:
			if arm.Guard == nil {
				catchAll = true
			}
		}
	}
	if catchAll || (seenNil && seenCons) {
		return
	}
	missing := "[]"
	if seenNil {
		missing = "_:: _"
	}
	inf.reports = append(inf.reports, errors.NewMatchCoverage(errors.MC002, inf.spanOf(pos), fmt.Sprintf("non-exhaustive match: missing %q", missing)))
}

// checkOpenCoverage handles scrutinee types with no finite constructor
// enumeration (int, real, char, string, tuples, records, function types):
// literals are treated as an open space, so only a catch-all
// (wildcard or bound variable, with no guard) can make the match exhaustive.
func (inf *Inferencer) checkOpenCoverage(pos ast.Pos, arms []ast.CaseArm) {
	catchAll := false
	for _, arm := range arms {
		if catchAll {
			inf.reports = append(inf.reports, errors.NewMatchCoverage(errors.MC001, inf.spanOf(arm.Pos), "redundant clause"))
			continue
		}
		switch arm.Pattern.(type) {
		case *ast.WildcardPattern, *ast.Ident:
			if arm.Guard == nil {
				catchAll = true
			}
		}
	}
	if catchAll {
		return
	}
	inf.reports = append(inf.reports, errors.NewMatchCoverage(errors.MC002, inf.spanOf(pos), "non-exhaustive match: literal patterns do not cover the full type"))
}

// localResult is what inferring a `let... in... end` block's declaration
// list produces: the threaded substitution, and a function that splices a
// body expression into the nested Let/LetRec/Match chain the declarations
// lower to.
type localResult struct {
	sub  types.Substitution
	wrap func(body core.CoreExpr) core.CoreExpr
}

func identityWrap(body core.CoreExpr) core.CoreExpr { return body }

// InferDeclsLocal infers every declaration of a `let` block in order,
// extending inf.env as it goes (the caller restores the saved environment
// once the whole `let... in... end` has been processed).
func (inf *Inferencer) InferDeclsLocal(decls []ast.Decl, sub types.Substitution) localResult {
	wrap := identityWrap
	i := 0
	for i < len(decls) {
		if vals, consumed := valGroupAt(decls, i); consumed > 1 {
			w, s := inf.inferValGroupLocal(vals, sub)
			sub = s
			prev := wrap
			wrap = func(body core.CoreExpr) core.CoreExpr { return prev(w(body)) }
			i += consumed
			continue
		}
		if _, ok := recGroupID(decls[i]); ok {
			group, consumed := inf.recGroupAt(decls, i)
			w, s := inf.inferRecGroupLocal(group, sub)
			sub = s
			prev := wrap
			wrap = func(body core.CoreExpr) core.CoreExpr { return prev(w(body)) }
			i += consumed
			continue
		}
		w, s := inf.inferDeclLocal(decls[i], sub)
		sub = s
		prev := wrap
		wrap = func(body core.CoreExpr) core.CoreExpr { return prev(w(body)) }
		i++
	}
	return localResult{sub: sub, wrap: wrap}
}

func (inf *Inferencer) inferValGroupLocal(group []*ast.ValDecl, sub types.Substitution) (func(core.CoreExpr) core.CoreExpr, types.Substitution) {
	clauses, sub := inf.inferValClauses(group, sub)
	inf.bindValClauses(clauses, sub)
	return func(body core.CoreExpr) core.CoreExpr {
		return inf.wrapValClauses(clauses, body)
	}, sub
}

func (inf *Inferencer) inferRecGroupLocal(group []ast.Decl, sub types.Substitution) (func(core.CoreExpr) core.CoreExpr, types.Substitution) {
	r, s := inf.inferRecGroup(group, sub)
	letrec := r.Decl.(*core.LetRec)
	wrap := func(body core.CoreExpr) core.CoreExpr {
		return &core.LetRec{CoreNode: letrec.CoreNode, Bindings: letrec.Bindings, Body: body}
	}
	return wrap, s
}

// inferDeclLocal handles one non-recursive-group declaration inside a `let`
// block. Kinds with no runtime binding (types, signatures, overload group
// declarations) contribute an identity wrap: they only extend inf.env.
func (inf *Inferencer) inferDeclLocal(d ast.Decl, sub types.Substitution) (func(core.CoreExpr) core.CoreExpr, types.Substitution) {
	switch d := d.(type) {
	case *ast.ValDecl:
		valT, valC, s := inf.inferExpr(d.Value, sub)
		sub = s
		pr, s2 := inf.inferPattern(d.Pattern, sub)
		sub = inf.unify(s2, pr.typ, valT, d.Pos)
		for n, t := range pr.binds {
			scheme := inf.genScheme(d.Value, types.ApplySubst(sub, t))
			inf.env = inf.env.Extend(n, &types.ValueBinding{Scheme: scheme})
		}
		return func(body core.CoreExpr) core.CoreExpr {
			return inf.lowerBindingPattern(pr, valC, d.Pos, body)
		}, sub

	case *ast.DatatypeDecl:
		inf.inferDatatypeDecl(d, sub)
		return identityWrap, sub

	case *ast.TypeAliasDecl:
		inf.typeAliases[d.Name] = aliasDef{params: d.TypeParams, def: d.Def}
		return identityWrap, sub

	case *ast.ExceptionDecl:
		inf.inferExceptionDecl(d, sub)
		return identityWrap, sub

	case *ast.OverDecl:
		inf.inferOverDecl(d, sub)
		return identityWrap, sub

	case *ast.InstDecl:
		r, s := inf.inferInstDecl(d, sub)
		sub = s
		if r == nil {
			return identityWrap, sub
		}
		let := r.Decl.(*core.Let)
		return func(body core.CoreExpr) core.CoreExpr {
			return &core.Let{CoreNode: let.CoreNode, Name: let.Name, Value: let.Value, Body: body}
		}, sub

	case *ast.SignatureDecl:
		return identityWrap, sub
	}
	return identityWrap, sub
}
