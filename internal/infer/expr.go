package infer

import (
	"github.com/deepsen/smli/internal/ast"
	"github.com/deepsen/smli/internal/core"
	"github.com/deepsen/smli/internal/errors"
	"github.com/deepsen/smli/internal/types"
)

// inferExpr assigns e a monomorphic type and lowers it to core, threading
// the running substitution.
func (inf *Inferencer) inferExpr(e ast.Expr, sub types.Substitution) (types.Type, core.CoreExpr, types.Substitution) {
	switch e := e.(type) {
	case *ast.Literal:
		t, v := inf.literalType(e)
		kind := litKindOf(e.Kind)
		return t, &core.Lit{CoreNode: inf.node(e.Pos), Kind: kind, Value: v}, sub

	case *ast.Ident:
		return inf.inferIdent(e, sub)

	case *ast.Tuple:
		elems := make([]types.Type, len(e.Elements))
		cores := make([]core.CoreExpr, len(e.Elements))
		for i, el := range e.Elements {
			t, c, s := inf.inferExpr(el, sub)
			sub = s
			elems[i] = t
			cores[i] = c
		}
		return &types.TTuple{Elems: elems}, &core.Tuple{CoreNode: inf.node(e.Pos), Elements: cores}, sub

	case *ast.Record:
		fields := map[string]types.Type{}
		coreFields := map[string]core.CoreExpr{}
		for _, f := range e.Fields {
			t, c, s := inf.inferExpr(f.Value, sub)
			sub = s
			if _, dup := fields[f.Label]; dup {
				inf.errf(errors.TY006, inf.spanOf(e.Pos), "duplicate field %q in record", f.Label)
			}
			fields[f.Label] = t
			coreFields[f.Label] = c
		}
		return &types.TRecord{Row: types.RecordRow{Fields: fields}}, &core.Record{CoreNode: inf.node(e.Pos), Fields: coreFields}, sub

	case *ast.RecordSelect:
		recT, recC, s := inf.inferExpr(e.Record, sub)
		sub = s
		fieldTV := inf.freshVar()
		openRow := &types.TRecord{Row: types.RecordRow{Fields: map[string]types.Type{e.Label: fieldTV}, Tail: inf.freshVar()}}
		sub = inf.unify(sub, recT, openRow, e.Pos)
		return fieldTV, &core.RecordAccess{CoreNode: inf.node(e.Pos), Record: recC, Field: e.Label}, sub

	case *ast.ListExpr:
		elemTV := inf.freshVar()
		cores := make([]core.CoreExpr, len(e.Elements))
		for i, el := range e.Elements {
			t, c, s := inf.inferExpr(el, sub)
			sub = inf.unify(s, t, elemTV, e.Pos)
			cores[i] = c
		}
		return &types.TList{Elem: elemTV}, &core.List{CoreNode: inf.node(e.Pos), Elements: cores}, sub

	case *ast.If:
		condT, condC, s := inf.inferExpr(e.Cond, sub)
		sub = inf.unify(s, condT, types.Bool, e.Pos)
		thenT, thenC, s := inf.inferExpr(e.Then, sub)
		sub = s
		elseT, elseC, s := inf.inferExpr(e.Else, sub)
		sub = inf.unify(s, thenT, elseT, e.Pos)
		return thenT, &core.If{CoreNode: inf.node(e.Pos), Cond: condC, Then: thenC, Else: elseC}, sub

	case *ast.Case:
		return inf.inferCase(e, sub)

	case *ast.Let:
		return inf.inferLet(e, sub)

	case *ast.FnExpr:
		return inf.inferFn(e, sub)

	case *ast.Apply:
		return inf.inferApply(e, sub)

	case *ast.BinOp:
		return inf.inferBinOp(e, sub)

	case *ast.UnaryOp:
		return inf.inferUnaryOp(e, sub)

	case *ast.Annotated:
		t, c, s := inf.inferExpr(e.Expr, sub)
		annT := inf.resolveTypeExpr(e.Type, map[string]*types.TVar{})
		sub = inf.unify(s, t, annT, e.Pos)
		return t, c, sub

	case *ast.Raise:
		exnT, exnC, s := inf.lowerExnExpr(e.Exn, sub)
		_ = exnT
		return inf.freshVar(), &core.Raise{CoreNode: inf.node(e.Pos), Exn: exnC}, s

	case *ast.Handle:
		return inf.inferHandle(e, sub)

	case *ast.PipelineExpr:
		return inf.inferPipeline(e, sub)
	}
	return inf.freshVar(), &core.Lit{Kind: core.UnitLit}, sub
}

func litKindOf(k ast.LiteralKind) core.LitKind {
	switch k {
	case ast.IntLit:
		return core.IntLit
	case ast.RealLit:
		return core.FloatLit
	case ast.StringLit:
		return core.StringLit
	case ast.CharLit:
		return core.CharLit
	case ast.BoolLit:
		return core.BoolLit
	default:
		return core.UnitLit
	}
}

func (inf *Inferencer) inferIdent(e *ast.Ident, sub types.Substitution) (types.Type, core.CoreExpr, types.Substitution) {
	if e.Name == "true" || e.Name == "false" {
		return types.Bool, &core.Lit{CoreNode: inf.node(e.Pos), Kind: core.BoolLit, Value: e.Name == "true"}, sub
	}
	b, ok := inf.env.Lookup(e.Name)
	if !ok {
		inf.errf(errors.TY007, inf.spanOf(e.Pos), "unknown identifier %q", e.Name)
		return inf.freshVar(), &core.Var{CoreNode: inf.node(e.Pos), Name: e.Name}, sub
	}
	switch b := b.(type) {
	case *types.ValueBinding:
		t := b.Scheme.Instantiate(inf.freshVar)
		if builtinNames[e.Name] {
			return t, &core.VarGlobal{CoreNode: inf.node(e.Pos), Ref: core.GlobalRef{Module: "$builtin", Name: e.Name}}, sub
		}
		return t, &core.Var{CoreNode: inf.node(e.Pos), Name: e.Name}, sub

	case *types.ConstructorBinding:
		inst := b.Scheme.Instantiate(inf.freshVar)
		if b.ArgType == nil {
			return inst, &core.ConstructorApp{CoreNode: inf.node(e.Pos), Name: e.Name}, sub
		}
		fn, _ := inst.(*types.TFunc)
		// Eta-expand a bare unary constructor into a function value so it
		// can be passed where a function is expected (`map Some xs`).
		lam := &core.Lambda{
			CoreNode: inf.node(e.Pos),
			Params:   []string{"$ctorArg"},
			Body: &core.ConstructorApp{
				CoreNode: inf.node(e.Pos),
				Name:     e.Name,
				Arg:      &core.Var{Name: "$ctorArg"},
			},
		}
		if fn == nil {
			return inst, lam, sub
		}
		return fn, lam, sub

	case *types.ExceptionBinding:
		return &types.TCon{Name: "exn"}, &core.ConstructorApp{CoreNode: inf.node(e.Pos), Name: e.Name}, sub

	case *types.OverloadBinding:
		// A bare overloaded name with no argument yet; defer resolution to
		// the enclosing Apply, which knows the argument type.
		inf.errf(errors.TY003, inf.spanOf(e.Pos), "overloaded name %q used without an argument to resolve it", e.Name)
		return inf.freshVar(), &core.Var{Name: e.Name}, sub
	}
	inf.errf(errors.TY007, inf.spanOf(e.Pos), "unknown identifier %q", e.Name)
	return inf.freshVar(), &core.Var{CoreNode: inf.node(e.Pos), Name: e.Name}, sub
}

// lowerExnExpr lowers the operand of `raise`/the scrutinee implicit in a
// handle pattern's constructor application, recognizing `E` and `E arg`
// shapes specially so a bare exception name is not mistaken for an unbound
// variable.
func (inf *Inferencer) lowerExnExpr(e ast.Expr, sub types.Substitution) (types.Type, core.CoreExpr, types.Substitution) {
	switch e := e.(type) {
	case *ast.Ident:
		if b, ok := inf.env.Lookup(e.Name); ok {
			if _, isExn := b.(*types.ExceptionBinding); isExn {
				return &types.TCon{Name: "exn"}, &core.ConstructorApp{CoreNode: inf.node(e.Pos), Name: e.Name}, sub
			}
		}
	case *ast.Apply:
		if id, ok := e.Fn.(*ast.Ident); ok {
			if b, ok := inf.env.Lookup(id.Name); ok {
				if eb, isExn := b.(*types.ExceptionBinding); isExn {
					argT, argC, s := inf.inferExpr(e.Arg, sub)
					sub = s
					if eb.ArgType != nil {
						sub = inf.unify(sub, argT, eb.ArgType, e.Pos)
					}
					return &types.TCon{Name: "exn"}, &core.ConstructorApp{CoreNode: inf.node(e.Pos), Name: id.Name, Arg: argC}, sub
				}
			}
		}
	}
	return inf.inferExpr(e, sub)
}

func (inf *Inferencer) inferCase(e *ast.Case, sub types.Substitution) (types.Type, core.CoreExpr, types.Substitution) {
	scrutT, scrutC, s := inf.inferExpr(e.Scrutinee, sub)
	sub = s
	resultTV := inf.freshVar()
	arms := make([]core.MatchArm, len(e.Arms))
	var patTypes []types.Type
	savedEnv := inf.env
	for i, arm := range e.Arms {
		inf.env = savedEnv
		pr, s2 := inf.inferPattern(arm.Pattern, sub)
		sub = inf.unify(s2, pr.typ, scrutT, arm.Pos)
		patTypes = append(patTypes, pr.typ)
		for name, t := range pr.binds {
			inf.env = inf.env.Extend(name, &types.ValueBinding{Scheme: types.Mono(t)})
		}
		var guardC core.CoreExpr
		if arm.Guard != nil {
			gt, gc, s3 := inf.inferExpr(arm.Guard, sub)
			sub = inf.unify(s3, gt, types.Bool, arm.Pos)
			guardC = gc
		}
		bodyT, bodyC, s4 := inf.inferExpr(arm.Body, sub)
		sub = inf.unify(s4, bodyT, resultTV, arm.Pos)
		arms[i] = core.MatchArm{Pattern: pr.core, Guard: guardC, Body: bodyC}
	}
	inf.env = savedEnv
	inf.checkCoverage(e.Pos, scrutT, e.Arms)
	return resultTV, &core.Match{CoreNode: inf.node(e.Pos), Scrutinee: scrutC, Arms: arms, Exhaustive: true}, sub
}

func (inf *Inferencer) inferHandle(e *ast.Handle, sub types.Substitution) (types.Type, core.CoreExpr, types.Substitution) {
	bodyT, bodyC, s := inf.inferExpr(e.Body, sub)
	sub = s
	arms := make([]core.HandleArm, len(e.Arms))
	savedEnv := inf.env
	for i, arm := range e.Arms {
		inf.env = savedEnv
		pr, s2 := inf.inferPattern(arm.Pattern, sub)
		sub = s2
		for name, t := range pr.binds {
			inf.env = inf.env.Extend(name, &types.ValueBinding{Scheme: types.Mono(t)})
		}
		armT, armC, s3 := inf.inferExpr(arm.Body, sub)
		sub = inf.unify(s3, armT, bodyT, arm.Pos)
		arms[i] = core.HandleArm{Pattern: pr.core, Body: armC}
	}
	inf.env = savedEnv
	return bodyT, &core.Handle{CoreNode: inf.node(e.Pos), Body: bodyC, Arms: arms}, sub
}

func (inf *Inferencer) inferLet(e *ast.Let, sub types.Substitution) (types.Type, core.CoreExpr, types.Substitution) {
	savedEnv := inf.env
	results := inf.InferDeclsLocal(e.Decls, sub)
	sub = results.sub
	bodyT, bodyC, s := inf.inferExpr(e.Body, sub)
	sub = s
	expr := results.wrap(bodyC)
	inf.env = savedEnv
	return bodyT, expr, sub
}

func (inf *Inferencer) inferFn(e *ast.FnExpr, sub types.Substitution) (types.Type, core.CoreExpr, types.Substitution) {
	savedEnv := inf.env
	pr, s := inf.inferPattern(e.Param, sub)
	sub = s
	for name, t := range pr.binds {
		inf.env = inf.env.Extend(name, &types.ValueBinding{Scheme: types.Mono(t)})
	}
	bodyT, bodyC, s2 := inf.inferExpr(e.Body, sub)
	sub = s2
	inf.env = savedEnv
	fnT := &types.TFunc{Param: pr.typ, Result: bodyT}
	if vp, ok := pr.core.(*core.VarPattern); ok {
		return fnT, &core.Lambda{CoreNode: inf.node(e.Pos), Params: []string{vp.Name}, Body: bodyC}, sub
	}
	// Non-variable parameter pattern: bind a synthetic name and match it.
	synth := "$fnArg"
	match := &core.Match{
		CoreNode:   inf.node(e.Pos),
		Scrutinee:  &core.Var{Name: synth},
		Arms:       []core.MatchArm{{Pattern: pr.core, Body: bodyC}},
		Exhaustive: true,
	}
	return fnT, &core.Lambda{CoreNode: inf.node(e.Pos), Params: []string{synth}, Body: match}, sub
}

func (inf *Inferencer) inferApply(e *ast.Apply, sub types.Substitution) (types.Type, core.CoreExpr, types.Substitution) {
	if id, ok := e.Fn.(*ast.Ident); ok {
		if b, ok := inf.env.Lookup(id.Name); ok {
			switch b := b.(type) {
			case *types.ConstructorBinding:
				return inf.applyConstructor(id.Name, b, e, sub)
			case *types.OverloadBinding:
				return inf.applyOverload(id.Name, b.Group, e, sub)
			}
		}
	}
	fnT, fnC, s := inf.inferExpr(e.Fn, sub)
	sub = s
	argT, argC, s2 := inf.inferExpr(e.Arg, sub)
	sub = s2
	resultTV := inf.freshVar()
	sub = inf.unify(sub, fnT, &types.TFunc{Param: argT, Result: resultTV}, e.Pos)
	return resultTV, &core.App{CoreNode: inf.node(e.Pos), Func: fnC, Args: []core.CoreExpr{argC}}, sub
}

func (inf *Inferencer) applyConstructor(name string, b *types.ConstructorBinding, e *ast.Apply, sub types.Substitution) (types.Type, core.CoreExpr, types.Substitution) {
	inst := b.Scheme.Instantiate(inf.freshVar)
	argT, argC, s := inf.inferExpr(e.Arg, sub)
	sub = s
	if fn, ok := inst.(*types.TFunc); ok {
		sub = inf.unify(sub, argT, fn.Param, e.Pos)
		return fn.Result, &core.ConstructorApp{CoreNode: inf.node(e.Pos), Name: name, Arg: argC}, sub
	}
	inf.errf(errors.TY009, inf.spanOf(e.Pos), "constructor %q takes no argument", name)
	return inst, &core.ConstructorApp{CoreNode: inf.node(e.Pos), Name: name, Arg: argC}, sub
}

// applyOverload resolves a bounded ad-hoc overload at its call site: the argument's type picks exactly one registered
// instance, or the call is ambiguous/unmatched.
func (inf *Inferencer) applyOverload(name string, group *types.OverloadGroup, e *ast.Apply, sub types.Substitution) (types.Type, core.CoreExpr, types.Substitution) {
	argT, argC, s := inf.inferExpr(e.Arg, sub)
	sub = s
	resolved := types.ApplySubst(sub, argT)
	scheme, instSub, err := group.ResolveCall(inf.freshVar, resolved)
	if err != nil {
		if oe, ok := err.(*types.OverloadResolutionError); ok {
			code := errors.TY004
			if oe.Reason == "ambiguous" {
				code = errors.TY003
			}
			inf.errf(code, inf.spanOf(e.Pos), "overload %q: %s for argument type %s", name, oe.Reason, oe.ArgType)
		}
		return inf.freshVar(), &core.App{CoreNode: inf.node(e.Pos), Func: &core.Var{Name: name}, Args: []core.CoreExpr{argC}}, sub
	}
	for k, v := range instSub {
		sub[k] = v
	}
	instT := scheme.Instantiate(inf.freshVar)
	callC := &core.App{CoreNode: inf.node(e.Pos), Func: &core.Var{Name: overloadInstanceName(name, resolved)}, Args: []core.CoreExpr{argC}}
	if fn, ok := instT.(*types.TFunc); ok {
		sub = inf.unify(sub, fn.Param, argT, e.Pos)
		return fn.Result, callC, sub
	}
	return inf.freshVar(), callC, sub
}

// overloadInstanceName mangles the globally-unique binding name an
// `val inst` declaration registers for one overload instance, keyed by the
// instance's argument-type spelling.
func overloadInstanceName(group string, argType types.Type) string {
	return group + "$" + argType.String()
}
