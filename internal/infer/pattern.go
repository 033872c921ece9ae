package infer

import (
	"github.com/deepsen/smli/internal/ast"
	"github.com/deepsen/smli/internal/core"
	"github.com/deepsen/smli/internal/errors"
	"github.com/deepsen/smli/internal/types"
)

// patResult is what inferring one pattern produces: the pattern's type, its
// lowered core form, and the monomorphic types of every name it binds.
type patResult struct {
	typ   types.Type
	core  core.CorePattern
	binds map[string]types.Type
}

func mergeBinds(dst map[string]types.Type, src map[string]types.Type, span *ast.Span, inf *Inferencer) {
	for k, v := range src {
		if _, dup := dst[k]; dup {
			inf.errf(errors.TY006, span, "variable %q bound more than once in pattern", k)
			continue
		}
		dst[k] = v
	}
}

// inferPattern assigns a type to p and lowers it to a core pattern,
// returning every name it binds. sub is threaded through for unification
// against nested literal/constructor constraints.
func (inf *Inferencer) inferPattern(p ast.Pattern, sub types.Substitution) (patResult, types.Substitution) {
	switch p := p.(type) {
	case *ast.WildcardPattern:
		return patResult{typ: inf.freshVar(), core: &core.WildcardPattern{}, binds: map[string]types.Type{}}, sub

	case *ast.Literal:
		t, v := inf.literalType(p)
		return patResult{typ: t, core: &core.LitPattern{Value: v}, binds: map[string]types.Type{}}, sub

	case *ast.Ident:
		if isConstructorName(p.Name) {
			return inf.inferConstructorNamePattern(p.Name, nil, p.Pos, sub)
		}
		tv := inf.freshVar()
		return patResult{typ: tv, core: &core.VarPattern{Name: p.Name}, binds: map[string]types.Type{p.Name: tv}}, sub

	case *ast.ConstructorPattern:
		var argPat ast.Pattern = p.Arg
		return inf.inferConstructorPattern(p.Name, argPat, p.Pos, sub)

	case *ast.TuplePattern:
		elems := make([]types.Type, len(p.Elements))
		cores := make([]core.CorePattern, len(p.Elements))
		binds := map[string]types.Type{}
		for i, e := range p.Elements {
			r, s := inf.inferPattern(e, sub)
			sub = s
			elems[i] = r.typ
			cores[i] = r.core
			mergeBinds(binds, r.binds, inf.spanOf(p.Pos), inf)
		}
		return patResult{typ: &types.TTuple{Elems: elems}, core: &core.TuplePattern{Elements: cores}, binds: binds}, sub

	case *ast.RecordPattern:
		fields := map[string]types.Type{}
		coreFields := map[string]core.CorePattern{}
		binds := map[string]types.Type{}
		for _, f := range p.Fields {
			r, s := inf.inferPattern(f.Pattern, sub)
			sub = s
			fields[f.Label] = r.typ
			coreFields[f.Label] = r.core
			mergeBinds(binds, r.binds, inf.spanOf(p.Pos), inf)
		}
		var tail *types.TVar
		if p.Rest {
			tail = inf.freshVar()
		}
		return patResult{typ: &types.TRecord{Row: types.RecordRow{Fields: fields, Tail: tail}}, core: &core.RecordPattern{Fields: coreFields}, binds: binds}, sub

	case *ast.LayeredPattern:
		r, s := inf.inferPattern(p.Pattern, sub)
		sub = s
		if _, dup := r.binds[p.Name]; dup {
			inf.errf(errors.TY006, inf.spanOf(p.Pos), "variable %q bound more than once in pattern", p.Name)
		}
		r.binds[p.Name] = r.typ
		// Core has no dedicated layered-pattern node; `p as x` is encoded as a
		// ConstructorPattern named "$as:x" wrapping p's own core pattern. The
		// evaluator's matcher recognizes the prefix: it matches p and binds x
		// to the whole matched value.
		return patResult{typ: r.typ, core: &core.ConstructorPattern{Name: "$as:" + p.Name, Args: []core.CorePattern{r.core}}, binds: r.binds}, sub

	case *ast.ConsPattern:
		elemTV := inf.freshVar()
		listT := &types.TList{Elem: elemTV}
		hr, s := inf.inferPattern(p.Head, sub)
		sub = inf.unify(s, hr.typ, elemTV, p.Pos)
		tr, s2 := inf.inferPattern(p.Tail, sub)
		sub = inf.unify(s2, tr.typ, listT, p.Pos)
		binds := map[string]types.Type{}
		mergeBinds(binds, hr.binds, inf.spanOf(p.Pos), inf)
		mergeBinds(binds, tr.binds, inf.spanOf(p.Pos), inf)
		tailPat := tr.core
		return patResult{typ: listT, core: &core.ListPattern{Elements: []core.CorePattern{hr.core}, Tail: &tailPat}, binds: binds}, sub

	case *ast.ListPattern:
		elemTV := inf.freshVar()
		cores := make([]core.CorePattern, len(p.Elements))
		binds := map[string]types.Type{}
		for i, e := range p.Elements {
			r, s := inf.inferPattern(e, sub)
			sub = inf.unify(s, r.typ, elemTV, p.Pos)
			cores[i] = r.core
			mergeBinds(binds, r.binds, inf.spanOf(p.Pos), inf)
		}
		return patResult{typ: &types.TList{Elem: elemTV}, core: &core.ListPattern{Elements: cores}, binds: binds}, sub
	}
	return patResult{typ: inf.freshVar(), core: &core.WildcardPattern{}, binds: map[string]types.Type{}}, sub
}

// inferConstructorNamePattern handles a bare Ident used as a pattern that
// turns out to name a nilary constructor or exception.
func (inf *Inferencer) inferConstructorNamePattern(name string, arg ast.Pattern, pos ast.Pos, sub types.Substitution) (patResult, types.Substitution) {
	if name == "true" || name == "false" {
		return patResult{typ: types.Bool, core: &core.LitPattern{Value: name == "true"}, binds: map[string]types.Type{}}, sub
	}
	b, ok := inf.env.Lookup(name)
	if !ok {
		inf.errf(errors.TY008, inf.spanOf(pos), "unknown constructor %q", name)
		return patResult{typ: inf.freshVar(), core: &core.WildcardPattern{}, binds: map[string]types.Type{}}, sub
	}
	switch cb := b.(type) {
	case *types.ConstructorBinding:
		if cb.ArgType != nil {
			inf.errf(errors.TY009, inf.spanOf(pos), "constructor %q expects an argument", name)
		}
		resultT := cb.Scheme.Instantiate(inf.freshVar)
		return patResult{typ: resultT, core: &core.ConstructorPattern{Name: name}, binds: map[string]types.Type{}}, sub
	case *types.ExceptionBinding:
		return patResult{typ: &types.TCon{Name: "exn"}, core: &core.ConstructorPattern{Name: name}, binds: map[string]types.Type{}}, sub
	}
	inf.errf(errors.TY008, inf.spanOf(pos), "%q is not a constructor", name)
	return patResult{typ: inf.freshVar(), core: &core.WildcardPattern{}, binds: map[string]types.Type{}}, sub
}

func (inf *Inferencer) inferConstructorPattern(name string, arg ast.Pattern, pos ast.Pos, sub types.Substitution) (patResult, types.Substitution) {
	b, ok := inf.env.Lookup(name)
	if !ok {
		inf.errf(errors.TY008, inf.spanOf(pos), "unknown constructor %q", name)
		binds := map[string]types.Type{}
		var argCore core.CorePattern
		if arg != nil {
			r, s := inf.inferPattern(arg, sub)
			sub = s
			argCore = r.core
			binds = r.binds
		}
		args := []core.CorePattern{}
		if argCore != nil {
			args = append(args, argCore)
		}
		return patResult{typ: inf.freshVar(), core: &core.ConstructorPattern{Name: name, Args: args}, binds: binds}, sub
	}
	switch cb := b.(type) {
	case *types.ConstructorBinding:
		inst := cb.Scheme.Instantiate(inf.freshVar)
		var argType, resultT types.Type
		if fn, ok := inst.(*types.TFunc); ok && cb.ArgType != nil {
			argType, resultT = fn.Param, fn.Result
		} else {
			resultT = inst
		}
		binds := map[string]types.Type{}
		var args []core.CorePattern
		if arg != nil {
			if cb.ArgType == nil {
				inf.errf(errors.TY009, inf.spanOf(pos), "constructor %q takes no argument", name)
			}
			r, s := inf.inferPattern(arg, sub)
			sub = s
			if argType != nil {
				sub = inf.unify(sub, r.typ, argType, pos)
			}
			args = append(args, r.core)
			binds = r.binds
		} else if cb.ArgType != nil {
			inf.errf(errors.TY009, inf.spanOf(pos), "constructor %q expects an argument", name)
		}
		return patResult{typ: resultT, core: &core.ConstructorPattern{Name: name, Args: args}, binds: binds}, sub
	case *types.ExceptionBinding:
		binds := map[string]types.Type{}
		var args []core.CorePattern
		if arg != nil {
			r, s := inf.inferPattern(arg, sub)
			sub = s
			if cb.ArgType != nil {
				sub = inf.unify(sub, r.typ, cb.ArgType, pos)
			}
			args = append(args, r.core)
			binds = r.binds
		}
		return patResult{typ: &types.TCon{Name: "exn"}, core: &core.ConstructorPattern{Name: name, Args: args}, binds: binds}, sub
	}
	inf.errf(errors.TY008, inf.spanOf(pos), "%q is not a constructor", name)
	return patResult{typ: inf.freshVar(), core: &core.WildcardPattern{}, binds: map[string]types.Type{}}, sub
}

func (inf *Inferencer) literalType(l *ast.Literal) (types.Type, interface{}) {
	switch l.Kind {
	case ast.IntLit:
		return types.Int, l.Value
	case ast.RealLit:
		return types.Real, l.Value
	case ast.StringLit:
		return types.String, l.Value
	case ast.CharLit:
		return types.Char, l.Value
	case ast.BoolLit:
		return types.Bool, l.Value
	default:
		return types.Unit, nil
	}
}
