package infer

import (
	"github.com/deepsen/smli/internal/ast"
	"github.com/deepsen/smli/internal/types"
)

// resolveTypeExpr translates a surface type expression to a types.Type,
// binding each distinct type-variable name in tvars to a single fresh
// meta-variable reused on repeat occurrences.
func (inf *Inferencer) resolveTypeExpr(te ast.TypeExpr, tvars map[string]*types.TVar) types.Type {
	if te == nil {
		return inf.freshVar()
	}
	switch te := te.(type) {
	case *ast.TypeVarExpr:
		if v, ok := tvars[te.Name]; ok {
			return v
		}
		v := inf.freshVar()
		tvars[te.Name] = v
		return v

	case *ast.FuncTypeExpr:
		return &types.TFunc{
			Param:  inf.resolveTypeExpr(te.Param, tvars),
			Result: inf.resolveTypeExpr(te.Result, tvars),
		}

	case *ast.TupleTypeExpr:
		elems := make([]types.Type, len(te.Elements))
		for i, e := range te.Elements {
			elems[i] = inf.resolveTypeExpr(e, tvars)
		}
		return &types.TTuple{Elems: elems}

	case *ast.RecordTypeExpr:
		fields := make(map[string]types.Type, len(te.Fields))
		for _, f := range te.Fields {
			fields[f.Label] = inf.resolveTypeExpr(f.Type, tvars)
		}
		return &types.TRecord{Row: types.RecordRow{Fields: fields}}

	case *ast.ConTypeExpr:
		args := make([]types.Type, len(te.Args))
		for i, a := range te.Args {
			args[i] = inf.resolveTypeExpr(a, tvars)
		}
		return inf.resolveCon(te.Name, args)
	}
	return inf.freshVar()
}

func (inf *Inferencer) resolveCon(name string, args []types.Type) types.Type {
	switch name {
	case "int":
		return types.Int
	case "real":
		return types.Real
	case "bool":
		return types.Bool
	case "char":
		return types.Char
	case "string":
		return types.String
	case "unit":
		return types.Unit
	case "list":
		if len(args) == 1 {
			return &types.TList{Elem: args[0]}
		}
	case "bag":
		if len(args) == 1 {
			return &types.TBag{Elem: args[0]}
		}
	case "option":
		if len(args) == 1 {
			return &types.TOption{Elem: args[0]}
		}
	}
	if alias, ok := inf.typeAliases[name]; ok {
		return inf.expandAlias(alias, args)
	}
	return &types.TCon{Name: name, Args: args}
}

func (inf *Inferencer) expandAlias(alias aliasDef, args []types.Type) types.Type {
	tvars := map[string]*types.TVar{}
	for i, p := range alias.params {
		if i < len(args) {
			if v, ok := args[i].(*types.TVar); ok {
				tvars[p] = v
				continue
			}
		}
	}
	t := inf.resolveTypeExpr(alias.def, tvars)
	if len(tvars) == len(alias.params) {
		return t
	}
	sub := types.Substitution{}
	for i, p := range alias.params {
		if i < len(args) {
			if v, ok := tvars[p]; ok {
				sub[v.Id] = args[i]
			}
		}
	}
	return types.ApplySubst(sub, t)
}
