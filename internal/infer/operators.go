package infer

import (
	"github.com/deepsen/smli/internal/ast"
	"github.com/deepsen/smli/internal/core"
	"github.com/deepsen/smli/internal/types"
)

// inferBinOp types one infix operator application and lowers it, either to a
// short-circuiting core.If or to a plain core.BinOp the evaluator dispatches on Op.
func (inf *Inferencer) inferBinOp(e *ast.BinOp, sub types.Substitution) (types.Type, core.CoreExpr, types.Substitution) {
	switch e.Op {
	case "andalso", "orelse", "implies":
		return inf.inferShortCircuit(e, sub)
	}

	leftT, leftC, s := inf.inferExpr(e.Left, sub)
	sub = s
	rightT, rightC, s2 := inf.inferExpr(e.Right, sub)
	sub = s2

	switch e.Op {
	case "=", "<>":
		sub = inf.unify(sub, leftT, rightT, e.Pos)
		return types.Bool, &core.BinOp{CoreNode: inf.node(e.Pos), Op: e.Op, Left: leftC, Right: rightC}, sub

	case "<", "<=", ">", ">=":
		sub = inf.unify(sub, leftT, rightT, e.Pos)
		return types.Bool, &core.BinOp{CoreNode: inf.node(e.Pos), Op: e.Op, Left: leftC, Right: rightC}, sub

	case "+", "-", "*":
		sub = inf.unify(sub, leftT, rightT, e.Pos)
		return leftT, &core.BinOp{CoreNode: inf.node(e.Pos), Op: e.Op, Left: leftC, Right: rightC}, sub

	case "/":
		sub = inf.unify(sub, leftT, types.Real, e.Pos)
		sub = inf.unify(sub, rightT, types.Real, e.Pos)
		return types.Real, &core.BinOp{CoreNode: inf.node(e.Pos), Op: e.Op, Left: leftC, Right: rightC}, sub

	case "div", "mod":
		sub = inf.unify(sub, leftT, types.Int, e.Pos)
		sub = inf.unify(sub, rightT, types.Int, e.Pos)
		return types.Int, &core.BinOp{CoreNode: inf.node(e.Pos), Op: e.Op, Left: leftC, Right: rightC}, sub

	case "^":
		sub = inf.unify(sub, leftT, types.String, e.Pos)
		sub = inf.unify(sub, rightT, types.String, e.Pos)
		return types.String, &core.BinOp{CoreNode: inf.node(e.Pos), Op: e.Op, Left: leftC, Right: rightC}, sub

	case "::":
		listT := &types.TList{Elem: leftT}
		sub = inf.unify(sub, rightT, listT, e.Pos)
		return listT, &core.BinOp{CoreNode: inf.node(e.Pos), Op: e.Op, Left: leftC, Right: rightC}, sub

	case "@":
		sub = inf.unify(sub, leftT, rightT, e.Pos)
		return leftT, &core.BinOp{CoreNode: inf.node(e.Pos), Op: e.Op, Left: leftC, Right: rightC}, sub

	case "elem", "notelem":
		sub = inf.unify(sub, rightT, &types.TList{Elem: leftT}, e.Pos)
		return types.Bool, &core.BinOp{CoreNode: inf.node(e.Pos), Op: e.Op, Left: leftC, Right: rightC}, sub

	case "o":
		a, b, c := inf.freshVar(), inf.freshVar(), inf.freshVar()
		sub = inf.unify(sub, leftT, &types.TFunc{Param: b, Result: c}, e.Pos)
		sub = inf.unify(sub, rightT, &types.TFunc{Param: a, Result: b}, e.Pos)
		return &types.TFunc{Param: a, Result: c}, &core.BinOp{CoreNode: inf.node(e.Pos), Op: e.Op, Left: leftC, Right: rightC}, sub
	}

	return inf.freshVar(), &core.BinOp{CoreNode: inf.node(e.Pos), Op: e.Op, Left: leftC, Right: rightC}, sub
}

// inferShortCircuit desugars `andalso`/`orelse`/`implies` to core.If so the
// evaluator never evaluates the right operand unless needed.
func (inf *Inferencer) inferShortCircuit(e *ast.BinOp, sub types.Substitution) (types.Type, core.CoreExpr, types.Substitution) {
	leftT, leftC, s := inf.inferExpr(e.Left, sub)
	sub = inf.unify(s, leftT, types.Bool, e.Pos)
	rightT, rightC, s2 := inf.inferExpr(e.Right, sub)
	sub = inf.unify(s2, rightT, types.Bool, e.Pos)

	trueLit := &core.Lit{CoreNode: inf.node(e.Pos), Kind: core.BoolLit, Value: true}
	falseLit := &core.Lit{CoreNode: inf.node(e.Pos), Kind: core.BoolLit, Value: false}

	var ifC core.CoreExpr
	switch e.Op {
	case "andalso":
		ifC = &core.If{CoreNode: inf.node(e.Pos), Cond: leftC, Then: rightC, Else: falseLit}
	case "orelse":
		ifC = &core.If{CoreNode: inf.node(e.Pos), Cond: leftC, Then: trueLit, Else: rightC}
	case "implies":
		ifC = &core.If{CoreNode: inf.node(e.Pos), Cond: leftC, Then: rightC, Else: trueLit}
	}
	return types.Bool, ifC, sub
}

// inferUnaryOp types `~e` (negation) and `not e`.
func (inf *Inferencer) inferUnaryOp(e *ast.UnaryOp, sub types.Substitution) (types.Type, core.CoreExpr, types.Substitution) {
	operandT, operandC, s := inf.inferExpr(e.Expr, sub)
	sub = s
	switch e.Op {
	case "not":
		sub = inf.unify(sub, operandT, types.Bool, e.Pos)
		return types.Bool, &core.UnOp{CoreNode: inf.node(e.Pos), Op: e.Op, Operand: operandC}, sub
	default: // "~"
		return operandT, &core.UnOp{CoreNode: inf.node(e.Pos), Op: e.Op, Operand: operandC}, sub
	}
}
