package parser

import (
	"math/big"
	"testing"

	"github.com/deepsen/smli/internal/ast"
)

func TestIntLiteralArbitraryPrecision(t *testing.T) {
	prog := mustParse(t, "123456789012345678901234567890")
	e := singleExprDecl(t, prog)
	lit, ok := e.(*ast.Literal)
	if !ok || lit.Kind != ast.IntLit {
		t.Fatalf("expected int literal, got %#v", e)
	}
	n, ok := lit.Value.(*big.Int)
	if !ok {
		t.Fatalf("expected *big.Int value, got %T", lit.Value)
	}
	want, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	if n.Cmp(want) != 0 {
		t.Errorf("expected %s, got %s", want, n)
	}
}

func TestNegativeIntLiteral(t *testing.T) {
	prog := mustParse(t, "~42")
	e := singleExprDecl(t, prog)
	lit, ok := e.(*ast.Literal)
	if !ok || lit.Kind != ast.IntLit {
		t.Fatalf("expected int literal, got %#v", e)
	}
	n := lit.Value.(*big.Int)
	if n.Sign() >= 0 || n.Int64() != -42 {
		t.Errorf("expected -42, got %s", n)
	}
}

func TestNegativeFloatLiteral(t *testing.T) {
	prog := mustParse(t, "~1.5")
	e := singleExprDecl(t, prog)
	lit, ok := e.(*ast.Literal)
	if !ok || lit.Kind != ast.RealLit {
		t.Fatalf("expected real literal, got %#v", e)
	}
	if lit.Value.(float64) != -1.5 {
		t.Errorf("expected -1.5, got %v", lit.Value)
	}
}

func TestRecordSugarShorthandDottedAndHash(t *testing.T) {
	prog := mustParse(t, "{a, e.b, #c e, d = e}")
	rec, ok := singleExprDecl(t, prog).(*ast.Record)
	if !ok {
		t.Fatalf("expected *ast.Record, got %T", singleExprDecl(t, prog))
	}
	if len(rec.Fields) != 4 {
		t.Fatalf("expected 4 fields, got %d", len(rec.Fields))
	}
	if rec.Fields[0].Label != "a" {
		t.Errorf("expected label 'a', got %q", rec.Fields[0].Label)
	}
	if _, ok := rec.Fields[0].Value.(*ast.Ident); !ok {
		t.Errorf("expected shorthand value to be Ident, got %T", rec.Fields[0].Value)
	}
	if rec.Fields[1].Label != "b" {
		t.Errorf("expected label 'b' from dotted sugar, got %q", rec.Fields[1].Label)
	}
	if rec.Fields[2].Label != "c" {
		t.Errorf("expected label 'c' from hash sugar, got %q", rec.Fields[2].Label)
	}
	if rec.Fields[3].Label != "d" {
		t.Errorf("expected label 'd' from explicit form, got %q", rec.Fields[3].Label)
	}
}

func TestListExpr(t *testing.T) {
	prog := mustParse(t, "[1, 2, 3]")
	le, ok := singleExprDecl(t, prog).(*ast.ListExpr)
	if !ok || len(le.Elements) != 3 {
		t.Fatalf("expected 3-element ListExpr, got %#v", singleExprDecl(t, prog))
	}
}

func TestIfExpr(t *testing.T) {
	prog := mustParse(t, "if true then 1 else 2")
	ie, ok := singleExprDecl(t, prog).(*ast.If)
	if !ok {
		t.Fatalf("expected *ast.If, got %T", singleExprDecl(t, prog))
	}
	if ie.Cond == nil || ie.Then == nil || ie.Else == nil {
		t.Fatalf("expected all three branches populated: %#v", ie)
	}
}

func TestLetExpr(t *testing.T) {
	prog := mustParse(t, "let val x = 1 in x end")
	le, ok := singleExprDecl(t, prog).(*ast.Let)
	if !ok {
		t.Fatalf("expected *ast.Let, got %T", singleExprDecl(t, prog))
	}
	if len(le.Decls) != 1 {
		t.Fatalf("expected 1 decl in let, got %d", len(le.Decls))
	}
}

func TestFnSingleClause(t *testing.T) {
	prog := mustParse(t, "fn x => x")
	fe, ok := singleExprDecl(t, prog).(*ast.FnExpr)
	if !ok {
		t.Fatalf("expected *ast.FnExpr, got %T", singleExprDecl(t, prog))
	}
	if _, ok := fe.Param.(*ast.Ident); !ok {
		t.Errorf("expected Param to be Ident, got %T", fe.Param)
	}
}

func TestFnMultiClauseDesugarsToCase(t *testing.T) {
	prog := mustParse(t, "fn NONE => 0 | SOME x => x")
	fe, ok := singleExprDecl(t, prog).(*ast.FnExpr)
	if !ok {
		t.Fatalf("expected desugared *ast.FnExpr, got %T", singleExprDecl(t, prog))
	}
	body, ok := fe.Body.(*ast.Case)
	if !ok {
		t.Fatalf("expected desugared body to be *ast.Case, got %T", fe.Body)
	}
	if len(body.Arms) != 2 {
		t.Fatalf("expected 2 case arms, got %d", len(body.Arms))
	}
	scrutineeIdent, ok := body.Scrutinee.(*ast.Ident)
	if !ok {
		t.Fatalf("expected scrutinee to reference the synthesized param, got %T", body.Scrutinee)
	}
	paramIdent, ok := fe.Param.(*ast.Ident)
	if !ok || paramIdent.Name != scrutineeIdent.Name {
		t.Errorf("expected scrutinee to reference fn's own synthesized param, got param=%#v scrutinee=%#v", fe.Param, body.Scrutinee)
	}
}

func TestApplicationLeftAssociative(t *testing.T) {
	prog := mustParse(t, "f x y")
	app, ok := singleExprDecl(t, prog).(*ast.Apply)
	if !ok {
		t.Fatalf("expected *ast.Apply, got %T", singleExprDecl(t, prog))
	}
	inner, ok := app.Fn.(*ast.Apply)
	if !ok {
		t.Fatalf("expected left-nested Apply, got %T", app.Fn)
	}
	f, ok := inner.Fn.(*ast.Ident)
	if !ok || f.Name != "f" {
		t.Errorf("expected innermost fn to be Ident(f), got %#v", inner.Fn)
	}
}

func TestFieldProjectionTighterThanApplication(t *testing.T) {
	prog := mustParse(t, "f e.b")
	app, ok := singleExprDecl(t, prog).(*ast.Apply)
	if !ok {
		t.Fatalf("expected *ast.Apply, got %T", singleExprDecl(t, prog))
	}
	if _, ok := app.Arg.(*ast.RecordSelect); !ok {
		t.Errorf("expected argument to be a field projection, got %T", app.Arg)
	}
}

func TestHandleExpr(t *testing.T) {
	prog := mustParse(t, "(raise Oops) handle Oops => 0")
	h, ok := singleExprDecl(t, prog).(*ast.Handle)
	if !ok {
		t.Fatalf("expected *ast.Handle, got %T", singleExprDecl(t, prog))
	}
	if len(h.Arms) != 1 {
		t.Fatalf("expected 1 handle arm, got %d", len(h.Arms))
	}
}

func TestAnnotatedExpr(t *testing.T) {
	prog := mustParse(t, "(1 : int)")
	a, ok := singleExprDecl(t, prog).(*ast.Annotated)
	if !ok {
		t.Fatalf("expected *ast.Annotated, got %T", singleExprDecl(t, prog))
	}
	if a.Expr == nil || a.Type == nil {
		t.Fatalf("expected both expr and type populated: %#v", a)
	}
}
