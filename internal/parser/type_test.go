package parser

import (
	"testing"

	"github.com/deepsen/smli/internal/ast"
)

func typeExprOf(t *testing.T, input string) ast.TypeExpr {
	t.Helper()
	// `over name : <type>` is the simplest top-level production carrying a
	// bare type expression.
	prog := mustParse(t, "over f : "+input)
	o, ok := prog.Decls[0].(*ast.OverDecl)
	if !ok {
		t.Fatalf("expected *ast.OverDecl, got %T", prog.Decls[0])
	}
	return o.Signature
}

func TestArrowIsRightAssociative(t *testing.T) {
	ty := typeExprOf(t, "int -> int -> int")
	f1, ok := ty.(*ast.FuncTypeExpr)
	if !ok {
		t.Fatalf("expected *ast.FuncTypeExpr, got %T", ty)
	}
	if _, ok := f1.Param.(*ast.ConTypeExpr); !ok {
		t.Fatalf("expected Param to be a plain con type, got %T", f1.Param)
	}
	if _, ok := f1.Result.(*ast.FuncTypeExpr); !ok {
		t.Fatalf("expected right-nested FuncTypeExpr, got %T", f1.Result)
	}
}

func TestTupleTypeIsFlatStarChain(t *testing.T) {
	ty := typeExprOf(t, "int * string * bool")
	tt, ok := ty.(*ast.TupleTypeExpr)
	if !ok {
		t.Fatalf("expected *ast.TupleTypeExpr, got %T", ty)
	}
	if len(tt.Elements) != 3 {
		t.Fatalf("expected 3 flat elements, got %d", len(tt.Elements))
	}
}

func TestPostfixConstructorApplication(t *testing.T) {
	ty := typeExprOf(t, "int list")
	ct, ok := ty.(*ast.ConTypeExpr)
	if !ok || ct.Name != "list" {
		t.Fatalf("expected ConTypeExpr(list), got %#v", ty)
	}
	if len(ct.Args) != 1 {
		t.Fatalf("expected 1 arg, got %d", len(ct.Args))
	}
}

func TestMultiArgConstructorApplication(t *testing.T) {
	ty := typeExprOf(t, "(int, string) pair")
	ct, ok := ty.(*ast.ConTypeExpr)
	if !ok || ct.Name != "pair" {
		t.Fatalf("expected ConTypeExpr(pair), got %#v", ty)
	}
	if len(ct.Args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(ct.Args))
	}
}

func TestTypeVar(t *testing.T) {
	ty := typeExprOf(t, "'a")
	tv, ok := ty.(*ast.TypeVarExpr)
	if !ok || tv.Name != "'a" {
		t.Fatalf("expected TypeVarExpr('a), got %#v", ty)
	}
}

func TestRecordTypeExpr(t *testing.T) {
	ty := typeExprOf(t, "{a : int, b : string}")
	rt, ok := ty.(*ast.RecordTypeExpr)
	if !ok {
		t.Fatalf("expected *ast.RecordTypeExpr, got %T", ty)
	}
	if len(rt.Fields) != 2 || rt.Fields[0].Label != "a" || rt.Fields[1].Label != "b" {
		t.Fatalf("unexpected record type fields: %#v", rt.Fields)
	}
}

func TestArrowLooserThanApplication(t *testing.T) {
	ty := typeExprOf(t, "int list -> string")
	ft, ok := ty.(*ast.FuncTypeExpr)
	if !ok {
		t.Fatalf("expected *ast.FuncTypeExpr, got %T", ty)
	}
	ct, ok := ft.Param.(*ast.ConTypeExpr)
	if !ok || ct.Name != "list" {
		t.Fatalf("expected Param to be ConTypeExpr(list), got %#v", ft.Param)
	}
}
