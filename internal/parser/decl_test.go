package parser

import (
	"testing"

	"github.com/deepsen/smli/internal/ast"
)

func TestValDecl(t *testing.T) {
	prog := mustParse(t, "val x = 1")
	if len(prog.Decls) != 1 {
		t.Fatalf("expected 1 decl, got %d", len(prog.Decls))
	}
	vd, ok := prog.Decls[0].(*ast.ValDecl)
	if !ok {
		t.Fatalf("expected *ast.ValDecl, got %T", prog.Decls[0])
	}
	ident, ok := vd.Pattern.(*ast.Ident)
	if !ok || ident.Name != "x" {
		t.Fatalf("expected pattern Ident(x), got %#v", vd.Pattern)
	}
}

func TestValAndChainSharesNoRecGroup(t *testing.T) {
	prog := mustParse(t, "val x = 1 and y = 2")
	if len(prog.Decls) != 2 {
		t.Fatalf("expected 2 decls from and-chain, got %d", len(prog.Decls))
	}
	if _, ok := prog.Decls[0].(*ast.ValDecl); !ok {
		t.Fatalf("expected *ast.ValDecl, got %T", prog.Decls[0])
	}
	if _, ok := prog.Decls[1].(*ast.ValDecl); !ok {
		t.Fatalf("expected *ast.ValDecl, got %T", prog.Decls[1])
	}
}

func TestValRecAndChainSharesRecGroup(t *testing.T) {
	prog := mustParse(t, "val rec even = fn n => n and odd = fn n => n")
	if len(prog.Decls) != 2 {
		t.Fatalf("expected 2 decls, got %d", len(prog.Decls))
	}
	a, ok := prog.Decls[0].(*ast.ValRecDecl)
	if !ok {
		t.Fatalf("expected *ast.ValRecDecl, got %T", prog.Decls[0])
	}
	b, ok := prog.Decls[1].(*ast.ValRecDecl)
	if !ok {
		t.Fatalf("expected *ast.ValRecDecl, got %T", prog.Decls[1])
	}
	if a.RecGroup != b.RecGroup {
		t.Errorf("expected matching RecGroup, got %d and %d", a.RecGroup, b.RecGroup)
	}
	if a.Name != "even" || b.Name != "odd" {
		t.Errorf("expected names even/odd, got %s/%s", a.Name, b.Name)
	}
}

func TestFunMultiClauseAndMutualRecursion(t *testing.T) {
	prog := mustParse(t, `fun isEven n = true | isEven m = false and isOdd n = false`)
	if len(prog.Decls) != 2 {
		t.Fatalf("expected 2 decls, got %d", len(prog.Decls))
	}
	f1, ok := prog.Decls[0].(*ast.FunDecl)
	if !ok {
		t.Fatalf("expected *ast.FunDecl, got %T", prog.Decls[0])
	}
	if len(f1.Clauses) != 2 {
		t.Fatalf("expected 2 clauses on isEven, got %d", len(f1.Clauses))
	}
	f2, ok := prog.Decls[1].(*ast.FunDecl)
	if !ok {
		t.Fatalf("expected *ast.FunDecl, got %T", prog.Decls[1])
	}
	if f1.RecGroup != f2.RecGroup {
		t.Errorf("expected shared RecGroup for mutual recursion, got %d/%d", f1.RecGroup, f2.RecGroup)
	}
}

func TestFunClauseGuard(t *testing.T) {
	prog := mustParse(t, "fun abs n when n < 0 = 0 | abs n = n")
	f, ok := prog.Decls[0].(*ast.FunDecl)
	if !ok {
		t.Fatalf("expected *ast.FunDecl, got %T", prog.Decls[0])
	}
	if f.Clauses[0].Guard == nil {
		t.Fatalf("expected a guard on first clause")
	}
	if f.Clauses[1].Guard != nil {
		t.Fatalf("expected no guard on second clause")
	}
}

func TestDatatypeDecl(t *testing.T) {
	prog := mustParse(t, "datatype 'a option = NONE | SOME of 'a")
	d, ok := prog.Decls[0].(*ast.DatatypeDecl)
	if !ok {
		t.Fatalf("expected *ast.DatatypeDecl, got %T", prog.Decls[0])
	}
	if len(d.Bindings) != 1 {
		t.Fatalf("expected 1 binding, got %d", len(d.Bindings))
	}
	b := d.Bindings[0]
	if b.Name != "option" || len(b.TypeParams) != 1 || b.TypeParams[0] != "'a" {
		t.Errorf("unexpected binding shape: %#v", b)
	}
	if len(b.Constructors) != 2 {
		t.Fatalf("expected 2 constructors, got %d", len(b.Constructors))
	}
	if b.Constructors[0].Name != "NONE" || b.Constructors[0].Arg != nil {
		t.Errorf("expected nilary NONE, got %#v", b.Constructors[0])
	}
	if b.Constructors[1].Name != "SOME" || b.Constructors[1].Arg == nil {
		t.Errorf("expected SOME with an argument type, got %#v", b.Constructors[1])
	}
}

func TestDatatypeAndChainMutualRecursion(t *testing.T) {
	prog := mustParse(t, "datatype tree = Leaf | Node of forest and forest = Nil | Cons of tree")
	d, ok := prog.Decls[0].(*ast.DatatypeDecl)
	if !ok {
		t.Fatalf("expected *ast.DatatypeDecl, got %T", prog.Decls[0])
	}
	if len(d.Bindings) != 2 {
		t.Fatalf("expected 2 bindings in one datatype decl, got %d", len(d.Bindings))
	}
}

func TestTypeAliasDecl(t *testing.T) {
	prog := mustParse(t, "type name = string")
	a, ok := prog.Decls[0].(*ast.TypeAliasDecl)
	if !ok {
		t.Fatalf("expected *ast.TypeAliasDecl, got %T", prog.Decls[0])
	}
	if a.Name != "name" {
		t.Errorf("expected alias name 'name', got %q", a.Name)
	}
}

func TestOverDecl(t *testing.T) {
	prog := mustParse(t, "over plus : 'a -> 'a -> 'a")
	o, ok := prog.Decls[0].(*ast.OverDecl)
	if !ok {
		t.Fatalf("expected *ast.OverDecl, got %T", prog.Decls[0])
	}
	if o.Name != "plus" {
		t.Errorf("expected 'plus', got %q", o.Name)
	}
}

func TestInstDecl(t *testing.T) {
	prog := mustParse(t, "val inst plus = fn x => fn y => x")
	i, ok := prog.Decls[0].(*ast.InstDecl)
	if !ok {
		t.Fatalf("expected *ast.InstDecl, got %T", prog.Decls[0])
	}
	if i.Name != "plus" {
		t.Errorf("expected 'plus', got %q", i.Name)
	}
}

func TestExceptionDecl(t *testing.T) {
	prog := mustParse(t, "exception NotFound of string")
	e, ok := prog.Decls[0].(*ast.ExceptionDecl)
	if !ok {
		t.Fatalf("expected *ast.ExceptionDecl, got %T", prog.Decls[0])
	}
	if e.Name != "NotFound" || e.Arg == nil {
		t.Errorf("unexpected exception decl shape: %#v", e)
	}
}

func TestSignatureDecl(t *testing.T) {
	prog := mustParse(t, "signature ORD = struct val compare : 'a -> 'a -> int end")
	s, ok := prog.Decls[0].(*ast.SignatureDecl)
	if !ok {
		t.Fatalf("expected *ast.SignatureDecl, got %T", prog.Decls[0])
	}
	if s.Name != "ORD" || len(s.Specs) != 1 || s.Specs[0].Name != "compare" {
		t.Errorf("unexpected signature shape: %#v", s)
	}
}
