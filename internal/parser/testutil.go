package parser

import (
	"testing"

	"github.com/deepsen/smli/internal/ast"
	"github.com/deepsen/smli/internal/errors"
	"github.com/deepsen/smli/internal/lexer"
)

// mustParse parses input and fails the test on any reported diagnostic.
func mustParse(t *testing.T, input string) *ast.Program {
	t.Helper()

	p := New(lexer.New(input, "test://unit"))
	prog := p.ParseProgram()

	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("unexpected parse errors for %q:\n%v", input, errs)
	}
	return prog
}

// mustParseError parses input and fails the test unless at least one
// diagnostic was reported.
func mustParseError(t *testing.T, input string) []error {
	t.Helper()

	p := New(lexer.New(input, "test://unit"))
	_ = p.ParseProgram()

	errs := p.Errors()
	if len(errs) == 0 {
		t.Fatalf("expected parse errors for %q but got none", input)
	}
	return errs
}

// assertErrorCode fails unless at least one error carries the given
// structured code (e.g. "PAR001").
func assertErrorCode(t *testing.T, errs []error, code string) {
	t.Helper()

	for _, e := range errs {
		if rep, ok := errors.AsReport(e); ok && rep.Code == code {
			return
		}
	}
	t.Errorf("expected error code %s, got:", code)
	for _, e := range errs {
		t.Errorf("  - %v", e)
	}
}

func containsSubstring(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

// singleExprDecl extracts the lone expression statement from a one-decl
// program, the shape produced by parsing a bare expression unit.
func singleExprDecl(t *testing.T, prog *ast.Program) ast.Expr {
	t.Helper()

	if len(prog.Decls) != 1 {
		t.Fatalf("expected exactly 1 decl, got %d", len(prog.Decls))
	}
	ed, ok := prog.Decls[0].(*ast.ExprDecl)
	if !ok {
		t.Fatalf("expected *ast.ExprDecl, got %T", prog.Decls[0])
	}
	return ed.Value
}

// assertPrecedence parses a bare expression and checks its fully
// parenthesized String() form, exercising ast.BinOp/ast.UnaryOp's own
// parenthesizing String() methods rather than a separate printer.
func assertPrecedence(t *testing.T, input, wantForm string) {
	t.Helper()

	prog := mustParse(t, input)
	e := singleExprDecl(t, prog)
	if got := e.String(); got != wantForm {
		t.Errorf("precedence mismatch for %q:\n  want: %s\n  got:  %s", input, wantForm, got)
	}
}
