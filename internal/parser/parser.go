// Package parser produces a surface ast.Program from a token stream
// and declarations. The grammar follows the language's operator
// precedence table exactly; the relational `from`/`exists`/`forall`
// sublanguage shares one step grammar (parser_pipeline.go).
package parser

import (
	"fmt"

	"github.com/deepsen/smli/internal/ast"
	"github.com/deepsen/smli/internal/errors"
	"github.com/deepsen/smli/internal/lexer"
)

// Parser turns a token stream into a surface AST, collecting structured
// diagnostics rather than panicking.
type Parser struct {
	l    *lexer.Lexer
	cur  lexer.Token
	peek lexer.Token

	reports []*errors.Report
}

// New creates a Parser reading from l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.next()
	p.next()
	return p
}

// Reports returns every parse diagnostic collected so far.
func (p *Parser) Reports() []*errors.Report { return p.reports }

// Errors renders reports as plain errors, for callers that want the
// classic []error shape (tests, golden-file comparisons).
func (p *Parser) Errors() []error {
	out := make([]error, len(p.reports))
	for i, r := range p.reports {
		out[i] = errors.WrapReport(r)
	}
	return out
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) curIs(t lexer.TokenType) bool  { return p.cur.Type == t }
func (p *Parser) peekIs(t lexer.TokenType) bool { return p.peek.Type == t }

func (p *Parser) pos() ast.Pos {
	return ast.Pos{File: p.cur.File, Line: p.cur.Line, Column: p.cur.Column}
}

func (p *Parser) span(start ast.Pos) ast.Span {
	return ast.Span{Start: start, End: p.pos()}
}

// expect advances past the current token if it matches t; otherwise it
// records a PAR001 diagnostic and does not advance.
func (p *Parser) expect(t lexer.TokenType) bool {
	if p.curIs(t) {
		p.next()
		return true
	}
	p.errf(errors.PAR001, "expected %s, found %s %q", t, p.cur.Type, p.cur.Literal)
	return false
}

// errf records a diagnostic with the given code at the current token's
// position.
func (p *Parser) errf(code string, format string, args ...interface{}) {
	sp := ast.Span{Start: p.pos(), End: p.pos()}
	msg := fmt.Sprintf(format, args...)
	p.reports = append(p.reports, errors.NewParse(code, &sp, msg))
}

// curIsContextual reports whether the current token is an IDENT whose
// literal spelling is kw — used for words that are reserved only in
// specific positions ("exception", "use") so ordinary identifiers named
// similarly elsewhere stay legal.
func (p *Parser) curIsContextual(kw string) bool {
	return p.curIs(lexer.IDENT) && p.cur.Literal == kw
}

// Parse parses a full program: a sequence of declarations/expressions each
// terminated by `;`.
func Parse(l *lexer.Lexer) (*ast.Program, []*errors.Report) {
	p := New(l)
	prog := p.ParseProgram()
	return prog, p.reports
}

// ParseProgram is the Parser-method form of Parse, used by callers that
// already hold a *Parser (e.g. the REPL, which parses one unit at a time).
func (p *Parser) ParseProgram() *ast.Program {
	start := p.pos()
	prog := &ast.Program{Pos: start}
	for !p.curIs(lexer.EOF) {
		ds := p.parseTopLevel()
		prog.Decls = append(prog.Decls, ds...)
		if p.curIs(lexer.SEMI) {
			p.next()
			continue
		}
		if !p.curIs(lexer.EOF) {
			// Recover by skipping to the next `;` or EOF.
			p.errf(errors.PAR001, "expected ';' after declaration, found %s %q", p.cur.Type, p.cur.Literal)
			for !p.curIs(lexer.SEMI) && !p.curIs(lexer.EOF) {
				p.next()
			}
			if p.curIs(lexer.SEMI) {
				p.next()
			}
		}
	}
	return prog
}

// parseTopLevel parses one declaration-or-expression unit, returning the
// flat sequence of decls it produces (more than one for an `and`-chain).
func (p *Parser) parseTopLevel() []ast.Decl {
	switch {
	case p.curIs(lexer.VAL):
		return p.parseValOrInst()
	case p.curIs(lexer.FUN):
		return p.parseFun()
	case p.curIs(lexer.DATATYPE):
		return []ast.Decl{p.parseDatatype()}
	case p.curIs(lexer.TYPE):
		return []ast.Decl{p.parseTypeAlias()}
	case p.curIs(lexer.OVER):
		return []ast.Decl{p.parseOver()}
	case p.curIs(lexer.SIGNATURE):
		return []ast.Decl{p.parseSignature()}
	case p.curIsContextual("exception"):
		return []ast.Decl{p.parseException()}
	case p.curIsContextual("use"):
		return []ast.Decl{p.parseUse()}
	default:
		start := p.pos()
		e := p.parseExpr(0)
		return []ast.Decl{&ast.ExprDecl{Value: e, Pos: start}}
	}
}

func (p *Parser) parseUse() ast.Decl {
	start := p.pos()
	p.next() // consume 'use'
	path := p.cur.Literal
	if !p.expect(lexer.STRING) {
		return &ast.UseDecl{Path: path, Pos: start}
	}
	return &ast.UseDecl{Path: path, Pos: start}
}

func (p *Parser) parseException() ast.Decl {
	start := p.pos()
	p.next() // consume 'exception'
	name := p.cur.Literal
	p.expect(lexer.IDENT)
	var arg ast.TypeExpr
	if p.curIs(lexer.OF) {
		p.next()
		arg = p.parseType(precTypeLowest)
	}
	return &ast.ExceptionDecl{Name: name, Arg: arg, Pos: start}
}
