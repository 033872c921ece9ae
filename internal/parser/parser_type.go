package parser

import (
	"github.com/deepsen/smli/internal/ast"
	"github.com/deepsen/smli/internal/errors"
	"github.com/deepsen/smli/internal/lexer"
)

// Type-expression precedence, low to high. Arrow is right-associative and
// looser than postfix constructor application ("int list -> string" parses
// as "(int list) -> string").
const (
	precTypeLowest = iota
	precTypeArrow
	precTypeTuple
	precTypeApp
)

// parseType parses a surface type expression at or above minPrec.
func (p *Parser) parseType(minPrec int) ast.TypeExpr {
	start := p.pos()
	left := p.parseTupleType()
	if minPrec <= precTypeArrow && p.curIs(lexer.ARROW) {
		p.next()
		right := p.parseType(precTypeArrow)
		return &ast.FuncTypeExpr{Param: left, Result: right, Pos: start}
	}
	return left
}

// parseTupleType parses "t1 * t2 *...".
func (p *Parser) parseTupleType() ast.TypeExpr {
	start := p.pos()
	first := p.parseAppType()
	if !p.curIs(lexer.STAR) {
		return first
	}
	elems := []ast.TypeExpr{first}
	for p.curIs(lexer.STAR) {
		p.next()
		elems = append(elems, p.parseAppType())
	}
	return &ast.TupleTypeExpr{Elements: elems, Pos: start}
}

// parseAppType parses a chain of postfix constructor applications:
// "int list", "(int, string) either", "'a option list".
func (p *Parser) parseAppType() ast.TypeExpr {
	start := p.pos()
	atom := p.parseAtomType()
	for p.curIs(lexer.IDENT) {
		name := p.cur.Literal
		p.next()
		var args []ast.TypeExpr
		if tup, ok := atom.(*ast.TupleTypeExpr); ok {
			args = tup.Elements
		} else {
			args = []ast.TypeExpr{atom}
		}
		atom = &ast.ConTypeExpr{Name: name, Args: args, Pos: start}
	}
	return atom
}

func (p *Parser) parseAtomType() ast.TypeExpr {
	start := p.pos()
	switch {
	case p.curIs(lexer.TYVAR):
		name := p.cur.Literal
		p.next()
		return &ast.TypeVarExpr{Name: name, Pos: start}

	case p.curIs(lexer.IDENT):
		name := p.cur.Literal
		p.next()
		return &ast.ConTypeExpr{Name: name, Pos: start}

	case p.curIs(lexer.LPAREN):
		p.next()
		first := p.parseType(precTypeLowest)
		if p.curIs(lexer.COMMA) {
			elems := []ast.TypeExpr{first}
			for p.curIs(lexer.COMMA) {
				p.next()
				elems = append(elems, p.parseType(precTypeLowest))
			}
			p.expect(lexer.RPAREN)
			return &ast.TupleTypeExpr{Elements: elems, Pos: start}
		}
		p.expect(lexer.RPAREN)
		return first

	case p.curIs(lexer.LBRACE):
		return p.parseRecordType(start)

	default:
		p.errf(errors.PAR005, "expected a type, found %s %q", p.cur.Type, p.cur.Literal)
		p.next()
		return &ast.ConTypeExpr{Name: "_", Pos: start}
	}
}

func (p *Parser) parseRecordType(start ast.Pos) ast.TypeExpr {
	p.next() // consume '{'
	rt := &ast.RecordTypeExpr{Pos: start}
	if p.curIs(lexer.RBRACE) {
		p.next()
		return rt
	}
	for {
		label := p.cur.Literal
		p.expect(lexer.IDENT)
		p.expect(lexer.COLON)
		t := p.parseType(precTypeLowest)
		rt.Fields = append(rt.Fields, ast.RecordTypeExprField{Label: label, Type: t})
		if p.curIs(lexer.COMMA) {
			p.next()
			continue
		}
		break
	}
	p.expect(lexer.RBRACE)
	return rt
}
