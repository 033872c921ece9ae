package parser

import (
	"github.com/deepsen/smli/internal/ast"
	"github.com/deepsen/smli/internal/errors"
	"github.com/deepsen/smli/internal/lexer"
)

// parsePattern parses a full pattern: a cons-chain optionally layered with
// `as x`.
func (p *Parser) parsePattern() ast.Pattern {
	start := p.pos()
	pat := p.parseConsPattern()
	if p.curIs(lexer.AS) {
		p.next()
		name := p.cur.Literal
		p.expect(lexer.IDENT)
		return &ast.LayeredPattern{Pattern: pat, Name: name, Pos: start}
	}
	return pat
}

// parseConsPattern parses `p:: p` (right-associative).
func (p *Parser) parseConsPattern() ast.Pattern {
	start := p.pos()
	left := p.parseAppPattern()
	if p.curIs(lexer.CONS) {
		p.next()
		right := p.parseConsPattern()
		return &ast.ConsPattern{Head: left, Tail: right, Pos: start}
	}
	return left
}

// parseAppPattern parses `C` or `C p` for a constructor name C; any other
// atom is returned unapplied.
func (p *Parser) parseAppPattern() ast.Pattern {
	start := p.pos()
	if p.curIs(lexer.IDENT) && isConstructorName(p.cur.Literal) {
		name := p.cur.Literal
		p.next()
		if atomPatternStart(p.cur.Type) {
			arg := p.parseAtomPattern()
			return &ast.ConstructorPattern{Name: name, Arg: arg, Pos: start}
		}
		return &ast.ConstructorPattern{Name: name, Pos: start}
	}
	return p.parseAtomPattern()
}

// parseAtomPattern parses one non-applied, non-cons pattern atom.
func (p *Parser) parseAtomPattern() ast.Pattern {
	start := p.pos()
	switch {
	case p.curIs(lexer.WILDCARD):
		p.next()
		return &ast.WildcardPattern{Pos: start}

	case p.curIs(lexer.INT):
		return p.parseIntLit()
	case p.curIs(lexer.FLOAT):
		return p.parseFloatLit()
	case p.curIs(lexer.STRING):
		return p.parseStringLit()
	case p.curIs(lexer.CHAR):
		return p.parseCharLit()
	case p.curIs(lexer.TRUE):
		return p.parseBoolLit(true)
	case p.curIs(lexer.FALSE):
		return p.parseBoolLit(false)

	case p.curIs(lexer.IDENT):
		name := p.cur.Literal
		p.next()
		if isConstructorName(name) {
			return &ast.ConstructorPattern{Name: name, Pos: start}
		}
		return &ast.Ident{Name: name, Pos: start}

	case p.curIs(lexer.LPAREN):
		p.next()
		if p.curIs(lexer.RPAREN) {
			p.next()
			return &ast.Literal{Kind: ast.UnitLit, Value: nil, Pos: start}
		}
		first := p.parsePattern()
		if p.curIs(lexer.COMMA) {
			elems := []ast.Pattern{first}
			for p.curIs(lexer.COMMA) {
				p.next()
				elems = append(elems, p.parsePattern())
			}
			p.expect(lexer.RPAREN)
			return &ast.TuplePattern{Elements: elems, Pos: start}
		}
		p.expect(lexer.RPAREN)
		return first

	case p.curIs(lexer.LBRACE):
		return p.parseRecordPattern(start)

	case p.curIs(lexer.LBRACKET):
		return p.parseListPattern(start)

	default:
		p.errf(errors.PAR004, "expected a pattern, found %s %q", p.cur.Type, p.cur.Literal)
		p.next()
		return &ast.WildcardPattern{Pos: start}
	}
}

func (p *Parser) parseRecordPattern(start ast.Pos) ast.Pattern {
	p.next() // consume '{'
	rp := &ast.RecordPattern{Pos: start}
	if p.curIs(lexer.RBRACE) {
		p.next()
		return rp
	}
	for {
		if p.curIs(lexer.ELLIPSIS) {
			p.next()
			rp.Rest = true
			break
		}
		label := p.cur.Literal
		p.expect(lexer.IDENT)
		var fieldPat ast.Pattern
		if p.curIs(lexer.EQ) {
			p.next()
			fieldPat = p.parsePattern()
		} else {
			// `{x}` sugar: binds field x to a variable named x.
			fieldPat = &ast.Ident{Name: label, Pos: start}
		}
		rp.Fields = append(rp.Fields, ast.RecordFieldPattern{Label: label, Pattern: fieldPat})
		if p.curIs(lexer.COMMA) {
			p.next()
			continue
		}
		break
	}
	p.expect(lexer.RBRACE)
	return rp
}

func (p *Parser) parseListPattern(start ast.Pos) ast.Pattern {
	p.next() // consume '['
	lp := &ast.ListPattern{Pos: start}
	if p.curIs(lexer.RBRACKET) {
		p.next()
		return lp
	}
	lp.Elements = append(lp.Elements, p.parsePattern())
	for p.curIs(lexer.COMMA) {
		p.next()
		lp.Elements = append(lp.Elements, p.parsePattern())
	}
	p.expect(lexer.RBRACKET)
	return lp
}
