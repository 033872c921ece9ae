package parser

import (
	"github.com/deepsen/smli/internal/ast"
	"github.com/deepsen/smli/internal/lexer"
)

// recGroupSeq mints shared ids for a chain of `and`-joined bindings
// (ValRecDecl.RecGroup / FunDecl.RecGroup / ValDecl.AndGroup). It is a
// package-level counter shared by every Parser, so ids stay distinct across
// parses.
var recGroupSeq int

func nextRecGroup() int {
	recGroupSeq++
	return recGroupSeq
}

// parseValOrInst parses `val p = e [and p = e...]`, `val rec f = e [and...]`,
// and `val inst x = e`, returning the
// flat sequence of sibling decls an `and`-chain produces.
func (p *Parser) parseValOrInst() []ast.Decl {
	start := p.pos()
	p.next() // consume 'val'

	if p.curIs(lexer.INST) {
		p.next()
		name := p.cur.Literal
		p.expect(lexer.IDENT)
		p.expect(lexer.EQ)
		val := p.parseExpr(0)
		return []ast.Decl{&ast.InstDecl{Name: name, Value: val, Pos: start}}
	}

	if p.curIs(lexer.REC) {
		p.next()
		group := nextRecGroup()
		decls := []ast.Decl{p.parseOneValRec(start, group)}
		for p.curIs(lexer.AND) {
			p.next()
			decls = append(decls, p.parseOneValRec(p.pos(), group))
		}
		return decls
	}

	vals := []*ast.ValDecl{p.parseOneVal(start)}
	for p.curIs(lexer.AND) {
		p.next()
		vals = append(vals, p.parseOneVal(p.pos()))
	}
	if len(vals) > 1 {
		group := nextRecGroup()
		for _, v := range vals {
			v.AndGroup = group
		}
	}
	decls := make([]ast.Decl, len(vals))
	for i, v := range vals {
		decls[i] = v
	}
	return decls
}

func (p *Parser) parseOneVal(start ast.Pos) *ast.ValDecl {
	pat := p.parsePattern()
	p.expect(lexer.EQ)
	val := p.parseExpr(0)
	return &ast.ValDecl{Pattern: pat, Value: val, Pos: start}
}

func (p *Parser) parseOneValRec(start ast.Pos, group int) ast.Decl {
	name := p.cur.Literal
	p.expect(lexer.IDENT)
	p.expect(lexer.EQ)
	val := p.parseExpr(0)
	return &ast.ValRecDecl{Name: name, Value: val, RecGroup: group, Pos: start}
}

// parseFun parses `fun name p1 p2 [when g] = body | name p1' p2' = body'...
// [and name2...]`, returning one FunDecl per name sharing a
// RecGroup (mutual recursion across the `and`-chain).
func (p *Parser) parseFun() []ast.Decl {
	start := p.pos()
	p.next() // consume 'fun'
	group := nextRecGroup()
	decls := []ast.Decl{p.parseOneFun(start, group)}
	for p.curIs(lexer.AND) {
		p.next()
		decls = append(decls, p.parseOneFun(p.pos(), group))
	}
	return decls
}

func (p *Parser) parseOneFun(start ast.Pos, group int) *ast.FunDecl {
	name := p.cur.Literal
	p.expect(lexer.IDENT)
	fd := &ast.FunDecl{Name: name, RecGroup: group, Pos: start}
	fd.Clauses = append(fd.Clauses, p.parseFunClause())
	for p.curIs(lexer.BAR) {
		p.next()
		// Each clause repeats the function name; skip it if present.
		if p.curIs(lexer.IDENT) && p.cur.Literal == name {
			p.next()
		}
		fd.Clauses = append(fd.Clauses, p.parseFunClause())
	}
	return fd
}

func (p *Parser) parseFunClause() ast.FunClause {
	start := p.pos()
	var params []ast.Pattern
	for !p.curIs(lexer.EQ) && !p.curIsContextual("when") && !p.curIs(lexer.EOF) {
		params = append(params, p.parseAtomPattern())
	}
	var guard ast.Expr
	if p.curIsContextual("when") {
		p.next()
		guard = p.parseExpr(0)
	}
	p.expect(lexer.EQ)
	body := p.parseExpr(0)
	return ast.FunClause{Params: params, Guard: guard, Body: body, Pos: start}
}

// parseDatatype parses `datatype <binding> [and <binding>]*`.
func (p *Parser) parseDatatype() ast.Decl {
	start := p.pos()
	p.next() // consume 'datatype'
	d := &ast.DatatypeDecl{Pos: start}
	d.Bindings = append(d.Bindings, p.parseDatatypeBinding())
	for p.curIs(lexer.AND) {
		p.next()
		d.Bindings = append(d.Bindings, p.parseDatatypeBinding())
	}
	return d
}

func (p *Parser) parseDatatypeBinding() ast.DatatypeBinding {
	start := p.pos()
	var typeParams []string
	switch {
	case p.curIs(lexer.TYVAR):
		typeParams = append(typeParams, p.cur.Literal)
		p.next()
	case p.curIs(lexer.LPAREN):
		p.next()
		typeParams = append(typeParams, p.cur.Literal)
		p.expect(lexer.TYVAR)
		for p.curIs(lexer.COMMA) {
			p.next()
			typeParams = append(typeParams, p.cur.Literal)
			p.expect(lexer.TYVAR)
		}
		p.expect(lexer.RPAREN)
	}
	name := p.cur.Literal
	p.expect(lexer.IDENT)
	p.expect(lexer.EQ)
	b := ast.DatatypeBinding{Name: name, TypeParams: typeParams, Pos: start}
	b.Constructors = append(b.Constructors, p.parseConstructorDecl())
	for p.curIs(lexer.BAR) {
		p.next()
		b.Constructors = append(b.Constructors, p.parseConstructorDecl())
	}
	return b
}

func (p *Parser) parseConstructorDecl() ast.ConstructorDecl {
	start := p.pos()
	name := p.cur.Literal
	p.expect(lexer.IDENT)
	c := ast.ConstructorDecl{Name: name, Pos: start}
	if p.curIs(lexer.OF) {
		p.next()
		c.Arg = p.parseType(precTypeLowest)
	}
	return c
}

// parseTypeAlias parses `type 'a name = t`.
func (p *Parser) parseTypeAlias() ast.Decl {
	start := p.pos()
	p.next() // consume 'type'
	var typeParams []string
	switch {
	case p.curIs(lexer.TYVAR):
		typeParams = append(typeParams, p.cur.Literal)
		p.next()
	case p.curIs(lexer.LPAREN):
		p.next()
		typeParams = append(typeParams, p.cur.Literal)
		p.expect(lexer.TYVAR)
		for p.curIs(lexer.COMMA) {
			p.next()
			typeParams = append(typeParams, p.cur.Literal)
			p.expect(lexer.TYVAR)
		}
		p.expect(lexer.RPAREN)
	}
	name := p.cur.Literal
	p.expect(lexer.IDENT)
	p.expect(lexer.EQ)
	def := p.parseType(precTypeLowest)
	return &ast.TypeAliasDecl{Name: name, TypeParams: typeParams, Def: def, Pos: start}
}

// parseOver parses `over x: <signature>`.
func (p *Parser) parseOver() ast.Decl {
	start := p.pos()
	p.next() // consume 'over'
	name := p.cur.Literal
	p.expect(lexer.IDENT)
	p.expect(lexer.COLON)
	sig := p.parseType(precTypeLowest)
	return &ast.OverDecl{Name: name, Signature: sig, Pos: start}
}

// parseSignature parses `signature S = struct val x: t... end`.
func (p *Parser) parseSignature() ast.Decl {
	start := p.pos()
	p.next() // consume 'signature'
	name := p.cur.Literal
	p.expect(lexer.IDENT)
	p.expect(lexer.EQ)
	p.expect(lexer.STRUCT)
	d := &ast.SignatureDecl{Name: name, Pos: start}
	for p.curIs(lexer.VAL) {
		p.next()
		specName := p.cur.Literal
		p.expect(lexer.IDENT)
		p.expect(lexer.COLON)
		t := p.parseType(precTypeLowest)
		d.Specs = append(d.Specs, ast.SignatureSpec{Name: specName, Type: t})
	}
	p.expect(lexer.END)
	return d
}
