package parser

import (
	"fmt"

	"github.com/deepsen/smli/internal/ast"
	"github.com/deepsen/smli/internal/errors"
	"github.com/deepsen/smli/internal/lexer"
)

// fnArgSeq mints synthetic scrutinee names for multi-clause `fn` sugar
// (fn p1 => e1 | p2 => e2 => fn $fnargN => case $fnargN of p1 => e1 |...).
var fnArgSeq int

func nextFnArg() string {
	fnArgSeq++
	return fmt.Sprintf("$fnarg%d", fnArgSeq)
}

// parseExpr parses an expression using precedence climbing over the value
// operator table. minPrec == 0 marks the
// outermost call, the only place a trailing `handle` clause is recognized
// (`handle` binds looser than every value operator).
func (p *Parser) parseExpr(minPrec int) ast.Expr {
	left := p.parseUnary()
	for {
		op := p.cur.Type
		prec := op.ValuePrecedence()
		if prec == 0 || prec < minPrec {
			break
		}
		opLit := p.cur.Literal
		start := left.Position()
		p.next()
		nextMin := prec + 1
		if op.RightAssoc() {
			nextMin = prec
		}
		right := p.parseExpr(nextMin)
		left = &ast.BinOp{Op: opLit, Left: left, Right: right, Pos: start}
	}
	if minPrec == 0 && p.curIs(lexer.HANDLE) {
		left = p.parseHandleTail(left)
	}
	return left
}

func (p *Parser) parseHandleTail(body ast.Expr) ast.Expr {
	start := body.Position()
	p.next() // consume 'handle'
	arms := []ast.HandleArm{p.parseHandleArm()}
	for p.curIs(lexer.BAR) {
		p.next()
		arms = append(arms, p.parseHandleArm())
	}
	return &ast.Handle{Body: body, Arms: arms, Pos: start}
}

func (p *Parser) parseHandleArm() ast.HandleArm {
	start := p.pos()
	pat := p.parsePattern()
	p.expect(lexer.FARROW)
	body := p.parseExpr(0)
	return ast.HandleArm{Pattern: pat, Body: body, Pos: start}
}

// parseUnary handles the prefix operators `~` and `not`, which bind looser
// than application ("~f x" is "~(f x)") but tighter than every infix value
// operator.
func (p *Parser) parseUnary() ast.Expr {
	start := p.pos()
	if p.curIs(lexer.TILDE) {
		p.next()
		operand := p.parseUnary()
		return &ast.UnaryOp{Op: "~", Expr: operand, Pos: start}
	}
	if p.curIsContextual("not") {
		p.next()
		operand := p.parseUnary()
		return &ast.UnaryOp{Op: "not", Expr: operand, Pos: start}
	}
	return p.parseApp()
}

// atomStart reports whether t can begin a function-application argument.
// `fn`/`if`/`case`/`let`/`raise`/`~`/`not` are deliberately excluded:
// those require explicit parentheses as an argument, avoiding grammar
// ambiguity with the enclosing application chain.
func atomStart(t lexer.TokenType) bool {
	switch t {
	case lexer.IDENT, lexer.INT, lexer.FLOAT, lexer.STRING, lexer.CHAR,
		lexer.TRUE, lexer.FALSE, lexer.LPAREN, lexer.LBRACE, lexer.LBRACKET, lexer.HASH:
		return true
	default:
		return false
	}
}

// parseApp parses a chain of left-associative function applications.
func (p *Parser) parseApp() ast.Expr {
	left := p.parsePostfix()
	for atomStart(p.cur.Type) {
		arg := p.parsePostfix()
		left = &ast.Apply{Fn: left, Arg: arg, Pos: left.Position()}
	}
	return left
}

// parsePostfix parses an atom followed by any number of `.label`
// projections (the field selector binds tighter than application).
func (p *Parser) parsePostfix() ast.Expr {
	e := p.parseAtomExpr()
	for p.curIs(lexer.DOT) {
		p.next()
		label := p.cur.Literal
		p.expect(lexer.IDENT)
		e = &ast.RecordSelect{Record: e, Label: label, Pos: e.Position()}
	}
	return e
}

func (p *Parser) parseAtomExpr() ast.Expr {
	start := p.pos()
	switch {
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
		return &ast.Ident{Name: name, Pos: start}

	case p.curIs(lexer.HASH):
		p.next()
		label := p.cur.Literal
		p.expect(lexer.IDENT)
		operand := p.parsePostfix()
		return &ast.RecordSelect{Record: operand, Label: label, Pos: start}

	case p.curIs(lexer.LPAREN):
		p.next()
		if p.curIs(lexer.RPAREN) {
			p.next()
			return &ast.Literal{Kind: ast.UnitLit, Value: nil, Pos: start}
		}
		first := p.parseExpr(0)
		switch {
		case p.curIs(lexer.COMMA):
			elems := []ast.Expr{first}
			for p.curIs(lexer.COMMA) {
				p.next()
				elems = append(elems, p.parseExpr(0))
			}
			p.expect(lexer.RPAREN)
			return &ast.Tuple{Elements: elems, Pos: start}
		case p.curIs(lexer.COLON):
			p.next()
			t := p.parseType(precTypeLowest)
			p.expect(lexer.RPAREN)
			return &ast.Annotated{Expr: first, Type: t, Pos: start}
		default:
			p.expect(lexer.RPAREN)
			return first
		}

	case p.curIs(lexer.LBRACE):
		return p.parseRecordExpr(start)

	case p.curIs(lexer.LBRACKET):
		return p.parseListExpr(start)

	case p.curIs(lexer.IF):
		return p.parseIfExpr()

	case p.curIs(lexer.CASE):
		return p.parseCaseExpr()

	case p.curIs(lexer.LET):
		return p.parseLetExpr()

	case p.curIs(lexer.FN):
		return p.parseFnExpr()

	case p.curIs(lexer.RAISE):
		p.next()
		exn := p.parseApp()
		return &ast.Raise{Exn: exn, Pos: start}

	case p.curIs(lexer.FROM):
		return p.parseFromExpr()
	case p.curIs(lexer.EXISTS):
		return p.parseExistsExpr()
	case p.curIs(lexer.FORALL):
		return p.parseForallExpr()

	default:
		p.errf(errors.PAR001, "expected an expression, found %s %q", p.cur.Type, p.cur.Literal)
		p.next()
		return &ast.Literal{Kind: ast.UnitLit, Value: nil, Pos: start}
	}
}

// parseRecordExpr parses `{a, e.b, #c e, d = e}`, desugaring each shorthand field to an explicit label.
func (p *Parser) parseRecordExpr(start ast.Pos) ast.Expr {
	p.next() // consume '{'
	rec := &ast.Record{Pos: start}
	if p.curIs(lexer.RBRACE) {
		p.next()
		return rec
	}
	for {
		rec.Fields = append(rec.Fields, p.parseRecordField())
		if p.curIs(lexer.COMMA) {
			p.next()
			continue
		}
		break
	}
	p.expect(lexer.RBRACE)
	return rec
}

func (p *Parser) parseRecordField() ast.RecordFieldExpr {
	start := p.pos()
	if p.curIs(lexer.HASH) {
		p.next()
		label := p.cur.Literal
		p.expect(lexer.IDENT)
		operand := p.parsePostfix()
		sel := &ast.RecordSelect{Record: operand, Label: label, Pos: start}
		return ast.RecordFieldExpr{Label: label, Value: sel, Pos: start}
	}

	e := p.parsePostfix()
	if p.curIs(lexer.EQ) {
		p.next()
		id, ok := e.(*ast.Ident)
		label := ""
		if ok {
			label = id.Name
		} else {
			p.errf(errors.PAR007, "record field label must be a plain identifier before '='")
		}
		val := p.parseExpr(0)
		return ast.RecordFieldExpr{Label: label, Value: val, Pos: start}
	}
	switch f := e.(type) {
	case *ast.Ident:
		return ast.RecordFieldExpr{Label: f.Name, Value: f, Pos: start}
	case *ast.RecordSelect:
		return ast.RecordFieldExpr{Label: f.Label, Value: f, Pos: start}
	default:
		p.errf(errors.PAR007, "record-field label could not be derived from an unlabeled field")
		return ast.RecordFieldExpr{Label: "", Value: e, Pos: start}
	}
}

func (p *Parser) parseListExpr(start ast.Pos) ast.Expr {
	p.next() // consume '['
	list := &ast.ListExpr{Pos: start}
	if p.curIs(lexer.RBRACKET) {
		p.next()
		return list
	}
	list.Elements = append(list.Elements, p.parseExpr(0))
	for p.curIs(lexer.COMMA) {
		p.next()
		list.Elements = append(list.Elements, p.parseExpr(0))
	}
	p.expect(lexer.RBRACKET)
	return list
}

func (p *Parser) parseIfExpr() ast.Expr {
	start := p.pos()
	p.next() // consume 'if'
	cond := p.parseExpr(0)
	p.expect(lexer.THEN)
	then := p.parseExpr(0)
	p.expect(lexer.ELSE)
	els := p.parseExpr(0)
	return &ast.If{Cond: cond, Then: then, Else: els, Pos: start}
}

func (p *Parser) parseCaseExpr() ast.Expr {
	start := p.pos()
	p.next() // consume 'case'
	scrutinee := p.parseExpr(0)
	p.expect(lexer.OF)
	arms := []ast.CaseArm{p.parseCaseArm()}
	for p.curIs(lexer.BAR) {
		p.next()
		arms = append(arms, p.parseCaseArm())
	}
	return &ast.Case{Scrutinee: scrutinee, Arms: arms, Pos: start}
}

func (p *Parser) parseCaseArm() ast.CaseArm {
	start := p.pos()
	pat := p.parsePattern()
	var guard ast.Expr
	if p.curIsContextual("when") {
		p.next()
		guard = p.parseExpr(0)
	}
	p.expect(lexer.FARROW)
	body := p.parseExpr(0)
	return ast.CaseArm{Pattern: pat, Guard: guard, Body: body, Pos: start}
}

func (p *Parser) parseLetExpr() ast.Expr {
	start := p.pos()
	p.next() // consume 'let'
	var decls []ast.Decl
	for !p.curIs(lexer.IN) && !p.curIs(lexer.EOF) {
		decls = append(decls, p.parseTopLevel()...)
	}
	p.expect(lexer.IN)
	body := p.parseExpr(0)
	p.expect(lexer.END)
	return &ast.Let{Decls: decls, Body: body, Pos: start}
}

// parseFnExpr parses `fn p => e`, desugaring the multi-clause form
// `fn p1 => e1 | p2 => e2...` to `fn $v => case $v of p1 => e1 |...`.
func (p *Parser) parseFnExpr() ast.Expr {
	start := p.pos()
	p.next() // consume 'fn'
	firstPat := p.parsePattern()
	p.expect(lexer.FARROW)
	firstBody := p.parseExpr(0)
	if !p.curIs(lexer.BAR) {
		return &ast.FnExpr{Param: firstPat, Body: firstBody, Pos: start}
	}
	arms := []ast.CaseArm{{Pattern: firstPat, Body: firstBody, Pos: start}}
	for p.curIs(lexer.BAR) {
		p.next()
		astart := p.pos()
		pat := p.parsePattern()
		p.expect(lexer.FARROW)
		body := p.parseExpr(0)
		arms = append(arms, ast.CaseArm{Pattern: pat, Body: body, Pos: astart})
	}
	argName := nextFnArg()
	scrut := &ast.Ident{Name: argName, Pos: start}
	return &ast.FnExpr{
		Param: &ast.Ident{Name: argName, Pos: start},
		Body:  &ast.Case{Scrutinee: scrut, Arms: arms, Pos: start},
		Pos:   start,
	}
}
