package parser

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/deepsen/smli/internal/ast"
	"github.com/deepsen/smli/internal/errors"
	"github.com/deepsen/smli/internal/lexer"
)

// isConstructorName reports whether name is lexically a datatype
// constructor rather than a bound
// variable. The inferencer still verifies the name is a declared
// constructor; this is only the parser's pattern/atom disambiguation.
func isConstructorName(name string) bool {
	if name == "" {
		return false
	}
	r := name[0]
	return r >= 'A' && r <= 'Z'
}

// parseIntLit converts an INT token's literal ("123", "~45") to a Literal
// carrying a *big.Int.
func (p *Parser) parseIntLit() *ast.Literal {
	start := p.pos()
	text := strings.Replace(p.cur.Literal, "~", "-", 1)
	n := new(big.Int)
	if _, ok := n.SetString(text, 10); !ok {
		p.errf(errors.PAR001, "invalid integer literal %q", p.cur.Literal)
	}
	p.next()
	return &ast.Literal{Kind: ast.IntLit, Value: n, Pos: start}
}

// parseFloatLit converts a FLOAT token's literal ("1.5", "~1.0e~3") to a
// Literal carrying a float64.
func (p *Parser) parseFloatLit() *ast.Literal {
	start := p.pos()
	text := strings.ReplaceAll(p.cur.Literal, "~", "-")
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		p.errf(errors.PAR001, "invalid real literal %q", p.cur.Literal)
	}
	p.next()
	return &ast.Literal{Kind: ast.RealLit, Value: f, Pos: start}
}

func (p *Parser) parseStringLit() *ast.Literal {
	start := p.pos()
	v := p.cur.Literal
	p.next()
	return &ast.Literal{Kind: ast.StringLit, Value: v, Pos: start}
}

func (p *Parser) parseCharLit() *ast.Literal {
	start := p.pos()
	var r rune
	for _, c := range p.cur.Literal {
		r = c
		break
	}
	p.next()
	return &ast.Literal{Kind: ast.CharLit, Value: r, Pos: start}
}

func (p *Parser) parseBoolLit(v bool) *ast.Literal {
	start := p.pos()
	p.next()
	return &ast.Literal{Kind: ast.BoolLit, Value: v, Pos: start}
}

// atomPatternStart reports whether t can open an atomic pattern, used to
// decide whether a constructor name is applied to an argument pattern.
func atomPatternStart(t lexer.TokenType) bool {
	switch t {
	case lexer.WILDCARD, lexer.INT, lexer.FLOAT, lexer.STRING, lexer.CHAR,
		lexer.TRUE, lexer.FALSE, lexer.LPAREN, lexer.LBRACE, lexer.LBRACKET, lexer.IDENT:
		return true
	default:
		return false
	}
}
