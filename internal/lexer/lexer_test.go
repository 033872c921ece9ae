package lexer

import (
	"testing"
)

func TestNextToken(t *testing.T) {
	input := `val x = 5 + ~10;
fun add a b = a + b
from e in xs where e.a <= 3 group e.a compute sb = sum of e.b
[1, 2, 3] @ [4, 5]
{name = "Alice", age = 30}
(* a (* nested *) comment *) true andalso false orelse b
1 :: rest
`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{VAL, "val"},
		{IDENT, "x"},
		{EQ, "="},
		{INT, "5"},
		{PLUS, "+"},
		{INT, "~10"},
		{SEMI, ";"},

		{FUN, "fun"},
		{IDENT, "add"},
		{IDENT, "a"},
		{IDENT, "b"},
		{EQ, "="},
		{IDENT, "a"},
		{PLUS, "+"},
		{IDENT, "b"},

		{FROM, "from"},
		{IDENT, "e"},
		{IN, "in"},
		{IDENT, "xs"},
		{WHERE, "where"},
		{IDENT, "e"},
		{DOT, "."},
		{IDENT, "a"},
		{LE, "<="},
		{INT, "3"},
		{GROUP, "group"},
		{IDENT, "e"},
		{DOT, "."},
		{IDENT, "a"},
		{COMPUTE, "compute"},
		{IDENT, "sb"},
		{EQ, "="},
		{IDENT, "sum"},
		{OF, "of"},
		{IDENT, "e"},
		{DOT, "."},
		{IDENT, "b"},

		{LBRACKET, "["},
		{INT, "1"},
		{COMMA, ","},
		{INT, "2"},
		{COMMA, ","},
		{INT, "3"},
		{RBRACKET, "]"},
		{ATAT, "@"},
		{LBRACKET, "["},
		{INT, "4"},
		{COMMA, ","},
		{INT, "5"},
		{RBRACKET, "]"},

		{LBRACE, "{"},
		{IDENT, "name"},
		{EQ, "="},
		{STRING, "Alice"},
		{COMMA, ","},
		{IDENT, "age"},
		{EQ, "="},
		{INT, "30"},
		{RBRACE, "}"},

		{TRUE, "true"},
		{ANDALSO, "andalso"},
		{FALSE, "false"},
		{ORELSE, "orelse"},
		{IDENT, "b"},

		{INT, "1"},
		{CONS, "::"},
		{IDENT, "rest"},

		{EOF, ""},
	}

	l := New(input, "test.smli")
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - wrong token type for %q: expected %v, got %v",
				i, tok.Literal, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - wrong literal: expected %q, got %q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestNumberLiterals(t *testing.T) {
	tests := []struct {
		input   string
		typ     TokenType
		literal string
	}{
		{"0", INT, "0"},
		{"42", INT, "42"},
		{"~7", INT, "~7"},
		{"3.14", FLOAT, "3.14"},
		{"~1.5", FLOAT, "~1.5"},
		{"1e3", FLOAT, "1e3"},
		{"2.5E~2", FLOAT, "2.5E~2"},
		{"1e+4", FLOAT, "1e+4"},
	}
	for _, tt := range tests {
		l := New(tt.input, "test.smli")
		tok := l.NextToken()
		if tok.Type != tt.typ || tok.Literal != tt.literal {
			t.Errorf("%q: got (%v, %q), want (%v, %q)", tt.input, tok.Type, tok.Literal, tt.typ, tt.literal)
		}
	}
}

// An `e` not followed by exponent digits must not be swallowed into the
// number: `1end` is the literal 1 followed by the keyword.
func TestExponentBacktrack(t *testing.T) {
	l := New("1end", "test.smli")
	tok := l.NextToken()
	if tok.Type != INT || tok.Literal != "1" {
		t.Fatalf("got (%v, %q), want (INT, 1)", tok.Type, tok.Literal)
	}
	tok = l.NextToken()
	if tok.Type != END {
		t.Fatalf("got %v, want END", tok.Type)
	}
}

func TestStringEscapes(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"a\nb"`, "a\nb"},
		{`"tab\there"`, "tab\there"},
		{`"quote: \""`, `quote: "`},
		{`"back\\slash"`, `back\slash`},
		{`"\065\066"`, "AB"},
		{`"\^I"`, "\t"},
	}
	for _, tt := range tests {
		l := New(tt.input, "test.smli")
		tok := l.NextToken()
		if tok.Type != STRING || tok.Literal != tt.want {
			t.Errorf("%s: got (%v, %q), want (STRING, %q)", tt.input, tok.Type, tok.Literal, tt.want)
		}
	}
}

func TestCharLiteral(t *testing.T) {
	l := New(`#"x"`, "test.smli")
	tok := l.NextToken()
	if tok.Type != CHAR || tok.Literal != "x" {
		t.Fatalf("got (%v, %q), want (CHAR, x)", tok.Type, tok.Literal)
	}
}

func TestBacktickIdentifier(t *testing.T) {
	l := New("`from`", "test.smli")
	tok := l.NextToken()
	if tok.Type != IDENT || tok.Literal != "from" {
		t.Fatalf("backtick-quoting must turn a keyword into IDENT; got (%v, %q)", tok.Type, tok.Literal)
	}
}

func TestTypeVariable(t *testing.T) {
	l := New("'a list", "test.smli")
	tok := l.NextToken()
	if tok.Type != TYVAR || tok.Literal != "'a" {
		t.Fatalf("got (%v, %q), want (TYVAR, 'a)", tok.Type, tok.Literal)
	}
}

func TestLineComment(t *testing.T) {
	l := New("1 (*) rest of the line\n2", "test.smli")
	if tok := l.NextToken(); tok.Literal != "1" {
		t.Fatalf("got %q, want 1", tok.Literal)
	}
	if tok := l.NextToken(); tok.Literal != "2" {
		t.Fatalf("comment to end of line not skipped: got %q", tok.Literal)
	}
}

func TestPositionTracking(t *testing.T) {
	l := New("val\n  x", "test.smli")
	tok := l.NextToken()
	if tok.Line != 1 || tok.Column != 1 {
		t.Errorf("val at %d.%d, want 1.1", tok.Line, tok.Column)
	}
	tok = l.NextToken()
	if tok.Line != 2 || tok.Column != 3 {
		t.Errorf("x at %d.%d, want 2.3", tok.Line, tok.Column)
	}
}
