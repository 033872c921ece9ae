package lexer

import "fmt"

// TokenType identifies the lexical class of a Token.
type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF

	// Literals
	IDENT  // identifier
	TYVAR  // 'a, 'b,...
	INT    // 123, ~45
	FLOAT  // 123.45, ~1.0e~3
	STRING // "abc"
	CHAR   // #"x"

	// Keywords - core ML
	VAL
	REC
	AND
	FUN
	FN
	LET
	IN
	END
	IF
	THEN
	ELSE
	CASE
	OF
	DATATYPE
	TYPE
	OVER
	INST
	SIGNATURE
	STRUCT
	RAISE
	HANDLE

	// Keywords - relational sublanguage
	FROM
	WHERE
	JOIN
	ON
	GROUP
	COMPUTE
	ORDER
	DESC
	TAKE
	SKIP
	DISTINCT
	UNORDER
	YIELD
	THROUGH
	INTO
	REQUIRE
	UNION
	INTERSECT
	EXCEPT
	EXISTS
	FORALL

	// Keyword-operators
	ANDALSO
	ORELSE
	IMPLIES
	ELEM
	NOTELEM
	DIV
	MOD
	O // function composition operator `o`

	// Literal keywords
	TRUE
	FALSE

	// Operators & punctuation
	PLUS  // +
	MINUS // -
	STAR  // *
	SLASH // /
	CARET // ^ (string concat)
	EQ    // =
	NE    // <>
	LT
	LE
	GT
	GE
	CONS     //::
	ATAT     // @ (list append)
	ARROW    // ->
	FARROW   // =>
	TILDE    // ~ (unary minus prefix)
	HASH     // # (record projection)
	DOT      //.
	ELLIPSIS //...
	COLON    //:
	SEMI     //;
	COMMA
	BAR // |
	AS

	LPAREN
	RPAREN
	LBRACE
	RBRACE
	LBRACKET
	RBRACKET

	WILDCARD // _
)

var tokenNames = map[TokenType]string{
	ILLEGAL: "ILLEGAL", EOF: "EOF",
	IDENT: "IDENT", TYVAR: "TYVAR", INT: "INT", FLOAT: "FLOAT", STRING: "STRING", CHAR: "CHAR",
	VAL: "val", REC: "rec", AND: "and", FUN: "fun", FN: "fn", LET: "let", IN: "in", END: "end",
	IF: "if", THEN: "then", ELSE: "else", CASE: "case", OF: "of",
	DATATYPE: "datatype", TYPE: "type", OVER: "over", INST: "inst",
	SIGNATURE: "signature", STRUCT: "struct", RAISE: "raise", HANDLE: "handle",
	FROM: "from", WHERE: "where", JOIN: "join", ON: "on", GROUP: "group", COMPUTE: "compute",
	ORDER: "order", DESC: "DESC", TAKE: "take", SKIP: "skip", DISTINCT: "distinct", UNORDER: "unorder",
	YIELD: "yield", THROUGH: "through", INTO: "into", REQUIRE: "require",
	UNION: "union", INTERSECT: "intersect", EXCEPT: "except",
	EXISTS: "exists", FORALL: "forall",
	ANDALSO: "andalso", ORELSE: "orelse", IMPLIES: "implies", ELEM: "elem", NOTELEM: "notelem",
	DIV: "div", MOD: "mod", O: "o",
	TRUE: "true", FALSE: "false",
	PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/", CARET: "^",
	EQ: "=", NE: "<>", LT: "<", LE: "<=", GT: ">", GE: ">=",
	CONS: "::", ATAT: "@", ARROW: "->", FARROW: "=>", TILDE: "~", HASH: "#", DOT: ".",
	ELLIPSIS: "...", COLON: ":", SEMI: ";", COMMA: ",", BAR: "|", AS: "as",
	LPAREN: "(", RPAREN: ")", LBRACE: "{", RBRACE: "}", LBRACKET: "[", RBRACKET: "]",
	WILDCARD: "_",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TokenType(%d)", t)
}

// keywords holds every reserved word; back-tick quoting lets the parser treat
// a keyword spelling as a plain identifier (see Lexer.readBacktickIdent).
var keywords = map[string]TokenType{
	"val": VAL, "rec": REC, "and": AND, "fun": FUN, "fn": FN, "let": LET, "in": IN, "end": END,
	"if": IF, "then": THEN, "else": ELSE, "case": CASE, "of": OF,
	"datatype": DATATYPE, "type": TYPE, "over": OVER, "inst": INST,
	"signature": SIGNATURE, "struct": STRUCT, "raise": RAISE, "handle": HANDLE,
	"from": FROM, "where": WHERE, "join": JOIN, "on": ON, "group": GROUP, "compute": COMPUTE,
	"order": ORDER, "DESC": DESC, "take": TAKE, "skip": SKIP, "distinct": DISTINCT, "unorder": UNORDER,
	"yield": YIELD, "through": THROUGH, "into": INTO, "require": REQUIRE,
	"union": UNION, "intersect": INTERSECT, "except": EXCEPT,
	"exists": EXISTS, "forall": FORALL,
	"andalso": ANDALSO, "orelse": ORELSE, "implies": IMPLIES, "elem": ELEM, "notelem": NOTELEM,
	"div": DIV, "mod": MOD, "o": O,
	"true": TRUE, "false": FALSE, "as": AS,
}

// LookupIdent resolves an identifier spelling to a keyword token type, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// Token is one lexical unit with its source position.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
	File    string
}

// NewToken builds a Token, the sole constructor used by the lexer.
func NewToken(typ TokenType, literal string, line, column int, file string) Token {
	return Token{Type: typ, Literal: literal, Line: line, Column: column, File: file}
}

func (t Token) Position() string {
	return fmt.Sprintf("%s:%d.%d", t.File, t.Line, t.Column)
}

func (t Token) String() string {
	return fmt.Sprintf("Token{%s, %q, %s}", t.Type, t.Literal, t.Position())
}

// precedence tables for value operators, low to high.
const (
	precLowest = iota
	precImplies
	precOrelse
	precAndalso
	precCompare // = <> < <= > >= elem notelem
	precCons    //:: @ (right-assoc)
	precAdd     // + - ^
	precMul     // * / div mod o
	precApply
)

func (t TokenType) ValuePrecedence() int {
	switch t {
	case IMPLIES:
		return precImplies
	case ORELSE:
		return precOrelse
	case ANDALSO:
		return precAndalso
	case EQ, NE, LT, LE, GT, GE, ELEM, NOTELEM:
		return precCompare
	case CONS, ATAT:
		return precCons
	case PLUS, MINUS, CARET:
		return precAdd
	case STAR, SLASH, DIV, MOD, O:
		return precMul
	default:
		return precLowest
	}
}

// rightAssoc reports whether the operator associates to the right.
func (t TokenType) RightAssoc() bool {
	switch t {
	case CONS, ATAT, IMPLIES:
		return true
	default:
		return false
	}
}
