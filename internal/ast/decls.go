package ast

import "fmt"

// ValDecl is `val p = e` (non-recursive). An `and`-joined chain carries a
// shared nonzero AndGroup id: every clause's RHS is scoped to the
// environment outside the whole group, and the clauses' bindings take
// effect together afterwards.
type ValDecl struct {
	Pattern  Pattern
	Value    Expr
	AndGroup int // 0 for a standalone `val`
	Pos      Pos
}

func (v *ValDecl) declNode()      {}
func (v *ValDecl) Position() Pos  { return v.Pos }
func (v *ValDecl) String() string { return fmt.Sprintf("val %s = %s", v.Pattern, v.Value) }

// ValRecDecl is `val rec f = fn p => body` (single recursive binding;
// mutual recursion is expressed via `and` chains carried by the parser as
// sibling ValRecDecls sharing a RecGroup id).
type ValRecDecl struct {
	Name     string
	Value    Expr
	RecGroup int
	Pos      Pos
}

func (v *ValRecDecl) declNode()      {}
func (v *ValRecDecl) Position() Pos  { return v.Pos }
func (v *ValRecDecl) String() string { return fmt.Sprintf("val rec %s = %s", v.Name, v.Value) }

// FunClause is one clause of a multi-clause `fun` definition.
type FunClause struct {
	Params []Pattern
	Guard  Expr // optional
	Body   Expr
	Pos    Pos
}

// FunDecl is `fun name p1 p2 = body | name p1' p2' = body'...`.
type FunDecl struct {
	Name     string
	Clauses  []FunClause
	RecGroup int
	Pos      Pos
}

func (f *FunDecl) declNode()     {}
func (f *FunDecl) Position() Pos { return f.Pos }
func (f *FunDecl) String() string {
	return fmt.Sprintf("fun %s (%d clauses)", f.Name, len(f.Clauses))
}

// ConstructorDecl is one `Name [of argType]` in a datatype declaration.
type ConstructorDecl struct {
	Name string
	Arg  TypeExpr // nil for nilary constructors
	Pos  Pos
}

// DatatypeBinding is one `'a... tname = C1 | C2 of...` in a (possibly
// mutually recursive, `and`-joined) datatype group.
type DatatypeBinding struct {
	Name         string
	TypeParams   []string
	Constructors []ConstructorDecl
	Pos          Pos
}

// DatatypeDecl is `datatype <binding> [and <binding>]*`.
type DatatypeDecl struct {
	Bindings []DatatypeBinding
	Pos      Pos
}

func (d *DatatypeDecl) declNode()     {}
func (d *DatatypeDecl) Position() Pos { return d.Pos }
func (d *DatatypeDecl) String() string {
	return fmt.Sprintf("datatype %s", d.Bindings[0].Name)
}

// TypeAliasDecl is `type 'a name = t`.
type TypeAliasDecl struct {
	Name       string
	TypeParams []string
	Def        TypeExpr
	Pos        Pos
}

func (t *TypeAliasDecl) declNode()      {}
func (t *TypeAliasDecl) Position() Pos  { return t.Pos }
func (t *TypeAliasDecl) String() string { return fmt.Sprintf("type %s", t.Name) }

// OverDecl introduces an overload group: `over x: <signature>`.
type OverDecl struct {
	Name      string
	Signature TypeExpr
	Pos       Pos
}

func (o *OverDecl) declNode()      {}
func (o *OverDecl) Position() Pos  { return o.Pos }
func (o *OverDecl) String() string { return fmt.Sprintf("over %s", o.Name) }

// InstDecl is `val inst x = e`, one concrete instance of an overload group.
type InstDecl struct {
	Name  string
	Value Expr
	Pos   Pos
}

func (i *InstDecl) declNode()      {}
func (i *InstDecl) Position() Pos  { return i.Pos }
func (i *InstDecl) String() string { return fmt.Sprintf("val inst %s = %s", i.Name, i.Value) }

// ExceptionDecl is `exception E [of argType]`.
type ExceptionDecl struct {
	Name string
	Arg  TypeExpr
	Pos  Pos
}

func (e *ExceptionDecl) declNode()      {}
func (e *ExceptionDecl) Position() Pos  { return e.Pos }
func (e *ExceptionDecl) String() string { return fmt.Sprintf("exception %s", e.Name) }

// SignatureSpec is one named-value entry in a `signature` block.
type SignatureSpec struct {
	Name string
	Type TypeExpr
}

// SignatureDecl is `signature S = sig val x: t... end`, a simple named
// signature: flat value bindings and simple named signatures only, with no
// module/functor system behind them.
type SignatureDecl struct {
	Name  string
	Specs []SignatureSpec
	Pos   Pos
}

func (s *SignatureDecl) declNode()      {}
func (s *SignatureDecl) Position() Pos  { return s.Pos }
func (s *SignatureDecl) String() string { return fmt.Sprintf("signature %s", s.Name) }

// ExprDecl wraps a bare top-level expression.
type ExprDecl struct {
	Value Expr
	Pos   Pos
}

func (e *ExprDecl) declNode()      {}
func (e *ExprDecl) Position() Pos  { return e.Pos }
func (e *ExprDecl) String() string { return e.Value.String() }

// UseDecl is the top-level form of `use "<path>";`; written as
// a declaration rather than ordinary function application so the loader can
// special-case it without threading effect capabilities through resolution.
type UseDecl struct {
	Path string
	Pos  Pos
}

func (u *UseDecl) declNode()      {}
func (u *UseDecl) Position() Pos  { return u.Pos }
func (u *UseDecl) String() string { return fmt.Sprintf("use %q", u.Path) }
