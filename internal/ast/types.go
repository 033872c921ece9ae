package ast

import (
	"fmt"
	"strings"
)

// TypeVarExpr is `'a`.
type TypeVarExpr struct {
	Name string
	Pos  Pos
}

func (t *TypeVarExpr) typeNode()      {}
func (t *TypeVarExpr) Position() Pos  { return t.Pos }
func (t *TypeVarExpr) String() string { return t.Name }

// ConTypeExpr is a primitive or named type, possibly applied: `int`,
// `'a list`, `(int, string) pair`.
type ConTypeExpr struct {
	Name string
	Args []TypeExpr // postfix constructor application; empty for primitives
	Pos  Pos
}

func (c *ConTypeExpr) typeNode()     {}
func (c *ConTypeExpr) Position() Pos { return c.Pos }
func (c *ConTypeExpr) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	if len(c.Args) == 1 {
		return fmt.Sprintf("%s %s", c.Args[0], c.Name)
	}
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("(%s) %s", strings.Join(parts, ", "), c.Name)
}

// FuncTypeExpr is `t -> t` (right-associative).
type FuncTypeExpr struct {
	Param, Result TypeExpr
	Pos           Pos
}

func (f *FuncTypeExpr) typeNode()     {}
func (f *FuncTypeExpr) Position() Pos { return f.Pos }
func (f *FuncTypeExpr) String() string {
	return fmt.Sprintf("%s -> %s", f.Param, f.Result)
}

// TupleTypeExpr is `t * t * ...`.
type TupleTypeExpr struct {
	Elements []TypeExpr
	Pos      Pos
}

func (t *TupleTypeExpr) typeNode()     {}
func (t *TupleTypeExpr) Position() Pos { return t.Pos }
func (t *TupleTypeExpr) String() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.String()
	}
	return strings.Join(parts, " * ")
}

// RecordTypeExprField is one `label : t` entry.
type RecordTypeExprField struct {
	Label string
	Type  TypeExpr
}

// RecordTypeExpr is `{l1 : t1, l2 : t2}`.
type RecordTypeExpr struct {
	Fields []RecordTypeExprField
	Pos    Pos
}

func (r *RecordTypeExpr) typeNode()     {}
func (r *RecordTypeExpr) Position() Pos { return r.Pos }
func (r *RecordTypeExpr) String() string {
	parts := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Label, f.Type)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
