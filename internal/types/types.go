// Package types is the shared data model of the pipeline stages: type
// representations, record rows (flex records), type schemes, and the
// environment. The unifier lives in unify.go, generalization/instantiation
// in scheme.go, overload groups in overload.go.
package types

import (
	"fmt"
	"sort"
	"strings"
)

// Kind distinguishes ordinary types from row types so the unifier can
// reject e.g. unifying a record row with a plain type variable.
type Kind interface {
	kind()
	String() string
}

type KStar struct{}

func (KStar) kind()          {}
func (KStar) String() string { return "*" }

type KRow struct{}

func (KRow) kind()          {}
func (KRow) String() string { return "Row" }

var (
	Star    Kind = KStar{}
	RowKind Kind = KRow{}
)

// Type is implemented by every type representation.
type Type interface {
	fmt.Stringer
	typeNode()
}

// Prim is one of the fixed primitive types.
type Prim string

const (
	TInt    Prim = "int"
	TReal   Prim = "real"
	TBool   Prim = "bool"
	TChar   Prim = "char"
	TString Prim = "string"
	TUnit   Prim = "unit"
)

// TPrim is a primitive type.
type TPrim struct{ Name Prim }

func (t *TPrim) typeNode()      {}
func (t *TPrim) String() string { return string(t.Name) }

var (
	Int    = &TPrim{TInt}
	Real   = &TPrim{TReal}
	Bool   = &TPrim{TBool}
	Char   = &TPrim{TChar}
	String = &TPrim{TString}
	Unit   = &TPrim{TUnit}
)

// TVar is a type (meta-)variable, ordinal-numbered and printed `'a`, `'b`, …
// in inferred types. Two TVars with the same Id denote the same variable.
type TVar struct{ Id int }

func (t *TVar) typeNode()      {}
func (t *TVar) String() string { return varName(t.Id) }

func varName(id int) string {
	name := string(rune('a' + id%26))
	if id >= 26 {
		name = fmt.Sprintf("%s%d", name, id/26)
	}
	return "'" + name
}

// TFunc is `t -> t`.
type TFunc struct{ Param, Result Type }

func (t *TFunc) typeNode() {}
func (t *TFunc) String() string {
	paramStr := t.Param.String()
	if _, ok := t.Param.(*TFunc); ok {
		paramStr = "(" + paramStr + ")"
	}
	return fmt.Sprintf("%s -> %s", paramStr, t.Result)
}

// TTuple is `t * t *...` (len >= 2).
type TTuple struct{ Elems []Type }

func (t *TTuple) typeNode() {}
func (t *TTuple) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = bracketIfFunc(e)
	}
	return strings.Join(parts, " * ")
}

func bracketIfFunc(t Type) string {
	switch t.(type) {
	case *TFunc, *TTuple:
		return "(" + t.String() + ")"
	default:
		return t.String()
	}
}

// TList is `t list`.
type TList struct{ Elem Type }

func (t *TList) typeNode()      {}
func (t *TList) String() string { return bracketIfFunc(t.Elem) + " list" }

// TBag is `t bag`, the unordered multiset type produced by an unordered
// `from` pipeline.
type TBag struct{ Elem Type }

func (t *TBag) typeNode()      {}
func (t *TBag) String() string { return bracketIfFunc(t.Elem) + " bag" }

// TOption is `t option`.
type TOption struct{ Elem Type }

func (t *TOption) typeNode()      {}
func (t *TOption) String() string { return bracketIfFunc(t.Elem) + " option" }

// RecordRow is a record's field set. Open (Tail != nil) rows are flex
// records: a row variable standing for the
// as-yet-unknown remaining fields, introduced by `#f e` projections before
// the full record type is known.
type RecordRow struct {
	Fields map[string]Type
	Tail   *TVar // nil => closed/fully known record
}

// TRecord is a record type built from a RecordRow; tuples are represented as
// records with labels "1","2",..., constructed via TupleAsRecord.
type TRecord struct{ Row RecordRow }

func (t *TRecord) typeNode() {}
func (t *TRecord) String() string {
	names := SortedFieldNames(t.Row.Fields)
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, fmt.Sprintf("%s:%s", n, t.Row.Fields[n]))
	}
	if t.Row.Tail != nil {
		parts = append(parts, "..."+t.Row.Tail.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// SortedFieldNames orders field labels numeric-first then lexicographic, the
// canonical record field order used everywhere records are printed or
// compared.
func SortedFieldNames(fields map[string]Type) []string {
	names := make([]string, 0, len(fields))
	for n := range fields {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		return lessFieldName(names[i], names[j])
	})
	return names
}

func lessFieldName(a, b string) bool {
	na, aIsNum := fieldAsNumber(a)
	nb, bIsNum := fieldAsNumber(b)
	if aIsNum && bIsNum {
		return na < nb
	}
	if aIsNum != bIsNum {
		return aIsNum // numeric labels sort first
	}
	return a < b
}

func fieldAsNumber(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// TupleAsRecord builds the canonical record representation of a tuple type:
// fields labeled "1", "2",....
func TupleAsRecord(elems []Type) *TRecord {
	fields := make(map[string]Type, len(elems))
	for i, e := range elems {
		fields[fmt.Sprintf("%d", i+1)] = e
	}
	return &TRecord{Row: RecordRow{Fields: fields}}
}

// TCon is a named datatype applied to argument types, e.g. `int tree`.
type TCon struct {
	Name string
	Args []Type
}

func (t *TCon) typeNode() {}
func (t *TCon) String() string {
	if len(t.Args) == 0 {
		return t.Name
	}
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = bracketIfFunc(a)
	}
	if len(parts) == 1 {
		return fmt.Sprintf("%s %s", parts[0], t.Name)
	}
	return fmt.Sprintf("(%s) %s", strings.Join(parts, ", "), t.Name)
}

// Equal performs a structural (non-unifying) equality check by comparing the
// printed forms of a and b. Unify uses it as a fast path before decomposing
// the two types.
func Equal(a, b Type) bool {
	return a.String() == b.String()
}
