// Package infer implements the Resolver & Type Inferencer
// fused with core lowering: one pass walks the surface AST,
// assigns Hindley-Milner types with let-polymorphism, and simultaneously
// builds the typed core calculus the evaluator runs. Rather than walk the
// tree twice, Infer returns the core program directly plus one
// types.Scheme per top-level declaration for the REPL's `name: type` print.
package infer

import (
	"fmt"

	"github.com/deepsen/smli/internal/ast"
	"github.com/deepsen/smli/internal/core"
	"github.com/deepsen/smli/internal/errors"
	"github.com/deepsen/smli/internal/types"
)

// Result is one top-level unit's outcome: its lowered core form plus the
// name(s)/schemes it binds, for REPL display.
type Result struct {
	Decl     core.CoreExpr
	Bindings []Binding
}

// Binding names one value a top-level unit introduces, with its generalized
// type for display.
type Binding struct {
	Name   string
	Scheme *types.Scheme
}

// Resolver loads and infers a `use`-d source unit, returning the core
// declarations it produces in the order given. The REPL
// wires this to internal/loader; Inferencer itself has no file-system
// access.
type Resolver interface {
	Resolve(path string) ([]Result, error)
}

// Inferencer carries the mutable state of one compile unit: its fresh
// type-variable counter,
// the running environment, and the diagnostics collected so far.
type Inferencer struct {
	tvg         *types.TVarGen
	env         *types.Env
	reports     []*errors.Report
	nextNodeID  uint64
	typeAliases map[string]aliasDef
	scanTypes   map[string]types.Type // bare-scan variable -> inferred meta-type
	finalSub    types.Substitution
	UseResolver Resolver
	UseDepth    int
	MaxUseDepth int
}

type aliasDef struct {
	params []string
	def    ast.TypeExpr
}

// New creates an Inferencer with a fresh environment seeded with the
// built-in exception names.
func New() *Inferencer {
	inf := &Inferencer{
		tvg:         types.NewTVarGen(),
		env:         types.NewEnv(),
		typeAliases: map[string]aliasDef{},
		scanTypes:   map[string]types.Type{},
		finalSub:    types.Substitution{},
		MaxUseDepth: 16,
	}
	for _, exn := range []string{"Match", "Bind", "Div", "Overflow", "Subscript", "Domain", "Size", "Chr", "Empty"} {
		inf.env = inf.env.Extend(exn, &types.ExceptionBinding{})
	}
	inf.env = inf.env.Extend("Error", &types.ExceptionBinding{ArgType: types.String})
	inf.registerBuiltins()
	return inf
}

// Env exposes the running environment, for the REPL to seed a subsequent
// Inferencer when chaining compile units interactively.
func (inf *Inferencer) Env() *types.Env { return inf.env }

// SetEnv replaces the running environment (used by the REPL to resume after
// a prior unit's declarations).
func (inf *Inferencer) SetEnv(e *types.Env) { inf.env = e }

// Reports returns every diagnostic collected so far.
func (inf *Inferencer) Reports() []*errors.Report { return inf.reports }

func (inf *Inferencer) errf(code string, span *ast.Span, format string, args ...interface{}) {
	inf.reports = append(inf.reports, errors.NewType(code, span, fmt.Sprintf(format, args...), nil))
}

func (inf *Inferencer) spanOf(p ast.Pos) *ast.Span { return &ast.Span{Start: p, End: p} }

func (inf *Inferencer) freshVar() *types.TVar { return inf.tvg.Fresh() }

func (inf *Inferencer) nodeID() uint64 {
	inf.nextNodeID++
	return inf.nextNodeID
}

func (inf *Inferencer) node(p ast.Pos) core.CoreNode {
	return core.CoreNode{NodeID: inf.nodeID(), CoreSpan: p, OrigSpan: p}
}

// unify wraps types.Unify, recording a TY001 diagnostic on failure. sub is
// returned unchanged (the caller's prior substitution) when unification
// fails, so inference can keep walking to find further errors.
func (inf *Inferencer) unify(sub types.Substitution, a, b types.Type, span ast.Pos) types.Substitution {
	next, err := types.Unify(sub, a, b)
	if err != nil {
		if ue, ok := err.(*types.UnifyError); ok {
			detail := ue.Detail
			if detail == "occurs check failed" {
				inf.errf(errors.TY010, inf.spanOf(span), "infinite type: %s occurs in %s", ue.Left, ue.Right)
			} else {
				inf.errf(errors.TY001, inf.spanOf(span), "cannot unify %s with %s", ue.Left, ue.Right)
			}
		} else {
			inf.errf(errors.TY001, inf.spanOf(span), "%s", err.Error())
		}
		return sub
	}
	return next
}

// InferProgram type-checks and lowers every declaration in prog, threading
// the environment through in order.
func (inf *Inferencer) InferProgram(prog *ast.Program) []Result {
	var out []Result
	var sub types.Substitution = types.Substitution{}
	// Group consecutive ValRecDecl/FunDecl entries sharing a RecGroup id so
	// `and`-chains are inferred together as one LetRec.
	decls := prog.Decls
	for i := 0; i < len(decls); i++ {
		d := decls[i]
		if vals, consumed := valGroupAt(decls, i); consumed > 1 {
			r, s := inf.inferValGroup(vals, sub)
			sub = s
			out = append(out, r)
			i += consumed - 1
			continue
		}
		group, consumed := inf.recGroupAt(decls, i)
		if consumed > 1 {
			r, s := inf.inferRecGroup(group, sub)
			sub = s
			out = append(out, r)
			i += consumed - 1
			continue
		}
		r, s := inf.inferDecl(d, sub)
		sub = s
		if r != nil {
			out = append(out, *r)
		}
	}
	inf.finalSub = sub
	return out
}

// valGroupAt collects the maximal run of plain ValDecls starting at i that
// share the same nonzero AndGroup id (a `val p1 = e1 and p2 = e2...`
// chain), returning the run and its length (1 when d is not part of one).
func valGroupAt(decls []ast.Decl, i int) ([]*ast.ValDecl, int) {
	first, ok := decls[i].(*ast.ValDecl)
	if !ok || first.AndGroup == 0 {
		return nil, 1
	}
	out := []*ast.ValDecl{first}
	j := i + 1
	for j < len(decls) {
		d, ok := decls[j].(*ast.ValDecl)
		if !ok || d.AndGroup != first.AndGroup {
			break
		}
		out = append(out, d)
		j++
	}
	return out, j - i
}

// ScanTypeOf resolves the static type inferred for a bare scan variable
// (`from v where P`, no `in` source), for the normalizer's extent solver.
// Only meaningful after InferProgram has returned.
func (inf *Inferencer) ScanTypeOf(name string) (types.Type, bool) {
	t, ok := inf.scanTypes[name]
	if !ok {
		return nil, false
	}
	return types.ApplySubst(inf.finalSub, t), true
}

// recGroupAt collects the maximal run of ValRecDecl/FunDecl starting at i
// that share the same RecGroup id, returning the run and its length (1 if d
// is not part of a recursive group at all).
func (inf *Inferencer) recGroupAt(decls []ast.Decl, i int) ([]ast.Decl, int) {
	groupID, ok := recGroupID(decls[i])
	if !ok {
		return decls[i : i+1], 1
	}
	j := i + 1
	for j < len(decls) {
		gid, ok := recGroupID(decls[j])
		if !ok || gid != groupID {
			break
		}
		j++
	}
	return decls[i:j], j - i
}

// isConstructorName reports whether name is lexically a datatype
// constructor or exception name (leading uppercase letter), mirroring
// internal/parser's own pattern/atom disambiguation rule.
func isConstructorName(name string) bool {
	if name == "" {
		return false
	}
	r := name[0]
	return r >= 'A' && r <= 'Z'
}

func recGroupID(d ast.Decl) (int, bool) {
	switch d := d.(type) {
	case *ast.ValRecDecl:
		return d.RecGroup, true
	case *ast.FunDecl:
		return d.RecGroup, true
	}
	return 0, false
}
