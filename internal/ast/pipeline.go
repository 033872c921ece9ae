package ast

import (
	"fmt"
	"strings"
)

// Scan is one element of a `from`/`exists`/`forall` head: `p in e`, `p = e`,
// or a bare `v` (shorthand for `v in <implicit extent>`, resolved by the
// extent solver in internal/normalize).
type Scan struct {
	Pattern Pattern
	Source  Expr // nil for a bare-variable scan awaiting extent solving
	Pos     Pos
}

// StepKind tags the variant held by Step.
type StepKind int

const (
	StepWhere StepKind = iota
	StepJoin
	StepGroup
	StepOrder
	StepTake
	StepSkip
	StepDistinct
	StepUnorder
	StepYield
	StepThrough
	StepCompute
	StepInto
	StepRequire
	StepUnion
	StepIntersect
	StepExcept
)

// OrderKey is one `expr [DESC]` entry in an `order` step.
type OrderKey struct {
	Expr Expr
	Desc bool
}

// SetOperand is one source collection in a `union`/`intersect`/`except`
// step, optionally prefixed by `distinct`.
type SetOperand struct {
	Source   Expr
	Distinct bool
}

// Step is one pipeline stage. Exactly one of the xxxField members is
// populated, selected by Kind: steps differ by a small discriminant rather
// than by distinct node shapes, so a single struct with an explicit enum
// beats one interface implementation per step kind.
type Step struct {
	Kind StepKind
	Pos  Pos

	// StepWhere / StepRequire
	Cond Expr

	// StepJoin
	JoinScans []Scan
	JoinOn    Expr // optional

	// StepGroup
	GroupKey     Expr
	ComputeSpecs []AggSpec // optional `compute` attached to `group`

	// StepOrder
	OrderKeys []OrderKey

	// StepTake / StepSkip
	CountExpr Expr

	// StepYield
	YieldExpr Expr

	// StepThrough
	ThroughPattern Pattern
	ThroughFn      Expr

	// StepCompute (terminal aggregate, no `group`)
	Aggs []AggSpec

	// StepInto (terminal materializer)
	IntoFn Expr

	// StepUnion / StepIntersect / StepExcept
	SetOperands []SetOperand
}

// AggSpec is one `name = aggregator of expr` entry, or a single `aggregator
// over expr` in a bare `compute` step.
type AggSpec struct {
	Name string // "" for the single-aggregate `compute agg over expr` form
	Agg  string // sum, count, avg, min, max,...
	Expr Expr
}

func (s Scan) String() string {
	if s.Source == nil {
		return s.Pattern.String()
	}
	return fmt.Sprintf("%s in %s", s.Pattern, s.Source)
}

func (st Step) String() string {
	switch st.Kind {
	case StepWhere:
		return fmt.Sprintf("where %s", st.Cond)
	case StepRequire:
		return fmt.Sprintf("require %s", st.Cond)
	case StepYield:
		return fmt.Sprintf("yield %s", st.YieldExpr)
	default:
		return "<step>"
	}
}

// PipelineExpr is the shared shape of `from`, `exists`, and `forall`: all
// three carry the same head-scan list and step grammar.
type PipelineExpr struct {
	Kind  PipelineKind
	Head  []Scan
	Steps []Step
	Pos   Pos
}

type PipelineKind int

const (
	PipelineFrom PipelineKind = iota
	PipelineExists
	PipelineForall
)

func (p *PipelineExpr) exprNode()     {}
func (p *PipelineExpr) Position() Pos { return p.Pos }
func (p *PipelineExpr) String() string {
	head := make([]string, len(p.Head))
	for i, s := range p.Head {
		head[i] = s.String()
	}
	kw := "from"
	switch p.Kind {
	case PipelineExists:
		kw = "exists"
	case PipelineForall:
		kw = "forall"
	}
	steps := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		steps[i] = s.String()
	}
	return fmt.Sprintf("%s %s %s", kw, strings.Join(head, ", "), strings.Join(steps, " "))
}
