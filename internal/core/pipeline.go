package core

import (
	"fmt"
	"strings"

	"github.com/deepsen/smli/internal/backend"
)

// From is the lowered form of a `from`/`exists`/`forall` pipeline. Scan
// sources and step expressions hold their lowered sub-expressions directly;
// the elaborator does not let-bind them ahead of the From node. The step vector mirrors ast.Step's tagged-variant shape so the
// normalizer can rewrite steps in place (fuse, reorder, push down) without
// round-tripping through the surface grammar.
type From struct {
	CoreNode
	Kind  PipelineKind
	Head  []Scan
	Steps []Step

	// Plan is set by the normalizer's backend push-down pass when some or
	// all of Steps have been compiled to an opaque BackendPlan. When non-nil, execution runs Plan and then
	// continues the remaining Steps (if any) over its result.
	Plan *BackendPlan
}

func (f *From) coreExpr() {}
func (f *From) String() string {
	heads := make([]string, len(f.Head))
	for i, s := range f.Head {
		heads[i] = s.String()
	}
	steps := make([]string, len(f.Steps))
	for i, s := range f.Steps {
		steps[i] = s.String()
	}
	kw := "from"
	switch f.Kind {
	case PipelineExists:
		kw = "exists"
	case PipelineForall:
		kw = "forall"
	}
	return fmt.Sprintf("%s %s %s", kw, strings.Join(heads, ", "), strings.Join(steps, " "))
}

// PipelineKind mirrors ast.PipelineKind at the core level.
type PipelineKind int

const (
	PipelineFrom PipelineKind = iota
	PipelineExists
	PipelineForall
)

// Scan is a core-level `p in e` (or a bare pattern awaiting extent solving,
// Source == nil, resolved to a concrete Source by internal/normalize before
// evaluation ever sees it).
type Scan struct {
	Pattern CorePattern
	Source  CoreExpr
}

func (s Scan) String() string {
	if s.Source == nil {
		return s.Pattern.String()
	}
	return fmt.Sprintf("%s in %s", s.Pattern, s.Source)
}

// StepKind tags the variant held by Step, mirroring ast.StepKind.
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
	Expr CoreExpr
	Desc bool
}

// SetOperand is one source in a `union`/`intersect`/`except` step.
type SetOperand struct {
	Source   CoreExpr
	Distinct bool
}

// AggSpec is one `name = aggregator of expr` entry (or the single aggregator
// of a bare `compute agg over expr`), lowered from ast.AggSpec.
type AggSpec struct {
	Name string
	Agg  string
	Expr CoreExpr
}

// GroupField is one named key column of a `group` step. The name is derived
// by the inferencer from the surface key expression (`e.a` contributes `a`,
// a bare `x` contributes `x`, a record literal contributes its labels).
type GroupField struct {
	Name string
	Expr CoreExpr
}

// Step is the core-level lowering of ast.Step: exactly one field group is
// populated, selected by Kind.
type Step struct {
	Kind StepKind

	// StepWhere / StepRequire
	Cond CoreExpr

	// StepJoin
	JoinScans []Scan
	JoinOn    CoreExpr

	// StepGroup
	GroupFields  []GroupField
	ComputeSpecs []AggSpec

	// StepOrder
	OrderKeys []OrderKey

	// StepTake / StepSkip
	CountExpr CoreExpr

	// StepYield
	YieldExpr CoreExpr

	// StepThrough
	ThroughPattern CorePattern
	ThroughFn      CoreExpr

	// StepCompute
	Aggs []AggSpec

	// StepInto
	IntoFn CoreExpr

	// StepUnion / StepIntersect / StepExcept
	SetOperands []SetOperand
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

// BackendPlan is the opaque relational-plan node produced by backend
// push-down. Its contents
// are not interpreted by the core evaluator directly; it is handed to an
// internal/backend.Backend implementation, which returns a sequence of
// result rows that a remaining From tail (if any) continues over.
type BackendPlan struct {
	// Encoded is the deterministic JSON plan/type-descriptor produced by
	// internal/backend's encoder, ready to hand to an external engine.
	Encoded []byte
	// ResultPattern binds each produced row before any trailing Steps run.
	ResultPattern CorePattern
	// ResultType names the element type backend rows are decoded into,
	// using internal/backend's own type-descriptor vocabulary so this
	// package does not need to import internal/types.
	ResultType string

	// Source is the pipeline's original head-scan expression: the
	// evaluator materializes it into values, converts those into
	// backend.Row data, and hands them to Build.
	Source CoreExpr
	// RowVar names the head scan's pattern variable, the only free name
	// Build's translated scalar expressions may reference.
	RowVar string
	// Unordered records whether the pushed pipeline carried an `unorder`
	// step, so the evaluator wraps Build's result in the right collection
	// kind.
	Unordered bool
	// Terminal marks a pipeline ending in a `compute` step: the backend's
	// single result row decodes to the pipeline's value itself rather than
	// to a one-element collection.
	Terminal bool
	// Build constructs the executable Op tree once concrete rows are
	// available; the normalizer cannot build it itself since push-down
	// runs over static core terms, before any row data exists.
	Build func(rows []backend.Row) *backend.Plan
}

func (p *BackendPlan) String() string { return "backend-plan" }
