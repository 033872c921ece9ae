package normalize

import (
	"testing"

	"github.com/deepsen/smli/internal/backend"
	"github.com/deepsen/smli/internal/core"
)

func filterYieldPipeline() *core.From {
	r := varRef("r")
	return &core.From{
		Kind: core.PipelineFrom,
		Head: []core.Scan{scanOf("r", varRef("rows"))},
		Steps: []core.Step{
			{Kind: core.StepWhere, Cond: &core.BinOp{Op: "<",
				Left:  &core.RecordAccess{Record: r, Field: "a"},
				Right: intLit(3)}},
			{Kind: core.StepYield, YieldExpr: &core.RecordAccess{Record: r, Field: "a"}},
		},
	}
}

func TestPushDownDisabledWithoutHybrid(t *testing.T) {
	got := pushDown(filterYieldPipeline(), false)
	if got.Plan != nil {
		t.Fatalf("push-down must be off when hybrid mode is off")
	}
}

func TestPushDownFilterProject(t *testing.T) {
	got := pushDown(filterYieldPipeline(), true)
	if got.Plan == nil {
		t.Fatalf("eligible pipeline was not pushed down")
	}
	plan := got.Plan.Build([]backend.Row{
		{"a": int64(1)},
		{"a": int64(5)},
		{"a": int64(2)},
	})
	rows, err := backend.Reference{}.Execute(*plan)
	if err != nil {
		t.Fatalf("reference backend failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 surviving rows, got %d", len(rows))
	}
	if rows[0]["_value"] != int64(1) || rows[1]["_value"] != int64(2) {
		t.Fatalf("projected values wrong: %v", rows)
	}
}

func TestPushDownGroupCompute(t *testing.T) {
	r := varRef("r")
	f := &core.From{
		Kind: core.PipelineFrom,
		Head: []core.Scan{scanOf("r", varRef("rows"))},
		Steps: []core.Step{{
			Kind:        core.StepGroup,
			GroupFields: []core.GroupField{{Name: "a", Expr: &core.RecordAccess{Record: r, Field: "a"}}},
			ComputeSpecs: []core.AggSpec{{Name: "sb", Agg: "sum",
				Expr: &core.RecordAccess{Record: r, Field: "b"}}},
		}},
	}
	got := pushDown(f, true)
	if got.Plan == nil {
		t.Fatalf("group/compute pipeline was not pushed down")
	}
	plan := got.Plan.Build([]backend.Row{
		{"a": int64(2), "b": int64(3)},
		{"a": int64(2), "b": int64(1)},
		{"a": int64(1), "b": int64(1)},
	})
	rows, err := backend.Reference{}.Execute(*plan)
	if err != nil {
		t.Fatalf("reference backend failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 groups, got %d: %v", len(rows), rows)
	}
	if rows[0]["a"] != int64(2) || rows[0]["sb"] != int64(4) {
		t.Fatalf("first group wrong: %v", rows[0])
	}
}

func TestPushDownRequireNegates(t *testing.T) {
	f := &core.From{
		Kind: core.PipelineForall,
		Head: []core.Scan{scanOf("r", varRef("rows"))},
		Steps: []core.Step{{Kind: core.StepRequire,
			Cond: &core.BinOp{Op: ">",
				Left:  &core.RecordAccess{Record: varRef("r"), Field: "a"},
				Right: intLit(0)}}},
	}
	got := pushDown(f, true)
	if got.Plan == nil {
		t.Fatalf("require pipeline was not pushed down")
	}
	plan := got.Plan.Build([]backend.Row{
		{"a": int64(1)},
		{"a": int64(-2)},
	})
	rows, err := backend.Reference{}.Execute(*plan)
	if err != nil {
		t.Fatalf("reference backend failed: %v", err)
	}
	// The pushed plan keeps the rows VIOLATING the requirement.
	if len(rows) != 1 || rows[0]["a"] != int64(-2) {
		t.Fatalf("require must keep violating rows only, got %v", rows)
	}
}

func TestPushDownBailsOnIntoStep(t *testing.T) {
	f := &core.From{
		Kind: core.PipelineFrom,
		Head: []core.Scan{scanOf("r", varRef("rows"))},
		Steps: []core.Step{
			{Kind: core.StepInto, IntoFn: varRef("f")},
		},
	}
	if got := pushDown(f, true); got.Plan != nil {
		t.Fatalf("into needs a function value; the pipeline must stay in the evaluator")
	}
}

func TestPushDownBailsOnOpaqueExpression(t *testing.T) {
	f := &core.From{
		Kind: core.PipelineFrom,
		Head: []core.Scan{scanOf("r", varRef("rows"))},
		Steps: []core.Step{
			{Kind: core.StepWhere, Cond: &core.App{Func: varRef("p"), Args: []core.CoreExpr{varRef("r")}}},
		},
	}
	if got := pushDown(f, true); got.Plan != nil {
		t.Fatalf("a function-call predicate is outside the backend's scalar language")
	}
}

func TestPushDownTerminalComputeFlag(t *testing.T) {
	f := &core.From{
		Kind: core.PipelineFrom,
		Head: []core.Scan{scanOf("r", varRef("rows"))},
		Steps: []core.Step{{Kind: core.StepCompute,
			Aggs: []core.AggSpec{{Agg: "sum", Expr: varRef("r")}}}},
	}
	got := pushDown(f, true)
	if got.Plan == nil || !got.Plan.Terminal {
		t.Fatalf("a terminal compute must mark the plan Terminal")
	}
	plan := got.Plan.Build([]backend.Row{
		{"_value": int64(1)}, {"_value": int64(2)}, {"_value": int64(3)},
	})
	rows, err := backend.Reference{}.Execute(*plan)
	if err != nil {
		t.Fatalf("reference backend failed: %v", err)
	}
	if len(rows) != 1 || rows[0]["_value"] != int64(6) {
		t.Fatalf("sum compute wrong: %v", rows)
	}
}
