package eval

import (
	"testing"

	"github.com/deepsen/smli/internal/backend"
	"github.com/deepsen/smli/internal/core"
)

// planFrom builds a From node carrying a pushed-down plan over source, the
// shape internal/normalize's push-down pass produces.
func planFrom(kind core.PipelineKind, source core.CoreExpr, build func([]backend.Row) *backend.Plan) *core.From {
	return &core.From{
		Kind: kind,
		Plan: &core.BackendPlan{Source: source, RowVar: "r", Build: build},
	}
}

func TestBackendPlanRoundTrip(t *testing.T) {
	f := planFrom(core.PipelineFrom, intList(1, 5, 2), func(rows []backend.Row) *backend.Plan {
		return &backend.Plan{Root: &backend.FilterOp{
			Input: &backend.ScanOp{Rows: rows},
			Pred: &backend.BinExpr{Op: "<",
				Left:  backend.FieldRef{Name: "_value"},
				Right: backend.Const{Value: int64(3)}},
		}}
	})
	wantIntList(t, mustEval(t, f), 1, 2)
}

func TestBackendPlanRecordRows(t *testing.T) {
	rows := &core.List{Elements: []core.CoreExpr{
		&core.Record{Fields: map[string]core.CoreExpr{"a": intLit(1), "b": intLit(2)}},
	}}
	f := planFrom(core.PipelineFrom, rows, func(rs []backend.Row) *backend.Plan {
		return &backend.Plan{Root: &backend.ProjectOp{
			Input:  &backend.ScanOp{Rows: rs},
			Fields: map[string]backend.ScalarExpr{"a": backend.FieldRef{Name: "a"}},
		}}
	})
	lv := mustEval(t, f).(*ListValue)
	if len(lv.Elems) != 1 || Print(lv.Elems[0]) != "{a = 1}" {
		t.Fatalf("record rows should decode back to records, got %s", Print(lv))
	}
}

func TestBackendPlanExists(t *testing.T) {
	f := planFrom(core.PipelineExists, intList(1), func(rows []backend.Row) *backend.Plan {
		return &backend.Plan{Root: &backend.ScanOp{Rows: rows}}
	})
	if got := mustEval(t, f).(BoolValue); !got.V {
		t.Fatalf("exists over a non-empty plan result should be true")
	}
}

func TestBackendPlanTerminalCompute(t *testing.T) {
	f := planFrom(core.PipelineFrom, intList(1, 2, 3), func(rows []backend.Row) *backend.Plan {
		return &backend.Plan{Root: &backend.GroupOp{
			Input:     &backend.ScanOp{Rows: rows},
			KeyFields: map[string]backend.ScalarExpr{},
			Aggs:      []backend.AggSpec{{Name: "_value", Agg: "sum", Expr: backend.FieldRef{Name: "_value"}}},
		}}
	})
	f.Plan.Terminal = true
	wantInt(t, mustEval(t, f), 6)
}

func TestBackendPlanUnorderedWrapsBag(t *testing.T) {
	f := planFrom(core.PipelineFrom, intList(1, 2), func(rows []backend.Row) *backend.Plan {
		return &backend.Plan{Root: &backend.ScanOp{Rows: rows}}
	})
	f.Plan.Unordered = true
	if _, ok := mustEval(t, f).(*BagValue); !ok {
		t.Fatalf("an unordered pushed pipeline must come back as a bag")
	}
}
