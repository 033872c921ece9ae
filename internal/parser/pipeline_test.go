package parser

import (
	"testing"

	"github.com/deepsen/smli/internal/ast"
)

func TestFromScanInAndWhereYield(t *testing.T) {
	prog := mustParse(t, "from e in people where e.age > 18 yield e.name")
	pe, ok := singleExprDecl(t, prog).(*ast.PipelineExpr)
	if !ok {
		t.Fatalf("expected *ast.PipelineExpr, got %T", singleExprDecl(t, prog))
	}
	if pe.Kind != ast.PipelineFrom {
		t.Errorf("expected PipelineFrom, got %v", pe.Kind)
	}
	if len(pe.Head) != 1 || pe.Head[0].Source == nil {
		t.Fatalf("expected 1 scan with a source, got %#v", pe.Head)
	}
	if len(pe.Steps) != 2 {
		t.Fatalf("expected 2 steps (where, yield), got %d", len(pe.Steps))
	}
	if pe.Steps[0].Kind != ast.StepWhere {
		t.Errorf("expected first step StepWhere, got %v", pe.Steps[0].Kind)
	}
	if pe.Steps[1].Kind != ast.StepYield {
		t.Errorf("expected second step StepYield, got %v", pe.Steps[1].Kind)
	}
}

func TestExistsPipeline(t *testing.T) {
	prog := mustParse(t, "exists e in people where e.age > 100")
	pe, ok := singleExprDecl(t, prog).(*ast.PipelineExpr)
	if !ok || pe.Kind != ast.PipelineExists {
		t.Fatalf("expected PipelineExists, got %#v", singleExprDecl(t, prog))
	}
}

func TestForallRequire(t *testing.T) {
	prog := mustParse(t, "forall e in people require e.age >= 0")
	pe, ok := singleExprDecl(t, prog).(*ast.PipelineExpr)
	if !ok || pe.Kind != ast.PipelineForall {
		t.Fatalf("expected PipelineForall, got %#v", singleExprDecl(t, prog))
	}
	if pe.Steps[len(pe.Steps)-1].Kind != ast.StepRequire {
		t.Errorf("expected last step StepRequire, got %v", pe.Steps[len(pe.Steps)-1].Kind)
	}
}

func TestGroupWithNamedCompute(t *testing.T) {
	prog := mustParse(t, "from e in people group e.dept compute sb = sum of e.salary, sc = count of e.id")
	pe := singleExprDecl(t, prog).(*ast.PipelineExpr)
	if pe.Steps[0].Kind != ast.StepGroup {
		t.Fatalf("expected StepGroup, got %v", pe.Steps[0].Kind)
	}
	specs := pe.Steps[0].ComputeSpecs
	if len(specs) != 2 {
		t.Fatalf("expected 2 compute specs, got %d", len(specs))
	}
	if specs[0].Name != "sb" || specs[0].Agg != "sum" {
		t.Errorf("unexpected first spec: %#v", specs[0])
	}
	if specs[1].Name != "sc" || specs[1].Agg != "count" {
		t.Errorf("unexpected second spec: %#v", specs[1])
	}
}

func TestBareComputeOverForm(t *testing.T) {
	prog := mustParse(t, "from i in xs compute sum over i")
	pe := singleExprDecl(t, prog).(*ast.PipelineExpr)
	if pe.Steps[0].Kind != ast.StepCompute {
		t.Fatalf("expected StepCompute, got %v", pe.Steps[0].Kind)
	}
	aggs := pe.Steps[0].Aggs
	if len(aggs) != 1 || aggs[0].Name != "" || aggs[0].Agg != "sum" {
		t.Fatalf("expected one bare sum-over spec, got %#v", aggs)
	}
}

func TestOrderByWithDesc(t *testing.T) {
	prog := mustParse(t, "from e in people order e.age DESC, e.name")
	pe := singleExprDecl(t, prog).(*ast.PipelineExpr)
	keys := pe.Steps[0].OrderKeys
	if len(keys) != 2 {
		t.Fatalf("expected 2 order keys, got %d", len(keys))
	}
	if !keys[0].Desc {
		t.Errorf("expected first key DESC")
	}
	if keys[1].Desc {
		t.Errorf("expected second key ascending")
	}
}

func TestTakeSkipDistinctUnorder(t *testing.T) {
	prog := mustParse(t, "from e in people distinct take 10 skip 2 unorder")
	pe := singleExprDecl(t, prog).(*ast.PipelineExpr)
	if len(pe.Steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(pe.Steps))
	}
	kinds := []ast.StepKind{ast.StepDistinct, ast.StepTake, ast.StepSkip, ast.StepUnorder}
	for i, want := range kinds {
		if pe.Steps[i].Kind != want {
			t.Errorf("step %d: expected %v, got %v", i, want, pe.Steps[i].Kind)
		}
	}
}

func TestJoinOnClause(t *testing.T) {
	prog := mustParse(t, "from e in people join d in depts on e.dept = d.id yield d.name")
	pe := singleExprDecl(t, prog).(*ast.PipelineExpr)
	if pe.Steps[0].Kind != ast.StepJoin {
		t.Fatalf("expected StepJoin, got %v", pe.Steps[0].Kind)
	}
	if len(pe.Steps[0].JoinScans) != 1 || pe.Steps[0].JoinOn == nil {
		t.Fatalf("expected 1 join scan with an 'on' clause, got %#v", pe.Steps[0])
	}
}

func TestUnionIntersectExceptWithDistinct(t *testing.T) {
	prog := mustParse(t, "from x in xs union distinct ys, zs")
	pe := singleExprDecl(t, prog).(*ast.PipelineExpr)
	if pe.Steps[0].Kind != ast.StepUnion {
		t.Fatalf("expected StepUnion, got %v", pe.Steps[0].Kind)
	}
	ops := pe.Steps[0].SetOperands
	if len(ops) != 2 {
		t.Fatalf("expected 2 set operands, got %d", len(ops))
	}
	if !ops[0].Distinct {
		t.Errorf("expected first operand marked distinct")
	}
	if ops[1].Distinct {
		t.Errorf("expected second operand not marked distinct")
	}
}

func TestThroughStep(t *testing.T) {
	prog := mustParse(t, "from x in xs through y in normalize yield y")
	pe := singleExprDecl(t, prog).(*ast.PipelineExpr)
	if pe.Steps[0].Kind != ast.StepThrough {
		t.Fatalf("expected StepThrough, got %v", pe.Steps[0].Kind)
	}
	if _, ok := pe.Steps[0].ThroughPattern.(*ast.Ident); !ok {
		t.Errorf("expected through pattern to be Ident(y), got %T", pe.Steps[0].ThroughPattern)
	}
}

func TestIntoStep(t *testing.T) {
	prog := mustParse(t, "from x in xs into toSet")
	pe := singleExprDecl(t, prog).(*ast.PipelineExpr)
	if pe.Steps[0].Kind != ast.StepInto {
		t.Fatalf("expected StepInto, got %v", pe.Steps[0].Kind)
	}
}

func TestBareVariableScanAwaitsExtentSolving(t *testing.T) {
	prog := mustParse(t, "from e where e.age > 0 yield e.name")
	pe := singleExprDecl(t, prog).(*ast.PipelineExpr)
	if pe.Head[0].Source != nil {
		t.Fatalf("expected nil Source on a bare-variable scan, got %#v", pe.Head[0].Source)
	}
}

func TestScanWithEqualsForm(t *testing.T) {
	prog := mustParse(t, "from total = sumAll yield total")
	pe := singleExprDecl(t, prog).(*ast.PipelineExpr)
	if pe.Head[0].Source == nil {
		t.Fatalf("expected a Source for the '=' scan form")
	}
}

func TestMultipleScansInHead(t *testing.T) {
	prog := mustParse(t, "from e in people, d in depts where e.dept = d.id yield e.name")
	pe := singleExprDecl(t, prog).(*ast.PipelineExpr)
	if len(pe.Head) != 2 {
		t.Fatalf("expected 2 scans in head, got %d", len(pe.Head))
	}
}
