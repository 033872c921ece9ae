package normalize

import (
	"testing"

	"github.com/deepsen/smli/internal/core"
	"github.com/deepsen/smli/internal/errors"
	"github.com/deepsen/smli/internal/types"
)

func bareScan(name string) core.Scan {
	return core.Scan{Pattern: &core.VarPattern{Name: name}}
}

func typeTable(m map[string]types.Type) TypeOf {
	return func(name string) (types.Type, bool) {
		t, ok := m[name]
		return t, ok
	}
}

func solvedHead(t *testing.T, f *core.From, opts Options) core.Scan {
	t.Helper()
	got, reports := Normalize(f, opts)
	if len(reports) != 0 {
		t.Fatalf("unexpected reports: %v", reports)
	}
	solved, ok := got.(*core.From)
	if !ok {
		t.Fatalf("expected a From back, got %T", got)
	}
	if len(solved.Head) == 0 || solved.Head[0].Source == nil {
		t.Fatalf("scan source not solved: %s", solved)
	}
	return solved.Head[0]
}

func TestBoolExtent(t *testing.T) {
	f := &core.From{
		Kind:  core.PipelineFrom,
		Head:  []core.Scan{bareScan("b")},
		Steps: []core.Step{{Kind: core.StepWhere, Cond: varRef("b")}},
	}
	sc := solvedHead(t, f, Options{TypeOf: typeTable(map[string]types.Type{"b": types.Bool})})
	list, ok := sc.Source.(*core.List)
	if !ok || len(list.Elements) != 2 {
		t.Fatalf("bool extent should be the two-element list, got %s", sc.Source)
	}
}

func TestUnitExtent(t *testing.T) {
	f := &core.From{Kind: core.PipelineFrom, Head: []core.Scan{bareScan("u")}}
	sc := solvedHead(t, f, Options{TypeOf: typeTable(map[string]types.Type{"u": types.Unit})})
	list, ok := sc.Source.(*core.List)
	if !ok || len(list.Elements) != 1 {
		t.Fatalf("unit extent should be the one-element list, got %s", sc.Source)
	}
}

func TestEnumDatatypeExtent(t *testing.T) {
	env := types.NewEnv().ExtendDatatype(&types.Datatype{
		Name: "color",
		Constructors: []types.DatatypeCtor{
			{Name: "Red"}, {Name: "Green"}, {Name: "Blue"},
		},
	})
	f := &core.From{Kind: core.PipelineFrom, Head: []core.Scan{bareScan("c")}}
	sc := solvedHead(t, f, Options{
		Env:    env,
		TypeOf: typeTable(map[string]types.Type{"c": &types.TCon{Name: "color"}}),
	})
	list, ok := sc.Source.(*core.List)
	if !ok || len(list.Elements) != 3 {
		t.Fatalf("enum extent should list every constructor, got %s", sc.Source)
	}
}

func TestOptionOfBoolExtent(t *testing.T) {
	f := &core.From{Kind: core.PipelineFrom, Head: []core.Scan{bareScan("o")}}
	sc := solvedHead(t, f, Options{
		TypeOf: typeTable(map[string]types.Type{"o": &types.TOption{Elem: types.Bool}}),
	})
	list, ok := sc.Source.(*core.List)
	if !ok || len(list.Elements) != 3 {
		t.Fatalf("bool option extent is NONE, SOME true, SOME false; got %s", sc.Source)
	}
	if ctor, ok := list.Elements[0].(*core.ConstructorApp); !ok || ctor.Name != "NONE" {
		t.Fatalf("first element should be NONE, got %s", list.Elements[0])
	}
}

func TestTupleExtentIsCartesianProduct(t *testing.T) {
	f := &core.From{Kind: core.PipelineFrom, Head: []core.Scan{bareScan("p")}}
	sc := solvedHead(t, f, Options{
		TypeOf: typeTable(map[string]types.Type{"p": &types.TTuple{Elems: []types.Type{types.Bool, types.Bool}}}),
	})
	list, ok := sc.Source.(*core.List)
	if !ok || len(list.Elements) != 4 {
		t.Fatalf("bool*bool extent should have 4 tuples, got %s", sc.Source)
	}
}

func TestElemPredicateNarrowsExtent(t *testing.T) {
	src := varRef("xs")
	f := &core.From{
		Kind: core.PipelineFrom,
		Head: []core.Scan{bareScan("x")},
		Steps: []core.Step{{Kind: core.StepWhere,
			Cond: &core.BinOp{Op: "elem", Left: varRef("x"), Right: src}}},
	}
	sc := solvedHead(t, f, Options{TypeOf: typeTable(map[string]types.Type{"x": types.Int})})
	if v, ok := sc.Source.(*core.Var); !ok || v.Name != "xs" {
		t.Fatalf("elem predicate should supply the scan source, got %s", sc.Source)
	}
}

func TestEqualityPredicateNarrowsToSingleton(t *testing.T) {
	f := &core.From{
		Kind: core.PipelineFrom,
		Head: []core.Scan{bareScan("x")},
		Steps: []core.Step{{Kind: core.StepWhere,
			Cond: &core.BinOp{Op: "=", Left: varRef("x"), Right: intLit(5)}}},
	}
	sc := solvedHead(t, f, Options{TypeOf: typeTable(map[string]types.Type{"x": types.Int})})
	list, ok := sc.Source.(*core.List)
	if !ok || len(list.Elements) != 1 {
		t.Fatalf("equality should narrow the extent to a singleton, got %s", sc.Source)
	}
}

func TestUnboundedExtentIsDiagnosed(t *testing.T) {
	f := &core.From{
		Kind: core.PipelineFrom,
		Head: []core.Scan{bareScan("n")},
		Steps: []core.Step{{Kind: core.StepWhere,
			Cond: &core.BinOp{Op: ">", Left: varRef("n"), Right: intLit(0)}}},
	}
	_, reports := Normalize(f, Options{TypeOf: typeTable(map[string]types.Type{"n": types.Int})})
	if len(reports) != 1 {
		t.Fatalf("expected one unbounded-extent report, got %d", len(reports))
	}
	if reports[0].Code != errors.NM001 {
		t.Fatalf("expected NM001, got %s", reports[0].Code)
	}
}

func TestRecursiveDatatypeHasNoExtent(t *testing.T) {
	env := types.NewEnv().ExtendDatatype(&types.Datatype{
		Name: "nat",
		Constructors: []types.DatatypeCtor{
			{Name: "Zero"},
			{Name: "Succ", ArgType: &types.TCon{Name: "nat"}},
		},
	})
	f := &core.From{Kind: core.PipelineFrom, Head: []core.Scan{bareScan("n")}}
	_, reports := Normalize(f, Options{
		Env:    env,
		TypeOf: typeTable(map[string]types.Type{"n": &types.TCon{Name: "nat"}}),
	})
	if len(reports) != 1 {
		t.Fatalf("recursive datatype must be diagnosed as unbounded, got %d reports", len(reports))
	}
}
