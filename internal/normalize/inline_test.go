package normalize

import (
	"math/big"
	"testing"

	"github.com/deepsen/smli/internal/core"
)

func intLit(n int64) *core.Lit {
	return &core.Lit{Kind: core.IntLit, Value: big.NewInt(n)}
}

func varRef(name string) *core.Var {
	return &core.Var{Name: name}
}

func TestInlineDropsDeadPureBinding(t *testing.T) {
	expr := &core.Let{Name: "x", Value: intLit(1), Body: intLit(2)}
	got := Inline(expr, 0)
	lit, ok := got.(*core.Lit)
	if !ok {
		t.Fatalf("dead binding not dropped: %s", got)
	}
	if lit.Value.(*big.Int).Int64() != 2 {
		t.Fatalf("wrong body survived: %s", got)
	}
}

func TestInlineKeepsDeadEffectfulBinding(t *testing.T) {
	raise := &core.Raise{Exn: &core.ConstructorApp{Name: "Div"}}
	expr := &core.Let{Name: "x", Value: raise, Body: intLit(2)}
	got := Inline(expr, 0)
	if _, ok := got.(*core.Let); !ok {
		t.Fatalf("a dead binding whose RHS can raise must be kept, got %s", got)
	}
}

func TestInlineAtomicSubstitutesEverywhere(t *testing.T) {
	expr := &core.Let{
		Name:  "x",
		Value: varRef("y"),
		Body:  &core.BinOp{Op: "+", Left: varRef("x"), Right: varRef("x")},
	}
	got := Inline(expr, 0)
	bin, ok := got.(*core.BinOp)
	if !ok {
		t.Fatalf("atomic binding not inlined: %s", got)
	}
	if l := bin.Left.(*core.Var); l.Name != "y" {
		t.Errorf("left operand not substituted: %s", got)
	}
	if r := bin.Right.(*core.Var); r.Name != "y" {
		t.Errorf("right operand not substituted: %s", got)
	}
}

func TestInlineOnceSafeCall(t *testing.T) {
	call := &core.App{Func: varRef("f"), Args: []core.CoreExpr{intLit(1)}}
	expr := &core.Let{Name: "x", Value: call, Body: varRef("x")}
	got := Inline(expr, 0)
	if _, ok := got.(*core.App); !ok {
		t.Fatalf("single unconditional use of a call must inline: %s", got)
	}
}

func TestInlineKeepsMultiUseCall(t *testing.T) {
	call := &core.App{Func: varRef("f"), Args: []core.CoreExpr{intLit(1)}}
	expr := &core.Let{
		Name:  "x",
		Value: call,
		Body:  &core.BinOp{Op: "+", Left: varRef("x"), Right: varRef("x")},
	}
	got := Inline(expr, 0)
	if _, ok := got.(*core.Let); !ok {
		t.Fatalf("a twice-used call is MULTI_UNSAFE and must stay let-bound: %s", got)
	}
}

func TestInlineKeepsSingleUseUnderLambda(t *testing.T) {
	call := &core.App{Func: varRef("f"), Args: []core.CoreExpr{intLit(1)}}
	expr := &core.Let{
		Name:  "x",
		Value: call,
		Body:  &core.Lambda{Params: []string{"y"}, Body: varRef("x")},
	}
	got := Inline(expr, 0)
	if _, ok := got.(*core.Let); !ok {
		t.Fatalf("a use under a lambda is not ONCE_SAFE and must stay let-bound: %s", got)
	}
}

// Name capture safety: substituting y for x under `fn y => ...`
// would capture; the binding must be kept instead.
func TestInlineAvoidsCapture(t *testing.T) {
	expr := &core.Let{
		Name:  "x",
		Value: varRef("y"),
		Body: &core.Lambda{
			Params: []string{"y"},
			Body:   &core.BinOp{Op: "+", Left: varRef("x"), Right: varRef("y")},
		},
	}
	got := Inline(expr, 0)
	let, ok := got.(*core.Let)
	if !ok {
		t.Fatalf("capture-risky binding must be kept, got %s", got)
	}
	lam := let.Body.(*core.Lambda)
	bin := lam.Body.(*core.BinOp)
	if bin.Left.(*core.Var).Name != "x" {
		t.Fatalf("body must be untouched, got %s", got)
	}
}

func TestInlineMultiSafeCheapValue(t *testing.T) {
	expr := &core.Let{
		Name:  "x",
		Value: intLit(7),
		Body:  &core.BinOp{Op: "*", Left: varRef("x"), Right: varRef("x")},
	}
	got := Inline(expr, 0)
	if _, ok := got.(*core.BinOp); !ok {
		t.Fatalf("cheap multi-use value must inline: %s", got)
	}
}

func TestInlineRespectsPassBound(t *testing.T) {
	// let a = 1 in let b = a in let c = b in c needs more than one pass to
	// collapse fully; a single pass must leave something un-inlined or reach
	// the literal, but never loop forever.
	expr := core.CoreExpr(&core.Let{Name: "a", Value: intLit(1),
		Body: &core.Let{Name: "b", Value: varRef("a"),
			Body: &core.Let{Name: "c", Value: varRef("b"), Body: varRef("c")}}})
	got := Inline(expr, 8)
	if lit, ok := got.(*core.Lit); !ok || lit.Value.(*big.Int).Int64() != 1 {
		t.Fatalf("chain should collapse to the literal within the bound: %s", got)
	}
}

func TestCountUsesStopsAtShadowing(t *testing.T) {
	body := &core.Let{Name: "x", Value: intLit(1), Body: varRef("x")}
	u := countUses("x", body)
	if u.count != 0 {
		t.Fatalf("inner binding shadows; expected 0 uses, got %d", u.count)
	}
}
