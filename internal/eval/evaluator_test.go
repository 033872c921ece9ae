package eval

import (
	"math/big"
	"testing"

	"github.com/deepsen/smli/internal/core"
)

func intLit(n int64) *core.Lit {
	return &core.Lit{Kind: core.IntLit, Value: big.NewInt(n)}
}

func boolLit(b bool) *core.Lit {
	return &core.Lit{Kind: core.BoolLit, Value: b}
}

func varRef(name string) *core.Var {
	return &core.Var{Name: name}
}

func mustEval(t *testing.T, expr core.CoreExpr) Value {
	t.Helper()
	v, err := NewEvaluator().Eval(NewEnvironment(), expr)
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	return v
}

func wantInt(t *testing.T, v Value, n int64) {
	t.Helper()
	iv, ok := v.(IntValue)
	if !ok {
		t.Fatalf("expected int, got %s = %s", kindName(v), Print(v))
	}
	if iv.V.Int64() != n {
		t.Fatalf("expected %d, got %s", n, Print(v))
	}
}

func TestEvalLetAndArith(t *testing.T) {
	expr := &core.Let{Name: "x", Value: intLit(40),
		Body: &core.BinOp{Op: "+", Left: varRef("x"), Right: intLit(2)}}
	wantInt(t, mustEval(t, expr), 42)
}

func TestEvalClosureApplication(t *testing.T) {
	// (fn x => x + 1) 41
	expr := &core.App{
		Func: &core.Lambda{Params: []string{"x"},
			Body: &core.BinOp{Op: "+", Left: varRef("x"), Right: intLit(1)}},
		Args: []core.CoreExpr{intLit(41)},
	}
	wantInt(t, mustEval(t, expr), 42)
}

func TestEvalMultiParamLambdaCurries(t *testing.T) {
	add := &core.Lambda{Params: []string{"a", "b"},
		Body: &core.BinOp{Op: "+", Left: varRef("a"), Right: varRef("b")}}
	partial := mustEval(t, &core.App{Func: add, Args: []core.CoreExpr{intLit(1)}})
	if _, ok := partial.(*ClosureValue); !ok {
		t.Fatalf("partial application should yield a closure, got %s", kindName(partial))
	}
	wantInt(t, mustEval(t, &core.App{Func: add, Args: []core.CoreExpr{intLit(1), intLit(2)}}), 3)
}

func TestEvalLetRecFactorial(t *testing.T) {
	fact := &core.LetRec{
		Bindings: []core.RecBinding{{
			Name: "fact",
			Value: &core.Lambda{Params: []string{"n"},
				Body: &core.If{
					Cond: &core.BinOp{Op: "=", Left: varRef("n"), Right: intLit(0)},
					Then: intLit(1),
					Else: &core.BinOp{Op: "*", Left: varRef("n"),
						Right: &core.App{Func: varRef("fact"),
							Args: []core.CoreExpr{&core.BinOp{Op: "-", Left: varRef("n"), Right: intLit(1)}}}},
				}},
		}},
		Body: &core.App{Func: varRef("fact"), Args: []core.CoreExpr{intLit(5)}},
	}
	wantInt(t, mustEval(t, fact), 120)
}

func TestDivModFloorSemantics(t *testing.T) {
	cases := []struct {
		op   string
		l, r int64
		want int64
	}{
		{"div", 7, 2, 3},
		{"div", -7, 2, -4},
		{"div", 7, -2, -4},
		{"mod", 7, 2, 1},
		{"mod", -7, 2, 1}, // remainder sign follows the divisor
		{"mod", 7, -2, -1},
	}
	for _, c := range cases {
		got := mustEval(t, &core.BinOp{Op: c.op, Left: intLit(c.l), Right: intLit(c.r)})
		iv := got.(IntValue)
		if iv.V.Int64() != c.want {
			t.Errorf("%d %s %d = %s, want %d", c.l, c.op, c.r, Print(got), c.want)
		}
	}
}

func TestDivisionByZeroRaisesDiv(t *testing.T) {
	_, err := NewEvaluator().Eval(NewEnvironment(), &core.BinOp{Op: "div", Left: intLit(10), Right: intLit(0)})
	sig, ok := err.(*Signal)
	if !ok {
		t.Fatalf("expected a raised exception, got %v", err)
	}
	if sig.Packet.Name != "Div" {
		t.Fatalf("expected Div, got %s", sig.Packet.Name)
	}
}

func TestMatchFirstClauseWins(t *testing.T) {
	m := &core.Match{
		Scrutinee: intLit(1),
		Arms: []core.MatchArm{
			{Pattern: &core.LitPattern{Value: big.NewInt(1)}, Body: intLit(10)},
			{Pattern: &core.WildcardPattern{}, Body: intLit(20)},
		},
	}
	wantInt(t, mustEval(t, m), 10)
}

// A variable arm positioned before a later literal arm must win for every
// value the literal would also match: clause order is part of the match
// semantics, even when the compiled decision tree has a case for the
// literal.
func TestMatchEarlierWildcardBeatsLaterLiteral(t *testing.T) {
	m := &core.Match{
		Scrutinee: intLit(2),
		Arms: []core.MatchArm{
			{Pattern: &core.LitPattern{Value: big.NewInt(1)}, Body: intLit(10)},
			{Pattern: &core.VarPattern{Name: "y"}, Body: intLit(20)},
			{Pattern: &core.LitPattern{Value: big.NewInt(2)}, Body: intLit(30)},
		},
	}
	wantInt(t, mustEval(t, m), 20)
}

func TestMatchGuardFallsThrough(t *testing.T) {
	m := &core.Match{
		Scrutinee: intLit(1),
		Arms: []core.MatchArm{
			{Pattern: &core.VarPattern{Name: "x"}, Guard: boolLit(false), Body: intLit(10)},
			{Pattern: &core.WildcardPattern{}, Body: intLit(20)},
		},
	}
	wantInt(t, mustEval(t, m), 20)
}

func TestMatchFailureRaisesMatch(t *testing.T) {
	m := &core.Match{
		Scrutinee: intLit(3),
		Arms: []core.MatchArm{
			{Pattern: &core.LitPattern{Value: big.NewInt(1)}, Body: intLit(10)},
		},
	}
	_, err := NewEvaluator().Eval(NewEnvironment(), m)
	sig, ok := err.(*Signal)
	if !ok || sig.Packet.Name != "Match" {
		t.Fatalf("expected Match exception, got %v", err)
	}
}

func TestBindFailureRaisesBind(t *testing.T) {
	m := &core.Match{
		Scrutinee: intLit(3),
		Arms: []core.MatchArm{
			{Pattern: &core.LitPattern{Value: big.NewInt(1)}, Body: intLit(10)},
		},
		FailExn: "Bind",
	}
	_, err := NewEvaluator().Eval(NewEnvironment(), m)
	sig, ok := err.(*Signal)
	if !ok || sig.Packet.Name != "Bind" {
		t.Fatalf("expected Bind exception, got %v", err)
	}
}

func TestHandleCatchesMatchingException(t *testing.T) {
	expr := &core.Handle{
		Body: &core.Raise{Exn: &core.ConstructorApp{Name: "Div"}},
		Arms: []core.HandleArm{
			{Pattern: &core.ConstructorPattern{Name: "Div"}, Body: intLit(99)},
		},
	}
	wantInt(t, mustEval(t, expr), 99)
}

func TestHandlePropagatesUnmatchedException(t *testing.T) {
	expr := &core.Handle{
		Body: &core.Raise{Exn: &core.ConstructorApp{Name: "Overflow"}},
		Arms: []core.HandleArm{
			{Pattern: &core.ConstructorPattern{Name: "Div"}, Body: intLit(99)},
		},
	}
	_, err := NewEvaluator().Eval(NewEnvironment(), expr)
	sig, ok := err.(*Signal)
	if !ok || sig.Packet.Name != "Overflow" {
		t.Fatalf("unmatched exception must propagate, got %v", err)
	}
}

func TestRecursionDepthGuard(t *testing.T) {
	loop := &core.LetRec{
		Bindings: []core.RecBinding{{
			Name: "f",
			Value: &core.Lambda{Params: []string{"x"},
				Body: &core.App{Func: varRef("f"), Args: []core.CoreExpr{varRef("x")}}},
		}},
		Body: &core.App{Func: varRef("f"), Args: []core.CoreExpr{intLit(0)}},
	}
	ev := NewEvaluator()
	ev.SetMaxRecursionDepth(64)
	if _, err := ev.Eval(NewEnvironment(), loop); err == nil {
		t.Fatalf("runaway recursion must be stopped by the depth guard")
	}
}

func TestArbitraryPrecisionInts(t *testing.T) {
	big1 := new(big.Int)
	big1.SetString("123456789012345678901234567890", 10)
	expr := &core.BinOp{Op: "*",
		Left:  &core.Lit{Kind: core.IntLit, Value: big1},
		Right: intLit(10)}
	got := mustEval(t, expr).(IntValue)
	want := new(big.Int).Mul(big1, big.NewInt(10))
	if got.V.Cmp(want) != 0 {
		t.Fatalf("big arithmetic wrong: %s", Print(got))
	}
}

func TestLeftToRightEvaluationOrder(t *testing.T) {
	// (raise Div, raise Overflow) must raise Div: tuples evaluate
	// left-to-right.
	expr := &core.Tuple{Elements: []core.CoreExpr{
		&core.Raise{Exn: &core.ConstructorApp{Name: "Div"}},
		&core.Raise{Exn: &core.ConstructorApp{Name: "Overflow"}},
	}}
	_, err := NewEvaluator().Eval(NewEnvironment(), expr)
	sig, ok := err.(*Signal)
	if !ok || sig.Packet.Name != "Div" {
		t.Fatalf("leftmost raise must win, got %v", err)
	}
}
