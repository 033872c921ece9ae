package session

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// runOne runs a single-statement program and returns its one unit's lines.
func runOne(t *testing.T, source string) []string {
	t.Helper()
	sess := New(DefaultProperties())
	units, reports := sess.Run(source, "<test>")
	require.Empty(t, reports, "unexpected diagnostics for %q", source)
	require.Len(t, units, 1)
	return units[0].Lines
}

func TestArithmeticLiteral(t *testing.T) {
	lines := runOne(t, "1 + 2;")
	require.Equal(t, []string{"val it = 3 : int"}, lines)
}

func TestRecursiveFunction(t *testing.T) {
	sess := New(DefaultProperties())
	units, reports := sess.Run("fun fact n = if n = 0 then 1 else n * fact (n - 1); fact 5;", "<test>")
	require.Empty(t, reports)
	require.Len(t, units, 2)
	require.Equal(t, []string{"val fact = fn : int -> int"}, units[0].Lines)
	require.Equal(t, []string{"val it = 120 : int"}, units[1].Lines)
}

func TestFromPipelineWhereYield(t *testing.T) {
	lines := runOne(t, "from i in [3, 1, 2] where i < 3 yield i * 10;")
	require.Equal(t, []string{"val it = [30, 20] : int list"}, lines)
}

func TestExtentSolverOnBool(t *testing.T) {
	lines := runOne(t, "from b where b;")
	require.Equal(t, []string{"val it = [true] : bool list"}, lines)
}

func TestDatatypeConstructorApplication(t *testing.T) {
	sess := New(DefaultProperties())
	src := "datatype 'a tree = Leaf of 'a | Node of 'a tree * 'a tree; Node (Leaf 1, Leaf 2);"
	units, reports := sess.Run(src, "<test>")
	require.Empty(t, reports)
	require.Len(t, units, 1)
	require.Equal(t, []string{"val it = Node (Leaf 1, Leaf 2) : int tree"}, units[0].Lines)
}

func TestUncaughtDivException(t *testing.T) {
	sess := New(DefaultProperties())
	units, reports := sess.Run("10 div 0;", "<test>")
	require.Empty(t, units)
	require.Len(t, reports, 1)
	require.Equal(t, "runtime", reports[0].Kind)
	require.Contains(t, reports[0].Message, "Div")
}

func TestGroupCompute(t *testing.T) {
	lines := runOne(t, "from i in [1,2,3] compute sum over i;")
	require.Equal(t, []string{"val it = 6 : int"}, lines)
}

// TestNormalizerSemanticsPreserving checks that evaluating a term and
// evaluating its normalized form produce equal values, exercised
// by running the same program fully inlined and not inlined at all.
func TestNormalizerSemanticsPreserving(t *testing.T) {
	const src = `
		fun fact n = if n = 0 then 1 else n * fact (n - 1);
		from e in [{a=2,b=3},{a=2,b=1},{a=1,b=1}] group e.a compute sb = sum of e.b;
	`

	run := func(passCount int) []string {
		props := DefaultProperties()
		props.InlinePassCount = passCount
		sess := New(props)
		units, reports := sess.Run(src, "<test>")
		require.Empty(t, reports)
		var lines []string
		for _, u := range units {
			lines = append(lines, u.Lines...)
		}
		return lines
	}

	onePass := run(1)
	fullyInlined := run(32)
	if diff := cmp.Diff(onePass, fullyInlined); diff != "" {
		t.Errorf("inlining changed observable output (-minimal +fully-inlined):\n%s", diff)
	}
}

// TestAndBindingSeesOuterScope: in `let val x = 1 and x = 2 in x end` each `and`-clause's RHS sees the
// outer `x`, but the body observes the last clause's binding.
func TestAndBindingSeesOuterScope(t *testing.T) {
	lines := runOne(t, "let val x = 1 and x = 2 in x end;")
	require.Equal(t, []string{"val it = 2 : int"}, lines)
}

// An `and`-clause's RHS must resolve against the environment outside the
// whole group, never against a sibling clause's new binding.
func TestAndClauseCannotSeeSibling(t *testing.T) {
	sess := New(DefaultProperties())
	_, reports := sess.Run("let val x = 1 in let val y = 100 and x = y in x end end;", "<test>")
	require.NotEmpty(t, reports, "y is unbound outside the group and must be rejected")
	require.Equal(t, "type", reports[0].Kind)
}

func TestAndClauseSeesOuterBinding(t *testing.T) {
	lines := runOne(t, "let val x = 1 in let val y = x + 1 and x = 10 in x + y end end;")
	require.Equal(t, []string{"val it = 12 : int"}, lines)
}

// The runtime must not capture either: every clause's value is computed
// before any of the group's bindings take effect.
func TestAndClauseRuntimeUsesOuterValue(t *testing.T) {
	lines := runOne(t, "let val x = 1 in let val x = 2 and y = x in y end end;")
	require.Equal(t, []string{"val it = 1 : int"}, lines)
}

// TestNonExhaustiveMatchWarns: `fun f 1 = "one" | f 2 = "two"` warns
// NON-EXHAUSTIVE, since int literal patterns are open and there is no catch-all clause.
func TestNonExhaustiveMatchWarns(t *testing.T) {
	sess := New(DefaultProperties())
	_, reports := sess.Run(`fun f 1 = "one" | f 2 = "two";`, "<test>")
	require.Len(t, reports, 1)
	require.Equal(t, "match-coverage", reports[0].Kind)
	require.Contains(t, reports[0].Warning(), "non-exhaustive")
}

// TestExhaustiveBoolMatchNoWarning covers both bool constructors, so no
// NON-EXHAUSTIVE diagnostic should fire.
func TestExhaustiveBoolMatchNoWarning(t *testing.T) {
	lines := runOne(t, `fun f true = 1 | f false = 0;`)
	require.Equal(t, []string{"val f = fn : bool -> int"}, lines)
}

// TestNonExhaustiveBoolMatchWarns covers only one of the two bool
// constructors and has no catch-all.
func TestNonExhaustiveBoolMatchWarns(t *testing.T) {
	sess := New(DefaultProperties())
	_, reports := sess.Run(`fun f true = 1;`, "<test>")
	require.Len(t, reports, 1)
	require.Equal(t, "match-coverage", reports[0].Kind)
	require.Contains(t, reports[0].Warning(), "non-exhaustive")
}

// TestNonExhaustiveListMatchWarns covers only the `[]` list constructor,
// leaving `::` unmatched.
func TestNonExhaustiveListMatchWarns(t *testing.T) {
	sess := New(DefaultProperties())
	_, reports := sess.Run(`fun f [] = 0;`, "<test>")
	require.Len(t, reports, 1)
	require.Equal(t, "match-coverage", reports[0].Kind)
	require.Contains(t, reports[0].Warning(), "non-exhaustive")
}

// TestRedundantClauseWarns covers a catch-all clause followed by another
// clause, which can never be reached.
func TestRedundantClauseWarns(t *testing.T) {
	sess := New(DefaultProperties())
	_, reports := sess.Run(`fun f _ = 0 | f 1 = 1;`, "<test>")
	require.Len(t, reports, 1)
	require.Equal(t, "match-coverage", reports[0].Kind)
	require.Contains(t, reports[0].Warning(), "redundant")
}

func TestSessionThreadsBindingsAcrossUnits(t *testing.T) {
	sess := New(DefaultProperties())
	_, reports := sess.Run("val x = 41;", "<test>")
	require.Empty(t, reports)
	units, reports := sess.Run("x + 1;", "<test>")
	require.Empty(t, reports)
	require.Equal(t, []string{"val it = 42 : int"}, units[0].Lines)
}
