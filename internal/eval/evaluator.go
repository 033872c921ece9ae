package eval

import (
	"fmt"
	"math/big"

	"github.com/deepsen/smli/internal/backend"
	"github.com/deepsen/smli/internal/core"
	"github.com/deepsen/smli/internal/dtree"
)

// Evaluator walks core.CoreExpr trees.
// It carries no type information at runtime: overload resolution and
// exhaustiveness are already settled by internal/infer: this is purely a
// dynamically-tagged interpreter.
type Evaluator struct {
	resolver          GlobalResolver
	backend           backend.Backend
	recursionDepth    int
	maxRecursionDepth int
}

// NewEvaluator creates an Evaluator with no global resolver set (callers
// wire one via SetResolver, typically internal/runtime.BuiltinOnlyResolver)
// and the in-process reference backend for any pushed-down `from` pipeline.
func NewEvaluator() *Evaluator {
	return &Evaluator{maxRecursionDepth: 10000, backend: backend.Reference{}}
}

func (ev *Evaluator) SetResolver(r GlobalResolver) { ev.resolver = r }

// SetBackend swaps in an external relational backend; nil
// restores the in-process reference implementation.
func (ev *Evaluator) SetBackend(b backend.Backend) {
	if b == nil {
		b = backend.Reference{}
	}
	ev.backend = b
}

func (ev *Evaluator) SetMaxRecursionDepth(n int) { ev.maxRecursionDepth = n }

// EvalDecl evaluates one top-level unit produced by infer.Result.Decl,
// destructively extending env for every name the unit's Let/LetRec chain
// binds. It returns the
// terminal value (the chain's sentinel variable, or the bare expression's
// value for an ExprDecl with no wrapping Let).
func (ev *Evaluator) EvalDecl(env *Environment, decl core.CoreExpr) (Value, error) {
	for {
		switch d := decl.(type) {
		case *core.Let:
			val, err := ev.Eval(env, d.Value)
			if err != nil {
				return nil, err
			}
			env.Set(d.Name, val)
			decl = d.Body
			continue
		case *core.LetRec:
			if err := ev.bindLetRec(env, d.Bindings, env); err != nil {
				return nil, err
			}
			decl = d.Body
			continue
		}
		return ev.Eval(env, decl)
	}
}

// bindLetRec ties the knot for a mutually-recursive group: every closure
// captures defEnv (which env extends in place), so each sees every sibling
// once all are bound.
func (ev *Evaluator) bindLetRec(env *Environment, bindings []core.RecBinding, defEnv *Environment) error {
	for _, b := range bindings {
		val, err := ev.Eval(defEnv, b.Value)
		if err != nil {
			return err
		}
		if cl, ok := val.(*ClosureValue); ok {
			cl.Env = defEnv
		}
		env.Set(b.Name, val)
	}
	return nil
}

// Eval evaluates expr in env, returning its value or a propagating *Signal
// (a raised, uncaught-so-far exception) wrapped as an ordinary error.
func (ev *Evaluator) Eval(env *Environment, expr core.CoreExpr) (Value, error) {
	switch e := expr.(type) {
	case *core.Lit:
		return ev.evalLit(e)

	case *core.Var:
		if v, ok := env.Get(e.Name); ok {
			return v, nil
		}
		return nil, fmt.Errorf("unbound variable %q", e.Name)

	case *core.VarGlobal:
		if ev.resolver == nil {
			return nil, fmt.Errorf("unresolved global %s.%s (no resolver configured)", e.Ref.Module, e.Ref.Name)
		}
		v, err := ev.resolver.ResolveValue(e.Ref)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, fmt.Errorf("unresolved global %s.%s", e.Ref.Module, e.Ref.Name)
		}
		return v, nil

	case *core.Tuple:
		elems := make([]Value, len(e.Elements))
		for i, el := range e.Elements {
			v, err := ev.Eval(env, el)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return &TupleValue{Elems: elems}, nil

	case *core.Record:
		fields := make(map[string]Value, len(e.Fields))
		for label, fe := range e.Fields {
			v, err := ev.Eval(env, fe)
			if err != nil {
				return nil, err
			}
			fields[label] = v
		}
		return &RecordValue{Fields: fields}, nil

	case *core.RecordAccess:
		rv, err := ev.Eval(env, e.Record)
		if err != nil {
			return nil, err
		}
		rec, ok := rv.(*RecordValue)
		if !ok {
			return nil, fmt.Errorf("field access %q on non-record value", e.Field)
		}
		v, ok := rec.Fields[e.Field]
		if !ok {
			return nil, fmt.Errorf("record has no field %q", e.Field)
		}
		return v, nil

	case *core.List:
		elems := make([]Value, len(e.Elements))
		for i, el := range e.Elements {
			v, err := ev.Eval(env, el)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return &ListValue{Elems: elems}, nil

	case *core.ConstructorApp:
		if e.Arg == nil {
			return &ConstructorValue{Name: e.Name}, nil
		}
		argV, err := ev.Eval(env, e.Arg)
		if err != nil {
			return nil, err
		}
		return &ConstructorValue{Name: e.Name, Arg: argV}, nil

	case *core.Raise:
		v, err := ev.Eval(env, e.Exn)
		if err != nil {
			return nil, err
		}
		cv, ok := v.(*ConstructorValue)
		if !ok {
			return nil, fmt.Errorf("raise: value is not an exception")
		}
		return nil, &Signal{Packet: cv}

	case *core.Handle:
		v, err := ev.Eval(env, e.Body)
		if err == nil {
			return v, nil
		}
		sig, ok := asSignal(err)
		if !ok {
			return nil, err
		}
		for _, arm := range e.Arms {
			if armEnv, ok := matchPattern(arm.Pattern, sig.Packet, env); ok {
				return ev.Eval(armEnv, arm.Body)
			}
		}
		return nil, err

	case *core.Lambda:
		return ev.buildClosure(env, e)

	case *core.Let:
		val, err := ev.Eval(env, e.Value)
		if err != nil {
			return nil, err
		}
		return ev.Eval(env.Extend(e.Name, val), e.Body)

	case *core.LetRec:
		child := env.Child()
		if err := ev.bindLetRec(child, e.Bindings, child); err != nil {
			return nil, err
		}
		return ev.Eval(child, e.Body)

	case *core.App:
		return ev.evalApp(env, e)

	case *core.If:
		cv, err := ev.Eval(env, e.Cond)
		if err != nil {
			return nil, err
		}
		b, ok := cv.(BoolValue)
		if !ok {
			return nil, fmt.Errorf("if: condition is not a bool")
		}
		if b.V {
			return ev.Eval(env, e.Then)
		}
		return ev.Eval(env, e.Else)

	case *core.Match:
		return ev.evalMatch(env, e)

	case *core.BinOp:
		return ev.evalBinOp(env, e)

	case *core.UnOp:
		return ev.evalUnOp(env, e)

	case *core.From:
		return ev.evalFrom(env, e)
	}
	return nil, fmt.Errorf("eval: unhandled core node %T", expr)
}

func (ev *Evaluator) evalLit(e *core.Lit) (Value, error) {
	switch e.Kind {
	case core.IntLit:
		n, _ := e.Value.(*big.Int)
		if n == nil {
			n = big.NewInt(0)
		}
		return IntValue{V: n}, nil
	case core.FloatLit:
		f, _ := e.Value.(float64)
		return RealValue{V: f}, nil
	case core.StringLit:
		s, _ := e.Value.(string)
		return StringValue{V: s}, nil
	case core.CharLit:
		r, _ := e.Value.(rune)
		return CharValue{V: r}, nil
	case core.BoolLit:
		b, _ := e.Value.(bool)
		return BoolValue{V: b}, nil
	default:
		return UnitValue{}, nil
	}
}

func (ev *Evaluator) buildClosure(env *Environment, lam *core.Lambda) (Value, error) {
	if len(lam.Params) == 0 {
		return nil, fmt.Errorf("lambda with no parameters")
	}
	body := lam.Body
	// Curry any extra declared params into nested single-param closures; in
	// practice internal/infer only ever emits arity-1 Lambdas, but this
	// keeps Eval correct for the (legal) multi-param shape core.go allows.
	for i := len(lam.Params) - 1; i > 0; i-- {
		body = &core.Lambda{Params: []string{lam.Params[i]}, Body: body}
	}
	return &ClosureValue{Param: lam.Params[0], Body: body, Env: env}, nil
}

func (ev *Evaluator) evalApp(env *Environment, e *core.App) (Value, error) {
	fnV, err := ev.Eval(env, e.Func)
	if err != nil {
		return nil, err
	}
	for _, argExpr := range e.Args {
		argV, err := ev.Eval(env, argExpr)
		if err != nil {
			return nil, err
		}
		fnV, err = ev.apply(fnV, argV)
		if err != nil {
			return nil, err
		}
	}
	return fnV, nil
}

// apply invokes a callable value with one argument, recursion-guarded
// against runaway non-terminating user programs.
func (ev *Evaluator) apply(fn Value, arg Value) (Value, error) {
	switch fn := fn.(type) {
	case *ClosureValue:
		ev.recursionDepth++
		if ev.maxRecursionDepth > 0 && ev.recursionDepth > ev.maxRecursionDepth {
			ev.recursionDepth--
			return nil, fmt.Errorf("stack overflow: recursion depth exceeded %d", ev.maxRecursionDepth)
		}
		v, err := ev.Eval(fn.Env.Extend(fn.Param, arg), fn.Body)
		ev.recursionDepth--
		return v, err

	case *NativeValue:
		return fn.Fn(arg)

	case *BuiltinValue:
		args := append(append([]Value{}, fn.Args...), arg)
		if len(args) < fn.Arity {
			return &BuiltinValue{Name: fn.Name, Arity: fn.Arity, Args: args}, nil
		}
		return ev.CallBuiltin(fn.Name, args)

	default:
		return nil, fmt.Errorf("cannot apply a value of type %s", kindName(fn))
	}
}

// CallFunction applies fn to args one at a time, for callers (the REPL,
// relational `through`/`into` steps) that already hold a fully-evaluated
// function value.
func (ev *Evaluator) CallFunction(fn Value, args []Value) (Value, error) {
	var err error
	for _, a := range args {
		fn, err = ev.apply(fn, a)
		if err != nil {
			return nil, err
		}
	}
	return fn, nil
}

func (ev *Evaluator) evalMatch(env *Environment, m *core.Match) (Value, error) {
	scrutV, err := ev.Eval(env, m.Scrutinee)
	if err != nil {
		return nil, err
	}
	if dtree.CanCompileToTree(m.Arms) {
		if idx, armEnv, ok := ev.tryDecisionTree(m.Arms, scrutV, env); ok {
			arm := m.Arms[idx]
			if arm.Guard != nil {
				gv, err := ev.Eval(armEnv, arm.Guard)
				if err != nil {
					return nil, err
				}
				if b, ok := gv.(BoolValue); !ok || !b.V {
					return ev.evalMatchSequential(m, scrutV, env)
				}
			}
			return ev.Eval(armEnv, arm.Body)
		}
	}
	return ev.evalMatchSequential(m, scrutV, env)
}

// tryDecisionTree walks a compiled dtree.DecisionTree against scrutV. Since
// every constructor in this language takes at most one argument,
// core.ConstructorPattern.Args always has length <= 1, so the matrix the
// compiler builds never actually grows extra columns: each Switch narrows
// the single value under test to its matched constructor's payload (if
// any), making the tree's Path bookkeeping unnecessary to replay here.
func (ev *Evaluator) tryDecisionTree(arms []core.MatchArm, scrutV Value, env *Environment) (int, *Environment, bool) {
	tree := dtree.NewDecisionTreeCompiler(arms).Compile()
	cur := scrutV
	for {
		switch node := tree.(type) {
		case *dtree.LeafNode:
			armEnv, ok := matchPattern(arms[node.ArmIndex].Pattern, scrutV, env)
			if !ok {
				return 0, nil, false
			}
			return node.ArmIndex, armEnv, true
		case *dtree.FailNode:
			return 0, nil, false
		case *dtree.SwitchNode:
			key, narrowed, ok := switchKey(cur)
			if !ok {
				return 0, nil, false
			}
			if next, found := node.Cases[key]; found {
				// A wildcard/variable arm bucketed under Default that
				// precedes every arm of the chosen case must win; source
				// clause order is part of the match semantics, so hand
				// those over to the sequential path.
				if node.Default != nil && dtree.MinArmIndex(node.Default) < dtree.MinArmIndex(next) {
					return 0, nil, false
				}
				tree = next
				cur = narrowed
				continue
			}
			if node.Default == nil {
				return 0, nil, false
			}
			tree = node.Default
			continue
		default:
			return 0, nil, false
		}
	}
}

// switchKey produces the discriminator tryDecisionTree tests a SwitchNode
// against, plus the narrowed value (a constructor's payload) to continue
// matching against for the chosen case.
func switchKey(v Value) (interface{}, Value, bool) {
	switch v := v.(type) {
	case *ConstructorValue:
		return v.Name, v.Arg, true
	case IntValue:
		return v.V.String(), nil, true
	case StringValue:
		return v.V, nil, true
	case CharValue:
		return v.V, nil, true
	case BoolValue:
		return v.V, nil, true
	}
	return nil, nil, false
}

func (ev *Evaluator) evalMatchSequential(m *core.Match, scrutV Value, env *Environment) (Value, error) {
	for _, arm := range m.Arms {
		armEnv, ok := matchPattern(arm.Pattern, scrutV, env)
		if !ok {
			continue
		}
		if arm.Guard != nil {
			gv, err := ev.Eval(armEnv, arm.Guard)
			if err != nil {
				return nil, err
			}
			if b, ok := gv.(BoolValue); !ok || !b.V {
				continue
			}
		}
		return ev.Eval(armEnv, arm.Body)
	}
	exn := m.FailExn
	if exn == "" {
		exn = "Match"
	}
	return nil, raise(exn, nil)
}
