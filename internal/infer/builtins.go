package infer

import "github.com/deepsen/smli/internal/types"

// builtinNames marks identifiers resolved to the `$builtin` module rather
// than a lexically-scoped core.Var, so the evaluator can dispatch them
// through its builtin table.
var builtinNames = map[string]bool{
	"print": true, "toText": true,
	"explode": true, "implode": true, "ord": true, "chr": true,
	"length": true, "hd": true, "tl": true, "rev": true, "null": true,
	"map": true, "filter": true, "foldl": true, "foldr": true, "app": true,
	"nth": true, "concat": true, "iterate": true,
	"abs": true, "floor": true, "ceil": true, "round": true, "trunc": true,
	"intToReal": true, "realToInt": true,
}

// registerBuiltins seeds env with every name in builtinNames plus the
// `option` datatype's constructors.
func (inf *Inferencer) registerBuiltins() {
	bind := func(name string, scheme *types.Scheme) {
		inf.env = inf.env.Extend(name, &types.ValueBinding{Scheme: scheme})
	}
	fn := func(ps ...types.Type) types.Type {
		t := ps[len(ps)-1]
		for i := len(ps) - 2; i >= 0; i-- {
			t = &types.TFunc{Param: ps[i], Result: t}
		}
		return t
	}
	poly1 := func(build func(a types.Type) types.Type) *types.Scheme {
		a := inf.freshVar()
		return &types.Scheme{Vars: []int{a.Id}, Type: build(a)}
	}
	poly2 := func(build func(a, b types.Type) types.Type) *types.Scheme {
		a, b := inf.freshVar(), inf.freshVar()
		return &types.Scheme{Vars: []int{a.Id, b.Id}, Type: build(a, b)}
	}

	bind("print", poly1(func(a types.Type) types.Type { return fn(a, types.Unit) }))
	bind("toText", poly1(func(a types.Type) types.Type { return fn(a, types.String) }))
	bind("explode", types.Mono(fn(types.String, &types.TList{Elem: types.Char})))
	bind("implode", types.Mono(fn(&types.TList{Elem: types.Char}, types.String)))
	bind("ord", types.Mono(fn(types.Char, types.Int)))
	bind("chr", types.Mono(fn(types.Int, types.Char)))
	bind("length", poly1(func(a types.Type) types.Type { return fn(&types.TList{Elem: a}, types.Int) }))
	bind("hd", poly1(func(a types.Type) types.Type { return fn(&types.TList{Elem: a}, a) }))
	bind("tl", poly1(func(a types.Type) types.Type { return fn(&types.TList{Elem: a}, &types.TList{Elem: a}) }))
	bind("rev", poly1(func(a types.Type) types.Type {
		l := &types.TList{Elem: a}
		return fn(l, l)
	}))
	bind("null", poly1(func(a types.Type) types.Type { return fn(&types.TList{Elem: a}, types.Bool) }))
	bind("concat", poly1(func(a types.Type) types.Type {
		l := &types.TList{Elem: a}
		return fn(&types.TList{Elem: l}, l)
	}))
	bind("map", poly2(func(a, b types.Type) types.Type {
		return fn(fn(a, b), &types.TList{Elem: a}, &types.TList{Elem: b})
	}))
	bind("filter", poly1(func(a types.Type) types.Type {
		l := &types.TList{Elem: a}
		return fn(fn(a, types.Bool), l, l)
	}))
	bind("foldl", poly2(func(a, b types.Type) types.Type {
		return fn(fn(a, b, b), b, &types.TList{Elem: a}, b)
	}))
	bind("foldr", poly2(func(a, b types.Type) types.Type {
		return fn(fn(a, b, b), b, &types.TList{Elem: a}, b)
	}))
	bind("app", poly1(func(a types.Type) types.Type {
		return fn(fn(a, types.Unit), &types.TList{Elem: a}, types.Unit)
	}))
	bind("nth", poly1(func(a types.Type) types.Type {
		return fn(&types.TList{Elem: a}, types.Int, a)
	}))
	bind("iterate", poly1(func(a types.Type) types.Type {
		// iterate seed step: monotone fixed-point iteration; step takes the
		// accumulated set and the most recent batch of new rows.
		l := &types.TList{Elem: a}
		return fn(l, fn(l, l, l), l)
	}))
	bind("abs", types.Mono(fn(types.Int, types.Int)))
	bind("floor", types.Mono(fn(types.Real, types.Int)))
	bind("ceil", types.Mono(fn(types.Real, types.Int)))
	bind("round", types.Mono(fn(types.Real, types.Int)))
	bind("trunc", types.Mono(fn(types.Real, types.Int)))
	bind("intToReal", types.Mono(fn(types.Int, types.Real)))
	bind("realToInt", types.Mono(fn(types.Real, types.Int)))

	a := inf.freshVar()
	optT := &types.TOption{Elem: a}
	inf.env = inf.env.Extend("NONE", &types.ConstructorBinding{
		Datatype: "option", Scheme: &types.Scheme{Vars: []int{a.Id}, Type: optT},
	})
	a2 := inf.freshVar()
	inf.env = inf.env.Extend("SOME", &types.ConstructorBinding{
		Datatype: "option", ArgType: a2, Index: 1,
		Scheme: &types.Scheme{Vars: []int{a2.Id}, Type: &types.TFunc{Param: a2, Result: &types.TOption{Elem: a2}}},
	})
}
