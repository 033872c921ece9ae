package normalize

import (
	"github.com/deepsen/smli/internal/core"
	"github.com/deepsen/smli/internal/errors"
	"github.com/deepsen/smli/internal/types"
)

// Options configures one Normalize run.
type Options struct {
	// InlinePassCount bounds the inlining fixed-point loop (0 uses
	// DefaultInlinePassCount).
	InlinePassCount int
	// Hybrid enables backend push-down;
	// when false, every `from` pipeline runs entirely in the evaluator.
	Hybrid bool
	// Env supplies datatype declarations to the extent solver.
	Env *types.Env
	// TypeOf resolves a scan variable's static type by name, when the
	// caller has one (e.g. from the typechecker's per-binding scheme
	// table); extent solving falls back to predicate narrowing without it.
	TypeOf TypeOf
}

// Normalize runs the Core Normalizer's passes over expr in the order
// they are defined: inlining/dead-binding elimination, query
// fusion, extent solving, then backend push-down.
func Normalize(expr core.CoreExpr, opts Options) (core.CoreExpr, []*errors.Report) {
	expr = Inline(expr, opts.InlinePassCount)
	expr = desugarBuiltins(expr)
	expr = transform(expr, func(e core.CoreExpr) core.CoreExpr {
		if f, ok := e.(*core.From); ok {
			return fuseFrom(f)
		}
		return e
	})
	expr, reports := solveExtents(expr, opts.Env, opts.TypeOf)
	if len(reports) > 0 {
		return expr, reports
	}
	expr = transform(expr, func(e core.CoreExpr) core.CoreExpr {
		if f, ok := e.(*core.From); ok {
			return pushDown(f, opts.Hybrid)
		}
		return e
	})
	return expr, nil
}

// desugarBuiltins rewrites saturated `map`/`filter` applications into the
// equivalent `from` pipeline, using the core node's own
// stable ID to name the fresh row variable deterministically.
func desugarBuiltins(expr core.CoreExpr) core.CoreExpr {
	return transform(expr, func(e core.CoreExpr) core.CoreExpr {
		app, ok := e.(*core.App)
		if !ok {
			return e
		}
		fresh := freshRowName(app.ID())
		if from, ok := builtinMapFilter(app, fresh); ok {
			return from
		}
		return e
	})
}

func freshRowName(id uint64) string {
	return "$row" + itoa(id)
}

func itoa(id uint64) string {
	if id == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for id > 0 {
		i--
		buf[i] = byte('0' + id%10)
		id /= 10
	}
	return string(buf[i:])
}
