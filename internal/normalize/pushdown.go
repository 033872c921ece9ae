package normalize

import (
	"math/big"

	"github.com/deepsen/smli/internal/backend"
	"github.com/deepsen/smli/internal/core"
)

// pushDown rewrites f into a core.BackendPlan when every step it carries
// translates into the backend's scalar/op language. Only
// a single-source pipeline with no join, through, into, or set-operation
// step is attempted — those need evaluator-level function values the
// backend's Op language has no room for — matching the conservative,
// whole-pipeline-or-nothing push-down this package settled on (DESIGN.md):
// anything not fully eligible is left for the full evaluator to run.
func pushDown(f *core.From, hybrid bool) *core.From {
	if !hybrid || f.Plan != nil || len(f.Head) != 1 {
		return f
	}
	rowVar, ok := f.Head[0].Pattern.(*core.VarPattern)
	if !ok || f.Head[0].Source == nil {
		return f
	}
	build, unordered, ok := compileSteps(f.Steps, rowVar.Name)
	if !ok {
		return f
	}
	terminal := len(f.Steps) > 0 && f.Steps[len(f.Steps)-1].Kind == core.StepCompute
	return &core.From{
		CoreNode: f.CoreNode,
		Kind:     f.Kind,
		Plan: &core.BackendPlan{
			Source:    f.Head[0].Source,
			RowVar:    rowVar.Name,
			Unordered: unordered,
			Terminal:  terminal,
			Build:     build,
		},
	}
}

// compileSteps translates a step sequence into a function from materialized
// rows to a runnable backend.Plan, bailing out the moment it meets a step
// or sub-expression it cannot express.
func compileSteps(steps []core.Step, rowVar string) (func([]backend.Row) *backend.Plan, bool, bool) {
	type stage func(backend.Op) (backend.Op, bool)
	var stages []stage
	unordered := false

	for _, st := range steps {
		st := st
		switch st.Kind {
		case core.StepWhere, core.StepRequire:
			pred, ok := translateScalar(st.Cond, rowVar)
			if !ok {
				return nil, false, false
			}
			if st.Kind == core.StepRequire {
				// `forall... require C` keeps the rows VIOLATING C; the
				// pipeline's emptiness is the forall's verdict.
				pred = &backend.UnExpr{Op: "not", Operand: pred}
			}
			stages = append(stages, func(in backend.Op) (backend.Op, bool) {
				return &backend.FilterOp{Input: in, Pred: pred}, true
			})

		case core.StepOrder:
			keys := make([]backend.OrderKey, len(st.OrderKeys))
			for i, k := range st.OrderKeys {
				expr, ok := translateScalar(k.Expr, rowVar)
				if !ok {
					return nil, false, false
				}
				keys[i] = backend.OrderKey{Expr: expr, Desc: k.Desc}
			}
			stages = append(stages, func(in backend.Op) (backend.Op, bool) {
				return &backend.OrderOp{Input: in, Keys: keys}, true
			})

		case core.StepTake:
			n, ok := constIntExpr(st.CountExpr)
			if !ok {
				return nil, false, false
			}
			stages = append(stages, func(in backend.Op) (backend.Op, bool) {
				return &backend.LimitOp{Input: in, Skip: 0, Take: n}, true
			})

		case core.StepSkip:
			n, ok := constIntExpr(st.CountExpr)
			if !ok {
				return nil, false, false
			}
			stages = append(stages, func(in backend.Op) (backend.Op, bool) {
				return &backend.LimitOp{Input: in, Skip: n, Take: -1}, true
			})

		case core.StepDistinct:
			stages = append(stages, func(in backend.Op) (backend.Op, bool) {
				return &backend.DistinctOp{Input: in}, true
			})

		case core.StepUnorder:
			unordered = true

		case core.StepGroup:
			keyFields := make(map[string]backend.ScalarExpr, len(st.GroupFields))
			for _, gf := range st.GroupFields {
				se, ok := translateScalar(gf.Expr, rowVar)
				if !ok {
					return nil, false, false
				}
				keyFields[gf.Name] = se
			}
			aggs, ok := translateAggs(st.ComputeSpecs, rowVar, false)
			if !ok {
				return nil, false, false
			}
			stages = append(stages, func(in backend.Op) (backend.Op, bool) {
				return &backend.GroupOp{Input: in, KeyFields: keyFields, Aggs: aggs}, true
			})

		case core.StepYield:
			fields, ok := translateRecordFields(st.YieldExpr, rowVar)
			if !ok {
				// A bare scalar yield (`yield v` or `yield v.field`) still
				// translates, just as a single "_value" projection.
				scalar, ok := translateScalar(st.YieldExpr, rowVar)
				if !ok {
					return nil, false, false
				}
				fields = map[string]backend.ScalarExpr{"_value": scalar}
			}
			stages = append(stages, func(in backend.Op) (backend.Op, bool) {
				return &backend.ProjectOp{Input: in, Fields: fields}, true
			})

		case core.StepCompute:
			aggs, ok := translateAggs(st.Aggs, rowVar, true)
			if !ok {
				return nil, false, false
			}
			stages = append(stages, func(in backend.Op) (backend.Op, bool) {
				return &backend.GroupOp{Input: in, KeyFields: map[string]backend.ScalarExpr{}, Aggs: aggs}, true
			})

		default:
			// Join, Through, Into, Union, Intersect, Except: needs a
			// function value or a second source the backend Op tree has no
			// room for (DESIGN.md). Bail out of push-down entirely.
			return nil, false, false
		}
	}

	build := func(rows []backend.Row) *backend.Plan {
		var op backend.Op = &backend.ScanOp{Rows: rows}
		for _, s := range stages {
			op, _ = s(op)
		}
		return &backend.Plan{Root: op}
	}
	return build, unordered, true
}

// translateScalar translates a row-scalar core expression into the
// backend's ScalarExpr language, recognizing the row variable itself
// (bound to the "_value" field of a synthesized scalar row) and field
// projections out of it.
func translateScalar(e core.CoreExpr, rowVar string) (backend.ScalarExpr, bool) {
	switch e := e.(type) {
	case *core.Lit:
		switch e.Kind {
		case core.IntLit:
			n, ok := e.Value.(*big.Int)
			if !ok {
				return nil, false
			}
			return backend.Const{Value: n.Int64()}, true
		case core.FloatLit, core.StringLit, core.BoolLit:
			return backend.Const{Value: e.Value}, true
		}
		return nil, false

	case *core.Var:
		if e.Name == rowVar {
			return backend.FieldRef{Name: "_value"}, true
		}
		return nil, false

	case *core.RecordAccess:
		if v, ok := e.Record.(*core.Var); ok && v.Name == rowVar {
			return backend.FieldRef{Name: e.Field}, true
		}
		return nil, false

	case *core.BinOp:
		op, ok := scalarBinOp(e.Op)
		if !ok {
			return nil, false
		}
		l, ok := translateScalar(e.Left, rowVar)
		if !ok {
			return nil, false
		}
		r, ok := translateScalar(e.Right, rowVar)
		if !ok {
			return nil, false
		}
		return &backend.BinExpr{Op: op, Left: l, Right: r}, true

	case *core.UnOp:
		op, ok := scalarUnOp(e.Op)
		if !ok {
			return nil, false
		}
		operand, ok := translateScalar(e.Operand, rowVar)
		if !ok {
			return nil, false
		}
		return &backend.UnExpr{Op: op, Operand: operand}, true

	case *core.If:
		// `andalso`/`orelse` lower to If directly (internal/infer), not
		// BinOp; recognize their shape here to push short-circuit
		// conjunctions/disjunctions down too.
		if isBoolLit(e.Else, false) {
			l, ok := translateScalar(e.Cond, rowVar)
			if !ok {
				return nil, false
			}
			r, ok := translateScalar(e.Then, rowVar)
			if !ok {
				return nil, false
			}
			return &backend.BinExpr{Op: "and", Left: l, Right: r}, true
		}
		if isBoolLit(e.Then, true) {
			l, ok := translateScalar(e.Cond, rowVar)
			if !ok {
				return nil, false
			}
			r, ok := translateScalar(e.Else, rowVar)
			if !ok {
				return nil, false
			}
			return &backend.BinExpr{Op: "or", Left: l, Right: r}, true
		}
	}
	return nil, false
}

func isBoolLit(e core.CoreExpr, want bool) bool {
	lit, ok := e.(*core.Lit)
	return ok && lit.Kind == core.BoolLit && lit.Value == want
}

func scalarBinOp(op string) (string, bool) {
	switch op {
	case "=", "<>", "<", "<=", ">", ">=", "+", "-", "*":
		return op, true
	case "andalso":
		return "and", true
	case "orelse":
		return "or", true
	}
	return "", false
}

func scalarUnOp(op string) (string, bool) {
	switch op {
	case "not":
		return "not", true
	case "~":
		return "neg", true
	}
	return "", false
}

// translateRecordFields translates a `{label = expr,...}` record literal
// into named backend fields for a record-shaped yield.
func translateRecordFields(e core.CoreExpr, rowVar string) (map[string]backend.ScalarExpr, bool) {
	rec, ok := e.(*core.Record)
	if !ok {
		return nil, false
	}
	fields := make(map[string]backend.ScalarExpr, len(rec.Fields))
	for label, fe := range rec.Fields {
		se, ok := translateScalar(fe, rowVar)
		if !ok {
			return nil, false
		}
		fields[label] = se
	}
	return fields, true
}

func translateAggs(specs []core.AggSpec, rowVar string, bare bool) ([]backend.AggSpec, bool) {
	out := make([]backend.AggSpec, len(specs))
	for i, s := range specs {
		expr, ok := translateScalar(s.Expr, rowVar)
		if !ok {
			return nil, false
		}
		name := s.Name
		if name == "" {
			name = s.Agg
			// A single bare `compute agg over e` produces a scalar, not a
			// record; "_value" makes the backend row decode back to one.
			if bare && len(specs) == 1 {
				name = "_value"
			}
		}
		out[i] = backend.AggSpec{Name: name, Agg: s.Agg, Expr: expr}
	}
	return out, true
}

func constIntExpr(e core.CoreExpr) (int, bool) {
	lit, ok := e.(*core.Lit)
	if !ok || lit.Kind != core.IntLit {
		return 0, false
	}
	n, ok := lit.Value.(*big.Int)
	if !ok {
		return 0, false
	}
	return int(n.Int64()), true
}
