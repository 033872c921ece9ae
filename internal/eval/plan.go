package eval

import (
	"fmt"
	"math/big"

	"github.com/deepsen/smli/internal/backend"
	"github.com/deepsen/smli/internal/core"
)

// evalBackendPlan runs a pushed-down pipeline: the head source is materialized into backend rows, the
// plan's Op tree is built over them, and the backend's result rows are
// decoded back into values in the host's collection representation.
func (ev *Evaluator) evalBackendPlan(env *Environment, f *core.From) (Value, error) {
	p := f.Plan
	srcV, err := ev.Eval(env, p.Source)
	if err != nil {
		return nil, err
	}
	elems, ok := listElems(srcV)
	if !ok {
		return nil, fmt.Errorf("backend plan source is not a list or bag")
	}
	rows := make([]backend.Row, len(elems))
	for i, v := range elems {
		r, err := valueToRow(v)
		if err != nil {
			return nil, err
		}
		rows[i] = r
	}

	plan := p.Build(rows)
	if enc, err := backend.EncodePlan(backend.Describe(plan.Root), plan.FreeVars); err == nil {
		plan.Encoded = enc
	}
	resultRows, err := ev.backend.Execute(*plan)
	if err != nil {
		return nil, err
	}

	out := make([]Value, len(resultRows))
	for i, r := range resultRows {
		out[i], err = rowToValue(r)
		if err != nil {
			return nil, err
		}
	}
	switch f.Kind {
	case core.PipelineExists:
		return BoolValue{V: len(out) > 0}, nil
	case core.PipelineForall:
		return BoolValue{V: len(out) == 0}, nil
	}
	if p.Terminal {
		if len(out) != 1 {
			return nil, fmt.Errorf("backend: terminal compute returned %d rows", len(out))
		}
		return out[0], nil
	}
	if p.Unordered {
		return &BagValue{Elems: out}, nil
	}
	return &ListValue{Elems: out}, nil
}

// valueToRow converts one scan element into the backend's json-like Row: a
// record maps field by field, any other value becomes a single synthetic
// "_value" column (the same convention internal/normalize's scalar
// translator uses for a bare row variable).
func valueToRow(v Value) (backend.Row, error) {
	if rec, ok := v.(*RecordValue); ok {
		r := backend.Row{}
		for name, fv := range rec.Fields {
			s, err := valueToScalar(fv)
			if err != nil {
				return nil, err
			}
			r[name] = s
		}
		return r, nil
	}
	s, err := valueToScalar(v)
	if err != nil {
		return nil, err
	}
	return backend.Row{"_value": s}, nil
}

func valueToScalar(v Value) (any, error) {
	switch v := v.(type) {
	case IntValue:
		if !v.V.IsInt64() {
			return nil, fmt.Errorf("backend: integer out of 64-bit range")
		}
		return v.V.Int64(), nil
	case RealValue:
		return v.V, nil
	case BoolValue:
		return v.V, nil
	case StringValue:
		return v.V, nil
	case UnitValue:
		return nil, nil
	}
	return nil, fmt.Errorf("backend: cannot convert a %s value to a row scalar", kindName(v))
}

func rowToValue(r backend.Row) (Value, error) {
	if len(r) == 1 {
		if s, ok := r["_value"]; ok {
			return scalarToValue(s)
		}
	}
	fields := make(map[string]Value, len(r))
	for name, s := range r {
		v, err := scalarToValue(s)
		if err != nil {
			return nil, err
		}
		fields[name] = v
	}
	return &RecordValue{Fields: fields}, nil
}

func scalarToValue(s any) (Value, error) {
	switch s := s.(type) {
	case nil:
		return UnitValue{}, nil
	case bool:
		return BoolValue{V: s}, nil
	case int64:
		return IntValue{V: big.NewInt(s)}, nil
	case float64:
		return RealValue{V: s}, nil
	case string:
		return StringValue{V: s}, nil
	}
	return nil, fmt.Errorf("backend: cannot decode a %T result scalar", s)
}
