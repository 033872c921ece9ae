package backend

import (
	"fmt"
	"sort"
)

// Reference is the in-process Backend implementation: it runs a Plan's Op
// tree directly rather than round-tripping through Encoded, so the whole
// pipeline is runnable without an actual external relational engine.
type Reference struct{}

func (Reference) Execute(plan Plan) ([]Row, error) {
	return runOp(plan.Root)
}

func runOp(op Op) ([]Row, error) {
	switch op := op.(type) {
	case *ScanOp:
		return op.Rows, nil

	case *FilterOp:
		rows, err := runOp(op.Input)
		if err != nil {
			return nil, err
		}
		var out []Row
		for _, r := range rows {
			keep, err := Eval(op.Pred, r)
			if err != nil {
				return nil, err
			}
			if b, ok := keep.(bool); ok && b {
				out = append(out, r)
			}
		}
		return out, nil

	case *ProjectOp:
		rows, err := runOp(op.Input)
		if err != nil {
			return nil, err
		}
		out := make([]Row, len(rows))
		for i, r := range rows {
			nr := Row{}
			for name, expr := range op.Fields {
				v, err := Eval(expr, r)
				if err != nil {
					return nil, err
				}
				nr[name] = v
			}
			out[i] = nr
		}
		return out, nil

	case *OrderOp:
		rows, err := runOp(op.Input)
		if err != nil {
			return nil, err
		}
		rows = append([]Row{}, rows...)
		var sortErr error
		sort.SliceStable(rows, func(i, j int) bool {
			if sortErr != nil {
				return false
			}
			for _, k := range op.Keys {
				vi, err := Eval(k.Expr, rows[i])
				if err != nil {
					sortErr = err
					return false
				}
				vj, err := Eval(k.Expr, rows[j])
				if err != nil {
					sortErr = err
					return false
				}
				c, err := compareScalar(vi, vj)
				if err != nil {
					sortErr = err
					return false
				}
				if k.Desc {
					c = -c
				}
				if c != 0 {
					return c < 0
				}
			}
			return false
		})
		return rows, sortErr

	case *LimitOp:
		rows, err := runOp(op.Input)
		if err != nil {
			return nil, err
		}
		if op.Skip > 0 {
			if op.Skip >= len(rows) {
				rows = nil
			} else {
				rows = rows[op.Skip:]
			}
		}
		if op.Take >= 0 && op.Take < len(rows) {
			rows = rows[:op.Take]
		}
		return rows, nil

	case *DistinctOp:
		rows, err := runOp(op.Input)
		if err != nil {
			return nil, err
		}
		var out []Row
		for _, r := range rows {
			dup := false
			for _, o := range out {
				if rowsEqual(o, r) {
					dup = true
					break
				}
			}
			if !dup {
				out = append(out, r)
			}
		}
		return out, nil

	case *GroupOp:
		return runGroup(op)

	case *SetOp:
		left, err := runOp(op.Left)
		if err != nil {
			return nil, err
		}
		right, err := runOp(op.Right)
		if err != nil {
			return nil, err
		}
		var out []Row
		switch op.Kind {
		case "union":
			out = append(append([]Row{}, left...), right...)
		case "intersect":
			// Multiset semantics: each match consumes one right-side
			// occurrence, so duplicates survive only up to min multiplicity.
			used := make([]bool, len(right))
			for _, l := range left {
				for j, r := range right {
					if !used[j] && rowsEqual(l, r) {
						used[j] = true
						out = append(out, l)
						break
					}
				}
			}
		case "except":
			used := make([]bool, len(right))
			for _, l := range left {
				consumed := false
				for j, r := range right {
					if !used[j] && rowsEqual(l, r) {
						used[j] = true
						consumed = true
						break
					}
				}
				if !consumed {
					out = append(out, l)
				}
			}
		default:
			return nil, fmt.Errorf("backend: unknown set op %q", op.Kind)
		}
		if op.Distinct {
			var deduped []Row
			for _, r := range out {
				dup := false
				for _, o := range deduped {
					if rowsEqual(o, r) {
						dup = true
						break
					}
				}
				if !dup {
					deduped = append(deduped, r)
				}
			}
			out = deduped
		}
		return out, nil
	}
	return nil, fmt.Errorf("backend: unknown op %T", op)
}

func runGroup(op *GroupOp) ([]Row, error) {
	rows, err := runOp(op.Input)
	if err != nil {
		return nil, err
	}
	type bucket struct {
		key     Row
		members []Row
	}
	var buckets []bucket
	for _, r := range rows {
		key := Row{}
		for name, expr := range op.KeyFields {
			v, err := Eval(expr, r)
			if err != nil {
				return nil, err
			}
			key[name] = v
		}
		placed := false
		for i := range buckets {
			if rowsEqual(buckets[i].key, key) {
				buckets[i].members = append(buckets[i].members, r)
				placed = true
				break
			}
		}
		if !placed {
			buckets = append(buckets, bucket{key: key, members: []Row{r}})
		}
	}
	out := make([]Row, len(buckets))
	for i, b := range buckets {
		result := Row{}
		for k, v := range b.key {
			result[k] = v
		}
		for _, agg := range op.Aggs {
			vals := make([]any, len(b.members))
			for j, m := range b.members {
				v, err := Eval(agg.Expr, m)
				if err != nil {
					return nil, err
				}
				vals[j] = v
			}
			v, err := applyAgg(agg.Agg, vals)
			if err != nil {
				return nil, err
			}
			result[agg.Name] = v
		}
		out[i] = result
	}
	return out, nil
}

func applyAgg(agg string, vals []any) (any, error) {
	switch agg {
	case "count":
		return int64(len(vals)), nil
	case "sum":
		if len(vals) == 0 {
			return int64(0), nil
		}
		acc := vals[0]
		for _, v := range vals[1:] {
			var err error
			acc, err = arithScalar("+", acc, v)
			if err != nil {
				return nil, err
			}
		}
		return acc, nil
	case "min", "max":
		if len(vals) == 0 {
			return nil, fmt.Errorf("backend: %s of empty group", agg)
		}
		best := vals[0]
		for _, v := range vals[1:] {
			c, err := compareScalar(best, v)
			if err != nil {
				return nil, err
			}
			if (agg == "min" && c > 0) || (agg == "max" && c < 0) {
				best = v
			}
		}
		return best, nil
	case "avg":
		if len(vals) == 0 {
			return nil, fmt.Errorf("backend: avg of empty group")
		}
		sum, err := applyAgg("sum", vals)
		if err != nil {
			return nil, err
		}
		sf, _ := toFloat(sum)
		return sf / float64(len(vals)), nil
	}
	return nil, fmt.Errorf("backend: unknown aggregator %q", agg)
}

func rowsEqual(a, b Row) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		bv, ok := b[k]
		if !ok || !equalScalar(v, bv) {
			return false
		}
	}
	return true
}
