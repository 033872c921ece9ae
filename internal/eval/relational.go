package eval

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/deepsen/smli/internal/core"
)

// row is one in-flight tuple of a relational pipeline: an environment
// extending the pipeline's outer scope with every scan variable bound so
// far.
type row struct {
	env *Environment
}

// rowShape names the bindings that make up the current row, tracked
// alongside the row set as steps rewrite it: scans and joins contribute
// their variables, `group` replaces the names with its key and aggregate
// fields, `yield` with the yielded record's fields (or a single anonymous
// value). The default materialization of a row is the sole named value for
// a one-name non-record shape, a record of the names otherwise, and `()`
// for a pipeline of no scans.
type rowShape struct {
	names  []string
	record bool // materialize as a record even when len(names) == 1
}

// yieldValueName binds a non-record yield's value in the row scope; the
// leading `$` keeps it out of reach of source programs.
const yieldValueName = "$yield"

func headShape(head []core.Scan) rowShape {
	var names []string
	for _, sc := range head {
		if vp, ok := sc.Pattern.(*core.VarPattern); ok {
			names = append(names, vp.Name)
		}
	}
	return rowShape{names: names, record: len(names) > 1}
}

// rowValue materializes one row per the current shape.
func rowValue(r row, shape rowShape) Value {
	if !shape.record {
		switch len(shape.names) {
		case 0:
			return UnitValue{}
		case 1:
			if v, ok := r.env.Get(shape.names[0]); ok {
				return v
			}
		}
	}
	fields := make(map[string]Value, len(shape.names))
	for _, n := range shape.names {
		if v, ok := r.env.Get(n); ok {
			fields[n] = v
		}
	}
	return &RecordValue{Fields: fields}
}

func (ev *Evaluator) evalFrom(env *Environment, f *core.From) (Value, error) {
	if f.Plan != nil {
		return ev.evalBackendPlan(env, f)
	}
	rows, err := ev.scanHead(env, f.Head)
	if err != nil {
		return nil, err
	}
	shape := headShape(f.Head)
	unordered := false

	var result Value
	resultSet := false

	for _, step := range f.Steps {
		switch step.Kind {
		case core.StepWhere:
			rows, err = ev.filterRows(rows, step.Cond)
			if err != nil {
				return nil, err
			}

		case core.StepRequire:
			// `forall E require C` is Relational.empty(From E... where not
			// C): narrow to the rows violating C, then report emptiness
			// of that violation set as the pipeline's result below.
			rows, err = ev.filterRowsNot(rows, step.Cond)
			if err != nil {
				return nil, err
			}

		case core.StepJoin:
			rows, err = ev.joinRows(rows, step.JoinScans, step.JoinOn)
			if err != nil {
				return nil, err
			}
			for _, sc := range step.JoinScans {
				if vp, ok := sc.Pattern.(*core.VarPattern); ok {
					shape.names = append(shape.names, vp.Name)
				}
			}
			shape.record = len(shape.names) > 1

		case core.StepDistinct:
			rows, err = ev.distinctRows(rows, shape)
			if err != nil {
				return nil, err
			}

		case core.StepUnorder:
			unordered = true

		case core.StepTake:
			n, err := ev.evalCount(env, step.CountExpr)
			if err != nil {
				return nil, err
			}
			if n < len(rows) {
				rows = rows[:n]
			}

		case core.StepSkip:
			n, err := ev.evalCount(env, step.CountExpr)
			if err != nil {
				return nil, err
			}
			if n < len(rows) {
				rows = rows[n:]
			} else {
				rows = nil
			}

		case core.StepOrder:
			if err := ev.orderRows(rows, step.OrderKeys); err != nil {
				return nil, err
			}
			unordered = false // order re-imposes order

		case core.StepGroup:
			rows, shape, err = ev.groupRows(env, rows, step)
			if err != nil {
				return nil, err
			}

		case core.StepYield:
			rows, shape, err = ev.yieldRows(rows, step.YieldExpr)
			if err != nil {
				return nil, err
			}

		case core.StepThrough:
			rows, shape, err = ev.throughRows(rows, step.ThroughPattern, step.ThroughFn, shape)
			if err != nil {
				return nil, err
			}

		case core.StepCompute:
			v, err := ev.computeAggs(env, rows, step.Aggs)
			if err != nil {
				return nil, err
			}
			result, resultSet = v, true

		case core.StepInto:
			var coll Value
			if unordered {
				coll = &BagValue{Elems: ev.materialize(rows, shape)}
			} else {
				coll = &ListValue{Elems: ev.materialize(rows, shape)}
			}
			fnV, err := ev.Eval(env, step.IntoFn)
			if err != nil {
				return nil, err
			}
			v, err := ev.apply(fnV, coll)
			if err != nil {
				return nil, err
			}
			result, resultSet = v, true

		case core.StepUnion, core.StepIntersect, core.StepExcept:
			elems, err := ev.setOp(env, step.Kind, ev.materialize(rows, shape), step.SetOperands)
			if err != nil {
				return nil, err
			}
			// Re-seed the row set from the combined elements so later steps
			// (distinct, order, take, a further set-op) keep working.
			rows = make([]row, len(elems))
			for i, el := range elems {
				rows[i] = row{env: env.Extend(yieldValueName, el)}
			}
			shape = rowShape{names: []string{yieldValueName}}
		}

	}

	switch f.Kind {
	case core.PipelineExists:
		return BoolValue{V: len(rows) > 0}, nil
	case core.PipelineForall:
		return BoolValue{V: len(rows) == 0}, nil
	}

	if resultSet {
		return result, nil
	}
	return ev.finish(ev.materialize(rows, shape), unordered, f.Kind), nil
}

func (ev *Evaluator) finish(elems []Value, unordered bool, kind core.PipelineKind) Value {
	if unordered {
		return &BagValue{Elems: elems}
	}
	return &ListValue{Elems: elems}
}

func (ev *Evaluator) scanHead(env *Environment, head []core.Scan) ([]row, error) {
	rows := []row{{env: env}}
	for _, sc := range head {
		var err error
		rows, err = ev.scanOne(rows, sc)
		if err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func (ev *Evaluator) scanOne(rows []row, sc core.Scan) ([]row, error) {
	var out []row
	for _, r := range rows {
		extent, err := ev.scanExtent(r.env, sc)
		if err != nil {
			return nil, err
		}
		for _, v := range extent {
			if childEnv, ok := matchPattern(sc.Pattern, v, r.env); ok {
				out = append(out, row{env: childEnv})
			}
		}
	}
	return out, nil
}

// scanExtent lists the candidate values a scan ranges over. A scan with a
// source expression simply evaluates it; a bare scan (no `in e`, Source ==
// nil) is expected to have already been rewritten by internal/normalize's
// extent solver to a concrete Source. A bare scan that reaches here
// unrewritten ranges over the two bool values, whatever its type; no other
// type (unit included) is handled on this path.
func (ev *Evaluator) scanExtent(env *Environment, sc core.Scan) ([]Value, error) {
	if sc.Source == nil {
		return []Value{BoolValue{V: true}, BoolValue{V: false}}, nil
	}
	v, err := ev.Eval(env, sc.Source)
	if err != nil {
		return nil, err
	}
	elems, ok := listElems(v)
	if !ok {
		return nil, fmt.Errorf("scan source is not a list or bag")
	}
	return elems, nil
}

func (ev *Evaluator) filterRows(rows []row, cond core.CoreExpr) ([]row, error) {
	var out []row
	for _, r := range rows {
		v, err := ev.Eval(r.env, cond)
		if err != nil {
			return nil, err
		}
		if b, ok := v.(BoolValue); ok && b.V {
			out = append(out, r)
		}
	}
	return out, nil
}

func (ev *Evaluator) filterRowsNot(rows []row, cond core.CoreExpr) ([]row, error) {
	var out []row
	for _, r := range rows {
		v, err := ev.Eval(r.env, cond)
		if err != nil {
			return nil, err
		}
		b, ok := v.(BoolValue)
		if !ok {
			return nil, fmt.Errorf("require: condition must be bool")
		}
		if !b.V {
			out = append(out, r)
		}
	}
	return out, nil
}

func (ev *Evaluator) joinRows(rows []row, scans []core.Scan, on core.CoreExpr) ([]row, error) {
	for _, sc := range scans {
		var err error
		rows, err = ev.scanOne(rows, sc)
		if err != nil {
			return nil, err
		}
	}
	if on == nil {
		return rows, nil
	}
	return ev.filterRows(rows, on)
}

// yieldRows evaluates the yield expression against every row, re-seeding the
// row scope: a record result binds its fields for subsequent steps, anything else becomes the
// row's sole anonymous value.
func (ev *Evaluator) yieldRows(rows []row, yieldExpr core.CoreExpr) ([]row, rowShape, error) {
	shape := rowShape{names: []string{yieldValueName}}
	out := make([]row, 0, len(rows))
	for i, r := range rows {
		v, err := ev.Eval(r.env, yieldExpr)
		if err != nil {
			return nil, shape, err
		}
		if rec, ok := v.(*RecordValue); ok {
			names := sortedRecordFields(rec.Fields)
			env := r.env
			for _, n := range names {
				env = env.Extend(n, rec.Fields[n])
			}
			if i == 0 {
				shape = rowShape{names: names, record: true}
			}
			out = append(out, row{env: env})
			continue
		}
		out = append(out, row{env: r.env.Extend(yieldValueName, v)})
	}
	return out, shape, nil
}

// throughRows implements `through pat in fn-expr`: fn-expr is called with the
// row built so far (the same value a terminal yield-less pipeline would
// produce) and its result is re-bound against pat, re-seeding the scope
// later steps see.
func (ev *Evaluator) throughRows(rows []row, pat core.CorePattern, fn core.CoreExpr, shape rowShape) ([]row, rowShape, error) {
	var out []row
	for _, r := range rows {
		fnV, err := ev.Eval(r.env, fn)
		if err != nil {
			return nil, shape, err
		}
		v, err := ev.apply(fnV, rowValue(r, shape))
		if err != nil {
			return nil, shape, err
		}
		if childEnv, ok := matchPattern(pat, v, r.env); ok {
			out = append(out, row{env: childEnv})
		}
	}
	return out, patternShape(pat), nil
}

// patternShape gives the row shape a `through` pattern re-seeds: the bound
// names, materialized as a record only when the pattern binds more than one.
func patternShape(pat core.CorePattern) rowShape {
	names := patternNames(pat)
	return rowShape{names: names, record: len(names) > 1}
}

func patternNames(pat core.CorePattern) []string {
	var out []string
	var walk func(p core.CorePattern)
	walk = func(p core.CorePattern) {
		switch p := p.(type) {
		case *core.VarPattern:
			out = append(out, p.Name)
		case *core.TuplePattern:
			for _, e := range p.Elements {
				walk(e)
			}
		case *core.RecordPattern:
			for _, e := range p.Fields {
				walk(e)
			}
		case *core.ConstructorPattern:
			for _, e := range p.Args {
				walk(e)
			}
		case *core.ListPattern:
			for _, e := range p.Elements {
				walk(e)
			}
			if p.Tail != nil {
				walk(*p.Tail)
			}
		}
	}
	walk(pat)
	return out
}

func (ev *Evaluator) distinctRows(rows []row, shape rowShape) ([]row, error) {
	var out []row
	var seen []Value
	for _, r := range rows {
		key := rowValue(r, shape)
		dup := false
		for _, s := range seen {
			if valuesEqual(s, key) {
				dup = true
				break
			}
		}
		if !dup {
			seen = append(seen, key)
			out = append(out, r)
		}
	}
	return out, nil
}

func (ev *Evaluator) orderRows(rows []row, keys []core.OrderKey) error {
	var sortErr error
	sort.SliceStable(rows, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		for _, k := range keys {
			vi, err := ev.Eval(rows[i].env, k.Expr)
			if err != nil {
				sortErr = err
				return false
			}
			vj, err := ev.Eval(rows[j].env, k.Expr)
			if err != nil {
				sortErr = err
				return false
			}
			c, err := valuesCompare(vi, vj)
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
	return sortErr
}

func (ev *Evaluator) evalCount(env *Environment, e core.CoreExpr) (int, error) {
	v, err := ev.Eval(env, e)
	if err != nil {
		return 0, err
	}
	iv, ok := v.(IntValue)
	if !ok {
		return 0, fmt.Errorf("count must be an int")
	}
	return int(iv.V.Int64()), nil
}

// groupRows partitions rows by the tuple of key-field values, replacing the
// row set with one row per group whose scope binds each key field plus each
// aggregate field.
func (ev *Evaluator) groupRows(env *Environment, rows []row, step core.Step) ([]row, rowShape, error) {
	shape := rowShape{record: true}
	for _, gf := range step.GroupFields {
		shape.names = append(shape.names, gf.Name)
	}
	for _, spec := range step.ComputeSpecs {
		name := spec.Name
		if name == "" {
			name = spec.Agg
		}
		shape.names = append(shape.names, name)
	}

	type bucket struct {
		key     []Value
		members []row
	}
	var buckets []bucket
	for _, r := range rows {
		key := make([]Value, len(step.GroupFields))
		for i, gf := range step.GroupFields {
			v, err := ev.Eval(r.env, gf.Expr)
			if err != nil {
				return nil, shape, err
			}
			key[i] = v
		}
		placed := false
		for i := range buckets {
			if keysEqual(buckets[i].key, key) {
				buckets[i].members = append(buckets[i].members, r)
				placed = true
				break
			}
		}
		if !placed {
			buckets = append(buckets, bucket{key: key, members: []row{r}})
		}
	}

	var out []row
	for _, b := range buckets {
		groupEnv := env
		for i, gf := range step.GroupFields {
			groupEnv = groupEnv.Extend(gf.Name, b.key[i])
		}
		for _, spec := range step.ComputeSpecs {
			vals := make([]Value, len(b.members))
			for i, m := range b.members {
				v, err := ev.Eval(m.env, spec.Expr)
				if err != nil {
					return nil, shape, err
				}
				vals[i] = v
			}
			agg, err := applyAggregator(spec.Agg, vals)
			if err != nil {
				return nil, shape, err
			}
			name := spec.Name
			if name == "" {
				name = spec.Agg
			}
			groupEnv = groupEnv.Extend(name, agg)
		}
		out = append(out, row{env: groupEnv})
	}
	return out, shape, nil
}

func keysEqual(a, b []Value) bool {
	for i := range a {
		if !valuesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func (ev *Evaluator) computeAggs(env *Environment, rows []row, aggs []core.AggSpec) (Value, error) {
	if len(aggs) == 1 && aggs[0].Name == "" {
		vals := make([]Value, len(rows))
		for i, r := range rows {
			v, err := ev.Eval(r.env, aggs[0].Expr)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return applyAggregator(aggs[0].Agg, vals)
	}
	fields := map[string]Value{}
	for _, spec := range aggs {
		vals := make([]Value, len(rows))
		for i, r := range rows {
			v, err := ev.Eval(r.env, spec.Expr)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		v, err := applyAggregator(spec.Agg, vals)
		if err != nil {
			return nil, err
		}
		fields[spec.Name] = v
	}
	return &RecordValue{Fields: fields}, nil
}

func applyAggregator(agg string, vals []Value) (Value, error) {
	switch agg {
	case "count":
		return NewInt(int64(len(vals))), nil
	case "sum":
		return reduceNumeric(vals, func(acc, v Value) (Value, error) { return arith("+", acc, v) })
	case "min":
		return reduceBy(vals, func(a, b Value) (bool, error) {
			c, err := valuesCompare(a, b)
			return c <= 0, err
		})
	case "max":
		return reduceBy(vals, func(a, b Value) (bool, error) {
			c, err := valuesCompare(a, b)
			return c >= 0, err
		})
	case "avg":
		sum, err := reduceNumeric(vals, func(acc, v Value) (Value, error) { return arith("+", acc, v) })
		if err != nil {
			return nil, err
		}
		return divideByCount(sum, len(vals))
	}
	return nil, fmt.Errorf("unknown aggregator %q", agg)
}

func reduceNumeric(vals []Value, f func(acc, v Value) (Value, error)) (Value, error) {
	if len(vals) == 0 {
		return NewInt(0), nil
	}
	acc := vals[0]
	for _, v := range vals[1:] {
		var err error
		acc, err = f(acc, v)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func reduceBy(vals []Value, keep func(a, b Value) (bool, error)) (Value, error) {
	if len(vals) == 0 {
		return nil, raise("Empty", nil)
	}
	best := vals[0]
	for _, v := range vals[1:] {
		ok, err := keep(best, v)
		if err != nil {
			return nil, err
		}
		if !ok {
			best = v
		}
	}
	return best, nil
}

func divideByCount(sum Value, n int) (Value, error) {
	if n == 0 {
		return nil, raise("Div", nil)
	}
	switch s := sum.(type) {
	case IntValue:
		q := new(big.Int).Quo(s.V, big.NewInt(int64(n)))
		return IntValue{V: q}, nil
	case RealValue:
		return RealValue{V: s.V / float64(n)}, nil
	}
	return nil, fmt.Errorf("avg: non-numeric sum")
}

func (ev *Evaluator) setOp(env *Environment, kind core.StepKind, base []Value, operands []core.SetOperand) ([]Value, error) {
	result := base
	for _, op := range operands {
		v, err := ev.Eval(env, op.Source)
		if err != nil {
			return nil, err
		}
		elems, ok := listElems(v)
		if !ok {
			return nil, fmt.Errorf("set operand is not a list or bag")
		}
		switch kind {
		case core.StepUnion:
			result = append(append([]Value{}, result...), elems...)
		case core.StepIntersect:
			result = intersect(result, elems)
		case core.StepExcept:
			result = except(result, elems)
		}
		if op.Distinct {
			result = dedupe(result)
		}
	}
	return result, nil
}

// intersect and except are multiset operators: each match consumes one
// occurrence from b (the same used-slot tracking as bagEqual), so an
// element survives intersect min(count(a), count(b)) times and except
// max(0, count(a) - count(b)) times.
func intersect(a, b []Value) []Value {
	used := make([]bool, len(b))
	var out []Value
	for _, x := range a {
		for j, y := range b {
			if !used[j] && valuesEqual(x, y) {
				used[j] = true
				out = append(out, x)
				break
			}
		}
	}
	return out
}

func except(a, b []Value) []Value {
	used := make([]bool, len(b))
	var out []Value
	for _, x := range a {
		consumed := false
		for j, y := range b {
			if !used[j] && valuesEqual(x, y) {
				used[j] = true
				consumed = true
				break
			}
		}
		if !consumed {
			out = append(out, x)
		}
	}
	return out
}

func dedupe(vs []Value) []Value {
	var out []Value
	for _, v := range vs {
		dup := false
		for _, o := range out {
			if valuesEqual(o, v) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out
}

// materialize converts every surviving row into its value per the current
// row shape.
func (ev *Evaluator) materialize(rows []row, shape rowShape) []Value {
	out := make([]Value, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowValue(r, shape))
	}
	return out
}
