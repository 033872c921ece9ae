package backend

// Op is one relational operator in a push-down plan's runnable tree.
type Op interface {
	isOp()
}

// ScanOp is a base relation: rows already materialized by the caller before
// the plan was built.
type ScanOp struct{ Rows []Row }

// FilterOp keeps rows for which Pred evaluates true (a `where` step).
type FilterOp struct {
	Input Op
	Pred  ScalarExpr
}

// ProjectOp replaces each row with the record Fields computes (a `yield`
// step whose result is itself a record).
type ProjectOp struct {
	Input  Op
	Fields map[string]ScalarExpr
}

// OrderKey is one `order` key, high to low precedence in declaration order.
type OrderKey struct {
	Expr ScalarExpr
	Desc bool
}

// OrderOp stably sorts Input by Keys (an `order` step).
type OrderOp struct {
	Input Op
	Keys  []OrderKey
}

// LimitOp applies `skip`/`take`; Skip/Take of -1 means "not present".
type LimitOp struct {
	Input      Op
	Skip, Take int
}

// DistinctOp removes duplicate rows, keeping first occurrence.
type DistinctOp struct{ Input Op }

// AggSpec is one `name = aggregator of expr` entry of a `group... compute`.
type AggSpec struct {
	Name string
	Agg  string
	Expr ScalarExpr
}

// GroupOp partitions Input by KeyFields' values and computes Aggs per group
// (a `group... compute` step). KeyFields names the fields the grouping key
// record contributes to each result row.
type GroupOp struct {
	Input     Op
	KeyFields map[string]ScalarExpr
	Aggs      []AggSpec
}

// SetOp combines Left and Right by Kind ("union", "intersect", "except").
type SetOp struct {
	Kind        string
	Left, Right Op
	Distinct    bool
}

func (*ScanOp) isOp()     {}
func (*FilterOp) isOp()   {}
func (*ProjectOp) isOp()  {}
func (*OrderOp) isOp()    {}
func (*LimitOp) isOp()    {}
func (*DistinctOp) isOp() {}
func (*GroupOp) isOp()    {}
func (*SetOp) isOp()      {}
