package backend

import (
	"fmt"
	"sort"
	"strings"
)

// Describe renders an Op tree as one line per operator in execution order,
// the human-readable plan description the encoded envelope carries.
func Describe(op Op) []string {
	switch op := op.(type) {
	case *ScanOp:
		return []string{fmt.Sprintf("scan(%d rows)", len(op.Rows))}
	case *FilterOp:
		return append(Describe(op.Input), "filter")
	case *ProjectOp:
		return append(Describe(op.Input), "project("+fieldNames(op.Fields)+")")
	case *OrderOp:
		return append(Describe(op.Input), fmt.Sprintf("order(%d keys)", len(op.Keys)))
	case *LimitOp:
		return append(Describe(op.Input), fmt.Sprintf("limit(skip=%d, take=%d)", op.Skip, op.Take))
	case *DistinctOp:
		return append(Describe(op.Input), "distinct")
	case *GroupOp:
		return append(Describe(op.Input), fmt.Sprintf("group(%s; %d aggs)", fieldNames(op.KeyFields), len(op.Aggs)))
	case *SetOp:
		return append(Describe(op.Left), op.Kind)
	}
	return []string{fmt.Sprintf("unknown(%T)", op)}
}

func fieldNames(fields map[string]ScalarExpr) string {
	names := make([]string, 0, len(fields))
	for n := range fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
