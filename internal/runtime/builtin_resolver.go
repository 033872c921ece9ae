package runtime

import (
	"strings"

	"github.com/deepsen/smli/internal/core"
	"github.com/deepsen/smli/internal/eval"
)

// BuiltinOnlyResolver is the eval.GlobalResolver wired via
// eval.Evaluator.SetResolver. It resolves
// references into the synthetic "$builtin" module and underscore-prefixed
// names; anything else returns nil, nil so the evaluator's own
// global-binding lookup applies.
type BuiltinOnlyResolver struct {
	Builtins *BuiltinRegistry
}

// NewBuiltinOnlyResolver wraps a BuiltinRegistry as an eval.GlobalResolver.
func NewBuiltinOnlyResolver(builtins *BuiltinRegistry) *BuiltinOnlyResolver {
	return &BuiltinOnlyResolver{Builtins: builtins}
}

func (r *BuiltinOnlyResolver) ResolveValue(ref core.GlobalRef) (eval.Value, error) {
	if ref.Module == "$builtin" || strings.HasPrefix(ref.Name, "_") {
		if val, ok := r.Builtins.Get(ref.Name); ok {
			return val, nil
		}
	}
	return nil, nil
}
