package runtime

import (
	"github.com/deepsen/smli/internal/eval"
)

// BuiltinRegistry holds the native Go implementations reachable through a
// GlobalRef{Module: "$builtin",...}. The language has no effect system, so every registered builtin
// is pure: arithmetic, comparison, conversion, and string primitives
// implemented directly in internal/eval's own builtin tables.
type BuiltinRegistry struct {
	builtins map[string]eval.Value
}

// NewBuiltinRegistry builds a registry wrapping every name eval.BuiltinNames
// lists, each as a curried eval.BuiltinValue of its declared arity.
func NewBuiltinRegistry() *BuiltinRegistry {
	names := eval.BuiltinNames()
	br := &BuiltinRegistry{builtins: make(map[string]eval.Value, len(names))}
	for _, name := range names {
		v, _ := eval.NewBuiltin(name)
		br.builtins[name] = v
	}
	return br
}

// Get looks up a builtin function by name.
func (br *BuiltinRegistry) Get(name string) (eval.Value, bool) {
	val, ok := br.builtins[name]
	return val, ok
}
