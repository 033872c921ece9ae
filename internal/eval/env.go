package eval

import "github.com/deepsen/smli/internal/core"

// Environment is a persistent lexical scope, with
// one mutable exception: the REPL's top-level environment is extended
// destructively across declarations so later units see earlier `val`s
// without rebuilding the whole chain.
type Environment struct {
	parent   *Environment
	bindings map[string]Value
}

// NewEnvironment creates the empty root environment.
func NewEnvironment() *Environment {
	return &Environment{bindings: map[string]Value{}}
}

// Child returns a new environment extending e with no bindings of its own.
func (e *Environment) Child() *Environment {
	return &Environment{parent: e, bindings: map[string]Value{}}
}

// Extend returns a new environment like e but with name bound to v.
func (e *Environment) Extend(name string, v Value) *Environment {
	child := e.Child()
	child.bindings[name] = v
	return child
}

// Set destructively binds name in e itself (used only for the REPL's
// top-level persistent environment, never for a closure's captured scope).
func (e *Environment) Set(name string, v Value) {
	e.bindings[name] = v
}

// Get looks up name by lexical scoping.
func (e *Environment) Get(name string) (Value, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.bindings[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// GlobalResolver resolves a core.GlobalRef the environment itself does not
// bind: builtins (`$builtin` module) and names pulled in by `use`. internal/runtime.BuiltinOnlyResolver is the canonical
// implementation.
type GlobalResolver interface {
	ResolveValue(ref core.GlobalRef) (Value, error)
}
