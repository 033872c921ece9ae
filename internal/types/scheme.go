package types

// Scheme is a universally quantified type, `forall 'a 'b. t`. Vars lists the bound
// type-variable ids; every free variable in Type not listed here must be
// bound by an enclosing scheme.
type Scheme struct {
	Vars []int
	Type Type
}

// Mono wraps a type with no bound variables (a monotype "scheme").
func Mono(t Type) *Scheme { return &Scheme{Type: t} }

func (s *Scheme) String() string {
	if len(s.Vars) == 0 {
		return s.Type.String()
	}
	names := ""
	for i, v := range s.Vars {
		if i > 0 {
			names += " "
		}
		names += varName(v)
	}
	return "forall " + names + ". " + s.Type.String()
}

// FreeVars collects the free type-variable ids of t (not bound by any
// enclosing Scheme — callers subtract a scheme's own Vars to get its body's
// free set during generalization).
func FreeVars(t Type) map[int]bool {
	out := map[int]bool{}
	freeVarsInto(t, out)
	return out
}

func freeVarsInto(t Type, out map[int]bool) {
	switch t := t.(type) {
	case *TVar:
		out[t.Id] = true
	case *TFunc:
		freeVarsInto(t.Param, out)
		freeVarsInto(t.Result, out)
	case *TTuple:
		for _, e := range t.Elems {
			freeVarsInto(e, out)
		}
	case *TList:
		freeVarsInto(t.Elem, out)
	case *TBag:
		freeVarsInto(t.Elem, out)
	case *TOption:
		freeVarsInto(t.Elem, out)
	case *TRecord:
		for _, f := range t.Row.Fields {
			freeVarsInto(f, out)
		}
		if t.Row.Tail != nil {
			out[t.Row.Tail.Id] = true
		}
	case *TCon:
		for _, a := range t.Args {
			freeVarsInto(a, out)
		}
	}
}

// FreeVarsInEnv is the set of type variables free anywhere in the
// environment's bindings — used by Generalize so that variables still
// constrained by an enclosing scope are not wrongly quantified.
func FreeVarsInEnv(env *Env) map[int]bool {
	out := map[int]bool{}
	for e := env; e != nil; e = e.parent {
		for _, b := range e.bindings {
			if vb, ok := b.(*ValueBinding); ok {
				for id := range FreeVars(schemeBody(vb.Scheme)) {
					out[id] = true
				}
			}
		}
	}
	return out
}

func schemeBody(s *Scheme) Type {
	if s == nil {
		return Unit
	}
	return s.Type
}

// Generalize quantifies every free variable of t not also free in env,
// implementing let-polymorphism. Callers are
// responsible for enforcing the value restriction before calling this: an
// RHS that is not syntactically a value must instead keep its meta-variables
// unquantified (see internal/infer).
func Generalize(env *Env, t Type) *Scheme {
	envFree := FreeVarsInEnv(env)
	free := FreeVars(t)
	var vars []int
	for id := range free {
		if !envFree[id] {
			vars = append(vars, id)
		}
	}
	sortInts(vars)
	return &Scheme{Vars: vars, Type: t}
}

func sortInts(xs []int) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}

// Instantiate creates a fresh monotype instance of a scheme by substituting
// every bound variable with a freshly minted one.
func (s *Scheme) Instantiate(fresh func() *TVar) Type {
	if len(s.Vars) == 0 {
		return s.Type
	}
	sub := Substitution{}
	for _, v := range s.Vars {
		sub[v] = fresh()
	}
	return ApplySubst(sub, s.Type)
}
