package types

import "fmt"

// OverloadGroup is a named, bounded ad-hoc overload: a list of concrete instance schemes selected at each call
// site by unifying the argument type against exactly one instance.
type OverloadGroup struct {
	Name      string
	Signature *Scheme // the generic signature from `over x:...`
	Instances []*Scheme
}

// NewOverloadGroup creates an empty group for the given generic signature.
func NewOverloadGroup(name string, signature *Scheme) *OverloadGroup {
	return &OverloadGroup{Name: name, Signature: signature}
}

// AddInstance registers one `val inst` concrete scheme. Instances keep
// their declared monotype, instance schemes are never generalized beyond their declared
// monotype (the conservative choice); callers pass the instance's monotype
// wrapped with Mono.
func (g *OverloadGroup) AddInstance(s *Scheme) {
	g.Instances = append(g.Instances, s)
}

// OverloadResolutionError is returned by ResolveCall when no instance, or
// more than one, matches the argument type.
type OverloadResolutionError struct {
	Group   string
	ArgType Type
	Reason  string // "ambiguous" or "no-match"
}

func (e *OverloadResolutionError) Error() string {
	return fmt.Sprintf("overload %s: %s for argument type %s", e.Group, e.Reason, e.ArgType)
}

// ResolveCall picks the unique instance of g whose argument type unifies
// with argType: the inferencer selects the unique
// instance whose argument type unifies with the argument's inferred type;
// ambiguity or no match is a diagnostic. paramOf extracts the parameter
// type from each instance scheme; an instance that is not a function type
// `arg -> ret` is skipped and never matches.
func (g *OverloadGroup) ResolveCall(fresh func() *TVar, argType Type) (*Scheme, Substitution, error) {
	var matches []*Scheme
	var matchSub Substitution
	for _, inst := range g.Instances {
		instTy := inst.Instantiate(fresh)
		param, ok := paramOf(instTy)
		if !ok {
			continue
		}
		if sub, err := Unify(Substitution{}, param, argType); err == nil {
			matches = append(matches, inst)
			matchSub = sub
		}
	}
	switch len(matches) {
	case 0:
		return nil, nil, &OverloadResolutionError{Group: g.Name, ArgType: argType, Reason: "no-match"}
	case 1:
		return matches[0], matchSub, nil
	default:
		return nil, nil, &OverloadResolutionError{Group: g.Name, ArgType: argType, Reason: "ambiguous"}
	}
}

func paramOf(t Type) (Type, bool) {
	if f, ok := t.(*TFunc); ok {
		return f.Param, true
	}
	return nil, false
}
