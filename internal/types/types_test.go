package types

import "testing"

func TestRecordCanonicalFieldOrder(t *testing.T) {
	r := &TRecord{Row: RecordRow{Fields: map[string]Type{
		"b": Int, "a": Int, "2": Int, "1": Int,
	}}}
	got := r.String()
	want := "{1:int, 2:int, a:int, b:int}"
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestTupleAsRecordUsesPositionalLabels(t *testing.T) {
	tup := TupleAsRecord([]Type{Int, Bool})
	if tup.String() != "{1:int, 2:bool}" {
		t.Fatalf("unexpected tuple-as-record: %s", tup.String())
	}
}

func TestUnifyFunc(t *testing.T) {
	gen := NewTVarGen()
	a := gen.Fresh()
	fn := &TFunc{Param: a, Result: Int}
	concrete := &TFunc{Param: Bool, Result: Int}
	sub, err := Unify(Substitution{}, fn, concrete)
	if err != nil {
		t.Fatalf("unify failed: %v", err)
	}
	if ApplySubst(sub, a).String() != "bool" {
		t.Fatalf("expected a bound to bool, got %s", ApplySubst(sub, a))
	}
}

func TestUnifyOccursCheck(t *testing.T) {
	gen := NewTVarGen()
	a := gen.Fresh()
	self := &TList{Elem: a}
	_, err := Unify(Substitution{}, a, self)
	if err == nil {
		t.Fatal("expected occurs-check failure")
	}
}

func TestFlexRecordResolvesOpenTail(t *testing.T) {
	gen := NewTVarGen()
	tail := gen.Fresh()
	open := &TRecord{Row: RecordRow{Fields: map[string]Type{"a": Int}, Tail: tail}}
	closed := &TRecord{Row: RecordRow{Fields: map[string]Type{"a": Int, "b": Bool}}}
	sub, err := Unify(Substitution{}, open, closed)
	if err != nil {
		t.Fatalf("unify failed: %v", err)
	}
	resolved := ApplySubst(sub, open)
	rec, ok := resolved.(*TRecord)
	if !ok {
		t.Fatalf("expected *TRecord, got %T", resolved)
	}
	if len(rec.Row.Fields) != 2 || rec.Row.Tail != nil {
		t.Fatalf("expected fully resolved closed record, got %s", rec)
	}
}

func TestGeneralizeOnlyQuantifiesNonEnvFreeVars(t *testing.T) {
	env := NewEnv()
	gen := NewTVarGen()
	bound := gen.Fresh()
	env = env.Extend("x", &ValueBinding{Scheme: Mono(bound)})

	fresh := gen.Fresh()
	fnType := &TFunc{Param: fresh, Result: fresh}
	scheme := Generalize(env, fnType)
	if len(scheme.Vars) != 1 || scheme.Vars[0] != fresh.Id {
		t.Fatalf("expected exactly one generalized var (fresh), got %v", scheme.Vars)
	}
}

func TestSchemeInstantiateProducesFreshVars(t *testing.T) {
	gen := NewTVarGen()
	a := gen.Fresh()
	scheme := &Scheme{Vars: []int{a.Id}, Type: &TFunc{Param: a, Result: a}}
	t1 := scheme.Instantiate(gen.Fresh)
	t2 := scheme.Instantiate(gen.Fresh)
	if t1.String() == "" || t2.String() == "" {
		t.Fatal("expected non-empty instantiation")
	}
	if Equal(t1, t2) {
		t.Fatalf("two instantiations should use distinct fresh variables: %s vs %s", t1, t2)
	}
}
