// Package session wires the four pipeline stages into the
// single entry point the REPL, the `use` loader, and the golden-file runner
// all share: parse, infer+lower, normalize, evaluate, and render one line of
// output per top-level declaration in the REPL printing grammar.
package session

import (
	"fmt"

	"github.com/deepsen/smli/internal/errors"
	"github.com/deepsen/smli/internal/eval"
	"github.com/deepsen/smli/internal/infer"
	"github.com/deepsen/smli/internal/lexer"
	"github.com/deepsen/smli/internal/loader"
	"github.com/deepsen/smli/internal/normalize"
	"github.com/deepsen/smli/internal/parser"
	"github.com/deepsen/smli/internal/runtime"
	"github.com/deepsen/smli/internal/types"
)

// Properties is the flat knob set the YAML config file and cobra flags
// both populate (see cmd/smli): `inline_pass_count`, `hybrid`,
// `match_coverage_enabled`, `directory`, `maxUseDepth`.
type Properties struct {
	InlinePassCount     int
	Hybrid              bool
	MatchCoverageErrors bool // true: NON-EXHAUSTIVE/REDUNDANT are errors, not warnings
	System              bool // wire the builtin bindings into the evaluator
	Directory           string
	MaxUseDepth         int
	MaxRecursionDepth   int
}

// DefaultProperties returns the built-in defaults for every knob.
func DefaultProperties() Properties {
	return Properties{
		InlinePassCount:     normalize.DefaultInlinePassCount,
		Hybrid:              false,
		MatchCoverageErrors: false,
		System:              true,
		Directory:           ".",
		MaxUseDepth:         16,
		MaxRecursionDepth:   4096,
	}
}

// Session is one REPL/script run's accreted state: the type environment,
// the evaluation environment, and the stage configuration. Top-level units
// run through it in source order, each extending both environments.
type Session struct {
	props    Properties
	inf      *infer.Inferencer
	ev       *eval.Evaluator
	env      *eval.Environment
	seenInfs int // len(inf.Reports()) already folded into a prior Run's result
}

// New creates a Session rooted at props.Directory, with a fresh
// Hindley-Milner environment and evaluator wired to the builtin registry
// and the reference relational backend.
func New(props Properties) *Session {
	inf := infer.New()
	ev := eval.NewEvaluator()
	ev.SetMaxRecursionDepth(props.MaxRecursionDepth)
	if props.System {
		builtins := runtime.NewBuiltinRegistry()
		ev.SetResolver(runtime.NewBuiltinOnlyResolver(builtins))
	}

	ld := loader.New(props.Directory, props.MaxUseDepth)
	inf.UseResolver = &useResolver{inf: inf, loader: ld}
	inf.MaxUseDepth = props.MaxUseDepth

	return &Session{
		props: props,
		inf:   inf,
		ev:    ev,
		env:   eval.NewEnvironment(),
	}
}

// useResolver adapts internal/loader + the live Inferencer to the
// infer.Resolver interface a `use` declaration calls back through.
type useResolver struct {
	inf    *infer.Inferencer
	loader *loader.Loader
}

func (u *useResolver) Resolve(path string) ([]infer.Result, error) {
	prog, err := u.loader.Load(path, u.inf.UseDepth, nil)
	if err != nil {
		return nil, err
	}
	return u.inf.InferProgram(prog), nil
}

// Unit is one top-level declaration's or expression's full-pipeline
// outcome: one printable REPL line per binding. Diagnostics are not kept in
// a Unit; Run returns them separately.
type Unit struct {
	Lines []string // one "val name = value : type" line per binding, in order
}

// Run lexes, parses, infers, lowers, normalizes, and evaluates source,
// returning one Unit per top-level declaration and the reports collected
// along the way.
func (s *Session) Run(source, filename string) ([]Unit, []*errors.Report) {
	lx := lexer.New(source, filename)
	prog, reports := parser.Parse(lx)
	if len(reports) > 0 {
		return nil, reports
	}

	results := s.inf.InferProgram(prog)
	allInfReports := s.inf.Reports()
	reports = append(reports, allInfReports[s.seenInfs:]...)
	s.seenInfs = len(allInfReports)
	if hasErrorReport(reports, s.props.MatchCoverageErrors) {
		return nil, reports
	}

	var units []Unit
	for _, r := range results {
		normed, nreports := normalize.Normalize(r.Decl, normalize.Options{
			InlinePassCount: s.props.InlinePassCount,
			Hybrid:          s.props.Hybrid,
			Env:             s.inf.Env(),
			TypeOf:          s.inf.ScanTypeOf,
		})
		reports = append(reports, nreports...)
		if hasErrorReport(nreports, s.props.MatchCoverageErrors) {
			continue
		}

		val, err := s.ev.EvalDecl(s.env, normed)
		if err != nil {
			reports = append(reports, runtimeReport(err))
			continue
		}

		lines := make([]string, 0, len(r.Bindings))
		for _, b := range r.Bindings {
			bv, ok := s.env.Get(b.Name)
			if !ok {
				// Bare expression declarations (`it`) are not threaded
				// through a Let chain; their terminal value is the
				// binding's value directly.
				bv = val
				s.env.Set(b.Name, bv)
			}
			lines = append(lines, fmt.Sprintf("val %s = %s : %s", b.Name, eval.PrintWrapped(bv, eval.DefaultWrapWidth), b.Scheme.String()))
		}
		units = append(units, Unit{Lines: lines})
	}
	return units, reports
}

// Env exposes the running type environment, e.g. for a script runner
// seeding further units against an already-populated session.
func (s *Session) Env() *types.Env { return s.inf.Env() }

// hasErrorReport reports whether reports contains anything the unit must
// abort for. Match-coverage diagnostics are warnings unless
// match_coverage_enabled promotes them to errors.
func hasErrorReport(reports []*errors.Report, coverageIsError bool) bool {
	for _, r := range reports {
		if r.Kind != "match-coverage" || coverageIsError {
			return true
		}
	}
	return false
}

// runtimeReport wraps an evaluator error (an uncaught exception signal, or
// a propagated *errors.ReportError) as a diagnostic for uniform display.
func runtimeReport(err error) *errors.Report {
	if rep, ok := errors.AsReport(err); ok {
		return rep
	}
	if sig, ok := err.(*eval.Signal); ok {
		name := sig.Packet.Name
		msg := "uncaught exception " + name
		if sig.Packet.Arg != nil {
			msg += " " + eval.Print(sig.Packet.Arg)
		}
		return errors.NewRuntime(errors.BuiltinExceptionCode(name), name, msg)
	}
	return errors.NewSystem(errors.SYS002, err.Error())
}
