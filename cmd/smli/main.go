// Command smli is the interactive read-eval-print loop and script runner
// of the interpreter, built on internal/session over the lexer/infer/normalize/
// eval pipeline.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/deepsen/smli/internal/config"
	"github.com/deepsen/smli/internal/lexer"
	"github.com/deepsen/smli/internal/repl"
	"github.com/deepsen/smli/internal/session"
)

var (
	flagPrompt      bool
	flagBanner      bool
	flagEcho        bool
	flagTerminal    string
	flagSystem      bool
	flagDirectory   string
	flagMaxUseDepth int

	flagConfigFile          string
	flagInlinePassCount     int
	flagHybrid              bool
	flagMatchCoverageErrors bool
)

func main() {
	root := &cobra.Command{
		Use:   "smli [script]",
		Short: "smli is the read-eval-print loop for the ML-family query language",
		Args:  cobra.MaximumNArgs(1),
		RunE:  run,
	}

	flags := root.Flags()
	flags.BoolVar(&flagPrompt, "prompt", true, "show the interactive prompt")
	flags.BoolVar(&flagBanner, "banner", true, "print the startup banner")
	flags.BoolVar(&flagEcho, "echo", false, "echo each unit of input before evaluating it")
	flags.StringVar(&flagTerminal, "terminal", "", "prompt glyph override")
	flags.BoolVar(&flagSystem, "system", true, "wire the built-in bindings into the evaluator")
	flags.StringVar(&flagDirectory, "directory", ".", "base directory for `use`")
	flags.IntVar(&flagMaxUseDepth, "maxUseDepth", 16, "maximum `use` nesting depth")

	flags.StringVar(&flagConfigFile, "config", "", "path to a properties YAML file")
	flags.IntVar(&flagInlinePassCount, "inline_pass_count", 0, "bound on the normalizer's inlining fixed-point loop (0: default)")
	flags.BoolVar(&flagHybrid, "hybrid", false, "allow a `from` pipeline to push part of its steps to the backend")
	flags.BoolVar(&flagMatchCoverageErrors, "match_coverage_enabled", false, "treat REDUNDANT/NON-EXHAUSTIVE diagnostics as errors")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.New(color.FgRed).Sprint("Error")+": "+err.Error())
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	props := session.DefaultProperties()
	props.System = flagSystem
	props.Directory = flagDirectory
	props.MaxUseDepth = flagMaxUseDepth
	if flagInlinePassCount > 0 {
		props.InlinePassCount = flagInlinePassCount
	}
	props.Hybrid = flagHybrid
	props.MatchCoverageErrors = flagMatchCoverageErrors

	props, err := config.Load(flagConfigFile, props)
	if err != nil {
		return err
	}

	sess := session.New(props)

	if len(args) == 1 {
		return runScript(sess, args[0])
	}

	r := repl.New(sess, repl.Config{
		Prompt:   flagPrompt,
		Banner:   flagBanner,
		Echo:     flagEcho,
		Terminal: flagTerminal,
	})
	r.Start(os.Stdout)
	return nil
}

// runScript executes path non-interactively,
// exiting non-zero if any unit produced a hard error.
func runScript(sess *session.Session, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	units, reports := sess.Run(string(lexer.Normalize(data)), path)
	for _, u := range units {
		for _, line := range u.Lines {
			fmt.Println(line)
		}
	}

	failed := false
	for _, rep := range reports {
		if rep.Kind == "match-coverage" {
			fmt.Fprintln(os.Stderr, rep.Warning())
			continue
		}
		fmt.Fprintln(os.Stderr, rep.String())
		failed = true
	}
	if failed {
		return fmt.Errorf("%s: completed with errors", path)
	}
	return nil
}
