// Package repl implements the interactive read-eval-print surface: a
// line-editing read-eval-print loop over internal/session, printing one
// "val name = value : type" line per binding and a diagnostic line per
// error, in source order.
package repl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/deepsen/smli/internal/errors"
	"github.com/deepsen/smli/internal/session"
)

var (
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	dim   = color.New(color.Faint).SprintFunc()
)

// Config mirrors the REPL-facing CLI flags: `--prompt`,
// `--banner`, `--echo`, `--terminal`.
type Config struct {
	Prompt   bool
	Banner   bool
	Echo     bool
	Terminal string // prompt glyph override; "" uses the default
}

// DefaultConfig matches a normal interactive session.
func DefaultConfig() Config {
	return Config{Prompt: true, Banner: true, Terminal: "-"}
}

// REPL drives one internal/session.Session from line-edited input.
type REPL struct {
	sess *session.Session
	cfg  Config
}

// New creates a REPL over sess.
func New(sess *session.Session, cfg Config) *REPL {
	return &REPL{sess: sess, cfg: cfg}
}

func (r *REPL) prompt() string {
	if !r.cfg.Prompt {
		return ""
	}
	if r.cfg.Terminal != "" {
		return r.cfg.Terminal + "> "
	}
	return "-> "
}

// Start runs the loop until EOF or a `:quit`-equivalent input. Output goes
// to out; input is always read from the terminal through liner.
func (r *REPL) Start(out io.Writer) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetMultiLineMode(true)

	historyFile := filepath.Join(os.TempDir(), ".smli_history")
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}

	if r.cfg.Banner {
		fmt.Fprintln(out, color.New(color.Bold).Sprint("smli"))
		fmt.Fprintln(out, dim("Declarations and expressions are terminated by `;`."))
		fmt.Fprintln(out)
	}

	var pending []string
	for {
		p := r.prompt()
		if len(pending) > 0 {
			p = "...   "
		}
		input, err := line.Prompt(p)
		if err == io.EOF {
			fmt.Fprintln(out, green("\ndone"))
			break
		}
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("Error"), err)
			break
		}

		trimmed := strings.TrimSpace(input)
		if len(pending) == 0 && (trimmed == ":quit" || trimmed == ":q") {
			break
		}
		if trimmed == "" && len(pending) == 0 {
			continue
		}

		pending = append(pending, input)
		if !strings.HasSuffix(trimmed, ";") {
			continue
		}

		unit := strings.Join(pending, "\n")
		pending = nil
		line.AppendHistory(unit)
		r.runUnit(unit, out)
	}

	if f, err := os.Create(historyFile); err == nil {
		_, _ = line.WriteHistory(f)
		f.Close()
	}
}

func (r *REPL) runUnit(source string, out io.Writer) {
	if r.cfg.Echo {
		fmt.Fprintln(out, source)
	}
	units, reports := r.sess.Run(source, "<stdin>")
	for _, u := range units {
		for _, line := range u.Lines {
			fmt.Fprintln(out, line)
		}
	}
	for _, rep := range reports {
		printReport(out, rep)
	}
}

func printReport(out io.Writer, rep *errors.Report) {
	if rep.Kind == "match-coverage" {
		fmt.Fprintln(out, red(rep.Warning()))
		return
	}
	fmt.Fprintln(out, red(rep.String()))
}
