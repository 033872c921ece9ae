package test

import (
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/deepsen/smli/internal/errors"
	"github.com/deepsen/smli/internal/session"
)

// goldenPrompt is the glyph a `.smli` transcript uses to mark an input
// line; everything else is expected output.
const goldenPrompt = "-> "

// goldenCase is one input unit and the output lines recorded immediately
// after it in a `.smli` transcript.
type goldenCase struct {
	input    string
	expected []string
}

// parseGolden splits a `.smli` transcript into its input/expected-output
// pairs. Lines starting with goldenPrompt are joined (stripped of the
// prompt) into one input unit until a non-prompt line begins that unit's
// expected output; the next prompt line starts a new case.
func parseGolden(data string) []goldenCase {
	var cases []goldenCase
	var cur *goldenCase
	for _, line := range strings.Split(strings.TrimRight(data, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, goldenPrompt):
			text := strings.TrimPrefix(line, goldenPrompt)
			if cur == nil || len(cur.expected) > 0 {
				cases = append(cases, goldenCase{})
				cur = &cases[len(cases)-1]
			}
			if cur.input != "" {
				cur.input += "\n"
			}
			cur.input += text
		case cur != nil:
			if line == "" && len(cur.expected) == 0 {
				continue
			}
			cur.expected = append(cur.expected, line)
		}
	}
	return cases
}

func transcriptLines(units []session.Unit, reports []*errors.Report) []string {
	var out []string
	for _, u := range units {
		out = append(out, u.Lines...)
	}
	for _, r := range reports {
		if r.Kind == "match-coverage" {
			out = append(out, r.Warning())
			continue
		}
		out = append(out, r.String())
	}
	return out
}

// RunGolden executes every case in the `.smli` file at path against one
// fresh session.Session, recording each case as a Case via a TestRunner and
// returning the finalized Report.
func RunGolden(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cases := parseGolden(string(data))
	sess := session.New(session.DefaultProperties())
	runner := NewRunner()

	for i, c := range cases {
		runner.RunTest(path, strconv.Itoa(i), func() error {
			units, reports := sess.Run(c.input, path)
			got := strings.Join(transcriptLines(units, reports), "\n")
			want := strings.Join(c.expected, "\n")
			if got != want {
				return &mismatchError{input: c.input, got: got, want: want}
			}
			return nil
		})
	}

	return runner.GetReport(), nil
}

type mismatchError struct {
	input, got, want string
}

func (e *mismatchError) Error() string {
	return "input " + strconv.Quote(e.input) + ": got " + strconv.Quote(e.got) + ", want " + strconv.Quote(e.want)
}

// RunGoldenT runs RunGolden and fails t for every non-passed Case; this is
// the *testing.T-facing entry point the testutil package's golden-file helper
// delegates to.
func RunGoldenT(t *testing.T, path string) {
	t.Helper()
	report, err := RunGolden(path)
	if err != nil {
		t.Fatalf("reading golden file %s: %v", path, err)
	}
	for _, c := range report.Cases {
		if c.Status != "passed" {
			t.Errorf("case %s: %v", c.Name, c.Error)
		}
	}
}
