// Package testutil is the public entry point other packages' tests use to
// run `.smli` golden-file transcripts; the transcript parsing and
// session-driving engine itself lives in internal/test.
package testutil

import (
	"testing"

	"github.com/deepsen/smli/internal/test"
)

// RunSMLIGolden executes the declarations/expressions in the `.smli` file
// at path against a fresh session and asserts each unit's output lines
// match the file's recorded transcript byte-for-byte.
func RunSMLIGolden(t *testing.T, path string) {
	t.Helper()
	test.RunGoldenT(t, path)
}
