// Package loader implements `use "<path>";`: reading a source
// file, parsing it, and handing the resulting declarations back to the
// elaborator for inline processing in the current environment. There is no
// module/export system here: `use` is
// textual inclusion bounded by a maximum nesting depth.
package loader

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/deepsen/smli/internal/ast"
	"github.com/deepsen/smli/internal/errors"
	"github.com/deepsen/smli/internal/lexer"
	"github.com/deepsen/smli/internal/parser"
)

// Loader resolves and parses `use`-d source files relative to a base
// directory, per the `--directory` CLI flag.
type Loader struct {
	BaseDir  string
	MaxDepth int
}

// New creates a Loader rooted at baseDir with the given nesting bound.
func New(baseDir string, maxDepth int) *Loader {
	return &Loader{BaseDir: baseDir, MaxDepth: maxDepth}
}

// Load reads and parses the file named by path (resolved against BaseDir
// unless already absolute), returning its declarations. depth is the number
// of enclosing `use`s already active; exceeding MaxDepth is SYS003.
func (l *Loader) Load(path string, depth int, at *ast.Span) (*ast.Program, error) {
	if depth > l.MaxDepth {
		return nil, errors.WrapReport(errors.NewSystem(errors.SYS003,
			fmt.Sprintf("use-nesting depth exceeded loading %q (max %d)", path, l.MaxDepth)))
	}

	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(l.BaseDir, path)
	}

	content, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapReport(errors.NewSystem(errors.SYS001, fmt.Sprintf("file not found: %s", path)))
		}
		return nil, errors.WrapReport(errors.NewSystem(errors.SYS002, fmt.Sprintf("failed to read %s: %s", path, err)))
	}

	lx := lexer.New(string(lexer.Normalize(content)), full)
	prog, reports := parser.Parse(lx)
	if len(reports) > 0 {
		return nil, errors.WrapReport(reports[0])
	}
	return prog, nil
}
