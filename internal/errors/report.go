package errors

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/deepsen/smli/internal/ast"
	"github.com/deepsen/smli/internal/schema"
)

// Report is the structured diagnostic type every stage returns instead of a
// bare error. Kind names one of the taxonomy entries ("parse",
// "type", "match-coverage", "normalization", "runtime", "system"); the JSON
// form of a runtime exception packet is built separately by NewException
// (see json_encoder.go).
type Report struct {
	Schema  string         `json:"schema"`
	Code    string         `json:"code"`
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Span    *ast.Span      `json:"span,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Fix     *Fix           `json:"fix,omitempty"`
}

// ReportError wraps a Report as an error so it survives errors.As unwrapping
// through ordinary Go error propagation.
type ReportError struct {
	Rep *Report
}

func (e *ReportError) Error() string {
	if e.Rep == nil {
		return "unknown error"
	}
	return e.Rep.userVisible()
}

// String renders the report in the canonical user-visible form:
// "<source>:<line>.<col>-<line>.<col>:<message>".
func (r *Report) String() string { return r.userVisible() }

// userVisible renders the report in the canonical form:
// "<source>:<line>.<col>-<line>.<col>:<message>".
func (r *Report) userVisible() string {
	if r.Span == nil {
		return fmt.Sprintf("%s: %s", r.Code, r.Message)
	}
	s := r.Span
	return fmt.Sprintf("%s:%d.%d-%d.%d:%s", s.Start.File, s.Start.Line, s.Start.Column, s.End.Line, s.End.Column, r.Message)
}

// AsReport extracts a Report from an error chain, if present.
func AsReport(err error) (*Report, bool) {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Rep, true
	}
	return nil, false
}

// WrapReport wraps r as an error. Call sites return errors.WrapReport(r) to
// preserve the structured diagnostic through ordinary Go error returns.
func WrapReport(r *Report) error {
	if r == nil {
		return nil
	}
	return &ReportError{Rep: r}
}

// ToJSON renders the report as deterministic JSON (sorted keys).
func (r *Report) ToJSON(compact bool) (string, error) {
	data, err := schema.MarshalDeterministic(r)
	if err != nil {
		return "", err
	}
	data, err = schema.FormatJSON(data)
	if err != nil {
		return "", err
	}
	if compact {
		var buf []byte
		if buf, err = json.Marshal(json.RawMessage(data)); err != nil {
			return "", err
		}
		return string(buf), nil
	}
	return string(data), nil
}

// NewParse builds a parse-error report.
func NewParse(code string, span *ast.Span, message string) *Report {
	return &Report{Schema: schema.ErrorV1, Code: code, Kind: "parse", Message: message, Span: span}
}

// NewType builds a type-error report carrying the structured cause named by
// code (conflict, unresolved flex record, ambiguous overload,
// value-restriction failure, duplicate field, unknown identifier).
func NewType(code string, span *ast.Span, message string, data map[string]any) *Report {
	return &Report{Schema: schema.ErrorV1, Code: code, Kind: "type", Message: message, Span: span, Data: data}
}

// NewMatchCoverage builds a match-coverage diagnostic (REDUNDANT or
// NON-EXHAUSTIVE). Whether it is reported as a warning or an error is a
// caller-level policy decision; this constructor only fixes the kind and code.
func NewMatchCoverage(code string, span *ast.Span, message string) *Report {
	return &Report{Schema: schema.ErrorV1, Code: code, Kind: "match-coverage", Message: message, Span: span}
}

// NewNormalization builds a normalization-error report (unbounded extent).
func NewNormalization(span *ast.Span, message string) *Report {
	return &Report{Schema: schema.ErrorV1, Code: NM001, Kind: "normalization", Message: message, Span: span}
}

// NewRuntime builds a runtime-exception report for an uncaught `raise`.
// code is looked up via BuiltinExceptionCode for the built-in taxonomy, or
// RT010 for a user-declared exception.
func NewRuntime(code string, name string, message string) *Report {
	return &Report{Schema: schema.ErrorV1, Code: code, Kind: "runtime", Message: message, Data: map[string]any{"exception": name}}
}

// NewSystem builds a system-error report (I/O failure from `use`).
func NewSystem(code string, message string) *Report {
	return &Report{Schema: schema.ErrorV1, Code: code, Kind: "system", Message: message}
}

// Warning wraps r's user-visible form with a "Warning:" prefix, without changing its kind or code.
func (r *Report) Warning() string {
	return "Warning: " + r.userVisible()
}
