package errors

import (
	"fmt"

	"github.com/deepsen/smli/internal/schema"
)

// Fix is a suggested remediation attached to a Report, with a confidence
// score in [0, 1]. Most diagnostics carry no fix; Fix is nil in that case.
type Fix struct {
	Suggestion string  `json:"suggestion"`
	Confidence float64 `json:"confidence"`
}

// Encoded is the wire format for a runtime exception, distinct from
// Report because an exception is raised and caught by `handle`, not
// returned as a discriminated value.
type Encoded struct {
	Schema     string      `json:"schema"`
	Code       string      `json:"code"`
	Name       string      `json:"name"` // exception constructor name (Match, Div, or user-declared)
	Message    string      `json:"message"`
	Payload    interface{} `json:"payload,omitempty"`
	SourceSpan string      `json:"source_span,omitempty"`
}

// NewException builds an Encoded for a raised exception value. name is the
// constructor name; payload is its carried value, if any.
func NewException(name string, payload interface{}) Encoded {
	return Encoded{
		Schema:  schema.ErrorV1,
		Code:    BuiltinExceptionCode(name),
		Name:    name,
		Message: name,
		Payload: payload,
	}
}

// WithSourceSpan attaches a "<source>:<line>.<col>-<line>.<col>" location.
func (e Encoded) WithSourceSpan(span string) Encoded {
	e.SourceSpan = span
	return e
}

// ToJSON converts the exception to deterministic JSON.
func (e Encoded) ToJSON() ([]byte, error) {
	data, err := schema.MarshalDeterministic(e)
	if err != nil {
		fallback := Encoded{Schema: schema.ErrorV1, Code: "SYS002", Name: "Error", Message: "encoding failed: " + err.Error()}
		return schema.MarshalDeterministic(fallback)
	}
	return schema.FormatJSON(data)
}

// FormatSourceSpan formats a file position as "file:line.col-line.col".
func FormatSourceSpan(file string, startLine, startCol, endLine, endCol int) string {
	return fmt.Sprintf("%s:%d.%d-%d.%d", file, startLine, startCol, endLine, endCol)
}
