package diagnostics

import (
	"fmt"

	"github.com/konpeito/konpeito/internal/ast"
)

// SourceSpan is a rendered, file-relative location attached to a
// diagnostic. It is a value copy of an ast.Span so diagnostics can outlive
// the tree they were raised against.
type SourceSpan struct {
	File      string `json:"file,omitempty"`
	StartLine int    `json:"start_line,omitempty"`
	StartCol  int    `json:"start_col,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
	EndCol    int    `json:"end_col,omitempty"`
}

// SpanOf converts an ast.Span into a SourceSpan.
func SpanOf(s ast.Span) SourceSpan {
	return SourceSpan{
		File:      s.Start.File,
		StartLine: s.Start.Line,
		StartCol:  s.Start.Column,
		EndLine:   s.End.Line,
		EndCol:    s.End.Column,
	}
}

func (s SourceSpan) String() string {
	if s.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.StartLine, s.StartCol)
}

// Diagnostic is one compiler message: a code, its documented severity, a
// human message, an optional source location and free-form notes.
type Diagnostic struct {
	Schema   string            `json:"schema"`
	RunID    string            `json:"run_id,omitempty"`
	Code     Code              `json:"code"`
	Phase    string            `json:"phase"`
	Severity string            `json:"severity"`
	Message  string            `json:"message"`
	Span     *SourceSpan       `json:"span,omitempty"`
	Labels   []string          `json:"labels,omitempty"`
	Notes    []string          `json:"notes,omitempty"`
	Meta     map[string]string `json:"meta,omitempty"`
}

// New builds a Diagnostic for code with the documented phase/severity
// looked up from the registry.
func New(code Code, message string) Diagnostic {
	info, _ := Lookup(code)
	return Diagnostic{
		Schema:   SchemaVersion,
		Code:     code,
		Phase:    info.Phase,
		Severity: info.Severity.String(),
		Message:  message,
	}
}

// WithSpan attaches a source location.
func (d Diagnostic) WithSpan(span ast.Span) Diagnostic {
	s := SpanOf(span)
	d.Span = &s
	return d
}

// WithNote appends a free-form note.
func (d Diagnostic) WithNote(note string) Diagnostic {
	d.Notes = append(d.Notes, note)
	return d
}

// WithLabel appends a labeled sub-location description.
func (d Diagnostic) WithLabel(label string) Diagnostic {
	d.Labels = append(d.Labels, label)
	return d
}

// ToJSON renders the diagnostic as deterministic JSON.
func (d Diagnostic) ToJSON() ([]byte, error) {
	data, err := MarshalDeterministic(d)
	if err != nil {
		return SafeEncode(d.Code, d.Message), nil
	}
	return FormatJSON(data)
}

// SafeEncode never panics; it is the last-resort fallback when a
// Diagnostic itself fails to marshal (e.g. a non-UTF8 message).
func SafeEncode(code Code, message string) []byte {
	fallback := fmt.Sprintf(`{"schema":%q,"code":%q,"message":"encoding failed"}`, SchemaVersion, code)
	_ = message
	return []byte(fallback)
}
