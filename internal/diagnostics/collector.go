package diagnostics

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

// TraceFunc receives a free-form progress line from any pipeline stage.
// Collector.Trace is a no-op unless a TraceFunc has been installed, so the
// core stays side-effect free by default (§5: pure function semantics).
type TraceFunc func(stage, message string)

// Collector accumulates diagnostics across every phase of one compile run
// and is the only place a phase is allowed to report a problem — no phase
// package in this repo imports "fmt" to print errors directly.
type Collector struct {
	RunID       string
	diagnostics []Diagnostic
	trace       TraceFunc
}

// NewCollector creates a Collector stamped with a fresh run identifier so
// every diagnostic it emits can be correlated back to one compile.
func NewCollector() *Collector {
	return &Collector{RunID: uuid.NewString()}
}

// SetTrace installs a trace sink; pass nil to silence tracing again.
func (c *Collector) SetTrace(fn TraceFunc) { c.trace = fn }

// Trace forwards a progress message to the installed TraceFunc, if any.
func (c *Collector) Trace(stage, format string, args ...any) {
	if c.trace == nil {
		return
	}
	c.trace(stage, fmt.Sprintf(format, args...))
}

// Report records a diagnostic, stamping it with this collector's run ID.
func (c *Collector) Report(d Diagnostic) {
	d.RunID = c.RunID
	c.diagnostics = append(c.diagnostics, d)
}

// All returns every diagnostic recorded so far, in report order.
func (c *Collector) All() []Diagnostic { return c.diagnostics }

// BySeverity filters to diagnostics of exactly the given severity.
func (c *Collector) BySeverity(sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range c.diagnostics {
		if d.Severity == sev.String() {
			out = append(out, d)
		}
	}
	return out
}

// HasFatal reports whether any Fatal-severity diagnostic was recorded.
func (c *Collector) HasFatal() bool { return len(c.BySeverity(Fatal)) > 0 }

// HasErrors reports whether any Error-or-worse diagnostic was recorded —
// per §7, a compile with any such diagnostic "failed" even if IR was
// partially built.
func (c *Collector) HasErrors() bool {
	return len(c.BySeverity(Fatal)) > 0 || len(c.BySeverity(Error)) > 0
}

// Succeeded reports whether the compile, as far as diagnostics reflect,
// succeeded: zero Fatal and zero Error diagnostics. Warnings do not fail a
// compile.
func (c *Collector) Succeeded() bool { return !c.HasErrors() }

// ColorRender renders every diagnostic as a single colorized line, the way
// cmd/konpeito prints to a terminal. It is deliberately kept out of the
// phase packages themselves — only a CLI-facing consumer should color
// diagnostics.
func ColorRender(ds []Diagnostic) string {
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	out := ""
	for _, d := range ds {
		var tag string
		switch d.Severity {
		case Fatal.String(), Error.String():
			tag = red(d.Severity)
		case Warning.String():
			tag = yellow(d.Severity)
		default:
			tag = cyan(d.Severity)
		}
		loc := ""
		if d.Span != nil {
			loc = " " + d.Span.String()
		}
		out += fmt.Sprintf("[%s] %s%s: %s\n", tag, d.Code, loc, d.Message)
	}
	return out
}
