// Package diagnostics is the single error/diagnostic surface for every
// compiler phase (dependency resolution through loop optimization). It
// mirrors the phase-prefixed error-code taxonomy the rest of this lineage
// uses, but the codes and severities here are specific to Konpeito.
package diagnostics

// Severity classifies how a diagnostic affects the overall compile result.
type Severity int

const (
	// Info is purely informational and never affects success/failure.
	Info Severity = iota
	// Warning degrades to a documented fallback; the compile can still
	// succeed with warnings only.
	Warning
	// Error means the affected part of the program could not be given a
	// sound type/IR; the compile has failed even if IR was partially
	// built, but remaining phases still run to surface more diagnostics.
	Error
	// Fatal aborts the pipeline immediately; no further phases run.
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Code is a stable machine-readable diagnostic identifier.
type Code string

// Resolver phase (RSV###) — §4.4.
const (
	ImportNotFound     Code = "RSV001"
	CircularDependency Code = "RSV002"
	ParseError         Code = "RSV003"
)

// Lattice / unifier phase (LAT###, UNI###) — §4.1, §4.2.
const (
	TypeMismatch  Code = "UNI001"
	InfiniteType  Code = "UNI002"
	ArityMismatch Code = "UNI003"
)

// Signature registry phase (SIG###) — §4.3.
const (
	MethodNotFound Code = "SIG001"
)

// Inferrer phase (INF###) — §4.5.
const (
	UnresolvedType       Code = "INF001"
	UnsupportedConstruct Code = "INF002"
	NonExhaustiveMatch   Code = "INF003"
)

// IR builder / monomorphizer / inliner / LICM phases.
const (
	IRMalformed         Code = "IR001"
	MonomorphizationSkip Code = "MON001"
	InlineSkipped       Code = "INL001"
	LICMHoisted         Code = "LIC001"
)

// CodeInfo records the fixed metadata known about a diagnostic code: which
// phase produces it and its documented severity per spec §7. Absence from
// this registry is itself a bug — every Code constant above must appear
// here exactly once.
type CodeInfo struct {
	Code     Code
	Phase    string
	Severity Severity
	Summary  string
}

var registry = map[Code]CodeInfo{
	ImportNotFound:       {ImportNotFound, "resolver", Fatal, "import target could not be located"},
	CircularDependency:   {CircularDependency, "resolver", Fatal, "dependency cycle detected"},
	ParseError:           {ParseError, "resolver", Fatal, "source file failed to parse"},
	TypeMismatch:         {TypeMismatch, "unifier", Error, "two types could not be unified"},
	InfiniteType:         {InfiniteType, "unifier", Error, "occurs check failed, type would be infinite"},
	ArityMismatch:        {ArityMismatch, "unifier", Error, "function types disagree on parameter count"},
	MethodNotFound:       {MethodNotFound, "signature", Warning, "no signature found for method; falling back to dynamic dispatch"},
	UnresolvedType:       {UnresolvedType, "inferrer", Warning, "type variable left unresolved after finalization"},
	UnsupportedConstruct: {UnsupportedConstruct, "inferrer", Warning, "construct has no typed lowering; dynamic fallback used"},
	NonExhaustiveMatch:   {NonExhaustiveMatch, "inferrer", Warning, "case/when pattern match does not cover all cases"},
	IRMalformed:          {IRMalformed, "irbuild", Error, "lowered IR failed a well-formedness check"},
	MonomorphizationSkip: {MonomorphizationSkip, "mono", Warning, "generic function left unspecialized, unsolved type variables remain"},
	InlineSkipped:        {InlineSkipped, "inline", Info, "call site did not meet inlining profitability bound"},
	LICMHoisted:          {LICMHoisted, "licm", Info, "instruction hoisted out of loop body"},
}

// Lookup returns the registered CodeInfo for a code, and whether it was found.
func Lookup(c Code) (CodeInfo, bool) {
	info, ok := registry[c]
	return info, ok
}

// SeverityOf returns the documented severity for a code, defaulting to
// Error for any code that is (erroneously) missing from the registry.
func SeverityOf(c Code) Severity {
	if info, ok := registry[c]; ok {
		return info.Severity
	}
	return Error
}
