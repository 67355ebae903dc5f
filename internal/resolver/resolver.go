// Package resolver implements the DependencyResolver (§4.4): starting
// from an entry file, it walks import declarations to a post-order file
// list, merges the resulting trees, classifies every import and detects
// the two conditions that must abort compilation before inference ever
// runs: unresolvable imports and dependency cycles.
package resolver

import (
	"fmt"
	"strings"

	"github.com/konpeito/konpeito/internal/ast"
	"github.com/konpeito/konpeito/internal/diagnostics"
)

// Kind classifies one import declaration.
type Kind int

const (
	// Internal is a source file resolved from the entry file's own
	// search roots.
	Internal Kind = iota
	// ManagedStdlib is a "std/..." import served by the managed
	// standard library, never read from disk by the resolver itself.
	ManagedStdlib
	// RuntimeNative is a "native/..." import served directly by the
	// runtime/backend, with no Konpeito source behind it at all.
	RuntimeNative
)

func (k Kind) String() string {
	switch k {
	case Internal:
		return "internal"
	case ManagedStdlib:
		return "managed-stdlib"
	case RuntimeNative:
		return "runtime-native"
	default:
		return "unknown"
	}
}

// Classify determines an import path's Kind. Grounded on the teacher's
// resolvePath case analysis (internal/loader/loader.go): explicit
// namespace prefixes are checked before falling back to Internal.
func Classify(path string) Kind {
	switch {
	case strings.HasPrefix(path, "std/"):
		return ManagedStdlib
	case strings.HasPrefix(path, "native/"):
		return RuntimeNative
	default:
		return Internal
	}
}

// ClassifiedImport is one import edge out of a file, with its resolved
// Kind attached.
type ClassifiedImport struct {
	Path string
	Kind Kind
	From string // the importing file's path
	Line int
}

// SourceLoader fetches the parsed tree for an internal import path. The
// resolver never parses text itself (§1 Non-goals): it only asks a
// SourceLoader, a collaborator supplied by the embedding pipeline, to
// hand back an already-parsed *ast.File.
type SourceLoader interface {
	Load(importPath string) (*ast.File, error)
}

// ImportNotFoundError is raised when an Internal import cannot be
// resolved by the SourceLoader.
type ImportNotFoundError struct {
	Name     string
	FromFile string
	Line     int
}

func (e *ImportNotFoundError) Error() string {
	return fmt.Sprintf("%s:%d: import not found: %q", e.FromFile, e.Line, e.Name)
}

// CircularDependencyError is raised when the import graph contains a
// cycle; Path lists the files in the cycle, starting and ending at the
// same file.
type CircularDependencyError struct {
	Path []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency: %s", strings.Join(e.Path, " -> "))
}

// Result is the resolver's output: a dependency-first (post-order) file
// list, the merged set of files keyed by path, and every classified
// import edge discovered along the way.
type Result struct {
	Order   []string
	Files   map[string]*ast.File
	Imports []ClassifiedImport
	SignatureFiles []string
}

// Resolve walks the import graph from entry using loader to fetch
// internal dependencies, returning a Result or the first fatal error
// encountered (ImportNotFoundError or CircularDependencyError — both
// Fatal per §7, aborting before any later phase runs).
func Resolve(entry string, loader SourceLoader) (*Result, error) {
	r := &Result{Files: map[string]*ast.File{}}
	visited := map[string]bool{}
	inPath := map[string]bool{}
	var stack []string

	var visit func(path string) error
	visit = func(path string) error {
		if inPath[path] {
			cycle := append(append([]string{}, stack...), path)
			// trim the prefix before the repeated node so Path starts
			// and ends at the cycle itself, not the whole call stack.
			for i, p := range cycle {
				if p == path {
					cycle = cycle[i:]
					break
				}
			}
			return &CircularDependencyError{Path: cycle}
		}
		if visited[path] {
			return nil
		}

		inPath[path] = true
		stack = append(stack, path)
		defer func() {
			inPath[path] = false
			stack = stack[:len(stack)-1]
		}()

		file, err := loader.Load(path)
		if err != nil {
			from := "<entry>"
			if len(stack) >= 2 {
				from = stack[len(stack)-2]
			}
			return &ImportNotFoundError{Name: path, FromFile: from, Line: 0}
		}
		r.Files[path] = file

		for _, imp := range file.Imports {
			kind := Classify(imp.Path)
			r.Imports = append(r.Imports, ClassifiedImport{
				Path: imp.Path,
				Kind: kind,
				From: path,
				Line: imp.Span.Start.Line,
			})
			if kind != Internal {
				continue
			}
			if err := visit(imp.Path); err != nil {
				if inf, ok := err.(*ImportNotFoundError); ok && inf.FromFile == "<entry>" {
					inf.FromFile = path
					inf.Line = imp.Span.Start.Line
				}
				return err
			}
		}

		visited[path] = true
		r.Order = append(r.Order, path)
		return nil
	}

	if err := visit(entry); err != nil {
		return nil, err
	}

	r.SignatureFiles = detectSignatureFiles(r.Order)
	return r, nil
}

// detectSignatureFiles auto-detects which resolved files are signature
// files rather than implementation files, by the "*.sig.rb" naming
// convention (§4.3: "auto-detected signature files").
func detectSignatureFiles(order []string) []string {
	var out []string
	for _, p := range order {
		if strings.HasSuffix(p, ".sig.rb") {
			out = append(out, p)
		}
	}
	return out
}

// ReportFatal converts a resolver error into a diagnostics.Diagnostic of
// the appropriate Fatal code.
func ReportFatal(err error) diagnostics.Diagnostic {
	switch e := err.(type) {
	case *ImportNotFoundError:
		return diagnostics.New(diagnostics.ImportNotFound, e.Error())
	case *CircularDependencyError:
		return diagnostics.New(diagnostics.CircularDependency, e.Error())
	default:
		return diagnostics.New(diagnostics.ParseError, err.Error())
	}
}
