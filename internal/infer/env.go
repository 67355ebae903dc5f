// Package infer implements the Inferrer (§4.5): whole-program Algorithm W
// with deferred call-site constraints, flow-sensitive narrowing, and a
// finalization pass that turns any remaining type variables into
// UnresolvedType warnings rather than errors.
package infer

import "github.com/konpeito/konpeito/internal/types"

// Env is a parent-chained lexical scope of local bindings, grounded on
// the teacher's TypeEnv (internal/types/env.go) but keyed by Ruby local
// variable names rather than let-bound identifiers.
type Env struct {
	parent *Env
	vars   map[string]types.Type
}

// NewEnv creates a root environment with no parent.
func NewEnv() *Env {
	return &Env{vars: map[string]types.Type{}}
}

// Child creates a new scope nested inside e (method bodies, blocks, and
// each branch of a conditional get their own child so narrowing in one
// branch never leaks into a sibling).
func (e *Env) Child() *Env {
	return &Env{parent: e, vars: map[string]types.Type{}}
}

// Bind introduces or updates a local variable's type in this scope.
func (e *Env) Bind(name string, t types.Type) {
	e.vars[name] = t
}

// Lookup searches this scope and its ancestors for name.
func (e *Env) Lookup(name string) (types.Type, bool) {
	for s := e; s != nil; s = s.parent {
		if t, ok := s.vars[name]; ok {
			return t, true
		}
	}
	return nil, false
}
