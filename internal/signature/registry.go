// Package signature implements the SignatureRegistry (§4.3): the lookup
// table mapping (owner, method) to a FunctionType and class name to a
// ClassLayout, populated from signature files, inline annotations and
// introspection of external class archives.
package signature

import (
	"github.com/konpeito/konpeito/internal/types"
)

// TopLevel is the pseudo-owner used for bare top-level method
// definitions (§4.3 lookup order: "... → TopLevel pseudo-owner").
const TopLevel = "<TopLevel>"

// key is the lookup key for a method signature.
type key struct{ owner, method string }

// Registry answers signature lookups for the Inferrer. It never errors on
// a miss — absence of a signature is not an error (§4.3) — callers decide
// what to do (fall back to dynamic dispatch, emit a MethodNotFound
// warning, etc).
type Registry struct {
	methods   map[key]*types.FunctionType
	layouts   map[string]*ClassLayout
	hierarchy *types.Hierarchy
}

// ClassLayout records a class's known field set and generic arity. The
// Registry stores it (DefineLayout) and returns it (Layout); no lowering
// pass reads it, and there is no row-based layout-conflict resolution.
type ClassLayout struct {
	Name       string
	Fields     []types.NativeField
	TypeParams []string
}

// New creates an empty Registry against a class hierarchy (shared with
// the Inferrer's unifier so subtype-aware BFS lookups agree with
// unification).
func New(h *types.Hierarchy) *Registry {
	return &Registry{
		methods:   map[key]*types.FunctionType{},
		layouts:   map[string]*ClassLayout{},
		hierarchy: h,
	}
}

// Define registers a method signature for owner (a class name or
// TopLevel).
func (r *Registry) Define(owner, method string, sig *types.FunctionType) {
	r.methods[key{owner, method}] = sig
}

// DefineLayout registers a class's native layout.
func (r *Registry) DefineLayout(layout *ClassLayout) {
	r.layouts[layout.Name] = layout
}

// Lookup resolves a method signature following §4.3's order:
//  1. the built-in method-rule table (e.g. Array#length),
//  2. the class signature, searched breadth-first over the owner's
//     ancestor chain (parents before mixins' parents, per Hierarchy.Ancestors),
//  3. the TopLevel pseudo-owner.
//
// ok is false (not an error) when nothing answers the lookup.
func (r *Registry) Lookup(owner, method string) (sig *types.FunctionType, ok bool) {
	if sig, ok := builtinRule(owner, method); ok {
		return sig, true
	}
	if owner != "" {
		for _, ancestor := range r.ancestorsOf(owner) {
			if sig, ok := r.methods[key{ancestor, method}]; ok {
				return sig, true
			}
		}
	}
	if sig, ok := r.methods[key{TopLevel, method}]; ok {
		return sig, true
	}
	return nil, false
}

func (r *Registry) ancestorsOf(owner string) []string {
	if r.hierarchy == nil {
		return []string{owner}
	}
	return r.hierarchy.Ancestors(owner)
}

// Snapshot renders every defined method signature to its "owner#method" ->
// String() form, the shape Cache.Store persists (§5 registry caching).
// Built-in rules and layouts aren't included: only what Define populated,
// since those are the sources a digest mismatch would need to re-ingest.
func (r *Registry) Snapshot() map[string]string {
	out := make(map[string]string, len(r.methods))
	for k, sig := range r.methods {
		out[k.owner+"#"+k.method] = sig.String()
	}
	return out
}

// Layout looks up a class's registered native layout.
func (r *Registry) Layout(name string) (*ClassLayout, bool) {
	l, ok := r.layouts[name]
	return l, ok
}

// Instantiate substitutes fresh type variables for a generic signature's
// free parameters at a call site, per §4.3 "instantiate(sig) for
// generics". genericParams names the signature's own quantified
// variables (by TypeVar.Name); anything else in sig is left untouched.
func Instantiate(sig *types.FunctionType, genericParams []string) *types.FunctionType {
	if len(genericParams) == 0 {
		return sig
	}
	fresh := map[string]*types.TypeVar{}
	for _, p := range genericParams {
		fresh[p] = types.NewTypeVar(p)
	}
	var sub func(types.Type) types.Type
	sub = func(t types.Type) types.Type {
		switch v := t.(type) {
		case *types.TypeVar:
			if f, ok := fresh[v.Name]; ok {
				return f
			}
			return v
		case *types.FunctionType:
			params := make([]types.Type, len(v.Params))
			for i, p := range v.Params {
				params[i] = sub(p)
			}
			var rest types.Type
			if v.RestParam != nil {
				rest = sub(v.RestParam)
			}
			return &types.FunctionType{Params: params, RestParam: rest, Return: sub(v.Return)}
		case *types.ClassInstance:
			if len(v.Args) == 0 {
				return v
			}
			args := make([]types.Type, len(v.Args))
			for i, a := range v.Args {
				args[i] = sub(a)
			}
			return &types.ClassInstance{Name: v.Name, Args: args}
		default:
			return t
		}
	}
	return sub(sig).(*types.FunctionType)
}
