// Package mono implements the Monomorphizer (§4.8): it specializes every
// polymorphic function against the concrete argument-type tuples actually
// observed at its call sites, rewrites those call sites to the
// specialization, and leaves any retained generic (still reachable with
// unsolved type variables) behind with a warning. Grounded on the
// clone-and-substitute discipline kanso-lang's IR-optimizations file uses
// for its own specialization pass, adapted from expression rewriting to
// whole-function cloning over internal/ir's block structure.
package mono

import (
	"sort"
	"strings"

	"github.com/konpeito/konpeito/internal/diagnostics"
	"github.com/konpeito/konpeito/internal/ir"
	"github.com/konpeito/konpeito/internal/types"
)

// CallSite records one observed call to a generic function together with
// the concrete argument types the inferrer resolved for it. The inferrer
// records every call it types (Inferrer.CallSites); the pipeline matches
// those records to their IR calls and hands the resulting ledger to Run.
type CallSite struct {
	Caller    *ir.Function
	Call      *ir.Call
	Target    string // callee name as it appears in ir.Call.Name
	ArgTypes  []types.Type
}

// Monomorphizer owns one program's specialization pass.
type Monomorphizer struct {
	Diags *diagnostics.Collector

	specializations map[string]*ir.Function // "name#tuple" -> cloned function
}

// New creates a Monomorphizer.
func New(diags *diagnostics.Collector) *Monomorphizer {
	return &Monomorphizer{Diags: diags, specializations: map[string]*ir.Function{}}
}

// Run specializes every generic function in prog against the observed call
// sites, rewrites call sites to their specialization, drops unused
// generics, and returns the rewritten program.
func (m *Monomorphizer) Run(prog *ir.Program, sites []CallSite) *ir.Program {
	byTarget := map[string][]CallSite{}
	for _, s := range sites {
		byTarget[s.Target] = append(byTarget[s.Target], s)
	}

	generics := map[string]*ir.Function{}
	for _, fn := range prog.Functions {
		if fn.IsGeneric {
			generics[fn.Name] = fn
		}
	}

	for name, fn := range generics {
		tuples := tupleSet(byTarget[name])
		for _, tuple := range tuples {
			specName := specializationName(name, tuple)
			spec := m.specialize(fn, tuple, specName)
			m.specializations[specName] = spec
			prog.Functions = append(prog.Functions, spec)
		}
	}

	for _, s := range byTarget {
		for _, site := range s {
			specName := specializationName(site.Target, site.ArgTypes)
			if spec, ok := m.specializations[specName]; ok {
				site.Call.Name = spec.Name
			}
		}
	}

	// A generic's original function is still reachable only if some Call
	// anywhere in the (rewritten) program still names it directly — every
	// site whose tuple got a specialization was just repointed above.
	stillReferenced := map[string]bool{}
	for _, fn := range prog.Functions {
		for _, blk := range fn.Blocks {
			for _, instr := range blk.Instructions {
				if call, ok := instr.(*ir.Call); ok {
					stillReferenced[call.Name] = true
				}
			}
		}
	}

	var kept []*ir.Function
	for _, fn := range prog.Functions {
		if fn.IsGeneric && !stillReferenced[fn.Name] {
			continue
		}
		if fn.IsGeneric && containsUnboundVar(fn.ReturnType) {
			m.Diags.Report(diagnostics.New(diagnostics.MonomorphizationSkip,
				"generic function "+fn.Name+" retained with unsolved type variables"))
		}
		kept = append(kept, fn)
	}
	prog.Functions = kept
	return prog
}

// tupleSet collects the distinct argument-type tuples observed for a
// generic's call sites, deduplicated by their rendered key.
func tupleSet(sites []CallSite) [][]types.Type {
	seen := map[string][]types.Type{}
	var order []string
	for _, s := range sites {
		key := tupleKey(s.ArgTypes)
		if _, ok := seen[key]; !ok {
			seen[key] = s.ArgTypes
			order = append(order, key)
		}
	}
	sort.Strings(order)
	out := make([][]types.Type, len(order))
	for i, k := range order {
		out[i] = seen[k]
	}
	return out
}

func tupleKey(argTypes []types.Type) string {
	parts := make([]string, len(argTypes))
	for i, t := range argTypes {
		parts[i] = types.Apply(t).String()
	}
	return strings.Join(parts, ",")
}

func specializationName(base string, tuple []types.Type) string {
	return base + "$" + tupleKey(tuple)
}

// specialize clones fn's blocks and substitutes its free type variables
// with the concrete types in tuple, positionally matched against fn's
// declared TypeParams.
func (m *Monomorphizer) specialize(fn *ir.Function, tuple []types.Type, name string) *ir.Function {
	subst := map[string]types.Type{}
	for i, p := range fn.TypeParams {
		if i < len(tuple) {
			subst[p] = tuple[i]
		}
	}

	clone := &ir.Function{
		Name:       name,
		Owner:      fn.Owner,
		ReturnType: substType(fn.ReturnType, subst),
		IsGeneric:  false,
	}
	valueMap := map[*ir.Value]*ir.Value{}
	cloneValue := func(v *ir.Value) *ir.Value {
		if v == nil {
			return nil
		}
		if nv, ok := valueMap[v]; ok {
			return nv
		}
		nv := clone.NewValue()
		nv.Name = v.Name
		nv.Type = substType(v.Type, subst)
		valueMap[v] = nv
		return nv
	}

	for _, p := range fn.Params {
		clone.Params = append(clone.Params, &ir.Param{Name: p.Name, Type: substType(p.Type, subst)})
	}

	blockMap := map[*ir.BasicBlock]*ir.BasicBlock{}
	for _, blk := range fn.Blocks {
		blockMap[blk] = clone.NewBlock(blk.Label)
	}
	for _, blk := range fn.Blocks {
		nb := blockMap[blk]
		for _, phi := range blk.Phis {
			np := &ir.Phi{Dst: cloneValue(phi.Dst)}
			for _, e := range phi.Edges {
				np.Edges = append(np.Edges, ir.PhiEdge{Pred: blockMap[e.Pred], Val: cloneValue(e.Val)})
			}
			nb.Phis = append(nb.Phis, np)
		}
		for _, instr := range blk.Instructions {
			nb.Emit(cloneInstr(instr, cloneValue))
		}
		nb.Terminator = cloneTerm(blk.Terminator, blockMap, cloneValue)
		for _, succ := range blk.Succs {
			ir.AddEdge(nb, blockMap[succ])
		}
	}
	return clone
}

func substType(t types.Type, subst map[string]types.Type) types.Type {
	if t == nil {
		return nil
	}
	if tv, ok := t.(*types.TypeVar); ok {
		if repl, ok := subst[tv.Name]; ok {
			return repl
		}
	}
	return t
}

func containsUnboundVar(t types.Type) bool {
	switch v := types.Apply(t).(type) {
	case *types.TypeVar:
		return v.Resolved == nil
	case *types.FunctionType:
		for _, p := range v.Params {
			if containsUnboundVar(p) {
				return true
			}
		}
		return containsUnboundVar(v.Return)
	}
	return false
}
