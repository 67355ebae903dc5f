// Package inline implements the Inliner (§4.9): callees at most 10
// instructions that do not call the caller directly, with inlining depth
// capped at 3, are cloned and spliced directly into the call site's CFG in
// place of the Call instruction. Only a direct call back to the caller is
// rejected; a longer cycle (a calls b calls a) is not detected, and the
// depth cap is what bounds its unrolling. Grounded on the same
// clone-and-substitute plumbing internal/mono uses; clone.go carries its
// own copy of that Value/instruction cloning switch.
package inline

import (
	"github.com/konpeito/konpeito/internal/diagnostics"
	"github.com/konpeito/konpeito/internal/ir"
)

const (
	maxCalleeInstructions = 10
	maxDepth              = 3
)

// Inliner owns one program's inlining pass.
type Inliner struct {
	Diags *diagnostics.Collector
}

// New creates an Inliner.
func New(diags *diagnostics.Collector) *Inliner {
	return &Inliner{Diags: diags}
}

// Run inlines eligible call sites across every function in prog, up to
// maxDepth nested applications per original call site, and returns prog.
func (in *Inliner) Run(prog *ir.Program) *ir.Program {
	for _, fn := range prog.Functions {
		in.inlineFunction(prog, fn, 0)
	}
	return prog
}

func (in *Inliner) inlineFunction(prog *ir.Program, fn *ir.Function, depth int) {
	if depth >= maxDepth {
		return
	}
	// depthOf counts how many inlining steps produced each call; calls
	// already in fn start at 0.
	depthOf := map[*ir.Call]int{}
	changed := true
	for changed {
		changed = false
		for _, blk := range fn.Blocks {
			for i, instr := range blk.Instructions {
				call, ok := instr.(*ir.Call)
				if !ok || call.Kind != ir.CallMethod {
					continue
				}
				if depth+depthOf[call] >= maxDepth {
					continue
				}
				callee := prog.FuncByName(call.Name)
				if callee == nil || callee == fn {
					continue
				}
				if !in.eligible(callee, fn) {
					in.Diags.Report(diagnostics.New(diagnostics.InlineSkipped,
						"call to "+call.Name+" did not meet the inlining profitability bound"))
					continue
				}
				n := len(fn.Blocks)
				in.spliceCall(fn, blk, i, call, callee)
				// fn.Blocks[n] is the post-call block; the blocks after it
				// are the callee's clone, whose calls are one level deeper.
				for _, nb := range fn.Blocks[n+1:] {
					for _, ni := range nb.Instructions {
						if c, ok := ni.(*ir.Call); ok {
							depthOf[c] = depthOf[call] + 1
						}
					}
				}
				changed = true
				break
			}
			if changed {
				break
			}
		}
	}
}

// eligible implements §4.9's profitability rule: callee body size, no
// self-recursive cycle back to caller, checked by the caller.
func (in *Inliner) eligible(callee, caller *ir.Function) bool {
	count := 0
	for _, blk := range callee.Blocks {
		count += len(blk.Instructions)
		if count > maxCalleeInstructions {
			return false
		}
	}
	return !callsTransitively(callee, caller, map[*ir.Function]bool{})
}

func callsTransitively(from, target *ir.Function, visited map[*ir.Function]bool) bool {
	if visited[from] {
		return false
	}
	visited[from] = true
	for _, blk := range from.Blocks {
		for _, instr := range blk.Instructions {
			call, ok := instr.(*ir.Call)
			if !ok {
				continue
			}
			if call.Name == target.Name {
				return true
			}
		}
	}
	return false
}

// spliceCall performs §4.9's transform: split blk around the call, clone
// callee's blocks with formals substituted by the call's actual
// arguments, jump into the clone, and collect its returns via a Phi in a
// freshly inserted post-call block.
func (in *Inliner) spliceCall(fn *ir.Function, blk *ir.BasicBlock, callIdx int, call *ir.Call, callee *ir.Function) {
	before := append([]ir.Instruction{}, blk.Instructions[:callIdx]...)
	after := append([]ir.Instruction{}, blk.Instructions[callIdx+1:]...)

	postBlock := fn.NewBlock(blk.Label + ".postcall")
	postBlock.Instructions = after
	postBlock.Terminator = blk.Terminator
	for _, succ := range blk.Succs {
		ir.AddEdge(postBlock, succ)
		removePred(succ, blk)
	}

	blk.Instructions = before
	blk.Succs = nil

	valueMap := map[*ir.Value]*ir.Value{}
	for i := range callee.Params {
		if i < len(call.Args) {
			valueMap[paramValue(callee, i)] = call.Args[i]
		}
	}
	cloneValue := func(v *ir.Value) *ir.Value {
		if v == nil {
			return nil
		}
		if nv, ok := valueMap[v]; ok {
			return nv
		}
		nv := fn.NewValue()
		nv.Name = v.Name
		nv.Type = v.Type
		valueMap[v] = nv
		return nv
	}

	blockMap := map[*ir.BasicBlock]*ir.BasicBlock{}
	for _, cb := range callee.Blocks {
		blockMap[cb] = fn.NewBlock(blk.Label + ".inl." + cb.Label)
	}

	var returnEdges []ir.PhiEdge
	for _, cb := range callee.Blocks {
		nb := blockMap[cb]
		for _, instr := range cb.Instructions {
			nb.Emit(cloneInlineInstr(instr, cloneValue))
		}
		if ret, ok := cb.Terminator.(*ir.Return); ok {
			nb.Terminator = &ir.Jump{Target: postBlock}
			ir.AddEdge(nb, postBlock)
			if ret.Val != nil {
				returnEdges = append(returnEdges, ir.PhiEdge{Pred: nb, Val: cloneValue(ret.Val)})
			}
			continue
		}
		nb.Terminator = cloneInlineTerm(cb.Terminator, blockMap, cloneValue)
		for _, succ := range cb.Succs {
			ir.AddEdge(nb, blockMap[succ])
		}
	}

	entryClone := blockMap[callee.Entry()]
	blk.Terminator = &ir.Jump{Target: entryClone}
	ir.AddEdge(blk, entryClone)

	if call.Dst != nil && len(returnEdges) > 0 {
		postBlock.Phis = append(postBlock.Phis, &ir.Phi{Dst: call.Dst, Edges: returnEdges})
	}
}

func removePred(b, pred *ir.BasicBlock) {
	out := b.Preds[:0]
	for _, p := range b.Preds {
		if p != pred {
			out = append(out, p)
		}
	}
	b.Preds = out
}

// paramValue recovers the Alloc-slot Value callee binds parameter i to by
// scanning its entry block for the matching Alloc — the IRBuilder always
// emits one Alloc per parameter immediately in the entry block.
func paramValue(callee *ir.Function, i int) *ir.Value {
	entry := callee.Entry()
	if entry == nil || i >= len(callee.Params) {
		return nil
	}
	name := callee.Params[i].Name
	count := 0
	for _, instr := range entry.Instructions {
		if alloc, ok := instr.(*ir.Alloc); ok {
			if alloc.Name == name {
				return alloc.Dst
			}
			count++
		}
	}
	return nil
}
