// Package licm implements the Loop Optimizer (§4.10): natural-loop
// detection via dominator analysis, then loop-invariant code motion of
// pure instructions into an inserted pre-header block. Grounded on the
// dominator-tree bookkeeping golang.org/x/tools' ssa/dom.go performs over
// the same Preds/Succs adjacency shape internal/ir.BasicBlock exposes.
package licm

import "github.com/konpeito/konpeito/internal/ir"

// Stats reports how many instructions LICM hoisted, for diagnostics and
// tests.
type Stats struct {
	Hoisted int
}

// Optimizer owns one function's LICM pass.
type Optimizer struct{}

// New creates an Optimizer.
func New() *Optimizer { return &Optimizer{} }

// Run applies LICM to every function in prog and returns aggregate stats.
func (o *Optimizer) Run(prog *ir.Program) Stats {
	var total Stats
	for _, fn := range prog.Functions {
		total.Hoisted += o.runFunction(fn)
	}
	return total
}

type loop struct {
	header *ir.BasicBlock
	body   map[*ir.BasicBlock]bool
}

func (o *Optimizer) runFunction(fn *ir.Function) int {
	doms := dominators(fn)
	loops := naturalLoops(fn, doms)
	hoisted := 0
	for _, lp := range loops {
		hoisted += o.hoistLoop(fn, lp)
	}
	return hoisted
}

// dominators computes, for each block, the set of blocks that dominate it,
// via the standard iterative data-flow fixpoint (Cooper/Harvey/Kennedy),
// adequate for the block counts this compiler ever produces.
func dominators(fn *ir.Function) map[*ir.BasicBlock]map[*ir.BasicBlock]bool {
	entry := fn.Entry()
	all := fn.Blocks
	dom := map[*ir.BasicBlock]map[*ir.BasicBlock]bool{}
	full := map[*ir.BasicBlock]bool{}
	for _, b := range all {
		full[b] = true
	}
	for _, b := range all {
		if b == entry {
			dom[b] = map[*ir.BasicBlock]bool{entry: true}
		} else {
			dom[b] = cloneSet(full)
		}
	}
	changed := true
	for changed {
		changed = false
		for _, b := range all {
			if b == entry {
				continue
			}
			if len(b.Preds) == 0 {
				continue
			}
			newSet := cloneSet(dom[b.Preds[0]])
			for _, p := range b.Preds[1:] {
				intersect(newSet, dom[p])
			}
			newSet[b] = true
			if !setsEqual(newSet, dom[b]) {
				dom[b] = newSet
				changed = true
			}
		}
	}
	return dom
}

func cloneSet(s map[*ir.BasicBlock]bool) map[*ir.BasicBlock]bool {
	out := make(map[*ir.BasicBlock]bool, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func intersect(a, b map[*ir.BasicBlock]bool) {
	for k := range a {
		if !b[k] {
			delete(a, k)
		}
	}
}

func setsEqual(a, b map[*ir.BasicBlock]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// naturalLoops finds every back edge B -> H where H dominates B, per
// §4.10 step 1, and computes each loop's body as every block that can
// reach B without leaving H's dominance.
func naturalLoops(fn *ir.Function, doms map[*ir.BasicBlock]map[*ir.BasicBlock]bool) []loop {
	var loops []loop
	for _, b := range fn.Blocks {
		for _, succ := range b.Succs {
			if doms[b][succ] {
				loops = append(loops, loop{header: succ, body: loopBody(succ, b)})
			}
		}
	}
	return loops
}

func loopBody(header, back *ir.BasicBlock) map[*ir.BasicBlock]bool {
	body := map[*ir.BasicBlock]bool{header: true, back: true}
	stack := []*ir.BasicBlock{back}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range b.Preds {
			if !body[p] {
				body[p] = true
				stack = append(stack, p)
			}
		}
	}
	return body
}

// isPure whitelists instructions §4.10 step 2 treats as side-effect-free:
// arithmetic/comparison, constants, slot loads and length/size-style
// native queries. hoistLoop also requires every operand to be defined
// outside the loop, and a Load's slot not to be stored inside it.
func isPure(instr ir.Instruction) bool {
	switch in := instr.(type) {
	case *ir.ConstInt, *ir.ConstFloat, *ir.ConstString, *ir.ConstBool, *ir.ConstNil:
		return true
	case *ir.Arith, *ir.Cmp, *ir.Load:
		return true
	case *ir.Call:
		switch in.Name {
		case "length", "size", "empty?":
			return in.Kind == ir.CallMethod || in.Kind == ir.CallNativeStruct
		}
		return false
	default:
		return false
	}
}

// hoistLoop moves every pure, invariant instruction in lp's body into a
// freshly-inserted pre-header block immediately before the header
// (§4.10 step 4), iterating to a fixed point since an instruction may
// become invariant only once an earlier one has been hoisted.
func (o *Optimizer) hoistLoop(fn *ir.Function, lp loop) int {
	preheader := fn.NewBlock(lp.header.Label + ".preheader")
	for _, pred := range lp.header.Preds {
		if lp.body[pred] {
			continue
		}
		redirectSuccessor(pred, lp.header, preheader)
		ir.AddEdge(pred, preheader)
		removePredFrom(lp.header, pred)
	}
	preheader.Terminator = &ir.Jump{Target: lp.header}
	ir.AddEdge(preheader, lp.header)

	storedInLoop := map[*ir.Value]bool{}
	for b := range lp.body {
		for _, instr := range b.Instructions {
			if st, ok := instr.(*ir.Store); ok {
				storedInLoop[st.Slot] = true
			}
		}
	}

	definedOutside := func(v *ir.Value, invariantSoFar map[*ir.Value]bool) bool {
		if v == nil {
			return true
		}
		if invariantSoFar[v] {
			return true
		}
		for b := range lp.body {
			for _, instr := range b.Instructions {
				if instr.Result() == v {
					return false
				}
			}
		}
		return true
	}

	hoisted := 0
	invariant := map[*ir.Value]bool{}
	changed := true
	for changed {
		changed = false
		for _, blk := range fn.Blocks {
			if !lp.body[blk] {
				continue
			}
			var remaining []ir.Instruction
			for _, instr := range blk.Instructions {
				ld, isLoad := instr.(*ir.Load)
				if !isPure(instr) || (isLoad && storedInLoop[ld.Slot]) {
					remaining = append(remaining, instr)
					continue
				}
				allInvariant := true
				for _, op := range instr.Operands() {
					if !definedOutside(op, invariant) {
						allInvariant = false
						break
					}
				}
				if allInvariant {
					preheader.Instructions = append(preheader.Instructions, instr)
					if r := instr.Result(); r != nil {
						invariant[r] = true
					}
					hoisted++
					changed = true
					continue
				}
				remaining = append(remaining, instr)
			}
			blk.Instructions = remaining
		}
	}
	return hoisted
}

func redirectSuccessor(b, from, to *ir.BasicBlock) {
	for i, s := range b.Succs {
		if s == from {
			b.Succs[i] = to
		}
	}
	switch t := b.Terminator.(type) {
	case *ir.Jump:
		if t.Target == from {
			t.Target = to
		}
	case *ir.Branch:
		if t.Then == from {
			t.Then = to
		}
		if t.Else == from {
			t.Else = to
		}
	}
}

func removePredFrom(b, pred *ir.BasicBlock) {
	out := b.Preds[:0]
	for _, p := range b.Preds {
		if p != pred {
			out = append(out, p)
		}
	}
	b.Preds = out
}
