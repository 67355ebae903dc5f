package licm

import (
	"strings"
	"testing"

	"github.com/konpeito/konpeito/internal/ir"
	"github.com/konpeito/konpeito/internal/types"
	"github.com/stretchr/testify/require"
)

// buildCountingLoop constructs:
//
//	entry: jump header
//	header: cond = true (a constant, so it is hoisted too); branch body/after
//	body: invariant = 2 + 3 (pure, operands defined outside the loop);
//	      jump header
//	after: return invariant
func buildCountingLoop() (*ir.Function, *ir.BasicBlock) {
	fn := &ir.Function{Name: "loopy"}
	entry := fn.NewBlock("entry")
	header := fn.NewBlock("header")
	body := fn.NewBlock("body")
	after := fn.NewBlock("after")

	two := fn.NewValue()
	two.Type = types.Int
	entry.Emit(&ir.ConstInt{Dst: two, Val: 2})
	three := fn.NewValue()
	three.Type = types.Int
	entry.Emit(&ir.ConstInt{Dst: three, Val: 3})
	entry.Terminator = &ir.Jump{Target: header}
	ir.AddEdge(entry, header)

	cond := fn.NewValue()
	cond.Type = types.Bool
	header.Emit(&ir.ConstBool{Dst: cond, Val: true})
	header.Terminator = &ir.Branch{Cond: cond, Then: body, Else: after}
	ir.AddEdge(header, body)
	ir.AddEdge(header, after)

	invariant := fn.NewValue()
	invariant.Type = types.Int
	body.Emit(&ir.Arith{Dst: invariant, Op: ir.Add, Lhs: two, Rhs: three})
	body.Terminator = &ir.Jump{Target: header}
	ir.AddEdge(body, header)

	after.Terminator = &ir.Return{Val: invariant}
	return fn, body
}

func TestHoistLoop_MovesInvariantArith(t *testing.T) {
	fn, body := buildCountingLoop()
	prog := &ir.Program{Functions: []*ir.Function{fn}}

	stats := New().Run(prog)
	require.Equal(t, 2, stats.Hoisted)
	require.Empty(t, body.Instructions, "invariant Arith should have been moved out of the loop body")

	var preheader *ir.BasicBlock
	for _, b := range fn.Blocks {
		if strings.HasPrefix(b.Label, "header.") && strings.Contains(b.Label, ".preheader") {
			preheader = b
		}
	}
	require.NotNil(t, preheader)
	require.Len(t, preheader.Instructions, 2)
}

func TestDominators_EntryDominatesAll(t *testing.T) {
	fn, _ := buildCountingLoop()
	doms := dominators(fn)
	entry := fn.Entry()
	for _, b := range fn.Blocks {
		require.True(t, doms[b][entry], "entry must dominate %s", b.Label)
	}
}
