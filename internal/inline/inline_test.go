package inline

import (
	"testing"

	"github.com/konpeito/konpeito/internal/diagnostics"
	"github.com/konpeito/konpeito/internal/ir"
	"github.com/konpeito/konpeito/internal/types"
	"github.com/stretchr/testify/require"
)

// buildSmallCallee builds `square(x) -> x * x`: one Alloc+Store+Load+Arith,
// well under the profitability bound.
func buildSmallCallee() *ir.Function {
	fn := &ir.Function{Name: "square", ReturnType: types.Int}
	entry := fn.NewBlock("entry")
	slot := fn.NewValue()
	slot.Type = types.Int
	entry.Emit(&ir.Alloc{Dst: slot, Name: "x", Type: types.Int})
	arg := fn.NewValue()
	arg.Type = types.Int
	entry.Emit(&ir.Store{Slot: slot, Val: arg})
	loaded := fn.NewValue()
	loaded.Type = types.Int
	entry.Emit(&ir.Load{Dst: loaded, Slot: slot})
	result := fn.NewValue()
	result.Type = types.Int
	entry.Emit(&ir.Arith{Dst: result, Op: ir.Mul, Lhs: loaded, Rhs: loaded})
	entry.Terminator = &ir.Return{Val: result}
	fn.Params = append(fn.Params, &ir.Param{Name: "x", Type: types.Int})
	return fn
}

func buildCaller(callee *ir.Function) (*ir.Function, *ir.Call) {
	caller := &ir.Function{Name: "main"}
	entry := caller.NewBlock("entry")
	five := caller.NewValue()
	five.Type = types.Int
	entry.Emit(&ir.ConstInt{Dst: five, Val: 5})
	result := caller.NewValue()
	result.Type = types.Int
	call := &ir.Call{Dst: result, Kind: ir.CallMethod, Name: callee.Name, Args: []*ir.Value{five}}
	entry.Emit(call)
	entry.Terminator = &ir.Return{Val: result}
	return caller, call
}

func TestRun_InlinesSmallCallee(t *testing.T) {
	callee := buildSmallCallee()
	caller, call := buildCaller(callee)
	prog := &ir.Program{Functions: []*ir.Function{callee, caller}}

	New(diagnostics.NewCollector()).Run(prog)

	for _, blk := range caller.Blocks {
		for _, instr := range blk.Instructions {
			require.NotEqual(t, call, instr, "the Call instruction should have been spliced away")
		}
	}

	var sawArith bool
	for _, blk := range caller.Blocks {
		for _, instr := range blk.Instructions {
			if _, ok := instr.(*ir.Arith); ok {
				sawArith = true
			}
		}
	}
	require.True(t, sawArith, "callee's Arith instruction should have been cloned into the caller")
}

func TestEligible_RejectsSelfRecursion(t *testing.T) {
	fn := &ir.Function{Name: "recur"}
	entry := fn.NewBlock("entry")
	dst := fn.NewValue()
	entry.Emit(&ir.Call{Dst: dst, Kind: ir.CallMethod, Name: "recur"})
	entry.Terminator = &ir.Return{Val: dst}

	in := New(diagnostics.NewCollector())
	require.False(t, in.eligible(fn, fn))
}
