package mono

import (
	"testing"

	"github.com/konpeito/konpeito/internal/diagnostics"
	"github.com/konpeito/konpeito/internal/ir"
	"github.com/konpeito/konpeito/internal/types"
	"github.com/stretchr/testify/require"
)

// buildGenericIdentity constructs a generic `identity(x: T) -> T` function
// (entry: alloc+store param, return load) plus a caller that calls it
// once with a concrete Int argument.
func buildGenericIdentity() (*ir.Program, []CallSite) {
	tv := types.NewTypeVar("T")

	identity := &ir.Function{Name: "identity", IsGeneric: true, TypeParams: []string{tv.Name}, ReturnType: tv}
	entry := identity.NewBlock("entry")
	slot := identity.NewValue()
	slot.Type = tv
	entry.Emit(&ir.Alloc{Dst: slot, Name: "x", Type: tv})
	arg := identity.NewValue()
	arg.Type = tv
	entry.Emit(&ir.Store{Slot: slot, Val: arg})
	loaded := identity.NewValue()
	loaded.Type = tv
	entry.Emit(&ir.Load{Dst: loaded, Slot: slot})
	entry.Terminator = &ir.Return{Val: loaded}
	identity.Params = append(identity.Params, &ir.Param{Name: "x", Type: tv})

	caller := &ir.Function{Name: "main"}
	cEntry := caller.NewBlock("entry")
	argVal := caller.NewValue()
	argVal.Type = types.Int
	cEntry.Emit(&ir.ConstInt{Dst: argVal, Val: 7})
	result := caller.NewValue()
	result.Type = types.Int
	call := &ir.Call{Dst: result, Kind: ir.CallMethod, Name: "identity", Args: []*ir.Value{argVal}}
	cEntry.Emit(call)
	cEntry.Terminator = &ir.Return{Val: result}

	prog := &ir.Program{Functions: []*ir.Function{identity, caller}}
	sites := []CallSite{{Caller: caller, Call: call, Target: "identity", ArgTypes: []types.Type{types.Int}}}
	return prog, sites
}

func TestRun_SpecializesAndRewritesCallSite(t *testing.T) {
	prog, sites := buildGenericIdentity()
	m := New(diagnostics.NewCollector())
	out := m.Run(prog, sites)

	var call *ir.Call
	for _, instr := range out.FuncByName("main").Entry().Instructions {
		if c, ok := instr.(*ir.Call); ok {
			call = c
		}
	}
	require.NotNil(t, call)
	require.Equal(t, "identity$Int", call.Name)
	require.NotNil(t, out.FuncByName("identity$Int"))
}

func TestRun_DropsUnusedGeneric(t *testing.T) {
	prog, sites := buildGenericIdentity()
	m := New(diagnostics.NewCollector())
	out := m.Run(prog, sites)
	require.Nil(t, out.FuncByName("identity"), "the unused generic should be removed once specialized")
}
