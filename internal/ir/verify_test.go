package ir

import (
	"testing"

	"github.com/konpeito/konpeito/internal/types"
	"github.com/stretchr/testify/require"
)

func TestVerify_MissingTerminator(t *testing.T) {
	f := &Function{Name: "f", ReturnType: types.Int}
	f.NewBlock("entry")
	p := &Program{Functions: []*Function{f}}
	errs := Verify(p)
	require.Len(t, errs, 1)
}

func TestVerify_PhiArityMatchesPredecessors(t *testing.T) {
	f := &Function{Name: "f", ReturnType: types.Int}
	entry := f.NewBlock("entry")
	left := f.NewBlock("left")
	right := f.NewBlock("right")
	merge := f.NewBlock("merge")

	cond := f.NewValue()
	entry.Terminator = &Branch{Cond: cond, Then: left, Else: right}
	AddEdge(entry, left)
	AddEdge(entry, right)

	left.Terminator = &Jump{Target: merge}
	right.Terminator = &Jump{Target: merge}
	AddEdge(left, merge)
	AddEdge(right, merge)

	dst := f.NewValue()
	merge.Phis = append(merge.Phis, &Phi{Dst: dst, Edges: []PhiEdge{{Pred: left, Val: f.NewValue()}}})
	merge.Terminator = &Return{Val: dst}

	p := &Program{Functions: []*Function{f}}
	errs := Verify(p)
	require.Len(t, errs, 1, "phi should be missing an edge for the `right` predecessor")
}

func TestVerify_WellFormedProgram(t *testing.T) {
	f := &Function{Name: "f", ReturnType: types.Int}
	entry := f.NewBlock("entry")
	v := f.NewValue()
	entry.Emit(&ConstInt{Dst: v, Val: 1})
	entry.Terminator = &Return{Val: v}
	p := &Program{Functions: []*Function{f}}
	require.Empty(t, Verify(p))
}
