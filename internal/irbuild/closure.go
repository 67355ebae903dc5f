package irbuild

import (
	"github.com/konpeito/konpeito/internal/ast"
	"github.com/konpeito/konpeito/internal/ir"
)

// buildLambda lowers a `->(...) { ... }` literal as its own Function in the
// program, created by a CallNativeStruct "proc.make:<name>" instruction
// that carries only the function's name. The lambda's scope chains to the
// enclosing one, so its body reads enclosing locals through the outer
// function's own slots; no capture set is computed or passed, and the
// proc.make call has no operands.
func (b *Builder) buildLambda(x *ast.Lambda) *ir.Value {
	outerFn, outerBlock, outerScope := b.fn, b.block, b.scope

	lambdaName := outerFn.Name + ".lambda"
	fn := &ir.Function{Name: lambdaName, Owner: outerFn.Owner, ReturnType: b.valueOf(x)}
	b.fn = fn
	b.scope = newScope(outerScope)
	savedLoops, savedHandlers := b.loops, b.handlers
	b.loops, b.handlers = nil, nil

	entry := fn.NewBlock("entry")
	b.block = entry
	for _, p := range x.Params {
		slot := fn.NewValue()
		slot.Type = b.valueOf(p)
		fn.Params = append(fn.Params, &ir.Param{Name: p.Name, Type: slot.Type})
		b.block.Emit(&ir.Alloc{Dst: slot, Name: p.Name, Type: slot.Type})
		argVal := fn.NewValue()
		argVal.Type = slot.Type
		b.block.Emit(&ir.Store{Slot: slot, Val: argVal})
		b.scope.bind(p.Name, slot)
	}
	result := b.buildStmts(x.Body)
	if b.block.Terminator == nil {
		b.block.Terminator = &ir.Return{Val: result}
	}

	b.extraFns = append(b.extraFns, fn)
	b.fn, b.block, b.scope = outerFn, outerBlock, outerScope
	b.loops, b.handlers = savedLoops, savedHandlers

	dst := outerFn.NewValue()
	dst.Type = b.valueOf(x)
	outerBlock.Emit(&ir.Call{Dst: dst, Kind: ir.CallNativeStruct, Name: "proc.make:" + lambdaName})
	return dst
}
