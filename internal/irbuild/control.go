package irbuild

import (
	"github.com/konpeito/konpeito/internal/ast"
	"github.com/konpeito/konpeito/internal/ir"
	"github.com/konpeito/konpeito/internal/types"
)

// buildIf lowers a conditional expression into then/else/merge blocks with
// a Phi at the merge point (§4.7). `unless` is handled by swapping the
// branch targets rather than negating the condition value, so the IR never
// needs a NOT instruction just for this.
func (b *Builder) buildIf(x *ast.If) *ir.Value {
	cond := b.buildExpr(x.Cond)
	condBlock := b.block

	thenBlock := b.fn.NewBlock("if.then")
	elseBlock := b.fn.NewBlock("if.else")
	mergeBlock := b.fn.NewBlock("if.merge")

	if x.Unless {
		condBlock.Terminator = &ir.Branch{Cond: cond, Then: elseBlock, Else: thenBlock}
	} else {
		condBlock.Terminator = &ir.Branch{Cond: cond, Then: thenBlock, Else: elseBlock}
	}
	ir.AddEdge(condBlock, thenBlock)
	ir.AddEdge(condBlock, elseBlock)

	b.block = thenBlock
	thenVal := b.buildStmts(x.Then)
	thenEnd := b.block
	if thenEnd.Terminator == nil {
		thenEnd.Terminator = &ir.Jump{Target: mergeBlock}
		ir.AddEdge(thenEnd, mergeBlock)
	}

	b.block = elseBlock
	elseVal := b.buildElseChain(x.Elifs, x.Else)
	elseEnd := b.block
	if elseEnd.Terminator == nil {
		elseEnd.Terminator = &ir.Jump{Target: mergeBlock}
		ir.AddEdge(elseEnd, mergeBlock)
	}

	b.block = mergeBlock
	dst := b.fn.NewValue()
	dst.Type = b.valueOf(x)
	edges := []ir.PhiEdge{}
	if thenEnd.Terminator != nil {
		if _, ok := thenEnd.Terminator.(*ir.Jump); ok {
			edges = append(edges, ir.PhiEdge{Pred: thenEnd, Val: thenVal})
		}
	}
	if elseEnd.Terminator != nil {
		if _, ok := elseEnd.Terminator.(*ir.Jump); ok {
			edges = append(edges, ir.PhiEdge{Pred: elseEnd, Val: elseVal})
		}
	}
	if len(edges) > 0 {
		mergeBlock.Phis = append(mergeBlock.Phis, &ir.Phi{Dst: dst, Edges: edges})
	}
	return dst
}

// buildElseChain lowers `elsif` arms as nested if/else, same as the parser
// desugars them conceptually, without needing a dedicated elsif node in IR.
func (b *Builder) buildElseChain(elifs []ast.ElseIf, els []ast.Stmt) *ir.Value {
	if len(elifs) == 0 {
		return b.buildStmts(els)
	}
	head := elifs[0]
	nested := &ast.If{Cond: head.Cond, Then: head.Body, Elifs: elifs[1:], Else: els}
	return b.buildIf(nested)
}

func (b *Builder) buildTernaryExpr(x *ast.Ternary) *ir.Value {
	nested := &ast.If{
		Cond: x.Cond,
		Then: []ast.Stmt{&ast.ExprStmt{X: x.Then}},
		Else: []ast.Stmt{&ast.ExprStmt{X: x.Else}},
	}
	return b.buildIf(nested)
}

// buildWhile lowers a while/until loop into header/body/after blocks
// (§4.7). `until` flips the branch targets, same convention as unless.
func (b *Builder) buildWhile(x *ast.While) *ir.Value {
	header := b.fn.NewBlock("while.header")
	body := b.fn.NewBlock("while.body")
	after := b.fn.NewBlock("while.after")

	if b.block.Terminator == nil {
		b.block.Terminator = &ir.Jump{Target: header}
		ir.AddEdge(b.block, header)
	}

	b.block = header
	cond := b.buildExpr(x.Cond)
	if x.Until {
		header.Terminator = &ir.Branch{Cond: cond, Then: after, Else: body}
	} else {
		header.Terminator = &ir.Branch{Cond: cond, Then: body, Else: after}
	}
	ir.AddEdge(header, body)
	ir.AddEdge(header, after)

	b.loops = append(b.loops, loopLabels{header: header, after: after})
	b.block = body
	b.buildStmts(x.Body)
	if b.block.Terminator == nil {
		b.block.Terminator = &ir.Jump{Target: header}
		ir.AddEdge(b.block, header)
	}
	b.loops = b.loops[:len(b.loops)-1]

	b.block = after
	v := b.fn.NewValue()
	v.Type = types.NilTy
	after.Emit(&ir.ConstNil{Dst: v})
	return v
}

// buildFor lowers `for x in xs` into header/body/after around a native
// iteration call, binding the loop variable directly (not via a block
// parameter, since CFor's variable escapes to the enclosing scope).
func (b *Builder) buildFor(x *ast.CFor) *ir.Value {
	iter := b.buildExpr(x.Iter)

	slot := b.fn.NewValue()
	var elemType types.Type = types.UntypedVal
	if e, ok := types.ArrayElem(b.valueOf(x.Iter)); ok {
		elemType = e
	}
	slot.Type = elemType
	b.block.Emit(&ir.Alloc{Dst: slot, Name: x.Var, Type: elemType})
	b.scope.bind(x.Var, slot)

	header := b.fn.NewBlock("for.header")
	body := b.fn.NewBlock("for.body")
	after := b.fn.NewBlock("for.after")

	b.block.Terminator = &ir.Jump{Target: header}
	ir.AddEdge(b.block, header)

	b.block = header
	hasNext := b.fn.NewValue()
	hasNext.Type = types.Bool
	header.Emit(&ir.Call{Dst: hasNext, Kind: ir.CallNativeStruct, Recv: iter, Name: "has_next?"})
	header.Terminator = &ir.Branch{Cond: hasNext, Then: body, Else: after}
	ir.AddEdge(header, body)
	ir.AddEdge(header, after)

	b.block = body
	next := b.fn.NewValue()
	next.Type = elemType
	body.Emit(&ir.Call{Dst: next, Kind: ir.CallNativeStruct, Recv: iter, Name: "next"})
	body.Emit(&ir.Store{Slot: slot, Val: next})

	b.loops = append(b.loops, loopLabels{header: header, after: after})
	b.buildStmts(x.Body)
	if b.block.Terminator == nil {
		b.block.Terminator = &ir.Jump{Target: header}
		ir.AddEdge(b.block, header)
	}
	b.loops = b.loops[:len(b.loops)-1]

	b.block = after
	v := b.fn.NewValue()
	v.Type = types.NilTy
	after.Emit(&ir.ConstNil{Dst: v})
	return v
}

func (b *Builder) buildBreak(x *ast.Break) *ir.Value {
	if x.Value != nil {
		b.buildExpr(x.Value)
	}
	if len(b.loops) == 0 {
		return b.nilValue()
	}
	target := b.loops[len(b.loops)-1].after
	b.block.Terminator = &ir.Jump{Target: target}
	ir.AddEdge(b.block, target)
	return b.nilValue()
}

func (b *Builder) buildNext(x *ast.Next) *ir.Value {
	if x.Value != nil {
		b.buildExpr(x.Value)
	}
	if len(b.loops) == 0 {
		return b.nilValue()
	}
	target := b.loops[len(b.loops)-1].header
	b.block.Terminator = &ir.Jump{Target: target}
	ir.AddEdge(b.block, target)
	return b.nilValue()
}

func (b *Builder) nilValue() *ir.Value {
	v := b.fn.NewValue()
	v.Type = types.NilTy
	b.block.Emit(&ir.ConstNil{Dst: v})
	return v
}

// buildCase lowers `case/when` into sequential pattern-test blocks
// (§4.7), falling through to an else block, or, when there is no else, to
// a Raise of the NoMatchingPatternError constant.
func (b *Builder) buildCase(x *ast.Case) *ir.Value {
	var subject *ir.Value
	if x.Subject != nil {
		subject = b.buildExpr(x.Subject)
	}

	mergeBlock := b.fn.NewBlock("case.merge")
	dst := b.fn.NewValue()
	dst.Type = b.valueOf(x)
	var edges []ir.PhiEdge

	next := b.block
	for _, when := range x.Whens {
		b.block = next
		testBlock := b.fn.NewBlock("case.test")
		bodyBlock := b.fn.NewBlock("case.body")
		afterTest := b.fn.NewBlock("case.next")

		if b.block.Terminator == nil {
			b.block.Terminator = &ir.Jump{Target: testBlock}
			ir.AddEdge(b.block, testBlock)
		}

		b.block = testBlock
		matched := b.buildWhenTest(when, subject)
		testBlock.Terminator = &ir.Branch{Cond: matched, Then: bodyBlock, Else: afterTest}
		ir.AddEdge(testBlock, bodyBlock)
		ir.AddEdge(testBlock, afterTest)

		b.block = bodyBlock
		bodyVal := b.buildStmts(when.Body)
		bodyEnd := b.block
		if bodyEnd.Terminator == nil {
			bodyEnd.Terminator = &ir.Jump{Target: mergeBlock}
			ir.AddEdge(bodyEnd, mergeBlock)
			edges = append(edges, ir.PhiEdge{Pred: bodyEnd, Val: bodyVal})
		}

		next = afterTest
	}

	b.block = next
	if len(x.Else) > 0 {
		elseVal := b.buildStmts(x.Else)
		elseEnd := b.block
		if elseEnd.Terminator == nil {
			elseEnd.Terminator = &ir.Jump{Target: mergeBlock}
			ir.AddEdge(elseEnd, mergeBlock)
			edges = append(edges, ir.PhiEdge{Pred: elseEnd, Val: elseVal})
		}
	} else if b.block.Terminator == nil {
		noMatch := b.fn.NewValue()
		noMatch.Type = &types.ClassSingleton{Name: "NoMatchingPatternError"}
		b.block.Emit(&ir.LoadConst{Dst: noMatch, Name: "NoMatchingPatternError"})
		b.block.Terminator = &ir.Raise{Val: noMatch, HandlerLabel: b.enclosingHandlerLabel()}
	}

	b.block = mergeBlock
	if len(edges) > 0 {
		mergeBlock.Phis = append(mergeBlock.Phis, &ir.Phi{Dst: dst, Edges: edges})
	}
	return dst
}

func (b *Builder) buildWhenTest(when ast.WhenClause, subject *ir.Value) *ir.Value {
	var result *ir.Value
	for _, p := range when.Patterns {
		test := b.buildPatternTest(p, subject)
		if result == nil {
			result = test
			continue
		}
		combined := b.fn.NewValue()
		combined.Type = types.Bool
		b.block.Emit(&ir.Call{Dst: combined, Kind: ir.CallMethod, Name: "or", Args: []*ir.Value{result, test}})
		result = combined
	}
	if result == nil {
		v := b.fn.NewValue()
		v.Type = types.Bool
		b.block.Emit(&ir.ConstBool{Dst: v, Val: true})
		return v
	}
	return result
}

func (b *Builder) buildPatternTest(p ast.Pattern, subject *ir.Value) *ir.Value {
	v := b.fn.NewValue()
	v.Type = types.Bool
	switch pat := p.(type) {
	case *ast.WildcardPattern:
		b.block.Emit(&ir.ConstBool{Dst: v, Val: true})
	case *ast.LiteralPattern:
		lit := b.buildLiteral(pat.Lit)
		b.block.Emit(&ir.Cmp{Dst: v, Op: ir.CmpEq, Lhs: subject, Rhs: lit})
	case *ast.ClassPattern:
		downcast := b.fn.NewValue()
		downcast.Type = types.Bool
		narrowed := b.fn.NewValue()
		b.block.Emit(&ir.CheckedDowncast{Dst: downcast, Val: narrowed, Src: subject, Type: &types.ClassInstance{Name: pat.ClassName}})
		return downcast
	case *ast.VarPattern:
		b.block.Emit(&ir.ConstBool{Dst: v, Val: true})
		if subject != nil {
			slot := b.fn.NewValue()
			slot.Type = subject.Type
			b.block.Emit(&ir.Alloc{Dst: slot, Name: pat.Name, Type: subject.Type})
			b.block.Emit(&ir.Store{Slot: slot, Val: subject})
			b.scope.bind(pat.Name, slot)
		}
	default:
		b.block.Emit(&ir.ConstBool{Dst: v, Val: true})
	}
	return v
}

// buildBeginRescue lowers an exception region (§4.7): the body runs under
// a handler label naming the rescue-dispatch block, pushed for the
// duration of Body/Else so a Raise inside it targets the right handler.
func (b *Builder) buildBeginRescue(x *ast.BeginRescue) *ir.Value {
	handlerBlock := b.fn.NewBlock("rescue.dispatch")
	mergeBlock := b.fn.NewBlock("rescue.merge")

	b.handlers = append(b.handlers, handler{label: handlerBlock.Label, block: handlerBlock})
	bodyVal := b.buildStmts(x.Body)
	if len(x.Else) > 0 {
		bodyVal = b.buildStmts(x.Else)
	}
	b.handlers = b.handlers[:len(b.handlers)-1]
	bodyEnd := b.block
	if bodyEnd.Terminator == nil {
		bodyEnd.Terminator = &ir.Jump{Target: mergeBlock}
		ir.AddEdge(bodyEnd, mergeBlock)
	}

	dst := b.fn.NewValue()
	dst.Type = b.valueOf(x)
	var edges []ir.PhiEdge
	if _, ok := bodyEnd.Terminator.(*ir.Jump); ok {
		edges = append(edges, ir.PhiEdge{Pred: bodyEnd, Val: bodyVal})
	}

	b.block = handlerBlock
	prevNext := handlerBlock
	for _, rescue := range x.Rescues {
		rescueBody := b.fn.NewBlock("rescue.body")
		afterRescue := b.fn.NewBlock("rescue.next")

		b.block = prevNext
		matched := b.fn.NewValue()
		matched.Type = types.Bool
		b.block.Emit(&ir.ConstBool{Dst: matched, Val: len(rescue.Classes) == 0})
		b.block.Terminator = &ir.Branch{Cond: matched, Then: rescueBody, Else: afterRescue}
		ir.AddEdge(b.block, rescueBody)
		ir.AddEdge(b.block, afterRescue)

		b.block = rescueBody
		if rescue.VarName != "" {
			slot := b.fn.NewValue()
			slot.Type = &types.ClassInstance{Name: "StandardError"}
			rescueBody.Emit(&ir.Alloc{Dst: slot, Name: rescue.VarName, Type: slot.Type})
			b.scope.bind(rescue.VarName, slot)
		}
		rescueVal := b.buildStmts(rescue.Body)
		rescueEnd := b.block
		if rescueEnd.Terminator == nil {
			rescueEnd.Terminator = &ir.Jump{Target: mergeBlock}
			ir.AddEdge(rescueEnd, mergeBlock)
			edges = append(edges, ir.PhiEdge{Pred: rescueEnd, Val: rescueVal})
		}
		prevNext = afterRescue
	}

	b.block = prevNext
	if prevNext.Terminator == nil {
		reraiseVal := b.fn.NewValue()
		reraiseVal.Type = types.UntypedVal
		prevNext.Emit(&ir.ConstNil{Dst: reraiseVal})
		prevNext.Terminator = &ir.Raise{Val: reraiseVal, HandlerLabel: b.enclosingHandlerLabel()}
	}

	if len(x.Ensure) > 0 {
		b.block = mergeBlock
		b.buildStmts(x.Ensure)
	}

	b.block = mergeBlock
	if len(edges) > 0 {
		mergeBlock.Phis = append(mergeBlock.Phis, &ir.Phi{Dst: dst, Edges: edges})
	}
	return dst
}

func (b *Builder) enclosingHandlerLabel() string {
	if len(b.handlers) == 0 {
		return ""
	}
	return b.handlers[len(b.handlers)-1].label
}

func (b *Builder) buildRaise(x *ast.Raise) *ir.Value {
	var val *ir.Value
	if x.Class != nil {
		val = b.buildExpr(x.Class)
		for _, a := range x.Args {
			b.buildExpr(a)
		}
	} else {
		val = b.nilValue()
	}
	b.block.Terminator = &ir.Raise{Val: val, HandlerLabel: b.enclosingHandlerLabel()}
	return val
}
