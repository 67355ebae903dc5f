package irbuild

import (
	"github.com/konpeito/konpeito/internal/ast"
	"github.com/konpeito/konpeito/internal/diagnostics"
	"github.com/konpeito/konpeito/internal/ir"
	"github.com/konpeito/konpeito/internal/types"
)

func (b *Builder) valueOf(n ast.Node) types.Type { return b.Tree.TypeOf(n) }

func (b *Builder) buildExpr(e ast.Expr) *ir.Value {
	switch x := e.(type) {
	case *ast.Literal:
		return b.buildLiteral(x)
	case *ast.Identifier:
		return b.buildIdentifier(x)
	case *ast.BinaryOp:
		return b.buildBinaryOp(x)
	case *ast.UnaryOp:
		return b.buildUnaryOp(x)
	case *ast.Assign:
		return b.buildAssign(x)
	case *ast.Call:
		return b.buildCall(x)
	case *ast.If:
		return b.buildIf(x)
	case *ast.Ternary:
		return b.buildTernaryExpr(x)
	case *ast.While:
		return b.buildWhile(x)
	case *ast.Break:
		return b.buildBreak(x)
	case *ast.Next:
		return b.buildNext(x)
	case *ast.Case:
		return b.buildCase(x)
	case *ast.BeginRescue:
		return b.buildBeginRescue(x)
	case *ast.Raise:
		return b.buildRaise(x)
	case *ast.CFor:
		return b.buildFor(x)
	case *ast.Lambda:
		return b.buildLambda(x)
	case *ast.Self:
		v := b.fn.NewValue()
		v.Type = b.valueOf(x)
		b.block.Emit(&ir.Load{Dst: v, Slot: b.selfSlot()})
		return v
	default:
		b.Diags.Report(diagnostics.New(diagnostics.UnsupportedConstruct,
			"irbuild: no lowering for this construct, emitting dynamic call").WithSpan(e.Pos()))
		v := b.fn.NewValue()
		v.Type = types.UntypedVal
		b.block.Emit(&ir.Call{Dst: v, Kind: ir.CallDynamic, Name: "unsupported"})
		return v
	}
}

func (b *Builder) buildLiteral(lit *ast.Literal) *ir.Value {
	v := b.fn.NewValue()
	switch lit.Kind {
	case ast.LitInt:
		v.Type = types.Int
		b.block.Emit(&ir.ConstInt{Dst: v, Val: toInt64(lit.Value)})
	case ast.LitFloat:
		v.Type = types.Float
		b.block.Emit(&ir.ConstFloat{Dst: v, Val: toFloat64(lit.Value)})
	case ast.LitString, ast.LitSymbol:
		v.Type = types.Str
		b.block.Emit(&ir.ConstString{Dst: v, Val: toString(lit.Value)})
	case ast.LitBool:
		v.Type = types.Bool
		b.block.Emit(&ir.ConstBool{Dst: v, Val: lit.Value == true})
	case ast.LitNil:
		v.Type = types.NilTy
		b.block.Emit(&ir.ConstNil{Dst: v})
	case ast.LitArray:
		v.Type = b.valueOf(lit)
		for _, el := range lit.Elements {
			b.buildExpr(el)
		}
		b.block.Emit(&ir.Call{Dst: v, Kind: ir.CallNativeStruct, Name: "array.literal"})
	case ast.LitHash:
		v.Type = b.valueOf(lit)
		for _, pr := range lit.Pairs {
			b.buildExpr(pr.Key)
			b.buildExpr(pr.Value)
		}
		b.block.Emit(&ir.Call{Dst: v, Kind: ir.CallNativeStruct, Name: "hash.literal"})
	default:
		v.Type = types.UntypedVal
	}
	return v
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	if f, ok := v.(float64); ok {
		return f
	}
	return 0
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func (b *Builder) buildIdentifier(id *ast.Identifier) *ir.Value {
	slot, ok := b.scope.lookup(id.Name)
	if !ok {
		v := b.fn.NewValue()
		v.Type = b.valueOf(id)
		b.block.Emit(&ir.Call{Dst: v, Kind: ir.CallMethod, Name: id.Name})
		return v
	}
	v := b.fn.NewValue()
	v.Type = slot.Type
	b.block.Emit(&ir.Load{Dst: v, Slot: slot})
	return v
}

func (b *Builder) buildBinaryOp(x *ast.BinaryOp) *ir.Value {
	if x.Op == "&&" || x.Op == "||" {
		return b.buildShortCircuit(x)
	}
	lhs := b.buildExpr(x.Left)
	rhs := b.buildExpr(x.Right)
	v := b.fn.NewValue()
	v.Type = b.valueOf(x)
	if op, ok := cmpOpFor(x.Op); ok {
		v.Type = types.Bool
		b.block.Emit(&ir.Cmp{Dst: v, Op: op, Lhs: lhs, Rhs: rhs})
		return v
	}
	if op, ok := arithOpFor(x.Op); ok {
		b.block.Emit(&ir.Arith{Dst: v, Op: op, Lhs: lhs, Rhs: rhs})
		return v
	}
	b.block.Emit(&ir.Call{Dst: v, Kind: ir.CallMethod, Recv: lhs, Name: x.Op, Args: []*ir.Value{rhs}})
	return v
}

func cmpOpFor(op string) (ir.CmpOp, bool) {
	switch op {
	case "==":
		return ir.CmpEq, true
	case "!=":
		return ir.CmpNeq, true
	case "<":
		return ir.CmpLt, true
	case "<=":
		return ir.CmpLte, true
	case ">":
		return ir.CmpGt, true
	case ">=":
		return ir.CmpGte, true
	}
	return 0, false
}

func arithOpFor(op string) (ir.ArithOp, bool) {
	switch op {
	case "+":
		return ir.Add, true
	case "-":
		return ir.Sub, true
	case "*":
		return ir.Mul, true
	case "/":
		return ir.Div, true
	case "%":
		return ir.Mod, true
	}
	return 0, false
}

// buildShortCircuit lowers `&&`/`||` as branch+phi, not a dedicated
// instruction (§4.7).
func (b *Builder) buildShortCircuit(x *ast.BinaryOp) *ir.Value {
	lhs := b.buildExpr(x.Left)
	lhsBlock := b.block
	rhsBlock := b.fn.NewBlock("sc.rhs")
	mergeBlock := b.fn.NewBlock("sc.merge")

	if x.Op == "&&" {
		b.block.Terminator = &ir.Branch{Cond: lhs, Then: rhsBlock, Else: mergeBlock}
	} else {
		b.block.Terminator = &ir.Branch{Cond: lhs, Then: mergeBlock, Else: rhsBlock}
	}
	ir.AddEdge(lhsBlock, rhsBlock)
	ir.AddEdge(lhsBlock, mergeBlock)

	b.block = rhsBlock
	rhs := b.buildExpr(x.Right)
	rhsEnd := b.block
	if rhsEnd.Terminator == nil {
		rhsEnd.Terminator = &ir.Jump{Target: mergeBlock}
		ir.AddEdge(rhsEnd, mergeBlock)
	}

	b.block = mergeBlock
	dst := b.fn.NewValue()
	dst.Type = b.valueOf(x)
	mergeBlock.Phis = append(mergeBlock.Phis, &ir.Phi{
		Dst: dst,
		Edges: []ir.PhiEdge{
			{Pred: lhsBlock, Val: lhs},
			{Pred: rhsEnd, Val: rhs},
		},
	})
	return dst
}

func (b *Builder) buildUnaryOp(x *ast.UnaryOp) *ir.Value {
	operand := b.buildExpr(x.Operand)
	v := b.fn.NewValue()
	v.Type = b.valueOf(x)
	b.block.Emit(&ir.Call{Dst: v, Kind: ir.CallMethod, Recv: operand, Name: "unary" + x.Op})
	return v
}

func (b *Builder) buildAssign(x *ast.Assign) *ir.Value {
	val := b.buildExpr(x.Value)
	id, ok := x.Target.(*ast.Identifier)
	if !ok {
		return val
	}
	slot, exists := b.scope.lookup(id.Name)
	if !exists {
		slot = b.fn.NewValue()
		slot.Type = val.Type
		b.block.Emit(&ir.Alloc{Dst: slot, Name: id.Name, Type: val.Type})
		b.scope.bind(id.Name, slot)
	}
	b.block.Emit(&ir.Store{Slot: slot, Val: val})
	return val
}

func (b *Builder) buildCall(x *ast.Call) *ir.Value {
	var recv *ir.Value
	if x.Receiver != nil {
		recv = b.buildExpr(x.Receiver)
	}
	args := make([]*ir.Value, len(x.Args))
	for i, a := range x.Args {
		args[i] = b.buildExpr(a)
	}
	v := b.fn.NewValue()
	v.Type = b.valueOf(x)

	if x.SafeNav && recv != nil {
		return b.buildSafeNavCall(x, recv, args, v)
	}

	call := &ir.Call{Dst: v, Kind: ir.CallMethod, Recv: recv, Name: x.Name, Args: args}
	b.block.Emit(call)
	b.callSites[x] = IRCallSite{Call: call, Fn: b.fn}
	return v
}

// buildSafeNavCall lowers `recv&.name(args)` as a nil-check branch+phi
// (§4.7 "safe-navigation").
func (b *Builder) buildSafeNavCall(x *ast.Call, recv *ir.Value, args []*ir.Value, dst *ir.Value) *ir.Value {
	checkBlock := b.block
	nonNilBlock := b.fn.NewBlock("safenav.call")
	mergeBlock := b.fn.NewBlock("safenav.merge")

	isNil := b.fn.NewValue()
	isNil.Type = types.Bool
	nilConst := b.fn.NewValue()
	nilConst.Type = types.NilTy
	checkBlock.Emit(&ir.ConstNil{Dst: nilConst})
	checkBlock.Emit(&ir.Cmp{Dst: isNil, Op: ir.CmpEq, Lhs: recv, Rhs: nilConst})
	checkBlock.Terminator = &ir.Branch{Cond: isNil, Then: mergeBlock, Else: nonNilBlock}
	ir.AddEdge(checkBlock, nonNilBlock)
	ir.AddEdge(checkBlock, mergeBlock)

	b.block = nonNilBlock
	callResult := b.fn.NewValue()
	callResult.Type = dst.Type
	call := &ir.Call{Dst: callResult, Kind: ir.CallMethod, Recv: recv, Name: x.Name, Args: args}
	nonNilBlock.Emit(call)
	b.callSites[x] = IRCallSite{Call: call, Fn: b.fn}
	nonNilBlock.Terminator = &ir.Jump{Target: mergeBlock}
	ir.AddEdge(nonNilBlock, mergeBlock)

	b.block = mergeBlock
	nilResult := b.fn.NewValue()
	nilResult.Type = types.NilTy
	mergeBlock.Emit(&ir.ConstNil{Dst: nilResult})
	mergeBlock.Phis = append(mergeBlock.Phis, &ir.Phi{
		Dst: dst,
		Edges: []ir.PhiEdge{
			{Pred: checkBlock, Val: nilResult},
			{Pred: nonNilBlock, Val: callResult},
		},
	})
	return dst
}
