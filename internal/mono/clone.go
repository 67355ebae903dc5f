package mono

import "github.com/konpeito/konpeito/internal/ir"

type valueCloner func(*ir.Value) *ir.Value

// cloneInstr deep-copies instr, remapping every operand/result Value
// through cl. The switch covers every instruction ir.go defines; an
// unrecognized concrete type (should not happen within this module) falls
// back to a no-op Assume so the clone stays well-formed rather than
// panicking.
func cloneInstr(instr ir.Instruction, cl valueCloner) ir.Instruction {
	switch in := instr.(type) {
	case *ir.ConstInt:
		return &ir.ConstInt{Dst: cl(in.Dst), Val: in.Val}
	case *ir.ConstFloat:
		return &ir.ConstFloat{Dst: cl(in.Dst), Val: in.Val}
	case *ir.ConstString:
		return &ir.ConstString{Dst: cl(in.Dst), Val: in.Val}
	case *ir.ConstBool:
		return &ir.ConstBool{Dst: cl(in.Dst), Val: in.Val}
	case *ir.ConstNil:
		return &ir.ConstNil{Dst: cl(in.Dst)}
	case *ir.Alloc:
		return &ir.Alloc{Dst: cl(in.Dst), Name: in.Name, Type: in.Type}
	case *ir.Load:
		return &ir.Load{Dst: cl(in.Dst), Slot: cl(in.Slot)}
	case *ir.Store:
		return &ir.Store{Slot: cl(in.Slot), Val: cl(in.Val)}
	case *ir.LoadField:
		return &ir.LoadField{Dst: cl(in.Dst), Recv: cl(in.Recv), Field: in.Field}
	case *ir.StoreField:
		return &ir.StoreField{Recv: cl(in.Recv), Field: in.Field, Val: cl(in.Val)}
	case *ir.LoadClassVar:
		return &ir.LoadClassVar{Dst: cl(in.Dst), Owner: in.Owner, Name: in.Name}
	case *ir.StoreClassVar:
		return &ir.StoreClassVar{Owner: in.Owner, Name: in.Name, Val: cl(in.Val)}
	case *ir.LoadGlobal:
		return &ir.LoadGlobal{Dst: cl(in.Dst), Name: in.Name}
	case *ir.StoreGlobal:
		return &ir.StoreGlobal{Name: in.Name, Val: cl(in.Val)}
	case *ir.LoadConst:
		return &ir.LoadConst{Dst: cl(in.Dst), Name: in.Name}
	case *ir.Arith:
		return &ir.Arith{Dst: cl(in.Dst), Op: in.Op, Lhs: cl(in.Lhs), Rhs: cl(in.Rhs), Overflow: in.Overflow}
	case *ir.Cmp:
		return &ir.Cmp{Dst: cl(in.Dst), Op: in.Op, Lhs: cl(in.Lhs), Rhs: cl(in.Rhs)}
	case *ir.Call:
		args := make([]*ir.Value, len(in.Args))
		for i, a := range in.Args {
			args[i] = cl(a)
		}
		return &ir.Call{Dst: cl(in.Dst), Kind: in.Kind, Recv: cl(in.Recv), Name: in.Name, Args: args, Block: cl(in.Block)}
	case *ir.Box:
		return &ir.Box{Dst: cl(in.Dst), Src: cl(in.Src)}
	case *ir.Unbox:
		return &ir.Unbox{Dst: cl(in.Dst), Src: cl(in.Src), Type: in.Type}
	case *ir.CheckedDowncast:
		return &ir.CheckedDowncast{Dst: cl(in.Dst), Val: cl(in.Val), Src: cl(in.Src), Type: in.Type}
	case *ir.Assume:
		return &ir.Assume{Cond: cl(in.Cond)}
	default:
		return &ir.Assume{Cond: nil}
	}
}

func cloneTerm(term ir.Terminator, blockMap map[*ir.BasicBlock]*ir.BasicBlock, cl valueCloner) ir.Terminator {
	switch t := term.(type) {
	case *ir.Jump:
		return &ir.Jump{Target: blockMap[t.Target]}
	case *ir.Branch:
		return &ir.Branch{Cond: cl(t.Cond), Then: blockMap[t.Then], Else: blockMap[t.Else]}
	case *ir.Return:
		return &ir.Return{Val: cl(t.Val)}
	case *ir.Raise:
		return &ir.Raise{Val: cl(t.Val), HandlerLabel: t.HandlerLabel}
	default:
		return nil
	}
}
