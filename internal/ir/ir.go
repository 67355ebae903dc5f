// Package ir defines the basic-block, modified-SSA intermediate
// representation (§3.3) that the IRBuilder lowers into and every
// optimization pass (monomorphizer, inliner, loop optimizer) rewrites in
// place. Grounded on the block/instruction shapes used throughout
// golang.org/x/tools' ssa package (see other_examples ssa-func.go) and
// the pass-pipeline style of kanso-lang's IR optimizations file.
package ir

import "github.com/konpeito/konpeito/internal/types"

// Program is the whole compiled unit: every function reachable from the
// entry file after dependency resolution.
type Program struct {
	Functions []*Function
}

// FuncByName returns the function named name, or nil.
func (p *Program) FuncByName(name string) *Function {
	for _, f := range p.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Function is one lowered method/def.
type Function struct {
	Name        string
	Owner       string // class name, or "" for a top-level function
	Params      []*Param
	ReturnType  types.Type
	Blocks      []*BasicBlock
	IsGeneric   bool     // marks a function mono specializes; irbuild.Builder never sets it
	TypeParams  []string // names of the free TypeVars, if IsGeneric

	nextValueID int
	nextBlockID int
}

// Param is one formal parameter slot in the lowered function.
type Param struct {
	Name string
	Type types.Type
}

// Entry returns the function's entry block (always Blocks[0] once lowering
// has produced at least one block).
func (f *Function) Entry() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// NewBlock appends and returns a fresh, empty block with a unique label.
func (f *Function) NewBlock(hint string) *BasicBlock {
	f.nextBlockID++
	b := &BasicBlock{Label: labelFor(hint, f.nextBlockID), Parent: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

func labelFor(hint string, id int) string {
	if hint == "" {
		hint = "bb"
	}
	return hint + "." + itoa(id)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// NewValue allocates a fresh SSA value identity, unique within f.
func (f *Function) NewValue() *Value {
	f.nextValueID++
	return &Value{ID: f.nextValueID}
}

// Value is an SSA value identity: the result of exactly one Instruction,
// or a Phi, or a Param.
type Value struct {
	ID   int
	Type types.Type
	Name string // optional debug hint
}

func (v *Value) String() string {
	if v == nil {
		return "<nil>"
	}
	if v.Name != "" {
		return v.Name
	}
	return "v" + itoa(v.ID)
}

// BasicBlock is a straight-line sequence of Instructions ending in exactly
// one Terminator, with explicit predecessor/successor bookkeeping so
// passes (and Phi-edge maintenance) don't need to recompute the CFG.
type BasicBlock struct {
	Label        string
	Parent       *Function
	Phis         []*Phi
	Instructions []Instruction
	Terminator   Terminator
	Preds        []*BasicBlock
	Succs        []*BasicBlock
}

// AddEdge wires pred -> succ into both blocks' adjacency lists.
func AddEdge(pred, succ *BasicBlock) {
	pred.Succs = append(pred.Succs, succ)
	succ.Preds = append(succ.Preds, pred)
}

// Emit appends instr to the block's instruction list.
func (b *BasicBlock) Emit(instr Instruction) {
	b.Instructions = append(b.Instructions, instr)
}

// Instruction is implemented by every non-terminating IR operation. Each
// instruction that produces a value exposes it via Result (nil for
// side-effect-only instructions like Store).
type Instruction interface {
	Result() *Value
	Operands() []*Value
	instr()
}

// Terminator is implemented by the single instruction that ends a block:
// Jump, Branch, Return or Raise.
type Terminator interface {
	Successors() []*BasicBlock
	term()
}

type instrBase struct{}

func (instrBase) instr() {}

// --- Literals & constants ------------------------------------------------

type ConstInt struct {
	instrBase
	Dst *Value
	Val int64
}

func (c *ConstInt) Result() *Value      { return c.Dst }
func (c *ConstInt) Operands() []*Value  { return nil }

type ConstFloat struct {
	instrBase
	Dst *Value
	Val float64
}

func (c *ConstFloat) Result() *Value     { return c.Dst }
func (c *ConstFloat) Operands() []*Value { return nil }

type ConstString struct {
	instrBase
	Dst *Value
	Val string
}

func (c *ConstString) Result() *Value     { return c.Dst }
func (c *ConstString) Operands() []*Value { return nil }

type ConstBool struct {
	instrBase
	Dst *Value
	Val bool
}

func (c *ConstBool) Result() *Value     { return c.Dst }
func (c *ConstBool) Operands() []*Value { return nil }

type ConstNil struct {
	instrBase
	Dst *Value
}

func (c *ConstNil) Result() *Value     { return c.Dst }
func (c *ConstNil) Operands() []*Value { return nil }

// --- Variable access -----------------------------------------------------

// Alloc reserves an addressable local slot (§3.3: "addressable slots +
// later lift-to-SSA pass"). Load/Store operate on the Value it produces.
type Alloc struct {
	instrBase
	Dst  *Value
	Name string
	Type types.Type
}

func (a *Alloc) Result() *Value     { return a.Dst }
func (a *Alloc) Operands() []*Value { return nil }

type Load struct {
	instrBase
	Dst  *Value
	Slot *Value
}

func (l *Load) Result() *Value     { return l.Dst }
func (l *Load) Operands() []*Value { return []*Value{l.Slot} }

type Store struct {
	instrBase
	Slot *Value
	Val  *Value
}

func (s *Store) Result() *Value     { return nil }
func (s *Store) Operands() []*Value { return []*Value{s.Slot, s.Val} }

// LoadField / StoreField access @instance_variable slots.
type LoadField struct {
	instrBase
	Dst    *Value
	Recv   *Value
	Field  string
}

func (l *LoadField) Result() *Value     { return l.Dst }
func (l *LoadField) Operands() []*Value { return []*Value{l.Recv} }

type StoreField struct {
	instrBase
	Recv  *Value
	Field string
	Val   *Value
}

func (s *StoreField) Result() *Value     { return nil }
func (s *StoreField) Operands() []*Value { return []*Value{s.Recv, s.Val} }

// LoadClassVar / StoreClassVar access @@class_variable slots, keyed by
// owning class name rather than a receiver value.
type LoadClassVar struct {
	instrBase
	Dst   *Value
	Owner string
	Name  string
}

func (l *LoadClassVar) Result() *Value     { return l.Dst }
func (l *LoadClassVar) Operands() []*Value { return nil }

type StoreClassVar struct {
	instrBase
	Owner string
	Name  string
	Val   *Value
}

func (s *StoreClassVar) Result() *Value     { return nil }
func (s *StoreClassVar) Operands() []*Value { return []*Value{s.Val} }

// LoadGlobal / StoreGlobal access $global slots (§9: "process-wide table
// keyed by fully-qualified name with typed load/store IR").
type LoadGlobal struct {
	instrBase
	Dst  *Value
	Name string
}

func (l *LoadGlobal) Result() *Value     { return l.Dst }
func (l *LoadGlobal) Operands() []*Value { return nil }

type StoreGlobal struct {
	instrBase
	Name string
	Val  *Value
}

func (s *StoreGlobal) Result() *Value     { return nil }
func (s *StoreGlobal) Operands() []*Value { return []*Value{s.Val} }

// LoadConst reads a ConstPath (class-scoped constant).
type LoadConst struct {
	instrBase
	Dst  *Value
	Name string
}

func (l *LoadConst) Result() *Value     { return l.Dst }
func (l *LoadConst) Operands() []*Value { return nil }

// --- Arithmetic & comparisons ---------------------------------------------

// OverflowPolicy records how an Arith instruction's overflow behavior is
// decided. The core never commits to one; §9 leaves it target-defined.
type OverflowPolicy int

const (
	OverflowTargetDefined OverflowPolicy = iota
)

// ArithOp enumerates the typed arithmetic operators.
type ArithOp int

const (
	Add ArithOp = iota
	Sub
	Mul
	Div
	Mod
)

type Arith struct {
	instrBase
	Dst      *Value
	Op       ArithOp
	Lhs, Rhs *Value
	Overflow OverflowPolicy
}

func (a *Arith) Result() *Value     { return a.Dst }
func (a *Arith) Operands() []*Value { return []*Value{a.Lhs, a.Rhs} }

// CmpOp enumerates comparison operators; every Cmp produces a Bool value.
type CmpOp int

const (
	CmpEq CmpOp = iota
	CmpNeq
	CmpLt
	CmpLte
	CmpGt
	CmpGte
)

// NumericEqWidening records this repo's committed answer to the numeric
// equality open question (SPEC_FULL.md §C): an Int compared against a
// Float widens the Int operand to Float first.
const NumericEqWidening = true

type Cmp struct {
	instrBase
	Dst      *Value
	Op       CmpOp
	Lhs, Rhs *Value
}

func (c *Cmp) Result() *Value     { return c.Dst }
func (c *Cmp) Operands() []*Value { return []*Value{c.Lhs, c.Rhs} }

// --- Calls -----------------------------------------------------------

// CallKind distinguishes the dispatch forms §3.3 enumerates.
type CallKind int

const (
	CallMethod CallKind = iota
	CallBlock
	CallYield
	CallSuper
	CallNativeStruct
	CallNativeField
	CallDynamic // runtime-resolved dispatch, §9 "DynamicCall IR instruction"
)

type Call struct {
	instrBase
	Dst    *Value // nil if the call's value is discarded
	Kind   CallKind
	Recv   *Value // nil for an implicit-self or top-level call
	Name   string
	Args   []*Value
	Block  *Value // block/proc operand, nil if none passed
}

func (c *Call) Result() *Value { return c.Dst }
func (c *Call) Operands() []*Value {
	ops := append([]*Value{}, c.Args...)
	if c.Recv != nil {
		ops = append(ops, c.Recv)
	}
	if c.Block != nil {
		ops = append(ops, c.Block)
	}
	return ops
}

// --- Type operations -----------------------------------------------------

type Box struct {
	instrBase
	Dst *Value
	Src *Value
}

func (b *Box) Result() *Value     { return b.Dst }
func (b *Box) Operands() []*Value { return []*Value{b.Src} }

type Unbox struct {
	instrBase
	Dst  *Value
	Src  *Value
	Type types.Type
}

func (u *Unbox) Result() *Value     { return u.Dst }
func (u *Unbox) Operands() []*Value { return []*Value{u.Src} }

// CheckedDowncast tests and narrows Src to Type, used for pattern-match
// class tests and safe-navigation.
type CheckedDowncast struct {
	instrBase
	Dst  *Value // Bool: whether the downcast succeeded
	Val  *Value // the narrowed value, valid only if Dst is true
	Src  *Value
	Type types.Type
}

func (c *CheckedDowncast) Result() *Value     { return c.Dst }
func (c *CheckedDowncast) Operands() []*Value { return []*Value{c.Src} }

// Assume records a hoisting-relevant fact established by a dominating
// branch (e.g. "x is non-nil"). No pass in this repository emits or reads
// it: the loop optimizer's isPure does not list it, and there is no
// checked-arithmetic downgrade. Grounded on kanso-lang's AssumeInstruction.
type Assume struct {
	instrBase
	Cond *Value
}

func (a *Assume) Result() *Value     { return nil }
func (a *Assume) Operands() []*Value { return []*Value{a.Cond} }

// --- Phi -----------------------------------------------------------

// PhiEdge pairs an incoming value with the predecessor block it arrives
// from.
type PhiEdge struct {
	Pred *BasicBlock
	Val  *Value
}

// Phi joins values from multiple predecessors at a merge block. Arity
// must equal len(block.Preds) once the CFG is finalized (§8 "IR
// well-formedness: Phi arity = predecessor count").
type Phi struct {
	Dst   *Value
	Edges []PhiEdge
}

func (p *Phi) Result() *Value { return p.Dst }
func (p *Phi) Operands() []*Value {
	ops := make([]*Value, len(p.Edges))
	for i, e := range p.Edges {
		ops[i] = e.Val
	}
	return ops
}

// --- Terminators -----------------------------------------------------

type termBase struct{}

func (termBase) term() {}

type Jump struct {
	termBase
	Target *BasicBlock
}

func (j *Jump) Successors() []*BasicBlock { return []*BasicBlock{j.Target} }

type Branch struct {
	termBase
	Cond        *Value
	Then, Else  *BasicBlock
}

func (b *Branch) Successors() []*BasicBlock { return []*BasicBlock{b.Then, b.Else} }

type Return struct {
	termBase
	Val *Value // nil for a bare `return`
}

func (r *Return) Successors() []*BasicBlock { return nil }

// Raise unwinds to the nearest exception handler (or out of the function
// if none), per §4.7 exception-region lowering. HandlerLabel is "" when
// there is no enclosing begin/rescue in scope.
type Raise struct {
	termBase
	Val          *Value
	HandlerLabel string
}

func (r *Raise) Successors() []*BasicBlock { return nil }
