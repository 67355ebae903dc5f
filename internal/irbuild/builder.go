// Package irbuild lowers the typed tree (internal/typedtree) into the
// basic-block IR (internal/ir), per §4.7. Grounded on the block/Phi
// bookkeeping discipline of golang.org/x/tools' ssa builder (see
// other_examples ssa-func.go): addressable slots first, loops as
// header/body/after triples, conditionals as then/else/merge triples with
// a Phi at the merge point in expression position.
package irbuild

import (
	"github.com/konpeito/konpeito/internal/ast"
	"github.com/konpeito/konpeito/internal/diagnostics"
	"github.com/konpeito/konpeito/internal/ir"
	"github.com/konpeito/konpeito/internal/typedtree"
	"github.com/konpeito/konpeito/internal/types"
)

// scope binds a local variable name to its addressable Alloc slot within
// the function currently being built.
type scope struct {
	parent *scope
	slots  map[string]*ir.Value
}

func newScope(parent *scope) *scope { return &scope{parent: parent, slots: map[string]*ir.Value{}} }

func (s *scope) lookup(name string) (*ir.Value, bool) {
	for c := s; c != nil; c = c.parent {
		if v, ok := c.slots[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (s *scope) bind(name string, v *ir.Value) { s.slots[name] = v }

// loopLabels tracks the header/after blocks of the innermost enclosing
// loop, for break/next lowering (§4.7: "break→after, next→header").
type loopLabels struct {
	header, after *ir.BasicBlock
}

// handler tracks the innermost enclosing exception region's handler
// label, for Raise lowering.
type handler struct {
	label string
	block *ir.BasicBlock
}

// Builder lowers one compile unit's typed tree into an ir.Program.
type Builder struct {
	Tree  *typedtree.Tree
	Diags *diagnostics.Collector

	fn       *ir.Function
	block    *ir.BasicBlock
	scope    *scope
	self     *ir.Value
	loops    []loopLabels
	handlers []handler
	extraFns []*ir.Function // lambda/proc literals lowered to standalone functions

	callSites map[*ast.Call]IRCallSite // ast.Call -> where it lowered to
}

// IRCallSite is where one ast.Call ended up after lowering: the ir.Call
// instruction itself, plus the ir.Function it was emitted into.
type IRCallSite struct {
	Call *ir.Call
	Fn   *ir.Function
}

// IRCallSites returns the ast.Call -> IRCallSite correspondence recorded
// during Build, so a caller holding an infer.CallSite ledger (keyed by
// the same *ast.Call nodes) can resolve each entry to the concrete
// ir.Call instruction (and enclosing ir.Function) the Monomorphizer
// needs to rewrite.
func (b *Builder) IRCallSites() map[*ast.Call]IRCallSite { return b.callSites }

// selfSlot returns the addressable slot holding the current method's
// receiver, allocating a fresh Untyped one if this function never bound
// self (a top-level function has none, but buildExpr may still reach a
// stray `self` reference inside it).
func (b *Builder) selfSlot() *ir.Value {
	if b.self != nil {
		return b.self
	}
	b.self = b.fn.NewValue()
	b.self.Type = types.UntypedVal
	b.block.Emit(&ir.Alloc{Dst: b.self, Name: "self", Type: types.UntypedVal})
	return b.self
}

// New creates a Builder over a typed tree.
func New(tree *typedtree.Tree, diags *diagnostics.Collector) *Builder {
	return &Builder{Tree: tree, Diags: diags, callSites: map[*ast.Call]IRCallSite{}}
}

// Build lowers every method declaration reachable from the typed tree's
// files into an ir.Program.
func (b *Builder) Build() *ir.Program {
	prog := &ir.Program{}
	for _, f := range b.Tree.Files {
		for _, d := range f.Decls {
			b.buildDecl(d, "", prog)
		}
	}
	prog.Functions = append(prog.Functions, b.extraFns...)
	return prog
}

func (b *Builder) buildDecl(d ast.Decl, owner string, prog *ir.Program) {
	switch decl := d.(type) {
	case *ast.ClassDecl:
		for _, member := range decl.Body {
			b.buildDecl(member, decl.Name, prog)
		}
	case *ast.MethodDecl:
		prog.Functions = append(prog.Functions, b.buildMethod(decl, owner))
	}
}

func (b *Builder) buildMethod(md *ast.MethodDecl, owner string) *ir.Function {
	sigType := b.Tree.TypeOf(md)
	retType := types.Type(types.UntypedVal)
	if ft, ok := sigType.(*types.FunctionType); ok {
		retType = ft.Return
	}

	fn := &ir.Function{Name: md.Name, Owner: owner, ReturnType: retType}
	b.fn = fn
	b.scope = newScope(nil)
	b.loops = nil
	b.handlers = nil
	b.self = nil

	entry := fn.NewBlock("entry")
	b.block = entry

	if owner != "" && md.Receiver == "" {
		b.self = fn.NewValue()
		b.self.Type = &types.ClassInstance{Name: owner}
		b.block.Emit(&ir.Alloc{Dst: b.self, Name: "self", Type: b.self.Type})
	}

	nonSplat := 0
	for _, p := range md.Params {
		pt := types.Type(types.UntypedVal)
		if ft, ok := sigType.(*types.FunctionType); ok {
			pt = paramTypeFor(ft, p, nonSplat)
		}
		if p.Kind != ast.ParamSplat {
			nonSplat++
		}
		param := &ir.Param{Name: p.Name, Type: pt}
		fn.Params = append(fn.Params, param)

		slot := fn.NewValue()
		slot.Type = pt
		b.block.Emit(&ir.Alloc{Dst: slot, Name: p.Name, Type: pt})
		argVal := fn.NewValue()
		argVal.Type = pt
		argVal.Name = p.Name
		b.block.Emit(&ir.Store{Slot: slot, Val: argVal})
		b.scope.bind(p.Name, slot)
	}

	result := b.buildStmts(md.Body)
	if b.block.Terminator == nil {
		b.block.Terminator = &ir.Return{Val: result}
	}
	return fn
}

func paramTypeFor(ft *types.FunctionType, p *ast.Param, i int) types.Type {
	// Positional params line up 1:1 with ft.Params (i counts the non-splat
	// params before p, as the Inferrer builds ft.Params); splat/keyword/
	// block params fall back to Untyped since the FunctionType doesn't
	// carry per-name metadata for them.
	if p.Kind != ast.ParamPositional {
		if p.Kind == ast.ParamSplat && ft.RestParam != nil {
			return ft.RestParam
		}
		return types.UntypedVal
	}
	if i < len(ft.Params) {
		return ft.Params[i]
	}
	return types.UntypedVal
}

func (b *Builder) buildStmts(stmts []ast.Stmt) *ir.Value {
	var last *ir.Value
	for _, s := range stmts {
		last = b.buildStmt(s)
		if b.block.Terminator != nil {
			break
		}
	}
	return last
}

func (b *Builder) buildStmt(s ast.Stmt) *ir.Value {
	switch st := s.(type) {
	case *ast.ExprStmt:
		return b.buildExpr(st.X)
	case *ast.ReturnStmt:
		var v *ir.Value
		if st.Value != nil {
			v = b.buildExpr(st.Value)
		}
		b.block.Terminator = &ir.Return{Val: v}
		return v
	default:
		return nil
	}
}
