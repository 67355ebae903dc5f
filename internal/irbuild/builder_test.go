package irbuild

import (
	"strings"
	"testing"

	"github.com/konpeito/konpeito/internal/ast"
	"github.com/konpeito/konpeito/internal/diagnostics"
	"github.com/konpeito/konpeito/internal/ir"
	"github.com/konpeito/konpeito/internal/typedtree"
	"github.com/konpeito/konpeito/internal/types"
	"github.com/stretchr/testify/require"
)

// constOracle answers every TypeOf query the same way, enough to exercise
// irbuild's lowering without a real Inferrer run.
type constOracle struct{ t types.Type }

func (o constOracle) TypeOf(ast.Node) types.Type { return o.t }

func buildTree(t *testing.T, file *ast.File) *typedtree.Tree {
	t.Helper()
	return typedtree.Build([]*ast.File{file}, constOracle{types.Int}, diagnostics.NewCollector())
}

func intLit(v int64) *ast.Literal { return &ast.Literal{Kind: ast.LitInt, Value: v} }

// TestBuild_IfLowersToThenElseMergeWithPhi exercises §4.7's conditional
// lowering: then/else/merge blocks with a Phi joining both paths.
func TestBuild_IfLowersToThenElseMergeWithPhi(t *testing.T) {
	method := &ast.MethodDecl{
		Name: "pick",
		Body: []ast.Stmt{
			&ast.ExprStmt{X: &ast.If{
				Cond: intLit(1),
				Then: []ast.Stmt{&ast.ExprStmt{X: intLit(2)}},
				Else: []ast.Stmt{&ast.ExprStmt{X: intLit(3)}},
			}},
		},
	}
	class := &ast.ClassDecl{Name: "Box", Body: []ast.Decl{method}}
	file := &ast.File{Path: "box.rb", Decls: []ast.Decl{class}}

	prog := New(buildTree(t, file), diagnostics.NewCollector()).Build()
	fn := prog.FuncByName("pick")
	require.NotNil(t, fn)

	var sawPhi bool
	for _, blk := range fn.Blocks {
		if len(blk.Phis) > 0 {
			sawPhi = true
		}
	}
	require.True(t, sawPhi, "the merge block should join then/else results with a Phi")
	require.GreaterOrEqual(t, len(fn.Blocks), 4, "expect entry/then/else/merge blocks")
}

// TestBuild_WhileUntilSwapsBranchTargets exercises the until-desugars-to-
// swapped-branch-targets rule instead of a dedicated Until IR construct.
func TestBuild_WhileUntilSwapsBranchTargets(t *testing.T) {
	method := &ast.MethodDecl{
		Name: "loopUntil",
		Body: []ast.Stmt{
			&ast.ExprStmt{X: &ast.While{
				Until: true,
				Cond:  intLit(0),
				Body:  []ast.Stmt{&ast.ExprStmt{X: intLit(1)}},
			}},
		},
	}
	class := &ast.ClassDecl{Name: "Loopy", Body: []ast.Decl{method}}
	file := &ast.File{Path: "loopy.rb", Decls: []ast.Decl{class}}

	prog := New(buildTree(t, file), diagnostics.NewCollector()).Build()
	fn := prog.FuncByName("loopUntil")
	require.NotNil(t, fn)

	var header *ir.BasicBlock
	for _, blk := range fn.Blocks {
		if strings.HasPrefix(blk.Label, "while.header") {
			header = blk
		}
	}
	require.NotNil(t, header)
	// An until loop exits on a true condition: the header's Then edge goes
	// to the loop exit and its Else edge goes to the body.
	var sawBranch bool
	for _, blk := range fn.Blocks {
		if br, ok := blk.Terminator.(*ir.Branch); ok {
			sawBranch = true
			require.NotEqual(t, br.Then, br.Else)
		}
	}
	require.True(t, sawBranch)
	br, ok := header.Terminator.(*ir.Branch)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(br.Then.Label, "while.after"), "Then should be the exit, got %s", br.Then.Label)
	require.True(t, strings.HasPrefix(br.Else.Label, "while.body"), "Else should be the body, got %s", br.Else.Label)
}

// TestBuild_SelfBoundForInstanceMethod confirms an instance method (no
// explicit receiver) gets a typed self slot allocated up front.
func TestBuild_SelfBoundForInstanceMethod(t *testing.T) {
	method := &ast.MethodDecl{Name: "whoAmI", Body: []ast.Stmt{
		&ast.ExprStmt{X: &ast.Self{}},
	}}
	class := &ast.ClassDecl{Name: "Widget", Body: []ast.Decl{method}}
	file := &ast.File{Path: "widget.rb", Decls: []ast.Decl{class}}

	prog := New(buildTree(t, file), diagnostics.NewCollector()).Build()
	fn := prog.FuncByName("whoAmI")
	require.NotNil(t, fn)

	var sawSelfAlloc bool
	for _, instr := range fn.Entry().Instructions {
		if alloc, ok := instr.(*ir.Alloc); ok && alloc.Name == "self" {
			sawSelfAlloc = true
			require.IsType(t, &types.ClassInstance{}, alloc.Type)
		}
	}
	require.True(t, sawSelfAlloc)
}

// TestBuild_AssignAllocatesSlotOnFirstUse confirms a fresh local binds an
// Alloc+Store pair the first time it's assigned.
func TestBuild_AssignAllocatesSlotOnFirstUse(t *testing.T) {
	method := &ast.MethodDecl{Name: "setIt", Body: []ast.Stmt{
		&ast.ExprStmt{X: &ast.Assign{Target: &ast.Identifier{Name: "x"}, Value: intLit(5)}},
	}}
	class := &ast.ClassDecl{Name: "Holder", Body: []ast.Decl{method}}
	file := &ast.File{Path: "holder.rb", Decls: []ast.Decl{class}}

	prog := New(buildTree(t, file), diagnostics.NewCollector()).Build()
	fn := prog.FuncByName("setIt")
	require.NotNil(t, fn)

	var sawAlloc, sawStore bool
	for _, instr := range fn.Entry().Instructions {
		switch instr.(type) {
		case *ir.Alloc:
			sawAlloc = true
		case *ir.Store:
			sawStore = true
		}
	}
	require.True(t, sawAlloc)
	require.True(t, sawStore)
}
