package infer

import (
	"testing"

	"github.com/konpeito/konpeito/internal/ast"
	"github.com/konpeito/konpeito/internal/diagnostics"
	"github.com/konpeito/konpeito/internal/signature"
	"github.com/konpeito/konpeito/internal/types"
	"github.com/stretchr/testify/require"
)

func newInferrer() *Inferrer {
	h := types.NewHierarchy()
	return New(h, signature.New(h), diagnostics.NewCollector())
}

// TestRun_InfersLiteralAndRegistersSignature is the S1 scenario from
// spec §8: a method returning a bare integer literal infers Int and
// registers a matching FunctionType signature.
func TestRun_InfersLiteralAndRegistersSignature(t *testing.T) {
	lit := &ast.Literal{Kind: ast.LitInt, Value: int64(1)}
	method := &ast.MethodDecl{Name: "one", Body: []ast.Stmt{&ast.ExprStmt{X: lit}}}
	class := &ast.ClassDecl{Name: "Box", Body: []ast.Decl{method}}
	file := &ast.File{Path: "box.rb", Decls: []ast.Decl{class}}

	inf := newInferrer()
	inf.Run([]*ast.File{file})

	require.Equal(t, types.Int, inf.TypeOf(lit))

	sig, ok := inf.Registry.Lookup("Box", "one")
	require.True(t, ok)
	require.Equal(t, types.Int, sig.Return)
}

// TestFinalize_LeavesUnboundParamAsWarningNotError confirms an
// unannotated parameter that's never constrained anywhere finalizes to an
// UnresolvedType warning rather than a fatal error (§4.5/§7).
func TestFinalize_LeavesUnboundParamAsWarningNotError(t *testing.T) {
	param := &ast.Param{Name: "x", Kind: ast.ParamPositional}
	ident := &ast.Identifier{Name: "x"}
	method := &ast.MethodDecl{
		Name:   "identity",
		Params: []*ast.Param{param},
		Body:   []ast.Stmt{&ast.ExprStmt{X: ident}},
	}
	file := &ast.File{Path: "id.rb", Decls: []ast.Decl{method}}

	inf := newInferrer()
	inf.Run([]*ast.File{file})

	require.False(t, inf.Diags.HasFatal())
	var sawUnresolved bool
	for _, d := range inf.Diags.All() {
		if d.Code == diagnostics.UnresolvedType {
			sawUnresolved = true
		}
	}
	require.True(t, sawUnresolved)
}

// TestNarrowCondition_NilCheckSplitsThenElse exercises §4.5's
// flow-narrowing table for `x == nil`: the then-branch narrows x to Nil,
// the else-branch strips Nil from the union.
func TestNarrowCondition_NilCheckSplitsThenElse(t *testing.T) {
	inf := newInferrer()
	base := NewEnv()
	union := types.NewUnion(types.Int, types.NilTy)
	base.Bind("x", union)

	cond := &ast.BinaryOp{
		Op:    "==",
		Left:  &ast.Identifier{Name: "x"},
		Right: &ast.Literal{Kind: ast.LitNil},
	}
	n := inf.narrowCondition(cond, base)

	require.NotNil(t, n.Then)
	require.NotNil(t, n.Else)
	thenTy, _ := n.Then.Lookup("x")
	require.Equal(t, types.NilTy, thenTy)
	elseTy, _ := n.Else.Lookup("x")
	require.Equal(t, types.Int, elseTy)
}

// TestNarrowCondition_TruthyIdentifierStripsNilInThenBranch covers the
// bare-identifier truthy-test row of the narrowing table.
func TestNarrowCondition_TruthyIdentifierStripsNilInThenBranch(t *testing.T) {
	inf := newInferrer()
	base := NewEnv()
	base.Bind("y", types.NewUnion(types.Str, types.NilTy))

	n := inf.narrowCondition(&ast.Identifier{Name: "y"}, base)
	require.NotNil(t, n.Then)
	narrowedTy, _ := n.Then.Lookup("y")
	require.Equal(t, types.Str, narrowedTy)
	require.Nil(t, n.Else)
}
