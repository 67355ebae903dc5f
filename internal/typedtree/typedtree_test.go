package typedtree

import (
	"testing"

	"github.com/konpeito/konpeito/internal/ast"
	"github.com/konpeito/konpeito/internal/diagnostics"
	"github.com/konpeito/konpeito/internal/types"
	"github.com/stretchr/testify/require"
)

type mapOracle map[ast.Node]types.Type

func (m mapOracle) TypeOf(n ast.Node) types.Type {
	if t, ok := m[n]; ok {
		return t
	}
	return types.UntypedVal
}

func TestBuild_RecordsVisitedNodeTypes(t *testing.T) {
	lit := &ast.Literal{Kind: ast.LitInt, Value: int64(1)}
	stmt := &ast.ExprStmt{X: lit}
	method := &ast.MethodDecl{Name: "one", Body: []ast.Stmt{stmt}}
	file := &ast.File{Path: "f.rb", Decls: []ast.Decl{method}}

	oracle := mapOracle{lit: types.Int}
	tree := Build([]*ast.File{file}, oracle, diagnostics.NewCollector())

	require.Equal(t, types.Int, tree.TypeOf(lit))
}

func TestTypeOf_UnvisitedNodeFallsBackToUntyped(t *testing.T) {
	tree := Build(nil, mapOracle{}, diagnostics.NewCollector())
	require.Equal(t, types.UntypedVal, tree.TypeOf(&ast.Literal{}))
}
