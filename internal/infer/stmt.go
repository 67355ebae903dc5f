package infer

import (
	"github.com/konpeito/konpeito/internal/ast"
	"github.com/konpeito/konpeito/internal/types"
)

// inferStmts infers a statement list's type, which is the type of its
// last statement (Ruby's implicit-return semantics), or Nil for an empty
// list.
func (inf *Inferrer) inferStmts(stmts []ast.Stmt, env *Env) types.Type {
	var last types.Type = types.NilTy
	for _, s := range stmts {
		last = inf.inferStmt(s, env)
	}
	return last
}

func (inf *Inferrer) inferStmt(s ast.Stmt, env *Env) types.Type {
	switch st := s.(type) {
	case *ast.ExprStmt:
		return inf.inferExpr(st.X, env)
	case *ast.ReturnStmt:
		if st.Value == nil {
			return inf.set(st, types.NilTy)
		}
		return inf.set(st, inf.inferExpr(st.Value, env))
	default:
		return types.UntypedVal
	}
}
