// Package typedtree implements the TypedTreeBuilder (§4.6): it decorates
// the consumed parser tree with the types the Inferrer computed, without
// building a separate IR of its own. Grounded on the teacher's
// TypedExpr-embedding pattern (internal/typedast/typed_ast.go), adapted
// from a parallel node hierarchy to an in-place decoration table keyed by
// node identity, since §3.2 calls for "a parallel decoration layer", not a
// rewritten tree.
package typedtree

import (
	"github.com/konpeito/konpeito/internal/ast"
	"github.com/konpeito/konpeito/internal/diagnostics"
	"github.com/konpeito/konpeito/internal/types"
)

// TypeOracle is satisfied by the Inferrer: anything that can answer
// "what type did you compute for this node".
type TypeOracle interface {
	TypeOf(node ast.Node) types.Type
}

// Tree is the decorated output: every visited node's inferred type,
// looked up by node identity, plus the file(s) it spans.
type Tree struct {
	Files []*ast.File
	types map[ast.Node]types.Type
}

// TypeOf returns node's decorated type, or Untyped if it was never
// visited by Build (e.g. a declaration with no executable body).
func (t *Tree) TypeOf(node ast.Node) types.Type {
	if ty, ok := t.types[node]; ok {
		return ty
	}
	return types.UntypedVal
}

// Build walks files and captures every node's type from oracle into a
// Tree. It reports no diagnostics itself: diags is accepted but not used,
// so a node left Untyped or as a type variable raises no warning here.
func Build(files []*ast.File, oracle TypeOracle, diags *diagnostics.Collector) *Tree {
	tree := &Tree{Files: files, types: map[ast.Node]types.Type{}}
	for _, f := range files {
		for _, d := range f.Decls {
			walkDecl(d, oracle, tree)
		}
	}
	return tree
}

func record(n ast.Node, oracle TypeOracle, tree *Tree) {
	tree.types[n] = oracle.TypeOf(n)
}

func walkDecl(d ast.Decl, oracle TypeOracle, tree *Tree) {
	record(d, oracle, tree)
	switch decl := d.(type) {
	case *ast.ClassDecl:
		for _, member := range decl.Body {
			walkDecl(member, oracle, tree)
		}
	case *ast.MethodDecl:
		for _, s := range decl.Body {
			walkStmt(s, oracle, tree)
		}
	case *ast.ConstDecl:
		walkExpr(decl.Value, oracle, tree)
	}
}

func walkStmt(s ast.Stmt, oracle TypeOracle, tree *Tree) {
	record(s, oracle, tree)
	switch st := s.(type) {
	case *ast.ExprStmt:
		walkExpr(st.X, oracle, tree)
	case *ast.ReturnStmt:
		if st.Value != nil {
			walkExpr(st.Value, oracle, tree)
		}
	}
}

func walkExpr(e ast.Expr, oracle TypeOracle, tree *Tree) {
	if e == nil {
		return
	}
	record(e, oracle, tree)
	switch x := e.(type) {
	case *ast.BinaryOp:
		walkExpr(x.Left, oracle, tree)
		walkExpr(x.Right, oracle, tree)
	case *ast.UnaryOp:
		walkExpr(x.Operand, oracle, tree)
	case *ast.Assign:
		walkExpr(x.Target, oracle, tree)
		walkExpr(x.Value, oracle, tree)
	case *ast.Call:
		if x.Receiver != nil {
			walkExpr(x.Receiver, oracle, tree)
		}
		for _, a := range x.Args {
			walkExpr(a, oracle, tree)
		}
		if x.Block != nil {
			for _, s := range x.Block.Body {
				walkStmt(s, oracle, tree)
			}
		}
	case *ast.If:
		walkExpr(x.Cond, oracle, tree)
		for _, s := range x.Then {
			walkStmt(s, oracle, tree)
		}
		for _, ei := range x.Elifs {
			walkExpr(ei.Cond, oracle, tree)
			for _, s := range ei.Body {
				walkStmt(s, oracle, tree)
			}
		}
		for _, s := range x.Else {
			walkStmt(s, oracle, tree)
		}
	case *ast.Ternary:
		walkExpr(x.Cond, oracle, tree)
		walkExpr(x.Then, oracle, tree)
		walkExpr(x.Else, oracle, tree)
	case *ast.While:
		walkExpr(x.Cond, oracle, tree)
		for _, s := range x.Body {
			walkStmt(s, oracle, tree)
		}
	case *ast.Case:
		if x.Subject != nil {
			walkExpr(x.Subject, oracle, tree)
		}
		for _, w := range x.Whens {
			for _, s := range w.Body {
				walkStmt(s, oracle, tree)
			}
		}
		for _, s := range x.Else {
			walkStmt(s, oracle, tree)
		}
	case *ast.BeginRescue:
		for _, s := range x.Body {
			walkStmt(s, oracle, tree)
		}
		for _, r := range x.Rescues {
			for _, s := range r.Body {
				walkStmt(s, oracle, tree)
			}
		}
	case *ast.Literal:
		for _, el := range x.Elements {
			walkExpr(el, oracle, tree)
		}
		for _, pr := range x.Pairs {
			walkExpr(pr.Key, oracle, tree)
			walkExpr(pr.Value, oracle, tree)
		}
	}
}
