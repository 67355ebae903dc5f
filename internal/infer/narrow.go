package infer

import (
	"github.com/konpeito/konpeito/internal/ast"
	"github.com/konpeito/konpeito/internal/types"
)

// narrowed is the pair of environments produced by narrowing a condition:
// Then holds the bindings true inside the truthy branch, Else holds the
// bindings true inside the falsy branch. Either may be nil if the
// condition yields no narrowing information.
type narrowed struct {
	Then *Env
	Else *Env
}

// narrowCondition implements §4.5's flow-narrowing table: a truthy test
// on a bare identifier, `== nil` / `!= nil`, `.nil?`, `&&` conjunction (narrow
// both operands into the then-branch), and a pattern-match-against-class
// test (via isA). Anything else narrows nothing.
func (inf *Inferrer) narrowCondition(cond ast.Expr, base *Env) narrowed {
	switch c := cond.(type) {
	case *ast.Identifier:
		return narrowIdentifierTruthy(c.Name, base)

	case *ast.Call:
		if c.Receiver != nil && c.Name == "nil?" && len(c.Args) == 0 {
			if id, ok := c.Receiver.(*ast.Identifier); ok {
				return narrowNilCheck(id.Name, base, true)
			}
		}
		if c.Receiver != nil && isA(c.Name) && len(c.Args) == 1 {
			if id, ok := c.Receiver.(*ast.Identifier); ok {
				if cls, ok := c.Args[0].(*ast.ConstPath); ok {
					return narrowClassTest(id.Name, cls.Name, base)
				}
			}
		}

	case *ast.BinaryOp:
		switch c.Op {
		case "==", "!=":
			if id, _, ok := identAndNilLiteral(c.Left, c.Right); ok {
				return narrowNilCheck(id, base, c.Op == "==")
			}
			if id, _, ok := identAndNilLiteral(c.Right, c.Left); ok {
				return narrowNilCheck(id, base, c.Op == "==")
			}
		case "&&":
			left := inf.narrowCondition(c.Left, base)
			rightBase := base
			if left.Then != nil {
				rightBase = left.Then
			}
			right := inf.narrowCondition(c.Right, rightBase)
			then := rightBase
			if right.Then != nil {
				then = right.Then
			}
			return narrowed{Then: then}
		}
	}
	return narrowed{}
}

func isA(method string) bool { return method == "is_a?" || method == "kind_of?" || method == "instance_of?" }

func identAndNilLiteral(a, b ast.Expr) (name string, nilLit bool, ok bool) {
	id, isID := a.(*ast.Identifier)
	lit, isLit := b.(*ast.Literal)
	if isID && isLit && lit.Kind == ast.LitNil {
		return id.Name, true, true
	}
	return "", false, false
}

func narrowIdentifierTruthy(name string, base *Env) narrowed {
	t, ok := base.Lookup(name)
	if !ok {
		return narrowed{}
	}
	nonNil := stripNil(t)
	thenEnv := base.Child()
	thenEnv.Bind(name, nonNil)
	return narrowed{Then: thenEnv}
}

// narrowNilCheck handles both `x == nil` (isEquality=true, narrows the
// else-branch to non-nil) and `x != nil` (narrows the then-branch to
// non-nil).
func narrowNilCheck(name string, base *Env, isEquality bool) narrowed {
	t, ok := base.Lookup(name)
	if !ok {
		return narrowed{}
	}
	nonNil := stripNil(t)
	thenEnv := base.Child()
	elseEnv := base.Child()
	if isEquality {
		thenEnv.Bind(name, types.NilTy)
		elseEnv.Bind(name, nonNil)
	} else {
		thenEnv.Bind(name, nonNil)
		elseEnv.Bind(name, types.NilTy)
	}
	return narrowed{Then: thenEnv, Else: elseEnv}
}

func narrowClassTest(name, className string, base *Env) narrowed {
	thenEnv := base.Child()
	thenEnv.Bind(name, &types.ClassInstance{Name: className})
	return narrowed{Then: thenEnv}
}

// stripNil removes the Nil member from a Union, returning the remaining
// member (or Union of members). Non-union, non-Nil types pass through
// unchanged.
func stripNil(t types.Type) types.Type {
	u, ok := t.(*types.Union)
	if !ok {
		if p, ok := t.(*types.Primitive); ok && p.Name == "Nil" {
			return types.BottomVal
		}
		return t
	}
	var kept []types.Type
	for _, m := range u.Members {
		if p, ok := m.(*types.Primitive); ok && p.Name == "Nil" {
			continue
		}
		kept = append(kept, m)
	}
	if len(kept) == 0 {
		return types.BottomVal
	}
	return types.NewUnion(kept...)
}
