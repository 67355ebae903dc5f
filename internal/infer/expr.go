package infer

import (
	"fmt"

	"github.com/konpeito/konpeito/internal/ast"
	"github.com/konpeito/konpeito/internal/diagnostics"
	"github.com/konpeito/konpeito/internal/types"
)

func (inf *Inferrer) inferExpr(e ast.Expr, env *Env) types.Type {
	switch x := e.(type) {
	case *ast.Literal:
		return inf.set(x, inf.inferLiteral(x, env))
	case *ast.Identifier:
		return inf.set(x, inf.inferIdentifier(x, env))
	case *ast.Self:
		return inf.set(x, types.UntypedVal)
	case *ast.InstanceVar, *ast.ClassVar, *ast.GlobalVar:
		return inf.set(e, types.UntypedVal)
	case *ast.ConstPath:
		return inf.set(x, inf.inferConstPath(x, env))
	case *ast.BinaryOp:
		return inf.set(x, inf.inferBinaryOp(x, env))
	case *ast.UnaryOp:
		return inf.set(x, inf.inferUnaryOp(x, env))
	case *ast.Assign:
		return inf.set(x, inf.inferAssign(x, env))
	case *ast.Call:
		return inf.set(x, inf.inferCall(x, env))
	case *ast.Yield:
		for _, a := range x.Args {
			inf.inferExpr(a, env)
		}
		return inf.set(x, types.UntypedVal)
	case *ast.Super:
		for _, a := range x.Args {
			inf.inferExpr(a, env)
		}
		return inf.set(x, types.UntypedVal)
	case *ast.Splat:
		return inf.set(x, inf.inferExpr(x.Value, env))
	case *ast.DoubleSplat:
		return inf.set(x, inf.inferExpr(x.Value, env))
	case *ast.If:
		return inf.set(x, inf.inferIf(x, env))
	case *ast.Ternary:
		return inf.set(x, inf.inferTernary(x, env))
	case *ast.While:
		return inf.set(x, inf.inferWhile(x, env))
	case *ast.CFor:
		return inf.set(x, inf.inferFor(x, env))
	case *ast.Break:
		if x.Value != nil {
			inf.inferExpr(x.Value, env)
		}
		return inf.set(x, types.BottomVal)
	case *ast.Next:
		if x.Value != nil {
			inf.inferExpr(x.Value, env)
		}
		return inf.set(x, types.BottomVal)
	case *ast.Case:
		return inf.set(x, inf.inferCase(x, env))
	case *ast.BeginRescue:
		return inf.set(x, inf.inferBeginRescue(x, env))
	case *ast.Raise:
		if x.Class != nil {
			inf.inferExpr(x.Class, env)
		}
		for _, a := range x.Args {
			inf.inferExpr(a, env)
		}
		return inf.set(x, types.BottomVal)
	case *ast.Lambda:
		return inf.set(x, inf.inferLambda(x, env))
	default:
		inf.Diags.Report(diagnostics.New(diagnostics.UnsupportedConstruct,
			fmt.Sprintf("no typed lowering for %T; falling back to dynamic dispatch", e)).WithSpan(e.Pos()))
		return types.UntypedVal
	}
}

func (inf *Inferrer) inferLiteral(lit *ast.Literal, env *Env) types.Type {
	switch lit.Kind {
	case ast.LitInt:
		return types.Int
	case ast.LitFloat:
		return types.Float
	case ast.LitString:
		return types.Str
	case ast.LitSymbol:
		return types.Symbol
	case ast.LitBool:
		return types.Bool
	case ast.LitNil:
		return types.NilTy
	case ast.LitArray:
		return inf.inferArrayLiteral(lit, env)
	case ast.LitHash:
		return inf.inferHashLiteral(lit, env)
	default:
		return types.UntypedVal
	}
}

// inferArrayLiteral implements §4.5's "array-literal LUB/Untyped-fallback
// rule": unify every element's type pairwise; if any pair fails to unify,
// the element type falls back to Untyped rather than failing the whole
// literal.
func (inf *Inferrer) inferArrayLiteral(lit *ast.Literal, env *Env) types.Type {
	if len(lit.Elements) == 0 {
		return &types.ClassInstance{Name: "Array", Args: []types.Type{types.NewTypeVar("elem")}}
	}
	elem := inf.inferExpr(lit.Elements[0], env)
	mixed := false
	for _, e := range lit.Elements[1:] {
		t := inf.inferExpr(e, env)
		if mixed {
			continue
		}
		unified, err := inf.Unifier.Unify(elem, t)
		if err != nil {
			elem = types.UntypedVal
			mixed = true
			continue
		}
		elem = unified
	}
	return &types.ClassInstance{Name: "Array", Args: []types.Type{elem}}
}

func (inf *Inferrer) inferHashLiteral(lit *ast.Literal, env *Env) types.Type {
	if len(lit.Pairs) == 0 {
		return &types.NativeHash{Key: types.NewTypeVar("k"), Value: types.NewTypeVar("v")}
	}
	key := inf.inferExpr(lit.Pairs[0].Key, env)
	val := inf.inferExpr(lit.Pairs[0].Value, env)
	for _, pr := range lit.Pairs[1:] {
		kt := inf.inferExpr(pr.Key, env)
		vt := inf.inferExpr(pr.Value, env)
		if u, err := inf.Unifier.Unify(key, kt); err == nil {
			key = u
		} else {
			key = types.UntypedVal
		}
		if u, err := inf.Unifier.Unify(val, vt); err == nil {
			val = u
		} else {
			val = types.UntypedVal
		}
	}
	return &types.NativeHash{Key: key, Value: val}
}

func (inf *Inferrer) inferIdentifier(id *ast.Identifier, env *Env) types.Type {
	if t, ok := env.Lookup(id.Name); ok {
		return t
	}
	// Bare identifier with no local binding: an implicit-self call with
	// no arguments.
	return inf.lookupMethod("", id.Name, nil, id)
}

func (inf *Inferrer) inferConstPath(cp *ast.ConstPath, env *Env) types.Type {
	if cp.Qualifier != nil {
		inf.inferExpr(cp.Qualifier, env)
	}
	return &types.ClassSingleton{Name: cp.Name}
}

func (inf *Inferrer) inferBinaryOp(b *ast.BinaryOp, env *Env) types.Type {
	lt := inf.inferExpr(b.Left, env)
	rt := inf.inferExpr(b.Right, env)
	switch b.Op {
	case "==", "!=", "<", "<=", ">", ">=":
		if _, err := inf.Unifier.Unify(lt, rt); err != nil {
			inf.reportMismatch(b, err)
		}
		return types.Bool
	case "&&", "||":
		return types.NewUnion(lt, rt)
	default:
		unified, err := inf.Unifier.Unify(lt, rt)
		if err != nil {
			inf.reportMismatch(b, err)
			return types.UntypedVal
		}
		return unified
	}
}

func (inf *Inferrer) inferUnaryOp(u *ast.UnaryOp, env *Env) types.Type {
	t := inf.inferExpr(u.Operand, env)
	if u.Op == "!" || u.Op == "not" {
		return types.Bool
	}
	return t
}

func (inf *Inferrer) inferAssign(a *ast.Assign, env *Env) types.Type {
	vt := inf.inferExpr(a.Value, env)
	if id, ok := a.Target.(*ast.Identifier); ok {
		if existing, ok := env.Lookup(id.Name); ok && a.CompoundOp != "" {
			unified, err := inf.Unifier.Unify(existing, vt)
			if err != nil {
				inf.reportMismatch(a, err)
			} else {
				vt = unified
			}
		}
		env.Bind(id.Name, vt)
	} else {
		inf.inferExpr(a.Target, env)
	}
	return vt
}

func (inf *Inferrer) inferCall(c *ast.Call, env *Env) types.Type {
	var recvType types.Type
	owner := ""
	if c.Receiver != nil {
		recvType = inf.inferExpr(c.Receiver, env)
		if ci, ok := types.Apply(recvType).(*types.ClassInstance); ok {
			owner = ci.Name
		}
		if cs, ok := types.Apply(recvType).(*types.ClassSingleton); ok {
			owner = cs.Name
		}
	}
	argTypes := make([]types.Type, len(c.Args))
	for i, a := range c.Args {
		argTypes[i] = inf.inferExpr(a, env)
	}
	if c.Block != nil {
		inf.inferBlock(c.Block, env)
	}

	inf.callSites = append(inf.callSites, CallSite{Node: c, Owner: owner, Name: c.Name, ArgTypes: argTypes})

	result := inf.lookupMethod(owner, c.Name, argTypes, c)
	if c.SafeNav {
		return types.NewUnion(result, types.NilTy)
	}
	return result
}

func (inf *Inferrer) lookupMethod(owner, name string, argTypes []types.Type, node ast.Node) types.Type {
	sig, ok := inf.Registry.Lookup(owner, name)
	if !ok {
		v := types.NewTypeVar(name + ".result")
		if call, isCall := node.(*ast.Call); isCall {
			inf.deferred = append(inf.deferred, deferredCall{call: call, owner: owner, result: v})
		} else {
			inf.Diags.Report(diagnostics.New(diagnostics.MethodNotFound,
				fmt.Sprintf("no signature for %s", name)).WithSpan(node.Pos()))
		}
		return v
	}
	for i, at := range argTypes {
		if i >= len(sig.Params) {
			if sig.RestParam == nil {
				break
			}
			if _, err := inf.Unifier.Unify(sig.RestParam, at); err != nil {
				inf.reportMismatch(node, err)
			}
			continue
		}
		if _, err := inf.Unifier.Unify(sig.Params[i], at); err != nil {
			inf.reportMismatch(node, err)
		}
	}
	return sig.Return
}

func (inf *Inferrer) inferBlock(blk *ast.Block, env *Env) {
	benv := env.Child()
	for _, p := range blk.Params {
		benv.Bind(p.Name, types.NewTypeVar(p.Name))
	}
	inf.inferStmts(blk.Body, benv)
}

func (inf *Inferrer) inferLambda(l *ast.Lambda, env *Env) types.Type {
	lenv := env.Child()
	params := make([]types.Type, len(l.Params))
	for i, p := range l.Params {
		pt := types.NewTypeVar(p.Name)
		lenv.Bind(p.Name, pt)
		params[i] = pt
	}
	ret := inf.inferStmts(l.Body, lenv)
	return &types.ProcType{Params: params, Return: ret}
}

// inferIf types a conditional as the join of its branches: each elif and
// else result is unified with the running result (forming a Union where
// unification fails), and a missing else adds Nil. The If gets this type
// whether its value is used or discarded; there is no separate
// statement-position typing.
func (inf *Inferrer) inferIf(n *ast.If, env *Env) types.Type {
	inf.inferExpr(n.Cond, env)
	nr := inf.narrowCondition(n.Cond, env)
	thenEnv := env
	if nr.Then != nil {
		thenEnv = nr.Then
	}
	thenType := inf.inferStmts(n.Then, thenEnv)

	elifEnv := env
	if nr.Else != nil {
		elifEnv = nr.Else
	}
	result := thenType
	for _, ei := range n.Elifs {
		inf.inferExpr(ei.Cond, elifEnv)
		et := inf.inferStmts(ei.Body, elifEnv.Child())
		if u, err := inf.Unifier.Unify(result, et); err == nil {
			result = u
		} else {
			result = types.NewUnion(result, et)
		}
	}
	if n.Else != nil {
		elseType := inf.inferStmts(n.Else, elifEnv.Child())
		if u, err := inf.Unifier.Unify(result, elseType); err == nil {
			result = u
		} else {
			result = types.NewUnion(result, elseType)
		}
	} else {
		result = types.NewUnion(result, types.NilTy)
	}
	return result
}

func (inf *Inferrer) inferTernary(t *ast.Ternary, env *Env) types.Type {
	inf.inferExpr(t.Cond, env)
	nr := inf.narrowCondition(t.Cond, env)
	thenEnv, elseEnv := env, env
	if nr.Then != nil {
		thenEnv = nr.Then
	}
	if nr.Else != nil {
		elseEnv = nr.Else
	}
	tt := inf.inferExpr(t.Then, thenEnv)
	et := inf.inferExpr(t.Else, elseEnv)
	if u, err := inf.Unifier.Unify(tt, et); err == nil {
		return u
	}
	return types.NewUnion(tt, et)
}

func (inf *Inferrer) inferWhile(w *ast.While, env *Env) types.Type {
	inf.inferExpr(w.Cond, env)
	inf.inLoop++
	inf.inferStmts(w.Body, env.Child())
	inf.inLoop--
	return types.NilTy
}

func (inf *Inferrer) inferFor(f *ast.CFor, env *Env) types.Type {
	iterType := inf.inferExpr(f.Iter, env)
	benv := env.Child()
	elem := types.Type(types.NewTypeVar(f.Var))
	if e, ok := types.ArrayElem(types.Apply(iterType)); ok {
		elem = e
	}
	benv.Bind(f.Var, elem)
	inf.inLoop++
	inf.inferStmts(f.Body, benv)
	inf.inLoop--
	return types.NilTy
}

func (inf *Inferrer) inferCase(c *ast.Case, env *Env) types.Type {
	var subjectType types.Type
	if c.Subject != nil {
		subjectType = inf.inferExpr(c.Subject, env)
	}
	var result types.Type
	exhaustive := c.Else != nil
	for _, w := range c.Whens {
		wenv := env.Child()
		for _, pat := range w.Patterns {
			inf.bindPattern(pat, subjectType, wenv)
			if _, ok := pat.(*ast.WildcardPattern); ok {
				exhaustive = true
			}
		}
		bt := inf.inferStmts(w.Body, wenv)
		if result == nil {
			result = bt
		} else if u, err := inf.Unifier.Unify(result, bt); err == nil {
			result = u
		} else {
			result = types.NewUnion(result, bt)
		}
	}
	if c.Else != nil {
		bt := inf.inferStmts(c.Else, env.Child())
		if result == nil {
			result = bt
		} else if u, err := inf.Unifier.Unify(result, bt); err == nil {
			result = u
		} else {
			result = types.NewUnion(result, bt)
		}
	}
	if !exhaustive {
		inf.Diags.Report(diagnostics.New(diagnostics.NonExhaustiveMatch,
			"case/when does not cover every case; a fall-through raise is synthesized").WithSpan(c.Pos()))
	}
	if result == nil {
		result = types.NilTy
	}
	return result
}

func (inf *Inferrer) bindPattern(p ast.Pattern, subject types.Type, env *Env) {
	switch pat := p.(type) {
	case *ast.VarPattern:
		env.Bind(pat.Name, subject)
	case *ast.ClassPattern:
		for _, b := range pat.Binds {
			env.Bind(b, types.UntypedVal)
		}
	case *ast.ArrayPattern:
		for _, el := range pat.Elements {
			inf.bindPattern(el, types.UntypedVal, env)
		}
	case *ast.SplatPattern:
		if pat.Name != "" {
			env.Bind(pat.Name, &types.ClassInstance{Name: "Array", Args: []types.Type{types.UntypedVal}})
		}
	}
}

func (inf *Inferrer) inferBeginRescue(b *ast.BeginRescue, env *Env) types.Type {
	bodyType := inf.inferStmts(b.Body, env.Child())
	result := bodyType
	for _, r := range b.Rescues {
		renv := env.Child()
		if r.VarName != "" {
			renv.Bind(r.VarName, &types.ClassInstance{Name: "StandardError"})
		}
		rt := inf.inferStmts(r.Body, renv)
		result = types.NewUnion(result, rt)
	}
	if b.Else != nil {
		inf.inferStmts(b.Else, env.Child())
	}
	if b.Ensure != nil {
		inf.inferStmts(b.Ensure, env.Child())
	}
	return result
}
