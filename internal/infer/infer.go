package infer

import (
	"fmt"

	"github.com/konpeito/konpeito/internal/ast"
	"github.com/konpeito/konpeito/internal/diagnostics"
	"github.com/konpeito/konpeito/internal/signature"
	"github.com/konpeito/konpeito/internal/types"
)

// deferredCall records a call site whose signature could not be fully
// resolved on first pass (typically because the callee's own signature
// is still being inferred). §4.5: "deferred call-site constraints (fixed
// point loop capped at ~5 iterations)".
type deferredCall struct {
	call   *ast.Call
	owner  string
	result *types.TypeVar
}

// CallSite is one observed method call together with the concrete
// argument types Algorithm W resolved for it. The Monomorphizer (§4.8)
// needs exactly this: which concrete type tuples a (possibly generic)
// callee was actually invoked with. Node is the same *ast.Call the
// IRBuilder lowers, so the pipeline can correlate each entry here to the
// *ir.Call it produced.
type CallSite struct {
	Node     *ast.Call
	Owner    string
	Name     string
	ArgTypes []types.Type
}

const maxFixpointIterations = 5

// Inferrer runs whole-program Algorithm W with deferred call-site
// constraints and flow-sensitive narrowing (§4.5).
type Inferrer struct {
	Hierarchy *types.Hierarchy
	Unifier   *types.Unifier
	Registry  *signature.Registry
	Diags     *diagnostics.Collector

	types     map[ast.Node]types.Type
	deferred  []deferredCall
	inLoop    int
	callSites []CallSite
}

// CallSites returns every method call observed during Run, with the
// concrete argument types resolved for it — the ledger
// internal/pipeline hands to the Monomorphizer.
func (inf *Inferrer) CallSites() []CallSite { return inf.callSites }

// New creates an Inferrer sharing hierarchy/registry/diags with the rest
// of the pipeline.
func New(h *types.Hierarchy, reg *signature.Registry, diags *diagnostics.Collector) *Inferrer {
	return &Inferrer{
		Hierarchy: h,
		Unifier:   types.NewUnifier(h),
		Registry:  reg,
		Diags:     diags,
		types:     map[ast.Node]types.Type{},
	}
}

// TypeOf returns the type inferred (and finalized) for node, or untyped if
// the node was never visited.
func (inf *Inferrer) TypeOf(node ast.Node) types.Type {
	if t, ok := inf.types[node]; ok {
		return types.Apply(t)
	}
	return types.UntypedVal
}

func (inf *Inferrer) set(node ast.Node, t types.Type) types.Type {
	inf.types[node] = t
	return t
}

// Run performs whole-program inference over files: first it registers
// every class declaration into the hierarchy so method lookups can use a
// complete ancestor chain even for forward references, then it infers
// every file's top-level declarations, then it drains the deferred
// call-site queue to a fixed point (capped per §4.5), and finally it
// finalizes every remaining type variable, emitting UnresolvedType
// warnings rather than errors (§4.5, §7).
func (inf *Inferrer) Run(files []*ast.File) {
	for _, f := range files {
		inf.registerDecls(f.Decls)
	}
	env := NewEnv()
	for _, f := range files {
		for _, d := range f.Decls {
			inf.inferDecl(d, env)
		}
	}
	inf.drainDeferred()
	inf.finalize()
}

func (inf *Inferrer) registerDecls(decls []ast.Decl) {
	for _, d := range decls {
		if cd, ok := d.(*ast.ClassDecl); ok {
			inf.Hierarchy.Declare(cd.Name, cd.Superclass, cd.Mixins)
			inf.registerDecls(cd.Body)
		}
	}
}

func (inf *Inferrer) inferDecl(d ast.Decl, env *Env) {
	switch decl := d.(type) {
	case *ast.ClassDecl:
		classEnv := env.Child()
		for _, member := range decl.Body {
			if md, ok := member.(*ast.MethodDecl); ok {
				inf.inferMethod(md, decl.Name, classEnv)
			} else {
				inf.inferDecl(member, classEnv)
			}
		}
	case *ast.MethodDecl:
		inf.inferMethod(decl, "", env)
	case *ast.ConstDecl:
		t := inf.inferExpr(decl.Value, env)
		inf.set(decl, t)
	default:
		inf.Diags.Report(diagnostics.New(diagnostics.UnsupportedConstruct,
			fmt.Sprintf("unrecognized top-level declaration %T", d)))
	}
}

func (inf *Inferrer) inferMethod(md *ast.MethodDecl, owner string, outer *Env) {
	menv := outer.Child()
	params := make([]types.Type, 0, len(md.Params))
	var rest types.Type
	for _, p := range md.Params {
		pt := inf.typeExprOrFresh(p.TypeAnn, p.Name)
		menv.Bind(p.Name, pt)
		switch p.Kind {
		case ast.ParamSplat:
			rest = pt
		default:
			params = append(params, pt)
		}
	}
	retAnn := inf.typeExprOrFresh(md.ReturnType, md.Name+".return")
	bodyType := inf.inferStmts(md.Body, menv)
	if md.ReturnType != nil {
		if _, err := inf.Unifier.Unify(retAnn, bodyType); err != nil {
			inf.reportMismatch(md, err)
		}
	} else {
		retAnn = bodyType
	}
	sig := &types.FunctionType{Params: params, RestParam: rest, Return: retAnn}
	owner2 := owner
	if owner2 == "" {
		owner2 = signature.TopLevel
	}
	inf.Registry.Define(owner2, md.Name, sig)
	inf.set(md, sig)
}

func (inf *Inferrer) typeExprOrFresh(te ast.TypeExpr, hint string) types.Type {
	if te == nil {
		return types.NewTypeVar(hint)
	}
	return inf.resolveTypeExpr(te)
}

func (inf *Inferrer) resolveTypeExpr(te ast.TypeExpr) types.Type {
	switch t := te.(type) {
	case *ast.NamedTypeExpr:
		return inf.namedType(t.Name)
	case *ast.NilableTypeExpr:
		return types.NewUnion(inf.resolveTypeExpr(t.Inner), types.NilTy)
	case *ast.UnionTypeExpr:
		members := make([]types.Type, len(t.Members))
		for i, m := range t.Members {
			members[i] = inf.resolveTypeExpr(m)
		}
		return types.NewUnion(members...)
	case *ast.GenericTypeExpr:
		args := make([]types.Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = inf.resolveTypeExpr(a)
		}
		if t.Name == "Array" && len(args) == 1 {
			return &types.NativeArray{Elem: args[0]}
		}
		return &types.ClassInstance{Name: t.Name, Args: args}
	default:
		return types.UntypedVal
	}
}

func (inf *Inferrer) namedType(name string) types.Type {
	switch name {
	case "Int", "Integer":
		return types.Int
	case "Float":
		return types.Float
	case "String":
		return types.Str
	case "Symbol":
		return types.Symbol
	case "Bool", "Boolean":
		return types.Bool
	case "Nil", "NilClass":
		return types.NilTy
	default:
		return &types.ClassInstance{Name: name}
	}
}

func (inf *Inferrer) reportMismatch(node ast.Node, err error) {
	span := node.Pos()
	inf.Diags.Report(diagnostics.New(diagnostics.TypeMismatch, err.Error()).WithSpan(span))
}

func (inf *Inferrer) drainDeferred() {
	for i := 0; i < maxFixpointIterations && len(inf.deferred) > 0; i++ {
		remaining := inf.deferred[:0]
		progressed := false
		for _, dc := range inf.deferred {
			sig, ok := inf.Registry.Lookup(dc.owner, dc.call.Name)
			if !ok {
				remaining = append(remaining, dc)
				continue
			}
			if _, err := inf.Unifier.Unify(dc.result, sig.Return); err != nil {
				inf.reportMismatch(dc.call, err)
			}
			progressed = true
		}
		inf.deferred = remaining
		if !progressed {
			break
		}
	}
	for _, dc := range inf.deferred {
		inf.Diags.Report(diagnostics.New(diagnostics.MethodNotFound,
			fmt.Sprintf("no signature found for %s#%s after fixpoint", dc.owner, dc.call.Name)).
			WithSpan(dc.call.Pos()))
	}
}

// finalize walks every decorated node; any type still containing an
// unbound TypeVar after Apply becomes an UnresolvedType warning, never an
// error (§4.5 finalization, §7 severity table).
func (inf *Inferrer) finalize() {
	for node, t := range inf.types {
		applied := types.Apply(t)
		inf.types[node] = applied
		if containsUnboundVar(applied) {
			inf.Diags.Report(diagnostics.New(diagnostics.UnresolvedType,
				fmt.Sprintf("type left unresolved: %s", applied.String())).WithSpan(node.Pos()))
		}
	}
}

func containsUnboundVar(t types.Type) bool {
	switch v := t.(type) {
	case *types.TypeVar:
		return true
	case *types.FunctionType:
		for _, p := range v.Params {
			if containsUnboundVar(p) {
				return true
			}
		}
		return containsUnboundVar(v.Return)
	case *types.Tuple:
		for _, e := range v.Elems {
			if containsUnboundVar(e) {
				return true
			}
		}
	case *types.Union:
		for _, m := range v.Members {
			if containsUnboundVar(m) {
				return true
			}
		}
	}
	return false
}
