package types

import "fmt"

// TypeMismatchError reports two types that could not be unified.
type TypeMismatchError struct {
	Left, Right Type
	Context     string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: %s vs %s (%s)", e.Left.String(), e.Right.String(), e.Context)
}

// InfiniteTypeError reports an occurs-check failure.
type InfiniteTypeError struct {
	Var *TypeVar
	In  Type
}

func (e *InfiniteTypeError) Error() string {
	return fmt.Sprintf("infinite type: %s occurs in %s", e.Var.String(), e.In.String())
}

// ArityMismatchError reports two function types that disagree on
// parameter count (with no rest-param on either side to absorb the
// difference).
type ArityMismatchError struct {
	Left, Right *FunctionType
}

func (e *ArityMismatchError) Error() string {
	return fmt.Sprintf("arity mismatch: %s vs %s", e.Left.String(), e.Right.String())
}

// Unifier performs structural unification over the type lattice, grounded
// on the teacher's Unifier/Substitution design (internal/types/unification.go)
// but operating on TypeVar binding in place rather than a substitution map,
// since this lattice's TypeVar already carries its own union-find slot.
type Unifier struct {
	Hierarchy *Hierarchy
}

// NewUnifier creates a Unifier against a (possibly empty) class hierarchy.
func NewUnifier(h *Hierarchy) *Unifier {
	if h == nil {
		h = NewHierarchy()
	}
	return &Unifier{Hierarchy: h}
}

// Unify attempts to make t1 and t2 equal, binding type variables as a
// side effect, and returns the unified type on success. It follows §4.2
// in order: prune both sides; Untyped unifies with anything; bind
// unbound TypeVars (after an occurs check); unify FunctionTypes
// pointwise honoring rest params; unify ClassInstance by name match, else
// to the supertype when one is a subtype of the other, else to their
// Union; Nil is compatible
// with anything (nullable-by-default); Bool-family types are mutually
// compatible; numeric widening allows Int64-with-Float64 to unify to
// Float64 (one-directional: Float64-with-Int64 also widens to Float64,
// the direction is symmetric in outcome even though the rule is phrased
// asymmetrically in the spec); otherwise fall back to structural
// equality, else TypeMismatch.
func (u *Unifier) Unify(t1, t2 Type) (Type, error) {
	t1 = Prune(t1)
	t2 = Prune(t2)

	if _, ok := t1.(*Untyped); ok {
		return t2, nil
	}
	if _, ok := t2.(*Untyped); ok {
		return t1, nil
	}

	if v1, ok := t1.(*TypeVar); ok {
		return u.bind(v1, t2)
	}
	if v2, ok := t2.(*TypeVar); ok {
		return u.bind(v2, t1)
	}

	if _, ok := t1.(*Bottom); ok {
		return t2, nil
	}
	if _, ok := t2.(*Bottom); ok {
		return t1, nil
	}

	if f1, ok := t1.(*FunctionType); ok {
		if f2, ok := t2.(*FunctionType); ok {
			return u.unifyFunc(f1, f2)
		}
	}

	if c1, ok := t1.(*ClassInstance); ok {
		if c2, ok := t2.(*ClassInstance); ok {
			return u.unifyClass(c1, c2)
		}
	}

	// §4.2 step 7 / §3.1: Nil unifies with anything, and the result is the
	// other operand, not a nullable union — the union only shows up where
	// the source actually writes a nilable annotation (NilableTypeExpr).
	if isNilType(t1) || isNilType(t2) {
		if isNilType(t1) && isNilType(t2) {
			return t1, nil
		}
		if isNilType(t1) {
			return t2, nil
		}
		return t1, nil
	}

	if isBoolLike(t1) && isBoolLike(t2) {
		return Bool, nil
	}

	if wide, ok := unifyNumeric(t1, t2); ok {
		return wide, nil
	}

	if p1, ok := t1.(*ProcType); ok {
		if p2, ok := t2.(*ProcType); ok {
			return u.unifyProc(p1, p2)
		}
	}

	if tu1, ok := t1.(*Tuple); ok {
		if tu2, ok := t2.(*Tuple); ok {
			return u.unifyTuple(tu1, tu2)
		}
	}

	if t1.String() == t2.String() {
		return t1, nil
	}

	return nil, &TypeMismatchError{Left: t1, Right: t2, Context: "unify"}
}

func isNilType(t Type) bool {
	p, ok := t.(*Primitive)
	return ok && p.Name == "Nil"
}

// unifyNumeric implements the one-directional numeric-widening rule:
// Int <-> Float widens to Float. No other primitive pair widens.
func unifyNumeric(t1, t2 Type) (Type, bool) {
	p1, ok1 := t1.(*Primitive)
	p2, ok2 := t2.(*Primitive)
	if !ok1 || !ok2 {
		return nil, false
	}
	names := map[string]bool{p1.Name: true, p2.Name: true}
	if names["Int"] && names["Float"] {
		return Float, true
	}
	return nil, false
}

func (u *Unifier) bind(v *TypeVar, t Type) (Type, error) {
	if other, ok := t.(*TypeVar); ok && other.ID == v.ID {
		return v, nil
	}
	if occurs(v, t) {
		return nil, &InfiniteTypeError{Var: v, In: t}
	}
	if tv, ok := t.(*TypeVar); ok {
		v.Bound = tv
		return tv, nil
	}
	v.Resolved = t
	return t, nil
}

func occurs(v *TypeVar, t Type) bool {
	t = Prune(t)
	switch x := t.(type) {
	case *TypeVar:
		return x.ID == v.ID
	case *FunctionType:
		for _, p := range x.Params {
			if occurs(v, p) {
				return true
			}
		}
		if x.RestParam != nil && occurs(v, x.RestParam) {
			return true
		}
		return occurs(v, x.Return)
	case *ProcType:
		for _, p := range x.Params {
			if occurs(v, p) {
				return true
			}
		}
		return occurs(v, x.Return)
	case *Tuple:
		for _, e := range x.Elems {
			if occurs(v, e) {
				return true
			}
		}
	case *Union:
		for _, m := range x.Members {
			if occurs(v, m) {
				return true
			}
		}
	case *ClassInstance:
		for _, a := range x.Args {
			if occurs(v, a) {
				return true
			}
		}
	case *NativeArray:
		return occurs(v, x.Elem)
	case *StaticArray:
		return occurs(v, x.Elem)
	case *Slice:
		return occurs(v, x.Elem)
	case *NativeHash:
		return occurs(v, x.Key) || occurs(v, x.Value)
	}
	return false
}

func (u *Unifier) unifyFunc(f1, f2 *FunctionType) (Type, error) {
	n1, n2 := len(f1.Params), len(f2.Params)
	if n1 != n2 && f1.RestParam == nil && f2.RestParam == nil {
		return nil, &ArityMismatchError{Left: f1, Right: f2}
	}
	n := n1
	if n2 < n {
		n = n2
	}
	params := make([]Type, 0, n)
	for i := 0; i < n; i++ {
		pt, err := u.Unify(f1.Params[i], f2.Params[i])
		if err != nil {
			return nil, err
		}
		params = append(params, pt)
	}
	var rest Type
	switch {
	case f1.RestParam != nil && f2.RestParam != nil:
		r, err := u.Unify(f1.RestParam, f2.RestParam)
		if err != nil {
			return nil, err
		}
		rest = r
	case n1 > n:
		for _, p := range f1.Params[n:] {
			params = append(params, p)
		}
		rest = f1.RestParam
	case n2 > n:
		for _, p := range f2.Params[n:] {
			params = append(params, p)
		}
		rest = f2.RestParam
	}
	ret, err := u.Unify(f1.Return, f2.Return)
	if err != nil {
		return nil, err
	}
	return &FunctionType{Params: params, RestParam: rest, Return: ret}, nil
}

func (u *Unifier) unifyProc(p1, p2 *ProcType) (Type, error) {
	if len(p1.Params) != len(p2.Params) {
		return nil, &TypeMismatchError{Left: p1, Right: p2, Context: "proc arity"}
	}
	params := make([]Type, len(p1.Params))
	for i := range p1.Params {
		pt, err := u.Unify(p1.Params[i], p2.Params[i])
		if err != nil {
			return nil, err
		}
		params[i] = pt
	}
	ret, err := u.Unify(p1.Return, p2.Return)
	if err != nil {
		return nil, err
	}
	return &ProcType{Params: params, Return: ret}, nil
}

func (u *Unifier) unifyTuple(t1, t2 *Tuple) (Type, error) {
	if len(t1.Elems) != len(t2.Elems) {
		return nil, &TypeMismatchError{Left: t1, Right: t2, Context: "tuple arity"}
	}
	elems := make([]Type, len(t1.Elems))
	for i := range t1.Elems {
		e, err := u.Unify(t1.Elems[i], t2.Elems[i])
		if err != nil {
			return nil, err
		}
		elems[i] = e
	}
	return &Tuple{Elems: elems}, nil
}

// unifyClass unifies two ClassInstance types: exact name match unifies
// generic arguments pointwise; otherwise, if one is a subtype of the
// other per the class hierarchy, the result is the supertype, and two
// unrelated classes unify to their Union (§4.2: "name match or
// subtype-with-Union-formation").
func (u *Unifier) unifyClass(c1, c2 *ClassInstance) (Type, error) {
	if c1.Name == c2.Name {
		if len(c1.Args) != len(c2.Args) {
			return nil, &TypeMismatchError{Left: c1, Right: c2, Context: "generic arity"}
		}
		args := make([]Type, len(c1.Args))
		for i := range c1.Args {
			a, err := u.Unify(c1.Args[i], c2.Args[i])
			if err != nil {
				return nil, err
			}
			args[i] = a
		}
		return &ClassInstance{Name: c1.Name, Args: args}, nil
	}
	if Subtype(u.Hierarchy, c1, c2) {
		return c2, nil
	}
	if Subtype(u.Hierarchy, c2, c1) {
		return c1, nil
	}
	return NewUnion(c1, c2), nil
}
