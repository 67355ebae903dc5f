package types

// Hierarchy records the class/module graph needed for subtyping: each
// class's superclass (empty string for implicit Object) and the modules
// it mixes in. The Inferrer populates this once per compile from the
// consumed class declarations (§4.1 "class hierarchy + module mixin
// edges").
type Hierarchy struct {
	superclass map[string]string
	mixins     map[string][]string
}

// NewHierarchy creates an empty class hierarchy.
func NewHierarchy() *Hierarchy {
	return &Hierarchy{
		superclass: map[string]string{},
		mixins:     map[string][]string{},
	}
}

// Declare records a class's superclass and mixed-in modules.
func (h *Hierarchy) Declare(name, superclass string, mixins []string) {
	if superclass != "" {
		h.superclass[name] = superclass
	}
	h.mixins[name] = append([]string{}, mixins...)
}

// Ancestors returns name followed by every class and mixin reachable over
// superclass and mixin edges, breadth-first: self first, then its direct
// mixins and superclass, then theirs, with each class's mixins listed
// before its superclass. Each name appears once.
func (h *Hierarchy) Ancestors(name string) []string {
	seen := map[string]bool{name: true}
	var order []string
	queue := []string{name}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		next := append([]string{}, h.mixins[n]...)
		if sup, ok := h.superclass[n]; ok {
			next = append(next, sup)
		}
		for _, m := range next {
			if !seen[m] {
				seen[m] = true
				queue = append(queue, m)
			}
		}
	}
	return order
}

// IsDescendant reports whether sub's ancestor chain includes super.
func (h *Hierarchy) IsDescendant(sub, super string) bool {
	if sub == super {
		return true
	}
	for _, a := range h.Ancestors(sub) {
		if a == super {
			return true
		}
	}
	return false
}

// Subtype checks `sub <: super` under the rules of §4.1:
//   - reflexivity and transitivity,
//   - Untyped is a universal unifier (compatible both ways),
//   - Bottom <: T for all T,
//   - Nil <: T for all T (nullable-by-default),
//   - class hierarchy/mixin edges,
//   - Union(Ti) <: U iff every Ti <: U,
//   - Bool/TrueClass/FalseClass are mutually compatible.
func Subtype(h *Hierarchy, sub, super Type) bool {
	if sub == nil || super == nil {
		return false
	}
	if _, ok := super.(*Untyped); ok {
		return true
	}
	if _, ok := sub.(*Untyped); ok {
		return true
	}
	if _, ok := sub.(*Bottom); ok {
		return true
	}
	if p, ok := sub.(*Primitive); ok && p.Name == "Nil" {
		return true
	}
	if u, ok := sub.(*Union); ok {
		for _, m := range u.Members {
			if !Subtype(h, m, super) {
				return false
			}
		}
		return true
	}
	if isBoolLike(sub) && isBoolLike(super) {
		return true
	}
	if sub.String() == super.String() {
		return true
	}
	if sc, ok := sub.(*ClassInstance); ok {
		if pc, ok := super.(*ClassInstance); ok {
			return h.IsDescendant(sc.Name, pc.Name)
		}
	}
	if sc, ok := sub.(*ClassSingleton); ok {
		if pc, ok := super.(*ClassSingleton); ok {
			return h.IsDescendant(sc.Name, pc.Name)
		}
	}
	return false
}

// Lub computes the least upper bound of a and b under the hierarchy h
// (§4.1's lattice operations): identical types join to themselves, a
// ClassInstance pair joins along the ancestor chain exactly as unifyClass
// does, and anything else with no common ancestor joins to a Union of both
// (the type all unrelated types share in a nullable-by-default lattice).
func Lub(h *Hierarchy, a, b Type) Type {
	a, b = Prune(a), Prune(b)
	if a.String() == b.String() {
		return a
	}
	if isNilType(a) {
		return b
	}
	if isNilType(b) {
		return a
	}
	if Subtype(h, a, b) {
		return b
	}
	if Subtype(h, b, a) {
		return a
	}
	return NewUnion(a, b)
}

// FreeVars collects every unbound TypeVar reachable inside t. It walks the
// same type shapes occurs (in unification.go) checks one variable against,
// generalized to gather all of them — the operation §4.1's generalization
// property is phrased in terms of.
func FreeVars(t Type) []*TypeVar {
	seen := map[int]*TypeVar{}
	var walk func(Type)
	walk = func(t Type) {
		switch x := Prune(t).(type) {
		case *TypeVar:
			seen[x.ID] = x
		case *FunctionType:
			for _, p := range x.Params {
				walk(p)
			}
			if x.RestParam != nil {
				walk(x.RestParam)
			}
			walk(x.Return)
		case *ProcType:
			for _, p := range x.Params {
				walk(p)
			}
			walk(x.Return)
		case *Tuple:
			for _, e := range x.Elems {
				walk(e)
			}
		case *Union:
			for _, m := range x.Members {
				walk(m)
			}
		case *ClassInstance:
			for _, a := range x.Args {
				walk(a)
			}
		case *NativeArray:
			walk(x.Elem)
		case *StaticArray:
			walk(x.Elem)
		case *Slice:
			walk(x.Elem)
		case *NativeHash:
			walk(x.Key)
			walk(x.Value)
		}
	}
	walk(t)
	out := make([]*TypeVar, 0, len(seen))
	for _, v := range seen {
		out = append(out, v)
	}
	return out
}

func isBoolLike(t Type) bool {
	switch v := t.(type) {
	case *Primitive:
		return v.Name == "Bool"
	case *ClassInstance:
		return v.Name == "TrueClass" || v.Name == "FalseClass" || v.Name == "Bool"
	}
	return false
}

// Prune follows a TypeVar's Bound chain to its representative, applying
// path compression (every visited var is re-pointed directly at the
// representative) so repeated lookups are O(1) amortized. If the
// representative has a Resolved type, Prune returns that concrete type
// instead of the variable.
func Prune(t Type) Type {
	v, ok := t.(*TypeVar)
	if !ok {
		return t
	}
	chain := []*TypeVar{}
	cur := v
	for cur.Bound != nil {
		chain = append(chain, cur)
		cur = cur.Bound
	}
	for _, c := range chain {
		if c != cur {
			c.Bound = cur
		}
	}
	if cur.Resolved != nil {
		return Apply(cur.Resolved)
	}
	return cur
}

// Apply recursively prunes every TypeVar reachable inside t, returning an
// equivalent type with no more indirection than necessary. Apply is
// idempotent: Apply(Apply(t)) == Apply(t) (testable property "apply
// idempotence").
func Apply(t Type) Type {
	t = Prune(t)
	switch v := t.(type) {
	case *FunctionType:
		params := make([]Type, len(v.Params))
		for i, p := range v.Params {
			params[i] = Apply(p)
		}
		var rest Type
		if v.RestParam != nil {
			rest = Apply(v.RestParam)
		}
		return &FunctionType{Params: params, RestParam: rest, Return: Apply(v.Return)}
	case *ProcType:
		params := make([]Type, len(v.Params))
		for i, p := range v.Params {
			params[i] = Apply(p)
		}
		return &ProcType{Params: params, Return: Apply(v.Return)}
	case *Tuple:
		elems := make([]Type, len(v.Elems))
		for i, e := range v.Elems {
			elems[i] = Apply(e)
		}
		return &Tuple{Elems: elems}
	case *Union:
		members := make([]Type, len(v.Members))
		for i, m := range v.Members {
			members[i] = Apply(m)
		}
		return NewUnion(members...)
	case *ClassInstance:
		if len(v.Args) == 0 {
			return v
		}
		args := make([]Type, len(v.Args))
		for i, a := range v.Args {
			args[i] = Apply(a)
		}
		return &ClassInstance{Name: v.Name, Args: args}
	case *NativeArray:
		return &NativeArray{Elem: Apply(v.Elem)}
	case *StaticArray:
		return &StaticArray{Elem: Apply(v.Elem), Len: v.Len}
	case *Slice:
		return &Slice{Elem: Apply(v.Elem)}
	case *NativeHash:
		return &NativeHash{Key: Apply(v.Key), Value: Apply(v.Value)}
	default:
		return t
	}
}
