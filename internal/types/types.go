// Package types implements the type lattice (§4.1) and unifier (§4.2) at
// the center of the compiler: every other phase either produces, consumes
// or rewrites values of the Type interface defined here.
package types

import (
	"fmt"
	"sort"
	"strings"
)

// Type is implemented by every member of the lattice. Types are immutable
// values except for *TypeVar, whose binding state is mutated in place by
// the unifier (grounded on the teacher's TVar union-find discipline in
// internal/types/unification.go).
type Type interface {
	String() string
	typ()
}

type typeBase struct{}

func (typeBase) typ() {}

// --- Primitive types -----------------------------------------------------

// Primitive is one of the built-in scalar kinds.
type Primitive struct {
	typeBase
	Name string // "Int", "Float", "String", "Symbol", "Bool", "Nil"
}

func (p *Primitive) String() string { return p.Name }

var (
	Int    = &Primitive{Name: "Int"}
	Float  = &Primitive{Name: "Float"}
	Str    = &Primitive{Name: "String"}
	Symbol = &Primitive{Name: "Symbol"}
	Bool   = &Primitive{Name: "Bool"}
	NilTy  = &Primitive{Name: "Nil"}
)

// Untyped is the universal unifier / top type: it stands for "no
// information yet" and unifies with anything without constraint.
type Untyped struct{ typeBase }

func (*Untyped) String() string { return "Untyped" }

// UntypedVal is the single shared Untyped instance.
var UntypedVal Type = &Untyped{}

// Bottom is the empty type; `Bottom <: T` for every T (e.g. the type of a
// `raise` expression, or of an unreachable branch).
type Bottom struct{ typeBase }

func (*Bottom) String() string { return "Bottom" }

// BottomVal is the single shared Bottom instance.
var BottomVal Type = &Bottom{}

// --- Class types -----------------------------------------------------------

// ClassInstance is the type of an instance of a user-defined (or built-in)
// class, e.g. the type of `Point.new`.
type ClassInstance struct {
	typeBase
	Name string
	Args []Type // generic type arguments, empty for non-generic classes
}

func (c *ClassInstance) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s[%s]", c.Name, strings.Join(parts, ", "))
}

// ClassSingleton is the type of the class object itself, e.g. the type of
// the bare expression `Point` (as opposed to `Point.new`).
type ClassSingleton struct {
	typeBase
	Name string
}

func (c *ClassSingleton) String() string { return "Class(" + c.Name + ")" }

// --- Compound types ---------------------------------------------------

// Tuple is a fixed-arity heterogeneous product.
type Tuple struct {
	typeBase
	Elems []Type
}

func (t *Tuple) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ProcType is the type of a block/proc/lambda value passed as data (as
// distinct from a named method's FunctionType).
type ProcType struct {
	typeBase
	Params []Type
	Return Type
}

func (p *ProcType) String() string {
	parts := make([]string, len(p.Params))
	for i, a := range p.Params {
		parts[i] = a.String()
	}
	return fmt.Sprintf("proc(%s) -> %s", strings.Join(parts, ", "), p.Return.String())
}

// FunctionType is the type of a named method or def.
type FunctionType struct {
	typeBase
	Params    []Type
	RestParam Type // nil if the method has no *splat parameter
	Return    Type
}

func (f *FunctionType) String() string {
	parts := make([]string, len(f.Params))
	for i, a := range f.Params {
		parts[i] = a.String()
	}
	if f.RestParam != nil {
		parts = append(parts, "*"+f.RestParam.String())
	}
	return fmt.Sprintf("(%s) -> %s", strings.Join(parts, ", "), f.Return.String())
}

// Union is a flattened, deduplicated sum of member types. Constructing one
// through NewUnion is the only supported way to build a Union — it
// guarantees the no-nested-unions and no-duplicate-members invariants
// (§4.1, testable property "union-flattening").
type Union struct {
	typeBase
	Members []Type
}

func (u *Union) String() string {
	parts := make([]string, len(u.Members))
	for i, m := range u.Members {
		parts[i] = m.String()
	}
	return strings.Join(parts, " | ")
}

// NewUnion builds a Union from members, flattening nested unions and
// removing duplicates (by String() identity, which is stable for every
// concrete Type in this lattice). A single remaining member collapses to
// that member directly rather than a one-element Union.
func NewUnion(members ...Type) Type {
	seen := map[string]Type{}
	order := []string{}
	var flatten func(Type)
	flatten = func(t Type) {
		if u, ok := t.(*Union); ok {
			for _, m := range u.Members {
				flatten(m)
			}
			return
		}
		key := t.String()
		if _, ok := seen[key]; !ok {
			seen[key] = t
			order = append(order, key)
		}
	}
	for _, m := range members {
		flatten(m)
	}
	if len(order) == 1 {
		return seen[order[0]]
	}
	sort.Strings(order)
	out := make([]Type, len(order))
	for i, k := range order {
		out[i] = seen[k]
	}
	return &Union{Members: out}
}

// --- Type variables ---------------------------------------------------

// TypeVar is a unification variable. It participates in a union-find
// structure: Bound points at another TypeVar to be chased, Resolved holds
// a concrete Type once fully determined. Prune (in lattice.go)
// performs path compression over chains of Bound vars.
type TypeVar struct {
	typeBase
	ID       int
	Name     string // human-readable hint, e.g. "α3"
	Bound    *TypeVar
	Resolved Type
}

func (v *TypeVar) String() string {
	if v.Name != "" {
		return v.Name
	}
	return fmt.Sprintf("t%d", v.ID)
}

var typeVarCounter int

// NewTypeVar allocates a fresh, unbound type variable.
func NewTypeVar(hint string) *TypeVar {
	typeVarCounter++
	return &TypeVar{ID: typeVarCounter, Name: hint}
}

// --- Native / specialized families --------------------------------------

// NativeArray is a dynamically-sized homogeneous array backed by a native
// runtime representation.
type NativeArray struct {
	typeBase
	Elem Type
}

func (n *NativeArray) String() string { return "NativeArray[" + n.Elem.String() + "]" }

// ArrayElem extracts the element type from an array-shaped type, whether it
// came from an array literal (ClassInstance("Array", [elem])) or a
// signature-annotated native array (NativeArray{Elem}). Consumers that need
// "the element type of whatever array this is" (for-loop binding,
// irbuild's native iteration lowering) go through this instead of matching
// one shape and silently missing the other.
func ArrayElem(t Type) (Type, bool) {
	switch v := t.(type) {
	case *ClassInstance:
		if v.Name == "Array" && len(v.Args) == 1 {
			return v.Args[0], true
		}
	case *NativeArray:
		return v.Elem, true
	}
	return nil, false
}

// StaticArray is a fixed-length homogeneous array known at compile time.
type StaticArray struct {
	typeBase
	Elem Type
	Len  int
}

func (s *StaticArray) String() string { return fmt.Sprintf("StaticArray[%s, %d]", s.Elem.String(), s.Len) }

// Slice is a view over a NativeArray or StaticArray.
type Slice struct {
	typeBase
	Elem Type
}

func (s *Slice) String() string { return "Slice[" + s.Elem.String() + "]" }

// NativeHash is a native key/value map.
type NativeHash struct {
	typeBase
	Key   Type
	Value Type
}

func (h *NativeHash) String() string {
	return fmt.Sprintf("NativeHash[%s, %s]", h.Key.String(), h.Value.String())
}

// NativeClass is a struct-shaped native type with named fields, used to
// describe classes whose layout is pinned by an external signature rather
// than inferred from Ruby source.
type NativeClass struct {
	typeBase
	Name   string
	Fields []NativeField
}

// NativeField is one field of a NativeClass.
type NativeField struct {
	Name string
	Type Type
}

func (n *NativeClass) String() string { return "NativeClass(" + n.Name + ")" }

// ByteBuffer, ByteSlice and StringBuffer are fixed native leaf types with
// no type parameters, used for low-level buffer-oriented stdlib surfaces.
type ByteBuffer struct{ typeBase }
type ByteSlice struct{ typeBase }
type StringBuffer struct{ typeBase }
type NativeString struct{ typeBase }

func (*ByteBuffer) String() string   { return "ByteBuffer" }
func (*ByteSlice) String() string    { return "ByteSlice" }
func (*StringBuffer) String() string { return "StringBuffer" }
func (*NativeString) String() string { return "NativeString" }
