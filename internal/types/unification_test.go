package types

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func cmpType(t *testing.T, want, got Type) {
	t.Helper()
	if diff := cmp.Diff(want.String(), got.String()); diff != "" {
		t.Fatalf("type mismatch (-want +got):\n%s", diff)
	}
}

func TestUnify_UntypedIsUniversal(t *testing.T) {
	u := NewUnifier(nil)
	got, err := u.Unify(UntypedVal, Int)
	require.NoError(t, err)
	cmpType(t, Int, got)

	got, err = u.Unify(Str, UntypedVal)
	require.NoError(t, err)
	cmpType(t, Str, got)
}

func TestUnify_NumericWidening(t *testing.T) {
	u := NewUnifier(nil)
	got, err := u.Unify(Int, Float)
	require.NoError(t, err)
	cmpType(t, Float, got)

	// symmetric outcome even though the rule is phrased one-directionally
	got, err = u.Unify(Float, Int)
	require.NoError(t, err)
	cmpType(t, Float, got)
}

func TestUnify_TypeVarBinding(t *testing.T) {
	u := NewUnifier(nil)
	v := NewTypeVar("a")
	got, err := u.Unify(v, Int)
	require.NoError(t, err)
	cmpType(t, Int, got)
	cmpType(t, Int, Apply(v))
}

func TestUnify_OccursCheck(t *testing.T) {
	u := NewUnifier(nil)
	v := NewTypeVar("a")
	fn := &FunctionType{Params: []Type{v}, Return: Int}
	_, err := u.Unify(v, fn)
	require.Error(t, err)
	var inf *InfiniteTypeError
	require.ErrorAs(t, err, &inf)
}

func TestUnify_FunctionArityMismatchWithoutRest(t *testing.T) {
	u := NewUnifier(nil)
	f1 := &FunctionType{Params: []Type{Int}, Return: Int}
	f2 := &FunctionType{Params: []Type{Int, Int}, Return: Int}
	_, err := u.Unify(f1, f2)
	require.Error(t, err)
	var am *ArityMismatchError
	require.ErrorAs(t, err, &am)
}

func TestUnify_NilCompatibleWithAnything(t *testing.T) {
	u := NewUnifier(nil)
	got, err := u.Unify(NilTy, Int)
	require.NoError(t, err)
	_, isUnion := got.(*Union)
	require.False(t, isUnion, "Nil unifies to the other operand, got %s", got.String())
	require.Equal(t, Int, got)
}

func TestUnion_FlattensAndDedupes(t *testing.T) {
	inner := NewUnion(Int, Str)
	outer := NewUnion(inner, Str, Bool)
	u, ok := outer.(*Union)
	require.True(t, ok)
	require.Len(t, u.Members, 3)
	for _, m := range u.Members {
		if _, nested := m.(*Union); nested {
			t.Fatalf("union member is itself a union: %s", m.String())
		}
	}
}

func TestUnion_SingleMemberCollapses(t *testing.T) {
	got := NewUnion(Int, Int)
	cmpType(t, Int, got)
}

func TestApply_Idempotent(t *testing.T) {
	v := NewTypeVar("a")
	_, err := NewUnifier(nil).Unify(v, Int)
	require.NoError(t, err)
	fn := &FunctionType{Params: []Type{v}, Return: v}
	once := Apply(fn)
	twice := Apply(once)
	cmpType(t, once, twice)
}

func TestSubtype_ReflexiveAndTransitive(t *testing.T) {
	h := NewHierarchy()
	h.Declare("Dog", "Animal", nil)
	h.Declare("Animal", "Object", nil)

	dog := &ClassInstance{Name: "Dog"}
	animal := &ClassInstance{Name: "Animal"}
	object := &ClassInstance{Name: "Object"}

	require.True(t, Subtype(h, dog, dog), "reflexivity")
	require.True(t, Subtype(h, dog, animal))
	require.True(t, Subtype(h, animal, object))
	require.True(t, Subtype(h, dog, object), "transitivity")
}

func TestSubtype_BottomAndNilUniversal(t *testing.T) {
	h := NewHierarchy()
	require.True(t, Subtype(h, BottomVal, Int))
	require.True(t, Subtype(h, NilTy, Str))
}

func TestSubtype_UnionRequiresEveryMember(t *testing.T) {
	h := NewHierarchy()
	h.Declare("Dog", "Animal", nil)
	h.Declare("Cat", "Animal", nil)
	animal := &ClassInstance{Name: "Animal"}
	u := NewUnion(&ClassInstance{Name: "Dog"}, &ClassInstance{Name: "Cat"})
	require.True(t, Subtype(h, u, animal))

	u2 := NewUnion(&ClassInstance{Name: "Dog"}, Int)
	require.False(t, Subtype(h, u2, animal))
}

func TestSubtype_BoolFamilyMutual(t *testing.T) {
	h := NewHierarchy()
	trueClass := &ClassInstance{Name: "TrueClass"}
	require.True(t, Subtype(h, trueClass, Bool))
	require.True(t, Subtype(h, Bool, trueClass))
}
