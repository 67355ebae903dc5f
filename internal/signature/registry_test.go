package signature

import (
	"testing"

	"github.com/konpeito/konpeito/internal/types"
	"github.com/stretchr/testify/require"
)

func TestLookup_FollowsAncestorChainBeforeTopLevel(t *testing.T) {
	h := types.NewHierarchy()
	h.Declare("Dog", "Animal", []string{"Loud"})

	r := New(h)
	speakOnAnimal := &types.FunctionType{Return: types.Str}
	r.Define("Animal", "speak", speakOnAnimal)
	r.Define(TopLevel, "speak", &types.FunctionType{Return: types.Int})

	sig, ok := r.Lookup("Dog", "speak")
	require.True(t, ok)
	require.Same(t, speakOnAnimal, sig)
}

func TestLookup_FallsBackToTopLevel(t *testing.T) {
	r := New(types.NewHierarchy())
	topSig := &types.FunctionType{Return: types.Bool}
	r.Define(TopLevel, "helper", topSig)

	sig, ok := r.Lookup("Widget", "helper")
	require.True(t, ok)
	require.Same(t, topSig, sig)
}

func TestLookup_MissIsNotAnError(t *testing.T) {
	r := New(types.NewHierarchy())
	_, ok := r.Lookup("Nothing", "nope")
	require.False(t, ok)
}

func TestInstantiate_FreshensOnlyNamedParams(t *testing.T) {
	tv := types.NewTypeVar("T")
	sig := &types.FunctionType{Params: []types.Type{tv}, Return: tv}

	out := Instantiate(sig, []string{"T"})
	require.NotSame(t, tv, out.Params[0])
	require.Same(t, out.Params[0], out.Return, "both occurrences of T must substitute to the same fresh var")
}

func TestInstantiate_NoGenericParamsReturnsSameSig(t *testing.T) {
	sig := &types.FunctionType{Return: types.Int}
	out := Instantiate(sig, nil)
	require.Same(t, sig, out)
}
