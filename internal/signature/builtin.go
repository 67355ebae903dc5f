package signature

import "github.com/konpeito/konpeito/internal/types"

// builtinRule answers the first step of §4.3's lookup order: a small,
// fixed table of core-library methods whose signature is known
// unconditionally, without any signature file. Grounded on the teacher's
// builtinInstances() table (internal/types/instances.go), generalized
// from type-class dictionaries to plain method signatures.
func builtinRule(owner, method string) (*types.FunctionType, bool) {
	if sig, ok := arrayRules[ruleKey{owner, method}]; ok {
		return sig, true
	}
	if sig, ok := commonRules[ruleKey{owner, method}]; ok {
		return sig, true
	}
	return nil, false
}

type ruleKey struct{ owner, method string }

var arrayRules = map[ruleKey]*types.FunctionType{
	{"Array", "length"}: {Return: types.Int},
	{"Array", "size"}:   {Return: types.Int},
	{"Array", "empty?"}: {Return: types.Bool},
	{"Array", "first"}:  {Return: types.NilTy},
	{"Array", "last"}:   {Return: types.NilTy},
	{"Array", "push"}: {
		Params: []types.Type{types.UntypedVal},
		Return: types.UntypedVal,
	},
}

var commonRules = map[ruleKey]*types.FunctionType{
	{"String", "length"}: {Return: types.Int},
	{"String", "size"}:   {Return: types.Int},
	{"String", "to_s"}:   {Return: types.Str},
	{"String", "empty?"}: {Return: types.Bool},
	{"Integer", "to_s"}:  {Return: types.Str},
	{"Integer", "to_f"}:  {Return: types.Float},
	{"Float", "to_s"}:    {Return: types.Str},
	{"Float", "to_i"}:    {Return: types.Int},
	{"Object", "nil?"}:   {Return: types.Bool},
	{"Object", "to_s"}:   {Return: types.Str},
}
