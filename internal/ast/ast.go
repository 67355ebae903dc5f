// Package ast defines the node contract this compiler core consumes from
// the parser. Nothing in this package parses source text; it only declares
// the shapes of nodes a conforming parser front-end must hand to the
// resolver, inferrer and lowering stages.
package ast

// Pos is a single point in a source file.
type Pos struct {
	File   string
	Line   int
	Column int
	Offset int
}

// Span covers a contiguous range of source text.
type Span struct {
	Start Pos
	End   Pos
}

// Node is embedded by every concrete AST node.
type Node interface {
	Pos() Span
	node()
}

type base struct {
	Span Span
}

func (b base) Pos() Span { return b.Span }
func (base) node()       {}

// Expr is implemented by every expression node.
type Expr interface {
	Node
	expr()
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmt()
}

// Decl is implemented by every top-level declaration.
type Decl interface {
	Node
	decl()
}

// TypeExpr is a surface-level type annotation as written by the user
// (a signature file or inline annotation), not an inferred types.Type.
type TypeExpr interface {
	Node
	typeExpr()
}

// Pattern is implemented by every case/when or destructuring pattern.
type Pattern interface {
	Node
	pattern()
}

type exprBase struct{ base }

func (exprBase) expr() {}

type stmtBase struct{ base }

func (stmtBase) stmt() {}

type declBase struct{ base }

func (declBase) decl() {}

type patternBase struct{ base }

func (patternBase) pattern() {}

// File is the root node produced per compiled source file.
type File struct {
	base
	Path    string
	Imports []*ImportDecl
	Decls   []Decl
}

// ImportDecl names a dependency of this file (§4.4 consumes these).
type ImportDecl struct {
	declBase
	Path  string // e.g. "lib/json" or "./helpers"
	Alias string // optional
}

// ClassDecl declares a class (or module, via IsModule) and its body.
type ClassDecl struct {
	declBase
	Name       string
	Superclass string   // "" if none (implicit Object)
	Mixins     []string // included modules, in inclusion order
	IsModule   bool
	Body       []Decl
	TypeParams []string // generic class parameters, if any
}

// MethodDecl declares an instance or singleton method.
type MethodDecl struct {
	declBase
	Name       string
	Receiver   string // "" for instance method, "self" for singleton method
	Params     []*Param
	ReturnType TypeExpr // nil if unannotated
	Body       []Stmt
	IsInitialize bool
}

// Param is one formal parameter, including splat/block/keyword forms.
type Param struct {
	base
	Name     string
	Kind     ParamKind
	Default  Expr     // nil if none
	TypeAnn  TypeExpr // nil if unannotated
}

// ParamKind distinguishes Ruby's parameter forms.
type ParamKind int

const (
	ParamPositional ParamKind = iota
	ParamSplat                // *args
	ParamDoubleSplat          // **kwargs
	ParamBlock                // &blk
	ParamKeyword              // name:
)

// ConstDecl declares a constant assignment at class or top level.
type ConstDecl struct {
	declBase
	Name  string
	Value Expr
}

// --- Expressions -----------------------------------------------------

// Identifier is a local variable or method-call-without-args reference.
type Identifier struct {
	exprBase
	Name string
}

// InstanceVar is `@name`.
type InstanceVar struct {
	exprBase
	Name string
}

// ClassVar is `@@name`.
type ClassVar struct {
	exprBase
	Name string
}

// GlobalVar is `$name`.
type GlobalVar struct {
	exprBase
	Name string
}

// ConstPath is a (possibly qualified) constant reference, e.g. `Foo::Bar`.
type ConstPath struct {
	exprBase
	Qualifier Expr // nil for an unqualified reference
	Name      string
}

// LiteralKind enumerates literal forms.
type LiteralKind int

const (
	LitInt LiteralKind = iota
	LitFloat
	LitString
	LitSymbol
	LitBool
	LitNil
	LitArray
	LitHash
)

// Literal is a literal value. Array/Hash literals carry their elements in
// Elements/Pairs rather than Value.
type Literal struct {
	exprBase
	Kind     LiteralKind
	Value    interface{}
	Elements []Expr
	Pairs    []HashPair
}

// HashPair is one key/value entry of a hash literal.
type HashPair struct {
	Key   Expr
	Value Expr
}

// BinaryOp is a binary operator expression.
type BinaryOp struct {
	exprBase
	Op    string
	Left  Expr
	Right Expr
}

// UnaryOp is a unary operator expression (`!x`, `-x`, `not x`).
type UnaryOp struct {
	exprBase
	Op      string
	Operand Expr
}

// Assign is `target = value`, including `+=` style ops via CompoundOp.
type Assign struct {
	exprBase
	Target      Expr
	Value       Expr
	CompoundOp  string // "" for plain "="
}

// Call is a method call, `recv.name(args) { block }` or a bare `name(args)`
// when Receiver is nil (implicit self).
type Call struct {
	exprBase
	Receiver     Expr // nil for implicit self
	SafeNav      bool // true for `&.`
	Name         string
	Args         []Expr
	BlockArg     Expr   // explicit `&blk` argument, nil if none
	Block        *Block // literal `do...end`/`{...}` block, nil if none
}

// Block is a literal block attached to a call.
type Block struct {
	base
	Params []*Param
	Body   []Stmt
}

// Yield invokes the method's implicit block.
type Yield struct {
	exprBase
	Args []Expr
}

// Self refers to the current receiver.
type Self struct{ exprBase }

// Super calls the superclass method, ImplicitArgs true means bare `super`
// (forwards the caller's own arguments) vs `super(...)` with explicit Args.
type Super struct {
	exprBase
	ImplicitArgs bool
	Args         []Expr
	Block        *Block
}

// Splat expands an array in an argument list or literal, `*xs`.
type Splat struct {
	exprBase
	Value Expr
}

// DoubleSplat expands a hash into keyword arguments, `**h`.
type DoubleSplat struct {
	exprBase
	Value Expr
}

// If is a conditional expression (Ruby `if`/`unless` are both expressions).
type If struct {
	exprBase
	Unless bool
	Cond   Expr
	Then   []Stmt
	Elifs  []ElseIf
	Else   []Stmt // nil if no else branch
}

// ElseIf is one `elsif` clause.
type ElseIf struct {
	Cond Expr
	Body []Stmt
}

// Ternary is `cond ? a : b`.
type Ternary struct {
	exprBase
	Cond Expr
	Then Expr
	Else Expr
}

// While is a `while`/`until` loop.
type While struct {
	exprBase
	Until bool
	Cond  Expr
	Body  []Stmt
}

// CFor is a `for x in xs` loop (desugars to each in most Ruby dialects,
// kept distinct here since it binds x in the enclosing scope, not a block).
type CFor struct {
	exprBase
	Var   string
	Iter  Expr
	Body  []Stmt
}

// Break exits the nearest enclosing loop.
type Break struct {
	exprBase
	Value Expr // nil if none
}

// Next continues the nearest enclosing loop/block.
type Next struct {
	exprBase
	Value Expr // nil if none
}

// Case is a `case ... when ... end` pattern match. Subject is nil for a
// case-less "case; when cond1; ...; end" boolean match.
type Case struct {
	exprBase
	Subject Expr
	Whens   []WhenClause
	Else    []Stmt
}

// WhenClause is one `when` arm; Patterns holds one-or-more comma-separated
// patterns.
type WhenClause struct {
	Patterns []Pattern
	Body     []Stmt
}

// BeginRescue is a `begin...rescue...ensure...end` exception region.
type BeginRescue struct {
	exprBase
	Body     []Stmt
	Rescues  []RescueClause
	Else     []Stmt
	Ensure   []Stmt
}

// RescueClause is one `rescue ClassName => var` arm.
type RescueClause struct {
	Classes []string
	VarName string // "" if no binding
	Body    []Stmt
}

// Raise raises an exception.
type Raise struct {
	exprBase
	Class Expr // nil for bare `raise` (re-raise)
	Args  []Expr
}

// Lambda is a `->(x) { ... }` or `lambda { |x| ... }` literal.
type Lambda struct {
	exprBase
	Params []*Param
	Body   []Stmt
}

// --- Patterns ----------------------------------------------------------

// LiteralPattern matches a literal value.
type LiteralPattern struct {
	patternBase
	Lit *Literal
}

// ClassPattern matches `when ClassName` (instance-of test), optionally
// destructuring with Binds (`when Point(x:, y:)`).
type ClassPattern struct {
	patternBase
	ClassName string
	Binds     []string
}

// VarPattern binds the matched value to a new local.
type VarPattern struct {
	patternBase
	Name string
}

// SplatPattern matches `*rest` within an array destructure.
type SplatPattern struct {
	patternBase
	Name string // "" for an anonymous splat
}

// ArrayPattern destructures an array-like value.
type ArrayPattern struct {
	patternBase
	Elements []Pattern
}

// WildcardPattern matches anything (`_` or `else`-style `when` fallback).
type WildcardPattern struct{ patternBase }

// --- Statements ----------------------------------------------------------

// --- Surface type annotations -------------------------------------------

type typeExprBase struct{ base }

func (typeExprBase) typeExpr() {}

// NamedTypeExpr is a bare class/type name, e.g. `Int`, `String`.
type NamedTypeExpr struct {
	typeExprBase
	Name string
}

// GenericTypeExpr is a parameterized type, e.g. `Array[Int]`.
type GenericTypeExpr struct {
	typeExprBase
	Name string
	Args []TypeExpr
}

// UnionTypeExpr is a `T1 | T2 | ...` annotation.
type UnionTypeExpr struct {
	typeExprBase
	Members []TypeExpr
}

// NilableTypeExpr is a `T?` annotation, sugar for `T | nil`.
type NilableTypeExpr struct {
	typeExprBase
	Inner TypeExpr
}

// ExprStmt wraps an expression used in statement position.
type ExprStmt struct {
	stmtBase
	X Expr
}

// ReturnStmt returns from the enclosing method.
type ReturnStmt struct {
	stmtBase
	Value Expr // nil for bare `return`
}
