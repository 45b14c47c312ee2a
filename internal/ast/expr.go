package ast

import "github.com/samlang-go/samc/internal/heap"

// ExprTag discriminates Expr's variant.
type ExprTag int

const (
	ExprLiteral ExprTag = iota
	ExprClassId
	ExprLocalId
	ExprFieldAccess
	ExprMethodAccess
	ExprUnary
	ExprCall
	ExprBinary
	ExprIfElse
	ExprMatch
	ExprLambda
	ExprBlock
)

// LiteralKind discriminates a literal expression's constant shape.
type LiteralKind int

const (
	LiteralUnit LiteralKind = iota
	LiteralBool
	LiteralInt
	LiteralString
)

// UnaryOperator enumerates the source-level unary operators.
type UnaryOperator int

const (
	UnaryNot UnaryOperator = iota
	UnaryNeg
)

// BinaryOperator enumerates the source-level binary operators.
type BinaryOperator int

const (
	BinaryMul BinaryOperator = iota
	BinaryDiv
	BinaryMod
	BinaryPlus
	BinaryMinus
	BinaryLt
	BinaryLe
	BinaryGt
	BinaryGe
	BinaryEq
	BinaryNe
	BinaryAnd
	BinaryOr
	BinaryConcat
)

// Expr is a source expression, flattened as one tagged struct per
// spec.md §9's tagged-union-over-type-switch guidance rather than a
// visitor-interface hierarchy.
type Expr struct {
	Tag ExprTag
	Loc Location

	// Literal
	LiteralKind   LiteralKind
	LiteralInt    int32
	LiteralBool   bool
	LiteralString heap.PStr

	// ClassId, LocalId
	Id Id
	// ClassId only
	ModuleReference heap.ModuleReference

	// FieldAccess, MethodAccess
	Object                  *Expr
	ExplicitTypeArguments   []Annotation
	FieldOrMethodName       Id

	// Unary
	UnaryOperator UnaryOperator
	Argument      *Expr

	// Call
	Callee    *Expr
	Arguments []Expr

	// Binary, IfElse condition+branches reuse E1/E2 plus Condition
	BinaryOperator BinaryOperator
	Condition      *Expr
	E1             *Expr
	E2             *Expr

	// Match
	Matched *Expr
	Cases   []MatchCase

	// Lambda
	Parameters []OptionallyAnnotatedId
	Body       *Expr

	// Block
	Statements []DeclarationStatement
	FinalExpr  *Expr
}

// OptionallyAnnotatedId is a lambda parameter: a bound name with an
// optional explicit type annotation.
type OptionallyAnnotatedId struct {
	Name       Id
	Annotation *Annotation
}

// MatchDataVariable is one bound name in a match-case's data-variable
// list. A nil entry in MatchCase.DataVariables means that slot was
// written as a wildcard and binds nothing.
type MatchDataVariable struct {
	Name Id
}

// MatchCase is a single arm of a match expression.
type MatchCase struct {
	Loc           Location
	TagName       Id
	DataVariables []*MatchDataVariable
	Body          *Expr
}

// PatternTag discriminates Pattern's variant.
type PatternTag int

const (
	PatternObject PatternTag = iota
	PatternId
	PatternWildcard
)

// ObjectPatternName is one destructured field in an object pattern.
type ObjectPatternName struct {
	FieldName Id
	Alias     *Id
}

// Pattern is a block-statement's left-hand side: a destructuring
// object pattern, a single bound name, or a wildcard.
type Pattern struct {
	Tag    PatternTag
	Loc    Location
	Names  []ObjectPatternName // Object only
	SingleId heap.PStr         // Id only
}

// DeclarationStatement is one `val <pattern> = <expr>;` line inside a
// block expression.
type DeclarationStatement struct {
	Loc                Location
	Pattern            Pattern
	Annotation         *Annotation
	AssignedExpression Expr
}

// EId builds a LocalId expression.
func EId(loc Location, id Id) Expr { return Expr{Tag: ExprLocalId, Loc: loc, Id: id} }

// EClassId builds a ClassId expression.
func EClassId(loc Location, mod heap.ModuleReference, id Id) Expr {
	return Expr{Tag: ExprClassId, Loc: loc, ModuleReference: mod, Id: id}
}

// ELiteralUnit builds a unit literal expression.
func ELiteralUnit(loc Location) Expr { return Expr{Tag: ExprLiteral, Loc: loc, LiteralKind: LiteralUnit} }

// ELiteralBool builds a boolean literal expression.
func ELiteralBool(loc Location, v bool) Expr {
	return Expr{Tag: ExprLiteral, Loc: loc, LiteralKind: LiteralBool, LiteralBool: v}
}

// ELiteralInt builds an integer literal expression.
func ELiteralInt(loc Location, v int32) Expr {
	return Expr{Tag: ExprLiteral, Loc: loc, LiteralKind: LiteralInt, LiteralInt: v}
}

// ELiteralString builds a string literal expression, referencing an
// already-interned content handle.
func ELiteralString(loc Location, content heap.PStr) Expr {
	return Expr{Tag: ExprLiteral, Loc: loc, LiteralKind: LiteralString, LiteralString: content}
}
