// Package hir is the typed intermediate representation produced right
// after checking: generic functions and closures are still present,
// but every expression carries an explicit HIR type rather than a
// source annotation (spec.md §3, §4.4).
package hir

import (
	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/symtab"
)

// TypeTag discriminates Type's variant.
type TypeTag int

const (
	TypeInt32 TypeTag = iota // tagged/unboxed 32-bit integer
	TypeInt31                // 31-bit integer, reserved for enum-tag packing
	TypeId                   // a nominal type definition, by TypeNameId
	TypeFn                   // function type
	TypeGeneric               // an in-scope, not-yet-monomorphized type parameter
)

// Type is HIR's flattened type term.
type Type struct {
	Tag TypeTag

	IdName symtab.TypeNameId // TypeId only
	IdArgs []Type            // TypeId only: type arguments, present pre-monomorphization

	FnArgs []Type // Fn only
	FnRet  *Type  // Fn only

	GenericName heap.PStr // Generic only
}

func Int32Type() Type                   { return Type{Tag: TypeInt32} }
func Int31Type() Type                   { return Type{Tag: TypeInt31} }
func IdType(id symtab.TypeNameId, args []Type) Type { return Type{Tag: TypeId, IdName: id, IdArgs: args} }
func FnType(args []Type, ret Type) Type { return Type{Tag: TypeFn, FnArgs: args, FnRet: &ret} }
func GenericType(name heap.PStr) Type   { return Type{Tag: TypeGeneric, GenericName: name} }

// ExprTag discriminates Expr's variant.
type ExprTag int

const (
	ExprIntLiteral ExprTag = iota
	ExprInt31Literal
	ExprStringName // a reference to an interned-string global
	ExprVariable   // name + type
	ExprFunctionName
)

// Expr is an HIR atomic operand: every composite computation happens
// through a named Statement, never a nested expression tree (spec.md
// §3's expression list is deliberately flat).
type Expr struct {
	Tag          ExprTag
	IntValue     int32             // IntLiteral
	Int31Value   int32             // Int31Literal
	Name         heap.PStr         // StringName, Variable, FunctionName
	Type         Type              // Variable, FunctionName
	FunctionName heap.FunctionName // FunctionName only, fully module-qualified
}

func IntLiteral(v int32) Expr     { return Expr{Tag: ExprIntLiteral, IntValue: v} }
func Int31Literal(v int32) Expr   { return Expr{Tag: ExprInt31Literal, Int31Value: v} }
func StringName(name heap.PStr) Expr { return Expr{Tag: ExprStringName, Name: name} }
func Variable(name heap.PStr, t Type) Expr {
	return Expr{Tag: ExprVariable, Name: name, Type: t}
}
func FunctionNameExpr(fn heap.FunctionName, t Type) Expr {
	return Expr{Tag: ExprFunctionName, FunctionName: fn, Type: t}
}

// BinaryOp enumerates the primitive binary operators.
type BinaryOp int

const (
	OpPlus BinaryOp = iota
	OpMinus
	OpMul
	OpDiv
	OpMod
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
	OpAnd
	OpOr
	OpXor
)

// StmtTag discriminates Statement's variant.
type StmtTag int

const (
	StmtBinary StmtTag = iota
	StmtUnary
	StmtIndexedAccess
	StmtIndexedAssign
	StmtCall
	StmtIfElse
	StmtBreak
	StmtWhile
	StmtCast
	StmtLateInitDeclaration
	StmtLateInitAssignment
	StmtStructInit
	StmtClosureInit
)

// FinalAssignment is one arm of an IfElse's phi-like join: a fresh
// name, its type, and the value it takes on each branch.
type FinalAssignment struct {
	Name  heap.PStr
	Type  Type
	Then  Expr
	Else  Expr
}

// LoopVariable is one `While` loop-carried variable: its initial value
// and its per-iteration update expression.
type LoopVariable struct {
	Name heap.PStr
	Type Type
	Init Expr
	Next Expr
}

// BreakCollector is the variable a `While`'s `Break` statements assign
// into, present only when the loop's value is observed after exit.
type BreakCollector struct {
	Name heap.PStr
	Type Type
}

// Statement is one HIR instruction. Flattened per spec.md §9's
// tagged-union guidance.
type Statement struct {
	Tag Tag

	// Binary
	Name heap.PStr
	Op   BinaryOp
	E1   Expr
	E2   Expr

	// Unary (reuses E1 as the operand, Op restricted to logical negation)

	// IndexedAccess / IndexedAssign
	PointerType Type
	Pointer     Expr
	Index       int32
	AssignedExpr Expr

	// Call
	CalleeFunctionName *heap.FunctionName // set when the callee is statically known
	CalleeVariable     *Expr              // set when the callee is a variable (closure value)
	Arguments          []Expr
	ReturnType         Type
	ReturnCollector    *heap.PStr

	// IfElse
	Condition        Expr
	S1               []Statement
	S2               []Statement
	FinalAssignments []FinalAssignment

	// Break
	BreakValue Expr

	// While
	LoopVariables  []LoopVariable
	Statements     []Statement
	BreakCollector *BreakCollector

	// Cast
	CastType Type
	CastExpr Expr

	// LateInit (uses Name + PointerType as the declared type for Declaration;
	// Name + AssignedExpr for Assignment)

	// StructInit
	StructTypeName symtab.TypeNameId
	ExpressionList []Expr

	// ClosureInit
	ClosureTypeName symtab.TypeNameId
	ClosureFunction heap.FunctionName
	ClosureContext  Expr
}

// Tag is Statement's discriminator (named distinctly from StmtTag so
// call sites read `hir.Tag` rather than a redundant `hir.StmtTag`).
type Tag = StmtTag

// GlobalString is one interned string constant destined to become a
// WASM data segment (or a TS `[0, text]` literal on that backend).
type GlobalString struct {
	Name    heap.PStr
	Content heap.PStr
}

// EnumVariantKind discriminates how one enum variant is represented.
type EnumVariantKind int

const (
	VariantBoxed EnumVariantKind = iota
	VariantUnboxed
	VariantInt31
)

// EnumVariant is one arm of an Enum type-definition mapping.
type EnumVariant struct {
	Kind       EnumVariantKind
	BoxedTypes []Type             // Boxed only
	UnboxedRef symtab.TypeNameId  // Unboxed only
}

// MappingsTag discriminates TypeDefinition's mappings.
type MappingsTag int

const (
	MappingsStruct MappingsTag = iota
	MappingsEnum
)

// TypeDefinition names either a struct's field types or an enum's
// variant list.
type TypeDefinition struct {
	Name     symtab.TypeNameId
	Tag      MappingsTag
	Struct   []Type
	Enum     []EnumVariant
}

// ClosureTypeDefinition names the synthesized struct shape behind a
// function value: a function-pointer field plus a captured-context
// field.
type ClosureTypeDefinition struct {
	Name         symtab.TypeNameId
	FunctionType Type
}

// Function is one compiled function: a flat parameter-name list (its
// types come from Type.FnArgs), a body, and a final return expression.
type Function struct {
	Name          heap.FunctionName
	Parameters    []heap.PStr
	Type          Type // always Fn
	Body          []Statement
	ReturnValue   Expr
}

// Sources is one IR level's complete compilation unit.
type Sources struct {
	SymbolTable        *symtab.SymbolTable
	GlobalVariables    []GlobalString
	ClosureTypes       []ClosureTypeDefinition
	TypeDefinitions    []TypeDefinition
	MainFunctionNames  []heap.FunctionName
	Functions          []Function
}
