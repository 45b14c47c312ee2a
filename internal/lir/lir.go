// Package lir is the untyped-ish backend intermediate representation
// produced by lowering MIR: closures have been expanded into explicit
// struct allocations, IsPointer tests into integer-tag comparisons, and
// shadowing of a variable name within a function body is permitted.
// Loops remain structured (While/Break); SingleIf appears only here,
// never upstream of tail-recursion optimization.
package lir

import (
	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/symtab"
)

// TypeTag discriminates Type's variant. Identical shape to mir.Type:
// LIR still distinguishes Int32/Int31 representations for the WASM
// lowering pass to pick load/store widths and tag-test encodings.
type TypeTag int

const (
	TypeInt32 TypeTag = iota
	TypeInt31
	TypeId
	TypeFn
)

// Type is LIR's flattened type term.
type Type struct {
	Tag    TypeTag
	IdName symtab.TypeNameId // TypeId only
	FnArgs []Type            // Fn only
	FnRet  *Type             // Fn only
}

func Int32Type() Type                  { return Type{Tag: TypeInt32} }
func Int31Type() Type                  { return Type{Tag: TypeInt31} }
func IdType(id symtab.TypeNameId) Type { return Type{Tag: TypeId, IdName: id} }
func FnType(args []Type, ret Type) Type {
	return Type{Tag: TypeFn, FnArgs: args, FnRet: &ret}
}

// ExprTag discriminates Expr's variant.
type ExprTag int

const (
	ExprIntLiteral ExprTag = iota
	ExprInt31Literal
	ExprStringName
	ExprVariable
	ExprFunctionName
)

// Expr is LIR's atomic operand.
type Expr struct {
	Tag          ExprTag
	IntValue     int32
	Int31Value   int32
	Name         heap.PStr
	Type         Type
	FunctionName heap.FunctionName
}

func IntLiteral(v int32) Expr         { return Expr{Tag: ExprIntLiteral, IntValue: v} }
func Int31Literal(v int32) Expr       { return Expr{Tag: ExprInt31Literal, Int31Value: v} }
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

// StmtTag discriminates Statement's variant. LIR drops ClosureInit
// (expanded to StructInit by the MIR->LIR lowering) and adds SingleIf,
// which only appears in LIR.
type StmtTag int

const (
	StmtBinary StmtTag = iota
	StmtUnary
	StmtIsPointer
	StmtIndexedAccess
	StmtIndexedAssign
	StmtCall
	StmtIfElse
	StmtSingleIf
	StmtBreak
	StmtWhile
	StmtCast
	StmtLateInitDeclaration
	StmtLateInitAssignment
	StmtStructInit
)

// FinalAssignment is one arm of an IfElse's phi-like join.
type FinalAssignment struct {
	Name heap.PStr
	Type Type
	Then Expr
	Else Expr
}

// LoopVariable is one While loop-carried variable.
type LoopVariable struct {
	Name heap.PStr
	Type Type
	Init Expr
	Next Expr
}

// BreakCollector is the variable a While's Break statements assign
// into.
type BreakCollector struct {
	Name heap.PStr
	Type Type
}

// Statement is one LIR instruction.
type Statement struct {
	Tag StmtTag

	// Binary, Unary (E2 unused for Unary)
	Name heap.PStr
	Op   BinaryOp
	E1   Expr
	E2   Expr

	// IsPointer
	PointerTestType symtab.TypeNameId

	// IndexedAccess / IndexedAssign
	PointerType  Type
	Pointer      Expr
	Index        int32
	AssignedExpr Expr

	// Call
	CalleeFunctionName *heap.FunctionName
	CalleeVariable     *Expr
	Arguments          []Expr
	ReturnType         Type
	ReturnCollector    *heap.PStr

	// IfElse
	Condition        Expr
	S1               []Statement
	S2               []Statement
	FinalAssignments []FinalAssignment

	// SingleIf (reuses Condition, Statements)
	InvertCondition bool

	// Break
	BreakValue Expr

	// While
	LoopVariables  []LoopVariable
	Statements     []Statement
	BreakCollector *BreakCollector

	// Cast
	CastType Type
	CastExpr Expr

	// StructInit
	StructTypeName symtab.TypeNameId
	ExpressionList []Expr
}

// GlobalString is one interned string constant.
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
	BoxedTypes []Type
	UnboxedRef symtab.TypeNameId
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
	Name   symtab.TypeNameId
	Tag    MappingsTag
	Struct []Type
	Enum   []EnumVariant
}

// Function is one compiled function. LIR has no ClosureTypeDefinition:
// a closure value is just a StructInit of a regular TypeDefinition
// whose first field is a function pointer.
type Function struct {
	Name        heap.FunctionName
	Parameters  []heap.PStr
	Type        Type
	Body        []Statement
	ReturnValue Expr
}

// Sources is LIR's complete compilation unit.
type Sources struct {
	SymbolTable       *symtab.SymbolTable
	GlobalVariables   []GlobalString
	TypeDefinitions   []TypeDefinition
	MainFunctionNames []heap.FunctionName
	Functions         []Function
}
