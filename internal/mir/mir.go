// Package mir is the monomorphic intermediate representation produced
// by lowering HIR: every generic function and type has been
// specialized away, closures are still represented as explicit
// ClosureInit values, and loops remain in structured while/break form
// (spec.md §3, §4.4).
package mir

import (
	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/symtab"
)

// TypeTag discriminates Type's variant. Unlike hir.Type, MIR has no
// Generic variant: spec.md invariant 5 requires monomorphization to
// have eliminated every type parameter.
type TypeTag int

const (
	TypeInt32 TypeTag = iota
	TypeInt31
	TypeId
	TypeFn
)

// Type is MIR's flattened type term.
type Type struct {
	Tag    TypeTag
	IdName symtab.TypeNameId // TypeId only
	FnArgs []Type            // Fn only
	FnRet  *Type             // Fn only
}

func Int32Type() Type                { return Type{Tag: TypeInt32} }
func Int31Type() Type                { return Type{Tag: TypeInt31} }
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

// Expr is MIR's atomic operand.
type Expr struct {
	Tag          ExprTag
	IntValue     int32
	Int31Value   int32
	Name         heap.PStr
	Type         Type
	FunctionName heap.FunctionName
}

func IntLiteral(v int32) Expr       { return Expr{Tag: ExprIntLiteral, IntValue: v} }
func Int31Literal(v int32) Expr     { return Expr{Tag: ExprInt31Literal, Int31Value: v} }
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

// StmtTag discriminates Statement's variant. MIR adds IsPointer over
// HIR's statement set (the tagged/boxed runtime-representation test)
// and still forbids SingleIf, which only appears after LIR's
// tail-recursion lowering (spec.md §3).
type StmtTag int

const (
	StmtBinary StmtTag = iota
	StmtUnary
	StmtIsPointer
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

// Statement is one MIR instruction.
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

	// ClosureInit
	ClosureTypeName symtab.TypeNameId
	ClosureFunction heap.FunctionName
	ClosureContext  Expr
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

// ClosureTypeDefinition names the synthesized function-value struct
// shape: function pointer plus captured context.
type ClosureTypeDefinition struct {
	Name         symtab.TypeNameId
	FunctionType Type
}

// Function is one compiled function.
type Function struct {
	Name        heap.FunctionName
	Parameters  []heap.PStr
	Type        Type
	Body        []Statement
	ReturnValue Expr
}

// Sources is MIR's complete compilation unit.
type Sources struct {
	SymbolTable       *symtab.SymbolTable
	GlobalVariables   []GlobalString
	ClosureTypes      []ClosureTypeDefinition
	TypeDefinitions   []TypeDefinition
	MainFunctionNames []heap.FunctionName
	Functions         []Function
}
