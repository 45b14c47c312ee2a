// Package wasmmod is the WASM module model described in spec.md §3/§4.10/
// §6: a small tree of instructions and a module assembly, kept
// deliberately short of real WASM binary validity (the byte-level
// encoder is an out-of-core collaborator per spec.md §1) but complete
// enough to pretty-print deterministically and to drive the lowering
// invariants (offset encoding, function-table population, exports).
package wasmmod

import "github.com/samlang-go/samc/internal/heap"

// ValType is a WASM value type. Every local, param, and result this
// compiler core produces is i32 (spec.md §3's "all over i32" lowering
// rule): tagged integers, pointers, and booleans are all untyped i32
// words at this level.
type ValType int

const I32 ValType = 0

// FunctionType is a distinct parameter arity (spec.md §4.10: "emit a
// distinct WASM function type per distinct parameter arity observed").
// Every function this core lowers returns exactly one i32.
type FunctionType struct {
	Arity int
}

// TypeString renders the human-readable arity-encoded type string from
// spec.md §6: "none_=>_i32" for zero-arity, else "i32_×N=>_i32".
func (t FunctionType) TypeString() string {
	if t.Arity == 0 {
		return "none_=>_i32"
	}
	return "i32_×" + itoa(t.Arity) + "=>_i32"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// DataSegment is one interned string constant laid out in linear
// memory, addressed by its byte offset.
type DataSegment struct {
	Offset int32
	Bytes  []byte
}

// Export names one function exposed outside the module.
type Export struct {
	Name         heap.PStr
	FunctionName heap.FunctionName
}

// InlineTag discriminates InlineInstruction's variant.
type InlineTag int

const (
	InlineConst InlineTag = iota
	InlineLocalGet
	InlineLocalSet
	InlineDrop
	InlineBinary
	InlineLoad
	InlineStore
	InlineDirectCall
	InlineIndirectCall
)

// BinOp is a WASM i32 binary opcode.
type BinOp int

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDivS
	BinRemS
	BinLtS
	BinLeS
	BinGtS
	BinGeS
	BinEq
	BinNe
	BinAnd
	BinOr
	BinXor
)

// InlineInstruction is a value-producing (or effectful-but-inline)
// instruction: the leaves of an instruction tree.
type InlineInstruction struct {
	Tag InlineTag

	ConstValue int32 // Const

	LocalName heap.PStr          // LocalGet, LocalSet
	Value     *InlineInstruction // LocalSet operand, Drop operand

	Op  BinOp              // Binary
	Lhs *InlineInstruction // Binary
	Rhs *InlineInstruction // Binary

	Offset  int32              // Load, Store ("offset=4*k"; 0 omitted)
	Pointer *InlineInstruction // Load, Store
	Stored  *InlineInstruction // Store

	CalleeFunctionName *heap.FunctionName  // DirectCall
	CalleeIndex        *InlineInstruction  // IndirectCall: function-table index
	FunctionTypeArity  int                 // IndirectCall: arity encoded in the call_indirect's type
	Arguments          []InlineInstruction // DirectCall, IndirectCall
}

func Const(v int32) InlineInstruction { return InlineInstruction{Tag: InlineConst, ConstValue: v} }
func LocalGet(name heap.PStr) InlineInstruction {
	return InlineInstruction{Tag: InlineLocalGet, LocalName: name}
}
func LocalSet(name heap.PStr, v InlineInstruction) InlineInstruction {
	return InlineInstruction{Tag: InlineLocalSet, LocalName: name, Value: &v}
}
func Drop(v InlineInstruction) InlineInstruction {
	return InlineInstruction{Tag: InlineDrop, Value: &v}
}
func Binary(op BinOp, lhs, rhs InlineInstruction) InlineInstruction {
	return InlineInstruction{Tag: InlineBinary, Op: op, Lhs: &lhs, Rhs: &rhs}
}
func Load(index int32, ptr InlineInstruction) InlineInstruction {
	return InlineInstruction{Tag: InlineLoad, Offset: index * 4, Pointer: &ptr}
}
func Store(index int32, ptr, value InlineInstruction) InlineInstruction {
	return InlineInstruction{Tag: InlineStore, Offset: index * 4, Pointer: &ptr, Stored: &value}
}
func DirectCall(fn heap.FunctionName, args []InlineInstruction) InlineInstruction {
	return InlineInstruction{Tag: InlineDirectCall, CalleeFunctionName: &fn, Arguments: args}
}
func IndirectCall(calleeIndex InlineInstruction, arity int, args []InlineInstruction) InlineInstruction {
	return InlineInstruction{Tag: InlineIndirectCall, CalleeIndex: &calleeIndex, FunctionTypeArity: arity, Arguments: args}
}

// InstrTag discriminates a top-level (statement-like) Instruction.
type InstrTag int

const (
	InstrInline InstrTag = iota
	InstrIfElse
	InstrUnconditionalJump
	InstrLoop
)

// Instruction is one WASM statement-level instruction: an inline
// value-or-effect expression, a structured if/else, an unconditional
// branch to a label, or a labeled loop (spec.md §4.10's four
// variants).
type Instruction struct {
	Tag Tag

	Inline InlineInstruction // Inline

	Condition InlineInstruction // IfElse
	Then      []Instruction     // IfElse
	Else      []Instruction     // IfElse

	Label int // UnconditionalJump: target label

	ContinueLabel int           // Loop
	ExitLabel     int           // Loop
	Body          []Instruction // Loop
}

// Tag is Instruction's discriminator.
type Tag = InstrTag

func InlineInstr(i InlineInstruction) Instruction { return Instruction{Tag: InstrInline, Inline: i} }
func IfElse(cond InlineInstruction, then, els []Instruction) Instruction {
	return Instruction{Tag: InstrIfElse, Condition: cond, Then: then, Else: els}
}
func Jump(label int) Instruction { return Instruction{Tag: InstrUnconditionalJump, Label: label} }
func Loop(continueLabel, exitLabel int, body []Instruction) Instruction {
	return Instruction{Tag: InstrLoop, ContinueLabel: continueLabel, ExitLabel: exitLabel, Body: body}
}

// Function is one lowered WASM function.
type Function struct {
	Name       heap.FunctionName
	ParamNames []heap.PStr
	TypeIndex  int
	Locals     []heap.PStr // declared after params, all i32
	Body       []Instruction
}

// Module is the complete assembled unit: deduplicated function types,
// data segments for interned strings, a function table in the same
// order as Functions (sorted by module name, then by function-name
// handle), the function bodies themselves, and the export
// set (spec.md §4.10 "module assembly").
type Module struct {
	Types        []FunctionType
	DataSegments []DataSegment
	Table        []heap.FunctionName
	Functions    []Function
	Exports      []Export
}
