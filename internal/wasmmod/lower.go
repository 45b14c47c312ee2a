package wasmmod

import (
	"sort"

	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/lir"
)

// MallocName is the well-known allocator entry point StructInit calls
// through; it has no SAM-level definition, the same way the original
// treats it as a host/runtime import.
func MallocName(h *heap.Heap) heap.FunctionName {
	return heap.FunctionName{ModuleReference: heap.DummyModuleReference, Name: h.Alloc("malloc")}
}

// loopContext is the top of the loop stack described in spec.md
// §4.10: a break collector (if the loop's value is observed after
// exit) and the label `Break` should jump to.
type loopContext struct {
	breakCollector *heap.PStr
	exitLabel      int
}

// funcState carries the per-function mutable lowering state: the
// label allocator, the loop-context stack, and the set of locals
// encountered so far (declared once at the end, per spec.md §4.10).
type funcState struct {
	h          *heap.Heap
	stringAddr map[heap.PStr]int32
	funcIndex  map[heap.FunctionName]int32
	nextLabel  int
	loopStack  []loopContext
	locals     map[heap.PStr]bool
	localOrder []heap.PStr
}

func (f *funcState) freshLabel() int {
	l := f.nextLabel
	f.nextLabel++
	return l
}

func (f *funcState) declareLocal(name heap.PStr) {
	if f.locals[name] {
		return
	}
	f.locals[name] = true
	f.localOrder = append(f.localOrder, name)
}

// LowerLIRToWASM translates fully-optimized, unused-name-eliminated LIR
// into the WASM module model (spec.md §4.10).
func LowerLIRToWASM(h *heap.Heap, src lir.Sources) *Module {
	m := &Module{}

	stringAddr := make(map[heap.PStr]int32)
	var offset int32
	// Deterministic layout: sort by Name handle value so output does
	// not depend on slice order instability upstream.
	globals := append([]lir.GlobalString{}, src.GlobalVariables...)
	sort.Slice(globals, func(i, j int) bool { return globals[i].Name < globals[j].Name })
	for _, g := range globals {
		text := h.Str(g.Content)
		bytes := []byte(text)
		stringAddr[g.Name] = offset
		m.DataSegments = append(m.DataSegments, DataSegment{Offset: offset, Bytes: bytes})
		offset += int32(len(bytes))
		if offset%4 != 0 {
			offset += 4 - offset%4
		}
	}

	typeIndex := make(map[int]int)
	arityIndex := func(arity int) int {
		if idx, ok := typeIndex[arity]; ok {
			return idx
		}
		idx := len(m.Types)
		m.Types = append(m.Types, FunctionType{Arity: arity})
		typeIndex[arity] = idx
		return idx
	}

	funcs := append([]lir.Function{}, src.Functions...)
	sort.Slice(funcs, func(i, j int) bool {
		a, b := funcs[i].Name, funcs[j].Name
		if a.ModuleReference != b.ModuleReference {
			return a.ModuleReference.PrettyPrint(h) < b.ModuleReference.PrettyPrint(h)
		}
		return a.Name < b.Name
	})

	funcIndex := make(map[heap.FunctionName]int32, len(funcs))
	for i, fn := range funcs {
		m.Table = append(m.Table, fn.Name)
		funcIndex[fn.Name] = int32(i)
	}

	for _, fn := range funcs {
		fs := &funcState{h: h, stringAddr: stringAddr, funcIndex: funcIndex, locals: make(map[heap.PStr]bool)}
		body := fs.lowerStatements(fn.Body)
		wasmFn := Function{
			Name:       fn.Name,
			ParamNames: append([]heap.PStr{}, fn.Parameters...),
			TypeIndex:  arityIndex(len(fn.Parameters)),
			Locals:     fs.localOrder,
			Body:       body,
		}
		m.Functions = append(m.Functions, wasmFn)
	}

	for _, mainName := range src.MainFunctionNames {
		m.Exports = append(m.Exports, Export{Name: mainName.Name, FunctionName: mainName})
	}

	return m
}

func (f *funcState) lowerExpr(e lir.Expr) InlineInstruction {
	switch e.Tag {
	case lir.ExprIntLiteral:
		return Const(e.IntValue)
	case lir.ExprInt31Literal:
		return Const(e.Int31Value)
	case lir.ExprStringName:
		return Const(f.stringAddr[e.Name])
	case lir.ExprVariable:
		return LocalGet(e.Name)
	case lir.ExprFunctionName:
		// A bare function-name value (a closure's function-pointer
		// field after flattening) lowers to its function-table index.
		return Const(f.funcIndex[e.FunctionName])
	}
	return Const(0)
}

func binOpOf(op lir.BinaryOp) BinOp {
	switch op {
	case lir.OpPlus:
		return BinAdd
	case lir.OpMinus:
		return BinSub
	case lir.OpMul:
		return BinMul
	case lir.OpDiv:
		return BinDivS
	case lir.OpMod:
		return BinRemS
	case lir.OpLt:
		return BinLtS
	case lir.OpLe:
		return BinLeS
	case lir.OpGt:
		return BinGtS
	case lir.OpGe:
		return BinGeS
	case lir.OpEq:
		return BinEq
	case lir.OpNe:
		return BinNe
	case lir.OpAnd:
		return BinAnd
	case lir.OpOr:
		return BinOr
	default:
		return BinXor
	}
}

func (f *funcState) lowerStatements(stmts []lir.Statement) []Instruction {
	var out []Instruction
	for _, s := range stmts {
		out = append(out, f.lowerStatement(s)...)
	}
	return out
}

func (f *funcState) lowerStatement(s lir.Statement) []Instruction {
	switch s.Tag {
	case lir.StmtBinary:
		f.declareLocal(s.Name)
		return []Instruction{InlineInstr(LocalSet(s.Name, Binary(binOpOf(s.Op), f.lowerExpr(s.E1), f.lowerExpr(s.E2))))}

	case lir.StmtIsPointer:
		// Boxed values are word-aligned (low bit clear); Int31 values
		// are tagged with the low bit set. The test is `(e1 & 1) == 0`.
		f.declareLocal(s.Name)
		masked := Binary(BinAnd, f.lowerExpr(s.E1), Const(1))
		return []Instruction{InlineInstr(LocalSet(s.Name, Binary(BinEq, masked, Const(0))))}

	case lir.StmtUnary:
		// Logical not is the only unary op in this language; modeled as
		// XOR with 1 over the single operand (spec.md §4.10's invert
		// rule reuses the same encoding).
		f.declareLocal(s.Name)
		return []Instruction{InlineInstr(LocalSet(s.Name, Binary(BinXor, f.lowerExpr(s.E1), Const(1))))}

	case lir.StmtIndexedAccess:
		f.declareLocal(s.Name)
		return []Instruction{InlineInstr(LocalSet(s.Name, Load(s.Index, f.lowerExpr(s.Pointer))))}

	case lir.StmtIndexedAssign:
		return []Instruction{InlineInstr(Store(s.Index, f.lowerExpr(s.Pointer), f.lowerExpr(s.AssignedExpr)))}

	case lir.StmtCall:
		var args []InlineInstruction
		for _, a := range s.Arguments {
			args = append(args, f.lowerExpr(a))
		}
		var call InlineInstruction
		if s.CalleeFunctionName != nil {
			call = DirectCall(*s.CalleeFunctionName, args)
		} else {
			call = IndirectCall(f.lowerExpr(*s.CalleeVariable), len(args), args)
		}
		if s.ReturnCollector == nil {
			return []Instruction{InlineInstr(Drop(call))}
		}
		f.declareLocal(*s.ReturnCollector)
		return []Instruction{InlineInstr(LocalSet(*s.ReturnCollector, call))}

	case lir.StmtIfElse:
		s1 := f.lowerStatements(s.S1)
		s2 := f.lowerStatements(s.S2)
		for _, fa := range s.FinalAssignments {
			f.declareLocal(fa.Name)
			s1 = append(s1, InlineInstr(LocalSet(fa.Name, f.lowerExpr(fa.Then))))
			s2 = append(s2, InlineInstr(LocalSet(fa.Name, f.lowerExpr(fa.Else))))
		}
		cond := f.lowerExpr(s.Condition)
		if len(s1) == 0 && len(s2) != 0 {
			return []Instruction{IfElse(Binary(BinXor, cond, Const(1)), s2, nil)}
		}
		return []Instruction{IfElse(cond, s1, s2)}

	case lir.StmtSingleIf:
		body := f.lowerStatements(s.Statements)
		cond := f.lowerExpr(s.Condition)
		if s.InvertCondition {
			cond = Binary(BinXor, cond, Const(1))
		}
		return []Instruction{IfElse(cond, body, nil)}

	case lir.StmtBreak:
		top := f.loopStack[len(f.loopStack)-1]
		var out []Instruction
		if top.breakCollector != nil {
			out = append(out, InlineInstr(LocalSet(*top.breakCollector, f.lowerExpr(s.BreakValue))))
		}
		out = append(out, Jump(top.exitLabel))
		return out

	case lir.StmtWhile:
		continueLabel := f.freshLabel()
		exitLabel := f.freshLabel()
		var out []Instruction
		for _, lv := range s.LoopVariables {
			f.declareLocal(lv.Name)
			out = append(out, InlineInstr(LocalSet(lv.Name, f.lowerExpr(lv.Init))))
		}
		if s.BreakCollector != nil {
			f.declareLocal(s.BreakCollector.Name)
		}
		var bc *heap.PStr
		if s.BreakCollector != nil {
			n := s.BreakCollector.Name
			bc = &n
		}
		f.loopStack = append(f.loopStack, loopContext{breakCollector: bc, exitLabel: exitLabel})
		body := f.lowerStatements(s.Statements)
		for _, lv := range s.LoopVariables {
			body = append(body, InlineInstr(LocalSet(lv.Name, f.lowerExpr(lv.Next))))
		}
		body = append(body, Jump(continueLabel))
		f.loopStack = f.loopStack[:len(f.loopStack)-1]
		out = append(out, Loop(continueLabel, exitLabel, body))
		return out

	case lir.StmtCast:
		f.declareLocal(s.Name)
		return []Instruction{InlineInstr(LocalSet(s.Name, f.lowerExpr(s.CastExpr)))}

	case lir.StmtLateInitDeclaration:
		f.declareLocal(s.Name)
		return nil

	case lir.StmtLateInitAssignment:
		f.declareLocal(s.Name)
		return []Instruction{InlineInstr(LocalSet(s.Name, f.lowerExpr(s.AssignedExpr)))}

	case lir.StmtStructInit:
		f.declareLocal(s.Name)
		n := int32(len(s.ExpressionList))
		out := []Instruction{InlineInstr(LocalSet(s.Name, DirectCall(MallocName(f.h), []InlineInstruction{Const(4 * n)})))}
		for i, e := range s.ExpressionList {
			out = append(out, InlineInstr(Store(int32(i), LocalGet(s.Name), f.lowerExpr(e))))
		}
		return out
	}
	return nil
}
