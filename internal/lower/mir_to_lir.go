package lower

import (
	"fmt"

	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/lir"
	"github.com/samlang-go/samc/internal/mir"
)

// ClosureFlattener drives the MIR -> LIR lowering: every ClosureInit
// becomes a StructInit of a function-pointer field plus a
// captured-context field, and every IsPointer test becomes an explicit
// integer-tag comparison (the low bit of a boxed value is its Int31
// tag; an untagged value is a pointer).
type ClosureFlattener struct {
	heap    *heap.Heap
	tempCount int
}

// LowerMIRToLIR flattens src into LIR. Structured loops (While/Break)
// are copied through unchanged; SingleIf is never introduced here — it
// is only produced by a later tail-recursion optimization pass, absent
// from this core.
func LowerMIRToLIR(h *heap.Heap, src mir.Sources) lir.Sources {
	f := &ClosureFlattener{heap: h}

	typeDefs := make([]lir.TypeDefinition, 0, len(src.TypeDefinitions)+len(src.ClosureTypes))
	for _, td := range src.TypeDefinitions {
		typeDefs = append(typeDefs, f.lowerTypeDefinition(td))
	}
	for _, ct := range src.ClosureTypes {
		// A closure's struct shape is always (function pointer, context
		// pointer): the context's true shape varies per capture set, but
		// WASM/TS both treat it as an opaque i32/object reference, so a
		// single Int32 field suffices at this IR level.
		typeDefs = append(typeDefs, lir.TypeDefinition{
			Name:   ct.Name,
			Tag:    lir.MappingsStruct,
			Struct: []lir.Type{f.lowerType(ct.FunctionType), lir.Int32Type()},
		})
	}

	fns := make([]lir.Function, len(src.Functions))
	for i, fn := range src.Functions {
		fns[i] = f.lowerFunction(fn)
	}

	globals := make([]lir.GlobalString, len(src.GlobalVariables))
	for i, g := range src.GlobalVariables {
		globals[i] = lir.GlobalString{Name: g.Name, Content: g.Content}
	}

	return lir.Sources{
		SymbolTable:       src.SymbolTable,
		GlobalVariables:   globals,
		TypeDefinitions:   typeDefs,
		MainFunctionNames: src.MainFunctionNames,
		Functions:         fns,
	}
}

func (f *ClosureFlattener) lowerType(t mir.Type) lir.Type {
	switch t.Tag {
	case mir.TypeInt32:
		return lir.Int32Type()
	case mir.TypeInt31:
		return lir.Int31Type()
	case mir.TypeId:
		return lir.IdType(t.IdName)
	case mir.TypeFn:
		args := make([]lir.Type, len(t.FnArgs))
		for i, a := range t.FnArgs {
			args[i] = f.lowerType(a)
		}
		return lir.FnType(args, f.lowerType(*t.FnRet))
	}
	panic("lower: unhandled mir.Type tag")
}

func (f *ClosureFlattener) lowerTypeDefinition(td mir.TypeDefinition) lir.TypeDefinition {
	out := lir.TypeDefinition{Name: td.Name, Tag: lir.MappingsTag(td.Tag)}
	switch td.Tag {
	case mir.MappingsStruct:
		out.Struct = make([]lir.Type, len(td.Struct))
		for i, t := range td.Struct {
			out.Struct[i] = f.lowerType(t)
		}
	case mir.MappingsEnum:
		out.Enum = make([]lir.EnumVariant, len(td.Enum))
		for i, v := range td.Enum {
			out.Enum[i] = lir.EnumVariant{Kind: lir.EnumVariantKind(v.Kind), UnboxedRef: v.UnboxedRef}
			if v.Kind == mir.VariantBoxed {
				out.Enum[i].BoxedTypes = make([]lir.Type, len(v.BoxedTypes))
				for j, bt := range v.BoxedTypes {
					out.Enum[i].BoxedTypes[j] = f.lowerType(bt)
				}
			}
		}
	}
	return out
}

func (f *ClosureFlattener) lowerExpr(e mir.Expr) lir.Expr {
	return lir.Expr{
		Tag: lir.ExprTag(e.Tag), IntValue: e.IntValue, Int31Value: e.Int31Value,
		Name: e.Name, Type: f.lowerType(e.Type), FunctionName: e.FunctionName,
	}
}

func (f *ClosureFlattener) freshTemp() heap.PStr {
	f.tempCount++
	return f.heap.Alloc(fmt.Sprintf("$tag%d", f.tempCount))
}

func (f *ClosureFlattener) lowerFunction(fn mir.Function) lir.Function {
	return lir.Function{
		Name:        fn.Name,
		Parameters:  fn.Parameters,
		Type:        f.lowerType(fn.Type),
		Body:        f.lowerStatements(fn.Body),
		ReturnValue: f.lowerExpr(fn.ReturnValue),
	}
}

func (f *ClosureFlattener) lowerStatements(stmts []mir.Statement) []lir.Statement {
	var out []lir.Statement
	for _, s := range stmts {
		out = append(out, f.lowerStatement(s)...)
	}
	return out
}

// lowerStatement returns one or more LIR statements for a single MIR
// statement: IsPointer expands into two (mask, compare); ClosureInit
// and every other statement map one-to-one.
func (f *ClosureFlattener) lowerStatement(s mir.Statement) []lir.Statement {
	switch s.Tag {
	case mir.StmtIsPointer:
		tag := f.freshTemp()
		mask := lir.Statement{Tag: lir.StmtBinary, Name: tag, Op: lir.OpAnd, E1: f.lowerExpr(s.E1), E2: lir.IntLiteral(1)}
		cmp := lir.Statement{Tag: lir.StmtBinary, Name: s.Name, Op: lir.OpEq, E1: lir.Variable(tag, lir.Int32Type()), E2: lir.IntLiteral(0)}
		return []lir.Statement{mask, cmp}
	case mir.StmtClosureInit:
		return []lir.Statement{{
			Tag:            lir.StmtStructInit,
			Name:           s.Name,
			StructTypeName: s.ClosureTypeName,
			ExpressionList: []lir.Expr{
				lir.FunctionNameExpr(s.ClosureFunction, f.lowerType(funcPointerType(s))),
				f.lowerExpr(s.ClosureContext),
			},
		}}
	default:
		return []lir.Statement{f.lowerOther(s)}
	}
}

// funcPointerType gives a closure's function pointer a fixed type:
// since MIR's ClosureInit doesn't separately carry the callee's
// signature, the real arity is unavailable here, so the pointer is
// typed as a one-argument function taking the captured context's type
// and returning Int32. Downstream
// consumers (WASM lowering) resolve the concrete arity via the
// function table by name, not by this type.
func funcPointerType(s mir.Statement) mir.Type {
	return mir.FnType([]mir.Type{s.ClosureContext.Type}, mir.Int32Type())
}

// mirToLIRTag translates a MIR statement tag to its LIR counterpart.
// Binary through IfElse share numeric values across the two enums, but
// LIR inserts StmtSingleIf right after StmtIfElse (tail-recursion
// optimization's output, never produced by this lowering pass), so
// every tag from Break onward is shifted by one and cannot be cast
// directly.
func mirToLIRTag(t mir.StmtTag) lir.StmtTag {
	switch t {
	case mir.StmtBinary:
		return lir.StmtBinary
	case mir.StmtUnary:
		return lir.StmtUnary
	case mir.StmtIsPointer:
		return lir.StmtIsPointer
	case mir.StmtIndexedAccess:
		return lir.StmtIndexedAccess
	case mir.StmtIndexedAssign:
		return lir.StmtIndexedAssign
	case mir.StmtCall:
		return lir.StmtCall
	case mir.StmtIfElse:
		return lir.StmtIfElse
	case mir.StmtBreak:
		return lir.StmtBreak
	case mir.StmtWhile:
		return lir.StmtWhile
	case mir.StmtCast:
		return lir.StmtCast
	case mir.StmtLateInitDeclaration:
		return lir.StmtLateInitDeclaration
	case mir.StmtLateInitAssignment:
		return lir.StmtLateInitAssignment
	case mir.StmtStructInit:
		return lir.StmtStructInit
	default:
		return lir.StmtBinary
	}
}

func (f *ClosureFlattener) lowerOther(s mir.Statement) lir.Statement {
	out := lir.Statement{
		Tag:  mirToLIRTag(s.Tag),
		Name: s.Name, Op: lir.BinaryOp(s.Op),
		E1: f.lowerExpr(s.E1), E2: f.lowerExpr(s.E2),
	}
	switch s.Tag {
	case mir.StmtIndexedAccess, mir.StmtIndexedAssign:
		out.PointerType = f.lowerType(s.PointerType)
		out.Pointer = f.lowerExpr(s.Pointer)
		out.Index = s.Index
		out.AssignedExpr = f.lowerExpr(s.AssignedExpr)
	case mir.StmtCall:
		out.Arguments = make([]lir.Expr, len(s.Arguments))
		for i, a := range s.Arguments {
			out.Arguments[i] = f.lowerExpr(a)
		}
		out.ReturnType = f.lowerType(s.ReturnType)
		out.ReturnCollector = s.ReturnCollector
		out.CalleeFunctionName = s.CalleeFunctionName
		if s.CalleeVariable != nil {
			v := f.lowerExpr(*s.CalleeVariable)
			out.CalleeVariable = &v
		}
	case mir.StmtIfElse:
		out.Condition = f.lowerExpr(s.Condition)
		out.S1 = f.lowerStatements(s.S1)
		out.S2 = f.lowerStatements(s.S2)
		out.FinalAssignments = make([]lir.FinalAssignment, len(s.FinalAssignments))
		for i, fa := range s.FinalAssignments {
			out.FinalAssignments[i] = lir.FinalAssignment{
				Name: fa.Name, Type: f.lowerType(fa.Type),
				Then: f.lowerExpr(fa.Then), Else: f.lowerExpr(fa.Else),
			}
		}
	case mir.StmtBreak:
		out.BreakValue = f.lowerExpr(s.BreakValue)
	case mir.StmtWhile:
		out.LoopVariables = make([]lir.LoopVariable, len(s.LoopVariables))
		for i, lv := range s.LoopVariables {
			out.LoopVariables[i] = lir.LoopVariable{
				Name: lv.Name, Type: f.lowerType(lv.Type),
				Init: f.lowerExpr(lv.Init), Next: f.lowerExpr(lv.Next),
			}
		}
		out.Statements = f.lowerStatements(s.Statements)
		if s.BreakCollector != nil {
			out.BreakCollector = &lir.BreakCollector{Name: s.BreakCollector.Name, Type: f.lowerType(s.BreakCollector.Type)}
		}
	case mir.StmtCast:
		out.CastType = f.lowerType(s.CastType)
		out.CastExpr = f.lowerExpr(s.CastExpr)
	case mir.StmtLateInitDeclaration:
		out.PointerType = f.lowerType(s.PointerType)
	case mir.StmtLateInitAssignment:
		out.AssignedExpr = f.lowerExpr(s.AssignedExpr)
	case mir.StmtStructInit:
		out.StructTypeName = s.StructTypeName
		out.ExpressionList = make([]lir.Expr, len(s.ExpressionList))
		for i, e := range s.ExpressionList {
			out.ExpressionList[i] = f.lowerExpr(e)
		}
	}
	return out
}
