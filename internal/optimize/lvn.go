package optimize

import (
	"fmt"
	"strings"

	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/mir"
)

// valueKey identifies one value-numbered computation: either an
// operator applied to already-canonicalized operand values, or a
// typed memory read keyed by (type family, pointer value, index)
// (spec.md §4.9).
type valueKey string

func exprValueKey(canon map[heap.PStr]heap.PStr, e mir.Expr) valueKey {
	switch e.Tag {
	case mir.ExprIntLiteral:
		return valueKey(fmt.Sprintf("i32:%d", e.IntValue))
	case mir.ExprInt31Literal:
		return valueKey(fmt.Sprintf("i31:%d", e.Int31Value))
	case mir.ExprStringName:
		return valueKey(fmt.Sprintf("str:%d", e.Name))
	case mir.ExprFunctionName:
		return valueKey(fmt.Sprintf("fn:%v", e.FunctionName))
	case mir.ExprVariable:
		if c, ok := canon[e.Name]; ok {
			return valueKey(fmt.Sprintf("var:%d", c))
		}
		return valueKey(fmt.Sprintf("var:%d", e.Name))
	}
	return ""
}

// canonicalizeExpr rewrites a variable reference to its canonical
// representative if one has been recorded (spec.md §4.9: "rewrite
// each statement's right-hand side by replacing variable references
// with their canonical representatives").
func canonicalizeExpr(canon map[heap.PStr]heap.PStr, e mir.Expr) mir.Expr {
	if e.Tag == mir.ExprVariable {
		if c, ok := canon[e.Name]; ok {
			e.Name = c
		}
	}
	return e
}

// lvnTable is one scope's value-number table: binary/unary ops keyed
// by (op, operand values), and memory reads keyed by (pointer-type
// family, pointer value, index). Call invalidates only the memory
// entries (spec.md §4.9's "Call invalidates memory-dependent entries
// ... integer/binary entries survive").
type lvnTable struct {
	binary map[valueKey]heap.PStr
	memory map[valueKey]heap.PStr
	canon  map[heap.PStr]heap.PStr
}

func newLVNTable(parentCanon map[heap.PStr]heap.PStr) *lvnTable {
	canon := make(map[heap.PStr]heap.PStr, len(parentCanon))
	for k, v := range parentCanon {
		canon[k] = v
	}
	return &lvnTable{binary: map[valueKey]heap.PStr{}, memory: map[valueKey]heap.PStr{}, canon: canon}
}

// LVNFunction runs local value numbering over one function's body in
// source order, rewriting redundant computations to reference an
// earlier, equivalent binding (spec.md §4.9). Fresh tables are pushed
// at IfElse branches and While bodies so no renaming leaks across a
// branch or iteration boundary (spec.md §4.9's scope-discipline
// rules); the canonical choice for any value is always the first
// binding encountered in source order.
func LVNFunction(fn mir.Function) mir.Function {
	t := newLVNTable(nil)
	fn.Body = lvnStatements(t, fn.Body)
	fn.ReturnValue = canonicalizeExpr(t.canon, fn.ReturnValue)
	return fn
}

func lvnStatements(t *lvnTable, stmts []mir.Statement) []mir.Statement {
	out := make([]mir.Statement, len(stmts))
	for i, s := range stmts {
		out[i] = lvnStatement(t, s)
	}
	return out
}

func lvnStatement(t *lvnTable, s mir.Statement) mir.Statement {
	out := s
	out.E1 = canonicalizeExpr(t.canon, s.E1)
	out.E2 = canonicalizeExpr(t.canon, s.E2)

	switch s.Tag {
	case mir.StmtBinary, mir.StmtUnary:
		key := valueKey(fmt.Sprintf("op%d:%s:%s", s.Op, exprValueKey(t.canon, out.E1), exprValueKey(t.canon, out.E2)))
		if existing, ok := t.binary[key]; ok {
			t.canon[s.Name] = existing
		} else {
			t.binary[key] = s.Name
		}
	case mir.StmtIsPointer:
		key := valueKey(fmt.Sprintf("isptr%d:%s", s.PointerTestType, exprValueKey(t.canon, out.E1)))
		if existing, ok := t.binary[key]; ok {
			t.canon[s.Name] = existing
		} else {
			t.binary[key] = s.Name
		}
	case mir.StmtIndexedAccess:
		out.Pointer = canonicalizeExpr(t.canon, s.Pointer)
		key := valueKey(fmt.Sprintf("ld:%s:%s:%d", typeFamilyKey(s.PointerType), exprValueKey(t.canon, out.Pointer), s.Index))
		if existing, ok := t.memory[key]; ok {
			t.canon[s.Name] = existing
		} else {
			t.memory[key] = s.Name
		}
	case mir.StmtIndexedAssign:
		out.Pointer = canonicalizeExpr(t.canon, s.Pointer)
		out.AssignedExpr = canonicalizeExpr(t.canon, s.AssignedExpr)
		invalidateMemory(t, s.PointerType)
	case mir.StmtCall:
		if s.CalleeVariable != nil {
			v := canonicalizeExpr(t.canon, *s.CalleeVariable)
			out.CalleeVariable = &v
		}
		out.Arguments = make([]mir.Expr, len(s.Arguments))
		for i, a := range s.Arguments {
			out.Arguments[i] = canonicalizeExpr(t.canon, a)
		}
		// A call may write through any pointer it was given, so every
		// memory-dependent entry is conservatively invalidated; pure
		// integer/binary entries are unaffected (spec.md §4.9).
		t.memory = map[valueKey]heap.PStr{}
	case mir.StmtIfElse:
		out.Condition = canonicalizeExpr(t.canon, s.Condition)
		branch1 := newLVNTable(t.canon)
		branch2 := newLVNTable(t.canon)
		out.S1 = lvnStatements(branch1, s.S1)
		out.S2 = lvnStatements(branch2, s.S2)
		out.FinalAssignments = make([]mir.FinalAssignment, len(s.FinalAssignments))
		for i, fa := range s.FinalAssignments {
			out.FinalAssignments[i] = mir.FinalAssignment{
				Name: fa.Name, Type: fa.Type,
				Then: canonicalizeExpr(branch1.canon, fa.Then),
				Else: canonicalizeExpr(branch2.canon, fa.Else),
			}
		}
	case mir.StmtBreak:
		out.BreakValue = canonicalizeExpr(t.canon, s.BreakValue)
	case mir.StmtWhile:
		loopTable := newLVNTable(t.canon)
		out.LoopVariables = make([]mir.LoopVariable, len(s.LoopVariables))
		for i, lv := range s.LoopVariables {
			out.LoopVariables[i] = mir.LoopVariable{
				Name: lv.Name, Type: lv.Type,
				Init: canonicalizeExpr(t.canon, lv.Init),
				Next: canonicalizeExpr(t.canon, lv.Next),
			}
		}
		out.Statements = lvnStatements(loopTable, s.Statements)
	case mir.StmtCast:
		out.CastExpr = canonicalizeExpr(t.canon, s.CastExpr)
	case mir.StmtLateInitAssignment:
		out.AssignedExpr = canonicalizeExpr(t.canon, s.AssignedExpr)
	case mir.StmtStructInit:
		out.ExpressionList = make([]mir.Expr, len(s.ExpressionList))
		for i, e := range s.ExpressionList {
			out.ExpressionList[i] = canonicalizeExpr(t.canon, e)
		}
	case mir.StmtClosureInit:
		out.ClosureContext = canonicalizeExpr(t.canon, s.ClosureContext)
	}
	return out
}

func invalidateMemory(t *lvnTable, pointerType mir.Type) {
	prefix := "ld:" + typeFamilyKey(pointerType) + ":"
	for k := range t.memory {
		if strings.HasPrefix(string(k), prefix) {
			delete(t.memory, k)
		}
	}
}

func typeFamilyKey(t mir.Type) string {
	switch t.Tag {
	case mir.TypeId:
		return fmt.Sprintf("id%d", t.IdName)
	default:
		return fmt.Sprintf("tag%d", t.Tag)
	}
}
