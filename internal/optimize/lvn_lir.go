package optimize

import (
	"fmt"

	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/lir"
)

// LVNLIRFunction is LIR's counterpart to LVNFunction (spec.md §4.9:
// "Local Value Numbering (MIR and LIR)"), reusing the same scope
// discipline — fresh tables per IfElse branch and per While body, no
// leakage across either boundary.
func LVNLIRFunction(fn lir.Function) lir.Function {
	canon := map[heap.PStr]heap.PStr{}
	table := map[string]heap.PStr{}
	fn.Body = lvnLIRStatements(canon, table, fn.Body)
	fn.ReturnValue = canonicalizeLIRExpr(canon, fn.ReturnValue)
	return fn
}

func canonicalizeLIRExpr(canon map[heap.PStr]heap.PStr, e lir.Expr) lir.Expr {
	if e.Tag == lir.ExprVariable {
		if c, ok := canon[e.Name]; ok {
			e.Name = c
		}
	}
	return e
}

func lirExprKey(canon map[heap.PStr]heap.PStr, e lir.Expr) string {
	switch e.Tag {
	case lir.ExprIntLiteral:
		return fmt.Sprintf("i32:%d", e.IntValue)
	case lir.ExprInt31Literal:
		return fmt.Sprintf("i31:%d", e.Int31Value)
	case lir.ExprStringName:
		return fmt.Sprintf("str:%d", e.Name)
	case lir.ExprFunctionName:
		return fmt.Sprintf("fn:%v", e.FunctionName)
	case lir.ExprVariable:
		if c, ok := canon[e.Name]; ok {
			return fmt.Sprintf("var:%d", c)
		}
		return fmt.Sprintf("var:%d", e.Name)
	}
	return ""
}

func lvnLIRStatements(canon map[heap.PStr]heap.PStr, table map[string]heap.PStr, stmts []lir.Statement) []lir.Statement {
	out := make([]lir.Statement, len(stmts))
	for i, s := range stmts {
		out[i] = lvnLIRStatement(canon, table, s)
	}
	return out
}

func copyCanon(canon map[heap.PStr]heap.PStr) map[heap.PStr]heap.PStr {
	out := make(map[heap.PStr]heap.PStr, len(canon))
	for k, v := range canon {
		out[k] = v
	}
	return out
}

func lvnLIRStatement(canon map[heap.PStr]heap.PStr, table map[string]heap.PStr, s lir.Statement) lir.Statement {
	out := s
	out.E1 = canonicalizeLIRExpr(canon, s.E1)
	out.E2 = canonicalizeLIRExpr(canon, s.E2)

	switch s.Tag {
	case lir.StmtBinary, lir.StmtUnary:
		key := fmt.Sprintf("op%d:%s:%s", s.Op, lirExprKey(canon, out.E1), lirExprKey(canon, out.E2))
		if existing, ok := table[key]; ok {
			canon[s.Name] = existing
		} else {
			table[key] = s.Name
		}
	case lir.StmtIndexedAccess:
		out.Pointer = canonicalizeLIRExpr(canon, s.Pointer)
	case lir.StmtIndexedAssign:
		out.Pointer = canonicalizeLIRExpr(canon, s.Pointer)
		out.AssignedExpr = canonicalizeLIRExpr(canon, s.AssignedExpr)
	case lir.StmtCall:
		if s.CalleeVariable != nil {
			v := canonicalizeLIRExpr(canon, *s.CalleeVariable)
			out.CalleeVariable = &v
		}
		out.Arguments = make([]lir.Expr, len(s.Arguments))
		for i, a := range s.Arguments {
			out.Arguments[i] = canonicalizeLIRExpr(canon, a)
		}
	case lir.StmtIfElse:
		out.Condition = canonicalizeLIRExpr(canon, s.Condition)
		c1, c2 := copyCanon(canon), copyCanon(canon)
		out.S1 = lvnLIRStatements(c1, map[string]heap.PStr{}, s.S1)
		out.S2 = lvnLIRStatements(c2, map[string]heap.PStr{}, s.S2)
		out.FinalAssignments = make([]lir.FinalAssignment, len(s.FinalAssignments))
		for i, fa := range s.FinalAssignments {
			out.FinalAssignments[i] = lir.FinalAssignment{
				Name: fa.Name, Type: fa.Type,
				Then: canonicalizeLIRExpr(c1, fa.Then), Else: canonicalizeLIRExpr(c2, fa.Else),
			}
		}
	case lir.StmtSingleIf:
		out.Condition = canonicalizeLIRExpr(canon, s.Condition)
		c := copyCanon(canon)
		out.Statements = lvnLIRStatements(c, map[string]heap.PStr{}, s.Statements)
	case lir.StmtBreak:
		out.BreakValue = canonicalizeLIRExpr(canon, s.BreakValue)
	case lir.StmtWhile:
		loopCanon := copyCanon(canon)
		out.LoopVariables = make([]lir.LoopVariable, len(s.LoopVariables))
		for i, lv := range s.LoopVariables {
			out.LoopVariables[i] = lir.LoopVariable{
				Name: lv.Name, Type: lv.Type,
				Init: canonicalizeLIRExpr(canon, lv.Init), Next: canonicalizeLIRExpr(canon, lv.Next),
			}
		}
		out.Statements = lvnLIRStatements(loopCanon, map[string]heap.PStr{}, s.Statements)
	case lir.StmtCast:
		out.CastExpr = canonicalizeLIRExpr(canon, s.CastExpr)
	case lir.StmtLateInitAssignment:
		out.AssignedExpr = canonicalizeLIRExpr(canon, s.AssignedExpr)
	case lir.StmtStructInit:
		out.ExpressionList = make([]lir.Expr, len(s.ExpressionList))
		for i, e := range s.ExpressionList {
			out.ExpressionList[i] = canonicalizeLIRExpr(canon, e)
		}
	}
	return out
}
