package optimize

import (
	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/mir"
)

// DCEFunction drops statements whose bound name is never read and that
// have no observable side effect, working backward from the function's
// return value and its nested control-flow uses. A Call is kept even
// when its return collector is unused, since the callee may have side
// effects; IndexedAssign, IfElse, While, Break and the late-init
// statements are always kept as well (with their nested bodies pruned
// the same way), while Binary, Unary, IsPointer, IndexedAccess, Cast,
// StructInit and ClosureInit are dropped once unreferenced. This runs
// after LVN, which leaves exactly this
// situation behind: redundant bindings whose uses have all been
// rewritten to an earlier canonical name.
func DCEFunction(fn mir.Function) mir.Function {
	live := map[heap.PStr]bool{}
	markExprLive(live, fn.ReturnValue)
	fn.Body = dceStatements(live, fn.Body)
	return fn
}

func markExprLive(live map[heap.PStr]bool, e mir.Expr) {
	if e.Tag == mir.ExprVariable {
		live[e.Name] = true
	}
}

func dceStatements(live map[heap.PStr]bool, stmts []mir.Statement) []mir.Statement {
	// Walk backward so a statement's own liveness is known before we
	// decide whether the names it reads should be marked live.
	var kept []mir.Statement
	for i := len(stmts) - 1; i >= 0; i-- {
		s := stmts[i]
		if ok, rewritten := dceStatement(live, s); ok {
			kept = append(kept, rewritten)
		}
	}
	// Reverse kept back into source order.
	for l, r := 0, len(kept)-1; l < r; l, r = l+1, r-1 {
		kept[l], kept[r] = kept[r], kept[l]
	}
	return kept
}

// dceStatement decides whether s must be kept, marking the names it
// reads as live as a side effect when it is, and recursing into any
// nested statement bodies so they get the same treatment.
func dceStatement(live map[heap.PStr]bool, s mir.Statement) (bool, mir.Statement) {
	switch s.Tag {
	case mir.StmtBinary, mir.StmtUnary:
		if !live[s.Name] {
			return false, s
		}
		markExprLive(live, s.E1)
		markExprLive(live, s.E2)
		return true, s
	case mir.StmtIsPointer:
		if !live[s.Name] {
			return false, s
		}
		markExprLive(live, s.E1)
		return true, s
	case mir.StmtIndexedAccess:
		if !live[s.Name] {
			return false, s
		}
		markExprLive(live, s.Pointer)
		return true, s
	case mir.StmtCast:
		if !live[s.Name] {
			return false, s
		}
		markExprLive(live, s.CastExpr)
		return true, s
	case mir.StmtStructInit:
		if !live[s.Name] {
			return false, s
		}
		for _, e := range s.ExpressionList {
			markExprLive(live, e)
		}
		return true, s
	case mir.StmtClosureInit:
		if !live[s.Name] {
			return false, s
		}
		markExprLive(live, s.ClosureContext)
		return true, s
	case mir.StmtIndexedAssign:
		markExprLive(live, s.Pointer)
		markExprLive(live, s.AssignedExpr)
		return true, s
	case mir.StmtCall:
		if s.CalleeVariable != nil {
			markExprLive(live, *s.CalleeVariable)
		}
		for _, a := range s.Arguments {
			markExprLive(live, a)
		}
		return true, s
	case mir.StmtIfElse:
		markExprLive(live, s.Condition)
		for _, fa := range s.FinalAssignments {
			markExprLive(live, fa.Then)
			markExprLive(live, fa.Else)
		}
		branch1 := copyLive(live)
		branch2 := copyLive(live)
		s.S1 = dceStatements(branch1, s.S1)
		s.S2 = dceStatements(branch2, s.S2)
		for k := range branch1 {
			live[k] = true
		}
		for k := range branch2 {
			live[k] = true
		}
		return true, s
	case mir.StmtBreak:
		markExprLive(live, s.BreakValue)
		return true, s
	case mir.StmtWhile:
		for _, lv := range s.LoopVariables {
			markExprLive(live, lv.Init)
			markExprLive(live, lv.Next)
		}
		if s.BreakCollector != nil {
			live[s.BreakCollector.Name] = true
		}
		bodyLive := copyLive(live)
		s.Statements = dceStatements(bodyLive, s.Statements)
		for k := range bodyLive {
			live[k] = true
		}
		return true, s
	case mir.StmtLateInitDeclaration, mir.StmtLateInitAssignment:
		markExprLive(live, s.AssignedExpr)
		return true, s
	}
	return true, s
}

func copyLive(live map[heap.PStr]bool) map[heap.PStr]bool {
	out := make(map[heap.PStr]bool, len(live))
	for k, v := range live {
		out[k] = v
	}
	return out
}
