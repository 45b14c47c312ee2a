// Package optimize implements the MIR/LIR optimizer cascade of
// spec.md §4.7-§4.9: loop-invariant code motion, loop induction
// analysis with algebraic closed-form reduction, local value
// numbering, and a general dead-code elimination pass run between
// them to clean up LVN's preserved-but-now-redundant bindings.
package optimize

import (
	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/mir"
)

// LICMResult is the outcome of hoisting invariant statements out of
// one while loop (spec.md §4.7).
type LICMResult struct {
	HoistedBefore []mir.Statement
	Loop          mir.Statement // the same While, with only non-invariant statements left in its body
	NonInvariant  map[heap.PStr]bool
}

// loopVariableNames returns the set of while's declared loop-carried
// variable names.
func loopVariableNames(while mir.Statement) map[heap.PStr]bool {
	out := make(map[heap.PStr]bool, len(while.LoopVariables))
	for _, lv := range while.LoopVariables {
		out[lv.Name] = true
	}
	return out
}

// LICM hoists every statement in while.Statements whose inputs are all
// loop-invariant out of the loop body, in body order, per the
// classification rules of spec.md §4.7. while.Tag must be
// mir.StmtWhile.
func LICM(while mir.Statement) LICMResult {
	variant := loopVariableNames(while)

	var hoisted []mir.Statement
	var remaining []mir.Statement

	isInvariantExpr := func(e mir.Expr) bool {
		switch e.Tag {
		case mir.ExprIntLiteral, mir.ExprInt31Literal, mir.ExprStringName, mir.ExprFunctionName:
			return true
		case mir.ExprVariable:
			return !variant[e.Name]
		}
		return false
	}

	for _, s := range while.Statements {
		switch s.Tag {
		case mir.StmtBinary, mir.StmtUnary, mir.StmtIsPointer:
			if isInvariantExpr(s.E1) && (s.Tag != mir.StmtBinary || isInvariantExpr(s.E2)) {
				hoisted = append(hoisted, s)
			} else {
				variant[s.Name] = true
				remaining = append(remaining, s)
			}
		case mir.StmtIndexedAccess:
			if isInvariantExpr(s.Pointer) {
				hoisted = append(hoisted, s)
			} else {
				variant[s.Name] = true
				remaining = append(remaining, s)
			}
		case mir.StmtCast:
			if isInvariantExpr(s.CastExpr) {
				hoisted = append(hoisted, s)
			} else {
				variant[s.Name] = true
				remaining = append(remaining, s)
			}
		case mir.StmtStructInit:
			allInvariant := true
			for _, e := range s.ExpressionList {
				if !isInvariantExpr(e) {
					allInvariant = false
					break
				}
			}
			if allInvariant {
				hoisted = append(hoisted, s)
			} else {
				variant[s.Name] = true
				remaining = append(remaining, s)
			}
		case mir.StmtClosureInit:
			if isInvariantExpr(s.ClosureContext) {
				hoisted = append(hoisted, s)
			} else {
				variant[s.Name] = true
				remaining = append(remaining, s)
			}
		case mir.StmtLateInitDeclaration, mir.StmtLateInitAssignment:
			variant[s.Name] = true
			remaining = append(remaining, s)
		case mir.StmtIndexedAssign:
			variant[s.Name] = true
			remaining = append(remaining, s)
		case mir.StmtCall:
			if s.ReturnCollector != nil {
				variant[*s.ReturnCollector] = true
			}
			remaining = append(remaining, s)
		case mir.StmtIfElse:
			for _, fa := range s.FinalAssignments {
				variant[fa.Name] = true
			}
			remaining = append(remaining, s)
		case mir.StmtBreak:
			remaining = append(remaining, s)
		case mir.StmtWhile:
			if s.BreakCollector != nil {
				variant[s.BreakCollector.Name] = true
			}
			remaining = append(remaining, s)
		default:
			remaining = append(remaining, s)
		}
	}

	loop := while
	loop.Statements = remaining
	return LICMResult{HoistedBefore: hoisted, Loop: loop, NonInvariant: variant}
}
