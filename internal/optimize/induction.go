package optimize

import (
	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/mir"
)

// GuardOp enumerates the comparison operators a loop-exit guard may
// use.
type GuardOp int

const (
	GuardLT GuardOp = iota
	GuardLE
	GuardGT
	GuardGE
)

func guardOpFromBinary(op mir.BinaryOp) (GuardOp, bool) {
	switch op {
	case mir.OpLt:
		return GuardLT, true
	case mir.OpLe:
		return GuardLE, true
	case mir.OpGt:
		return GuardGT, true
	case mir.OpGe:
		return GuardGE, true
	}
	return 0, false
}

func flipGuardOp(op GuardOp) GuardOp {
	switch op {
	case GuardLT:
		return GuardGT
	case GuardLE:
		return GuardGE
	case GuardGT:
		return GuardLT
	case GuardGE:
		return GuardLE
	}
	return op
}

// invertGuardOp negates the comparison for when the Break sits on the
// "condition true" arm: `if i >= 20 { break } else {}` means the loop
// exits when i >= 20, so the guard used for iteration counting (the
// condition under which the loop continues) is `i < 20`.
func invertGuardOp(op GuardOp) GuardOp {
	switch op {
	case GuardLT:
		return GuardGE
	case GuardLE:
		return GuardGT
	case GuardGT:
		return GuardLE
	case GuardGE:
		return GuardLT
	}
	return op
}

// BasicInduction is a loop-carried variable whose value each iteration
// is `name + step` for a loop-invariant, here-literal, step.
type BasicInduction struct {
	Name heap.PStr
	Init int32
	Step int32
}

// GeneralInduction is a loop-carried variable stepped by a
// loop-invariant amount that need not be a literal (spec.md §4.8 step
// 4's second sub-case), running alongside the guard-driving
// BasicInduction but playing no part in the loop's exit test. Its
// final value after N iterations is Init + Increment*N.
type GeneralInduction struct {
	Name      heap.PStr
	Init      mir.Expr
	Increment mir.Expr
}

// guardedLoop is the recognized shape of an empty-bodied counted loop:
// a single integer-literal-stepped loop variable driving the guard
// test, zero or more further loop variables each stepped by a
// loop-invariant amount but uninvolved in the guard, tested each
// iteration by a guarded break comparing the guard variable to a
// literal, with no other statements left in the body once the guard
// test and the induction updates are accounted for. Run this only
// after LICM has hoisted everything else it could.
type guardedLoop struct {
	Induction  BasicInduction
	General    []GeneralInduction
	Op         GuardOp
	Guard      int32
	BreakValue mir.Expr
}

// recognizeGuardedLoop matches the shape this core's HIR->MIR lowering
// produces for a source `while cond { ...; i = i + step }` loop: one
// loop variable drives the guard comparison with a literal init, step,
// and guard value; any other loop variables are tolerated only if each
// is stepped by a loop-invariant amount (literalStep's literal case or
// a loop-invariant variable) and plays no part in the guard test. A
// Binary comparison, an IfElse with a lone Break on one arm, and one
// Binary step statement per loop variable must be the loop's entire
// body. Any other shape — extra statements, a non-literal guard step
// or guard value, a loop variable stepped by something variant —
// returns ok=false and the loop is left to the general optimizer
// passes instead.
func recognizeGuardedLoop(while mir.Statement) (guardedLoop, bool) {
	if len(while.LoopVariables) == 0 {
		return guardedLoop{}, false
	}
	body := while.Statements
	if len(body) != 2+len(while.LoopVariables) {
		return guardedLoop{}, false
	}
	cmp, ifElse, steps := body[0], body[1], body[2:]
	if cmp.Tag != mir.StmtBinary || ifElse.Tag != mir.StmtIfElse {
		return guardedLoop{}, false
	}
	if ifElse.Condition.Tag != mir.ExprVariable || ifElse.Condition.Name != cmp.Name {
		return guardedLoop{}, false
	}

	guardIdx := -1
	for i, lv := range while.LoopVariables {
		if (cmp.E1.Tag == mir.ExprVariable && cmp.E1.Name == lv.Name) ||
			(cmp.E2.Tag == mir.ExprVariable && cmp.E2.Name == lv.Name) {
			guardIdx = i
			break
		}
	}
	if guardIdx == -1 {
		return guardedLoop{}, false
	}
	guardLV := while.LoopVariables[guardIdx]
	if guardLV.Init.Tag != mir.ExprIntLiteral {
		return guardedLoop{}, false
	}

	usedSteps := make([]bool, len(steps))
	stepFor := func(lv mir.LoopVariable) (mir.Statement, bool) {
		if lv.Next.Tag != mir.ExprVariable {
			return mir.Statement{}, false
		}
		for i, s := range steps {
			if usedSteps[i] || s.Tag != mir.StmtBinary || s.Name != lv.Next.Name {
				continue
			}
			usedSteps[i] = true
			return s, true
		}
		return mir.Statement{}, false
	}

	guardStep, ok := stepFor(guardLV)
	if !ok {
		return guardedLoop{}, false
	}
	stepAmount, ok := literalStep(guardLV.Name, guardStep)
	if !ok {
		return guardedLoop{}, false
	}

	invert := false
	var brk mir.Statement
	switch {
	case len(ifElse.S1) == 1 && ifElse.S1[0].Tag == mir.StmtBreak && len(ifElse.S2) == 0:
		// Break on the then-arm: the loop exits when cmp is true, so the
		// counting guard (the condition under which the loop continues)
		// is the negation of cmp's operator.
		brk = ifElse.S1[0]
		invert = true
	case len(ifElse.S2) == 1 && ifElse.S2[0].Tag == mir.StmtBreak && len(ifElse.S1) == 0:
		// Break on the else-arm: the loop exits when cmp is false, so
		// cmp's operator already is the continuation guard.
		brk = ifElse.S2[0]
	default:
		return guardedLoop{}, false
	}

	op, ok := guardOpFromBinary(cmp.Op)
	if !ok {
		return guardedLoop{}, false
	}
	var guardLit mir.Expr
	switch {
	case cmp.E1.Tag == mir.ExprVariable && cmp.E1.Name == guardLV.Name:
		guardLit = cmp.E2
	case cmp.E2.Tag == mir.ExprVariable && cmp.E2.Name == guardLV.Name:
		guardLit = cmp.E1
		op = flipGuardOp(op)
	default:
		return guardedLoop{}, false
	}
	if guardLit.Tag != mir.ExprIntLiteral {
		return guardedLoop{}, false
	}
	if invert {
		op = invertGuardOp(op)
	}

	variant := loopVariableNames(while)
	var general []GeneralInduction
	for i, lv := range while.LoopVariables {
		if i == guardIdx {
			continue
		}
		s, ok := stepFor(lv)
		if !ok {
			return guardedLoop{}, false
		}
		inc, ok := invariantIncrement(lv.Name, s, variant)
		if !ok {
			return guardedLoop{}, false
		}
		general = append(general, GeneralInduction{Name: lv.Name, Init: lv.Init, Increment: inc})
	}
	for _, used := range usedSteps {
		if !used {
			return guardedLoop{}, false
		}
	}

	return guardedLoop{
		Induction:  BasicInduction{Name: guardLV.Name, Init: guardLV.Init.IntValue, Step: stepAmount},
		General:    general,
		Op:         op,
		Guard:      guardLit.IntValue,
		BreakValue: brk.BreakValue,
	}, true
}

// invariantIncrement recognizes `name + inc`, `inc + name` (OpPlus) or
// `name - k` (OpMinus, k a literal) in a Binary statement, where inc
// may be any expression not touching a loop-carried variable —
// broader than literalStep, which the guard variable's step must
// satisfy for IterationCount's closed-form math but a general
// induction variable's increment need not.
func invariantIncrement(name heap.PStr, s mir.Statement, variant map[heap.PStr]bool) (mir.Expr, bool) {
	isName := func(e mir.Expr) bool { return e.Tag == mir.ExprVariable && e.Name == name }
	isInvariant := func(e mir.Expr) bool {
		switch e.Tag {
		case mir.ExprIntLiteral, mir.ExprInt31Literal, mir.ExprStringName, mir.ExprFunctionName:
			return true
		case mir.ExprVariable:
			return !variant[e.Name]
		}
		return false
	}
	switch s.Op {
	case mir.OpPlus:
		if isName(s.E1) && isInvariant(s.E2) {
			return s.E2, true
		}
		if isName(s.E2) && isInvariant(s.E1) {
			return s.E1, true
		}
	case mir.OpMinus:
		if isName(s.E1) && s.E2.Tag == mir.ExprIntLiteral {
			return mir.IntLiteral(-s.E2.IntValue), true
		}
	}
	return mir.Expr{}, false
}

// literalStep recognizes `name + k`, `k + name` (OpPlus) or `name - k`
// (OpMinus, returned negated) in a Binary statement, requiring k to be
// a literal.
func literalStep(name heap.PStr, s mir.Statement) (int32, bool) {
	isName := func(e mir.Expr) bool { return e.Tag == mir.ExprVariable && e.Name == name }
	switch s.Op {
	case mir.OpPlus:
		if isName(s.E1) && s.E2.Tag == mir.ExprIntLiteral {
			return s.E2.IntValue, true
		}
		if isName(s.E2) && s.E1.Tag == mir.ExprIntLiteral {
			return s.E1.IntValue, true
		}
	case mir.OpMinus:
		if isName(s.E1) && s.E2.Tag == mir.ExprIntLiteral {
			return -s.E2.IntValue, true
		}
	}
	return 0, false
}

// IterationCount computes the number of times the loop body runs,
// reducing GT/GE to LT/LE by sign negation. ok=false means the formula
// is undefined
// (e.g. a non-positive step with a guard that would never terminate)
// and the caller must abort the algebraic reduction.
func IterationCount(op GuardOp, init, guard, step int32) (n int64, ok bool) {
	switch op {
	case GuardLT:
		return ltCount(init, guard, step)
	case GuardLE:
		return ltCount(init, guard+1, step)
	case GuardGT:
		return ltCount(-init, -guard, -step)
	case GuardGE:
		return ltCount(-init, -guard+1, -step)
	}
	return 0, false
}

func ltCount(init, guard, step int32) (int64, bool) {
	if step <= 0 {
		return 0, false
	}
	if init >= guard {
		return 0, true
	}
	diff := int64(guard) - int64(init)
	n := diff / int64(step)
	if diff%int64(step) != 0 {
		n++
	}
	return n, true
}

// AlgebraicReduce implements spec.md §4.8's closed-form reduction: if
// while recognizably counts from a literal init to a literal guard by
// a literal step, and every other loop-carried variable is a general
// induction variable (stepped by a loop-invariant amount), it computes the
// iteration count N and replaces the entire loop with (at most) a
// couple of straight-line statements materializing the break
// collector's final value — or nothing at all, if the loop's value is
// never observed. ok=false means the loop doesn't match the required
// shape and must be left for other optimizer passes.
func AlgebraicReduce(while mir.Statement, freshName func() heap.PStr) ([]mir.Statement, bool) {
	g, ok := recognizeGuardedLoop(while)
	if !ok {
		return nil, false
	}
	n, ok := IterationCount(g.Op, g.Induction.Init, g.Guard, g.Induction.Step)
	if !ok {
		return nil, false
	}
	if while.BreakCollector == nil {
		return nil, true // loop's value is never observed; drop it entirely.
	}
	collector := while.BreakCollector.Name

	// finalGuardVar is the guard variable's value on loop exit:
	// init + step*N, computed in (unchecked, per spec's open question)
	// 32-bit arithmetic.
	finalGuardVar := g.Induction.Init + g.Induction.Step*int32(n)

	switch {
	case g.BreakValue.Tag == mir.ExprVariable && g.BreakValue.Name == g.Induction.Name:
		return []mir.Statement{{
			Tag: mir.StmtBinary, Name: collector, Op: mir.OpPlus,
			E1: mir.IntLiteral(finalGuardVar), E2: mir.IntLiteral(0),
		}}, true
	default:
		for _, gi := range g.General {
			if g.BreakValue.Tag != mir.ExprVariable || g.BreakValue.Name != gi.Name {
				continue
			}
			// Break value tracks a general induction variable: its final
			// value is Init + Increment*N, computed with one multiply and
			// one add rather than materialized as-is.
			tmp := freshName()
			return []mir.Statement{
				{Tag: mir.StmtBinary, Name: tmp, Op: mir.OpMul, E1: gi.Increment, E2: mir.IntLiteral(int32(n))},
				{Tag: mir.StmtBinary, Name: collector, Op: mir.OpPlus, E1: gi.Init, E2: mir.Variable(tmp, mir.Int32Type())},
			}, true
		}
		// Break value is unrelated to any induction variable (a constant,
		// or some other loop-invariant expression): materialize it as-is.
		return []mir.Statement{{
			Tag: mir.StmtBinary, Name: collector, Op: mir.OpPlus,
			E1: g.BreakValue, E2: mir.IntLiteral(0),
		}}, true
	}
}
