package optimize

import (
	"testing"

	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/mir"
)

// TestAlgebraicReduceS1 checks that a loop counting i from 5 to 20,
// one step at a time, reduces to `sum = 20 + 0`.
func TestAlgebraicReduceS1(t *testing.T) {
	h := heap.New()
	i := h.Alloc("i")
	sum := h.Alloc("sum")
	cond := h.Alloc("cond")
	iNext := h.Alloc("i_next")

	while := mir.Statement{
		Tag: mir.StmtWhile,
		LoopVariables: []mir.LoopVariable{
			{Name: i, Type: mir.Int32Type(), Init: mir.IntLiteral(5), Next: mir.Variable(iNext, mir.Int32Type())},
		},
		Statements: []mir.Statement{
			{Tag: mir.StmtBinary, Name: cond, Op: mir.OpGe, E1: mir.Variable(i, mir.Int32Type()), E2: mir.IntLiteral(20)},
			{
				Tag:       mir.StmtIfElse,
				Condition: mir.Variable(cond, mir.Int32Type()),
				S1:        []mir.Statement{{Tag: mir.StmtBreak, BreakValue: mir.Variable(i, mir.Int32Type())}},
				S2:        nil,
			},
			{Tag: mir.StmtBinary, Name: iNext, Op: mir.OpPlus, E1: mir.Variable(i, mir.Int32Type()), E2: mir.IntLiteral(1)},
		},
		BreakCollector: &mir.BreakCollector{Name: sum, Type: mir.Int32Type()},
	}

	out, ok := AlgebraicReduce(while, nil)
	if !ok {
		t.Fatalf("expected the loop to match the algebraic-reduction shape")
	}
	if len(out) != 1 {
		t.Fatalf("expected exactly one replacement statement, got %d", len(out))
	}
	s := out[0]
	if s.Name != sum || s.Op != mir.OpPlus || s.E1.IntValue != 20 || s.E2.IntValue != 0 {
		t.Fatalf("expected `sum = 20 + 0`, got %+v", s)
	}
}

// TestAlgebraicReduceGeneralInduction checks that a second loop
// variable stepped by a loop-invariant (non-literal) amount, whose
// value the break collector observes instead of the guard variable,
// reduces to `tmp = outside * 15; bc = jInit + tmp`.
func TestAlgebraicReduceGeneralInduction(t *testing.T) {
	h := heap.New()
	i := h.Alloc("i")
	j := h.Alloc("j")
	jInit := h.Alloc("j_init")
	outside := h.Alloc("outside")
	cond := h.Alloc("cond")
	iNext := h.Alloc("i_next")
	jNext := h.Alloc("j_next")
	bc := h.Alloc("bc")

	while := mir.Statement{
		Tag: mir.StmtWhile,
		LoopVariables: []mir.LoopVariable{
			{Name: i, Type: mir.Int32Type(), Init: mir.IntLiteral(5), Next: mir.Variable(iNext, mir.Int32Type())},
			{Name: j, Type: mir.Int32Type(), Init: mir.Variable(jInit, mir.Int32Type()), Next: mir.Variable(jNext, mir.Int32Type())},
		},
		Statements: []mir.Statement{
			{Tag: mir.StmtBinary, Name: cond, Op: mir.OpGe, E1: mir.Variable(i, mir.Int32Type()), E2: mir.IntLiteral(20)},
			{
				Tag:       mir.StmtIfElse,
				Condition: mir.Variable(cond, mir.Int32Type()),
				S1:        []mir.Statement{{Tag: mir.StmtBreak, BreakValue: mir.Variable(j, mir.Int32Type())}},
				S2:        nil,
			},
			{Tag: mir.StmtBinary, Name: iNext, Op: mir.OpPlus, E1: mir.Variable(i, mir.Int32Type()), E2: mir.IntLiteral(1)},
			{Tag: mir.StmtBinary, Name: jNext, Op: mir.OpPlus, E1: mir.Variable(j, mir.Int32Type()), E2: mir.Variable(outside, mir.Int32Type())},
		},
		BreakCollector: &mir.BreakCollector{Name: bc, Type: mir.Int32Type()},
	}

	names := []heap.PStr{h.Alloc("_t0")}
	next := 0
	freshName := func() heap.PStr {
		n := names[next]
		next++
		return n
	}

	out, ok := AlgebraicReduce(while, freshName)
	if !ok {
		t.Fatalf("expected the loop to match the algebraic-reduction shape")
	}
	if len(out) != 2 {
		t.Fatalf("expected exactly two replacement statements, got %d", len(out))
	}
	mul, add := out[0], out[1]
	if mul.Name != names[0] || mul.Op != mir.OpMul || mul.E1.Name != outside || mul.E2.IntValue != 15 {
		t.Fatalf("expected `_t0 = outside * 15`, got %+v", mul)
	}
	if add.Name != bc || add.Op != mir.OpPlus || add.E1.Name != jInit || add.E2.Name != names[0] {
		t.Fatalf("expected `bc = j_init + _t0`, got %+v", add)
	}
}

func TestIterationCountLTExactAndCeiling(t *testing.T) {
	if n, ok := IterationCount(GuardLT, 5, 20, 1); !ok || n != 15 {
		t.Fatalf("expected 15 iterations, got %d ok=%v", n, ok)
	}
	if n, ok := IterationCount(GuardLT, 0, 10, 3); !ok || n != 4 {
		t.Fatalf("expected ceil(10/3)=4, got %d ok=%v", n, ok)
	}
	if n, ok := IterationCount(GuardLT, 20, 5, 1); !ok || n != 0 {
		t.Fatalf("expected 0 iterations when init >= guard, got %d ok=%v", n, ok)
	}
}

func TestIterationCountGEMirrorsLE(t *testing.T) {
	// i starts at 20, decrements by 1, loop continues while i >= 0:
	// iterations 20,19,...,0 => 21 steps before exit.
	if n, ok := IterationCount(GuardGE, 20, 0, -1); !ok || n != 21 {
		t.Fatalf("expected 21 iterations, got %d ok=%v", n, ok)
	}
}

func TestLICMHoistsConstantComputation(t *testing.T) {
	h := heap.New()
	i := h.Alloc("i")
	invariantTmp := h.Alloc("tmp")
	iNext := h.Alloc("i_next")

	while := mir.Statement{
		Tag: mir.StmtWhile,
		LoopVariables: []mir.LoopVariable{
			{Name: i, Type: mir.Int32Type(), Init: mir.IntLiteral(0), Next: mir.Variable(iNext, mir.Int32Type())},
		},
		Statements: []mir.Statement{
			{Tag: mir.StmtBinary, Name: invariantTmp, Op: mir.OpPlus, E1: mir.IntLiteral(1), E2: mir.IntLiteral(2)},
			{Tag: mir.StmtBinary, Name: iNext, Op: mir.OpPlus, E1: mir.Variable(i, mir.Int32Type()), E2: mir.Variable(invariantTmp, mir.Int32Type())},
		},
	}

	res := LICM(while)
	if len(res.HoistedBefore) != 1 || res.HoistedBefore[0].Name != invariantTmp {
		t.Fatalf("expected the constant computation to be hoisted, got %+v", res.HoistedBefore)
	}
	if len(res.Loop.Statements) != 1 {
		t.Fatalf("expected only the loop-variant update to remain, got %+v", res.Loop.Statements)
	}
}
