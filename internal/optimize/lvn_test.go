package optimize

import (
	"testing"

	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/mir"
)

func TestLVNRewritesRedundantBinaryToCanonicalName(t *testing.T) {
	h := heap.New()
	a := h.Alloc("a")
	b := h.Alloc("b")
	c := h.Alloc("c")
	x := h.Alloc("x")

	fn := mir.Function{
		Body: []mir.Statement{
			{Tag: mir.StmtBinary, Name: a, Op: mir.OpPlus, E1: mir.IntLiteral(1), E2: mir.IntLiteral(2)},
			{Tag: mir.StmtBinary, Name: b, Op: mir.OpPlus, E1: mir.IntLiteral(1), E2: mir.IntLiteral(2)},
			{Tag: mir.StmtBinary, Name: c, Op: mir.OpPlus, E1: mir.Variable(b, mir.Int32Type()), E2: mir.IntLiteral(0)},
		},
		ReturnValue: mir.Variable(x, mir.Int32Type()),
	}

	out := LVNFunction(fn)
	if out.Body[1].Name != b {
		t.Fatalf("LVN must not rename the binding itself, got %+v", out.Body[1])
	}
	if out.Body[2].E1.Name != a {
		t.Fatalf("expected the redundant computation's use to be rewritten to the first (canonical) binding %d, got %d", a, out.Body[2].E1.Name)
	}
}

func TestLVNBranchTablesDoNotLeakAcrossIfElse(t *testing.T) {
	h := heap.New()
	cond := h.Alloc("cond")
	thenVal := h.Alloc("then_val")
	elseVal := h.Alloc("else_val")
	after := h.Alloc("after")

	fn := mir.Function{
		Body: []mir.Statement{
			{
				Tag:       mir.StmtIfElse,
				Condition: mir.Variable(cond, mir.Int32Type()),
				S1: []mir.Statement{
					{Tag: mir.StmtBinary, Name: thenVal, Op: mir.OpPlus, E1: mir.IntLiteral(1), E2: mir.IntLiteral(2)},
				},
				S2: []mir.Statement{
					{Tag: mir.StmtBinary, Name: elseVal, Op: mir.OpPlus, E1: mir.IntLiteral(1), E2: mir.IntLiteral(2)},
				},
			},
			// Same computation again, outside the IfElse: must NOT be
			// treated as redundant against either branch's table.
			{Tag: mir.StmtBinary, Name: after, Op: mir.OpPlus, E1: mir.IntLiteral(1), E2: mir.IntLiteral(2)},
		},
		ReturnValue: mir.Variable(after, mir.Int32Type()),
	}

	out := LVNFunction(fn)
	if out.ReturnValue.Name != after {
		t.Fatalf("a branch's value-number table must not leak past the IfElse, got return value %d", out.ReturnValue.Name)
	}
}

func TestLVNCallInvalidatesMemoryButNotBinaryEntries(t *testing.T) {
	h := heap.New()
	ptr := h.Alloc("ptr")
	field := h.Alloc("field")
	sum := h.Alloc("sum")
	field2 := h.Alloc("field2")
	sum2 := h.Alloc("sum2")
	useField2 := h.Alloc("use_field2")
	fn := h.Alloc("some_fn")

	idType := mir.IdType(0)

	fn2 := mir.Function{
		Body: []mir.Statement{
			{Tag: mir.StmtBinary, Name: sum, Op: mir.OpPlus, E1: mir.IntLiteral(3), E2: mir.IntLiteral(4)},
			{Tag: mir.StmtIndexedAccess, Name: field, PointerType: idType, Pointer: mir.Variable(ptr, idType), Index: 0},
			{Tag: mir.StmtCall, CalleeFunctionName: &heap.FunctionName{Name: fn}, Arguments: nil},
			{Tag: mir.StmtIndexedAccess, Name: field2, PointerType: idType, Pointer: mir.Variable(ptr, idType), Index: 0},
			{Tag: mir.StmtBinary, Name: sum2, Op: mir.OpPlus, E1: mir.IntLiteral(3), E2: mir.IntLiteral(4)},
			{Tag: mir.StmtBinary, Name: useField2, Op: mir.OpPlus, E1: mir.Variable(field2, mir.Int32Type()), E2: mir.IntLiteral(0)},
		},
		ReturnValue: mir.Variable(sum2, mir.Int32Type()),
	}

	out := LVNFunction(fn2)
	if out.Body[5].E1.Name != field2 {
		t.Fatalf("a Call must invalidate prior memory reads, so the repeated load must not be folded, got %+v", out.Body[5])
	}
	if out.ReturnValue.Name != sum {
		t.Fatalf("a Call must not invalidate pure binary entries, expected the second sum computation folded to %d, got %d", sum, out.ReturnValue.Name)
	}
}
