package optimize

import (
	"testing"

	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/mir"
)

func TestDCEDropsUnusedPureBinding(t *testing.T) {
	h := heap.New()
	dead := h.Alloc("dead")
	live := h.Alloc("live")

	fn := mir.Function{
		Body: []mir.Statement{
			{Tag: mir.StmtBinary, Name: dead, Op: mir.OpPlus, E1: mir.IntLiteral(1), E2: mir.IntLiteral(2)},
			{Tag: mir.StmtBinary, Name: live, Op: mir.OpPlus, E1: mir.IntLiteral(3), E2: mir.IntLiteral(4)},
		},
		ReturnValue: mir.Variable(live, mir.Int32Type()),
	}

	out := DCEFunction(fn)
	if len(out.Body) != 1 || out.Body[0].Name != live {
		t.Fatalf("expected only the live binding to survive, got %+v", out.Body)
	}
}

func TestDCEKeepsCallEvenWithUnusedReturnCollector(t *testing.T) {
	h := heap.New()
	ret := h.Alloc("ret")
	fnName := h.Alloc("some_fn")

	fn := mir.Function{
		Body: []mir.Statement{
			{Tag: mir.StmtCall, CalleeFunctionName: &heap.FunctionName{Name: fnName}, ReturnCollector: &ret},
		},
		ReturnValue: mir.IntLiteral(0),
	}

	out := DCEFunction(fn)
	if len(out.Body) != 1 {
		t.Fatalf("a Call must be kept even when its result is unused, got %+v", out.Body)
	}
}
