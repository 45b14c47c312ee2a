package unused

import (
	"testing"

	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/lir"
)

// TestDeadStringDropped checks that of two global strings, only the
// one reachable from main survives; the other is dropped.
func TestDeadStringDropped(t *testing.T) {
	h := heap.New()
	mod := heap.NewModuleReference(h, "Main")
	main := heap.FunctionName{ModuleReference: mod, Name: h.Alloc("main")}
	bar := h.Alloc("bar")
	dead := h.Alloc("fsdfsdf")

	fn := lir.Function{
		Name: main,
		Type: lir.FnType(nil, lir.Int32Type()),
		Body: []lir.Statement{
			{Tag: lir.StmtBinary, Name: h.Alloc("x"), Op: lir.OpPlus, E1: lir.StringName(bar), E2: lir.IntLiteral(0)},
		},
		ReturnValue: lir.IntLiteral(0),
	}
	src := lir.Sources{
		GlobalVariables:   []lir.GlobalString{{Name: bar, Content: bar}, {Name: dead, Content: dead}},
		MainFunctionNames: []heap.FunctionName{main},
		Functions:         []lir.Function{fn},
	}

	out := Eliminate(src)
	if len(out.GlobalVariables) != 1 || out.GlobalVariables[0].Name != bar {
		t.Fatalf("expected only the reachable string to survive, got %+v", out.GlobalVariables)
	}
}

func TestUnreachableFunctionDropped(t *testing.T) {
	h := heap.New()
	mod := heap.NewModuleReference(h, "Main")
	main := heap.FunctionName{ModuleReference: mod, Name: h.Alloc("main")}
	helper := heap.FunctionName{ModuleReference: mod, Name: h.Alloc("helper")}
	dead := heap.FunctionName{ModuleReference: mod, Name: h.Alloc("dead")}

	mainFn := lir.Function{
		Name: main, Type: lir.FnType(nil, lir.Int32Type()),
		Body: []lir.Statement{{
			Tag: lir.StmtCall, Name: h.Alloc("r"), CalleeFunctionName: &helper, ReturnType: lir.Int32Type(),
		}},
		ReturnValue: lir.Variable(h.Alloc("r"), lir.Int32Type()),
	}
	helperFn := lir.Function{Name: helper, Type: lir.FnType(nil, lir.Int32Type()), ReturnValue: lir.IntLiteral(1)}
	deadFn := lir.Function{Name: dead, Type: lir.FnType(nil, lir.Int32Type()), ReturnValue: lir.IntLiteral(2)}

	src := lir.Sources{
		MainFunctionNames: []heap.FunctionName{main},
		Functions:         []lir.Function{mainFn, helperFn, deadFn},
	}
	out := Eliminate(src)
	if len(out.Functions) != 2 {
		t.Fatalf("expected main+helper to survive, dead to be dropped; got %d functions", len(out.Functions))
	}
	for _, fn := range out.Functions {
		if fn.Name == dead {
			t.Fatalf("expected dead to be eliminated")
		}
	}
}

func TestSelfRecursiveFunctionDoesNotKeepItselfAliveAlone(t *testing.T) {
	h := heap.New()
	mod := heap.NewModuleReference(h, "Main")
	rec := heap.FunctionName{ModuleReference: mod, Name: h.Alloc("rec")}

	recFn := lir.Function{
		Name: rec, Type: lir.FnType(nil, lir.Int32Type()),
		Body: []lir.Statement{{
			Tag: lir.StmtCall, Name: h.Alloc("r"), CalleeFunctionName: &rec, ReturnType: lir.Int32Type(),
		}},
		ReturnValue: lir.Variable(h.Alloc("r"), lir.Int32Type()),
	}
	// rec is not in MainFunctionNames and only called by itself: it must
	// be eliminated despite the self-call, since self-calls are excluded
	// from the per-function use set.
	src := lir.Sources{Functions: []lir.Function{recFn}}
	out := Eliminate(src)
	if len(out.Functions) != 0 {
		t.Fatalf("expected purely self-recursive, unreferenced function to be eliminated, got %+v", out.Functions)
	}
}
