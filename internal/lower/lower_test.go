package lower

import (
	"testing"

	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/hir"
	"github.com/samlang-go/samc/internal/mir"
	"github.com/samlang-go/samc/internal/symtab"
)

func TestLowerHIRToMIRNonGenericPassesThrough(t *testing.T) {
	h := heap.New()
	st := symtab.New()
	mod := heap.NewModuleReference(h, "Main")
	main := heap.FunctionName{ModuleReference: mod, Name: h.Alloc("main")}
	x := h.Alloc("x")

	fn := hir.Function{
		Name:        main,
		Parameters:  nil,
		Type:        hir.FnType(nil, hir.Int32Type()),
		Body:        []hir.Statement{{Tag: hir.StmtBinary, Name: x, Op: hir.OpPlus, E1: hir.IntLiteral(1), E2: hir.IntLiteral(2)}},
		ReturnValue: hir.Variable(x, hir.Int32Type()),
	}
	src := hir.Sources{Functions: []hir.Function{fn}, MainFunctionNames: []heap.FunctionName{main}}

	mirSrc := LowerHIRToMIR(h, st, src)
	if len(mirSrc.Functions) != 1 {
		t.Fatalf("expected one function, got %d", len(mirSrc.Functions))
	}
	got := mirSrc.Functions[0]
	if got.Name != main {
		t.Fatalf("expected non-generic function name unchanged, got %v", got.Name)
	}
	if got.Body[0].Name != x || got.Body[0].Op != mir.OpPlus {
		t.Fatalf("unexpected lowered body: %+v", got.Body[0])
	}

	lirSrc := LowerMIRToLIR(h, mirSrc)
	if len(lirSrc.Functions) != 1 || lirSrc.Functions[0].Name != main {
		t.Fatalf("expected lir function to preserve name, got %+v", lirSrc.Functions)
	}
}

func TestLowerIsPointerExpandsToMaskAndCompare(t *testing.T) {
	h := heap.New()
	mod := heap.NewModuleReference(h, "Main")
	main := heap.FunctionName{ModuleReference: mod, Name: h.Alloc("main")}
	x := h.Alloc("x")
	result := h.Alloc("isPtr")

	fn := mir.Function{
		Name: main,
		Type: mir.FnType(nil, mir.Int32Type()),
		Body: []mir.Statement{
			{Tag: mir.StmtIsPointer, Name: result, E1: mir.Variable(x, mir.Int32Type())},
		},
		ReturnValue: mir.Variable(result, mir.Int32Type()),
	}
	mirSrc := mir.Sources{Functions: []mir.Function{fn}, MainFunctionNames: []heap.FunctionName{main}}
	lirSrc := LowerMIRToLIR(h, mirSrc)
	body := lirSrc.Functions[0].Body
	if len(body) != 2 {
		t.Fatalf("expected IsPointer to expand into 2 statements, got %d", len(body))
	}
	if body[1].Name != result {
		t.Fatalf("expected second statement to bind the original result name, got %+v", body[1])
	}
}
