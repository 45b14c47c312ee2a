package irtest_test

import (
	"testing"

	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/hir"
	"github.com/samlang-go/samc/internal/irtest"
	"github.com/samlang-go/samc/internal/symtab"
)

func TestEqualIgnoresDistinctSymbolTables(t *testing.T) {
	h := heap.New()
	want := hir.Sources{
		SymbolTable:       symtab.New(),
		MainFunctionNames: []heap.FunctionName{{Name: h.Alloc("main")}},
	}
	got := hir.Sources{
		SymbolTable:       symtab.New(),
		MainFunctionNames: []heap.FunctionName{{Name: h.Alloc("main")}},
	}
	irtest.Equal(t, want, got)
}

func TestDiffReportsRealMismatch(t *testing.T) {
	h := heap.New()
	want := hir.Sources{MainFunctionNames: []heap.FunctionName{{Name: h.Alloc("main")}}}
	got := hir.Sources{MainFunctionNames: []heap.FunctionName{{Name: h.Alloc("other")}}}
	if diff := irtest.Diff(want, got); diff == "" {
		t.Fatal("expected a non-empty diff for mismatched function names")
	}
}
