package langserver

import (
	"testing"

	"github.com/samlang-go/samc/internal/ast"
	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/sourceparse"
)

func TestRunGCDoesNotSweepReachableNames(t *testing.T) {
	h := heap.New()
	modRef := heap.NewModuleReference(h, "Foo")
	m, err := sourceparse.Parse(h, modRef, "class Foo {\n  public function id(x: int): int = x\n}\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	parsed := map[heap.ModuleReference]*ast.Module{modRef: m}

	for i := 0; i < 3; i++ {
		runGC(h, DefaultConfig().GC, parsed, map[heap.ModuleReference]bool{modRef: true})
	}

	if got := modRef.PrettyPrint(h); got != "Foo" {
		t.Fatalf("module path text swept despite being reachable, got %q", got)
	}
}
