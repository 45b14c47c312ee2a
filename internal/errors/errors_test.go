package errors

import (
	"testing"

	"github.com/samlang-go/samc/internal/ast"
	"github.com/samlang-go/samc/internal/heap"
)

func TestErrorsSortedByLocationThenCode(t *testing.T) {
	h := heap.New()
	mod := heap.NewModuleReference(h, "A")
	n1 := h.Alloc("x")
	n2 := h.Alloc("y")

	set := NewSet()
	set.ReportCannotResolveName(ast.Location{Module: mod, Start: ast.Position{Line: 5}}, n2)
	set.ReportCannotResolveName(ast.Location{Module: mod, Start: ast.Position{Line: 1}}, n1)

	sorted := set.Errors(h)
	if len(sorted) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(sorted))
	}
	if sorted[0].Location.Start.Line != 1 || sorted[1].Location.Start.Line != 5 {
		t.Fatalf("errors not sorted by location: %+v", sorted)
	}
}

func TestGroupByModule(t *testing.T) {
	h := heap.New()
	a := heap.NewModuleReference(h, "A")
	b := heap.NewModuleReference(h, "B")
	name := h.Alloc("x")

	set := NewSet()
	set.ReportCannotResolveName(ast.Location{Module: a}, name)
	set.ReportCannotResolveName(ast.Location{Module: b}, name)

	grouped := set.GroupByModule(h)
	if len(grouped[a]) != 1 || len(grouped[b]) != 1 {
		t.Fatalf("expected one error per module, got %+v", grouped)
	}
}

func TestPrettyPrintIncludesCode(t *testing.T) {
	h := heap.New()
	mod := heap.NewModuleReference(h, "A")
	name := h.Alloc("foo")
	set := NewSet()
	set.ReportCannotResolveName(ast.Location{Module: mod}, name)
	msgs := set.Messages(h)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message")
	}
	if want := CodeCannotResolveName; !contains(msgs[0], want) {
		t.Fatalf("expected message to contain code %s, got %q", want, msgs[0])
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
