package checker

import (
	"testing"

	"github.com/samlang-go/samc/internal/ast"
	"github.com/samlang-go/samc/internal/errors"
	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/sourceparse"
)

func parseAll(t *testing.T, h *heap.Heap, sources map[string]string) map[heap.ModuleReference]*ast.Module {
	t.Helper()
	modules := make(map[heap.ModuleReference]*ast.Module, len(sources))
	for name, src := range sources {
		modRef := heap.NewModuleReference(h, name)
		mod, err := sourceparse.Parse(h, modRef, src)
		if err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		modules[modRef] = mod
	}
	return modules
}

func TestCheckModuleExhaustiveMatchNoErrors(t *testing.T) {
	h := heap.New()
	modules := parseAll(t, h, map[string]string{
		"Option": `
class Option<T> {
  enum { Some(T), None }

  public function isSome<T>(opt: Option<T>): bool = match (opt) {
    Some(x) -> true,
    None -> false,
  }
}
`,
	})
	global := BuildGlobalSignature(modules)
	errs := errors.NewSet()
	CheckImports(h, modules, errs)
	for modRef, mod := range modules {
		CheckModule(h, global, errs, modRef, mod)
	}
	if errs.HasErrors() {
		t.Fatalf("unexpected errors: %v", errs.Messages(h))
	}
}

func TestCheckModuleNonExhaustiveMatch(t *testing.T) {
	h := heap.New()
	modules := parseAll(t, h, map[string]string{
		"Option": `
class Option<T> {
  enum { Some(T), None }

  public function isSome<T>(opt: Option<T>): bool = match (opt) {
    Some(x) -> true,
  }
}
`,
	})
	global := BuildGlobalSignature(modules)
	errs := errors.NewSet()
	for modRef, mod := range modules {
		CheckModule(h, global, errs, modRef, mod)
	}
	if !errs.HasErrors() {
		t.Fatalf("expected a non-exhaustive match error")
	}
	found := false
	for _, e := range errs.Errors(h) {
		if e.Detail.Kind == errors.KindNonExhaustiveMatch {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected KindNonExhaustiveMatch, got %v", errs.Messages(h))
	}
}

func TestCheckModuleMissingExport(t *testing.T) {
	h := heap.New()
	modules := parseAll(t, h, map[string]string{
		"Foo": `
class Foo {
  public function bar(): int = 1
}
`,
		"Main": `
import { Baz } from Foo;

class Main {
  public function main(): int = 1
}
`,
	})
	errs := errors.NewSet()
	CheckImports(h, modules, errs)
	if !errs.HasErrors() {
		t.Fatalf("expected a missing-export error")
	}
	found := false
	for _, e := range errs.Errors(h) {
		if e.Detail.Kind == errors.KindMissingExport {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected KindMissingExport, got %v", errs.Messages(h))
	}
}

func TestCheckModuleFieldAccessAndArithmetic(t *testing.T) {
	h := heap.New()
	modules := parseAll(t, h, map[string]string{
		"Point": `
class Point {
  struct { x: int, y: int }

  public method sum(): int = this.x + this.y
}
`,
	})
	global := BuildGlobalSignature(modules)
	errs := errors.NewSet()
	for modRef, mod := range modules {
		CheckModule(h, global, errs, modRef, mod)
	}
	if errs.HasErrors() {
		t.Fatalf("unexpected errors: %v", errs.Messages(h))
	}
}
