package langserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samlang-go/samc/internal/ast"
	"github.com/samlang-go/samc/internal/heap"
)

func newTestServer() (*LanguageServer, *heap.Heap) {
	h := heap.New()
	return New(h, DefaultConfig()), h
}

// TestUpdateClearsMissingExportOnFix walks the samlang-services
// update_tests scenario: module Foo exports a name Bar imports, Bar
// has no errors; editing Foo to drop that export makes Bar fail with
// MissingExport; editing Foo again to restore the export clears Bar's
// error without anyone touching Bar's own source again — the
// "explicitly insert an empty diagnostic list for a recheck_set member
// absent from the freshly grouped errors" behavior server_state.rs's
// `recheck` documents.
func TestUpdateClearsMissingExportOnFix(t *testing.T) {
	s, h := newTestServer()
	foo := heap.NewModuleReference(h, "Foo")
	bar := heap.NewModuleReference(h, "Bar")

	fooWithExport := `
class Foo {
  public function id(x: int): int = x
}
`
	barImportingFoo := `
import { Foo } from Foo;
class Bar {
  public function use(x: int): int = x
}
`
	s.Update([]SourceUpdate{
		{Module: foo, Text: fooWithExport},
		{Module: bar, Text: barImportingFoo},
	})
	require.Empty(t, s.GetErrors(bar), "Bar should check cleanly while Foo exports the class")

	fooWithoutExport := `
class Baz {
  public function id(x: int): int = x
}
`
	s.Update([]SourceUpdate{{Module: foo, Text: fooWithoutExport}})
	barErrs := s.GetErrors(bar)
	require.NotEmpty(t, barErrs, "Bar's import of Foo.Foo should now fail to resolve")

	s.Update([]SourceUpdate{{Module: foo, Text: fooWithExport}})
	assert.Empty(t, s.GetErrors(bar), "restoring the export should clear Bar's stale diagnostic")
}

// TestRecheckOnlyTouchesAffectedModules confirms the affected set is
// exactly the edited module's transitive importers: a module that
// neither imports nor is imported by the edited module keeps its
// check result from before the edit (property 9, spec.md §8).
func TestRecheckOnlyTouchesAffectedModules(t *testing.T) {
	s, h := newTestServer()
	a := heap.NewModuleReference(h, "A")
	b := heap.NewModuleReference(h, "B")
	unrelated := heap.NewModuleReference(h, "Unrelated")

	s.Update([]SourceUpdate{
		{Module: a, Text: "class A {\n  public function f(x: int): int = x\n}\n"},
		{Module: b, Text: "import { A } from A;\nclass B {\n  public function g(x: int): int = x\n}\n"},
		{Module: unrelated, Text: "class C {\n  public function h(x: int): int = x\n}\n"},
	})
	require.Empty(t, s.GetErrors(unrelated))
	beforeResult := s.CheckResultFor(unrelated)
	require.NotNil(t, beforeResult)

	s.Update([]SourceUpdate{{Module: a, Text: "class A {\n  public function f(x: bool): bool = x\n}\n"}})
	afterResult := s.CheckResultFor(unrelated)
	assert.Same(t, beforeResult, afterResult, "editing A must not recheck an unrelated module")
}

// TestRenameModulePropagatesToImporters mirrors server_state.rs's
// rename_mod_ref_tests: renaming a module that something else imports
// must make the importer's stale `import ... from <old name>` fail to
// resolve, since nothing resolves to the old reference anymore.
func TestRenameModulePropagatesToImporters(t *testing.T) {
	s, h := newTestServer()
	oldFoo := heap.NewModuleReference(h, "Foo")
	newFoo := heap.NewModuleReference(h, "Foo2")
	bar := heap.NewModuleReference(h, "Bar")

	s.Update([]SourceUpdate{
		{Module: oldFoo, Text: "class Foo {\n  public function id(x: int): int = x\n}\n"},
		{Module: bar, Text: "import { Foo } from Foo;\nclass Bar {\n  public function use(x: int): int = x\n}\n"},
	})
	require.Empty(t, s.GetErrors(bar))

	s.RenameModule([]ModuleRename{{Old: oldFoo, New: newFoo}})
	assert.NotEmpty(t, s.GetErrors(bar), "Bar's import now points at a module reference nothing provides")
	assert.Nil(t, s.ModuleAST(oldFoo), "old module reference should no longer resolve to source")
	assert.NotNil(t, s.ModuleAST(newFoo), "new module reference should carry the renamed module's source")
}

// TestRemovePropagatesMissingModule confirms Remove makes importers of
// the removed module fail with CannotResolveModule.
func TestRemovePropagatesMissingModule(t *testing.T) {
	s, h := newTestServer()
	foo := heap.NewModuleReference(h, "Foo")
	bar := heap.NewModuleReference(h, "Bar")

	s.Update([]SourceUpdate{
		{Module: foo, Text: "class Foo {\n  public function id(x: int): int = x\n}\n"},
		{Module: bar, Text: "import { Foo } from Foo;\nclass Bar {\n  public function use(x: int): int = x\n}\n"},
	})
	require.Empty(t, s.GetErrors(bar))

	s.Remove([]heap.ModuleReference{foo})
	assert.NotEmpty(t, s.GetErrors(bar))
}

// TestInvalidSyntaxReportsAndClears ensures a module that fails to
// parse reports a single InvalidSyntax diagnostic and drops out of
// AllModules, and recovers once fixed.
func TestInvalidSyntaxReportsAndClears(t *testing.T) {
	s, h := newTestServer()
	foo := heap.NewModuleReference(h, "Foo")

	s.Update([]SourceUpdate{{Module: foo, Text: "class Foo {"}})
	errs := s.GetErrors(foo)
	require.Len(t, errs, 1)
	assert.Equal(t, "PAR001", errs[0].Detail.Code())
	assert.Nil(t, s.ModuleAST(foo))

	s.Update([]SourceUpdate{{Module: foo, Text: "class Foo {\n  public function id(x: int): int = x\n}\n"}})
	assert.Empty(t, s.GetErrors(foo))
	assert.NotNil(t, s.ModuleAST(foo))
}

// TestGCSoundnessKeepsLiveModuleNamesInterned runs enough recheck/GC
// cycles that, were a live ModuleReference's own path text swept,
// PrettyPrint would panic reading a freed entry — the Go analogue of
// gc.rs's mark_coverage_test, which asserts heap.debug_unmarked_strings
// is empty after enough perform_gc_after_recheck calls.
func TestGCSoundnessKeepsLiveModuleNamesInterned(t *testing.T) {
	s, h := newTestServer()
	mods := make([]heap.ModuleReference, 0, 5)
	for i := 0; i < 5; i++ {
		name := "Mod" + string(rune('A'+i))
		mods = append(mods, heap.NewModuleReference(h, name))
	}
	updates := make([]SourceUpdate, 0, len(mods))
	for _, m := range mods {
		updates = append(updates, SourceUpdate{Module: m, Text: "class Foo {\n  public function id(x: int): int = x\n}\n"})
	}
	s.Update(updates)

	for round := 0; round < 20; round++ {
		for _, m := range mods {
			s.Update([]SourceUpdate{{Module: m, Text: "class Foo {\n  public function id(x: int): int = x\n}\n"}})
		}
	}

	for _, m := range mods {
		assert.NotPanics(t, func() { m.PrettyPrint(h) })
	}
}

func TestDependencyGraphAffectedSetIsTransitive(t *testing.T) {
	h := heap.New()
	a := heap.NewModuleReference(h, "A")
	b := heap.NewModuleReference(h, "B")
	c := heap.NewModuleReference(h, "C")
	parsed := map[heap.ModuleReference]*ast.Module{
		a: {},
		b: {Imports: []ast.Import{{ImportedModule: a}}},
		c: {Imports: []ast.Import{{ImportedModule: b}}},
	}
	g := newDependencyGraph(parsed)
	affected := g.affectedSet([]heap.ModuleReference{a})
	assert.True(t, affected[a])
	assert.True(t, affected[b])
	assert.True(t, affected[c], "C imports B which imports A, so editing A must affect C transitively")
}
