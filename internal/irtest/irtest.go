// Package irtest provides go-cmp-based deep-equality helpers for IR
// tests: structural comparison of whole hir/mir/lir Sources trees with
// a clear diff on mismatch, instead of a hand-rolled recursive
// equality check or a brittle %+v string comparison. The IR packages'
// own tests do not call these helpers; only this package's tests do.
package irtest

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/samlang-go/samc/internal/hir"
	"github.com/samlang-go/samc/internal/lir"
	"github.com/samlang-go/samc/internal/mir"
)

// Options is the default comparer configuration every Equal/Diff call
// in this package uses. Exposed so a caller with a package-specific
// wrinkle can extend it with cmp.Options{irtest.Options, moreOpts}.
//
// Each Sources type's SymbolTable field is ignored: a *symtab.
// SymbolTable carries only unexported id-allocation bookkeeping (no
// field a test could usefully assert on), so comparing it would either
// panic on unexported state or, compared by pointer, spuriously fail
// two structurally-identical trees built from separate symbol tables.
var Options = cmp.Options{
	cmpopts.IgnoreFields(hir.Sources{}, "SymbolTable"),
	cmpopts.IgnoreFields(mir.Sources{}, "SymbolTable"),
	cmpopts.IgnoreFields(lir.Sources{}, "SymbolTable"),
	cmpopts.EquateEmpty(),
}

// Diff returns a human-readable structural diff between got and want,
// or "" if they are equal. Safe to call directly in a table-driven
// test's failure branch.
func Diff(want, got interface{}, opts ...cmp.Option) string {
	all := append(cmp.Options{}, Options...)
	all = append(all, opts...)
	return cmp.Diff(want, got, all...)
}

// Equal fails t with a structural diff if got and want are not equal,
// the single call table-driven IR tests reach for instead of a bespoke
// reflect.DeepEqual-plus-Errorf.
func Equal(t *testing.T, want, got interface{}, opts ...cmp.Option) {
	t.Helper()
	if diff := Diff(want, got, opts...); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
