package errors

import (
	"github.com/samlang-go/samc/internal/ast"
	"github.com/samlang-go/samc/internal/heap"
)

// ReportNameAlreadyBound records a shadowing collision. Callers are
// responsible for only calling this once per offending location
// (spec.md §4.2's "reports ... once per offending location"); ssa
// tracks that via its own invalid-defines set.
func (s *Set) ReportNameAlreadyBound(loc ast.Location, name heap.PStr, oldLoc ast.Location) {
	s.Report(loc, Detail{Kind: KindNameAlreadyBound, Name: name, OldLoc: oldLoc})
}

// ReportCannotResolveName records an unbound identifier use.
func (s *Set) ReportCannotResolveName(loc ast.Location, name heap.PStr) {
	s.Report(loc, Detail{Kind: KindCannotResolveName, Name: name})
}

// ReportUnderconstrained records a synthesis failure outside synthesis
// mode (spec.md §4.3).
func (s *Set) ReportUnderconstrained(loc ast.Location) {
	s.Report(loc, Detail{Kind: KindUnderconstrained})
}

// ReportInvalidArity records a type-argument/pattern arity mismatch.
func (s *Set) ReportInvalidArity(loc ast.Location, kind string, expected, actual int) {
	s.Report(loc, Detail{Kind: KindInvalidArity, ArityKind: kind, ArityExpected: expected, ArityActual: actual})
}

// ReportIncompatibleType records a type mismatch, optionally framed as
// a subtype failure.
func (s *Set) ReportIncompatibleType(loc ast.Location, expected, actual string, subtype bool) {
	s.Report(loc, Detail{Kind: KindIncompatibleType, Expected: expected, Actual: actual, Subtype: subtype})
}

// ReportNonExhaustiveMatch records the missing variant tags for an
// inexhaustive match (spec.md §4.1, §8 property 7).
func (s *Set) ReportNonExhaustiveMatch(loc ast.Location, missingTags []heap.PStr) {
	s.Report(loc, Detail{Kind: KindNonExhaustiveMatch, MissingNames: missingTags})
}

// ReportMemberMissing records a failed method/field lookup.
func (s *Set) ReportMemberMissing(loc ast.Location, parent string, member heap.PStr) {
	s.Report(loc, Detail{Kind: KindMemberMissing, Parent: parent, Member: member})
}
