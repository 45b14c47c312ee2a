// Package errors implements the compiler's error taxonomy: a set of
// structured ErrorDetail variants (spec.md §6), a process-wide
// collecting ErrorSet with idempotent reporting (spec.md §7), and
// stable error codes in the teacher's PAR/MOD/... constant-taxonomy
// style, adapted to this compiler's phases.
package errors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samlang-go/samc/internal/ast"
	"github.com/samlang-go/samc/internal/heap"
)

// Error code constants, one per ErrorDetail kind. Grouped by the
// compiler phase that raises them, following the teacher's
// internal/errors code-constant taxonomy (PAR001, MOD001, ...).
const (
	// Name resolution (spec.md §4.2)
	CodeCannotResolveModule = "CR001"
	CodeCannotResolveClass  = "CR002"
	CodeCannotResolveName   = "CR003"
	CodeNameAlreadyBound    = "CR004"

	// Typing (spec.md §4.3)
	CodeIncompatibleType         = "TY001"
	CodeInvalidArity             = "TY002"
	CodeMemberMissing            = "TY003"
	CodeUnderconstrained         = "TY004"
	CodeTypeParameterNameMismatch = "TY005"
	CodeCyclicTypeDefinition     = "TY006"
	CodeIllegalFunctionInInterface = "TY007"

	// Module-level (spec.md §6)
	CodeMissingDefinitions = "MD001"
	CodeMissingExport      = "MD002"

	// Pattern matching (spec.md §4.1)
	CodeNonExhaustiveMatch = "PM001"

	// Parsing (collaborator boundary, spec.md §6)
	CodeInvalidSyntax = "PAR001"
)

// Kind identifies which ErrorDetail variant an error carries, so
// callers can dispatch without a type switch when only the category
// matters (e.g. "is this a syntax error").
type Kind int

const (
	KindCannotResolveModule Kind = iota
	KindCannotResolveClass
	KindCannotResolveName
	KindNameAlreadyBound
	KindIncompatibleType
	KindInvalidArity
	KindMemberMissing
	KindUnderconstrained
	KindTypeParameterNameMismatch
	KindCyclicTypeDefinition
	KindIllegalFunctionInInterface
	KindMissingDefinitions
	KindMissingExport
	KindNonExhaustiveMatch
	KindInvalidSyntax
)

// Detail is a structured error payload. Exactly one of its fields is
// meaningful for a given Kind; this mirrors the Rust original's enum
// more directly than a polymorphic interface hierarchy would, and
// keeps ErrorSet sortable by plain field comparison.
type Detail struct {
	Kind Kind

	Module heap.ModuleReference // CannotResolveModule, CannotResolveClass, MissingExport
	Name   heap.PStr            // CannotResolveClass/Name, NameAlreadyBound, MissingExport

	OldLoc ast.Location // NameAlreadyBound: location of the prior binding

	Expected string // IncompatibleType, TypeParameterNameMismatch
	Actual   string // IncompatibleType
	Subtype  bool   // IncompatibleType

	ArityKind     string // InvalidArity
	ArityExpected int
	ArityActual   int

	Parent string    // MemberMissing
	Member heap.PStr // MemberMissing

	TypeDescription string // CyclicTypeDefinition

	MissingNames []heap.PStr // MissingDefinitions, NonExhaustiveMatch (missing_tags)

	SyntaxReason string // InvalidSyntax
}

// Code returns the stable error code for d's kind.
func (d Detail) Code() string {
	switch d.Kind {
	case KindCannotResolveModule:
		return CodeCannotResolveModule
	case KindCannotResolveClass:
		return CodeCannotResolveClass
	case KindCannotResolveName:
		return CodeCannotResolveName
	case KindNameAlreadyBound:
		return CodeNameAlreadyBound
	case KindIncompatibleType:
		return CodeIncompatibleType
	case KindInvalidArity:
		return CodeInvalidArity
	case KindMemberMissing:
		return CodeMemberMissing
	case KindUnderconstrained:
		return CodeUnderconstrained
	case KindTypeParameterNameMismatch:
		return CodeTypeParameterNameMismatch
	case KindCyclicTypeDefinition:
		return CodeCyclicTypeDefinition
	case KindIllegalFunctionInInterface:
		return CodeIllegalFunctionInInterface
	case KindMissingDefinitions:
		return CodeMissingDefinitions
	case KindMissingExport:
		return CodeMissingExport
	case KindNonExhaustiveMatch:
		return CodeNonExhaustiveMatch
	case KindInvalidSyntax:
		return CodeInvalidSyntax
	default:
		return "UNK000"
	}
}

// CompileTimeError pairs a Detail with the location it was raised at.
type CompileTimeError struct {
	Location ast.Location
	Detail   Detail
}

// sortKey produces a value comparable errors can be ordered by:
// (module, start line, start col, code), matching spec.md §4.11's
// "sorted by location then error kind" ordering guarantee.
func (e CompileTimeError) sortKey(h *heap.Heap) string {
	return fmt.Sprintf("%s|%06d|%06d|%s",
		e.Location.Module.PrettyPrint(h), e.Location.Start.Line, e.Location.Start.Column, e.Detail.Code())
}

// PrettyPrint renders the one-line "location: [code]: message" form
// from spec.md §7; a secondary location (e.g. NameAlreadyBound's prior
// binding) is framed with a bracketed index.
func (e CompileTimeError) PrettyPrint(h *heap.Heap) string {
	msg := e.message(h)
	return fmt.Sprintf("%s: [%s]: %s", e.Location.PrettyPrint(h), e.Detail.Code(), msg)
}

func (e CompileTimeError) message(h *heap.Heap) string {
	d := e.Detail
	switch d.Kind {
	case KindCannotResolveModule:
		return fmt.Sprintf("Module `%s` is not resolved.", d.Module.PrettyPrint(h))
	case KindCannotResolveClass:
		return fmt.Sprintf("Class `%s` is not resolved.", h.Str(d.Name))
	case KindCannotResolveName:
		return fmt.Sprintf("Name `%s` is not resolved.", h.Str(d.Name))
	case KindNameAlreadyBound:
		return fmt.Sprintf("Name `%s` collides with a previously defined name at [0]: %s.",
			h.Str(d.Name), d.OldLoc.PrettyPrint(h))
	case KindIncompatibleType:
		if d.Subtype {
			return fmt.Sprintf("Expected: subtype of `%s`, actual: `%s`.", d.Expected, d.Actual)
		}
		return fmt.Sprintf("Expected: `%s`, actual: `%s`.", d.Expected, d.Actual)
	case KindInvalidArity:
		return fmt.Sprintf("Incorrect %s size. Expected: %d, actual: %d.", d.ArityKind, d.ArityExpected, d.ArityActual)
	case KindMemberMissing:
		return fmt.Sprintf("Cannot find member `%s` on `%s`.", h.Str(d.Member), d.Parent)
	case KindUnderconstrained:
		return "There is not enough context information to decide the type of this expression."
	case KindTypeParameterNameMismatch:
		return fmt.Sprintf("Type parameter name mismatch. Expected exact match of `%s`.", d.Expected)
	case KindCyclicTypeDefinition:
		return fmt.Sprintf("Type `%s` has a cyclic definition.", d.TypeDescription)
	case KindIllegalFunctionInInterface:
		return "Function declarations are not allowed in interfaces."
	case KindMissingDefinitions:
		return fmt.Sprintf("Missing definitions for [%s].", joinNames(h, d.MissingNames))
	case KindMissingExport:
		return fmt.Sprintf("There is no `%s` export in `%s`.", h.Str(d.Name), d.Module.PrettyPrint(h))
	case KindNonExhaustiveMatch:
		return fmt.Sprintf("The following tags are not considered in the match: [%s].", joinNames(h, d.MissingNames))
	case KindInvalidSyntax:
		return d.SyntaxReason
	default:
		return "unknown error"
	}
}

func joinNames(h *heap.Heap, names []heap.PStr) string {
	strs := make([]string, len(names))
	for i, n := range names {
		strs[i] = h.Str(n)
	}
	sort.Strings(strs)
	return strings.Join(strs, ", ")
}

// Set is a process-wide collector of CompileTimeErrors. Reporters are
// idempotent per (location, kind of NameAlreadyBound): a duplicate
// collision at the same site is suppressed by the caller (ssa package)
// tracking "invalid defines" locations, matching the Rust original's
// division of labor.
type Set struct {
	errors []CompileTimeError
}

// NewSet creates an empty error set.
func NewSet() *Set {
	return &Set{}
}

// Report appends a new error.
func (s *Set) Report(loc ast.Location, detail Detail) {
	s.errors = append(s.errors, CompileTimeError{Location: loc, Detail: detail})
}

// HasErrors reports whether any error has been collected.
func (s *Set) HasErrors() bool {
	return len(s.errors) > 0
}

// Errors returns all collected errors, sorted deterministically by
// (module, location, code) as required by spec.md §4.11.
func (s *Set) Errors(h *heap.Heap) []CompileTimeError {
	out := make([]CompileTimeError, len(s.errors))
	copy(out, s.errors)
	sort.Slice(out, func(i, j int) bool {
		return out[i].sortKey(h) < out[j].sortKey(h)
	})
	return out
}

// GroupByModule partitions the sorted error list by owning module,
// matching the "errors are returned grouped by module reference"
// guarantee from spec.md §4.11.
func (s *Set) GroupByModule(h *heap.Heap) map[heap.ModuleReference][]CompileTimeError {
	grouped := make(map[heap.ModuleReference][]CompileTimeError)
	for _, e := range s.Errors(h) {
		grouped[e.Location.Module] = append(grouped[e.Location.Module], e)
	}
	return grouped
}

// Messages renders every error via PrettyPrint, in sorted order.
func (s *Set) Messages(h *heap.Heap) []string {
	sorted := s.Errors(h)
	out := make([]string, len(sorted))
	for i, e := range sorted {
		out[i] = e.PrettyPrint(h)
	}
	return out
}
