package heap

import "strings"

// ModuleReference identifies a source unit. Per spec.md §3 it is
// logically a tuple of PStr path components; it is represented here as
// a single interned handle on the dot-joined path so that
// ModuleReference stays a plain comparable value usable directly as a
// map key (dependency graphs, checked-module tables, ...) without a
// custom Eq/key dance.
type ModuleReference struct {
	qualified PStr
}

// DummyModuleReference is the distinguished module reference used for
// synthetic code (e.g. compiler-generated closure types).
var DummyModuleReference = ModuleReference{qualified: invalidPStr}

// NewModuleReference interns the dotted module path.
func NewModuleReference(h *Heap, dottedName string) ModuleReference {
	return ModuleReference{qualified: h.Alloc(dottedName)}
}

// IsDummy reports whether m is the synthetic-code marker.
func (m ModuleReference) IsDummy() bool {
	return m.qualified == invalidPStr
}

// MarkReachable marks m's own interned path text as GC-reachable. The
// language service's incremental marking walk (spec.md §4.11) calls
// this for every module reference it encounters (the owning module
// itself, and every import target) so a module path never gets swept
// out from under a live ModuleReference value.
func (m ModuleReference) MarkReachable(h *Heap) {
	if !m.IsDummy() {
		h.Mark(m.qualified)
	}
}

// PrettyPrint renders the dotted module name.
func (m ModuleReference) PrettyPrint(h *Heap) string {
	if m.IsDummy() {
		return "__DUMMY__"
	}
	return h.Str(m.qualified)
}

// Parts splits the dotted path back into segments, mirroring the
// tuple-of-PStr data model from spec.md §3 for callers (e.g. the
// module resolver) that need to walk path components.
func (m ModuleReference) Parts(h *Heap) []string {
	if m.IsDummy() {
		return nil
	}
	return strings.Split(h.Str(m.qualified), ".")
}

// FunctionName is a fully-qualified function handle: an owning module
// plus an interned name.
type FunctionName struct {
	ModuleReference ModuleReference
	Name            PStr
}

// PrettyPrint renders "module::name".
func (f FunctionName) PrettyPrint(h *Heap) string {
	return f.ModuleReference.PrettyPrint(h) + "::" + h.Str(f.Name)
}
