package langserver

import (
	"sort"

	"github.com/samlang-go/samc/internal/ast"
	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/typectx"
)

// HoverInfo is the answer to a hover query: the span the answer
// applies to and its described type.
type HoverInfo struct {
	Location ast.Location
	Type     string
}

// spanLess orders two locations by "more specific first": the
// narrower line span wins, ties broken by narrower column span. Used
// to pick the innermost definition location containing a cursor
// position when several nested scopes all contain it.
func spanLess(a, b ast.Location) bool {
	aLines := a.End.Line - a.Start.Line
	bLines := b.End.Line - b.Start.Line
	if aLines != bLines {
		return aLines < bLines
	}
	aCols := a.End.Column - a.Start.Column
	bCols := b.End.Column - b.Start.Column
	return aCols < bCols
}

// smallestContaining finds the narrowest location in m containing
// pos, the map-agnostic core of every "what's at this cursor" query
// (hover, goto-definition, rename) since none of internal/ast,
// internal/ssa, or internal/typectx expose a "smallest containing
// span" utility of their own — each only answers "does this span
// contain that position".
func smallestContaining[V any](m map[ast.Location]V, pos ast.Position) (ast.Location, V, bool) {
	var best ast.Location
	var bestVal V
	found := false
	for loc, v := range m {
		if !loc.ContainsPosition(pos) {
			continue
		}
		if !found || spanLess(loc, best) {
			best = loc
			bestVal = v
			found = true
		}
	}
	return best, bestVal, found
}

// QueryHover answers a hover request at pos within modRef: the
// smallest use/def-mapped location containing pos, together with its
// resolved type.
func (s *LanguageServer) QueryHover(modRef heap.ModuleReference, pos ast.Position) (HoverInfo, bool) {
	cr := s.checked[modRef]
	if cr == nil {
		return HoverInfo{}, false
	}
	useLoc, _, found := smallestContaining(cr.SSA.UseDefineMap, pos)
	if !found {
		return HoverInfo{}, false
	}
	t := cr.Local.Read(useLoc)
	return HoverInfo{Location: useLoc, Type: t.Describe(s.heap)}, true
}

// QueryDefinitionLocation resolves the use at pos within modRef to
// the location it is defined at, for a goto-definition request.
func (s *LanguageServer) QueryDefinitionLocation(modRef heap.ModuleReference, pos ast.Position) (ast.Location, bool) {
	cr := s.checked[modRef]
	if cr == nil {
		return ast.Location{}, false
	}
	useLoc, _, found := smallestContaining(cr.SSA.UseDefineMap, pos)
	if !found {
		return ast.Location{}, false
	}
	defLoc, ok := cr.SSA.UseDefineMap[useLoc]
	return defLoc, ok
}

// AutoComplete lists every local variable in scope at pos within
// modRef, suitable for a completion popup.
func (s *LanguageServer) AutoComplete(modRef heap.ModuleReference, pos ast.Position) []typectx.LocalVariable {
	cr := s.checked[modRef]
	if cr == nil {
		return nil
	}
	return cr.Local.PossiblyInScopeLocalVariables(pos)
}

// RenameVariable finds every use-site location sharing a definition
// with the use at pos, giving the caller every span that needs to be
// rewritten together for a local rename. Scoped to within one module's
// local definitions (DefToUseMap never crosses a module boundary),
// unlike a toplevel rename which must also walk every importer — see
// GlobalReferencesToToplevel.
func (s *LanguageServer) RenameVariable(modRef heap.ModuleReference, pos ast.Position) ([]ast.Location, bool) {
	cr := s.checked[modRef]
	if cr == nil {
		return nil, false
	}
	useLoc, defLoc, found := smallestContaining(cr.SSA.UseDefineMap, pos)
	if !found {
		return nil, false
	}
	uses := cr.SSA.DefToUseMap[defLoc]
	out := make([]ast.Location, 0, len(uses)+1)
	out = append(out, defLoc)
	for _, u := range uses {
		if u != useLoc {
			out = append(out, u)
		}
	}
	out = append(out, useLoc)
	sort.Slice(out, func(i, j int) bool { return spanLess(out[i], out[j]) || out[i] == out[j] })
	return out, true
}

// FormatEntireDocument renders a module back to source. No formatter
// exists in this repository yet (internal/printer only renders LIR
// and WASM IR, not surface syntax), so this is a verbatim passthrough
// of the text last given to Update — enough to satisfy a
// format-on-save round trip that expects its input echoed unchanged
// when there is nothing to reformat, but not an actual pretty-printer.
func (s *LanguageServer) FormatEntireDocument(modRef heap.ModuleReference) (string, bool) {
	text, ok := s.source[modRef]
	return text, ok
}

// toplevelNameAt returns the name of the toplevel class/interface at
// modRef declared under pos, used by global reference search to
// resolve "which toplevel does this position belong to".
func toplevelNameAt(m *ast.Module, pos ast.Position) (heap.PStr, bool) {
	for i := range m.Toplevels {
		top := &m.Toplevels[i]
		if top.Loc.ContainsPosition(pos) {
			return top.Name().Name, true
		}
	}
	return 0, false
}

// GlobalReferencesToToplevel searches every currently parsed module
// for references to the toplevel named name declared in owner: every
// module that imports {name} from owner, at each such import
// statement's member clause. This is a deliberately narrowed
// restatement of the original's GlobalNameSearchRequest::Toplevel case
// (_examples/original_source/crates/samlang-services/src/
// global_searcher.rs) — the Property and InterfaceMember request
// kinds there walk a fully Rc<Type>-annotated expression tree to find
// every field/method access resolving to the target, which this
// checker's AST does not retain after typechecking (only a
// Location-keyed LocalTypingContext survives). Supporting only
// Toplevel lookups still serves the common "who imports this class"
// rename-impact question; finding every in-body usage of a renamed
// class name would need the fuller typed-tree walk.
func (s *LanguageServer) GlobalReferencesToToplevel(owner heap.ModuleReference, name heap.PStr) []ast.Location {
	var out []ast.Location
	for modRef, m := range s.parsed {
		if modRef == owner {
			continue
		}
		for _, imp := range m.Imports {
			if imp.ImportedModule != owner {
				continue
			}
			for _, member := range imp.ImportedMembers {
				if member.Name.Name == name {
					out = append(out, member.Name.Loc)
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return spanLess(out[i], out[j]) })
	return out
}
