// Package symtab implements the process-scoped registry of TypeNameId
// handles (spec.md §3) and the derived-subtype relation used to name
// enum-variant representations, plus the dedup-time remapping of those
// derived ids described in spec.md §4.5.
package symtab

import "github.com/samlang-go/samc/internal/heap"

// TypeNameId is an integer handle into a SymbolTable, issued either for
// a toplevel-declared type or derived from a parent id plus a variant
// tag (e.g. an enum's boxed-variant struct).
type TypeNameId int32

// derivedKey is (parent, tag): the input to the subtype-derivation
// table.
type derivedKey struct {
	parent TypeNameId
	tag    heap.PStr
}

// SymbolTable issues fresh TypeNameIds and remembers how derived ids
// were produced, so a later dedup pass can replay the derivation
// against a post-dedup parent-id substitution.
type SymbolTable struct {
	names   []nameRecord
	derived map[derivedKey]TypeNameId
}

type nameRecord struct {
	moduleLocal heap.PStr // the unqualified name, for pretty-printing
}

// New creates an empty symbol table.
func New() *SymbolTable {
	return &SymbolTable{derived: make(map[derivedKey]TypeNameId)}
}

// CreateTypeName issues a fresh id for a toplevel type declaration.
func (t *SymbolTable) CreateTypeName(name heap.PStr) TypeNameId {
	id := TypeNameId(len(t.names))
	t.names = append(t.names, nameRecord{moduleLocal: name})
	return id
}

// DeriveSubtype returns the id for (parent, tag), creating one on
// first use and memoizing it so repeated lowering of the same enum
// variant is stable.
func (t *SymbolTable) DeriveSubtype(parent TypeNameId, tag heap.PStr) TypeNameId {
	key := derivedKey{parent: parent, tag: tag}
	if id, ok := t.derived[key]; ok {
		return id
	}
	id := TypeNameId(len(t.names))
	t.names = append(t.names, nameRecord{moduleLocal: tag})
	t.derived[key] = id
	return id
}

// Name resolves a TypeNameId back to its defining name (the toplevel
// name for a plain id, or the variant tag for a derived one).
func (t *SymbolTable) Name(h *heap.Heap, id TypeNameId) string {
	if int(id) < 0 || int(id) >= len(t.names) {
		return "<invalid>"
	}
	return h.Str(t.names[id].moduleLocal)
}

// RemapSubtypesForDeduplication rebuilds the derived-subtype table
// after a dedup pass has produced a parent-id substitution `state`:
// for every derived entry `(parent, tag) -> derivedId`, if `parent` was
// remapped to a canonical parent, the derived id for the canonical
// parent (creating one if this is the first time that canonical parent
// is seen with this tag) also becomes canonical for `derivedId`. This
// is how spec.md §4.5's dedup pass propagates type-definition merging
// down into enum-variant representations without re-walking every
// expression twice.
func (t *SymbolTable) RemapSubtypesForDeduplication(state map[TypeNameId]TypeNameId) map[TypeNameId]TypeNameId {
	out := make(map[TypeNameId]TypeNameId)
	// Stable iteration: derived ids were allocated in increasing order,
	// so walking by id (not by map order) keeps remapping deterministic.
	type entry struct {
		key derivedKey
		id  TypeNameId
	}
	var entries []entry
	for k, v := range t.derived {
		entries = append(entries, entry{key: k, id: v})
	}
	// insertion sort by id since the table is expected to be small
	// relative to a single module's compile.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].id < entries[j-1].id; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}

	canonicalDerived := make(map[derivedKey]TypeNameId)
	for _, e := range entries {
		canonicalParent := e.key.parent
		if remapped, ok := state[canonicalParent]; ok {
			canonicalParent = remapped
		}
		canonKey := derivedKey{parent: canonicalParent, tag: e.key.tag}
		canonicalID, seen := canonicalDerived[canonKey]
		if !seen {
			canonicalID = e.id
			canonicalDerived[canonKey] = canonicalID
		}
		if canonicalID != e.id {
			out[e.id] = canonicalID
		}
	}
	return out
}
