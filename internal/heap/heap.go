// Package heap implements the process-local interning heap for small
// copyable atoms (PStr, function names, module references). Equality on
// an interned atom is integer equality on its handle; the backing bytes
// live once in the heap regardless of how many handles reference them.
package heap

import "fmt"

// PStr is an opaque handle into the heap's string table. Two PStr values
// are equal iff they were interned from equal byte sequences.
type PStr int32

// String returns a debug form; callers needing the actual text must go
// through Heap.Str, since PStr alone carries no text.
func (p PStr) String() string {
	return fmt.Sprintf("PStr(%d)", int32(p))
}

const invalidPStr PStr = -1

// entry is one slot in the heap's string table.
type entry struct {
	text   string
	live   bool
	marked bool
}

// Heap is the single piece of process-wide mutable state described in
// spec.md §5: a mark-and-sweep interner. Any operation that allocates
// atoms (parsing, checking, lowering) is assumed to hold exclusive
// access to it for the duration of the operation, since the compiler
// core is single-threaded throughout.
type Heap struct {
	entries []entry
	index   map[string]PStr

	// unmarkedModules is a worklist of module references whose
	// reachable atoms still need remarking before the next sweep;
	// consumed incrementally by the language service's GC slicing
	// (spec.md §4.11).
	unmarkedModules []ModuleReference
}

// New creates an empty heap.
func New() *Heap {
	return &Heap{index: make(map[string]PStr)}
}

// Alloc interns s, returning its existing handle if s was already
// present, or allocating a fresh one otherwise. A freshly allocated
// atom starts unmarked; it survives until the next sweep only if
// something marks it first.
func (h *Heap) Alloc(s string) PStr {
	if id, ok := h.index[s]; ok {
		return id
	}
	id := PStr(len(h.entries))
	h.entries = append(h.entries, entry{text: s, live: true})
	h.index[s] = id
	return id
}

// Str resolves a handle back to its text. Panics on a handle that was
// swept or never allocated by this heap: that is a caller bug, not a
// recoverable runtime condition.
func (h *Heap) Str(p PStr) string {
	if int(p) < 0 || int(p) >= len(h.entries) || !h.entries[p].live {
		panic(fmt.Sprintf("heap: dereferenced invalid or swept PStr %d", p))
	}
	return h.entries[p].text
}

// Mark marks p (and, transitively, nothing else — PStr has no
// substructure) as reachable for this GC cycle.
func (h *Heap) Mark(p PStr) {
	if int(p) >= 0 && int(p) < len(h.entries) {
		h.entries[p].marked = true
	}
}

// AddUnmarkedModuleReference enqueues a module reference whose body
// needs remarking; used by the language service after an `update` to
// seed the next bounded marking slice.
func (h *Heap) AddUnmarkedModuleReference(m ModuleReference) {
	h.unmarkedModules = append(h.unmarkedModules, m)
}

// PopUnmarkedModuleReference dequeues the next module reference to
// remark, or ok=false if the worklist is empty.
func (h *Heap) PopUnmarkedModuleReference() (m ModuleReference, ok bool) {
	if len(h.unmarkedModules) == 0 {
		return ModuleReference{}, false
	}
	m = h.unmarkedModules[0]
	h.unmarkedModules = h.unmarkedModules[1:]
	return m, true
}

// Sweep reclaims up to limit unmarked entries, dropping their texts
// from the index so a later Alloc of the same text gets a fresh handle,
// and clears the mark bit on everything else so the next cycle starts
// from a clean slate.
// The handle space is append-only (PStr values are never reused across
// a sweep) to keep cross-map keys stable; sweep only frees the text,
// allowing Str to panic loudly on a stale reference rather than
// silently returning whatever later reused the slot.
func (h *Heap) Sweep(limit int) {
	freed := 0
	for i := range h.entries {
		e := &h.entries[i]
		if e.marked {
			e.marked = false
			continue
		}
		if !e.live {
			continue // already swept
		}
		if freed >= limit {
			continue
		}
		delete(h.index, e.text)
		e.text = ""
		e.live = false
		freed++
	}
}

// Len reports the number of handles ever allocated (including swept
// ones); exposed for tests asserting GC behavior.
func (h *Heap) Len() int {
	return len(h.entries)
}
