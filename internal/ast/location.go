// Package ast defines the source-level data model shared by every later
// stage: locations, the parsed-program shape, and the source type
// terms used before checking assigns concrete nominal types.
package ast

import (
	"fmt"
	"unicode"

	"github.com/samlang-go/samc/internal/heap"
	"golang.org/x/text/width"
)

// Position is a zero-indexed (line, column) pair. Column counts are
// grapheme-width-aware (via golang.org/x/text/width) so locations over
// wide or combining characters stay stable across platforms — the
// teacher's reason for depending on golang.org/x/text in the first
// place, repurposed here for source columns instead of CLI output.
type Position struct {
	Line   int
	Column int
}

// AdvanceRune returns the position obtained by consuming one source
// rune. Wide runes (as classified by golang.org/x/text/width) advance
// the column by two to match common terminal rendering; combining
// marks (Unicode categories Mn and Me) do not advance the column at
// all.
func (p Position) AdvanceRune(r rune) Position {
	if r == '\n' {
		return Position{Line: p.Line + 1, Column: 0}
	}
	if unicode.In(r, unicode.Mn, unicode.Me) {
		return p
	}
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return Position{Line: p.Line, Column: p.Column + 2}
	default:
		return Position{Line: p.Line, Column: p.Column + 1}
	}
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Column+1)
}

// Less orders positions first by line, then column.
func (p Position) Less(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Column < other.Column
}

// Location is a span `[Start, End)` within a single module. It is the
// key type for every use/def map the checker and language services
// build.
type Location struct {
	Module heap.ModuleReference
	Start  Position
	End    Position
}

// DummyLocation is used for synthetic code.
var DummyLocation = Location{Module: heap.DummyModuleReference}

// leq reports a <= b under Position's line-then-column order.
func leq(a, b Position) bool {
	return a == b || a.Less(b)
}

// Contains reports whether other is entirely within l (used for
// scope-nesting checks and location-cover queries).
func (l Location) Contains(other Location) bool {
	if l.Module != other.Module {
		return false
	}
	return leq(l.Start, other.Start) && leq(other.End, l.End)
}

// ContainsPosition reports whether pos falls within [Start, End).
func (l Location) ContainsPosition(pos Position) bool {
	return !pos.Less(l.Start) && pos.Less(l.End)
}

// Union returns the smallest location spanning both l and other. Both
// must belong to the same module; callers (block/expression builders)
// guarantee this structurally.
func (l Location) Union(other Location) Location {
	start := l.Start
	if other.Start.Less(start) {
		start = other.Start
	}
	end := l.End
	if end.Less(other.End) {
		end = other.End
	}
	return Location{Module: l.Module, Start: start, End: end}
}

// PrettyPrint renders "module:line:col-line:col".
func (l Location) PrettyPrint(h *heap.Heap) string {
	return fmt.Sprintf("%s:%s-%s", l.Module.PrettyPrint(h), l.Start, l.End)
}

// PrettyPrintWithoutModule renders just the position range, used when
// the module is already obvious from surrounding context (as the
// Rust original does for its debug dumps).
func (l Location) PrettyPrintWithoutModule() string {
	return fmt.Sprintf("%s-%s", l.Start, l.End)
}
