// Package pattern implements the Maranget usefulness algorithm used for
// match-arm redundancy and exhaustiveness checking (spec.md §4.1),
// ported from the teacher's decision-tree-flavored pattern matching
// (internal/dtree, internal/elaborate/exhaustiveness.go) and the
// original Rust implementation (checker/pattern_matching.rs), which is
// the ground truth for this port's exact recursion structure.
package pattern

import "github.com/samlang-go/samc/internal/heap"

// VariantConstructor names one constructor of a nominal enum type.
type VariantConstructor struct {
	Module      heap.ModuleReference
	ClassName   heap.PStr
	VariantName heap.PStr
}

// tag discriminates a Node's variant.
type tag int

const (
	tagWildcard tag = iota
	tagStructLike
	tagOr
)

// Node is an abstract pattern: a wildcard, a struct-like form (an
// optional variant constructor plus normalized sub-patterns — every
// element position present, missing fields filled with wildcards by
// the caller before this package ever sees them), or an or-pattern.
type Node struct {
	kind     tag
	variant  *VariantConstructor // structLike only
	elements []Node              // structLike only
	alts     []Node              // or only
}

// Wildcard constructs the wildcard pattern `_`.
func Wildcard() Node { return Node{kind: tagWildcard} }

// Tuple constructs an unlabeled struct-like pattern (no variant tag).
func Tuple(elements ...Node) Node {
	return Node{kind: tagStructLike, elements: elements}
}

// Variant constructs a struct-like pattern tagged with a variant
// constructor and its associated sub-patterns.
func Variant(c VariantConstructor, elements ...Node) Node {
	return Node{kind: tagStructLike, variant: &c, elements: elements}
}

// Enum constructs a zero-arity variant pattern (a bare enum tag).
func Enum(c VariantConstructor) Node {
	return Node{kind: tagStructLike, variant: &c, elements: nil}
}

// Nothing constructs the empty or-pattern: matches nothing, used as
// the identity element / an explicitly unreachable arm.
func Nothing() Node { return Node{kind: tagOr} }

// Or constructs an or-pattern over possibilities.
func Or(possibilities ...Node) Node { return Node{kind: tagOr, alts: possibilities} }

// Context supplies the one fact the algorithm cannot determine on its
// own: whether a set of constructors, for a particular module-qualified
// enum, exhausts every declared variant.
type Context interface {
	IsVariantSignatureComplete(module heap.ModuleReference, className heap.PStr, variantNames []heap.PStr) bool
}

type variantKey struct {
	hasVariant bool
	v          VariantConstructor
}

// IsAdditionalPatternUseful reports whether appending `candidate` to a
// match whose existing arms are `existingPatterns` would cover at least
// one scrutinee value not already covered by an earlier arm.
//
// Two derived checks (spec.md §8 property 7) follow directly:
//   - a match is exhaustive iff `useful(existingArms, Wildcard())` is false
//   - arm k is redundant iff `useful(existingArms[:k], existingArms[k])` is false
func IsAdditionalPatternUseful(ctx Context, existingPatterns []Node, candidate Node) bool {
	matrix := make([][]Node, len(existingPatterns))
	for i, p := range existingPatterns {
		matrix[i] = []Node{p}
	}
	return useful(ctx, matrix, []Node{candidate})
}

// useful implements Maranget's algorithm: http://moscova.inria.fr/~maranget/papers/warn/warn.pdf
func useful(ctx Context, p [][]Node, q []Node) bool {
	if len(p) == 0 {
		return true
	}
	if len(q) == 0 {
		// Zero columns: useful iff p is empty, which we already
		// handled above, so reaching here with zero columns and a
		// non-empty p means not useful.
		return false
	}
	qHead, qRest := q[0], q[1:]
	switch qHead.kind {
	case tagStructLike:
		specialized := specializeMatrix(p, variantKey{hasVariant: qHead.variant != nil, v: derefVariant(qHead.variant)}, len(qHead.elements))
		return useful(ctx, specialized, append(append([]Node{}, qHead.elements...), qRest...))
	case tagWildcard:
		rootConstructors := collectRootConstructors(p)
		if isSignatureComplete(ctx, rootConstructors) {
			for key, arity := range rootConstructors {
				newQ := make([]Node, 0, arity+len(qRest))
				for i := 0; i < arity; i++ {
					newQ = append(newQ, Wildcard())
				}
				newQ = append(newQ, qRest...)
				specialized := specializeMatrix(p, key, arity)
				if useful(ctx, specialized, newQ) {
					return true
				}
			}
			return false
		}
		defaultMatrix := defaultMatrixOf(p)
		return useful(ctx, defaultMatrix, qRest)
	case tagOr:
		for _, alt := range qHead.alts {
			newQ := append([]Node{alt}, qRest...)
			if useful(ctx, p, newQ) {
				return true
			}
		}
		return false
	}
	return false
}

func derefVariant(v *VariantConstructor) VariantConstructor {
	if v == nil {
		return VariantConstructor{}
	}
	return *v
}

// collectRootConstructors walks the head of every row (expanding
// or-patterns) and records, for each concrete root constructor seen,
// its sub-pattern arity.
func collectRootConstructors(p [][]Node) map[variantKey]int {
	result := make(map[variantKey]int)
	queue := make([]Node, 0, len(p))
	for _, row := range p {
		if len(row) > 0 {
			queue = append(queue, row[0])
		}
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		switch n.kind {
		case tagWildcard:
			// contributes nothing
		case tagStructLike:
			result[variantKey{hasVariant: n.variant != nil, v: derefVariant(n.variant)}] = len(n.elements)
		case tagOr:
			queue = append(queue, n.alts...)
		}
	}
	return result
}

// isSignatureComplete reports whether rootConstructors, as a set,
// exhausts all constructors of whatever nominal enum they belong to —
// or is trivially complete because a Tuple head was seen in P
// (encoded as the zero-value key with hasVariant=false, which only
// ever arises from a Tuple head, never from a real enum tag, since
// Enum and Variant always set variant != nil; wildcard heads are not
// recorded at all).
func isSignatureComplete(ctx Context, rootConstructors map[variantKey]int) bool {
	if _, ok := rootConstructors[variantKey{}]; ok {
		return true
	}
	if len(rootConstructors) == 0 {
		return false
	}
	var mod heap.ModuleReference
	var class heap.PStr
	var names []heap.PStr
	first := true
	for key := range rootConstructors {
		if !key.hasVariant {
			// A tuple head mixed with variant heads never happens for
			// well-typed input; treat conservatively as complete.
			return true
		}
		if first {
			mod, class = key.v.Module, key.v.ClassName
			first = false
		}
		names = append(names, key.v.VariantName)
	}
	return ctx.IsVariantSignatureComplete(mod, class, names)
}

// specializeMatrix builds S(c, P) for constructor key c with arity
// rs_len: concrete-head rows whose constructor matches contribute
// their sub-patterns; wildcard-head rows contribute rs_len wildcards;
// or-pattern rows expand into each alternative first.
func specializeMatrix(p [][]Node, key variantKey, rsLen int) [][]Node {
	var out [][]Node
	for _, row := range p {
		specializeRow(&out, row, key, rsLen)
	}
	return out
}

func specializeRow(out *[][]Node, row []Node, key variantKey, rsLen int) {
	head, rest := row[0], row[1:]
	switch head.kind {
	case tagStructLike:
		rowKey := variantKey{hasVariant: head.variant != nil, v: derefVariant(head.variant)}
		if key.hasVariant && rowKey.hasVariant && key.v != rowKey.v {
			return // different constructors: skip
		}
		newRow := make([]Node, 0, len(head.elements)+len(rest))
		newRow = append(newRow, head.elements...)
		newRow = append(newRow, rest...)
		*out = append(*out, newRow)
	case tagWildcard:
		newRow := make([]Node, 0, rsLen+len(rest))
		for i := 0; i < rsLen; i++ {
			newRow = append(newRow, Wildcard())
		}
		newRow = append(newRow, rest...)
		*out = append(*out, newRow)
	case tagOr:
		for _, alt := range head.alts {
			expanded := append([]Node{alt}, rest...)
			specializeRow(out, expanded, key, rsLen)
		}
	}
}

// defaultMatrixOf builds D(P): rows with a wildcard head contribute
// their tail; rows with a concrete head are dropped; or-pattern rows
// expand into each alternative first.
func defaultMatrixOf(p [][]Node) [][]Node {
	var out [][]Node
	queue := make([][]Node, len(p))
	copy(queue, p)
	for len(queue) > 0 {
		row := queue[0]
		queue = queue[1:]
		switch row[0].kind {
		case tagStructLike:
			// skip
		case tagWildcard:
			out = append(out, row[1:])
		case tagOr:
			for i := len(row[0].alts) - 1; i >= 0; i-- {
				expanded := append([]Node{row[0].alts[i]}, row[1:]...)
				queue = append([][]Node{expanded}, queue...)
			}
		}
	}
	return out
}
