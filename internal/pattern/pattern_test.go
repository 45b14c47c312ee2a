package pattern

import (
	"testing"

	"github.com/samlang-go/samc/internal/heap"
)

// fakeContext models one nominal enum's full variant set, for tests
// that mirror the original pattern-matching engine's own unit tests
// (base case, redundant wildcards, two-variant enums, Option<T>-shaped
// matches with two columns).
type fakeContext struct {
	h        *heap.Heap
	module   heap.ModuleReference
	class    heap.PStr
	variants []heap.PStr // declaration order, full set
}

func (c *fakeContext) IsVariantSignatureComplete(module heap.ModuleReference, className heap.PStr, seen []heap.PStr) bool {
	if module != c.module || className != c.class {
		return false
	}
	want := make(map[heap.PStr]bool, len(c.variants))
	for _, v := range c.variants {
		want[v] = true
	}
	got := make(map[heap.PStr]bool, len(seen))
	for _, v := range seen {
		got[v] = true
	}
	if len(got) != len(want) {
		return false
	}
	for v := range want {
		if !got[v] {
			return false
		}
	}
	return true
}

func TestBaseCaseEmptyMatrixWildcardIsUseful(t *testing.T) {
	if !IsAdditionalPatternUseful(&fakeContext{}, nil, Wildcard()) {
		t.Fatal("a wildcard against no existing arms must be useful")
	}
}

func TestTwoWildcardsSecondIsRedundant(t *testing.T) {
	ctx := &fakeContext{}
	existing := []Node{Wildcard()}
	if IsAdditionalPatternUseful(ctx, existing, Wildcard()) {
		t.Fatal("a second wildcard after a first must be redundant")
	}
}

func TestSimpleEnumsExhaustive(t *testing.T) {
	h := heap.New()
	mod := heap.NewModuleReference(h, "M")
	class := h.Alloc("Color")
	red := heap.PStr(0) // overwritten below
	_ = red
	redName := h.Alloc("Red")
	greenName := h.Alloc("Green")
	ctx := &fakeContext{h: h, module: mod, class: class, variants: []heap.PStr{redName, greenName}}

	red1 := Enum(VariantConstructor{Module: mod, ClassName: class, VariantName: redName})
	green1 := Enum(VariantConstructor{Module: mod, ClassName: class, VariantName: greenName})

	existing := []Node{red1}
	if !IsAdditionalPatternUseful(ctx, existing, green1) {
		t.Fatal("Green arm is useful after only Red is covered")
	}
	existing = append(existing, green1)
	if IsAdditionalPatternUseful(ctx, existing, Wildcard()) {
		t.Fatal("match over {Red, Green} against Color should be exhaustive; a trailing wildcard should not be useful")
	}
}

func TestSimpleEnumsTwoColumnsIncomplete(t *testing.T) {
	h := heap.New()
	mod := heap.NewModuleReference(h, "M")
	class := h.Alloc("Color")
	redName := h.Alloc("Red")
	greenName := h.Alloc("Green")
	ctx := &fakeContext{h: h, module: mod, class: class, variants: []heap.PStr{redName, greenName}}

	red1 := Enum(VariantConstructor{Module: mod, ClassName: class, VariantName: redName})

	// A single (Color, Color) pair only covering (Red, Red) still
	// leaves (Red, Green), (Green, *) etc. uncovered.
	existing := []Node{Tuple(red1, red1)}
	if !IsAdditionalPatternUseful(ctx, existing, Tuple(Wildcard(), Wildcard())) {
		t.Fatal("wildcard-pair should still be useful: the match over two columns is not exhaustive")
	}
}

func TestOptionSomeNoneExhaustive(t *testing.T) {
	h := heap.New()
	mod := heap.NewModuleReference(h, "M")
	class := h.Alloc("Option")
	someName := h.Alloc("Some")
	noneName := h.Alloc("None")
	ctx := &fakeContext{h: h, module: mod, class: class, variants: []heap.PStr{someName, noneName}}

	some := Variant(VariantConstructor{Module: mod, ClassName: class, VariantName: someName}, Wildcard())
	none := Enum(VariantConstructor{Module: mod, ClassName: class, VariantName: noneName})

	existing := []Node{some, none}
	if IsAdditionalPatternUseful(ctx, existing, Wildcard()) {
		t.Fatal("Some(_) | None should be exhaustive for Option")
	}
}

func TestOptionMissingNoneIsInexhaustive(t *testing.T) {
	h := heap.New()
	mod := heap.NewModuleReference(h, "M")
	class := h.Alloc("Option")
	someName := h.Alloc("Some")
	noneName := h.Alloc("None")
	ctx := &fakeContext{h: h, module: mod, class: class, variants: []heap.PStr{someName, noneName}}

	some := Variant(VariantConstructor{Module: mod, ClassName: class, VariantName: someName}, Wildcard())

	existing := []Node{some}
	if !IsAdditionalPatternUseful(ctx, existing, Wildcard()) {
		t.Fatal("Some(_) alone is not exhaustive: None is uncovered, so a wildcard arm must be useful")
	}
}

func TestOrPatternCoversBothAlternatives(t *testing.T) {
	h := heap.New()
	mod := heap.NewModuleReference(h, "M")
	class := h.Alloc("Color")
	redName := h.Alloc("Red")
	greenName := h.Alloc("Green")
	ctx := &fakeContext{h: h, module: mod, class: class, variants: []heap.PStr{redName, greenName}}

	red1 := Enum(VariantConstructor{Module: mod, ClassName: class, VariantName: redName})
	green1 := Enum(VariantConstructor{Module: mod, ClassName: class, VariantName: greenName})

	existing := []Node{Or(red1, green1)}
	if IsAdditionalPatternUseful(ctx, existing, Wildcard()) {
		t.Fatal("Red | Green should already exhaust Color")
	}
}
