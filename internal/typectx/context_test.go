package typectx

import (
	"testing"

	"github.com/samlang-go/samc/internal/ast"
	"github.com/samlang-go/samc/internal/errors"
	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/sourcetype"
	"github.com/samlang-go/samc/internal/ssa"
)

func newTestCtx(h *heap.Heap, g GlobalSignature, mod heap.ModuleReference, class heap.PStr) *TypingContext {
	local := NewLocalTypingContext(&ssa.Result{})
	return New(h, g, local, errors.NewSet(), mod, class, nil)
}

func TestIsSubtypeThroughInterface(t *testing.T) {
	h := heap.New()
	mod := heap.NewModuleReference(h, "A")
	animal := h.Alloc("Animal")
	dog := h.Alloc("Dog")

	animalType := sourcetype.NominalType(sourcetype.Reason{}, mod, animal, nil, false)
	g := GlobalSignature{
		mod: &ModuleSignature{Interfaces: map[heap.PStr]*InterfaceSignature{
			animal: {},
			dog:    {SuperTypes: []sourcetype.Type{animalType}},
		}},
	}
	ctx := newTestCtx(h, g, mod, dog)
	dogType := sourcetype.NominalType(sourcetype.Reason{}, mod, dog, nil, false)

	if !ctx.IsSubtype(dogType, animalType) {
		t.Fatal("Dog should be a subtype of Animal through its supertype list")
	}
	if ctx.IsSubtype(animalType, dogType) {
		t.Fatal("Animal should not be a subtype of Dog")
	}
}

func TestSynthesisModePlaceholderVsError(t *testing.T) {
	h := heap.New()
	mod := heap.NewModuleReference(h, "A")
	class := h.Alloc("C")
	ctx := newTestCtx(h, GlobalSignature{}, mod, class)
	reason := sourcetype.NewReason(ast.Location{Module: mod})

	outside := ctx.MkUnderconstrainedAnyType(reason)
	if outside.IsPlaceholder {
		t.Fatal("outside synthesis mode, an underconstrained type must not be a placeholder")
	}
	if !ctx.Errors.HasErrors() {
		t.Fatal("expected an underconstrained-type error outside synthesis mode")
	}

	_, produced := RunInSynthesisMode(ctx, func(c *TypingContext) sourcetype.Type {
		return c.MkUnderconstrainedAnyType(reason)
	})
	if !produced {
		t.Fatal("expected RunInSynthesisMode to report a produced placeholder")
	}
	if ctx.InSynthesisMode() {
		t.Fatal("synthesis mode must be restored to false after RunInSynthesisMode returns")
	}
}

func TestVariantSignatureIncompleteNames(t *testing.T) {
	h := heap.New()
	mod := heap.NewModuleReference(h, "A")
	class := h.Alloc("Option")
	some := h.Alloc("Some")
	none := h.Alloc("None")

	g := GlobalSignature{
		mod: &ModuleSignature{Interfaces: map[heap.PStr]*InterfaceSignature{
			class: {TypeDefinition: &TypeDefinitionSignature{
				Tag: TypeDefinitionSignatureEnum,
				Enum: []EnumVariantDefinitionSignature{
					{Name: some, Types: []sourcetype.Type{sourcetype.PrimitiveType(sourcetype.Reason{}, sourcetype.Int)}},
					{Name: none},
				},
			}},
		}},
	}
	ctx := newTestCtx(h, g, mod, class)

	if ctx.IsVariantSignatureComplete(mod, class, []heap.PStr{some}) {
		t.Fatal("{Some} alone should not be signature-complete for Option")
	}
	missing := ctx.VariantSignatureIncompleteNames(mod, class, []heap.PStr{some})
	if _, ok := missing[none]; !ok {
		t.Fatalf("expected None to be reported missing, got %v", missing)
	}
	if !ctx.IsVariantSignatureComplete(mod, class, []heap.PStr{some, none}) {
		t.Fatal("{Some, None} should be signature-complete for Option")
	}
}
