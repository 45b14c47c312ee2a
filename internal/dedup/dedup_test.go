package dedup

import (
	"testing"

	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/mir"
	"github.com/samlang-go/samc/internal/symtab"
)

// TestMIRClosureDedup checks that two closure types with identical
// () -> int shape merge onto one canonical id, and a ClosureInit
// referencing the later one is rewritten to reference the earlier,
// canonical id.
func TestMIRClosureDedup(t *testing.T) {
	h := heap.New()
	st := symtab.New()
	mod := heap.NewModuleReference(h, "Main")
	a := st.CreateTypeName(h.Alloc("A"))
	b := st.CreateTypeName(h.Alloc("B"))
	fnType := mir.FnType(nil, mir.Int32Type())

	fn := mir.Function{
		Name: heap.FunctionName{ModuleReference: mod, Name: h.Alloc("main")},
		Type: mir.FnType(nil, mir.Int32Type()),
		Body: []mir.Statement{
			{Tag: mir.StmtClosureInit, Name: h.Alloc("c"), ClosureTypeName: b, ClosureFunction: heap.FunctionName{ModuleReference: mod, Name: h.Alloc("f")}},
		},
		ReturnValue: mir.IntLiteral(0),
	}

	src := mir.Sources{
		SymbolTable:  st,
		ClosureTypes: []mir.ClosureTypeDefinition{{Name: a, FunctionType: fnType}, {Name: b, FunctionType: fnType}},
		Functions:    []mir.Function{fn},
	}

	out := MIR(src)

	if len(out.ClosureTypes) != 1 {
		t.Fatalf("expected exactly one closure type after dedup, got %d", len(out.ClosureTypes))
	}
	if out.ClosureTypes[0].Name != a {
		t.Fatalf("expected the first-seen closure type (A) to survive as canonical, got %v", out.ClosureTypes[0].Name)
	}
	got := out.Functions[0].Body[0].ClosureTypeName
	if got != a {
		t.Fatalf("expected ClosureInit to be rewritten to canonical id %v, got %v", a, got)
	}
}

func TestMIRStructDedupPreservesFirstOccurrenceName(t *testing.T) {
	h := heap.New()
	st := symtab.New()
	p := st.CreateTypeName(h.Alloc("Point"))
	q := st.CreateTypeName(h.Alloc("Pair"))

	src := mir.Sources{
		SymbolTable: st,
		TypeDefinitions: []mir.TypeDefinition{
			{Name: p, Tag: mir.MappingsStruct, Struct: []mir.Type{mir.Int32Type(), mir.Int32Type()}},
			{Name: q, Tag: mir.MappingsStruct, Struct: []mir.Type{mir.Int32Type(), mir.Int32Type()}},
		},
	}

	out := MIR(src)
	if len(out.TypeDefinitions) != 1 {
		t.Fatalf("expected structurally identical structs to merge, got %d defs", len(out.TypeDefinitions))
	}
	if out.TypeDefinitions[0].Name != p {
		t.Fatalf("expected first-seen type name to be canonical, got %v", out.TypeDefinitions[0].Name)
	}
}
