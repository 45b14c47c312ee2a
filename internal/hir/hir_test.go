package hir

import (
	"testing"

	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/symtab"
)

func TestFunctionShapeWithIfElseAndFinalAssignments(t *testing.T) {
	h := heap.New()
	mod := heap.NewModuleReference(h, "Main")
	x := h.Alloc("x")
	a := h.Alloc("a")
	fnName := heap.FunctionName{ModuleReference: mod, Name: h.Alloc("main")}

	cond := Variable(x, Int32Type())
	thenV := IntLiteral(1)
	elseV := IntLiteral(0)

	body := []Statement{
		{
			Tag:       StmtBinary,
			Name:      a,
			Op:        OpPlus,
			E1:        IntLiteral(1),
			E2:        IntLiteral(2),
		},
		{
			Tag:       StmtIfElse,
			Condition: cond,
			S1:        nil,
			S2:        nil,
			FinalAssignments: []FinalAssignment{
				{Name: a, Type: Int32Type(), Then: thenV, Else: elseV},
			},
		},
	}

	fn := Function{
		Name:        fnName,
		Parameters:  []heap.PStr{x},
		Type:        FnType([]Type{Int32Type()}, Int32Type()),
		Body:        body,
		ReturnValue: Variable(a, Int32Type()),
	}

	sources := Sources{Functions: []Function{fn}, MainFunctionNames: []heap.FunctionName{fnName}}

	if len(sources.Functions) != 1 {
		t.Fatalf("expected one function")
	}
	got := sources.Functions[0]
	if got.Body[0].Tag != StmtBinary || got.Body[0].Name != a {
		t.Fatalf("unexpected first statement: %+v", got.Body[0])
	}
	ifElse := got.Body[1]
	if ifElse.Tag != StmtIfElse || len(ifElse.FinalAssignments) != 1 {
		t.Fatalf("unexpected if-else statement: %+v", ifElse)
	}
	if ifElse.FinalAssignments[0].Then.IntValue != 1 {
		t.Fatalf("expected then-branch literal 1")
	}
}

func TestClosureTypeDefinitionAndEnumVariants(t *testing.T) {
	h := heap.New()
	st := symtab.New()
	optionId := st.CreateTypeName(h.Alloc("Option"))
	someId := st.CreateTypeName(h.Alloc("Option$Some"))
	closureId := st.CreateTypeName(h.Alloc("$SyntheticClosure"))

	td := TypeDefinition{
		Name: optionId,
		Tag:  MappingsEnum,
		Enum: []EnumVariant{
			{Kind: VariantBoxed, BoxedTypes: []Type{Int32Type()}},
			{Kind: VariantUnboxed, UnboxedRef: someId},
		},
	}
	ctd := ClosureTypeDefinition{Name: closureId, FunctionType: FnType([]Type{Int32Type()}, Int32Type())}

	if td.Enum[0].Kind != VariantBoxed || td.Enum[1].UnboxedRef != someId {
		t.Fatalf("unexpected enum variant shape: %+v", td.Enum)
	}
	if ctd.FunctionType.Tag != TypeFn {
		t.Fatalf("expected closure type definition to carry a Fn type")
	}
}
