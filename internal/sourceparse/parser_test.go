package sourceparse

import (
	"testing"

	"github.com/samlang-go/samc/internal/ast"
	"github.com/samlang-go/samc/internal/heap"
)

func TestParseSimpleFunction(t *testing.T) {
	h := heap.New()
	mod := heap.NewModuleReference(h, "Main")
	src := `
class Main {
  public function main(): int = {
    val x = 1 + 2;
    x
  }
}
`
	module, err := Parse(h, mod, src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(module.Toplevels) != 1 {
		t.Fatalf("expected 1 toplevel, got %d", len(module.Toplevels))
	}
	top := module.Toplevels[0]
	if top.Tag != ast.ToplevelClass {
		t.Fatalf("expected class toplevel")
	}
	if len(top.ClassMembers) != 1 {
		t.Fatalf("expected 1 member, got %d", len(top.ClassMembers))
	}
	body := top.ClassMembers[0].Body
	if body.Tag != ast.ExprBlock {
		t.Fatalf("expected block body, got tag %v", body.Tag)
	}
	if len(body.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(body.Statements))
	}
	if body.FinalExpr == nil || body.FinalExpr.Tag != ast.ExprLocalId {
		t.Fatalf("expected final expr to be local id")
	}
}

func TestParseImportAndEnum(t *testing.T) {
	h := heap.New()
	mod := heap.NewModuleReference(h, "Option")
	src := `
import { Test2 } from Foo.Bar;

class Option<T> {
  enum { Some(T), None }

  public function isSome(): bool = match (this) {
    Some(x) -> true,
    None -> false,
  }
}
`
	module, err := Parse(h, mod, src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(module.Imports) != 1 {
		t.Fatalf("expected 1 import, got %d", len(module.Imports))
	}
	top := module.Toplevels[0]
	if top.TypeDef == nil || top.TypeDef.Tag != ast.TypeDefinitionEnum {
		t.Fatalf("expected enum type definition")
	}
	if len(top.TypeDef.Variants) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(top.TypeDef.Variants))
	}
	body := top.ClassMembers[0].Body
	if body.Tag != ast.ExprMatch {
		t.Fatalf("expected match expr body, got tag %v", body.Tag)
	}
	if len(body.Cases) != 2 {
		t.Fatalf("expected 2 match cases, got %d", len(body.Cases))
	}
}

func TestParseIfElseAndLambda(t *testing.T) {
	h := heap.New()
	mod := heap.NewModuleReference(h, "Main")
	src := `
class Main {
  public function apply(f: (int) -> int, x: int): int = f(x)

  public function main(): int = {
    val add = (a: int, b: int) -> a + b;
    if x > 0 { 1 } else { 0 }
  }
}
`
	module, err := Parse(h, mod, src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	top := module.Toplevels[0]
	if len(top.ClassMembers) != 2 {
		t.Fatalf("expected 2 members, got %d", len(top.ClassMembers))
	}
	applyDecl := top.ClassMembers[0].Decl
	if applyDecl.Type.ArgumentTypes[0].Tag != ast.AnnotationTagFn {
		t.Fatalf("expected function-typed first parameter")
	}
	mainBody := top.ClassMembers[1].Body
	if len(mainBody.Statements) != 1 {
		t.Fatalf("expected 1 statement in main body")
	}
	lambda := mainBody.Statements[0].AssignedExpression
	if lambda.Tag != ast.ExprLambda || len(lambda.Parameters) != 2 {
		t.Fatalf("expected 2-parameter lambda, got tag %v", lambda.Tag)
	}
	if mainBody.FinalExpr == nil || mainBody.FinalExpr.Tag != ast.ExprIfElse {
		t.Fatalf("expected final expr to be if-else")
	}
}
