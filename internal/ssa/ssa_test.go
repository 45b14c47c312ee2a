package ssa

import (
	"testing"

	"github.com/samlang-go/samc/internal/ast"
	"github.com/samlang-go/samc/internal/errors"
	"github.com/samlang-go/samc/internal/heap"
)

func loc(mod heap.ModuleReference, line int) ast.Location {
	return ast.Location{Module: mod, Start: ast.Position{Line: line}, End: ast.Position{Line: line, Column: 1}}
}

func TestUnboundNameIsReported(t *testing.T) {
	h := heap.New()
	mod := heap.NewModuleReference(h, "A")
	errs := errors.NewSet()
	x := h.Alloc("x")

	useLoc := loc(mod, 1)
	expr := ast.EId(useLoc, ast.Id{Loc: useLoc, Name: x})

	result := AnalyzeExpression(h, mod, &expr, errs)
	if !result.UnboundNames[x] {
		t.Fatal("expected x to be recorded as unbound")
	}
	if !errs.HasErrors() {
		t.Fatal("expected a cannot-resolve-name error")
	}
}

func TestShadowingWithinSameBlockIsInvalidDefine(t *testing.T) {
	h := heap.New()
	mod := heap.NewModuleReference(h, "A")
	errs := errors.NewSet()
	x := h.Alloc("x")

	def1 := loc(mod, 1)
	def2 := loc(mod, 2)
	lit := loc(mod, 0)

	block := ast.Expr{
		Tag: ast.ExprBlock,
		Loc: loc(mod, 3),
		Statements: []ast.DeclarationStatement{
			{Loc: def1, Pattern: ast.Pattern{Tag: ast.PatternId, Loc: def1, SingleId: x}, AssignedExpression: ast.ELiteralUnit(lit)},
			{Loc: def2, Pattern: ast.Pattern{Tag: ast.PatternId, Loc: def2, SingleId: x}, AssignedExpression: ast.ELiteralUnit(lit)},
		},
	}

	result := AnalyzeExpression(h, mod, &block, errs)
	if !result.InvalidDefines[def2] {
		t.Fatal("expected the second definition of x to be flagged invalid")
	}
	if !errs.HasErrors() {
		t.Fatal("expected a name-already-bound error")
	}
}

func TestLambdaCapturesOuterLocal(t *testing.T) {
	h := heap.New()
	mod := heap.NewModuleReference(h, "A")
	errs := errors.NewSet()
	x := h.Alloc("x")

	defLoc := loc(mod, 1)
	useLoc := loc(mod, 3)
	lambdaLoc := loc(mod, 2)
	lit := loc(mod, 0)

	innerUse := ast.EId(useLoc, ast.Id{Loc: useLoc, Name: x})
	lambda := ast.Expr{Tag: ast.ExprLambda, Loc: lambdaLoc, Body: &innerUse}

	block := ast.Expr{
		Tag: ast.ExprBlock,
		Loc: loc(mod, 4),
		Statements: []ast.DeclarationStatement{
			{Loc: defLoc, Pattern: ast.Pattern{Tag: ast.PatternId, Loc: defLoc, SingleId: x}, AssignedExpression: ast.ELiteralUnit(lit)},
		},
		FinalExpr: &lambda,
	}

	result := AnalyzeExpression(h, mod, &block, errs)
	if errs.HasErrors() {
		t.Fatalf("did not expect errors, got %v", errs.Messages(h))
	}
	captured, ok := result.LambdaCaptures[lambdaLoc]
	if !ok {
		t.Fatal("expected a capture set recorded for the lambda")
	}
	if _, ok := captured[x]; !ok {
		t.Fatal("expected x to be captured by the lambda")
	}
	if got := result.UseDefineMap[useLoc]; got != defLoc {
		t.Fatalf("expected use of x inside the lambda to resolve to its outer definition, got %v", got)
	}
}
