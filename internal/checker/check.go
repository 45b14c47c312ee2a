package checker

import (
	"github.com/samlang-go/samc/internal/ast"
	"github.com/samlang-go/samc/internal/errors"
	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/sourcetype"
	"github.com/samlang-go/samc/internal/ssa"
	"github.com/samlang-go/samc/internal/typectx"
)

// ModuleCheckResult is everything the language service keeps per
// module after a check pass: the SSA analysis (use/def, captures) and
// the inferred type at every definition location, both of which
// hover/goto/autocomplete read directly without re-running inference
// (spec.md §4.11).
type ModuleCheckResult struct {
	SSA   *ssa.Result
	Local *typectx.LocalTypingContext
}

// CheckModule runs name resolution and type checking over one already
// parsed module, reporting every diagnostic into errs, and returns the
// per-module state the language service retains for incremental
// queries.
func CheckModule(h *heap.Heap, global typectx.GlobalSignature, errs *errors.Set, modRef heap.ModuleReference, module *ast.Module) *ModuleCheckResult {
	ssaResult := ssa.AnalyzeModule(h, modRef, module, errs)
	local := typectx.NewLocalTypingContext(ssaResult)

	for i := range module.Toplevels {
		top := &module.Toplevels[i]
		if top.Tag != ast.ToplevelClass {
			continue
		}
		checkClassBody(h, global, errs, modRef, local, top)
	}
	return &ModuleCheckResult{SSA: ssaResult, Local: local}
}

func classSelfType(modRef heap.ModuleReference, top *ast.Toplevel) sourcetype.Type {
	args := make([]sourcetype.Type, len(top.TypeParams))
	for i, tp := range top.TypeParams {
		args[i] = sourcetype.GenericType(sourcetype.NewReason(top.Loc), tp.Name.Name)
	}
	return sourcetype.NominalType(sourcetype.NewReason(top.Loc), modRef, top.Name().Name, args, false)
}

func checkClassBody(h *heap.Heap, global typectx.GlobalSignature, errs *errors.Set, modRef heap.ModuleReference, local *typectx.LocalTypingContext, top *ast.Toplevel) {
	className := top.Name().Name
	classTypeParams := convertTypeParameters(top.TypeParams)
	selfType := classSelfType(modRef, top)

	for i := range top.ClassMembers {
		m := &top.ClassMembers[i]
		available := append(append([]typectx.TypeParameterSignature{}, classTypeParams...), convertTypeParameters(m.Decl.TypeParameters)...)
		tc := typectx.New(h, global, local, errs, modRef, className, available)

		if m.Decl.IsMethod {
			local.Write(top.Loc, selfType)
		}
		for _, param := range m.Decl.Parameters {
			paramType := AnnotationToType(param.Annotation)
			tc.ValidateTypeInstantiationAllowAbstractTypes(paramType)
			local.Write(param.Name.Loc, paramType)
		}
		declaredReturn := AnnotationToType(m.Decl.Type.ReturnType)
		tc.ValidateTypeInstantiationAllowAbstractTypes(declaredReturn)

		bodyType := elaborateExpr(tc, &m.Body)
		if !typesCompatible(tc, declaredReturn, bodyType) {
			errs.ReportIncompatibleType(m.Body.Loc, declaredReturn.Describe(h), bodyType.Describe(h), false)
		}
	}
}

// typesCompatible reports whether actual may stand in for expected:
// exactly, as a nominal subtype, or because either side is the
// underconstrained Any type (which this elaborator produces whenever
// it cannot synthesize a more precise type, and which must not cascade
// into a wall of follow-on diagnostics).
func typesCompatible(tc *typectx.TypingContext, expected, actual sourcetype.Type) bool {
	if expected.Tag == sourcetype.TagAny || actual.Tag == sourcetype.TagAny {
		return true
	}
	if expected.IsTheSameType(actual) {
		return true
	}
	return tc.IsSubtype(actual, expected)
}
