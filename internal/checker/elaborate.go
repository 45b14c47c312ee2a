package checker

import (
	"sort"

	"github.com/samlang-go/samc/internal/ast"
	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/pattern"
	"github.com/samlang-go/samc/internal/sourcetype"
	"github.com/samlang-go/samc/internal/typectx"
)

// ElaborateExprType re-synthesizes e's type against an already-checked
// module. internal/lower calls this (with a throwaway errors.Set, since
// a clean compile has nothing left to report) to recover each
// subexpression's resolved type while lowering to HIR, rather than
// threading a parallel type-annotated tree out of the checking pass.
func ElaborateExprType(tc *typectx.TypingContext, e *ast.Expr) sourcetype.Type {
	return elaborateExpr(tc, e)
}

// elaborateExpr synthesizes a type for e in source-evaluation order,
// writing every binding it introduces (parameters, match data
// variables, block-statement patterns) into tc.Local as it goes, and
// reporting a diagnostic into tc.Errors for every mismatch it finds
// along the way. See the package doc comment for why this is
// syntax-directed rather than fully bidirectional.
func elaborateExpr(tc *typectx.TypingContext, e *ast.Expr) sourcetype.Type {
	h := tc.Heap
	reason := sourcetype.NewReason(e.Loc)
	switch e.Tag {
	case ast.ExprLiteral:
		switch e.LiteralKind {
		case ast.LiteralBool:
			return sourcetype.PrimitiveType(reason, sourcetype.Bool)
		case ast.LiteralString:
			return sourcetype.PrimitiveType(reason, sourcetype.StringKind)
		case ast.LiteralInt:
			return sourcetype.PrimitiveType(reason, sourcetype.Int)
		default:
			return sourcetype.PrimitiveType(reason, sourcetype.Unit)
		}

	case ast.ExprClassId:
		return sourcetype.NominalType(reason, e.ModuleReference, e.Id.Name, nil, true)

	case ast.ExprLocalId:
		return tc.Local.Read(e.Loc)

	case ast.ExprFieldAccess:
		objType := elaborateExpr(tc, e.Object)
		for _, field := range tc.ResolveStructDefinitions(objType) {
			if field.Name == e.FieldOrMethodName.Name {
				return field.Type.Reposition(e.Loc)
			}
		}
		tc.Errors.ReportMemberMissing(e.Loc, objType.Describe(h), e.FieldOrMethodName.Name)
		return sourcetype.AnyType(reason, false)

	case ast.ExprMethodAccess:
		// Reached only when a method reference appears without being
		// immediately called (e.g. passed as a value); a call expression
		// resolves its MethodAccess callee directly in elaborateCall so
		// the argument list can be checked against the resolved arity.
		objType := elaborateExpr(tc, e.Object)
		if sig, ok := tc.GetMethodType(objType, e.FieldOrMethodName.Name, e.Loc); ok {
			return sig.Type
		}
		tc.Errors.ReportMemberMissing(e.Loc, objType.Describe(h), e.FieldOrMethodName.Name)
		return sourcetype.AnyType(reason, false)

	case ast.ExprUnary:
		argType := elaborateExpr(tc, e.Argument)
		switch e.UnaryOperator {
		case ast.UnaryNot:
			requireType(tc, sourcetype.PrimitiveType(sourcetype.NewReason(e.Argument.Loc), sourcetype.Bool), argType, e.Argument.Loc)
			return sourcetype.PrimitiveType(reason, sourcetype.Bool)
		default:
			requireType(tc, sourcetype.PrimitiveType(sourcetype.NewReason(e.Argument.Loc), sourcetype.Int), argType, e.Argument.Loc)
			return sourcetype.PrimitiveType(reason, sourcetype.Int)
		}

	case ast.ExprCall:
		return elaborateCall(tc, e)

	case ast.ExprBinary:
		t1 := elaborateExpr(tc, e.E1)
		t2 := elaborateExpr(tc, e.E2)
		return elaborateBinary(tc, e, t1, t2)

	case ast.ExprIfElse:
		condType := elaborateExpr(tc, e.Condition)
		requireType(tc, sourcetype.PrimitiveType(sourcetype.NewReason(e.Condition.Loc), sourcetype.Bool), condType, e.Condition.Loc)
		t1 := elaborateExpr(tc, e.E1)
		t2 := elaborateExpr(tc, e.E2)
		if !typesCompatible(tc, t1, t2) && !typesCompatible(tc, t2, t1) {
			tc.Errors.ReportIncompatibleType(e.E2.Loc, t1.Describe(h), t2.Describe(h), false)
		}
		return t1

	case ast.ExprMatch:
		return elaborateMatch(tc, e)

	case ast.ExprLambda:
		return elaborateLambda(tc, e)

	case ast.ExprBlock:
		return elaborateBlock(tc, e)
	}
	return sourcetype.AnyType(reason, false)
}

func requireType(tc *typectx.TypingContext, expected, actual sourcetype.Type, loc ast.Location) {
	if !typesCompatible(tc, expected, actual) {
		tc.Errors.ReportIncompatibleType(loc, expected.Describe(tc.Heap), actual.Describe(tc.Heap), false)
	}
}

func elaborateBinary(tc *typectx.TypingContext, e *ast.Expr, t1, t2 sourcetype.Type) sourcetype.Type {
	reason := sourcetype.NewReason(e.Loc)
	intType := sourcetype.PrimitiveType(reason, sourcetype.Int)
	boolType := sourcetype.PrimitiveType(reason, sourcetype.Bool)
	stringType := sourcetype.PrimitiveType(reason, sourcetype.StringKind)
	switch e.BinaryOperator {
	case ast.BinaryMul, ast.BinaryDiv, ast.BinaryMod, ast.BinaryPlus, ast.BinaryMinus:
		requireType(tc, sourcetype.PrimitiveType(sourcetype.NewReason(e.E1.Loc), sourcetype.Int), t1, e.E1.Loc)
		requireType(tc, sourcetype.PrimitiveType(sourcetype.NewReason(e.E2.Loc), sourcetype.Int), t2, e.E2.Loc)
		return intType
	case ast.BinaryLt, ast.BinaryLe, ast.BinaryGt, ast.BinaryGe:
		requireType(tc, sourcetype.PrimitiveType(sourcetype.NewReason(e.E1.Loc), sourcetype.Int), t1, e.E1.Loc)
		requireType(tc, sourcetype.PrimitiveType(sourcetype.NewReason(e.E2.Loc), sourcetype.Int), t2, e.E2.Loc)
		return boolType
	case ast.BinaryEq, ast.BinaryNe:
		if !typesCompatible(tc, t1, t2) && !typesCompatible(tc, t2, t1) {
			tc.Errors.ReportIncompatibleType(e.E2.Loc, t1.Describe(tc.Heap), t2.Describe(tc.Heap), false)
		}
		return boolType
	case ast.BinaryAnd, ast.BinaryOr:
		requireType(tc, sourcetype.PrimitiveType(sourcetype.NewReason(e.E1.Loc), sourcetype.Bool), t1, e.E1.Loc)
		requireType(tc, sourcetype.PrimitiveType(sourcetype.NewReason(e.E2.Loc), sourcetype.Bool), t2, e.E2.Loc)
		return boolType
	default: // BinaryConcat: unreachable through internal/sourceparse's grammar
		return stringType
	}
}

func elaborateCall(tc *typectx.TypingContext, e *ast.Expr) sourcetype.Type {
	h := tc.Heap
	reason := sourcetype.NewReason(e.Loc)
	var fnType sourcetype.Type
	if e.Callee.Tag == ast.ExprMethodAccess {
		objType := elaborateExpr(tc, e.Callee.Object)
		sig, ok := tc.GetMethodType(objType, e.Callee.FieldOrMethodName.Name, e.Callee.Loc)
		if !ok {
			tc.Errors.ReportMemberMissing(e.Callee.Loc, objType.Describe(h), e.Callee.FieldOrMethodName.Name)
			for i := range e.Arguments {
				elaborateExpr(tc, &e.Arguments[i])
			}
			return sourcetype.AnyType(reason, false)
		}
		fnType = sig.Type
	} else {
		fnType = elaborateExpr(tc, e.Callee)
		if fnType.Tag != sourcetype.TagFn {
			tc.Errors.ReportIncompatibleType(e.Callee.Loc, "function", fnType.Describe(h), false)
			for i := range e.Arguments {
				elaborateExpr(tc, &e.Arguments[i])
			}
			return sourcetype.AnyType(reason, false)
		}
	}

	if len(fnType.FnArgs) != len(e.Arguments) {
		tc.Errors.ReportInvalidArity(e.Loc, "function argument", len(fnType.FnArgs), len(e.Arguments))
	}
	for i := range e.Arguments {
		argType := elaborateExpr(tc, &e.Arguments[i])
		if i < len(fnType.FnArgs) {
			requireType(tc, fnType.FnArgs[i], argType, e.Arguments[i].Loc)
		}
	}
	return fnType.FnRet.Reposition(e.Loc)
}

func elaborateLambda(tc *typectx.TypingContext, e *ast.Expr) sourcetype.Type {
	paramTypes := make([]sourcetype.Type, len(e.Parameters))
	for i, p := range e.Parameters {
		var pt sourcetype.Type
		if p.Annotation != nil {
			pt = AnnotationToType(*p.Annotation)
		} else {
			pt = tc.MkUnderconstrainedAnyType(sourcetype.NewReason(p.Name.Loc))
		}
		tc.Local.Write(p.Name.Loc, pt)
		paramTypes[i] = pt
	}
	bodyType := elaborateExpr(tc, e.Body)
	return sourcetype.FnType(sourcetype.NewReason(e.Loc), paramTypes, bodyType)
}

func elaborateBlock(tc *typectx.TypingContext, e *ast.Expr) sourcetype.Type {
	h := tc.Heap
	for i := range e.Statements {
		stmt := &e.Statements[i]
		assignedType := elaborateExpr(tc, &stmt.AssignedExpression)
		if stmt.Annotation != nil {
			declared := AnnotationToType(*stmt.Annotation)
			requireType(tc, declared, assignedType, stmt.AssignedExpression.Loc)
			assignedType = declared
		}
		switch stmt.Pattern.Tag {
		case ast.PatternId:
			tc.Local.Write(stmt.Pattern.Loc, assignedType)
		case ast.PatternObject:
			fields := tc.ResolveStructDefinitions(assignedType)
			byName := make(map[heap.PStr]sourcetype.Type, len(fields))
			for _, f := range fields {
				byName[f.Name] = f.Type
			}
			for _, name := range stmt.Pattern.Names {
				ft, ok := byName[name.FieldName.Name]
				if !ok {
					tc.Errors.ReportMemberMissing(name.FieldName.Loc, assignedType.Describe(h), name.FieldName.Name)
					ft = sourcetype.AnyType(sourcetype.NewReason(name.FieldName.Loc), false)
				}
				id := name.FieldName
				if name.Alias != nil {
					id = *name.Alias
				}
				tc.Local.Write(id.Loc, ft)
			}
		case ast.PatternWildcard:
			// binds nothing
		}
	}
	if e.FinalExpr != nil {
		return elaborateExpr(tc, e.FinalExpr)
	}
	return sourcetype.PrimitiveType(sourcetype.NewReason(e.Loc), sourcetype.Unit)
}

// elaborateMatch type-checks a match expression's scrutinee and every
// arm, binding each arm's data variables from the enum's (substituted)
// variant field types, and runs the Maranget usefulness algorithm
// (internal/pattern) to report a non-exhaustive match exactly when
// appending a trailing wildcard arm would still be useful (spec.md
// §4.1, §8 property 7).
func elaborateMatch(tc *typectx.TypingContext, e *ast.Expr) sourcetype.Type {
	h := tc.Heap
	matchedType := elaborateExpr(tc, e.Matched)
	mod, className, variants, isEnum := tc.ResolveDetailedEnumDefinitionsOpt(matchedType)
	if !isEnum {
		tc.Errors.ReportIncompatibleType(e.Matched.Loc, "enum", matchedType.Describe(h), false)
	}
	arityOf := make(map[heap.PStr]int, len(variants))
	typesOf := make(map[heap.PStr][]sourcetype.Type, len(variants))
	for _, v := range variants {
		arityOf[v.Name] = len(v.Types)
		typesOf[v.Name] = v.Types
	}

	var existingPatterns []pattern.Node
	var seenNames []heap.PStr
	var resultType sourcetype.Type
	haveResult := false

	for ci := range e.Cases {
		c := &e.Cases[ci]
		if isEnum {
			if expectedArity, known := arityOf[c.TagName.Name]; known {
				if expectedArity != len(c.DataVariables) {
					tc.Errors.ReportInvalidArity(c.Loc, "match pattern", expectedArity, len(c.DataVariables))
				}
			} else {
				tc.Errors.ReportMemberMissing(c.TagName.Loc, matchedType.Describe(h), c.TagName.Name)
			}
		}
		elements := make([]pattern.Node, len(c.DataVariables))
		for i := range c.DataVariables {
			elements[i] = pattern.Wildcard()
		}
		existingPatterns = append(existingPatterns, pattern.Variant(pattern.VariantConstructor{
			Module: mod, ClassName: className, VariantName: c.TagName.Name,
		}, elements...))
		seenNames = append(seenNames, c.TagName.Name)

		dataTypes := typesOf[c.TagName.Name]
		for i, dv := range c.DataVariables {
			if dv == nil {
				continue
			}
			var dt sourcetype.Type
			if i < len(dataTypes) {
				dt = dataTypes[i].Reposition(dv.Name.Loc)
			} else {
				dt = sourcetype.AnyType(sourcetype.NewReason(dv.Name.Loc), false)
			}
			tc.Local.Write(dv.Name.Loc, dt)
		}

		caseType := elaborateExpr(tc, c.Body)
		if !haveResult {
			resultType = caseType
			haveResult = true
		} else if !typesCompatible(tc, resultType, caseType) {
			tc.Errors.ReportIncompatibleType(c.Body.Loc, resultType.Describe(h), caseType.Describe(h), false)
		}
	}

	if isEnum && pattern.IsAdditionalPatternUseful(tc, existingPatterns, pattern.Wildcard()) {
		missing := tc.VariantSignatureIncompleteNames(mod, className, seenNames)
		if len(missing) > 0 {
			names := make([]heap.PStr, 0, len(missing))
			for n := range missing {
				names = append(names, n)
			}
			sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
			tc.Errors.ReportNonExhaustiveMatch(e.Loc, names)
		}
	}

	if !haveResult {
		return sourcetype.AnyType(sourcetype.NewReason(e.Loc), false)
	}
	return resultType
}
