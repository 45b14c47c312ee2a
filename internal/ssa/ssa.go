// Package ssa computes, for a single module, the use-def mapping
// (which occurrence of a name refers to which definition), lambda
// variable capture sets, and unbound/shadowed-name diagnostics
// (spec.md §4.2).
package ssa

import (
	"github.com/samlang-go/samc/internal/ast"
	"github.com/samlang-go/samc/internal/errors"
	"github.com/samlang-go/samc/internal/heap"
)

// localStackedContext tracks nested lexical scopes during a single
// top-down walk. Reading a name defined in an enclosing (but not the
// innermost) scope records it as captured in every scope level between
// the definition and the read, which is exactly how lambda_captures is
// computed without a second pass.
type localStackedContext struct {
	localValuesStack    []map[heap.PStr]ast.Location
	capturedValuesStack []map[heap.PStr]ast.Location
}

func newLocalStackedContext() *localStackedContext {
	return &localStackedContext{
		localValuesStack:    []map[heap.PStr]ast.Location{make(map[heap.PStr]ast.Location)},
		capturedValuesStack: []map[heap.PStr]ast.Location{make(map[heap.PStr]ast.Location)},
	}
}

// get resolves name, searching from the innermost scope outward. If it
// is found below the innermost scope, it is recorded as captured by
// every scope strictly between its definition and the innermost scope.
// forType skips capture recording: type annotations do not close over
// runtime values.
func (c *localStackedContext) get(name heap.PStr, forType bool) (ast.Location, bool) {
	top := len(c.localValuesStack) - 1
	if loc, ok := c.localValuesStack[top][name]; ok {
		return loc, true
	}
	for level := top - 1; level >= 0; level-- {
		if loc, ok := c.localValuesStack[level][name]; ok {
			if !forType {
				for capturedLevel := level + 1; capturedLevel < len(c.capturedValuesStack); capturedLevel++ {
					c.capturedValuesStack[capturedLevel][name] = loc
				}
			}
			return loc, true
		}
	}
	return ast.Location{}, false
}

// insert binds name to value in the innermost scope and returns
// whatever definition (at any enclosing scope level) previously
// existed for the same name, so the caller can report shadowing.
func (c *localStackedContext) insert(name heap.PStr, value ast.Location) (ast.Location, bool) {
	var previous ast.Location
	found := false
	for _, m := range c.localValuesStack {
		if loc, ok := m[name]; ok {
			previous, found = loc, true
			break
		}
	}
	top := len(c.localValuesStack) - 1
	c.localValuesStack[top][name] = value
	return previous, found
}

func (c *localStackedContext) pushScope() {
	c.localValuesStack = append(c.localValuesStack, make(map[heap.PStr]ast.Location))
	c.capturedValuesStack = append(c.capturedValuesStack, make(map[heap.PStr]ast.Location))
}

func (c *localStackedContext) popScope() (map[heap.PStr]ast.Location, map[heap.PStr]ast.Location) {
	topLocal := len(c.localValuesStack) - 1
	topCaptured := len(c.capturedValuesStack) - 1
	local := c.localValuesStack[topLocal]
	captured := c.capturedValuesStack[topCaptured]
	c.localValuesStack = c.localValuesStack[:topLocal]
	c.capturedValuesStack = c.capturedValuesStack[:topCaptured]
	return local, captured
}

// Result is the full output of an analysis pass.
type Result struct {
	UnboundNames       map[heap.PStr]bool
	InvalidDefines     map[ast.Location]bool
	UseDefineMap       map[ast.Location]ast.Location
	DefToUseMap        map[ast.Location][]ast.Location
	LocalScopedDefLocs map[ast.Location]map[heap.PStr]ast.Location
	LambdaCaptures     map[ast.Location]map[heap.PStr]ast.Location
}

type state struct {
	moduleReference heap.ModuleReference
	thisName        heap.PStr
	unboundNames    map[heap.PStr]bool
	invalidDefines  map[ast.Location]bool
	useDefineMap    map[ast.Location]ast.Location
	defLocs         map[ast.Location]bool
	localScopedDefs map[ast.Location]map[heap.PStr]ast.Location
	lambdaCaptures  map[ast.Location]map[heap.PStr]ast.Location
	ctx             *localStackedContext
	errs            *errors.Set
}

func newState(h *heap.Heap, moduleReference heap.ModuleReference, errs *errors.Set) *state {
	return &state{
		moduleReference: moduleReference,
		thisName:        h.Alloc("this"),
		unboundNames:    make(map[heap.PStr]bool),
		invalidDefines:  make(map[ast.Location]bool),
		useDefineMap:    make(map[ast.Location]ast.Location),
		defLocs:         make(map[ast.Location]bool),
		localScopedDefs: make(map[ast.Location]map[heap.PStr]ast.Location),
		lambdaCaptures:  make(map[ast.Location]map[heap.PStr]ast.Location),
		ctx:             newLocalStackedContext(),
		errs:            errs,
	}
}

func (s *state) defineId(name heap.PStr, loc ast.Location) {
	if previous, found := s.ctx.insert(name, loc); found {
		if !s.invalidDefines[loc] {
			s.errs.ReportNameAlreadyBound(loc, name, previous)
			s.invalidDefines[loc] = true
		}
	}
	s.defLocs[loc] = true
}

func (s *state) useId(name heap.PStr, loc ast.Location, forType bool) {
	if def, ok := s.ctx.get(name, forType); ok {
		s.useDefineMap[loc] = def
	} else {
		s.unboundNames[name] = true
		s.errs.ReportCannotResolveName(loc, name)
	}
}

func (s *state) visitModule(module *ast.Module) {
	for _, imp := range module.Imports {
		for _, member := range imp.ImportedMembers {
			s.defineId(member.Name.Name, member.Name.Loc)
		}
	}

	for i := range module.Toplevels {
		name := module.Toplevels[i].Name()
		s.defineId(name.Name, name.Loc)
	}

	for i := range module.Toplevels {
		top := &module.Toplevels[i]
		typeParameters := top.TypeParameters()
		typeDefinition := top.TypeDefinitionOf()

		for _, ext := range top.ExtendsOrImplementsNodes() {
			s.useId(ext.Id.Id.Name, ext.Id.Id.Loc, true)
		}

		s.ctx.pushScope()
		{
			s.ctx.pushScope()
			{
				s.visitTypeParametersWithBounds(typeParameters)
				for _, ext := range top.ExtendsOrImplementsNodes() {
					for _, annot := range ext.Id.TypeArguments {
						s.visitAnnot(&annot)
					}
				}
				if typeDefinition != nil {
					var names []ast.Id
					var annots []*ast.Annotation
					switch typeDefinition.Tag {
					case ast.TypeDefinitionStruct:
						for i := range typeDefinition.Fields {
							names = append(names, typeDefinition.Fields[i].Name)
							annots = append(annots, &typeDefinition.Fields[i].Annotation)
						}
					case ast.TypeDefinitionEnum:
						for i := range typeDefinition.Variants {
							names = append(names, typeDefinition.Variants[i].Name)
							for j := range typeDefinition.Variants[i].AssociatedDataTypes {
								annots = append(annots, &typeDefinition.Variants[i].AssociatedDataTypes[j])
							}
						}
					}
					for _, annot := range annots {
						s.visitAnnot(annot)
					}
					for _, name := range names {
						s.defineId(name.Name, name.Loc)
					}
				}
			}
			s.ctx.popScope()

			// Member names get their own scope purely for conflict
			// detection: they are never referenced without a class
			// prefix, so this scope is discarded immediately.
			s.ctx.pushScope()
			for _, name := range top.MemberNames() {
				s.defineId(name.Name, name.Loc)
			}
			s.ctx.popScope()

			s.ctx.pushScope()
			if typeDefinition != nil {
				s.defineId(s.thisName, top.Loc)
			}
			for _, tparam := range typeParameters {
				s.defineId(tparam.Name.Name, tparam.Name.Loc)
			}
			s.visitMembers(top, true)
			s.ctx.popScope()

			s.ctx.pushScope()
			s.visitMembers(top, false)
			s.ctx.popScope()
		}
		s.ctx.popScope()
	}
}

func (s *state) visitMembers(top *ast.Toplevel, isMethod bool) {
	switch top.Tag {
	case ast.ToplevelClass:
		for i := range top.ClassMembers {
			m := &top.ClassMembers[i]
			if m.Decl.IsMethod == isMethod {
				s.visitMemberDeclaration(&m.Decl, &m.Body)
			}
		}
	case ast.ToplevelInterface:
		for i := range top.InterfaceMembers {
			m := &top.InterfaceMembers[i]
			if m.IsMethod == isMethod {
				s.visitMemberDeclaration(m, nil)
			}
		}
	}
}

func (s *state) visitMemberDeclaration(member *ast.ClassMemberDeclaration, body *ast.Expr) {
	s.ctx.pushScope()
	s.visitTypeParametersWithBounds(member.TypeParameters)
	for i := range member.Parameters {
		s.visitAnnot(&member.Parameters[i].Annotation)
	}
	s.visitAnnot(&member.Type.ReturnType)
	s.ctx.pushScope()
	for _, param := range member.Parameters {
		s.defineId(param.Name.Name, param.Name.Loc)
	}
	if body != nil {
		s.visitExpression(body)
	}
	localDefs, _ := s.ctx.popScope()
	s.localScopedDefs[member.Loc] = localDefs
	s.ctx.popScope()
}

func (s *state) visitTypeParametersWithBounds(typeParameters []ast.TypeParameter) {
	for _, tparam := range typeParameters {
		if tparam.Bound != nil {
			s.useId(tparam.Bound.Id.Name, tparam.Bound.Id.Loc, true)
		}
	}
	for _, tparam := range typeParameters {
		s.defineId(tparam.Name.Name, tparam.Name.Loc)
	}
	for _, tparam := range typeParameters {
		if tparam.Bound != nil {
			for i := range tparam.Bound.TypeArguments {
				s.visitAnnot(&tparam.Bound.TypeArguments[i])
			}
		}
	}
}

func (s *state) visitExpression(e *ast.Expr) {
	switch e.Tag {
	case ast.ExprLiteral, ast.ExprClassId:
		// contributes nothing
	case ast.ExprLocalId:
		s.useId(e.Id.Name, e.Id.Loc, false)
	case ast.ExprFieldAccess, ast.ExprMethodAccess:
		s.visitExpression(e.Object)
		for i := range e.ExplicitTypeArguments {
			s.visitAnnot(&e.ExplicitTypeArguments[i])
		}
	case ast.ExprUnary:
		s.visitExpression(e.Argument)
	case ast.ExprCall:
		s.visitExpression(e.Callee)
		for i := range e.Arguments {
			s.visitExpression(&e.Arguments[i])
		}
	case ast.ExprBinary:
		s.visitExpression(e.E1)
		s.visitExpression(e.E2)
	case ast.ExprIfElse:
		s.visitExpression(e.Condition)
		s.visitExpression(e.E1)
		s.visitExpression(e.E2)
	case ast.ExprMatch:
		s.visitExpression(e.Matched)
		for _, c := range e.Cases {
			s.ctx.pushScope()
			for _, dv := range c.DataVariables {
				if dv != nil {
					s.defineId(dv.Name.Name, dv.Name.Loc)
				}
			}
			s.visitExpression(c.Body)
			localDefs, _ := s.ctx.popScope()
			s.localScopedDefs[c.Loc] = localDefs
		}
	case ast.ExprLambda:
		s.ctx.pushScope()
		for _, p := range e.Parameters {
			s.defineId(p.Name.Name, p.Name.Loc)
			if p.Annotation != nil {
				s.visitAnnot(p.Annotation)
			}
		}
		s.visitExpression(e.Body)
		localDefs, captured := s.ctx.popScope()
		s.localScopedDefs[e.Loc] = localDefs
		s.lambdaCaptures[e.Loc] = captured
	case ast.ExprBlock:
		s.ctx.pushScope()
		for _, stmt := range e.Statements {
			s.visitExpression(&stmt.AssignedExpression)
			if stmt.Annotation != nil {
				s.visitAnnot(stmt.Annotation)
			}
			switch stmt.Pattern.Tag {
			case ast.PatternObject:
				for _, name := range stmt.Pattern.Names {
					id := name.FieldName
					if name.Alias != nil {
						id = *name.Alias
					}
					s.defineId(id.Name, id.Loc)
				}
			case ast.PatternId:
				s.defineId(stmt.Pattern.SingleId, stmt.Pattern.Loc)
			case ast.PatternWildcard:
				// contributes nothing
			}
		}
		if e.FinalExpr != nil {
			s.visitExpression(e.FinalExpr)
		}
		localDefs, _ := s.ctx.popScope()
		s.localScopedDefs[e.Loc] = localDefs
	}
}

func (s *state) visitIdAnnot(annot *ast.IdAnnotation) {
	if s.moduleReference == annot.ModuleReference {
		s.useId(annot.Id.Name, annot.Location, true)
	}
	for i := range annot.TypeArguments {
		s.visitAnnot(&annot.TypeArguments[i])
	}
}

func (s *state) visitAnnot(annot *ast.Annotation) {
	switch annot.Tag {
	case ast.AnnotationTagPrimitive:
		// contributes nothing
	case ast.AnnotationTagId:
		s.visitIdAnnot(annot.IdAnnot)
	case ast.AnnotationTagGeneric:
		s.useId(annot.GenericId.Name, annot.GenericId.Loc, true)
	case ast.AnnotationTagFn:
		for i := range annot.FnArgumentTypes {
			s.visitAnnot(&annot.FnArgumentTypes[i])
		}
		s.visitAnnot(annot.FnReturnType)
	}
}

func (s *state) toResult() *Result {
	defToUseMap := make(map[ast.Location][]ast.Location, len(s.defLocs))
	for loc := range s.defLocs {
		defToUseMap[loc] = []ast.Location{loc}
	}
	for useLoc, defLoc := range s.useDefineMap {
		defToUseMap[defLoc] = append(defToUseMap[defLoc], useLoc)
	}
	return &Result{
		UnboundNames:       s.unboundNames,
		InvalidDefines:     s.invalidDefines,
		UseDefineMap:       s.useDefineMap,
		DefToUseMap:        defToUseMap,
		LocalScopedDefLocs: s.localScopedDefs,
		LambdaCaptures:     s.lambdaCaptures,
	}
}

// AnalyzeExpression runs SSA analysis over a single free-standing
// expression (used by the language service's REPL evaluation mode,
// which type-checks one expression at a time).
func AnalyzeExpression(h *heap.Heap, moduleReference heap.ModuleReference, expression *ast.Expr, errs *errors.Set) *Result {
	s := newState(h, moduleReference, errs)
	s.visitExpression(expression)
	return s.toResult()
}

// AnalyzeModule runs SSA analysis over an entire module.
func AnalyzeModule(h *heap.Heap, moduleReference heap.ModuleReference, module *ast.Module, errs *errors.Set) *Result {
	s := newState(h, moduleReference, errs)
	s.visitModule(module)
	return s.toResult()
}
