package langserver

import (
	"github.com/samlang-go/samc/internal/ast"
	"github.com/samlang-go/samc/internal/heap"
)

// moduleMarkedPerSlice and sweepUnit mirror the bounded incremental GC
// constants from _examples/original_source/crates/samlang-services/
// src/gc.rs (NUM_MODULE_MARKED_PER_SLICE, NUM_SWEEP_UNIT): each recheck
// only marks a handful of modules' worth of reachable atoms and sweeps
// a bounded unit, so a single edit never pays for a full-heap GC pass.
const (
	moduleMarkedPerSlice = 100
	sweepUnit            = 10000
)

// markAnnotation walks an annotation's interned names, mirroring
// gc.rs's mark_annot / mark_id_annot / mark_fn_annot.
func markAnnotation(h *heap.Heap, a ast.Annotation) {
	switch a.Tag {
	case ast.AnnotationTagId:
		markIdAnnotation(h, *a.IdAnnot)
	case ast.AnnotationTagGeneric:
		h.Mark(a.GenericId.Name)
	case ast.AnnotationTagFn:
		for _, arg := range a.FnArgumentTypes {
			markAnnotation(h, arg)
		}
		markAnnotation(h, *a.FnReturnType)
	}
}

func markIdAnnotation(h *heap.Heap, id ast.IdAnnotation) {
	id.ModuleReference.MarkReachable(h)
	h.Mark(id.Id.Name)
	for _, ta := range id.TypeArguments {
		markAnnotation(h, ta)
	}
}

func markTypeParameters(h *heap.Heap, tps []ast.TypeParameter) {
	for _, tp := range tps {
		h.Mark(tp.Name.Name)
		if tp.Bound != nil {
			markIdAnnotation(h, *tp.Bound)
		}
	}
}

func markPattern(h *heap.Heap, p ast.Pattern) {
	switch p.Tag {
	case ast.PatternObject:
		for _, n := range p.Names {
			h.Mark(n.FieldName.Name)
			if n.Alias != nil {
				h.Mark(n.Alias.Name)
			}
		}
	case ast.PatternId:
		h.Mark(p.SingleId)
	case ast.PatternWildcard:
	}
}

// markExpr recursively marks every interned name an expression
// touches, ported from gc.rs's mark_expression.
func markExpr(h *heap.Heap, e ast.Expr) {
	switch e.Tag {
	case ast.ExprLiteral:
		if e.LiteralKind == ast.LiteralString {
			h.Mark(e.LiteralString)
		}
	case ast.ExprClassId:
		e.ModuleReference.MarkReachable(h)
		h.Mark(e.Id.Name)
	case ast.ExprLocalId:
		h.Mark(e.Id.Name)
	case ast.ExprFieldAccess, ast.ExprMethodAccess:
		markExpr(h, *e.Object)
		h.Mark(e.FieldOrMethodName.Name)
		for _, ta := range e.ExplicitTypeArguments {
			markAnnotation(h, ta)
		}
	case ast.ExprUnary:
		markExpr(h, *e.Argument)
	case ast.ExprCall:
		markExpr(h, *e.Callee)
		for _, arg := range e.Arguments {
			markExpr(h, arg)
		}
	case ast.ExprBinary:
		markExpr(h, *e.E1)
		markExpr(h, *e.E2)
	case ast.ExprIfElse:
		markExpr(h, *e.Condition)
		markExpr(h, *e.E1)
		markExpr(h, *e.E2)
	case ast.ExprMatch:
		markExpr(h, *e.Matched)
		for _, c := range e.Cases {
			h.Mark(c.TagName.Name)
			for _, dv := range c.DataVariables {
				if dv != nil {
					h.Mark(dv.Name.Name)
				}
			}
			markExpr(h, *c.Body)
		}
	case ast.ExprLambda:
		for _, p := range e.Parameters {
			h.Mark(p.Name.Name)
			if p.Annotation != nil {
				markAnnotation(h, *p.Annotation)
			}
		}
		markExpr(h, *e.Body)
	case ast.ExprBlock:
		for _, s := range e.Statements {
			markPattern(h, s.Pattern)
			if s.Annotation != nil {
				markAnnotation(h, *s.Annotation)
			}
			markExpr(h, s.AssignedExpression)
		}
		if e.FinalExpr != nil {
			markExpr(h, *e.FinalExpr)
		}
	}
}

// markModule marks every interned name reachable from a toplevel's
// declaration shape and, for classes, its member bodies, following
// gc.rs's mark_module.
func markModule(h *heap.Heap, modRef heap.ModuleReference, m *ast.Module) {
	modRef.MarkReachable(h)
	for _, imp := range m.Imports {
		imp.ImportedModule.MarkReachable(h)
		for _, member := range imp.ImportedMembers {
			h.Mark(member.Name.Name)
		}
	}
	for _, top := range m.Toplevels {
		h.Mark(top.NameId.Name)
		markTypeParameters(h, top.TypeParameters())
		for _, ext := range top.ExtendsOrImplementsNodes() {
			markIdAnnotation(h, ext.Id)
		}
		if td := top.TypeDefinitionOf(); td != nil {
			switch td.Tag {
			case ast.TypeDefinitionStruct:
				for _, f := range td.Fields {
					h.Mark(f.Name.Name)
					markAnnotation(h, f.Annotation)
				}
			case ast.TypeDefinitionEnum:
				for _, v := range td.Variants {
					h.Mark(v.Name.Name)
					for _, a := range v.AssociatedDataTypes {
						markAnnotation(h, a)
					}
				}
			}
		}
		for _, member := range top.ClassMembers {
			h.Mark(member.Decl.Name.Name)
			markTypeParameters(h, member.Decl.TypeParameters)
			for _, p := range member.Decl.Parameters {
				h.Mark(p.Name.Name)
				markAnnotation(h, p.Annotation)
			}
			markAnnotation(h, member.Decl.Type.ReturnType)
			markExpr(h, member.Body)
		}
	}
}

// runGC enqueues every module in changed as an unmarked module
// reference, marks up to cfg.ModuleMarkedPerSlice of them against the
// current parse table, then sweeps a bounded unit — the same
// two-phase "enqueue, mark a slice, sweep a unit" shape as gc.rs's
// perform_gc_after_recheck_internal.
func runGC(h *heap.Heap, cfg GCConfig, parsed map[heap.ModuleReference]*ast.Module, changed map[heap.ModuleReference]bool) {
	for modRef := range changed {
		h.AddUnmarkedModuleReference(modRef)
	}
	for i := 0; i < cfg.ModuleMarkedPerSlice; i++ {
		modRef, ok := h.PopUnmarkedModuleReference()
		if !ok {
			break
		}
		if m, ok := parsed[modRef]; ok {
			markModule(h, modRef, m)
		}
	}
	h.Sweep(cfg.SweepUnit)
}
