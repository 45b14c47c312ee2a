// Package checker ties name resolution (internal/ssa), typing
// queries (internal/typectx), and exhaustiveness (internal/pattern)
// together into the per-module type-checking pass the language
// service drives incrementally (spec.md §4.11): building the
// cross-module GlobalSignature once, then checking each module's
// member bodies against it and recording every CompileTimeError along
// the way.
//
// This is a syntax-directed, single-pass elaborator rather than a full
// bidirectional (synthesize/check) type checker: it infers an
// expression's type bottom-up in source-evaluation order without a
// separate expected-type-propagation phase. That is sufficient to
// drive exhaustiveness checking, method/field resolution, and
// hover/autocomplete (internal/langserver's actual consumers) for the
// grammar internal/sourceparse accepts; it is not a claim to fully
// reimplement samlang-checker's bidirectional inference.
package checker

import (
	"github.com/samlang-go/samc/internal/ast"
	"github.com/samlang-go/samc/internal/errors"
	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/sourcetype"
	"github.com/samlang-go/samc/internal/typectx"
)

// AnnotationToType converts a syntactic annotation (already
// disambiguated by the parser into Primitive/Id/Generic/Fn) into its
// semantic sourcetype.Type, with no further context needed since the
// parser already resolved the generic-vs-nominal ambiguity.
func AnnotationToType(a ast.Annotation) sourcetype.Type {
	reason := sourcetype.NewReason(a.Location)
	switch a.Tag {
	case ast.AnnotationTagPrimitive:
		switch a.Primitive {
		case ast.AnnotationUnit:
			return sourcetype.PrimitiveType(reason, sourcetype.Unit)
		case ast.AnnotationBool:
			return sourcetype.PrimitiveType(reason, sourcetype.Bool)
		case ast.AnnotationString:
			return sourcetype.PrimitiveType(reason, sourcetype.StringKind)
		default:
			return sourcetype.PrimitiveType(reason, sourcetype.Int)
		}
	case ast.AnnotationTagGeneric:
		return sourcetype.GenericType(reason, a.GenericId.Name)
	case ast.AnnotationTagFn:
		args := make([]sourcetype.Type, len(a.FnArgumentTypes))
		for i, arg := range a.FnArgumentTypes {
			args[i] = AnnotationToType(arg)
		}
		return sourcetype.FnType(reason, args, AnnotationToType(*a.FnReturnType))
	default:
		return IdAnnotationToType(*a.IdAnnot, false)
	}
}

// IdAnnotationToType converts a nominal type reference.
func IdAnnotationToType(id ast.IdAnnotation, isClassStatic bool) sourcetype.Type {
	args := make([]sourcetype.Type, len(id.TypeArguments))
	for i, arg := range id.TypeArguments {
		args[i] = AnnotationToType(arg)
	}
	return sourcetype.NominalType(sourcetype.NewReason(id.Location), id.ModuleReference, id.Id.Name, args, isClassStatic)
}

func convertTypeParameters(tparams []ast.TypeParameter) []typectx.TypeParameterSignature {
	out := make([]typectx.TypeParameterSignature, len(tparams))
	for i, tp := range tparams {
		sig := typectx.TypeParameterSignature{Name: tp.Name.Name}
		if tp.Bound != nil {
			bound := IdAnnotationToType(*tp.Bound, false)
			sig.Bound = &bound
		}
		out[i] = sig
	}
	return out
}

func convertMemberSignature(decl ast.ClassMemberDeclaration) typectx.MemberSignature {
	argTypes := make([]sourcetype.Type, len(decl.Type.ArgumentTypes))
	for i, a := range decl.Type.ArgumentTypes {
		argTypes[i] = AnnotationToType(a)
	}
	retType := AnnotationToType(decl.Type.ReturnType)
	fnType := sourcetype.FnType(sourcetype.NewReason(decl.Loc), argTypes, retType)
	return typectx.MemberSignature{
		IsPublic:       decl.IsPublic,
		TypeParameters: convertTypeParameters(decl.TypeParameters),
		Type:           fnType,
	}
}

func convertTypeDefinition(td *ast.TypeDefinition) *typectx.TypeDefinitionSignature {
	if td == nil {
		return nil
	}
	switch td.Tag {
	case ast.TypeDefinitionStruct:
		items := make([]typectx.StructItemDefinitionSignature, len(td.Fields))
		for i, f := range td.Fields {
			items[i] = typectx.StructItemDefinitionSignature{Name: f.Name.Name, Type: AnnotationToType(f.Annotation), IsPublic: f.IsPublic}
		}
		return &typectx.TypeDefinitionSignature{Tag: typectx.TypeDefinitionSignatureStruct, Struct: items}
	default:
		variants := make([]typectx.EnumVariantDefinitionSignature, len(td.Variants))
		for i, v := range td.Variants {
			types := make([]sourcetype.Type, len(v.AssociatedDataTypes))
			for j, a := range v.AssociatedDataTypes {
				types[j] = AnnotationToType(a)
			}
			variants[i] = typectx.EnumVariantDefinitionSignature{Name: v.Name.Name, Types: types}
		}
		return &typectx.TypeDefinitionSignature{Tag: typectx.TypeDefinitionSignatureEnum, Enum: variants}
	}
}

func toplevelToInterfaceSignature(top *ast.Toplevel) *typectx.InterfaceSignature {
	sig := &typectx.InterfaceSignature{
		TypeParameters: convertTypeParameters(top.TypeParams),
		TypeDefinition: convertTypeDefinition(top.TypeDef),
		Methods:        make(map[heap.PStr]typectx.MemberSignature),
		Functions:      make(map[heap.PStr]typectx.MemberSignature),
	}
	for _, ext := range top.ExtendsOrImplements {
		sig.SuperTypes = append(sig.SuperTypes, IdAnnotationToType(ext.Id, false))
	}
	switch top.Tag {
	case ast.ToplevelClass:
		for _, m := range top.ClassMembers {
			memberSig := convertMemberSignature(m.Decl)
			if m.Decl.IsMethod {
				sig.Methods[m.Decl.Name.Name] = memberSig
			} else {
				sig.Functions[m.Decl.Name.Name] = memberSig
			}
		}
	case ast.ToplevelInterface:
		for _, m := range top.InterfaceMembers {
			memberSig := convertMemberSignature(m)
			if m.IsMethod {
				sig.Methods[m.Name.Name] = memberSig
			} else {
				sig.Functions[m.Name.Name] = memberSig
			}
		}
	}
	return sig
}

// BuildGlobalSignature resolves every module's outward contract
// (spec.md §4.3) in one pass: since annotation-to-type conversion is
// context-free (the parser has already disambiguated generic vs.
// nominal references), no fixed-point iteration over module order is
// needed.
func BuildGlobalSignature(modules map[heap.ModuleReference]*ast.Module) typectx.GlobalSignature {
	global := make(typectx.GlobalSignature, len(modules))
	for modRef, module := range modules {
		modSig := &typectx.ModuleSignature{Interfaces: make(map[heap.PStr]*typectx.InterfaceSignature)}
		for i := range module.Toplevels {
			top := &module.Toplevels[i]
			modSig.Interfaces[top.Name().Name] = toplevelToInterfaceSignature(top)
		}
		global[modRef] = modSig
	}
	return global
}

// CheckImports validates that every module's imports resolve to a
// known module and to an actually-exported toplevel name there,
// reporting CannotResolveModule / MissingExport otherwise (spec.md
// §6's error taxonomy; exercised directly by the S5/S6 end-to-end
// scenarios in spec.md §8).
func CheckImports(h *heap.Heap, modules map[heap.ModuleReference]*ast.Module, errs *errors.Set) {
	for _, module := range modules {
		for _, imp := range module.Imports {
			importedModule, ok := modules[imp.ImportedModule]
			if !ok {
				errs.Report(imp.Loc, errors.Detail{Kind: errors.KindCannotResolveModule, Module: imp.ImportedModule})
				continue
			}
			exported := make(map[heap.PStr]bool, len(importedModule.Toplevels))
			for _, top := range importedModule.Toplevels {
				exported[top.Name().Name] = true
			}
			for _, member := range imp.ImportedMembers {
				if !exported[member.Name.Name] {
					errs.Report(member.Name.Loc, errors.Detail{Kind: errors.KindMissingExport, Module: imp.ImportedModule, Name: member.Name.Name})
				}
			}
		}
	}
}
