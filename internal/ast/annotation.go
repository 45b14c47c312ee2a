package ast

import "github.com/samlang-go/samc/internal/heap"

// AnnotationPrimitiveKind enumerates the primitive type annotations a
// programmer can write in source. Kept separate from
// internal/sourcetype's PrimitiveKind (which that package cannot name
// here without an import cycle, since sourcetype.Reason embeds
// ast.Location): an annotation is syntax, a sourcetype.Type is the
// resolved semantic type it elaborates to.
type AnnotationPrimitiveKind int

const (
	AnnotationUnit AnnotationPrimitiveKind = iota
	AnnotationBool
	AnnotationInt
	AnnotationString
)

// Id is a source-level identifier occurrence.
type Id struct {
	Loc  Location
	Name heap.PStr
}

// AnnotationTag discriminates Annotation's variant.
type AnnotationTag int

const (
	AnnotationTagPrimitive AnnotationTag = iota
	AnnotationTagId
	AnnotationTagGeneric
	AnnotationTagFn
)

// IdAnnotation is a (possibly qualified) nominal type reference, used
// both for ordinary type annotations and for extends/implements
// clauses and generic-parameter bounds.
type IdAnnotation struct {
	Location        Location
	ModuleReference heap.ModuleReference
	Id              Id
	TypeArguments   []Annotation
}

// Annotation is a syntactic type annotation as written in source.
type Annotation struct {
	Tag      AnnotationTag
	Location Location

	Primitive AnnotationPrimitiveKind // Primitive only

	IdAnnot *IdAnnotation // Id only

	GenericId Id // Generic only

	FnArgumentTypes []Annotation // Fn only
	FnReturnType    *Annotation  // Fn only
}

// TypeParameter is a generic type parameter declaration with an
// optional upper bound.
type TypeParameter struct {
	Loc   Location
	Name  Id
	Bound *IdAnnotation
}
