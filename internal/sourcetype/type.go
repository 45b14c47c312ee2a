// Package sourcetype defines the source-level type terms (spec.md §3):
// Any, Primitive, Nominal, Generic, and Fn, each carrying a Reason that
// records the originating use location for diagnostics.
package sourcetype

import (
	"strings"

	"github.com/samlang-go/samc/internal/ast"
	"github.com/samlang-go/samc/internal/heap"
)

// Reason records where a type came from, for error messages that want
// to point at both the use site and (when different) the definition
// site the type was inferred from.
type Reason struct {
	UseLoc ast.Location
	DefLoc *ast.Location
}

// NewReason builds a reason with no separate definition site.
func NewReason(useLoc ast.Location) Reason {
	return Reason{UseLoc: useLoc}
}

// PrimitiveKind enumerates the primitive type constants.
type PrimitiveKind int

const (
	Unit PrimitiveKind = iota
	Bool
	Int
	StringKind
)

func (k PrimitiveKind) String() string {
	switch k {
	case Unit:
		return "unit"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case StringKind:
		return "string"
	default:
		return "?"
	}
}

// Type is the sum of the five source-type variants. Exactly one of the
// embedded payload pointers is non-nil for a given Tag; a tagged-union
// via explicit struct + type switch, per spec.md §9's guidance to avoid
// a visitor-trait hierarchy.
type Type struct {
	Tag Tag

	Reason        Reason
	IsPlaceholder bool // Any only

	Primitive PrimitiveKind // Primitive only

	Module        heap.ModuleReference // Nominal only
	ID            heap.PStr            // Nominal only
	TypeArgs      []Type               // Nominal only
	IsClassStatic bool                 // Nominal only

	GenericID heap.PStr // Generic only

	FnArgs []Type // Fn only
	FnRet  *Type  // Fn only
}

// Tag discriminates Type's variant.
type Tag int

const (
	TagAny Tag = iota
	TagPrimitive
	TagNominal
	TagGeneric
	TagFn
)

// AnyType constructs the Any variant.
func AnyType(reason Reason, isPlaceholder bool) Type {
	return Type{Tag: TagAny, Reason: reason, IsPlaceholder: isPlaceholder}
}

// PrimitiveType constructs the Primitive variant.
func PrimitiveType(reason Reason, kind PrimitiveKind) Type {
	return Type{Tag: TagPrimitive, Reason: reason, Primitive: kind}
}

// NominalType constructs the Nominal variant.
func NominalType(reason Reason, module heap.ModuleReference, id heap.PStr, typeArgs []Type, isClassStatic bool) Type {
	return Type{Tag: TagNominal, Reason: reason, Module: module, ID: id, TypeArgs: typeArgs, IsClassStatic: isClassStatic}
}

// GenericType constructs the Generic variant (a reference to an
// in-scope type parameter).
func GenericType(reason Reason, id heap.PStr) Type {
	return Type{Tag: TagGeneric, Reason: reason, GenericID: id}
}

// FnType constructs the Fn variant.
func FnType(reason Reason, args []Type, ret Type) Type {
	return Type{Tag: TagFn, Reason: reason, FnArgs: args, FnRet: &ret}
}

// AsNominal returns t itself when it is the Nominal variant, or nil
// otherwise. Mirrors the original's `Type::as_nominal`.
func (t Type) AsNominal() *Type {
	if t.Tag != TagNominal {
		return nil
	}
	return &t
}

// Substitute replaces every Generic(id) occurrence in t with its
// mapping in subst, leaving ids absent from subst untouched. Used when
// a class's declared member signatures are read out through a
// concrete instantiation of that class's type parameters (spec.md
// §4.3's "substitution" operation).
func Substitute(t Type, subst map[heap.PStr]Type) Type {
	switch t.Tag {
	case TagAny, TagPrimitive:
		return t
	case TagGeneric:
		if replacement, ok := subst[t.GenericID]; ok {
			return replacement.Reposition(t.Reason.UseLoc)
		}
		return t
	case TagNominal:
		args := make([]Type, len(t.TypeArgs))
		for i, a := range t.TypeArgs {
			args[i] = Substitute(a, subst)
		}
		return NominalType(t.Reason, t.Module, t.ID, args, t.IsClassStatic)
	case TagFn:
		args := make([]Type, len(t.FnArgs))
		for i, a := range t.FnArgs {
			args[i] = Substitute(a, subst)
		}
		ret := Substitute(*t.FnRet, subst)
		return FnType(t.Reason, args, ret)
	}
	return t
}

// Reposition returns a copy of t with its reason's use location moved
// to loc, leaving the definition site (if any) untouched. Used when a
// stored type is read back out at a new use site (spec.md §4.3 `read`).
func (t Type) Reposition(loc ast.Location) Type {
	t.Reason.UseLoc = loc
	return t
}

// IsTheSameType reports structural identity up to Reason (which never
// participates in type equality).
func (t Type) IsTheSameType(other Type) bool {
	if t.Tag != other.Tag {
		return false
	}
	switch t.Tag {
	case TagAny:
		return true
	case TagPrimitive:
		return t.Primitive == other.Primitive
	case TagNominal:
		if t.Module != other.Module || t.ID != other.ID || t.IsClassStatic != other.IsClassStatic {
			return false
		}
		if len(t.TypeArgs) != len(other.TypeArgs) {
			return false
		}
		for i := range t.TypeArgs {
			if !t.TypeArgs[i].IsTheSameType(other.TypeArgs[i]) {
				return false
			}
		}
		return true
	case TagGeneric:
		return t.GenericID == other.GenericID
	case TagFn:
		if len(t.FnArgs) != len(other.FnArgs) {
			return false
		}
		for i := range t.FnArgs {
			if !t.FnArgs[i].IsTheSameType(other.FnArgs[i]) {
				return false
			}
		}
		return t.FnRet.IsTheSameType(*other.FnRet)
	}
	return false
}

// Describe renders a human-readable form for error messages.
func (t Type) Describe(h *heap.Heap) string {
	switch t.Tag {
	case TagAny:
		return "unknown"
	case TagPrimitive:
		return t.Primitive.String()
	case TagNominal:
		var b strings.Builder
		b.WriteString(h.Str(t.ID))
		if len(t.TypeArgs) > 0 {
			b.WriteByte('<')
			for i, a := range t.TypeArgs {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(a.Describe(h))
			}
			b.WriteByte('>')
		}
		return b.String()
	case TagGeneric:
		return h.Str(t.GenericID)
	case TagFn:
		var b strings.Builder
		b.WriteByte('(')
		for i, a := range t.FnArgs {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(a.Describe(h))
		}
		b.WriteString(") -> ")
		b.WriteString(t.FnRet.Describe(h))
		return b.String()
	}
	return "?"
}
