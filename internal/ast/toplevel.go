package ast

import "github.com/samlang-go/samc/internal/heap"

// ImportedMember is one name pulled in by an import statement.
type ImportedMember struct {
	Name Id
}

// Import is a single `import { A, B } from Some.Module;` statement.
type Import struct {
	Loc              Location
	ImportedModule   heap.ModuleReference
	ImportedMembers  []ImportedMember
}

// FieldDefinition is one field of a struct type definition.
type FieldDefinition struct {
	Name       Id
	Annotation Annotation
	IsPublic   bool
}

// VariantDefinition is one variant of an enum type definition.
type VariantDefinition struct {
	Name                Id
	AssociatedDataTypes []Annotation
}

// TypeDefinitionTag discriminates TypeDefinition's variant.
type TypeDefinitionTag int

const (
	TypeDefinitionStruct TypeDefinitionTag = iota
	TypeDefinitionEnum
)

// TypeDefinition is a class's struct-of-fields or enum-of-variants
// shape.
type TypeDefinition struct {
	Tag      TypeDefinitionTag
	Loc      Location
	Fields   []FieldDefinition   // Struct only
	Variants []VariantDefinition // Enum only
}

// AnnotatedParameter is one formal parameter of a method or function.
type AnnotatedParameter struct {
	Name       Id
	Annotation Annotation
}

// FunctionType is a member's declared signature.
type FunctionType struct {
	ArgumentTypes []Annotation
	ReturnType    Annotation
}

// ClassMemberDeclaration is a method or static-function signature,
// shared between a class's implemented member and an interface's
// abstract member.
type ClassMemberDeclaration struct {
	Loc            Location
	IsPublic       bool
	IsMethod       bool
	Name           Id
	TypeParameters []TypeParameter
	Parameters     []AnnotatedParameter
	Type           FunctionType
}

// ClassMemberDefinition pairs a declaration with its body; interface
// members have no body and never appear wrapped in this type.
type ClassMemberDefinition struct {
	Decl ClassMemberDeclaration
	Body Expr
}

// ExtendOrImplementNode is one entry of a `extends`/`implements`
// clause.
type ExtendOrImplementNode struct {
	Id IdAnnotation
}

// ToplevelTag discriminates Toplevel's variant.
type ToplevelTag int

const (
	ToplevelClass ToplevelTag = iota
	ToplevelInterface
)

// Toplevel is a module-level class or interface declaration.
type Toplevel struct {
	Tag                     ToplevelTag
	Loc                     Location
	NameId                  Id
	TypeParams              []TypeParameter
	TypeDef                 *TypeDefinition // Class only
	ExtendsOrImplements     []ExtendOrImplementNode
	ClassMembers            []ClassMemberDefinition  // Class only
	InterfaceMembers        []ClassMemberDeclaration // Interface only
}

// Name returns the toplevel's declared name.
func (t *Toplevel) Name() Id { return t.NameId }

// TypeParameters returns the toplevel's generic parameters.
func (t *Toplevel) TypeParameters() []TypeParameter { return t.TypeParams }

// TypeDefinitionOf returns the toplevel's struct/enum shape, or nil
// for an interface.
func (t *Toplevel) TypeDefinitionOf() *TypeDefinition { return t.TypeDef }

// ExtendsOrImplementsNodes returns the toplevel's extends/implements
// clause entries.
func (t *Toplevel) ExtendsOrImplementsNodes() []ExtendOrImplementNode {
	return t.ExtendsOrImplements
}

// MemberNames returns every member's (possibly duplicated) name, used
// to hoist a members-only scope for conflict detection before the
// this/static-method scopes are entered.
func (t *Toplevel) MemberNames() []Id {
	switch t.Tag {
	case ToplevelClass:
		names := make([]Id, len(t.ClassMembers))
		for i, m := range t.ClassMembers {
			names[i] = m.Decl.Name
		}
		return names
	case ToplevelInterface:
		names := make([]Id, len(t.InterfaceMembers))
		for i, m := range t.InterfaceMembers {
			names[i] = m.Name
		}
		return names
	}
	return nil
}

// Module is a single compilation unit: its imports and its toplevel
// class/interface declarations.
type Module struct {
	Imports    []Import
	Toplevels  []Toplevel
}
