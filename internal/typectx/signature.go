package typectx

import (
	"sort"

	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/sourcetype"
)

// TypeParameterSignature is a declared generic parameter together
// with its optional nominal upper bound.
type TypeParameterSignature struct {
	Name  heap.PStr
	Bound *sourcetype.Type // always Nominal-tagged when present
}

// MemberSignature is a method or static function's resolved, not yet
// instantiated, signature.
type MemberSignature struct {
	IsPublic       bool
	TypeParameters []TypeParameterSignature
	Type           sourcetype.Type // always Fn-tagged
}

// StructItemDefinitionSignature is one field of a resolved struct type
// definition, after type-parameter substitution.
type StructItemDefinitionSignature struct {
	Name     heap.PStr
	Type     sourcetype.Type
	IsPublic bool
}

// EnumVariantDefinitionSignature is one variant of a resolved enum
// type definition, after type-parameter substitution.
type EnumVariantDefinitionSignature struct {
	Name  heap.PStr
	Types []sourcetype.Type
}

// TypeDefinitionTag discriminates TypeDefinitionSignature's variant.
type TypeDefinitionTag int

const (
	TypeDefinitionSignatureStruct TypeDefinitionTag = iota
	TypeDefinitionSignatureEnum
)

// TypeDefinitionSignature is a class's struct-of-fields or
// enum-of-variants shape, as seen by the type checker (post-resolution,
// pre-substitution).
type TypeDefinitionSignature struct {
	Tag    TypeDefinitionTag
	Struct []StructItemDefinitionSignature
	Enum   []EnumVariantDefinitionSignature
}

// AsEnum returns the enum variants when Tag is Enum, or nil otherwise.
func (d *TypeDefinitionSignature) AsEnum() []EnumVariantDefinitionSignature {
	if d == nil || d.Tag != TypeDefinitionSignatureEnum {
		return nil
	}
	return d.Enum
}

// InterfaceSignature is one class or interface's resolved outward
// contract: its type parameters, its optional struct/enum shape, its
// extends/implements supertypes, and its method/static-function
// signatures.
type InterfaceSignature struct {
	Private        bool
	TypeParameters []TypeParameterSignature
	TypeDefinition *TypeDefinitionSignature
	SuperTypes     []sourcetype.Type // resolved Nominal supertypes
	Methods        map[heap.PStr]MemberSignature
	Functions      map[heap.PStr]MemberSignature
}

// ModuleSignature collects every interface declared in one module.
type ModuleSignature struct {
	Interfaces map[heap.PStr]*InterfaceSignature
}

// GlobalSignature is the fully resolved, cross-module outward contract
// of an entire compile, built once before type checking any module
// body (spec.md §4.3).
type GlobalSignature map[heap.ModuleReference]*ModuleSignature

// ResolveInterfaceCx looks up a class/interface's signature. It applies
// no visibility rule itself: callers that need one check Private
// against the current module.
func ResolveInterfaceCx(g GlobalSignature, module heap.ModuleReference, name heap.PStr) *InterfaceSignature {
	mod, ok := g[module]
	if !ok {
		return nil
	}
	return mod.Interfaces[name]
}

type nominalKey struct {
	module heap.ModuleReference
	id     heap.PStr
}

// ResolveAllTransitiveSuperTypes performs a deduplicated breadth-first
// walk of start's extends/implements edges, substituting each hop's
// declared supertypes with the concrete type arguments used to reach
// that hop.
func ResolveAllTransitiveSuperTypes(g GlobalSignature, start *InterfaceSignature) []sourcetype.Type {
	var result []sourcetype.Type
	seen := make(map[nominalKey]bool)
	queue := append([]sourcetype.Type{}, start.SuperTypes...)
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		if t.Tag != sourcetype.TagNominal {
			continue
		}
		key := nominalKey{module: t.Module, id: t.ID}
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, t)
		iface := ResolveInterfaceCx(g, t.Module, t.ID)
		if iface == nil {
			continue
		}
		subst := make(map[heap.PStr]sourcetype.Type, len(iface.TypeParameters))
		for i, tparam := range iface.TypeParameters {
			if i < len(t.TypeArgs) {
				subst[tparam.Name] = t.TypeArgs[i]
			}
		}
		for _, super := range iface.SuperTypes {
			queue = append(queue, sourcetype.Substitute(super, subst))
		}
	}
	return result
}

// resolveMemberSignature walks nominal's own interface and then its
// transitive supertypes (methods are inherited; static functions are
// not), returning the first match with its type parameters substituted
// by nominal's concrete type arguments.
func resolveMemberSignature(g GlobalSignature, nominal sourcetype.Type, name heap.PStr, methods bool) (MemberSignature, bool) {
	iface := ResolveInterfaceCx(g, nominal.Module, nominal.ID)
	if iface == nil {
		return MemberSignature{}, false
	}
	table := iface.Methods
	if !methods {
		table = iface.Functions
	}
	if sig, ok := lookupSubstituted(iface, table, nominal, name); ok {
		return sig, true
	}
	if !methods {
		return MemberSignature{}, false
	}
	for _, super := range ResolveAllTransitiveSuperTypes(g, iface) {
		superIface := ResolveInterfaceCx(g, super.Module, super.ID)
		if superIface == nil {
			continue
		}
		if sig, ok := lookupSubstituted(superIface, superIface.Methods, super, name); ok {
			return sig, true
		}
	}
	return MemberSignature{}, false
}

func lookupSubstituted(iface *InterfaceSignature, table map[heap.PStr]MemberSignature, nominal sourcetype.Type, name heap.PStr) (MemberSignature, bool) {
	sig, ok := table[name]
	if !ok {
		return MemberSignature{}, false
	}
	subst := make(map[heap.PStr]sourcetype.Type, len(iface.TypeParameters))
	for i, tparam := range iface.TypeParameters {
		if i < len(nominal.TypeArgs) {
			subst[tparam.Name] = nominal.TypeArgs[i]
		}
	}
	sig.Type = sourcetype.Substitute(sig.Type, subst)
	return sig, true
}

// ResolveMethodSignature resolves an instance method, including
// inherited methods from extends/implements supertypes.
func ResolveMethodSignature(g GlobalSignature, nominal sourcetype.Type, name heap.PStr) (MemberSignature, bool) {
	return resolveMemberSignature(g, nominal, name, true)
}

// ResolveFunctionSignature resolves a class-static function. Static
// functions are never inherited.
func ResolveFunctionSignature(g GlobalSignature, module heap.ModuleReference, classId heap.PStr, name heap.PStr) (MemberSignature, bool) {
	nominal := sourcetype.Type{Module: module, ID: classId}
	return resolveMemberSignature(g, nominal, name, false)
}

// sortedPStrs returns a copy of ps sorted by raw PStr value. Nothing in
// the module calls it.
func sortedPStrs(ps []heap.PStr) []heap.PStr {
	out := append([]heap.PStr{}, ps...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
