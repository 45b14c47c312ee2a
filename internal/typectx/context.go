// Package typectx implements the type-checker's local and global
// typing contexts (spec.md §4.3): per-location inferred types, lambda
// capture type lookup, nominal subtyping against a resolved global
// signature, type-instantiation validation, method/field resolution,
// and synthesis-mode placeholder generation.
package typectx

import (
	"sort"

	"github.com/samlang-go/samc/internal/ast"
	"github.com/samlang-go/samc/internal/errors"
	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/pattern"
	"github.com/samlang-go/samc/internal/sourcetype"
	"github.com/samlang-go/samc/internal/ssa"
)

// LocalVariable is one name resolvable at a given source position,
// paired with its inferred type.
type LocalVariable struct {
	Name heap.PStr
	Type sourcetype.Type
}

// LocalTypingContext stores the type inferred for every definition
// location in one module, keyed indirectly through the SSA use-define
// map so a read at any use site resolves to its definition's type
// repositioned to that use.
type LocalTypingContext struct {
	typeMap  map[ast.Location]sourcetype.Type
	ssa      *ssa.Result
}

// NewLocalTypingContext wraps the SSA analysis of one module (or one
// free-standing expression) for use during type checking.
func NewLocalTypingContext(ssaResult *ssa.Result) *LocalTypingContext {
	return &LocalTypingContext{typeMap: make(map[ast.Location]sourcetype.Type), ssa: ssaResult}
}

func (c *LocalTypingContext) readOpt(loc ast.Location) (sourcetype.Type, bool) {
	defLoc, ok := c.ssa.UseDefineMap[loc]
	if !ok {
		return sourcetype.Type{}, false
	}
	t, ok := c.typeMap[defLoc]
	if !ok {
		return sourcetype.Type{}, false
	}
	return t.Reposition(loc), true
}

// Read resolves the type inferred for the definition that loc's use
// resolves to, falling back to an unconstrained Any when loc has no
// resolvable definition (an unbound name already reported by SSA).
func (c *LocalTypingContext) Read(loc ast.Location) sourcetype.Type {
	if t, ok := c.readOpt(loc); ok {
		return t
	}
	return sourcetype.AnyType(sourcetype.NewReason(loc), false)
}

// PossiblyInScopeLocalVariables lists every local variable whose
// defining scope contains pos, sorted by raw name handle for
// deterministic completion-list output.
func (c *LocalTypingContext) PossiblyInScopeLocalVariables(pos ast.Position) []LocalVariable {
	var collector []LocalVariable
	for scopeLoc, names := range c.ssa.LocalScopedDefLocs {
		if !scopeLoc.ContainsPosition(pos) {
			continue
		}
		for name, defLoc := range names {
			if t, ok := c.typeMap[defLoc]; ok {
				collector = append(collector, LocalVariable{Name: name, Type: t})
			}
		}
	}
	sort.Slice(collector, func(i, j int) bool { return collector[i].Name < collector[j].Name })
	return collector
}

// Write records the inferred type for a definition location.
func (c *LocalTypingContext) Write(loc ast.Location, t sourcetype.Type) {
	c.typeMap[loc] = t
}

// GetCaptured resolves the types of every variable a lambda at
// lambdaLoc captures from an enclosing scope.
func (c *LocalTypingContext) GetCaptured(lambdaLoc ast.Location) map[heap.PStr]sourcetype.Type {
	result := make(map[heap.PStr]sourcetype.Type)
	for name, defLoc := range c.ssa.LambdaCaptures[lambdaLoc] {
		if t, ok := c.typeMap[defLoc]; ok {
			result[name] = t
		}
	}
	return result
}

// TypingContext is the per-member type-checking environment: the
// resolved global signature, this member's local typing context, the
// error sink, and the ambient synthesis-mode state used to decide
// whether an underconstrained type becomes a placeholder or an error.
type TypingContext struct {
	Heap                    *heap.Heap
	Global                  GlobalSignature
	Local                   *LocalTypingContext
	Errors                  *errors.Set
	CurrentModuleReference  heap.ModuleReference
	currentClass            heap.PStr
	availableTypeParameters []TypeParameterSignature
	inSynthesisMode         bool
	producedPlaceholders    bool
}

// New builds a TypingContext for checking one class member.
func New(
	h *heap.Heap,
	global GlobalSignature,
	local *LocalTypingContext,
	errs *errors.Set,
	currentModuleReference heap.ModuleReference,
	currentClass heap.PStr,
	availableTypeParameters []TypeParameterSignature,
) *TypingContext {
	return &TypingContext{
		Heap:                    h,
		Global:                  global,
		Local:                   local,
		Errors:                  errs,
		CurrentModuleReference:  currentModuleReference,
		currentClass:            currentClass,
		availableTypeParameters: availableTypeParameters,
	}
}

// InSynthesisMode reports whether underconstrained types currently
// resolve to placeholders instead of errors.
func (c *TypingContext) InSynthesisMode() bool { return c.inSynthesisMode }

// RunInSynthesisMode runs f with synthesis mode enabled, restoring the
// prior mode and placeholder-production flag on return (scoped
// save/restore rather than global mutable state — spec.md §4.3).
// It reports whether f's execution produced any placeholder type.
func RunInSynthesisMode[R any](c *TypingContext, f func(*TypingContext) R) (R, bool) {
	savedMode := c.inSynthesisMode
	savedProduced := c.producedPlaceholders
	c.inSynthesisMode = true
	c.producedPlaceholders = false
	result := f(c)
	produced := c.producedPlaceholders
	c.producedPlaceholders = savedProduced
	c.inSynthesisMode = savedMode
	return result, produced
}

// MkUnderconstrainedAnyType returns a placeholder type in synthesis
// mode, or reports an underconstrained-type error and returns a plain
// Any otherwise.
func (c *TypingContext) MkUnderconstrainedAnyType(reason sourcetype.Reason) sourcetype.Type {
	if c.inSynthesisMode {
		return c.MkPlaceholderType(reason)
	}
	c.Errors.ReportUnderconstrained(reason.UseLoc)
	return sourcetype.AnyType(reason, false)
}

// MkPlaceholderType returns a placeholder Any and records that this
// synthesis-mode run produced one.
func (c *TypingContext) MkPlaceholderType(reason sourcetype.Reason) sourcetype.Type {
	c.producedPlaceholders = true
	return sourcetype.AnyType(reason, true)
}

func (c *TypingContext) resolveToPotentiallyInScopeTypeParameterBound(id heap.PStr) *sourcetype.Type {
	for _, tparam := range c.availableTypeParameters {
		if tparam.Name == id {
			return tparam.Bound
		}
	}
	return nil
}

// NominalTypeUpperBound resolves t to the Nominal type that bounds
// it: itself if already Nominal, its declared upper bound if Generic,
// or nil for Any/Primitive/Fn (which have no nominal upper bound).
func (c *TypingContext) NominalTypeUpperBound(t sourcetype.Type) *sourcetype.Type {
	switch t.Tag {
	case sourcetype.TagNominal:
		return &t
	case sourcetype.TagGeneric:
		return c.resolveToPotentiallyInScopeTypeParameterBound(t.GenericID)
	default:
		return nil
	}
}

func (c *TypingContext) isSubtypeWithIdUpper(lower sourcetype.Type, upper sourcetype.Type) bool {
	interfaceType := c.NominalTypeUpperBound(lower)
	if interfaceType == nil {
		return false
	}
	if interfaceType.IsTheSameType(upper) {
		return true
	}
	iface := ResolveInterfaceCx(c.Global, interfaceType.Module, interfaceType.ID)
	if iface == nil {
		return false
	}
	for _, super := range ResolveAllTransitiveSuperTypes(c.Global, iface) {
		if super.IsTheSameType(upper) {
			return true
		}
	}
	return false
}

// IsSubtype reports whether lower is a nominal subtype of upper. Only
// meaningful when upper itself resolves to a Nominal type; any other
// upper shape is never satisfied by nominal subtyping.
func (c *TypingContext) IsSubtype(lower, upper sourcetype.Type) bool {
	if upper.Tag != sourcetype.TagNominal {
		return false
	}
	return c.isSubtypeWithIdUpper(lower, upper)
}

// ValidateTypeInstantiationAllowAbstractTypes validates a type's
// arity and bound constraints without rejecting references to
// interfaces with no concrete type definition (used for parameter and
// return-type annotations, which may legally name an interface type).
func (c *TypingContext) ValidateTypeInstantiationAllowAbstractTypes(t sourcetype.Type) {
	c.validateTypeInstantiationCustomized(t, false)
}

// ValidateTypeInstantiationStrictly additionally rejects abstract
// (type-definition-less) interface references, for contexts that
// require a concrete, instantiable type (e.g. a `new` expression).
func (c *TypingContext) ValidateTypeInstantiationStrictly(t sourcetype.Type) {
	c.validateTypeInstantiationCustomized(t, true)
}

func (c *TypingContext) validateTypeInstantiationCustomized(t sourcetype.Type, enforceConcreteTypes bool) {
	switch t.Tag {
	case sourcetype.TagAny, sourcetype.TagPrimitive, sourcetype.TagGeneric:
		return
	case sourcetype.TagFn:
		for _, arg := range t.FnArgs {
			c.validateTypeInstantiationCustomized(arg, true)
		}
		c.validateTypeInstantiationCustomized(*t.FnRet, true)
		return
	}
	for _, targ := range t.TypeArgs {
		c.validateTypeInstantiationCustomized(targ, true)
	}
	iface := ResolveInterfaceCx(c.Global, t.Module, t.ID)
	if iface == nil {
		return
	}
	if iface.TypeDefinition == nil && enforceConcreteTypes {
		c.Errors.ReportIncompatibleType(t.Reason.UseLoc, "a class with a concrete type definition", t.Describe(c.Heap), false)
	}
	if len(iface.TypeParameters) != len(t.TypeArgs) {
		c.Errors.ReportInvalidArity(t.Reason.UseLoc, "type argument", len(iface.TypeParameters), len(t.TypeArgs))
		return
	}
	for i, tparam := range iface.TypeParameters {
		if tparam.Bound == nil {
			continue
		}
		targ := t.TypeArgs[i]
		if !c.isSubtypeWithIdUpper(targ, *tparam.Bound) {
			c.Errors.ReportIncompatibleType(targ.Reason.UseLoc, tparam.Bound.Describe(c.Heap), targ.Describe(c.Heap), true)
		}
	}
}

// ClassExists reports whether module declares a class (not merely an
// interface) named toplevelName.
func (c *TypingContext) ClassExists(module heap.ModuleReference, toplevelName heap.PStr) bool {
	iface := ResolveInterfaceCx(c.Global, module, toplevelName)
	return iface != nil && iface.TypeDefinition != nil
}

func (c *TypingContext) inSameClass(module heap.ModuleReference, className heap.PStr) bool {
	return c.CurrentModuleReference == module && className == c.currentClass
}

// GetMethodType resolves nominal's method or static function, applying
// the same private/public and current-module visibility rule the
// original checker applies, and repositions the resolved function type
// to useLoc.
func (c *TypingContext) GetMethodType(nominal sourcetype.Type, methodName heap.PStr, useLoc ast.Location) (MemberSignature, bool) {
	iface := ResolveInterfaceCx(c.Global, nominal.Module, nominal.ID)
	if iface == nil || (iface.Private && nominal.Module != c.CurrentModuleReference) {
		return MemberSignature{}, false
	}
	var sig MemberSignature
	var ok bool
	if nominal.IsClassStatic {
		sig, ok = ResolveFunctionSignature(c.Global, nominal.Module, nominal.ID, methodName)
	} else {
		sig, ok = ResolveMethodSignature(c.Global, nominal, methodName)
	}
	if !ok {
		return MemberSignature{}, false
	}
	if !sig.IsPublic && !c.inSameClass(nominal.Module, nominal.ID) {
		return MemberSignature{}, false
	}
	sig.Type = sig.Type.Reposition(useLoc)
	return sig, true
}

func (c *TypingContext) resolveTypeDefinition(t sourcetype.Type) (heap.ModuleReference, heap.PStr, TypeDefinitionSignature, bool) {
	nominal := c.NominalTypeUpperBound(t)
	if nominal == nil {
		return heap.ModuleReference{}, 0, TypeDefinitionSignature{}, false
	}
	iface := ResolveInterfaceCx(c.Global, nominal.Module, nominal.ID)
	if iface == nil || (iface.Private && nominal.Module != c.CurrentModuleReference) || iface.TypeDefinition == nil {
		return heap.ModuleReference{}, 0, TypeDefinitionSignature{}, false
	}
	subst := make(map[heap.PStr]sourcetype.Type, len(iface.TypeParameters))
	for i, tparam := range iface.TypeParameters {
		if i < len(nominal.TypeArgs) {
			subst[tparam.Name] = nominal.TypeArgs[i]
		}
	}
	switch iface.TypeDefinition.Tag {
	case TypeDefinitionSignatureStruct:
		items := make([]StructItemDefinitionSignature, len(iface.TypeDefinition.Struct))
		for i, item := range iface.TypeDefinition.Struct {
			items[i] = StructItemDefinitionSignature{
				Name:     item.Name,
				Type:     sourcetype.Substitute(item.Type, subst),
				IsPublic: item.IsPublic || nominal.ID == c.currentClass,
			}
		}
		return nominal.Module, nominal.ID, TypeDefinitionSignature{Tag: TypeDefinitionSignatureStruct, Struct: items}, true
	default:
		variants := make([]EnumVariantDefinitionSignature, len(iface.TypeDefinition.Enum))
		for i, variant := range iface.TypeDefinition.Enum {
			types := make([]sourcetype.Type, len(variant.Types))
			for j, ty := range variant.Types {
				types[j] = sourcetype.Substitute(ty, subst)
			}
			variants[i] = EnumVariantDefinitionSignature{Name: variant.Name, Types: types}
		}
		return nominal.Module, nominal.ID, TypeDefinitionSignature{Tag: TypeDefinitionSignatureEnum, Enum: variants}, true
	}
}

// ResolveDetailedStructDefinitionsOpt resolves t's struct fields (with
// type-parameter substitution applied), or reports not-found for an
// enum or non-nominal type.
func (c *TypingContext) ResolveDetailedStructDefinitionsOpt(t sourcetype.Type) (heap.ModuleReference, heap.PStr, []StructItemDefinitionSignature, bool) {
	mod, id, def, ok := c.resolveTypeDefinition(t)
	if !ok || def.Tag != TypeDefinitionSignatureStruct {
		return heap.ModuleReference{}, 0, nil, false
	}
	return mod, id, def.Struct, true
}

// ResolveDetailedEnumDefinitionsOpt resolves t's enum variants (with
// type-parameter substitution applied), or reports not-found for a
// struct or non-nominal type.
func (c *TypingContext) ResolveDetailedEnumDefinitionsOpt(t sourcetype.Type) (heap.ModuleReference, heap.PStr, []EnumVariantDefinitionSignature, bool) {
	mod, id, def, ok := c.resolveTypeDefinition(t)
	if !ok || def.Tag != TypeDefinitionSignatureEnum {
		return heap.ModuleReference{}, 0, nil, false
	}
	return mod, id, def.Enum, true
}

// ResolveStructDefinitions is the infallible convenience form of
// ResolveDetailedStructDefinitionsOpt, used by field-access checking
// which treats "not a struct" as "no fields" rather than a hard error.
func (c *TypingContext) ResolveStructDefinitions(t sourcetype.Type) []StructItemDefinitionSignature {
	if _, _, fields, ok := c.ResolveDetailedStructDefinitionsOpt(t); ok {
		return fields
	}
	return nil
}

// IsVariantSignatureComplete implements pattern.Context: a set of
// observed variant names is complete when it leaves nothing missing.
func (c *TypingContext) IsVariantSignatureComplete(module heap.ModuleReference, className heap.PStr, variantNames []heap.PStr) bool {
	return len(c.VariantSignatureIncompleteNames(module, className, variantNames)) == 0
}

// VariantSignatureIncompleteNames returns, for each variant of the
// named enum not present in variantNames, its declared arity — used to
// build a non-exhaustive-match error's missing-tag list (spec.md §4.1).
func (c *TypingContext) VariantSignatureIncompleteNames(module heap.ModuleReference, className heap.PStr, variantNames []heap.PStr) map[heap.PStr]int {
	iface := ResolveInterfaceCx(c.Global, module, className)
	incomplete := make(map[heap.PStr]int)
	if iface == nil || iface.TypeDefinition == nil {
		return incomplete
	}
	for _, variant := range iface.TypeDefinition.AsEnum() {
		incomplete[variant.Name] = len(variant.Types)
	}
	for _, n := range variantNames {
		delete(incomplete, n)
	}
	return incomplete
}

var _ pattern.Context = (*TypingContext)(nil)
