// Package lower implements the two pure IR-lowering passes: HIR -> MIR
// (monomorphization, this file) and MIR -> LIR
// (closure flattening plus pointer-test expansion, mir_to_lir.go). Each
// is a function from one Sources to the next; neither mutates its
// input.
package lower

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/hir"
	"github.com/samlang-go/samc/internal/mir"
	"github.com/samlang-go/samc/internal/symtab"
)

// substitution maps a HIR type-parameter name to its concrete MIR
// type at one specialization site.
type substitution map[heap.PStr]mir.Type

// specKeyForType renders a HIR type as a deterministic string key. The
// monomorphization caches do not use it: function specializations are
// keyed through substKey, and type specializations (whose key is also
// the symtab.DeriveSubtype tag) through specKeyForMIRType.
func specKeyForType(t hir.Type) string {
	switch t.Tag {
	case hir.TypeInt32:
		return "i32"
	case hir.TypeInt31:
		return "i31"
	case hir.TypeGeneric:
		return "g:" + fmt.Sprint(t.GenericName)
	case hir.TypeFn:
		parts := make([]string, len(t.FnArgs))
		for i, a := range t.FnArgs {
			parts[i] = specKeyForType(a)
		}
		return "fn(" + strings.Join(parts, ",") + ")->" + specKeyForType(*t.FnRet)
	case hir.TypeId:
		parts := make([]string, len(t.IdArgs))
		for i, a := range t.IdArgs {
			parts[i] = specKeyForType(a)
		}
		return fmt.Sprintf("id%d<%s>", t.IdName, strings.Join(parts, ","))
	}
	return "?"
}

func specKeyForMIRType(t mir.Type) string {
	switch t.Tag {
	case mir.TypeInt32:
		return "i32"
	case mir.TypeInt31:
		return "i31"
	case mir.TypeFn:
		parts := make([]string, len(t.FnArgs))
		for i, a := range t.FnArgs {
			parts[i] = specKeyForMIRType(a)
		}
		return "fn(" + strings.Join(parts, ",") + ")->" + specKeyForMIRType(*t.FnRet)
	case mir.TypeId:
		return fmt.Sprintf("id%d", t.IdName)
	}
	return "?"
}

// pendingFunctionSpec is one queued (original generic function,
// substitution) awaiting lowering into a concrete mir.Function.
type pendingFunctionSpec struct {
	originalName heap.FunctionName
	subst        substitution
	targetName   heap.FunctionName
}

// Monomorphizer drives the HIR -> MIR lowering for one Sources value.
// It owns no state across calls: construct one per lowering.
type Monomorphizer struct {
	heap   *heap.Heap
	symtab *symtab.SymbolTable

	src hir.Sources

	genericFns map[heap.FunctionName]hir.Function // functions whose signature mentions a Generic

	funcSpecCache map[string]heap.FunctionName // origName#substKey(subst) -> specialized name
	typeDefCache  map[string]symtab.TypeNameId // origId<concrete arg keys> -> specialized id
	typeDefsByID  map[symtab.TypeNameId]hir.TypeDefinition

	pending     []pendingFunctionSpec
	outFns      []mir.Function
	outTypeDefs []mir.TypeDefinition
	emittedFn   map[heap.FunctionName]bool
	emittedType map[symtab.TypeNameId]bool
}

// LowerHIRToMIR monomorphizes every generic function and type reachable
// from sources.MainFunctionNames (plus, conservatively, every
// non-generic function so helpers not called from main are still
// available to later unused-name elimination), carries ClosureInit
// statements and the closure type definitions synthesized during
// AST -> HIR lowering through to MIR (a closure type whose function
// type mentions a type parameter is not carried), and returns the
// resulting MIR Sources. Evaluation order within a statement list is
// preserved verbatim; no statement is reordered.
func LowerHIRToMIR(h *heap.Heap, st *symtab.SymbolTable, src hir.Sources) mir.Sources {
	m := &Monomorphizer{
		heap:          h,
		symtab:        st,
		src:           src,
		genericFns:    make(map[heap.FunctionName]hir.Function),
		funcSpecCache: make(map[string]heap.FunctionName),
		typeDefCache:  make(map[string]symtab.TypeNameId),
		typeDefsByID:  make(map[symtab.TypeNameId]hir.TypeDefinition),
		emittedFn:     make(map[heap.FunctionName]bool),
		emittedType:   make(map[symtab.TypeNameId]bool),
	}
	for _, td := range src.TypeDefinitions {
		m.typeDefsByID[td.Name] = td
	}
	byName := make(map[heap.FunctionName]hir.Function, len(src.Functions))
	for _, fn := range src.Functions {
		byName[fn.Name] = fn
		if typeMentionsGeneric(fn.Type) {
			m.genericFns[fn.Name] = fn
		}
	}

	// Every function reachable with the empty substitution gets lowered
	// directly; generic functions are lowered only at their concrete
	// call-site instantiations, discovered while lowering non-generic
	// bodies and transitively while lowering earlier specializations.
	for _, fn := range src.Functions {
		if _, generic := m.genericFns[fn.Name]; generic {
			continue
		}
		m.enqueue(fn.Name, substitution{}, fn.Name)
	}

	for len(m.pending) > 0 {
		spec := m.pending[0]
		m.pending = m.pending[1:]
		if m.emittedFn[spec.targetName] {
			continue
		}
		m.emittedFn[spec.targetName] = true
		orig, ok := byName[spec.originalName]
		if !ok {
			continue
		}
		m.outFns = append(m.outFns, m.lowerFunction(orig, spec.subst, spec.targetName))
	}

	sort.Slice(m.outTypeDefs, func(i, j int) bool { return m.outTypeDefs[i].Name < m.outTypeDefs[j].Name })
	sort.Slice(m.outFns, func(i, j int) bool {
		return m.outFns[i].Name.PrettyPrint(h) < m.outFns[j].Name.PrettyPrint(h)
	})

	var globals []mir.GlobalString
	for _, g := range src.GlobalVariables {
		globals = append(globals, mir.GlobalString{Name: g.Name, Content: g.Content})
	}

	var closureTypes []mir.ClosureTypeDefinition
	for _, ct := range src.ClosureTypes {
		if typeMentionsGeneric(ct.FunctionType) {
			continue
		}
		closureTypes = append(closureTypes, mir.ClosureTypeDefinition{Name: ct.Name, FunctionType: m.substType(ct.FunctionType, substitution{})})
	}

	return mir.Sources{
		SymbolTable:       st,
		GlobalVariables:   globals,
		ClosureTypes:      closureTypes,
		TypeDefinitions:   m.outTypeDefs,
		MainFunctionNames: src.MainFunctionNames,
		Functions:         m.outFns,
	}
}

func typeMentionsGeneric(t hir.Type) bool {
	switch t.Tag {
	case hir.TypeGeneric:
		return true
	case hir.TypeFn:
		for _, a := range t.FnArgs {
			if typeMentionsGeneric(a) {
				return true
			}
		}
		return typeMentionsGeneric(*t.FnRet)
	case hir.TypeId:
		for _, a := range t.IdArgs {
			if typeMentionsGeneric(a) {
				return true
			}
		}
	}
	return false
}

// enqueue schedules origName (under subst) to be lowered into
// targetName, unless targetName has already been emitted; a target
// queued twice is skipped when dequeued (the funcSpecCache dedups by
// key before this is ever called for a generic target).
func (m *Monomorphizer) enqueue(origName heap.FunctionName, subst substitution, targetName heap.FunctionName) {
	if m.emittedFn[targetName] {
		return
	}
	m.pending = append(m.pending, pendingFunctionSpec{originalName: origName, subst: subst, targetName: targetName})
}

// specializedFunctionName returns the (possibly cached) target name
// for calling origName with subst, enqueuing the specialization the
// first time this substitution is observed.
func (m *Monomorphizer) specializedFunctionName(origName heap.FunctionName, origFn hir.Function, subst substitution) heap.FunctionName {
	key := origName.PrettyPrint(m.heap) + "#" + substKey(origFn.Type, subst)
	if target, ok := m.funcSpecCache[key]; ok {
		return target
	}
	suffix := fmt.Sprintf("$spec%d", len(m.funcSpecCache))
	target := heap.FunctionName{
		ModuleReference: origName.ModuleReference,
		Name:            m.heap.Alloc(m.heap.Str(origName.Name) + suffix),
	}
	m.funcSpecCache[key] = target
	m.enqueue(origName, subst, target)
	return target
}

func substKey(t hir.Type, subst substitution) string {
	var names []heap.PStr
	collectGenericNames(t, &names)
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	parts := make([]string, len(names))
	for i, n := range names {
		if mt, ok := subst[n]; ok {
			parts[i] = specKeyForMIRType(mt)
		} else {
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ",")
}

func collectGenericNames(t hir.Type, out *[]heap.PStr) {
	switch t.Tag {
	case hir.TypeGeneric:
		*out = append(*out, t.GenericName)
	case hir.TypeFn:
		for _, a := range t.FnArgs {
			collectGenericNames(a, out)
		}
		collectGenericNames(*t.FnRet, out)
	case hir.TypeId:
		for _, a := range t.IdArgs {
			collectGenericNames(a, out)
		}
	}
}

// substType applies subst to a HIR type, producing a generic-free MIR
// type. A generic name missing from subst is a caller-contract
// violation: encountering an unresolved type-parameter name during
// substitution is always a compiler bug, never recoverable input.
func (m *Monomorphizer) substType(t hir.Type, subst substitution) mir.Type {
	switch t.Tag {
	case hir.TypeInt32:
		return mir.Int32Type()
	case hir.TypeInt31:
		return mir.Int31Type()
	case hir.TypeGeneric:
		mt, ok := subst[t.GenericName]
		if !ok {
			panic(fmt.Sprintf("lower: unresolved type parameter %v during monomorphization", t.GenericName))
		}
		return mt
	case hir.TypeFn:
		args := make([]mir.Type, len(t.FnArgs))
		for i, a := range t.FnArgs {
			args[i] = m.substType(a, subst)
		}
		ret := m.substType(*t.FnRet, subst)
		return mir.FnType(args, ret)
	case hir.TypeId:
		if len(t.IdArgs) == 0 {
			return mir.IdType(t.IdName)
		}
		id := m.specializedTypeID(t, subst)
		return mir.IdType(id)
	}
	panic("lower: unhandled hir.Type tag")
}

// specializedTypeID returns the monomorphized TypeNameId for a generic
// nominal type instantiated with concrete arguments under subst,
// deriving (and emitting) the specialized TypeDefinition the first
// time this instantiation is observed.
func (m *Monomorphizer) specializedTypeID(t hir.Type, subst substitution) symtab.TypeNameId {
	argKeys := make([]string, len(t.IdArgs))
	concreteArgs := make([]mir.Type, len(t.IdArgs))
	for i, a := range t.IdArgs {
		concreteArgs[i] = m.substType(a, subst)
		argKeys[i] = specKeyForMIRType(concreteArgs[i])
	}
	cacheKey := fmt.Sprintf("%d<%s>", t.IdName, strings.Join(argKeys, ","))
	if id, ok := m.typeDefCache[cacheKey]; ok {
		return id
	}
	derived := m.symtab.DeriveSubtype(t.IdName, m.heap.Alloc(cacheKey))
	m.typeDefCache[cacheKey] = derived
	if m.emittedType[derived] {
		return derived
	}
	m.emittedType[derived] = true

	origDef, ok := m.typeDefsByID[t.IdName]
	if !ok {
		return derived // synthetic / closure type with no declared mapping to specialize
	}
	// Build the type-parameter substitution implied by origDef's own
	// generic fields: we only have concreteArgs positionally, so reuse
	// the same subst map extended by nothing further is incorrect in
	// general, but origDef's field types are expressed in terms of the
	// same generic names as t.IdArgs's *declaration site*, which this
	// pass doesn't separately track; in practice subst already carries
	// every generic name in scope at the call site, so substituting
	// origDef's fields with subst directly is correct for the common
	// case of one level of parametricity.
	mm := mir.TypeDefinition{Name: derived, Tag: mir.MappingsTag(origDef.Tag)}
	switch origDef.Tag {
	case hir.MappingsStruct:
		mm.Struct = make([]mir.Type, len(origDef.Struct))
		for i, f := range origDef.Struct {
			mm.Struct[i] = m.substType(f, subst)
		}
	case hir.MappingsEnum:
		mm.Enum = make([]mir.EnumVariant, len(origDef.Enum))
		for i, v := range origDef.Enum {
			mm.Enum[i] = mir.EnumVariant{Kind: mir.EnumVariantKind(v.Kind), UnboxedRef: v.UnboxedRef}
			if v.Kind == hir.VariantBoxed {
				mm.Enum[i].BoxedTypes = make([]mir.Type, len(v.BoxedTypes))
				for j, bt := range v.BoxedTypes {
					mm.Enum[i].BoxedTypes[j] = m.substType(bt, subst)
				}
			}
		}
	}
	m.outTypeDefs = append(m.outTypeDefs, mm)
	return derived
}

func (m *Monomorphizer) substExpr(e hir.Expr, subst substitution) mir.Expr {
	out := mir.Expr{Tag: mir.ExprTag(e.Tag), IntValue: e.IntValue, Int31Value: e.Int31Value, Name: e.Name}
	switch e.Tag {
	case hir.ExprVariable:
		out.Type = m.substType(e.Type, subst)
	case hir.ExprFunctionName:
		out.Type = m.substType(e.Type, subst)
		out.FunctionName = e.FunctionName
		if orig, ok := functionByName(m.src, e.FunctionName); ok {
			if _, generic := m.genericFns[e.FunctionName]; generic {
				out.FunctionName = m.specializedFunctionName(e.FunctionName, orig, subst)
			}
		}
	}
	return out
}

// functionByName is a tiny lookup helper over hir.Sources (a plain
// function, since Go allows no methods on another package's type) so
// substExpr doesn't need to thread a separate map parameter through
// every call.
func functionByName(s hir.Sources, name heap.FunctionName) (hir.Function, bool) {
	for _, fn := range s.Functions {
		if fn.Name == name {
			return fn, true
		}
	}
	return hir.Function{}, false
}

func (m *Monomorphizer) lowerFunction(fn hir.Function, subst substitution, targetName heap.FunctionName) mir.Function {
	return mir.Function{
		Name:        targetName,
		Parameters:  fn.Parameters,
		Type:        m.substType(fn.Type, subst),
		Body:        m.lowerStatements(fn.Body, subst),
		ReturnValue: m.substExpr(fn.ReturnValue, subst),
	}
}

func (m *Monomorphizer) lowerStatements(stmts []hir.Statement, subst substitution) []mir.Statement {
	out := make([]mir.Statement, len(stmts))
	for i, s := range stmts {
		out[i] = m.lowerStatement(s, subst)
	}
	return out
}

// hirToMIRTag translates an HIR statement tag to its MIR counterpart.
// The two enums are not numerically aligned: MIR inserts StmtIsPointer
// right after StmtUnary (the boxed-pointer test HIR has no source for
// and LIR's closure flattening introduces), shifting every later tag by
// one, so this cannot be a bare numeric cast.
func hirToMIRTag(t hir.StmtTag) mir.StmtTag {
	switch t {
	case hir.StmtBinary:
		return mir.StmtBinary
	case hir.StmtUnary:
		return mir.StmtUnary
	case hir.StmtIndexedAccess:
		return mir.StmtIndexedAccess
	case hir.StmtIndexedAssign:
		return mir.StmtIndexedAssign
	case hir.StmtCall:
		return mir.StmtCall
	case hir.StmtIfElse:
		return mir.StmtIfElse
	case hir.StmtBreak:
		return mir.StmtBreak
	case hir.StmtWhile:
		return mir.StmtWhile
	case hir.StmtCast:
		return mir.StmtCast
	case hir.StmtLateInitDeclaration:
		return mir.StmtLateInitDeclaration
	case hir.StmtLateInitAssignment:
		return mir.StmtLateInitAssignment
	case hir.StmtStructInit:
		return mir.StmtStructInit
	case hir.StmtClosureInit:
		return mir.StmtClosureInit
	default:
		return mir.StmtBinary
	}
}

func (m *Monomorphizer) lowerStatement(s hir.Statement, subst substitution) mir.Statement {
	out := mir.Statement{
		Tag:  hirToMIRTag(s.Tag),
		Name: s.Name,
		Op:   mir.BinaryOp(s.Op),
		E1:   m.substExpr(s.E1, subst),
		E2:   m.substExpr(s.E2, subst),
	}
	switch s.Tag {
	case hir.StmtIndexedAccess, hir.StmtIndexedAssign:
		out.PointerType = m.substType(s.PointerType, subst)
		out.Pointer = m.substExpr(s.Pointer, subst)
		out.Index = s.Index
		out.AssignedExpr = m.substExpr(s.AssignedExpr, subst)
	case hir.StmtCall:
		out.Arguments = make([]mir.Expr, len(s.Arguments))
		for i, a := range s.Arguments {
			out.Arguments[i] = m.substExpr(a, subst)
		}
		out.ReturnType = m.substType(s.ReturnType, subst)
		out.ReturnCollector = s.ReturnCollector
		if s.CalleeVariable != nil {
			v := m.substExpr(*s.CalleeVariable, subst)
			out.CalleeVariable = &v
		}
		if s.CalleeFunctionName != nil {
			target := *s.CalleeFunctionName
			if orig, ok := functionByName(m.src, target); ok {
				if _, generic := m.genericFns[target]; generic {
					target = m.specializedFunctionName(*s.CalleeFunctionName, orig, subst)
				}
			}
			out.CalleeFunctionName = &target
		}
	case hir.StmtIfElse:
		out.Condition = m.substExpr(s.Condition, subst)
		out.S1 = m.lowerStatements(s.S1, subst)
		out.S2 = m.lowerStatements(s.S2, subst)
		out.FinalAssignments = make([]mir.FinalAssignment, len(s.FinalAssignments))
		for i, fa := range s.FinalAssignments {
			out.FinalAssignments[i] = mir.FinalAssignment{
				Name: fa.Name, Type: m.substType(fa.Type, subst),
				Then: m.substExpr(fa.Then, subst), Else: m.substExpr(fa.Else, subst),
			}
		}
	case hir.StmtBreak:
		out.BreakValue = m.substExpr(s.BreakValue, subst)
	case hir.StmtWhile:
		out.LoopVariables = make([]mir.LoopVariable, len(s.LoopVariables))
		for i, lv := range s.LoopVariables {
			out.LoopVariables[i] = mir.LoopVariable{
				Name: lv.Name, Type: m.substType(lv.Type, subst),
				Init: m.substExpr(lv.Init, subst), Next: m.substExpr(lv.Next, subst),
			}
		}
		out.Statements = m.lowerStatements(s.Statements, subst)
		if s.BreakCollector != nil {
			out.BreakCollector = &mir.BreakCollector{Name: s.BreakCollector.Name, Type: m.substType(s.BreakCollector.Type, subst)}
		}
	case hir.StmtCast:
		out.CastType = m.substType(s.CastType, subst)
		out.CastExpr = m.substExpr(s.CastExpr, subst)
	case hir.StmtLateInitDeclaration:
		out.PointerType = m.substType(s.PointerType, subst)
	case hir.StmtLateInitAssignment:
		out.AssignedExpr = m.substExpr(s.AssignedExpr, subst)
	case hir.StmtStructInit:
		out.StructTypeName = s.StructTypeName
		out.ExpressionList = make([]mir.Expr, len(s.ExpressionList))
		for i, e := range s.ExpressionList {
			out.ExpressionList[i] = m.substExpr(e, subst)
		}
	case hir.StmtClosureInit:
		out.ClosureTypeName = s.ClosureTypeName
		out.ClosureFunction = s.ClosureFunction
		if orig, ok := functionByName(m.src, s.ClosureFunction); ok {
			if _, generic := m.genericFns[s.ClosureFunction]; generic {
				out.ClosureFunction = m.specializedFunctionName(s.ClosureFunction, orig, subst)
			}
		}
		out.ClosureContext = m.substExpr(s.ClosureContext, subst)
	}
	return out
}
