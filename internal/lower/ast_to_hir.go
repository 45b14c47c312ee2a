package lower

import (
	"fmt"
	"sort"

	"github.com/samlang-go/samc/internal/ast"
	"github.com/samlang-go/samc/internal/checker"
	"github.com/samlang-go/samc/internal/errors"
	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/hir"
	"github.com/samlang-go/samc/internal/sourcetype"
	"github.com/samlang-go/samc/internal/symtab"
	"github.com/samlang-go/samc/internal/typectx"
)

// CheckedModule pairs a parsed module with the per-module state
// CheckModule produced for it, the pair internal/pipeline threads
// through AST-to-HIR lowering (spec.md §4.4): lowering re-synthesizes
// types from the same LocalTypingContext the checker already populated
// rather than re-running inference or carrying a parallel
// type-annotated tree out of internal/checker.
type CheckedModule struct {
	Reference heap.ModuleReference
	Module    *ast.Module
	Local     *typectx.LocalTypingContext
}

type classKey struct {
	mod  heap.ModuleReference
	name heap.PStr
}

// ASTLowerer lowers a whole checked program's classes into one HIR
// Sources: one synthesized function per method/static function, plus
// per-lambda closure functions and context structs threaded out along
// the way.
type ASTLowerer struct {
	h      *heap.Heap
	st     *symtab.SymbolTable
	global typectx.GlobalSignature

	typeNameOf map[classKey]symtab.TypeNameId
	enumArity  map[classKey][]int // variant arity, in declaration order

	typeDefs     []hir.TypeDefinition
	closureTypes []hir.ClosureTypeDefinition
	functions    []hir.Function

	tmp int
}

// NewASTLowerer creates a lowerer sharing h and st with the rest of the
// pipeline (every IR stage after checking allocates out of the same
// heap and symbol table, so ids stay comparable across stages).
func NewASTLowerer(h *heap.Heap, st *symtab.SymbolTable, global typectx.GlobalSignature) *ASTLowerer {
	return &ASTLowerer{
		h: h, st: st, global: global,
		typeNameOf: make(map[classKey]symtab.TypeNameId),
		enumArity:  make(map[classKey][]int),
	}
}

func (lw *ASTLowerer) fresh(prefix string) heap.PStr {
	lw.tmp++
	return lw.h.Alloc(fmt.Sprintf("$%s%d", prefix, lw.tmp))
}

func (lw *ASTLowerer) freshFunctionName(prefix string) heap.FunctionName {
	lw.tmp++
	return heap.FunctionName{ModuleReference: heap.DummyModuleReference, Name: lw.h.Alloc(fmt.Sprintf("$%s%d", prefix, lw.tmp))}
}

func (lw *ASTLowerer) functionName(mod heap.ModuleReference, className heap.PStr, member heap.PStr) heap.FunctionName {
	return heap.FunctionName{ModuleReference: mod, Name: lw.h.Alloc(fmt.Sprintf("%s$%s", lw.h.Str(className), lw.h.Str(member)))}
}

// RegisterTypeDefinitions assigns a TypeNameId to every class ahead of
// lowering any method body, so a forward reference (a method on class A
// returning class B declared later in the module list) always resolves.
func (lw *ASTLowerer) RegisterTypeDefinitions(mods []CheckedModule) {
	for _, cm := range mods {
		for i := range cm.Module.Toplevels {
			top := &cm.Module.Toplevels[i]
			if top.Tag != ast.ToplevelClass {
				continue
			}
			key := classKey{cm.Reference, top.Name().Name}
			lw.typeNameOf[key] = lw.st.CreateTypeName(top.Name().Name)
		}
	}
	for _, cm := range mods {
		for i := range cm.Module.Toplevels {
			top := &cm.Module.Toplevels[i]
			if top.Tag != ast.ToplevelClass || top.TypeDef == nil {
				continue
			}
			lw.buildTypeDefinition(cm.Reference, top)
		}
	}
}

func (lw *ASTLowerer) buildTypeDefinition(mod heap.ModuleReference, top *ast.Toplevel) {
	key := classKey{mod, top.Name().Name}
	id := lw.typeNameOf[key]
	switch top.TypeDef.Tag {
	case ast.TypeDefinitionStruct:
		fields := make([]hir.Type, len(top.TypeDef.Fields))
		for i, f := range top.TypeDef.Fields {
			fields[i] = lw.toHIRType(checker.AnnotationToType(f.Annotation))
		}
		lw.typeDefs = append(lw.typeDefs, hir.TypeDefinition{Name: id, Tag: hir.MappingsStruct, Struct: fields})
	case ast.TypeDefinitionEnum:
		arity := make([]int, len(top.TypeDef.Variants))
		variants := make([]hir.EnumVariant, len(top.TypeDef.Variants))
		for i, v := range top.TypeDef.Variants {
			arity[i] = len(v.AssociatedDataTypes)
			if len(v.AssociatedDataTypes) == 0 {
				variants[i] = hir.EnumVariant{Kind: hir.VariantInt31}
				continue
			}
			boxed := make([]hir.Type, len(v.AssociatedDataTypes))
			for j, a := range v.AssociatedDataTypes {
				boxed[j] = lw.toHIRType(checker.AnnotationToType(a))
			}
			variants[i] = hir.EnumVariant{Kind: hir.VariantBoxed, BoxedTypes: boxed}
		}
		lw.enumArity[key] = arity
		lw.typeDefs = append(lw.typeDefs, hir.TypeDefinition{Name: id, Tag: hir.MappingsEnum, Enum: variants})
	}
}

// toHIRType maps a checked sourcetype.Type to a HIR type: function
// types to FnType, generics to GenericType (left for monomorphization),
// nominal types to an IdType naming the registered shape (without type
// arguments), and primitives and Any to Int32.
func (lw *ASTLowerer) toHIRType(t sourcetype.Type) hir.Type {
	switch t.Tag {
	case sourcetype.TagFn:
		args := make([]hir.Type, len(t.FnArgs))
		for i, a := range t.FnArgs {
			args[i] = lw.toHIRType(a)
		}
		return hir.FnType(args, lw.toHIRType(*t.FnRet))
	case sourcetype.TagGeneric:
		return hir.GenericType(t.GenericID)
	case sourcetype.TagNominal:
		key := classKey{t.Module, t.ID}
		id, ok := lw.typeNameOf[key]
		if !ok {
			// Referenced before RegisterTypeDefinitions observed its
			// declaration (an interface with no backing class, or a
			// forward reference this pipeline stage hasn't seen yet).
			id = lw.st.CreateTypeName(t.ID)
			lw.typeNameOf[key] = id
		}
		return hir.IdType(id, nil)
	default: // TagAny, TagPrimitive
		return hir.Int32Type()
	}
}

// LowerProgram lowers every class method and static function across
// mods into one flat HIR Sources, with mainFunctionNames naming the
// roots internal/unused's reachability sweep starts from.
func (lw *ASTLowerer) LowerProgram(mods []CheckedModule, mainFunctionNames []heap.FunctionName) hir.Sources {
	lw.RegisterTypeDefinitions(mods)
	for _, cm := range mods {
		for i := range cm.Module.Toplevels {
			top := &cm.Module.Toplevels[i]
			if top.Tag != ast.ToplevelClass {
				continue
			}
			lw.lowerClass(cm, top)
		}
	}
	return hir.Sources{
		SymbolTable:       lw.st,
		ClosureTypes:      lw.closureTypes,
		TypeDefinitions:   lw.typeDefs,
		MainFunctionNames: mainFunctionNames,
		Functions:         lw.functions,
	}
}

func (lw *ASTLowerer) lowerClass(cm CheckedModule, top *ast.Toplevel) {
	tc := typectx.New(lw.h, lw.global, cm.Local, errors.NewSet(), cm.Reference, top.Name().Name, lw.convertTypeParameters(top.TypeParams))
	for i := range top.ClassMembers {
		m := &top.ClassMembers[i]
		lw.lowerMember(cm.Reference, top, m, tc)
	}
}

func (lw *ASTLowerer) convertTypeParameters(tparams []ast.TypeParameter) []typectx.TypeParameterSignature {
	out := make([]typectx.TypeParameterSignature, len(tparams))
	for i, tp := range tparams {
		sig := typectx.TypeParameterSignature{Name: tp.Name.Name}
		if tp.Bound != nil {
			bound := checker.IdAnnotationToType(*tp.Bound, false)
			sig.Bound = &bound
		}
		out[i] = sig
	}
	return out
}

func (lw *ASTLowerer) lowerMember(mod heap.ModuleReference, top *ast.Toplevel, m *ast.ClassMemberDefinition, tc *typectx.TypingContext) {
	fnName := lw.functionName(mod, top.Name().Name, m.Decl.Name.Name)

	paramNames := make([]heap.PStr, 0, len(m.Decl.Parameters)+1)
	paramHIRTypes := make([]hir.Type, 0, len(m.Decl.Parameters)+1)
	if m.Decl.IsMethod {
		paramNames = append(paramNames, lw.h.Alloc("this"))
		paramHIRTypes = append(paramHIRTypes, lw.toHIRType(classSelfType(mod, top)))
	}
	for _, p := range m.Decl.Parameters {
		paramNames = append(paramNames, p.Name.Name)
		paramHIRTypes = append(paramHIRTypes, lw.toHIRType(checker.AnnotationToType(p.Annotation)))
	}
	retType := checker.AnnotationToType(m.Decl.Type.ReturnType)

	fb := &funcBuilder{lw: lw, tc: tc}
	var body []hir.Statement
	retVal, _ := fb.lowerExpr(&body, &m.Body)

	lw.functions = append(lw.functions, hir.Function{
		Name:        fnName,
		Parameters:  paramNames,
		Type:        hir.FnType(paramHIRTypes, lw.toHIRType(retType)),
		Body:        body,
		ReturnValue: retVal,
	})
}

func classSelfType(mod heap.ModuleReference, top *ast.Toplevel) sourcetype.Type {
	args := make([]sourcetype.Type, len(top.TypeParams))
	for i, tp := range top.TypeParams {
		args[i] = sourcetype.GenericType(sourcetype.NewReason(top.Loc), tp.Name.Name)
	}
	return sourcetype.NominalType(sourcetype.NewReason(top.Loc), mod, top.Name().Name, args, false)
}

// structFieldResolved is one struct field resolved against a
// checked-member's local typing context: its position in the struct's
// flattened representation (IndexedAccess's Index) and its type.
type structFieldResolved struct {
	idx int
	typ sourcetype.Type
}

// funcBuilder lowers one method/function/lambda body. tc.Local is
// shared with the checker's own pass over this module, so re-reading a
// type at an expression's Loc recovers exactly what the real checker
// inferred there (checker.ElaborateExprType re-synthesizes it through
// the same elaborator, against a throwaway error sink since a checked
// module has nothing left to report).
type funcBuilder struct {
	lw *ASTLowerer
	tc *typectx.TypingContext
}

func hirExprType(e hir.Expr) hir.Type {
	switch e.Tag {
	case hir.ExprVariable, hir.ExprFunctionName:
		return e.Type
	default:
		return hir.Int32Type()
	}
}

func (fb *funcBuilder) bindName(stmts *[]hir.Statement, name heap.PStr, val hir.Expr, ht hir.Type) {
	*stmts = append(*stmts, hir.Statement{Tag: hir.StmtCast, Name: name, CastType: ht, CastExpr: val})
}

func (fb *funcBuilder) lowerExpr(stmts *[]hir.Statement, e *ast.Expr) (hir.Expr, sourcetype.Type) {
	reason := sourcetype.NewReason(e.Loc)
	switch e.Tag {
	case ast.ExprLiteral:
		return fb.lowerLiteral(e), checker.ElaborateExprType(fb.tc, e)
	case ast.ExprClassId:
		// A class name used as a bare value (rather than as the
		// receiver of an immediate static-function call) has no HIR
		// runtime representation; not produced by this frontend's
		// grammar.
		return hir.IntLiteral(0), sourcetype.NominalType(reason, e.ModuleReference, e.Id.Name, nil, true)
	case ast.ExprLocalId:
		t := fb.tc.Local.Read(e.Loc)
		return hir.Variable(e.Id.Name, fb.lw.toHIRType(t)), t
	case ast.ExprFieldAccess:
		return fb.lowerFieldAccess(stmts, e)
	case ast.ExprMethodAccess:
		// A bound method value used without an immediate call would
		// need closure synthesis over the receiver; not produced by
		// this frontend's grammar (method access only ever appears as
		// a Call's callee).
		objVal, objType := fb.lowerExpr(stmts, e.Object)
		_ = objVal
		sig, ok := fb.tc.GetMethodType(objType, e.FieldOrMethodName.Name, e.Loc)
		if !ok {
			return hir.IntLiteral(0), sourcetype.AnyType(reason, false)
		}
		return hir.IntLiteral(0), sig.Type
	case ast.ExprUnary:
		return fb.lowerUnary(stmts, e)
	case ast.ExprCall:
		return fb.lowerCall(stmts, e)
	case ast.ExprBinary:
		return fb.lowerBinary(stmts, e)
	case ast.ExprIfElse:
		return fb.lowerIfElse(stmts, e)
	case ast.ExprMatch:
		return fb.lowerMatch(stmts, e)
	case ast.ExprLambda:
		return fb.lowerLambda(stmts, e)
	case ast.ExprBlock:
		return fb.lowerBlock(stmts, e)
	}
	return hir.IntLiteral(0), sourcetype.AnyType(reason, false)
}

func (fb *funcBuilder) lowerLiteral(e *ast.Expr) hir.Expr {
	switch e.LiteralKind {
	case ast.LiteralBool:
		if e.LiteralBool {
			return hir.IntLiteral(1)
		}
		return hir.IntLiteral(0)
	case ast.LiteralInt:
		return hir.IntLiteral(e.LiteralInt)
	case ast.LiteralString:
		return hir.StringName(e.LiteralString)
	default: // LiteralUnit
		return hir.IntLiteral(0)
	}
}

func (fb *funcBuilder) lowerFieldAccess(stmts *[]hir.Statement, e *ast.Expr) (hir.Expr, sourcetype.Type) {
	objVal, objType := fb.lowerExpr(stmts, e.Object)
	fields := fb.tc.ResolveStructDefinitions(objType)
	for i, f := range fields {
		if f.Name != e.FieldOrMethodName.Name {
			continue
		}
		name := fb.lw.fresh("fld")
		*stmts = append(*stmts, hir.Statement{
			Tag: hir.StmtIndexedAccess, Name: name,
			PointerType: hirExprType(objVal), Pointer: objVal, Index: int32(i),
		})
		return hir.Variable(name, fb.lw.toHIRType(f.Type)), f.Type
	}
	return hir.IntLiteral(0), sourcetype.AnyType(sourcetype.NewReason(e.Loc), false)
}

func (fb *funcBuilder) lowerUnary(stmts *[]hir.Statement, e *ast.Expr) (hir.Expr, sourcetype.Type) {
	reason := sourcetype.NewReason(e.Loc)
	argVal, _ := fb.lowerExpr(stmts, e.Argument)
	name := fb.lw.fresh("un")
	if e.UnaryOperator == ast.UnaryNot {
		*stmts = append(*stmts, hir.Statement{Tag: hir.StmtUnary, Name: name, E1: argVal})
		return hir.Variable(name, hir.Int32Type()), sourcetype.PrimitiveType(reason, sourcetype.Bool)
	}
	// UnaryNeg: HIR has no dedicated negation op, so this lowers to 0 - x.
	*stmts = append(*stmts, hir.Statement{Tag: hir.StmtBinary, Name: name, Op: hir.OpMinus, E1: hir.IntLiteral(0), E2: argVal})
	return hir.Variable(name, hir.Int32Type()), sourcetype.PrimitiveType(reason, sourcetype.Int)
}

var astToHIRBinaryOp = map[ast.BinaryOperator]hir.BinaryOp{
	ast.BinaryMul: hir.OpMul, ast.BinaryDiv: hir.OpDiv, ast.BinaryMod: hir.OpMod,
	ast.BinaryPlus: hir.OpPlus, ast.BinaryMinus: hir.OpMinus,
	ast.BinaryLt: hir.OpLt, ast.BinaryLe: hir.OpLe, ast.BinaryGt: hir.OpGt, ast.BinaryGe: hir.OpGe,
	ast.BinaryEq: hir.OpEq, ast.BinaryNe: hir.OpNe,
	ast.BinaryAnd: hir.OpAnd, ast.BinaryOr: hir.OpOr,
}

var comparisonOrBooleanOps = map[ast.BinaryOperator]bool{
	ast.BinaryLt: true, ast.BinaryLe: true, ast.BinaryGt: true, ast.BinaryGe: true,
	ast.BinaryEq: true, ast.BinaryNe: true, ast.BinaryAnd: true, ast.BinaryOr: true,
}

func (fb *funcBuilder) lowerBinary(stmts *[]hir.Statement, e *ast.Expr) (hir.Expr, sourcetype.Type) {
	reason := sourcetype.NewReason(e.Loc)
	v1, _ := fb.lowerExpr(stmts, e.E1)
	v2, _ := fb.lowerExpr(stmts, e.E2)
	op, ok := astToHIRBinaryOp[e.BinaryOperator]
	if !ok {
		// BinaryConcat: unreachable through internal/sourceparse's
		// grammar, same as the checker's own elaborator treats it.
		op = hir.OpPlus
	}
	name := fb.lw.fresh("bin")
	*stmts = append(*stmts, hir.Statement{Tag: hir.StmtBinary, Name: name, Op: op, E1: v1, E2: v2})
	resultType := sourcetype.PrimitiveType(reason, sourcetype.Int)
	if comparisonOrBooleanOps[e.BinaryOperator] {
		resultType = sourcetype.PrimitiveType(reason, sourcetype.Bool)
	}
	return hir.Variable(name, hir.Int32Type()), resultType
}

func (fb *funcBuilder) lowerCall(stmts *[]hir.Statement, e *ast.Expr) (hir.Expr, sourcetype.Type) {
	reason := sourcetype.NewReason(e.Loc)
	var calleeFn *heap.FunctionName
	var calleeVar *hir.Expr
	var retType sourcetype.Type
	args := make([]hir.Expr, 0, len(e.Arguments)+1)

	if e.Callee.Tag == ast.ExprMethodAccess {
		var objVal hir.Expr
		var objType sourcetype.Type
		if e.Callee.Object.Tag == ast.ExprClassId {
			objType = sourcetype.NominalType(sourcetype.NewReason(e.Callee.Object.Loc), e.Callee.Object.ModuleReference, e.Callee.Object.Id.Name, nil, true)
		} else {
			objVal, objType = fb.lowerExpr(stmts, e.Callee.Object)
		}
		sig, ok := fb.tc.GetMethodType(objType, e.Callee.FieldOrMethodName.Name, e.Callee.Loc)
		if !ok {
			return hir.IntLiteral(0), sourcetype.AnyType(reason, false)
		}
		retType = *sig.Type.FnRet
		nominal := objType
		if b := fb.tc.NominalTypeUpperBound(objType); b != nil {
			nominal = *b
		}
		fn := fb.lw.functionName(nominal.Module, nominal.ID, e.Callee.FieldOrMethodName.Name)
		calleeFn = &fn
		if !nominal.IsClassStatic {
			args = append(args, objVal)
		}
	} else {
		calleeVal, calleeType := fb.lowerExpr(stmts, e.Callee)
		if calleeType.Tag != sourcetype.TagFn {
			return hir.IntLiteral(0), sourcetype.AnyType(reason, false)
		}
		retType = *calleeType.FnRet
		calleeVar = &calleeVal
	}
	for i := range e.Arguments {
		av, _ := fb.lowerExpr(stmts, &e.Arguments[i])
		args = append(args, av)
	}

	retHIR := fb.lw.toHIRType(retType)
	stmt := hir.Statement{
		Tag: hir.StmtCall, CalleeFunctionName: calleeFn, CalleeVariable: calleeVar,
		Arguments: args, ReturnType: retHIR,
	}
	if retType.Tag == sourcetype.TagPrimitive && retType.Primitive == sourcetype.Unit {
		*stmts = append(*stmts, stmt)
		return hir.IntLiteral(0), retType
	}
	name := fb.lw.fresh("call")
	stmt.ReturnCollector = &name
	*stmts = append(*stmts, stmt)
	return hir.Variable(name, retHIR), retType
}

func (fb *funcBuilder) lowerIfElse(stmts *[]hir.Statement, e *ast.Expr) (hir.Expr, sourcetype.Type) {
	condVal, _ := fb.lowerExpr(stmts, e.Condition)
	var s1, s2 []hir.Statement
	v1, t1 := fb.lowerExpr(&s1, e.E1)
	v2, _ := fb.lowerExpr(&s2, e.E2)
	name := fb.lw.fresh("join")
	ht := hirExprType(v1)
	*stmts = append(*stmts, hir.Statement{
		Tag: hir.StmtIfElse, Condition: condVal, S1: s1, S2: s2,
		FinalAssignments: []hir.FinalAssignment{{Name: name, Type: ht, Then: v1, Else: v2}},
	})
	return hir.Variable(name, ht), t1
}

func (fb *funcBuilder) lowerBlock(stmts *[]hir.Statement, e *ast.Expr) (hir.Expr, sourcetype.Type) {
	for i := range e.Statements {
		st := &e.Statements[i]
		val, valType := fb.lowerExpr(stmts, &st.AssignedExpression)
		switch st.Pattern.Tag {
		case ast.PatternId:
			fb.bindName(stmts, st.Pattern.SingleId, val, fb.lw.toHIRType(valType))
		case ast.PatternObject:
			fields := fb.tc.ResolveStructDefinitions(valType)
			byName := make(map[heap.PStr]structFieldResolved, len(fields))
			for idx, f := range fields {
				byName[f.Name] = structFieldResolved{idx: idx, typ: f.Type}
			}
			for _, nm := range st.Pattern.Names {
				info, ok := byName[nm.FieldName.Name]
				if !ok {
					continue
				}
				target := nm.FieldName.Name
				if nm.Alias != nil {
					target = nm.Alias.Name
				}
				name := fb.lw.fresh("destr")
				*stmts = append(*stmts, hir.Statement{
					Tag: hir.StmtIndexedAccess, Name: name,
					PointerType: hirExprType(val), Pointer: val, Index: int32(info.idx),
				})
				fb.bindName(stmts, target, hir.Variable(name, fb.lw.toHIRType(info.typ)), fb.lw.toHIRType(info.typ))
			}
		case ast.PatternWildcard:
		}
	}
	if e.FinalExpr != nil {
		return fb.lowerExpr(stmts, e.FinalExpr)
	}
	reason := sourcetype.NewReason(e.Loc)
	return hir.IntLiteral(0), sourcetype.PrimitiveType(reason, sourcetype.Unit)
}

func (fb *funcBuilder) lowerMatch(stmts *[]hir.Statement, e *ast.Expr) (hir.Expr, sourcetype.Type) {
	reason := sourcetype.NewReason(e.Loc)
	matchedVal, matchedType := fb.lowerExpr(stmts, e.Matched)
	_, _, variants, isEnum := fb.tc.ResolveDetailedEnumDefinitionsOpt(matchedType)
	if !isEnum || len(e.Cases) == 0 {
		return hir.IntLiteral(0), sourcetype.AnyType(reason, false)
	}
	indexOf := make(map[heap.PStr]int, len(variants))
	for i, v := range variants {
		indexOf[v.Name] = i
	}

	tagName := fb.lw.fresh("tag")
	*stmts = append(*stmts, hir.Statement{
		Tag: hir.StmtIndexedAccess, Name: tagName,
		PointerType: hirExprType(matchedVal), Pointer: matchedVal, Index: 0,
	})
	tagVar := hir.Variable(tagName, hir.Int32Type())

	return fb.lowerMatchArms(stmts, matchedVal, tagVar, variants, indexOf, e.Cases, 0)
}

func (fb *funcBuilder) lowerMatchArms(
	stmts *[]hir.Statement, matchedVal, tagVar hir.Expr,
	variants []typectx.EnumVariantDefinitionSignature, indexOf map[heap.PStr]int,
	cases []ast.MatchCase, ci int,
) (hir.Expr, sourcetype.Type) {
	c := &cases[ci]
	last := ci == len(cases)-1
	idx, known := indexOf[c.TagName.Name]

	if last {
		// The checker already guaranteed exhaustiveness (internal/pattern),
		// so the final arm needs no runtime guard.
		return fb.lowerMatchArm(stmts, variants, idx, known, matchedVal, c)
	}

	var s1 []hir.Statement
	v1, t1 := fb.lowerMatchArm(&s1, variants, idx, known, matchedVal, c)
	var s2 []hir.Statement
	v2, _ := fb.lowerMatchArms(&s2, matchedVal, tagVar, variants, indexOf, cases, ci+1)

	condName := fb.lw.fresh("tageq")
	*stmts = append(*stmts, hir.Statement{Tag: hir.StmtBinary, Name: condName, Op: hir.OpEq, E1: tagVar, E2: hir.IntLiteral(int32(idx))})
	joinName := fb.lw.fresh("matchjoin")
	ht := hirExprType(v1)
	*stmts = append(*stmts, hir.Statement{
		Tag: hir.StmtIfElse, Condition: hir.Variable(condName, hir.Int32Type()), S1: s1, S2: s2,
		FinalAssignments: []hir.FinalAssignment{{Name: joinName, Type: ht, Then: v1, Else: v2}},
	})
	return hir.Variable(joinName, ht), t1
}

func (fb *funcBuilder) lowerMatchArm(
	stmts *[]hir.Statement, variants []typectx.EnumVariantDefinitionSignature,
	idx int, known bool, matchedVal hir.Expr, c *ast.MatchCase,
) (hir.Expr, sourcetype.Type) {
	if known && idx < len(variants) && len(variants[idx].Types) > 0 {
		subtypeID := fb.lw.st.DeriveSubtype(fb.variantParent(matchedVal), c.TagName.Name)
		for i, dv := range c.DataVariables {
			if dv == nil || i >= len(variants[idx].Types) {
				continue
			}
			name := fb.lw.fresh("data")
			ft := fb.lw.toHIRType(variants[idx].Types[i])
			*stmts = append(*stmts, hir.Statement{
				Tag: hir.StmtIndexedAccess, Name: name,
				PointerType: hir.IdType(subtypeID, nil), Pointer: matchedVal, Index: int32(i + 1),
			})
			fb.bindName(stmts, dv.Name.Name, hir.Variable(name, ft), ft)
		}
	}
	return fb.lowerExpr(stmts, c.Body)
}

// variantParent recovers the matched enum's own TypeNameId from the
// value being matched on, so DeriveSubtype keys off the same parent id
// RegisterTypeDefinitions assigned that enum.
func (fb *funcBuilder) variantParent(matchedVal hir.Expr) symtab.TypeNameId {
	if matchedVal.Tag == hir.ExprVariable && matchedVal.Type.Tag == hir.TypeId {
		return matchedVal.Type.IdName
	}
	return fb.lw.st.CreateTypeName(fb.lw.h.Alloc("$unknown_enum"))
}

func (fb *funcBuilder) lowerLambda(stmts *[]hir.Statement, e *ast.Expr) (hir.Expr, sourcetype.Type) {
	reason := sourcetype.NewReason(e.Loc)
	captured := fb.tc.Local.GetCaptured(e.Loc)
	names := make([]heap.PStr, 0, len(captured))
	for n := range captured {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	ctxFields := make([]hir.Type, len(names))
	for i, n := range names {
		ctxFields[i] = fb.lw.toHIRType(captured[n])
	}
	ctxID := fb.lw.st.CreateTypeName(fb.lw.h.Alloc("$ctx"))
	fb.lw.typeDefs = append(fb.lw.typeDefs, hir.TypeDefinition{Name: ctxID, Tag: hir.MappingsStruct, Struct: ctxFields})
	ctxHIRType := hir.IdType(ctxID, nil)

	paramTypes := make([]sourcetype.Type, len(e.Parameters))
	paramHIRTypes := make([]hir.Type, len(e.Parameters)+1)
	paramHIRTypes[0] = ctxHIRType
	paramNames := make([]heap.PStr, len(e.Parameters)+1)
	paramNames[0] = fb.lw.fresh("ctxparam")
	for i, p := range e.Parameters {
		var pt sourcetype.Type
		if p.Annotation != nil {
			pt = checker.AnnotationToType(*p.Annotation)
		} else {
			pt = fb.tc.Local.Read(p.Name.Loc)
		}
		paramTypes[i] = pt
		paramHIRTypes[i+1] = fb.lw.toHIRType(pt)
		paramNames[i+1] = p.Name.Name
	}

	var bodyStmts []hir.Statement
	for i, n := range names {
		unpacked := fb.lw.fresh("cap")
		bodyStmts = append(bodyStmts, hir.Statement{
			Tag: hir.StmtIndexedAccess, Name: unpacked,
			PointerType: ctxHIRType, Pointer: hir.Variable(paramNames[0], ctxHIRType), Index: int32(i),
		})
		fb.bindName(&bodyStmts, n, hir.Variable(unpacked, ctxFields[i]), ctxFields[i])
	}
	innerFB := &funcBuilder{lw: fb.lw, tc: fb.tc}
	retVal, retType := innerFB.lowerExpr(&bodyStmts, e.Body)
	retHIR := fb.lw.toHIRType(retType)

	fnName := fb.lw.freshFunctionName("lambda")
	fb.lw.functions = append(fb.lw.functions, hir.Function{
		Name: fnName, Parameters: paramNames, Type: hir.FnType(paramHIRTypes, retHIR), Body: bodyStmts, ReturnValue: retVal,
	})

	ctxName := fb.lw.fresh("ctxval")
	ctxArgs := make([]hir.Expr, len(names))
	for i, n := range names {
		ctxArgs[i] = hir.Variable(n, ctxFields[i])
	}
	*stmts = append(*stmts, hir.Statement{Tag: hir.StmtStructInit, Name: ctxName, StructTypeName: ctxID, ExpressionList: ctxArgs})

	// Deliberately not memoized by Fn-signature: a fresh closure
	// TypeNameId per lambda occurrence, so internal/dedup's structural
	// merge has real work to do rather than finding every closure of a
	// given shape pre-unified.
	closureFnType := hir.FnType(paramHIRTypes[1:], retHIR)
	closureTypeID := fb.lw.st.CreateTypeName(fb.lw.h.Alloc("$closure"))
	fb.lw.closureTypes = append(fb.lw.closureTypes, hir.ClosureTypeDefinition{Name: closureTypeID, FunctionType: closureFnType})

	closureName := fb.lw.fresh("closure")
	*stmts = append(*stmts, hir.Statement{
		Tag: hir.StmtClosureInit, Name: closureName, ClosureTypeName: closureTypeID,
		ClosureFunction: fnName, ClosureContext: hir.Variable(ctxName, ctxHIRType),
	})

	lambdaType := sourcetype.FnType(reason, paramTypes, retType)
	return hir.Variable(closureName, hir.IdType(closureTypeID, nil)), lambdaType
}
