// Package dedup implements type deduplication at both the HIR and MIR
// levels: structurally identical type definitions (and, at MIR,
// closure types) collapse onto one canonical TypeNameId, every
// reference is rewritten, and the symbol table's derived-subtype
// entries are remapped to match.
package dedup

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samlang-go/samc/internal/mir"
	"github.com/samlang-go/samc/internal/symtab"
)

// mirState is the TypeNameId substitution built by one dedup pass.
type mirState = map[symtab.TypeNameId]symtab.TypeNameId

// MIR deduplicates src's type definitions and closure types by
// structural payload, rewrites every reference via a uniform
// traversal, and emits definitions sorted by canonical TypeNameId.
// Encountering a tail-recursion-only SingleIf statement is structurally
// impossible here — mir.Statement has no such variant, since SingleIf
// is introduced only by LIR's tail-recursion lowering — so no defensive
// check for it is needed at this IR level (see DESIGN.md).
func MIR(src mir.Sources) mir.Sources {
	state := make(mirState)
	canonical := make(map[string]symtab.TypeNameId) // structural key -> first-seen id

	// Type definitions first, then closure types: both contribute
	// entries to the same canonical-id substitution.
	keyOf := make(map[symtab.TypeNameId]string, len(src.TypeDefinitions))
	for _, td := range src.TypeDefinitions {
		k := typeDefKey(td)
		keyOf[td.Name] = k
		if first, ok := canonical[k]; ok {
			state[td.Name] = first
		} else {
			canonical[k] = td.Name
		}
	}
	closureKeyOf := make(map[symtab.TypeNameId]string, len(src.ClosureTypes))
	for _, ct := range src.ClosureTypes {
		k := "closure:" + fnTypeKey(ct.FunctionType)
		closureKeyOf[ct.Name] = k
		if first, ok := canonical[k]; ok {
			state[ct.Name] = first
		} else {
			canonical[k] = ct.Name
		}
	}

	if src.SymbolTable != nil {
		derivedRemap := src.SymbolTable.RemapSubtypesForDeduplication(state)
		for k, v := range derivedRemap {
			state[k] = v
		}
	}

	var outDefs []mir.TypeDefinition
	seen := make(map[symtab.TypeNameId]bool)
	for _, td := range src.TypeDefinitions {
		canon := canonicalOf(state, td.Name)
		if seen[canon] {
			continue
		}
		seen[canon] = true
		rewritten := rewriteTypeDefinition(state, td)
		rewritten.Name = canon
		outDefs = append(outDefs, rewritten)
	}
	sort.Slice(outDefs, func(i, j int) bool { return outDefs[i].Name < outDefs[j].Name })

	var outClosures []mir.ClosureTypeDefinition
	seenClosure := make(map[symtab.TypeNameId]bool)
	for _, ct := range src.ClosureTypes {
		canon := canonicalOf(state, ct.Name)
		if seenClosure[canon] {
			continue
		}
		seenClosure[canon] = true
		outClosures = append(outClosures, mir.ClosureTypeDefinition{Name: canon, FunctionType: rewriteType(state, ct.FunctionType)})
	}
	sort.Slice(outClosures, func(i, j int) bool { return outClosures[i].Name < outClosures[j].Name })

	outFns := make([]mir.Function, len(src.Functions))
	for i, fn := range src.Functions {
		outFns[i] = rewriteFunction(state, fn)
	}

	return mir.Sources{
		SymbolTable:       src.SymbolTable,
		GlobalVariables:   src.GlobalVariables,
		ClosureTypes:      outClosures,
		TypeDefinitions:   outDefs,
		MainFunctionNames: src.MainFunctionNames,
		Functions:         outFns,
	}
}

func canonicalOf(state mirState, id symtab.TypeNameId) symtab.TypeNameId {
	if c, ok := state[id]; ok {
		// state may chain (a derived remap pointing at another remapped
		// entry); follow it until an id with no entry, or one mapped to
		// itself, is reached.
		for {
			next, ok2 := state[c]
			if !ok2 || next == c {
				return c
			}
			c = next
		}
	}
	return id
}

func typeDefKey(td mir.TypeDefinition) string {
	switch td.Tag {
	case mir.MappingsStruct:
		parts := make([]string, len(td.Struct))
		for i, t := range td.Struct {
			parts[i] = typeKey(t)
		}
		return "struct(" + strings.Join(parts, ",") + ")"
	case mir.MappingsEnum:
		parts := make([]string, len(td.Enum))
		for i, v := range td.Enum {
			parts[i] = variantKey(v)
		}
		return "enum(" + strings.Join(parts, ",") + ")"
	}
	return "?"
}

func variantKey(v mir.EnumVariant) string {
	switch v.Kind {
	case mir.VariantBoxed:
		parts := make([]string, len(v.BoxedTypes))
		for i, t := range v.BoxedTypes {
			parts[i] = typeKey(t)
		}
		return "boxed(" + strings.Join(parts, ",") + ")"
	case mir.VariantUnboxed:
		return fmt.Sprintf("unboxed(%d)", v.UnboxedRef)
	case mir.VariantInt31:
		return "int31"
	}
	return "?"
}

func typeKey(t mir.Type) string {
	switch t.Tag {
	case mir.TypeInt32:
		return "i32"
	case mir.TypeInt31:
		return "i31"
	case mir.TypeId:
		return fmt.Sprintf("id%d", t.IdName)
	case mir.TypeFn:
		return fnTypeKey(t)
	}
	return "?"
}

func fnTypeKey(t mir.Type) string {
	parts := make([]string, len(t.FnArgs))
	for i, a := range t.FnArgs {
		parts[i] = typeKey(a)
	}
	ret := "?"
	if t.FnRet != nil {
		ret = typeKey(*t.FnRet)
	}
	return "fn(" + strings.Join(parts, ",") + ")->" + ret
}

func rewriteType(state mirState, t mir.Type) mir.Type {
	switch t.Tag {
	case mir.TypeId:
		return mir.IdType(canonicalOf(state, t.IdName))
	case mir.TypeFn:
		args := make([]mir.Type, len(t.FnArgs))
		for i, a := range t.FnArgs {
			args[i] = rewriteType(state, a)
		}
		var ret mir.Type
		if t.FnRet != nil {
			ret = rewriteType(state, *t.FnRet)
		}
		return mir.FnType(args, ret)
	default:
		return t
	}
}

func rewriteTypeDefinition(state mirState, td mir.TypeDefinition) mir.TypeDefinition {
	out := mir.TypeDefinition{Name: td.Name, Tag: td.Tag}
	switch td.Tag {
	case mir.MappingsStruct:
		out.Struct = make([]mir.Type, len(td.Struct))
		for i, t := range td.Struct {
			out.Struct[i] = rewriteType(state, t)
		}
	case mir.MappingsEnum:
		out.Enum = make([]mir.EnumVariant, len(td.Enum))
		for i, v := range td.Enum {
			out.Enum[i] = mir.EnumVariant{Kind: v.Kind, UnboxedRef: canonicalOf(state, v.UnboxedRef)}
			if v.Kind == mir.VariantBoxed {
				out.Enum[i].BoxedTypes = make([]mir.Type, len(v.BoxedTypes))
				for j, bt := range v.BoxedTypes {
					out.Enum[i].BoxedTypes[j] = rewriteType(state, bt)
				}
			}
		}
	}
	return out
}

func rewriteExpr(state mirState, e mir.Expr) mir.Expr {
	e.Type = rewriteType(state, e.Type)
	return e
}

func rewriteExprs(state mirState, es []mir.Expr) []mir.Expr {
	out := make([]mir.Expr, len(es))
	for i, e := range es {
		out[i] = rewriteExpr(state, e)
	}
	return out
}

func rewriteFunction(state mirState, fn mir.Function) mir.Function {
	return mir.Function{
		Name:        fn.Name,
		Parameters:  fn.Parameters,
		Type:        rewriteType(state, fn.Type),
		Body:        rewriteStatements(state, fn.Body),
		ReturnValue: rewriteExpr(state, fn.ReturnValue),
	}
}

func rewriteStatements(state mirState, stmts []mir.Statement) []mir.Statement {
	out := make([]mir.Statement, len(stmts))
	for i, s := range stmts {
		out[i] = rewriteStatement(state, s)
	}
	return out
}

func rewriteStatement(state mirState, s mir.Statement) mir.Statement {
	out := s
	out.E1 = rewriteExpr(state, s.E1)
	out.E2 = rewriteExpr(state, s.E2)
	switch s.Tag {
	case mir.StmtIsPointer:
		out.PointerTestType = canonicalOf(state, s.PointerTestType)
	case mir.StmtIndexedAccess, mir.StmtIndexedAssign:
		out.PointerType = rewriteType(state, s.PointerType)
		out.Pointer = rewriteExpr(state, s.Pointer)
		out.AssignedExpr = rewriteExpr(state, s.AssignedExpr)
	case mir.StmtCall:
		out.Arguments = rewriteExprs(state, s.Arguments)
		out.ReturnType = rewriteType(state, s.ReturnType)
		if s.CalleeVariable != nil {
			v := rewriteExpr(state, *s.CalleeVariable)
			out.CalleeVariable = &v
		}
	case mir.StmtIfElse:
		out.Condition = rewriteExpr(state, s.Condition)
		out.S1 = rewriteStatements(state, s.S1)
		out.S2 = rewriteStatements(state, s.S2)
		out.FinalAssignments = make([]mir.FinalAssignment, len(s.FinalAssignments))
		for i, fa := range s.FinalAssignments {
			out.FinalAssignments[i] = mir.FinalAssignment{
				Name: fa.Name, Type: rewriteType(state, fa.Type),
				Then: rewriteExpr(state, fa.Then), Else: rewriteExpr(state, fa.Else),
			}
		}
	case mir.StmtBreak:
		out.BreakValue = rewriteExpr(state, s.BreakValue)
	case mir.StmtWhile:
		out.LoopVariables = make([]mir.LoopVariable, len(s.LoopVariables))
		for i, lv := range s.LoopVariables {
			out.LoopVariables[i] = mir.LoopVariable{
				Name: lv.Name, Type: rewriteType(state, lv.Type),
				Init: rewriteExpr(state, lv.Init), Next: rewriteExpr(state, lv.Next),
			}
		}
		out.Statements = rewriteStatements(state, s.Statements)
		if s.BreakCollector != nil {
			out.BreakCollector = &mir.BreakCollector{Name: s.BreakCollector.Name, Type: rewriteType(state, s.BreakCollector.Type)}
		}
	case mir.StmtCast:
		out.CastType = rewriteType(state, s.CastType)
		out.CastExpr = rewriteExpr(state, s.CastExpr)
	case mir.StmtLateInitDeclaration:
		out.PointerType = rewriteType(state, s.PointerType)
	case mir.StmtLateInitAssignment:
		out.AssignedExpr = rewriteExpr(state, s.AssignedExpr)
	case mir.StmtStructInit:
		out.StructTypeName = canonicalOf(state, s.StructTypeName)
		out.ExpressionList = rewriteExprs(state, s.ExpressionList)
	case mir.StmtClosureInit:
		out.ClosureTypeName = canonicalOf(state, s.ClosureTypeName)
		out.ClosureContext = rewriteExpr(state, s.ClosureContext)
	}
	return out
}
