package dedup

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samlang-go/samc/internal/hir"
	"github.com/samlang-go/samc/internal/symtab"
)

type hirState = map[symtab.TypeNameId]symtab.TypeNameId

// HIR deduplicates src's type definitions (not yet monomorphized, so
// generic type parameters may still appear in the structural key —
// two instantiations of the same generic shape at this level are
// still distinct until monomorphization runs) by structural payload
// and rewrites every reference. Run ahead of HIR -> MIR lowering.
func HIR(src hir.Sources) hir.Sources {
	state := make(hirState)
	canonical := make(map[string]symtab.TypeNameId)

	for _, td := range src.TypeDefinitions {
		k := hirTypeDefKey(td)
		if first, ok := canonical[k]; ok {
			state[td.Name] = first
		} else {
			canonical[k] = td.Name
		}
	}

	if src.SymbolTable != nil {
		derivedRemap := src.SymbolTable.RemapSubtypesForDeduplication(state)
		for k, v := range derivedRemap {
			state[k] = v
		}
	}

	var outDefs []hir.TypeDefinition
	seen := make(map[symtab.TypeNameId]bool)
	for _, td := range src.TypeDefinitions {
		canon := hirCanonicalOf(state, td.Name)
		if seen[canon] {
			continue
		}
		seen[canon] = true
		r := hirRewriteTypeDefinition(state, td)
		r.Name = canon
		outDefs = append(outDefs, r)
	}
	sort.Slice(outDefs, func(i, j int) bool { return outDefs[i].Name < outDefs[j].Name })

	outFns := make([]hir.Function, len(src.Functions))
	for i, fn := range src.Functions {
		outFns[i] = hirRewriteFunction(state, fn)
	}

	return hir.Sources{
		SymbolTable:       src.SymbolTable,
		GlobalVariables:   src.GlobalVariables,
		ClosureTypes:      src.ClosureTypes,
		TypeDefinitions:   outDefs,
		MainFunctionNames: src.MainFunctionNames,
		Functions:         outFns,
	}
}

func hirCanonicalOf(state hirState, id symtab.TypeNameId) symtab.TypeNameId {
	if c, ok := state[id]; ok {
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

func hirTypeKey(t hir.Type) string {
	switch t.Tag {
	case hir.TypeInt32:
		return "i32"
	case hir.TypeInt31:
		return "i31"
	case hir.TypeGeneric:
		return fmt.Sprintf("g%d", t.GenericName)
	case hir.TypeId:
		parts := make([]string, len(t.IdArgs))
		for i, a := range t.IdArgs {
			parts[i] = hirTypeKey(a)
		}
		return fmt.Sprintf("id%d<%s>", t.IdName, strings.Join(parts, ","))
	case hir.TypeFn:
		parts := make([]string, len(t.FnArgs))
		for i, a := range t.FnArgs {
			parts[i] = hirTypeKey(a)
		}
		ret := "?"
		if t.FnRet != nil {
			ret = hirTypeKey(*t.FnRet)
		}
		return "fn(" + strings.Join(parts, ",") + ")->" + ret
	}
	return "?"
}

func hirTypeDefKey(td hir.TypeDefinition) string {
	switch td.Tag {
	case hir.MappingsStruct:
		parts := make([]string, len(td.Struct))
		for i, t := range td.Struct {
			parts[i] = hirTypeKey(t)
		}
		return "struct(" + strings.Join(parts, ",") + ")"
	case hir.MappingsEnum:
		parts := make([]string, len(td.Enum))
		for i, v := range td.Enum {
			switch v.Kind {
			case hir.VariantBoxed:
				bts := make([]string, len(v.BoxedTypes))
				for j, bt := range v.BoxedTypes {
					bts[j] = hirTypeKey(bt)
				}
				parts[i] = "boxed(" + strings.Join(bts, ",") + ")"
			case hir.VariantUnboxed:
				parts[i] = fmt.Sprintf("unboxed(%d)", v.UnboxedRef)
			case hir.VariantInt31:
				parts[i] = "int31"
			}
		}
		return "enum(" + strings.Join(parts, ",") + ")"
	}
	return "?"
}

func hirRewriteType(state hirState, t hir.Type) hir.Type {
	switch t.Tag {
	case hir.TypeId:
		args := make([]hir.Type, len(t.IdArgs))
		for i, a := range t.IdArgs {
			args[i] = hirRewriteType(state, a)
		}
		return hir.IdType(hirCanonicalOf(state, t.IdName), args)
	case hir.TypeFn:
		args := make([]hir.Type, len(t.FnArgs))
		for i, a := range t.FnArgs {
			args[i] = hirRewriteType(state, a)
		}
		var ret hir.Type
		if t.FnRet != nil {
			ret = hirRewriteType(state, *t.FnRet)
		}
		return hir.FnType(args, ret)
	default:
		return t
	}
}

func hirRewriteTypeDefinition(state hirState, td hir.TypeDefinition) hir.TypeDefinition {
	out := hir.TypeDefinition{Name: td.Name, Tag: td.Tag}
	switch td.Tag {
	case hir.MappingsStruct:
		out.Struct = make([]hir.Type, len(td.Struct))
		for i, t := range td.Struct {
			out.Struct[i] = hirRewriteType(state, t)
		}
	case hir.MappingsEnum:
		out.Enum = make([]hir.EnumVariant, len(td.Enum))
		for i, v := range td.Enum {
			out.Enum[i] = hir.EnumVariant{Kind: v.Kind, UnboxedRef: hirCanonicalOf(state, v.UnboxedRef)}
			if v.Kind == hir.VariantBoxed {
				out.Enum[i].BoxedTypes = make([]hir.Type, len(v.BoxedTypes))
				for j, bt := range v.BoxedTypes {
					out.Enum[i].BoxedTypes[j] = hirRewriteType(state, bt)
				}
			}
		}
	}
	return out
}

func hirRewriteExpr(state hirState, e hir.Expr) hir.Expr {
	e.Type = hirRewriteType(state, e.Type)
	return e
}

func hirRewriteFunction(state hirState, fn hir.Function) hir.Function {
	return hir.Function{
		Name:        fn.Name,
		Parameters:  fn.Parameters,
		Type:        hirRewriteType(state, fn.Type),
		Body:        hirRewriteStatements(state, fn.Body),
		ReturnValue: hirRewriteExpr(state, fn.ReturnValue),
	}
}

func hirRewriteStatements(state hirState, stmts []hir.Statement) []hir.Statement {
	out := make([]hir.Statement, len(stmts))
	for i, s := range stmts {
		out[i] = hirRewriteStatement(state, s)
	}
	return out
}

func hirRewriteStatement(state hirState, s hir.Statement) hir.Statement {
	out := s
	out.E1 = hirRewriteExpr(state, s.E1)
	out.E2 = hirRewriteExpr(state, s.E2)
	switch s.Tag {
	case hir.StmtIndexedAccess, hir.StmtIndexedAssign:
		out.PointerType = hirRewriteType(state, s.PointerType)
		out.Pointer = hirRewriteExpr(state, s.Pointer)
		out.AssignedExpr = hirRewriteExpr(state, s.AssignedExpr)
	case hir.StmtCall:
		out.Arguments = make([]hir.Expr, len(s.Arguments))
		for i, a := range s.Arguments {
			out.Arguments[i] = hirRewriteExpr(state, a)
		}
		out.ReturnType = hirRewriteType(state, s.ReturnType)
		if s.CalleeVariable != nil {
			v := hirRewriteExpr(state, *s.CalleeVariable)
			out.CalleeVariable = &v
		}
	case hir.StmtIfElse:
		out.Condition = hirRewriteExpr(state, s.Condition)
		out.S1 = hirRewriteStatements(state, s.S1)
		out.S2 = hirRewriteStatements(state, s.S2)
		out.FinalAssignments = make([]hir.FinalAssignment, len(s.FinalAssignments))
		for i, fa := range s.FinalAssignments {
			out.FinalAssignments[i] = hir.FinalAssignment{
				Name: fa.Name, Type: hirRewriteType(state, fa.Type),
				Then: hirRewriteExpr(state, fa.Then), Else: hirRewriteExpr(state, fa.Else),
			}
		}
	case hir.StmtBreak:
		out.BreakValue = hirRewriteExpr(state, s.BreakValue)
	case hir.StmtWhile:
		out.LoopVariables = make([]hir.LoopVariable, len(s.LoopVariables))
		for i, lv := range s.LoopVariables {
			out.LoopVariables[i] = hir.LoopVariable{
				Name: lv.Name, Type: hirRewriteType(state, lv.Type),
				Init: hirRewriteExpr(state, lv.Init), Next: hirRewriteExpr(state, lv.Next),
			}
		}
		out.Statements = hirRewriteStatements(state, s.Statements)
		if s.BreakCollector != nil {
			out.BreakCollector = &hir.BreakCollector{Name: s.BreakCollector.Name, Type: hirRewriteType(state, s.BreakCollector.Type)}
		}
	case hir.StmtCast:
		out.CastType = hirRewriteType(state, s.CastType)
		out.CastExpr = hirRewriteExpr(state, s.CastExpr)
	case hir.StmtLateInitDeclaration:
		out.PointerType = hirRewriteType(state, s.PointerType)
	case hir.StmtLateInitAssignment:
		out.AssignedExpr = hirRewriteExpr(state, s.AssignedExpr)
	case hir.StmtStructInit:
		out.StructTypeName = hirCanonicalOf(state, s.StructTypeName)
		out.ExpressionList = make([]hir.Expr, len(s.ExpressionList))
		for i, e := range s.ExpressionList {
			out.ExpressionList[i] = hirRewriteExpr(state, e)
		}
	case hir.StmtClosureInit:
		out.ClosureTypeName = hirCanonicalOf(state, s.ClosureTypeName)
		out.ClosureContext = hirRewriteExpr(state, s.ClosureContext)
	}
	return out
}
