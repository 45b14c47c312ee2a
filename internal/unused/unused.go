// Package unused implements LIR unused-name elimination: a
// reachability closure from Sources.MainFunctionNames over functions,
// interned-string globals, and type definitions.
package unused

import (
	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/lir"
	"github.com/samlang-go/samc/internal/symtab"
)

// uses is the per-function summary: every string global referenced,
// every function called (excluding the function's own self-calls,
// which would otherwise keep every recursive function trivially
// "reachable" from itself), and every type definition referenced.
type uses struct {
	strings   map[heap.PStr]bool
	functions map[heap.FunctionName]bool
	types     map[symtab.TypeNameId]bool
}

func newUses() *uses {
	return &uses{strings: map[heap.PStr]bool{}, functions: map[heap.FunctionName]bool{}, types: map[symtab.TypeNameId]bool{}}
}

// Eliminate filters src's globals, type definitions, and functions down
// to the set transitively reachable from src.MainFunctionNames,
// preserving original order.
func Eliminate(src lir.Sources) lir.Sources {
	perFunction := make(map[heap.FunctionName]*uses, len(src.Functions))
	for _, fn := range src.Functions {
		perFunction[fn.Name] = computeUses(fn)
	}

	liveFunctions := map[heap.FunctionName]bool{}
	liveStrings := map[heap.PStr]bool{}
	var worklist []heap.FunctionName
	for _, m := range src.MainFunctionNames {
		if !liveFunctions[m] {
			liveFunctions[m] = true
			worklist = append(worklist, m)
		}
	}
	for len(worklist) > 0 {
		name := worklist[0]
		worklist = worklist[1:]
		u, ok := perFunction[name]
		if !ok {
			continue
		}
		for s := range u.strings {
			liveStrings[s] = true
		}
		for callee := range u.functions {
			if !liveFunctions[callee] {
				liveFunctions[callee] = true
				worklist = append(worklist, callee)
			}
		}
	}

	liveTypes := map[symtab.TypeNameId]bool{}
	for name := range liveFunctions {
		if u, ok := perFunction[name]; ok {
			for t := range u.types {
				liveTypes[t] = true
			}
		}
	}

	var outGlobals []lir.GlobalString
	for _, g := range src.GlobalVariables {
		if liveStrings[g.Name] {
			outGlobals = append(outGlobals, g)
		}
	}
	var outTypes []lir.TypeDefinition
	for _, td := range src.TypeDefinitions {
		if liveTypes[td.Name] {
			outTypes = append(outTypes, td)
		}
	}
	var outFns []lir.Function
	for _, fn := range src.Functions {
		if liveFunctions[fn.Name] {
			outFns = append(outFns, fn)
		}
	}

	return lir.Sources{
		SymbolTable:       src.SymbolTable,
		GlobalVariables:   outGlobals,
		TypeDefinitions:   outTypes,
		MainFunctionNames: src.MainFunctionNames,
		Functions:         outFns,
	}
}

func computeUses(fn lir.Function) *uses {
	u := newUses()
	addType(u, fn.Type)
	walkStatements(u, fn.Name, fn.Body)
	addExpr(u, fn.Name, fn.ReturnValue)
	return u
}

func addType(u *uses, t lir.Type) {
	switch t.Tag {
	case lir.TypeId:
		u.types[t.IdName] = true
	case lir.TypeFn:
		for _, a := range t.FnArgs {
			addType(u, a)
		}
		if t.FnRet != nil {
			addType(u, *t.FnRet)
		}
	}
}

func addExpr(u *uses, self heap.FunctionName, e lir.Expr) {
	addType(u, e.Type)
	switch e.Tag {
	case lir.ExprStringName:
		u.strings[e.Name] = true
	case lir.ExprFunctionName:
		if e.FunctionName != self {
			u.functions[e.FunctionName] = true
		}
	}
}

func walkStatements(u *uses, self heap.FunctionName, stmts []lir.Statement) {
	for _, s := range stmts {
		walkStatement(u, self, s)
	}
}

func walkStatement(u *uses, self heap.FunctionName, s lir.Statement) {
	addExpr(u, self, s.E1)
	addExpr(u, self, s.E2)
	switch s.Tag {
	case lir.StmtIsPointer:
		u.types[s.PointerTestType] = true
	case lir.StmtIndexedAccess, lir.StmtIndexedAssign:
		addType(u, s.PointerType)
		addExpr(u, self, s.Pointer)
		addExpr(u, self, s.AssignedExpr)
	case lir.StmtCall:
		if s.CalleeFunctionName != nil && *s.CalleeFunctionName != self {
			u.functions[*s.CalleeFunctionName] = true
		}
		if s.CalleeVariable != nil {
			addExpr(u, self, *s.CalleeVariable)
		}
		for _, a := range s.Arguments {
			addExpr(u, self, a)
		}
		addType(u, s.ReturnType)
	case lir.StmtIfElse:
		addExpr(u, self, s.Condition)
		walkStatements(u, self, s.S1)
		walkStatements(u, self, s.S2)
		for _, fa := range s.FinalAssignments {
			addType(u, fa.Type)
			addExpr(u, self, fa.Then)
			addExpr(u, self, fa.Else)
		}
	case lir.StmtSingleIf:
		addExpr(u, self, s.Condition)
		walkStatements(u, self, s.Statements)
	case lir.StmtBreak:
		addExpr(u, self, s.BreakValue)
	case lir.StmtWhile:
		for _, lv := range s.LoopVariables {
			addType(u, lv.Type)
			addExpr(u, self, lv.Init)
			addExpr(u, self, lv.Next)
		}
		walkStatements(u, self, s.Statements)
		if s.BreakCollector != nil {
			addType(u, s.BreakCollector.Type)
		}
	case lir.StmtCast:
		addType(u, s.CastType)
		addExpr(u, self, s.CastExpr)
	case lir.StmtLateInitDeclaration:
		addType(u, s.PointerType)
	case lir.StmtLateInitAssignment:
		addExpr(u, self, s.AssignedExpr)
	case lir.StmtStructInit:
		u.types[s.StructTypeName] = true
		for _, e := range s.ExpressionList {
			addExpr(u, self, e)
		}
	}
}
