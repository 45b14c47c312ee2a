// Package pipeline orchestrates one end-to-end compile (spec.md §4.10):
// parse -> check -> lower to HIR -> dedup -> monomorphize to MIR ->
// dedup -> optimize to a fixpoint -> flatten closures to LIR -> strip
// unused names -> lower to WASM. internal/langserver drives the same
// per-module stages incrementally; this package is the non-incremental
// "compile everything from scratch" entrypoint cmd/samc's `build` and
// `check` subcommands call. The language service does not call it; it
// always rechecks incrementally.
package pipeline

import (
	"strconv"

	"github.com/samlang-go/samc/internal/ast"
	"github.com/samlang-go/samc/internal/checker"
	"github.com/samlang-go/samc/internal/dedup"
	"github.com/samlang-go/samc/internal/errors"
	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/hir"
	"github.com/samlang-go/samc/internal/lir"
	"github.com/samlang-go/samc/internal/lower"
	"github.com/samlang-go/samc/internal/mir"
	"github.com/samlang-go/samc/internal/optimize"
	"github.com/samlang-go/samc/internal/sourceparse"
	"github.com/samlang-go/samc/internal/symtab"
	"github.com/samlang-go/samc/internal/typectx"
	"github.com/samlang-go/samc/internal/unused"
	"github.com/samlang-go/samc/internal/wasmmod"
)

// SourceFile is one compile unit's raw text, keyed by the module it
// will be parsed and checked as.
type SourceFile struct {
	Module heap.ModuleReference
	Text   string
}

// Result is every intermediate artifact a compile produced, kept
// around so a caller (the CLI's stage-printing flags, a test) can
// inspect any stage
// rather than only the final WASM module.
type Result struct {
	Heap        *heap.Heap
	SymbolTable *symtab.SymbolTable
	Errors      *errors.Set
	Global      typectx.GlobalSignature
	Modules     map[heap.ModuleReference]*checker.ModuleCheckResult

	HIR  hir.Sources
	MIR  mir.Sources
	LIR  lir.Sources
	WASM *wasmmod.Module
}

// ParseError pairs a source file's module with the sourceparse error
// it failed on, reported through the same ast.Location-keyed shape a
// checker diagnostic uses so the CLI's diagnostic printer doesn't need
// a separate code path for "couldn't even parse".
type ParseError struct {
	Module heap.ModuleReference
	Err    error
}

// Compile runs every stage over files, rooting reachability analysis
// (internal/unused) and WASM export selection at mainFunctionNames
// (named "ClassName$memberName", matching internal/lower.ASTLowerer's
// own function-naming convention). It always returns a Result with
// every stage attempted so far; callers must check Errors.HasErrors()
// before trusting anything past Result.Modules, the same contract
// internal/langserver's incremental re-check relies on (spec.md
// §4.11). A non-nil parseErrs return means at least one file never
// produced an ast.Module at all, so later stages ran over whatever
// subset did parse.
func Compile(h *heap.Heap, st *symtab.SymbolTable, files []SourceFile, mainFunctionNames []heap.FunctionName) (result *Result, parseErrs []ParseError) {
	errs := errors.NewSet()
	result = &Result{Heap: h, SymbolTable: st, Errors: errs}

	astModules := make(map[heap.ModuleReference]*ast.Module, len(files))
	for _, f := range files {
		m, err := sourceparse.Parse(h, f.Module, f.Text)
		if err != nil {
			parseErrs = append(parseErrs, ParseError{Module: f.Module, Err: err})
			continue
		}
		astModules[f.Module] = m
	}

	checker.CheckImports(h, astModules, errs)
	result.Global = checker.BuildGlobalSignature(astModules)

	result.Modules = make(map[heap.ModuleReference]*checker.ModuleCheckResult, len(astModules))
	var checkedModules []lower.CheckedModule
	for modRef, m := range astModules {
		cr := checker.CheckModule(h, result.Global, errs, modRef, m)
		result.Modules[modRef] = cr
		checkedModules = append(checkedModules, lower.CheckedModule{Reference: modRef, Module: m, Local: cr.Local})
	}

	if errs.HasErrors() {
		return result, parseErrs
	}

	lw := lower.NewASTLowerer(h, st, result.Global)
	result.HIR = dedup.HIR(lw.LowerProgram(checkedModules, mainFunctionNames))
	result.MIR = dedup.MIR(lower.LowerHIRToMIR(h, st, result.HIR))
	result.MIR = optimizeMIR(h, result.MIR)
	result.LIR = unused.Eliminate(lower.LowerMIRToLIR(h, result.MIR))
	result.WASM = wasmmod.LowerLIRToWASM(h, result.LIR)
	return result, parseErrs
}

// optimizeMIR runs the LVN / loop-induction+LICM / DCE cascade over
// every function to a fixpoint (spec.md §4.9's S2 scenario: LVN
// exposes redundant bindings, DCE cleans them up, and a second LVN
// pass over the narrower program can expose more — so the cascade
// repeats until nothing changes or a conservative iteration cap is
// hit, matching the teacher's own fixpoint-loop style for its
// optimizer passes).
func optimizeMIR(h *heap.Heap, src mir.Sources) mir.Sources {
	const maxRounds = 8
	fns := make([]mir.Function, len(src.Functions))
	copy(fns, src.Functions)

	tmp := 0
	freshName := func() heap.PStr {
		tmp++
		return h.Alloc("$loopval" + strconv.Itoa(tmp))
	}

	for round := 0; round < maxRounds; round++ {
		changed := false
		for i, fn := range fns {
			before := len(fn.Body)
			fn.Body = optimizeLoops(fn.Body, freshName)
			fn = optimize.LVNFunction(fn)
			fn = optimize.DCEFunction(fn)
			if len(fn.Body) != before {
				changed = true
			}
			fns[i] = fn
		}
		if !changed {
			break
		}
	}

	src.Functions = fns
	return src
}

// optimizeLoops walks stmts recursively, applying AlgebraicReduce (and,
// failing that, LICM) to every While loop found at any nesting depth,
// per spec.md §4.7-§4.8's ordering: a loop that fully reduces to a
// closed form never needs invariant-code hoisting at all.
func optimizeLoops(stmts []mir.Statement, freshName func() heap.PStr) []mir.Statement {
	out := make([]mir.Statement, 0, len(stmts))
	for _, s := range stmts {
		switch s.Tag {
		case mir.StmtIfElse:
			s.S1 = optimizeLoops(s.S1, freshName)
			s.S2 = optimizeLoops(s.S2, freshName)
			out = append(out, s)
		case mir.StmtWhile:
			s.Statements = optimizeLoops(s.Statements, freshName)
			if reduced, ok := optimize.AlgebraicReduce(s, freshName); ok {
				out = append(out, reduced...)
				continue
			}
			licm := optimize.LICM(s)
			out = append(out, licm.HoistedBefore...)
			out = append(out, licm.Loop)
		default:
			out = append(out, s)
		}
	}
	return out
}
