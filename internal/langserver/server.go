// Package langserver implements the incremental language service
// spec.md §4.11 describes: a server that holds every module's parsed
// source, its cross-module dependency graph, and its latest check
// result, and that recomputes only the modules an edit could possibly
// invalidate (the "affected set": the edited module's transitive
// reverse-import closure) instead of rechecking the whole program.
//
// Its state machine and incremental-recheck contract are ported from
// _examples/original_source/crates/samlang-services/src/server_state.rs;
// its GC walk from that crate's gc.rs (see gc.go); cmd/samc's
// `lsp-repl` subcommand drives it through repl.go as a terminal
// front-end, supplementing the §4.11 query surface the same way the
// original's WASM bindings (samlang-wasm) exposed it to a browser.
package langserver

import (
	"github.com/samlang-go/samc/internal/ast"
	"github.com/samlang-go/samc/internal/checker"
	"github.com/samlang-go/samc/internal/errors"
	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/sourceparse"
	"github.com/samlang-go/samc/internal/typectx"
)

// SourceUpdate is one module's new source text, the unit Update takes
// a batch of (matching the original's `update(updates: Vec<(ModuleReference, String)>)`).
type SourceUpdate struct {
	Module heap.ModuleReference
	Text   string
}

// ModuleRename is one old-path/new-path pair given to RenameModule.
type ModuleRename struct {
	Old heap.ModuleReference
	New heap.ModuleReference
}

// LanguageServer holds every module the client has ever told it
// about, the dependency graph between them, and the latest check
// result per module, recomputing only what an edit could invalidate.
type LanguageServer struct {
	heap   *heap.Heap
	config Config

	source  map[heap.ModuleReference]string
	parsed  map[heap.ModuleReference]*ast.Module
	checked map[heap.ModuleReference]*checker.ModuleCheckResult
	global  typectx.GlobalSignature

	errorsByModule map[heap.ModuleReference][]errors.CompileTimeError
}

// New creates an empty language server over h, ready for an initial
// batch of Update calls.
func New(h *heap.Heap, cfg Config) *LanguageServer {
	return &LanguageServer{
		heap:           h,
		config:         cfg,
		source:         make(map[heap.ModuleReference]string),
		parsed:         make(map[heap.ModuleReference]*ast.Module),
		checked:        make(map[heap.ModuleReference]*checker.ModuleCheckResult),
		global:         make(typectx.GlobalSignature),
		errorsByModule: make(map[heap.ModuleReference][]errors.CompileTimeError),
	}
}

// Update parses every given module's new text, replaces its prior
// parse (if any), and rechecks the affected set: the updated modules
// plus everything that transitively imports them, per
// server_state.rs's `update`.
func (s *LanguageServer) Update(updates []SourceUpdate) {
	seeds := make([]heap.ModuleReference, 0, len(updates))
	for _, u := range updates {
		seeds = append(seeds, u.Module)
		s.source[u.Module] = u.Text
		m, err := sourceparse.Parse(s.heap, u.Module, u.Text)
		if err != nil {
			delete(s.parsed, u.Module)
			s.errorsByModule[u.Module] = []errors.CompileTimeError{{
				Location: ast.Location{Module: u.Module},
				Detail:   errors.Detail{Kind: errors.KindInvalidSyntax, SyntaxReason: err.Error()},
			}}
			continue
		}
		s.parsed[u.Module] = m
	}
	s.recheck(seeds)
}

// RenameModule moves each Old module's source, parse, and signature
// entries to New, then rechecks the affected set computed from the
// *old* dependency graph (both the old and new references as seeds),
// matching server_state.rs's `rename_module` ordering: the recheck
// seed set must be computed before the graph is mutated, since after
// the rename nothing imports the old name anymore.
func (s *LanguageServer) RenameModule(renames []ModuleRename) {
	oldGraph := newDependencyGraph(s.parsed)
	seeds := make([]heap.ModuleReference, 0, len(renames)*2)
	for _, r := range renames {
		seeds = append(seeds, r.Old, r.New)
	}
	affected := oldGraph.affectedSet(seeds)

	for _, r := range renames {
		if text, ok := s.source[r.Old]; ok {
			delete(s.source, r.Old)
			s.source[r.New] = text
		}
		if m, ok := s.parsed[r.Old]; ok {
			delete(s.parsed, r.Old)
			s.parsed[r.New] = m
		}
		if sig, ok := s.global[r.Old]; ok {
			delete(s.global, r.Old)
			s.global[r.New] = sig
		}
		delete(s.checked, r.Old)
		delete(s.errorsByModule, r.Old)
	}
	s.rerunFor(affected, seeds)
}

// Remove drops every given module's source, parse, check result, and
// signature, then rechecks whatever still imports them (so a stale
// import now surfaces CannotResolveModule instead of silently keeping
// last-known-good results), matching server_state.rs's `remove`.
func (s *LanguageServer) Remove(modules []heap.ModuleReference) {
	graph := newDependencyGraph(s.parsed)
	affected := graph.affectedSet(modules)

	for _, m := range modules {
		delete(s.source, m)
		delete(s.parsed, m)
		delete(s.checked, m)
		delete(s.global, m)
		delete(s.errorsByModule, m)
	}
	s.rerunFor(affected, nil)
}

// GetErrors returns the last-known diagnostics for a single module, or
// nil if the module has never been checked or has no errors — mirrors
// server_state.rs's `get_errors` defaulting to an empty slice.
func (s *LanguageServer) GetErrors(modRef heap.ModuleReference) []errors.CompileTimeError {
	return s.errorsByModule[modRef]
}

// AllModules returns every module reference the server currently
// holds parsed source for.
func (s *LanguageServer) AllModules() []heap.ModuleReference {
	out := make([]heap.ModuleReference, 0, len(s.parsed))
	for m := range s.parsed {
		out = append(out, m)
	}
	return out
}

// CheckResultFor returns a module's latest check result (SSA +
// typing), or nil if it has never successfully checked.
func (s *LanguageServer) CheckResultFor(modRef heap.ModuleReference) *checker.ModuleCheckResult {
	return s.checked[modRef]
}

// ModuleAST returns a module's current parse tree, or nil.
func (s *LanguageServer) ModuleAST(modRef heap.ModuleReference) *ast.Module {
	return s.parsed[modRef]
}

// recheck computes the affected set of seeds against the current
// (freshly rebuilt) dependency graph and reruns the frontend over it.
func (s *LanguageServer) recheck(seeds []heap.ModuleReference) {
	graph := newDependencyGraph(s.parsed)
	affected := graph.affectedSet(seeds)
	s.rerunFor(affected, seeds)
}

// rerunFor re-resolves imports and re-typechecks every module in
// affected, clearing stale errors for any affected module that
// becomes error-free (server_state.rs's `recheck` explicitly inserts
// an empty vec for a recheck_set member absent from the freshly
// grouped errors — the same clearing behavior, done here by always
// overwriting s.errorsByModule[m] for m in affected, never merging).
// A module that was rechecked but has no source any more (removed or
// renamed away) has its errors entry deleted; a module whose source
// failed to parse keeps the syntax error Update recorded for it.
// The GC walk is seeded from every currently parsed module plus
// gcSeeds (Update and RenameModule pass their own seed lists; Remove
// passes nil, which means the affected set).
func (s *LanguageServer) rerunFor(affected map[heap.ModuleReference]bool, gcSeeds []heap.ModuleReference) {
	errs := errors.NewSet()
	checker.CheckImports(s.heap, s.parsed, errs)
	s.global = checker.BuildGlobalSignature(s.parsed)

	for modRef := range affected {
		m, ok := s.parsed[modRef]
		if !ok {
			delete(s.checked, modRef)
			continue
		}
		s.checked[modRef] = checker.CheckModule(s.heap, s.global, errs, modRef, m)
	}

	// CheckImports runs over every currently parsed module (not just
	// affected), so its errors are recomputed and reassigned in full
	// every time; affected modules additionally get their typechecker
	// errors folded in, and are explicitly cleared to "no errors" when
	// grouped has nothing for them, so a fixed bug doesn't leave a
	// stale diagnostic behind.
	grouped := errs.GroupByModule(s.heap)
	for modRef := range s.parsed {
		s.errorsByModule[modRef] = grouped[modRef]
	}
	for modRef := range affected {
		if _, hasSource := s.source[modRef]; !hasSource {
			delete(s.errorsByModule, modRef)
		}
	}

	seeds := gcSeeds
	if seeds == nil {
		seeds = make([]heap.ModuleReference, 0, len(affected))
		for modRef := range affected {
			seeds = append(seeds, modRef)
		}
	}
	changed := make(map[heap.ModuleReference]bool, len(seeds)+len(s.parsed))
	for _, m := range seeds {
		changed[m] = true
	}
	for m := range s.parsed {
		changed[m] = true
	}
	runGC(s.heap, s.config.GC, s.parsed, changed)
}
