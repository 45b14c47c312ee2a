package langserver

import (
	"github.com/samlang-go/samc/internal/ast"
	"github.com/samlang-go/samc/internal/heap"
)

// dependencyGraph is two parallel adjacency maps (spec.md §4.11,
// §9's "represent as two parallel adjacency maps" note): forward
// points a module at the modules it imports, reverse points a module
// at every module that imports it. The affected set after an edit is
// a BFS over reverse.
type dependencyGraph struct {
	forward map[heap.ModuleReference]map[heap.ModuleReference]bool
	reverse map[heap.ModuleReference]map[heap.ModuleReference]bool
}

// newDependencyGraph rebuilds the graph from scratch over every
// currently parsed module, mirroring the teacher-adjacent original's
// own "rebuild on every mutation" policy (_examples/original_source/
// crates/samlang-services/src/server_state.rs's `self.dep_graph =
// DependencyGraph::new(&self.parsed_modules)` after every update,
// rename, and remove) rather than patching the graph incrementally.
func newDependencyGraph(parsed map[heap.ModuleReference]*ast.Module) *dependencyGraph {
	g := &dependencyGraph{
		forward: make(map[heap.ModuleReference]map[heap.ModuleReference]bool, len(parsed)),
		reverse: make(map[heap.ModuleReference]map[heap.ModuleReference]bool, len(parsed)),
	}
	for modRef := range parsed {
		g.forward[modRef] = make(map[heap.ModuleReference]bool)
	}
	for modRef, m := range parsed {
		for _, imp := range m.Imports {
			g.forward[modRef][imp.ImportedModule] = true
			if g.reverse[imp.ImportedModule] == nil {
				g.reverse[imp.ImportedModule] = make(map[heap.ModuleReference]bool)
			}
			g.reverse[imp.ImportedModule][modRef] = true
		}
	}
	return g
}

// affectedSet computes the transitive reverse-import closure of seeds
// (spec.md GLOSSARY's "Affected set"): every seed itself, plus every
// module reachable by repeatedly following "is imported by" edges.
func (g *dependencyGraph) affectedSet(seeds []heap.ModuleReference) map[heap.ModuleReference]bool {
	affected := make(map[heap.ModuleReference]bool, len(seeds))
	queue := make([]heap.ModuleReference, 0, len(seeds))
	for _, s := range seeds {
		if !affected[s] {
			affected[s] = true
			queue = append(queue, s)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for dependent := range g.reverse[cur] {
			if !affected[dependent] {
				affected[dependent] = true
				queue = append(queue, dependent)
			}
		}
	}
	return affected
}
