package pipeline

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/samlang-go/samc/internal/heap"
)

// Manifest is a compile unit's declarative description: which files
// make up the program and which functions are its entry points, read
// from a `samc.yaml`-style file the same way the teacher's
// `internal/manifest` package describes a sync job's sources and
// targets.
type Manifest struct {
	// Modules maps each source file's dotted module path to its path
	// on disk, relative to the manifest file's own directory.
	Modules map[string]string `yaml:"modules"`

	// EntryPoints names every class member that must survive
	// internal/unused's reachability sweep and be exported from the
	// final WASM module, written as "module.path:ClassName.memberName"
	// (a colon separates the dotted module path from the
	// dotted-looking but two-part class/member reference, since module
	// paths are themselves dot-separated).
	EntryPoints []string `yaml:"entry_points"`
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// SourceFiles reads every module file the manifest lists, interning
// each module path into h, ready to hand to Compile. The returned map
// (module path -> ModuleReference) is what MainFunctionNames needs to
// resolve EntryPoints against the same interned references.
func (m *Manifest) SourceFiles(h *heap.Heap, baseDir string) ([]SourceFile, map[string]heap.ModuleReference, error) {
	files := make([]SourceFile, 0, len(m.Modules))
	modRefs := make(map[string]heap.ModuleReference, len(m.Modules))
	for modulePath, relFile := range m.Modules {
		data, err := os.ReadFile(joinPath(baseDir, relFile))
		if err != nil {
			return nil, nil, err
		}
		modRef := heap.NewModuleReference(h, modulePath)
		modRefs[modulePath] = modRef
		files = append(files, SourceFile{Module: modRef, Text: string(data)})
	}
	return files, modRefs, nil
}

// MainFunctionNames resolves the manifest's entry-point strings
// against h and modRefs (module path -> ModuleReference, as produced
// while interning SourceFiles), matching
// internal/lower.ASTLowerer.functionName's "ClassName$memberName"
// encoding exactly so the result plugs directly into Compile.
func (m *Manifest) MainFunctionNames(h *heap.Heap, modRefs map[string]heap.ModuleReference) []heap.FunctionName {
	out := make([]heap.FunctionName, 0, len(m.EntryPoints))
	for _, ep := range m.EntryPoints {
		modulePath, qualifiedMember, ok := splitOnce(ep, ':')
		if !ok {
			continue
		}
		modRef, ok := modRefs[modulePath]
		if !ok {
			continue
		}
		className, memberName, ok := splitOnce(qualifiedMember, '.')
		if !ok {
			continue
		}
		out = append(out, heap.FunctionName{
			ModuleReference: modRef,
			Name:            h.Alloc(className + "$" + memberName),
		})
	}
	return out
}

func joinPath(dir, file string) string {
	if dir == "" {
		return file
	}
	return dir + string(os.PathSeparator) + file
}

func splitOnce(s string, sep byte) (before, after string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}
