package printer

import (
	"io"

	"github.com/fatih/color"

	"github.com/samlang-go/samc/internal/errors"
	"github.com/samlang-go/samc/internal/heap"
)

// PrintDiagnostics renders every error in s to w, grouped by module
// (spec.md §4.11's ordering guarantee) and colorized the way the
// teacher's CLI colorizes its own diagnostics: the one-line summary in
// bold red, the secondary "prior binding" location (when the message
// embeds one, e.g. NameAlreadyBound) in yellow. Color auto-disables on
// a non-TTY writer via fatih/color's own NoColor detection.
func PrintDiagnostics(w io.Writer, h *heap.Heap, s *errors.Set) {
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow)

	grouped := s.GroupByModule(h)
	modules := make([]heap.ModuleReference, 0, len(grouped))
	for m := range grouped {
		modules = append(modules, m)
	}
	sortModules(h, modules)

	for _, m := range modules {
		for _, e := range grouped[m] {
			red.Fprintln(w, e.PrettyPrint(h))
			if e.Detail.Kind == errors.KindNameAlreadyBound {
				yellow.Fprintf(w, "  [0] prior binding: %s\n", e.Detail.OldLoc.PrettyPrint(h))
			}
		}
	}
}

func sortModules(h *heap.Heap, modules []heap.ModuleReference) {
	for i := 1; i < len(modules); i++ {
		for j := i; j > 0 && modules[j].PrettyPrint(h) < modules[j-1].PrettyPrint(h); j-- {
			modules[j], modules[j-1] = modules[j-1], modules[j]
		}
	}
}
