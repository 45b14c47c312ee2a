package langserver

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/samlang-go/samc/internal/ast"
	"github.com/samlang-go/samc/internal/heap"
)

var (
	bold   = color.New(color.Bold).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
)

var replCommands = []string{
	":help", ":quit", ":load", ":modules", ":errors", ":hover", ":goto", ":complete", ":refs",
}

// RunREPL drives an interactive terminal session over an already
// constructed LanguageServer, the same liner-backed read/eval/print
// shape as _examples/sunholo-data-ailang/internal/repl/repl.go's
// Start method, adapted from "evaluate an expression" to "answer a
// language-service query against whatever modules are currently
// loaded". This is the terminal front-end SPEC_FULL.md's §4.11
// REPL-front-end supplement calls for, standing in for the original's
// samlang-wasm browser bindings over the same query surface.
func RunREPL(s *LanguageServer, out io.Writer) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetMultiLineMode(false)
	line.SetCompleter(func(partial string) (c []string) {
		if !strings.HasPrefix(partial, ":") {
			return nil
		}
		for _, cmd := range replCommands {
			if strings.HasPrefix(cmd, partial) {
				c = append(c, cmd)
			}
		}
		return c
	})

	fmt.Fprintf(out, "%s\n", bold("samc language service"))
	fmt.Fprintln(out, dim("Type :help for commands, :quit to exit"))

	for {
		input, err := line.Prompt("samc> ")
		if err == io.EOF {
			fmt.Fprintln(out, green("goodbye"))
			return nil
		}
		if err != nil {
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if input == ":quit" || input == ":q" {
			fmt.Fprintln(out, green("goodbye"))
			return nil
		}
		handleREPLCommand(s, input, out)
	}
}

func handleREPLCommand(s *LanguageServer, input string, out io.Writer) {
	fields := strings.Fields(input)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case ":help":
		printREPLHelp(out)
	case ":load":
		replLoad(s, args, out)
	case ":modules":
		for _, m := range s.AllModules() {
			fmt.Fprintln(out, m.PrettyPrint(s.heap))
		}
	case ":errors":
		replErrors(s, args, out)
	case ":hover":
		replHover(s, args, out)
	case ":goto":
		replGoto(s, args, out)
	case ":complete":
		replComplete(s, args, out)
	case ":refs":
		replRefs(s, args, out)
	default:
		fmt.Fprintf(out, "%s: unknown command %q, try :help\n", red("error"), cmd)
	}
}

func printREPLHelp(out io.Writer) {
	width := terminalWidth(int(os.Stdout.Fd()))
	rule := strings.Repeat("-", min(width, 60))
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, ":load <module> <path>       parse a file as a module and recheck")
	fmt.Fprintln(out, ":modules                    list every loaded module")
	fmt.Fprintln(out, ":errors <module>            print a module's current diagnostics")
	fmt.Fprintln(out, ":hover <module> <line> <col>  show the type at a position (1-indexed)")
	fmt.Fprintln(out, ":goto <module> <line> <col>   show the definition site of a use")
	fmt.Fprintln(out, ":complete <module> <line> <col>  list in-scope locals")
	fmt.Fprintln(out, ":refs <module> <name>        find importers referencing a toplevel name")
	fmt.Fprintln(out, ":quit                        exit")
	fmt.Fprintln(out, rule)
}

func replLoad(s *LanguageServer, args []string, out io.Writer) {
	if len(args) != 2 {
		fmt.Fprintf(out, "%s: usage: :load <module> <path>\n", red("error"))
		return
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", red("error"), err)
		return
	}
	modRef := heap.NewModuleReference(s.heap, args[0])
	s.Update([]SourceUpdate{{Module: modRef, Text: string(data)}})
	errs := s.GetErrors(modRef)
	if len(errs) == 0 {
		fmt.Fprintf(out, "%s %s loaded cleanly\n", green("ok"), args[0])
		return
	}
	for _, e := range errs {
		fmt.Fprintln(out, yellow(e.PrettyPrint(s.heap)))
	}
}

func parseModuleAndPosition(s *LanguageServer, args []string) (heap.ModuleReference, ast.Position, bool) {
	if len(args) != 3 {
		return heap.ModuleReference{}, ast.Position{}, false
	}
	line, err1 := strconv.Atoi(args[1])
	col, err2 := strconv.Atoi(args[2])
	if err1 != nil || err2 != nil {
		return heap.ModuleReference{}, ast.Position{}, false
	}
	modRef := heap.NewModuleReference(s.heap, args[0])
	return modRef, ast.Position{Line: line - 1, Column: col - 1}, true
}

func replHover(s *LanguageServer, args []string, out io.Writer) {
	modRef, pos, ok := parseModuleAndPosition(s, args)
	if !ok {
		fmt.Fprintf(out, "%s: usage: :hover <module> <line> <col>\n", red("error"))
		return
	}
	info, ok := s.QueryHover(modRef, pos)
	if !ok {
		fmt.Fprintln(out, dim("no type information at that position"))
		return
	}
	fmt.Fprintf(out, "%s: %s\n", info.Location.PrettyPrint(s.heap), bold(info.Type))
}

func replGoto(s *LanguageServer, args []string, out io.Writer) {
	modRef, pos, ok := parseModuleAndPosition(s, args)
	if !ok {
		fmt.Fprintf(out, "%s: usage: :goto <module> <line> <col>\n", red("error"))
		return
	}
	loc, ok := s.QueryDefinitionLocation(modRef, pos)
	if !ok {
		fmt.Fprintln(out, dim("no definition found at that position"))
		return
	}
	fmt.Fprintln(out, loc.PrettyPrint(s.heap))
}

func replComplete(s *LanguageServer, args []string, out io.Writer) {
	modRef, pos, ok := parseModuleAndPosition(s, args)
	if !ok {
		fmt.Fprintf(out, "%s: usage: :complete <module> <line> <col>\n", red("error"))
		return
	}
	for _, lv := range s.AutoComplete(modRef, pos) {
		fmt.Fprintf(out, "%s: %s\n", s.heap.Str(lv.Name), lv.Type.Describe(s.heap))
	}
}

func replErrors(s *LanguageServer, args []string, out io.Writer) {
	if len(args) != 1 {
		fmt.Fprintf(out, "%s: usage: :errors <module>\n", red("error"))
		return
	}
	modRef := heap.NewModuleReference(s.heap, args[0])
	errs := s.GetErrors(modRef)
	if len(errs) == 0 {
		fmt.Fprintln(out, green("no errors"))
		return
	}
	for _, e := range errs {
		fmt.Fprintln(out, yellow(e.PrettyPrint(s.heap)))
	}
}

func replRefs(s *LanguageServer, args []string, out io.Writer) {
	if len(args) != 2 {
		fmt.Fprintf(out, "%s: usage: :refs <module> <name>\n", red("error"))
		return
	}
	owner := heap.NewModuleReference(s.heap, args[0])
	name := s.heap.Alloc(args[1])
	refs := s.GlobalReferencesToToplevel(owner, name)
	if len(refs) == 0 {
		fmt.Fprintln(out, dim("no references found"))
		return
	}
	for _, loc := range refs {
		fmt.Fprintln(out, loc.PrettyPrint(s.heap))
	}
}
