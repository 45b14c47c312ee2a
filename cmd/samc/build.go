package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/pipeline"
	"github.com/samlang-go/samc/internal/printer"
	"github.com/samlang-go/samc/internal/symtab"
)

func newBuildCommand() *cobra.Command {
	var manifestPath string
	var emit string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "compile a unit to WASM (or print an earlier IR stage with --emit)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, manifestPath, emit)
		},
	}
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "samc.yaml", "path to the compile unit manifest")
	cmd.Flags().StringVar(&emit, "emit", "wasm", "intermediate stage to print: lir or wasm")
	return cmd
}

func runBuild(cmd *cobra.Command, manifestPath, emit string) error {
	if emit != "lir" && emit != "wasm" {
		return fmt.Errorf("unknown --emit stage %q, want lir or wasm", emit)
	}

	h := heap.New()
	st := symtab.New()

	manifest, err := pipeline.LoadManifest(manifestPath)
	if err != nil {
		return fmt.Errorf("loading manifest: %w", err)
	}
	baseDir := manifestBaseDir(manifestPath)
	files, modRefs, err := manifest.SourceFiles(h, baseDir)
	if err != nil {
		return fmt.Errorf("reading sources: %w", err)
	}
	mainFns := manifest.MainFunctionNames(h, modRefs)

	result, parseErrs := pipeline.Compile(h, st, files, mainFns)
	for _, pe := range parseErrs {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", pe.Module.PrettyPrint(h), pe.Err)
	}
	if len(parseErrs) > 0 {
		return fmt.Errorf("build failed")
	}
	if result.Errors.HasErrors() {
		printer.PrintDiagnostics(cmd.ErrOrStderr(), h, result.Errors)
		return fmt.Errorf("build failed")
	}

	switch emit {
	case "lir":
		fmt.Fprintln(cmd.OutOrStdout(), printer.PrintLIRSources(h, result.LIR))
	case "wasm":
		fmt.Fprintln(cmd.OutOrStdout(), printer.PrintWASMModule(h, result.WASM))
	}
	return nil
}
