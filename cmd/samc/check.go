package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/pipeline"
	"github.com/samlang-go/samc/internal/printer"
	"github.com/samlang-go/samc/internal/symtab"
)

func newCheckCommand() *cobra.Command {
	var manifestPath string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "type-check a compile unit and print its diagnostics (runs the full compile pipeline)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, manifestPath)
		},
	}
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "samc.yaml", "path to the compile unit manifest")
	return cmd
}

func runCheck(cmd *cobra.Command, manifestPath string) error {
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
	printer.PrintDiagnostics(cmd.OutOrStdout(), h, result.Errors)

	if len(parseErrs) > 0 || result.Errors.HasErrors() {
		return fmt.Errorf("compilation failed")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "no errors")
	return nil
}

func manifestBaseDir(manifestPath string) string {
	for i := len(manifestPath) - 1; i >= 0; i-- {
		if manifestPath[i] == '/' {
			return manifestPath[:i]
		}
	}
	return ""
}
