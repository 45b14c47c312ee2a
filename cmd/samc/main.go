// Command samc is the compiler driver: a cobra CLI over
// internal/pipeline's from-scratch compile and internal/langserver's
// incremental language service, the collaborator-boundary surface
// SPEC_FULL.md's §6 calls a thin stand-in around the core the rest of
// this module implements. Structured as a cobra root command with
// subcommands the way spf13/cobra's own generated layout does it,
// rather than the teacher's stdlib-flag switch-on-argv[1] dispatch in
// cmd/ailang/main.go, per SPEC_FULL.md's domain-stack wiring for
// spf13/cobra, spf13/pflag, and github.com/inconshreveable/mousetrap.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "samc",
		Short:         "samc compiles and checks SAM language source files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCheckCommand())
	root.AddCommand(newBuildCommand())
	root.AddCommand(newLSPReplCommand())
	return root
}
