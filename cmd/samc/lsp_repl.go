package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samlang-go/samc/internal/heap"
	"github.com/samlang-go/samc/internal/langserver"
	"github.com/samlang-go/samc/internal/pipeline"
)

func newLSPReplCommand() *cobra.Command {
	var manifestPath string
	var configPath string
	cmd := &cobra.Command{
		Use:   "lsp-repl",
		Short: "start an interactive language-service session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLSPRepl(cmd, manifestPath, configPath)
		},
	}
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "manifest to preload before starting the session (optional)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "language service YAML config (optional)")
	return cmd
}

func runLSPRepl(cmd *cobra.Command, manifestPath, configPath string) error {
	h := heap.New()
	cfg := langserver.DefaultConfig()
	if configPath != "" {
		loaded, err := langserver.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("loading server config: %w", err)
		}
		cfg = loaded
	}
	server := langserver.New(h, cfg)

	if manifestPath != "" {
		manifest, err := pipeline.LoadManifest(manifestPath)
		if err != nil {
			return fmt.Errorf("loading manifest: %w", err)
		}
		baseDir := manifestBaseDir(manifestPath)
		files, _, err := manifest.SourceFiles(h, baseDir)
		if err != nil {
			return fmt.Errorf("reading sources: %w", err)
		}
		updates := make([]langserver.SourceUpdate, len(files))
		for i, f := range files {
			updates[i] = langserver.SourceUpdate{Module: f.Module, Text: f.Text}
		}
		server.Update(updates)
	}

	return langserver.RunREPL(server, cmd.OutOrStdout())
}
