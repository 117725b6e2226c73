package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docrag/docrag/internal/config"
	"github.com/docrag/docrag/internal/index"
	"github.com/docrag/docrag/internal/rag"
	"github.com/docrag/docrag/internal/ui"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index status",
		Long: `Display the current snapshot's summary: indexed files, chunks,
embedding dimensions, last index time, and the configured providers.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	system, err := rag.New(cfg)
	if err != nil {
		return err
	}
	defer system.Close()

	if err := system.Initialize(cmd.Context()); err != nil {
		return err
	}

	stats, err := system.Stats()
	if err != nil {
		if errors.Is(err, index.ErrNotInitialized) {
			return fmt.Errorf("no index found in %s\nRun 'docrag index' to create one", cfg.Paths.DataDir)
		}
		return err
	}

	info := ui.StatusInfo{
		DocumentsDir: cfg.Paths.DocumentsDir,
		Files:        stats.Files,
		Chunks:       stats.Chunks,
		Dimensions:   stats.Dimensions,
		LastIndexed:  stats.CreatedAt,
		Embedder:     embedderLabel(cfg),
		Reranker:     cfg.Reranker.Provider,
	}
	if fi, statErr := os.Stat(cfg.SnapshotPath()); statErr == nil {
		info.SnapshotSize = fi.Size()
	}

	out := cmd.OutOrStdout()
	renderer := ui.NewStatusRenderer(out, noColor || !ui.IsTerminal(out))
	if jsonOutput {
		return renderer.RenderJSON(info)
	}
	return renderer.Render(info)
}

// embedderLabel names the configured embedder for display.
func embedderLabel(cfg *config.Config) string {
	provider := cfg.Embeddings.Provider
	if provider == "" {
		if os.Getenv("OPENAI_API_KEY") != "" {
			provider = "openai"
		} else {
			provider = "static"
		}
	}
	if provider == "openai" {
		return fmt.Sprintf("openai (%s)", cfg.Embeddings.Model)
	}
	return provider
}
