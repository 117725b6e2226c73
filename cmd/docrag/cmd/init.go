package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/docrag/docrag/internal/config"
	"github.com/docrag/docrag/internal/ui"
)

func newInitCmd() *cobra.Command {
	var docsDir string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter docrag.yaml",
		Long: `Create a docrag.yaml in the config directory with the default
settings spelled out, ready to edit.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, docsDir, force)
		},
	}

	cmd.Flags().StringVar(&docsDir, "documents", "documents", "Documents directory to index")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing docrag.yaml")

	return cmd
}

func runInit(cmd *cobra.Command, docsDir string, force bool) error {
	path := filepath.Join(configDir, "docrag.yaml")
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := config.NewConfig()
	cfg.Paths.DocumentsDir = docsDir
	if err := cfg.WriteYAML(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	out := cmd.OutOrStdout()
	styles := ui.GetStyles(noColor || !ui.IsTerminal(out))
	fmt.Fprintln(out, styles.Success.Render("Wrote "+path))
	fmt.Fprintln(out, styles.Dim.Render("Edit it, drop documents into '"+docsDir+"', then run 'docrag index'."))
	return nil
}
