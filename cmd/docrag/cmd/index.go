package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/docrag/docrag/internal/index"
	"github.com/docrag/docrag/internal/rag"
	"github.com/docrag/docrag/internal/ui"
)

func newIndexCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Scan the documents directory and update the index",
		Long: `Scan the configured documents directory, detect added, modified,
and removed files, and update the snapshot incrementally. Unchanged files
are never re-extracted or re-embedded.

With --force the previous snapshot is ignored and everything is rebuilt.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Rebuild everything, ignoring the previous snapshot")

	return cmd
}

func runIndex(cmd *cobra.Command, force bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	system, err := rag.New(cfg)
	if err != nil {
		return err
	}
	defer system.Close()

	out := cmd.OutOrStdout()
	styles := ui.GetStyles(noColor || !ui.IsTerminal(out))

	ctx := cmd.Context()
	if err := system.Initialize(ctx); err != nil {
		// A snapshot that cannot be loaded (schema mismatch, corruption) is
		// exactly what a forced rebuild recovers from; without --force it
		// stays fatal.
		if !force {
			return err
		}
		fmt.Fprintln(out, styles.Warning.Render(
			fmt.Sprintf("Ignoring unusable snapshot: %v", err)))
	}

	fmt.Fprintf(out, "Indexing %s ...\n", cfg.Paths.DocumentsDir)

	report, err := system.RefreshIndex(ctx, force)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	printReport(cmd, styles, report)
	return nil
}

func printReport(cmd *cobra.Command, styles ui.Styles, report *index.BuildReport) {
	out := cmd.OutOrStdout()

	if report.Added == 0 && report.Modified == 0 && report.Removed == 0 && len(report.Skipped) == 0 {
		fmt.Fprintln(out, styles.Success.Render(
			fmt.Sprintf("Corpus unchanged (%d files up to date)", report.Unchanged)))
		return
	}

	fmt.Fprintln(out, styles.Success.Render(fmt.Sprintf(
		"Indexed: %d added, %d modified, %d removed, %d unchanged",
		report.Added, report.Modified, report.Removed, report.Unchanged)))
	fmt.Fprintf(out, "  Chunks embedded: %d, reused: %d\n", report.ChunksEmbedded, report.ChunksReused)
	if report.Duration > 0 {
		fmt.Fprintf(out, "  Took %s\n", report.Duration.Round(10*time.Millisecond))
	}

	for _, skipped := range report.Skipped {
		fmt.Fprintln(out, styles.Warning.Render(
			fmt.Sprintf("  Skipped %s: %s", skipped.Path, skipped.Err)))
	}
}
