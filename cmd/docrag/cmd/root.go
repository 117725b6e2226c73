// Package cmd provides the CLI commands for docrag.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docrag/docrag/internal/config"
	ragerrors "github.com/docrag/docrag/internal/errors"
	"github.com/docrag/docrag/internal/logging"
	"github.com/docrag/docrag/pkg/version"
)

var (
	configDir      string
	debugMode      bool
	noColor        bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the docrag CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docrag",
		Short: "Question answering over a local document corpus",
		Long: `docrag indexes a directory of PDF, text, and markdown documents and
answers questions about them using hybrid retrieval (BM25 + embeddings)
with an LLM.

Point it at a documents directory, run 'docrag index', then 'docrag chat'.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("docrag version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&configDir, "config", "c", ".", "Directory containing docrag.yaml")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable styled output")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		if loggingCleanup != nil {
			loggingCleanup()
			loggingCleanup = nil
		}
	}

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// loadConfig reads the configuration for the selected directory.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// setupLogging installs the slog default from the config, with --debug
// forcing the debug level.
func setupLogging(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.FilePath = cfg.Logging.File
	if debugMode {
		logCfg.Level = "debug"
	}

	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	loggingCleanup = cleanup
	return nil
}

// Execute runs the root command, formatting failures for the terminal.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+ragerrors.FormatForUser(err, debugMode))
	}
	return err
}
