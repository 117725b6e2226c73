package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docrag/docrag/internal/index"
	"github.com/docrag/docrag/internal/rag"
	"github.com/docrag/docrag/internal/ui"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Ask questions about the indexed documents",
		Long: `Start an interactive session. Each question is answered from the
indexed corpus; prior turns in the session are carried as context.

Commands inside the session:
  clear        drop the conversation history
  quit, exit   leave the session`,
		RunE: runChat,
	}
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	system, err := rag.New(cfg)
	if err != nil {
		return err
	}
	defer system.Close()

	if err := system.ConnectLLM(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := system.Initialize(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	styles := ui.GetStyles(noColor || !ui.IsTerminal(out))

	// First run: build the index before taking questions.
	if _, err := system.Stats(); errors.Is(err, index.ErrNotInitialized) {
		fmt.Fprintln(out, styles.Dim.Render("No index found, building one first..."))
		if _, err := system.RefreshIndex(ctx, false); err != nil {
			return fmt.Errorf("indexing failed: %w", err)
		}
	}

	stats, err := system.Stats()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, styles.Header.Render("docrag chat"))
	fmt.Fprintln(out, styles.Dim.Render(fmt.Sprintf(
		"%d files, %d chunks indexed. Type 'quit' to leave, 'clear' to reset history.",
		stats.Files, stats.Chunks)))
	fmt.Fprintln(out)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, styles.Prompt.Render("You: "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		query := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(query) {
		case "":
			continue
		case "quit", "exit":
			fmt.Fprintln(out, styles.Dim.Render("Bye."))
			return nil
		case "clear":
			system.History().Clear()
			fmt.Fprintln(out, styles.Dim.Render("History cleared."))
			continue
		}

		answer, err := system.Ask(ctx, query)
		if err != nil {
			fmt.Fprintln(out, styles.Error.Render("Error: "+err.Error()))
			continue
		}

		fmt.Fprintln(out, styles.Answer.Render(answer.WithSources()))
		fmt.Fprintln(out)
	}
}
