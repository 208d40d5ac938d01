package cli

import (
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Muistio/Henry-agent/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat [files...]",
	Short: "Start the interactive chat",
	Long: `Start the interactive chat window.

Files given as arguments (.txt, .md, .pdf) are indexed before the chat opens.

Controls:
  Enter        - Send the question
  /add <path>  - Index another file
  /clear       - Clear the conversation (indexed files are kept)
  Ctrl+C       - Quit`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	// The TUI owns the terminal; logs only go to a configured file.
	a, err := newApp(io.Discard)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if err := a.agent.Bootstrap(ctx); err != nil {
		return err
	}
	if len(args) > 0 {
		n, err := a.agent.IngestFiles(ctx, args)
		if err != nil {
			a.logger.Warn("some files were not indexed", slog.Int("indexed", n), slog.Any("error", err))
		}
	}

	m := tui.New(ctx, a.agent, a.agent.Summary())
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
