package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askFiles []string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringSliceVarP(&askFiles, "file", "f", nil, "extra documents to index before asking")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if len(askFiles) > 0 {
		if _, err := a.agent.IngestFiles(ctx, askFiles); err != nil {
			return fmt.Errorf("index files: %w", err)
		}
	}

	reply, err := a.agent.Ask(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	cmd.Println(reply.Text)
	if len(reply.Sources) > 0 {
		cmd.Println()
		cmd.Printf("Sources: %s\n", strings.Join(reply.Sources, ", "))
	}
	if a.agent.EmbeddingsUnavailable() {
		cmd.PrintErrln("note: embeddings unavailable, context was found by keyword search")
	}
	return nil
}
