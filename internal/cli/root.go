// Package cli implements the henry command line.
package cli

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	cfgPath string
	apiKey  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "henry",
	Short: "Candidate assistant for the AI Advisor role",
	Long: `henry answers questions about the AI Advisor role and the candidate.

The job advertisement and the candidate's own documents are indexed in a
per-session retrieval store. Answers come from an OpenAI chat model; without
an API key a local demo answer is shown instead.`,
	SilenceUsage: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		// A missing .env file is fine.
		_ = godotenv.Load()
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("henry version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config (default ./config.yaml or ~/.config/henry/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "OpenAI API key (overrides the configured environment variable)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
