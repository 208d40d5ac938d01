package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Muistio/Henry-agent/internal/domain"
)

var (
	searchLimit int
	searchJSON  bool
	searchFiles []string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Ranks the indexed chunks against a query.

Chunks are scored by cosine similarity of their embeddings. When no
embedding is available the query words are counted in each chunk instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringSliceVarP(&searchFiles, "file", "f", nil, "extra documents to index before searching")
	rootCmd.AddCommand(searchCmd)
}

type searchHit struct {
	Rank     int               `json:"rank"`
	Source   string            `json:"source"`
	Document string            `json:"document_id"`
	Score    float64           `json:"score"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if len(searchFiles) > 0 {
		if _, err := a.agent.IngestFiles(ctx, searchFiles); err != nil {
			return fmt.Errorf("index files: %w", err)
		}
	}

	results, err := a.agent.Search(ctx, args[0], searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	outputSearchTable(cmd, results)
	return nil
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	hits := make([]searchHit, len(results))
	for i, r := range results {
		hits[i] = searchHit{
			Rank:     i + 1,
			Source:   r.Chunk.Source(),
			Document: r.Chunk.DocumentID,
			Score:    r.Score,
			Text:     r.Chunk.Text,
			Metadata: r.Chunk.Metadata,
		}
	}
	data, err := json.MarshalIndent(hits, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}
	cmd.Println("Results:")
	cmd.Println()
	for i, r := range results {
		cmd.Printf("  [%d] [Source: %s] (%.3f)\n", i+1, r.Chunk.Source(), r.Score)
		cmd.Printf("      %s\n", snippet(r.Chunk.Text, 160))
		cmd.Println()
	}
}

func snippet(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}
