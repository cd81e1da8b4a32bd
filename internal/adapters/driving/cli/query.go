package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	queryLimit int
	queryJSON  bool
)

var queryCmd = &cobra.Command{
	Use:   "query [sentence]",
	Short: "Cite policy passages for a sentence",
	Long: `Ranks indexed passages by lexical similarity to the sentence and prints
the best matches with their document, page and section.
Results are non-binding suggestions for review.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "n", 0, "maximum number of citations (0 = retrieval.top_k)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output citations as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	citations, err := searchService.Query(cmd.Context(), args[0], queryLimit)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return outputJSON(cmd, citations)
	}
	outputCitations(cmd, citations, false)
	return nil
}
