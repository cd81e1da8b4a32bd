package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	lookupLimit int
	lookupJSON  bool
)

var lookupCmd = &cobra.Command{
	Use:   "lookup [file|-]",
	Short: "Cite policy passages for each bullet of a summary",
	Long: `Reads a summary from a file, or from stdin when the argument is "-".
Every line starting with "- " is queried on its own and the citations are
merged by passage. A summary without bullets is queried as one sentence.`,
	Args: cobra.ExactArgs(1),
	RunE: runLookup,
}

func init() {
	lookupCmd.Flags().IntVarP(&lookupLimit, "limit", "n", 0, "citations per bullet (0 = retrieval.top_k)")
	lookupCmd.Flags().BoolVar(&lookupJSON, "json", false, "output citations as JSON")
	rootCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	text, err := readSummary(cmd, args[0])
	if err != nil {
		return err
	}

	citations, err := searchService.Lookup(cmd.Context(), text, lookupLimit)
	if err != nil {
		return fmt.Errorf("lookup failed: %w", err)
	}

	if lookupJSON {
		return outputJSON(cmd, citations)
	}
	outputCitations(cmd, citations, true)
	return nil
}

func readSummary(cmd *cobra.Command, arg string) (string, error) {
	var (
		data []byte
		err  error
	)
	if arg == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(arg)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read summary: %w", err)
	}
	return string(data), nil
}
