package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/policycite/internal/core/domain"
)

// nonBindingNotice is printed after every citation listing.
const nonBindingNotice = "Citations are suggestions for review. They are not compliance findings."

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputCitations(cmd *cobra.Command, citations []domain.Citation, showQuery bool) {
	if len(citations) == 0 {
		cmd.Println("No citations found.")
		return
	}

	cmd.Println("Citations:")
	cmd.Println()
	lastQuery := ""
	for i := range citations {
		c := &citations[i]
		if showQuery && c.Query != lastQuery {
			cmd.Printf("  Query: %s\n", c.Query)
			lastQuery = c.Query
		}

		cmd.Printf("  [%d] %s (%.2f)\n", i+1, c.DocumentName, c.Score)
		cmd.Printf("      %s\n", locate(c))
		if c.Snippet != "" {
			cmd.Printf("      %s\n", c.Snippet)
		}
		cmd.Println()
	}
	cmd.Println(nonBindingNotice)
}

// locate formats where a citation sits in its document.
func locate(c *domain.Citation) string {
	where := c.Path
	if c.Position.Page > 0 {
		where += fmt.Sprintf(", page %d", c.Position.Page)
	}
	if c.Position.Section != "" {
		where += ", " + c.Position.Section
	}
	return where
}

func outputReport(cmd *cobra.Command, report *domain.ImportReport) {
	cmd.Printf("Imported: %d  Skipped: %d  Failed: %d\n",
		report.Imported, report.Skipped, len(report.Errors))
	for _, doc := range report.Documents {
		if doc.Outcome == domain.OutcomeFailed {
			continue
		}
		cmd.Printf("  %-9s %s", doc.Outcome, doc.Path)
		if doc.Passages > 0 {
			cmd.Printf(" (%d passages)", doc.Passages)
		}
		cmd.Println()
	}
	for _, e := range report.Errors {
		cmd.Printf("  failed    %s: %s\n", e.Path, e.Reason)
	}
	if report.Cancelled {
		cmd.Println("Import cancelled; committed documents were kept.")
	}
}
