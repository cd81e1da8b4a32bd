package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/policycite/internal/normalisers/pdf"
)

var statusJSON bool

// checkPDFTool reports whether the external PDF text tool is installed.
var checkPDFTool = pdf.CheckAvailable

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show corpus and index status",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if corpusService == nil {
		return errors.New("corpus service not configured")
	}

	status, err := corpusService.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	if statusJSON {
		return outputJSON(cmd, status)
	}

	if status.IsEmpty() {
		cmd.Println("Corpus is empty. Run \"policycite import\" to add documents.")
		printPDFTool(cmd)
		return nil
	}

	cmd.Printf("Documents:     %d\n", status.DocumentCount)
	cmd.Printf("Passages:      %d\n", status.PassageCount)
	if status.StaleCount > 0 {
		cmd.Printf("Stale:         %d\n", status.StaleCount)
	}
	cmd.Printf("Terms:         %d\n", status.Terms)
	cmd.Printf("Index version: %d\n", status.IndexVersion)
	if !status.LastImportTime.IsZero() {
		cmd.Printf("Last import:   %s\n", status.LastImportTime.Local().Format("2006-01-02 15:04:05"))
	}
	if status.Fingerprint != "" {
		cmd.Printf("Fingerprint:   %s\n", status.Fingerprint)
	}
	printPDFTool(cmd)
	return nil
}

func printPDFTool(cmd *cobra.Command) {
	if err := checkPDFTool(); err != nil {
		cmd.Printf("PDF text:      in-process reader (%s not found)\n", pdf.ToolName)
		cmd.Printf("               %s\n", pdf.InstallInstructions())
	}
}
