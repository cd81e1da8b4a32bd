package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Inspect imported documents",
	Long:  `List imported documents or show a document with its passages.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List imported documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentShowCmd = &cobra.Command{
	Use:   "show [document-id]",
	Short: "Show document info and passages",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentShow,
}

var (
	documentJSON     bool
	documentPassages bool
)

func init() {
	documentCmd.PersistentFlags().BoolVar(&documentJSON, "json", false, "output as JSON")
	documentShowCmd.Flags().BoolVarP(&documentPassages, "passages", "p", false, "print passage text")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentShowCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if corpusService == nil {
		return errors.New("corpus service not configured")
	}

	docs, err := corpusService.ListDocuments(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if documentJSON {
		return outputJSON(cmd, docs)
	}

	if len(docs) == 0 {
		cmd.Println("No documents imported.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	for i := range docs {
		cmd.Printf("  %d  %s\n", docs[i].ID, docs[i].Name())
		cmd.Printf("     Path:   %s\n", docs[i].Path)
		cmd.Printf("     Format: %s  Status: %s\n", docs[i].Format, docs[i].Status)
	}
	cmd.Println()
	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentShow(cmd *cobra.Command, args []string) error {
	if corpusService == nil {
		return errors.New("corpus service not configured")
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid document id %q", args[0])
	}

	ctx := cmd.Context()
	doc, err := corpusService.GetDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	passages, err := corpusService.ListPassages(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list passages: %w", err)
	}

	if documentJSON {
		return outputJSON(cmd, map[string]any{
			"document": doc,
			"passages": passages,
		})
	}

	cmd.Printf("Document: %d\n\n", doc.ID)
	cmd.Printf("  Title:    %s\n", doc.Name())
	cmd.Printf("  Path:     %s\n", doc.Path)
	cmd.Printf("  Format:   %s\n", doc.Format)
	cmd.Printf("  Status:   %s\n", doc.Status)
	cmd.Printf("  Hash:     %s\n", doc.Hash)
	cmd.Printf("  Imported: %s\n", doc.ImportedAt.Local().Format("2006-01-02 15:04:05"))
	cmd.Printf("  Passages: %d\n", len(passages))

	if !documentPassages {
		return nil
	}
	cmd.Println()
	for i := range passages {
		p := &passages[i]
		cmd.Printf("  [%d] page %d", p.Ordinal, p.Position.Page)
		if p.Position.Section != "" {
			cmd.Printf(", %s", p.Position.Section)
		}
		cmd.Printf(" (%d tokens)\n", p.TokenCount)
		cmd.Printf("      %s\n\n", p.Core())
	}
	return nil
}
