package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/policycite/internal/core/domain"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Check or rebuild the search index",
	Long: `The index is derived from the stored passages. It is verified when the
corpus is opened and rebuilt automatically when it disagrees with them.`,
}

var indexCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the index against the stored passages",
	Args:  cobra.NoArgs,
	RunE:  runIndexCheck,
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the index from the stored passages",
	Args:  cobra.NoArgs,
	RunE:  runIndexRebuild,
}

func init() {
	indexCmd.AddCommand(indexCheckCmd)
	indexCmd.AddCommand(indexRebuildCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexCheck(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	err := indexService.Check(cmd.Context())
	var inconsistent *domain.IndexInconsistency
	if errors.As(err, &inconsistent) {
		cmd.Printf("Index is inconsistent: %s\n", inconsistent.Reason)
		if inconsistent.Mismatched > 0 {
			cmd.Printf("  %d passages disagree with the stored postings\n", inconsistent.Mismatched)
		}
		cmd.Println("Run \"policycite index rebuild\" to repair it.")
		return err
	}
	if err != nil {
		return fmt.Errorf("index check failed: %w", err)
	}

	cmd.Println("Index is consistent.")
	return nil
}

func runIndexRebuild(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	if err := indexService.Rebuild(cmd.Context()); err != nil {
		return fmt.Errorf("index rebuild failed: %w", err)
	}

	cmd.Println("Index rebuilt.")
	return nil
}
