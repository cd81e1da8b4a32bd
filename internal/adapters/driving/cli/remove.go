package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/policycite/internal/connectors/filesystem"
	"github.com/custodia-labs/policycite/internal/core/domain"
)

var removeCmd = &cobra.Command{
	Use:   "remove [document-id|path]",
	Short: "Remove a document from the corpus",
	Long: `Deletes a document together with its passages and index entries.
The argument is a document ID as shown by "document list", or the path the
document was imported from.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	if importService == nil {
		return errors.New("import service not configured")
	}

	var (
		removed bool
		err     error
	)
	if id, parseErr := strconv.ParseInt(args[0], 10, 64); parseErr == nil {
		removed, err = importService.Remove(cmd.Context(), id)
	} else {
		path, absErr := filepath.Abs(filesystem.ResolvePath(args[0]))
		if absErr != nil {
			return fmt.Errorf("invalid path %s: %w", args[0], absErr)
		}
		removed, err = importService.RemovePath(cmd.Context(), path)
	}
	if err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}
	if !removed {
		return fmt.Errorf("document %s: %w", args[0], domain.ErrNotFound)
	}

	cmd.Printf("Removed document %s\n", args[0])
	return nil
}
