package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/policycite/internal/connectors/filesystem"
	"github.com/custodia-labs/policycite/internal/core/domain"
	"github.com/custodia-labs/policycite/internal/logger"
)

var (
	watchDir       string
	watchSkipFirst bool
	watchDebounce  time.Duration
	watchInterval  time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the corpus in sync with a directory",
	Long: `Imports the source directory, then watches it. Created or modified files
are imported again and deleted or renamed files are removed from the corpus.
Stops on interrupt.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchDir, "dir", "d", "", "directory to watch (default paths.source_dir)")
	watchCmd.Flags().BoolVar(&watchSkipFirst, "no-initial", false, "skip the initial import")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", filesystem.DefaultDebounce, "quiet period before a batch is applied")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", filesystem.DefaultInterval, "minimum time between batches")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if importService == nil {
		return errors.New("import service not configured")
	}

	root, err := sourceDir(watchDir)
	if err != nil {
		return err
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("invalid directory: %w", err)
	}

	ctx := cmd.Context()
	if !watchSkipFirst {
		paths, err := filesystem.List(root)
		if err != nil {
			return err
		}
		if err := applyBatch(ctx, cmd, filesystem.Batch{Upserted: paths}); err != nil {
			return err
		}
	}

	watcher := filesystem.NewWatcher(root,
		filesystem.WithDebounce(watchDebounce),
		filesystem.WithInterval(watchInterval),
	)
	defer watcher.Close()

	batches, err := watcher.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", root)
	for batch := range batches {
		if err := applyBatch(ctx, cmd, batch); err != nil {
			return err
		}
	}
	return nil
}

// applyBatch imports upserted files and removes deleted ones. A busy writer
// skips the batch; a store failure stops the watch.
func applyBatch(ctx context.Context, cmd *cobra.Command, batch filesystem.Batch) error {
	if batch.Empty() {
		return nil
	}

	if len(batch.Upserted) > 0 {
		report, err := importService.Import(ctx, batch.Upserted)
		switch {
		case errors.Is(err, domain.ErrImportInProgress):
			logger.Warn("Skipped %d changed files: %v", len(batch.Upserted), err)
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil:
			return fmt.Errorf("import failed: %w", err)
		default:
			if report.Imported > 0 || len(report.Errors) > 0 {
				outputReport(cmd, report)
			}
		}
	}

	for _, path := range batch.Removed {
		removed, err := importService.RemovePath(ctx, path)
		switch {
		case errors.Is(err, domain.ErrImportInProgress):
			logger.Warn("Skipped removal of %s: %v", path, err)
		case err != nil:
			return fmt.Errorf("remove failed: %w", err)
		case removed:
			cmd.Printf("  removed   %s\n", path)
		}
	}
	return nil
}
