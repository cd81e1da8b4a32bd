package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/policycite/internal/connectors/filesystem"
	"github.com/custodia-labs/policycite/internal/core/domain"
	"github.com/custodia-labs/policycite/internal/core/ports/driving"
)

var (
	importDir  string
	importJSON bool
)

var importCmd = &cobra.Command{
	Use:   "import [paths...]",
	Short: "Import policy documents",
	Long: `Extracts, chunks and indexes policy files. Directories are expanded to the
supported files they contain (.pdf, .docx, .txt, .md). With no arguments the
configured paths.source_dir is imported.

Files whose content is already indexed are skipped. A file whose content
changed replaces its previous passages.`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importDir, "dir", "d", "", "directory to import (default paths.source_dir)")
	importCmd.Flags().BoolVar(&importJSON, "json", false, "output the import report as JSON")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	if importService == nil {
		return errors.New("import service not configured")
	}

	paths, err := collectPaths(args, importDir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		cmd.Println("No supported files found.")
		return nil
	}

	if reporter, ok := importService.(driving.ProgressReporter); ok && isTerminal(os.Stderr) && !importJSON {
		reporter.SetProgressFunc(progressPrinter(cmd.ErrOrStderr()))
		defer reporter.SetProgressFunc(nil)
	}

	report, err := importService.Import(cmd.Context(), paths)
	if report != nil {
		if importJSON {
			if jsonErr := outputJSON(cmd, report); jsonErr != nil {
				return jsonErr
			}
		} else {
			outputReport(cmd, report)
		}
	}
	if errors.Is(err, domain.ErrImportInProgress) {
		return fmt.Errorf("another import is running: %w", err)
	}
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	return nil
}

// collectPaths resolves arguments to absolute file paths, expanding
// directories. With no arguments, dir or the configured source directory
// is listed.
func collectPaths(args []string, dir string) ([]string, error) {
	if len(args) == 0 {
		root, err := sourceDir(dir)
		if err != nil {
			return nil, err
		}
		return filesystem.List(root)
	}

	return filesystem.Expand(args)
}

// sourceDir returns dir, falling back to paths.source_dir.
func sourceDir(dir string) (string, error) {
	if dir != "" {
		return filesystem.ResolvePath(dir), nil
	}
	if settingsService != nil {
		settings, err := settingsService.Get()
		if err != nil {
			return "", fmt.Errorf("failed to get settings: %w", err)
		}
		if settings.Paths.SourceDir != "" {
			return settings.Paths.SourceDir, nil
		}
	}
	return "", errors.New("no paths given and paths.source_dir is not set")
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func progressPrinter(w io.Writer) driving.ProgressFunc {
	return func(done, total int, path string) {
		fmt.Fprintf(w, "\r\033[K[%d/%d] %s", done, total, filepath.Base(path))
		if done == total {
			fmt.Fprintln(w)
		}
	}
}
