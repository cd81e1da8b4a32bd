package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/policycite/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change settings stored in config.toml.

Keys:
  paths.source_dir         directory imported and watched by default
  paths.data_dir           directory holding the corpus database
  retrieval.top_k          citations per query
  retrieval.snippet_length snippet window in characters
  retrieval.cache_size     cached query results (0 disables the cache)
  chunking.max_tokens      maximum units per passage
  chunking.overlap_tokens  units shared by consecutive passages
  import.workers           files extracted concurrently

Chunking changes apply to documents imported afterwards.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change a setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runSettingsSet,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Paths]")
	cmd.Printf("  Source dir: %s\n", orNotSet(settings.Paths.SourceDir))
	cmd.Printf("  Data dir:   %s\n", orNotSet(settings.Paths.DataDir))
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Top K:          %d\n", settings.Retrieval.TopK)
	cmd.Printf("  Snippet length: %d\n", settings.Retrieval.SnippetLength)
	cmd.Printf("  Cache size:     %s\n", cacheSize(settings.Retrieval.CacheSize))
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Max tokens:     %d\n", settings.Chunking.MaxTokens)
	cmd.Printf("  Overlap tokens: %d\n", settings.Chunking.OverlapTokens)
	cmd.Println()

	cmd.Println("[Import]")
	cmd.Printf("  Workers: %d\n", settings.Import.Workers)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if err := settingsService.Set(args[0], args[1]); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return fmt.Errorf("%w (valid keys: %v)", err, settingsService.Keys())
		}
		return fmt.Errorf("failed to save setting: %w", err)
	}

	cmd.Printf("Set %s = %s\n", args[0], args[1])
	return nil
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func cacheSize(n int) string {
	if n == 0 {
		return "disabled"
	}
	return strconv.Itoa(n)
}
