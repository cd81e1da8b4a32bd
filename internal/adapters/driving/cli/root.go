// Package cli provides the cobra command tree for policycite.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/policycite/internal/core/ports/driving"
	"github.com/custodia-labs/policycite/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services injected by main.
var (
	importService   driving.ImportService
	searchService   driving.SearchService
	corpusService   driving.CorpusService
	indexService    driving.IndexService
	settingsService driving.SettingsService
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "policycite",
	Short: "Cite policy passages for summary sentences",
	Long: `policycite imports policy documents (PDF, DOCX, plain text), splits them
into passages and indexes them locally. Each query sentence returns the most
similar passages as non-binding citations for human review.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs to stderr")
}

// Services bundles the driving ports the commands use.
type Services struct {
	Import   driving.ImportService
	Search   driving.SearchService
	Corpus   driving.CorpusService
	Index    driving.IndexService
	Settings driving.SettingsService
}

// SetServices injects the services used by the commands.
func SetServices(s Services) {
	importService = s.Import
	searchService = s.Search
	corpusService = s.Corpus
	indexService = s.Index
	settingsService = s.Settings
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}
