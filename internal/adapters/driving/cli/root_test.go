package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policycite/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/policycite/internal/chunker"
	"github.com/custodia-labs/policycite/internal/core/domain"
	"github.com/custodia-labs/policycite/internal/core/services"
	"github.com/custodia-labs/policycite/internal/normalisers"
	"github.com/custodia-labs/policycite/internal/normalisers/plaintext"
)

const (
	travelText = "Chapter 1 Travel\nEmployees book economy class for flights under six hours.\n" +
		"Hotel costs are reimbursed up to the city limit."
	budgetText = "Chapter 1 Budget\nDepartments submit the annual budget request before October."
)

type testEnv struct {
	store    *memory.Store
	config   *memory.ConfigStore
	importer *services.ImportService
	indexes  *services.IndexService
	dir      string
}

// setupTestServices wires real services over an in-memory store and
// restores the previous services when the test ends.
func setupTestServices(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	config := memory.NewConfigStore()

	indexes := services.NewIndexService(store, store, nil)
	require.NoError(t, indexes.Open(context.Background()))

	registry := normalisers.NewRegistry()
	registry.Register(plaintext.New())

	importer := services.NewImportService(indexes, store, registry, chunker.New(indexes.Analyzer()), 2)

	prev := Services{
		Import:   importService,
		Search:   searchService,
		Corpus:   corpusService,
		Index:    indexService,
		Settings: settingsService,
	}
	SetServices(Services{
		Import:   importer,
		Search:   services.NewSearchService(indexes, store, domain.DefaultAppSettings().Retrieval),
		Corpus:   services.NewCorpusService(indexes, store),
		Index:    indexes,
		Settings: services.NewSettingsService(config),
	})
	t.Cleanup(func() { SetServices(prev) })

	return &testEnv{
		store:    store,
		config:   config,
		importer: importer,
		indexes:  indexes,
		dir:      t.TempDir(),
	}
}

// clearServices unsets every service until the test ends.
func clearServices(t *testing.T) {
	t.Helper()
	prev := Services{
		Import:   importService,
		Search:   searchService,
		Corpus:   corpusService,
		Index:    indexService,
		Settings: settingsService,
	}
	SetServices(Services{})
	t.Cleanup(func() { SetServices(prev) })
}

func (e *testEnv) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// execute runs the root command and returns its output. Flags are reset
// afterwards because cobra keeps parsed values between executions.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, "", args...)
}

func executeWithInput(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags(rootCmd)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func TestRootCmd_HasCommands(t *testing.T) {
	names := make([]string, 0, len(rootCmd.Commands()))
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}

	for _, want := range []string{
		"import", "query", "lookup", "remove", "status",
		"document", "index", "watch", "settings", "mcp", "version",
	} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_VerboseFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, flag)
	assert.Equal(t, "v", flag.Shorthand)
	assert.Equal(t, "false", flag.DefValue)
}

func TestSetVersion(t *testing.T) {
	original := version
	defer func() { version = original }()

	SetVersion("")
	assert.Equal(t, original, version)

	SetVersion("1.2.3")
	assert.Equal(t, "1.2.3", version)
}
