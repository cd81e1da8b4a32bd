package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policycite/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/policycite/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/policycite/internal/analysis"
	"github.com/custodia-labs/policycite/internal/chunker"
	"github.com/custodia-labs/policycite/internal/core/domain"
	"github.com/custodia-labs/policycite/internal/core/ports/driven"
	"github.com/custodia-labs/policycite/internal/normalisers"
	"github.com/custodia-labs/policycite/internal/normalisers/docx"
	"github.com/custodia-labs/policycite/internal/normalisers/pdf"
	"github.com/custodia-labs/policycite/internal/normalisers/plaintext"
)

// brokenPDFTool fails like pdftotext does on a damaged file.
type brokenPDFTool struct{}

func (brokenPDFTool) Run(_ context.Context, _ string, _ ...string) ([]byte, error) {
	return nil, errors.New("Syntax Error: Couldn't find trailer dictionary")
}

type testEngine struct {
	// store is nil for engines over SQLite.
	store    *memory.Store
	docs     driven.CorpusStore
	indexes  *IndexService
	importer *ImportService
	search   *SearchService
	corpus   *CorpusService
	registry *normalisers.Registry
	dir      string
}

type engineConfig struct {
	chunking  []chunker.Option
	retrieval domain.RetrievalSettings
	workers   int
}

type engineOption func(*engineConfig)

func withChunking(opts ...chunker.Option) engineOption {
	return func(c *engineConfig) { c.chunking = opts }
}

func withWorkers(n int) engineOption {
	return func(c *engineConfig) { c.workers = n }
}

func withCacheSize(n int) engineOption {
	return func(c *engineConfig) { c.retrieval.CacheSize = n }
}

func newTestEngine(t *testing.T, opts ...engineOption) *testEngine {
	t.Helper()
	return newTestEngineOn(t, memory.NewStore(), opts...)
}

func newTestEngineOn(t *testing.T, store *memory.Store, opts ...engineOption) *testEngine {
	t.Helper()
	e := newEngine(t, store, store, opts...)
	e.store = store
	return e
}

// newSQLiteEngine wires the services over a SQLite store in dataDir, the
// way the command does.
func newSQLiteEngine(t *testing.T, dataDir string, opts ...engineOption) *testEngine {
	t.Helper()
	store, err := sqlite.NewStore(dataDir)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return newEngine(t, store.CorpusStore(), store.IndexStore(), opts...)
}

func newEngine(t *testing.T, corpus driven.CorpusStore, store driven.IndexStore, opts ...engineOption) *testEngine {
	t.Helper()

	cfg := engineConfig{retrieval: domain.DefaultAppSettings().Retrieval}
	for _, opt := range opts {
		opt(&cfg)
	}

	indexes := NewIndexService(corpus, store, analysis.New())
	require.NoError(t, indexes.Open(context.Background()))

	registry := normalisers.NewRegistry()
	registry.Register(pdf.NewWithRunner(brokenPDFTool{}))
	registry.Register(docx.New())
	registry.Register(plaintext.New())

	chunk := chunker.New(indexes.Analyzer(), cfg.chunking...)
	return &testEngine{
		docs:     corpus,
		indexes:  indexes,
		importer: NewImportService(indexes, corpus, registry, chunk, cfg.workers),
		search:   NewSearchService(indexes, corpus, cfg.retrieval),
		corpus:   NewCorpusService(indexes, corpus),
		registry: registry,
		dir:      t.TempDir(),
	}
}

// write creates a file in the engine's directory and returns its path.
func (e *testEngine) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (e *testEngine) importPaths(t *testing.T, paths ...string) *domain.ImportReport {
	t.Helper()
	report, err := e.importer.Import(context.Background(), paths)
	require.NoError(t, err)
	return report
}

func (e *testEngine) docByPath(t *testing.T, path string) *domain.Document {
	t.Helper()
	doc, err := e.docs.FindByPath(context.Background(), path)
	require.NoError(t, err)
	return doc
}

func (e *testEngine) status(t *testing.T) domain.CorpusStatus {
	t.Helper()
	status, err := e.corpus.Status(context.Background())
	require.NoError(t, err)
	return status
}

func (e *testEngine) query(t *testing.T, sentence string, k int) []domain.Citation {
	t.Helper()
	citations, err := e.search.Query(context.Background(), sentence, k)
	require.NoError(t, err)
	return citations
}

func documentIDs(citations []domain.Citation) []int64 {
	ids := make([]int64, len(citations))
	for i, c := range citations {
		ids[i] = c.DocumentID
	}
	return ids
}
