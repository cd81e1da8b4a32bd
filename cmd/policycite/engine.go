package main

import (
	"context"
	"fmt"

	"github.com/custodia-labs/policycite/internal/adapters/driven/lock"
	"github.com/custodia-labs/policycite/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/policycite/internal/adapters/driving/cli"
	"github.com/custodia-labs/policycite/internal/chunker"
	"github.com/custodia-labs/policycite/internal/core/domain"
	"github.com/custodia-labs/policycite/internal/core/ports/driving"
	"github.com/custodia-labs/policycite/internal/core/services"
	"github.com/custodia-labs/policycite/internal/normalisers"
)

// engine is the set of services wired over one data directory.
type engine struct {
	store    *sqlite.Store
	services cli.Services
}

// openEngine opens the corpus in dataDir and loads its index.
func openEngine(
	ctx context.Context, dataDir string, settings *domain.AppSettings, settingsService driving.SettingsService,
) (*engine, error) {
	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening corpus: %w", err)
	}
	corpus, idx := store.CorpusStore(), store.IndexStore()

	indexes := services.NewIndexService(corpus, idx, nil)
	indexes.SetWriterLock(lock.NewFileLock(dataDir))
	if err := indexes.Open(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("opening index: %w", err)
	}

	chunk := chunker.New(indexes.Analyzer(),
		chunker.WithMaxTokens(settings.Chunking.MaxTokens),
		chunker.WithOverlap(settings.Chunking.OverlapTokens),
	)

	return &engine{
		store: store,
		services: cli.Services{
			Import:   services.NewImportService(indexes, corpus, normalisers.NewDefaultRegistry(), chunk, settings.Import.Workers),
			Search:   services.NewSearchService(indexes, corpus, settings.Retrieval),
			Corpus:   services.NewCorpusService(indexes, corpus),
			Index:    indexes,
			Settings: settingsService,
		},
	}, nil
}

// Close releases the database.
func (e *engine) Close() error {
	return e.store.Close()
}
