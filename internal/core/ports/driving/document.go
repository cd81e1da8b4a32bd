package driving

import (
	"context"

	"github.com/custodia-labs/policycite/internal/core/domain"
)

// ImportService adds and removes policy documents.
type ImportService interface {
	// Import extracts, chunks and indexes the files at paths. Files whose
	// content is already indexed are skipped. Returns domain.ErrImportInProgress
	// when another writer holds the corpus.
	Import(ctx context.Context, paths []string) (*domain.ImportReport, error)

	// Remove deletes a document with its passages and postings.
	// It reports whether the document existed.
	Remove(ctx context.Context, documentID int64) (bool, error)

	// RemovePath deletes the document last imported from path.
	// It reports whether such a document existed.
	RemovePath(ctx context.Context, path string) (bool, error)
}

// ProgressFunc is called after each path of an import batch is settled.
type ProgressFunc func(done, total int, path string)

// ProgressReporter is implemented by import services that report progress
// per path.
type ProgressReporter interface {
	SetProgressFunc(fn ProgressFunc)
}

// CorpusService reports on the corpus.
type CorpusService interface {
	// Status returns document, passage and index counts.
	Status(ctx context.Context) (domain.CorpusStatus, error)

	// ListDocuments returns every document ordered by ID.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// GetDocument returns a document by ID.
	GetDocument(ctx context.Context, id int64) (*domain.Document, error)

	// ListPassages returns a document's passages in order.
	ListPassages(ctx context.Context, documentID int64) ([]domain.Passage, error)
}

// IndexService maintains the derived index.
type IndexService interface {
	// Check verifies persisted postings against the passages.
	// It returns *domain.IndexInconsistency when they disagree.
	Check(ctx context.Context) error

	// Rebuild discards the index and rebuilds it from the stored passages.
	Rebuild(ctx context.Context) error
}
