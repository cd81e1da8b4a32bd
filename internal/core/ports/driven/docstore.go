package driven

import (
	"context"

	"github.com/custodia-labs/policycite/internal/core/domain"
)

// CorpusStore persists documents and their passages.
// It is the system of record; the index is derived from it.
// Failures are reported as *domain.StoreIOError.
type CorpusStore interface {
	// UpsertDocument stores a document with its passages in one transaction,
	// keyed by path. A new path is inserted and doc.ID is assigned. A known
	// path whose hash changed, or that is stale, has its metadata and all of
	// its passages replaced under the same ID. A known path with the same
	// hash is left untouched. It reports whether anything was written.
	UpsertDocument(ctx context.Context, doc *domain.Document, passages []domain.Passage) (bool, error)

	// MarkStale flags a document whose source bytes changed.
	MarkStale(ctx context.Context, id int64) error

	// RemoveDocument deletes a document and cascades to its passages and
	// postings. Returns domain.ErrNotFound if it does not exist.
	RemoveDocument(ctx context.Context, id int64) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id int64) (*domain.Document, error)

	// FindByPath returns the document last seen at path.
	FindByPath(ctx context.Context, path string) (*domain.Document, error)

	// FindByHash returns the document with the given content hash.
	FindByHash(ctx context.Context, hash string) (*domain.Document, error)

	// ListDocuments returns all documents ordered by ID.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// ListPassages returns a document's passages ordered by ordinal.
	ListPassages(ctx context.Context, documentID int64) ([]domain.Passage, error)

	// ListPassageStats returns the index projection of every passage.
	ListPassageStats(ctx context.Context) ([]domain.PassageStats, error)

	// GetPassages retrieves passages by ID. Missing IDs are omitted.
	GetPassages(ctx context.Context, ids []string) (map[string]domain.Passage, error)

	// Status returns document and passage counts.
	Status(ctx context.Context) (domain.CorpusStatus, error)

	// Ping verifies the store is usable.
	Ping(ctx context.Context) error

	// Close releases the store.
	Close() error
}
