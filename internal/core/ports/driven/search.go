package driven

import (
	"context"

	"github.com/custodia-labs/policycite/internal/core/domain"
)

// IndexStore persists the postings derived from passages so the index can
// be loaded without re-analyzing every passage.
type IndexStore interface {
	// LoadPostings returns every persisted posting.
	LoadPostings(ctx context.Context) ([]domain.Posting, error)

	// PutPostings replaces the postings of one document's passages.
	PutPostings(ctx context.Context, documentID int64, postings []domain.Posting) error

	// ReplaceAllPostings rewrites passage token counts from stats, discards
	// every posting and writes the given set.
	ReplaceAllPostings(ctx context.Context, stats []domain.PassageStats, postings []domain.Posting) error

	// Meta returns an index metadata value.
	Meta(ctx context.Context, key string) (string, bool, error)

	// SetMeta stores an index metadata value.
	SetMeta(ctx context.Context, key, value string) error

	// Generation returns a counter that grows with every committed write to
	// documents, passages or postings, including writes by other processes.
	Generation(ctx context.Context) (int64, error)

	// CheckConsistency compares persisted postings with passage token counts
	// and returns *domain.IndexInconsistency when they disagree.
	CheckConsistency(ctx context.Context) error
}

// WriterLock excludes concurrent corpus writers across processes.
type WriterLock interface {
	// TryLock acquires the lock without blocking. It reports false when
	// another writer holds it.
	TryLock() (bool, error)

	// Unlock releases the lock.
	Unlock() error
}
