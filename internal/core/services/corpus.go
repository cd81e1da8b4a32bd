package services

import (
	"context"

	"github.com/custodia-labs/policycite/internal/core/domain"
	"github.com/custodia-labs/policycite/internal/core/ports/driven"
	"github.com/custodia-labs/policycite/internal/core/ports/driving"
)

// Ensure CorpusService implements the interface.
var _ driving.CorpusService = (*CorpusService)(nil)

// CorpusService reports on documents, passages and the index.
type CorpusService struct {
	indexes *IndexService
	corpus  driven.CorpusStore
}

// NewCorpusService creates a new corpus service.
func NewCorpusService(indexes *IndexService, corpus driven.CorpusStore) *CorpusService {
	return &CorpusService{
		indexes: indexes,
		corpus:  corpus,
	}
}

// Status returns document, passage and index counts.
func (s *CorpusService) Status(ctx context.Context) (domain.CorpusStatus, error) {
	if err := s.indexes.Refresh(ctx); err != nil {
		return domain.CorpusStatus{}, err
	}

	s.indexes.gate.RLock()
	defer s.indexes.gate.RUnlock()

	status, err := s.corpus.Status(ctx)
	if err != nil {
		return domain.CorpusStatus{}, err
	}

	stats := s.indexes.index.Stats()
	status.IndexVersion = stats.Version
	status.Terms = stats.Terms
	status.Fingerprint = s.indexes.index.Fingerprint()
	return status, nil
}

// ListDocuments returns every document ordered by ID.
func (s *CorpusService) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	return s.corpus.ListDocuments(ctx)
}

// GetDocument returns a document by ID.
func (s *CorpusService) GetDocument(ctx context.Context, id int64) (*domain.Document, error) {
	return s.corpus.GetDocument(ctx, id)
}

// ListPassages returns a document's passages in order.
func (s *CorpusService) ListPassages(ctx context.Context, documentID int64) ([]domain.Passage, error) {
	if _, err := s.corpus.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	return s.corpus.ListPassages(ctx, documentID)
}
