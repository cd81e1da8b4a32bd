package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/custodia-labs/policycite/internal/core/domain"
	"github.com/custodia-labs/policycite/internal/core/ports/driven"
)

// Ensure Store implements the interfaces.
var (
	_ driven.CorpusStore = (*Store)(nil)
	_ driven.IndexStore  = (*Store)(nil)
)

// Store is an in-memory corpus and index store with the same contract as the
// SQLite store. Removing a document cascades to its passages and postings.
type Store struct {
	mu        sync.RWMutex
	nextID    int64
	documents map[int64]domain.Document
	byPath    map[string]int64
	passages  map[int64][]domain.Passage
	postings  map[string][]domain.Posting // keyed by passage ID
	meta      map[string]string
	gen       int64
	closed    bool
	failure   error
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		nextID:    1,
		documents: make(map[int64]domain.Document),
		byPath:    make(map[string]int64),
		passages:  make(map[int64][]domain.Passage),
		postings:  make(map[string][]domain.Posting),
		meta:      make(map[string]string),
	}
}

// Fail makes every subsequent operation return a StoreIOError wrapping err.
// Passing nil restores normal operation.
func (s *Store) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = err
}

// check must be called with the lock held.
func (s *Store) check(op string) error {
	if s.closed {
		return domain.NewStoreIOError(op, domain.ErrStoreClosed)
	}
	if s.failure != nil {
		return domain.NewStoreIOError(op, s.failure)
	}
	return nil
}

// UpsertDocument stores a document and its passages atomically.
func (s *Store) UpsertDocument(_ context.Context, doc *domain.Document, passages []domain.Passage) (bool, error) {
	if doc == nil || doc.Path == "" || doc.Hash == "" {
		return false, domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("upsert document"); err != nil {
		return false, err
	}

	id, exists := s.byPath[doc.Path]
	if exists {
		current := s.documents[id]
		if current.Hash == doc.Hash && current.Status == domain.StatusIndexed {
			doc.ID = id
			return false, nil
		}
		s.dropPassages(id)
	} else {
		id = s.nextID
		s.nextID++
	}

	importedAt := doc.ImportedAt
	if importedAt.IsZero() {
		importedAt = time.Now()
	}

	doc.ID = id
	doc.Status = domain.StatusIndexed
	doc.ImportedAt = importedAt
	s.documents[id] = *doc
	s.byPath[doc.Path] = id

	stored := make([]domain.Passage, len(passages))
	for i := range passages {
		passages[i].DocumentID = id
		stored[i] = passages[i]
	}
	slices.SortFunc(stored, func(a, b domain.Passage) int { return a.Ordinal - b.Ordinal })
	s.passages[id] = stored
	s.gen++

	return true, nil
}

// MarkStale flags a document whose source bytes changed.
func (s *Store) MarkStale(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("mark stale"); err != nil {
		return err
	}

	doc, ok := s.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Status = domain.StatusStale
	s.documents[id] = doc
	s.gen++
	return nil
}

// RemoveDocument deletes a document with its passages and postings.
func (s *Store) RemoveDocument(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("remove document"); err != nil {
		return err
	}

	doc, ok := s.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.dropPassages(id)
	delete(s.passages, id)
	delete(s.byPath, doc.Path)
	delete(s.documents, id)
	s.gen++
	return nil
}

// dropPassages removes a document's passages and their postings.
func (s *Store) dropPassages(id int64) {
	for _, p := range s.passages[id] {
		delete(s.postings, p.ID)
	}
	s.passages[id] = nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(_ context.Context, id int64) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("get document"); err != nil {
		return nil, err
	}

	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// FindByPath returns the document stored for a path.
func (s *Store) FindByPath(_ context.Context, path string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("find by path"); err != nil {
		return nil, err
	}

	id, ok := s.byPath[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc := s.documents[id]
	return &doc, nil
}

// FindByHash returns the oldest document with a content hash.
func (s *Store) FindByHash(_ context.Context, hash string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("find by hash"); err != nil {
		return nil, err
	}

	for _, id := range s.sortedIDs() {
		if doc := s.documents[id]; doc.Hash == hash {
			return &doc, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ListDocuments returns all documents ordered by ID.
func (s *Store) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("list documents"); err != nil {
		return nil, err
	}

	ids := s.sortedIDs()
	docs := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, s.documents[id])
	}
	return docs, nil
}

// ListPassages returns a document's passages ordered by ordinal.
func (s *Store) ListPassages(_ context.Context, documentID int64) ([]domain.Passage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("list passages"); err != nil {
		return nil, err
	}
	return slices.Clone(s.passages[documentID]), nil
}

// ListPassageStats returns the index projection of every passage.
func (s *Store) ListPassageStats(_ context.Context) ([]domain.PassageStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("list passage stats"); err != nil {
		return nil, err
	}

	var stats []domain.PassageStats
	for _, id := range s.sortedIDs() {
		for _, p := range s.passages[id] {
			stats = append(stats, p.Stats())
		}
	}
	return stats, nil
}

// GetPassages retrieves passages by ID. Missing IDs are omitted.
func (s *Store) GetPassages(_ context.Context, ids []string) (map[string]domain.Passage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("get passages"); err != nil {
		return nil, err
	}

	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	result := make(map[string]domain.Passage, len(ids))
	for _, passages := range s.passages {
		for _, p := range passages {
			if _, ok := want[p.ID]; ok {
				result[p.ID] = p
			}
		}
	}
	return result, nil
}

// Status returns document and passage counts.
func (s *Store) Status(_ context.Context) (domain.CorpusStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("status"); err != nil {
		return domain.CorpusStatus{}, err
	}

	var status domain.CorpusStatus
	for id, doc := range s.documents {
		status.DocumentCount++
		status.PassageCount += len(s.passages[id])
		if doc.Status == domain.StatusStale {
			status.StaleCount++
		}
		if doc.ImportedAt.After(status.LastImportTime) {
			status.LastImportTime = doc.ImportedAt
		}
	}
	return status, nil
}

// Ping reports whether the store is usable.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.check("ping")
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) sortedIDs() []int64 {
	ids := make([]int64, 0, len(s.documents))
	for id := range s.documents {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
