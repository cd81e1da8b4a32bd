package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/policycite/internal/analysis"
	"github.com/custodia-labs/policycite/internal/core/domain"
	"github.com/custodia-labs/policycite/internal/core/ports/driven"
	"github.com/custodia-labs/policycite/internal/core/ports/driving"
	"github.com/custodia-labs/policycite/internal/index"
	"github.com/custodia-labs/policycite/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// metaTokenizer records the analysis chain the persisted postings were built with.
const metaTokenizer = "tokenizer"

// IndexService owns the inverted index derived from the corpus store.
//
// Queries hold the read gate while they search and hydrate. Writers hold the
// write gate for each document commit, so a query never sees a document
// whose passages are stored but not indexed. Imports, removals and rebuilds
// also hold the writer mutex and the cross-process writer lock for their
// whole run.
type IndexService struct {
	corpus   driven.CorpusStore
	store    driven.IndexStore
	analyzer *analysis.Analyzer
	index    *index.Index

	gate   sync.RWMutex
	writer sync.Mutex
	lock   driven.WriterLock

	// generation is the store generation the index reflects.
	generation int64
}

// NewIndexService creates an index service with an empty index.
// Call Open to load or rebuild it.
func NewIndexService(corpus driven.CorpusStore, store driven.IndexStore, analyzer *analysis.Analyzer) *IndexService {
	if analyzer == nil {
		analyzer = analysis.New()
	}
	return &IndexService{
		corpus:   corpus,
		store:    store,
		analyzer: analyzer,
		index:    index.New(),
	}
}

// SetWriterLock sets the cross-process writer lock.
func (s *IndexService) SetWriterLock(lock driven.WriterLock) {
	s.lock = lock
}

// Analyzer returns the analyzer used for passages and queries.
func (s *IndexService) Analyzer() *analysis.Analyzer {
	return s.analyzer
}

// Stats returns the index counts.
func (s *IndexService) Stats() index.Stats {
	return s.index.Stats()
}

// Open loads the persisted postings into memory. When they are missing or
// disagree with the stored passages the index is rebuilt from the passages.
func (s *IndexService) Open(ctx context.Context) error {
	defer logger.Timed("open index")()

	gen, err := s.store.Generation(ctx)
	if err != nil {
		return err
	}
	return s.reload(ctx, gen, false)
}

// Refresh reloads the index when the store has seen writes this service did
// not make, such as an import run by another process.
func (s *IndexService) Refresh(ctx context.Context) error {
	gen, err := s.store.Generation(ctx)
	if err != nil {
		return err
	}
	if gen <= s.seen() {
		return nil
	}
	logger.Debug("Corpus changed at generation %d, reloading index", gen)
	return s.reload(ctx, gen, false)
}

// reload loads the persisted postings recorded at generation gen, or
// rebuilds when they are inconsistent. A writer rebuilds under the locks it
// already holds.
func (s *IndexService) reload(ctx context.Context, gen int64, writing bool) error {
	err := s.verifyPersisted(ctx)
	var inconsistent *domain.IndexInconsistency
	switch {
	case err == nil:
		return s.load(ctx, gen)
	case errors.As(err, &inconsistent) && writing:
		logger.Info("Rebuilding index: %v", err)
		return s.rebuild(ctx, true)
	case errors.As(err, &inconsistent):
		logger.Info("Rebuilding index: %v", err)
		return s.recover(ctx)
	default:
		return err
	}
}

func (s *IndexService) seen() int64 {
	s.gate.RLock()
	defer s.gate.RUnlock()
	return s.generation
}

// advance records the store generation after this service's own write.
// It must be called with the write gate held.
func (s *IndexService) advance(ctx context.Context) {
	gen, err := s.store.Generation(ctx)
	if err != nil {
		logger.Debug("Reading generation: %v", err)
		return
	}
	if gen > s.generation {
		s.generation = gen
	}
}

// Check verifies the persisted postings and the in-memory index against the
// stored passages.
func (s *IndexService) Check(ctx context.Context) error {
	s.gate.RLock()
	defer s.gate.RUnlock()

	if err := s.verifyPersisted(ctx); err != nil {
		return err
	}

	stats, err := s.corpus.ListPassageStats(ctx)
	if err != nil {
		return err
	}
	missing := 0
	for _, st := range stats {
		if !s.index.Contains(st.ID) {
			missing++
		}
	}
	if extra := s.index.Stats().Passages - (len(stats) - missing); extra > 0 {
		missing += extra
	}
	if missing > 0 {
		return &domain.IndexInconsistency{Reason: "in-memory index out of date", Mismatched: missing}
	}
	return nil
}

// Rebuild discards the index and rebuilds it from the stored passages.
func (s *IndexService) Rebuild(ctx context.Context) error {
	release, err := s.beginWrite()
	if err != nil {
		return err
	}
	defer release()

	return s.rebuild(ctx, true)
}

// beginWrite takes the writer mutex and the cross-process lock.
// The returned function releases both.
func (s *IndexService) beginWrite() (func(), error) {
	if !s.writer.TryLock() {
		return nil, domain.ErrImportInProgress
	}
	if s.lock != nil {
		ok, err := s.lock.TryLock()
		if err != nil {
			s.writer.Unlock()
			return nil, fmt.Errorf("acquire writer lock: %w", err)
		}
		if !ok {
			s.writer.Unlock()
			return nil, domain.ErrImportInProgress
		}
	}

	return func() {
		if s.lock != nil {
			if err := s.lock.Unlock(); err != nil {
				logger.Warn("Failed to release writer lock: %v", err)
			}
		}
		s.writer.Unlock()
	}, nil
}

// beginSync starts a write like beginWrite and first catches the index up
// with writes made by other processes.
func (s *IndexService) beginSync(ctx context.Context) (func(), error) {
	release, err := s.beginWrite()
	if err != nil {
		return nil, err
	}

	// An unreadable store is reported by the write itself.
	gen, err := s.store.Generation(ctx)
	if err != nil || gen <= s.seen() {
		return release, nil
	}
	if err := s.reload(ctx, gen, true); err != nil {
		release()
		return nil, err
	}
	return release, nil
}

// recover rebuilds the index. The rebuilt postings are persisted only when
// no other writer holds the corpus; otherwise the rebuild stays in memory.
func (s *IndexService) recover(ctx context.Context) error {
	release, err := s.beginWrite()
	if errors.Is(err, domain.ErrImportInProgress) {
		logger.Debug("Another writer holds the corpus, rebuilding in memory only")
		return s.rebuild(ctx, false)
	}
	if err != nil {
		return err
	}
	defer release()

	return s.rebuild(ctx, true)
}

func (s *IndexService) verifyPersisted(ctx context.Context) error {
	version, ok, err := s.store.Meta(ctx, metaTokenizer)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.IndexInconsistency{Reason: "no tokenizer version recorded"}
	}
	if version != s.analyzer.Version() {
		return &domain.IndexInconsistency{Reason: fmt.Sprintf("tokenizer changed from %s", version)}
	}
	return s.store.CheckConsistency(ctx)
}

func (s *IndexService) load(ctx context.Context, gen int64) error {
	s.gate.Lock()
	defer s.gate.Unlock()

	if gen < s.generation {
		return nil
	}

	stats, err := s.corpus.ListPassageStats(ctx)
	if err != nil {
		return err
	}
	postings, err := s.store.LoadPostings(ctx)
	if err != nil {
		return err
	}

	s.index.Reset(index.EntriesFromPostings(stats, postings))
	s.generation = gen

	logger.Debug("Loaded %d passages, %d postings", len(stats), len(postings))
	return nil
}

// rebuild analyzes every stored passage again. A persisted rebuild runs
// under the writer locks and rewrites the postings. An in-memory rebuild
// holds the write gate while it reads, so commits made by this process
// cannot be dropped by the reset.
func (s *IndexService) rebuild(ctx context.Context, persist bool) error {
	defer logger.Timed("rebuild index")()

	if !persist {
		s.gate.Lock()
		defer s.gate.Unlock()

		gen, err := s.store.Generation(ctx)
		if err != nil {
			return err
		}
		docs, entries, err := s.collect(ctx)
		if err != nil {
			return err
		}
		s.index.Reset(entries)
		s.generation = gen

		logger.Info("Rebuilt index in memory: %d documents, %d passages", docs, len(entries))
		return nil
	}

	docs, entries, err := s.collect(ctx)
	if err != nil {
		return err
	}

	stats := make([]domain.PassageStats, 0, len(entries))
	var postings []domain.Posting
	for _, e := range entries {
		stats = append(stats, e.Stats)
		postings = append(postings, e.Postings()...)
	}
	if err := s.store.ReplaceAllPostings(ctx, stats, postings); err != nil {
		return err
	}
	if err := s.store.SetMeta(ctx, metaTokenizer, s.analyzer.Version()); err != nil {
		return err
	}

	s.gate.Lock()
	s.index.Reset(entries)
	s.advance(ctx)
	s.gate.Unlock()

	logger.Info("Rebuilt index: %d documents, %d passages", docs, len(entries))
	return nil
}

// collect analyzes the passages of every stored document.
func (s *IndexService) collect(ctx context.Context) (int, []index.Entry, error) {
	docs, err := s.corpus.ListDocuments(ctx)
	if err != nil {
		return 0, nil, err
	}

	var entries []index.Entry
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}
		passages, err := s.corpus.ListPassages(ctx, doc.ID)
		if err != nil {
			return 0, nil, err
		}
		for i := range passages {
			entries = append(entries, s.entry(&passages[i]))
		}
	}
	return len(docs), entries, nil
}

// entry analyzes a passage for indexing.
func (s *IndexService) entry(p *domain.Passage) index.Entry {
	terms, count := s.analyzer.Frequencies(p.Text)
	stats := p.Stats()
	stats.TokenCount = count
	return index.Entry{Stats: stats, Terms: terms}
}

// commit stores a document with its passages and applies it to the index
// under the write gate. It reports whether anything was written.
func (s *IndexService) commit(
	ctx context.Context, doc *domain.Document, passages []domain.Passage, entries []index.Entry,
) (bool, error) {
	s.gate.Lock()
	defer s.gate.Unlock()

	written, err := s.corpus.UpsertDocument(ctx, doc, passages)
	if err != nil || !written {
		return written, err
	}

	var postings []domain.Posting
	for _, e := range entries {
		postings = append(postings, e.Postings()...)
	}
	// Postings are a cache of the passages; a failed write is healed by the
	// consistency check on the next open.
	if err := s.store.PutPostings(ctx, doc.ID, postings); err != nil {
		logger.Warn("Postings for %s not persisted: %v", doc.Path, err)
	}

	s.index.Add(doc.ID, entries)
	s.advance(ctx)
	return true, nil
}

// remove deletes a document from the store and the index under the write gate.
func (s *IndexService) remove(ctx context.Context, documentID int64) (bool, error) {
	s.gate.Lock()
	defer s.gate.Unlock()

	if err := s.corpus.RemoveDocument(ctx, documentID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	s.index.RemoveDocument(documentID)
	s.advance(ctx)
	return true, nil
}

// markStale flags a document whose source changed.
func (s *IndexService) markStale(ctx context.Context, documentID int64) error {
	s.gate.Lock()
	defer s.gate.Unlock()

	if err := s.corpus.MarkStale(ctx, documentID); err != nil {
		return err
	}
	s.advance(ctx)
	return nil
}

// markTokenizer records the analyzer version on a store that has none.
// A recorded version that differs is left for Open to detect.
func (s *IndexService) markTokenizer(ctx context.Context) error {
	_, ok, err := s.store.Meta(ctx, metaTokenizer)
	if err != nil || ok {
		return err
	}
	return s.store.SetMeta(ctx, metaTokenizer, s.analyzer.Version())
}
