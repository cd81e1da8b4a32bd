package services

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/custodia-labs/policycite/internal/core/domain"
	"github.com/custodia-labs/policycite/internal/core/ports/driven"
	"github.com/custodia-labs/policycite/internal/core/ports/driving"
	"github.com/custodia-labs/policycite/internal/index"
	"github.com/custodia-labs/policycite/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// errStaleIndex means the index referenced a passage the store no longer has.
var errStaleIndex = errors.New("index references missing passages")

// SearchService answers citation queries.
type SearchService struct {
	indexes       *IndexService
	corpus        driven.CorpusStore
	topK          int
	snippetLength int

	// cache is keyed by index version, so any committed mutation
	// invalidates every earlier entry.
	cache *lru.Cache[string, []domain.Citation]
}

// NewSearchService creates a search service. A cache size of zero disables
// result caching.
func NewSearchService(indexes *IndexService, corpus driven.CorpusStore, settings domain.RetrievalSettings) *SearchService {
	s := &SearchService{
		indexes:       indexes,
		corpus:        corpus,
		topK:          settings.TopK,
		snippetLength: settings.SnippetLength,
	}
	if s.topK <= 0 {
		s.topK = domain.DefaultTopK
	}
	if s.snippetLength <= 0 {
		s.snippetLength = domain.DefaultSnippetLength
	}
	if settings.CacheSize > 0 {
		cache, err := lru.New[string, []domain.Citation](settings.CacheSize)
		if err == nil {
			s.cache = cache
		}
	}
	return s
}

// Query returns up to k citations for a sentence.
func (s *SearchService) Query(ctx context.Context, sentence string, k int) ([]domain.Citation, error) {
	sentence = strings.TrimSpace(sentence)
	if sentence == "" {
		return []domain.Citation{}, nil
	}
	if k <= 0 {
		k = s.topK
	}

	terms := s.indexes.Analyzer().QueryTerms(sentence)
	if len(terms) == 0 {
		return []domain.Citation{}, nil
	}
	logger.Debug("Query %q: terms %v, k=%d", sentence, terms, k)

	if err := s.indexes.Refresh(ctx); err != nil {
		return nil, err
	}

	citations, err := s.search(ctx, sentence, terms, k)
	if errors.Is(err, errStaleIndex) {
		logger.Warn("Index out of date, rebuilding")
		if err := s.indexes.recover(ctx); err != nil {
			return nil, err
		}
		citations, err = s.search(ctx, sentence, terms, k)
	}
	if err != nil {
		return nil, err
	}
	return citations, nil
}

func (s *SearchService) search(ctx context.Context, sentence string, terms []string, k int) ([]domain.Citation, error) {
	s.indexes.gate.RLock()
	defer s.indexes.gate.RUnlock()

	key := strconv.FormatUint(s.indexes.index.Version(), 10) + "|" + strconv.Itoa(k) + "|" + sentence
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			return slices.Clone(cached), nil
		}
	}

	hits := s.indexes.index.Search(terms, k)
	citations, err := s.hydrate(ctx, hits, terms)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Add(key, slices.Clone(citations))
	}
	return citations, nil
}

// hydrate loads the passages and documents behind hits.
func (s *SearchService) hydrate(ctx context.Context, hits []index.Hit, terms []string) ([]domain.Citation, error) {
	citations := make([]domain.Citation, 0, len(hits))
	if len(hits) == 0 {
		return citations, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.PassageID
	}
	passages, err := s.corpus.GetPassages(ctx, ids)
	if err != nil {
		return nil, err
	}

	docs := make(map[int64]*domain.Document)
	for _, h := range hits {
		p, ok := passages[h.PassageID]
		if !ok {
			return nil, errStaleIndex
		}
		doc, ok := docs[h.DocumentID]
		if !ok {
			doc, err = s.corpus.GetDocument(ctx, h.DocumentID)
			if errors.Is(err, domain.ErrNotFound) {
				return nil, errStaleIndex
			}
			if err != nil {
				return nil, err
			}
			docs[h.DocumentID] = doc
		}

		citations = append(citations, domain.Citation{
			DocumentID:   doc.ID,
			DocumentName: doc.Name(),
			Path:         doc.Path,
			PassageID:    p.ID,
			Snippet:      Snippet(s.indexes.Analyzer(), p.Text, terms, s.snippetLength),
			Position:     p.Position,
			Score:        h.Score,
		})
	}
	return citations, nil
}

// Lookup extracts bullet points from text, queries each with k and merges
// the citations by passage, keeping the best score. Text without bullet
// points is queried as one sentence.
func (s *SearchService) Lookup(ctx context.Context, text string, k int) ([]domain.Citation, error) {
	queries := BulletQueries(text)
	if len(queries) == 0 {
		return []domain.Citation{}, nil
	}

	best := make(map[string]int)
	merged := []domain.Citation{}
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		citations, err := s.Query(ctx, q, k)
		if err != nil {
			return nil, err
		}
		for _, c := range citations {
			c.Query = q
			if i, seen := best[c.PassageID]; seen {
				if c.Score > merged[i].Score {
					merged[i] = c
				}
				continue
			}
			best[c.PassageID] = len(merged)
			merged = append(merged, c)
		}
	}

	slices.SortFunc(merged, compareCitations)
	return merged, nil
}

// BulletQueries returns the distinct bullet lines ("- item") of text in
// order. When text has no bullet lines the whole trimmed text is the only
// query.
func BulletQueries(text string) []string {
	seen := make(map[string]struct{})
	var queries []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "-") {
			continue
		}
		q := strings.TrimSpace(strings.TrimLeft(line, "- "))
		if q == "" {
			continue
		}
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		queries = append(queries, q)
	}

	if len(queries) == 0 {
		if whole := strings.TrimSpace(text); whole != "" {
			queries = append(queries, whole)
		}
	}
	return queries
}

func compareCitations(a, b domain.Citation) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if c := cmp.Compare(a.DocumentID, b.DocumentID); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Position.Offset, b.Position.Offset); c != 0 {
		return c
	}
	return cmp.Compare(a.PassageID, b.PassageID)
}
