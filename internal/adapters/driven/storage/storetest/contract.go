// Package storetest holds the behavioural tests shared by every corpus and
// index store implementation.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policycite/internal/core/domain"
	"github.com/custodia-labs/policycite/internal/core/ports/driven"
)

// Factory opens a fresh, empty store pair backed by the same data.
type Factory func(t *testing.T) (driven.CorpusStore, driven.IndexStore)

// NewDocument builds a document fixture.
func NewDocument(path, hash string) *domain.Document {
	return &domain.Document{
		Path:       path,
		Hash:       hash,
		Title:      domain.DocumentNameFromPath(path),
		Format:     domain.FormatPlainText,
		ImportedAt: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}

// NewPassages builds n passages whose IDs derive from hash. Each passage
// holds the terms "policy" and "p<ordinal>" once.
func NewPassages(hash string, n int) []domain.Passage {
	passages := make([]domain.Passage, n)
	for i := range passages {
		text := fmt.Sprintf("policy p%d", i)
		passages[i] = domain.Passage{
			ID:             fmt.Sprintf("%s-%d", hash, i),
			Ordinal:        i,
			Text:           text,
			NormalizedText: text,
			Position:       domain.Position{Page: 1, Section: "第一条", Offset: i * 20, Overlap: 0},
			TokenCount:     2,
		}
	}
	return passages
}

// PostingsFor returns postings matching NewPassages.
func PostingsFor(passages []domain.Passage) []domain.Posting {
	postings := make([]domain.Posting, 0, 2*len(passages))
	for _, p := range passages {
		postings = append(postings,
			domain.Posting{Token: "policy", PassageID: p.ID, Frequency: 1},
			domain.Posting{Token: fmt.Sprintf("p%d", p.Ordinal), PassageID: p.ID, Frequency: 1},
		)
	}
	return postings
}

// Run executes the shared store behaviour tests.
func Run(t *testing.T, open Factory) {
	t.Run("upsert inserts new document", func(t *testing.T) {
		corpus, _ := open(t)
		ctx := context.Background()

		doc := NewDocument("/p/travel.txt", "h1")
		passages := NewPassages("h1", 3)
		written, err := corpus.UpsertDocument(ctx, doc, passages)
		require.NoError(t, err)

		assert.True(t, written)
		assert.Positive(t, doc.ID)
		assert.Equal(t, domain.StatusIndexed, doc.Status)
		for _, p := range passages {
			assert.Equal(t, doc.ID, p.DocumentID)
		}

		got, err := corpus.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, "/p/travel.txt", got.Path)
		assert.Equal(t, "h1", got.Hash)
		assert.Equal(t, domain.FormatPlainText, got.Format)
		assert.Equal(t, domain.StatusIndexed, got.Status)
		assert.True(t, doc.ImportedAt.Equal(got.ImportedAt))

		stored, err := corpus.ListPassages(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, passages, stored)
	})

	t.Run("upsert with same hash is a no-op", func(t *testing.T) {
		corpus, _ := open(t)
		ctx := context.Background()

		first := NewDocument("/p/a.txt", "h1")
		_, err := corpus.UpsertDocument(ctx, first, NewPassages("h1", 2))
		require.NoError(t, err)

		again := NewDocument("/p/a.txt", "h1")
		written, err := corpus.UpsertDocument(ctx, again, NewPassages("h1", 5))
		require.NoError(t, err)

		assert.False(t, written)
		assert.Equal(t, first.ID, again.ID)
		stored, err := corpus.ListPassages(ctx, first.ID)
		require.NoError(t, err)
		assert.Len(t, stored, 2)
	})

	t.Run("upsert with new hash replaces passages", func(t *testing.T) {
		corpus, _ := open(t)
		ctx := context.Background()

		doc := NewDocument("/p/a.txt", "h1")
		_, err := corpus.UpsertDocument(ctx, doc, NewPassages("h1", 3))
		require.NoError(t, err)

		changed := NewDocument("/p/a.txt", "h2")
		written, err := corpus.UpsertDocument(ctx, changed, NewPassages("h2", 1))
		require.NoError(t, err)

		assert.True(t, written)
		assert.Equal(t, doc.ID, changed.ID)

		stored, err := corpus.ListPassages(ctx, doc.ID)
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, "h2-0", stored[0].ID)

		old, err := corpus.GetPassages(ctx, []string{"h1-0", "h1-1", "h2-0"})
		require.NoError(t, err)
		assert.Len(t, old, 1)
		assert.Contains(t, old, "h2-0")

		got, err := corpus.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, "h2", got.Hash)
	})

	t.Run("stale document is rewritten even with same hash", func(t *testing.T) {
		corpus, _ := open(t)
		ctx := context.Background()

		doc := NewDocument("/p/a.txt", "h1")
		_, err := corpus.UpsertDocument(ctx, doc, NewPassages("h1", 2))
		require.NoError(t, err)
		require.NoError(t, corpus.MarkStale(ctx, doc.ID))

		got, err := corpus.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusStale, got.Status)

		status, err := corpus.Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, status.StaleCount)

		written, err := corpus.UpsertDocument(ctx, NewDocument("/p/a.txt", "h1"), NewPassages("h1", 2))
		require.NoError(t, err)
		assert.True(t, written)

		got, err = corpus.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusIndexed, got.Status)
	})

	t.Run("mark stale unknown document", func(t *testing.T) {
		corpus, _ := open(t)
		assert.ErrorIs(t, corpus.MarkStale(context.Background(), 42), domain.ErrNotFound)
	})

	t.Run("remove cascades", func(t *testing.T) {
		corpus, idx := open(t)
		ctx := context.Background()

		doc := NewDocument("/p/a.txt", "h1")
		passages := NewPassages("h1", 2)
		_, err := corpus.UpsertDocument(ctx, doc, passages)
		require.NoError(t, err)
		require.NoError(t, idx.PutPostings(ctx, doc.ID, PostingsFor(passages)))

		keep := NewDocument("/p/b.txt", "h2")
		keepPassages := NewPassages("h2", 1)
		_, err = corpus.UpsertDocument(ctx, keep, keepPassages)
		require.NoError(t, err)
		require.NoError(t, idx.PutPostings(ctx, keep.ID, PostingsFor(keepPassages)))

		require.NoError(t, corpus.RemoveDocument(ctx, doc.ID))

		_, err = corpus.GetDocument(ctx, doc.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		got, err := corpus.GetPassages(ctx, []string{"h1-0", "h1-1"})
		require.NoError(t, err)
		assert.Empty(t, got)

		postings, err := idx.LoadPostings(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, PostingsFor(keepPassages), postings)

		assert.NoError(t, idx.CheckConsistency(ctx))
		assert.ErrorIs(t, corpus.RemoveDocument(ctx, doc.ID), domain.ErrNotFound)
	})

	t.Run("ids ascend and are not reused", func(t *testing.T) {
		corpus, _ := open(t)
		ctx := context.Background()

		a := NewDocument("/p/a.txt", "h1")
		b := NewDocument("/p/b.txt", "h2")
		_, err := corpus.UpsertDocument(ctx, a, nil)
		require.NoError(t, err)
		_, err = corpus.UpsertDocument(ctx, b, nil)
		require.NoError(t, err)
		require.NoError(t, corpus.RemoveDocument(ctx, b.ID))

		c := NewDocument("/p/c.txt", "h3")
		_, err = corpus.UpsertDocument(ctx, c, nil)
		require.NoError(t, err)

		assert.Greater(t, b.ID, a.ID)
		assert.Greater(t, c.ID, b.ID)

		docs, err := corpus.ListDocuments(ctx)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, a.ID, docs[0].ID)
		assert.Equal(t, c.ID, docs[1].ID)
	})

	t.Run("find by path and hash", func(t *testing.T) {
		corpus, _ := open(t)
		ctx := context.Background()

		doc := NewDocument("/p/a.txt", "h1")
		_, err := corpus.UpsertDocument(ctx, doc, nil)
		require.NoError(t, err)

		byPath, err := corpus.FindByPath(ctx, "/p/a.txt")
		require.NoError(t, err)
		assert.Equal(t, doc.ID, byPath.ID)

		byHash, err := corpus.FindByHash(ctx, "h1")
		require.NoError(t, err)
		assert.Equal(t, doc.ID, byHash.ID)

		_, err = corpus.FindByPath(ctx, "/p/missing.txt")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = corpus.FindByHash(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("status", func(t *testing.T) {
		corpus, _ := open(t)
		ctx := context.Background()

		status, err := corpus.Status(ctx)
		require.NoError(t, err)
		assert.True(t, status.IsEmpty())
		assert.True(t, status.LastImportTime.IsZero())

		older := NewDocument("/p/a.txt", "h1")
		newer := NewDocument("/p/b.txt", "h2")
		newer.ImportedAt = older.ImportedAt.Add(time.Hour)
		_, err = corpus.UpsertDocument(ctx, older, NewPassages("h1", 2))
		require.NoError(t, err)
		_, err = corpus.UpsertDocument(ctx, newer, NewPassages("h2", 3))
		require.NoError(t, err)

		status, err = corpus.Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, status.DocumentCount)
		assert.Equal(t, 5, status.PassageCount)
		assert.Equal(t, 0, status.StaleCount)
		assert.True(t, newer.ImportedAt.Equal(status.LastImportTime))
	})

	t.Run("passage stats", func(t *testing.T) {
		corpus, _ := open(t)
		ctx := context.Background()

		doc := NewDocument("/p/a.txt", "h1")
		_, err := corpus.UpsertDocument(ctx, doc, NewPassages("h1", 2))
		require.NoError(t, err)

		stats, err := corpus.ListPassageStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.PassageStats{
			{ID: "h1-0", DocumentID: doc.ID, Offset: 0, TokenCount: 2},
			{ID: "h1-1", DocumentID: doc.ID, Offset: 20, TokenCount: 2},
		}, stats)
	})

	t.Run("invalid input", func(t *testing.T) {
		corpus, _ := open(t)
		_, err := corpus.UpsertDocument(context.Background(), &domain.Document{Path: "/p/a.txt"}, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("ping", func(t *testing.T) {
		corpus, _ := open(t)
		assert.NoError(t, corpus.Ping(context.Background()))
	})

	t.Run("postings round trip and consistency", func(t *testing.T) {
		corpus, idx := open(t)
		ctx := context.Background()

		doc := NewDocument("/p/a.txt", "h1")
		passages := NewPassages("h1", 2)
		_, err := corpus.UpsertDocument(ctx, doc, passages)
		require.NoError(t, err)

		var inconsistent *domain.IndexInconsistency
		err = idx.CheckConsistency(ctx)
		require.True(t, errors.As(err, &inconsistent), "passages without postings")
		assert.Equal(t, 2, inconsistent.Mismatched)

		require.NoError(t, idx.PutPostings(ctx, doc.ID, PostingsFor(passages)))
		require.NoError(t, idx.CheckConsistency(ctx))

		postings, err := idx.LoadPostings(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, PostingsFor(passages), postings)

		// Re-putting replaces rather than duplicates.
		require.NoError(t, idx.PutPostings(ctx, doc.ID, PostingsFor(passages[:1])))
		err = idx.CheckConsistency(ctx)
		require.True(t, errors.As(err, &inconsistent))
		assert.Equal(t, 1, inconsistent.Mismatched)

		require.NoError(t, idx.ReplaceAllPostings(ctx, nil, PostingsFor(passages)))
		assert.NoError(t, idx.CheckConsistency(ctx))
	})

	t.Run("replace all postings rewrites token counts", func(t *testing.T) {
		corpus, idx := open(t)
		ctx := context.Background()

		doc := NewDocument("/p/a.txt", "h1")
		passages := NewPassages("h1", 2)
		_, err := corpus.UpsertDocument(ctx, doc, passages)
		require.NoError(t, err)

		// One term per passage instead of two.
		postings := []domain.Posting{
			{Token: "policy", PassageID: "h1-0", Frequency: 1},
			{Token: "policy", PassageID: "h1-1", Frequency: 1},
		}
		stats := []domain.PassageStats{
			{ID: "h1-0", DocumentID: doc.ID, Offset: 0, TokenCount: 1},
			{ID: "h1-1", DocumentID: doc.ID, Offset: 20, TokenCount: 1},
		}
		require.NoError(t, idx.ReplaceAllPostings(ctx, stats, postings))
		assert.NoError(t, idx.CheckConsistency(ctx))

		got, err := corpus.ListPassageStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, stats, got)
	})

	t.Run("replaced document drops old postings", func(t *testing.T) {
		corpus, idx := open(t)
		ctx := context.Background()

		doc := NewDocument("/p/a.txt", "h1")
		passages := NewPassages("h1", 2)
		_, err := corpus.UpsertDocument(ctx, doc, passages)
		require.NoError(t, err)
		require.NoError(t, idx.PutPostings(ctx, doc.ID, PostingsFor(passages)))

		replacement := NewPassages("h2", 1)
		_, err = corpus.UpsertDocument(ctx, NewDocument("/p/a.txt", "h2"), replacement)
		require.NoError(t, err)

		postings, err := idx.LoadPostings(ctx)
		require.NoError(t, err)
		assert.Empty(t, postings)
	})

	t.Run("meta", func(t *testing.T) {
		_, idx := open(t)
		ctx := context.Background()

		_, ok, err := idx.Meta(ctx, "tokenizer")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, idx.SetMeta(ctx, "tokenizer", "v1"))
		require.NoError(t, idx.SetMeta(ctx, "tokenizer", "v2"))

		value, ok, err := idx.Meta(ctx, "tokenizer")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "v2", value)
	})

	t.Run("generation grows with every write", func(t *testing.T) {
		corpus, idx := open(t)
		ctx := context.Background()

		gen := func() int64 {
			t.Helper()
			g, err := idx.Generation(ctx)
			require.NoError(t, err)
			return g
		}
		last := gen()
		advanced := func(step string) {
			t.Helper()
			g := gen()
			assert.Greater(t, g, last, step)
			last = g
		}

		doc := NewDocument("/p/a.txt", "h1")
		passages := NewPassages("h1", 2)
		_, err := corpus.UpsertDocument(ctx, doc, passages)
		require.NoError(t, err)
		advanced("upsert")

		require.NoError(t, idx.PutPostings(ctx, doc.ID, PostingsFor(passages)))
		advanced("put postings")

		_, err = corpus.UpsertDocument(ctx, NewDocument("/p/a.txt", "h1"), NewPassages("h1", 2))
		require.NoError(t, err)
		assert.Equal(t, last, gen(), "unchanged upsert")

		require.NoError(t, idx.SetMeta(ctx, "tokenizer", "v1"))
		assert.Equal(t, last, gen(), "meta")

		require.NoError(t, corpus.MarkStale(ctx, doc.ID))
		advanced("mark stale")

		require.NoError(t, idx.ReplaceAllPostings(ctx, nil, PostingsFor(passages)))
		advanced("replace postings")

		require.NoError(t, corpus.RemoveDocument(ctx, doc.ID))
		advanced("remove")

		assert.ErrorIs(t, corpus.RemoveDocument(ctx, doc.ID), domain.ErrNotFound)
		assert.Equal(t, last, gen(), "failed remove")
	})
}
