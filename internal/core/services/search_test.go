package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policycite/internal/chunker"
	"github.com/custodia-labs/policycite/internal/core/domain"
)

func TestQuery_ScenarioA_ExactPhraseRanksFirst(t *testing.T) {
	e := newTestEngine(t)
	budget := e.write(t, "budget.txt", budgetPolicy)
	annual := e.write(t, "annual.txt", annualPolicy)
	e.importPaths(t, budget, annual)
	budgetDoc := e.docByPath(t, budget)

	citations := e.query(t, "预算审批", 3)

	require.NotEmpty(t, citations)
	assert.Equal(t, budgetDoc.ID, citations[0].DocumentID)
	assert.Equal(t, "budget", citations[0].DocumentName)
	assert.Equal(t, budget, citations[0].Path)
	assert.Contains(t, citations[0].Snippet, "[预算审批]")

	lastBudget := -1
	for i, c := range citations {
		if c.DocumentID == budgetDoc.ID {
			lastBudget = i
		}
	}
	for i, c := range citations {
		if c.DocumentID != budgetDoc.ID {
			assert.Greater(t, i, lastBudget)
		}
	}
}

func TestQuery_ScenarioD_EmptyCorpus(t *testing.T) {
	e := newTestEngine(t)

	citations, err := e.search.Query(context.Background(), "预算审批", 3)

	require.NoError(t, err)
	assert.NotNil(t, citations)
	assert.Empty(t, citations)
}

func TestQuery_BlankAndUnmatched(t *testing.T) {
	e := newTestEngine(t)
	e.importPaths(t, e.write(t, "budget.txt", budgetPolicy))

	for _, sentence := range []string{"", "   ", "。，！", "completely unrelated words"} {
		citations, err := e.search.Query(context.Background(), sentence, 3)
		require.NoError(t, err, sentence)
		assert.Empty(t, citations, sentence)
	}
}

func TestQuery_ScoresAndOrder(t *testing.T) {
	e := newTestEngine(t)
	e.importPaths(t,
		e.write(t, "a.txt", "Expense claims need receipts."),
		e.write(t, "b.txt", "Expense claims need receipts!"),
		e.write(t, "c.txt", "Receipts are archived yearly. Expense claims go to finance."),
	)

	citations := e.query(t, "expense receipts", 0)

	require.Len(t, citations, 3)
	for i, c := range citations {
		assert.Greater(t, c.Score, 0.0)
		assert.Less(t, c.Score, 1.0)
		if i > 0 {
			assert.GreaterOrEqual(t, citations[i-1].Score, c.Score)
		}
	}
	// a.txt and b.txt tie; the lower document ID wins.
	assert.Equal(t, citations[0].Score, citations[1].Score)
	assert.Less(t, citations[0].DocumentID, citations[1].DocumentID)
}

func TestQuery_DefaultAndExplicitK(t *testing.T) {
	e := newTestEngine(t)
	var paths []string
	for _, name := range []string{"a.txt", "b.txt", "c.txt", "d.txt", "e.txt", "f.txt", "g.txt"} {
		paths = append(paths, e.write(t, name, "Policy "+name+" covers expense approval."))
	}
	e.importPaths(t, paths...)

	assert.Len(t, e.query(t, "expense approval", 0), domain.DefaultTopK)
	assert.Len(t, e.query(t, "expense approval", -3), domain.DefaultTopK)
	assert.Len(t, e.query(t, "expense approval", 2), 2)
	assert.Len(t, e.query(t, "expense approval", 100), 7)
}

func TestQuery_Deterministic(t *testing.T) {
	for _, cacheSize := range []int{0, 16} {
		e := newTestEngine(t, withCacheSize(cacheSize), withChunking(chunker.WithMaxTokens(10), chunker.WithOverlap(2)))
		e.importPaths(t,
			e.write(t, "a.txt", budgetPolicy+annualPolicy),
			e.write(t, "b.txt", annualPolicy+budgetPolicy),
			e.write(t, "c.txt", annualPolicy),
		)

		first := e.query(t, "预算审批 年度预算", 0)
		require.NotEmpty(t, first)
		for range 5 {
			assert.Equal(t, first, e.query(t, "预算审批 年度预算", 0))
		}
	}
}

func TestQuery_CacheInvalidatedByImport(t *testing.T) {
	e := newTestEngine(t, withCacheSize(8))
	e.importPaths(t, e.write(t, "a.txt", "Annual training is required for all staff."))

	before := e.query(t, "annual cybersecurity training", 5)
	require.Len(t, before, 1)

	// Monotonicity: a passage with the extra term outranks those without it.
	added := e.write(t, "b.txt", "Annual cybersecurity training is mandatory.")
	e.importPaths(t, added)
	newDoc := e.docByPath(t, added)

	after := e.query(t, "annual cybersecurity training", 5)
	require.Len(t, after, 2)
	assert.Equal(t, newDoc.ID, after[0].DocumentID)
}

func TestQuery_CachedResultsAreCopies(t *testing.T) {
	e := newTestEngine(t, withCacheSize(8))
	e.importPaths(t, e.write(t, "a.txt", travelPolicy))

	first := e.query(t, "travel", 1)
	require.Len(t, first, 1)
	first[0].Snippet = "changed"

	second := e.query(t, "travel", 1)
	assert.NotEqual(t, "changed", second[0].Snippet)
}

func TestQuery_RecoversFromStaleIndex(t *testing.T) {
	e := newTestEngine(t)
	a := e.write(t, "a.txt", budgetPolicy)
	b := e.write(t, "b.txt", annualPolicy)
	e.importPaths(t, a, b)

	// Another process removed a document behind this index's back.
	doc := e.docByPath(t, a)
	require.NoError(t, e.store.RemoveDocument(context.Background(), doc.ID))

	citations := e.query(t, "预算", 5)
	require.NotEmpty(t, citations)
	assert.NotContains(t, documentIDs(citations), doc.ID)
}

func TestQuery_IdenticalAfterRebuild(t *testing.T) {
	e := newTestEngine(t, withChunking(chunker.WithMaxTokens(8), chunker.WithOverlap(2)))
	e.importPaths(t,
		e.write(t, "a.txt", budgetPolicy+annualPolicy+travelPolicy),
		e.write(t, "b.txt", travelPolicy+budgetPolicy),
	)
	before := e.query(t, "预算 travel approved", 0)
	fingerprint := e.status(t).Fingerprint

	require.NoError(t, e.indexes.Rebuild(context.Background()))

	assert.Equal(t, before, e.query(t, "预算 travel approved", 0))
	assert.Equal(t, fingerprint, e.status(t).Fingerprint)
}

func TestLookup_MergesBulletQueries(t *testing.T) {
	e := newTestEngine(t)
	budget := e.write(t, "budget.txt", budgetPolicy)
	travel := e.write(t, "travel.txt", travelPolicy)
	e.importPaths(t, budget, travel)

	summary := "会议纪要\n- 预算审批\n- travel expenses approved\n- 预算审批\n普通段落"
	citations, err := e.search.Lookup(context.Background(), summary, 3)
	require.NoError(t, err)

	require.Len(t, citations, 2)
	queries := map[string]string{}
	for _, c := range citations {
		queries[c.Path] = c.Query
	}
	assert.Equal(t, "预算审批", queries[budget])
	assert.Equal(t, "travel expenses approved", queries[travel])
	assert.GreaterOrEqual(t, citations[0].Score, citations[1].Score)
}

func TestLookup_KeepsBestScorePerPassage(t *testing.T) {
	e := newTestEngine(t)
	e.importPaths(t, e.write(t, "travel.txt", travelPolicy), e.write(t, "other.txt", "Booking rules."))

	citations, err := e.search.Lookup(context.Background(), "- booking\n- travel expenses approved before booking", 5)
	require.NoError(t, err)

	var travel []domain.Citation
	for _, c := range citations {
		if c.DocumentName == "travel" {
			travel = append(travel, c)
		}
	}
	require.Len(t, travel, 1)
	assert.Equal(t, "travel expenses approved before booking", travel[0].Query)
}

func TestLookup_PlainTextAndEmpty(t *testing.T) {
	e := newTestEngine(t)
	e.importPaths(t, e.write(t, "travel.txt", travelPolicy))

	citations, err := e.search.Lookup(context.Background(), "travel expenses", 3)
	require.NoError(t, err)
	require.Len(t, citations, 1)
	assert.Equal(t, "travel expenses", citations[0].Query)

	citations, err = e.search.Lookup(context.Background(), " \n ", 3)
	require.NoError(t, err)
	assert.Empty(t, citations)
}

func TestBulletQueries(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", nil},
		{"plain text", "  budget approval  ", []string{"budget approval"}},
		{"bullets only", "- a\n- b", []string{"a", "b"}},
		{"dedupe in order", "- b\n- a\n- b", []string{"b", "a"}},
		{"indented and dashes", "  -- a\n-\n- ", []string{"a"}},
		{"ignores other lines", "heading\n- 预算审批\ntext", []string{"预算审批"}},
		{"crlf", "- a\r\n- b\r\n", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BulletQueries(tt.text))
		})
	}
}
