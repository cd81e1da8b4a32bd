package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_EmptyIndex(t *testing.T) {
	hits := New().Search([]string{"gift"}, 5)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestSearch_NoTerms(t *testing.T) {
	ix := New()
	ix.Add(1, []Entry{entry(1, "a", 0, map[string]int{"gift": 1})})
	assert.Empty(t, ix.Search(nil, 5))
}

func TestSearch_OnlyMatchingPassages(t *testing.T) {
	ix := New()
	ix.Add(1, []Entry{
		entry(1, "a", 0, map[string]int{"gift": 1}),
		entry(1, "b", 10, map[string]int{"travel": 1}),
	})

	hits := ix.Search([]string{"gift", "unknown"}, 5)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].PassageID)
	assert.Greater(t, hits[0].Score, 0.0)
	assert.Less(t, hits[0].Score, 1.0)
}

func TestSearch_RanksHigherFrequencyFirst(t *testing.T) {
	ix := New()
	ix.Add(1, []Entry{
		entry(1, "low", 0, map[string]int{"budget": 1, "x": 3}),
		entry(1, "high", 10, map[string]int{"budget": 3, "x": 1}),
		entry(1, "none", 20, map[string]int{"y": 4}),
	})

	hits := ix.Search([]string{"budget"}, 5)
	require.Len(t, hits, 2)
	assert.Equal(t, "high", hits[0].PassageID)
	assert.Equal(t, "low", hits[1].PassageID)
}

func TestSearch_RareTermsWeighMore(t *testing.T) {
	ix := New()
	ix.Add(1, []Entry{
		entry(1, "common", 0, map[string]int{"policy": 1, "z": 1}),
		entry(1, "rare", 10, map[string]int{"hospitality": 1, "z": 1}),
		entry(1, "c2", 20, map[string]int{"policy": 1, "z": 1}),
		entry(1, "c3", 30, map[string]int{"policy": 1, "z": 1}),
	})

	hits := ix.Search([]string{"policy", "hospitality"}, 0)
	require.Len(t, hits, 4)
	assert.Equal(t, "rare", hits[0].PassageID)
}

func TestSearch_TieBreaks(t *testing.T) {
	ix := New()
	same := map[string]int{"gift": 1}
	ix.Add(2, []Entry{entry(2, "d2", 0, same)})
	ix.Add(1, []Entry{
		entry(1, "d1-late", 50, same),
		entry(1, "d1-b", 0, same),
		entry(1, "d1-a", 0, same),
	})

	hits := ix.Search([]string{"gift"}, 0)
	require.Len(t, hits, 4)

	var ids []string
	for _, h := range hits {
		ids = append(ids, h.PassageID)
	}
	assert.Equal(t, []string{"d1-a", "d1-b", "d1-late", "d2"}, ids)
}

func TestSearch_TopK(t *testing.T) {
	ix := New()
	ix.Add(1, []Entry{
		entry(1, "a", 0, map[string]int{"gift": 1}),
		entry(1, "b", 10, map[string]int{"gift": 1}),
		entry(1, "c", 20, map[string]int{"gift": 1}),
	})

	assert.Len(t, ix.Search([]string{"gift"}, 2), 2)
	assert.Len(t, ix.Search([]string{"gift"}, 0), 3)
}

func TestSearch_Deterministic(t *testing.T) {
	ix := New()
	for d := int64(1); d <= 5; d++ {
		ix.Add(d, []Entry{
			entry(d, string(rune('a'+d))+"1", 0, map[string]int{"budget": int(d), "travel": 1}),
			entry(d, string(rune('a'+d))+"2", 10, map[string]int{"travel": 2}),
		})
	}

	first := ix.Search([]string{"budget", "travel"}, 0)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, ix.Search([]string{"budget", "travel"}, 0))
	}
}

func TestSearch_MoreSharedTermsNeverLowerScore(t *testing.T) {
	ix := New()
	ix.Add(1, []Entry{
		entry(1, "p", 0, map[string]int{"expense": 1, "receipt": 1, "limit": 1}),
		entry(1, "q", 10, map[string]int{"expense": 2}),
	})

	one := ix.Search([]string{"expense"}, 0)
	two := ix.Search([]string{"expense", "receipt"}, 0)

	score := func(hits []Hit, id string) float64 {
		for _, h := range hits {
			if h.PassageID == id {
				return h.Score
			}
		}
		return 0
	}
	assert.Greater(t, score(two, "p"), score(one, "p"))
}

func TestSearch_DuplicateQueryTermsIgnored(t *testing.T) {
	ix := New()
	ix.Add(1, []Entry{entry(1, "a", 0, map[string]int{"gift": 1}), entry(1, "b", 5, map[string]int{"x": 1})})

	assert.Equal(t, ix.Search([]string{"gift"}, 0), ix.Search([]string{"gift", "gift"}, 0))
}

func TestInverseDocumentFrequency(t *testing.T) {
	assert.Greater(t, inverseDocumentFrequency(10, 1), inverseDocumentFrequency(10, 5))
	assert.Greater(t, inverseDocumentFrequency(10, 10), 0.0)
}
