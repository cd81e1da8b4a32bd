package index

import (
	"cmp"
	"math"
	"slices"
)

// BM25 parameters.
const (
	k1 = 1.2
	b  = 0.75
)

// Hit is a scored passage.
type Hit struct {
	PassageID  string
	DocumentID int64
	Offset     int

	// Score is the normalized relevance in (0, 1).
	Score float64
}

// Search ranks passages sharing at least one term with the query.
// Results are ordered by score descending, then document ID, offset and
// passage ID ascending. k <= 0 returns every match.
func (ix *Index) Search(terms []string, k int) []Hit {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	n := len(ix.passages)
	if n == 0 || len(terms) == 0 {
		return []Hit{}
	}
	avgLength := float64(ix.totalLength) / float64(n)
	if avgLength <= 0 {
		avgLength = 1
	}

	seen := make(map[string]struct{}, len(terms))
	raw := make(map[string]float64)
	for _, term := range terms {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}

		plist := ix.postings[term]
		if len(plist) == 0 {
			continue
		}
		idf := inverseDocumentFrequency(n, len(plist))
		for id, tf := range plist {
			length := float64(ix.passages[id].TokenCount)
			f := float64(tf)
			raw[id] += idf * (f * (k1 + 1)) / (f + k1*(1-b+b*length/avgLength))
		}
	}

	hits := make([]Hit, 0, len(raw))
	for id, score := range raw {
		stats := ix.passages[id]
		hits = append(hits, Hit{
			PassageID:  id,
			DocumentID: stats.DocumentID,
			Offset:     stats.Offset,
			Score:      score / (score + 1),
		})
	}

	slices.SortFunc(hits, compareHits)
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// inverseDocumentFrequency is the BM25 IDF with the +1 floor that keeps it
// positive for terms present in most passages.
func inverseDocumentFrequency(n, df int) float64 {
	return math.Log(1 + (float64(n-df)+0.5)/(float64(df)+0.5))
}

func compareHits(a, b Hit) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if c := cmp.Compare(a.DocumentID, b.DocumentID); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Offset, b.Offset); c != 0 {
		return c
	}
	return cmp.Compare(a.PassageID, b.PassageID)
}
