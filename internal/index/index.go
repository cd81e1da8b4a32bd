// Package index holds the in-memory inverted index over passages.
//
// The index is derived state: it can always be rebuilt from the passages in
// the corpus store. Every mutation bumps a version number that callers use
// to key caches and to detect concurrent changes.
package index

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/custodia-labs/policycite/internal/core/domain"
)

// Entry is one passage ready for indexing.
type Entry struct {
	Stats domain.PassageStats

	// Terms maps each distinct term to its frequency in the passage.
	Terms map[string]int
}

// Postings returns the entry's postings sorted by token.
func (e Entry) Postings() []domain.Posting {
	postings := make([]domain.Posting, 0, len(e.Terms))
	for term, tf := range e.Terms {
		postings = append(postings, domain.Posting{
			Token:     term,
			PassageID: e.Stats.ID,
			Frequency: tf,
		})
	}
	slices.SortFunc(postings, func(a, b domain.Posting) int {
		return cmp.Compare(a.Token, b.Token)
	})
	return postings
}

// EntriesFromPostings groups persisted postings by passage. Passages without
// postings still produce an entry.
func EntriesFromPostings(stats []domain.PassageStats, postings []domain.Posting) []Entry {
	byPassage := make(map[string]map[string]int, len(stats))
	for _, p := range postings {
		terms := byPassage[p.PassageID]
		if terms == nil {
			terms = make(map[string]int)
			byPassage[p.PassageID] = terms
		}
		terms[p.Token] += p.Frequency
	}

	entries := make([]Entry, 0, len(stats))
	for _, s := range stats {
		terms := byPassage[s.ID]
		if terms == nil {
			terms = map[string]int{}
		}
		entries = append(entries, Entry{Stats: s, Terms: terms})
	}
	return entries
}

// Stats summarises the index.
type Stats struct {
	Documents int
	Passages  int
	Terms     int
	Version   uint64
}

// Index is an inverted index from terms to passages.
// It is safe for concurrent use; searches never observe a half-applied
// mutation.
type Index struct {
	mu sync.RWMutex

	// postings maps term to passage ID to term frequency.
	postings map[string]map[string]int

	// passages maps passage ID to its stats.
	passages map[string]domain.PassageStats

	// forward maps passage ID to its distinct terms.
	forward map[string][]string

	// byDocument maps document ID to its passage IDs.
	byDocument map[int64][]string

	totalLength int
	version     uint64
}

// New creates an empty index.
func New() *Index {
	ix := &Index{}
	ix.clear()
	return ix
}

func (ix *Index) clear() {
	ix.postings = make(map[string]map[string]int)
	ix.passages = make(map[string]domain.PassageStats)
	ix.forward = make(map[string][]string)
	ix.byDocument = make(map[int64][]string)
	ix.totalLength = 0
}

// Add indexes the passages of one document, replacing any passages the
// document had before.
func (ix *Index) Add(documentID int64, entries []Entry) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.removeDocument(documentID)
	for _, e := range entries {
		e.Stats.DocumentID = documentID
		ix.addEntry(e)
	}
	ix.version++
}

// RemoveDocument drops every passage of a document.
// It reports whether the document was indexed.
func (ix *Index) RemoveDocument(documentID int64) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if !ix.removeDocument(documentID) {
		return false
	}
	ix.version++
	return true
}

// Reset replaces the whole index content.
func (ix *Index) Reset(entries []Entry) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.clear()
	for _, e := range entries {
		ix.addEntry(e)
	}
	ix.version++
}

// Version returns the mutation counter.
func (ix *Index) Version() uint64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.version
}

// Contains reports whether a passage is indexed.
func (ix *Index) Contains(passageID string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.passages[passageID]
	return ok
}

// Stats returns counts and the current version.
func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return Stats{
		Documents: len(ix.byDocument),
		Passages:  len(ix.passages),
		Terms:     len(ix.postings),
		Version:   ix.version,
	}
}

// Fingerprint identifies the indexed passage set and term frequencies.
// Two indexes built from the same passages have the same fingerprint.
func (ix *Index) Fingerprint() string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	ids := make([]string, 0, len(ix.passages))
	for id := range ix.passages {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	d := xxhash.New()
	for _, id := range ids {
		_, _ = d.WriteString(id)
		_, _ = d.WriteString("\x00")
		for _, term := range ix.forward[id] {
			_, _ = fmt.Fprintf(d, "%s=%d\x00", term, ix.postings[term][id])
		}
	}
	return fmt.Sprintf("%016x", d.Sum64())
}

func (ix *Index) addEntry(e Entry) {
	id := e.Stats.ID
	if _, exists := ix.passages[id]; exists {
		ix.removePassage(id)
		ids := ix.byDocument[e.Stats.DocumentID]
		ix.byDocument[e.Stats.DocumentID] = slices.DeleteFunc(ids, func(s string) bool { return s == id })
	}

	terms := make([]string, 0, len(e.Terms))
	for term, tf := range e.Terms {
		if tf <= 0 {
			continue
		}
		plist := ix.postings[term]
		if plist == nil {
			plist = make(map[string]int)
			ix.postings[term] = plist
		}
		plist[id] = tf
		terms = append(terms, term)
	}
	slices.Sort(terms)

	ix.passages[id] = e.Stats
	ix.forward[id] = terms
	ix.byDocument[e.Stats.DocumentID] = append(ix.byDocument[e.Stats.DocumentID], id)
	ix.totalLength += e.Stats.TokenCount
}

func (ix *Index) removeDocument(documentID int64) bool {
	ids, ok := ix.byDocument[documentID]
	if !ok {
		return false
	}
	for _, id := range ids {
		ix.removePassage(id)
	}
	delete(ix.byDocument, documentID)
	return true
}

func (ix *Index) removePassage(id string) {
	for _, term := range ix.forward[id] {
		plist := ix.postings[term]
		delete(plist, id)
		if len(plist) == 0 {
			delete(ix.postings, term)
		}
	}
	ix.totalLength -= ix.passages[id].TokenCount
	delete(ix.forward, id)
	delete(ix.passages, id)
}
