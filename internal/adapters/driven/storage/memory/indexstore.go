package memory

import (
	"context"

	"github.com/custodia-labs/policycite/internal/core/domain"
)

// LoadPostings returns every posting.
func (s *Store) LoadPostings(_ context.Context) ([]domain.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("load postings"); err != nil {
		return nil, err
	}

	var postings []domain.Posting
	for _, list := range s.postings {
		postings = append(postings, list...)
	}
	return postings, nil
}

// PutPostings replaces the postings of one document's passages.
// Postings for passages that do not exist are rejected, as a foreign key would.
func (s *Store) PutPostings(_ context.Context, documentID int64, postings []domain.Posting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("put postings"); err != nil {
		return err
	}

	for _, p := range s.passages[documentID] {
		delete(s.postings, p.ID)
	}
	return s.insertPostings(postings)
}

// ReplaceAllPostings rewrites passage token counts, discards every posting
// and writes the given set.
func (s *Store) ReplaceAllPostings(_ context.Context, stats []domain.PassageStats, postings []domain.Posting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("replace postings"); err != nil {
		return err
	}

	counts := make(map[string]int, len(stats))
	for _, st := range stats {
		counts[st.ID] = st.TokenCount
	}
	for docID, passages := range s.passages {
		for i := range passages {
			if n, ok := counts[passages[i].ID]; ok {
				s.passages[docID][i].TokenCount = n
			}
		}
	}

	s.postings = make(map[string][]domain.Posting)
	return s.insertPostings(postings)
}

// insertPostings must be called with the lock held. It bumps the generation
// when every posting is written.
func (s *Store) insertPostings(postings []domain.Posting) error {
	known := make(map[string]struct{})
	for _, passages := range s.passages {
		for _, p := range passages {
			known[p.ID] = struct{}{}
		}
	}

	for _, p := range postings {
		if _, ok := known[p.PassageID]; !ok {
			return domain.NewStoreIOError("insert posting", domain.ErrNotFound)
		}
	}
	for _, p := range postings {
		s.postings[p.PassageID] = append(s.postings[p.PassageID], p)
	}
	s.gen++
	return nil
}

// Generation returns the write counter.
func (s *Store) Generation(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("read generation"); err != nil {
		return 0, err
	}
	return s.gen, nil
}

// Meta returns an index metadata value.
func (s *Store) Meta(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("read index meta"); err != nil {
		return "", false, err
	}
	value, ok := s.meta[key]
	return value, ok, nil
}

// SetMeta stores an index metadata value.
func (s *Store) SetMeta(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("write index meta"); err != nil {
		return err
	}
	s.meta[key] = value
	return nil
}

// CheckConsistency counts passages whose posting frequencies do not add up
// to their token count.
func (s *Store) CheckConsistency(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check("check consistency"); err != nil {
		return err
	}

	mismatched := 0
	for _, passages := range s.passages {
		for _, p := range passages {
			sum := 0
			for _, posting := range s.postings[p.ID] {
				sum += posting.Frequency
			}
			if sum != p.TokenCount {
				mismatched++
			}
		}
	}

	if mismatched > 0 {
		return &domain.IndexInconsistency{Reason: "postings disagree with passages", Mismatched: mismatched}
	}
	return nil
}

// CorruptPostings drops the postings of one passage. It simulates a crash
// between a passage commit and its postings write.
func (s *Store) CorruptPostings(passageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.postings, passageID)
}
