package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/policycite/internal/core/domain"
	"github.com/custodia-labs/policycite/internal/core/ports/driven"
)

// indexStore implements driven.IndexStore.
type indexStore struct {
	store *Store
}

var _ driven.IndexStore = (*indexStore)(nil)

// LoadPostings returns every persisted posting.
func (s *indexStore) LoadPostings(ctx context.Context) ([]domain.Posting, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT token, passage_id, tf FROM postings")
	if err != nil {
		return nil, storeErr("load postings", err)
	}
	defer rows.Close()

	var postings []domain.Posting //nolint:prealloc // size unknown from query
	for rows.Next() {
		var p domain.Posting
		if err := rows.Scan(&p.Token, &p.PassageID, &p.Frequency); err != nil {
			return nil, storeErr("load postings", err)
		}
		postings = append(postings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("load postings", err)
	}
	return postings, nil
}

// PutPostings replaces the postings of one document's passages.
func (s *indexStore) PutPostings(ctx context.Context, documentID int64, postings []domain.Posting) error {
	err := s.store.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM postings
			WHERE passage_id IN (SELECT id FROM passages WHERE document_id = ?)
		`, documentID)
		if err != nil {
			return fmt.Errorf("deleting postings: %w", err)
		}
		if err := insertPostings(ctx, tx, postings); err != nil {
			return err
		}
		return bumpGeneration(ctx, tx)
	})
	return storeErr("put postings", err)
}

// ReplaceAllPostings rewrites passage token counts, discards every posting
// and writes the given set.
func (s *indexStore) ReplaceAllPostings(
	ctx context.Context, stats []domain.PassageStats, postings []domain.Posting,
) error {
	err := s.store.withTx(ctx, func(tx *sql.Tx) error {
		if err := updateTokenCounts(ctx, tx, stats); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM postings"); err != nil {
			return fmt.Errorf("clearing postings: %w", err)
		}
		if err := insertPostings(ctx, tx, postings); err != nil {
			return err
		}
		return bumpGeneration(ctx, tx)
	})
	return storeErr("replace postings", err)
}

func updateTokenCounts(ctx context.Context, tx *sql.Tx, stats []domain.PassageStats) error {
	stmt, err := tx.PrepareContext(ctx, "UPDATE passages SET token_count = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("preparing token count update: %w", err)
	}
	defer stmt.Close()

	for _, st := range stats {
		if _, err := stmt.ExecContext(ctx, st.TokenCount, st.ID); err != nil {
			return fmt.Errorf("updating token count: %w", err)
		}
	}
	return nil
}

func insertPostings(ctx context.Context, tx *sql.Tx, postings []domain.Posting) error {
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO postings (token, passage_id, tf) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing posting insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range postings {
		if _, err := stmt.ExecContext(ctx, p.Token, p.PassageID, p.Frequency); err != nil {
			return fmt.Errorf("inserting posting: %w", err)
		}
	}
	return nil
}

// Meta returns an index metadata value.
func (s *indexStore) Meta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.store.db.QueryRowContext(ctx, "SELECT value FROM index_meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storeErr("read index meta", err)
	}
	return value, true, nil
}

// SetMeta stores an index metadata value.
func (s *indexStore) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO index_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return storeErr("write index meta", err)
}

// Generation returns the write counter. Commits from other processes sharing
// the database file are visible.
func (s *indexStore) Generation(ctx context.Context) (int64, error) {
	var gen int64
	err := s.store.db.QueryRowContext(ctx, "SELECT value FROM corpus_generation WHERE id = 1").Scan(&gen)
	if err != nil {
		return 0, storeErr("read generation", err)
	}
	return gen, nil
}

func bumpGeneration(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, "UPDATE corpus_generation SET value = value + 1 WHERE id = 1"); err != nil {
		return fmt.Errorf("bumping generation: %w", err)
	}
	return nil
}

// CheckConsistency counts passages whose posting frequencies do not add up
// to their token count. Passages with no postings count as mismatched unless
// they have no tokens.
func (s *indexStore) CheckConsistency(ctx context.Context) error {
	var mismatched int
	err := s.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM (
			SELECT p.id
			FROM passages p
			LEFT JOIN postings x ON x.passage_id = p.id
			GROUP BY p.id
			HAVING p.token_count != COALESCE(SUM(x.tf), 0)
		)
	`).Scan(&mismatched)
	if err != nil {
		return storeErr("check consistency", err)
	}

	if mismatched > 0 {
		return &domain.IndexInconsistency{Reason: "postings disagree with passages", Mismatched: mismatched}
	}
	return nil
}
