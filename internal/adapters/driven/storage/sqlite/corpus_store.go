package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/policycite/internal/core/domain"
	"github.com/custodia-labs/policycite/internal/core/ports/driven"
)

// maxParams bounds the number of bind parameters in one IN clause.
const maxParams = 500

const documentColumns = `id, path, hash, title, format, status, imported_at`

const passageColumns = `id, document_id, ordinal, text, normalized_text, page, section, "offset", overlap, token_count`

// corpusStore implements driven.CorpusStore.
type corpusStore struct {
	store *Store
}

var _ driven.CorpusStore = (*corpusStore)(nil)

// UpsertDocument stores a document and its passages in one transaction.
func (s *corpusStore) UpsertDocument(ctx context.Context, doc *domain.Document, passages []domain.Passage) (bool, error) {
	if doc == nil || doc.Path == "" || doc.Hash == "" {
		return false, domain.ErrInvalidInput
	}

	importedAt := doc.ImportedAt
	if importedAt.IsZero() {
		importedAt = time.Now()
	}

	var (
		id      int64
		written bool
	)
	err := s.store.withTx(ctx, func(tx *sql.Tx) error {
		var (
			existingHash   string
			existingStatus string
		)
		err := tx.QueryRowContext(ctx,
			"SELECT id, hash, status FROM documents WHERE path = ?", doc.Path,
		).Scan(&id, &existingHash, &existingStatus)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			res, err := tx.ExecContext(ctx, `
				INSERT INTO documents (path, hash, title, format, status, imported_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`, doc.Path, doc.Hash, doc.Title, string(doc.Format), string(domain.StatusIndexed), formatTime(importedAt))
			if err != nil {
				return fmt.Errorf("inserting document: %w", err)
			}
			if id, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("reading document id: %w", err)
			}

		case err != nil:
			return fmt.Errorf("finding document: %w", err)

		case existingHash == doc.Hash && existingStatus == string(domain.StatusIndexed):
			return nil

		default:
			_, err := tx.ExecContext(ctx, `
				UPDATE documents SET hash = ?, title = ?, format = ?, status = ?, imported_at = ?
				WHERE id = ?
			`, doc.Hash, doc.Title, string(doc.Format), string(domain.StatusIndexed), formatTime(importedAt), id)
			if err != nil {
				return fmt.Errorf("updating document: %w", err)
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM passages WHERE document_id = ?", id); err != nil {
				return fmt.Errorf("deleting passages: %w", err)
			}
		}

		if err := insertPassages(ctx, tx, id, passages); err != nil {
			return err
		}
		written = true
		return bumpGeneration(ctx, tx)
	})
	if err != nil {
		return false, storeErr("upsert document", err)
	}

	doc.ID = id
	if written {
		doc.Status = domain.StatusIndexed
		doc.ImportedAt = importedAt
		for i := range passages {
			passages[i].DocumentID = id
		}
	}
	return written, nil
}

func insertPassages(ctx context.Context, tx *sql.Tx, documentID int64, passages []domain.Passage) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO passages (`+passageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing passage insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range passages {
		_, err := stmt.ExecContext(ctx, p.ID, documentID, p.Ordinal, p.Text, p.NormalizedText,
			p.Position.Page, p.Position.Section, p.Position.Offset, p.Position.Overlap, p.TokenCount)
		if err != nil {
			return fmt.Errorf("inserting passage %d: %w", p.Ordinal, err)
		}
	}
	return nil
}

// MarkStale flags a document whose source bytes changed.
func (s *corpusStore) MarkStale(ctx context.Context, id int64) error {
	err := s.store.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE documents SET status = ? WHERE id = ?", string(domain.StatusStale), id)
		if err != nil {
			return err
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		return bumpGeneration(ctx, tx)
	})
	return storeErr("mark stale", err)
}

// RemoveDocument deletes a document; passages and postings cascade.
func (s *corpusStore) RemoveDocument(ctx context.Context, id int64) error {
	err := s.store.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
		if err != nil {
			return err
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		return bumpGeneration(ctx, tx)
	})
	return storeErr("remove document", err)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("rows affected", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *corpusStore) GetDocument(ctx context.Context, id int64) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	doc, err := scanDocument(row)
	return doc, storeErr("get document", err)
}

// FindByPath returns the document stored for a path.
func (s *corpusStore) FindByPath(ctx context.Context, path string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE path = ?", path)
	doc, err := scanDocument(row)
	return doc, storeErr("find by path", err)
}

// FindByHash returns the oldest document with a content hash.
func (s *corpusStore) FindByHash(ctx context.Context, hash string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE hash = ? ORDER BY id LIMIT 1", hash)
	doc, err := scanDocument(row)
	return doc, storeErr("find by hash", err)
}

// ListDocuments returns all documents ordered by ID.
func (s *corpusStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT "+documentColumns+" FROM documents ORDER BY id")
	if err != nil {
		return nil, storeErr("list documents", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, storeErr("list documents", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list documents", err)
	}
	return docs, nil
}

// ListPassages returns a document's passages ordered by ordinal.
func (s *corpusStore) ListPassages(ctx context.Context, documentID int64) ([]domain.Passage, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+passageColumns+" FROM passages WHERE document_id = ? ORDER BY ordinal", documentID)
	if err != nil {
		return nil, storeErr("list passages", err)
	}
	defer rows.Close()

	var passages []domain.Passage //nolint:prealloc // size unknown from query
	for rows.Next() {
		p, err := scanPassage(rows)
		if err != nil {
			return nil, storeErr("list passages", err)
		}
		passages = append(passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list passages", err)
	}
	return passages, nil
}

// ListPassageStats returns the index projection of every passage.
func (s *corpusStore) ListPassageStats(ctx context.Context) ([]domain.PassageStats, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT id, document_id, "offset", token_count FROM passages ORDER BY document_id, ordinal`)
	if err != nil {
		return nil, storeErr("list passage stats", err)
	}
	defer rows.Close()

	var stats []domain.PassageStats //nolint:prealloc // size unknown from query
	for rows.Next() {
		var st domain.PassageStats
		if err := rows.Scan(&st.ID, &st.DocumentID, &st.Offset, &st.TokenCount); err != nil {
			return nil, storeErr("list passage stats", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list passage stats", err)
	}
	return stats, nil
}

// GetPassages retrieves passages by ID. Missing IDs are omitted.
func (s *corpusStore) GetPassages(ctx context.Context, ids []string) (map[string]domain.Passage, error) {
	result := make(map[string]domain.Passage, len(ids))

	for start := 0; start < len(ids); start += maxParams {
		batch := ids[start:min(start+maxParams, len(ids))]
		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")

		rows, err := s.store.db.QueryContext(ctx,
			"SELECT "+passageColumns+" FROM passages WHERE id IN ("+placeholders+")", args...)
		if err != nil {
			return nil, storeErr("get passages", err)
		}

		for rows.Next() {
			p, err := scanPassage(rows)
			if err != nil {
				rows.Close()
				return nil, storeErr("get passages", err)
			}
			result[p.ID] = p
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, storeErr("get passages", err)
		}
	}

	return result, nil
}

// Status returns document and passage counts.
func (s *corpusStore) Status(ctx context.Context) (domain.CorpusStatus, error) {
	var (
		status     domain.CorpusStatus
		stale      sql.NullInt64
		lastImport sql.NullString
	)

	err := s.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*), SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), MAX(imported_at)
		FROM documents
	`, string(domain.StatusStale)).Scan(&status.DocumentCount, &stale, &lastImport)
	if err != nil {
		return status, storeErr("status", err)
	}
	status.StaleCount = int(stale.Int64)

	if lastImport.Valid {
		t, err := parseTime(lastImport.String)
		if err != nil {
			return status, storeErr("status", err)
		}
		status.LastImportTime = t
	}

	if err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM passages").Scan(&status.PassageCount); err != nil {
		return status, storeErr("status", err)
	}

	return status, nil
}

// Ping verifies the database answers.
func (s *corpusStore) Ping(ctx context.Context) error {
	return storeErr("ping", s.store.db.PingContext(ctx))
}

// Close closes the underlying database.
func (s *corpusStore) Close() error {
	return s.store.Close()
}

// ==================== Helper Functions ====================

type scanner interface {
	Scan(dest ...any) error
}

// scanDocument scans a single document row.
func scanDocument(row scanner) (*domain.Document, error) {
	var (
		doc        domain.Document
		format     string
		status     string
		importedAt string
	)

	if err := row.Scan(&doc.ID, &doc.Path, &doc.Hash, &doc.Title, &format, &status, &importedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	t, err := parseTime(importedAt)
	if err != nil {
		return nil, err
	}

	doc.Format = domain.Format(format)
	doc.Status = domain.ExtractionStatus(status)
	doc.ImportedAt = t
	return &doc, nil
}

// scanPassage scans a passage row.
func scanPassage(row scanner) (domain.Passage, error) {
	var p domain.Passage
	err := row.Scan(&p.ID, &p.DocumentID, &p.Ordinal, &p.Text, &p.NormalizedText,
		&p.Position.Page, &p.Position.Section, &p.Position.Offset, &p.Position.Overlap, &p.TokenCount)
	if err != nil {
		return p, fmt.Errorf("scanning passage: %w", err)
	}
	return p, nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time %q: %w", s, err)
	}
	return t, nil
}
