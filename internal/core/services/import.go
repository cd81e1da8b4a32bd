package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/policycite/internal/chunker"
	"github.com/custodia-labs/policycite/internal/core/domain"
	"github.com/custodia-labs/policycite/internal/core/ports/driven"
	"github.com/custodia-labs/policycite/internal/core/ports/driving"
	"github.com/custodia-labs/policycite/internal/index"
	"github.com/custodia-labs/policycite/internal/logger"
)

// Ensure ImportService implements the interface.
var (
	_ driving.ImportService    = (*ImportService)(nil)
	_ driving.ProgressReporter = (*ImportService)(nil)
)

// passageNamespace scopes passage UUIDs.
var passageNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("policycite:passage"))

// PassageID returns the stable passage identifier for a content hash and ordinal.
func PassageID(hash string, ordinal int) string {
	return uuid.NewSHA1(passageNamespace, []byte(hash+":"+strconv.Itoa(ordinal))).String()
}

// ImportService imports policy files into the corpus.
type ImportService struct {
	indexes  *IndexService
	corpus   driven.CorpusStore
	registry driven.ExtractorRegistry
	chunker  *chunker.Chunker
	workers  int

	readFile func(string) ([]byte, error)
	now      func() time.Time
	progress driving.ProgressFunc
}

// NewImportService creates an import service. The chunker must segment with
// the index service's analyzer.
func NewImportService(
	indexes *IndexService,
	corpus driven.CorpusStore,
	registry driven.ExtractorRegistry,
	chunk *chunker.Chunker,
	workers int,
) *ImportService {
	if chunk == nil {
		chunk = chunker.New(indexes.Analyzer())
	}
	if workers <= 0 {
		workers = domain.DefaultWorkers
	}
	return &ImportService{
		indexes:  indexes,
		corpus:   corpus,
		registry: registry,
		chunker:  chunk,
		workers:  workers,
		readFile: os.ReadFile,
		now:      time.Now,
	}
}

// SetProgressFunc sets a callback invoked as each path is settled.
func (s *ImportService) SetProgressFunc(fn driving.ProgressFunc) {
	s.progress = fn
}

// prepared is a path read, hashed and (when needed) extracted ahead of commit.
type prepared struct {
	path string
	hash string
	text *domain.NormalizedText
	err  error

	// skip is set when the content is known to be indexed already, so
	// extraction was not attempted.
	skip bool
}

// Import extracts, chunks and indexes the files at paths.
//
// Files are read and extracted in parallel in windows of the configured
// worker count; commits happen one document at a time in input order.
// On cancellation the committed documents stay, the report so far is
// returned with the context error.
func (s *ImportService) Import(ctx context.Context, paths []string) (*domain.ImportReport, error) {
	release, err := s.indexes.beginSync(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	logger.Section("Import")
	defer logger.Timed("import")()

	report := &domain.ImportReport{
		Errors:    []domain.ImportError{},
		Documents: []domain.ImportedDocument{},
	}

	if err := s.corpus.Ping(ctx); err != nil {
		return report, domain.NewStoreIOError("ping", err)
	}
	if err := s.indexes.markTokenizer(ctx); err != nil {
		return report, err
	}

	done := 0
	for start := 0; start < len(paths); start += s.workers {
		end := min(start+s.workers, len(paths))
		if err := ctx.Err(); err != nil {
			report.Cancelled = true
			return report, err
		}

		window := s.prepareAll(ctx, paths[start:end])
		for i := range window {
			if err := ctx.Err(); err != nil {
				report.Cancelled = true
				return report, err
			}
			if err := s.settle(ctx, &window[i], report); err != nil {
				return report, err
			}
			done++
			if s.progress != nil {
				s.progress(done, len(paths), window[i].path)
			}
		}
	}

	logger.Info("Imported %d, skipped %d, failed %d", report.Imported, report.Skipped, len(report.Errors))
	return report, nil
}

// Remove deletes a document with its passages and postings.
func (s *ImportService) Remove(ctx context.Context, documentID int64) (bool, error) {
	release, err := s.indexes.beginSync(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	removed, err := s.indexes.remove(ctx, documentID)
	if err != nil {
		return false, err
	}
	if removed {
		logger.Info("Removed document %d", documentID)
	}
	return removed, nil
}

// RemovePath deletes the document stored for path.
func (s *ImportService) RemovePath(ctx context.Context, path string) (bool, error) {
	release, err := s.indexes.beginSync(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	doc, err := s.corpus.FindByPath(ctx, path)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	removed, err := s.indexes.remove(ctx, doc.ID)
	if err != nil {
		return false, err
	}
	if removed {
		logger.Info("Removed document %d (%s)", doc.ID, path)
	}
	return removed, nil
}

// prepareAll reads and extracts a window of paths concurrently.
// Results keep the input order.
func (s *ImportService) prepareAll(ctx context.Context, paths []string) []prepared {
	results := make([]prepared, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, path := range paths {
		g.Go(func() error {
			results[i] = s.prepare(gctx, path)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *ImportService) prepare(ctx context.Context, path string) prepared {
	p := prepared{path: path}

	content, err := s.readFile(path)
	if err != nil {
		p.err = domain.NewExtractionError(path, domain.FormatFromExtension(path), domain.ReasonIO, err)
		return p
	}
	sum := sha256.Sum256(content)
	p.hash = hex.EncodeToString(sum[:])

	if s.alreadyIndexed(ctx, path, p.hash) {
		p.skip = true
		return p
	}

	p.text, p.err = s.registry.Extract(ctx, path, content)
	return p
}

// alreadyIndexed reports whether the hash is indexed, at this path or another.
// Lookup failures are treated as not indexed; settle decides again.
func (s *ImportService) alreadyIndexed(ctx context.Context, path, hash string) bool {
	if doc, err := s.corpus.FindByPath(ctx, path); err == nil {
		if doc.Hash == hash {
			return doc.Status == domain.StatusIndexed
		}
	}
	doc, err := s.corpus.FindByHash(ctx, hash)
	return err == nil && doc.Path != path
}

// settle decides the outcome for one prepared path and commits it.
// It returns an error only when the batch must stop.
func (s *ImportService) settle(ctx context.Context, p *prepared, report *domain.ImportReport) error {
	if p.hash == "" {
		s.fail(report, p.path, p.err)
		return nil
	}

	existing, err := s.corpus.FindByPath(ctx, p.path)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return s.storeFailure(ctx, report, p.path, err)
	}
	if errors.Is(err, domain.ErrNotFound) {
		existing = nil
	}

	if existing != nil && existing.Hash == p.hash && existing.Status == domain.StatusIndexed {
		logger.Debug("Unchanged: %s", p.path)
		s.skipped(report, p.path, existing.ID, domain.OutcomeUnchanged)
		return nil
	}

	changed := existing != nil && existing.Hash != p.hash
	if changed && existing.Status == domain.StatusIndexed {
		if err := s.indexes.markStale(ctx, existing.ID); err != nil {
			return s.storeFailure(ctx, report, p.path, err)
		}
		logger.Debug("Marked stale: %s", p.path)
	}

	if existing == nil || changed {
		dup, err := s.corpus.FindByHash(ctx, p.hash)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return s.storeFailure(ctx, report, p.path, err)
		}
		if err == nil && dup.Path != p.path {
			logger.Debug("Duplicate of %s: %s", dup.Path, p.path)
			s.skipped(report, p.path, dup.ID, domain.OutcomeDuplicate)
			return nil
		}
	}

	if p.skip {
		p.skip = false
		content, err := s.readFile(p.path)
		if err == nil {
			p.text, p.err = s.registry.Extract(ctx, p.path, content)
		} else {
			p.err = domain.NewExtractionError(p.path, domain.FormatFromExtension(p.path), domain.ReasonIO, err)
		}
	}
	if p.err != nil {
		s.fail(report, p.path, p.err)
		return nil
	}

	doc := &domain.Document{
		Path:       p.path,
		Hash:       p.hash,
		Title:      p.text.Title,
		Format:     p.text.Format,
		ImportedAt: s.now().UTC(),
	}
	if doc.Title == "" {
		doc.Title = domain.DocumentNameFromPath(p.path)
	}
	passages, entries := s.passages(p.hash, p.text)

	// A commit in progress is finished even if ctx is cancelled meanwhile.
	written, err := s.indexes.commit(context.WithoutCancel(ctx), doc, passages, entries)
	if err != nil {
		return s.storeFailure(ctx, report, p.path, err)
	}

	outcome := domain.OutcomeImported
	switch {
	case !written:
		s.skipped(report, p.path, doc.ID, domain.OutcomeUnchanged)
		return nil
	case existing != nil:
		outcome = domain.OutcomeReplaced
	}

	report.Imported++
	report.Documents = append(report.Documents, domain.ImportedDocument{
		Path:       p.path,
		DocumentID: doc.ID,
		Outcome:    outcome,
		Passages:   len(passages),
	})
	logger.Debug("%s %s: %d passages", outcome, p.path, len(passages))
	return nil
}

// passages chunks normalized text into passages and their index entries.
func (s *ImportService) passages(hash string, text *domain.NormalizedText) ([]domain.Passage, []index.Entry) {
	analyzer := s.indexes.Analyzer()

	var (
		passages []domain.Passage
		entries  []index.Entry
	)
	for chunk := range s.chunker.Scan(text.Text).All() {
		terms, count := analyzer.Frequencies(chunk.Text)
		p := domain.Passage{
			ID:             PassageID(hash, chunk.Ordinal),
			Ordinal:        chunk.Ordinal,
			Text:           chunk.Text,
			NormalizedText: foldText(chunk.Text),
			Position: domain.Position{
				Page:    text.PageAt(chunk.CoreStart),
				Section: chunk.Section,
				Offset:  chunk.CoreStart,
				Overlap: chunk.Overlap(),
			},
			TokenCount: count,
		}
		passages = append(passages, p)
		entries = append(entries, index.Entry{Stats: p.Stats(), Terms: terms})
	}
	return passages, entries
}

// foldText lowercases text and folds whitespace runs to single spaces.
func foldText(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// storeFailure records a failed commit. When the store no longer answers the
// batch stops with a StoreIOError.
func (s *ImportService) storeFailure(ctx context.Context, report *domain.ImportReport, path string, err error) error {
	if pingErr := s.corpus.Ping(context.WithoutCancel(ctx)); pingErr != nil {
		logger.Error("Store unavailable, aborting import: %v", pingErr)
		return domain.NewStoreIOError("ping", pingErr)
	}
	s.fail(report, path, fmt.Errorf("commit: %w", err))
	return nil
}

func (s *ImportService) fail(report *domain.ImportReport, path string, err error) {
	logger.Warn("Skipping %s: %v", path, err)
	report.Errors = append(report.Errors, domain.ImportError{Path: path, Reason: err.Error()})
	report.Documents = append(report.Documents, domain.ImportedDocument{
		Path:    path,
		Outcome: domain.OutcomeFailed,
	})
}

func (s *ImportService) skipped(report *domain.ImportReport, path string, id int64, outcome domain.ImportOutcome) {
	report.Skipped++
	report.Documents = append(report.Documents, domain.ImportedDocument{
		Path:       path,
		DocumentID: id,
		Outcome:    outcome,
	})
}
