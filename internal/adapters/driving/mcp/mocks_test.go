package mcp

import (
	"context"

	"github.com/custodia-labs/policycite/internal/core/domain"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	citations []domain.Citation
	err       error

	gotText string
	gotK    int
}

func (m *mockSearchService) Query(_ context.Context, sentence string, k int) ([]domain.Citation, error) {
	m.gotText, m.gotK = sentence, k
	return m.citations, m.err
}

func (m *mockSearchService) Lookup(_ context.Context, text string, k int) ([]domain.Citation, error) {
	m.gotText, m.gotK = text, k
	return m.citations, m.err
}

// mockImportService is a mock implementation of driving.ImportService.
type mockImportService struct {
	report  *domain.ImportReport
	removed bool
	err     error

	gotPaths []string
	gotID    int64
	gotPath  string
}

func (m *mockImportService) Import(_ context.Context, paths []string) (*domain.ImportReport, error) {
	m.gotPaths = paths
	return m.report, m.err
}

func (m *mockImportService) Remove(_ context.Context, id int64) (bool, error) {
	m.gotID = id
	return m.removed, m.err
}

func (m *mockImportService) RemovePath(_ context.Context, path string) (bool, error) {
	m.gotPath = path
	return m.removed, m.err
}

// mockCorpusService is a mock implementation of driving.CorpusService.
type mockCorpusService struct {
	status   domain.CorpusStatus
	docs     []domain.Document
	passages []domain.Passage
	err      error
}

func (m *mockCorpusService) Status(_ context.Context) (domain.CorpusStatus, error) {
	return m.status, m.err
}

func (m *mockCorpusService) ListDocuments(_ context.Context) ([]domain.Document, error) {
	return m.docs, m.err
}

func (m *mockCorpusService) GetDocument(_ context.Context, id int64) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.docs {
		if m.docs[i].ID == id {
			return &m.docs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockCorpusService) ListPassages(_ context.Context, _ int64) ([]domain.Passage, error) {
	return m.passages, m.err
}
