package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLite_ScenarioA_ExactPhraseRanksFirst(t *testing.T) {
	e := newSQLiteEngine(t, t.TempDir())
	budget := e.write(t, "budget.txt", budgetPolicy)
	e.importPaths(t, budget, e.write(t, "annual.txt", annualPolicy))

	citations := e.query(t, "预算审批", 3)

	require.NotEmpty(t, citations)
	assert.Equal(t, e.docByPath(t, budget).ID, citations[0].DocumentID)
	assert.Contains(t, citations[0].Snippet, "[预算审批]")
}

func TestSQLite_ScenarioB_ReimportKeepsCounts(t *testing.T) {
	e := newSQLiteEngine(t, t.TempDir())
	path := e.write(t, "budget.txt", budgetPolicy)

	e.importPaths(t, path)
	first := e.status(t)
	report := e.importPaths(t, path)
	second := e.status(t)

	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, second.DocumentCount)
	assert.Equal(t, first.PassageCount, second.PassageCount)
	assert.Equal(t, first.IndexVersion, second.IndexVersion)
}

func TestSQLite_ScenarioC_CorruptFileIsReported(t *testing.T) {
	e := newSQLiteEngine(t, t.TempDir())
	corrupt := e.write(t, "broken.pdf", "%PDF-1.7\n\x00\x01 truncated")

	report := e.importPaths(t,
		e.write(t, "budget.txt", budgetPolicy),
		corrupt,
		e.write(t, "travel.txt", travelPolicy),
	)

	assert.Equal(t, 2, report.Imported)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, corrupt, report.Errors[0].Path)
	assert.NotEmpty(t, e.query(t, "预算审批", 3))
	assert.NotEmpty(t, e.query(t, "travel expenses", 3))
}

func TestSQLite_ScenarioD_EmptyCorpus(t *testing.T) {
	e := newSQLiteEngine(t, t.TempDir())

	citations, err := e.search.Query(context.Background(), "预算审批", 3)

	require.NoError(t, err)
	assert.NotNil(t, citations)
	assert.Empty(t, citations)
}

func TestSQLite_ReaderSeesWritesFromAnotherEngine(t *testing.T) {
	dir := t.TempDir()
	reader := newSQLiteEngine(t, dir)
	writer := newSQLiteEngine(t, dir)
	budget := writer.write(t, "budget.txt", budgetPolicy)

	assert.Empty(t, reader.query(t, "预算审批", 3))

	writer.importPaths(t, budget)

	citations := reader.query(t, "预算审批", 3)
	require.Len(t, citations, 1)
	assert.Equal(t, budget, citations[0].Path)
	status := reader.status(t)
	assert.Equal(t, 1, status.DocumentCount)
	assert.Equal(t, 1, status.PassageCount)
	assert.NoError(t, reader.indexes.Check(context.Background()))

	removed, err := writer.importer.RemovePath(context.Background(), budget)
	require.NoError(t, err)
	require.True(t, removed)

	assert.Empty(t, reader.query(t, "预算审批", 3))
	assert.Equal(t, 0, reader.status(t).DocumentCount)
}

func TestSQLite_WriterCatchesUpBeforeImport(t *testing.T) {
	dir := t.TempDir()
	first := newSQLiteEngine(t, dir)
	second := newSQLiteEngine(t, dir)

	first.importPaths(t, first.write(t, "budget.txt", budgetPolicy))
	second.importPaths(t, second.write(t, "travel.txt", travelPolicy))

	// The second engine never queried, yet its index holds both documents.
	second.indexes.gate.RLock()
	passages := second.indexes.index.Stats().Passages
	second.indexes.gate.RUnlock()
	assert.Equal(t, 2, passages)
	assert.NoError(t, second.indexes.Check(context.Background()))
}
