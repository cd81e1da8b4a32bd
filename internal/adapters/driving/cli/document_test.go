package cli

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0, len(documentCmd.Commands()))
	for _, cmd := range documentCmd.Commands() {
		names = append(names, cmd.Name())
	}

	assert.ElementsMatch(t, []string{"list", "show"}, names)
}

func TestDocumentListCmd_Empty(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "document", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "No documents imported.")
}

func TestDocumentListCmd_RejectsArgs(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "document", "list", "extra")

	assert.Error(t, err)
}

func TestDocumentListCmd_ListsDocuments(t *testing.T) {
	env := setupTestServices(t)
	_, err := execute(t, "import", env.write(t, "travel.txt", travelText), env.write(t, "budget.txt", budgetText))
	require.NoError(t, err)

	out, err := execute(t, "document", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "travel")
	assert.Contains(t, out, "budget")
	assert.Contains(t, out, "Status: indexed")
	assert.Contains(t, out, "Total: 2 documents")
}

func TestDocumentShowCmd_WithPassages(t *testing.T) {
	env := setupTestServices(t)
	path := env.write(t, "travel.txt", travelText)
	_, err := execute(t, "import", path)
	require.NoError(t, err)
	doc, err := env.store.FindByPath(t.Context(), path)
	require.NoError(t, err)

	out, err := execute(t, "document", "show", "--passages", strconv.FormatInt(doc.ID, 10))

	require.NoError(t, err)
	assert.Contains(t, out, "Path:     "+path)
	assert.Contains(t, out, "Format:   text")
	assert.Contains(t, out, "economy class")
}

func TestDocumentShowCmd_InvalidID(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "document", "show", "abc")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid document id")
}

func TestDocumentShowCmd_NotFound(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "document", "show", "7")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get document")
}
