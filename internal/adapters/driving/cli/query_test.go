package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policycite/internal/core/domain"
)

func TestQueryCmd_Use(t *testing.T) {
	assert.Equal(t, "query [sentence]", queryCmd.Use)
}

func TestQueryCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := execute(t, "query")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestQueryCmd_HasLimitFlag(t *testing.T) {
	flag := queryCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "limit flag should exist")
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "0", flag.DefValue)
}

func TestQueryCmd_ServiceNotConfigured(t *testing.T) {
	clearServices(t)

	_, err := execute(t, "query", "economy flights")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "search service not configured")
}

func TestQueryCmd_PrintsCitationsWithNotice(t *testing.T) {
	env := setupTestServices(t)
	_, err := execute(t, "import", env.write(t, "travel.txt", travelText), env.write(t, "budget.txt", budgetText))
	require.NoError(t, err)

	out, err := execute(t, "query", "economy class flights")

	require.NoError(t, err)
	assert.Contains(t, out, "Citations:")
	assert.Contains(t, out, "[1] travel")
	assert.Contains(t, out, "travel.txt")
	assert.Contains(t, out, nonBindingNotice)
	assert.NotContains(t, out, "budget.txt")
}

func TestQueryCmd_NoMatches(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "query", "submarine")

	require.NoError(t, err)
	assert.Contains(t, out, "No citations found.")
}

func TestQueryCmd_JSON(t *testing.T) {
	env := setupTestServices(t)
	_, err := execute(t, "import", env.write(t, "travel.txt", travelText), env.write(t, "budget.txt", budgetText))
	require.NoError(t, err)

	out, err := execute(t, "query", "--json", "-n", "1", "budget request")
	require.NoError(t, err)

	var citations []domain.Citation
	require.NoError(t, json.Unmarshal([]byte(out), &citations))
	require.Len(t, citations, 1)
	assert.Equal(t, "budget", citations[0].DocumentName)
	assert.Greater(t, citations[0].Score, 0.0)
}
