package cli

import (
	"bytes"
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policycite/internal/connectors/filesystem"
	"github.com/custodia-labs/policycite/internal/core/domain"
)

func newOutputCmd() (*cobra.Command, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	return cmd, buf
}

func TestWatchCmd_Flags(t *testing.T) {
	for _, name := range []string{"dir", "no-initial", "debounce", "interval"} {
		assert.NotNil(t, watchCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, filesystem.DefaultDebounce.String(), watchCmd.Flags().Lookup("debounce").DefValue)
}

func TestWatchCmd_NoSourceDir(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "watch")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "paths.source_dir is not set")
}

func TestApplyBatch_UpsertAndRemove(t *testing.T) {
	env := setupTestServices(t)
	cmd, buf := newOutputCmd()
	ctx := t.Context()

	travel := env.write(t, "travel.txt", travelText)
	require.NoError(t, applyBatch(ctx, cmd, filesystem.Batch{Upserted: []string{travel}}))
	assert.Contains(t, buf.String(), "Imported: 1")
	env.docID(t, travel)

	require.NoError(t, os.Remove(travel))
	buf.Reset()
	require.NoError(t, applyBatch(ctx, cmd, filesystem.Batch{Removed: []string{travel}}))
	assert.Contains(t, buf.String(), "removed")

	_, err := env.store.FindByPath(ctx, travel)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApplyBatch_UnchangedIsQuiet(t *testing.T) {
	env := setupTestServices(t)
	cmd, buf := newOutputCmd()
	travel := env.write(t, "travel.txt", travelText)

	require.NoError(t, applyBatch(t.Context(), cmd, filesystem.Batch{Upserted: []string{travel}}))
	buf.Reset()
	require.NoError(t, applyBatch(t.Context(), cmd, filesystem.Batch{Upserted: []string{travel}}))

	assert.Empty(t, buf.String())
}

func TestApplyBatch_EmptyAndUnknown(t *testing.T) {
	env := setupTestServices(t)
	cmd, buf := newOutputCmd()

	require.NoError(t, applyBatch(t.Context(), cmd, filesystem.Batch{}))
	require.NoError(t, applyBatch(t.Context(), cmd, filesystem.Batch{Removed: []string{env.dir + "/gone.txt"}}))

	assert.Empty(t, buf.String())
}

func TestApplyBatch_WriterBusySkips(t *testing.T) {
	env := setupTestServices(t)
	env.indexes.SetWriterLock(busyLock{})
	cmd, _ := newOutputCmd()

	err := applyBatch(t.Context(), cmd, filesystem.Batch{
		Upserted: []string{env.write(t, "travel.txt", travelText)},
		Removed:  []string{env.dir + "/old.txt"},
	})

	assert.NoError(t, err)
}
