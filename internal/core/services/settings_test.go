package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policycite/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/policycite/internal/core/domain"
)

func TestNewSettingsService(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppSettings(), *settings)
	assert.NoError(t, settings.Validate())
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("paths.source_dir", "/srv/policies")
	_ = store.Set("retrieval.top_k", 8)
	_ = store.Set("retrieval.snippet_length", int64(200))
	_ = store.Set("chunking.max_tokens", 128)
	_ = store.Set("chunking.overlap_tokens", 0)
	_ = store.Set("import.workers", 2)

	settings, err := NewSettingsService(store).Get()

	require.NoError(t, err)
	assert.Equal(t, "/srv/policies", settings.Paths.SourceDir)
	assert.Equal(t, 8, settings.Retrieval.TopK)
	assert.Equal(t, 200, settings.Retrieval.SnippetLength)
	assert.Equal(t, 128, settings.Chunking.MaxTokens)
	assert.Equal(t, 0, settings.Chunking.OverlapTokens)
	assert.Equal(t, 2, settings.Import.Workers)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("retrieval.top_k", -1)
	_ = store.Set("import.workers", "many")

	settings, err := NewSettingsService(store).Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultTopK, settings.Retrieval.TopK)
	assert.Equal(t, domain.DefaultWorkers, settings.Import.Workers)
}

func TestSettingsService_CacheSizeAlias(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("query.cache_size", 32)
	service := NewSettingsService(store)

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, 32, settings.Retrieval.CacheSize)

	require.NoError(t, service.Set("query.cache_size", "0"))
	settings, err = service.Get()
	require.NoError(t, err)
	assert.Equal(t, 0, settings.Retrieval.CacheSize)

	value, ok := store.Get("retrieval.cache_size")
	assert.True(t, ok)
	assert.Equal(t, 0, value)
}

func TestSettingsService_Set(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	require.NoError(t, service.Set("retrieval.top_k", " 3 "))
	require.NoError(t, service.Set("paths.data_dir", "/var/lib/policycite"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, 3, settings.Retrieval.TopK)
	assert.Equal(t, "/var/lib/policycite", settings.Paths.DataDir)
}

func TestSettingsService_Set_Invalid(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	tests := []struct {
		key   string
		value string
	}{
		{"retrieval.top_k", "0"},
		{"retrieval.top_k", "five"},
		{"chunking.overlap_tokens", "-1"},
		{"import.workers", "1.5"},
		{"search.mode", "hybrid"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			assert.ErrorIs(t, service.Set(tt.key, tt.value), domain.ErrInvalidInput)
		})
	}
}

func TestSettingsService_Keys(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	assert.Equal(t, []string{
		"chunking.max_tokens",
		"chunking.overlap_tokens",
		"import.workers",
		"paths.data_dir",
		"paths.source_dir",
		"retrieval.cache_size",
		"retrieval.snippet_length",
		"retrieval.top_k",
	}, service.Keys())
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())
	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}
