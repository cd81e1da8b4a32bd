package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policycite/internal/core/ports/driven"
)

func TestConfigStore_InterfaceCompliance(t *testing.T) {
	var _ driven.ConfigStore = NewConfigStore()
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("retrieval.top_k", 7))
	require.NoError(t, store.Set("paths.source_dir", "/srv/policies"))

	assert.Equal(t, 7, store.GetInt("retrieval.top_k"))
	assert.Equal(t, "/srv/policies", store.GetString("paths.source_dir"))
	assert.Equal(t, []string{"paths.source_dir", "retrieval.top_k"}, store.Keys())
}

func TestConfigStore_WrongTypes(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("a", "text"))
	require.NoError(t, store.Set("b", int64(3)))

	assert.Equal(t, 0, store.GetInt("a"))
	assert.Equal(t, 3, store.GetInt("b"))
	assert.Equal(t, "", store.GetString("b"))
	assert.Equal(t, "", store.GetString("missing"))
}

func TestConfigStore_Unset(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("import.workers", 2))
	require.NoError(t, store.Unset("import.workers"))

	_, ok := store.Get("import.workers")
	assert.False(t, ok)
}

func TestConfigStore_NoOps(t *testing.T) {
	store := NewConfigStore()
	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("retrieval.top_k", n)
			_ = store.GetInt("retrieval.top_k")
			_ = store.Keys()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, []string{"retrieval.top_k"}, store.Keys())
}
