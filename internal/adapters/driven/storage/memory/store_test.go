package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/policycite/internal/adapters/driven/storage/storetest"
	"github.com/custodia-labs/policycite/internal/core/domain"
	"github.com/custodia-labs/policycite/internal/core/ports/driven"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) (driven.CorpusStore, driven.IndexStore) {
		store := NewStore()
		return store, store
	})
}

func TestStore_Fail(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	store.Fail(errors.New("disk full"))
	err := store.Ping(ctx)
	assert.True(t, domain.IsStoreIOError(err))

	_, err = store.UpsertDocument(ctx, storetest.NewDocument("/p/a.txt", "h1"), nil)
	assert.True(t, domain.IsStoreIOError(err))

	store.Fail(nil)
	assert.NoError(t, store.Ping(ctx))
}

func TestStore_Closed(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Close())

	_, err := store.ListDocuments(context.Background())
	assert.ErrorIs(t, err, domain.ErrStoreClosed)
	assert.True(t, domain.IsStoreIOError(err))
}

func TestStore_PostingsRequirePassages(t *testing.T) {
	store := NewStore()
	err := store.ReplaceAllPostings(context.Background(), nil, []domain.Posting{{Token: "a", PassageID: "nope", Frequency: 1}})
	assert.True(t, domain.IsStoreIOError(err))
}

func TestStore_CorruptPostings(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	doc := storetest.NewDocument("/p/a.txt", "h1")
	passages := storetest.NewPassages("h1", 2)
	_, err := store.UpsertDocument(ctx, doc, passages)
	require.NoError(t, err)
	require.NoError(t, store.PutPostings(ctx, doc.ID, storetest.PostingsFor(passages)))

	store.CorruptPostings("h1-1")

	var inconsistent *domain.IndexInconsistency
	require.True(t, errors.As(store.CheckConsistency(ctx), &inconsistent))
	assert.Equal(t, 1, inconsistent.Mismatched)
}
