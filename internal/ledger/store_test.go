package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/profile-watcher/internal/storage"
	"github.com/JakeFAU/profile-watcher/internal/storage/local"
)

func newLocalStore(t *testing.T) (*Store, storage.Store) {
	t.Helper()
	blobs, err := local.New(local.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	store, err := NewStore(blobs, "")
	require.NoError(t, err)
	return store, blobs
}

func TestStoreRoundTripPreservesOrder(t *testing.T) {
	t.Parallel()

	store, _ := newLocalStore(t)
	ctx := context.Background()
	ids := []string{"333", "111", "222"}

	require.NoError(t, store.Save(ctx, ids))
	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids, got)
}

func TestStoreLoadMissingIsEmpty(t *testing.T) {
	t.Parallel()

	store, _ := newLocalStore(t)
	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStoreLoadCorruptReturnsError(t *testing.T) {
	t.Parallel()

	store, blobs := newLocalStore(t)
	ctx := context.Background()
	require.NoError(t, blobs.Put(ctx, DefaultObjectName, []byte("{not json")))

	_, err := store.Load(ctx)
	assert.Error(t, err)
}

func TestStoreSaveNilWritesEmptyArray(t *testing.T) {
	t.Parallel()

	store, blobs := newLocalStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, nil))

	raw, err := blobs.Get(ctx, DefaultObjectName)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestNewStoreRequiresBackend(t *testing.T) {
	t.Parallel()

	_, err := NewStore(nil, "")
	assert.Error(t, err)
}
