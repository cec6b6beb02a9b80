package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/profile-watcher/internal/monitor"
	"github.com/JakeFAU/profile-watcher/internal/storage/memory"
)

type brokenBlobs struct{}

func (brokenBlobs) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("permission denied")
}

func (brokenBlobs) Put(context.Context, string, []byte) error {
	return errors.New("read-only filesystem")
}

func TestLoadMissingIsEmpty(t *testing.T) {
	t.Parallel()

	store, err := NewStore(memory.NewBlobStore(), "", zap.NewNop())
	require.NoError(t, err)
	assert.True(t, store.Load(context.Background()).Empty())
}

func TestLoadUnreadableIsEmpty(t *testing.T) {
	t.Parallel()

	store, err := NewStore(brokenBlobs{}, "", nil)
	require.NoError(t, err)
	assert.True(t, store.Load(context.Background()).Empty())
}

func TestSaveLoadRoundTripsBytes(t *testing.T) {
	t.Parallel()

	blobs := memory.NewBlobStore()
	store, err := NewStore(blobs, "jar.json", zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	state := monitor.SessionState("not even json \x00\xff")
	require.NoError(t, store.Save(ctx, state))
	assert.Equal(t, state, store.Load(ctx))

	raw, err := blobs.Get(ctx, "jar.json")
	require.NoError(t, err)
	assert.Equal(t, []byte(state), raw)
}

func TestSaveFailureIsPersistError(t *testing.T) {
	t.Parallel()

	store, err := NewStore(brokenBlobs{}, "", zap.NewNop())
	require.NoError(t, err)

	err = store.Save(context.Background(), monitor.SessionState("[]"))
	require.Error(t, err)
	assert.ErrorIs(t, err, monitor.ErrPersist)
}

func TestNewStoreRequiresBackend(t *testing.T) {
	t.Parallel()

	_, err := NewStore(nil, "", nil)
	assert.Error(t, err)
}
