package gcs

import (
	"context"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	assert.Error(t, err)

	_, err = New(&storage.Client{}, Config{})
	assert.Error(t, err)
}

func TestObjectNamePrefix(t *testing.T) {
	t.Parallel()

	store, err := New(&storage.Client{}, Config{Bucket: "b", Prefix: "/watcher/"})
	require.NoError(t, err)
	assert.Equal(t, "watcher/seen.json", store.ObjectName("seen.json"))

	bare, err := New(&storage.Client{}, Config{Bucket: "b"})
	require.NoError(t, err)
	assert.Equal(t, "cookies.json", bare.ObjectName("cookies.json"))
}

func TestEmptyNameRejected(t *testing.T) {
	t.Parallel()

	store, err := New(&storage.Client{}, Config{Bucket: "b"})
	require.NoError(t, err)
	ctx := context.Background()
	assert.Error(t, store.Put(ctx, "", nil))
	_, err = store.Get(ctx, "")
	assert.Error(t, err)
}
