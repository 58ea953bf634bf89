package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	key := "books/doc-1/physique.pdf"
	data := []byte("%PDF-1.4 content")

	require.NoError(t, store.Save(ctx, key, data))

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, data, got)

	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, store.Delete(ctx, key))

	exists, err = store.Exists(ctx, key)
	require.NoError(t, err)
	require.False(t, exists)

	_, err = store.Get(ctx, key)
	require.Error(t, err)
}

func TestLocalStoreDeleteMissingKey(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	// Deleting a blob that was never written is not an error.
	require.NoError(t, store.Delete(context.Background(), "books/nope.pdf"))
}

func TestLocalStoreEmptyPath(t *testing.T) {
	_, err := NewLocalStore("")
	require.Error(t, err)
}
