package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutAndGet(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "uploads/cv-1.pdf", "application/pdf", strings.NewReader("pdf bytes")))

	reader, err := store.Get(ctx, "uploads/cv-1.pdf")
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(data))
}

func TestLocalStore_Get_Missing(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "uploads/absent.pdf")
	assert.Error(t, err)
}

func TestLocalStore_Put_Overwrites(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "k", "text/plain", strings.NewReader("v1")))
	require.NoError(t, store.Put(ctx, "k", "text/plain", strings.NewReader("v2")))

	reader, err := store.Get(ctx, "k")
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestLocalStore_Delete(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "uploads/gone.txt", "text/plain", strings.NewReader("bye")))
	require.NoError(t, store.Delete(ctx, "uploads/gone.txt"))

	_, err = store.Get(ctx, "uploads/gone.txt")
	assert.Error(t, err)

	// Deleting again is a no-op.
	assert.NoError(t, store.Delete(ctx, "uploads/gone.txt"))
}

func TestLocalStore_RejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	assert.Error(t, store.Put(ctx, "../outside", "text/plain", strings.NewReader("x")))
	assert.Error(t, store.Put(ctx, "", "text/plain", strings.NewReader("x")))
	_, err = store.Get(ctx, "/etc/passwd")
	assert.Error(t, err)
}
