package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoparts-market/backend/pkg/apperr"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewLocal(root, "/images", nil)

	name, err := store.Store(ctx, dataURI("png", pngBytes), "new")
	require.NoError(t, err)
	assert.Regexp(t, `^adv_new_\d+_[0-9a-f]{12}\.png$`, name)

	got, err := os.ReadFile(filepath.Join(root, "advertising", name))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, got)
	assert.Equal(t, "/images/advertising/"+name, store.URL(name))

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestLocalStorePassThrough(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewLocal(root, "/images", nil)

	url := "https://cdn.example.com/banner.png"
	got, err := store.Store(ctx, url, "3")
	require.NoError(t, err)
	assert.Equal(t, url, got)
	assert.Equal(t, url, store.URL(url))

	got, err = store.Store(ctx, "adv_3_1700000000000.png", "3")
	require.NoError(t, err)
	assert.Equal(t, "adv_3_1700000000000.png", got)

	_, err = os.Stat(store.Dir())
	assert.True(t, os.IsNotExist(err), "pass-through must not create the directory")

	_, err = store.Store(ctx, "../secrets.png", "3")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestLocalStoreRejectsBeforeWriting(t *testing.T) {
	root := t.TempDir()
	store := NewLocal(root, "/images", nil)

	_, err := store.Store(context.Background(), dataURI("tiff", pngBytes), "new")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, statErr := os.Stat(store.Dir())
	assert.True(t, os.IsNotExist(statErr))
}

func TestLocalStoreWriteFailureIsIO(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "blocked")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	store := NewLocal(blocker, "/images", nil)

	_, err := store.Store(context.Background(), dataURI("png", pngBytes), "new")
	assert.ErrorIs(t, err, apperr.ErrIO)
}

func TestLocalRemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewLocal(root, "/images", nil)

	keep, err := store.Store(ctx, dataURI("gif", gifBytes), "1")
	require.NoError(t, err)
	drop, err := store.Store(ctx, dataURI("png", pngBytes), "2")
	require.NoError(t, err)

	require.NoError(t, store.Remove(ctx, drop))
	require.NoError(t, store.Remove(ctx, drop))
	require.NoError(t, store.Remove(ctx, "adv_9_never_written.png"))
	require.NoError(t, store.Remove(ctx, "https://cdn.example.com/a.png"))
	require.NoError(t, store.Remove(ctx, ""))

	_, err = os.Stat(filepath.Join(store.Dir(), drop))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(store.Dir(), keep))
	assert.NoError(t, err, "other files are untouched")
}
