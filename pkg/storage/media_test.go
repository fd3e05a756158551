package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *MediaStore {
	t.Helper()
	store, err := NewMediaStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func readRef(t *testing.T, store *MediaStore, ref string) string {
	t.Helper()
	file, err := store.Open(ref)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	return string(data)
}

func TestMediaStoreSaveAndOpen(t *testing.T) {
	store := newTestStore(t)

	ref, err := store.Save("Banner.PNG", strings.NewReader("image-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(ref, ".png"), "extension should be lowercased, got %s", ref)
	assert.Equal(t, "image-bytes", readRef(t, store, ref))
}

func TestMediaStoreDuplicate(t *testing.T) {
	store := newTestStore(t)

	ref, err := store.Save("logo.jpg", strings.NewReader("original"))
	require.NoError(t, err)

	copyRef, err := store.Duplicate(ref)
	require.NoError(t, err)
	assert.NotEqual(t, ref, copyRef)
	assert.Equal(t, "original", readRef(t, store, copyRef))

	require.NoError(t, store.Delete(ref))
	assert.Equal(t, "original", readRef(t, store, copyRef))
}

func TestMediaStoreDuplicateMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Duplicate("nope.png")
	require.Error(t, err)
}

func TestMediaStoreDeleteMissingIsNoop(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Delete("never-saved.png"))
}

func TestMediaStoreResolveStaysInsideBaseDir(t *testing.T) {
	base := t.TempDir()
	store, err := NewMediaStore(base)
	require.NoError(t, err)

	outside := filepath.Join(filepath.Dir(base), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o600))

	_, err = store.Open("../secret.txt")
	require.Error(t, err)
}
