package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAndDelete(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root, "http://localhost:8080/")
	require.NoError(t, err)

	url, err := store.Store(KindAudio, "My Song.MP3", strings.NewReader("audio-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:8080/uploads/tracks/"), url)
	assert.True(t, strings.HasSuffix(url, ".mp3"), url)

	rel := url[strings.Index(url, "/uploads/")+len("/uploads/"):]
	data, err := os.ReadFile(filepath.Join(root, rel))
	require.NoError(t, err)
	assert.Equal(t, "audio-bytes", string(data))

	require.NoError(t, store.Delete(url))
	_, err = os.Stat(filepath.Join(root, rel))
	assert.True(t, os.IsNotExist(err))

	// Deleting again, or deleting junk, is not an error.
	require.NoError(t, store.Delete(url))
	require.NoError(t, store.Delete("not-a-url"))
}

func TestStore_UniqueNames(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)

	first, err := store.Store(KindImage, "cover.jpg", strings.NewReader("a"))
	require.NoError(t, err)
	second, err := store.Store(KindImage, "cover.jpg", strings.NewReader("b"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(first, "/uploads/images/"), first)
}

func TestDelete_RefusesTraversal(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root, "")
	require.NoError(t, err)

	outside := filepath.Join(filepath.Dir(root), "victim.txt")
	require.NoError(t, os.WriteFile(outside, []byte("keep me"), 0o644))
	t.Cleanup(func() { os.Remove(outside) })

	require.NoError(t, store.Delete("/uploads/../victim.txt"))
	_, err = os.Stat(outside)
	assert.NoError(t, err)
}
