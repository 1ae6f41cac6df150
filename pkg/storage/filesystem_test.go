package storage

import (
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := store.Save("drafts/upload.json", []byte(`{"a":1}`))
	require.NoError(t, err)
	require.Equal(t, "drafts/upload.json", name)

	data, err := store.Read(name)
	require.NoError(t, err)
	require.Equal(t, `{"a":1}`, string(data))

	_, err = store.Save(name, []byte(`{"a":2}`))
	require.NoError(t, err)
	data, err = store.Read(name)
	require.NoError(t, err)
	require.Equal(t, `{"a":2}`, string(data))

	require.NoError(t, store.Delete(name))
	require.NoError(t, store.Delete(name))
	_, err = store.Read(name)
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLocalStorageRejectsEscapingPaths(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"../secret", "/etc/passwd", "", "a/../../b"} {
		_, err := store.Save(name, []byte("x"))
		require.ErrorIs(t, err, ErrInvalidPath, name)
	}
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("old.pdf", []byte("old"))
	require.NoError(t, err)
	_, err = store.Save("new.pdf", []byte("new"))
	require.NoError(t, err)
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path("old.pdf"), past, past))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{"old.pdf"}, deleted)

	_, err = store.Read("new.pdf")
	require.NoError(t, err)
}
