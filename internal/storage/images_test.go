package storage

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "coinlecture/internal/errors"
)

// smallest valid PNG: signature plus IHDR header is enough for detection.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 17)...)

func TestImageStore_StageDataURI(t *testing.T) {
	dir := t.TempDir()
	store := NewImageStore(filepath.Join(dir, "books"))

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
	staged, err := store.StageDataURI(7, uri)
	require.NoError(t, err)
	require.NoError(t, staged.Commit())
	assert.Equal(t, "/images/books/book7.png", staged.Path)

	got, err := os.ReadFile(filepath.Join(dir, "books", "book7.png"))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, got)
}

func TestImageStore_StageDataURI_Invalid(t *testing.T) {
	store := NewImageStore(t.TempDir())

	for _, uri := range []string{
		"data:image/png;base64",
		"data:image/png,abcd",
		"data:image/exe;base64,AAAA",
		"data:image/svg+xml;base64,AAAA",
		"data:image/png;base64,not base64!",
	} {
		_, err := store.StageDataURI(1, uri)
		assert.ErrorIs(t, err, apperrors.ErrInvalidImage, uri)
	}
}

func TestImageStore_SaveDetectsType(t *testing.T) {
	dir := t.TempDir()
	store := NewImageStore(dir)

	path, err := store.Save(3, bytes.NewReader(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, "/images/books/book3.png", path)
	assert.FileExists(t, filepath.Join(dir, "book3.png"))

	_, err = store.Save(3, bytes.NewReader([]byte("just some text")))
	assert.ErrorIs(t, err, apperrors.ErrInvalidImage)
}

func TestImageStore_Remove(t *testing.T) {
	dir := t.TempDir()
	store := NewImageStore(dir)
	path, err := store.Save(4, bytes.NewReader(pngBytes))
	require.NoError(t, err)

	require.NoError(t, store.Remove(path))
	assert.NoFileExists(t, filepath.Join(dir, "book4.png"))

	assert.NoError(t, store.Remove(path), "missing file is not an error")
	assert.NoError(t, store.Remove("/images/books/default.jpg"))
	assert.NoError(t, store.Remove("/images/books/../../etc/passwd"))
	assert.True(t, IsDataURI("data:image/png;base64,AA"))
	assert.False(t, IsDataURI("/images/books/book1.png"))
}

func TestImageStore_StagedCoverIsInvisibleUntilCommit(t *testing.T) {
	dir := t.TempDir()
	store := NewImageStore(dir)
	final := filepath.Join(dir, "book5.png")
	require.NoError(t, os.WriteFile(final, []byte("previous"), 0o644))
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)

	discarded, err := store.StageDataURI(5, uri)
	require.NoError(t, err)
	assert.Equal(t, "/images/books/book5.png", discarded.Path)
	discarded.Discard()

	got, err := os.ReadFile(final)
	require.NoError(t, err)
	assert.Equal(t, []byte("previous"), got, "a discarded stage leaves the current cover alone")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary file is left behind")

	committed, err := store.StageDataURI(5, uri)
	require.NoError(t, err)
	require.NoError(t, committed.Commit())
	committed.Discard()

	got, err = os.ReadFile(final)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, got)
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
