package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/textmachine/sitemap-indexer/internal/storage"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	t.Run("empty path", func(t *testing.T) {
		t.Parallel()
		_, err := New(Config{Path: "  "})
		require.ErrorContains(t, err, "ledger path is required")
	})

	t.Run("creates parent directory", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "nested", "dir", "ledger.txt")
		_, err := New(Config{Path: path})
		require.NoError(t, err)
		require.DirExists(t, filepath.Dir(path))
	})

	t.Run("parent is a file", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		file := filepath.Join(dir, "occupied")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := New(Config{Path: filepath.Join(file, "ledger.txt")})
		require.ErrorContains(t, err, "not a directory")
	})
}

func TestStore_Read_MissingFile(t *testing.T) {
	t.Parallel()

	s, err := New(Config{Path: filepath.Join(t.TempDir(), "ledger.txt")})
	require.NoError(t, err)

	_, err = s.Read(context.Background())
	require.ErrorIs(t, err, storage.ErrNotExist)
}

func TestStore_WriteThenRead(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ledger.txt")
	s, err := New(Config{Path: path})
	require.NoError(t, err)

	want := []byte("https://example.com/a\nhttps://example.com/b\n")
	require.NoError(t, s.Write(context.Background(), want))

	got, err := s.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestStore_Write_ReplacesPreviousContent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.txt")
	s, err := New(Config{Path: path})
	require.NoError(t, err)

	require.NoError(t, s.Write(context.Background(), []byte("old\n")))
	require.NoError(t, s.Write(context.Background(), []byte("new\n")))

	got, err := s.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, "new\n", string(got))

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
