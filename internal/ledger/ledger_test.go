package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/textmachine/sitemap-indexer/internal/storage/memory"
)

func TestLedger_Load_MissingStoreIsEmptySet(t *testing.T) {
	t.Parallel()

	l, err := New(memory.New(), zap.NewNop())
	require.NoError(t, err)

	set, err := l.Load(context.Background())
	require.NoError(t, err)
	require.Zero(t, set.Len())
}

func TestLedger_PersistThenLoad(t *testing.T) {
	t.Parallel()

	store := memory.New()
	l, err := New(store, zap.NewNop())
	require.NoError(t, err)

	set := NewSet()
	set.Add("https://example.com/b")
	set.Add("https://example.com/a")
	set.Add("https://example.com/c")
	require.NoError(t, l.Persist(context.Background(), set))

	data, err := store.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, "https://example.com/a\nhttps://example.com/b\nhttps://example.com/c\n", string(data))

	loaded, err := l.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, set, loaded)
}

func TestLedger_Load_ToleratesBlankLinesAndCRLF(t *testing.T) {
	t.Parallel()

	store := memory.Seed([]byte("https://example.com/a\r\n\nhttps://example.com/b\n\n"))
	l, err := New(store, zap.NewNop())
	require.NoError(t, err)

	set, err := l.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())
	require.True(t, set.Contains("https://example.com/a"))
	require.True(t, set.Contains("https://example.com/b"))
}

func TestLedger_Persist_EmptySetWritesEmptyObject(t *testing.T) {
	t.Parallel()

	store := memory.New()
	l, err := New(store, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, l.Persist(context.Background(), NewSet()))
	require.True(t, store.Writes())

	data, err := store.Read(context.Background())
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestNew_RequiresStore(t *testing.T) {
	t.Parallel()

	_, err := New(nil, zap.NewNop())
	require.Error(t, err)
}

func TestSet(t *testing.T) {
	t.Parallel()

	s := NewSet()
	require.False(t, s.Contains("https://example.com/a"))

	s.Add("https://example.com/a")
	s.Add("https://example.com/a")
	require.Equal(t, 1, s.Len())
	require.True(t, s.Contains("https://example.com/a"))
	// Exact match only.
	require.False(t, s.Contains("https://example.com/a/"))

	s.Add("https://example.com/b")
	require.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, s.Sorted())
}
