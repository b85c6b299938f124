package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/MimeLyc/srt-editor/internal/translator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	_, ok, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_PutGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k1", "openai/gpt-4o-mini", "Hola\nmundo"))
	text, ok, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Hola\nmundo", text)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, CacheStats{Entries: 1, Hits: 1}, stats)

	require.NoError(t, store.Put(ctx, "k1", "openai/gpt-4o-mini", "Hola"))
	text, _, err = store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "Hola", text)

	stats, err = store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, CacheStats{Entries: 1, Hits: 2}, stats)
}

func TestSQLiteStore_StatsEmpty(t *testing.T) {
	store := newTestStore(t)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CacheStats{}, stats)
}

func TestSQLiteStore_PruneUnusedSince(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	require.NoError(t, store.Put(ctx, "old", "m", "a"))

	now = now.Add(48 * time.Hour)
	require.NoError(t, store.Put(ctx, "new", "m", "b"))

	removed, err := store.PruneUnusedSince(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, ok, err := store.Get(ctx, "old")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = store.Get(ctx, "new")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSQLiteStore_ReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "k", "m", "v"))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	text, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", text)
}

func TestSQLiteStore_BacksTranslatorCache(t *testing.T) {
	store := newTestStore(t)
	calls := 0
	provider := translator.ProviderFunc(func(context.Context, string, translator.ModelRef, string) (string, error) {
		calls++
		return "Bonjour", nil
	})
	h := translator.NewHandler(provider, translator.ModelRef{Provider: "openai", Model: "m"}, translator.WithCache(store))

	req := translator.Request{Text: "Hello", TargetLanguage: "fr"}
	for range 2 {
		got, err := h.Translate(context.Background(), req, "key")
		require.NoError(t, err)
		assert.Equal(t, "Bonjour", got)
	}
	assert.Equal(t, 1, calls)
}

func TestNewSQLiteStore_RequiresPath(t *testing.T) {
	_, err := NewSQLiteStore("  ")
	assert.Error(t, err)
}

func TestMigrationVersion(t *testing.T) {
	assert.Equal(t, 1, migrationVersion("001_init.sql"))
	assert.Equal(t, 12, migrationVersion("12_more.sql"))
	assert.Equal(t, 0, migrationVersion("init.sql"))
}
