package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSQLiteCache(t *testing.T) *SQLiteCache {
	t.Helper()
	c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"), zap.NewNop(), time.Hour)
	require.NoError(t, err)
	t.Cleanup(c.Stop)
	return c
}

func TestSQLiteCache_RoundTrip(t *testing.T) {
	c := newTestSQLiteCache(t)
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	entry := testEntry("k1", time.Hour)
	require.NoError(t, c.Set(ctx, entry))

	got, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "k1", got.Key)
	assert.Equal(t, entry.Result.SimilarityScore, got.Result.SimilarityScore)
	assert.Equal(t, entry.Result.RiskLevel, got.Result.RiskLevel)
	assert.Equal(t, entry.Result.MatchingItemID, got.Result.MatchingItemID)
	assert.Equal(t, entry.Result.Warnings, got.Result.Warnings)
	assert.True(t, entry.Result.AnalyzedAt.Equal(got.Result.AnalyzedAt))
	assert.Equal(t, entry.ExpiresAt.UnixMilli(), got.ExpiresAt.UnixMilli())

	// overwrite keeps a single row per key
	entry.Result.SimilarityScore = 10
	require.NoError(t, c.Set(ctx, entry))
	got, err = c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Result.SimilarityScore)

	require.NoError(t, c.Delete(ctx, "k1"))
	_, err = c.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteCache_ExpiredEntries(t *testing.T) {
	c := newTestSQLiteCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, testEntry("old", -time.Second)))
	require.NoError(t, c.Set(ctx, testEntry("new", time.Hour)))

	_, err := c.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Cleanup(ctx))

	var count int
	require.NoError(t, c.db.QueryRow(`SELECT COUNT(*) FROM analysis_cache`).Scan(&count))
	assert.Equal(t, 1, count)
}
