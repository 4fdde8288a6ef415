package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/retrace/internal/domain"
)

func entry(key, diagnosis string) domain.CacheEntry {
	return domain.CacheEntry{
		Key:    key,
		Model:  "claude",
		Result: domain.CoachingResult{ReportCard: domain.ReportCard{Diagnosis: diagnosis}, CognitiveShadow: []domain.Value{}},
	}
}

func TestFileCache_SetGet(t *testing.T) {
	c := NewFileCacheAt(t.TempDir(), time.Hour, 10)

	_, ok, err := c.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(entry("abc", "loop bound")))
	got, ok, err := c.Get("abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "loop bound", got.Result.ReportCard.Diagnosis)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestFileCache_TTL(t *testing.T) {
	dir := t.TempDir()
	c := NewFileCacheAt(dir, time.Minute, 10)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(entry("k", "d")))
	now = now.Add(2 * time.Minute)

	_, ok, err := c.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = os.Stat(filepath.Join(dir, "k.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileCache_EvictsOldest(t *testing.T) {
	dir := t.TempDir()
	c := NewFileCacheAt(dir, 0, 2)

	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("k%d", i)
		require.NoError(t, c.Set(entry(key, key)))
		old := time.Now().Add(time.Duration(i-10) * time.Minute)
		require.NoError(t, os.Chtimes(filepath.Join(dir, key+".json"), old, old))
	}
	require.NoError(t, c.Set(entry("k3", "k3")))

	entries, err := c.Entries()
	require.NoError(t, err)
	keys := map[string]bool{}
	for _, e := range entries {
		keys[e.Key] = true
	}
	assert.Equal(t, map[string]bool{"k2": true, "k3": true}, keys)
}

func TestFileCache_ClearAndSize(t *testing.T) {
	c := NewFileCacheAt(filepath.Join(t.TempDir(), "coaching"), time.Hour, 10)

	size, err := c.Size()
	require.NoError(t, err)
	assert.Zero(t, size)

	require.NoError(t, c.Set(entry("a", "x")))
	size, err = c.Size()
	require.NoError(t, err)
	assert.Positive(t, size)

	require.NoError(t, c.Clear())
	entries, err := c.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}
