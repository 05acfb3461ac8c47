package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestCache(t *testing.T) {
	dir := t.TempDir()
	c, err := New[doc](dir, TranscriptCache)
	require.NoError(t, err)

	const id = "ab12cd"
	require.NoError(t, c.Write(id, doc{Name: "first", Count: 1}))
	_, err = os.Stat(filepath.Join(dir, "transcripts", "ab", id+".json"))
	require.NoError(t, err)

	got, err := c.Read(id)
	require.NoError(t, err)
	require.Equal(t, doc{Name: "first", Count: 1}, got)

	require.NoError(t, c.Write(id, doc{Name: "second"}))
	got, err = c.Read(id)
	require.NoError(t, err)
	require.Equal(t, "second", got.Name)

	entries, err := os.ReadDir(filepath.Join(dir, "transcripts", "ab"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, c.Delete(id))
	require.NoError(t, c.Delete(id))
	_, err = c.Read(id)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCacheInvalidID(t *testing.T) {
	c, err := New[doc](t.TempDir(), TranscriptCache)
	require.NoError(t, err)

	_, err = c.Read("")
	require.ErrorIs(t, err, errInvalidID)
	require.ErrorIs(t, c.Write("", doc{}), errInvalidID)
	require.ErrorIs(t, c.Delete(""), errInvalidID)

	require.NoError(t, c.Write("x", doc{Name: "short"}))
	got, err := c.Read("x")
	require.NoError(t, err)
	require.Equal(t, "short", got.Name)
}
