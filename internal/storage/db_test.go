package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testDB(tb testing.TB) *DB {
	tb.Helper()
	db, err := Open(":memory:")
	require.NoError(tb, err)
	tb.Cleanup(func() {
		require.NoError(tb, db.Close())
	})
	return db
}

func testRun(id, title string, at time.Time) Run {
	return Run{
		ID:           id,
		Agent:        "zero-to-release",
		Title:        title,
		API:          "openai",
		Model:        "gpt-5-mini",
		Status:       StatusSucceeded,
		InputTokens:  100,
		OutputTokens: 20,
		UpdatedAt:    at,
	}
}

func TestDB(t *testing.T) {
	const testid = "df31ae23ab8b75b5643c2f846c570997edc71333"
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("list-empty", func(t *testing.T) {
		require.Empty(t, testDB(t).List())
	})

	t.Run("save", func(t *testing.T) {
		db := testDB(t)
		require.NoError(t, db.Save(testRun(testid, "chat backend", base)))

		run, err := db.Find("df31")
		require.NoError(t, err)
		require.Equal(t, testRun(testid, "chat backend", base), *run)
		require.Len(t, db.List(), 1)
	})

	t.Run("save sets updated at", func(t *testing.T) {
		db := testDB(t)
		require.NoError(t, db.Save(testRun(testid, "chat backend", time.Time{})))
		run, err := db.Find(testid)
		require.NoError(t, err)
		require.WithinDuration(t, time.Now(), run.UpdatedAt, time.Minute)
	})

	t.Run("save no id", func(t *testing.T) {
		require.Error(t, testDB(t).Save(testRun("", "chat backend", base)))
	})

	t.Run("save no title", func(t *testing.T) {
		require.Error(t, testDB(t).Save(testRun(NewRunID(), " ", base)))
	})

	t.Run("update", func(t *testing.T) {
		db := testDB(t)
		require.NoError(t, db.Save(testRun(testid, "chat backend", base)))
		updated := testRun(testid, "chat backend", base.Add(time.Minute))
		updated.Status = StatusFailed
		require.NoError(t, db.Save(updated))

		run, err := db.Find("df31")
		require.NoError(t, err)
		require.Equal(t, StatusFailed, run.Status)
		require.Len(t, db.List(), 1)
	})

	t.Run("find head", func(t *testing.T) {
		db := testDB(t)
		_, err := db.FindHEAD()
		require.ErrorIs(t, err, ErrNoMatches)

		require.NoError(t, db.Save(testRun(testid, "older", base)))
		next := NewRunID()
		require.NoError(t, db.Save(testRun(next, "newer", base.Add(time.Hour))))

		head, err := db.FindHEAD()
		require.NoError(t, err)
		require.Equal(t, next, head.ID)

		list := db.List()
		require.Len(t, list, 2)
		require.Equal(t, "newer", list[0].Title)
		require.Equal(t, "older", list[1].Title)
	})

	t.Run("find by title", func(t *testing.T) {
		db := testDB(t)
		require.NoError(t, db.Save(testRun(NewRunID(), "message 1", base)))
		require.NoError(t, db.Save(testRun(testid, "message 2", base)))

		run, err := db.Find("message 2")
		require.NoError(t, err)
		require.Equal(t, testid, run.ID)
	})

	t.Run("find match nothing", func(t *testing.T) {
		db := testDB(t)
		require.NoError(t, db.Save(testRun(testid, "message 1", base)))
		_, err := db.Find("message")
		require.ErrorIs(t, err, ErrNoMatches)
		_, err = db.Find("df3")
		require.ErrorIs(t, err, ErrNoMatches)
	})

	t.Run("find match many", func(t *testing.T) {
		db := testDB(t)
		const testid2 = "df31ae23ab9b75b5641c2f846c571000edc71315"
		require.NoError(t, db.Save(testRun(testid, "message 1", base)))
		require.NoError(t, db.Save(testRun(testid2, "message 2", base)))
		_, err := db.Find("df31ae")
		require.ErrorIs(t, err, ErrManyMatches)
	})

	t.Run("delete", func(t *testing.T) {
		db := testDB(t)
		require.NoError(t, db.Save(testRun(testid, "message 1", base)))
		require.NoError(t, db.Delete(NewRunID()))
		require.Error(t, db.Delete(""))
		require.NotEmpty(t, db.List())

		for _, item := range db.List() {
			require.NoError(t, db.Delete(item.ID))
		}
		require.Empty(t, db.List())
	})

	t.Run("older than", func(t *testing.T) {
		db := testDB(t)
		now := time.Now()
		require.NoError(t, db.Save(testRun(testid, "old", now.Add(-10*24*time.Hour))))
		require.NoError(t, db.Save(testRun(NewRunID(), "new", now.Add(-time.Hour))))

		old := db.ListOlderThan(7 * 24 * time.Hour)
		require.Len(t, old, 1)
		require.Equal(t, testid, old[0].ID)
	})

	t.Run("completions", func(t *testing.T) {
		db := testDB(t)

		const testid1 = "fc5012d8c67073ea0a46a3c05488a0e1d87df74b"
		const title1 = "some title"
		const testid2 = "6c33f71694bf41a18c844a96d1f62f153e5f6f44"
		const title2 = "football teams"
		require.NoError(t, db.Save(testRun(testid1, title1, base)))
		require.NoError(t, db.Save(testRun(testid2, title2, base)))

		require.Equal(t, []string{
			fmt.Sprintf("%s\tzero-to-release: %s", testid1[:SHA1Short], title1),
			fmt.Sprintf("%s\t%s", title2, testid2[:SHA1Short]),
		}, db.Completions("f"))

		require.Equal(t, []string{
			fmt.Sprintf("%s\tzero-to-release: %s", testid1, title1),
		}, db.Completions(testid1[:8]))
	})

	t.Run("persists to jsonl index", func(t *testing.T) {
		dir := t.TempDir()

		db, err := Open(dir)
		require.NoError(t, err)
		require.NoError(t, db.Save(testRun(testid, "message 1", base)))
		require.NoError(t, db.Close())

		db2, err := Open(dir)
		require.NoError(t, err)
		t.Cleanup(func() {
			require.NoError(t, db2.Close())
		})

		run, err := db2.Find(testid[:8])
		require.NoError(t, err)
		require.Equal(t, "zero-to-release", run.Agent)

		_, err = os.Stat(filepath.Join(dir, indexFileName))
		require.NoError(t, err)
	})

	t.Run("compacts", func(t *testing.T) {
		dir := t.TempDir()
		db, err := Open(dir)
		require.NoError(t, err)
		for i := range compactMinOps + 10 {
			require.NoError(t, db.Save(testRun(testid, fmt.Sprintf("message %d", i), base)))
		}
		bts, err := os.ReadFile(filepath.Join(dir, indexFileName))
		require.NoError(t, err)
		require.Less(t, strings.Count(string(bts), "\n"), compactMinOps)

		db2, err := Open(dir)
		require.NoError(t, err)
		require.Len(t, db2.List(), 1)
		require.Equal(t, fmt.Sprintf("message %d", compactMinOps+9), db2.List()[0].Title)
	})
}

func TestDBFailedWriteKeepsMemory(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(dir, indexFileName), 0o700))

	run := testRun(NewRunID(), "never written", time.Now())
	require.Error(t, db.Save(run))
	require.Empty(t, db.List())
	_, err = db.Find(run.ID)
	require.ErrorIs(t, err, ErrNoMatches)
}

func TestDBCompactKeepsOtherWriters(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	busy, err := Open(dir)
	require.NoError(t, err)
	other, err := Open(dir)
	require.NoError(t, err)

	const otherID = "aa11bb22cc33dd44ee55ff66aa77bb88cc99dd00"
	require.NoError(t, other.Save(testRun(otherID, "from another process", base)))

	const busyID = "df31ae23ab8b75b5643c2f846c570997edc71333"
	for i := range compactMinOps + 10 {
		require.NoError(t, busy.Save(testRun(busyID, fmt.Sprintf("message %d", i), base)))
	}

	fresh, err := Open(dir)
	require.NoError(t, err)
	run, err := fresh.Find(otherID)
	require.NoError(t, err)
	require.Equal(t, "from another process", run.Title)
	require.Len(t, fresh.List(), 2)
}

func TestTitle(t *testing.T) {
	require.Equal(t, "Build a chat backend", Title("  Build a chat backend\nwith rooms"))
	long := strings.Repeat("a", 100)
	require.Equal(t, strings.Repeat("a", 71)+"…", Title(long))
	require.Empty(t, Title(""))
}

func TestNewRunID(t *testing.T) {
	id := NewRunID()
	require.Regexp(t, SHA1Regexp, id)
	require.NotEqual(t, id, NewRunID())
	require.Equal(t, id[:SHA1Short], ShortID(id))
	require.Equal(t, "abc", ShortID("abc"))
}
