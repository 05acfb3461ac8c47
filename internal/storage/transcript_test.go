package storage

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	started := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	run, err := store.Record(Transcript{
		Agent:        "mvp-creator",
		API:          "google",
		Model:        "gemini-2.5-pro",
		Task:         "A todo app\nwith tags",
		Instructions: "You are a MVP creator agent.",
		Output:       "Done.",
		Tools: []ToolCall{
			{Name: "list_files", Input: `{"directory":"."}`, Output: `{"status":"success"}`, Duration: time.Second},
			{Name: "go_build", Input: `{"working_dir":"."}`, Failed: true},
		},
		Steps:        3,
		InputTokens:  1200,
		OutputTokens: 300,
		TotalTokens:  1500,
		StartedAt:    started,
		Duration:     time.Minute,
	})
	require.NoError(t, err)
	require.Regexp(t, SHA1Regexp, run.ID)
	require.Equal(t, "A todo app", run.Title)
	require.Equal(t, StatusSucceeded, run.Status)
	require.Equal(t, started.Add(time.Minute), run.UpdatedAt)

	found, err := store.Find(run.ID[:SHA1Short])
	require.NoError(t, err)
	require.Equal(t, run, *found)

	tr, err := store.Transcript(run.ID)
	require.NoError(t, err)
	require.Equal(t, run.ID, tr.ID)
	require.Len(t, tr.Tools, 2)
	require.True(t, tr.Tools[1].Failed)

	require.NoError(t, store.Remove(run.ID))
	require.Empty(t, store.List())
	_, err = store.Transcript(run.ID)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestTranscriptRunStatus(t *testing.T) {
	tr := Transcript{ID: "abc", Task: "x", Error: "boom"}
	require.Equal(t, StatusFailed, tr.Run().Status)
}
