package tui

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"

	"github.com/sortedstartup/ztr/internal/agent"
	"github.com/sortedstartup/ztr/internal/errs"
	"github.com/sortedstartup/ztr/internal/tools"
)

func newTestProgress(t *testing.T, run RunFunc) *Progress {
	t.Helper()
	r := lipgloss.NewRenderer(io.Discard, termenv.WithProfile(termenv.Ascii))
	m := NewProgress(context.Background(), r, "zero-to-release", run)
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m.now = func() time.Time { return start }
	t.Cleanup(m.cancel)
	return m
}

func TestProgressToolLines(t *testing.T) {
	m := newTestProgress(t, nil)
	m.started = m.now()

	_, cmd := m.Update(toolStartedMsg{agent.ToolEvent{ID: "1", Name: "read_file", Input: `{"file_path": "go.mod"}`}})
	require.NotNil(t, cmd)
	require.Contains(t, m.View(), "read_file")
	require.Contains(t, m.View(), `{"file_path": "go.mod"}`)
	require.True(t, m.calls[0].running)

	m.Update(toolFinishedMsg{agent.ToolEvent{ID: "1", Name: "read_file", Input: `{"file_path": "go.mod"}`, Duration: 12 * time.Millisecond}})
	require.False(t, m.calls[0].running)
	require.Contains(t, m.View(), "✓ read_file")
	require.Contains(t, m.View(), "12ms")

	m.Update(toolFinishedMsg{agent.ToolEvent{ID: "2", Name: "go_build", Failed: true}})
	require.Len(t, m.calls, 2)
	require.Contains(t, m.View(), "✗ go_build")
}

func TestProgressRunDone(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		m := newTestProgress(t, nil)
		res := agent.Result{Output: "done", Steps: 3, Usage: agent.Usage{TotalTokens: 42}}
		_, cmd := m.Update(runDoneMsg{res: res})
		require.Equal(t, doneState, m.state)
		require.Nil(t, m.Error)
		require.Equal(t, "done", m.Result.Output)
		require.IsType(t, tea.QuitMsg{}, cmd())
		require.Contains(t, m.View(), "0 tool calls, 3 steps, 42 tokens")
		require.Error(t, m.ctx.Err())
	})

	t.Run("error keeps reason", func(t *testing.T) {
		m := newTestProgress(t, nil)
		m.Update(runDoneMsg{err: errs.Error{Reason: "Rate limit exceeded."}})
		require.Equal(t, errorState, m.state)
		require.NotNil(t, m.Error)
		require.Equal(t, "Rate limit exceeded.", m.Error.Reason)
	})

	t.Run("plain error", func(t *testing.T) {
		m := newTestProgress(t, nil)
		m.Update(runDoneMsg{err: errors.New("boom")})
		require.EqualError(t, m.Error, "boom")
	})

	t.Run("drains queued events", func(t *testing.T) {
		m := newTestProgress(t, nil)
		m.events <- toolStartedMsg{agent.ToolEvent{ID: "1", Name: "write_file"}}
		m.events <- toolFinishedMsg{agent.ToolEvent{ID: "1", Name: "write_file"}}
		m.Update(runDoneMsg{})
		require.Len(t, m.calls, 1)
		require.False(t, m.calls[0].running)
	})
}

func TestProgressHooks(t *testing.T) {
	m := newTestProgress(t, nil)
	hooks := m.Hooks()
	hooks.OnToolStart(agent.ToolEvent{ID: "a", Name: "git_init"})
	hooks.OnToolEnd(agent.ToolEvent{ID: "a", Name: "git_init"})

	require.Equal(t, toolStartedMsg{agent.ToolEvent{ID: "a", Name: "git_init"}}, m.waitForEventCmd())
	require.Equal(t, toolFinishedMsg{agent.ToolEvent{ID: "a", Name: "git_init"}}, m.waitForEventCmd())

	m.cancel()
	require.Nil(t, m.waitForEventCmd())
}

func TestProgressEdit(t *testing.T) {
	t.Run("waits for the editor", func(t *testing.T) {
		m := newTestProgress(t, nil)
		m.editor = func(path string) (*exec.Cmd, error) { return exec.Command("true", path), nil }

		done := make(chan error, 1)
		go func() { done <- m.Edit(context.Background(), "/tmp/review.md") }()

		req, ok := m.waitForEventCmd().(editRequestMsg)
		require.True(t, ok)
		require.Equal(t, "/tmp/review.md", req.path)

		_, cmd := m.Update(req)
		require.NotNil(t, cmd)
		require.Equal(t, editingState, m.state)
		require.Empty(t, m.View())

		m.Update(editFinishedMsg{req: req})
		require.Equal(t, runningState, m.state)
		require.NoError(t, <-done)
	})

	t.Run("editor not found", func(t *testing.T) {
		m := newTestProgress(t, nil)
		m.editor = func(string) (*exec.Cmd, error) { return nil, errors.New("no editor") }

		done := make(chan error, 1)
		go func() { done <- m.Edit(context.Background(), "x") }()
		m.Update(m.waitForEventCmd())
		require.EqualError(t, <-done, "no editor")
	})

	t.Run("cancelled", func(t *testing.T) {
		m := newTestProgress(t, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.ErrorIs(t, m.Edit(ctx, "x"), context.Canceled)
	})
}

func TestProgressCtrlC(t *testing.T) {
	m := newTestProgress(t, nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.IsType(t, tea.QuitMsg{}, cmd())
	require.Equal(t, errorState, m.state)
	require.Equal(t, "The run was cancelled.", m.Error.Reason)
	require.ErrorIs(t, m.ctx.Err(), context.Canceled)
}

func TestProgressRun(t *testing.T) {
	m := newTestProgress(t, func(ctx context.Context, hooks agent.Hooks, edit tools.EditFunc) (agent.Result, error) {
		require.NotNil(t, hooks.OnToolStart)
		require.NotNil(t, edit)
		return agent.Result{Output: "ok"}, nil
	})
	msg := m.startRunCmd()
	require.Equal(t, runDoneMsg{res: agent.Result{Output: "ok"}}, msg)
}

func TestSummarize(t *testing.T) {
	for name, tc := range map[string]struct {
		in   string
		n    int
		want string
	}{
		"short":      {`{"a": 1}`, 60, `{"a": 1}`},
		"empty args": {"{}", 60, ""},
		"newlines":   {"{\n  \"a\": 1\n}", 60, `{ "a": 1 }`},
		"truncated":  {"abcdefghij", 5, "abcd…"},
	} {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.want, summarize(tc.in, tc.n))
		})
	}
}
