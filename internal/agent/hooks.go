package agent

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"charm.land/fantasy"
)

// ToolEvent describes one tool call of a run.
type ToolEvent struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Input    string        `json:"input"`
	Output   string        `json:"output,omitempty"`
	Failed   bool          `json:"failed"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
}

// Hooks are called around every tool call. Either may be nil. Tools can run
// concurrently, so hooks must be safe for concurrent use.
type Hooks struct {
	OnToolStart func(ToolEvent)
	OnToolEnd   func(ToolEvent)
}

type recorder struct {
	mu     sync.Mutex
	events []ToolEvent
	now    func() time.Time
}

func (r *recorder) add(ev ToolEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) list() []ToolEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ToolEvent(nil), r.events...)
}

type hookedTool struct {
	fantasy.AgentTool

	hooks Hooks
	rec   *recorder
}

// wrapTools returns tools that report every call through hooks and rec.
func wrapTools(list []fantasy.AgentTool, hooks Hooks, rec *recorder) []fantasy.AgentTool {
	out := make([]fantasy.AgentTool, len(list))
	for i, t := range list {
		out[i] = &hookedTool{AgentTool: t, hooks: hooks, rec: rec}
	}
	return out
}

func (t *hookedTool) Run(ctx context.Context, call fantasy.ToolCall) (fantasy.ToolResponse, error) {
	ev := ToolEvent{
		ID:      call.ID,
		Name:    t.Info().Name,
		Input:   call.Input,
		Started: t.rec.now(),
	}
	if t.hooks.OnToolStart != nil {
		t.hooks.OnToolStart(ev)
	}

	resp, err := t.AgentTool.Run(ctx, call)

	ev.Duration = t.rec.now().Sub(ev.Started)
	ev.Output = resp.Content
	ev.Failed = err != nil || resp.IsError || reportsError(resp.Content)
	if err != nil {
		ev.Output = err.Error()
	}
	t.rec.add(ev)
	if t.hooks.OnToolEnd != nil {
		t.hooks.OnToolEnd(ev)
	}
	return resp, err //nolint:wrapcheck
}

// reportsError reports whether a tool answered with {"status": "error"}.
func reportsError(content string) bool {
	var st struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal([]byte(content), &st); err != nil {
		return false
	}
	return st.Status == "error"
}
