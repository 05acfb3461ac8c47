// Package tui renders the progress of a running agent.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sortedstartup/ztr/internal/agent"
	"github.com/sortedstartup/ztr/internal/errs"
	"github.com/sortedstartup/ztr/internal/present"
	"github.com/sortedstartup/ztr/internal/tools"
)

type state int

const (
	runningState state = iota
	editingState
	doneState
	errorState
)

const (
	eventBuffer   = 64
	maxInputWidth = 60
)

// RunFunc runs the agent. It must report tool calls through hooks and open
// editors through edit so the progress view can follow along.
type RunFunc func(ctx context.Context, hooks agent.Hooks, edit tools.EditFunc) (agent.Result, error)

// EditorCmd builds the editor process for a review file.
type EditorCmd func(path string) (*exec.Cmd, error)

// Progress is the Bubble Tea model shown while an agent runs: a spinner, the
// agent name and one line per tool call.
type Progress struct {
	// Result and Error are populated once the run finished.
	Result agent.Result
	Error  *errs.Error
	Styles present.Styles

	title   string
	run     RunFunc
	editor  EditorCmd
	state   state
	spinner spinner.Model
	calls   []toolLine
	index   map[string]int
	width   int
	started time.Time
	now     func() time.Time

	events chan tea.Msg
	ctx    context.Context
	cancel context.CancelFunc
}

type toolLine struct {
	ev      agent.ToolEvent
	running bool
}

type toolStartedMsg struct{ ev agent.ToolEvent }

type toolFinishedMsg struct{ ev agent.ToolEvent }

type editRequestMsg struct {
	path string
	done chan error
}

type editFinishedMsg struct {
	req editRequestMsg
	err error
}

type runDoneMsg struct {
	res agent.Result
	err error
}

// NewProgress creates the progress model for one run of the agent title.
func NewProgress(ctx context.Context, r *lipgloss.Renderer, title string, run RunFunc) *Progress {
	ctx, cancel := context.WithCancel(ctx)
	styles := present.MakeStyles(r)
	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(styles.CyclingChars))
	return &Progress{
		Styles:  styles,
		title:   title,
		run:     run,
		editor:  tools.EditorCmd,
		spinner: sp,
		index:   map[string]int{},
		now:     time.Now,
		events:  make(chan tea.Msg, eventBuffer),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Hooks returns tool hooks that feed this view.
func (m *Progress) Hooks() agent.Hooks {
	return agent.Hooks{
		OnToolStart: func(ev agent.ToolEvent) { m.send(toolStartedMsg{ev}) },
		OnToolEnd:   func(ev agent.ToolEvent) { m.send(toolFinishedMsg{ev}) },
	}
}

// Edit suspends the view, runs the editor on path and blocks until it exits.
func (m *Progress) Edit(ctx context.Context, path string) error {
	req := editRequestMsg{path: path, done: make(chan error, 1)}
	m.send(req)
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck
	case <-m.ctx.Done():
		return m.ctx.Err() //nolint:wrapcheck
	}
}

func (m *Progress) send(msg tea.Msg) {
	select {
	case m.events <- msg:
	case <-m.ctx.Done():
	}
}

// Init implements tea.Model.
func (m *Progress) Init() tea.Cmd {
	m.started = m.now()
	return tea.Batch(m.spinner.Tick, m.startRunCmd, m.waitForEventCmd)
}

func (m *Progress) startRunCmd() tea.Msg {
	res, err := m.run(m.ctx, m.Hooks(), m.Edit)
	return runDoneMsg{res: res, err: err}
}

func (m *Progress) waitForEventCmd() tea.Msg {
	select {
	case msg := <-m.events:
		return msg
	case <-m.ctx.Done():
		return nil
	}
}

// Update implements tea.Model.
func (m *Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case toolStartedMsg:
		m.start(msg.ev)
		return m, m.waitForEventCmd

	case toolFinishedMsg:
		m.finish(msg.ev)
		return m, m.waitForEventCmd

	case editRequestMsg:
		c, err := m.editor(msg.path)
		if err != nil {
			msg.done <- err
			return m, m.waitForEventCmd
		}
		m.state = editingState
		return m, tea.ExecProcess(c, func(err error) tea.Msg {
			return editFinishedMsg{req: msg, err: err}
		})

	case editFinishedMsg:
		m.state = runningState
		msg.req.done <- msg.err
		return m, m.waitForEventCmd

	case runDoneMsg:
		m.drain()
		m.Result = msg.res
		if msg.err != nil {
			e := asError(msg.err)
			m.Error = &e
			m.state = errorState
		} else {
			m.state = doneState
		}
		m.cancel()
		return m, m.quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.state == editingState {
				break
			}
			m.cancel()
			m.Error = &errs.Error{Err: context.Canceled, Reason: "The run was cancelled."}
			m.state = errorState
			return m, m.quit
		}

	case spinner.TickMsg:
		if m.state == doneState || m.state == errorState {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// drain applies tool events still queued when the run returned.
func (m *Progress) drain() {
	for {
		select {
		case msg := <-m.events:
			switch msg := msg.(type) {
			case toolStartedMsg:
				m.start(msg.ev)
			case toolFinishedMsg:
				m.finish(msg.ev)
			case editRequestMsg:
				msg.done <- errs.UserErrorf("the run already finished")
			}
		default:
			return
		}
	}
}

func (m *Progress) start(ev agent.ToolEvent) {
	m.index[ev.ID] = len(m.calls)
	m.calls = append(m.calls, toolLine{ev: ev, running: true})
}

func (m *Progress) finish(ev agent.ToolEvent) {
	i, ok := m.index[ev.ID]
	if !ok {
		m.start(ev)
		i = len(m.calls) - 1
	}
	m.calls[i] = toolLine{ev: ev}
}

func (m *Progress) quit() tea.Msg {
	return tea.Quit()
}

// View implements tea.Model.
func (m *Progress) View() string {
	if m.state == editingState {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	for _, c := range m.calls {
		b.WriteString(m.line(c))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Progress) header() string {
	title := present.MakeGradientText(m.Styles.AppName, m.title)
	elapsed := m.now().Sub(m.started).Round(time.Second)
	switch m.state {
	case doneState:
		return fmt.Sprintf("%s %s %s", m.Styles.ToolOK, title, m.Styles.Comment.Render(m.summary()))
	case errorState:
		return fmt.Sprintf("%s %s %s", m.Styles.ToolFailed, title, m.Styles.Comment.Render(m.summary()))
	default:
		return fmt.Sprintf("%s %s %s", m.spinner.View(), title, m.Styles.Comment.Render(elapsed.String()))
	}
}

func (m *Progress) summary() string {
	u := m.Result.Usage
	return fmt.Sprintf("%d tool calls, %d steps, %d tokens", len(m.calls), m.Result.Steps, u.TotalTokens)
}

func (m *Progress) line(c toolLine) string {
	mark := m.spinner.View()
	if !c.running {
		mark = m.Styles.ToolOK.String()
		if c.ev.Failed {
			mark = m.Styles.ToolFailed.String()
		}
	}
	parts := []string{"  " + mark, m.Styles.ToolName.Render(c.ev.Name)}
	if in := summarize(c.ev.Input, m.inputWidth()); in != "" {
		parts = append(parts, m.Styles.CliArgs.Render(in))
	}
	if !c.running {
		parts = append(parts, m.Styles.Comment.Render(c.ev.Duration.Round(time.Millisecond).String()))
	}
	return strings.Join(parts, " ")
}

func (m *Progress) inputWidth() int {
	if m.width > 0 && m.width/2 < maxInputWidth {
		return m.width / 2
	}
	return maxInputWidth
}

// summarize squashes s onto one line of at most n runes.
func summarize(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "{}" {
		return ""
	}
	r := []rune(s)
	if n <= 1 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func asError(err error) errs.Error {
	var e errs.Error
	if errors.As(err, &e) {
		return e
	}
	return errs.Error{Err: err}
}
