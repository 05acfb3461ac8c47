// Package shelltest provides a scripted shell.Runner for tests.
package shelltest

import (
	"context"
	"sync"

	"github.com/sortedstartup/ztr/internal/shell"
)

// Runner records every command and answers with Fn, or with an empty
// successful result when Fn is nil.
type Runner struct {
	Fn func(shell.Command) (shell.Result, error)

	mu    sync.Mutex
	calls []shell.Command
}

var _ shell.Runner = &Runner{}

// Run implements shell.Runner.
func (r *Runner) Run(_ context.Context, c shell.Command) (shell.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
	if r.Fn == nil {
		return shell.Result{}, nil
	}
	return r.Fn(c)
}

// Calls returns the commands seen so far.
func (r *Runner) Calls() []shell.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]shell.Command(nil), r.calls...)
}

// Last returns the most recent command.
func (r *Runner) Last() shell.Command {
	calls := r.Calls()
	if len(calls) == 0 {
		return shell.Command{}
	}
	return calls[len(calls)-1]
}
