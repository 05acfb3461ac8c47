package tools

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/sortedstartup/ztr/internal/shell"
)

var shellSafe = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// quote makes s a single POSIX shell word.
func quote(s string) string {
	if shellSafe.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func shellLine(argv []string) string {
	words := make([]string, len(argv))
	for i, a := range argv {
		words[i] = quote(a)
	}
	return strings.Join(words, " ")
}

// containerCommand runs line through the container shell.
func (t *Toolbox) containerCommand(line string, timeout time.Duration) shell.Command {
	return shell.Command{
		Name:    t.Container.Docker,
		Args:    []string{"exec", t.Container.Name, t.Container.Shell, "-c", line},
		Timeout: timeout,
	}
}

// script runs each argv in dir, stopping at the first failure. Inside the
// container the steps are joined into one `cd dir && a && b` line.
func (t *Toolbox) script(ctx context.Context, dir string, timeout time.Duration, steps ...[]string) (shell.Result, error) {
	if t.InContainer {
		parts := make([]string, 0, len(steps)+1)
		if dir != "" {
			parts = append(parts, "cd "+quote(dir))
		}
		for _, argv := range steps {
			parts = append(parts, shellLine(argv))
		}
		return t.run(ctx, t.containerCommand(strings.Join(parts, " && "), timeout))
	}

	var combined shell.Result
	for _, argv := range steps {
		remaining := timeout - combined.Duration
		if remaining <= 0 {
			return combined, shell.ErrTimeout
		}
		res, err := t.run(ctx, shell.Command{Name: argv[0], Args: argv[1:], Dir: dir, Timeout: remaining})
		combined.Stdout += res.Stdout
		combined.Stderr += res.Stderr
		combined.ExitCode = res.ExitCode
		combined.Duration += res.Duration
		if err != nil {
			return combined, err
		}
	}
	return combined, nil
}

// CommandResult is returned by tools that run a single external command.
type CommandResult struct {
	Status
	Output   string `json:"output,omitempty"`
	ExitCode int    `json:"exit_code"`
}

func timedOut(err error) bool {
	return errors.Is(err, shell.ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// commandResult folds a process outcome into a CommandResult.
func commandResult(res shell.Result, err error, okMsg, failMsg, timeoutMsg string) CommandResult {
	switch {
	case err == nil:
		return CommandResult{Status: succeeded("%s", okMsg), Output: res.Output(), ExitCode: res.ExitCode}
	case timedOut(err):
		return CommandResult{Status: failed("%s", timeoutMsg), Output: res.Output(), ExitCode: res.ExitCode}
	default:
		return CommandResult{Status: failed("%s: %v", failMsg, err), Output: res.Output(), ExitCode: res.ExitCode}
	}
}
