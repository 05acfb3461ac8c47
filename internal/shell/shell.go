// Package shell runs external processes on behalf of tools.
//
// Every process gets its own timeout, captured stdout/stderr and an exit
// code. Callers decide how failures are reported; Run only classifies them.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/caarlos0/go-shellwords"
)

// ErrTimeout is returned when a command outlives its timeout.
var ErrTimeout = errors.New("timed out")

// waitDelay bounds how long Run waits for the output pipes to close once
// the process group was killed.
const waitDelay = 2 * time.Second

// Command describes a process to start.
type Command struct {
	Name    string
	Args    []string
	Dir     string
	Env     []string
	Stdin   io.Reader
	Timeout time.Duration
}

func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	for _, p := range append([]string{c.Name}, c.Args...) {
		if p == "" || strings.ContainsAny(p, " \t\n\"'") {
			p = fmt.Sprintf("%q", p)
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}

// Result is what a finished (or killed) process left behind.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Output returns stdout and stderr joined, trimmed.
func (r Result) Output() string {
	return strings.TrimSpace(strings.TrimSpace(r.Stdout) + "\n" + strings.TrimSpace(r.Stderr))
}

// Runner starts commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// Exec runs commands with os/exec.
type Exec struct {
	Log *slog.Logger
}

var _ Runner = Exec{}

// Run implements Runner.
//
// The returned error is nil only when the process exited with status 0.
// Timeouts wrap ErrTimeout; a non-zero exit keeps the exit code in Result.
func (e Exec) Run(ctx context.Context, c Command) (Result, error) {
	log := e.Log
	if log == nil {
		log = slog.Default()
	}

	runCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdin = c.Stdin
	cmd.WaitDelay = waitDelay
	killGroupOnCancel(cmd)
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	log.Debug("process finished", "cmd", c.String(), "dir", c.Dir, "took", res.Duration, "err", err)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		res.ExitCode = -1
		return res, fmt.Errorf("%s %w after %s", c.Name, ErrTimeout, c.Timeout)
	}
	if err != nil {
		res.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		}
		return res, fmt.Errorf("%s: %w", c.Name, err)
	}
	return res, nil
}

// Split parses a configured command line such as `template-runner --verbose`
// into its program and arguments.
func Split(line string) (string, []string, error) {
	args, err := shellwords.Parse(line)
	if err != nil {
		return "", nil, fmt.Errorf("parse command %q: %w", line, err)
	}
	if len(args) == 0 {
		return "", nil, fmt.Errorf("empty command")
	}
	return args[0], args[1:], nil
}
