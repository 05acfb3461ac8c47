// Package tools implements the functions agents can call.
//
// Every tool takes a typed parameter struct and returns a typed result that
// embeds Status. The catalog turns them into fantasy agent tools whose JSON
// schema is derived from the parameter structs.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/charmbracelet/x/editor"

	"github.com/sortedstartup/ztr/internal/config"
	"github.com/sortedstartup/ztr/internal/shell"
)

// EditFunc opens path in an interactive editor and blocks until it exits.
type EditFunc func(ctx context.Context, path string) error

// Toolbox carries what the process-backed tools need.
//
// When InContainer is set, git, go and template tools run inside the
// configured container instead of on the host.
type Toolbox struct {
	Runner         shell.Runner
	InContainer    bool
	Container      config.Container
	Timeouts       config.Timeouts
	TemplateRunner string
	GitHubToken    string
	GitHubBaseURL  string
	HTTPClient     *http.Client
	Edit           EditFunc
	Now            func() time.Time
	Log            *slog.Logger
}

// New returns a toolbox configured from cfg, running processes with runner.
func New(cfg *config.Config, runner shell.Runner) *Toolbox {
	return &Toolbox{
		Runner:         runner,
		Container:      cfg.Container,
		Timeouts:       cfg.Timeouts,
		TemplateRunner: cfg.TemplateRunner,
		GitHubToken:    cfg.GitHubToken,
		GitHubBaseURL:  cfg.GitHubBaseURL,
		HTTPClient:     &http.Client{Timeout: cfg.Timeouts.HTTP},
		Edit:           launchEditor,
		Now:            time.Now,
	}
}

func (t *Toolbox) log() *slog.Logger {
	if t.Log == nil {
		return slog.Default()
	}
	return t.Log
}

func (t *Toolbox) now() time.Time {
	if t.Now == nil {
		return time.Now()
	}
	return t.Now()
}

func (t *Toolbox) run(ctx context.Context, c shell.Command) (shell.Result, error) {
	t.log().Debug("starting process", "cmd", c.String(), "timeout", c.Timeout)
	return t.Runner.Run(ctx, c) //nolint:wrapcheck
}

// EditorCmd returns the $EDITOR command for path, not yet attached to any
// terminal.
func EditorCmd(path string) (*exec.Cmd, error) {
	c, err := editor.Cmd("ztr", path)
	if err != nil {
		return nil, fmt.Errorf("could not open editor: %w", err)
	}
	return c, nil
}

// launchEditor runs $EDITOR on path attached to the process terminal.
func launchEditor(_ context.Context, path string) error {
	c, err := EditorCmd(path)
	if err != nil {
		return err
	}
	c.Stdin = os.Stdin
	c.Stderr = os.Stderr
	c.Stdout = os.Stdout
	if err := c.Run(); err != nil {
		return fmt.Errorf("could not open editor: %w", err)
	}
	return nil
}
