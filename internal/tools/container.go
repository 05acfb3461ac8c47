package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/sortedstartup/ztr/internal/shell"
)

type ConnectContainerParams struct{}

// ConnectToContainer checks the development container answers `docker exec`.
func (t *Toolbox) ConnectToContainer(ctx context.Context, _ ConnectContainerParams) CommandResult {
	res, err := t.run(ctx, shell.Command{
		Name:    t.Container.Docker,
		Args:    []string{"exec", t.Container.Name, "echo", "connected"},
		Timeout: t.Timeouts.ContainerCheck,
	})
	switch {
	case err == nil:
		return CommandResult{Status: succeeded("Container is reachable."), Output: strings.TrimSpace(res.Stdout)}
	case timedOut(err):
		return CommandResult{Status: failed("Timeout while checking container."), ExitCode: res.ExitCode}
	case res.ExitCode > 0:
		return CommandResult{
			Status:   failed("Failed to reach container:\n%s", strings.TrimSpace(res.Stderr)),
			ExitCode: res.ExitCode,
		}
	default:
		return CommandResult{Status: failed("Error: %v", err), ExitCode: res.ExitCode}
	}
}

type ExecInContainerParams struct {
	Command    string `json:"command" description:"Shell command run with the container shell"`
	WorkingDir string `json:"working_dir,omitempty" description:"Directory inside the container to run the command in"`
}

// ExecInContainer runs an arbitrary shell line inside the container.
func (t *Toolbox) ExecInContainer(ctx context.Context, p ExecInContainerParams) CommandResult {
	if strings.TrimSpace(p.Command) == "" {
		return CommandResult{Status: failed("Command is empty.")}
	}
	line := p.Command
	if p.WorkingDir != "" {
		line = "cd " + quote(p.WorkingDir) + " && " + line
	}
	res, err := t.run(ctx, t.containerCommand(line, t.Timeouts.ContainerExec))
	return commandResult(res, err,
		"Command completed successfully.",
		"Command failed",
		fmt.Sprintf("Command timed out after %s.", t.Timeouts.ContainerExec),
	)
}

type CloneInContainerParams struct {
	RepoURL    string `json:"repo_url" description:"Git URL of the repository to clone"`
	TargetPath string `json:"target_path" description:"Directory inside the container the repository is cloned into"`
}

// CloneRepoInContainer clones a repository inside the container.
func (t *Toolbox) CloneRepoInContainer(ctx context.Context, p CloneInContainerParams) CommandResult {
	if p.RepoURL == "" {
		return CommandResult{Status: failed("repo_url is required.")}
	}
	target := p.TargetPath
	if target == "" {
		target = "."
	}
	line := "cd " + quote(target) + " && " + shellLine([]string{"git", "clone", p.RepoURL})
	res, err := t.run(ctx, t.containerCommand(line, t.Timeouts.Clone))
	switch {
	case err == nil:
		return CommandResult{Status: succeeded("Repository cloned successfully:\n%s", res.Output())}
	case timedOut(err):
		return CommandResult{Status: failed("Clone operation timed out."), ExitCode: res.ExitCode}
	case res.ExitCode > 0:
		return CommandResult{Status: failed("Clone failed:\n%s", strings.TrimSpace(res.Stderr)), ExitCode: res.ExitCode}
	default:
		return CommandResult{Status: failed("Error: %v", err), ExitCode: res.ExitCode}
	}
}
