package tools

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
)

type GoParams struct {
	WorkingDir string `json:"working_dir" description:"Directory of the Go module"`
}

type GoBuildResult struct {
	Status
	BuildLogs  string `json:"build_logs"`
	Successful bool   `json:"successful"`
}

// GoBuild runs `go build ./...`.
func (t *Toolbox) GoBuild(ctx context.Context, p GoParams) GoBuildResult {
	if msg, ok := t.checkDir(p.WorkingDir); !ok {
		return GoBuildResult{Status: failed("%s", msg)}
	}
	res, err := t.script(ctx, p.WorkingDir, t.Timeouts.Build, []string{"go", "build", "./..."})
	logs := strings.TrimSpace(res.Stdout)
	if stderr := strings.TrimSpace(res.Stderr); stderr != "" {
		if logs != "" {
			logs += "\n"
		}
		logs += stderr
	}
	switch {
	case err == nil:
		return GoBuildResult{Status: succeeded("Build completed successfully"), BuildLogs: logs, Successful: true}
	case timedOut(err):
		return GoBuildResult{Status: failed("Build timed out after %s", t.Timeouts.Build), BuildLogs: logs}
	default:
		return GoBuildResult{Status: failed("Build failed: %v", err), BuildLogs: logs}
	}
}

// GoGenerate runs `go generate ./...`, which is how the protobuf stubs of
// the template repositories are produced.
func (t *Toolbox) GoGenerate(ctx context.Context, p GoParams) CommandResult {
	if msg, ok := t.checkDir(p.WorkingDir); !ok {
		return CommandResult{Status: failed("%s", msg)}
	}
	res, err := t.script(ctx, p.WorkingDir, t.Timeouts.Generate, []string{"go", "generate", "./..."})
	return commandResult(res, err,
		"Code generation completed successfully.",
		"Code generation failed",
		"Code generation timed out.",
	)
}

// checkDir validates a host directory. Container paths are not checked.
func (t *Toolbox) checkDir(dir string) (string, bool) {
	if dir == "" {
		return "working_dir is required.", false
	}
	if t.InContainer {
		return "", true
	}
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "Working directory does not exist: " + dir, false
	case err != nil:
		return "Error accessing working directory: " + err.Error(), false
	case !info.IsDir():
		return "Working directory is not a directory: " + dir, false
	}
	return "", true
}
