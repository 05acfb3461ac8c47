package tools

import (
	"context"
	"fmt"
	"strings"
)

type GitCloneParams struct {
	RepoURL   string `json:"repo_url" description:"Git URL of the repository to clone"`
	Directory string `json:"directory,omitempty" description:"Destination directory, defaults to the repository name"`
}

// GitClone clones a repository.
func (t *Toolbox) GitClone(ctx context.Context, p GitCloneParams) CommandResult {
	if p.RepoURL == "" {
		return CommandResult{Status: failed("repo_url is required.")}
	}
	argv := []string{"git", "clone", p.RepoURL}
	if p.Directory != "" {
		argv = append(argv, p.Directory)
	}
	res, err := t.script(ctx, "", t.Timeouts.Clone, argv)
	return commandResult(res, err,
		"Repository cloned successfully.",
		"Clone failed",
		"Clone operation timed out.",
	)
}

type GitInitParams struct {
	Directory string `json:"directory" description:"Directory to initialize, created when missing"`
}

// GitInit initializes a repository.
func (t *Toolbox) GitInit(ctx context.Context, p GitInitParams) CommandResult {
	if p.Directory == "" {
		return CommandResult{Status: failed("directory is required.")}
	}
	res, err := t.script(ctx, "", t.Timeouts.Git, []string{"git", "init", p.Directory})
	return commandResult(res, err,
		fmt.Sprintf("Initialized git repository in %s.", p.Directory),
		"git init failed",
		"git init timed out.",
	)
}

type GitCommitParams struct {
	Directory   string `json:"directory" description:"Repository directory"`
	Message     string `json:"message" description:"Commit message"`
	AuthorName  string `json:"author_name,omitempty" description:"Committer name, defaults to the git configuration"`
	AuthorEmail string `json:"author_email,omitempty" description:"Committer email, defaults to the git configuration"`
}

// GitCommit stages every change and commits it.
func (t *Toolbox) GitCommit(ctx context.Context, p GitCommitParams) CommandResult {
	if strings.TrimSpace(p.Message) == "" {
		return CommandResult{Status: failed("message is required.")}
	}
	commit := []string{"git"}
	if p.AuthorName != "" {
		commit = append(commit, "-c", "user.name="+p.AuthorName)
	}
	if p.AuthorEmail != "" {
		commit = append(commit, "-c", "user.email="+p.AuthorEmail)
	}
	commit = append(commit, "commit", "-m", p.Message)

	res, err := t.script(ctx, p.Directory, t.Timeouts.Git,
		[]string{"git", "add", "-A"},
		commit,
	)
	return commandResult(res, err,
		"Changes committed successfully.",
		"Commit failed",
		"git commit timed out.",
	)
}
