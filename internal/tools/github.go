package tools

import (
	"context"
	"net/url"
	"os"
	"strings"

	"github.com/google/go-github/v66/github"
)

// Issue is the part of a GitHub issue agents work with.
type Issue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state,omitempty"`
	URL    string `json:"url,omitempty"`
}

func toIssue(i *github.Issue) Issue {
	return Issue{
		Number: i.GetNumber(),
		Title:  i.GetTitle(),
		State:  i.GetState(),
		URL:    i.GetHTMLURL(),
	}
}

// githubClient returns an authenticated client, or a failure message.
func (t *Toolbox) githubClient() (*github.Client, string) {
	token := t.GitHubToken
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token == "" {
		return nil, "GitHub token not found in environment variable GITHUB_TOKEN."
	}
	client := github.NewClient(t.HTTPClient).WithAuthToken(token)
	if t.GitHubBaseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(t.GitHubBaseURL, "/") + "/")
		if err != nil {
			return nil, "Invalid GitHub base URL: " + err.Error()
		}
		client.BaseURL = base
	}
	return client, ""
}

func splitRepo(repo string) (string, string, bool) {
	owner, name, ok := strings.Cut(strings.TrimSpace(repo), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", false
	}
	return owner, name, true
}

type ListIssuesParams struct {
	Repo  string `json:"repo" description:"Repository as owner/name"`
	State string `json:"state,omitempty" description:"open, closed or all; defaults to open"`
}

type ListIssuesResult struct {
	Status
	Issues []Issue `json:"issues"`
}

// ListIssues lists the issues of a repository, pull requests excluded.
func (t *Toolbox) ListIssues(ctx context.Context, p ListIssuesParams) ListIssuesResult {
	owner, name, ok := splitRepo(p.Repo)
	if !ok {
		return ListIssuesResult{Status: failed("Invalid repo %q, expected owner/name.", p.Repo), Issues: []Issue{}}
	}
	client, msg := t.githubClient()
	if client == nil {
		return ListIssuesResult{Status: failed("%s", msg), Issues: []Issue{}}
	}
	state := p.State
	if state == "" {
		state = "open"
	}

	issues := []Issue{}
	opts := &github.IssueListByRepoOptions{State: state, ListOptions: github.ListOptions{PerPage: 100}}
	for {
		page, resp, err := client.Issues.ListByRepo(ctx, owner, name, opts)
		if err != nil {
			return ListIssuesResult{Status: failed("Request failed: %v", err), Issues: []Issue{}}
		}
		for _, i := range page {
			if i.IsPullRequest() {
				continue
			}
			issues = append(issues, toIssue(i))
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return ListIssuesResult{Status: succeeded("Found %d %s issue(s) in %s.", len(issues), state, p.Repo), Issues: issues}
}

type ManageIssueParams struct {
	Action string `json:"action" description:"create, update or close"`
	Repo   string `json:"repo" description:"Repository as owner/name"`
	Number int    `json:"number,omitempty" description:"Issue number, required for update and close"`
	Title  string `json:"title,omitempty" description:"Issue title"`
	Body   string `json:"body,omitempty" description:"Issue body in markdown"`
}

type ManageIssueResult struct {
	Status
	Issue *Issue `json:"issue,omitempty"`
}

// ManageIssue creates, updates or closes an issue.
func (t *Toolbox) ManageIssue(ctx context.Context, p ManageIssueParams) ManageIssueResult {
	owner, name, ok := splitRepo(p.Repo)
	if !ok {
		return ManageIssueResult{Status: failed("Invalid repo %q, expected owner/name.", p.Repo)}
	}

	ptr := func(s string) *string { return &s }
	var req github.IssueRequest
	switch p.Action {
	case "create":
		title := p.Title
		if title == "" {
			title = "No title"
		}
		req.Title, req.Body = ptr(title), ptr(p.Body)
	case "update":
		if p.Number == 0 {
			return ManageIssueResult{Status: failed("Missing 'number' for update action.")}
		}
		if p.Title != "" {
			req.Title = ptr(p.Title)
		}
		if p.Body != "" {
			req.Body = ptr(p.Body)
		}
	case "close":
		if p.Number == 0 {
			return ManageIssueResult{Status: failed("Missing 'number' for close action.")}
		}
		req.State = ptr("closed")
	default:
		return ManageIssueResult{Status: failed("Unknown action: %s", p.Action)}
	}

	client, msg := t.githubClient()
	if client == nil {
		return ManageIssueResult{Status: failed("%s", msg)}
	}

	var (
		issue *github.Issue
		err   error
	)
	if p.Action == "create" {
		issue, _, err = client.Issues.Create(ctx, owner, name, &req)
	} else {
		issue, _, err = client.Issues.Edit(ctx, owner, name, p.Number, &req)
	}
	if err != nil {
		return ManageIssueResult{Status: failed("Request failed: %v", err)}
	}
	out := toIssue(issue)
	return ManageIssueResult{Status: succeeded("Issue #%d %sd.", out.Number, p.Action), Issue: &out}
}
