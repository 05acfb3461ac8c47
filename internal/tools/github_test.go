package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func githubServer(t *testing.T, handler http.HandlerFunc) *Toolbox {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &Toolbox{
		HTTPClient:    srv.Client(),
		GitHubToken:   "test-token",
		GitHubBaseURL: srv.URL,
	}
}

func TestListIssues(t *testing.T) {
	var pages []string
	tb := githubServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/acme/widgets/issues", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.Equal(t, "open", r.URL.Query().Get("state"))
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		if page == "" {
			w.Header().Set("Link", fmt.Sprintf(`<http://%s/repos/acme/widgets/issues?page=2>; rel="next"`, r.Host))
			_, _ = fmt.Fprint(w, `[
				{"number": 1, "title": "Broken build", "state": "open", "html_url": "https://github.com/acme/widgets/issues/1"},
				{"number": 2, "title": "Add feature", "state": "open", "pull_request": {"url": "x"}}
			]`)
			return
		}
		_, _ = fmt.Fprint(w, `[{"number": 3, "title": "Docs", "state": "open"}]`)
	})

	res := tb.ListIssues(context.Background(), ListIssuesParams{Repo: "acme/widgets"})
	require.Equal(t, StatusSuccess, res.Status.Status, res.Message)
	require.Equal(t, []string{"", "2"}, pages)
	require.Equal(t, []Issue{
		{Number: 1, Title: "Broken build", State: "open", URL: "https://github.com/acme/widgets/issues/1"},
		{Number: 3, Title: "Docs", State: "open"},
	}, res.Issues)
	require.Equal(t, "Found 2 open issue(s) in acme/widgets.", res.Message)
}

func TestListIssuesErrors(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	ctx := context.Background()

	res := (&Toolbox{}).ListIssues(ctx, ListIssuesParams{Repo: "widgets"})
	require.Equal(t, StatusError, res.Status.Status)
	require.Contains(t, res.Message, "expected owner/name")
	require.NotNil(t, res.Issues)

	res = (&Toolbox{}).ListIssues(ctx, ListIssuesParams{Repo: "acme/widgets"})
	require.Equal(t, StatusError, res.Status.Status)
	require.Equal(t, "GitHub token not found in environment variable GITHUB_TOKEN.", res.Message)

	tb := githubServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	res = tb.ListIssues(ctx, ListIssuesParams{Repo: "acme/widgets", State: "all"})
	require.Equal(t, StatusError, res.Status.Status)
	require.Contains(t, res.Message, "Request failed")
}

func TestManageIssue(t *testing.T) {
	type request struct {
		method string
		path   string
		body   map[string]any
	}
	var got request
	tb := githubServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = request{method: r.Method, path: r.URL.Path}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got.body))
		number := 7
		if r.Method == http.MethodPatch {
			number = 4
		}
		_, _ = fmt.Fprintf(w, `{"number": %d, "title": "t", "state": "open"}`, number)
	})
	ctx := context.Background()

	res := tb.ManageIssue(ctx, ManageIssueParams{Action: "create", Repo: "acme/widgets", Body: "details"})
	require.Equal(t, StatusSuccess, res.Status.Status, res.Message)
	require.Equal(t, "Issue #7 created.", res.Message)
	require.Equal(t, http.MethodPost, got.method)
	require.Equal(t, "/repos/acme/widgets/issues", got.path)
	require.Equal(t, "No title", got.body["title"])
	require.Equal(t, "details", got.body["body"])

	res = tb.ManageIssue(ctx, ManageIssueParams{Action: "update", Repo: "acme/widgets", Number: 4, Title: "Renamed"})
	require.Equal(t, "Issue #4 updated.", res.Message)
	require.Equal(t, http.MethodPatch, got.method)
	require.Equal(t, "/repos/acme/widgets/issues/4", got.path)
	require.Equal(t, map[string]any{"title": "Renamed"}, got.body)

	res = tb.ManageIssue(ctx, ManageIssueParams{Action: "close", Repo: "acme/widgets", Number: 4})
	require.Equal(t, "Issue #4 closed.", res.Message)
	require.Equal(t, map[string]any{"state": "closed"}, got.body)
	require.NotNil(t, res.Issue)
}

func TestManageIssueValidation(t *testing.T) {
	ctx := context.Background()
	tb := &Toolbox{GitHubToken: "x"}
	for name, tc := range map[string]struct {
		params  ManageIssueParams
		message string
	}{
		"update without number": {ManageIssueParams{Action: "update", Repo: "a/b"}, "Missing 'number' for update action."},
		"close without number":  {ManageIssueParams{Action: "close", Repo: "a/b"}, "Missing 'number' for close action."},
		"unknown action":        {ManageIssueParams{Action: "delete", Repo: "a/b", Number: 1}, "Unknown action: delete"},
		"bad repo":              {ManageIssueParams{Action: "create", Repo: "a/b/c"}, `Invalid repo "a/b/c", expected owner/name.`},
	} {
		t.Run(name, func(t *testing.T) {
			res := tb.ManageIssue(ctx, tc.params)
			require.Equal(t, StatusError, res.Status.Status)
			require.Equal(t, tc.message, res.Message)
		})
	}
}
