package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"charm.land/fantasy"

	"github.com/sortedstartup/ztr/internal/errs"
)

// Tool groups, usable in agent tool lists as "@<group>".
const (
	GroupFiles     = "files"
	GroupClock     = "clock"
	GroupContainer = "container"
	GroupGit       = "git"
	GroupGo        = "go"
	GroupTemplate  = "template"
	GroupReview    = "review"
	GroupWeb       = "web"
	GroupGitHub    = "github"
)

// Spec describes one catalog tool.
type Spec struct {
	Name        string
	Group       string
	Description string

	build func(t *Toolbox, s Spec) fantasy.AgentTool
}

type reporter interface {
	status() Status
}

// bind adapts a typed tool function to a fantasy agent tool. Results are
// sent back as JSON text; failures stay in-band as status "error".
func bind[P any, R reporter](fn func(*Toolbox) func(context.Context, P) R) func(*Toolbox, Spec) fantasy.AgentTool {
	return func(t *Toolbox, s Spec) fantasy.AgentTool {
		call := fn(t)
		return fantasy.NewAgentTool(s.Name, s.Description,
			func(ctx context.Context, params P, _ fantasy.ToolCall) (fantasy.ToolResponse, error) {
				res := call(ctx, params)
				if st := res.status(); !st.OK() {
					t.log().Warn("tool reported a problem", "tool", s.Name, "status", st.Status, "message", st.Message)
				}
				bts, err := json.Marshal(res)
				if err != nil {
					return fantasy.NewTextErrorResponse(fmt.Sprintf("could not encode %s result: %v", s.Name, err)), nil
				}
				return fantasy.NewTextResponse(string(bts)), nil
			})
	}
}

func static[P any, R reporter](fn func(context.Context, P) R) func(*Toolbox) func(context.Context, P) R {
	return func(*Toolbox) func(context.Context, P) R { return fn }
}

var catalog = []Spec{
	{Name: "read_file", Group: GroupFiles, Description: "Read the full content of a file.", build: bind(static(ReadFile))},
	{Name: "write_file", Group: GroupFiles, Description: "Write content to a file, replacing it. Parent directories are created.", build: bind(static(WriteFile))},
	{Name: "grep_file", Group: GroupFiles, Description: "Return the lines of a file matching a regular expression.", build: bind(static(GrepFile))},
	{Name: "sed_file", Group: GroupFiles, Description: "Replace every line matching a regular expression, or insert a line before each match.", build: bind(static(SedFile))},
	{Name: "insert_at_line", Group: GroupFiles, Description: "Insert content before a 1-based line number of a file.", build: bind(static(InsertAtLine))},
	{Name: "append_file", Group: GroupFiles, Description: "Append content to a file on its own line, creating the file if needed.", build: bind(static(AppendFile))},
	{Name: "rename_file", Group: GroupFiles, Description: "Rename a file or directory.", build: bind(static(RenameFile))},
	{Name: "move_file", Group: GroupFiles, Description: "Move a file to a new path that must not exist yet.", build: bind(static(MoveFile))},
	{Name: "list_files", Group: GroupFiles, Description: "List a directory, optionally recursively. Directories end with a slash.", build: bind(static(ListFiles))},
	{Name: "read_transcript", Group: GroupFiles, Description: "Read a meeting transcript and get a prompt for summarizing it into GitHub issue actions.", build: bind(static(ReadTranscript))},

	{Name: "get_timestamp", Group: GroupClock, Description: "Get the current local time as YYYYMMDDHHMMSS, for versioned file names.", build: bind((*Toolbox).getTimestamp)},

	{Name: "connect_to_container", Group: GroupContainer, Description: "Check the development container is running and reachable.", build: bind((*Toolbox).connectToContainer)},
	{Name: "exec_in_container", Group: GroupContainer, Description: "Run a shell command inside the development container.", build: bind((*Toolbox).execInContainer)},
	{Name: "clone_repo_in_container", Group: GroupContainer, Description: "Clone a git repository into a directory inside the development container.", build: bind((*Toolbox).cloneRepoInContainer)},

	{Name: "git_clone", Group: GroupGit, Description: "Clone a git repository.", build: bind((*Toolbox).gitClone)},
	{Name: "git_init", Group: GroupGit, Description: "Initialize a git repository in a directory.", build: bind((*Toolbox).gitInit)},
	{Name: "git_commit", Group: GroupGit, Description: "Stage all changes of a repository and commit them.", build: bind((*Toolbox).gitCommit)},

	{Name: "go_generate", Group: GroupGo, Description: "Run go generate ./... to regenerate code such as protobuf stubs.", build: bind((*Toolbox).goGenerate)},
	{Name: "go_build", Group: GroupGo, Description: "Run go build ./... and return the build logs.", build: bind((*Toolbox).goBuild)},

	{Name: "run_template", Group: GroupTemplate, Description: "Replace template placeholders (like {{.ModuleName}}) in a cloned template repository.", build: bind((*Toolbox).runTemplate)},

	{Name: "request_review", Group: GroupReview, Description: "Ask a human to review and edit a draft. Blocks until they save and close their editor.", build: bind((*Toolbox).requestReview)},

	{Name: "extract_headings", Group: GroupWeb, Description: "Fetch a web page and return the text of its h1 elements, or of a CSS selector.", build: bind((*Toolbox).extractHeadings)},

	{Name: "list_issues", Group: GroupGitHub, Description: "List the issues of a GitHub repository with their numbers.", build: bind((*Toolbox).listIssues)},
	{Name: "manage_issue", Group: GroupGitHub, Description: "Create, update or close a GitHub issue.", build: bind((*Toolbox).manageIssue)},
}

func (t *Toolbox) getTimestamp() func(context.Context, GetTimestampParams) GetTimestampResult {
	return t.GetTimestamp
}

func (t *Toolbox) connectToContainer() func(context.Context, ConnectContainerParams) CommandResult {
	return t.ConnectToContainer
}

func (t *Toolbox) execInContainer() func(context.Context, ExecInContainerParams) CommandResult {
	return t.ExecInContainer
}

func (t *Toolbox) cloneRepoInContainer() func(context.Context, CloneInContainerParams) CommandResult {
	return t.CloneRepoInContainer
}

func (t *Toolbox) gitClone() func(context.Context, GitCloneParams) CommandResult { return t.GitClone }

func (t *Toolbox) gitInit() func(context.Context, GitInitParams) CommandResult { return t.GitInit }

func (t *Toolbox) gitCommit() func(context.Context, GitCommitParams) CommandResult { return t.GitCommit }

func (t *Toolbox) goGenerate() func(context.Context, GoParams) CommandResult { return t.GoGenerate }

func (t *Toolbox) goBuild() func(context.Context, GoParams) GoBuildResult { return t.GoBuild }

func (t *Toolbox) runTemplate() func(context.Context, RunTemplateParams) CommandResult {
	return t.RunTemplate
}

func (t *Toolbox) requestReview() func(context.Context, RequestReviewParams) RequestReviewResult {
	return t.RequestReview
}

func (t *Toolbox) extractHeadings() func(context.Context, ExtractHeadingsParams) ExtractHeadingsResult {
	return t.ExtractHeadings
}

func (t *Toolbox) listIssues() func(context.Context, ListIssuesParams) ListIssuesResult {
	return t.ListIssues
}

func (t *Toolbox) manageIssue() func(context.Context, ManageIssueParams) ManageIssueResult {
	return t.ManageIssue
}

// Catalog returns every built-in tool, grouped and in declaration order.
func Catalog() []Spec {
	return slices.Clone(catalog)
}

// Lookup finds a catalog tool by name.
func Lookup(name string) (Spec, bool) {
	i := slices.IndexFunc(catalog, func(s Spec) bool { return s.Name == name })
	if i < 0 {
		return Spec{}, false
	}
	return catalog[i], true
}

// Expand resolves "@group" references and removes duplicates, keeping the
// first occurrence order.
func Expand(names []string) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if group, ok := strings.CutPrefix(name, "@"); ok {
			found := false
			for _, s := range catalog {
				if s.Group == group {
					add(s.Name)
					found = true
				}
			}
			if !found {
				return nil, errs.Wrapf(fmt.Errorf("unknown tool group %q", group), "Tool group %q does not exist.", group)
			}
			continue
		}
		if _, ok := Lookup(name); !ok {
			return nil, errs.Wrapf(
				fmt.Errorf("unknown tool %q", name),
				"Tool %q does not exist. Run `ztr tools` to see the available tools.", name,
			)
		}
		add(name)
	}
	return out, nil
}

// Build returns fantasy tools for the given names, which may include groups.
func (t *Toolbox) Build(names []string) ([]fantasy.AgentTool, error) {
	expanded, err := Expand(names)
	if err != nil {
		return nil, err
	}
	out := make([]fantasy.AgentTool, 0, len(expanded))
	for _, name := range expanded {
		s, _ := Lookup(name)
		out = append(out, s.build(t, s))
	}
	return out, nil
}
