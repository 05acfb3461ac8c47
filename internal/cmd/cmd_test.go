package cmd

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"charm.land/fantasy"
	"github.com/stretchr/testify/require"

	"github.com/sortedstartup/ztr/internal/agent"
	"github.com/sortedstartup/ztr/internal/config"
	"github.com/sortedstartup/ztr/internal/fantasybridge"
	"github.com/sortedstartup/ztr/internal/shell/shelltest"
)

type fakeGenerator struct {
	mu     sync.Mutex
	calls  []fantasy.AgentCall
	models []string
	output string
	err    error
}

func (g *fakeGenerator) factory(_ context.Context, _ fantasybridge.Config, model string, _ ...fantasy.AgentOption) (agent.Generator, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.models = append(g.models, model)
	return g, nil
}

func (g *fakeGenerator) Generate(_ context.Context, call fantasy.AgentCall) (*fantasy.AgentResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call)
	if g.err != nil {
		return nil, g.err
	}
	return &fantasy.AgentResult{
		Response: fantasy.Response{
			Content: fantasy.ResponseContent{fantasy.TextContent{Text: g.output}},
		},
		Steps:      make([]fantasy.StepResult, 2),
		TotalUsage: fantasy.Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
	}, nil
}

func (g *fakeGenerator) lastPrompt(t *testing.T) string {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	require.NotEmpty(t, g.calls)
	return g.calls[len(g.calls)-1].Prompt
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.CachePath = t.TempDir()
	cfg.Workspace = t.TempDir()
	cfg.MaxRetries = 0
	cfg.APIs = config.APIs{
		{
			Name:   "openai",
			APIKey: "test-key",
			Models: map[string]config.Model{
				"gpt-test":  {Aliases: []string{"test"}},
				"gpt-other": {},
			},
		},
	}
	cfg.Model = "gpt-test"
	cfg.Agents = map[string]config.Agent{
		"echo": {
			Description:  "Repeat the task",
			Model:        "gpt-test",
			Instructions: []string{"Answer briefly for [[.Container]]."},
			Tools:        []string{"get_timestamp"},
		},
		"fixer": {
			Description:  "Fix a repository",
			Instructions: []string{"You fix things."},
			TaskTemplate: "Fix [[.Repo]]: [[.Task]]",
		},
	}
	return cfg
}

func testRuntime(t *testing.T, gen *fakeGenerator) *runtime {
	t.Helper()
	interactive := false
	return &runtime{
		build:       BuildInfo{Version: "v0.0.0-test"},
		cfg:         testConfig(t),
		runner:      &shelltest.Runner{},
		factory:     gen.factory,
		interactive: &interactive,
	}
}

func execute(t *testing.T, rt *runtime, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd(rt)
	var out, errb bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errb)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errb.String(), err
}
