package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sortedstartup/ztr/internal/errs"
	"github.com/sortedstartup/ztr/internal/recipe"
	"github.com/sortedstartup/ztr/internal/storage"
)

func TestRunAgent(t *testing.T) {
	gen := &fakeGenerator{output: "all done"}
	rt := testRuntime(t, gen)

	out, stderr, err := execute(t, rt, "", "run", "echo", "say", "hi")
	require.NoError(t, err)
	require.Equal(t, "all done\n", out)
	require.Contains(t, stderr, "Run saved:")
	require.Contains(t, stderr, "Tokens: 10 input, 5 output, 15 total (2 steps, gpt-test)")
	require.Equal(t, "say hi", gen.lastPrompt(t))
	require.Equal(t, []string{"gpt-test"}, gen.models)

	store, err := storage.OpenStore(rt.cfg.CachePath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	runs := store.List()
	require.Len(t, runs, 1)
	require.Equal(t, "echo", runs[0].Agent)
	require.Equal(t, storage.StatusSucceeded, runs[0].Status)

	tr, err := store.Transcript(runs[0].ID)
	require.NoError(t, err)
	require.Equal(t, "say hi", tr.Task)
	require.Equal(t, "Answer briefly for work-dev-1.", tr.Instructions)
	require.Equal(t, "all done", tr.Output)
	require.EqualValues(t, 15, tr.TotalTokens)
}

func TestRunAgentQuietNoCache(t *testing.T) {
	gen := &fakeGenerator{output: "ok"}
	rt := testRuntime(t, gen)

	out, stderr, err := execute(t, rt, "", "run", "echo", "--quiet", "--no-cache", "hi")
	require.NoError(t, err)
	require.Equal(t, "ok\n", out)
	require.NotContains(t, stderr, "Tokens:")
	require.NotContains(t, stderr, "Run saved:")
	require.NotContains(t, stderr, "not saved")

	store, err := storage.OpenStore(rt.cfg.CachePath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.Empty(t, store.List())
}

func TestRunAgentNoCacheNotice(t *testing.T) {
	gen := &fakeGenerator{output: "ok"}
	rt := testRuntime(t, gen)

	_, stderr, err := execute(t, rt, "", "run", "echo", "--no-cache", "hi")
	require.NoError(t, err)
	require.Contains(t, stderr, "Run was not saved")
}

func TestRunAgentTaskFromStdin(t *testing.T) {
	gen := &fakeGenerator{output: "ok"}
	rt := testRuntime(t, gen)

	_, _, err := execute(t, rt, "task from stdin\n", "run", "echo", "--no-cache")
	require.NoError(t, err)
	require.Equal(t, "task from stdin", gen.lastPrompt(t))
}

func TestRunAgentVars(t *testing.T) {
	t.Run("task template", func(t *testing.T) {
		gen := &fakeGenerator{output: "ok"}
		rt := testRuntime(t, gen)

		_, _, err := execute(t, rt, "", "run", "fixer", "--no-cache", "--var", "Repo=acme/app", "the build")
		require.NoError(t, err)
		require.Equal(t, "Fix acme/app: the build", gen.lastPrompt(t))
	})

	t.Run("missing variable", func(t *testing.T) {
		gen := &fakeGenerator{output: "ok"}
		rt := testRuntime(t, gen)

		_, _, err := execute(t, rt, "", "run", "fixer", "--no-cache", "the build")
		var zerr errs.Error
		require.ErrorAs(t, err, &zerr)
		require.Contains(t, zerr.Reason, "--var Name=value")
		require.Empty(t, gen.calls)
	})

	t.Run("bad pair", func(t *testing.T) {
		gen := &fakeGenerator{}
		rt := testRuntime(t, gen)

		_, _, err := execute(t, rt, "", "run", "fixer", "--var", "Repo", "x")
		require.Error(t, err)
		require.Empty(t, gen.calls)
	})
}

func TestRunAgentErrors(t *testing.T) {
	t.Run("unknown agent", func(t *testing.T) {
		rt := testRuntime(t, &fakeGenerator{})
		_, _, err := execute(t, rt, "", "run", "nope", "x")
		var zerr errs.Error
		require.ErrorAs(t, err, &zerr)
		require.Contains(t, zerr.Reason, `Agent "nope" does not exist`)
	})

	t.Run("no task", func(t *testing.T) {
		rt := testRuntime(t, &fakeGenerator{})
		_, _, err := execute(t, rt, "", "run", "echo")
		var zerr errs.Error
		require.ErrorAs(t, err, &zerr)
		require.Contains(t, zerr.Reason, "has no default task")
	})

	t.Run("config error", func(t *testing.T) {
		rt := testRuntime(t, &fakeGenerator{})
		rt.cfgErr = errors.New("bad settings")
		_, _, err := execute(t, rt, "", "run", "echo", "x")
		require.EqualError(t, err, "bad settings")
	})

	t.Run("failed run is recorded", func(t *testing.T) {
		gen := &fakeGenerator{err: errors.New("boom")}
		rt := testRuntime(t, gen)

		out, _, err := execute(t, rt, "", "run", "echo", "x")
		var zerr errs.Error
		require.ErrorAs(t, err, &zerr)
		require.Empty(t, out)

		store, err := storage.OpenStore(rt.cfg.CachePath)
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		runs := store.List()
		require.Len(t, runs, 1)
		require.Equal(t, storage.StatusFailed, runs[0].Status)
		tr, err := store.Transcript(runs[0].ID)
		require.NoError(t, err)
		require.Contains(t, tr.Error, "boom")
	})
}

func TestSelectModel(t *testing.T) {
	def := recipe.Definition{Name: "a", API: "openai", Model: "gpt-test"}
	for name, tc := range map[string]struct {
		flags     map[string]string
		def       recipe.Definition
		wantAPI   string
		wantModel string
	}{
		"definition":          {def: def, wantAPI: "openai", wantModel: "gpt-test"},
		"model flag":          {flags: map[string]string{"model": "gpt-other"}, def: def, wantModel: "gpt-other"},
		"model and api flags": {flags: map[string]string{"model": "gpt-other", "api": "azure"}, def: def, wantAPI: "azure", wantModel: "gpt-other"},
		"settings default":    {def: recipe.Definition{Name: "b"}},
	} {
		t.Run(name, func(t *testing.T) {
			rt := testRuntime(t, &fakeGenerator{})
			c := newRunCmd(rt)
			for k, v := range tc.flags {
				require.NoError(t, c.Flags().Set(k, v))
			}
			api, model := selectModel(c, &rt.cfg, tc.def)
			require.Equal(t, tc.wantAPI, api)
			require.Equal(t, tc.wantModel, model)
		})
	}
}

func TestPrepareWorkspace(t *testing.T) {
	t.Run("current directory", func(t *testing.T) {
		cfg := testConfig(t)
		wd, err := os.Getwd()
		require.NoError(t, err)

		dir, task, err := prepareWorkspace(&cfg, recipe.Definition{Name: "a"}, "do it", time.Now())
		require.NoError(t, err)
		require.Equal(t, wd, dir)
		require.Equal(t, "do it", task)
	})

	t.Run("starter", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.StarterTemplate = t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(cfg.StarterTemplate, "main.go"), []byte("package main\n"), 0o600))
		req := filepath.Join(t.TempDir(), "requirements.md")
		require.NoError(t, os.WriteFile(req, []byte("# todo app\n"), 0o600))

		def := recipe.Definition{Name: "mvp", Workspace: recipe.WorkspaceStarter}
		dir, task, err := prepareWorkspace(&cfg, def, req, time.Now())
		require.NoError(t, err)
		require.Equal(t, cfg.Workspace, filepath.Dir(dir))
		require.FileExists(t, filepath.Join(dir, "main.go"))
		require.Equal(t, filepath.Join(dir, "requirements.md"), task)
		require.FileExists(t, task)
	})

	t.Run("starter with plain task", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.StarterTemplate = t.TempDir()
		def := recipe.Definition{Name: "mvp", Workspace: recipe.WorkspaceStarter}
		_, task, err := prepareWorkspace(&cfg, def, "a todo app", time.Now())
		require.NoError(t, err)
		require.Equal(t, "a todo app", task)
	})

	t.Run("missing starter", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.StarterTemplate = filepath.Join(t.TempDir(), "nope")
		def := recipe.Definition{Name: "mvp", Workspace: recipe.WorkspaceStarter}
		_, _, err := prepareWorkspace(&cfg, def, "x", time.Now())
		var zerr errs.Error
		require.ErrorAs(t, err, &zerr)
	})
}
