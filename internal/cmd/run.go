package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sortedstartup/ztr/internal/agent"
	"github.com/sortedstartup/ztr/internal/config"
	"github.com/sortedstartup/ztr/internal/errs"
	"github.com/sortedstartup/ztr/internal/present"
	"github.com/sortedstartup/ztr/internal/recipe"
	"github.com/sortedstartup/ztr/internal/shell"
	"github.com/sortedstartup/ztr/internal/storage"
	"github.com/sortedstartup/ztr/internal/tools"
	"github.com/sortedstartup/ztr/internal/tui"
	"github.com/sortedstartup/ztr/internal/workspace"
)

func newRunCmd(rt *runtime) *cobra.Command {
	var vars []string
	cfg := &rt.cfg
	runCmd := &cobra.Command{
		Use:   "run <agent> [task...]",
		Short: "Run an agent once with a task",
		Long: "Run an agent once with a task. Without a task the agent's default task is used, " +
			"or the task is read from STDIN when it is piped.",
		Args: cobra.MinimumNArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveDefault
			}
			return agentNames(cfg, toComplete), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			parsed, err := parseVars(vars)
			if err != nil {
				return err
			}
			cfg.Vars = parsed

			task := strings.Join(args[1:], " ")
			if strings.TrimSpace(task) == "" {
				task, err = readStdin(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}
			return rt.runAgent(cmd, args[0], task)
		},
	}

	flags := runCmd.Flags()
	flags.StringVarP(&cfg.Model, "model", "m", cfg.Model, flagDesc("model"))
	flags.StringVarP(&cfg.API, "api", "a", cfg.API, flagDesc("api"))
	flags.StringArrayVar(&vars, "var", nil, flagDesc("var"))
	flags.StringVarP(&cfg.Container.Name, "container", "c", cfg.Container.Name, flagDesc("container"))
	flags.StringVarP(&cfg.HTTPProxy, "http-proxy", "x", cfg.HTTPProxy, flagDesc("http-proxy"))
	flags.BoolVarP(&cfg.Raw, "raw", "r", cfg.Raw, flagDesc("raw"))
	flags.BoolVarP(&cfg.Quiet, "quiet", "q", cfg.Quiet, flagDesc("quiet"))
	flags.BoolVar(&cfg.NoTUI, "no-tui", cfg.NoTUI, flagDesc("no-tui"))
	flags.BoolVar(&cfg.NoCache, "no-cache", cfg.NoCache, flagDesc("no-cache"))
	flags.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, flagDesc("max-retries"))
	flags.IntVar(&cfg.MaxSteps, "max-steps", cfg.MaxSteps, flagDesc("max-steps"))
	flags.Int64Var(&cfg.MaxTokens, "max-tokens", cfg.MaxTokens, flagDesc("max-tokens"))
	flags.Float64Var(&cfg.Temperature, "temp", cfg.Temperature, flagDesc("temp"))
	flags.IntVar(&cfg.WordWrap, "word-wrap", cfg.WordWrap, flagDesc("word-wrap"))
	flags.SortFlags = false

	_ = runCmd.RegisterFlagCompletionFunc("model", func(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return modelNames(cfg, toComplete), cobra.ShellCompDirectiveNoFileComp
	})
	return runCmd
}

// runAgent runs the named agent once with task, prints its output and usage,
// and records the run.
func (rt *runtime) runAgent(cmd *cobra.Command, name, task string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := &rt.cfg
	out, err := rt.startRun(ctx, cmd, name, task, !cfg.Quiet && !cfg.NoTUI && rt.showProgress())
	if err != nil {
		return err
	}
	if err := printOutput(cmd.OutOrStdout(), cfg, out.Output); err != nil {
		return err
	}
	if !cfg.Quiet {
		printUsage(cmd.ErrOrStderr(), out.Result)
	}
	return nil
}

// runOutcome is a finished run and the directory it worked in.
type runOutcome struct {
	agent.Result
	Dir string
}

// startRun prepares the workspace, runs the agent and records the run.
// Progress goes to the progress view when progress is set and to the log
// otherwise.
func (rt *runtime) startRun(ctx context.Context, cmd *cobra.Command, name, task string, progress bool) (runOutcome, error) {
	cfg := &rt.cfg
	def, err := recipe.Get(cfg, name)
	if err != nil {
		return runOutcome{}, err
	}
	if err := def.Validate(); err != nil {
		return runOutcome{}, err
	}

	started := time.Now()
	dir, task, err := prepareWorkspace(cfg, def, task, started)
	if err != nil {
		return runOutcome{}, err
	}

	runVars := map[string]string{
		recipe.VarContainer: cfg.Container.Name,
		recipe.VarWorkspace: dir,
	}
	for k, v := range cfg.Vars {
		runVars[k] = v
	}
	vars := def.Variables(runVars)
	instructions, err := def.RenderInstructions(vars)
	if err != nil {
		return runOutcome{}, err
	}
	prompt, err := def.RenderTask(task, vars)
	if err != nil {
		return runOutcome{}, err
	}

	runner := rt.runner
	if runner == nil {
		runner = shell.Exec{}
	}
	box := tools.New(cfg, runner)
	box.InContainer = def.Container
	agentTools, err := box.Build(def.Tools)
	if err != nil {
		return runOutcome{}, err
	}

	api, model := selectModel(cmd, cfg, def)
	req := agent.Request{
		API:          api,
		Model:        model,
		Instructions: instructions,
		Task:         prompt,
		Tools:        agentTools,
		MCPServers:   def.MCPServers,
	}
	svc := agent.New(cfg, nil, runner, rt.factory)
	run := func(ctx context.Context, hooks agent.Hooks, edit tools.EditFunc) (agent.Result, error) {
		req.Hooks = hooks
		if edit != nil {
			box.Edit = edit
		}
		return svc.Run(ctx, req)
	}

	slog.Debug("starting agent", "agent", def.Name, "workspace", dir, "tools", len(agentTools))
	var res agent.Result
	if progress {
		res, err = rt.runWithProgress(ctx, cmd.ErrOrStderr(), def.Name, run)
	} else {
		res, err = run(ctx, logHooks(slog.Default()), nil)
	}

	rec := transcriptOf(def, dir, prompt, instructions, res, err, started)
	if saveErr := rt.saveRun(cmd.ErrOrStderr(), rec); saveErr != nil && err == nil {
		err = saveErr
	}
	return runOutcome{Result: res, Dir: dir}, err
}

// selectModel picks the model: --model, then the agent's, then the settings
// default (left to the agent service as an empty model).
func selectModel(cmd *cobra.Command, cfg *config.Config, def recipe.Definition) (string, string) {
	api, model := def.API, def.Model
	apiSet := cmd.Flags().Changed("api")
	if apiSet {
		api = cfg.API
	}
	if cmd.Flags().Changed("model") {
		model = cfg.Model
		if !apiSet {
			api = ""
		}
	}
	if model == "" {
		return "", ""
	}
	return api, model
}

// prepareWorkspace returns the directory the agent works in. Agents with a
// starter workspace get a fresh copy of the starter template; a task naming
// an existing file is copied into it and replaced by the copy's path.
func prepareWorkspace(cfg *config.Config, def recipe.Definition, task string, now time.Time) (string, string, error) {
	if def.Workspace != recipe.WorkspaceStarter {
		wd, err := os.Getwd()
		if err != nil {
			return "", "", errs.Wrap(err, "Could not determine the working directory.")
		}
		return wd, task, nil
	}

	dir, err := workspace.PrepareStarter(cfg.StarterTemplate, cfg.Workspace, now)
	if err != nil {
		return "", "", errs.Wrapf(err, "Could not copy the starter template %s.", cfg.StarterTemplate)
	}
	slog.Info("prepared workspace", "dir", dir)

	path := strings.TrimSpace(task)
	if fi, statErr := os.Stat(path); path != "" && statErr == nil && fi.Mode().IsRegular() {
		copied, err := workspace.CopyInto(path, dir)
		if err != nil {
			return "", "", errs.Wrapf(err, "Could not copy %s into the workspace.", path)
		}
		task = copied
	}
	return dir, task, nil
}

// runWithProgress draws the progress view on stderr. Log records are held
// back while it is on screen and written to w once it is gone.
func (rt *runtime) runWithProgress(ctx context.Context, w io.Writer, title string, run tui.RunFunc) (agent.Result, error) {
	defer rt.holdLogs(w)()

	p := tui.NewProgress(ctx, present.StderrRenderer(), title, run)
	m, err := tea.NewProgram(p, tea.WithOutput(os.Stderr), tea.WithContext(ctx)).Run()
	if err != nil {
		if ctx.Err() != nil {
			return p.Result, errs.Error{Err: ctx.Err(), Reason: "The run was cancelled."}
		}
		return p.Result, errs.Error{Err: err, Reason: "Couldn't start Bubble Tea program."}
	}
	p = m.(*tui.Progress)
	if p.Error != nil {
		return p.Result, *p.Error
	}
	return p.Result, nil
}

type heldLogs struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (h *heldLogs) Write(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buf.Write(p) //nolint:wrapcheck
}

// holdLogs sends the default logger to a buffer until the returned func is
// called, which points it back at w and flushes what was held.
func (rt *runtime) holdLogs(w io.Writer) func() {
	held := &heldLogs{}
	rt.setupLogging(held)
	return func() {
		rt.setupLogging(w)
		held.mu.Lock()
		defer held.mu.Unlock()
		_, _ = held.buf.WriteTo(w)
	}
}

// logHooks reports tool calls through log when the progress view is off.
func logHooks(log *slog.Logger) agent.Hooks {
	return agent.Hooks{
		OnToolStart: func(ev agent.ToolEvent) {
			log.Info("tool started", "tool", ev.Name, "id", ev.ID)
		},
		OnToolEnd: func(ev agent.ToolEvent) {
			if ev.Failed {
				log.Warn("tool failed", "tool", ev.Name, "id", ev.ID, "duration", ev.Duration, "output", ev.Output)
				return
			}
			log.Info("tool finished", "tool", ev.Name, "id", ev.ID, "duration", ev.Duration)
		},
	}
}

func transcriptOf(def recipe.Definition, dir, task, instructions string, res agent.Result, runErr error, started time.Time) storage.Transcript {
	t := storage.Transcript{
		Agent:        def.Name,
		API:          res.Model.API,
		Model:        res.Model.Name,
		Task:         task,
		Instructions: instructions,
		Workspace:    dir,
		Output:       res.Output,
		Error:        errs.Describe(runErr),
		Steps:        res.Steps,
		InputTokens:  res.Usage.InputTokens,
		OutputTokens: res.Usage.OutputTokens,
		TotalTokens:  res.Usage.TotalTokens,
		StartedAt:    started.UTC(),
		Duration:     time.Since(started),
	}
	for _, ev := range res.Events {
		t.Tools = append(t.Tools, storage.ToolCall{
			Name:     ev.Name,
			Input:    ev.Input,
			Output:   ev.Output,
			Failed:   ev.Failed,
			Duration: ev.Duration,
		})
	}
	return t
}

func (rt *runtime) saveRun(w io.Writer, t storage.Transcript) error {
	cfg := &rt.cfg
	if cfg.NoCache {
		if !cfg.Quiet {
			_, _ = fmt.Fprintf(
				w,
				"\nRun was not saved because %s or %s is set.\n",
				present.StderrStyles().InlineCode.Render("--no-cache"),
				present.StderrStyles().InlineCode.Render("ZTR_NO_CACHE"),
			)
		}
		return nil
	}

	errReason := fmt.Sprintf(
		"There was a problem saving the run. Use %s / %s to disable it.",
		present.StderrStyles().InlineCode.Render("--no-cache"),
		present.StderrStyles().InlineCode.Render("ZTR_NO_CACHE"),
	)
	store, err := storage.OpenStore(cfg.CachePath)
	if err != nil {
		return errs.Wrap(err, errReason)
	}
	defer store.Close() //nolint:errcheck

	run, err := store.Record(t)
	if err != nil {
		return errs.Wrap(err, errReason)
	}
	if !cfg.Quiet {
		_, _ = fmt.Fprintln(
			w,
			"\nRun saved:",
			present.StderrStyles().InlineCode.Render(storage.ShortID(run.ID)),
			present.StderrStyles().Comment.Render(run.Title),
		)
	}
	return nil
}

func printOutput(w io.Writer, cfg *config.Config, out string) error {
	if strings.TrimSpace(out) == "" {
		return nil
	}
	if !cfg.Raw && present.IsOutputTTY() {
		formatted, err := present.RenderMarkdownForTTY(out, cfg.WordWrap)
		if err == nil {
			out = formatted
		}
	}
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	if _, err := io.WriteString(w, out); err != nil {
		return errs.Wrap(err, "Could not write the output.")
	}
	return nil
}

func printUsage(w io.Writer, res agent.Result) {
	u := res.Usage
	_, _ = fmt.Fprintln(w, present.StderrStyles().Usage.Render(fmt.Sprintf(
		"Tokens: %d input, %d output, %d total (%d steps, %s)",
		u.InputTokens, u.OutputTokens, u.TotalTokens, res.Steps, res.Model.Name,
	)))
}
