package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"charm.land/fantasy"
	fopenai "charm.land/fantasy/providers/openai"

	"github.com/sortedstartup/ztr/internal/config"
	"github.com/sortedstartup/ztr/internal/errs"
	"github.com/sortedstartup/ztr/internal/fantasybridge"
)

// Request describes one agent run.
type Request struct {
	// API and Model select the model; when Model is empty the settings'
	// default API and model are used.
	API          string
	Model        string
	Instructions string
	Task         string
	Tools        []fantasy.AgentTool
	MCPServers   []string
	Hooks        Hooks
}

// Usage holds the token counters of a run, summed over every step.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// Result is the outcome of a run.
type Result struct {
	Output   string
	Usage    Usage
	Steps    int
	Model    config.Model
	Attempts int
	Events   []ToolEvent
}

// Run resolves the model, connects the requested MCP servers and runs the
// agent once. Provider errors are retried up to max-retries times, switching
// to the model's fallback on 404. The returned Result carries the tool events
// even when the run fails.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	cfg := s.cfg
	apiName, modelName := req.API, req.Model
	if modelName == "" {
		apiName, modelName = cfg.API, cfg.Model
	}
	api, mod, err := ResolveModel(cfg.APIs, apiName, modelName)
	if err != nil {
		return Result{}, err
	}

	tools := req.Tools
	if len(req.MCPServers) > 0 {
		sess, err := s.mcp.Connect(ctx, req.MCPServers)
		if err != nil {
			return Result{Model: mod}, err
		}
		defer func() { _ = sess.Close() }()
		tools = append(tools[:len(tools):len(tools)], fantasybridge.MCPTools(sess, sess.Tools())...)
	}

	rec := &recorder{now: time.Now}
	tools = wrapTools(tools, req.Hooks, rec)

	var res Result
	for attempt := 1; ; attempt++ {
		res, err = s.generate(ctx, api, mod, req, tools)
		res.Attempts = attempt
		res.Events = rec.list()
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return res, errs.Error{Err: ctx.Err(), Reason: "The run was cancelled."}
		}

		act := ActionForRunError(err, mod)
		if !act.Retry || attempt > cfg.MaxRetries {
			return res, act.Err
		}
		slog.Warn("retrying agent run", "attempt", attempt, "model", mod.Name, "reason", act.Err.Reason)

		if act.ModelOverride != "" {
			api, mod, err = ResolveModel(cfg.APIs, mod.API, act.ModelOverride)
			if err != nil {
				return res, err
			}
			res.Model = mod
			continue
		}
		if err := s.wait(ctx, attempt); err != nil {
			return res, errs.Error{Err: err, Reason: "The run was cancelled."}
		}
	}
}

func (s *Service) wait(ctx context.Context, attempt int) error {
	if s.backoff <= 0 {
		return nil
	}
	d := s.backoff << (attempt - 1)
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck
	case <-t.C:
		return nil
	}
}

func (s *Service) generate(ctx context.Context, api config.API, mod config.Model, req Request, tools []fantasy.AgentTool) (Result, error) {
	cfg := s.cfg
	res := Result{Model: mod}

	providerCfg, err := s.prepareProviderConfig(ctx, mod, api)
	if err != nil {
		return res, err
	}
	if err := ApplyProxyConfig(cfg.HTTPProxy, &providerCfg); err != nil {
		return res, err
	}

	opts := []fantasy.AgentOption{
		fantasy.WithSystemPrompt(req.Instructions),
		fantasy.WithTools(tools...),
		fantasy.WithStopConditions(fantasy.StepCountIs(cfg.MaxSteps)),
	}
	gen, err := s.factory(ctx, providerCfg, mod.Name, opts...)
	if err != nil {
		return res, fmt.Errorf("build agent: %w", err)
	}

	call := fantasy.AgentCall{
		Prompt:          req.Task,
		ProviderOptions: fantasybridge.ProviderOptions(providerCfg),
	}
	if cfg.Temperature > 0 {
		temp := cfg.Temperature
		call.Temperature = &temp
	}
	// openai-style APIs get max tokens as a provider option.
	if _, ok := call.ProviderOptions[fopenai.Name]; !ok && cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		call.MaxOutputTokens = &maxTokens
	}

	out, err := gen.Generate(ctx, call)
	if err != nil {
		return res, err //nolint:wrapcheck
	}
	res.Output = out.Response.Content.Text()
	res.Steps = len(out.Steps)
	res.Usage = Usage{
		InputTokens:  out.TotalUsage.InputTokens,
		OutputTokens: out.TotalUsage.OutputTokens,
		TotalTokens:  out.TotalUsage.TotalTokens,
	}
	return res, nil
}
