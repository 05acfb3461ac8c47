package agent

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"charm.land/fantasy"

	"github.com/sortedstartup/ztr/internal/config"
	"github.com/sortedstartup/ztr/internal/errs"
	"github.com/sortedstartup/ztr/internal/fantasybridge"
	"github.com/sortedstartup/ztr/internal/mcp"
	"github.com/sortedstartup/ztr/internal/shell"
)

// Generator runs an agent call to completion.
type Generator interface {
	Generate(ctx context.Context, call fantasy.AgentCall) (*fantasy.AgentResult, error)
}

// GeneratorFactory builds a Generator for a resolved provider and model.
type GeneratorFactory func(ctx context.Context, provider fantasybridge.Config, model string, opts ...fantasy.AgentOption) (Generator, error)

// Service is the core orchestration layer for running agents.
//
// It is UI-agnostic: progress is reported through Hooks, so both the TUI and
// headless commands can drive it.
type Service struct {
	cfg     *config.Config
	mcp     *mcp.Service
	runner  shell.Runner
	factory GeneratorFactory
	backoff time.Duration
}

// New creates an agent service. An optional factory replaces the fantasy
// agent, which tests use to avoid talking to a provider.
func New(cfg *config.Config, mcpSvc *mcp.Service, runner shell.Runner, factory ...GeneratorFactory) *Service {
	if mcpSvc == nil {
		mcpSvc = mcp.New(cfg)
	}
	if runner == nil {
		runner = shell.Exec{}
	}
	f := NewFantasyAgent
	if len(factory) > 0 && factory[0] != nil {
		f = factory[0]
	}
	return &Service{cfg: cfg, mcp: mcpSvc, runner: runner, factory: f, backoff: time.Second}
}

// NewFantasyAgent is the default GeneratorFactory.
func NewFantasyAgent(ctx context.Context, providerCfg fantasybridge.Config, model string, opts ...fantasy.AgentOption) (Generator, error) {
	if providerCfg.API == "" {
		return nil, errs.Error{Reason: "missing fantasy provider configuration"}
	}
	provider, err := fantasybridge.NewProvider(providerCfg)
	if err != nil {
		return nil, fmt.Errorf("new fantasy provider: %w", err)
	}
	lm, err := provider.LanguageModel(ctx, model)
	if err != nil {
		return nil, errs.Error{Err: err, Reason: fmt.Sprintf("Could not load model %s from %s.", model, providerCfg.API)}
	}
	return fantasy.NewAgent(lm, opts...), nil
}

// ResolveModel finds the model in the configured APIs. An empty api searches
// every API in settings order. Aliases resolve to the model name.
func ResolveModel(apis config.APIs, api, model string) (config.API, config.Model, error) {
	for _, a := range apis {
		if api != "" && a.Name != api {
			continue
		}
		name := model
		for n, mod := range a.Models {
			if n == model || slices.Contains(mod.Aliases, model) {
				name = n
				break
			}
		}
		if mod, ok := a.Models[name]; ok {
			mod.Name = name
			mod.API = a.Name
			return a, mod, nil
		}
		if api != "" {
			available := make([]string, 0, len(a.Models))
			for n := range a.Models {
				available = append(available, n)
			}
			slices.Sort(available)
			return config.API{}, config.Model{}, errs.Error{
				Err:    errs.UserErrorf("Available models are: %s", strings.Join(available, ", ")),
				Reason: fmt.Sprintf("The API endpoint %s does not contain the model %s", api, model),
			}
		}
	}

	if api != "" {
		return config.API{}, config.Model{}, errs.Error{
			Reason: fmt.Sprintf("API %s is not in the settings file.", api),
			Err:    errs.UserErrorf("Add it under apis: with ztr config edit"),
		}
	}
	return config.API{}, config.Model{}, errs.Error{
		Reason: fmt.Sprintf("Model %s is not in the settings file.", model),
		Err:    errs.UserErrorf("Please specify an API endpoint with --api or configure the model in the settings: ztr config edit"),
	}
}

func (s *Service) prepareProviderConfig(ctx context.Context, mod config.Model, api config.API) (fantasybridge.Config, error) {
	cfg := s.cfg
	base := fantasybridge.Config{
		API:       mod.API,
		BaseURL:   api.BaseURL,
		User:      cfg.User,
		MaxTokens: cfg.MaxTokens,
	}
	if api.User != "" {
		base.User = api.User
	}
	withKey := func(defaultEnv, docsURL, reason string) (fantasybridge.Config, error) {
		key, err := s.ensureKey(ctx, api, defaultEnv, docsURL)
		if err != nil {
			return fantasybridge.Config{}, errs.Error{Err: err, Reason: reason}
		}
		base.APIKey = key
		return base, nil
	}

	switch mod.API {
	case "openrouter":
		return withKey("OPENROUTER_API_KEY", "https://openrouter.ai/keys", "OpenRouter authentication failed")
	case "vercel":
		return withKey("VERCEL_API_KEY", "https://vercel.com/dashboard/tokens", "Vercel AI Gateway authentication failed")
	case "bedrock":
		key, err := s.optionalKey(ctx, api)
		if err != nil {
			return fantasybridge.Config{}, errs.Error{Err: err, Reason: "Bedrock authentication failed"}
		}
		base.APIKey = key
		return base, nil
	case "ollama":
		if base.BaseURL == "" {
			base.BaseURL = "http://localhost:11434/v1"
		}
		return base, nil
	case "azure", "azure-ad":
		base.API = "azure"
		return withKey("AZURE_OPENAI_KEY", "https://aka.ms/oai/access", "Azure authentication failed")
	case "anthropic":
		return withKey("ANTHROPIC_API_KEY", "https://console.anthropic.com/settings/keys", "Anthropic authentication failed")
	case "google":
		base.ThinkingBudget = mod.ThinkingBudget
		return withKey("GOOGLE_API_KEY", "https://aistudio.google.com/app/apikey", "Google authentication failed")
	default:
		return withKey("OPENAI_API_KEY", "https://platform.openai.com/account/api-keys", "OpenAI authentication failed")
	}
}

// ApplyProxyConfig configures the provider HTTP client to use an HTTP proxy.
func ApplyProxyConfig(httpProxy string, providerCfg *fantasybridge.Config) error {
	if httpProxy == "" {
		return nil
	}
	proxyURL, err := url.Parse(httpProxy)
	if err != nil {
		return errs.Error{Err: err, Reason: "There was an error parsing your proxy URL."}
	}
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return errs.Error{Err: fmt.Errorf("default transport is not *http.Transport"), Reason: "Could not configure proxy."}
	}
	tr := base.Clone()
	tr.Proxy = http.ProxyURL(proxyURL)
	tr.DialContext = (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext
	tr.TLSHandshakeTimeout = 10 * time.Second
	tr.ResponseHeaderTimeout = 30 * time.Second
	tr.IdleConnTimeout = 90 * time.Second
	tr.ExpectContinueTimeout = 1 * time.Second
	providerCfg.HTTPClient = &http.Client{Transport: tr}
	return nil
}

func (s *Service) ensureKey(ctx context.Context, api config.API, defaultEnv, docsURL string) (string, error) {
	key, err := s.optionalKey(ctx, api)
	if err != nil {
		return "", err
	}
	if key == "" {
		key = os.Getenv(defaultEnv)
	}
	if key != "" {
		return key, nil
	}
	return "", errs.Error{
		Reason: fmt.Sprintf("%s required; set %s or update ztr.yml through ztr config edit.", defaultEnv, defaultEnv),
		Err:    errs.UserErrorf("You can grab one at %s", docsURL),
	}
}

func (s *Service) optionalKey(ctx context.Context, api config.API) (string, error) {
	key := api.APIKey
	if key == "" && api.APIKeyEnv != "" && api.APIKeyCmd == "" {
		key = os.Getenv(api.APIKeyEnv)
	}
	if key == "" && api.APIKeyCmd != "" {
		name, args, err := shell.Split(api.APIKeyCmd)
		if err != nil {
			return "", errs.Error{Err: err, Reason: "Failed to parse api-key-cmd"}
		}
		res, err := s.runner.Run(ctx, shell.Command{Name: name, Args: args, Timeout: 30 * time.Second})
		if err != nil {
			return "", errs.Error{Err: fmt.Errorf("%w: %s", err, strings.TrimSpace(res.Stderr)), Reason: "Cannot exec api-key-cmd"}
		}
		key = strings.TrimSpace(res.Stdout)
	}
	return key, nil
}
