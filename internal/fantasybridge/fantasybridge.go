// Package fantasybridge builds charm.land/fantasy providers and tools from
// ztr configuration.
package fantasybridge

import (
	"fmt"
	"net/http"

	"charm.land/fantasy"
	fopenaicompat "charm.land/fantasy/providers/openaicompat"
)

const (
	apiAnthropic = "anthropic"
	apiGoogle    = "google"
	apiOpenAI    = "openai"
	apiAzure     = "azure"
	apiAzureAD   = "azure-ad"
)

// Config represents provider configuration used by the fantasy bridge.
type Config struct {
	API            string
	BaseURL        string
	APIKey         string
	HTTPClient     *http.Client
	ThinkingBudget int
	User           string
	MaxTokens      int64
}

// NewProvider returns the fantasy provider for cfg.API. Unknown APIs are
// treated as OpenAI-compatible endpoints.
func NewProvider(cfg Config) (fantasy.Provider, error) {
	p, err := lookupBuilder(cfg.API)(cfg)
	if err != nil {
		return nil, fmt.Errorf("new %s provider: %w", cfg.API, err)
	}
	return p, nil
}

type builder func(Config) (fantasy.Provider, error)

// newOpenAICompat serves ollama, groq and any other endpoint speaking the
// OpenAI chat API.
func newOpenAICompat(c Config) (fantasy.Provider, error) {
	opts := []fopenaicompat.Option{fopenaicompat.WithName(c.API)}
	if c.APIKey != "" {
		opts = append(opts, fopenaicompat.WithAPIKey(c.APIKey))
	}
	if c.BaseURL != "" {
		opts = append(opts, fopenaicompat.WithBaseURL(c.BaseURL))
	}
	if c.HTTPClient != nil {
		opts = append(opts, fopenaicompat.WithHTTPClient(c.HTTPClient))
	}
	return fopenaicompat.New(opts...) //nolint:wrapcheck
}

// ProviderOptions returns the per-provider call options derived from cfg.
// The result is never nil.
func ProviderOptions(cfg Config) fantasy.ProviderOptions {
	opts := fantasy.ProviderOptions{}
	applyProviderOptions(opts, cfg)
	return opts
}
