//go:build !ztr_small

package fantasybridge

import (
	"strings"

	"charm.land/fantasy"
	"charm.land/fantasy/providers/anthropic"
	"charm.land/fantasy/providers/azure"
	"charm.land/fantasy/providers/bedrock"
	fgoogle "charm.land/fantasy/providers/google"
	fopenai "charm.land/fantasy/providers/openai"
	"charm.land/fantasy/providers/openrouter"
	"charm.land/fantasy/providers/vercel"
)

var builders = map[string]builder{
	apiOpenAI:    newOpenAI,
	apiAnthropic: newAnthropic,
	apiGoogle:    newGoogle,
	apiAzure:     newAzure,
	apiAzureAD:   newAzure,
	"openrouter": newOpenRouter,
	"vercel":     newVercel,
	"bedrock":    newBedrock,
}

func lookupBuilder(api string) builder {
	if b, ok := builders[api]; ok {
		return b
	}
	return newOpenAICompat
}

func newOpenAI(c Config) (fantasy.Provider, error) {
	opts := []fopenai.Option{fopenai.WithAPIKey(c.APIKey)}
	if c.BaseURL != "" {
		opts = append(opts, fopenai.WithBaseURL(c.BaseURL))
	}
	if c.HTTPClient != nil {
		opts = append(opts, fopenai.WithHTTPClient(c.HTTPClient))
	}
	return fopenai.New(opts...) //nolint:wrapcheck
}

// The anthropic client appends /v1 itself.
func newAnthropic(c Config) (fantasy.Provider, error) {
	opts := []anthropic.Option{anthropic.WithAPIKey(c.APIKey)}
	if c.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimSuffix(c.BaseURL, "/v1")))
	}
	if c.HTTPClient != nil {
		opts = append(opts, anthropic.WithHTTPClient(c.HTTPClient))
	}
	return anthropic.New(opts...) //nolint:wrapcheck
}

func newGoogle(c Config) (fantasy.Provider, error) {
	opts := []fgoogle.Option{fgoogle.WithGeminiAPIKey(c.APIKey)}
	if c.BaseURL != "" {
		opts = append(opts, fgoogle.WithBaseURL(c.BaseURL))
	}
	if c.HTTPClient != nil {
		opts = append(opts, fgoogle.WithHTTPClient(c.HTTPClient))
	}
	return fgoogle.New(opts...) //nolint:wrapcheck
}

func newAzure(c Config) (fantasy.Provider, error) {
	opts := []azure.Option{azure.WithAPIKey(c.APIKey), azure.WithBaseURL(c.BaseURL)}
	if c.HTTPClient != nil {
		opts = append(opts, azure.WithHTTPClient(c.HTTPClient))
	}
	return azure.New(opts...) //nolint:wrapcheck
}

func newOpenRouter(c Config) (fantasy.Provider, error) {
	opts := []openrouter.Option{openrouter.WithAPIKey(c.APIKey)}
	if c.HTTPClient != nil {
		opts = append(opts, openrouter.WithHTTPClient(c.HTTPClient))
	}
	return openrouter.New(opts...) //nolint:wrapcheck
}

func newVercel(c Config) (fantasy.Provider, error) {
	opts := []vercel.Option{vercel.WithAPIKey(c.APIKey)}
	if c.BaseURL != "" {
		opts = append(opts, vercel.WithBaseURL(c.BaseURL))
	}
	if c.HTTPClient != nil {
		opts = append(opts, vercel.WithHTTPClient(c.HTTPClient))
	}
	return vercel.New(opts...) //nolint:wrapcheck
}

// Bedrock falls back to the AWS credential chain without a key.
func newBedrock(c Config) (fantasy.Provider, error) {
	var opts []bedrock.Option
	if c.APIKey != "" {
		opts = append(opts, bedrock.WithAPIKey(c.APIKey))
	}
	if c.HTTPClient != nil {
		opts = append(opts, bedrock.WithHTTPClient(c.HTTPClient))
	}
	return bedrock.New(opts...) //nolint:wrapcheck
}
