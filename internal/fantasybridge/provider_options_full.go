//go:build !ztr_small

package fantasybridge

import (
	"charm.land/fantasy"
	fgoogle "charm.land/fantasy/providers/google"
	fopenai "charm.land/fantasy/providers/openai"
	fopenaicompat "charm.land/fantasy/providers/openaicompat"
)

// applyProviderOptions fills in the options each provider understands.
// Settings a provider has no option for are dropped.
func applyProviderOptions(opts fantasy.ProviderOptions, cfg Config) {
	switch cfg.API {
	case apiOpenAI, apiAzure, apiAzureAD:
		if o := openAIOptions(cfg); o != nil {
			opts[fopenai.Name] = o
		}
	case apiGoogle:
		if cfg.ThinkingBudget > 0 {
			opts[fgoogle.Name] = &fgoogle.ProviderOptions{
				ThinkingConfig: &fgoogle.ThinkingConfig{
					ThinkingBudget: fantasy.Opt(int64(cfg.ThinkingBudget)),
				},
			}
		}
	default:
		// Anything without a dedicated builder talks the compat dialect.
		if _, native := builders[cfg.API]; !native && cfg.User != "" {
			user := cfg.User
			opts[fopenaicompat.Name] = &fopenaicompat.ProviderOptions{User: &user}
		}
	}
}

func openAIOptions(cfg Config) *fopenai.ProviderOptions {
	if cfg.User == "" && cfg.MaxTokens <= 0 {
		return nil
	}
	user, tokens := cfg.User, cfg.MaxTokens
	o := &fopenai.ProviderOptions{}
	if user != "" {
		o.User = &user
	}
	if tokens > 0 {
		o.MaxCompletionTokens = &tokens
	}
	return o
}
