//go:build ztr_small

package fantasybridge

import (
	"charm.land/fantasy"
	fopenaicompat "charm.land/fantasy/providers/openaicompat"
)

func applyProviderOptions(opts fantasy.ProviderOptions, cfg Config) {
	if cfg.User == "" {
		return
	}
	user := cfg.User
	opts[fopenaicompat.Name] = &fopenaicompat.ProviderOptions{User: &user}
}
