package agent

import (
	"errors"
	"net/http"
	"testing"

	"charm.land/fantasy"
	"github.com/stretchr/testify/require"

	"github.com/sortedstartup/ztr/internal/config"
)

func TestActionForRunError(t *testing.T) {
	withFallback := config.Model{Name: "gpt-test", API: "openai", Fallback: "gpt-fallback"}
	plain := config.Model{Name: "gpt-test", API: "openai"}

	for name, tc := range map[string]struct {
		err      error
		mod      config.Model
		retry    bool
		override string
		reason   string
	}{
		"not found with fallback": {
			err:      &fantasy.ProviderError{StatusCode: http.StatusNotFound},
			mod:      withFallback,
			retry:    true,
			override: "gpt-fallback",
		},
		"not found without fallback": {
			err:    &fantasy.ProviderError{StatusCode: http.StatusNotFound},
			mod:    plain,
			reason: "Missing model 'gpt-test' for API 'openai'.",
		},
		"context length": {
			err:    &fantasy.ProviderError{StatusCode: http.StatusBadRequest, Message: "context_length_exceeded"},
			mod:    plain,
			reason: "Maximum prompt size exceeded. Lower max-steps or use a model with a larger context.",
		},
		"rate limited": {
			err:   &fantasy.ProviderError{StatusCode: http.StatusTooManyRequests},
			mod:   plain,
			retry: true,
		},
		"server error": {
			err:   &fantasy.ProviderError{StatusCode: http.StatusInternalServerError},
			mod:   plain,
			retry: true,
		},
		"bad gateway": {
			err:   &fantasy.ProviderError{StatusCode: http.StatusBadGateway},
			mod:   plain,
			retry: true,
		},
		"service unavailable": {
			err:   &fantasy.ProviderError{StatusCode: http.StatusServiceUnavailable},
			mod:   plain,
			retry: true,
		},
		"request timeout": {
			err:   &fantasy.ProviderError{StatusCode: http.StatusRequestTimeout},
			mod:   plain,
			retry: true,
		},
		"unauthorized": {
			err: &fantasy.ProviderError{StatusCode: http.StatusUnauthorized},
			mod: plain,
		},
		"not a provider error": {
			err:    errors.New("dial tcp: refused"),
			mod:    plain,
			reason: "There was a problem with the openai API request.",
		},
	} {
		t.Run(name, func(t *testing.T) {
			act := ActionForRunError(tc.err, tc.mod)
			require.Equal(t, tc.retry, act.Retry)
			require.Equal(t, tc.override, act.ModelOverride)
			require.ErrorIs(t, act.Err, tc.err)
			if tc.reason != "" {
				require.Equal(t, tc.reason, act.Err.Reason)
			}
			require.NotEmpty(t, act.Err.Reason)
		})
	}
}

func TestIsContextLengthExceeded(t *testing.T) {
	require.True(t, isContextLengthExceeded(&fantasy.ProviderError{ResponseBody: []byte(`{"code":"context_length_exceeded"}`)}))
	require.False(t, isContextLengthExceeded(&fantasy.ProviderError{Message: "bad request"}))
}
