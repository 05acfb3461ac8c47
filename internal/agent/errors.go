package agent

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"charm.land/fantasy"

	"github.com/sortedstartup/ztr/internal/config"
	"github.com/sortedstartup/ztr/internal/errs"
)

// RunErrorAction is what a failed generation turns into: give up, retry,
// or retry on another model.
type RunErrorAction struct {
	Retry         bool
	ModelOverride string
	Err           errs.Error
}

// ActionForRunError classifies err for the retry loop in Run.
func ActionForRunError(err error, mod config.Model) RunErrorAction {
	var perr *fantasy.ProviderError
	if !errors.As(err, &perr) {
		return fail(err, fmt.Sprintf("There was a problem with the %s API request.", mod.API))
	}

	title := func(fallback string) string {
		if t := fantasy.ErrorTitleForStatusCode(perr.StatusCode); t != "" {
			return t
		}
		return fallback
	}
	requestErr := fmt.Sprintf("%s API request error.", mod.API)

	switch {
	case perr.StatusCode == http.StatusNotFound && mod.Fallback != "":
		act := fail(perr, title(fmt.Sprintf("%s API server error.", mod.API)))
		act.Retry = true
		act.ModelOverride = mod.Fallback
		return act
	case perr.StatusCode == http.StatusNotFound:
		return fail(perr, fmt.Sprintf("Missing model '%s' for API '%s'.", mod.Name, mod.API))
	case perr.StatusCode == http.StatusBadRequest && isContextLengthExceeded(perr):
		return fail(perr, "Maximum prompt size exceeded. Lower max-steps or use a model with a larger context.")
	case perr.StatusCode == http.StatusBadRequest:
		return fail(perr, title(requestErr))
	case perr.IsRetryable() || perr.StatusCode >= http.StatusInternalServerError:
		act := fail(perr, title("Retryable API error."))
		act.Retry = true
		return act
	}
	return fail(perr, title(requestErr))
}

func fail(err error, reason string) RunErrorAction {
	return RunErrorAction{Err: errs.Error{Err: err, Reason: reason}}
}

func isContextLengthExceeded(err *fantasy.ProviderError) bool {
	const code = "context_length_exceeded"
	return strings.Contains(strings.ToLower(err.Message), code) ||
		strings.Contains(strings.ToLower(string(err.ResponseBody)), code)
}
