package cmd

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/duration"
	"github.com/spf13/pflag"

	"github.com/sortedstartup/ztr/internal/errs"
	"github.com/sortedstartup/ztr/internal/present"
)

var helpText = map[string]string{
	"api":         "OpenAI compatible REST API (openai, anthropic, google, ollama, etc.)",
	"model":       "Model to use, overrides the agent's model",
	"var":         "Template variable for instructions and task, as Name=value (repeatable)",
	"container":   "Development container git, go and container tools exec into",
	"http-proxy":  "HTTP proxy to use for API requests",
	"raw":         "Print the final output as returned, without markdown rendering",
	"quiet":       "Hide the progress view, the token usage and the saved run notice",
	"no-tui":      "Log tool calls instead of showing the progress view",
	"no-cache":    "Do not save the run",
	"max-retries": "Maximum number of retries on rate limits and server errors",
	"max-steps":   "Maximum number of agent steps (model turns)",
	"max-tokens":  "Maximum number of tokens per model response",
	"temp":        "Temperature (randomness) of results, from 0.0 to 2.0, 0 lets the provider decide",
	"word-wrap":   "Wrap formatted output at specific width",
	"theme":       "Theme to use in the forms. Valid options are: 'charm', 'catppuccin', 'dracula', and 'base16'",
	"log-level":   "Log level: debug, info, warn or error",
	"older-than":  "Delete runs older than this duration, e.g. 24h or 7d",
	"json":        "Print the transcript as JSON",
	"addr":        "Address the web form listens on",
}

func flagDesc(name string) string {
	return present.StdoutStyles().FlagDesc.Render(helpText[name])
}

var (
	flagArgRe     = regexp.MustCompile(`(-{1,2}[\w-]+)$`)
	flagInvalidRe = regexp.MustCompile(`invalid argument ".*" for "(.*)" flag: .*`)
	flagShortRe   = regexp.MustCompile(`unknown shorthand flag: '.*' in (-\w)`)
)

type flagParseError struct {
	err    error
	reason string
	flag   string
}

func newFlagParseError(err error) flagParseError {
	var reason, flag string
	s := err.Error()
	switch {
	case strings.HasPrefix(s, "flag needs an argument:"):
		reason = "Flag %s needs an argument."
		if m := flagArgRe.FindStringSubmatch(s); m != nil {
			flag = m[1]
		}
	case strings.HasPrefix(s, "unknown flag:"):
		reason = "Flag %s is missing."
		flag = strings.TrimPrefix(s, "unknown flag: ")
	case strings.HasPrefix(s, "unknown shorthand flag:"):
		reason = "Short flag %s is missing."
		if m := flagShortRe.FindStringSubmatch(s); m != nil {
			flag = m[1]
		}
	case strings.HasPrefix(s, "invalid argument"):
		reason = "Flag %s have an invalid argument."
		if m := flagInvalidRe.FindStringSubmatch(s); m != nil {
			flag = m[1]
		}
	default:
		reason = s
	}
	return flagParseError{err: err, reason: reason, flag: flag}
}

func (f flagParseError) Error() string {
	return f.err.Error()
}

func (f flagParseError) ReasonFormat() string {
	return f.reason
}

func (f flagParseError) Flag() string {
	return f.flag
}

// durationFlag accepts day and week units on top of time.ParseDuration.
type durationFlag time.Duration

var _ pflag.Value = (*durationFlag)(nil)

func newDurationFlag(val time.Duration, p *time.Duration) *durationFlag {
	*p = val
	return (*durationFlag)(p)
}

func (d *durationFlag) Set(s string) error {
	v, err := duration.Parse(s)
	if err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}
	*d = durationFlag(v)
	return nil
}

func (d *durationFlag) String() string {
	return time.Duration(*d).String()
}

func (*durationFlag) Type() string {
	return "duration"
}

// parseVars turns Name=value pairs into a map. Later pairs win.
func parseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, errs.Wrapf(
				fmt.Errorf("invalid variable %q", p),
				"Variables must look like %s.", present.StderrStyles().InlineCode.Render("--var Name=value"),
			)
		}
		vars[k] = v
	}
	return vars, nil
}
