package cmd

import (
	"math/rand"
	"regexp"

	"github.com/sortedstartup/ztr/internal/present"
)

var examples = map[string]string{
	"Scaffold a widget in a fresh workspace":  `ztr run widget-creator "a counter widget with reset"`,
	"Turn a requirements file into an MVP":    `ztr run mvp-creator requirements.md`,
	"Take a repository from clone to release": `ztr run zero-to-release --var Repo=https://github.com/acme/app --var Target=v1.0.0 -c devbox`,
	"Pipe a task from another program":        `cat issue.md | ztr run mvp-creator --no-tui | glow`,
}

func randomExample() string {
	keys := make([]string, 0, len(examples))
	for k := range examples {
		keys = append(keys, k)
	}
	desc := keys[rand.Intn(len(keys))] //nolint:gosec
	return desc
}

var (
	quotedRe = regexp.MustCompile(`"([^"\\]|\\.)*"`)
	pipeRe   = regexp.MustCompile(`\|`)
)

func cheapHighlighting(s present.Styles, code string) string {
	code = quotedRe.ReplaceAllStringFunc(code, func(x string) string {
		return s.Quote.Render(x)
	})
	code = pipeRe.ReplaceAllStringFunc(code, func(x string) string {
		return s.Pipe.Render(x)
	})
	return code
}
