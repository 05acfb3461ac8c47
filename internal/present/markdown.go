package present

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/charmbracelet/glamour"
)

var expandTabs = strings.NewReplacer("\t", "    ")

// RenderMarkdownForTTY renders an agent's final output for the terminal.
// GLAMOUR_STYLE picks the style. A wordWrap of zero disables wrapping. The
// result ends with exactly one newline.
func RenderMarkdownForTTY(md string, wordWrap int) (string, error) {
	opts := []glamour.TermRendererOption{
		glamour.WithEnvironmentConfig(),
		glamour.WithEmoji(),
	}
	if wordWrap > 0 {
		opts = append(opts, glamour.WithWordWrap(wordWrap))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("new markdown renderer: %w", err)
	}

	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return expandTabs.Replace(strings.TrimRightFunc(out, unicode.IsSpace)) + "\n", nil
}
