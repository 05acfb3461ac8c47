package present

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const defaultAction = "DONE"

var confirmationHeader = lipgloss.NewStyle().Foreground(lipgloss.Color("#F1F1F1")).Background(lipgloss.Color("#6C50FF")).Bold(true).Padding(0, 1).MarginRight(1)

// PrintConfirmation writes a short action badge followed by content, e.g.
// "DELETED 3 runs".
func PrintConfirmation(w io.Writer, action, content string) {
	_, _ = fmt.Fprintln(w, Confirmation(action, content))
}

// Confirmation renders what PrintConfirmation prints.
func Confirmation(action, content string) string {
	if action == "" {
		action = defaultAction
	}
	header := confirmationHeader.SetString(strings.ToUpper(action))
	return lipgloss.JoinHorizontal(lipgloss.Center, header.String(), content)
}
