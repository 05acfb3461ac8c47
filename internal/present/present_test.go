package present

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"
)

func TestMakeGradientRamp(t *testing.T) {
	ramp := MakeGradientRamp(5)
	require.Len(t, ramp, 5)
	for _, c := range ramp {
		require.Regexp(t, `^#[0-9a-f]{6}$`, string(c))
	}
	require.NotEqual(t, ramp[0], ramp[4])
	require.Empty(t, MakeGradientRamp(0))
}

func TestMakeGradientText(t *testing.T) {
	style := lipgloss.NewStyle()
	require.Equal(t, "ab", MakeGradientText(style, "ab"))

	out := MakeGradientText(style, "zero-to-release")
	require.Contains(t, stripANSI(out), "zero-to-release")
}

func TestConfirmation(t *testing.T) {
	var buf bytes.Buffer
	PrintConfirmation(&buf, "deleted", "3 runs")
	out := stripANSI(buf.String())
	require.Contains(t, out, "DELETED")
	require.Contains(t, out, "3 runs")
	require.True(t, strings.HasSuffix(out, "\n"))

	require.Contains(t, stripANSI(Confirmation("", "x")), "DONE")
}

func TestMakeStyles(t *testing.T) {
	r := lipgloss.NewRenderer(&bytes.Buffer{}, termenv.WithProfile(termenv.Ascii))
	s := MakeStyles(r)
	require.Equal(t, "ERROR", strings.TrimSpace(s.ErrorHeader.String()))
	require.Equal(t, ",", s.FlagComma.String())
	require.Equal(t, "✓", s.ToolOK.String())
	require.Equal(t, "✗", s.ToolFailed.String())
	require.Equal(t, "run", s.ToolName.Render("run"))
}

func stripANSI(s string) string {
	var b strings.Builder
	inEsc := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEsc = true
		case inEsc && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			inEsc = false
		case !inEsc:
			b.WriteRune(r)
		}
	}
	return b.String()
}
