package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for in, expected := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		t.Run(in, func(t *testing.T) {
			lvl, err := ParseLevel(in)
			require.NoError(t, err)
			require.Equal(t, expected, lvl)
		})
	}

	_, err := ParseLevel("loud")
	require.Error(t, err)
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", true)
	log.Info("hidden")
	log.Warn("tool failed", "tool", "go_build", "err", errors.New("exit status 1"))

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "tool failed")
	require.Contains(t, out, "tool=go_build")
	require.Contains(t, out, "exit status 1")
}
