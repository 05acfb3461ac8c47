package workspace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(tb testing.TB, path, content string, mode os.FileMode) {
	tb.Helper()
	require.NoError(tb, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(tb, os.WriteFile(path, []byte(content), mode))
	require.NoError(tb, os.Chmod(path, mode))
}

func TestPrepareStarter(t *testing.T) {
	src := filepath.Join(t.TempDir(), "starter-template")
	writeFile(t, filepath.Join(src, "backend", "main.go"), "package main\n", 0o644)
	writeFile(t, filepath.Join(src, "backend", "ui", "index.html"), "<html></html>", 0o644)
	writeFile(t, filepath.Join(src, "run.sh"), "#!/bin/sh\n", 0o755)

	base := filepath.Join(t.TempDir(), "outputs")
	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.Local)

	dir, err := PrepareStarter(src, base, now)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(base, "output_20250304_050607"), dir)

	bts, err := os.ReadFile(filepath.Join(dir, "backend", "ui", "index.html"))
	require.NoError(t, err)
	require.Equal(t, "<html></html>", string(bts))

	info, err := os.Stat(filepath.Join(dir, "run.sh"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	_, err = PrepareStarter(src, base, now)
	require.ErrorContains(t, err, "already exists")
}

func TestPrepareStarterMissingSource(t *testing.T) {
	_, err := PrepareStarter(filepath.Join(t.TempDir(), "nope"), t.TempDir(), time.Now())
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "file")
	writeFile(t, file, "x", 0o644)
	_, err = PrepareStarter(file, t.TempDir(), time.Now())
	require.ErrorContains(t, err, "not a directory")
}

func TestCopyInto(t *testing.T) {
	req := filepath.Join(t.TempDir(), "prd.md")
	writeFile(t, req, "# Todo app", 0o600)
	dir := t.TempDir()

	got, err := CopyInto(req, dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "prd.md"), got)
	bts, err := os.ReadFile(got)
	require.NoError(t, err)
	require.Equal(t, "# Todo app", string(bts))

	_, err = CopyInto(filepath.Join(t.TempDir(), "missing.md"), dir)
	require.Error(t, err)

	_, err = CopyInto(dir, t.TempDir())
	require.ErrorContains(t, err, "is a directory")
}
