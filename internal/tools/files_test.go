package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTestFile(tb testing.TB, path, content string) {
	tb.Helper()
	require.NoError(tb, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(tb, os.WriteFile(path, []byte(content), 0o644))
}

func readTestFile(tb testing.TB, path string) string {
	tb.Helper()
	bts, err := os.ReadFile(path)
	require.NoError(tb, err)
	return string(bts)
}

func TestReadWriteFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dir", "index.html")

	w := WriteFile(ctx, WriteFileParams{FilePath: path, Content: "<h1>hi</h1>"})
	require.True(t, w.OK(), w.Message)
	require.Equal(t, "Wrote content to file "+path+" successfully.", w.Message)

	r := ReadFile(ctx, ReadFileParams{FilePath: path})
	require.True(t, r.OK())
	require.Equal(t, "<h1>hi</h1>", r.Content)

	missing := ReadFile(ctx, ReadFileParams{FilePath: filepath.Join(t.TempDir(), "nope")})
	require.Equal(t, StatusError, missing.Status.Status)
	require.Contains(t, missing.Message, "Error reading file")
	require.Empty(t, missing.Content)
}

func TestGrepFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "main.go")
	writeTestFile(t, path, "package main\n\nfunc main() {}\nfunc helper() {}\n\tvar x = 1  \n")

	for name, tc := range map[string]struct {
		pattern string
		status  string
		matches []string
		message string
	}{
		"matches":   {`^func `, StatusSuccess, []string{"func main() {}", "func helper() {}"}, "Found 2 matches."},
		"none":      {`^type `, StatusSuccess, []string{}, "No matches found."},
		"trimmed":   {`var x`, StatusSuccess, []string{"var x = 1"}, "Found 1 matches."},
		"bad regex": {`(`, StatusError, nil, ""},
	} {
		t.Run(name, func(t *testing.T) {
			res := GrepFile(ctx, GrepFileParams{FilePath: path, Pattern: tc.pattern})
			require.Equal(t, tc.status, res.Status.Status)
			require.Equal(t, tc.matches, res.Matches)
			if tc.message != "" {
				require.Equal(t, tc.message, res.Message)
			}
		})
	}
}

func TestSedFile(t *testing.T) {
	ctx := context.Background()

	t.Run("replace", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "go.mod")
		writeTestFile(t, path, "module {{.ModuleName}}\n\ngo 1.22\n")
		res := SedFile(ctx, SedFileParams{FilePath: path, Pattern: `^module `, Replacement: "module chat"})
		require.True(t, res.OK(), res.Message)
		require.Equal(t, 1, res.LinesModified)
		require.Equal(t, "module chat\n\ngo 1.22\n", readTestFile(t, path))
	})

	t.Run("insert before", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "main.go")
		writeTestFile(t, path, "a\nb\na")
		res := SedFile(ctx, SedFileParams{FilePath: path, Pattern: `^a$`, Replacement: "x", InsertBefore: true})
		require.True(t, res.OK())
		require.Equal(t, 2, res.LinesModified)
		require.Equal(t, "x\na\nb\nx\na", readTestFile(t, path))
	})

	t.Run("no match is a warning", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "f.txt")
		writeTestFile(t, path, "hello\n")
		res := SedFile(ctx, SedFileParams{FilePath: path, Pattern: `bye`, Replacement: "x"})
		require.Equal(t, StatusWarning, res.Status.Status)
		require.Equal(t, "Pattern not found. No modifications made to "+path+".", res.Message)
		require.Equal(t, "hello\n", readTestFile(t, path))
	})
}

func TestInsertAtLine(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "f.txt")
	writeTestFile(t, path, "one\nthree")

	res := InsertAtLine(ctx, InsertAtLineParams{FilePath: path, LineNumber: 2, Content: "two"})
	require.True(t, res.OK(), res.Message)
	require.Equal(t, "one\ntwo\nthree", readTestFile(t, path))

	res = InsertAtLine(ctx, InsertAtLineParams{FilePath: path, LineNumber: 4, Content: "four"})
	require.True(t, res.OK(), res.Message)
	require.Equal(t, "one\ntwo\nthree\nfour", readTestFile(t, path))

	res = InsertAtLine(ctx, InsertAtLineParams{FilePath: path, LineNumber: 9, Content: "x"})
	require.Equal(t, StatusError, res.Status.Status)
	require.Equal(t, "Invalid line number 9. File has 4 lines.", res.Message)

	res = InsertAtLine(ctx, InsertAtLineParams{FilePath: path, LineNumber: 0, Content: "x"})
	require.Equal(t, StatusError, res.Status.Status)
}

func TestAppendFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "notes.md")

	require.True(t, AppendFile(ctx, AppendFileParams{FilePath: path, Content: "first"}).OK())
	require.Equal(t, "first\n", readTestFile(t, path))

	writeTestFile(t, path, "no newline")
	require.True(t, AppendFile(ctx, AppendFileParams{FilePath: path, Content: "second\n"}).OK())
	require.Equal(t, "no newline\nsecond\n", readTestFile(t, path))
}

func TestRenameAndMoveFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	writeTestFile(t, src, "a")

	renamed := filepath.Join(dir, "sub", "b.txt")
	require.True(t, RenameFile(ctx, RenameFileParams{OldPath: src, NewPath: renamed}).OK())
	require.NoFileExists(t, src)
	require.Equal(t, "a", readTestFile(t, renamed))

	missing := MoveFile(ctx, MoveFileParams{SourcePath: src, DestinationPath: filepath.Join(dir, "c.txt")})
	require.Equal(t, "Source file does not exist: "+src, missing.Message)

	taken := filepath.Join(dir, "taken.txt")
	writeTestFile(t, taken, "x")
	exists := MoveFile(ctx, MoveFileParams{SourcePath: renamed, DestinationPath: taken})
	require.Equal(t, "Destination file already exists: "+taken, exists.Message)

	moved := filepath.Join(dir, "deep", "er", "c.txt")
	require.True(t, MoveFile(ctx, MoveFileParams{SourcePath: renamed, DestinationPath: moved}).OK())
	require.FileExists(t, moved)
}

func TestListFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "backend", "main.go"), "")
	writeTestFile(t, filepath.Join(dir, "README.md"), "")

	flat := ListFiles(ctx, ListFilesParams{Directory: dir})
	require.True(t, flat.OK())
	require.Equal(t, []string{"README.md", "backend/"}, flat.Files)

	deep := ListFiles(ctx, ListFilesParams{Directory: dir, Recursive: true})
	require.True(t, deep.OK())
	require.Equal(t, []string{"README.md", "backend/", "backend/main.go"}, deep.Files)
	require.Equal(t, "Found 3 items in "+dir, deep.Message)

	notDir := ListFiles(ctx, ListFilesParams{Directory: filepath.Join(dir, "README.md")})
	require.Equal(t, StatusError, notDir.Status.Status)
	require.Equal(t, []string{}, notDir.Files)

	gone := ListFiles(ctx, ListFilesParams{Directory: filepath.Join(dir, "gone")})
	require.Equal(t, "Directory does not exist: "+filepath.Join(dir, "gone"), gone.Message)
}

func TestReadTranscript(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "meeting.txt")
	writeTestFile(t, path, "Alice: we need dark mode")

	res := ReadTranscript(ctx, ReadTranscriptParams{FilePath: path})
	require.True(t, res.OK())
	require.Contains(t, res.Prompt, "Alice: we need dark mode")
	require.Contains(t, res.Prompt, "create/update/close issues")

	missing := ReadTranscript(ctx, ReadTranscriptParams{FilePath: path + ".nope"})
	require.Equal(t, "File not found: "+path+".nope", missing.Message)
}
