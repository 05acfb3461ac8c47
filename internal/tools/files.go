package tools

import (
	"bufio"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

type ReadFileParams struct {
	FilePath string `json:"file_path" description:"Path of the file to read"`
}

type ReadFileResult struct {
	Status
	Content string `json:"content,omitempty"`
}

// ReadFile returns the whole content of a file.
func ReadFile(_ context.Context, p ReadFileParams) ReadFileResult {
	content, err := os.ReadFile(p.FilePath)
	if err != nil {
		return ReadFileResult{Status: failed("Error reading file %s: %v", p.FilePath, err)}
	}
	return ReadFileResult{
		Status:  succeeded("Read file %s successfully.", p.FilePath),
		Content: string(content),
	}
}

type WriteFileParams struct {
	FilePath string `json:"file_path" description:"Path of the file to write, parent directories are created"`
	Content  string `json:"content" description:"Full content of the file"`
}

type WriteFileResult struct {
	Status
}

// WriteFile replaces a file with the given content.
func WriteFile(_ context.Context, p WriteFileParams) WriteFileResult {
	if err := os.MkdirAll(filepath.Dir(p.FilePath), 0o755); err != nil {
		return WriteFileResult{failed("Failed to create parent directory: %v", err)}
	}
	if err := os.WriteFile(p.FilePath, []byte(p.Content), 0o644); err != nil {
		return WriteFileResult{failed("Error writing file %s: %v", p.FilePath, err)}
	}
	return WriteFileResult{succeeded("Wrote content to file %s successfully.", p.FilePath)}
}

type GrepFileParams struct {
	FilePath string `json:"file_path" description:"Path of the file to search"`
	Pattern  string `json:"pattern" description:"Regular expression (RE2 syntax) matched against each line"`
}

type GrepFileResult struct {
	Status
	Matches []string `json:"matches"`
}

// GrepFile returns the lines of a file matching a regular expression,
// stripped of surrounding whitespace.
func GrepFile(_ context.Context, p GrepFileParams) GrepFileResult {
	re, err := regexp.Compile(p.Pattern)
	if err != nil {
		return GrepFileResult{Status: failed("Invalid regex pattern: %v", err)}
	}
	f, err := os.Open(p.FilePath)
	if err != nil {
		return GrepFileResult{Status: failed("Error opening file %s: %v", p.FilePath, err)}
	}
	defer func() { _ = f.Close() }()

	matches := []string{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); re.MatchString(line) {
			matches = append(matches, strings.TrimSpace(line))
		}
	}
	if err := scanner.Err(); err != nil {
		return GrepFileResult{Status: failed("Error scanning file: %v", err)}
	}
	if len(matches) == 0 {
		return GrepFileResult{Status: succeeded("No matches found."), Matches: matches}
	}
	return GrepFileResult{Status: succeeded("Found %d matches.", len(matches)), Matches: matches}
}

type SedFileParams struct {
	FilePath     string `json:"file_path" description:"Path of the file to edit"`
	Pattern      string `json:"pattern" description:"Regular expression selecting the lines to change"`
	Replacement  string `json:"replacement" description:"Line written in place of (or before) every matching line"`
	InsertBefore bool   `json:"insert_before,omitempty" description:"Insert the replacement before matching lines instead of replacing them"`
}

type SedFileResult struct {
	Status
	LinesModified int `json:"lines_modified"`
}

// SedFile replaces, or inserts before, every line matching a pattern.
func SedFile(_ context.Context, p SedFileParams) SedFileResult {
	re, err := regexp.Compile(p.Pattern)
	if err != nil {
		return SedFileResult{Status: failed("Invalid regex pattern: %v", err)}
	}
	input, err := os.ReadFile(p.FilePath)
	if err != nil {
		return SedFileResult{Status: failed("Error reading file %s: %v", p.FilePath, err)}
	}

	lines := splitLines(string(input))
	out := make([]string, 0, len(lines))
	modified := 0
	for _, line := range lines {
		if !re.MatchString(line) {
			out = append(out, line)
			continue
		}
		modified++
		out = append(out, p.Replacement)
		if p.InsertBefore {
			out = append(out, line)
		}
	}
	if modified == 0 {
		return SedFileResult{Status: warned("Pattern not found. No modifications made to %s.", p.FilePath)}
	}

	if err := os.WriteFile(p.FilePath, []byte(joinLines(out, string(input))), 0o644); err != nil {
		return SedFileResult{Status: failed("Error writing file %s: %v", p.FilePath, err)}
	}
	return SedFileResult{
		Status:        succeeded("Successfully modified %d line(s) in %s.", modified, p.FilePath),
		LinesModified: modified,
	}
}

type InsertAtLineParams struct {
	FilePath   string `json:"file_path" description:"Path of the file to edit"`
	LineNumber int    `json:"line_number" description:"1-based line the content is inserted before; one past the last line appends"`
	Content    string `json:"content" description:"Content to insert, may span several lines"`
}

type InsertAtLineResult struct {
	Status
}

// InsertAtLine inserts content before a 1-based line number.
func InsertAtLine(_ context.Context, p InsertAtLineParams) InsertAtLineResult {
	input, err := os.ReadFile(p.FilePath)
	if err != nil {
		return InsertAtLineResult{failed("Error reading file %s: %v", p.FilePath, err)}
	}
	lines := strings.Split(string(input), "\n")
	if p.LineNumber < 1 || p.LineNumber > len(lines)+1 {
		return InsertAtLineResult{failed("Invalid line number %d. File has %d lines.", p.LineNumber, len(lines))}
	}

	at := p.LineNumber - 1
	added := strings.Split(p.Content, "\n")
	out := make([]string, 0, len(lines)+len(added))
	out = append(out, lines[:at]...)
	out = append(out, added...)
	out = append(out, lines[at:]...)

	if err := os.WriteFile(p.FilePath, []byte(strings.Join(out, "\n")), 0o644); err != nil {
		return InsertAtLineResult{failed("Error writing file %s: %v", p.FilePath, err)}
	}
	return InsertAtLineResult{succeeded("Successfully inserted content at line %d in %s", p.LineNumber, p.FilePath)}
}

type AppendFileParams struct {
	FilePath string `json:"file_path" description:"Path of the file to append to, created when missing"`
	Content  string `json:"content" description:"Content to append"`
}

type AppendFileResult struct {
	Status
}

// AppendFile appends content on its own line, keeping a trailing newline.
func AppendFile(_ context.Context, p AppendFileParams) AppendFileResult {
	existing, err := os.ReadFile(p.FilePath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return AppendFileResult{failed("Error reading file %s: %v", p.FilePath, err)}
	}

	var b strings.Builder
	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		b.WriteByte('\n')
	}
	b.WriteString(p.Content)
	if p.Content != "" && !strings.HasSuffix(p.Content, "\n") {
		b.WriteByte('\n')
	}

	f, err := os.OpenFile(p.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return AppendFileResult{failed("Error opening file %s: %v", p.FilePath, err)}
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(b.String()); err != nil {
		return AppendFileResult{failed("Error appending to file %s: %v", p.FilePath, err)}
	}
	return AppendFileResult{succeeded("Successfully appended content to %s", p.FilePath)}
}

type RenameFileParams struct {
	OldPath string `json:"old_path" description:"Current path"`
	NewPath string `json:"new_path" description:"New path, parent directories are created"`
}

type RenameFileResult struct {
	Status
}

// RenameFile renames a file or directory.
func RenameFile(_ context.Context, p RenameFileParams) RenameFileResult {
	if dir := filepath.Dir(p.NewPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return RenameFileResult{failed("Failed to create directory: %v", err)}
		}
	}
	if err := os.Rename(p.OldPath, p.NewPath); err != nil {
		return RenameFileResult{failed("Failed to rename: %v", err)}
	}
	return RenameFileResult{succeeded("Renamed %s to %s", p.OldPath, p.NewPath)}
}

type MoveFileParams struct {
	SourcePath      string `json:"source_path" description:"File to move"`
	DestinationPath string `json:"destination_path" description:"Destination path, must not exist yet"`
}

type MoveFileResult struct {
	Status
}

// MoveFile moves a file, refusing to overwrite the destination.
func MoveFile(_ context.Context, p MoveFileParams) MoveFileResult {
	if _, err := os.Stat(p.SourcePath); errors.Is(err, fs.ErrNotExist) {
		return MoveFileResult{failed("Source file does not exist: %s", p.SourcePath)}
	}
	if _, err := os.Stat(p.DestinationPath); err == nil {
		return MoveFileResult{failed("Destination file already exists: %s", p.DestinationPath)}
	}
	if err := os.MkdirAll(filepath.Dir(p.DestinationPath), 0o755); err != nil {
		return MoveFileResult{failed("Failed to create destination directory: %v", err)}
	}
	if err := os.Rename(p.SourcePath, p.DestinationPath); err != nil {
		return MoveFileResult{failed("Error moving file: %v", err)}
	}
	return MoveFileResult{succeeded("Successfully moved %s to %s", p.SourcePath, p.DestinationPath)}
}

type ListFilesParams struct {
	Directory string `json:"directory" description:"Directory to list"`
	Recursive bool   `json:"recursive,omitempty" description:"Walk subdirectories too"`
}

type ListFilesResult struct {
	Status
	Files []string `json:"files"`
}

// ListFiles lists a directory. Directories carry a trailing slash; recursive
// listings use paths relative to the listed directory.
func ListFiles(_ context.Context, p ListFilesParams) ListFilesResult {
	info, err := os.Stat(p.Directory)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ListFilesResult{Status: failed("Directory does not exist: %s", p.Directory), Files: []string{}}
	case err != nil:
		return ListFilesResult{Status: failed("Error accessing directory: %v", err), Files: []string{}}
	case !info.IsDir():
		return ListFilesResult{Status: failed("Path is not a directory: %s", p.Directory), Files: []string{}}
	}

	files := []string{}
	if p.Recursive {
		err = filepath.WalkDir(p.Directory, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(p.Directory, path)
			if err != nil || rel == "." {
				return nil //nolint:nilerr
			}
			files = append(files, entryName(filepath.ToSlash(rel), d.IsDir()))
			return nil
		})
		if err != nil {
			return ListFilesResult{Status: failed("Error walking directory tree: %v", err), Files: []string{}}
		}
	} else {
		entries, err := os.ReadDir(p.Directory)
		if err != nil {
			return ListFilesResult{Status: failed("Error reading directory: %v", err), Files: []string{}}
		}
		for _, e := range entries {
			files = append(files, entryName(e.Name(), e.IsDir()))
		}
	}
	return ListFilesResult{
		Status: succeeded("Found %d items in %s", len(files), p.Directory),
		Files:  files,
	}
}

func entryName(name string, dir bool) string {
	if dir {
		return name + "/"
	}
	return name
}

// splitLines splits content into lines without the trailing empty element a
// final newline would produce.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n")
}

// joinLines is the inverse of splitLines, keeping the original trailing
// newline if there was one.
func joinLines(lines []string, original string) string {
	out := strings.Join(lines, "\n")
	if strings.HasSuffix(original, "\n") {
		out += "\n"
	}
	return out
}
