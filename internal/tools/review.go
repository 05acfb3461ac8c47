package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

type RequestReviewParams struct {
	Content  string `json:"content" description:"Draft the human should review and edit"`
	FileName string `json:"file_name,omitempty" description:"Name hint for the temporary file, its extension selects editor highlighting"`
}

type RequestReviewResult struct {
	Status
	Content string `json:"content"`
	Changed bool   `json:"changed"`
}

// RequestReview blocks until a human edited the draft in $EDITOR and
// returns what they saved. The temporary file is always removed.
func (t *Toolbox) RequestReview(ctx context.Context, p RequestReviewParams) RequestReviewResult {
	pattern := "ztr-review-*"
	if ext := filepath.Ext(p.FileName); ext != "" {
		pattern += ext
	}
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return RequestReviewResult{Status: failed("Could not create temporary file: %v", err)}
	}
	defer func() { _ = os.Remove(f.Name()) }()
	if _, err := f.WriteString(p.Content); err != nil {
		_ = f.Close()
		return RequestReviewResult{Status: failed("Could not write temporary file: %v", err)}
	}
	if err := f.Close(); err != nil {
		return RequestReviewResult{Status: failed("Could not write temporary file: %v", err)}
	}

	edit := t.Edit
	if edit == nil {
		edit = launchEditor
	}
	t.log().Info("waiting for human review", "file", f.Name())
	if err := edit(ctx, f.Name()); err != nil {
		return RequestReviewResult{Status: failed("Review failed: %v", err), Content: p.Content}
	}

	edited, err := os.ReadFile(f.Name())
	if err != nil {
		return RequestReviewResult{Status: failed("Could not read reviewed file: %v", err), Content: p.Content}
	}
	out := string(edited)
	if strings.TrimSpace(out) == "" {
		return RequestReviewResult{Status: warned("The reviewer cleared the draft. Treat it as rejected."), Changed: true}
	}
	if out == p.Content {
		return RequestReviewResult{Status: succeeded("The reviewer approved the draft without changes."), Content: out}
	}
	return RequestReviewResult{Status: succeeded("The reviewer edited the draft."), Content: out, Changed: true}
}
