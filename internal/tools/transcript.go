package tools

import (
	"context"
	"fmt"
	"os"
)

type ReadTranscriptParams struct {
	FilePath string `json:"file_path" description:"Path of the meeting transcript"`
}

type ReadTranscriptResult struct {
	Status
	Prompt string `json:"prompt,omitempty"`
}

// ReadTranscript turns a meeting transcript into a prompt asking for a
// summary and the GitHub issue actions the discussion implies.
func ReadTranscript(_ context.Context, p ReadTranscriptParams) ReadTranscriptResult {
	transcript, err := os.ReadFile(p.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return ReadTranscriptResult{Status: failed("File not found: %s", p.FilePath)}
		}
		return ReadTranscriptResult{Status: failed("Error reading file %s: %v", p.FilePath, err)}
	}
	prompt := fmt.Sprintf(
		"System prompt generated from meeting transcript:\n%s\n"+
			"Summarize the key points and suggest relevant GitHub actions (create/update/close issues) based on the discussion.",
		transcript,
	)
	return ReadTranscriptResult{Status: succeeded("Read transcript %s.", p.FilePath), Prompt: prompt}
}
