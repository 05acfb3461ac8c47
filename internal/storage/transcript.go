package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/sortedstartup/ztr/internal/storage/cache"
)

// ToolCall is one tool invocation recorded in a transcript.
type ToolCall struct {
	Name     string        `json:"name"`
	Input    string        `json:"input"`
	Output   string        `json:"output,omitempty"`
	Failed   bool          `json:"failed,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Transcript is the full record of a run.
type Transcript struct {
	ID           string        `json:"id"`
	Agent        string        `json:"agent"`
	API          string        `json:"api"`
	Model        string        `json:"model"`
	Task         string        `json:"task"`
	Instructions string        `json:"instructions"`
	Workspace    string        `json:"workspace,omitempty"`
	Output       string        `json:"output,omitempty"`
	Error        string        `json:"error,omitempty"`
	Tools        []ToolCall    `json:"tools,omitempty"`
	Steps        int           `json:"steps"`
	InputTokens  int64         `json:"input_tokens"`
	OutputTokens int64         `json:"output_tokens"`
	TotalTokens  int64         `json:"total_tokens"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
}

// Run returns the index record for t.
func (t Transcript) Run() Run {
	status := StatusSucceeded
	if t.Error != "" {
		status = StatusFailed
	}
	return Run{
		ID:           t.ID,
		Agent:        t.Agent,
		Title:        Title(t.Task),
		API:          t.API,
		Model:        t.Model,
		Status:       status,
		InputTokens:  t.InputTokens,
		OutputTokens: t.OutputTokens,
		UpdatedAt:    t.StartedAt.Add(t.Duration).UTC(),
	}
}

// Store keeps the run index and the transcripts together.
type Store struct {
	*DB
	transcripts *cache.Cache[Transcript]
}

// OpenStore opens the run index and transcript cache under dir.
func OpenStore(dir string) (*Store, error) {
	db, err := Open(dir)
	if err != nil {
		return nil, err
	}
	transcripts, err := cache.New[Transcript](dir, cache.TranscriptCache)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open transcripts: %w", err)
	}
	return &Store{DB: db, transcripts: transcripts}, nil
}

// Record writes the transcript, then indexes it. A transcript without an ID
// gets a new one.
func (s *Store) Record(t Transcript) (Run, error) {
	if t.ID == "" {
		t.ID = NewRunID()
	}
	if err := s.transcripts.Write(t.ID, t); err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	run := t.Run()
	if err := s.Save(run); err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	return run, nil
}

// Transcript reads the transcript of a run.
func (s *Store) Transcript(id string) (Transcript, error) {
	t, err := s.transcripts.Read(id)
	if err != nil {
		return Transcript{}, fmt.Errorf("transcript %s: %w", ShortID(id), err)
	}
	return t, nil
}

// Remove deletes a run from the index along with its transcript.
func (s *Store) Remove(id string) error {
	return errors.Join(s.transcripts.Delete(id), s.Delete(id))
}
