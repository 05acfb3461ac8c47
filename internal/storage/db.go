package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

var (
	// ErrNoMatches is returned when no runs match the query.
	ErrNoMatches = errors.New("no runs found")
	// ErrManyMatches is returned when multiple runs match the query.
	ErrManyMatches = errors.New("multiple runs matched the input")
)

// Run statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

const (
	indexFileName = "index.jsonl"
	lockFileName  = "index.lock"

	// The index is rewritten once it holds at least compactMinOps events
	// and compactScaleFactor events per live run.
	compactMinOps      = 256
	compactScaleFactor = 4
)

const (
	opUpsert = "upsert"
	opDelete = "delete"
)

type runEvent struct {
	Op  string `json:"op"`
	ID  string `json:"id,omitempty"`
	Run *Run   `json:"run,omitempty"`
}

// Run is the index record of one agent run.
type Run struct {
	ID           string    `json:"id"`
	Agent        string    `json:"agent"`
	Title        string    `json:"title"`
	API          string    `json:"api,omitempty"`
	Model        string    `json:"model,omitempty"`
	Status       string    `json:"status"`
	InputTokens  int64     `json:"input_tokens"`
	OutputTokens int64     `json:"output_tokens"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Title returns the first line of task, shortened for listings.
func Title(task string) string {
	const maxTitle = 72
	line, _, _ := strings.Cut(strings.TrimSpace(task), "\n")
	line = strings.TrimSpace(line)
	if r := []rune(line); len(r) > maxTitle {
		return string(r[:maxTitle-1]) + "…"
	}
	return line
}

// DB is the run index: an append-only log of upserts and deletes in
// index.jsonl, replayed into memory on Open. Writes hold a file lock so
// concurrent ztr processes do not interleave events.
type DB struct {
	mu      sync.RWMutex
	path    string
	flock   *flock.Flock
	runs    map[string]Run
	ops     int
	tempDir string
}

// Open loads the index kept in dir. The special value ":memory:" uses a
// throwaway directory that Close removes.
func Open(dir string) (*DB, error) {
	var tempDir string
	if dir == ":memory:" {
		var err error
		if dir, err = os.MkdirTemp("", "ztr-runs-*"); err != nil {
			return nil, fmt.Errorf("could not create temp runs directory: %w", err)
		}
		tempDir = dir
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create store directory: %w", err)
	}

	db := &DB{
		path:    filepath.Join(dir, indexFileName),
		flock:   flock.New(filepath.Join(dir, lockFileName)),
		runs:    map[string]Run{},
		tempDir: tempDir,
	}
	if err := db.withLock(db.reload); err != nil {
		return nil, err
	}
	return db, nil
}

// Close removes the directory of a :memory: store.
func (db *DB) Close() error {
	if db.tempDir == "" {
		return nil
	}
	if err := os.RemoveAll(db.tempDir); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// Save upserts a run record. A zero UpdatedAt is set to now.
func (db *DB) Save(run Run) error {
	switch {
	case strings.TrimSpace(run.ID) == "":
		return errors.New("save run: empty id")
	case strings.TrimSpace(run.Title) == "":
		return errors.New("save run: empty title")
	}
	if run.UpdatedAt.IsZero() {
		run.UpdatedAt = time.Now().UTC()
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.record(runEvent{Op: opUpsert, Run: &run}); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// Delete removes a run record. Unknown IDs are not an error.
func (db *DB) Delete(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("delete run: empty id")
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.runs[id]; !ok {
		return nil
	}
	if err := db.record(runEvent{Op: opDelete, ID: id}); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}

// List returns every run, most recently updated first.
func (db *DB) List() []Run {
	return db.collect(func(Run) bool { return true })
}

// ListOlderThan returns the runs last updated more than d ago.
func (db *DB) ListOlderThan(d time.Duration) []Run {
	cutoff := time.Now().Add(-d)
	return db.collect(func(r Run) bool { return r.UpdatedAt.Before(cutoff) })
}

// FindHEAD returns the most recent run.
func (db *DB) FindHEAD() (*Run, error) {
	runs := db.List()
	if len(runs) == 0 {
		return nil, fmt.Errorf("find head: %w", ErrNoMatches)
	}
	return &runs[0], nil
}

// Find resolves a run by exact title or by an ID prefix of at least
// SHA1MinLen characters.
func (db *DB) Find(in string) (*Run, error) {
	runs := db.collect(func(r Run) bool {
		return r.Title == in || (len(in) >= SHA1MinLen && strings.HasPrefix(r.ID, in))
	})
	switch len(runs) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNoMatches, in)
	case 1:
		return &runs[0], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrManyMatches, in)
}

// Completions returns shell completion candidates for IDs and titles.
// Short inputs complete to short IDs.
func (db *DB) Completions(in string) []string {
	set := map[string]struct{}{}
	for _, r := range db.List() {
		if strings.HasPrefix(r.ID, in) {
			id := r.ID
			if len(in) < SHA1Short {
				id = ShortID(r.ID)
			}
			set[id+"\t"+r.Agent+": "+r.Title] = struct{}{}
		}
		if strings.HasPrefix(r.Title, in) {
			set[r.Title+"\t"+ShortID(r.ID)] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(set))
}

func (db *DB) collect(keep func(Run) bool) []Run {
	db.mu.RLock()
	var runs []Run
	for _, r := range db.runs {
		if keep(r) {
			runs = append(runs, r)
		}
	}
	db.mu.RUnlock()

	slices.SortFunc(runs, newestFirst)
	return runs
}

func newestFirst(a, b Run) int {
	if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

func (db *DB) withLock(fn func() error) error {
	if err := db.flock.Lock(); err != nil {
		return fmt.Errorf("lock index: %w", err)
	}
	defer func() { _ = db.flock.Unlock() }()
	return fn()
}

// reload replaces the in-memory index with what the log on disk holds,
// including events appended by other processes.
func (db *DB) reload() error {
	runs, ops, err := replay(db.path)
	if err != nil {
		return err
	}
	db.runs, db.ops = runs, ops
	return nil
}

func replay(path string) (map[string]Run, int, error) {
	runs := map[string]Run{}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return runs, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("could not open index file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	dec := json.NewDecoder(f)
	for ops := 0; ; ops++ {
		var evt runEvent
		err := dec.Decode(&evt)
		if errors.Is(err, io.EOF) {
			return runs, ops, nil
		}
		if err != nil {
			return nil, 0, fmt.Errorf("could not parse index event: %w", err)
		}
		if err := apply(runs, evt); err != nil {
			return nil, 0, err
		}
	}
}

func apply(runs map[string]Run, evt runEvent) error {
	switch evt.Op {
	case opUpsert:
		if evt.Run == nil || strings.TrimSpace(evt.Run.ID) == "" {
			return errors.New("invalid upsert event: missing run id")
		}
		runs[evt.Run.ID] = *evt.Run
	case opDelete:
		if strings.TrimSpace(evt.ID) == "" {
			return errors.New("invalid delete event: empty id")
		}
		delete(runs, evt.ID)
	default:
		return fmt.Errorf("invalid index event op: %q", evt.Op)
	}
	return nil
}

// record appends evt to the log and applies it in memory once the write
// succeeded. When the log has grown well past the number of live runs it is
// reloaded and compacted, so events of other processes survive. The caller
// holds db.mu.
func (db *DB) record(evt runEvent) error {
	return db.withLock(func() error {
		if err := appendLine(db.path, evt); err != nil {
			return err
		}
		if err := apply(db.runs, evt); err != nil {
			return err
		}
		db.ops++
		if db.ops < compactMinOps || (len(db.runs) > 0 && db.ops < len(db.runs)*compactScaleFactor) {
			return nil
		}
		if err := db.reload(); err != nil {
			return err
		}
		return db.compact()
	})
}

func appendLine(path string, evt runEvent) error {
	line, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal index event: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer f.Close() //nolint:errcheck
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write index event: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync index: %w", err)
	}
	return nil
}

// compact rewrites the log as one upsert per live run, oldest first, and
// swaps it in with a rename.
func (db *DB) compact() error {
	runs := slices.Collect(maps.Values(db.runs))
	slices.SortFunc(runs, func(a, b Run) int { return newestFirst(b, a) })

	tmp := db.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open compacted index: %w", err)
	}
	enc := json.NewEncoder(f)
	for _, r := range runs {
		if err := enc.Encode(runEvent{Op: opUpsert, Run: &r}); err != nil {
			_ = f.Close()
			return fmt.Errorf("write compacted index: %w", err)
		}
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync compacted index: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close compacted index: %w", err)
	}
	if err := os.Rename(tmp, db.path); err != nil {
		return fmt.Errorf("replace index with compacted version: %w", err)
	}
	if d, err := os.Open(filepath.Dir(db.path)); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	db.ops = len(runs)
	return nil
}
