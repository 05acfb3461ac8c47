// Package cache keeps one JSON document per ID on disk, in directories
// sharded by the first characters of the ID.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Type names the directory a cache lives in.
type Type string

// TranscriptCache holds full run transcripts.
const TranscriptCache Type = "transcripts"

const shardLen = 2

var errInvalidID = errors.New("invalid id")

// Cache stores values of type T as indented JSON files.
type Cache[T any] struct {
	dir string
}

// New returns a cache rooted at baseDir/cacheType, creating the directory.
func New[T any](baseDir string, cacheType Type) (*Cache[T], error) {
	dir := filepath.Join(baseDir, string(cacheType))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &Cache[T]{dir: dir}, nil
}

func (c *Cache[T]) path(id string) string {
	if len(id) < shardLen {
		return filepath.Join(c.dir, id+".json")
	}
	return filepath.Join(c.dir, id[:shardLen], id+".json")
}

// Read decodes the document stored under id.
func (c *Cache[T]) Read(id string) (T, error) {
	var v T
	if id == "" {
		return v, fmt.Errorf("read: %w", errInvalidID)
	}
	f, err := os.Open(c.path(id))
	if err != nil {
		return v, fmt.Errorf("read: %w", err)
	}
	defer f.Close() //nolint:errcheck
	if err := json.NewDecoder(f).Decode(&v); err != nil {
		return v, fmt.Errorf("read %s: %w", id, err)
	}
	return v, nil
}

// Write stores v under id, replacing any previous document through a
// rename so readers never see a partial file.
func (c *Cache[T]) Write(id string, v T) error {
	if id == "" {
		return fmt.Errorf("write: %w", errInvalidID)
	}
	if err := c.write(c.path(id), v); err != nil {
		return fmt.Errorf("write %s: %w", id, err)
	}
	return nil
}

func (c *Cache[T]) write(path string, v T) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err //nolint:wrapcheck
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err //nolint:wrapcheck
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	err = enc.Encode(v)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err //nolint:wrapcheck
	}
	return os.Rename(tmp.Name(), path) //nolint:wrapcheck
}

// Delete removes the document stored under id. Missing documents are not an
// error.
func (c *Cache[T]) Delete(id string) error {
	if id == "" {
		return fmt.Errorf("delete: %w", errInvalidID)
	}
	if err := os.Remove(c.path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}
