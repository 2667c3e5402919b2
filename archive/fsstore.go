package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FSStore persists records as JSON files under a Hive-partitioned
// directory tree rooted at Root.
type FSStore struct {
	root string
}

// NewFSStore creates a filesystem-backed store rooted at root. The root
// directory is created on first Put if it does not exist.
func NewFSStore(root string) *FSStore {
	return &FSStore{root: root}
}

// Put writes record to root/source=.../day=.../outcome=.../compilation_id=N.json.
func (s *FSStore) Put(_ context.Context, record *Record) error {
	dir := filepath.Join(s.root, partitionPath(record.Source, record.Day, record.Outcome))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("archive: mkdir %s: %w", dir, err)
	}

	path := filepath.Join(dir, objectName(record.CompilationID))
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("archive: marshal record: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("archive: write %s: %w", path, err)
	}
	return nil
}

// Get reads back a previously written record. Returns ErrNotFound if no
// record exists at key.
func (s *FSStore) Get(_ context.Context, key Key) (*Record, error) {
	path := filepath.Join(s.root, partitionPath(key.Source, key.Day, key.Outcome), objectName(key.CompilationID))
	body, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("archive: read %s: %w", path, err)
	}

	var record Record
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("archive: unmarshal %s: %w", path, err)
	}
	return &record, nil
}

// Close is a no-op: FSStore holds no resources beyond the filesystem.
func (s *FSStore) Close() error { return nil }

// ErrNotFound is returned by Get when no record exists at the given key.
var ErrNotFound = errors.New("archive: record not found")

var _ Store = (*FSStore)(nil)
