package halt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps the halt record as a single JSON file, written
// atomically (temp file + rename) so a crash mid-write never leaves a
// torn record.
type FileStore struct {
	path string
}

// NewFileStore creates the parent directory and returns a store.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("halt store: create directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Save writes the record atomically.
func (s *FileStore) Save(st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("halt store: marshal: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("halt store: write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("halt store: rename: %w", err)
	}
	return nil
}

// Load reads the prior record; ok is false when no record exists yet.
func (s *FileStore) Load() (State, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, false, nil
		}
		return State{}, false, fmt.Errorf("halt store: read: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, false, fmt.Errorf("halt store: parse: %w", err)
	}
	return st, true, nil
}
