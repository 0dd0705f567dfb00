package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore keeps the ledger as a single JSON file on a local path, typically
// under /tmp. The platform may wipe it between invocations; that is fine,
// because the publisher's check-before-write is the real duplicate guard.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates the parent directory eagerly so the first Put cannot
// fail on a missing path.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ledger dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Get returns the entry for key, if the file still exists and contains it.
func (s *FileStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return Entry{}, false, err
	}
	e, ok := entries[key]
	return e, ok, nil
}

// Put writes the entry with a write-temp-then-rename so a crash never leaves
// a half-written ledger behind.
func (s *FileStore) Put(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	entries[e.Key] = e
	return s.save(entries)
}

// DeleteExpired drops entries last touched before cutoff.
func (s *FileStore) DeleteExpired(_ context.Context, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	changed := false
	for k, e := range entries {
		if e.UpdatedAt.Before(cutoff) {
			delete(entries, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.save(entries)
}

func (s *FileStore) load() (map[string]Entry, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger read: %w", err)
	}
	entries := map[string]Entry{}
	if len(raw) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		// A torn or wiped file is expected on this class of storage; start over.
		return map[string]Entry{}, nil
	}
	return entries, nil
}

func (s *FileStore) save(entries map[string]Entry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("ledger write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("ledger rename: %w", err)
	}
	return nil
}
