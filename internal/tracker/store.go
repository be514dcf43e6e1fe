package tracker

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dgerlanc/hookguard/internal/constants"
	"github.com/dgerlanc/hookguard/internal/logger"
)

// Store is a persistent counter keyed by "<session>:<rule>".
type Store interface {
	// Increment adds one to key and returns the new count.
	Increment(key string) (int, error)
}

// FileStore keeps every counter in one JSON document. Each Increment reads,
// mutates and rewrites the whole file; writes go through a temp file and a
// rename so readers never see a partial document. There is no lock, so two
// processes racing on the same file may lose an increment.
type FileStore struct {
	Path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Increment bumps key. An unreadable or corrupt file is replaced by a fresh
// map holding only key, so the returned count is 1 in that case.
func (s *FileStore) Increment(key string) (int, error) {
	counts, err := s.Load()
	if err != nil {
		logger.For("tracker").Warn("error counts unreadable, starting fresh", "path", s.Path, "error", err)
	}
	if counts == nil {
		counts = map[string]int{}
	}
	counts[key]++
	n := counts[key]
	if err := s.save(counts); err != nil {
		return n, err
	}
	return n, nil
}

// Load returns all counters. A missing file yields an empty map.
func (s *FileStore) Load() (map[string]int, error) {
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return map[string]int{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read counts: %w", err)
	}
	counts := map[string]int{}
	if err := json.Unmarshal(data, &counts); err != nil {
		return nil, fmt.Errorf("decode counts: %w", err)
	}
	if counts == nil {
		// A literal null decodes without error.
		counts = map[string]int{}
	}
	return counts, nil
}

func (s *FileStore) save(counts map[string]int) error {
	data, err := json.MarshalIndent(counts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode counts: %w", err)
	}
	return atomicWrite(s.Path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// atomicWrite writes path through a temp file in the same directory.
func atomicWrite(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, constants.StateDirMode); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write counts: %w", err)
	}
	if err := tmp.Chmod(constants.StateFileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename counts: %w", err)
	}
	success = true
	return nil
}

// MemoryStore is an in-process Store for tests and dry runs.
type MemoryStore struct {
	counts map[string]int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counts: map[string]int{}}
}

// Increment implements Store.
func (m *MemoryStore) Increment(key string) (int, error) {
	m.counts[key]++
	return m.counts[key], nil
}
