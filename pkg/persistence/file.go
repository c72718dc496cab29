package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileVersion is the current version of the store file format.
const FileVersion = 1

// fileState is the on-disk form of a store file. One file can hold several
// namespaces; a FileStore only touches its own.
type fileState struct {
	// Version is the file format version.
	Version int `json:"version"`

	// SavedAt is when the file was last committed.
	SavedAt time.Time `json:"saved_at"`

	// Namespaces maps namespace name to its records.
	Namespaces map[string]map[string]record `json:"namespaces"`
}

// FileStore persists records to a JSON file. Writes are staged in memory
// until Commit, which replaces the file atomically.
type FileStore struct {
	mu        sync.Mutex
	path      string
	namespace string
	records   map[string]record
	closed    bool
}

// OpenFileStore loads namespace from the file at path. A missing file is an
// empty store; the file is created on the first Commit.
func OpenFileStore(path, namespace string) (*FileStore, error) {
	st, err := readFileState(path)
	if err != nil {
		return nil, err
	}
	records := st.Namespaces[namespace]
	if records == nil {
		records = make(map[string]record)
	}
	return &FileStore{
		path:      path,
		namespace: namespace,
		records:   records,
	}, nil
}

// Path returns the file path.
func (s *FileStore) Path() string {
	return s.path
}

func readFileState(path string) (*fileState, error) {
	st := &fileState{Namespaces: make(map[string]map[string]record)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store file: %w", err)
	}
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("parse store file %s: %w", path, err)
	}
	if st.Version > FileVersion {
		return nil, fmt.Errorf("store file %s: unsupported version %d", path, st.Version)
	}
	if st.Namespaces == nil {
		st.Namespaces = make(map[string]map[string]record)
	}
	return st, nil
}

// GetString implements Store.
func (s *FileStore) GetString(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	r, ok := s.records[key]
	if !ok {
		return "", notFound(key)
	}
	return r.asString(key)
}

// SetString implements Store.
func (s *FileStore) SetString(_ context.Context, key, value string) error {
	if err := checkString(key, value); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.records[key] = record{Kind: KindString, Str: value}
	return nil
}

// GetUint implements Store.
func (s *FileStore) GetUint(_ context.Context, key string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	r, ok := s.records[key]
	if !ok {
		return 0, notFound(key)
	}
	return r.asUint(key)
}

// SetUint implements Store.
func (s *FileStore) SetUint(_ context.Context, key string, value uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.records[key] = record{Kind: KindUint, Uint: value}
	return nil
}

// Commit writes the namespace to disk. Other namespaces already in the file
// are preserved.
func (s *FileStore) Commit(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	st, err := readFileState(s.path)
	if err != nil {
		return err
	}
	st.Version = FileVersion
	st.SavedAt = time.Now()
	st.Namespaces[s.namespace] = maps.Clone(s.records)

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Close implements Store. Uncommitted writes are discarded.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ Store = (*FileStore)(nil)
