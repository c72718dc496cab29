package persistence

import (
	"context"
	"maps"
	"sync"
)

// MemoryStore keeps records in memory. Commit snapshots the staged records;
// Committed returns that snapshot so tests can tell staged from durable.
type MemoryStore struct {
	mu        sync.RWMutex
	staged    map[string]record
	committed map[string]record
	commits   int
	closed    bool
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		staged:    make(map[string]record),
		committed: make(map[string]record),
	}
}

func (s *MemoryStore) get(key string) (record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return record{}, ErrClosed
	}
	r, ok := s.staged[key]
	if !ok {
		return record{}, notFound(key)
	}
	return r, nil
}

func (s *MemoryStore) set(key string, r record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.staged[key] = r
	return nil
}

// GetString implements Store.
func (s *MemoryStore) GetString(_ context.Context, key string) (string, error) {
	r, err := s.get(key)
	if err != nil {
		return "", err
	}
	return r.asString(key)
}

// SetString implements Store.
func (s *MemoryStore) SetString(_ context.Context, key, value string) error {
	if err := checkString(key, value); err != nil {
		return err
	}
	return s.set(key, record{Kind: KindString, Str: value})
}

// GetUint implements Store.
func (s *MemoryStore) GetUint(_ context.Context, key string) (uint64, error) {
	r, err := s.get(key)
	if err != nil {
		return 0, err
	}
	return r.asUint(key)
}

// SetUint implements Store.
func (s *MemoryStore) SetUint(_ context.Context, key string, value uint64) error {
	return s.set(key, record{Kind: KindUint, Uint: value})
}

// Commit implements Store.
func (s *MemoryStore) Commit(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.committed = maps.Clone(s.staged)
	s.commits++
	return nil
}

// Commits returns how many times Commit succeeded.
func (s *MemoryStore) Commits() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commits
}

// Committed reports whether key is present in the last committed snapshot.
func (s *MemoryStore) Committed(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.committed[key]
	return ok
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ Store = (*MemoryStore)(nil)
