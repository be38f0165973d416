package records

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is a thread-safe in-process Store for tests and dry runs.
// Records are copied on the way in and out.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[Key]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[Key]Record)}
}

// Put stores a copy of r.
func (s *MemoryStore) Put(_ context.Context, r *Record) error {
	if r == nil || !validKey(r.Key()) {
		return ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.Key()] = *r
	return nil
}

// Get returns a copy of the stored record.
func (s *MemoryStore) Get(_ context.Context, key Key) (*Record, error) {
	if !validKey(key) {
		return nil, ErrInvalidKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

// SetStatus updates status and updatedAt of an existing record.
func (s *MemoryStore) SetStatus(_ context.Context, key Key, status string, now time.Time) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[key]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, key.PromptID, key.Version)
	}
	r.Status = status
	r.UpdatedAt = now.UTC()
	s.records[key] = r
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
