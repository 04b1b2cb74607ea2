package outbox

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory.
// Used for local development and tests; contents are lost on restart.
type MemoryStore struct {
	records map[string]*Record
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (s *MemoryStore) Insert(_ context.Context, r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[r.ID]; exists {
		return ErrDuplicateID
	}
	s.records[r.ID] = r.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (s *MemoryStore) Modify(_ context.Context, id string, fn func(r *Record) error) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}

	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	s.records[id] = working
	return working.Clone(), nil
}

func (s *MemoryStore) ListDue(_ context.Context, now time.Time, maxRetries, limit int) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []*Record
	for _, r := range s.records {
		if r.Status != StatusFailed || r.NextRetryAt == nil || r.NextRetryAt.After(now) {
			continue
		}
		if maxRetries > 0 && r.RetryCount >= maxRetries {
			continue
		}
		due = append(due, r.Clone())
	}

	slices.SortFunc(due, func(a, b *Record) int {
		return a.NextRetryAt.Compare(*b.NextRetryAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

var _ Store = (*MemoryStore)(nil)
