package guard

import (
	"context"
	"sync"
	"time"
)

// SuppressionList answers whether an address must never be emailed.
// Addresses are expected in canonical form.
type SuppressionList interface {
	IsSuppressed(ctx context.Context, email string) (bool, error)
}

// SuppressionStore is a SuppressionList that can be edited by operators.
type SuppressionStore interface {
	SuppressionList
	Add(ctx context.Context, email, reason string) error
	Remove(ctx context.Context, email string) error
}

// Suppression is a single entry of the list.
type Suppression struct {
	Email     string    `json:"email"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MemorySuppressions is a process-local suppression list.
type MemorySuppressions struct {
	entries map[string]Suppression
	mu      sync.RWMutex
}

// NewMemorySuppressions creates a list pre-populated with the given addresses.
func NewMemorySuppressions(emails ...string) *MemorySuppressions {
	m := &MemorySuppressions{entries: make(map[string]Suppression, len(emails))}
	now := time.Now().UTC()
	for _, e := range emails {
		m.entries[e] = Suppression{Email: e, CreatedAt: now}
	}
	return m
}

func (m *MemorySuppressions) IsSuppressed(_ context.Context, email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[email]
	return ok, nil
}

func (m *MemorySuppressions) Add(_ context.Context, email, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[email] = Suppression{Email: email, Reason: reason, CreatedAt: time.Now().UTC()}
	return nil
}

func (m *MemorySuppressions) Remove(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, email)
	return nil
}

var _ SuppressionStore = (*MemorySuppressions)(nil)
