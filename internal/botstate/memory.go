package botstate

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps command state in process memory. Entries expire after
// ttl so an abandoned /train session does not swallow photos forever.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time // replaceable in tests
}

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory state store. A non-positive ttl
// disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryStore) Set(ctx context.Context, user string, state State, label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var expiresAt time.Time
	if m.ttl > 0 {
		expiresAt = m.now().Add(m.ttl)
	}
	m.entries[user] = memoryEntry{
		entry:     Entry{State: state, Label: label},
		expiresAt: expiresAt,
	}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, user string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[user]
	if !ok {
		return Entry{State: StateIdle}, nil
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		delete(m.entries, user)
		return Entry{State: StateIdle}, nil
	}
	return e.entry, nil
}

func (m *MemoryStore) Clear(ctx context.Context, user string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, user)
	return nil
}
