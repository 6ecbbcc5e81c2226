package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memory is the in-process Store backend. A RWMutex-guarded map supports
// concurrent resolution during inserts.
type memory struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]Entry
}

// NewMemory creates an in-memory registry store.
func NewMemory() Store {
	return &memory{
		entries: make(map[uuid.UUID]Entry),
	}
}

func (m *memory) Register(ctx context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[entry.ID]; exists {
		return ErrDuplicate
	}
	m.entries[entry.ID] = entry
	return nil
}

func (m *memory) Resolve(ctx context.Context, id uuid.UUID) (Entry, error) {
	m.mu.RLock()
	entry, exists := m.entries[id]
	m.mu.RUnlock()

	if !exists {
		return Entry{}, ErrNotFound
	}
	if entry.ExpiredAt(time.Now()) {
		return Entry{}, ErrExpired
	}
	return entry, nil
}

func (m *memory) Expire(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	return nil
}

func (m *memory) Expired(ctx context.Context, now time.Time) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var expired []Entry
	for _, entry := range m.entries {
		if entry.ExpiredAt(now) {
			expired = append(expired, entry)
		}
	}
	return expired, nil
}

func (m *memory) List(ctx context.Context, limit int) ([]Entry, error) {
	m.mu.RLock()
	entries := make([]Entry, 0, len(m.entries))
	for _, entry := range m.entries {
		entries = append(entries, entry)
	}
	m.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *memory) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}
