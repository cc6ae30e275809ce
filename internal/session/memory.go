package session

import (
	"context"
	"sync"
	"time"
)

// MemoryActivity is an in-process ActivityStore for single-instance runs.
type MemoryActivity struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func NewMemoryActivity() *MemoryActivity {
	return &MemoryActivity{seen: map[string]time.Time{}}
}

func (m *MemoryActivity) Touch(_ context.Context, sessionID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.seen[sessionID]; !ok || at.After(prev) {
		m.seen[sessionID] = at
	}
	return nil
}

func (m *MemoryActivity) LastSeen(_ context.Context, sessionID string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.seen[sessionID]
	return at, ok, nil
}

func (m *MemoryActivity) Forget(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, sessionID)
	return nil
}
