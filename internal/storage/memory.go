package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"promo-wizard/internal/promo"
)

// Memory keeps serialized drafts in process. Used when no Postgres host is
// configured and in tests.
type Memory struct {
	mu     sync.RWMutex
	drafts map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{drafts: map[string][]byte{}}
}

func memKey(owner, key string) string { return owner + "\x00" + key }

func (m *Memory) Load(_ context.Context, owner, key string) (promo.Draft, bool, error) {
	m.mu.RLock()
	b, ok := m.drafts[memKey(owner, key)]
	m.mu.RUnlock()
	if !ok {
		return promo.Draft{}, false, nil
	}
	var d promo.Draft
	if err := json.Unmarshal(b, &d); err != nil {
		return promo.Draft{}, false, fmt.Errorf("decode draft: %w", err)
	}
	return d, true, nil
}

func (m *Memory) Save(_ context.Context, owner, key string, d promo.Draft) error {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[memKey(owner, key)] = b
	return nil
}

func (m *Memory) Clear(_ context.Context, owner, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, memKey(owner, key))
	return nil
}

// PutRaw stores bytes as is, bypassing encoding.
func (m *Memory) PutRaw(owner, key string, b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[memKey(owner, key)] = append([]byte(nil), b...)
}
