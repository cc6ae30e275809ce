package cache

import (
	"sync"
	"sync/atomic"
)

// Snapshot is a lock-free, read-optimized container
// holding any immutable structure.
type Snapshot[T any] struct{ v atomic.Value }

// Load returns the stored value and whether one was stored.
func (s *Snapshot[T]) Load() (T, bool) {
	v := s.v.Load()
	if v == nil {
		var z T
		return z, false
	}
	return v.(T), true
}

// Store atomically swaps in the new value.
func (s *Snapshot[T]) Store(v T) {
	s.v.Store(v)
}

// Labels remembers resolved display names for reference ids. Readers never
// lock; writers copy the map and swap it in.
type Labels struct {
	mu   sync.Mutex
	snap Snapshot[map[string]string]
}

func NewLabels() *Labels { return &Labels{} }

func labelKey(kind, id string) string { return kind + ":" + id }

func (l *Labels) Get(kind, id string) (string, bool) {
	m, ok := l.snap.Load()
	if !ok {
		return "", false
	}
	v, ok := m[labelKey(kind, id)]
	return v, ok
}

func (l *Labels) Put(kind, id, label string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	old, _ := l.snap.Load()
	next := make(map[string]string, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[labelKey(kind, id)] = label
	l.snap.Store(next)
}

func (l *Labels) Len() int {
	m, _ := l.snap.Load()
	return len(m)
}
