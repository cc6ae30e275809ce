// Package lookup discards reference-data responses that were superseded by a
// newer request for the same key.
package lookup

import (
	"context"
	"strings"
	"sync"

	"promo-wizard/internal/observability"
)

// Ticket identifies one issued request.
type Ticket struct {
	key string
	gen uint64
}

type entry struct {
	gen    uint64
	cancel context.CancelFunc
}

// Guard hands out increasing generations, tracked per key. Only the newest generation
// may commit; starting a new one cancels the previous request's context.
type Guard struct {
	mu      sync.Mutex
	gen     uint64
	entries map[string]entry
}

func NewGuard() *Guard {
	return &Guard{entries: map[string]entry{}}
}

// Begin issues a ticket for key and returns a context that is cancelled once
// a newer ticket for the same key is issued.
func (g *Guard) Begin(ctx context.Context, key string) (context.Context, Ticket) {
	ctx, cancel := context.WithCancel(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	prev := g.entries[key]
	if prev.cancel != nil {
		prev.cancel()
	}
	g.gen++
	next := entry{gen: g.gen, cancel: cancel}
	g.entries[key] = next
	return ctx, Ticket{key: key, gen: next.gen}
}

// Current reports whether t is still the newest ticket for its key.
func (g *Guard) Current(t Ticket) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.entries[t.key].gen == t.gen
}

// Commit runs apply under the guard's lock if t is still current. Stale
// tickets are counted and dropped.
func (g *Guard) Commit(t Ticket, apply func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	e := g.entries[t.key]
	if e.gen != t.gen {
		observability.StaleLookups.Inc()
		return false
	}
	apply()
	return true
}

// Done releases the context of t when it is still current.
func (g *Guard) Done(t Ticket) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if e := g.entries[t.key]; e.gen == t.gen && e.cancel != nil {
		e.cancel()
		e.cancel = nil
		g.entries[t.key] = e
	}
}

// ForgetPrefix cancels and drops every key starting with prefix. Tickets
// issued before are stale from then on.
func (g *Guard) ForgetPrefix(prefix string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for key, e := range g.entries {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if e.cancel != nil {
			e.cancel()
		}
		delete(g.entries, key)
	}
}

// Len is the number of keys tracked.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}
