// Package session expires idle wizard sessions. Activity is shared between
// instances through an ActivityStore; each instance polls it and broadcasts
// logouts to local subscribers.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"promo-wizard/internal/observability"
)

// DefaultPoll is how often last-activity timestamps are re-read.
const DefaultPoll = 15 * time.Second

// ExpiredTTL is how long a logged-out session keeps answering as expired.
// Past that a request with its id is treated as a new session.
const ExpiredTTL = 24 * time.Hour

// ActivityStore persists the last-activity timestamp per session.
type ActivityStore interface {
	Touch(ctx context.Context, sessionID string, at time.Time) error
	LastSeen(ctx context.Context, sessionID string) (time.Time, bool, error)
	Forget(ctx context.Context, sessionID string) error
}

// Event announces that a session was logged out for inactivity.
type Event struct {
	SessionID string
	LastSeen  time.Time
}

type Watcher struct {
	store   ActivityStore
	timeout time.Duration
	poll    time.Duration
	now     func() time.Time

	mu      sync.Mutex
	last    map[string]time.Time
	expired map[string]time.Time
	subs    map[int]chan Event
	nextSub int
}

func NewWatcher(store ActivityStore, timeout, poll time.Duration) *Watcher {
	if poll <= 0 {
		poll = DefaultPoll
	}
	return &Watcher{
		store:   store,
		timeout: timeout,
		poll:    poll,
		now:     time.Now,
		last:    map[string]time.Time{},
		expired: map[string]time.Time{},
		subs:    map[int]chan Event{},
	}
}

// Touch records activity locally and in the shared store.
func (w *Watcher) Touch(ctx context.Context, sessionID string) error {
	at := w.now()
	w.Observe(sessionID, at)
	return w.store.Touch(ctx, sessionID, at)
}

// Observe merges activity seen elsewhere; older timestamps are ignored.
func (w *Watcher) Observe(sessionID string, at time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.expired, sessionID)
	if prev, ok := w.last[sessionID]; !ok || at.After(prev) {
		w.last[sessionID] = at
	}
}

// Expired reports whether the session was logged out for inactivity.
func (w *Watcher) Expired(sessionID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.expired[sessionID]
	return ok
}

// Subscribe returns a channel of logout events and a cancel func.
func (w *Watcher) Subscribe() (<-chan Event, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextSub
	w.nextSub++
	ch := make(chan Event, 16)
	w.subs[id] = ch
	return ch, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if c, ok := w.subs[id]; ok {
			delete(w.subs, id)
			close(c)
		}
	}
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	t := time.NewTicker(w.poll)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep re-reads every tracked session's last activity and expires the idle ones.
func (w *Watcher) Sweep(ctx context.Context) {
	w.mu.Lock()
	ids := make([]string, 0, len(w.last))
	for id := range w.last {
		ids = append(ids, id)
	}
	w.mu.Unlock()

	now := w.now()
	w.pruneExpired(now)
	for _, id := range ids {
		if at, ok, err := w.store.LastSeen(ctx, id); err != nil {
			log.Warn().Err(err).Str("session", id).Msg("read session activity")
		} else if ok {
			w.Observe(id, at)
		}

		w.mu.Lock()
		last, tracked := w.last[id]
		idle := tracked && now.Sub(last) > w.timeout
		if idle {
			delete(w.last, id)
			w.expired[id] = now
		}
		w.mu.Unlock()
		if !idle {
			continue
		}

		if err := w.store.Forget(ctx, id); err != nil {
			log.Warn().Err(err).Str("session", id).Msg("forget session activity")
		}
		observability.IdleLogouts.Inc()
		log.Info().Str("session", id).Time("last_seen", last).Msg("session idle; logging out")
		w.publish(Event{SessionID: id, LastSeen: last})
	}
}

func (w *Watcher) pruneExpired(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, at := range w.expired {
		if now.Sub(at) > ExpiredTTL {
			delete(w.expired, id)
		}
	}
}

func (w *Watcher) publish(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ch := range w.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
