package api

import "sync"

// ownerLocks serializes the draft mutations of one owner. Each request opens
// its own draft.Store, so two concurrent submits would otherwise both read
// the same draft and the later save would drop the earlier one's changes.
// Entries are dropped once no request holds them.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[string]*ownerLock
}

type ownerLock struct {
	sync.Mutex
	refs int
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{locks: map[string]*ownerLock{}}
}

// lock blocks until owner's lock is held and returns its release func.
func (l *ownerLocks) lock(owner string) func() {
	l.mu.Lock()
	ol, ok := l.locks[owner]
	if !ok {
		ol = &ownerLock{}
		l.locks[owner] = ol
	}
	ol.refs++
	l.mu.Unlock()

	ol.Lock()
	return func() {
		ol.Unlock()
		l.mu.Lock()
		defer l.mu.Unlock()
		ol.refs--
		if ol.refs == 0 {
			delete(l.locks, owner)
		}
	}
}

func (l *ownerLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
