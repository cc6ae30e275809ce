// Package draft keeps the in-progress promo for one wizard session and
// mirrors every change to a Repository.
package draft

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"promo-wizard/internal/observability"
	"promo-wizard/internal/promo"
)

// DefaultKey is the storage key the draft lives under.
const DefaultKey = "promoDraft"

// Repository persists drafts per owner and key.
type Repository interface {
	// Load returns found=false when nothing is stored.
	Load(ctx context.Context, owner, key string) (d promo.Draft, found bool, err error)
	Save(ctx context.Context, owner, key string, d promo.Draft) error
	Clear(ctx context.Context, owner, key string) error
}

// Store is the state container for one owner's draft.
type Store struct {
	mu    sync.RWMutex
	repo  Repository
	owner string
	key   string
	cur   promo.Draft
}

// Open rehydrates the owner's draft. A missing or unreadable draft yields an
// empty one; read failures are logged, never returned.
func Open(ctx context.Context, repo Repository, owner, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	s := &Store{repo: repo, owner: owner, key: key}
	d, found, err := repo.Load(ctx, owner, key)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("owner", owner).Str("key", key).Msg("stored draft unreadable; starting empty")
	case found:
		s.cur = d
	}
	return s
}

func (s *Store) Owner() string { return s.owner }

// Draft returns the current value.
func (s *Store) Draft() promo.Draft {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Set replaces the draft.
func (s *Store) Set(ctx context.Context, d promo.Draft) {
	s.Update(ctx, func(promo.Draft) promo.Draft { return d })
}

// Update applies fn to the previous draft, keeps the result in memory and
// mirrors it to the repository. Persistence failures are logged and counted.
func (s *Store) Update(ctx context.Context, fn func(prev promo.Draft) promo.Draft) promo.Draft {
	s.mu.Lock()
	s.cur = fn(s.cur)
	next := s.cur
	s.mu.Unlock()

	if err := s.repo.Save(ctx, s.owner, s.key, next); err != nil {
		observability.DraftSaveErrors.Inc()
		log.Error().Err(err).Str("owner", s.owner).Str("key", s.key).Msg("persist draft")
	}
	return next
}

// Clear drops the draft from memory and from the repository.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.cur = promo.Draft{}
	s.mu.Unlock()

	if err := s.repo.Clear(ctx, s.owner, s.key); err != nil {
		log.Error().Err(err).Str("owner", s.owner).Str("key", s.key).Msg("clear draft")
	}
}
