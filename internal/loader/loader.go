// Package loader rehydrates a wizard draft from an existing promo.
package loader

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"promo-wizard/internal/cache"
	"promo-wizard/internal/client"
	"promo-wizard/internal/promo"
)

// lookupLimit caps concurrent label requests per load.
const lookupLimit = 8

// Source is the slice of the REST API the loader needs.
type Source interface {
	GetPromo(ctx context.Context, id string) (promo.Record, error)
	Country(ctx context.Context, id string) (client.Place, error)
	City(ctx context.Context, id string) (client.Place, error)
	Agency(ctx context.Context, id string) (client.Place, error)
}

// Result is what callers read: the draft, whether a load is running, and the
// last failure.
type Result struct {
	Data    *promo.Draft `json:"data"`
	Loading bool         `json:"loading"`
	Error   string       `json:"error,omitempty"`
}

type Loader struct {
	src    Source
	labels *cache.Labels

	mu    sync.Mutex
	state Result
}

func New(src Source, labels *cache.Labels) *Loader {
	if labels == nil {
		labels = cache.NewLabels()
	}
	return &Loader{src: src, labels: labels}
}

// State returns a copy of the current result.
func (l *Loader) State() Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loader) set(r Result) {
	l.mu.Lock()
	l.state = r
	l.mu.Unlock()
}

// Load fetches promo id and reshapes it into a draft. Failures end up in
// Result.Error; Load itself never returns an error or panics.
func (l *Loader) Load(ctx context.Context, id string) (res Result) {
	prev := l.State()
	l.set(Result{Data: prev.Data, Loading: true})

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("promo_id", id).Msg("promo load panicked")
			res = Result{Error: fmt.Sprintf("load promo %s: unexpected failure", id)}
		}
		l.set(res)
	}()

	rec, err := l.src.GetPromo(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("promo_id", id).Msg("load promo")
		return Result{Error: err.Error()}
	}
	names := l.resolve(ctx, rec.IDs())
	d := promo.FromRecord(rec, func(kind promo.LabelKind, id string) string {
		if v, ok := names[labelKey(kind, id)]; ok {
			return v
		}
		return id
	})
	return Result{Data: &d}
}

func labelKey(kind promo.LabelKind, id string) string { return string(kind) + ":" + id }

// resolve names every id, in parallel. A failed lookup leaves the id unnamed
// so the caller falls back to the raw id.
func (l *Loader) resolve(ctx context.Context, ids map[promo.LabelKind][]string) map[string]string {
	var (
		mu  sync.Mutex
		out = map[string]string{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupLimit)

	seen := map[string]struct{}{}
	for kind, list := range ids {
		for _, id := range list {
			key := labelKey(kind, id)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if v, ok := l.labels.Get(string(kind), id); ok {
				out[key] = v
				continue
			}
			kind, id := kind, id
			g.Go(func() error {
				name, err := l.lookup(gctx, kind, id)
				if err != nil || name == "" {
					log.Debug().Err(err).Str("kind", string(kind)).Str("id", id).Msg("label lookup failed; using id")
					return nil
				}
				l.labels.Put(string(kind), id, name)
				mu.Lock()
				out[key] = name
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()
	return out
}

func (l *Loader) lookup(ctx context.Context, kind promo.LabelKind, id string) (string, error) {
	var (
		p   client.Place
		err error
	)
	switch kind {
	case promo.LabelCountry:
		p, err = l.src.Country(ctx, id)
	case promo.LabelCity:
		p, err = l.src.City(ctx, id)
	case promo.LabelAgency:
		p, err = l.src.Agency(ctx, id)
	default:
		return "", fmt.Errorf("unknown label kind %q", kind)
	}
	return p.Name, err
}
