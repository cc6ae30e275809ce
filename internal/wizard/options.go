package wizard

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"promo-wizard/internal/client"
	"promo-wizard/internal/lookup"
	"promo-wizard/internal/promo"
)

// Reference is the reference data the audience selectors read.
type Reference interface {
	Countries(ctx context.Context) ([]client.Place, error)
	Cities(ctx context.Context, countryID string) ([]client.Place, error)
	Agencies(ctx context.Context, countryID string, cityIDs []string) ([]client.Place, error)
}

// RowOptions are the selectable cities and agencies for one audience row.
type RowOptions struct {
	Cities   []promo.Option `json:"cities"`
	Agencies []promo.Option `json:"agencies"`
	Disabled bool           `json:"disabled"`
}

// Options refreshes per-row selector options. Within a row the lookups run
// in order (cities, then agencies); rows run independently. A refresh that
// was superseded by a newer one for the same row is discarded.
type Options struct {
	ref   Reference
	guard *lookup.Guard

	mu   sync.RWMutex
	rows map[string]RowOptions
}

func NewOptions(ref Reference) *Options {
	return &Options{ref: ref, guard: lookup.NewGuard(), rows: map[string]RowOptions{}}
}

// MaxAudienceRows caps the target audience rows of one promo.
const MaxAudienceRows = 50

func rowKey(owner string, row int) string { return fmt.Sprintf("%s/%d", owner, row) }

func ownerPrefix(owner string) string { return owner + "/" }

// Countries lists the country selector, with the all-countries entry first.
func (o *Options) Countries(ctx context.Context) ([]promo.Option, error) {
	places, err := o.ref.Countries(ctx)
	if err != nil {
		return nil, err
	}
	out := append([]promo.Option{{Value: promo.All, Label: "All countries"}}, toOptions(places)...)
	return out, nil
}

// Refresh loads options for row. fresh=false means a newer refresh for the
// same row was issued meanwhile; the returned options are then whatever that
// newer refresh stored.
func (o *Options) Refresh(ctx context.Context, owner string, row int, a promo.TargetAudience) (opts RowOptions, fresh bool, err error) {
	key := rowKey(owner, row)
	ctx, t := o.guard.Begin(ctx, key)
	defer o.guard.Done(t)

	next, err := o.fetch(ctx, a)
	if err != nil {
		if !o.guard.Current(t) {
			cur, _ := o.Get(owner, row)
			return cur, false, nil
		}
		return RowOptions{}, true, err
	}
	if !o.guard.Commit(t, func() { o.store(key, next) }) {
		cur, _ := o.Get(owner, row)
		return cur, false, nil
	}
	return next, true, nil
}

func (o *Options) fetch(ctx context.Context, a promo.TargetAudience) (RowOptions, error) {
	if a.Disabled() {
		return RowOptions{Disabled: true}, nil
	}
	if a.Country == nil || a.Country.Value == "" {
		return RowOptions{}, nil
	}
	cities, err := o.ref.Cities(ctx, a.Country.Value)
	if err != nil {
		return RowOptions{}, fmt.Errorf("load cities: %w", err)
	}
	agencies, err := o.ref.Agencies(ctx, a.Country.Value, a.Cities.Values())
	if err != nil {
		return RowOptions{}, fmt.Errorf("load agencies: %w", err)
	}
	return RowOptions{Cities: toOptions(cities), Agencies: toOptions(agencies)}, nil
}

func (o *Options) store(key string, r RowOptions) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rows[key] = r
}

// Get returns the last committed options for row.
func (o *Options) Get(owner string, row int) (RowOptions, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	r, ok := o.rows[rowKey(owner, row)]
	return r, ok
}

// Forget drops every row cached for owner and cancels its pending refreshes.
func (o *Options) Forget(owner string) {
	prefix := ownerPrefix(owner)
	o.guard.ForgetPrefix(prefix)

	o.mu.Lock()
	defer o.mu.Unlock()
	for key := range o.rows {
		if strings.HasPrefix(key, prefix) {
			delete(o.rows, key)
		}
	}
}

func toOptions(places []client.Place) []promo.Option {
	out := make([]promo.Option, 0, len(places))
	for _, p := range places {
		label := p.Name
		if label == "" {
			label = p.ID
		}
		out = append(out, promo.Option{Value: p.ID, Label: label})
	}
	return out
}

// Edit applies one selector change to an audience row with the cascading
// resets of the form: a new country clears cities and agencies, dropping a
// city clears agencies.
type Edit struct {
	Field    string          `json:"field"`
	Country  *promo.Option   `json:"country,omitempty"`
	Cities   promo.Selection `json:"cities"`
	Agencies promo.Selection `json:"agencies"`
}

func ApplyEdit(a promo.TargetAudience, e Edit) (promo.TargetAudience, error) {
	switch e.Field {
	case "country":
		return a.WithCountry(e.Country), nil
	case "cities":
		return a.WithCities(e.Cities), nil
	case "agencies":
		return a.WithAgencies(e.Agencies), nil
	default:
		return a, fmt.Errorf("unknown audience field %q", e.Field)
	}
}
