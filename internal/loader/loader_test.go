package loader

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promo-wizard/internal/cache"
	"promo-wizard/internal/client"
	"promo-wizard/internal/promo"
)

type fakeSource struct {
	rec       promo.Record
	err       error
	countries map[string]string
	agencies  map[string]string
	block     chan struct{}
	lookups   int32
}

func (f *fakeSource) GetPromo(ctx context.Context, _ string) (promo.Record, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return promo.Record{}, ctx.Err()
		}
	}
	return f.rec, f.err
}

func (f *fakeSource) place(m map[string]string, id string) (client.Place, error) {
	atomic.AddInt32(&f.lookups, 1)
	name, ok := m[id]
	if !ok {
		return client.Place{}, errors.New("lookup failed")
	}
	return client.Place{ID: id, Name: name}, nil
}

func (f *fakeSource) Country(_ context.Context, id string) (client.Place, error) {
	return f.place(f.countries, id)
}

func (f *fakeSource) City(_ context.Context, id string) (client.Place, error) {
	return f.place(nil, id)
}

func (f *fakeSource) Agency(_ context.Context, id string) (client.Place, error) {
	return f.place(f.agencies, id)
}

func strs(v ...string) *[]string { return &v }

func TestLoader_ResolvesLabelsWithFallback(t *testing.T) {
	src := &fakeSource{
		rec: promo.Record{
			ID:   "p-1",
			Type: promo.BusinessAirline,
			Name: "Summer Sale",
			TargetAudience: []promo.AudiencePayload{
				{CountryID: "KZ", CityIDs: strs("ALA"), AgencyIDs: strs("ag-1", "ag-2")},
				{CountryID: "XX"},
				{CountryID: "UZ", CityIDs: strs()},
			},
		},
		countries: map[string]string{"KZ": "Kazakhstan", "UZ": "Uzbekistan"},
		agencies:  map[string]string{"ag-1": "Sky Travel"},
	}

	res := New(src, nil).Load(context.Background(), "p-1")
	require.Empty(t, res.Error)
	require.NotNil(t, res.Data)
	assert.False(t, res.Loading)

	rows := res.Data.TargetAudiences
	require.Len(t, rows, 3)
	assert.Equal(t, "Kazakhstan", rows[0].Country.Label)
	assert.Equal(t, []promo.Option{{Value: "ALA", Label: "ALA"}}, rows[0].Cities.Options)
	assert.Equal(t, []promo.Option{
		{Value: "ag-1", Label: "Sky Travel"},
		{Value: "ag-2", Label: "ag-2"},
	}, rows[0].Agencies.Options)

	assert.Equal(t, "XX", rows[1].Country.Label, "failed lookup falls back to id")
	assert.True(t, rows[1].Cities.All, "omitted list means all")

	assert.False(t, rows[2].Cities.All)
	assert.Empty(t, rows[2].Cities.Options, "empty list means no selection")
	assert.True(t, rows[2].Agencies.All)
}

func TestLoader_UsesLabelCache(t *testing.T) {
	labels := cache.NewLabels()
	labels.Put(string(promo.LabelCountry), "KZ", "Kazakhstan")
	src := &fakeSource{rec: promo.Record{ID: "p-1", TargetAudience: []promo.AudiencePayload{{CountryID: "KZ"}}}}

	res := New(src, labels).Load(context.Background(), "p-1")
	require.NotNil(t, res.Data)
	assert.Equal(t, "Kazakhstan", res.Data.TargetAudiences[0].Country.Label)
	assert.Equal(t, int32(0), atomic.LoadInt32(&src.lookups))
}

func TestLoader_ErrorIsReported(t *testing.T) {
	src := &fakeSource{err: &client.APIError{Status: 404, Message: "Promo not found"}}
	l := New(src, nil)

	res := l.Load(context.Background(), "missing")
	assert.Nil(t, res.Data)
	assert.False(t, res.Loading)
	assert.Equal(t, "Promo not found", res.Error)
	assert.Equal(t, res, l.State())
}

func TestLoader_LoadingFlagWhileInFlight(t *testing.T) {
	src := &fakeSource{rec: promo.Record{ID: "p-1"}, block: make(chan struct{})}
	l := New(src, nil)

	done := make(chan Result)
	go func() { done <- l.Load(context.Background(), "p-1") }()

	require.Eventually(t, func() bool { return l.State().Loading }, time.Second, 5*time.Millisecond)
	close(src.block)

	res := <-done
	assert.False(t, res.Loading)
	assert.Equal(t, "p-1", res.Data.PromoID)
}
