package draft

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promo-wizard/internal/promo"
	"promo-wizard/internal/storage"
)

type failingRepo struct {
	loadErr, saveErr error
	saves            int
}

func (f *failingRepo) Load(context.Context, string, string) (promo.Draft, bool, error) {
	return promo.Draft{}, false, f.loadErr
}

func (f *failingRepo) Save(context.Context, string, string, promo.Draft) error {
	f.saves++
	return f.saveErr
}

func (f *failingRepo) Clear(context.Context, string, string) error { return nil }

func TestStore_UpdateMirrorsToRepository(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemory()

	s := Open(ctx, repo, "u1", "")
	assert.True(t, s.Draft().IsZero())

	s.Set(ctx, promo.Draft{Name: "Summer Sale"})
	got := s.Update(ctx, func(prev promo.Draft) promo.Draft {
		prev.Description = "10% off"
		return prev
	})
	assert.Equal(t, "Summer Sale", got.Name)
	assert.Equal(t, "10% off", got.Description)

	reopened := Open(ctx, repo, "u1", DefaultKey)
	assert.Equal(t, got, reopened.Draft())
}

func TestStore_CorruptStoredDraftFallsBackToEmpty(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemory()
	repo.PutRaw("u1", DefaultKey, []byte(`{"name": 42`))

	s := Open(ctx, repo, "u1", DefaultKey)
	assert.True(t, s.Draft().IsZero())
}

func TestStore_LoadErrorFallsBackToEmpty(t *testing.T) {
	s := Open(context.Background(), &failingRepo{loadErr: errors.New("boom")}, "u1", DefaultKey)
	assert.True(t, s.Draft().IsZero())
}

func TestStore_SaveErrorKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	repo := &failingRepo{saveErr: errors.New("disk full")}
	s := Open(ctx, repo, "u1", DefaultKey)

	s.Update(ctx, func(prev promo.Draft) promo.Draft {
		prev.Name = "Summer Sale"
		return prev
	})

	assert.Equal(t, 1, repo.saves)
	assert.Equal(t, "Summer Sale", s.Draft().Name)
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemory()
	s := Open(ctx, repo, "u1", DefaultKey)
	s.Set(ctx, promo.Draft{PromoID: "p-1"})

	s.Clear(ctx)
	assert.True(t, s.Draft().IsZero())

	_, found, err := repo.Load(ctx, "u1", DefaultKey)
	require.NoError(t, err)
	assert.False(t, found)
}
