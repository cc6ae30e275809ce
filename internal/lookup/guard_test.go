package lookup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuard_LastIssuedWins(t *testing.T) {
	g := NewGuard()
	ctx := context.Background()

	firstCtx, first := g.Begin(ctx, "u1/row-0")
	_, second := g.Begin(ctx, "u1/row-0")

	assert.Error(t, firstCtx.Err(), "superseded request is cancelled")
	assert.False(t, g.Current(first))
	assert.True(t, g.Current(second))

	var applied []string
	assert.True(t, g.Commit(second, func() { applied = append(applied, "second") }))
	// the first response resolves last but must not overwrite
	assert.False(t, g.Commit(first, func() { applied = append(applied, "first") }))
	assert.Equal(t, []string{"second"}, applied)
}

func TestGuard_KeysAreIndependent(t *testing.T) {
	g := NewGuard()
	ctx := context.Background()

	rowCtx, row0 := g.Begin(ctx, "u1/row-0")
	_, row1 := g.Begin(ctx, "u1/row-1")

	assert.NoError(t, rowCtx.Err())
	assert.True(t, g.Current(row0))
	assert.True(t, g.Current(row1))

	g.Done(row0)
	assert.Error(t, rowCtx.Err())
	assert.True(t, g.Current(row0), "done does not retire the generation")
}

func TestGuard_ForgetPrefix(t *testing.T) {
	g := NewGuard()
	ctx := context.Background()

	oldCtx, old := g.Begin(ctx, "u1/0")
	_, _ = g.Begin(ctx, "u1/1")
	_, other := g.Begin(ctx, "u2/0")
	assert.Equal(t, 3, g.Len())

	g.ForgetPrefix("u1/")
	assert.Equal(t, 1, g.Len())
	assert.Error(t, oldCtx.Err(), "in-flight request of a forgotten key is cancelled")
	assert.True(t, g.Current(other))

	// a fresh ticket for the same key never collides with the forgotten one
	_, fresh := g.Begin(ctx, "u1/0")
	assert.False(t, g.Current(old))
	assert.False(t, g.Commit(old, func() { t.Fatal("stale commit applied") }))
	assert.True(t, g.Current(fresh))
}
