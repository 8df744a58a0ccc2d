package redis

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/pawfam/backend/internal/domain"
	"github.com/pawfam/backend/internal/reliability/circuitbreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore fails every call while down is set
type flakyStore struct {
	*MemoryStore
	down  bool
	calls int
}

func (f *flakyStore) Get(ctx context.Context, key string) (string, error) {
	f.calls++
	if f.down {
		return "", errors.New("connection refused")
	}
	return f.MemoryStore.Get(ctx, key)
}

func TestGuardedOpensAfterFailures(t *testing.T) {
	store := &flakyStore{MemoryStore: NewMemoryStore(), down: true}
	g := NewGuarded(store, 2, time.Hour, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	for range 2 {
		_, err := g.Get(ctx, "k")
		require.ErrorIs(t, err, domain.ErrUnavailable)
	}
	assert.Equal(t, circuitbreaker.StateOpen, g.State())

	_, err := g.Get(ctx, "k")
	require.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Equal(t, 2, store.calls, "open circuit must not reach the store")
}

func TestGuardedMissingKeyIsNotAFailure(t *testing.T) {
	g := NewGuarded(NewMemoryStore(), 1, time.Hour, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	_, err := g.Get(ctx, "absent")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, circuitbreaker.StateClosed, g.State())

	require.NoError(t, g.Set(ctx, "k", "v", time.Minute))
	v, err := g.GetDel(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
	_, err = g.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGuardedRecoversAfterTimeout(t *testing.T) {
	store := &flakyStore{MemoryStore: NewMemoryStore(), down: true}
	g := NewGuarded(store, 1, 10*time.Millisecond, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	_, _ = g.Get(ctx, "k")
	require.Equal(t, circuitbreaker.StateOpen, g.State())

	store.down = false
	time.Sleep(20 * time.Millisecond)
	_, err := g.Get(ctx, "k")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, circuitbreaker.StateClosed, g.State())
}
