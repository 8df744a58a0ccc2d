package worker

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pawfam/backend/internal/infrastructure/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunOnceSweepsEveryTarget(t *testing.T) {
	kv := redis.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "short", "v", time.Millisecond))
	require.NoError(t, kv.Set(ctx, "long", "v", time.Hour))
	time.Sleep(5 * time.Millisecond)

	w := NewCleanupWorker(map[string]Sweeper{
		"kv":    kv,
		"users": SweeperFunc(func() int { return 2 }),
	}, slog.New(slog.DiscardHandler), time.Minute)

	removed := w.RunOnce()
	assert.Equal(t, map[string]int{"kv": 1, "users": 2}, removed)

	v, err := kv.Get(ctx, "long")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestStartStopsWithContext(t *testing.T) {
	var calls atomic.Int32
	w := NewCleanupWorker(map[string]Sweeper{
		"x": SweeperFunc(func() int { calls.Add(1); return 0 }),
	}, slog.New(slog.DiscardHandler), 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return calls.Load() > 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
