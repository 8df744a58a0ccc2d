package database

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "pawfam", cfg.Database)
	assert.Equal(t, uint64(25), cfg.MaxPoolSize)
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 5*time.Minute, cfg.MaxConnIdleTime)
}

func TestMalformedURIFailsWithoutRetry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URI = "postgres://localhost:5432"

	start := time.Now()
	_, err := NewConnectionPool(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
