package redis

import (
	"context"
	"time"

	"github.com/pawfam/backend/internal/domain"
	"github.com/pawfam/backend/pkg/cache"
)

// MemoryStore is the in-process domain.KeyValueStore used when REDIS_URL is
// empty. State is lost on restart and not shared between replicas.
type MemoryStore struct {
	c *cache.Cache[string]
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: cache.New[string]()}
}

func (m *MemoryStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	return m.c.SetNX(key, value, ttl), nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.c.Set(key, value, ttl)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) GetDel(_ context.Context, key string) (string, error) {
	v, ok := m.c.Take(key)
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.c.Delete(key)
	return nil
}

// Ping always succeeds
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Sweep drops expired keys
func (m *MemoryStore) Sweep() int { return m.c.Sweep() }
