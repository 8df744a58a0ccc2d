package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pawfam/backend/internal/domain"
	"github.com/pawfam/backend/internal/reliability/circuitbreaker"
)

// Store is a key-value store that can report its health
type Store interface {
	domain.KeyValueStore
	Ping(ctx context.Context) error
}

// Guarded puts a circuit breaker in front of a Store. While the circuit is
// open calls fail fast with domain.ErrUnavailable.
type Guarded struct {
	next    Store
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewGuarded wraps next with a breaker that opens after failureThreshold
// consecutive errors and retries after timeout.
func NewGuarded(next Store, failureThreshold int32, timeout time.Duration, logger *slog.Logger) *Guarded {
	if logger == nil {
		logger = slog.Default()
	}
	cb := circuitbreaker.NewCircuitBreaker(failureThreshold, 1, timeout)
	cb.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		logger.Warn("kv circuit breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})
	return &Guarded{next: next, breaker: cb, logger: logger}
}

// State exposes the breaker state for health reporting
func (g *Guarded) State() circuitbreaker.State {
	return g.breaker.GetState()
}

func (g *Guarded) call(fn func() error) error {
	if !g.breaker.AllowRequest() {
		return fmt.Errorf("%w: key-value store circuit open", domain.ErrUnavailable)
	}
	err := fn()
	// A missing key is a normal answer, not a dependency failure.
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		g.breaker.RecordFailure()
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	g.breaker.RecordSuccess()
	return err
}

func (g *Guarded) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	var ok bool
	err := g.call(func() (err error) {
		ok, err = g.next.SetNX(ctx, key, value, ttl)
		return err
	})
	return ok, err
}

func (g *Guarded) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return g.call(func() error { return g.next.Set(ctx, key, value, ttl) })
}

func (g *Guarded) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := g.call(func() (err error) {
		v, err = g.next.Get(ctx, key)
		return err
	})
	return v, err
}

func (g *Guarded) GetDel(ctx context.Context, key string) (string, error) {
	var v string
	err := g.call(func() (err error) {
		v, err = g.next.GetDel(ctx, key)
		return err
	})
	return v, err
}

func (g *Guarded) Delete(ctx context.Context, key string) error {
	return g.call(func() error { return g.next.Delete(ctx, key) })
}

// Ping bypasses the breaker so readiness reflects the real dependency
func (g *Guarded) Ping(ctx context.Context) error {
	return g.next.Ping(ctx)
}
