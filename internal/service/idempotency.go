package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pawfam/backend/internal/domain"
	"github.com/pawfam/backend/internal/observability/metrics"
)

const pendingMarker = "pending"

// MaxIdempotencyKeyLen bounds client-supplied keys
const MaxIdempotencyKeyLen = 255

// Idempotency dedupes retried creates that carry the same Idempotency-Key.
// Without a store, or while the store is unavailable, creates run unguarded.
type Idempotency struct {
	kv     domain.KeyValueStore
	ttl    time.Duration
	logger *slog.Logger
}

// NewIdempotency creates the guard. kv may be nil.
func NewIdempotency(kv domain.KeyValueStore, ttl time.Duration, logger *slog.Logger) *Idempotency {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Idempotency{kv: kv, ttl: ttl, logger: logger}
}

func idemKey(resource, userID, key string) string {
	sum := sha256.Sum256([]byte(key))
	return "idem:" + resource + ":" + userID + ":" + hex.EncodeToString(sum[:])
}

// createOnce runs create at most once per (resource, user, key). A repeat
// returns the first result through load and reports replayed=true.
func createOnce[T any](
	ctx context.Context,
	i *Idempotency,
	resource string,
	actor domain.Actor,
	key string,
	load func(ctx context.Context, id string) (T, error),
	create func(ctx context.Context) (T, string, error),
) (out T, replayed bool, err error) {
	if key == "" || i == nil || i.kv == nil {
		out, _, err = create(ctx)
		return out, false, err
	}
	if len(key) > MaxIdempotencyKeyLen {
		return out, false, domain.FieldError("Idempotency-Key", fmt.Sprintf("must be at most %d characters", MaxIdempotencyKeyLen))
	}

	k := idemKey(resource, actor.UserID, key)
	claimed, err := i.kv.SetNX(ctx, k, pendingMarker, i.ttl)
	if err != nil {
		i.logger.Warn("idempotency store unavailable, creating without dedupe",
			slog.String("resource", resource),
			slog.String("error", err.Error()),
		)
		out, _, err = create(ctx)
		return out, false, err
	}

	if !claimed {
		id, err := i.kv.Get(ctx, k)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return out, false, fmt.Errorf("%w: idempotency key expired during replay, retry", domain.ErrConflict)
		case err != nil:
			return out, false, err
		case id == pendingMarker:
			return out, false, fmt.Errorf("%w: a request with this idempotency key is still in progress", domain.ErrConflict)
		}
		out, err = load(ctx, id)
		if err != nil {
			return out, false, err
		}
		metrics.ObserveIdempotentReplay(resource)
		return out, true, nil
	}

	out, id, err := create(ctx)
	if err != nil {
		if derr := i.kv.Delete(ctx, k); derr != nil {
			i.logger.Warn("failed to release idempotency key", slog.String("error", derr.Error()))
		}
		return out, false, err
	}
	if serr := i.kv.Set(ctx, k, id, i.ttl); serr != nil {
		i.logger.Warn("failed to record idempotency result",
			slog.String("resource", resource),
			slog.String("id", id),
			slog.String("error", serr.Error()),
		)
	}
	return out, false, nil
}
