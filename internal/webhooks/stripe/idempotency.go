package stripe

import (
	"context"
	"time"

	"github.com/offerhubhq/offerhub-backend/pkg/redis"
)

const idempotencyScope = "stripe_webhook"

// IdempotencyGuard drops webhook deliveries we have already processed.
// Providers retry deliveries until acknowledged, so replays are routine.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewIdempotencyGuard builds a guard with the given replay window.
func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration) *IdempotencyGuard {
	return &IdempotencyGuard{store: store, ttl: ttl}
}

// CheckAndMark marks the event id as seen. It reports true when the event was
// already marked, meaning this delivery is a replay.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if g == nil || g.store == nil || eventID == "" {
		return false, nil
	}
	set, err := g.store.SetNX(ctx, g.store.IdempotencyKey(idempotencyScope, eventID), "1", g.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Delete releases the mark so a failed delivery can be retried.
func (g *IdempotencyGuard) Delete(ctx context.Context, eventID string) error {
	if g == nil || g.store == nil || eventID == "" {
		return nil
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(idempotencyScope, eventID))
}
