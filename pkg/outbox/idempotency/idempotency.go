// Package idempotency records which outbox events a consumer has already
// handled so at-least-once delivery does not become at-least-twice.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Store is the Redis subset a Tracker needs.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Tracker claims event IDs per consumer. A claim is a Redis key that lives
// for ttl; a zero ttl keeps it forever.
type Tracker struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewTracker(store Store, ttl time.Duration) (*Tracker, error) {
	if store == nil {
		return nil, errors.New("idempotency: store is required")
	}
	if ttl < 0 {
		return nil, errors.New("idempotency: ttl must not be negative")
	}
	return &Tracker{store: store, ttl: ttl, now: time.Now}, nil
}

// Claim marks eventID as handled by consumer. It returns false when some
// earlier call already claimed it.
func (t *Tracker) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := t.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	// the value is only for operators reading Redis
	return t.store.SetNX(ctx, key, t.now().UTC().Format(time.RFC3339), t.ttl)
}

// Release drops a claim so the event is handled again on the next pass.
func (t *Tracker) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := t.key(consumer, eventID)
	if err != nil {
		return err
	}
	return t.store.Del(ctx, key)
}

func (t *Tracker) key(consumer string, eventID uuid.UUID) (string, error) {
	switch {
	case consumer == "":
		return "", errors.New("idempotency: consumer is required")
	case eventID == uuid.Nil:
		return "", errors.New("idempotency: event id is required")
	}
	return t.store.IdempotencyKey("evt:"+consumer, eventID.String()), nil
}
