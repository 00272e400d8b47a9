package idempotency_test

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hrthis/hrthis-backend/pkg/outbox/idempotency"
)

type setStore map[string]bool

func (s setStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if s[key] {
		return false, nil
	}
	s[key] = true
	return true, nil
}

func (s setStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s, k)
	}
	return nil
}

func (s setStore) IdempotencyKey(scope, id string) string { return scope + ":" + id }

func ExampleTracker_Claim() {
	tracker, _ := idempotency.NewTracker(setStore{}, 30*24*time.Hour)
	id := uuid.MustParse("f47ac10b-58cc-4372-a567-0e02b2c3d479")

	for attempt := 1; attempt <= 2; attempt++ {
		first, _ := tracker.Claim(context.Background(), "outbox-publisher", id)
		fmt.Printf("attempt %d publish=%v\n", attempt, first)
	}
	// Output:
	// attempt 1 publish=true
	// attempt 2 publish=false
}
