package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	keys   map[string]any
	ttls   map[string]time.Duration
	setErr error
}

func newMemStore() *memStore {
	return &memStore{keys: map[string]any{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.setErr != nil {
		return false, m.setErr
	}
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = value
	m.ttls[key] = ttl
	return true, nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

func (m *memStore) IdempotencyKey(scope, id string) string {
	return "hr:idempotency:" + scope + ":" + id
}

func TestClaimOnlyOnce(t *testing.T) {
	store := newMemStore()
	tracker, err := NewTracker(store, 24*time.Hour)
	require.NoError(t, err)
	tracker.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	id := uuid.New()
	first, err := tracker.Claim(context.Background(), "outbox-publisher", id)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := tracker.Claim(context.Background(), "outbox-publisher", id)
	require.NoError(t, err)
	assert.False(t, again)

	key := "hr:idempotency:evt:outbox-publisher:" + id.String()
	assert.Equal(t, "2026-03-01T09:00:00Z", store.keys[key])
	assert.Equal(t, 24*time.Hour, store.ttls[key])
}

func TestClaimsAreScopedByConsumer(t *testing.T) {
	tracker, err := NewTracker(newMemStore(), time.Hour)
	require.NoError(t, err)
	id := uuid.New()

	a, err := tracker.Claim(context.Background(), "publisher", id)
	require.NoError(t, err)
	b, err := tracker.Claim(context.Background(), "notifier", id)
	require.NoError(t, err)
	assert.True(t, a && b)
}

func TestReleaseAllowsReclaim(t *testing.T) {
	tracker, err := NewTracker(newMemStore(), time.Hour)
	require.NoError(t, err)
	id := uuid.New()
	ctx := context.Background()

	_, err = tracker.Claim(ctx, "outbox-publisher", id)
	require.NoError(t, err)
	require.NoError(t, tracker.Release(ctx, "outbox-publisher", id))

	again, err := tracker.Claim(ctx, "outbox-publisher", id)
	require.NoError(t, err)
	assert.True(t, again)
}

func TestClaimPropagatesStoreError(t *testing.T) {
	store := newMemStore()
	store.setErr = errors.New("connection refused")
	tracker, err := NewTracker(store, time.Hour)
	require.NoError(t, err)

	_, err = tracker.Claim(context.Background(), "outbox-publisher", uuid.New())
	assert.ErrorIs(t, err, store.setErr)
}

func TestArgumentValidation(t *testing.T) {
	_, err := NewTracker(nil, time.Hour)
	assert.Error(t, err)
	_, err = NewTracker(newMemStore(), -time.Second)
	assert.Error(t, err)

	tracker, err := NewTracker(newMemStore(), 0)
	require.NoError(t, err)
	_, err = tracker.Claim(context.Background(), "", uuid.New())
	assert.Error(t, err)
	assert.Error(t, tracker.Release(context.Background(), "outbox-publisher", uuid.Nil))
}
