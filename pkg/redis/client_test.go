package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hrthis/hrthis-backend/pkg/config"
)

// memCommands keeps state in maps and understands the two Lua scripts the
// client sends.
type memCommands struct {
	data    map[string]string
	ttls    map[string]time.Duration
	counter map[string]int64
}

func newMem() *memCommands {
	return &memCommands{data: map[string]string{}, ttls: map[string]time.Duration{}, counter: map[string]int64{}}
}

func (m *memCommands) Ping(context.Context) *redis.StatusCmd { return redis.NewStatusResult("PONG", nil) }

func (m *memCommands) Get(_ context.Context, key string) *redis.StringCmd {
	if v, ok := m.data[key]; ok {
		return redis.NewStringResult(v, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (m *memCommands) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (m *memCommands) SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	if _, ok := m.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.Set(ctx, key, value, ttl)
	return redis.NewBoolResult(true, nil)
}

func (m *memCommands) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(m.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *memCommands) Eval(_ context.Context, script string, keys []string, args ...any) *redis.Cmd {
	if len(keys) != 1 || len(args) != 1 {
		return redis.NewCmdResult(nil, errors.New("unexpected arity"))
	}
	k := keys[0]
	switch script {
	case releaseIfOwner:
		if v, ok := m.data[k]; ok && v == fmt.Sprint(args[0]) {
			delete(m.data, k)
			return redis.NewCmdResult(int64(1), nil)
		}
		return redis.NewCmdResult(int64(0), nil)
	case windowHit:
		m.counter[k]++
		if m.counter[k] == 1 {
			m.ttls[k] = time.Duration(args[0].(int64)) * time.Millisecond
		}
		return redis.NewCmdResult(m.counter[k], nil)
	}
	return redis.NewCmdResult(nil, errors.New("unknown script"))
}

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	mem := newMem()
	c := &Client{cmd: mem}

	for i, want := range []bool{true, true, false} {
		allowed, n, err := c.FixedWindowAllow(ctx, "purchase:user-1", 2, 30*time.Second)
		if err != nil {
			t.Fatalf("hit %d: %v", i, err)
		}
		if allowed != want || n != int64(i+1) {
			t.Fatalf("hit %d: allowed=%v count=%d", i, allowed, n)
		}
	}
	if got := mem.ttls["hr:rate_limit:purchase:user-1"]; got != 30*time.Second {
		t.Fatalf("window ttl = %v", got)
	}
	if _, _, err := c.FixedWindowAllow(ctx, "x", 1, 0); err == nil {
		t.Fatal("expected error for empty window")
	}
}

func TestCompareAndDelete(t *testing.T) {
	ctx := context.Background()
	c := &Client{cmd: newMem()}
	key := c.LockKey("purchase", "user-1")

	if ok, err := c.SetNX(ctx, key, "owner-a", time.Second); err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}
	if ok, _ := c.SetNX(ctx, key, "owner-b", time.Second); ok {
		t.Fatal("second SetNX must fail while held")
	}
	if deleted, err := c.CompareAndDelete(ctx, key, "owner-b"); err != nil || deleted {
		t.Fatalf("foreign release: deleted=%v err=%v", deleted, err)
	}
	if deleted, err := c.CompareAndDelete(ctx, key, "owner-a"); err != nil || !deleted {
		t.Fatalf("own release: deleted=%v err=%v", deleted, err)
	}
	if _, err := c.Get(ctx, key); !errors.Is(err, Nil) {
		t.Fatalf("expected key gone, got %v", err)
	}
}

func TestKeys(t *testing.T) {
	c := &Client{}
	cases := map[string]string{
		c.IdempotencyKey("user|POST|/p", "k1"): "hr:idempotency:user|POST|/p:k1",
		c.RateLimitKey("purchase"):             "hr:rate_limit:purchase",
		c.LockKey("purchase", "u"):             "hr:lock:purchase:u",
		c.LockKey("cron", " "):                 "hr:lock:cron",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("got %q want %q", got, want)
		}
	}
}

func TestDisconnectedClient(t *testing.T) {
	c := &Client{}
	ctx := context.Background()
	if err := c.Ping(ctx); !errors.Is(err, errNotConnected) {
		t.Fatalf("ping: %v", err)
	}
	if _, err := c.SetNX(ctx, "k", "v", time.Second); !errors.Is(err, errNotConnected) {
		t.Fatalf("setnx: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestOptions(t *testing.T) {
	opts, err := options(config.RedisConfig{URL: "redis://:pw@cache:6380/3", PoolSize: 7, DB: 9, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Addr != "cache:6380" || opts.DB != 3 || opts.PoolSize != 7 || opts.DialTimeout != time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}

	opts, err = options(config.RedisConfig{Address: "localhost:6379", DB: 2})
	if err != nil || opts.Addr != "localhost:6379" || opts.DB != 2 {
		t.Fatalf("discrete options: %+v err=%v", opts, err)
	}

	if _, err := options(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}
}
