package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type mockCmdable struct {
	values map[string]string
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{values: map[string]string{}}
}

func (m *mockCmdable) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("PONG")
	return cmd
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	m.values[key] = toString(value)
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	value, ok := m.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(value)
	return cmd
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	if _, exists := m.values[key]; exists {
		cmd.SetVal(false)
		return cmd
	}
	m.values[key] = toString(value)
	cmd.SetVal(true)
	return cmd
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	var removed int64
	for _, key := range keys {
		if _, ok := m.values[key]; ok {
			delete(m.values, key)
			removed++
		}
	}
	cmd.SetVal(removed)
	return cmd
}

func toString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}

func TestSetNXClaimsOnce(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}

	ok, err := client.SetNX(ctx, "k", "first", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first claim should win: ok=%v err=%v", ok, err)
	}

	ok, err = client.SetNX(ctx, "k", "second", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("second claim must lose")
	}

	value, err := client.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if value != "first" {
		t.Fatalf("expected first value preserved, got %q", value)
	}
}

func TestDelThenGetReturnsNil(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}

	if err := client.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := client.Del(ctx, "k"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, err := client.Get(ctx, "k"); err != redis.Nil {
		t.Fatalf("expected redis.Nil, got %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.IdempotencyKey("invoices", "abc"); got != "ppf:idempotency:invoices:abc" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.IdempotencyKey("", "abc"); got != "ppf:idempotency:abc" {
		t.Fatalf("empty scope should collapse, got %s", got)
	}
}

func TestUninitializedClient(t *testing.T) {
	var client Client
	if err := client.Ping(context.Background()); err == nil {
		t.Fatalf("expected error from uninitialized client")
	}
}
