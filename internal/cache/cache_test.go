package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeCounter struct {
	counts  map[string]int64
	expires map[string]time.Duration
	err     error
}

func (f *fakeCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "incr", key)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.counts[key]++
	cmd.SetVal(f.counts[key])
	return cmd
}

func (f *fakeCounter) Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.expires[key] = ttl
	cmd := redis.NewBoolCmd(ctx, "expire", key)
	cmd.SetVal(true)
	return cmd
}

func TestIncrWithTTL_SetsExpiryOnce(t *testing.T) {
	f := &fakeCounter{counts: map[string]int64{}, expires: map[string]time.Duration{}}
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		n, err := IncrWithTTL(ctx, f, "rate:login:x", time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		if n != int64(i) {
			t.Fatalf("count = %d, want %d", n, i)
		}
	}
	if len(f.expires) != 1 || f.expires["rate:login:x"] != time.Hour {
		t.Fatalf("unexpected expires: %v", f.expires)
	}
}

func TestIncrWithTTL_PropagatesError(t *testing.T) {
	boom := errors.New("down")
	f := &fakeCounter{counts: map[string]int64{}, expires: map[string]time.Duration{}, err: boom}
	if _, err := IncrWithTTL(context.Background(), f, "k", time.Minute); !errors.Is(err, boom) {
		t.Fatalf("expected error, got %v", err)
	}
}

func TestKeys(t *testing.T) {
	if got := DocumentKey("abc"); got != "document:abc" {
		t.Fatalf("DocumentKey = %q", got)
	}
	if got := EventChannel(7); got != "document_events:7" {
		t.Fatalf("EventChannel = %q", got)
	}
}
