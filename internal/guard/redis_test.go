package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisGuard(t *testing.T, ttl time.Duration) (*RedisGuard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisGuard(client, ttl, nil), mr
}

func TestRedisGuardExclusive(t *testing.T) {
	g, mr := newRedisGuard(t, time.Minute)
	ctx := context.Background()

	release, err := g.Acquire(ctx, "s1:confirm_payment")
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if !mr.Exists("semillero:inflight:s1:confirm_payment") {
		t.Fatal("expected the prefixed key to be set")
	}
	if _, err := g.Acquire(ctx, "s1:confirm_payment"); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}
	other, err := g.Acquire(ctx, "s2:confirm_payment")
	if err != nil {
		t.Fatalf("other session should be free: %v", err)
	}
	other()

	release()
	if mr.Exists("semillero:inflight:s1:confirm_payment") {
		t.Fatal("release should delete the key")
	}
	again, err := g.Acquire(ctx, "s1:confirm_payment")
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	again()
}

func TestRedisGuardExpiredHolderCannotRelease(t *testing.T) {
	g, mr := newRedisGuard(t, time.Second)
	ctx := context.Background()

	stale, err := g.Acquire(ctx, "s1:submit_code")
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	mr.FastForward(2 * time.Second)

	current, err := g.Acquire(ctx, "s1:submit_code")
	if err != nil {
		t.Fatalf("acquire after expiry: %v", err)
	}
	stale()
	if _, err := g.Acquire(ctx, "s1:submit_code"); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expired holder must not free the new owner's key, got %v", err)
	}
	current()
}

func TestRedisGuardUnavailable(t *testing.T) {
	g, mr := newRedisGuard(t, time.Minute)
	mr.Close()

	_, err := g.Acquire(context.Background(), "s1:submit_enrollment")
	if err == nil || errors.Is(err, ErrInFlight) {
		t.Fatalf("expected a connection error, got %v", err)
	}
}
