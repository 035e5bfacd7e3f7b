package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

// errCounter always fails, standing in for an unreachable shared store.
type errCounter struct {
	calls int
}

func (e *errCounter) Incr(_ context.Context, _ string, _ time.Duration) (int64, time.Duration, error) {
	e.calls++
	return 0, 0, errors.New("connection refused")
}

func testClock(start time.Time) (func() time.Time, func(time.Duration)) {
	cur := start
	return func() time.Time { return cur }, func(d time.Duration) { cur = cur.Add(d) }
}

func TestMemoryCounterWindow(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now, advance := testClock(start)
	c := NewMemoryCounter(now)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		count, ttl, err := c.Incr(ctx, "k", time.Minute)
		if err != nil {
			t.Fatalf("Incr: %v", err)
		}
		if count != i {
			t.Errorf("count = %d, want %d", count, i)
		}
		if ttl <= 0 || ttl > time.Minute {
			t.Errorf("ttl = %v, want (0, 1m]", ttl)
		}
	}

	// A different key gets its own window.
	count, _, _ := c.Incr(ctx, "other", time.Minute)
	if count != 1 {
		t.Errorf("other key count = %d, want 1", count)
	}

	// Window elapses; count starts over.
	advance(61 * time.Second)
	count, _, _ = c.Incr(ctx, "k", time.Minute)
	if count != 1 {
		t.Errorf("count after window = %d, want 1", count)
	}
}

func TestLimiterFixedWindow(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now, advance := testClock(start)

	l := New(Config{Limit: 60, Window: time.Minute}, nil, NewMemoryCounter(now), slog.Default())
	l.SetClock(now)
	ctx := context.Background()

	var last Result
	for i := 0; i < 60; i++ {
		last = l.Check(ctx, "hash-a")
		if !last.Allowed {
			t.Fatalf("request %d denied, want allowed", i+1)
		}
	}
	if last.Remaining != 0 {
		t.Errorf("remaining after 60th = %d, want 0", last.Remaining)
	}

	// 61st in the same window is denied.
	r := l.Check(ctx, "hash-a")
	if r.Allowed {
		t.Fatal("61st request allowed, want denied")
	}
	if r.Remaining != 0 {
		t.Errorf("denied remaining = %d, want 0", r.Remaining)
	}
	if r.Limit != 60 {
		t.Errorf("limit = %d, want 60", r.Limit)
	}
	if !r.ResetAt.After(now()) {
		t.Errorf("ResetAt %v not after now %v", r.ResetAt, now())
	}

	// Other keys are unaffected.
	if r := l.Check(ctx, "hash-b"); !r.Allowed {
		t.Error("independent key denied")
	}

	// New window, counting starts over.
	advance(61 * time.Second)
	if r := l.Check(ctx, "hash-a"); !r.Allowed {
		t.Error("request in fresh window denied")
	}
}

func TestLimiterFallsBackWhenPrimaryFails(t *testing.T) {
	primary := &errCounter{}
	l := New(Config{Limit: 2, Window: time.Minute}, primary, NewMemoryCounter(nil), slog.Default())
	ctx := context.Background()

	// Primary errors must not deny traffic: the local counter takes over.
	if r := l.Check(ctx, "h"); !r.Allowed {
		t.Fatal("first request denied during primary outage")
	}
	if r := l.Check(ctx, "h"); !r.Allowed {
		t.Fatal("second request denied during primary outage")
	}
	if r := l.Check(ctx, "h"); r.Allowed {
		t.Fatal("third request allowed, fallback should still enforce the limit")
	}
	if primary.calls != 3 {
		t.Errorf("primary attempted %d times, want 3", primary.calls)
	}
}

func TestLimiterDefaults(t *testing.T) {
	l := New(Config{}, nil, NewMemoryCounter(nil), nil)
	if l.cfg.Limit != DefaultLimit {
		t.Errorf("limit = %d, want %d", l.cfg.Limit, DefaultLimit)
	}
	if l.cfg.Window != DefaultWindow {
		t.Errorf("window = %v, want %v", l.cfg.Window, DefaultWindow)
	}
	if l.cfg.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", l.cfg.Timeout, DefaultTimeout)
	}
}
