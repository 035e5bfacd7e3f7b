// Package ratelimit implements the fixed-window per-key request limiter.
// The primary counter lives in a shared Redis so horizontally scaled
// instances share one budget; when Redis is unreachable the limiter
// degrades to a per-process counter. Under fallback a key can receive up
// to limit × instance-count requests per window; availability is traded
// for accuracy deliberately.
package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// Default limits for the programmatic API.
const (
	DefaultLimit   = 60
	DefaultWindow  = 60 * time.Second
	DefaultTimeout = 500 * time.Millisecond
)

// Result is the outcome of one rate-limit check. Remaining and ResetAt are
// advisory, surfaced to callers for Retry-After style backoff.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Counter increments the windowed counter for a key and reports the new
// count and the time left in the current window. Implementations must be
// additive under concurrent callers.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

// Config tunes a Limiter.
type Config struct {
	Limit   int           // requests per window
	Window  time.Duration // window size
	Timeout time.Duration // per-call budget for the primary counter
}

// Limiter enforces a fixed window per key hash.
type Limiter struct {
	cfg      Config
	primary  Counter // shared store; may be nil
	fallback Counter // per-process counter, never fails
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Limiter. primary may be nil, in which case only the local
// fallback counter is used. The fallback must never be nil.
func New(cfg Config, primary, fallback Counter, logger *slog.Logger) *Limiter {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{
		cfg:      cfg,
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock overrides the limiter's clock. Used by tests.
func (l *Limiter) SetClock(now func() time.Time) {
	l.now = now
}

// Check increments the window counter for keyHash and reports whether the
// request is within budget. A timed-out or failed primary counter is a
// store failure, not a denial: the check is retried against the local
// fallback so the system stays available.
func (l *Limiter) Check(ctx context.Context, keyHash string) Result {
	key := "rl:key:" + keyHash

	if l.primary != nil {
		callCtx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
		count, ttl, err := l.primary.Incr(callCtx, key, l.cfg.Window)
		cancel()
		if err == nil {
			return l.result(count, ttl)
		}
		l.logger.Warn("rate limit counter store unavailable, using local fallback",
			"error", err)
	}

	count, ttl, err := l.fallback.Incr(ctx, key, l.cfg.Window)
	if err != nil {
		// The memory counter cannot fail; if a custom fallback does, let
		// the request through rather than failing closed on limiter state.
		l.logger.Error("rate limit fallback counter failed", "error", err)
		return Result{Allowed: true, Limit: l.cfg.Limit, Remaining: 0, ResetAt: l.now().Add(l.cfg.Window)}
	}
	return l.result(count, ttl)
}

func (l *Limiter) result(count int64, ttl time.Duration) Result {
	remaining := l.cfg.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count <= int64(l.cfg.Limit),
		Limit:     l.cfg.Limit,
		Remaining: remaining,
		ResetAt:   l.now().Add(ttl),
	}
}
