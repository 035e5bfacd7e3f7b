package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/BenTyson/qrforge-sub000/internal/model"
	"github.com/BenTyson/qrforge-sub000/internal/store"
)

// MonthlyLimit is the hard ceiling of requests per calendar month per key,
// independent of the per-minute rate limiter.
const MonthlyLimit = 10000

// QuotaStatus reports a key's position against its monthly ceiling.
type QuotaStatus struct {
	Count    int64
	Limit    int64
	Exceeded bool
}

// Quota tracks per-key monthly usage against the hard ceiling, resetting
// the counter when the calendar-month cycle rolls over.
type Quota struct {
	store *store.Store
	now   func() time.Time
}

// NewQuota creates a quota tracker over the record store.
func NewQuota(st *store.Store) *Quota {
	return &Quota{store: st, now: time.Now}
}

// SetClock overrides the tracker's clock. Used by tests.
func (q *Quota) SetClock(now func() time.Time) {
	q.now = now
}

// CheckAndMaybeReset evaluates rec against the monthly ceiling. When the
// stored cycle boundary is absent or in the past the counter is treated as
// zero and the record is reset to the next boundary. Concurrent resets for
// one key are last-writer-wins: every writer computes the same boundary,
// so the only requirement — that a stale exceeded count never survives a
// boundary crossing — holds either way.
//
// Store failures surface as errors; there is no safe fallback for the
// system of record, so callers fail the request as retryable rather than
// granting unlimited access.
func (q *Quota) CheckAndMaybeReset(ctx context.Context, rec *model.APIKey) (QuotaStatus, error) {
	now := q.now()
	count := rec.MonthlyRequestCount

	if rec.MonthlyResetAt == nil || rec.MonthlyResetAt.Before(now) {
		reset := NextMonthStart(now)
		if err := q.store.ResetMonthlyUsage(ctx, rec.KeyHash, reset); err != nil {
			return QuotaStatus{}, fmt.Errorf("reset monthly quota: %w", err)
		}
		count = 0
		rec.MonthlyRequestCount = 0
		rec.MonthlyResetAt = &reset
	}

	return QuotaStatus{
		Count:    count,
		Limit:    MonthlyLimit,
		Exceeded: count >= MonthlyLimit,
	}, nil
}

// RecordUsage increments the lifetime and monthly counters and stamps the
// last-used time. Callers invoke it exactly once per successfully
// completed operation, never for denied attempts.
func (q *Quota) RecordUsage(ctx context.Context, keyHash string) error {
	if err := q.store.IncrementKeyUsage(ctx, keyHash); err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// NextMonthStart returns the first instant of the calendar month after t,
// in UTC.
func NextMonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}
