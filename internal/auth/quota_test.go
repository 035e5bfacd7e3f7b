package auth

import (
	"context"
	"testing"
	"time"

	"github.com/BenTyson/qrforge-sub000/internal/model"
	"github.com/BenTyson/qrforge-sub000/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(store.Config{}) // in-memory
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedAccount(t *testing.T, st *store.Store, tier model.Tier) *model.Account {
	t.Helper()
	acct := &model.Account{
		Email:        string(tier) + "@example.com",
		PasswordHash: "x",
		Tier:         tier,
		IsActive:     true,
	}
	if err := st.CreateAccount(context.Background(), acct); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return acct
}

func seedKey(t *testing.T, st *store.Store, accountID int64, resetAt *time.Time, monthlyCount int64) (*model.APIKey, string) {
	t.Helper()
	raw, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	key := &model.APIKey{
		AccountID:           accountID,
		KeyHash:             HashKey(raw),
		KeyPrefix:           DisplayPrefix(raw),
		MonthlyRequestCount: monthlyCount,
		MonthlyResetAt:      resetAt,
	}
	if err := st.CreateAPIKey(context.Background(), key); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	return key, raw
}

func TestQuotaUnderLimit(t *testing.T) {
	st := newTestStore(t)
	acct := seedAccount(t, st, model.TierBusiness)
	future := time.Now().Add(24 * time.Hour)
	key, _ := seedKey(t, st, acct.ID, &future, 9999)

	q := NewQuota(st)
	status, err := q.CheckAndMaybeReset(context.Background(), key)
	if err != nil {
		t.Fatalf("CheckAndMaybeReset: %v", err)
	}
	if status.Exceeded {
		t.Error("9999 of 10000 reported as exceeded")
	}
	if status.Count != 9999 {
		t.Errorf("count = %d, want 9999", status.Count)
	}
	if status.Limit != MonthlyLimit {
		t.Errorf("limit = %d, want %d", status.Limit, MonthlyLimit)
	}
}

func TestQuotaAtLimit(t *testing.T) {
	st := newTestStore(t)
	acct := seedAccount(t, st, model.TierBusiness)
	future := time.Now().Add(24 * time.Hour)
	key, _ := seedKey(t, st, acct.ID, &future, MonthlyLimit)

	q := NewQuota(st)
	status, err := q.CheckAndMaybeReset(context.Background(), key)
	if err != nil {
		t.Fatalf("CheckAndMaybeReset: %v", err)
	}
	if !status.Exceeded {
		t.Error("count at the ceiling must be exceeded")
	}
}

func TestQuotaResetsAfterBoundary(t *testing.T) {
	st := newTestStore(t)
	acct := seedAccount(t, st, model.TierBusiness)
	past := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	key, _ := seedKey(t, st, acct.ID, &past, MonthlyLimit+500)

	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	q := NewQuota(st)
	q.SetClock(func() time.Time { return now })

	status, err := q.CheckAndMaybeReset(context.Background(), key)
	if err != nil {
		t.Fatalf("CheckAndMaybeReset: %v", err)
	}
	if status.Exceeded {
		t.Error("stale exceeded count survived the boundary crossing")
	}
	if status.Count != 0 {
		t.Errorf("count after reset = %d, want 0", status.Count)
	}

	// The record in memory and the stored row both carry the new cycle.
	wantBoundary := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	if key.MonthlyResetAt == nil || !key.MonthlyResetAt.Equal(wantBoundary) {
		t.Errorf("in-memory boundary = %v, want %v", key.MonthlyResetAt, wantBoundary)
	}
	stored, err := st.GetAPIKeyByHash(context.Background(), key.KeyHash)
	if err != nil {
		t.Fatalf("GetAPIKeyByHash: %v", err)
	}
	if stored.MonthlyRequestCount != 0 {
		t.Errorf("stored monthly count = %d, want 0", stored.MonthlyRequestCount)
	}
}

func TestQuotaMissingBoundaryTreatedAsElapsed(t *testing.T) {
	st := newTestStore(t)
	acct := seedAccount(t, st, model.TierBusiness)
	key, _ := seedKey(t, st, acct.ID, nil, 42)

	q := NewQuota(st)
	status, err := q.CheckAndMaybeReset(context.Background(), key)
	if err != nil {
		t.Fatalf("CheckAndMaybeReset: %v", err)
	}
	if status.Count != 0 {
		t.Errorf("count = %d, want 0 after implicit reset", status.Count)
	}
	if key.MonthlyResetAt == nil {
		t.Error("boundary not set after implicit reset")
	}
}

func TestRecordUsage(t *testing.T) {
	st := newTestStore(t)
	acct := seedAccount(t, st, model.TierBusiness)
	future := time.Now().Add(24 * time.Hour)
	key, _ := seedKey(t, st, acct.ID, &future, 0)

	q := NewQuota(st)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := q.RecordUsage(ctx, key.KeyHash); err != nil {
			t.Fatalf("RecordUsage: %v", err)
		}
	}

	stored, err := st.GetAPIKeyByHash(ctx, key.KeyHash)
	if err != nil {
		t.Fatalf("GetAPIKeyByHash: %v", err)
	}
	if stored.MonthlyRequestCount != 3 {
		t.Errorf("monthly count = %d, want 3", stored.MonthlyRequestCount)
	}
	if stored.RequestCount != 3 {
		t.Errorf("lifetime count = %d, want 3", stored.RequestCount)
	}
	if stored.LastUsedAt == nil {
		t.Error("last_used_at not stamped")
	}
}

func TestNextMonthStart(t *testing.T) {
	tests := []struct {
		in   time.Time
		want time.Time
	}{
		{time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC), time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC), time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		if got := NextMonthStart(tt.in); !got.Equal(tt.want) {
			t.Errorf("NextMonthStart(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
