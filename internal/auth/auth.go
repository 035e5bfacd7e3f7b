// Package auth is the programmatic API gatekeeper: it authenticates
// machine clients presenting long-lived API keys, enforces the per-minute
// and per-month budgets, and resolves the caller's identity. Every check
// is local and fails fast; no partial authentication state is ever
// returned.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BenTyson/qrforge-sub000/internal/model"
	"github.com/BenTyson/qrforge-sub000/internal/ratelimit"
	"github.com/BenTyson/qrforge-sub000/internal/store"
)

// ErrStoreUnavailable marks infrastructure failures on the system of
// record. Callers surface it as a retryable error; it never silently
// grants access.
var ErrStoreUnavailable = errors.New("record store unavailable")

// DenialReason classifies why authentication failed. Only Malformed,
// RateLimited, and QuotaExceeded are distinguishable on the wire; every
// other failure collapses to Unauthorized so callers cannot probe which
// keys exist, are revoked, or are tier-blocked.
type DenialReason int

const (
	DenialMalformedCredential DenialReason = iota + 1
	DenialRateLimited
	DenialQuotaExceeded
	DenialUnauthorized
)

// Denial is a structured authentication refusal. Detail is the private,
// server-side reason; it is logged but never sent to the caller.
type Denial struct {
	Reason     DenialReason
	Detail     string
	RateLimit  *ratelimit.Result // populated for rate-limit denials
	QuotaLimit int64             // populated for quota denials
}

// Service orchestrates the authentication pipeline: credential parsing,
// rate limiting, record validation, quota tracking, and the tier gate.
type Service struct {
	store   *store.Store
	limiter *ratelimit.Limiter
	quota   *Quota
	logger  *slog.Logger
	now     func() time.Time
}

// NewService wires the gatekeeper together.
func NewService(st *store.Store, limiter *ratelimit.Limiter, quota *Quota, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   st,
		limiter: limiter,
		quota:   quota,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock overrides the service's clock. Used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Quota exposes the underlying quota tracker so request handlers can call
// RecordUsage after their wrapped operation succeeds.
func (s *Service) Quota() *Quota {
	return s.quota
}

// Authenticate runs the request-time pipeline against an Authorization
// header and the transport-resolved client IP. Exactly one of the three
// results is meaningful: a resolved identity, a structured denial, or an
// error for record-store unavailability (retryable).
//
// The pipeline order is a policy choice (cheap checks first), not a
// correctness requirement; the rate-limit and quota budgets are
// independent.
func (s *Service) Authenticate(ctx context.Context, authorization, clientIP string) (*model.Identity, *Denial, error) {
	// 1. Parse the credential. Malformed headers short-circuit before any
	// store traffic.
	secret, ok := parseBearer(authorization)
	if !ok {
		return nil, &Denial{
			Reason: DenialMalformedCredential,
			Detail: "missing or malformed Authorization header",
		}, nil
	}
	keyHash := HashKey(secret)

	// 2. Rate limit on the key hash. This runs even for keys that do not
	// exist, so brute-force probing burns the prober's own window.
	rl := s.limiter.Check(ctx, keyHash)
	if !rl.Allowed {
		s.logger.Warn("request rate limited",
			"key_prefix", DisplayPrefix(secret), "client_ip", clientIP,
			"reset_at", rl.ResetAt)
		return nil, &Denial{
			Reason:    DenialRateLimited,
			Detail:    "per-minute rate limit exceeded",
			RateLimit: &rl,
		}, nil
	}

	// 3. Record lookup by hash.
	rec, err := s.store.GetAPIKeyByHash(ctx, keyHash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, s.unauthorized(clientIP, DisplayPrefix(secret), "key not found"), nil
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// 4. Revocation, then expiry. A revoked record never authenticates,
	// regardless of every other field.
	if rec.RevokedAt != nil {
		return nil, s.unauthorized(clientIP, rec.KeyPrefix, "key revoked"), nil
	}
	if rec.ExpiresAt != nil && rec.ExpiresAt.Before(s.now()) {
		return nil, s.unauthorized(clientIP, rec.KeyPrefix, "key expired"), nil
	}

	// 5. IP allow-list, only when the transport resolved a client address.
	if clientIP != "" && !rec.AllowsIP(clientIP) {
		return nil, s.unauthorized(clientIP, rec.KeyPrefix, "client ip not in allow-list"), nil
	}

	// 6. Monthly quota, including the cycle reset. The reset write is
	// housekeeping and may land even when a later step denies.
	status, err := s.quota.CheckAndMaybeReset(ctx, rec)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if status.Exceeded {
		s.logger.Warn("monthly quota exceeded",
			"key_prefix", rec.KeyPrefix, "client_ip", clientIP,
			"count", status.Count, "limit", status.Limit)
		return nil, &Denial{
			Reason:     DenialQuotaExceeded,
			Detail:     "monthly request quota exceeded",
			QuotaLimit: status.Limit,
		}, nil
	}

	// 7. Tier gate. The key may be perfectly valid; the programmatic API
	// is simply a top-tier product surface. Logged distinctly from the
	// security denials above.
	acct, err := s.store.GetAccountByID(ctx, rec.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, s.unauthorized(clientIP, rec.KeyPrefix, "owning account missing"), nil
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !acct.IsActive {
		return nil, s.unauthorized(clientIP, rec.KeyPrefix, "owning account inactive"), nil
	}
	if acct.Tier != model.TierBusiness {
		s.logger.Info("api access denied by tier policy",
			"key_prefix", rec.KeyPrefix, "account_id", acct.ID, "tier", acct.Tier)
		return nil, &Denial{
			Reason: DenialUnauthorized,
			Detail: fmt.Sprintf("tier %q may not use the programmatic API", acct.Tier),
		}, nil
	}

	// 8. Success. The identity is request-scoped and never persisted.
	return &model.Identity{
		AccountID: acct.ID,
		Tier:      acct.Tier,
		KeyHash:   keyHash,
	}, nil, nil
}

// IssueKey generates a new credential for an account, stores its hash and
// display prefix, and returns the raw secret. The secret cannot be
// recovered later.
func (s *Service) IssueKey(ctx context.Context, accountID int64, label string, expiresAt *time.Time) (string, *model.APIKey, error) {
	rawKey, err := GenerateKey()
	if err != nil {
		return "", nil, err
	}

	reset := NextMonthStart(s.now())
	key := &model.APIKey{
		AccountID:      accountID,
		KeyHash:        HashKey(rawKey),
		KeyPrefix:      DisplayPrefix(rawKey),
		Label:          label,
		MonthlyResetAt: &reset,
		ExpiresAt:      expiresAt,
	}
	if err := s.store.CreateAPIKey(ctx, key); err != nil {
		return "", nil, fmt.Errorf("store api key: %w", err)
	}
	return rawKey, key, nil
}

// unauthorized logs the full private reason and returns the generic
// denial. The ambiguity on the wire is intentional: callers cannot tell
// "not found" from "revoked", "expired", or "IP blocked".
func (s *Service) unauthorized(clientIP, keyPrefix, detail string) *Denial {
	s.logger.Warn("authentication denied",
		"key_prefix", keyPrefix, "client_ip", clientIP, "reason", detail)
	return &Denial{Reason: DenialUnauthorized, Detail: detail}
}

// parseBearer extracts the secret from a "Bearer <secret>" header.
func parseBearer(header string) (string, bool) {
	const scheme = "Bearer "
	if !strings.HasPrefix(header, scheme) {
		return "", false
	}
	secret := strings.TrimSpace(header[len(scheme):])
	if secret == "" {
		return "", false
	}
	return secret, true
}
