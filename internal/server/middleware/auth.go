package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/BenTyson/qrforge-sub000/internal/auth"
	"github.com/BenTyson/qrforge-sub000/internal/model"
)

type contextKeyAuth string

const (
	// IdentityKey is the context key for the authenticated caller identity.
	IdentityKey contextKeyAuth = "caller_identity"
	// SessionAccountKey is the context key for the management-session account ID.
	SessionAccountKey contextKeyAuth = "session_account"
)

// AuthenticateKey runs the API gatekeeper pipeline on every request and
// attaches the resolved identity to the context. Denials are mapped to the
// wire as follows: rate-limit and quota denials are 429s with
// machine-readable budget fields, a malformed header is a 401 telling the
// client the expected format, and every other failure is a generic 401 so
// callers cannot distinguish missing, revoked, expired, IP-blocked, or
// tier-blocked keys. Record-store failures are 503 and retryable.
func AuthenticateKey(authSvc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, denial, err := authSvc.Authenticate(r.Context(), r.Header.Get("Authorization"), clientIP(r))
			if err != nil {
				writeAuthError(w, http.StatusServiceUnavailable,
					"Service temporarily unavailable, retry shortly", nil)
				return
			}
			if denial != nil {
				writeDenial(w, denial)
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity extracts the authenticated caller identity from the context.
// Returns nil for unauthenticated requests.
func GetIdentity(ctx context.Context) *model.Identity {
	if id, ok := ctx.Value(IdentityKey).(*model.Identity); ok {
		return id
	}
	return nil
}

// RequireSession enforces a management-session JWT (Authorization: Bearer
// <token>) for the key/account management surface. It must not be chained
// with AuthenticateKey; the two surfaces use different credentials.
func RequireSession(sessions *auth.Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID, err := sessions.ValidateFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Invalid or expired session token", nil)
				return
			}
			ctx := context.WithValue(r.Context(), SessionAccountKey, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSessionAccount extracts the management-session account ID, or 0.
func GetSessionAccount(ctx context.Context) int64 {
	if id, ok := ctx.Value(SessionAccountKey).(int64); ok {
		return id
	}
	return 0
}

func writeDenial(w http.ResponseWriter, d *auth.Denial) {
	switch d.Reason {
	case auth.DenialMalformedCredential:
		writeAuthError(w, http.StatusUnauthorized,
			"Authentication required. Provide an Authorization: Bearer <api key> header.", nil)

	case auth.DenialRateLimited:
		rl := d.RateLimit
		retryAfter := int(time.Until(rl.ResetAt).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(rl.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(rl.ResetAt.Unix(), 10))
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		writeAuthError(w, http.StatusTooManyRequests, "Rate limit exceeded", map[string]any{
			"limit":     rl.Limit,
			"remaining": rl.Remaining,
			"reset_at":  rl.ResetAt.UTC().Format(time.RFC3339),
		})

	case auth.DenialQuotaExceeded:
		writeAuthError(w, http.StatusTooManyRequests, "Monthly request quota exceeded", map[string]any{
			"limit":     d.QuotaLimit,
			"remaining": 0,
		})

	default:
		// Deliberately uninformative; the real reason is in the server log.
		writeAuthError(w, http.StatusUnauthorized, "Invalid API key", nil)
	}
}

func writeAuthError(w http.ResponseWriter, status int, message string, ctx map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{
		Error: model.ErrorDetail{Code: status, Message: message, Context: ctx},
	})
}

// clientIP resolves the request's source address. chi's RealIP middleware
// has already folded X-Forwarded-For / X-Real-IP into RemoteAddr; this
// strips the port when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
