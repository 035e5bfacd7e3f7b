package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// PublicRateLimit limits unauthenticated endpoints (redirects, login) by
// source IP. The per-key limiter in internal/ratelimit covers the bearer
// pipeline; this is a coarse pre-auth guard only.
func PublicRateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.LimitByIP(requestsPerMinute, time.Minute)
}
