package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSession covers every session-token failure: bad signature,
// expiry, malformed header.
var ErrInvalidSession = errors.New("invalid session token")

// Sessions issues and validates the short-lived JWTs used by the key and
// account management surface. These are separate credentials from API
// keys; the machine pipeline never accepts them.
type Sessions struct {
	secret []byte
	ttl    time.Duration
}

// NewSessions creates a session manager with the given HMAC secret and
// token lifetime.
func NewSessions(secret string, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Sessions{secret: []byte(secret), ttl: ttl}
}

type sessionClaims struct {
	AccountID int64  `json:"account_id"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// Issue creates a signed session token for an account.
func (s *Sessions) Issue(accountID int64, email string) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		AccountID: accountID,
		Email:     email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    "qrforge",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Validate verifies a session token and returns the account ID.
func (s *Sessions) Validate(tokenStr string) (int64, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidSession
	}
	return claims.AccountID, nil
}

// ValidateFromHeader validates a "Bearer <token>" Authorization header.
func (s *Sessions) ValidateFromHeader(header string) (int64, error) {
	const scheme = "Bearer "
	if !strings.HasPrefix(header, scheme) {
		return 0, ErrInvalidSession
	}
	return s.Validate(strings.TrimSpace(header[len(scheme):]))
}
