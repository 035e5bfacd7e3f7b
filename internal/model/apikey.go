package model

import (
	"encoding/json"
	"time"
)

// APIKey represents a long-lived credential for the programmatic API.
// The raw key is never stored; only a SHA-256 hash and a short prefix for
// identification are persisted.
type APIKey struct {
	ID                  int64      `json:"id" db:"id"`
	AccountID           int64      `json:"account_id" db:"account_id"`
	KeyHash             string     `json:"-" db:"key_hash"`             // SHA-256 hash, never expose
	KeyPrefix           string     `json:"key_prefix" db:"key_prefix"`  // First 8 chars for identification
	Label               string     `json:"label" db:"label"`
	IPWhitelist         string     `json:"-" db:"ip_whitelist"`         // JSON array; empty = unrestricted
	Permissions         string     `json:"permissions" db:"permissions"` // JSON capability set, opaque here
	RequestCount        int64      `json:"request_count" db:"request_count"`
	MonthlyRequestCount int64      `json:"monthly_request_count" db:"monthly_request_count"`
	MonthlyResetAt      *time.Time `json:"monthly_reset_at,omitempty" db:"monthly_reset_at"`
	ExpiresAt           *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	RevokedAt           *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	LastUsedAt          *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
}

// AllowedIPs decodes the stored IP allow-list. An empty or absent list
// means the key is unrestricted.
func (k *APIKey) AllowedIPs() []string {
	if k.IPWhitelist == "" || k.IPWhitelist == "[]" {
		return nil
	}
	var ips []string
	if err := json.Unmarshal([]byte(k.IPWhitelist), &ips); err != nil {
		return nil
	}
	return ips
}

// AllowsIP reports whether clientIP may use this key. An empty allow-list
// permits any address; a "*" entry is a wildcard.
func (k *APIKey) AllowsIP(clientIP string) bool {
	ips := k.AllowedIPs()
	if len(ips) == 0 {
		return true
	}
	for _, ip := range ips {
		if ip == "*" || ip == clientIP {
			return true
		}
	}
	return false
}

// Identity is the request-scoped caller identity produced by a fully
// successful authentication. It is never persisted.
type Identity struct {
	AccountID int64
	Tier      Tier
	KeyHash   string
}
