package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// KeyPrefix is the fixed literal tag prepended to every issued secret.
const KeyPrefix = "qrf_"

// displayPrefixLen is how much of the raw secret is stored for display and
// lookup assistance. It is not a security boundary.
const displayPrefixLen = 8

// GenerateKey returns a new raw API secret: the fixed prefix followed by
// 64 lowercase hex characters (256 bits of randomness). The raw secret is
// shown to the caller exactly once and never persisted.
func GenerateKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate random key: %w", err)
	}
	return KeyPrefix + hex.EncodeToString(buf), nil
}

// HashKey returns the SHA-256 hex digest of a raw secret. Only the hash is
// stored; lookups hash the presented secret and match on the digest.
func HashKey(rawKey string) string {
	h := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(h[:])
}

// DisplayPrefix returns the non-secret display prefix of a raw secret.
func DisplayPrefix(rawKey string) string {
	if len(rawKey) < displayPrefixLen {
		return rawKey
	}
	return rawKey[:displayPrefixLen]
}
