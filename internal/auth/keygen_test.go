package auth

import (
	"regexp"
	"strings"
	"testing"
)

var keyRe = regexp.MustCompile(`^qrf_[0-9a-f]{64}$`)

func TestGenerateKeyFormat(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if !keyRe.MatchString(key) {
		t.Errorf("key %q does not match qrf_ + 64 hex chars", key)
	}
}

func TestGenerateKeyUnique(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		key, err := GenerateKey()
		if err != nil {
			t.Fatalf("GenerateKey: %v", err)
		}
		if seen[key] {
			t.Fatalf("duplicate key generated: %s", key)
		}
		seen[key] = true
	}
}

func TestHashKey(t *testing.T) {
	key := "qrf_" + strings.Repeat("ab", 32)

	h1 := HashKey(key)
	h2 := HashKey(key)
	if h1 != h2 {
		t.Error("hash is not deterministic")
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(h1))
	}
	if h1 == key {
		t.Error("hash must not equal the raw key")
	}

	other := HashKey("qrf_" + strings.Repeat("cd", 32))
	if h1 == other {
		t.Error("different keys hashed to the same value")
	}
}

func TestDisplayPrefix(t *testing.T) {
	key := "qrf_0123456789abcdef" + strings.Repeat("0", 48)
	got := DisplayPrefix(key)
	want := "qrf_0123"
	if got != want {
		t.Errorf("DisplayPrefix = %q, want %q", got, want)
	}
}
