package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/BenTyson/qrforge-sub000/internal/model"
)

// CreateAPIKey inserts a new API key record. The key_hash must already be
// set by the issuer. The ID and CreatedAt fields are populated after insert.
func (s *Store) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	key.CreatedAt = time.Now().UTC()
	if key.IPWhitelist == "" {
		key.IPWhitelist = "[]"
	}
	if key.Permissions == "" {
		key.Permissions = "[]"
	}

	const q = `INSERT INTO api_keys
		(account_id, key_hash, key_prefix, label, ip_whitelist, permissions,
		 request_count, monthly_request_count, monthly_reset_at, expires_at, created_at)
		VALUES
		(:account_id, :key_hash, :key_prefix, :label, :ip_whitelist, :permissions,
		 :request_count, :monthly_request_count, :monthly_reset_at, :expires_at, :created_at)`

	id, err := s.insertID(ctx, q, key)
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	key.ID = id
	return nil
}

// GetAPIKeyByHash looks up an API key by its SHA-256 hash.
func (s *Store) GetAPIKeyByHash(ctx context.Context, hash string) (*model.APIKey, error) {
	var key model.APIKey
	q := s.rebind("SELECT * FROM api_keys WHERE key_hash = ?")
	if err := s.db.GetContext(ctx, &key, q, hash); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get api key by hash: %w", err)
	}
	return &key, nil
}

// ListAPIKeys returns all API keys, newest first.
func (s *Store) ListAPIKeys(ctx context.Context) ([]model.APIKey, error) {
	var keys []model.APIKey
	if err := s.db.SelectContext(ctx, &keys, "SELECT * FROM api_keys ORDER BY created_at DESC"); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return keys, nil
}

// ListAPIKeysByAccount returns all API keys owned by an account.
func (s *Store) ListAPIKeysByAccount(ctx context.Context, accountID int64) ([]model.APIKey, error) {
	var keys []model.APIKey
	q := s.rebind("SELECT * FROM api_keys WHERE account_id = ? ORDER BY created_at DESC")
	if err := s.db.SelectContext(ctx, &keys, q, accountID); err != nil {
		return nil, fmt.Errorf("list api keys by account: %w", err)
	}
	return keys, nil
}

// RevokeAPIKeyByPrefix soft-deletes an API key by its display prefix.
// Revocation is permanent; records are never hard-deleted.
func (s *Store) RevokeAPIKeyByPrefix(ctx context.Context, prefix string) error {
	now := time.Now().UTC()
	q := s.rebind("UPDATE api_keys SET revoked_at = ? WHERE key_prefix = ? AND revoked_at IS NULL")
	result, err := s.db.ExecContext(ctx, q, now, prefix)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke api key rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementKeyUsage bumps the lifetime and monthly counters and stamps
// last_used_at in a single atomic statement. Concurrent callers on the
// same key never lose an increment.
func (s *Store) IncrementKeyUsage(ctx context.Context, keyHash string) error {
	now := time.Now().UTC()
	q := s.rebind(`UPDATE api_keys
		SET request_count = request_count + 1,
		    monthly_request_count = monthly_request_count + 1,
		    last_used_at = ?
		WHERE key_hash = ?`)
	result, err := s.db.ExecContext(ctx, q, now, keyHash)
	if err != nil {
		return fmt.Errorf("increment key usage: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment key usage rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetMonthlyUsage zeroes the monthly counter and advances the cycle
// boundary. Concurrent resets for the same key are last-writer-wins; all
// writers compute the same boundary so the outcome is identical.
func (s *Store) ResetMonthlyUsage(ctx context.Context, keyHash string, resetAt time.Time) error {
	q := s.rebind("UPDATE api_keys SET monthly_request_count = 0, monthly_reset_at = ? WHERE key_hash = ?")
	if _, err := s.db.ExecContext(ctx, q, resetAt.UTC(), keyHash); err != nil {
		return fmt.Errorf("reset monthly usage: %w", err)
	}
	return nil
}

// UpdateAPIKeyWhitelist replaces the stored IP allow-list. Owned by the
// management surface, not the request-time pipeline.
func (s *Store) UpdateAPIKeyWhitelist(ctx context.Context, keyHash string, whitelistJSON string) error {
	q := s.rebind("UPDATE api_keys SET ip_whitelist = ? WHERE key_hash = ?")
	result, err := s.db.ExecContext(ctx, q, whitelistJSON, keyHash)
	if err != nil {
		return fmt.Errorf("update api key whitelist: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update api key whitelist rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
