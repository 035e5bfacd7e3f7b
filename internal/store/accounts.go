package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/BenTyson/qrforge-sub000/internal/model"
)

// CreateAccount inserts a new account. The password_hash must already be a
// bcrypt hash. The ID and timestamps are populated after insert.
func (s *Store) CreateAccount(ctx context.Context, acct *model.Account) error {
	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	if acct.Tier == "" {
		acct.Tier = model.TierFree
	}

	const q = `INSERT INTO accounts
		(email, password_hash, name, tier, is_active, created_at, updated_at)
		VALUES
		(:email, :password_hash, :name, :tier, :is_active, :created_at, :updated_at)`

	id, err := s.insertID(ctx, q, acct)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	acct.ID = id
	return nil
}

// GetAccountByID looks up an account by its primary key.
func (s *Store) GetAccountByID(ctx context.Context, id int64) (*model.Account, error) {
	var acct model.Account
	q := s.rebind("SELECT * FROM accounts WHERE id = ?")
	if err := s.db.GetContext(ctx, &acct, q, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &acct, nil
}

// GetAccountByEmail looks up an account by email address.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	var acct model.Account
	q := s.rebind("SELECT * FROM accounts WHERE email = ?")
	if err := s.db.GetContext(ctx, &acct, q, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	return &acct, nil
}

// ListAccounts returns all accounts, newest first.
func (s *Store) ListAccounts(ctx context.Context) ([]model.Account, error) {
	var accts []model.Account
	if err := s.db.SelectContext(ctx, &accts, "SELECT * FROM accounts ORDER BY created_at DESC"); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accts, nil
}

// UpdateAccountLastLogin stamps last_login_at for an account.
func (s *Store) UpdateAccountLastLogin(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	q := s.rebind("UPDATE accounts SET last_login_at = ? WHERE id = ?")
	if _, err := s.db.ExecContext(ctx, q, now, id); err != nil {
		return fmt.Errorf("update account last login: %w", err)
	}
	return nil
}

// SetAccountActive enables or disables an account. Disabled accounts fail
// both console login and API key authentication.
func (s *Store) SetAccountActive(ctx context.Context, id int64, active bool) error {
	q := s.rebind("UPDATE accounts SET is_active = ?, updated_at = ? WHERE id = ?")
	result, err := s.db.ExecContext(ctx, q, active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set account active: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set account active rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateAccountTier changes an account's subscription tier. Owned by the
// out-of-scope billing surface; exposed here for the management CLI.
func (s *Store) UpdateAccountTier(ctx context.Context, id int64, tier model.Tier) error {
	q := s.rebind("UPDATE accounts SET tier = ?, updated_at = ? WHERE id = ?")
	result, err := s.db.ExecContext(ctx, q, tier, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update account tier: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account tier rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
