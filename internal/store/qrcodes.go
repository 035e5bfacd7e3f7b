package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/BenTyson/qrforge-sub000/internal/model"
)

// CreateQRCode inserts a new QR code record. Content must be validated
// against the kind before it reaches the store.
func (s *Store) CreateQRCode(ctx context.Context, qr *model.QRCode) error {
	now := time.Now().UTC()
	qr.CreatedAt = now
	qr.UpdatedAt = now

	const q = `INSERT INTO qr_codes
		(account_id, name, kind, content, short_code, created_at, updated_at)
		VALUES
		(:account_id, :name, :kind, :content, :short_code, :created_at, :updated_at)`

	id, err := s.insertID(ctx, q, qr)
	if err != nil {
		return fmt.Errorf("insert qr code: %w", err)
	}
	qr.ID = id
	return nil
}

// GetQRCode looks up a QR code by ID, scoped to its owning account.
func (s *Store) GetQRCode(ctx context.Context, accountID, id int64) (*model.QRCode, error) {
	var qr model.QRCode
	q := s.rebind("SELECT * FROM qr_codes WHERE id = ? AND account_id = ?")
	if err := s.db.GetContext(ctx, &qr, q, id, accountID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get qr code: %w", err)
	}
	return &qr, nil
}

// GetQRCodeByShortCode looks up a QR code by its public short code.
func (s *Store) GetQRCodeByShortCode(ctx context.Context, shortCode string) (*model.QRCode, error) {
	var qr model.QRCode
	q := s.rebind("SELECT * FROM qr_codes WHERE short_code = ?")
	if err := s.db.GetContext(ctx, &qr, q, shortCode); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get qr code by short code: %w", err)
	}
	return &qr, nil
}

// ListQRCodes returns an account's QR codes, newest first.
func (s *Store) ListQRCodes(ctx context.Context, accountID int64, limit, offset int) ([]model.QRCode, error) {
	var codes []model.QRCode
	q := s.rebind("SELECT * FROM qr_codes WHERE account_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?")
	if err := s.db.SelectContext(ctx, &codes, q, accountID, limit, offset); err != nil {
		return nil, fmt.Errorf("list qr codes: %w", err)
	}
	return codes, nil
}

// UpdateQRCodeContent replaces a QR code's name, kind and content.
func (s *Store) UpdateQRCodeContent(ctx context.Context, accountID, id int64, name, kind, content string) error {
	q := s.rebind(`UPDATE qr_codes SET name = ?, kind = ?, content = ?, updated_at = ?
		WHERE id = ? AND account_id = ?`)
	result, err := s.db.ExecContext(ctx, q, name, kind, content, time.Now().UTC(), id, accountID)
	if err != nil {
		return fmt.Errorf("update qr code: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update qr code rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteQRCode removes a QR code, scoped to its owning account.
func (s *Store) DeleteQRCode(ctx context.Context, accountID, id int64) error {
	q := s.rebind("DELETE FROM qr_codes WHERE id = ? AND account_id = ?")
	result, err := s.db.ExecContext(ctx, q, id, accountID)
	if err != nil {
		return fmt.Errorf("delete qr code: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete qr code rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementScanCount bumps a QR code's scan counter atomically.
func (s *Store) IncrementScanCount(ctx context.Context, shortCode string) error {
	q := s.rebind("UPDATE qr_codes SET scan_count = scan_count + 1 WHERE short_code = ?")
	if _, err := s.db.ExecContext(ctx, q, shortCode); err != nil {
		return fmt.Errorf("increment scan count: %w", err)
	}
	return nil
}
