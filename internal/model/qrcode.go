package model

import (
	"encoding/json"
	"time"
)

// QRCode is one stored QR code: a content kind, its structured payload,
// and a short code used by the public redirect endpoint.
type QRCode struct {
	ID        int64     `json:"id" db:"id"`
	AccountID int64     `json:"account_id" db:"account_id"`
	Name      string    `json:"name" db:"name"`
	Kind      string    `json:"kind" db:"kind"`
	Content   string    `json:"-" db:"content"` // JSON payload, validated against Kind
	ShortCode string    `json:"short_code" db:"short_code"`
	ScanCount int64     `json:"scan_count" db:"scan_count"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ContentMap decodes the stored content payload.
func (q *QRCode) ContentMap() (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(q.Content), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// MarshalJSON inlines the decoded content payload so API responses carry
// the structured object rather than a JSON string.
func (q *QRCode) MarshalJSON() ([]byte, error) {
	type alias QRCode
	content, err := q.ContentMap()
	if err != nil {
		content = map[string]any{}
	}
	return json.Marshal(struct {
		*alias
		Content map[string]any `json:"content"`
	}{(*alias)(q), content})
}
