package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/BenTyson/qrforge-sub000/internal/auth"
	"github.com/BenTyson/qrforge-sub000/internal/model"
	"github.com/BenTyson/qrforge-sub000/internal/server/middleware"
	"github.com/BenTyson/qrforge-sub000/internal/store"
)

// SystemHandler serves the management surface: account login and API key
// lifecycle. It authenticates with session JWTs, never with API keys.
type SystemHandler struct {
	store    *store.Store
	auth     *auth.Service
	sessions *auth.Sessions
	logger   *slog.Logger
}

// NewSystemHandler creates a SystemHandler.
func NewSystemHandler(st *store.Store, authSvc *auth.Service, sessions *auth.Sessions, logger *slog.Logger) *SystemHandler {
	return &SystemHandler{store: st, auth: authSvc, sessions: sessions, logger: logger}
}

// Login handles POST /api/v1/system/session.
func (h *SystemHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	acct, err := h.store.GetAccountByEmail(r.Context(), req.Email)
	if err != nil {
		// Same response whether the account is missing or the password is
		// wrong.
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !acct.IsActive {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.sessions.Issue(acct.ID, acct.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	if err := h.store.UpdateAccountLastLogin(r.Context(), acct.ID); err != nil {
		h.logger.Warn("failed to stamp last login", "account_id", acct.ID, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":   token,
		"account": acct,
	})
}

// CreateAPIKey handles POST /api/v1/system/api-key. The raw secret is
// returned exactly once; only its hash is stored.
func (h *SystemHandler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetSessionAccount(r.Context())

	var req struct {
		Label     string     `json:"label"`
		ExpiresAt *time.Time `json:"expires_at,omitempty"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	rawKey, key, err := h.auth.IssueKey(r.Context(), accountID, req.Label, req.ExpiresAt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create API key")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"key":     rawKey, // shown once, cannot be retrieved again
		"api_key": key,
	})
}

// ListAPIKeys handles GET /api/v1/system/api-key, scoped to the session
// account. Raw secrets are never included.
func (h *SystemHandler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetSessionAccount(r.Context())

	keys, err := h.store.ListAPIKeysByAccount(r.Context(), accountID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list API keys")
		return
	}

	resource := make([]any, len(keys))
	for i := range keys {
		resource[i] = &keys[i]
	}
	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: resource,
		Meta:     &model.ResponseMeta{Count: len(keys)},
	})
}

// RevokeAPIKey handles DELETE /api/v1/system/api-key/{prefix}. Revocation
// is a soft delete and cannot be undone.
func (h *SystemHandler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetSessionAccount(r.Context())
	prefix := chi.URLParam(r, "prefix")

	key, ok := h.findOwnedKey(w, r, accountID, prefix)
	if !ok {
		return
	}

	if err := h.store.RevokeAPIKeyByPrefix(r.Context(), key.KeyPrefix); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "API key not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to revoke API key")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateAPIKeyWhitelist handles PUT /api/v1/system/api-key/{prefix}/whitelist.
func (h *SystemHandler) UpdateAPIKeyWhitelist(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetSessionAccount(r.Context())
	prefix := chi.URLParam(r, "prefix")

	var req struct {
		IPs []string `json:"ips"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	key, ok := h.findOwnedKey(w, r, accountID, prefix)
	if !ok {
		return
	}

	whitelist := "[]"
	if len(req.IPs) > 0 {
		b, err := json.Marshal(req.IPs)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid IP list")
			return
		}
		whitelist = string(b)
	}

	if err := h.store.UpdateAPIKeyWhitelist(r.Context(), key.KeyHash, whitelist); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update allow-list")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// findOwnedKey resolves a key prefix within the session account, writing
// the error response itself when the key is missing.
func (h *SystemHandler) findOwnedKey(w http.ResponseWriter, r *http.Request, accountID int64, prefix string) (*model.APIKey, bool) {
	keys, err := h.store.ListAPIKeysByAccount(r.Context(), accountID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load API keys")
		return nil, false
	}
	for i := range keys {
		if keys[i].KeyPrefix == prefix {
			return &keys[i], true
		}
	}
	writeError(w, http.StatusNotFound, "API key not found")
	return nil, false
}
