package handler

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/BenTyson/qrforge-sub000/internal/auth"
	"github.com/BenTyson/qrforge-sub000/internal/model"
	"github.com/BenTyson/qrforge-sub000/internal/server/middleware"
	"github.com/BenTyson/qrforge-sub000/internal/store"
	"github.com/BenTyson/qrforge-sub000/internal/validate"
)

// QRHandler serves the authenticated QR code CRUD surface and the public
// redirect endpoint. Every successful mutating or reading operation on the
// authenticated surface records usage against the caller's key exactly
// once, after the operation has completed.
type QRHandler struct {
	store  *store.Store
	auth   *auth.Service
	logger *slog.Logger
}

// NewQRHandler creates a QRHandler.
func NewQRHandler(st *store.Store, authSvc *auth.Service, logger *slog.Logger) *QRHandler {
	return &QRHandler{store: st, auth: authSvc, logger: logger}
}

type qrRequest struct {
	Name    string         `json:"name"`
	Kind    string         `json:"kind"`
	Content map[string]any `json:"content"`
}

// Create handles POST /api/v1/qr. The content payload is validated against
// its declared kind before any state changes.
func (h *QRHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	var req qrRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return
	}

	if err := validate.Content(req.Content, req.Kind); err != nil {
		writeError(w, http.StatusBadRequest, "Content validation failed: "+err.Error(),
			map[string]any{"kind": req.Kind})
		return
	}

	contentJSON, err := json.Marshal(req.Content)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Content is not serializable")
		return
	}

	qr := &model.QRCode{
		AccountID: identity.AccountID,
		Name:      req.Name,
		Kind:      req.Kind,
		Content:   string(contentJSON),
		ShortCode: newShortCode(),
	}
	if err := h.store.CreateQRCode(r.Context(), qr); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create QR code")
		return
	}

	h.recordUsage(r, identity)
	writeJSON(w, http.StatusCreated, qr)
}

// List handles GET /api/v1/qr with limit/offset pagination.
func (h *QRHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	limit := clampInt(queryInt(r, "limit", 25), 1, 100)
	offset := queryInt(r, "offset", 0)

	codes, err := h.store.ListQRCodes(r.Context(), identity.AccountID, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list QR codes")
		return
	}

	resource := make([]any, len(codes))
	for i := range codes {
		resource[i] = &codes[i]
	}

	h.recordUsage(r, identity)
	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: resource,
		Meta:     &model.ResponseMeta{Count: len(codes), Limit: limit, Offset: offset},
	})
}

// Get handles GET /api/v1/qr/{id}.
func (h *QRHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid QR code id")
		return
	}

	qr, err := h.store.GetQRCode(r.Context(), identity.AccountID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "QR code not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load QR code")
		return
	}

	h.recordUsage(r, identity)
	writeJSON(w, http.StatusOK, qr)
}

// Update handles PUT /api/v1/qr/{id}, re-validating the new content.
func (h *QRHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid QR code id")
		return
	}

	var req qrRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return
	}

	if err := validate.Content(req.Content, req.Kind); err != nil {
		writeError(w, http.StatusBadRequest, "Content validation failed: "+err.Error(),
			map[string]any{"kind": req.Kind})
		return
	}

	contentJSON, err := json.Marshal(req.Content)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Content is not serializable")
		return
	}

	if err := h.store.UpdateQRCodeContent(r.Context(), identity.AccountID, id, req.Name, req.Kind, string(contentJSON)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "QR code not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update QR code")
		return
	}

	qr, err := h.store.GetQRCode(r.Context(), identity.AccountID, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load QR code")
		return
	}

	h.recordUsage(r, identity)
	writeJSON(w, http.StatusOK, qr)
}

// Delete handles DELETE /api/v1/qr/{id}.
func (h *QRHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid QR code id")
		return
	}

	if err := h.store.DeleteQRCode(r.Context(), identity.AccountID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "QR code not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete QR code")
		return
	}

	h.recordUsage(r, identity)
	w.WriteHeader(http.StatusNoContent)
}

// Redirect handles GET /r/{code}, the public scan endpoint. URL-kind codes
// 302 to their stored target; other kinds return the structured content.
func (h *QRHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	qr, err := h.store.GetQRCodeByShortCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Unknown QR code")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to resolve QR code")
		return
	}

	if err := h.store.IncrementScanCount(r.Context(), code); err != nil {
		h.logger.Warn("failed to count scan", "short_code", code, "error", err)
	}

	if qr.Kind == "url" {
		content, err := qr.ContentMap()
		if err == nil {
			if target, ok := content["url"].(string); ok && validate.IsSafeURL(target) {
				http.Redirect(w, r, target, http.StatusFound)
				return
			}
		}
		writeError(w, http.StatusNotFound, "QR code has no valid target")
		return
	}

	writeJSON(w, http.StatusOK, qr)
}

// recordUsage increments the caller's usage counters after a completed
// operation. A failed increment is logged, never surfaced: the operation
// already succeeded from the caller's point of view.
func (h *QRHandler) recordUsage(r *http.Request, identity *model.Identity) {
	if err := h.auth.Quota().RecordUsage(r.Context(), identity.KeyHash); err != nil {
		h.logger.Error("failed to record key usage",
			"account_id", identity.AccountID, "error", err)
	}
}

// newShortCode generates the public identifier for a QR code.
func newShortCode() string {
	buf := make([]byte, 6)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}
