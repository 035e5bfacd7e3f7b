package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/BenTyson/qrforge-sub000/internal/auth"
	"github.com/BenTyson/qrforge-sub000/internal/model"
	"github.com/BenTyson/qrforge-sub000/internal/ratelimit"
	"github.com/BenTyson/qrforge-sub000/internal/store"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

const (
	testSessionSecret = "test-secret-for-session-integration-tests"
	testPassword      = "supersecretpassword"
)

// testEnv holds the shared state for integration tests.
type testEnv struct {
	server  *Server
	store   *store.Store
	authSvc *auth.Service
}

// newTestEnv creates a fresh environment with an in-memory store and a
// fully wired Server.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.New(store.Config{}) // in-memory SQLite
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limiter := ratelimit.New(ratelimit.Config{Limit: 1000, Window: time.Minute},
		nil, ratelimit.NewMemoryCounter(nil), logger)
	authSvc := auth.NewService(st, limiter, auth.NewQuota(st), logger)
	sessions := auth.NewSessions(testSessionSecret, time.Hour)

	srv := New(DefaultConfig(), st, authSvc, sessions, logger)

	return &testEnv{server: srv, store: st, authSvc: authSvc}
}

// seedAccount creates an active account with a known password.
func (e *testEnv) seedAccount(t *testing.T, tier model.Tier) *model.Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	acct := &model.Account{
		Email:        string(tier) + "@example.com",
		PasswordHash: string(hash),
		Name:         "Test Account",
		Tier:         tier,
		IsActive:     true,
	}
	if err := e.store.CreateAccount(context.Background(), acct); err != nil {
		t.Fatalf("seedAccount: %v", err)
	}
	return acct
}

// apiKey issues a key for the account and returns the raw secret.
func (e *testEnv) apiKey(t *testing.T, accountID int64) string {
	t.Helper()
	raw, _, err := e.authSvc.IssueKey(context.Background(), accountID, "test", nil)
	if err != nil {
		t.Fatalf("IssueKey: %v", err)
	}
	return raw
}

// do executes a request against the test server.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, req)
	return rr
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(b)
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rr.Code, want, rr.Body.String())
	}
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// ---------------------------------------------------------------------------
// Health and docs
// ---------------------------------------------------------------------------

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, "GET", "/healthz", nil, nil)
	assertStatus(t, rr, http.StatusOK)
}

func TestReadyz(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, "GET", "/readyz", nil, nil)
	assertStatus(t, rr, http.StatusOK)

	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decodeJSON(t, rr, &resp)
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.Checks["store"] != "ok" {
		t.Errorf("store check = %q, want ok", resp.Checks["store"])
	}
}

func TestOpenAPIDocument(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, "GET", "/openapi.json", nil, nil)
	assertStatus(t, rr, http.StatusOK)

	var doc struct {
		OpenAPI string         `json:"openapi"`
		Paths   map[string]any `json:"paths"`
	}
	decodeJSON(t, rr, &doc)
	if doc.OpenAPI != "3.1.0" {
		t.Errorf("openapi version = %q, want 3.1.0", doc.OpenAPI)
	}
	for _, p := range []string{"/api/v1/qr", "/api/v1/system/session", "/r/{code}"} {
		if _, ok := doc.Paths[p]; !ok {
			t.Errorf("path %q missing from document", p)
		}
	}
}

// ---------------------------------------------------------------------------
// Management surface
// ---------------------------------------------------------------------------

func TestLoginAndKeyLifecycle(t *testing.T) {
	e := newTestEnv(t)
	e.seedAccount(t, model.TierBusiness)

	// Wrong password and unknown account get the same response.
	rr := e.do(t, "POST", "/api/v1/system/session",
		jsonBody(t, map[string]string{"email": "business@example.com", "password": "nope"}), nil)
	assertStatus(t, rr, http.StatusUnauthorized)
	rr = e.do(t, "POST", "/api/v1/system/session",
		jsonBody(t, map[string]string{"email": "ghost@example.com", "password": testPassword}), nil)
	assertStatus(t, rr, http.StatusUnauthorized)

	// Login.
	rr = e.do(t, "POST", "/api/v1/system/session",
		jsonBody(t, map[string]string{"email": "business@example.com", "password": testPassword}), nil)
	assertStatus(t, rr, http.StatusOK)
	var login struct {
		Token string `json:"token"`
	}
	decodeJSON(t, rr, &login)
	if login.Token == "" {
		t.Fatal("empty session token")
	}

	// Key management requires the session.
	rr = e.do(t, "GET", "/api/v1/system/api-key", nil, nil)
	assertStatus(t, rr, http.StatusUnauthorized)

	// Create a key; the raw secret appears exactly once.
	rr = e.do(t, "POST", "/api/v1/system/api-key",
		jsonBody(t, map[string]string{"label": "ci"}), bearer(login.Token))
	assertStatus(t, rr, http.StatusCreated)
	var created struct {
		Key    string       `json:"key"`
		APIKey model.APIKey `json:"api_key"`
	}
	decodeJSON(t, rr, &created)
	if created.Key == "" {
		t.Fatal("raw key missing from create response")
	}
	if created.APIKey.KeyPrefix == "" {
		t.Fatal("key prefix missing")
	}

	// Listing shows the prefix, never the secret.
	rr = e.do(t, "GET", "/api/v1/system/api-key", nil, bearer(login.Token))
	assertStatus(t, rr, http.StatusOK)
	if bytes.Contains(rr.Body.Bytes(), []byte(created.Key)) {
		t.Error("raw secret leaked in key listing")
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte(created.APIKey.KeyPrefix)) {
		t.Error("key prefix missing from listing")
	}

	// Set the allow-list, then revoke.
	rr = e.do(t, "PUT", "/api/v1/system/api-key/"+created.APIKey.KeyPrefix+"/whitelist",
		jsonBody(t, map[string]any{"ips": []string{"203.0.113.10"}}), bearer(login.Token))
	assertStatus(t, rr, http.StatusNoContent)

	rr = e.do(t, "DELETE", "/api/v1/system/api-key/"+created.APIKey.KeyPrefix, nil, bearer(login.Token))
	assertStatus(t, rr, http.StatusNoContent)

	// The revoked key no longer authenticates.
	rr = e.do(t, "GET", "/api/v1/qr", nil, bearer(created.Key))
	assertStatus(t, rr, http.StatusUnauthorized)
}

// ---------------------------------------------------------------------------
// QR surface
// ---------------------------------------------------------------------------

func TestQRCRUDAndUsageAccounting(t *testing.T) {
	e := newTestEnv(t)
	acct := e.seedAccount(t, model.TierBusiness)
	raw := e.apiKey(t, acct.ID)
	ctx := context.Background()

	// Unauthenticated requests never reach the handler.
	rr := e.do(t, "POST", "/api/v1/qr", jsonBody(t, map[string]any{
		"kind": "url", "content": map[string]any{"url": "https://example.com"},
	}), nil)
	assertStatus(t, rr, http.StatusUnauthorized)

	// Invalid content is rejected before any state changes, and the
	// failed attempt does not count against the quota.
	rr = e.do(t, "POST", "/api/v1/qr", jsonBody(t, map[string]any{
		"kind": "url", "content": map[string]any{"url": "javascript:alert(1)"},
	}), bearer(raw))
	assertStatus(t, rr, http.StatusBadRequest)

	stored, err := e.store.GetAPIKeyByHash(ctx, auth.HashKey(raw))
	if err != nil {
		t.Fatalf("GetAPIKeyByHash: %v", err)
	}
	if stored.MonthlyRequestCount != 0 {
		t.Errorf("denied request counted against quota: %d", stored.MonthlyRequestCount)
	}

	// Create.
	rr = e.do(t, "POST", "/api/v1/qr", jsonBody(t, map[string]any{
		"name": "Landing", "kind": "url",
		"content": map[string]any{"url": "https://example.com/landing"},
	}), bearer(raw))
	assertStatus(t, rr, http.StatusCreated)
	var qr model.QRCode
	decodeJSON(t, rr, &qr)
	if qr.ID == 0 || qr.ShortCode == "" {
		t.Fatalf("create response incomplete: %+v", qr)
	}

	// The successful create recorded usage exactly once.
	stored, _ = e.store.GetAPIKeyByHash(ctx, auth.HashKey(raw))
	if stored.MonthlyRequestCount != 1 {
		t.Errorf("monthly count = %d, want 1", stored.MonthlyRequestCount)
	}

	// Get, update, list.
	rr = e.do(t, "GET", "/api/v1/qr/"+itoa(qr.ID), nil, bearer(raw))
	assertStatus(t, rr, http.StatusOK)

	rr = e.do(t, "PUT", "/api/v1/qr/"+itoa(qr.ID), jsonBody(t, map[string]any{
		"name": "Landing v2", "kind": "text",
		"content": map[string]any{"text": "hello"},
	}), bearer(raw))
	assertStatus(t, rr, http.StatusOK)

	rr = e.do(t, "GET", "/api/v1/qr?limit=10", nil, bearer(raw))
	assertStatus(t, rr, http.StatusOK)
	var list struct {
		Resource []model.QRCode      `json:"resource"`
		Meta     *model.ResponseMeta `json:"meta"`
	}
	decodeJSON(t, rr, &list)
	if len(list.Resource) != 1 {
		t.Fatalf("list returned %d codes, want 1", len(list.Resource))
	}
	if list.Meta == nil || list.Meta.Limit != 10 {
		t.Errorf("meta = %+v, want limit 10", list.Meta)
	}

	// Delete, then 404.
	rr = e.do(t, "DELETE", "/api/v1/qr/"+itoa(qr.ID), nil, bearer(raw))
	assertStatus(t, rr, http.StatusNoContent)
	rr = e.do(t, "GET", "/api/v1/qr/"+itoa(qr.ID), nil, bearer(raw))
	assertStatus(t, rr, http.StatusNotFound)

	// Five successful operations were recorded in total.
	stored, _ = e.store.GetAPIKeyByHash(ctx, auth.HashKey(raw))
	if stored.MonthlyRequestCount != 5 {
		t.Errorf("monthly count = %d, want 5", stored.MonthlyRequestCount)
	}
}

func TestQRTierGate(t *testing.T) {
	e := newTestEnv(t)
	acct := e.seedAccount(t, model.TierPro)
	raw := e.apiKey(t, acct.ID)

	rr := e.do(t, "GET", "/api/v1/qr", nil, bearer(raw))
	assertStatus(t, rr, http.StatusUnauthorized)

	var resp model.ErrorResponse
	decodeJSON(t, rr, &resp)
	if resp.Error.Message != "Invalid API key" {
		t.Errorf("tier denial message = %q, want the generic one", resp.Error.Message)
	}
}

// ---------------------------------------------------------------------------
// Redirect surface
// ---------------------------------------------------------------------------

func TestRedirect(t *testing.T) {
	e := newTestEnv(t)
	acct := e.seedAccount(t, model.TierBusiness)
	raw := e.apiKey(t, acct.ID)

	// URL kind: 302 to the stored target.
	rr := e.do(t, "POST", "/api/v1/qr", jsonBody(t, map[string]any{
		"kind": "url", "content": map[string]any{"url": "https://example.com/promo"},
	}), bearer(raw))
	assertStatus(t, rr, http.StatusCreated)
	var urlQR model.QRCode
	decodeJSON(t, rr, &urlQR)

	rr = e.do(t, "GET", "/r/"+urlQR.ShortCode, nil, nil)
	assertStatus(t, rr, http.StatusFound)
	if got := rr.Header().Get("Location"); got != "https://example.com/promo" {
		t.Errorf("Location = %q", got)
	}

	// Non-URL kind: structured content, no redirect.
	rr = e.do(t, "POST", "/api/v1/qr", jsonBody(t, map[string]any{
		"kind": "wifi", "content": map[string]any{"ssid": "CafeNet", "encryption": "WPA"},
	}), bearer(raw))
	assertStatus(t, rr, http.StatusCreated)
	var wifiQR model.QRCode
	decodeJSON(t, rr, &wifiQR)

	rr = e.do(t, "GET", "/r/"+wifiQR.ShortCode, nil, nil)
	assertStatus(t, rr, http.StatusOK)
	var body struct {
		Content map[string]any `json:"content"`
	}
	decodeJSON(t, rr, &body)
	if body.Content["ssid"] != "CafeNet" {
		t.Errorf("redirect body content = %+v", body.Content)
	}

	// Scans are counted.
	stored, err := e.store.GetQRCodeByShortCode(context.Background(), urlQR.ShortCode)
	if err != nil {
		t.Fatalf("GetQRCodeByShortCode: %v", err)
	}
	if stored.ScanCount != 1 {
		t.Errorf("scan count = %d, want 1", stored.ScanCount)
	}

	// Unknown code.
	rr = e.do(t, "GET", "/r/doesnotexist", nil, nil)
	assertStatus(t, rr, http.StatusNotFound)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
