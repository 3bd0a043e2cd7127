//go:build integration

// server_test.go exercises the HTTP Service's Router against a real
// Postgres instance. Run with: go test -tags integration ./internal/httpapi/...
// Requires TEST_POSTGRES_URL (or the local default) to be reachable; the
// test skips itself (not fails) otherwise.
package httpapi_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/albumvault/catalogd/internal/auth"
	"github.com/albumvault/catalogd/internal/config"
	"github.com/albumvault/catalogd/internal/httpapi"
	"github.com/albumvault/catalogd/internal/store"
	"github.com/albumvault/catalogd/internal/testutil"
)

const testJWTSecret = "httpapi-integration-test-secret"

func newTestServer(t *testing.T) (*httpapi.Server, *store.Store) {
	t.Helper()
	st := testutil.OpenStore(t)
	cfg := config.Config{JWTSecret: testJWTSecret}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpapi.New(st, nil, nil, nil, nil, nil, cfg, log), st
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestInfo_ReportsDisabledComponents(t *testing.T) {
	s, _ := newTestServer(t)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/info", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Features map[string]bool `json:"features"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if body.Features["media_cache"] || body.Features["downloads"] {
		t.Errorf("features = %+v, want media_cache and downloads both false", body.Features)
	}
}

func TestDates_EmptyCatalog(t *testing.T) {
	s, _ := newTestServer(t)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dates", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestSearch_RejectsEmptyQuery(t *testing.T) {
	s, _ := newTestServer(t)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/search", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAdminRoutes_RejectMissingToken(t *testing.T) {
	s, _ := newTestServer(t)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/summary", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAdminRoutes_AcceptValidToken(t *testing.T) {
	s, _ := newTestServer(t)
	token, err := auth.GenerateAdminToken("admin-1", testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAdminToken: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/admin/summary", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200, body = %s", w.Code, w.Body.String())
	}
}

func TestPlaylistLifecycle(t *testing.T) {
	s, _ := newTestServer(t)

	createBody := `{"name":"Daily Picks","description":"fresh releases","is_public":true}`
	r := httptest.NewRequest(http.MethodPost, "/playlists/", strings.NewReader(createBody))
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, r)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201, body = %s", w.Code, w.Body.String())
	}

	var created store.Playlist
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("created body is not valid JSON: %v", err)
	}

	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/playlists/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", w.Code)
	}
}
