// system_test.go — Unit tests for HandleSystemInfo.
package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/albumvault/catalogd/internal/handlers"
)

func TestHandleSystemInfo_ReportsVersionAndFeatures(t *testing.T) {
	features := map[string]bool{
		"media_cache":   true,
		"downloader":    true,
		"orchestrator":  false,
		"verifier":      true,
		"rate_limiting": false,
	}
	h := handlers.HandleSystemInfo("1.0.0", features)

	req := httptest.NewRequest(http.MethodGet, "/info", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var info handlers.SystemInfo
	if err := json.NewDecoder(rr.Body).Decode(&info); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if info.Version != "1.0.0" {
		t.Errorf("expected version=1.0.0, got %q", info.Version)
	}
	if !info.Features["media_cache"] {
		t.Error("media_cache should be true")
	}
	if info.Features["orchestrator"] {
		t.Error("orchestrator should be false")
	}
	if !info.Features["verifier"] {
		t.Error("verifier should be true")
	}
}

func TestHandleSystemInfo_MethodNotAllowed(t *testing.T) {
	h := handlers.HandleSystemInfo("1.0.0", map[string]bool{})

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, "/info", nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("method %s: expected 405, got %d", method, rr.Code)
		}
		if allow := rr.Header().Get("Allow"); allow != "GET" {
			t.Errorf("method %s: expected Allow: GET, got %q", method, allow)
		}
	}
}

func TestHandleSystemInfo_ContentType(t *testing.T) {
	h := handlers.HandleSystemInfo("1.0.0", map[string]bool{})

	req := httptest.NewRequest(http.MethodGet, "/info", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	ct := rr.Header().Get("Content-Type")
	if ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}
}
