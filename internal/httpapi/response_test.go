package httpapi

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/albumvault/catalogd/internal/apperr"
)

func TestWriteJSON_SetsContentTypeAndStatus(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, 201, map[string]string{"status": "created"})

	if w.Code != 201 {
		t.Errorf("status = %d, want 201", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response body is not valid JSON: %v", err)
	}
	if body["status"] != "created" {
		t.Errorf("body[status] = %q, want created", body["status"])
	}
}

func TestWriteErr_Shape(t *testing.T) {
	w := httptest.NewRecorder()
	writeErr(w, 404, "not_found", "album not found")

	if w.Code != 404 {
		t.Errorf("status = %d, want 404", w.Code)
	}
	var body errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response body is not valid JSON: %v", err)
	}
	if body.Error != "not_found" || body.Message != "album not found" {
		t.Errorf("body = %+v, want {not_found album not found}", body)
	}
}

func TestErrCode_CoversEveryKind(t *testing.T) {
	cases := map[apperr.Kind]string{
		apperr.KindInputInvalid: "input_invalid",
		apperr.KindConflict:     "conflict",
		apperr.KindNotFound:     "not_found",
		apperr.KindUnauthorized: "unauthorized",
		apperr.KindLocked:       "locked",
		apperr.KindRateLimited:  "rate_limited",
		apperr.KindUpstream:     "upstream_error",
		apperr.KindTransient:    "transient_error",
		apperr.KindFatal:        "internal_error",
	}
	for kind, want := range cases {
		if got := errCode(kind); got != want {
			t.Errorf("errCode(%v) = %q, want %q", kind, got, want)
		}
	}
}

func TestDecodeJSON_RejectsEmptyBody(t *testing.T) {
	r := httptest.NewRequest("POST", "/", nil)
	var v map[string]string
	err := decodeJSON(r, &v)
	if err == nil {
		t.Fatal("expected an error for a request with no body")
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("error = %q, want it to mention a required body", err.Error())
	}
}

func TestDecodeJSON_RejectsMalformedJSON(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader("{not json"))
	var v map[string]string
	if err := decodeJSON(r, &v); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}
