// response.go — JSON response helpers shared by every handler in this
// package, matching services/channel/cmd/channel/main.go's
// writeJSON/writeError pair.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/albumvault/catalogd/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeErr(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}

// writeAppErr classifies err through apperr's taxonomy and writes the
// matching HTTP status. Unclassified errors are logged at error level
// before being reported to the client as a generic 500, so a bad
// query or nil-pointer bug is never silently swallowed.
func (s *Server) writeAppErr(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.StatusFor(err)
	code := errCode(apperr.KindOf(err))
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "method", r.Method, "error", err)
		s.captureError(err, r)
	}
	writeErr(w, status, code, err.Error())
}

func errCode(k apperr.Kind) string {
	switch k {
	case apperr.KindInputInvalid:
		return "input_invalid"
	case apperr.KindConflict:
		return "conflict"
	case apperr.KindNotFound:
		return "not_found"
	case apperr.KindUnauthorized:
		return "unauthorized"
	case apperr.KindLocked:
		return "locked"
	case apperr.KindRateLimited:
		return "rate_limited"
	case apperr.KindUpstream:
		return "upstream_error"
	case apperr.KindTransient:
		return "transient_error"
	default:
		return "internal_error"
	}
}

// decodeJSON reads and decodes a JSON request body, returning an
// apperr.InputInvalid on any failure (EOF, malformed JSON; unknown
// fields are not rejected).
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return apperr.InputInvalid("request body required")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.InputInvalid("request body required")
		}
		return apperr.InputInvalid("invalid JSON body: " + err.Error())
	}
	return nil
}
