// middleware.go — HTTP middleware enforcing the admin bearer token on
// protected routes.
package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const claimsKey contextKey = "auth_claims"

// RequireAdmin validates the Bearer JWT in the Authorization header
// against secret. On success it injects the parsed claims into the
// request context and calls next; on failure it writes onAuthError
// itself (so callers can share the service's own JSON error envelope
// instead of this package defining its own).
func RequireAdmin(secret string, onAuthError func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := extractBearerToken(r)
			if tokenStr == "" {
				onAuthError(w, r, errMissingToken)
				return
			}
			claims, err := ValidateAdminToken(tokenStr, secret)
			if err != nil {
				onAuthError(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

var errMissingToken = &tokenError{"missing bearer token"}

type tokenError struct{ msg string }

func (e *tokenError) Error() string { return e.msg }

// ClaimsFromContext extracts the admin JWT claims from the request
// context. Returns nil if RequireAdmin was not applied.
func ClaimsFromContext(ctx context.Context) *AdminClaims {
	if c, ok := ctx.Value(claimsKey).(*AdminClaims); ok {
		return c
	}
	return nil
}

// extractBearerToken pulls the token from "Authorization: Bearer <token>".
// Returns empty string if the header is missing or malformed.
func extractBearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
