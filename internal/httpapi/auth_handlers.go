package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/albumvault/catalogd/internal/apperr"
	"github.com/albumvault/catalogd/internal/auth"
	"github.com/albumvault/catalogd/internal/ratelimit"
	"github.com/albumvault/catalogd/pkg/logging"
)

// lockoutThreshold and lockoutFor: five failed attempts locks the
// single admin account for fifteen minutes.
const (
	lockoutThreshold = 5
	lockoutFor       = 15 * time.Minute
	adminTokenExpiry = time.Hour
)

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleLogin authenticates the single admin account. It checks the
// per-IP rate limit ahead of hitting Postgres at all, then the
// account's own lockout_until, then the password hash.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ip := ratelimit.ClientIP(r)

	if s.limiter != nil {
		if allowed, retry := s.limiter.CheckLogin(ctx, ip, ratelimit.DefaultRateLimits()); !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			s.writeAppErr(w, r, apperr.RateLimited("too many login attempts, try again later"))
			return
		}
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeAppErr(w, r, err)
		return
	}

	admin, err := s.store.GetAdminAuth(ctx)
	if err != nil {
		s.writeAppErr(w, r, err)
		return
	}

	if admin.LockoutUntil != nil && admin.LockoutUntil.After(time.Now()) {
		s.writeAppErr(w, r, apperr.Locked("admin account is locked, try again later"))
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)) != nil {
		if err := s.store.RecordLoginFailure(ctx, admin.ID, lockoutThreshold, lockoutFor); err != nil {
			s.log.Error("record login failure", "error", err)
		}
		s.writeAppErr(w, r, apperr.Unauthorized("invalid credentials"))
		return
	}

	if err := s.store.RecordLoginSuccess(ctx, admin.ID); err != nil {
		s.log.Error("record login success", "error", err)
	}
	if s.limiter != nil {
		s.limiter.ResetLoginIP(ctx, ip)
	}

	token, err := auth.GenerateAdminToken(strconv.FormatInt(admin.ID, 10), s.cfg.JWTSecret, adminTokenExpiry)
	if err != nil {
		s.writeAppErr(w, r, apperr.Fatal("generate admin token", err))
		return
	}

	s.log.Info("admin login succeeded", "token", logging.RedactToken(token))
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: time.Now().Add(adminTokenExpiry)})
}
