// Package httpapi implements the HTTP Service: the catalog-read,
// admin-mutation, media-streaming, and playlist surface.
//
// The server is a struct holding its dependencies, routed with chi
// and middleware.Logger/Recoverer/Timeout, with r.Group separating
// auth-gated routes from public ones. Request counting and latency are
// wired through internal/metrics and panics are reported through
// pkg/telemetry instead of just surfacing a bare 500.
package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/albumvault/catalogd/internal/apperr"
	"github.com/albumvault/catalogd/internal/auth"
	"github.com/albumvault/catalogd/internal/config"
	"github.com/albumvault/catalogd/internal/download"
	"github.com/albumvault/catalogd/internal/handlers"
	"github.com/albumvault/catalogd/internal/mediacache"
	"github.com/albumvault/catalogd/internal/metrics"
	"github.com/albumvault/catalogd/internal/orchestrator"
	"github.com/albumvault/catalogd/internal/ratelimit"
	"github.com/albumvault/catalogd/internal/store"
	"github.com/albumvault/catalogd/internal/verifier"
	"github.com/albumvault/catalogd/pkg/telemetry"
	"github.com/albumvault/catalogd/pkg/updater"
)

// Server holds every dependency a handler needs. Handlers are methods
// on *Server so they share one receiver instead of threading globals.
type Server struct {
	store   *store.Store
	cache   *mediacache.Cache
	dl      *download.Manager
	orch    *orchestrator.Orchestrator
	verify  *verifier.Verifier
	limiter *ratelimit.Limiter
	cfg     config.Config
	log     *slog.Logger
}

// New wires a Server from its dependencies. Any of cache/dl/orch/
// verify/limiter may be nil in a reduced deployment (e.g. a read-only
// replica with no Download Manager); handlers that need one and find
// it nil respond 500 (apperr.Fatal) rather than panicking.
func New(st *store.Store, cache *mediacache.Cache, dl *download.Manager, orch *orchestrator.Orchestrator, vf *verifier.Verifier, limiter *ratelimit.Limiter, cfg config.Config, log *slog.Logger) *Server {
	return &Server{store: st, cache: cache, dl: dl, orch: orch, verify: vf, limiter: limiter, cfg: cfg, log: log}
}

// Router builds the full chi router: standard middleware, permissive
// CORS, Prometheus instrumentation, catalog reads, admin mutations
// under RequireAdmin, media streaming, and playlist CRUD.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Accept-Ranges", "Content-Range"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(s.instrument)

	r.Get("/health", s.handleHealth)
	r.Get("/info", handlers.HandleSystemInfo(serviceVersion, s.features()))
	r.Get("/metrics", metrics.Handler().ServeHTTP)

	r.Post("/auth/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimitAPI)

		r.Route("/dates", func(r chi.Router) {
			r.Get("/", s.handleDates)
			r.Get("/grouped", s.handleGroupedDates)
		})
		r.Get("/albums/{date}", s.handleAlbumsByDate)
		r.Get("/albums/period/{kind}/{key}", s.handleAlbumsByPeriod)
		r.Get("/albums/by-genre/{name}", s.handleAlbumsByGenre)
		r.Get("/search", s.handleSearch)
		r.Get("/stats", s.handleStats)
		r.Route("/genres", func(r chi.Router) {
			r.Get("/", s.handleGenres)
			r.Get("/search", s.handleGenreSearch)
			r.Get("/stats", s.handleGenreStats)
		})
		r.Get("/playlist/dynamic", s.handlePlaylistDynamic)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimitStream)
		r.Get("/youtube/audio/{id}", s.handleAudioStream)
	})
	r.Get("/youtube/audio/{id}/info", s.handleAudioInfo)
	r.Get("/youtube/download/status/{id}", s.handleDownloadStatus)
	r.Get("/youtube/download/stats", s.handleDownloadStats)

	r.Route("/playlists", func(r chi.Router) {
		r.Get("/", s.handlePlaylistList)
		r.Post("/", s.handlePlaylistCreate)
		r.Get("/{id}", s.handlePlaylistGet)
		r.Put("/{id}", s.handlePlaylistUpdate)
		r.Delete("/{id}", s.handlePlaylistDelete)
		r.Post("/{id}/items", s.handlePlaylistAddItem)
		r.Delete("/{id}/items/{itemID}", s.handlePlaylistDeleteItem)
		r.Put("/{id}/reorder", s.handlePlaylistReorder)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin(s.cfg.JWTSecret, s.onAuthError))
		r.Post("/youtube/queue", s.handleQueueDownload)

		r.Post("/admin/scrape/start", s.handleScrapeStart)
		r.Post("/admin/scrape/stop", s.handleScrapeStop)
		r.Get("/admin/scrape/status", s.handleScrapeStatus)
		r.Delete("/admin/albums/{date}", s.handleDeleteByDate)
		r.Delete("/admin/albums/range/{start}/{end}", s.handleDeleteByRange)
		r.Get("/admin/summary", s.handleAdminSummary)
		r.Get("/admin/settings/{category}", s.handleSettingsGet)
		r.Put("/admin/settings/{category}", s.handleSettingsSet)
		r.Post("/admin/verify/{date}", s.handleVerifyDate)
		r.Get("/admin/audit-log", s.handleAuditLog)
		r.Get("/admin/version", s.handleVersionCheck)
	})

	return r
}

// instrument records request counts and latency under the route's
// templated pattern, which chi only finalizes once routing completes
// — so, unlike internal/metrics.Middleware's usual call site, this
// wrapper reads the pattern after next.ServeHTTP returns rather than
// passing it in up front.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		pattern := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			pattern = rc.RoutePattern()
		}
		metrics.HTTPRequests.WithLabelValues(r.Method, pattern, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}

// rateLimitAPI throttles the catalog-read surface per client IP. A nil
// limiter (no Redis configured) makes this a no-op, matching
// CheckLogin's own degrade-to-allow behavior.
func (s *Server) rateLimitAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		if allowed, retry := s.limiter.CheckAPI(r.Context(), ratelimit.ClientIP(r), ratelimit.DefaultRateLimits()); !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			s.writeAppErr(w, r, apperr.RateLimited("too many requests"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitStream throttles the media-streaming endpoint per client IP,
// using a separate (typically higher) budget than rateLimitAPI.
func (s *Server) rateLimitStream(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		if allowed, retry := s.limiter.CheckStream(r.Context(), ratelimit.ClientIP(r), ratelimit.DefaultRateLimits()); !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			s.writeAppErr(w, r, apperr.RateLimited("too many stream requests"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// serviceVersion is reported by GET /info. Bumped by hand on release;
// there is no build-time version injection in this module.
const serviceVersion = "0.1.0"

// features reports which optional components are wired into this
// process, for GET /info.
func (s *Server) features() map[string]bool {
	return map[string]bool{
		"media_cache":  s.cache != nil,
		"downloads":    s.dl != nil,
		"orchestrator": s.orch != nil,
		"verifier":     s.verify != nil,
		"rate_limit":   s.limiter != nil,
	}
}

// handleVersionCheck reports whether a newer catalogd release exists
// on GitHub, for an operator checking an admin dashboard. Network
// failures degrade to "no update available" rather than a 5xx, per
// updater.CheckLatestVersion's own contract.
func (s *Server) handleVersionCheck(w http.ResponseWriter, r *http.Request) {
	info, err := updater.CheckLatestVersion(r.Context(), serviceVersion)
	if err != nil {
		s.log.Warn("version check failed", "error", err)
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "catalogd"})
}

func (s *Server) onAuthError(w http.ResponseWriter, r *http.Request, err error) {
	writeErr(w, http.StatusUnauthorized, "unauthorized", err.Error())
}

func (s *Server) captureError(err error, r *http.Request) {
	if sentry.CurrentHub().Client() == nil {
		return
	}
	telemetry.CaptureError(err, map[string]string{
		"path":   r.URL.Path,
		"method": r.Method,
	})
}
