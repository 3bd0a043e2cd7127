package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/albumvault/catalogd/internal/apperr"
	"github.com/albumvault/catalogd/internal/auth"
	"github.com/albumvault/catalogd/internal/store"
	"github.com/albumvault/catalogd/pkg/audit"
)

// auditActor reads the admin id off the request's validated JWT claims
// for attribution in the audit trail. Every route this is called from
// sits behind auth.RequireAdmin, so claims are always present.
func auditActor(r *http.Request) string {
	if c := auth.ClaimsFromContext(r.Context()); c != nil {
		return c.Subject
	}
	return ""
}

// logAdmin writes a best-effort audit_log row; a failure is logged but
// never turned into a user-visible error (see pkg/audit.LogAction).
func (s *Server) logAdmin(r *http.Request, action, resourceType, resourceID string, details map[string]interface{}) {
	if err := audit.LogActionWithRequest(r, s.store.DB().DB, "admin", auditActor(r), action, resourceType, resourceID, details); err != nil {
		s.log.Error("audit log write failed", "action", action, "error", err)
	}
}

type scrapeStartRequest struct {
	Date     string `json:"date"` // YYYY-MM-DD; empty means today
	NoCovers bool   `json:"no_covers"`
}

func (s *Server) handleScrapeStart(w http.ResponseWriter, r *http.Request) {
	if s.orch == nil {
		s.writeAppErr(w, r, apperr.Fatal("orchestrator not configured", nil))
		return
	}
	var req scrapeStartRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			s.writeAppErr(w, r, err)
			return
		}
	}
	target := time.Now()
	if req.Date != "" {
		d, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			s.writeAppErr(w, r, apperr.InputInvalid("date must be YYYY-MM-DD"))
			return
		}
		target = d
	}

	// RunForDate blocks for the pipeline's full duration, so it is run
	// in the background against a detached context; the caller polls
	// /admin/scrape/status rather than holding the request open, and
	// the run must outlive this request's own context, which chi
	// cancels as soon as the response is written.
	go func() {
		if err := s.orch.RunForDate(context.Background(), target, !req.NoCovers); err != nil {
			s.log.Error("scrape run failed", "date", target, "error", err)
		}
	}()
	s.logAdmin(r, "scrape.start", "date", target.Format("2006-01-02"), map[string]interface{}{"no_covers": req.NoCovers})
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleScrapeStop(w http.ResponseWriter, r *http.Request) {
	if s.orch == nil {
		s.writeAppErr(w, r, apperr.Fatal("orchestrator not configured", nil))
		return
	}
	s.orch.Stop()
	s.logAdmin(r, "scrape.stop", "", "", nil)
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopping"})
}

func (s *Server) handleScrapeStatus(w http.ResponseWriter, r *http.Request) {
	if s.orch == nil {
		s.writeAppErr(w, r, apperr.Fatal("orchestrator not configured", nil))
		return
	}
	writeJSON(w, http.StatusOK, s.orch.Report())
}

func (s *Server) handleDeleteByDate(w http.ResponseWriter, r *http.Request) {
	day, err := time.Parse("2006-01-02", chi.URLParam(r, "date"))
	if err != nil {
		s.writeAppErr(w, r, apperr.InputInvalid("date must be YYYY-MM-DD"))
		return
	}
	n, err := s.store.DeleteByDate(r.Context(), day)
	if err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	s.logAdmin(r, "albums.delete_by_date", "date", chi.URLParam(r, "date"), map[string]interface{}{"deleted": n})
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func (s *Server) handleDeleteByRange(w http.ResponseWriter, r *http.Request) {
	d1, err1 := time.Parse("2006-01-02", chi.URLParam(r, "start"))
	d2, err2 := time.Parse("2006-01-02", chi.URLParam(r, "end"))
	if err1 != nil || err2 != nil {
		s.writeAppErr(w, r, apperr.InputInvalid("start and end must be YYYY-MM-DD"))
		return
	}
	n, err := s.store.DeleteByRange(r.Context(), d1, d2)
	if err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	s.logAdmin(r, "albums.delete_by_range", "date_range", chi.URLParam(r, "start")+".."+chi.URLParam(r, "end"), map[string]interface{}{"deleted": n})
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func (s *Server) handleAdminSummary(w http.ResponseWriter, r *http.Request) {
	sm, err := s.store.Summary(r.Context())
	if err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	var dlStats any
	if s.dl != nil {
		dlStats = s.dl.Statistics()
	}
	var cacheStats any
	if s.cache != nil {
		cacheStats = s.cache.Stats()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"catalog":   sm,
		"downloads": dlStats,
		"cache":     cacheStats,
	})
}

// settingsCategories enumerates the admin-editable Settings
// categories. "general" additionally covers the scalar config keys
// (request_delay_seconds, page_size, etc.) that components reload hot
// from the Settings table. "platform_links" holds
// platform_link_visible_{platform}, which only controls catalog-read
// response shaping (UI visibility); the catalog itself always stores
// every platform's verified embed regardless of this toggle.
var settingsCategories = map[string]bool{
	"general":        true,
	"platform_links": true,
	"cache":          true,
	"player":         true,
}

func (s *Server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	if !settingsCategories[category] {
		s.writeAppErr(w, r, apperr.InputInvalid("unknown settings category"))
		return
	}
	rows, err := s.store.GetSettingsByCategory(r.Context(), category)
	if err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleSettingsSet(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	if !settingsCategories[category] {
		s.writeAppErr(w, r, apperr.InputInvalid("unknown settings category"))
		return
	}
	var body map[string]json.RawMessage
	if err := decodeJSON(r, &body); err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	for key, raw := range body {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			s.writeAppErr(w, r, apperr.InputInvalid("setting "+key+" is not valid JSON"))
			return
		}
		if err := s.store.SetSetting(r.Context(), key, v, category); err != nil {
			s.writeAppErr(w, r, err)
			return
		}
	}
	s.logAdmin(r, "settings.update", "category", category, map[string]interface{}{"keys": keysOf(body)})
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// handleAuditLog returns a page of the audit trail, filterable by
// actor_id/action/resource_type/resource_id/date_from/date_to query
// parameters, all optional.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := map[string]string{
		"actor_id":      q.Get("actor_id"),
		"action":        q.Get("action"),
		"resource_type": q.Get("resource_type"),
		"resource_id":   q.Get("resource_id"),
		"date_from":     q.Get("date_from"),
		"date_to":       q.Get("date_to"),
	}
	limit, offset := 50, 0
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		offset = v
	}
	entries, total, err := audit.Query(r.Context(), s.store.DB().DB, filters, limit, offset)
	if err != nil {
		s.writeAppErr(w, r, apperr.Fatal("audit: query", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "total": total})
}

func keysOf(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// handleVerifyDate re-runs platform verification for every album on
// the given date without re-scraping, persisting the resulting embeds
// and playable_verified flag (the pipeline's verify step, run
// standalone).
func (s *Server) handleVerifyDate(w http.ResponseWriter, r *http.Request) {
	if s.verify == nil {
		s.writeAppErr(w, r, apperr.Fatal("verifier not configured", nil))
		return
	}
	day, err := time.Parse("2006-01-02", chi.URLParam(r, "date"))
	if err != nil {
		s.writeAppErr(w, r, apperr.InputInvalid("date must be YYYY-MM-DD"))
		return
	}
	albums, err := s.store.AlbumsByDate(r.Context(), day)
	if err != nil {
		s.writeAppErr(w, r, err)
		return
	}

	verified := 0
	for _, album := range albums {
		video, musicSales, ok := s.verify.VerifyAlbum(r.Context(), album)
		if !ok {
			continue
		}
		embeds := store.VerifiedEmbeds{}
		if video.Found {
			embeds[store.PlatformYouTube] = store.VerifiedEmbed{
				EmbedURL: video.EmbedURL, MatchedTitle: video.MatchedTitle, Score: video.Score, Kind: video.Kind,
			}
		}
		if musicSales.Found {
			embeds[store.PlatformBandcamp] = store.VerifiedEmbed{
				EmbedURL: musicSales.EmbedURL, MatchedTitle: musicSales.MatchedTitle, Score: musicSales.Score, Kind: musicSales.Kind,
			}
		}
		playable := video.Found || musicSales.Found
		if err := s.store.UpdateVerification(r.Context(), album.AlbumID, embeds, playable); err != nil {
			s.log.Error("persist verification", "album_id", album.AlbumID, "error", err)
			continue
		}
		verified++
	}
	writeJSON(w, http.StatusOK, map[string]int{"verified": verified, "total": len(albums)})
}
