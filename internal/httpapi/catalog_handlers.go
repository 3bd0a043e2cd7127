package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/albumvault/catalogd/internal/apperr"
	"github.com/albumvault/catalogd/internal/store"
)

func (s *Server) handleDates(w http.ResponseWriter, r *http.Request) {
	dates, err := s.store.Dates(r.Context())
	if err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dates)
}

func (s *Server) handleGroupedDates(w http.ResponseWriter, r *http.Request) {
	kind, err := parsePeriodKind(r.URL.Query().Get("view"))
	if err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	entries, err := s.store.GroupedDates(r.Context(), kind)
	if err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleAlbumsByDate(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, albums)
}

func (s *Server) handleAlbumsByPeriod(w http.ResponseWriter, r *http.Request) {
	kind, err := parsePeriodKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	key := chi.URLParam(r, "key")

	q := r.URL.Query()
	offset, limit := paginationParams(q)
	genres := splitCSV(q.Get("genres"))
	search := q.Get("search")

	result, err := s.store.AlbumsByPeriod(r.Context(), kind, key, offset, limit, genres, search)
	if err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAlbumsByGenre(w http.ResponseWriter, r *http.Request) {
	albums, err := s.store.AlbumsByGenre(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, albums)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		s.writeAppErr(w, r, apperr.InputInvalid("search requires q"))
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	albums, err := s.store.Search(r.Context(), query, limit)
	if err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, albums)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sm, err := s.store.Summary(r.Context())
	if err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sm)
}

func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := s.store.AllGenres(r.Context())
	if err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, genres)
}

func (s *Server) handleGenreSearch(w http.ResponseWriter, r *http.Request) {
	genres, err := s.store.SearchGenres(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, genres)
}

func (s *Server) handleGenreStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GenreStatistics(r.Context())
	if err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// parsePeriodKind validates a day/week/month query or path value
// against store.PeriodKind.
func parsePeriodKind(raw string) (store.PeriodKind, error) {
	switch store.PeriodKind(raw) {
	case store.PeriodDay, store.PeriodWeek, store.PeriodMonth:
		return store.PeriodKind(raw), nil
	default:
		return "", apperr.InputInvalid("period kind must be one of day, week, month")
	}
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// paginationParams reads page/limit query params, defaulting limit to
// 50 and clamping it to a fixed ceiling of 200.
func paginationParams(q interface{ Get(string) string }) (offset, limit int) {
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	return (page - 1) * limit, limit
}
