package httpapi

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/albumvault/catalogd/internal/apperr"
	"github.com/albumvault/catalogd/internal/download"
	"github.com/albumvault/catalogd/internal/validate"
)

// handleAudioStream serves a cached audio file with Range support. It
// never initiates a download: a miss that isn't already downloading is
// a plain 404, and a miss that is downloading is 202 so the client
// knows to retry rather than queue again.
func (s *Server) handleAudioStream(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		s.writeAppErr(w, r, apperr.Fatal("media cache not configured", nil))
		return
	}
	id := chi.URLParam(r, "id")
	if err := validate.IsAlphanumericSlug("id", id); err != nil {
		s.writeAppErr(w, r, apperr.InputInvalid(err.Error()))
		return
	}

	if path, ok := s.cache.Lookup(id); ok {
		f, err := os.Open(path)
		if err != nil {
			s.writeAppErr(w, r, apperr.Transient("open cached audio file", err))
			return
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			s.writeAppErr(w, r, apperr.Transient("stat cached audio file", err))
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		w.Header().Set("Accept-Ranges", "bytes")
		http.ServeContent(w, r, id, info.ModTime(), f)
		return
	}

	if s.dl != nil {
		if t := s.dl.Status(id); t != nil && (t.Status == download.StatusQueued || t.Status == download.StatusDownloading) {
			writeJSON(w, http.StatusAccepted, map[string]string{"status": string(t.Status)})
			return
		}
	}
	s.writeAppErr(w, r, apperr.NotFound("audio not cached"))
}

func (s *Server) handleAudioInfo(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		s.writeAppErr(w, r, apperr.Fatal("media cache not configured", nil))
		return
	}
	id := chi.URLParam(r, "id")
	if err := validate.IsAlphanumericSlug("id", id); err != nil {
		s.writeAppErr(w, r, apperr.InputInvalid(err.Error()))
		return
	}

	if path, ok := s.cache.Lookup(id); ok {
		info, err := os.Stat(path)
		if err != nil {
			s.writeAppErr(w, r, apperr.Transient("stat cached audio file", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"cached":     true,
			"size_bytes": info.Size(),
		})
		return
	}

	resp := map[string]any{"cached": false}
	if s.dl != nil {
		if t := s.dl.Status(id); t != nil {
			resp["status"] = t.Status
			resp["attempts"] = t.Attempts
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type queueRequest struct {
	IDs          []string `json:"ids"`
	CurrentIndex int      `json:"current_index"`
}

func (s *Server) handleQueueDownload(w http.ResponseWriter, r *http.Request) {
	if s.dl == nil {
		s.writeAppErr(w, r, apperr.Fatal("download manager not configured", nil))
		return
	}
	var req queueRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	if len(req.IDs) == 0 {
		s.writeAppErr(w, r, apperr.InputInvalid("ids must not be empty"))
		return
	}
	for _, id := range req.IDs {
		if err := validate.IsAlphanumericSlug("ids", id); err != nil {
			s.writeAppErr(w, r, apperr.InputInvalid(err.Error()))
			return
		}
	}
	if err := validate.IntInRange("current_index", req.CurrentIndex, 0, len(req.IDs)-1); err != nil {
		s.writeAppErr(w, r, apperr.InputInvalid(err.Error()))
		return
	}
	s.dl.DownloadPlaylist(req.IDs, req.CurrentIndex)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleDownloadStatus(w http.ResponseWriter, r *http.Request) {
	if s.dl == nil {
		s.writeAppErr(w, r, apperr.Fatal("download manager not configured", nil))
		return
	}
	t := s.dl.Status(chi.URLParam(r, "id"))
	if t == nil {
		s.writeAppErr(w, r, apperr.NotFound("no download task for id"))
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDownloadStats(w http.ResponseWriter, r *http.Request) {
	if s.dl == nil {
		s.writeAppErr(w, r, apperr.Fatal("download manager not configured", nil))
		return
	}
	writeJSON(w, http.StatusOK, s.dl.Statistics())
}
