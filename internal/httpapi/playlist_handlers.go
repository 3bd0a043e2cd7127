package httpapi

import (
	"context"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/albumvault/catalogd/internal/apperr"
	"github.com/albumvault/catalogd/internal/store"
	"github.com/albumvault/catalogd/internal/validate"
)

func (s *Server) handlePlaylistList(w http.ResponseWriter, r *http.Request) {
	playlists, err := s.store.GetAllPlaylists(r.Context())
	if err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

type playlistUpsertRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`
}

func (s *Server) handlePlaylistCreate(w http.ResponseWriter, r *http.Request) {
	var req playlistUpsertRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	if err := validate.NonEmptyString("name", req.Name); err != nil {
		s.writeAppErr(w, r, apperr.InputInvalid(err.Error()))
		return
	}
	p, err := s.store.CreatePlaylist(r.Context(), req.Name, req.Description, req.IsPublic)
	if err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handlePlaylistGet(w http.ResponseWriter, r *http.Request) {
	id, err := playlistIDParam(r)
	if err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	p, err := s.store.GetPlaylist(r.Context(), id)
	if err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePlaylistUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := playlistIDParam(r)
	if err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	var req playlistUpsertRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	if err := s.store.UpdatePlaylist(r.Context(), id, req.Name, req.Description, req.IsPublic); err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handlePlaylistDelete(w http.ResponseWriter, r *http.Request) {
	id, err := playlistIDParam(r)
	if err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	if err := s.store.DeletePlaylist(r.Context(), id); err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type addItemRequest struct {
	AlbumID     string `json:"album_id"`
	TrackNumber *int   `json:"track_number"`
}

// handlePlaylistAddItem appends an item and verifies it inline against
// the album's platform embeds: an item is stored verified against the
// album's video embed, else its music-sales embed (choosePlaylistEmbed),
// and stored pending on the video platform when the album has neither.
func (s *Server) handlePlaylistAddItem(w http.ResponseWriter, r *http.Request) {
	playlistID, err := playlistIDParam(r)
	if err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	if err := validate.NonEmptyString("album_id", req.AlbumID); err != nil {
		s.writeAppErr(w, r, apperr.InputInvalid(err.Error()))
		return
	}

	album, err := s.store.AlbumByID(r.Context(), req.AlbumID)
	if err != nil {
		s.writeAppErr(w, r, err)
		return
	}

	platform, embed, found := choosePlaylistEmbed(album.VerifiedEmbeds)
	var item store.PlaylistItem
	if found {
		item, err = s.store.AddPlaylistItemVerified(r.Context(), playlistID, req.AlbumID, req.TrackNumber,
			platform, embed.EmbedURL, embed.Score, embed.MatchedTitle, embed.Kind)
	} else {
		item, err = s.store.AddPlaylistItemPending(r.Context(), playlistID, req.AlbumID, req.TrackNumber, store.PlaylistPlatformVideo)
	}
	if err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// choosePlaylistEmbed prefers a video embed over a music-sales one,
// matching the video-first platform precedence used elsewhere in the
// catalog.
func choosePlaylistEmbed(embeds store.VerifiedEmbeds) (store.PlaylistPlatform, store.VerifiedEmbed, bool) {
	if e, ok := embeds[store.PlatformYouTube]; ok {
		return store.PlaylistPlatformVideo, e, true
	}
	if e, ok := embeds[store.PlatformBandcamp]; ok {
		return store.PlaylistPlatformMusicSales, e, true
	}
	return "", store.VerifiedEmbed{}, false
}

func (s *Server) handlePlaylistDeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		s.writeAppErr(w, r, apperr.InputInvalid("item id must be an integer"))
		return
	}
	if err := s.store.DeletePlaylistItem(r.Context(), itemID); err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type reorderRequest struct {
	ItemIDs []int64 `json:"item_ids"`
}

func (s *Server) handlePlaylistReorder(w http.ResponseWriter, r *http.Request) {
	playlistID, err := playlistIDParam(r)
	if err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	if len(req.ItemIDs) == 0 {
		s.writeAppErr(w, r, apperr.InputInvalid("item_ids must not be empty"))
		return
	}
	if err := s.store.ReorderPlaylistItems(r.Context(), playlistID, req.ItemIDs); err != nil {
		s.writeAppErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reordered"})
}

// handlePlaylistDynamic composes an ad-hoc playlist over a period
// (day, or a week/month expanded to its date range), filtered by
// genres/search and by the Player settings' video/music-sales toggles:
// an album with only a platform the player has disabled is dropped
// entirely rather than shown with no playable embed.
func (s *Server) handlePlaylistDynamic(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	periodType := q.Get("period_type")
	periodKey := q.Get("period_key")
	if periodKey == "" {
		s.writeAppErr(w, r, apperr.InputInvalid("period_key is required"))
		return
	}

	var day, start, end *time.Time
	switch periodType {
	case "", string(store.PeriodDay):
		d, err := time.Parse("2006-01-02", periodKey)
		if err != nil {
			s.writeAppErr(w, r, apperr.InputInvalid("period_key must be YYYY-MM-DD for period_type=day"))
			return
		}
		day = &d
	case string(store.PeriodWeek), string(store.PeriodMonth):
		rs, re, err := s.store.PeriodRange(r.Context(), store.PeriodKind(periodType), periodKey)
		if err != nil {
			s.writeAppErr(w, r, err)
			return
		}
		if rs.IsZero() {
			writeJSON(w, http.StatusOK, []dynamicPlaylistItem{})
			return
		}
		start, end = &rs, &re
	default:
		s.writeAppErr(w, r, apperr.InputInvalid("period_type must be day, week, or month"))
		return
	}

	genres := splitCSV(q.Get("genres"))
	search := q.Get("search")

	albums, err := s.store.AlbumsForPlaylist(r.Context(), day, start, end, genres, search, true)
	if err != nil {
		s.writeAppErr(w, r, err)
		return
	}

	videoEnabled := s.playerSettingEnabled(r.Context(), "player_youtube_enabled", true)
	musicSalesEnabled := s.playerSettingEnabled(r.Context(), "player_bandcamp_enabled", true)

	items := make([]dynamicPlaylistItem, 0, len(albums))
	for _, album := range albums {
		var platform store.PlaylistPlatform
		var embed store.VerifiedEmbed
		found := false
		if e, ok := album.VerifiedEmbeds[store.PlatformYouTube]; ok && videoEnabled {
			platform, embed, found = store.PlaylistPlatformVideo, e, true
		} else if e, ok := album.VerifiedEmbeds[store.PlatformBandcamp]; ok && musicSalesEnabled {
			platform, embed, found = store.PlaylistPlatformMusicSales, e, true
		}
		if !found {
			continue
		}
		items = append(items, dynamicPlaylistItem{Album: album, Platform: platform, Embed: embed})
	}

	if strings.EqualFold(q.Get("shuffle"), "true") {
		shuffleItems(items)
	}

	writeJSON(w, http.StatusOK, items)
}

type dynamicPlaylistItem struct {
	Album    store.Album            `json:"album"`
	Platform store.PlaylistPlatform `json:"platform"`
	Embed    store.VerifiedEmbed    `json:"embed"`
}

// playerSettingEnabled reads a boolean player toggle (player_youtube_enabled,
// player_bandcamp_enabled), defaulting to def when the setting row is
// absent (a fresh install with no admin override yet).
func (s *Server) playerSettingEnabled(ctx context.Context, key string, def bool) bool {
	return s.store.SettingBool(ctx, key, def)
}

func playlistIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, apperr.InputInvalid("playlist id must be an integer")
	}
	return id, nil
}

func shuffleItems(items []dynamicPlaylistItem) {
	rand.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}
