package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/albumvault/catalogd/internal/apperr"
)

// CreatePlaylist inserts a new empty playlist.
func (s *Store) CreatePlaylist(ctx context.Context, name, description string, isPublic bool) (Playlist, error) {
	var p Playlist
	err := s.db.GetContext(ctx, &p, `
		INSERT INTO playlists (name, description, is_public, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING *`, name, description, isPublic)
	if err != nil {
		return Playlist{}, apperr.Wrap(apperr.KindTransient, "store: create_playlist", err)
	}
	return p, nil
}

// GetPlaylist loads a playlist and its items, ordered by position.
func (s *Store) GetPlaylist(ctx context.Context, id int64) (Playlist, error) {
	var p Playlist
	err := s.db.GetContext(ctx, &p, `SELECT * FROM playlists WHERE id = $1`, id)
	if err != nil {
		return Playlist{}, apperr.NotFound("store: playlist not found")
	}
	var items []PlaylistItem
	err = s.db.SelectContext(ctx, &items, `
		SELECT * FROM playlist_items WHERE playlist_id = $1 ORDER BY position`, id)
	if err != nil {
		return Playlist{}, apperr.Wrap(apperr.KindTransient, "store: load playlist items", err)
	}
	p.Items = items
	p.ItemCount = len(items)
	return p, nil
}

// GetAllPlaylists lists every playlist with its item count, newest first.
func (s *Store) GetAllPlaylists(ctx context.Context) ([]Playlist, error) {
	var playlists []Playlist
	err := s.db.SelectContext(ctx, &playlists, `
		SELECT p.*, COUNT(pi.id) AS item_count
		FROM playlists p
		LEFT JOIN playlist_items pi ON pi.playlist_id = p.id
		GROUP BY p.id
		ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "store: get_all_playlists", err)
	}
	return playlists, nil
}

// UpdatePlaylist edits a playlist's name/description/visibility.
func (s *Store) UpdatePlaylist(ctx context.Context, id int64, name, description string, isPublic bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE playlists SET name = $1, description = $2, is_public = $3, updated_at = now()
		WHERE id = $4`, name, description, isPublic, id)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "store: update_playlist", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NotFound("store: playlist not found")
	}
	return nil
}

// DeletePlaylist removes a playlist; its items cascade via the schema's
// foreign key. Deleting a missing id is not an error.
func (s *Store) DeletePlaylist(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "store: delete_playlist", err)
	}
	return nil
}

// AddPlaylistItemVerified appends a pre-verified item, placing it at
// the end of the playlist (MAX(position)+1).
func (s *Store) AddPlaylistItemVerified(ctx context.Context, playlistID int64, albumID string, trackNumber *int, platform PlaylistPlatform, playableURL string, score int, verifiedTitle string, embedKind EmbedKind) (PlaylistItem, error) {
	return s.addPlaylistItem(ctx, playlistID, albumID, trackNumber, platform, playableURL, VerificationVerified, &score, verifiedTitle, embedKind)
}

// AddPlaylistItemPending appends an item awaiting verification.
func (s *Store) AddPlaylistItemPending(ctx context.Context, playlistID int64, albumID string, trackNumber *int, platform PlaylistPlatform) (PlaylistItem, error) {
	return s.addPlaylistItem(ctx, playlistID, albumID, trackNumber, platform, "", VerificationPending, nil, "", "")
}

func (s *Store) addPlaylistItem(ctx context.Context, playlistID int64, albumID string, trackNumber *int, platform PlaylistPlatform, playableURL string, status VerificationStatus, score *int, verifiedTitle string, embedKind EmbedKind) (PlaylistItem, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return PlaylistItem{}, apperr.Fatal("store: begin add_playlist_item tx", err)
	}
	defer tx.Rollback()

	var nextPos int
	if err := tx.GetContext(ctx, &nextPos, `
		SELECT COALESCE(MAX(position), 0) + 1 FROM playlist_items WHERE playlist_id = $1`, playlistID); err != nil {
		return PlaylistItem{}, apperr.Wrap(apperr.KindTransient, "store: next playlist position", err)
	}

	var item PlaylistItem
	err = tx.GetContext(ctx, &item, `
		INSERT INTO playlist_items (
			playlist_id, album_id, track_number, platform, playable_url, position,
			verification_status, verification_score, verified_title, embed_kind
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING *`,
		playlistID, albumID, trackNumber, platform, playableURL, nextPos,
		status, score, verifiedTitle, embedKind)
	if err != nil {
		return PlaylistItem{}, apperr.Wrap(apperr.KindTransient, "store: insert playlist item", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE playlists SET updated_at = now() WHERE id = $1`, playlistID); err != nil {
		return PlaylistItem{}, apperr.Wrap(apperr.KindTransient, "store: touch playlist", err)
	}

	if err := tx.Commit(); err != nil {
		return PlaylistItem{}, apperr.Wrap(apperr.KindTransient, "store: commit add_playlist_item", err)
	}
	return item, nil
}

// UpdatePlaylistItemVerification records a verification result against
// an existing item.
func (s *Store) UpdatePlaylistItemVerification(ctx context.Context, itemID int64, status VerificationStatus, score *int, playableURL, verifiedTitle string, embedKind EmbedKind) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE playlist_items SET
			verification_status = $1, verification_score = $2,
			playable_url = $3, verified_title = $4, embed_kind = $5
		WHERE id = $6`, status, score, playableURL, verifiedTitle, embedKind, itemID)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "store: update_playlist_item_verification", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NotFound("store: playlist item not found")
	}
	return nil
}

// DeletePlaylistItem removes one item. Deleting a missing id is not an
// error; positions of the remaining items are left as-is (callers that
// need a dense sequence afterward should follow with ReorderPlaylistItems).
func (s *Store) DeletePlaylistItem(ctx context.Context, itemID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM playlist_items WHERE id = $1`, itemID)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "store: delete_playlist_item", err)
	}
	return nil
}

// ReorderPlaylistItems assigns dense 1-based positions to playlistID's
// items in the order given by itemIDs, as a single transaction over the
// full list. itemIDs must be a permutation of the playlist's current
// item ids; callers are responsible for supplying the complete set.
func (s *Store) ReorderPlaylistItems(ctx context.Context, playlistID int64, itemIDs []int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Fatal("store: begin reorder tx", err)
	}
	defer tx.Rollback()

	for i, id := range itemIDs {
		res, err := tx.ExecContext(ctx, `
			UPDATE playlist_items SET position = $1
			WHERE id = $2 AND playlist_id = $3`, i+1, id, playlistID)
		if err != nil {
			return apperr.Wrap(apperr.KindTransient, "store: reorder item", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return apperr.InputInvalid(fmt.Sprintf("store: item %d is not in playlist %d", id, playlistID))
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE playlists SET updated_at = now() WHERE id = $1`, playlistID); err != nil {
		return apperr.Wrap(apperr.KindTransient, "store: touch playlist", err)
	}

	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.KindTransient, "store: commit reorder", err)
	}
	return nil
}

// AlbumsForPlaylist resolves the dynamic-playlist candidate set: either
// every album on a single day, or every album in an inclusive date
// range, optionally narrowed by OR'd genre substrings, a search string,
// and (when onlyPlayable is true) requiring playable_verified.
func (s *Store) AlbumsForPlaylist(ctx context.Context, day *time.Time, rangeStart, rangeEnd *time.Time, genres []string, search string, onlyPlayable bool) ([]Album, error) {
	var where []string
	var args []any
	argIdx := 1

	switch {
	case day != nil:
		where = append(where, fmt.Sprintf("release_date = $%d", argIdx))
		args = append(args, day.Format("2006-01-02"))
		argIdx++
	case rangeStart != nil && rangeEnd != nil:
		where = append(where, fmt.Sprintf("release_date BETWEEN $%d AND $%d", argIdx, argIdx+1))
		args = append(args, rangeStart.Format("2006-01-02"), rangeEnd.Format("2006-01-02"))
		argIdx += 2
	default:
		return nil, apperr.InputInvalid("store: albums_for_playlist requires a day or a range")
	}

	if len(genres) > 0 {
		var conds []string
		for _, g := range genres {
			conds = append(conds, fmt.Sprintf("genre_raw ILIKE $%d", argIdx))
			args = append(args, "%"+g+"%")
			argIdx++
		}
		where = append(where, "("+strings.Join(conds, " OR ")+")")
	}
	if strings.TrimSpace(search) != "" {
		where = append(where, fmt.Sprintf("(album_name ILIKE $%d OR band_name ILIKE $%d OR genre_raw ILIKE $%d)", argIdx, argIdx, argIdx))
		args = append(args, "%"+strings.TrimSpace(search)+"%")
		argIdx++
	}
	if onlyPlayable {
		where = append(where, "playable_verified = true")
	}

	query := fmt.Sprintf(`
		SELECT * FROM albums WHERE %s
		ORDER BY release_date DESC, band_name, album_name`, strings.Join(where, " AND "))

	var albums []Album
	if err := s.db.SelectContext(ctx, &albums, query, args...); err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "store: albums_for_playlist", err)
	}
	if err := s.attachTracks(ctx, albums); err != nil {
		return nil, err
	}
	return albums, nil
}
