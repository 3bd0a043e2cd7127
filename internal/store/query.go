package store

import (
	"context"
	"time"

	"github.com/albumvault/catalogd/internal/apperr"
)

// Dates returns every distinct release_date present in the catalog,
// newest first, for the plain /dates listing (as opposed to
// GroupedDates' day/week/month aggregation).
func (s *Store) Dates(ctx context.Context) ([]time.Time, error) {
	var dates []time.Time
	err := s.db.SelectContext(ctx, &dates, `
		SELECT DISTINCT release_date FROM albums
		WHERE release_date IS NOT NULL
		ORDER BY release_date DESC`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "store: dates", err)
	}
	return dates, nil
}

// AlbumByID loads a single album with its tracks, for callers (like
// playlist item insertion) that already hold an album_id rather than
// a date or period.
func (s *Store) AlbumByID(ctx context.Context, albumID string) (Album, error) {
	var album Album
	err := s.db.GetContext(ctx, &album, `SELECT * FROM albums WHERE album_id = $1`, albumID)
	if err != nil {
		return Album{}, apperr.NotFound("store: album not found")
	}
	albums := []Album{album}
	if err := s.attachTracks(ctx, albums); err != nil {
		return Album{}, err
	}
	return albums[0], nil
}

// Search performs a case-insensitive substring match across album
// name, band name, and raw genre string, capped at limit rows.
func (s *Store) Search(ctx context.Context, q string, limit int) ([]Album, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var albums []Album
	err := s.db.SelectContext(ctx, &albums, `
		SELECT * FROM albums
		WHERE album_name ILIKE $1 OR band_name ILIKE $1 OR genre_raw ILIKE $1
		ORDER BY release_date DESC, band_name, album_name
		LIMIT $2`, "%"+q+"%", limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "store: search", err)
	}
	if err := s.attachTracks(ctx, albums); err != nil {
		return nil, err
	}
	return albums, nil
}

// Summary aggregates catalog-wide counts for the admin dashboard.
type Summary struct {
	TotalAlbums      int       `db:"total_albums" json:"total_albums"`
	PlayableVerified int       `db:"playable_verified" json:"playable_verified"`
	TotalGenres      int       `db:"-" json:"total_genres"`
	EarliestRelease  time.Time `db:"earliest_release" json:"earliest_release"`
	LatestRelease    time.Time `db:"latest_release" json:"latest_release"`
}

// Summary reports catalog-wide totals.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	var sm Summary
	err := s.db.GetContext(ctx, &sm, `
		SELECT
			COUNT(*) AS total_albums,
			COUNT(*) FILTER (WHERE playable_verified) AS playable_verified,
			COALESCE(MIN(release_date), now()) AS earliest_release,
			COALESCE(MAX(release_date), now()) AS latest_release
		FROM albums`)
	if err != nil {
		return Summary{}, apperr.Wrap(apperr.KindTransient, "store: summary albums", err)
	}
	if err := s.db.GetContext(ctx, &sm.TotalGenres, `SELECT COUNT(*) FROM genre_taxonomy`); err != nil {
		return Summary{}, apperr.Wrap(apperr.KindTransient, "store: summary genres", err)
	}
	return sm, nil
}
