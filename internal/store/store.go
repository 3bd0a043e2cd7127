package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/albumvault/catalogd/internal/apperr"
)

// Store is the sole owner of every table in the schema.
type Store struct {
	db *sqlx.DB
}

// Open connects to Postgres via lib/pq (matching
// services/catalog/cmd/catalog/main.go's connectDB) and wraps the
// resulting *sql.DB with sqlx for struct-tag scanning.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for components that need direct
// access (the HTTP service's audit-log writes through pkg/audit).
func (s *Store) DB() *sqlx.DB { return s.db }

// UpsertAlbum replaces the row under album.AlbumID and atomically
// replaces its tracks, matching insert_album's "DELETE tracks then
// re-INSERT" shape from the reference db_manager.py.
func (s *Store) UpsertAlbum(ctx context.Context, album Album, tracks []Track) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Fatal("store: begin upsert_album tx", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO albums (
			album_id, album_name, album_url, band_name, band_id, band_url,
			release_date, release_date_raw, type, cover_art_url, cover_path,
			bandcamp_url, youtube_url, spotify_url, discogs_url, lastfm_url,
			soundcloud_url, tidal_url, verified_embeds, playable_verified, verified_at,
			country_of_origin, location, genre_raw, themes, current_label, years_active,
			details, created_at
		) VALUES (
			:album_id, :album_name, :album_url, :band_name, :band_id, :band_url,
			:release_date, :release_date_raw, :type, :cover_art_url, :cover_path,
			:bandcamp_url, :youtube_url, :spotify_url, :discogs_url, :lastfm_url,
			:soundcloud_url, :tidal_url, :verified_embeds, :playable_verified, :verified_at,
			:country_of_origin, :location, :genre_raw, :themes, :current_label, :years_active,
			:details, now()
		)
		ON CONFLICT (album_id) DO UPDATE SET
			album_name = EXCLUDED.album_name,
			album_url = EXCLUDED.album_url,
			band_name = EXCLUDED.band_name,
			band_id = EXCLUDED.band_id,
			band_url = EXCLUDED.band_url,
			release_date = EXCLUDED.release_date,
			release_date_raw = EXCLUDED.release_date_raw,
			type = EXCLUDED.type,
			cover_art_url = EXCLUDED.cover_art_url,
			cover_path = EXCLUDED.cover_path,
			bandcamp_url = EXCLUDED.bandcamp_url,
			youtube_url = EXCLUDED.youtube_url,
			spotify_url = EXCLUDED.spotify_url,
			discogs_url = EXCLUDED.discogs_url,
			lastfm_url = EXCLUDED.lastfm_url,
			soundcloud_url = EXCLUDED.soundcloud_url,
			tidal_url = EXCLUDED.tidal_url,
			country_of_origin = EXCLUDED.country_of_origin,
			location = EXCLUDED.location,
			genre_raw = EXCLUDED.genre_raw,
			themes = EXCLUDED.themes,
			current_label = EXCLUDED.current_label,
			years_active = EXCLUDED.years_active,
			details = EXCLUDED.details
	`, album)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "store: upsert album", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tracks WHERE album_id = $1`, album.AlbumID); err != nil {
		return apperr.Wrap(apperr.KindTransient, "store: clear tracks", err)
	}
	for _, t := range tracks {
		t.AlbumID = album.AlbumID
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO tracks (album_id, track_number, track_name, track_length, lyrics_url)
			VALUES (:album_id, :track_number, :track_name, :track_length, :lyrics_url)
		`, t); err != nil {
			return apperr.Wrap(apperr.KindTransient, "store: insert track", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.KindTransient, "store: commit upsert_album", err)
	}
	return nil
}

// UpdateVerification persists the per-platform embed results the
// verifier produced for albumID and flips playable_verified when at
// least one platform was found, matching update_album_verification's
// targeted-column update from db_manager.py (the rest of the row is
// untouched, unlike UpsertAlbum's full replace).
func (s *Store) UpdateVerification(ctx context.Context, albumID string, embeds VerifiedEmbeds, playableVerified bool) error {
	var verifiedAt *time.Time
	if playableVerified {
		now := time.Now().UTC()
		verifiedAt = &now
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE albums SET verified_embeds = $2, playable_verified = $3, verified_at = $4
		WHERE album_id = $1
	`, albumID, embeds, playableVerified, verifiedAt)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "store: update verification", err)
	}
	return nil
}

// DeleteByDate cascades tracks and playlist items for every album
// released on day. Missing rows are not an error; it returns the
// number of albums deleted.
func (s *Store) DeleteByDate(ctx context.Context, day time.Time) (int, error) {
	return s.deleteWhere(ctx, `release_date = $1`, day.Format("2006-01-02"))
}

// DeleteByRange cascades albums released in [d1, d2] inclusive.
func (s *Store) DeleteByRange(ctx context.Context, d1, d2 time.Time) (int, error) {
	return s.deleteWhere(ctx, `release_date BETWEEN $1 AND $2`, d1.Format("2006-01-02"), d2.Format("2006-01-02"))
}

func (s *Store) deleteWhere(ctx context.Context, where string, args ...any) (int, error) {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM albums WHERE %s`, where), args...)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindTransient, "store: delete albums", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// AlbumsByDate returns every album released on day, band/album ordered,
// with tracks attached.
func (s *Store) AlbumsByDate(ctx context.Context, day time.Time) ([]Album, error) {
	var albums []Album
	err := s.db.SelectContext(ctx, &albums, `
		SELECT * FROM albums WHERE release_date = $1
		ORDER BY band_name, album_name`, day.Format("2006-01-02"))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "store: albums_by_date", err)
	}
	if err := s.attachTracks(ctx, albums); err != nil {
		return nil, err
	}
	return albums, nil
}

// PeriodKind selects the grouping granularity for albums_by_period:
// day, week, or month.
type PeriodKind string

const (
	PeriodDay   PeriodKind = "day"
	PeriodWeek  PeriodKind = "week"
	PeriodMonth PeriodKind = "month"
)

// AlbumsByPeriodResult is a page plus total, matching the reference
// get_albums_by_period's response shape.
type AlbumsByPeriodResult struct {
	Albums    []Album
	Total     int
	StartDate time.Time
	EndDate   time.Time
}

// AlbumsByPeriod pages albums within the date range implied by kind and
// key ("YYYY-Www" for week, "YYYY-MM" for month, "YYYY-MM-DD" for day),
// applying OR'd genre substring filters and a case-insensitive search
// across album/band/genre.
func (s *Store) AlbumsByPeriod(ctx context.Context, kind PeriodKind, key string, offset, limit int, genres []string, search string) (AlbumsByPeriodResult, error) {
	start, end, err := periodRange(ctx, s.db, kind, key)
	if err != nil {
		return AlbumsByPeriodResult{}, err
	}
	if start.IsZero() {
		return AlbumsByPeriodResult{}, nil
	}

	where := []string{"release_date >= $1", "release_date <= $2"}
	args := []any{start.Format("2006-01-02"), end.Format("2006-01-02")}
	argIdx := 3

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
	whereClause := strings.Join(where, " AND ")

	var total int
	if err := s.db.GetContext(ctx, &total, fmt.Sprintf(`SELECT COUNT(*) FROM albums WHERE %s`, whereClause), args...); err != nil {
		return AlbumsByPeriodResult{}, apperr.Wrap(apperr.KindTransient, "store: count albums_by_period", err)
	}

	pagedArgs := append(append([]any{}, args...), limit, offset)
	query := fmt.Sprintf(`
		SELECT * FROM albums WHERE %s
		ORDER BY release_date DESC, band_name, album_name
		LIMIT $%d OFFSET $%d`, whereClause, argIdx, argIdx+1)

	var albums []Album
	if err := s.db.SelectContext(ctx, &albums, query, pagedArgs...); err != nil {
		return AlbumsByPeriodResult{}, apperr.Wrap(apperr.KindTransient, "store: query albums_by_period", err)
	}
	if err := s.attachTracks(ctx, albums); err != nil {
		return AlbumsByPeriodResult{}, err
	}

	return AlbumsByPeriodResult{Albums: albums, Total: total, StartDate: start, EndDate: end}, nil
}

// PeriodRange resolves a period kind+key into an inclusive date range.
// Exported for callers that need the bounds without paging through
// AlbumsByPeriod itself, such as the dynamic playlist endpoint.
func (s *Store) PeriodRange(ctx context.Context, kind PeriodKind, key string) (time.Time, time.Time, error) {
	return periodRange(ctx, s.db, kind, key)
}

// periodRange resolves a period kind+key into an inclusive date range,
// matching get_albums_by_period's week/month branches which derive the
// range from MIN/MAX(release_date) rather than computing ISO week
// bounds directly.
func periodRange(ctx context.Context, db *sqlx.DB, kind PeriodKind, key string) (time.Time, time.Time, error) {
	switch kind {
	case PeriodDay:
		d, err := time.Parse("2006-01-02", key)
		if err != nil {
			return time.Time{}, time.Time{}, apperr.InputInvalid("store: invalid day key")
		}
		return d, d, nil
	case PeriodWeek:
		var row struct {
			Start sql.NullTime `db:"start"`
			End   sql.NullTime `db:"end"`
		}
		err := db.GetContext(ctx, &row, `
			SELECT MIN(release_date) AS start, MAX(release_date) AS end
			FROM albums WHERE to_char(release_date, 'IYYY-"W"IW') = $1`, key)
		if err != nil {
			return time.Time{}, time.Time{}, apperr.Wrap(apperr.KindTransient, "store: resolve week range", err)
		}
		if !row.Start.Valid {
			return time.Time{}, time.Time{}, nil
		}
		return row.Start.Time, row.End.Time, nil
	case PeriodMonth:
		var row struct {
			Start sql.NullTime `db:"start"`
			End   sql.NullTime `db:"end"`
		}
		err := db.GetContext(ctx, &row, `
			SELECT MIN(release_date) AS start, MAX(release_date) AS end
			FROM albums WHERE to_char(release_date, 'YYYY-MM') = $1`, key)
		if err != nil {
			return time.Time{}, time.Time{}, apperr.Wrap(apperr.KindTransient, "store: resolve month range", err)
		}
		if !row.Start.Valid {
			return time.Time{}, time.Time{}, nil
		}
		return row.Start.Time, row.End.Time, nil
	default:
		return time.Time{}, time.Time{}, apperr.InputInvalid("store: invalid period kind")
	}
}

// GroupedDatesEntry aggregates album counts per period.
type GroupedDatesEntry struct {
	PeriodKey string    `db:"period_key" json:"period_key"`
	Count     int       `db:"album_count" json:"album_count"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
}

// GroupedDates aggregates album counts per day/week/month.
func (s *Store) GroupedDates(ctx context.Context, kind PeriodKind) ([]GroupedDatesEntry, error) {
	var format string
	switch kind {
	case PeriodDay:
		format = "YYYY-MM-DD"
	case PeriodWeek:
		format = `IYYY-"W"IW`
	case PeriodMonth:
		format = "YYYY-MM"
	default:
		return nil, apperr.InputInvalid("store: invalid period kind")
	}

	var entries []GroupedDatesEntry
	err := s.db.SelectContext(ctx, &entries, fmt.Sprintf(`
		SELECT to_char(release_date, '%s') AS period_key,
		       COUNT(*) AS album_count,
		       MIN(release_date) AS start_date,
		       MAX(release_date) AS end_date
		FROM albums
		WHERE release_date IS NOT NULL
		GROUP BY period_key
		ORDER BY period_key DESC`, format))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "store: grouped_dates", err)
	}
	return entries, nil
}

func (s *Store) attachTracks(ctx context.Context, albums []Album) error {
	for i := range albums {
		var tracks []Track
		err := s.db.SelectContext(ctx, &tracks, `
			SELECT * FROM tracks WHERE album_id = $1 ORDER BY track_number`, albums[i].AlbumID)
		if err != nil {
			return apperr.Wrap(apperr.KindTransient, "store: attach tracks", err)
		}
		albums[i].Tracks = tracks
	}
	return nil
}
