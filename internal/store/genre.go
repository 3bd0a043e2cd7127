package store

import (
	"context"
	"strings"

	"github.com/albumvault/catalogd/internal/apperr"
)

// modifierConfidenceFactor and relatedConfidenceFactor scale a parsed
// genre's own confidence down when persisted as a modifier or related
// row, matching insert_parsed_genres' per-kind weighting in
// db_manager.py.
const (
	modifierConfidenceFactor = 0.8
	relatedConfidenceFactor  = 0.7
)

// InsertParsedGenres atomically replaces every ParsedGenre row for
// albumID with genres, expanding each into main/modifier/related rows.
// mains carry their own confidence; modifiers and related genres are
// scaled down per the factors above.
func (s *Store) InsertParsedGenres(ctx context.Context, albumID string, genres []ParsedGenre) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Fatal("store: begin insert_parsed_genres tx", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM parsed_genres WHERE album_id = $1`, albumID); err != nil {
		return apperr.Wrap(apperr.KindTransient, "store: clear parsed_genres", err)
	}

	for _, g := range genres {
		g.AlbumID = albumID
		switch g.Kind {
		case GenreKindModifier:
			g.Confidence *= modifierConfidenceFactor
		case GenreKindRelated:
			g.Confidence *= relatedConfidenceFactor
		}
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO parsed_genres (album_id, genre_name, genre_kind, confidence, period)
			VALUES (:album_id, :genre_name, :genre_kind, :confidence, :period)
		`, g)
		if err != nil {
			return apperr.Wrap(apperr.KindTransient, "store: insert parsed_genre", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.KindTransient, "store: commit insert_parsed_genres", err)
	}
	return nil
}

// ParsedGenresByAlbum returns every genre row for albumID.
func (s *Store) ParsedGenresByAlbum(ctx context.Context, albumID string) ([]ParsedGenre, error) {
	var genres []ParsedGenre
	err := s.db.SelectContext(ctx, &genres, `
		SELECT * FROM parsed_genres WHERE album_id = $1 ORDER BY genre_kind, genre_name`, albumID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "store: parsed_genres_by_album", err)
	}
	return genres, nil
}

// AllGenres lists every distinct genre name in the taxonomy.
func (s *Store) AllGenres(ctx context.Context) ([]GenreTaxonomy, error) {
	var rows []GenreTaxonomy
	err := s.db.SelectContext(ctx, &rows, `SELECT * FROM genre_taxonomy ORDER BY genre_name`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "store: all_genres", err)
	}
	splitAliases(rows)
	return rows, nil
}

// SearchGenres returns taxonomy entries whose name or alias list
// contains the case-insensitive substring q.
func (s *Store) SearchGenres(ctx context.Context, q string) ([]GenreTaxonomy, error) {
	var rows []GenreTaxonomy
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM genre_taxonomy
		WHERE genre_name ILIKE $1 OR normalized_name ILIKE $1 OR aliases ILIKE $1
		ORDER BY genre_name`, "%"+q+"%")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "store: search_genres", err)
	}
	splitAliases(rows)
	return rows, nil
}

func splitAliases(rows []GenreTaxonomy) {
	for i := range rows {
		if rows[i].AliasesRaw == "" {
			continue
		}
		rows[i].Aliases = strings.Split(rows[i].AliasesRaw, ",")
	}
}

// UpsertGenreTaxonomy inserts or replaces a single taxonomy entry,
// joining Aliases into the comma-separated storage form.
func (s *Store) UpsertGenreTaxonomy(ctx context.Context, t GenreTaxonomy) error {
	t.AliasesRaw = strings.Join(t.Aliases, ",")
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO genre_taxonomy (genre_name, normalized_name, parent_name, category, aliases, ui_color)
		VALUES (:genre_name, :normalized_name, :parent_name, :category, :aliases, :ui_color)
		ON CONFLICT (genre_name) DO UPDATE SET
			normalized_name = EXCLUDED.normalized_name,
			parent_name = EXCLUDED.parent_name,
			category = EXCLUDED.category,
			aliases = EXCLUDED.aliases,
			ui_color = EXCLUDED.ui_color
	`, t)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "store: upsert_genre_taxonomy", err)
	}
	return nil
}

// AlbumsByGenre returns every album whose genre_raw column contains
// name as a case-insensitive substring.
func (s *Store) AlbumsByGenre(ctx context.Context, name string) ([]Album, error) {
	var albums []Album
	err := s.db.SelectContext(ctx, &albums, `
		SELECT * FROM albums WHERE genre_raw ILIKE $1
		ORDER BY release_date DESC, band_name, album_name`, "%"+name+"%")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "store: albums_by_genre", err)
	}
	if err := s.attachTracks(ctx, albums); err != nil {
		return nil, err
	}
	return albums, nil
}

// RecomputeGenreStats derives per-genre album counts and release date
// bounds from the current albums/parsed_genres join, replacing the
// entire genre_stats table in one transaction. Callers must invoke
// this explicitly after any mutation that could change the result
// (new scrape, genre re-parse, album delete) — it is not triggered
// automatically.
func (s *Store) RecomputeGenreStats(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Fatal("store: begin recompute_genre_stats tx", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM genre_stats`); err != nil {
		return apperr.Wrap(apperr.KindTransient, "store: clear genre_stats", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO genre_stats (genre_name, album_count, earliest_release, latest_release)
		SELECT pg.genre_name,
		       COUNT(DISTINCT pg.album_id),
		       MIN(a.release_date),
		       MAX(a.release_date)
		FROM parsed_genres pg
		JOIN albums a ON a.album_id = pg.album_id
		GROUP BY pg.genre_name
	`)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "store: recompute_genre_stats", err)
	}

	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.KindTransient, "store: commit recompute_genre_stats", err)
	}
	return nil
}

// GenreStatistics returns the current materialized genre_stats rows.
func (s *Store) GenreStatistics(ctx context.Context) ([]GenreStats, error) {
	var rows []GenreStats
	err := s.db.SelectContext(ctx, &rows, `SELECT * FROM genre_stats ORDER BY album_count DESC, genre_name`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "store: genre_statistics", err)
	}
	return rows, nil
}
