// cmd/seed/main.go — sample catalog seed script for local development.
//
// Populates the database with a handful of representative albums,
// tracks, and genre taxonomy entries so a developer can run catalogd
// locally and exercise the catalog-read/playlist/verification surface
// without first running the Scraper against live Bandcamp pages.
//
// Usage:
//
//	go run ./cmd/seed                  # seed everything
//	go run ./cmd/seed --only=albums    # seed specific categories (albums, genres)
//	go run ./cmd/seed --dry-run        # print what would be inserted, no DB writes
//
// Environment:
//
//	POSTGRES_URL — database connection string (required)
//
// Safety: every INSERT uses ON CONFLICT DO NOTHING so re-running is
// safe. Run in development only — never against production.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type seedAlbum struct {
	AlbumID      string
	AlbumName    string
	BandName     string
	BandID       string
	ReleaseDate  string // YYYY-MM-DD
	Type         string
	GenreRaw     string
	CountryOf    string
	BandcampURL  string
	Tracks       []seedTrack
}

type seedTrack struct {
	Number int
	Name   string
	Length string
}

var seedAlbums = []seedAlbum{
	{
		AlbumID: "seed-001", AlbumName: "Concrete Horizon", BandName: "Gravel Choir", BandID: "gravel-choir",
		ReleaseDate: "2026-01-15", Type: "full-length", GenreRaw: "Post-Hardcore, Sludge",
		CountryOf: "United States", BandcampURL: "https://gravelchoir.bandcamp.com/album/concrete-horizon",
		Tracks: []seedTrack{
			{1, "Rebar", "3:41"}, {2, "Concrete Horizon", "4:58"}, {3, "Foundations", "3:12"},
		},
	},
	{
		AlbumID: "seed-002", AlbumName: "Auroral Drift", BandName: "Nightglass", BandID: "nightglass",
		ReleaseDate: "2026-01-15", Type: "full-length", GenreRaw: "Atmospheric Black Metal",
		CountryOf: "Norway", BandcampURL: "https://nightglass.bandcamp.com/album/auroral-drift",
		Tracks: []seedTrack{
			{1, "Polar Silence", "7:02"}, {2, "Auroral Drift", "9:45"},
		},
	},
	{
		AlbumID: "seed-003", AlbumName: "Low Tide Sessions", BandName: "Salt Lung", BandID: "salt-lung",
		ReleaseDate: "2026-01-22", Type: "EP", GenreRaw: "Doom, Stoner Rock",
		CountryOf: "United Kingdom", BandcampURL: "https://saltlung.bandcamp.com/album/low-tide-sessions",
		Tracks: []seedTrack{
			{1, "Brine", "6:18"}, {2, "Low Tide", "5:54"}, {3, "Wrack Line", "8:03"},
		},
	},
}

var seedGenres = []struct {
	Name, Normalized, Parent, Category string
}{
	{"Post-Hardcore", "post-hardcore", "", "base"},
	{"Sludge", "sludge", "", "base"},
	{"Atmospheric Black Metal", "atmospheric-black-metal", "Black Metal", "base"},
	{"Doom", "doom", "", "base"},
	{"Stoner Rock", "stoner-rock", "", "base"},
}

func main() {
	var (
		only   = flag.String("only", "", "comma-separated categories to seed: albums,genres (default: all)")
		dryRun = flag.Bool("dry-run", false, "print what would be inserted, no DB writes")
	)
	flag.Parse()

	categories := map[string]bool{"albums": true, "genres": true}
	if *only != "" {
		categories = map[string]bool{}
		for _, c := range strings.Split(*only, ",") {
			categories[strings.TrimSpace(c)] = true
		}
	}

	dsn := os.Getenv("POSTGRES_URL")
	if dsn == "" {
		log.Fatal("POSTGRES_URL is required")
	}

	if *dryRun {
		if categories["albums"] {
			fmt.Printf("would insert %d albums\n", len(seedAlbums))
		}
		if categories["genres"] {
			fmt.Printf("would insert %d genre taxonomy entries\n", len(seedGenres))
		}
		return
	}

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("ping db: %v", err)
	}

	if categories["genres"] {
		if err := seedGenreTaxonomy(ctx, db); err != nil {
			log.Fatalf("seed genres: %v", err)
		}
	}
	if categories["albums"] {
		if err := seedAlbumsAndTracks(ctx, db); err != nil {
			log.Fatalf("seed albums: %v", err)
		}
	}
	log.Println("seed complete")
}

func seedGenreTaxonomy(ctx context.Context, db *sqlx.DB) error {
	for _, g := range seedGenres {
		_, err := db.ExecContext(ctx, `
			INSERT INTO genre_taxonomy (genre_name, normalized_name, parent_name, category)
			VALUES ($1, $2, NULLIF($3, ''), $4)
			ON CONFLICT (genre_name) DO NOTHING`,
			g.Name, g.Normalized, g.Parent, g.Category)
		if err != nil {
			return fmt.Errorf("insert genre %s: %w", g.Name, err)
		}
	}
	return nil
}

func seedAlbumsAndTracks(ctx context.Context, db *sqlx.DB) error {
	for _, a := range seedAlbums {
		_, err := db.ExecContext(ctx, `
			INSERT INTO albums (album_id, album_name, album_url, band_name, band_id, band_url,
				release_date, type, genre_raw, country_of_origin, bandcamp_url)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (album_id) DO NOTHING`,
			a.AlbumID, a.AlbumName, a.BandcampURL, a.BandName, a.BandID, a.BandcampURL,
			a.ReleaseDate, a.Type, a.GenreRaw, a.CountryOf, a.BandcampURL)
		if err != nil {
			return fmt.Errorf("insert album %s: %w", a.AlbumID, err)
		}
		for _, t := range a.Tracks {
			_, err := db.ExecContext(ctx, `
				INSERT INTO tracks (album_id, track_number, track_name, track_length)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (album_id, track_number) DO NOTHING`,
				a.AlbumID, t.Number, t.Name, t.Length)
			if err != nil {
				return fmt.Errorf("insert track %s/%d: %w", a.AlbumID, t.Number, err)
			}
		}
	}
	return nil
}
