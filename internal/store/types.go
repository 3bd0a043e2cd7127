// Package store implements the Catalog Store component: the single
// owner of every table in the schema, exposing a narrow mutation
// surface and a query surface over PostgreSQL.
//
// Queries use sqlx struct scanning over lib/pq. The advisory-lock
// single-flight gate used by the Orchestrator is the one place in this
// module that uses jackc/pgx/v5's pgxpool, through its own pool outside
// this package.
package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReleaseType enumerates the album's release kind.
type ReleaseType string

const (
	ReleaseFullLength  ReleaseType = "full-length"
	ReleaseEP          ReleaseType = "ep"
	ReleaseSingle      ReleaseType = "single"
	ReleaseDemo        ReleaseType = "demo"
	ReleaseCompilation ReleaseType = "compilation"
	ReleaseOther       ReleaseType = "other"
)

// EmbedKind distinguishes a single-video embed from a playlist embed.
type EmbedKind string

const (
	EmbedVideo    EmbedKind = "video"
	EmbedPlaylist EmbedKind = "playlist"
)

// Platform is one of the seven external link/embed targets carried on
// an Album, matching db_manager.py's fixed column set
// (bandcamp/youtube/spotify/discogs/lastfm/soundcloud/tidal).
type Platform string

const (
	PlatformBandcamp   Platform = "bandcamp"
	PlatformYouTube    Platform = "youtube"
	PlatformSpotify    Platform = "spotify"
	PlatformDiscogs    Platform = "discogs"
	PlatformLastFM     Platform = "lastfm"
	PlatformSoundCloud Platform = "soundcloud"
	PlatformTidal      Platform = "tidal"
)

// PlaylistPlatform is the reduced platform axis playlist items verify
// against: a streaming video embed, or a music-sales embed (Bandcamp).
type PlaylistPlatform string

const (
	PlaylistPlatformVideo      PlaylistPlatform = "video"
	PlaylistPlatformMusicSales PlaylistPlatform = "music-sales"
)

// VerificationStatus is a playlist item's verification state.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationFailed   VerificationStatus = "failed"
)

// JSONMap is an opaque JSON object persisted as jsonb.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(src any) error {
	if src == nil {
		*m = JSONMap{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("store: JSONMap.Scan: unsupported type %T", src)
	}
	return json.Unmarshal(b, m)
}

// VerifiedEmbed is one platform's verification result, stored per
// album as a JSONB map keyed by Platform.
type VerifiedEmbed struct {
	EmbedURL     string    `json:"embed_url"`
	MatchedTitle string    `json:"matched_title"`
	Score        int       `json:"score"`
	Kind         EmbedKind `json:"kind"`
}

// VerifiedEmbeds maps Platform -> VerifiedEmbed for a single album.
type VerifiedEmbeds map[Platform]VerifiedEmbed

func (v VerifiedEmbeds) Value() (driver.Value, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}

func (v *VerifiedEmbeds) Scan(src any) error {
	if src == nil {
		*v = VerifiedEmbeds{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("store: VerifiedEmbeds.Scan: unsupported type %T", src)
	}
	return json.Unmarshal(b, v)
}

// Album is the central catalog entity.
type Album struct {
	AlbumID          string         `db:"album_id" json:"album_id"`
	AlbumName        string         `db:"album_name" json:"album_name"`
	AlbumURL         string         `db:"album_url" json:"album_url"`
	BandName         string         `db:"band_name" json:"band_name"`
	BandID           string         `db:"band_id" json:"band_id"`
	BandURL          string         `db:"band_url" json:"band_url"`
	ReleaseDate      time.Time      `db:"release_date" json:"release_date"`
	ReleaseDateRaw   string         `db:"release_date_raw" json:"release_date_raw"`
	Type             ReleaseType    `db:"type" json:"type"`
	CoverArtURL      string         `db:"cover_art_url" json:"cover_art_url"`
	CoverPath        string         `db:"cover_path" json:"cover_path,omitempty"`
	BandcampURL      string         `db:"bandcamp_url" json:"bandcamp_url,omitempty"`
	YouTubeURL       string         `db:"youtube_url" json:"youtube_url,omitempty"`
	SpotifyURL       string         `db:"spotify_url" json:"spotify_url,omitempty"`
	DiscogsURL       string         `db:"discogs_url" json:"discogs_url,omitempty"`
	LastFMURL        string         `db:"lastfm_url" json:"lastfm_url,omitempty"`
	SoundCloudURL    string         `db:"soundcloud_url" json:"soundcloud_url,omitempty"`
	TidalURL         string         `db:"tidal_url" json:"tidal_url,omitempty"`
	VerifiedEmbeds   VerifiedEmbeds `db:"verified_embeds" json:"verified_embeds"`
	PlayableVerified bool           `db:"playable_verified" json:"playable_verified"`
	VerifiedAt       *time.Time     `db:"verified_at" json:"verified_at,omitempty"`
	CountryOfOrigin  string         `db:"country_of_origin" json:"country_of_origin,omitempty"`
	Location         string         `db:"location" json:"location,omitempty"`
	GenreRaw         string         `db:"genre_raw" json:"genre_raw,omitempty"`
	Themes           string         `db:"themes" json:"themes,omitempty"`
	CurrentLabel     string         `db:"current_label" json:"current_label,omitempty"`
	YearsActive      string         `db:"years_active" json:"years_active,omitempty"`
	Details          JSONMap        `db:"details" json:"details,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`

	Tracks []Track `db:"-" json:"tracklist,omitempty"`
}

// Track belongs to exactly one album, keyed by (album, track number).
type Track struct {
	AlbumID     string `db:"album_id" json:"-"`
	TrackNumber int    `db:"track_number" json:"track_number"`
	TrackName   string `db:"track_name" json:"track_name"`
	Length      string `db:"track_length" json:"track_length,omitempty"`
	LyricsURL   string `db:"lyrics_url" json:"lyrics_url,omitempty"`
}

// GenreKind distinguishes a ParsedGenre row's role.
type GenreKind string

const (
	GenreKindMain     GenreKind = "main"
	GenreKindModifier GenreKind = "modifier"
	GenreKindRelated  GenreKind = "related"
)

// Period mirrors internal/genre.Period for persistence; kept as a
// distinct string type here so the store package has no dependency on
// internal/genre (callers convert at the boundary).
type Period string

const (
	PeriodNone  Period = ""
	PeriodEarly Period = "early"
	PeriodMid   Period = "mid"
	PeriodLater Period = "later"
)

// ParsedGenre is one (album, genre, kind) row.
type ParsedGenre struct {
	AlbumID    string    `db:"album_id" json:"album_id"`
	GenreName  string    `db:"genre_name" json:"genre_name"`
	Kind       GenreKind `db:"genre_kind" json:"genre_kind"`
	Confidence float64   `db:"confidence" json:"confidence"`
	Period     Period    `db:"period" json:"period"`
}

// GenreTaxonomyCategory classifies a taxonomy entry.
type GenreTaxonomyCategory string

const (
	TaxonomyBase     GenreTaxonomyCategory = "base"
	TaxonomyModifier GenreTaxonomyCategory = "modifier"
	TaxonomyStyle    GenreTaxonomyCategory = "style"
)

// GenreTaxonomy is the derived normalized-genre reference table.
type GenreTaxonomy struct {
	GenreName      string                `db:"genre_name" json:"genre_name"`
	NormalizedName string                `db:"normalized_name" json:"normalized_name"`
	ParentName     *string               `db:"parent_name" json:"parent_name,omitempty"`
	Category       GenreTaxonomyCategory `db:"category" json:"category"`
	Aliases        []string              `db:"-" json:"aliases,omitempty"`
	AliasesRaw     string                `db:"aliases" json:"-"`
	UIColor        string                `db:"ui_color" json:"ui_color,omitempty"`
}

// GenreStats is a recomputed, derived aggregate per genre name.
type GenreStats struct {
	GenreName       string    `db:"genre_name" json:"genre_name"`
	AlbumCount      int       `db:"album_count" json:"album_count"`
	EarliestRelease time.Time `db:"earliest_release" json:"earliest_release"`
	LatestRelease   time.Time `db:"latest_release" json:"latest_release"`
}

// Playlist is a user-curated ordered set of playable items.
type Playlist struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	IsPublic    bool      `db:"is_public" json:"is_public"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
	ItemCount   int       `db:"item_count" json:"item_count"`

	Items []PlaylistItem `db:"-" json:"items,omitempty"`
}

// PlaylistItem is one entry in a playlist.
type PlaylistItem struct {
	ID                 int64              `db:"id" json:"id"`
	PlaylistID         int64              `db:"playlist_id" json:"playlist_id"`
	AlbumID            string             `db:"album_id" json:"album_id"`
	TrackNumber        *int               `db:"track_number" json:"track_number,omitempty"`
	Platform           PlaylistPlatform   `db:"platform" json:"platform"`
	PlayableURL        string             `db:"playable_url" json:"playable_url,omitempty"`
	Position           int                `db:"position" json:"position"`
	VerificationStatus VerificationStatus `db:"verification_status" json:"verification_status"`
	VerificationScore  *int               `db:"verification_score" json:"verification_score,omitempty"`
	VerifiedTitle      string             `db:"verified_title" json:"verified_title,omitempty"`
	EmbedKind          EmbedKind          `db:"embed_kind" json:"embed_kind,omitempty"`
}

// Setting is a JSON-valued, categorized process-global configuration
// entry, hot-reloadable by every component through this package.
type Setting struct {
	Key         string    `db:"key" json:"key"`
	Value       []byte    `db:"value" json:"value"`
	Category    string    `db:"category" json:"category"`
	Description *string   `db:"description" json:"description,omitempty"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// AdminAuth is the single administrative credential record.
type AdminAuth struct {
	ID             int64      `db:"id" json:"-"`
	PasswordHash   string     `db:"password_hash" json:"-"`
	Salt           string     `db:"salt" json:"-"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	LastLogin      *time.Time `db:"last_login" json:"last_login,omitempty"`
	FailedAttempts int        `db:"failed_attempts" json:"-"`
	LockoutUntil   *time.Time `db:"lockout_until" json:"-"`
}
