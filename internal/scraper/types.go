// Package scraper drives a headless browser against the source site to
// list and enrich album records for a target release date. It never
// writes to the Catalog Store; it returns enriched records for the
// Orchestrator to persist, matching services/ingest/internal/providers/
// sync_worker.go's "fetch from source, let the caller persist" shape.
package scraper

import "github.com/albumvault/catalogd/internal/store"

// Result is one album enriched by Run, paired with its parsed tracks
// and cover bytes (if a cover was downloaded this run).
type Result struct {
	Album      store.Album
	Tracks     []store.Track
	CoverBytes []byte
}

// RelatedLinks holds platform landing pages discovered on a band's
// related-links page, keyed the same way store.Album flattens them.
type RelatedLinks struct {
	Bandcamp, YouTube, Spotify, Discogs, LastFM, SoundCloud, Tidal string
}
