package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/albumvault/catalogd/internal/genre"
	"github.com/albumvault/catalogd/internal/scraper"
	"github.com/albumvault/catalogd/internal/store"
)

func TestVideoIDFromEmbed_ExtractsSingleVideoID(t *testing.T) {
	got := videoIDFromEmbed("https://www.youtube-nocookie.com/embed/abc123")
	if got != "abc123" {
		t.Errorf("videoIDFromEmbed = %q, want abc123", got)
	}
}

func TestVideoIDFromEmbed_IgnoresPlaylistEmbeds(t *testing.T) {
	got := videoIDFromEmbed("https://www.youtube-nocookie.com/embed/videoseries?list=PLxyz")
	if got != "" {
		t.Errorf("videoIDFromEmbed(playlist) = %q, want empty", got)
	}
}

func TestWriteScrapeArtifact_WritesJSONArrayNamedByDate(t *testing.T) {
	dir := t.TempDir()
	o := &Orchestrator{cfg: Config{ArtifactDir: dir}}
	target := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	results := []scraper.Result{{Album: store.Album{AlbumName: "Test"}}}

	path, err := o.writeScrapeArtifact(target, results)
	if err != nil {
		t.Fatalf("writeScrapeArtifact: %v", err)
	}
	if filepath.Base(path) != "albums_07-03-2026.json" {
		t.Errorf("artifact name = %q, want albums_07-03-2026.json", filepath.Base(path))
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var albums []store.Album
	if err := json.Unmarshal(raw, &albums); err != nil {
		t.Fatalf("artifact is not a JSON array of albums: %v", err)
	}
	if len(albums) != 1 || albums[0].AlbumName != "Test" {
		t.Errorf("albums = %+v, want one album named Test", albums)
	}
}

func TestWriteScrapeArtifact_EmptyArtifactDirDisablesDump(t *testing.T) {
	o := &Orchestrator{cfg: Config{}}
	path, err := o.writeScrapeArtifact(time.Now(), nil)
	if err != nil || path != "" {
		t.Errorf("writeScrapeArtifact with empty ArtifactDir = (%q, %v), want (\"\", nil)", path, err)
	}
}

func TestFlattenGenres_ExpandsMainModifierRelated(t *testing.T) {
	parsed := []genre.Parsed{
		{Main: "Black Metal", Modifiers: []string{"Atmospheric"}, Related: []string{"Post-Rock"}, Period: genre.PeriodEarly, Confidence: 0.9},
	}
	rows := flattenGenres(parsed)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	var sawMain, sawMod, sawRel bool
	for _, r := range rows {
		switch r.Kind {
		case store.GenreKindMain:
			sawMain = r.GenreName == "Black Metal" && r.Confidence == 0.9
		case store.GenreKindModifier:
			sawMod = r.GenreName == "Atmospheric"
		case store.GenreKindRelated:
			sawRel = r.GenreName == "Post-Rock"
		}
	}
	if !sawMain || !sawMod || !sawRel {
		t.Errorf("missing expected row kinds: main=%v mod=%v rel=%v", sawMain, sawMod, sawRel)
	}
}
