//go:build integration

// store_test.go exercises the Catalog Store against a real Postgres
// instance. Run with: go test -tags integration ./internal/store/...
// Requires TEST_POSTGRES_URL (or the local default) to be reachable; the
// test skips itself (not fails) otherwise, so it's safe to run in
// environments without a database.
package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/albumvault/catalogd/internal/store"
	"github.com/albumvault/catalogd/internal/testutil"
)

func openStore(t *testing.T) *store.Store {
	return testutil.OpenStore(t)
}

func TestUpsertAlbum_ReplacesTracks(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	album := store.Album{
		AlbumID:     "band-1/album-1",
		AlbumName:   "First Light",
		BandName:    "Ashen Gate",
		BandID:      "band-1",
		ReleaseDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Type:        store.ReleaseFullLength,
		GenreRaw:    "Atmospheric Black Metal",
	}
	tracks := []store.Track{
		{TrackNumber: 1, TrackName: "Ashes"},
		{TrackNumber: 2, TrackName: "Gate"},
	}
	if err := s.UpsertAlbum(ctx, album, tracks); err != nil {
		t.Fatalf("upsert_album: %v", err)
	}

	got, err := s.AlbumsByDate(ctx, album.ReleaseDate)
	if err != nil {
		t.Fatalf("albums_by_date: %v", err)
	}
	if len(got) != 1 || len(got[0].Tracks) != 2 {
		t.Fatalf("expected 1 album with 2 tracks, got %+v", got)
	}

	tracks = []store.Track{{TrackNumber: 1, TrackName: "Ashes (Remaster)"}}
	if err := s.UpsertAlbum(ctx, album, tracks); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	got, err = s.AlbumsByDate(ctx, album.ReleaseDate)
	if err != nil {
		t.Fatalf("albums_by_date after re-upsert: %v", err)
	}
	if len(got) != 1 || len(got[0].Tracks) != 1 {
		t.Fatalf("expected replaced trackset of 1, got %+v", got[0].Tracks)
	}
}

func TestDeleteByDate_MissingDateReturnsZero(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	n, err := s.DeleteByDate(ctx, time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("delete_by_date: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 deletions, got %d", n)
	}
}

func TestPlaylistCRUDAndReorder(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	album := store.Album{
		AlbumID:     "band-2/album-2",
		AlbumName:   "Hollow Choir",
		BandName:    "Vellum",
		BandID:      "band-2",
		ReleaseDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Type:        store.ReleaseEP,
	}
	if err := s.UpsertAlbum(ctx, album, nil); err != nil {
		t.Fatalf("upsert_album: %v", err)
	}

	pl, err := s.CreatePlaylist(ctx, "Night Rotation", "", true)
	if err != nil {
		t.Fatalf("create_playlist: %v", err)
	}

	item1, err := s.AddPlaylistItemPending(ctx, pl.ID, album.AlbumID, nil, store.PlaylistPlatformVideo)
	if err != nil {
		t.Fatalf("add_playlist_item_pending: %v", err)
	}
	item2, err := s.AddPlaylistItemPending(ctx, pl.ID, album.AlbumID, nil, store.PlaylistPlatformMusicSales)
	if err != nil {
		t.Fatalf("add second item: %v", err)
	}
	if item1.Position != 1 || item2.Position != 2 {
		t.Fatalf("expected dense positions 1,2, got %d,%d", item1.Position, item2.Position)
	}

	if err := s.ReorderPlaylistItems(ctx, pl.ID, []int64{item2.ID, item1.ID}); err != nil {
		t.Fatalf("reorder: %v", err)
	}

	got, err := s.GetPlaylist(ctx, pl.ID)
	if err != nil {
		t.Fatalf("get_playlist: %v", err)
	}
	if got.Items[0].ID != item2.ID || got.Items[1].ID != item1.ID {
		t.Fatalf("reorder did not take effect: %+v", got.Items)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if err := s.SetSetting(ctx, "download.max_parallel", 5, "cache"); err != nil {
		t.Fatalf("set_setting: %v", err)
	}
	got, err := s.GetSetting(ctx, "download.max_parallel")
	if err != nil {
		t.Fatalf("get_setting: %v", err)
	}
	if got.Category != "cache" {
		t.Fatalf("expected category cache, got %s", got.Category)
	}
}
