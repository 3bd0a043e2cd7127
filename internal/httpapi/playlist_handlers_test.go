package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/albumvault/catalogd/internal/store"
)

func TestChoosePlaylistEmbed_PrefersVideoOverMusicSales(t *testing.T) {
	embeds := store.VerifiedEmbeds{
		store.PlatformYouTube:  {EmbedURL: "https://www.youtube-nocookie.com/embed/abc"},
		store.PlatformBandcamp: {EmbedURL: "https://bandcamp.com/EmbeddedPlayer/abc"},
	}
	platform, embed, found := choosePlaylistEmbed(embeds)
	if !found {
		t.Fatal("expected an embed to be found")
	}
	if platform != store.PlaylistPlatformVideo {
		t.Errorf("platform = %q, want %q", platform, store.PlaylistPlatformVideo)
	}
	if embed.EmbedURL != embeds[store.PlatformYouTube].EmbedURL {
		t.Errorf("embed = %+v, want the YouTube entry", embed)
	}
}

func TestChoosePlaylistEmbed_FallsBackToMusicSales(t *testing.T) {
	embeds := store.VerifiedEmbeds{
		store.PlatformBandcamp: {EmbedURL: "https://bandcamp.com/EmbeddedPlayer/abc"},
	}
	platform, _, found := choosePlaylistEmbed(embeds)
	if !found {
		t.Fatal("expected an embed to be found")
	}
	if platform != store.PlaylistPlatformMusicSales {
		t.Errorf("platform = %q, want %q", platform, store.PlaylistPlatformMusicSales)
	}
}

func TestChoosePlaylistEmbed_NoneVerified(t *testing.T) {
	_, _, found := choosePlaylistEmbed(store.VerifiedEmbeds{})
	if found {
		t.Fatal("expected no embed for an empty VerifiedEmbeds")
	}
}

func requestWithURLParam(key, value string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestPlaylistIDParam(t *testing.T) {
	id, err := playlistIDParam(requestWithURLParam("id", "42"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 42 {
		t.Errorf("id = %d, want 42", id)
	}
}

func TestPlaylistIDParam_RejectsNonInteger(t *testing.T) {
	if _, err := playlistIDParam(requestWithURLParam("id", "not-a-number")); err == nil {
		t.Fatal("expected an error for a non-integer playlist id")
	}
}

func TestShuffleItems_PreservesLength(t *testing.T) {
	items := []dynamicPlaylistItem{
		{Platform: store.PlaylistPlatformVideo},
		{Platform: store.PlaylistPlatformMusicSales},
		{Platform: store.PlaylistPlatformVideo},
	}
	shuffleItems(items)
	if len(items) != 3 {
		t.Fatalf("shuffleItems changed the length: got %d, want 3", len(items))
	}
}
