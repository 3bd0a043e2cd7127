package verifier

import "testing"

func TestExtractYouTubeVideoID(t *testing.T) {
	cases := map[string]string{
		"https://www.youtube.com/watch?v=abc123":  "abc123",
		"https://youtu.be/xyz789":                 "xyz789",
		"https://www.youtube.com/embed/embedded1": "embedded1",
	}
	for url, want := range cases {
		if got := extractYouTubeVideoID(url); got != want {
			t.Errorf("extractYouTubeVideoID(%q) = %q, want %q", url, got, want)
		}
	}
}

func TestExtractYouTubePlaylistID(t *testing.T) {
	got := extractYouTubePlaylistID("https://www.youtube.com/playlist?list=PLxyz")
	if got != "PLxyz" {
		t.Errorf("extractYouTubePlaylistID = %q, want PLxyz", got)
	}
}

func TestIsDirectVideoURL(t *testing.T) {
	if !isDirectVideoURL("https://www.youtube.com/watch?v=abc") {
		t.Error("expected watch URL to be direct")
	}
	if isDirectVideoURL("https://www.youtube.com/@someband") {
		t.Error("channel handle URL should not be direct")
	}
}

func TestIsChannelURL(t *testing.T) {
	if !isChannelURL("https://www.youtube.com/@someband") {
		t.Error("expected @handle URL to be a channel")
	}
	if !isChannelURL("https://www.youtube.com/channel/UC123") {
		t.Error("expected /channel/ URL to be a channel")
	}
}

func TestVideoIdentifierKind_PlaylistTakesPrecedence(t *testing.T) {
	kind, embed := videoIdentifierKind("https://www.youtube.com/watch?v=abc&list=PLxyz")
	if kind != "playlist" {
		t.Errorf("kind = %q, want playlist", kind)
	}
	if embed == "" {
		t.Error("expected non-empty embed URL")
	}
}

func TestBestCandidate_PicksHighestScoringAboveThreshold(t *testing.T) {
	items := []candidate{
		{title: "Some Unrelated Clip", url: "https://www.youtube.com/watch?v=u1"},
		{title: "Ashen Gate - First Light (Full Album)", url: "https://www.youtube.com/watch?v=u2"},
	}
	best, ok := bestCandidate(items, "Ashen Gate First Light", "First Light", "Ashen Gate", 75)
	if !ok {
		t.Fatal("expected a match above threshold")
	}
	if best.url != "https://www.youtube.com/watch?v=u2" {
		t.Errorf("picked %q, want the full-album match", best.url)
	}
}

func TestBestRelease_FiltersBelowThreshold(t *testing.T) {
	items := []candidate{{title: "Completely Different Title", url: "https://x.bandcamp.com/album/y"}}
	_, ok := bestRelease(items, "First Light", 90)
	if ok {
		t.Error("expected no release to clear a 90 threshold")
	}
}
