package scraper

import (
	"testing"
	"time"
)

func TestParseBasicRow_ExtractsIDsAndDate(t *testing.T) {
	row := []string{
		`<a href='https://www.metal-archives.com/bands/Ashen_Gate/123456'>Ashen Gate</a>`,
		`<a href='https://www.metal-archives.com/albums/Ashen_Gate/First_Light/789012'>First Light</a>`,
		`August 31st, 2025 <!-- 2025-08-31 -->`,
		"Full-length",
	}

	r, err := parseBasicRow(row)
	if err != nil {
		t.Fatalf("parseBasicRow: %v", err)
	}
	if r.Album.BandID != "123456" {
		t.Errorf("BandID = %q, want 123456", r.Album.BandID)
	}
	if r.Album.AlbumID != "123456/789012" {
		t.Errorf("AlbumID = %q, want 123456/789012", r.Album.AlbumID)
	}
	if r.Album.ReleaseDateRaw != "2025-08-31" {
		t.Errorf("ReleaseDateRaw = %q, want 2025-08-31", r.Album.ReleaseDateRaw)
	}
	if !r.Album.ReleaseDate.Equal(time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ReleaseDate = %v, want 2025-08-31", r.Album.ReleaseDate)
	}
}

func TestParseBasicRow_InsufficientColumns(t *testing.T) {
	if _, err := parseBasicRow([]string{"a", "b"}); err == nil {
		t.Error("expected error for insufficient columns")
	}
}

func TestNormalizeHumanDate_StripsOrdinalAndTags(t *testing.T) {
	got := normalizeHumanDate("<b>August 31st, 2025</b>")
	if got != "2025-08-31" {
		t.Errorf("normalizeHumanDate = %q, want 2025-08-31", got)
	}
}

func TestBackoff_CapsAt300Seconds(t *testing.T) {
	if got := backoff(2*time.Second, 10); got != 300*time.Second {
		t.Errorf("backoff(2s, 10) = %v, want 300s", got)
	}
	if got := backoff(2*time.Second, 0); got != 2*time.Second {
		t.Errorf("backoff(2s, 0) = %v, want 2s", got)
	}
	if got := backoff(2*time.Second, 2); got != 8*time.Second {
		t.Errorf("backoff(2s, 2) = %v, want 8s", got)
	}
}

func TestExtractLink_PlainTextFallback(t *testing.T) {
	href, text := extractLink("Full-length")
	if href != "" || text != "Full-length" {
		t.Errorf("extractLink plain = (%q, %q), want (\"\", \"Full-length\")", href, text)
	}
}

func TestApplySettings_UpdatesLiveConfig(t *testing.T) {
	s := New(Config{}, nil)

	s.ApplySettings(Config{PageSize: 50, RetryBase: 5 * time.Second, MaxWaitCF: 10 * time.Second, CloudflareRetries: 9})

	got := s.snapshotCfg()
	if got.PageSize != 50 || got.RetryBase != 5*time.Second || got.MaxWaitCF != 10*time.Second || got.CloudflareRetries != 9 {
		t.Errorf("snapshotCfg = %+v, want updated tunables", got)
	}
	if got.MaxRetries != 7 {
		t.Errorf("MaxRetries = %d, want the startup default (7) to survive a zero-valued override", got.MaxRetries)
	}
}

func TestApplySettings_ZeroFieldsLeaveDefaultsUntouched(t *testing.T) {
	s := New(Config{PageSize: 200}, nil)

	s.ApplySettings(Config{})

	if got := s.snapshotCfg().PageSize; got != 200 {
		t.Errorf("PageSize = %d, want 200 unchanged by a zero-valued ApplySettings call", got)
	}
}
