package verifier

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/albumvault/catalogd/internal/store"
)

// Config tunes the verifier's matching thresholds and session lifecycle.
type Config struct {
	MinSimilarity  int // default 90 from the pipeline, overridable to 75 for bulk
	MaxRetries     int // browser-rebuild retries per album, default 2
	CycleEvery     int // rebuild the browser every N albums, default 50
	InterAlbumWait time.Duration
	Headless       bool
}

func (c Config) withDefaults() Config {
	if c.MinSimilarity <= 0 {
		c.MinSimilarity = 90
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 2
	}
	if c.CycleEvery <= 0 {
		c.CycleEvery = 50
	}
	if c.InterAlbumWait <= 0 {
		c.InterAlbumWait = 2 * time.Second
	}
	return c
}

// Result is one platform's verification outcome: whether a match was
// found, its embed URL, match score, matched title, and embed kind.
type Result struct {
	Found        bool
	EmbedURL     string
	MatchedTitle string
	Score        int
	Kind         store.EmbedKind
}

// Verifier owns a single long-lived browser instance, rebuilt every
// CycleEvery albums (session-drift mitigation) and after any failed
// platform check.
type Verifier struct {
	cfg   Config
	log   *logrus.Entry
	count int

	allocCtx    context.Context
	cancelAlloc context.CancelFunc

	browserCtx    context.Context
	cancelBrowser context.CancelFunc
}

func New(ctx context.Context, cfg Config, log *logrus.Entry) *Verifier {
	v := &Verifier{cfg: cfg.withDefaults(), log: log}
	v.rebuild(ctx)
	return v
}

func (v *Verifier) rebuild(parent context.Context) {
	v.Close()
	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", v.cfg.Headless))
	v.allocCtx, v.cancelAlloc = chromedp.NewExecAllocator(parent, opts...)
	v.browserCtx, v.cancelBrowser = chromedp.NewContext(v.allocCtx)
}

func (v *Verifier) Close() {
	if v.cancelBrowser != nil {
		v.cancelBrowser()
	}
	if v.cancelAlloc != nil {
		v.cancelAlloc()
	}
}

// VerifyAlbum attempts both platforms for album, returning the two
// results and their combined success (≥1 platform found).
func (v *Verifier) VerifyAlbum(parent context.Context, album store.Album) (video, musicSales Result, ok bool) {
	v.count++
	if v.count%v.cfg.CycleEvery == 0 {
		v.log.Info("cycling verifier browser session")
		v.rebuild(parent)
	}

	video = v.runWithRetry(parent, func(ctx context.Context) (Result, error) {
		return v.verifyVideo(ctx, album)
	})
	time.Sleep(v.cfg.InterAlbumWait)

	if album.BandcampURL != "" {
		musicSales = v.runWithRetry(parent, func(ctx context.Context) (Result, error) {
			return v.verifyMusicSales(ctx, album)
		})
	}

	return video, musicSales, video.Found || musicSales.Found
}

// runWithRetry rebuilds the browser and retries after any error from fn
// (a closed context or page included), up to cfg.MaxRetries retries.
func (v *Verifier) runWithRetry(parent context.Context, fn func(context.Context) (Result, error)) Result {
	var last error
	for attempt := 0; attempt <= v.cfg.MaxRetries; attempt++ {
		res, err := fn(v.browserCtx)
		if err == nil {
			return res
		}
		last = err
		v.log.WithError(err).WithField("attempt", attempt+1).Warn("verification failed, rebuilding browser")
		v.rebuild(parent)
	}
	v.log.WithError(last).Error("verification exhausted retries")
	return Result{Found: false}
}

var (
	ytVideoPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([^&\n?#]+)`),
		regexp.MustCompile(`youtube\.com/embed/([^&\n?#]+)`),
		regexp.MustCompile(`youtube\.com/v/([^&\n?#]+)`),
	}
	ytPlaylistPattern = regexp.MustCompile(`[?&]list=([^&\n?#]+)`)
)

func extractYouTubeVideoID(url string) string {
	for _, p := range ytVideoPatterns {
		if m := p.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	}
	return ""
}

func extractYouTubePlaylistID(url string) string {
	if m := ytPlaylistPattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return ""
}

// isDirectVideoURL reports whether url already names a watch/embed/
// playlist video, enabling a skip-search fast path.
func isDirectVideoURL(url string) bool {
	lower := strings.ToLower(url)
	return strings.Contains(lower, "/watch") || strings.Contains(lower, "/embed/") ||
		strings.Contains(lower, "youtu.be/") || strings.Contains(lower, "list=")
}

func isChannelURL(url string) bool {
	lower := strings.ToLower(url)
	return strings.Contains(lower, "/channel/") || strings.Contains(lower, "/c/") || strings.Contains(lower, "/@")
}

func videoIdentifierKind(url string) (kind store.EmbedKind, embedURL string) {
	if pid := extractYouTubePlaylistID(url); pid != "" {
		return store.EmbedPlaylist, fmt.Sprintf("https://www.youtube-nocookie.com/embed/videoseries?list=%s", pid)
	}
	if vid := extractYouTubeVideoID(url); vid != "" {
		return store.EmbedVideo, fmt.Sprintf("https://www.youtube-nocookie.com/embed/%s", vid)
	}
	return "", ""
}
