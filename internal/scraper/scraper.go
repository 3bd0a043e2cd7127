package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/albumvault/catalogd/internal/apperr"
	"github.com/albumvault/catalogd/internal/store"
)

const searchURL = "https://www.metal-archives.com/search/ajax-advanced/searching/albums"

// Config tunes the scraper's rate discipline, pagination and browser
// lifecycle. PageSize, RetryBase and MaxWaitCF mirror the
// page_size/retry_base_seconds/cloudflare_max_wait_seconds settings
// keys; the Orchestrator reads them from the Catalog Store before each
// Run and hands them to ApplySettings, never mid-page.
type Config struct {
	RequestDelay   time.Duration
	MaxRetries     int
	Headless       bool
	CoversDir      string
	PageSize       int
	RetryBase      time.Duration
	MaxWaitCF      time.Duration
	RequestTimeout time.Duration
	// CloudflareRetries bounds how many times the interstitial-clear
	// wait itself is retried, independent of MaxRetries which bounds
	// ordinary navigation failures.
	CloudflareRetries int
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 7
	}
	if c.RequestDelay <= 0 {
		c.RequestDelay = 2 * time.Second
	}
	if c.PageSize <= 0 {
		c.PageSize = 200
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 2 * time.Second
	}
	if c.MaxWaitCF <= 0 {
		c.MaxWaitCF = 30 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.CloudflareRetries <= 0 {
		c.CloudflareRetries = 3
	}
	return c
}

// Scraper lists and enriches albums for a release date using a
// headless chromedp session for every page load, the JSON listing
// endpoint included, and a resty client for cover-image downloads.
type Scraper struct {
	mu    sync.Mutex
	cfg   Config
	log   *logrus.Entry
	rest  *resty.Client
	pacer *pacer
}

func New(cfg Config, log *logrus.Entry) *Scraper {
	cfg = cfg.withDefaults()
	return &Scraper{
		cfg:   cfg,
		log:   log,
		rest:  resty.New().SetTimeout(30 * time.Second),
		pacer: newPacer(cfg.RequestDelay),
	}
}

// ApplySettings updates the mutable tunables. Intended to be called by
// the Orchestrator right before Run, sourced from the Catalog Store's
// Settings table; zero fields are left unchanged. A Run already in
// progress keeps using whatever values it read at its own start.
func (s *Scraper) ApplySettings(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.RequestDelay > 0 {
		s.cfg.RequestDelay = cfg.RequestDelay
		s.pacer.setDelay(cfg.RequestDelay)
	}
	if cfg.MaxRetries > 0 {
		s.cfg.MaxRetries = cfg.MaxRetries
	}
	if cfg.PageSize > 0 {
		s.cfg.PageSize = cfg.PageSize
	}
	if cfg.RetryBase > 0 {
		s.cfg.RetryBase = cfg.RetryBase
	}
	if cfg.MaxWaitCF > 0 {
		s.cfg.MaxWaitCF = cfg.MaxWaitCF
	}
	if cfg.RequestTimeout > 0 {
		s.cfg.RequestTimeout = cfg.RequestTimeout
	}
	if cfg.CloudflareRetries > 0 {
		s.cfg.CloudflareRetries = cfg.CloudflareRetries
	}
}

func (s *Scraper) snapshotCfg() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

var (
	bandIDPattern  = regexp.MustCompile(`bands/.*?/(\d+)`)
	albumIDPattern = regexp.MustCompile(`albums/.*?/(\d+)`)
	dateComment    = regexp.MustCompile(`<!--\s*(\d{4}-\d{2}-\d{2})\s*-->`)
)

// Run lists and enriches every album released on target, cooperatively
// checking stop at each pagination boundary and per-album enrichment.
func (s *Scraper) Run(ctx context.Context, target time.Time, stop func() bool) ([]Result, error) {
	cfg := s.snapshotCfg()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, s.execOpts()...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	targetStr := target.Format("2006-01-02")
	var results []Result
	start := 0

	for {
		if stop != nil && stop() {
			s.log.Info("stop requested at pagination boundary")
			return results, nil
		}

		rows, gotFewer, err := s.fetchPage(browserCtx, cfg, target.Year(), int(target.Month()), start)
		if err != nil {
			return results, apperr.Upstream("scraper: fetch listing page", err)
		}
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			if stop != nil && stop() {
				s.log.Info("stop requested mid-enrichment")
				return results, nil
			}
			basic, err := parseBasicRow(row)
			if err != nil {
				s.log.WithError(err).Warn("skipping malformed row")
				continue
			}
			if basic.Album.ReleaseDateRaw != targetStr {
				continue
			}
			if basic.Album.AlbumURL != "" {
				if err := s.enrich(browserCtx, &basic); err != nil {
					s.log.WithError(err).WithField("album", basic.Album.AlbumName).Warn("enrichment failed")
				}
			}
			results = append(results, basic)
		}

		if gotFewer {
			break
		}
		start += len(rows)
	}

	return results, nil
}

func (s *Scraper) execOpts() []chromedp.ExecAllocatorOption {
	width, height := randomViewport()
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.cfg.Headless),
		chromedp.UserAgent(randomUserAgent()),
		chromedp.WindowSize(width, height),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	return opts
}

// fetchPage retrieves one page of the DataTables-style JSON listing,
// matching _get_albums_for_month's iDisplayStart cursor and column
// layout.
func (s *Scraper) fetchPage(ctx context.Context, cfg Config, year, month, start int) (rows [][]string, gotFewer bool, err error) {
	var body string
	navErr := s.navigateWithRetry(ctx, cfg, 0, 0, func(navCtx context.Context) error {
		navCtx, cancel := context.WithTimeout(navCtx, cfg.RequestTimeout)
		defer cancel()
		return chromedp.Run(navCtx,
			chromedp.Navigate(fmt.Sprintf("%s?%s", searchURL, queryString(year, month, start, cfg.PageSize))),
			chromedp.WaitReady("body"),
			chromedp.Text("pre", &body, chromedp.NodeVisible),
		)
	})
	if navErr != nil {
		return nil, false, navErr
	}

	var payload struct {
		AaData [][]any `json:"aaData"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, false, fmt.Errorf("scraper: decode listing json: %w", err)
	}

	for _, raw := range payload.AaData {
		row := make([]string, len(raw))
		for i, v := range raw {
			row[i] = fmt.Sprintf("%v", v)
		}
		rows = append(rows, row)
	}
	return rows, len(rows) < cfg.PageSize, nil
}

func queryString(year, month, start, pageSize int) string {
	return fmt.Sprintf(
		"sEcho=1&iColumns=4&iDisplayStart=%d&iDisplayLength=%d&releaseYearFrom=%d&releaseMonthFrom=%d&releaseYearTo=%d&releaseMonthTo=%d",
		start, pageSize, year, month, year, month)
}

// navigateWithRetry applies the pacer, runs nav, checks for an
// interstitial, and retries with exponential backoff. It does not
// inspect HTTP status codes: a 429 response is not detected and any
// Retry-After header is not read. Ordinary navigation failures are bounded by cfg.MaxRetries;
// an interstitial that never clears is bounded separately by
// cfg.CloudflareRetries, since the two failure modes have independent
// retry budgets.
func (s *Scraper) navigateWithRetry(ctx context.Context, cfg Config, attempt, cfAttempt int, nav func(context.Context) error) error {
	s.pacer.wait()

	err := nav(ctx)
	cfFailure := false
	if err == nil {
		if present, _ := challengePresent(ctx); present {
			s.log.Warn("anti-bot interstitial detected, waiting for clear")
			if !awaitChallengeClear(ctx, cfg.MaxWaitCF) {
				err = fmt.Errorf("scraper: interstitial did not clear within %s", cfg.MaxWaitCF)
				cfFailure = true
			}
		}
	}
	if err == nil {
		return nil
	}

	limit, count := cfg.MaxRetries, attempt
	if cfFailure {
		limit, count = cfg.CloudflareRetries, cfAttempt
	}
	if count >= limit {
		return fmt.Errorf("scraper: retries (%d) exceeded: %w", limit, err)
	}
	wait := backoff(cfg.RetryBase, attempt+cfAttempt)
	s.log.WithError(err).WithField("attempt", count+1).Infof("retrying navigation in %s", wait)
	time.Sleep(wait)
	if cfFailure {
		return s.navigateWithRetry(ctx, cfg, attempt, cfAttempt+1, nav)
	}
	return s.navigateWithRetry(ctx, cfg, attempt+1, cfAttempt, nav)
}

func parseBasicRow(row []string) (Result, error) {
	if len(row) < 4 {
		return Result{}, fmt.Errorf("scraper: insufficient columns: %d", len(row))
	}
	bandCell, albumCell, dateCell := row[0], row[1], row[2]

	bandURL, bandName := extractLink(bandCell)
	albumURL, albumName := extractLink(albumCell)

	releaseDateRaw := dateCell
	if m := dateComment.FindStringSubmatch(dateCell); m != nil {
		releaseDateRaw = m[1]
	} else {
		releaseDateRaw = normalizeHumanDate(dateCell)
	}

	var releaseDate time.Time
	if t, err := time.Parse("2006-01-02", releaseDateRaw); err == nil {
		releaseDate = t
	}

	albumID := albumIDPattern.FindStringSubmatch(albumURL)
	bandID := bandIDPattern.FindStringSubmatch(bandURL)

	a := store.Album{
		AlbumName:      albumName,
		AlbumURL:       albumURL,
		BandName:       bandName,
		BandURL:        bandURL,
		ReleaseDate:    releaseDate,
		ReleaseDateRaw: releaseDateRaw,
		Type:           store.ReleaseFullLength,
	}
	if len(albumID) > 1 {
		a.AlbumID = fmt.Sprintf("%s/%s", firstGroup(bandID), albumID[1])
	}
	if len(bandID) > 1 {
		a.BandID = bandID[1]
	}
	return Result{Album: a}, nil
}

func firstGroup(m []string) string {
	if len(m) > 1 {
		return m[1]
	}
	return ""
}

var htmlTag = regexp.MustCompile(`<[^>]+>`)
var ordinalSuffix = regexp.MustCompile(`(\d+)(st|nd|rd|th)`)

func normalizeHumanDate(s string) string {
	clean := strings.TrimSpace(htmlTag.ReplaceAllString(s, ""))
	clean = ordinalSuffix.ReplaceAllString(clean, "$1")
	for _, layout := range []string{"January 2, 2006", "January 2 2006", "2 January 2006", "2006-01-02"} {
		if t, err := time.Parse(layout, clean); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return clean
}

var linkPattern = regexp.MustCompile(`<a href=['"]([^'"]+)['"][^>]*>([^<]*)</a>`)

func extractLink(cell string) (href, text string) {
	m := linkPattern.FindStringSubmatch(cell)
	if m == nil {
		return "", strings.TrimSpace(cell)
	}
	return m[1], strings.TrimSpace(m[2])
}
