// Package orchestrator drives the daily scrape -> persist -> parse ->
// verify -> queue pipeline as a single-flight unit, and exposes a
// daily wall-clock scheduler over it.
//
// Grounded on services/dvr/internal/scheduler/scheduler.go's
// Scheduler shape (Config, ticker-driven Run(ctx)/poll,
// context.CancelFunc tracking guarded by sync.Mutex, claim-by-
// conditional-update race handling), adapted from "poll the DB for due
// recordings and run several concurrently" to "poll a wall-clock
// target once a day and run exactly one pipeline, tracking its single
// cancel func." The single-flight gate itself uses a Postgres advisory
// lock (pg_try_advisory_lock) through a dedicated pgxpool.Pool rather
// than the in-process mutex the DVR scheduler uses for its per-
// recording claims, since only the orchestrator's own process calls
// RunForDate but the lock must also reject a second process started
// against the same database (e.g. two deploys overlapping during a
// rollout).
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albumvault/catalogd/internal/apperr"
	"github.com/albumvault/catalogd/internal/download"
	"github.com/albumvault/catalogd/internal/genre"
	"github.com/albumvault/catalogd/internal/scraper"
	"github.com/albumvault/catalogd/internal/store"
	"github.com/albumvault/catalogd/internal/verifier"
)

// advisoryLockKey is an arbitrary fixed key identifying "one catalogd
// scrape pipeline at a time" across every process sharing the
// database.
const advisoryLockKey = 0x63617461 // "cata" read as hex, just a stable constant

// Config tunes pipeline-wide behavior not owned by an individual
// component's own Config.
type Config struct {
	WithCovers         bool
	PostScrapeParallel int // bounds concurrent download-queue dispatch, default 3
	InterDayPause       time.Duration
	// ArtifactDir holds per-run albums_{DD-MM-YYYY}.json dumps of the
	// scraped, not-yet-persisted album set. Empty disables the dump.
	ArtifactDir string
}

func (c Config) withDefaults() Config {
	if c.PostScrapeParallel < 1 || c.PostScrapeParallel > 10 {
		c.PostScrapeParallel = 3
	}
	if c.InterDayPause <= 0 {
		c.InterDayPause = 30 * time.Second
	}
	return c
}

// ProgressReport is the observable state of the current or most recent
// pipeline run, polled by the HTTP service's scrape-status endpoint.
type ProgressReport struct {
	RunID       string     `json:"run_id,omitempty"`
	Running     bool       `json:"running"`
	CurrentDate *time.Time `json:"current_date,omitempty"`
	Progress    int        `json:"progress"`
	Total       int        `json:"total"`
	Message     string     `json:"message"`
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
	Error       string     `json:"error,omitempty"`
	RateLimited bool       `json:"rate_limited"`
	ShouldStop  bool       `json:"-"`
}

// DateResult is one date's outcome within a RunRange batch.
type DateResult struct {
	Date    time.Time
	Success bool
	Error   string
}

// Orchestrator wires the Catalog Store, Scraper, Verifier, Genre
// Normalizer and Download Manager into the five-step daily pipeline.
type Orchestrator struct {
	cfg       Config
	store     *store.Store
	scraper   *scraper.Scraper
	verifier  *verifier.Verifier
	downloads *download.Manager
	lockPool  *pgxpool.Pool
	log       *slog.Logger

	mu         sync.Mutex
	report     ProgressReport
	lastRun    *time.Time // calendar day last completed via run_daily_schedule
	cancelFunc context.CancelFunc
}

// New wires an Orchestrator. lockPool is a dedicated pgxpool.Pool used
// only for the advisory-lock session (kept separate from the Store's
// sqlx/lib-pq pool because the lock must be held and released on a
// single physical connection, which lib/pq's pooled *sql.DB does not
// expose cleanly).
func New(cfg Config, st *store.Store, sc *scraper.Scraper, vf *verifier.Verifier, dl *download.Manager, lockPool *pgxpool.Pool, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg.withDefaults(),
		store:     st,
		scraper:   sc,
		verifier:  vf,
		downloads: dl,
		lockPool:  lockPool,
		log:       log,
	}
}

// Report returns a snapshot of the current progress state.
func (o *Orchestrator) Report() ProgressReport {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.report
}

// Stop requests cooperative cancellation of the running pipeline, if
// any. It does not cancel in-flight downloads (those observe their own
// stop points between tasks, not mid-transfer).
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.report.ShouldStop = true
	if o.cancelFunc != nil {
		o.cancelFunc()
	}
}

func (o *Orchestrator) shouldStop() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.report.ShouldStop
}

// RunForDate runs the full pipeline for a single date. It rejects a
// concurrent invocation (this process or another sharing the same
// database) with a Conflict error, matching the single-flight
// requirement.
func (o *Orchestrator) RunForDate(parent context.Context, target time.Time, withCovers bool) error {
	conn, err := o.lockPool.Acquire(parent)
	if err != nil {
		return apperr.Transient("orchestrator: acquire lock connection", err)
	}
	defer conn.Release()

	var acquired bool
	if err := conn.QueryRow(parent, `SELECT pg_try_advisory_lock($1)`, int64(advisoryLockKey)).Scan(&acquired); err != nil {
		return apperr.Transient("orchestrator: try advisory lock", err)
	}
	if !acquired {
		return apperr.Conflict("orchestrator: a scrape pipeline is already running")
	}
	defer conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, int64(advisoryLockKey))

	ctx, cancel := context.WithCancel(parent)
	start := time.Now().UTC()
	runID := uuid.NewString()
	o.mu.Lock()
	o.cancelFunc = cancel
	o.report = ProgressReport{RunID: runID, Running: true, CurrentDate: &target, Start: &start, Message: "scraping"}
	o.mu.Unlock()
	o.log.Info("pipeline run starting", "run_id", runID, "date", target.Format("2006-01-02"))
	defer func() {
		cancel()
		o.mu.Lock()
		o.cancelFunc = nil
		o.report.Running = false
		end := time.Now().UTC()
		o.report.End = &end
		o.mu.Unlock()
	}()

	err = o.runPipeline(ctx, target, withCovers)
	o.mu.Lock()
	if err != nil {
		o.report.Error = err.Error()
	}
	o.mu.Unlock()
	return err
}

// runPipeline executes the five steps in order, updating the shared
// progress report between each and honoring should_stop at pipeline
// boundaries (pagination/per-album stop points are honored inside the
// scraper via the stop callback; the verification loop checks
// should_stop between albums).
func (o *Orchestrator) runPipeline(ctx context.Context, target time.Time, withCovers bool) (err error) {
	setMessage := func(msg string) {
		o.mu.Lock()
		o.report.Message = msg
		o.mu.Unlock()
	}

	o.applyHotSettings(ctx)

	setMessage("scraping")
	results, scrapeErr := o.scraper.Run(ctx, target, o.shouldStop)
	if scrapeErr != nil {
		return apperr.Upstream("orchestrator: scrape step", scrapeErr)
	}
	o.mu.Lock()
	o.report.Total = len(results)
	o.mu.Unlock()

	artifactPath, artErr := o.writeScrapeArtifact(target, results)
	if artErr != nil {
		o.log.Warn("scrape artifact write failed", "date", target.Format("2006-01-02"), "error", artErr)
	}
	defer func() {
		if err != nil && artifactPath != "" {
			if rmErr := os.Remove(artifactPath); rmErr != nil && !os.IsNotExist(rmErr) {
				o.log.Warn("scrape artifact cleanup failed", "path", artifactPath, "error", rmErr)
			}
		}
	}()

	if o.shouldStop() {
		return nil
	}

	setMessage("persisting albums")
	for i, r := range results {
		if o.shouldStop() {
			return nil
		}
		if err := o.store.UpsertAlbum(ctx, r.Album, r.Tracks); err != nil {
			return apperr.Wrap(apperr.KindTransient, "orchestrator: persist album", err)
		}
		o.mu.Lock()
		o.report.Progress = i + 1
		o.mu.Unlock()
	}
	if o.shouldStop() {
		return nil
	}

	setMessage("parsing genres")
	for _, r := range results {
		if o.shouldStop() {
			return nil
		}
		if err := o.store.InsertParsedGenres(ctx, r.Album.AlbumID, flattenGenres(genre.Parse(r.Album.GenreRaw))); err != nil {
			o.log.Warn("genre parse persist failed", "album_id", r.Album.AlbumID, "error", err)
		}
	}
	if err := o.store.RecomputeGenreStats(ctx); err != nil {
		o.log.Warn("recompute genre stats failed", "error", err)
	}
	if o.shouldStop() {
		return nil
	}

	setMessage("verifying playable URLs")
	albums, err := o.store.AlbumsByDate(ctx, target)
	if err != nil {
		o.log.Warn("verification skipped: could not reload albums", "error", err)
		albums = nil
	}
	var toQueue []string
	for _, album := range albums {
		if o.shouldStop() {
			break
		}
		video, musicSales, ok := o.verifier.VerifyAlbum(ctx, album)
		if !ok {
			continue
		}
		embeds := store.VerifiedEmbeds{}
		if video.Found {
			embeds[store.PlatformYouTube] = store.VerifiedEmbed{
				EmbedURL: video.EmbedURL, MatchedTitle: video.MatchedTitle, Score: video.Score, Kind: video.Kind,
			}
			if vid := videoIDFromEmbed(video.EmbedURL); vid != "" {
				toQueue = append(toQueue, vid)
			}
		}
		if musicSales.Found {
			embeds[store.PlatformBandcamp] = store.VerifiedEmbed{
				EmbedURL: musicSales.EmbedURL, MatchedTitle: musicSales.MatchedTitle, Score: musicSales.Score, Kind: musicSales.Kind,
			}
		}
		if err := o.store.UpdateVerification(ctx, album.AlbumID, embeds, true); err != nil {
			o.log.Warn("persist verification failed", "album_id", album.AlbumID, "error", err)
		}
	}

	setMessage("queuing downloads")
	if o.store.SettingBool(ctx, "youtube_post_scrape_downloads", true) {
		o.queueDownloads(toQueue)
	} else {
		o.log.Info("post-scrape downloads disabled via settings", "candidate_count", len(toQueue))
	}

	setMessage("done")
	return nil
}

// applyHotSettings re-reads every hot-reloadable tunable from the
// Catalog Store and pushes it into the owning component. Called once
// at the start of each pipeline run (the scraper's and download
// manager's "next task" boundary), never mid-run.
func (o *Orchestrator) applyHotSettings(ctx context.Context) {
	o.scraper.ApplySettings(scraper.Config{
		RequestDelay:      time.Duration(o.store.SettingFloat(ctx, "request_delay_seconds", 0)) * time.Second,
		PageSize:          o.store.SettingInt(ctx, "page_size", 0),
		RetryBase:         time.Duration(o.store.SettingFloat(ctx, "retry_base_seconds", 0)) * time.Second,
		MaxWaitCF:         time.Duration(o.store.SettingFloat(ctx, "cloudflare_max_wait_seconds", 0)) * time.Second,
		RequestTimeout:    time.Duration(o.store.SettingFloat(ctx, "request_timeout_seconds", 0)) * time.Second,
		CloudflareRetries: o.store.SettingInt(ctx, "cloudflare_retries", 0),
	})

	if o.downloads == nil {
		return
	}
	if n := o.store.SettingInt(ctx, "youtube_parallel_downloads", 0); n > 0 {
		o.downloads.UpdateMaxParallel(n)
	}
	if secs := o.store.SettingFloat(ctx, "youtube_download_timeout", 0); secs > 0 {
		o.downloads.UpdateDownloadTimeout(time.Duration(secs) * time.Second)
	}
	if gb := o.store.SettingFloat(ctx, "youtube_cache_max_size_gb", 0); gb > 0 {
		o.downloads.UpdateCacheQuota(int64(gb * 1024 * 1024 * 1024))
	}
}

// writeScrapeArtifact dumps the scraped, not-yet-persisted albums (one
// JSON array per run) to ArtifactDir, named albums_{DD-MM-YYYY}.json.
// Returns "" without error if ArtifactDir is unset.
func (o *Orchestrator) writeScrapeArtifact(target time.Time, results []scraper.Result) (string, error) {
	if o.cfg.ArtifactDir == "" {
		return "", nil
	}
	albums := make([]store.Album, len(results))
	for i, r := range results {
		albums[i] = r.Album
	}
	raw, err := json.Marshal(albums)
	if err != nil {
		return "", fmt.Errorf("orchestrator: marshal scrape artifact: %w", err)
	}
	if err := os.MkdirAll(o.cfg.ArtifactDir, 0o755); err != nil {
		return "", fmt.Errorf("orchestrator: create artifact dir: %w", err)
	}
	path := filepath.Join(o.cfg.ArtifactDir, fmt.Sprintf("albums_%s.json", target.Format("02-01-2006")))
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("orchestrator: write scrape artifact: %w", err)
	}
	return path, nil
}

// flattenGenres expands genre.Parse's grouped output (one entry per
// raw genre clause, each carrying its own modifiers/related list) into
// the flat main/modifier/related rows InsertParsedGenres persists.
func flattenGenres(parsed []genre.Parsed) []store.ParsedGenre {
	var out []store.ParsedGenre
	for _, p := range parsed {
		period := store.Period(p.Period)
		out = append(out, store.ParsedGenre{
			GenreName: p.Main, Kind: store.GenreKindMain, Confidence: p.Confidence, Period: period,
		})
		for _, m := range p.Modifiers {
			out = append(out, store.ParsedGenre{GenreName: m, Kind: store.GenreKindModifier, Confidence: p.Confidence, Period: period})
		}
		for _, r := range p.Related {
			out = append(out, store.ParsedGenre{GenreName: r, Kind: store.GenreKindRelated, Confidence: p.Confidence, Period: period})
		}
	}
	return out
}

// queueDownloads dispatches Download calls across cfg.PostScrapeParallel
// workers; Download itself is non-blocking (it enqueues and returns),
// so this bounds how many album video ids are handed to the manager
// concurrently rather than how many downloads run at once (that bound
// belongs to the Download Manager's own max_parallel).
func (o *Orchestrator) queueDownloads(ids []string) {
	if len(ids) == 0 {
		return
	}
	sem := make(chan struct{}, o.cfg.PostScrapeParallel)
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		sem <- struct{}{}
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()
			o.downloads.Download(id, 0)
		}(id)
	}
	wg.Wait()
}

// RunRange runs RunForDate sequentially for each date in [d1, d2],
// pausing between days and continuing past a per-day failure.
func (o *Orchestrator) RunRange(ctx context.Context, d1, d2 time.Time) []DateResult {
	var results []DateResult
	for d := d1; !d.After(d2); d = d.AddDate(0, 0, 1) {
		err := o.RunForDate(ctx, d, o.cfg.WithCovers)
		res := DateResult{Date: d, Success: err == nil}
		if err != nil {
			res.Error = err.Error()
		}
		results = append(results, res)
		if d.Before(d2) {
			select {
			case <-ctx.Done():
				return results
			case <-time.After(o.cfg.InterDayPause):
			}
		}
	}
	return results
}

// RunDailySchedule blocks, firing RunForDate(today) once per calendar
// day at hhmm (format "HH:MM" local time), suppressing duplicate runs
// and executing immediately on startup if today has not yet run.
func (o *Orchestrator) RunDailySchedule(ctx context.Context, hhmm string) error {
	target, err := time.Parse("15:04", hhmm)
	if err != nil {
		return fmt.Errorf("orchestrator: invalid schedule time %q: %w", hhmm, err)
	}

	if !o.ranToday() {
		o.log.Info("have not run today yet, running immediately")
		o.runScheduledOnce(ctx)
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if now.Hour() == target.Hour() && now.Minute() == target.Minute() && !o.ranToday() {
				o.runScheduledOnce(ctx)
			}
		}
	}
}

func (o *Orchestrator) ranToday() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastRun == nil {
		return false
	}
	ly, lm, ld := o.lastRun.Date()
	ny, nm, nd := time.Now().Date()
	return ly == ny && lm == nm && ld == nd
}

func (o *Orchestrator) runScheduledOnce(ctx context.Context) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if err := o.RunForDate(ctx, today, o.cfg.WithCovers); err != nil {
		o.log.Error("scheduled run failed", "date", today, "error", err)
		return
	}
	now := time.Now()
	o.mu.Lock()
	o.lastRun = &now
	o.mu.Unlock()
}
