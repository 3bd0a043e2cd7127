// Command orchestrator drives the daily scrape pipeline from the
// command line: a single date, a date range, or a standing daily
// scheduler.
//
// Dependency wiring mirrors cmd/catalogd/main.go minus the HTTP
// server; graceful shutdown of the long-running --scheduler mode uses
// a signal.NotifyContext so SIGINT/SIGTERM let an in-flight pipeline
// step finish before exiting.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albumvault/catalogd/internal/config"
	"github.com/albumvault/catalogd/internal/download"
	"github.com/albumvault/catalogd/internal/logger"
	"github.com/albumvault/catalogd/internal/mediacache"
	"github.com/albumvault/catalogd/internal/orchestrator"
	"github.com/albumvault/catalogd/internal/scraper"
	"github.com/albumvault/catalogd/internal/store"
	"github.com/albumvault/catalogd/internal/verifier"
	"github.com/albumvault/catalogd/pkg/logging"
	"github.com/albumvault/catalogd/pkg/telemetry"
)

// cliDateFormat is the CLI flag date format (DD-MM-YYYY), distinct
// from the YYYY-MM-DD the rest of the codebase uses internally for
// storage and HTTP query parameters.
const cliDateFormat = "02-01-2006"

func main() {
	var (
		dateFlag      = flag.String("date", "", "run a single date, "+cliDateFormat)
		startDateFlag = flag.String("start-date", "", "range start, "+cliDateFormat)
		endDateFlag   = flag.String("end-date", "", "range end, "+cliDateFormat)
		yesterday     = flag.Bool("yesterday", false, "run for yesterday")
		today         = flag.Bool("today", false, "run for today")
		schedulerMode = flag.Bool("scheduler", false, "run as a standing daily scheduler")
		schedTime     = flag.String("time", "09:00", "scheduler fire time, HH:MM")
		noCovers      = flag.Bool("no-covers", false, "passed to the pipeline as with_covers=false; covers are still fetched during enrichment")
		dryRun        = flag.Bool("dry-run", false, "resolve and print the target date(s) without running the pipeline")
	)
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	slog := logger.New(cfg.LogFormat, cfg.LogLevel)
	legacyLog := logging.NewLogger("orchestrator")

	if cfg.SentryDSN != "" {
		if err := telemetry.InitSentry(cfg.SentryDSN, "orchestrator", "dev"); err != nil {
			slog.Error("sentry init failed", "error", err)
		}
		defer telemetry.Flush()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.PostgresURL)
	if err != nil {
		slog.Error("store open failed", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	cache, err := mediacache.Open(cfg.CacheDir, cfg.CacheQuotaBytes, slog)
	if err != nil {
		slog.Error("media cache open failed", "error", err)
		os.Exit(1)
	}

	fetcher := &download.YtDlpFetcher{BinPath: cfg.YtDlpPath}
	dl := download.New(cache, fetcher, download.Config{
		MaxParallel:     cfg.MaxParallelDownloads,
		DownloadTimeout: cfg.DownloadTimeout,
		MaxAttempts:     cfg.MaxDownloadAttempts,
	}, slog)
	dl.Start(ctx)
	defer dl.Stop()

	sc := scraper.New(scraper.Config{
		RequestDelay: cfg.RequestDelay,
		MaxRetries:   cfg.MaxRetries,
		Headless:     cfg.ScraperHeadless,
		CoversDir:    cfg.CoverDir,
	}, legacyLog)

	vf := verifier.New(ctx, verifier.Config{Headless: cfg.ScraperHeadless}, legacyLog)
	defer vf.Close()

	lockPool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		slog.Error("advisory lock pool creation failed", "error", err)
		os.Exit(1)
	}
	defer lockPool.Close()

	withCovers := !*noCovers
	orch := orchestrator.New(orchestrator.Config{WithCovers: withCovers, ArtifactDir: cfg.ArtifactDir}, st, sc, vf, dl, lockPool, slog)

	switch {
	case *schedulerMode:
		slog.Info("starting daily scheduler", "time", *schedTime)
		if *dryRun {
			fmt.Printf("dry run: would schedule daily runs at %s\n", *schedTime)
			return
		}
		if err := orch.RunDailySchedule(ctx, *schedTime); err != nil {
			slog.Error("scheduler exited with error", "error", err)
			os.Exit(1)
		}
		return

	case *startDateFlag != "" || *endDateFlag != "":
		d1, err := time.Parse(cliDateFormat, *startDateFlag)
		if err != nil {
			log.Fatalf("--start-date must be %s: %v", cliDateFormat, err)
		}
		d2, err := time.Parse(cliDateFormat, *endDateFlag)
		if err != nil {
			log.Fatalf("--end-date must be %s: %v", cliDateFormat, err)
		}
		if *dryRun {
			fmt.Printf("dry run: would run %s through %s\n", d1.Format(cliDateFormat), d2.Format(cliDateFormat))
			return
		}
		results := orch.RunRange(ctx, d1, d2)
		failed := 0
		for _, res := range results {
			if !res.Success {
				failed++
				slog.Error("date failed", "date", res.Date.Format("2006-01-02"), "error", res.Error)
			}
		}
		if failed > 0 {
			os.Exit(1)
		}
		return

	default:
		target, err := resolveSingleDate(*dateFlag, *yesterday, *today)
		if err != nil {
			log.Fatal(err)
		}
		if *dryRun {
			fmt.Printf("dry run: would run %s\n", target.Format(cliDateFormat))
			return
		}
		if err := orch.RunForDate(ctx, target, withCovers); err != nil {
			slog.Error("run failed", "date", target.Format("2006-01-02"), "error", err)
			os.Exit(1)
		}
	}
}

// resolveSingleDate applies the flags' precedence: an explicit --date
// wins, then --yesterday, then --today, and with nothing set the run
// defaults to today (matching the HTTP Service's /admin/scrape/start
// default of "today when date is omitted").
func resolveSingleDate(dateFlag string, yesterday, today bool) (time.Time, error) {
	switch {
	case dateFlag != "":
		d, err := time.Parse(cliDateFormat, dateFlag)
		if err != nil {
			return time.Time{}, fmt.Errorf("--date must be %s: %w", cliDateFormat, err)
		}
		return d, nil
	case yesterday:
		return time.Now().AddDate(0, 0, -1), nil
	case today:
		return time.Now(), nil
	default:
		return time.Now(), nil
	}
}
