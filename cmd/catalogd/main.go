// Command catalogd runs the HTTP Service: the catalog-read, admin-
// mutation, media-streaming, and playlist API.
//
// Wiring loads config, connects the store, builds a server struct,
// registers routes, and listens, with graceful shutdown on
// SIGINT/SIGTERM via signal.NotifyContext.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albumvault/catalogd/internal/config"
	"github.com/albumvault/catalogd/internal/download"
	"github.com/albumvault/catalogd/internal/httpapi"
	"github.com/albumvault/catalogd/internal/logger"
	"github.com/albumvault/catalogd/internal/mediacache"
	"github.com/albumvault/catalogd/internal/orchestrator"
	"github.com/albumvault/catalogd/internal/ratelimit"
	"github.com/albumvault/catalogd/internal/scraper"
	"github.com/albumvault/catalogd/internal/store"
	"github.com/albumvault/catalogd/internal/verifier"
	"github.com/albumvault/catalogd/pkg/logging"
	"github.com/albumvault/catalogd/pkg/telemetry"

	goredis "github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	log := logger.New(cfg.LogFormat, cfg.LogLevel)
	legacyLog := logging.NewLogger("catalogd")

	if cfg.SentryDSN != "" {
		if err := telemetry.InitSentry(cfg.SentryDSN, "catalogd", "dev"); err != nil {
			log.Error("sentry init failed", "error", err)
		}
		defer telemetry.Flush()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.PostgresURL)
	if err != nil {
		log.Error("store open failed", "error", err)
		return
	}
	defer st.Close()

	cache, err := mediacache.Open(cfg.CacheDir, cfg.CacheQuotaBytes, log)
	if err != nil {
		log.Error("media cache open failed", "error", err)
		return
	}

	fetcher := &download.YtDlpFetcher{BinPath: cfg.YtDlpPath}
	dl := download.New(cache, fetcher, download.Config{
		MaxParallel:     cfg.MaxParallelDownloads,
		DownloadTimeout: cfg.DownloadTimeout,
		MaxAttempts:     cfg.MaxDownloadAttempts,
	}, log)
	dl.Start(ctx)

	sc := scraper.New(scraper.Config{
		RequestDelay: cfg.RequestDelay,
		MaxRetries:   cfg.MaxRetries,
		Headless:     cfg.ScraperHeadless,
		CoversDir:    cfg.CoverDir,
	}, legacyLog)

	vf := verifier.New(ctx, verifier.Config{
		Headless: cfg.ScraperHeadless,
	}, legacyLog)
	defer vf.Close()

	lockPool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Error("advisory lock pool creation failed", "error", err)
		return
	}
	defer lockPool.Close()

	orch := orchestrator.New(orchestrator.Config{WithCovers: true, ArtifactDir: cfg.ArtifactDir}, st, sc, vf, dl, lockPool, log)

	var limiter *ratelimit.Limiter
	if cfg.RedisURL != "" {
		opt, err := goredis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("redis URL parse failed", "error", err)
		} else {
			rdb := goredis.NewClient(opt)
			defer rdb.Close()
			limiter = ratelimit.New(ratelimit.NewRedisStore(rdb))
		}
	}

	srv := httpapi.New(st, cache, dl, orch, vf, limiter, cfg, log)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		dl.Stop()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("http server shutdown", "error", err)
		}
	}()

	log.Info("catalogd listening", "addr", httpSrv.Addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("http server failed", "error", err)
	}
	log.Info("catalogd stopped")
}
