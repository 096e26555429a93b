// Package main runs the directory crawler end to end.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/medindex/practo-crawler/internal/clock/system"
	"github.com/medindex/practo-crawler/internal/config"
	"github.com/medindex/practo-crawler/internal/crawl"
	"github.com/medindex/practo-crawler/internal/fetcher"
	"github.com/medindex/practo-crawler/internal/logging"
	"github.com/medindex/practo-crawler/internal/metrics"
	"github.com/medindex/practo-crawler/internal/normalize"
	"github.com/medindex/practo-crawler/internal/relation"
	"github.com/medindex/practo-crawler/internal/store"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	seeds, err := crawl.LoadSeeds(cfg.Crawl.SeedFile)
	if err != nil {
		logger.Fatal("load seeds failed", zap.String("path", cfg.Crawl.SeedFile), zap.Error(err))
	}
	if len(seeds) == 0 {
		logger.Fatal("seed file is empty", zap.String("path", cfg.Crawl.SeedFile))
	}

	pool, err := store.NewPool(ctx, store.Config{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	st, err := store.New(pool, logger.Named("store"))
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}
	defer st.Close()

	if err := st.EnsureSchema(ctx); err != nil {
		logger.Fatal("schema bootstrap failed", zap.Error(err))
	}

	client := fetcher.New(fetcher.Config{
		MaxAttempts: cfg.HTTP.MaxRetries,
		BaseDelay:   cfg.BackoffBase(),
		Timeout:     cfg.Timeout(),
		UserAgent:   cfg.HTTP.UserAgent,
	}, logger.Named("fetcher"))

	crawler := crawl.New(
		client,
		normalize.New(logger.Named("normalize")),
		relation.NewExtractor(logger.Named("relation")),
		st,
		system.New(),
		crawl.Config{
			PageSize:    cfg.Crawl.PageSize,
			PacingEvery: cfg.Crawl.PacingEvery,
			PacingDelay: cfg.PacingDelay(),
		},
		logger.Named("crawl"),
	)

	var metricsSrv *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsSrv = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("metrics server started", zap.String("addr", cfg.Metrics.Addr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	reports := crawler.Run(ctx, seeds)

	for _, r := range reports {
		if r.Err != nil {
			logger.Warn("seed failed",
				zap.String("url", r.URL),
				zap.Error(r.Err),
			)
		}
	}
	totals := crawl.Summarize(reports)
	logger.Info("crawl complete",
		zap.Int("seeds", totals.Seeds),
		zap.Int("profiles_succeeded", totals.Succeeded),
		zap.Int("profiles_failed", totals.Failed),
		zap.Int("seeds_skipped", totals.Skipped),
	)

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", zap.Error(err))
		}
	}
}
