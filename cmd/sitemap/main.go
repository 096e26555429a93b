// Package main extracts page links from a sitemap tree into a CSV file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/medindex/practo-crawler/internal/fetcher"
	"github.com/medindex/practo-crawler/internal/logging"
	"github.com/medindex/practo-crawler/internal/sitemap"
)

func main() {
	rootURL := flag.String("url", "", "Root sitemap URL")
	outPath := flag.String("out", "sitemap_links.csv", "Output CSV path")
	flag.Parse()

	if *rootURL == "" {
		fmt.Fprintln(os.Stderr, "usage: sitemap -url <sitemap-url> [-out <csv-path>]")
		os.Exit(2)
	}

	logger, err := logging.New(true, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out, err := os.Create(*outPath)
	if err != nil {
		logger.Fatal("create output file failed", zap.String("path", *outPath), zap.Error(err))
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil {
			logger.Error("close output file failed", zap.Error(closeErr))
		}
	}()

	client := fetcher.New(fetcher.Config{Timeout: 60 * time.Second}, logger.Named("fetcher"))
	extractor := sitemap.New(client, logger.Named("sitemap"))

	if err := extractor.Run(ctx, *rootURL, out); err != nil {
		logger.Fatal("extraction failed", zap.Error(err))
	}
	logger.Info("extraction complete", zap.String("out", *outPath))
}
