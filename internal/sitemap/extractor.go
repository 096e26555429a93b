// Package sitemap walks a site's XML sitemap tree and collects page
// links into a CSV report.
package sitemap

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Fetcher fetches raw bytes for a URL.
type Fetcher interface {
	Raw(ctx context.Context, url string) ([]byte, error)
}

// Extractor recursively resolves sitemap indexes, including gzipped
// child sitemaps, and records every page URL it finds.
type Extractor struct {
	fetch  Fetcher
	logger *zap.Logger
	seen   map[string]struct{}
}

// New builds an Extractor.
func New(fetch Fetcher, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		fetch:  fetch,
		logger: logger,
		seen:   make(map[string]struct{}),
	}
}

type entry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

type sitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []entry  `xml:"sitemap"`
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []entry  `xml:"url"`
}

// Run walks the sitemap tree rooted at rootURL and writes one CSV row
// per page link. Fetch or parse failures for one sitemap are logged and
// skipped; the walk continues.
func (e *Extractor) Run(ctx context.Context, rootURL string, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"url", "last_modified", "source_sitemap", "extracted_at"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	e.walk(ctx, rootURL, cw)
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func (e *Extractor) walk(ctx context.Context, sitemapURL string, cw *csv.Writer) {
	if ctx.Err() != nil {
		return
	}
	if _, ok := e.seen[sitemapURL]; ok {
		return
	}
	e.seen[sitemapURL] = struct{}{}
	e.logger.Info("processing sitemap", zap.String("url", sitemapURL))

	content, err := e.fetchContent(ctx, sitemapURL)
	if err != nil {
		e.logger.Error("sitemap fetch failed", zap.String("url", sitemapURL), zap.Error(err))
		return
	}

	var index sitemapIndex
	if err := xml.Unmarshal(content, &index); err == nil && len(index.Sitemaps) > 0 {
		for _, child := range index.Sitemaps {
			if child.Loc != "" {
				e.walk(ctx, strings.TrimSpace(child.Loc), cw)
			}
		}
		return
	}

	var pages urlSet
	if err := xml.Unmarshal(content, &pages); err != nil {
		e.logger.Error("sitemap parse failed", zap.String("url", sitemapURL), zap.Error(err))
		return
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for _, page := range pages.URLs {
		if page.Loc == "" {
			continue
		}
		if err := cw.Write([]string{strings.TrimSpace(page.Loc), page.LastMod, sitemapURL, now}); err != nil {
			e.logger.Error("csv write failed", zap.Error(err))
			return
		}
	}
}

func (e *Extractor) fetchContent(ctx context.Context, sitemapURL string) ([]byte, error) {
	body, err := e.fetch.Raw(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(sitemapURL, ".gz") {
		return body, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("open gzip: %w", err)
	}
	defer zr.Close() //nolint:errcheck
	content, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return content, nil
}
