// Package crawl drives the seed-to-database traversal: result count,
// page loop, entity persistence, and per-entity relation extraction.
package crawl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medindex/practo-crawler/internal/metrics"
	"github.com/medindex/practo-crawler/internal/normalize"
	"github.com/medindex/practo-crawler/internal/practo"
	"github.com/medindex/practo-crawler/internal/relation"
)

// Config controls pagination and pacing.
type Config struct {
	PageSize    int           // upstream's fixed page size, default 10
	PacingEvery int           // sleep before every Nth page, default 5
	PacingDelay time.Duration // default 3s
}

func (c *Config) applyDefaults() {
	if c.PageSize <= 0 {
		c.PageSize = 10
	}
	if c.PacingEvery <= 0 {
		c.PacingEvery = 5
	}
	if c.PacingDelay <= 0 {
		c.PacingDelay = 3 * time.Second
	}
}

// SeedReport carries per-seed observability counters. They never drive
// control flow.
type SeedReport struct {
	URL       string
	Found     int
	Pages     int
	Succeeded int
	Failed    int
	Skipped   bool
	Err       error
}

// Totals aggregates per-seed reports for an end-of-run summary.
type Totals struct {
	Seeds     int
	Succeeded int
	Failed    int
	Skipped   int
}

// Summarize folds per-seed reports into run totals. Skipped counts
// seeds, the other counters count profiles.
func Summarize(reports []SeedReport) Totals {
	t := Totals{Seeds: len(reports)}
	for _, r := range reports {
		t.Succeeded += r.Succeeded
		t.Failed += r.Failed
		if r.Skipped {
			t.Skipped++
		}
	}
	return t
}

// Crawler sequences the pipeline. Execution is strictly sequential; the
// only suspension points are HTTP calls and the pacing sleep.
type Crawler struct {
	fetch   Fetcher
	norm    *normalize.Normalizer
	extract *relation.Extractor
	store   Persister
	clock   Clock
	cfg     Config
	logger  *zap.Logger
}

// New builds a Crawler.
func New(
	fetch Fetcher,
	norm *normalize.Normalizer,
	extract *relation.Extractor,
	persister Persister,
	clock Clock,
	cfg Config,
	logger *zap.Logger,
) *Crawler {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{
		fetch:   fetch,
		norm:    norm,
		extract: extract,
		store:   persister,
		clock:   clock,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run walks every seed URL in order. A failing seed is reported and the
// next one proceeds; only context cancellation stops the run early.
func (c *Crawler) Run(ctx context.Context, seeds []string) []SeedReport {
	runID := uuid.NewString()
	logger := c.logger.With(zap.String("run_id", runID))
	logger.Info("crawl run starting", zap.Int("seeds", len(seeds)))

	reports := make([]SeedReport, 0, len(seeds))
	for i, seed := range seeds {
		if ctx.Err() != nil {
			logger.Info("crawl run canceled", zap.Int("seeds_done", i))
			break
		}
		logger.Info("processing seed",
			zap.Int("index", i+1),
			zap.Int("total", len(seeds)),
			zap.String("url", seed))
		rep := c.crawlSeed(ctx, logger, seed)
		logger.Info("seed done",
			zap.String("url", seed),
			zap.Int("found", rep.Found),
			zap.Int("succeeded", rep.Succeeded),
			zap.Int("failed", rep.Failed),
			zap.Bool("skipped", rep.Skipped))
		reports = append(reports, rep)
	}
	logger.Info("crawl run finished")
	return reports
}

func (c *Crawler) crawlSeed(ctx context.Context, logger *zap.Logger, seed string) SeedReport {
	rep := SeedReport{URL: seed}

	var first normalize.ListingPage
	if err := c.fetch.JSON(ctx, seed, &first); err != nil {
		logger.Error("seed fetch failed", zap.String("url", seed), zap.Error(err))
		metrics.RecordError("seed")
		rep.Err = err
		return rep
	}

	rep.Found = seedResultCount(seed, &first)
	if rep.Found == 0 {
		logger.Warn("no results for seed", zap.String("url", seed))
		rep.Skipped = true
		return rep
	}
	rep.Pages = pageCount(rep.Found, c.cfg.PageSize)

	for page := 1; page <= rep.Pages; page++ {
		if ctx.Err() != nil {
			return rep
		}
		if page > 1 && page%c.cfg.PacingEvery == 0 {
			c.clock.Sleep(ctx, c.cfg.PacingDelay)
		}
		c.crawlPage(ctx, logger, seed, page, &rep)
	}
	return rep
}

func (c *Crawler) crawlPage(ctx context.Context, logger *zap.Logger, seed string, page int, rep *SeedReport) {
	pageURL, err := withPage(seed, page)
	if err != nil {
		logger.Error("page url rewrite failed", zap.String("url", seed), zap.Error(err))
		metrics.RecordError("page")
		rep.Failed++
		return
	}

	var listing normalize.ListingPage
	if err := c.fetch.JSON(ctx, pageURL, &listing); err != nil {
		logger.Error("page fetch failed",
			zap.String("url", pageURL),
			zap.Int("page", page),
			zap.Error(err))
		metrics.RecordError("page")
		rep.Failed++
		return
	}

	// The entity kind comes from the body, not the URL.
	kind := practo.KindFromResultsType(listing.Form.ResultsType)
	if kind == practo.KindUnknown {
		logger.Warn("could not determine entity kind",
			zap.String("url", pageURL),
			zap.String("results_type", listing.Form.ResultsType))
		return
	}
	metrics.RecordPage(kind.String())

	refs, err := c.persistPage(ctx, logger, kind, &listing)
	if err != nil {
		logger.Error("page processing failed",
			zap.String("url", pageURL),
			zap.Stringer("kind", kind),
			zap.Error(err))
		metrics.RecordError("page")
		rep.Failed++
		return
	}

	for _, ref := range refs {
		if ctx.Err() != nil {
			return
		}
		if err := c.processProfile(ctx, kind, ref); err != nil {
			logger.Error("profile processing failed",
				zap.Stringer("kind", kind),
				zap.String("id", ref.ID),
				zap.Error(err))
			metrics.RecordError("profile")
			rep.Failed++
			continue
		}
		rep.Succeeded++
	}
}

// persistPage normalizes and stores one listing page, returning the
// profile references to follow.
func (c *Crawler) persistPage(
	ctx context.Context,
	logger *zap.Logger,
	kind practo.Kind,
	listing *normalize.ListingPage,
) ([]practo.ProfileRef, error) {
	switch kind {
	case practo.KindDoctor:
		doctors, refs, err := c.norm.Doctors(listing)
		if err != nil {
			return nil, err
		}
		res, err := c.store.UpsertDoctors(ctx, doctors)
		if err != nil {
			return nil, err
		}
		reportBatch(logger, "doctors", res.Applied, len(res.Failures))
		metrics.RecordEntities(kind.String(), res.Applied)
		return refs, nil
	case practo.KindHospital, practo.KindClinic:
		establishments, refs, err := c.norm.Establishments(listing)
		if err != nil {
			return nil, err
		}
		res, err := c.store.UpsertEstablishments(ctx, establishments)
		if err != nil {
			return nil, err
		}
		reportBatch(logger, "establishments", res.Applied, len(res.Failures))
		metrics.RecordEntities(kind.String(), res.Applied)
		return refs, nil
	case practo.KindUnknown:
		return nil, fmt.Errorf("unknown entity kind")
	default:
		return nil, fmt.Errorf("unhandled entity kind %q", kind)
	}
}

// processProfile fetches the relation profile and rendered page for one
// entity, extracts the edges, and persists them.
func (c *Crawler) processProfile(ctx context.Context, kind practo.Kind, ref practo.ProfileRef) error {
	profileURL, err := kind.ProfileAPIURL(ref.Slug)
	if err != nil {
		return err
	}

	var profile json.RawMessage
	if err := c.fetch.JSON(ctx, profileURL, &profile); err != nil {
		return fmt.Errorf("fetch profile: %w", err)
	}
	html, err := c.fetch.Raw(ctx, ref.URL)
	if err != nil {
		return fmt.Errorf("fetch profile page: %w", err)
	}

	res, err := c.extract.Extract(kind, ref.ID, profile, html)
	if err != nil {
		return fmt.Errorf("extract relations: %w", err)
	}
	batch, err := c.store.UpsertRelations(ctx, ref.ID, kind, res)
	if err != nil {
		return fmt.Errorf("persist relations: %w", err)
	}
	metrics.RecordEdges(batch.Applied)
	return nil
}

func reportBatch(logger *zap.Logger, what string, applied, failed int) {
	if failed > 0 {
		logger.Warn("batch partially applied",
			zap.String("records", what),
			zap.Int("applied", applied),
			zap.Int("failed", failed))
	}
}

// seedResultCount extracts the total-result count. Provider-search URLs
// report it under listing_data, establishment searches under form. This
// dispatch is fixed by URL pattern.
func seedResultCount(seed string, page *normalize.ListingPage) int {
	if practo.IsDoctorSearchURL(seed) {
		return page.ListingData.DoctorsFound.IntOrZero()
	}
	return page.Form.TotalResults.IntOrZero()
}

// pageCount mirrors the upstream pagination contract: floor(count/size)+1.
func pageCount(found, pageSize int) int {
	return found/pageSize + 1
}

// withPage rewrites the page query parameter of a seed URL.
func withPage(seed string, page int) (string, error) {
	u, err := url.Parse(seed)
	if err != nil {
		return "", fmt.Errorf("parse seed url: %w", err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
