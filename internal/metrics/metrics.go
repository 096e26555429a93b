// Package metrics exposes Prometheus collectors for the crawl pipeline.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchAttemptsTotal *prometheus.CounterVec
	pagesTotal         *prometheus.CounterVec
	entitiesTotal      *prometheus.CounterVec
	relationEdgesTotal prometheus.Counter
	crawlErrorsTotal   *prometheus.CounterVec

	once sync.Once
)

// Init registers the collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "practo_fetch_attempts_total",
				Help: "HTTP fetch attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)
		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "practo_pages_total",
				Help: "Listing pages processed, labeled by entity kind.",
			},
			[]string{"kind"},
		)
		entitiesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "practo_entities_upserted_total",
				Help: "Entity rows upserted, labeled by entity kind.",
			},
			[]string{"kind"},
		)
		relationEdgesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "practo_relation_edges_total",
				Help: "Relation edge rows inserted.",
			},
		)
		crawlErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "practo_crawl_errors_total",
				Help: "Errors encountered and skipped, labeled by stage.",
			},
			[]string{"stage"},
		)
	})
}

// RecordFetchAttempt counts one HTTP attempt with the given outcome.
func RecordFetchAttempt(outcome string) {
	Init()
	fetchAttemptsTotal.WithLabelValues(outcome).Inc()
}

// RecordPage counts one processed listing page.
func RecordPage(kind string) {
	Init()
	pagesTotal.WithLabelValues(kind).Inc()
}

// RecordEntities counts upserted entity rows.
func RecordEntities(kind string, n int) {
	Init()
	entitiesTotal.WithLabelValues(kind).Add(float64(n))
}

// RecordEdges counts inserted relation edges.
func RecordEdges(n int) {
	Init()
	relationEdgesTotal.Add(float64(n))
}

// RecordError counts one skipped failure at the given pipeline stage.
func RecordError(stage string) {
	Init()
	crawlErrorsTotal.WithLabelValues(stage).Inc()
}

// Handler serves the default registry for scraping.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}
