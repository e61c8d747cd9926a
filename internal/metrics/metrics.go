// Package metrics exposes Prometheus collectors for the indexer.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	submissionsTotal  *prometheus.CounterVec
	runsTotal         *prometheus.CounterVec
	crawledURLsTotal  prometheus.Counter
	remainingURLs     prometheus.Gauge
	publishRetryTotal prometheus.Counter
	cooldownsTotal    prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		submissionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexer_submissions_total",
				Help: "Total number of URL submissions, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexer_runs_total",
				Help: "Total number of runs, labeled by final status.",
			},
			[]string{"status"},
		)

		crawledURLsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "indexer_crawled_urls_total",
				Help: "Total number of URLs discovered by sitemap crawls.",
			},
		)

		remainingURLs = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "indexer_remaining_urls",
				Help: "URLs still unsubmitted after the most recent run.",
			},
		)

		publishRetryTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "indexer_publish_retries_total",
				Help: "Total backoff retries performed by the publish client.",
			},
		)

		cooldownsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "indexer_rate_limit_cooldowns_total",
				Help: "Total 429 cooldown waits performed by the publish client.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSubmission increments the submission counter for the outcome label.
func ObserveSubmission(outcome string) {
	Init()
	submissionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRun increments the run counter for the given final status.
func ObserveRun(status string) {
	Init()
	runsTotal.WithLabelValues(status).Inc()
}

// ObserveCrawl adds the number of URLs discovered by a crawl.
func ObserveCrawl(count int) {
	Init()
	crawledURLsTotal.Add(float64(count))
}

// SetRemaining records how many URLs are still unsubmitted.
func SetRemaining(count int) {
	Init()
	remainingURLs.Set(float64(count))
}

// ObservePublishRetry increments the backoff retry counter.
func ObservePublishRetry() {
	Init()
	publishRetryTotal.Inc()
}

// ObserveCooldown increments the 429 cooldown counter.
func ObserveCooldown() {
	Init()
	cooldownsTotal.Inc()
}
