// Package metrics exposes Prometheus collectors for the crawl pipeline.
package metrics

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlsTotal              *prometheus.CounterVec
	fetchDurationSeconds     *prometheus.HistogramVec
	fetchBytesTotal          *prometheus.CounterVec
	recommendationsTotal     *prometheus.CounterVec
	scheduleTransitionsTotal *prometheus.CounterVec
	activeWorkers            prometheus.Gauge
	readyQueueDepth          prometheus.Gauge

	once sync.Once
)

// Init registers the Prometheus collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		crawlsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rankrocket_crawls_total",
				Help: "Total fetch attempts, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rankrocket_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies, labeled by site.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 10, 30},
			},
			[]string{"site"},
		)

		fetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rankrocket_fetch_bytes_total",
				Help: "Total response body bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		recommendationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rankrocket_recommendations_total",
				Help: "Total recommendations synthesized, labeled by category.",
			},
			[]string{"category"},
		)

		scheduleTransitionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rankrocket_schedule_transitions_total",
				Help: "Schedule record transitions, labeled by target status.",
			},
			[]string{"status"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "rankrocket_active_workers",
				Help: "Number of workers currently processing a crawl.",
			},
		)

		readyQueueDepth = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "rankrocket_ready_queue_depth",
				Help: "Items waiting in the ready queue.",
			},
		)
	})
}

// SanitizeSite reduces a URL to a lowercase hostname label.
// Returns "unknown" when the URL cannot be parsed.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCrawl records one fetch attempt. All observation helpers are no-ops
// until Init has registered the collectors.
func ObserveCrawl(site, outcome string, bytesFetched int, duration time.Duration) {
	if crawlsTotal == nil {
		return
	}
	s := SanitizeSite(site)
	crawlsTotal.WithLabelValues(s, outcome).Inc()
	fetchDurationSeconds.WithLabelValues(s).Observe(duration.Seconds())
	if bytesFetched > 0 {
		fetchBytesTotal.WithLabelValues(s).Add(float64(bytesFetched))
	}
}

// ObserveRecommendations counts synthesized recommendations by category.
func ObserveRecommendations(category string, n int) {
	if recommendationsTotal == nil {
		return
	}
	if n > 0 {
		recommendationsTotal.WithLabelValues(category).Add(float64(n))
	}
}

// ObserveTransition counts a schedule record transition.
func ObserveTransition(status string) {
	if scheduleTransitionsTotal == nil {
		return
	}
	scheduleTransitionsTotal.WithLabelValues(status).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	if activeWorkers == nil {
		return
	}
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	if activeWorkers == nil {
		return
	}
	activeWorkers.Dec()
}

// SetQueueDepth records the current ready-queue depth.
func SetQueueDepth(n int) {
	if readyQueueDepth == nil {
		return
	}
	readyQueueDepth.Set(float64(n))
}
