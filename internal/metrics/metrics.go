// Package metrics exposes Prometheus collectors for scrape runs and the
// snapshot server, and pushes run metrics to a Pushgateway.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Page kinds and outcomes used as label values.
const (
	KindListing = "listing"
	KindDetail  = "detail"

	OutcomeOK    = "ok"
	OutcomeError = "error"

	FilmAdded   = "added"
	FilmSkipped = "skipped"
)

// Metrics owns a registry and the collectors registered on it. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	pagesTotal          *prometheus.CounterVec
	pageBytesTotal      *prometheus.CounterVec
	fetchDuration       *prometheus.HistogramVec
	filmsTotal          *prometheus.CounterVec
	rowsWrittenTotal    *prometheus.CounterVec
	lastRunTimestamp    prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry. withRuntime adds the Go
// and process collectors, which only make sense for the long-lived server.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		pagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "film_scraper_pages_total",
			Help: "Pages fetched, labeled by site, page kind and outcome.",
		}, []string{"site", "kind", "outcome"}),
		pageBytesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "film_scraper_page_bytes_total",
			Help: "Bytes of markup fetched, labeled by site.",
		}, []string{"site"}),
		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "film_scraper_fetch_duration_seconds",
			Help:    "Histogram of page fetch latencies, labeled by page kind.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
		}, []string{"kind"}),
		filmsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "film_scraper_films_total",
			Help: "Listing entries processed, labeled by result.",
		}, []string{"result"}),
		rowsWrittenTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "film_scraper_rows_written_total",
			Help: "Records persisted, labeled by sink.",
		}, []string{"sink"}),
		lastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "film_scraper_last_success_timestamp_seconds",
			Help: "Unix time of the last run that persisted its records.",
		}),
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		}, []string{"method", "code"}),
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "route"}),
	}
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
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

// ObservePage records one fetch attempt.
func (m *Metrics) ObservePage(rawURL, kind, outcome string, bytesFetched int, d time.Duration) {
	if m == nil {
		return
	}
	site := SanitizeSite(rawURL)
	m.pagesTotal.WithLabelValues(site, kind, outcome).Inc()
	if bytesFetched > 0 {
		m.pageBytesTotal.WithLabelValues(site).Add(float64(bytesFetched))
	}
	m.fetchDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveFilm counts a listing entry as added or skipped.
func (m *Metrics) ObserveFilm(result string) {
	if m == nil {
		return
	}
	m.filmsTotal.WithLabelValues(result).Inc()
}

// ObserveRows records n records written to sink.
func (m *Metrics) ObserveRows(sink string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rowsWrittenTotal.WithLabelValues(sink).Add(float64(n))
}

// MarkSuccess stamps the completion time of a persisted run.
func (m *Metrics) MarkSuccess(at time.Time) {
	if m == nil {
		return
	}
	m.lastRunTimestamp.Set(float64(at.Unix()))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func (m *Metrics) ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler returns an http.Handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// PushConfig addresses a Pushgateway.
type PushConfig struct {
	URL string
	Job string
}

// Push replaces the metrics grouped under job and runID on the gateway.
func (m *Metrics) Push(ctx context.Context, cfg PushConfig, runID string) error {
	if m == nil {
		return nil
	}
	if cfg.URL == "" {
		return fmt.Errorf("pushgateway url is required")
	}
	job := cfg.Job
	if job == "" {
		job = "film_scraper"
	}
	pusher := push.New(cfg.URL, job).Gatherer(m.registry)
	if runID != "" {
		pusher = pusher.Grouping("run_id", runID)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
