package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	PageOK     = "ok"
	PageEmpty  = "empty"
	PageFailed = "failed"

	CrawlSuccess        = "success"
	CrawlNoResults      = "no_results"
	CrawlPlanningFailed = "planning_failed"
	CrawlPersistFailed  = "persist_failed"
	CrawlCanceled       = "canceled"
)

// Metrics holds the crawl counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	PagesTotal    *prometheus.CounterVec
	MatchedTotal  *prometheus.CounterVec
	EarlyStops    *prometheus.CounterVec
	CrawlsTotal   *prometheus.CounterVec
	CrawlDuration *prometheus.HistogramVec
	StateToggles  *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mpcomb_pages_total",
			Help: "Page requests completed, by outcome.",
		}, []string{"source", "outcome"}), // outcome: ok, empty, failed
		MatchedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mpcomb_matched_items_total",
			Help: "Items whose title matched the source keyword.",
		}, []string{"source"}),
		EarlyStops: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mpcomb_early_stops_total",
			Help: "Crawls that stopped submitting pages after an empty streak.",
		}, []string{"source"}),
		CrawlsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mpcomb_crawls_total",
			Help: "Crawl runs, by final status.",
		}, []string{"source", "status"}),
		CrawlDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mpcomb_crawl_duration_seconds",
			Help:    "Duration of crawl runs.",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		}, []string{"source"}),
		StateToggles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mpcomb_state_toggles_total",
			Help: "Read flag toggles, by resulting flag.",
		}, []string{"source", "read"}),
	}
}

func (m *Metrics) ObservePage(source, outcome string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) AddMatched(source string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.MatchedTotal.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) IncEarlyStop(source string) {
	if m == nil {
		return
	}
	m.EarlyStops.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveCrawl(source, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.CrawlsTotal.WithLabelValues(source, status).Inc()
	m.CrawlDuration.WithLabelValues(source).Observe(duration.Seconds())
}

func (m *Metrics) IncToggle(source string, read bool) {
	if m == nil {
		return
	}
	label := "false"
	if read {
		label = "true"
	}
	m.StateToggles.WithLabelValues(source, label).Inc()
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
