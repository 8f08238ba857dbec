package providers

import (
	"time"
	"verity/internal/structures"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	IncEventsProcessed(eventType string)
	IncEventsFailed(eventType string)
	ObserveSyncDuration(duration time.Duration)
	IncScoringResults(engine, outcome string)
	SetArticlesSynced(count int64)
}

type MetricsProvider struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	eventsProcessed *prometheus.CounterVec
	eventsFailed    *prometheus.CounterVec
	syncDuration    prometheus.Histogram
	scoringResults  *prometheus.CounterVec
	articlesSynced  prometheus.Gauge
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) IncEventsProcessed(eventType string) {
	m.eventsProcessed.WithLabelValues(eventType).Inc()
}

func (m *MetricsProvider) IncEventsFailed(eventType string) {
	m.eventsFailed.WithLabelValues(eventType).Inc()
}

func (m *MetricsProvider) ObserveSyncDuration(duration time.Duration) {
	m.syncDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) IncScoringResults(engine, outcome string) {
	m.scoringResults.WithLabelValues(engine, outcome).Inc()
}

func (m *MetricsProvider) SetArticlesSynced(count int64) {
	m.articlesSynced.Set(float64(count))
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "verity_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verity_cache_hits_total",
			Help: "Total number of response cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verity_cache_misses_total",
			Help: "Total number of response cache misses",
		}),

		eventsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_ledger_events_processed_total",
			Help: "Ledger events handled successfully, by type",
		}, []string{"type"}),

		eventsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_ledger_events_failed_total",
			Help: "Ledger events whose handler returned an error, by type",
		}, []string{"type"}),

		syncDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "verity_article_sync_duration_seconds",
			Help:    "Duration of single-article cache synchronizations",
			Buckets: prometheus.DefBuckets,
		}),

		scoringResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_scoring_results_total",
			Help: "Scoring attempts by engine and outcome",
		}, []string{"engine", "outcome"}),

		articlesSynced: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "verity_articles_synced",
			Help: "Articles written during the last full resync",
		}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) IncEventsProcessed(_ string)                      {}
func (n *noopMetrics) IncEventsFailed(_ string)                         {}
func (n *noopMetrics) ObserveSyncDuration(_ time.Duration)              {}
func (n *noopMetrics) IncScoringResults(_, _ string)                    {}
func (n *noopMetrics) SetArticlesSynced(_ int64)                        {}
