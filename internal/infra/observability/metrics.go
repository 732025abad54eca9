package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	graphDuration *prometheus.HistogramVec
	ledgerErrors  *prometheus.CounterVec
	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec
	seriesPoints  *prometheus.HistogramVec
	requestsTotal *prometheus.CounterVec
}

// EngineStats is an aggregate snapshot of the metric counters, served
// by the GET /v1/stats endpoint.
type EngineStats struct {
	TotalRequests int64   `json:"totalRequests"`
	ErrorRate     float64 `json:"errorRate"`
	CacheHitRate  float64 `json:"cacheHitRate"`
	Period        string  `json:"period"`
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		graphDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finengine_graph_build_duration_seconds",
				Help:    "Duration of graph snapshot builds by metric family.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"family"},
		),
		ledgerErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finengine_ledger_errors_total",
				Help: "Total errors from the ledger store.",
			},
			[]string{"op"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finengine_cache_hits_total",
				Help: "Total snapshot cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finengine_cache_misses_total",
				Help: "Total snapshot cache misses.",
			},
			[]string{"cache"},
		),
		seriesPoints: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finengine_series_points",
				Help:    "Points per downsampled series payload.",
				Buckets: []float64{30, 60, 120, 180, 365, 730},
			},
			[]string{"family"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finengine_requests_total",
				Help: "Total graph requests processed.",
			},
			[]string{"status"},
		),
	}
}

// RecordGraphDuration records the duration of one graph build.
func (m *Metrics) RecordGraphDuration(family string, d time.Duration) {
	m.graphDuration.WithLabelValues(family).Observe(d.Seconds())
}

// IncrLedgerError increments the ledger error counter.
func (m *Metrics) IncrLedgerError(op string) {
	m.ledgerErrors.WithLabelValues(op).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordSeriesPoints records the payload size of a downsampled series.
func (m *Metrics) RecordSeriesPoints(family string, points int) {
	m.seriesPoints.WithLabelValues(family).Observe(float64(points))
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// GetStats returns a snapshot of the cumulative counters for the
// GET /v1/stats endpoint.
func (m *Metrics) GetStats() *EngineStats {
	totalRequests := getCounterValue(m.requestsTotal, "success") +
		getCounterValue(m.requestsTotal, "error")
	errorCount := getCounterValue(m.requestsTotal, "error")
	cacheHits := getCounterValue(m.cacheHits, "graph")
	cacheMisses := getCounterValue(m.cacheMisses, "graph")

	errorRate := float64(0)
	cacheHitRate := float64(0)

	if totalRequests > 0 {
		errorRate = errorCount / totalRequests
	}
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	return &EngineStats{
		TotalRequests: int64(totalRequests),
		ErrorRate:     errorRate,
		CacheHitRate:  cacheHitRate,
		Period:        "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
