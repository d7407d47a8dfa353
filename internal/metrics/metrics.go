// Package metrics exposes Prometheus instruments for the dashboard server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "insights"

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultHit   = "hit"
	ResultMiss  = "miss"
)

// Metrics holds every instrument the server records into. Each value owns
// its registry so tests can build one without touching global state.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	blockDuration *prometheus.HistogramVec
	blockErrors   *prometheus.CounterVec
	chartRenders  *prometheus.CounterVec
	chartDuration *prometheus.HistogramVec
	chartCache    *prometheus.CounterVec
	rateLimited   *prometheus.CounterVec
	datasetRows   prometheus.Gauge
	datasetCols   prometheus.Gauge
	invalidValues *prometheus.GaugeVec
}

// New creates a Metrics with Go runtime and process collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"route", "method"}),
		blockDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "block_aggregation_duration_seconds",
			Help:      "Time spent aggregating one dashboard block.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"block"}),
		blockErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "block_errors_total",
			Help:      "Dashboard blocks that failed to aggregate.",
		}, []string{"block"}),
		chartRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_renders_total",
			Help:      "SVG chart renders by block and result.",
		}, []string{"block", "result"}),
		chartDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chart_render_duration_seconds",
			Help:      "SVG chart render latency by block.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"block"}),
		chartCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_cache_requests_total",
			Help:      "Rendered chart cache lookups by result.",
		}, []string{"result"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "Requests rejected by the per-client rate limit, by route.",
		}, []string{"route"}),
		datasetRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_rows",
			Help:      "Rows in the loaded report table.",
		}),
		datasetCols: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_columns",
			Help:      "Columns in the loaded report table.",
		}),
		invalidValues: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_invalid_values",
			Help:      "Cells that failed to parse at load time, by column.",
		}, []string{"column"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.blockDuration,
		m.blockErrors,
		m.chartRenders,
		m.chartDuration,
		m.chartCache,
		m.rateLimited,
		m.datasetRows,
		m.datasetCols,
		m.invalidValues,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveHTTP records one served request. route must be a low-cardinality
// pattern, not the raw path.
func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// ObserveBlock records one block aggregation. Its signature matches
// dashboard.Observer.
func (m *Metrics) ObserveBlock(id string, d time.Duration, err error) {
	m.blockDuration.WithLabelValues(id).Observe(d.Seconds())
	if err != nil {
		m.blockErrors.WithLabelValues(id).Inc()
	}
}

// ObserveChart records one SVG render attempt.
func (m *Metrics) ObserveChart(id string, d time.Duration, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.chartRenders.WithLabelValues(id, result).Inc()
	m.chartDuration.WithLabelValues(id).Observe(d.Seconds())
}

// ObserveRateLimited counts one rejected request.
func (m *Metrics) ObserveRateLimited(route string) {
	m.rateLimited.WithLabelValues(route).Inc()
}

// ObserveCache records a chart cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if hit {
		m.chartCache.WithLabelValues(ResultHit).Inc()
		return
	}
	m.chartCache.WithLabelValues(ResultMiss).Inc()
}

// SetDataset records the shape and data-quality counts of the loaded table.
func (m *Metrics) SetDataset(rows, columns int, invalid map[string]int) {
	m.datasetRows.Set(float64(rows))
	m.datasetCols.Set(float64(columns))
	for col, n := range invalid {
		m.invalidValues.WithLabelValues(col).Set(float64(n))
	}
}
