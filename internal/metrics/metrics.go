// Package metrics provides Prometheus metrics for dtsfetch.
//
// [Metrics] implements the observability hook interfaces; serve mode
// registers it at startup and exposes [Metrics.Handler] on /metrics.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors, registered on its own registry.
type Metrics struct {
	reg *prometheus.Registry

	runsTotal        *prometheus.CounterVec
	runDuration      prometheus.Histogram
	runFiles         prometheus.Histogram
	treesTotal       *prometheus.CounterVec
	filesTotal       *prometheus.CounterVec
	fileBytes        prometheus.Counter
	cacheOpsTotal    *prometheus.CounterVec
	cacheBytes       prometheus.Counter
	upstreamTotal    *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	httpTotal        *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New creates a Metrics with a fresh registry that also carries the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,

		// Acquisition metrics
		runsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dtsfetch_runs_total",
			Help: "Total acquisition runs",
		}, []string{"name"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dtsfetch_run_duration_seconds",
			Help:    "Acquisition run duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		runFiles: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dtsfetch_run_files",
			Help:    "Declaration files downloaded per run",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		treesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dtsfetch_trees_total",
			Help: "Module file tree lookups",
		}, []string{"kind", "status"}),
		filesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dtsfetch_files_total",
			Help: "Declaration file downloads",
		}, []string{"status"}),
		fileBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "dtsfetch_file_bytes_total",
			Help: "Bytes of declaration text downloaded",
		}),

		// Cache metrics
		cacheOpsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dtsfetch_cache_operations_total",
			Help: "Response cache operations",
		}, []string{"key_type", "result"}),
		cacheBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "dtsfetch_cache_bytes_written_total",
			Help: "Bytes written to the response cache",
		}),

		// Upstream registry metrics
		upstreamTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dtsfetch_upstream_requests_total",
			Help: "Requests sent to registries and CDNs",
		}, []string{"host", "status"}),
		upstreamDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dtsfetch_upstream_request_duration_seconds",
			Help:    "Upstream request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"host"}),

		// API metrics
		httpTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dtsfetch_http_requests_total",
			Help: "Total number of API requests",
		}, []string{"method", "path", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dtsfetch_http_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// Handler returns the Prometheus metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// RecordHTTPRequest records an API request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.httpTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) OnRunStart(_ context.Context, name string) {
	m.runsTotal.WithLabelValues(name).Inc()
}

func (m *Metrics) OnRunComplete(_ context.Context, _ string, downloaded int, duration time.Duration) {
	m.runDuration.Observe(duration.Seconds())
	m.runFiles.Observe(float64(downloaded))
}

func (m *Metrics) OnTreeResolved(_ context.Context, _ string, types bool, err error) {
	kind := "module"
	if types {
		kind = "types"
	}
	m.treesTotal.WithLabelValues(kind, status(err)).Inc()
}

func (m *Metrics) OnFileDownloaded(_ context.Context, _ string, size int, err error) {
	m.filesTotal.WithLabelValues(status(err)).Inc()
	if err == nil {
		m.fileBytes.Add(float64(size))
	}
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheOpsTotal.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheOpsTotal.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheOpsTotal.WithLabelValues(keyType, "set").Inc()
	m.cacheBytes.Add(float64(size))
}

func (m *Metrics) OnRequest(context.Context, string, string, string) {}

func (m *Metrics) OnResponse(_ context.Context, _, host, _ string, statusCode int, duration time.Duration) {
	m.upstreamTotal.WithLabelValues(host, strconv.Itoa(statusCode)).Inc()
	m.upstreamDuration.WithLabelValues(host).Observe(duration.Seconds())
}

func (m *Metrics) OnError(_ context.Context, _, host, _ string, _ error) {
	m.upstreamTotal.WithLabelValues(host, "error").Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
