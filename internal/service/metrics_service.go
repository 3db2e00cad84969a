package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/inventory-report-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	cacheLatency     prometheus.Observer
	cacheWrite       prometheus.Observer
	cacheHitRatio    prometheus.Gauge
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	providerDuration *prometheus.HistogramVec
	providerErrors   *prometheus.CounterVec
	reportDuration   *prometheus.HistogramVec
	reportTotal      *prometheus.CounterVec
	degradations     *prometheus.CounterVec
	exportJobs       *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	providerCallCount    uint64
	providerErrorCount   uint64
	reportCount          uint64
	reportFailureCount   uint64
	degradationCount     uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	providerDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "provider_request_duration_seconds",
		Help:    "Duration of calls to product, stock, order and supplier services",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "operation"})

	providerErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "provider_request_errors_total",
		Help: "Failed calls to collaborator services",
	}, []string{"provider", "operation"})

	reportDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "report_generation_duration_seconds",
		Help:    "End-to-end report generation time",
		Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"report_type", "outcome"})

	reportTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reports_generated_total",
		Help: "Report generation runs by type, outcome and terminal stage",
	}, []string{"report_type", "outcome", "stage"})

	degradations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_degradations_total",
		Help: "Join misses and dropped parameters absorbed while building reports",
	}, []string{"report_type", "kind"})

	exportJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_export_jobs_total",
		Help: "Export jobs by format and final status",
	}, []string{"format", "status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		providerDuration, providerErrors, reportDuration, reportTotal, degradations, exportJobs, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		cacheLatency:     cacheLatency,
		cacheWrite:       cacheWrite,
		cacheHitRatio:    cacheHitRatio,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		providerDuration: providerDuration,
		providerErrors:   providerErrors,
		reportDuration:   reportDuration,
		reportTotal:      reportTotal,
		degradations:     degradations,
		exportJobs:       exportJobs,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the private registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveProviderCall records one outbound collaborator call.
func (m *MetricsService) ObserveProviderCall(provider, operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	m.providerDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
	atomic.AddUint64(&m.providerCallCount, 1)
	if err != nil {
		m.providerErrors.WithLabelValues(provider, operation).Inc()
		atomic.AddUint64(&m.providerErrorCount, 1)
	}
}

// ObserveReport records the terminal stage of a generation run.
func (m *MetricsService) ObserveReport(reportType string, stage models.ReportStage, duration time.Duration) {
	if m == nil {
		return
	}
	if reportType == "" {
		reportType = "unknown"
	}
	outcome := "success"
	if stage != models.ReportStageDone {
		outcome = "failure"
		atomic.AddUint64(&m.reportFailureCount, 1)
	}
	m.reportDuration.WithLabelValues(reportType, outcome).Observe(duration.Seconds())
	m.reportTotal.WithLabelValues(reportType, outcome, string(stage)).Inc()
	atomic.AddUint64(&m.reportCount, 1)
}

// RecordDegradation counts a diagnostic event absorbed by a report builder.
func (m *MetricsService) RecordDegradation(reportType string, kind DiagnosticKind) {
	if m == nil {
		return
	}
	m.degradations.WithLabelValues(reportType, string(kind)).Inc()
	atomic.AddUint64(&m.degradationCount, 1)
}

// RecordExportJob counts an export job reaching a final status.
func (m *MetricsService) RecordExportJob(format string, status models.ExportStatus) {
	if m == nil {
		return
	}
	m.exportJobs.WithLabelValues(format, string(status)).Inc()
}

// Snapshot returns aggregated metrics suitable for the JSON metrics endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if totalLookups := hits + misses; totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		ReportsGenerated:         atomic.LoadUint64(&m.reportCount),
		ReportsFailed:            atomic.LoadUint64(&m.reportFailureCount),
		ProviderCalls:            atomic.LoadUint64(&m.providerCallCount),
		ProviderErrors:           atomic.LoadUint64(&m.providerErrorCount),
		Degradations:             atomic.LoadUint64(&m.degradationCount),
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
