package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/pe-portal-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheLookups    *prometheus.CounterVec
	sessionSaves    *prometheus.CounterVec
	videoUploads    prometheus.Counter
	mergeRows       *prometheus.CounterVec
	aiRequests      *prometheus.CounterVec
	aiLatency       *prometheus.HistogramVec
}

// NewMetricsService registers the portal collectors on a private registry.
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
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	sessionSaves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "session_saves_total",
		Help: "Session saves by terminal stage",
	}, []string{"stage"})

	videoUploads := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "session_video_uploads_total",
		Help: "Video files uploaded while saving sessions",
	})

	mergeRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grade_merge_rows_total",
		Help: "Scanned grade rows processed by result",
	}, []string{"result"})

	aiRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ai_requests_total",
		Help: "AI requests by operation and result",
	}, []string{"operation", "result"})

	aiLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ai_request_duration_seconds",
		Help:    "Duration of AI requests",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
	}, []string{"operation"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheLookups,
		sessionSaves, videoUploads, mergeRows, aiRequests, aiLatency, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheLookups:    cacheLookups,
		sessionSaves:    sessionSaves,
		videoUploads:    videoUploads,
		mergeRows:       mergeRows,
		aiRequests:      aiRequests,
		aiLatency:       aiLatency,
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

// Registry exposes the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RequestCounter exposes the HTTP request counter.
func (m *MetricsService) RequestCounter() *prometheus.CounterVec {
	return m.requestTotal
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordSessionSave counts a finished session save by its terminal stage.
func (m *MetricsService) RecordSessionSave(outcome models.SaveOutcome) {
	if m == nil {
		return
	}
	m.sessionSaves.WithLabelValues(string(outcome.Stage)).Inc()
	if outcome.Uploaded > 0 {
		m.videoUploads.Add(float64(outcome.Uploaded))
	}
}

// RecordMergeRows counts merged rows.
func (m *MetricsService) RecordMergeRows(created, updated, failed int) {
	if m == nil {
		return
	}
	m.mergeRows.WithLabelValues("created").Add(float64(created))
	m.mergeRows.WithLabelValues("updated").Add(float64(updated))
	m.mergeRows.WithLabelValues("failed").Add(float64(failed))
}

// ObserveAIRequest records one AI call.
func (m *MetricsService) ObserveAIRequest(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.aiRequests.WithLabelValues(operation, result).Inc()
	m.aiLatency.WithLabelValues(operation).Observe(duration.Seconds())
}
