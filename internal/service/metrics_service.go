package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP surface and domain commands.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	commandTotal    *prometheus.CounterVec
	compensations   *prometheus.CounterVec
	storageOps      *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests by route template and caller role",
	}, []string{"method", "route", "role", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "progress_cache_latency_seconds",
		Help:    "Latency for progress cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "progress_cache_write_seconds",
		Help:    "Latency for progress cache writes",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "progress_cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "progress_cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "progress_cache_misses_total",
		Help: "Total cache misses",
	})

	commandTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "domain_commands_total",
		Help: "Domain commands by name and outcome",
	}, []string{"command", "outcome"})

	compensations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "domain_compensations_total",
		Help: "Compensating actions run after a failed command",
	}, []string{"command", "outcome"})

	storageOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "material_storage_operations_total",
		Help: "Material storage calls by operation and outcome",
	}, []string{"operation", "outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		commandTotal, compensations, storageOps, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		commandTotal:    commandTotal,
		compensations:   compensations,
		storageOps:      storageOps,
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

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// HTTPObservation describes one served request.
type HTTPObservation struct {
	Method   string
	Route    string
	Role     string
	Status   int
	Duration time.Duration
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(obs HTTPObservation) {
	if m == nil {
		return
	}
	status := strconv.Itoa(obs.Status)
	m.requestDuration.WithLabelValues(obs.Method, obs.Route, status).Observe(obs.Duration.Seconds())
	m.requestTotal.WithLabelValues(obs.Method, obs.Route, obs.Role, status).Inc()
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
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
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

// RecordCommand counts a finished domain command.
func (m *MetricsService) RecordCommand(command string, err error) {
	if m == nil {
		return
	}
	m.commandTotal.WithLabelValues(command, outcomeLabel(err)).Inc()
}

// RecordCompensation counts a compensating action.
func (m *MetricsService) RecordCompensation(command string, err error) {
	if m == nil {
		return
	}
	m.compensations.WithLabelValues(command, outcomeLabel(err)).Inc()
}

// RecordStorageOperation counts a material storage call.
func (m *MetricsService) RecordStorageOperation(operation string, err error) {
	if m == nil {
		return
	}
	m.storageOps.WithLabelValues(operation, outcomeLabel(err)).Inc()
}

func outcomeLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
