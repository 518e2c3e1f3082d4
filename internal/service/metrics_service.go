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

// MetricsService owns the Prometheus registry for the attendance API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	scanTotal       *prometheus.CounterVec
	scanDuration    prometheus.Histogram
	outsideFence    prometheus.Counter
	backfillDates   *prometheus.CounterVec
	backfillGiveUps prometheus.Counter
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		scanTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_scans_total",
			Help: "Attendance scans by outcome and geofence result",
		}, []string{"outcome", "geofence"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "attendance_scan_duration_seconds",
			Help:    "End-to-end latency of scan processing",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		outsideFence: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attendance_scans_outside_geofence_total",
			Help: "Scans evaluated outside the geofence",
		}),
		backfillDates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leave_backfill_dates_total",
			Help: "Leave backfill dates by result",
		}, []string{"result"}),
		backfillGiveUps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leave_backfill_retry_exhausted_total",
			Help: "Backfill retry jobs that exhausted their attempts",
		}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache operations",
			Buckets: prometheus.DefBuckets,
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Latency for cache set operations",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cache_hit_ratio",
			Help: "Ratio of cache hits to total cache lookups",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache misses",
		}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		m.requestDuration, m.requestTotal, m.scanTotal, m.scanDuration, m.outsideFence,
		m.backfillDates, m.backfillGiveUps, m.cacheLatency, m.cacheWrite,
		m.cacheHitRatio, m.cacheHits, m.cacheMisses, goroutines,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
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
	return m.registry
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

// Geofence labels for scan metrics. Scans rejected before the geofence was
// evaluated are labelled unknown.
const (
	GeofenceInside  = "inside"
	GeofenceOutside = "outside"
	GeofenceUnknown = "unknown"
)

func geofenceLabel(inside bool) string {
	if inside {
		return GeofenceInside
	}
	return GeofenceOutside
}

// ObserveScan records the outcome of a scan, either a transition name or an error code.
func (m *MetricsService) ObserveScan(outcome, geofence string, duration time.Duration) {
	if m == nil {
		return
	}
	m.scanTotal.WithLabelValues(outcome, geofence).Inc()
	m.scanDuration.Observe(duration.Seconds())
	if geofence == GeofenceOutside {
		m.outsideFence.Inc()
	}
}

// ObserveBackfill adds per-date backfill tallies.
func (m *MetricsService) ObserveBackfill(created, skipped, failed int) {
	if m == nil {
		return
	}
	m.backfillDates.WithLabelValues("created").Add(float64(created))
	m.backfillDates.WithLabelValues("skipped").Add(float64(skipped))
	m.backfillDates.WithLabelValues("failed").Add(float64(failed))
}

// BackfillGaveUp counts retry jobs dropped after their final attempt.
func (m *MetricsService) BackfillGaveUp() {
	if m == nil {
		return
	}
	m.backfillGiveUps.Inc()
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
