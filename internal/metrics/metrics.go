package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videoteka_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "videoteka_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videoteka_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Library store metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videoteka_db_queries_total",
			Help: "Total number of library store queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "videoteka_db_query_duration_seconds",
			Help:    "Library store query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videoteka_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Scan metrics
var (
	ScanRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videoteka_scan_runs_total",
			Help: "Total number of library scans by final state",
		},
		[]string{"state"},
	)

	ScanIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videoteka_scan_running",
			Help: "Whether a scan is currently running (1 = running, 0 = idle)",
		},
	)

	ScanLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videoteka_scan_last_run_timestamp",
			Help: "Timestamp of the last completed scan",
		},
	)

	ScanLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videoteka_scan_last_run_duration_seconds",
			Help: "Duration of the last completed scan in seconds",
		},
	)

	ScanFilesDiscovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videoteka_scan_files_discovered_total",
			Help: "Total number of candidate files discovered by scans",
		},
	)

	ScanFilesPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videoteka_scan_files_persisted_total",
			Help: "Total number of media records persisted by scans",
		},
	)

	ScanFilesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videoteka_scan_files_skipped_total",
			Help: "Total number of files skipped due to per-item failures",
		},
	)
)

// Metadata extraction metrics
var (
	ExtractProbeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videoteka_extract_probe_failures_total",
			Help: "Total number of metadata probe failures by probe and reason",
		},
		[]string{"probe", "reason"},
	)

	ExtractDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "videoteka_extract_duration_seconds",
			Help:    "Metadata extraction duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15},
		},
		[]string{"kind"},
	)
)

// Preview cache metrics
var (
	PreviewCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videoteka_preview_cache_hits_total",
			Help: "Total number of preview cache hits",
		},
	)

	PreviewCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videoteka_preview_cache_misses_total",
			Help: "Total number of preview cache misses",
		},
	)

	PreviewGenDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "videoteka_preview_generation_duration_seconds",
			Help:    "Preview generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	PreviewGenErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videoteka_preview_generation_errors_total",
			Help: "Total number of failed preview generations",
		},
	)
)

// Filesystem metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videoteka_filesystem_retry_attempts_total",
			Help: "Total number of filesystem operation retries",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videoteka_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after retries",
		},
		[]string{"operation"},
	)
)
