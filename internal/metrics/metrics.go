package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var sizeBuckets = []float64{
	1024,         // 1 KB
	10240,        // 10 KB
	102400,       // 100 KB
	1048576,      // 1 MB
	10485760,     // 10 MB
	104857600,    // 100 MB
	1073741824,   // 1 GB
	10737418240,  // 10 GB
	107374182400, // 100 GB
}

// Counter metrics (monotonically increasing)
var (
	// UploadsTotal counts file uploads by status (success, rejected, failure)
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileshare_uploads_total",
			Help: "Total number of file uploads",
		},
		[]string{"status"},
	)

	// DownloadsTotal counts content accesses by mode (download, preview) and status
	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileshare_downloads_total",
			Help: "Total number of file content accesses",
		},
		[]string{"mode", "status"},
	)

	// SweepDeletedTotal counts files removed by the expiry sweep
	SweepDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fileshare_sweep_deleted_total",
			Help: "Total number of expired files deleted by the sweep",
		},
	)

	// SweepFailuresTotal counts per-file sweep failures
	SweepFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fileshare_sweep_failures_total",
			Help: "Total number of expired files the sweep failed to delete",
		},
	)

	// HTTPRequestsTotal counts total HTTP requests by method, route, and status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileshare_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ErrorsTotal counts application errors by type
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileshare_errors_total",
			Help: "Total number of application errors",
		},
		[]string{"type"},
	)
)

// Histogram metrics (distributions)
var (
	// HTTPRequestDuration tracks HTTP request latency by method and route
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fileshare_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path"},
	)

	// UploadSizeBytes tracks distribution of uploaded file sizes
	UploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fileshare_upload_size_bytes",
			Help:    "Distribution of uploaded file sizes in bytes",
			Buckets: sizeBuckets,
		},
	)

	// DownloadSizeBytes tracks distribution of served file sizes
	DownloadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fileshare_download_size_bytes",
			Help:    "Distribution of served file sizes in bytes",
			Buckets: sizeBuckets,
		},
	)

	// SweepDuration tracks how long one expiry sweep takes
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fileshare_sweep_duration_seconds",
			Help:    "Expiry sweep duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)
)

// Health check metrics
var (
	// HealthStatus is a gauge representing current health status
	// Values: 0 = unhealthy, 1 = degraded, 2 = healthy
	HealthStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fileshare_health_status",
			Help: "Current health status (0=unhealthy, 1=degraded, 2=healthy)",
		},
	)

	// HealthChecksTotal counts health checks by status
	HealthChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileshare_health_checks_total",
			Help: "Total number of health checks performed",
		},
		[]string{"status"},
	)
)
