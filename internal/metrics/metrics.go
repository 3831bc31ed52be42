package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubeshelf_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tubeshelf_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tubeshelf_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Catalog metrics
var (
	CatalogScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubeshelf_catalog_scans_total",
			Help: "Total number of videos directory scans",
		},
		[]string{"operation", "status"}, // operation: list, search, suggest
	)

	CatalogScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tubeshelf_catalog_scan_duration_seconds",
			Help:    "Duration of a videos directory scan including sidecar loading",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"operation"},
	)

	CatalogVideosScanned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tubeshelf_catalog_videos_scanned",
			Help:    "Number of videos found per scan",
			Buckets: []float64{0, 1, 10, 50, 100, 500, 1000, 5000},
		},
	)

	CatalogSidecarErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tubeshelf_catalog_sidecar_errors_total",
			Help: "Sidecar metadata files that could not be read or parsed",
		},
	)

	CatalogSidecarsMissing = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tubeshelf_catalog_sidecars_missing_total",
			Help: "Videos listed without a sidecar metadata file",
		},
	)
)

// Thumbnail metrics
var (
	ThumbnailCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tubeshelf_thumbnail_cache_hits_total",
			Help: "Total number of thumbnail cache hits",
		},
	)

	ThumbnailCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tubeshelf_thumbnail_cache_misses_total",
			Help: "Total number of thumbnail cache misses",
		},
	)

	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubeshelf_thumbnail_generations_total",
			Help: "Total number of thumbnail generations",
		},
		[]string{"status"}, // success, error, timeout, invalid
	)

	ThumbnailGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tubeshelf_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail generation duration in seconds (extraction, validation and rename)",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	ThumbnailLockWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tubeshelf_thumbnail_lock_waits_total",
			Help: "Requests that found a thumbnail after waiting on another request's generation",
		},
	)

	ThumbnailCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tubeshelf_thumbnail_cache_size_bytes",
			Help: "Total size of the thumbnail directory in bytes",
		},
	)

	ThumbnailCacheCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tubeshelf_thumbnail_cache_count",
			Help: "Number of cached thumbnails",
		},
	)
)

// External process metrics
var (
	ProcessRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubeshelf_process_runs_total",
			Help: "Total number of external process invocations",
		},
		[]string{"tool", "status"}, // status: success, exit_error, launch_error, timeout, canceled
	)

	ProcessDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tubeshelf_process_duration_seconds",
			Help:    "External process wall time in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300, 900, 1800},
		},
		[]string{"tool"},
	)

	ProcessesRunning = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tubeshelf_processes_running",
			Help: "External processes currently running",
		},
		[]string{"tool"},
	)
)

// Download metrics
var (
	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubeshelf_downloads_total",
			Help: "Total number of download requests handed to the downloader",
		},
		[]string{"status"}, // success, error, timeout
	)

	RenamesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubeshelf_filename_renames_total",
			Help: "Filename normalization outcomes",
		},
		[]string{"result"}, // renamed, skipped_exists, failed
	)
)

// Streaming metrics
var (
	StreamsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tubeshelf_streams_active",
			Help: "Video streams currently being served",
		},
	)

	StreamBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tubeshelf_stream_bytes_total",
			Help: "Total bytes of video sent to clients",
		},
	)

	StreamsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubeshelf_streams_total",
			Help: "Video streams by outcome",
		},
		[]string{"status"}, // complete, client_gone, timeout, error
	)
)

// Library metrics, refreshed by the Collector
var (
	LibraryVideos = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tubeshelf_library_videos",
			Help: "Number of videos in the videos directory by container",
		},
		[]string{"container"},
	)

	LibraryBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tubeshelf_library_size_bytes",
			Help: "Total size of the listed videos in bytes",
		},
	)

	LibrarySidecars = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tubeshelf_library_sidecars",
			Help: "Number of sidecar metadata files in the videos directory",
		},
	)
)

// Filesystem retry metrics (NFS stale handles on the videos volume)
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubeshelf_filesystem_retry_attempts_total",
			Help: "Filesystem operations retried after a stale file handle",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubeshelf_filesystem_retry_success_total",
			Help: "Filesystem operations that succeeded after at least one retry",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubeshelf_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubeshelf_filesystem_stale_errors_total",
			Help: "Stale file handle errors observed",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tubeshelf_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation duration including retries",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"operation", "volume"},
	)
)

// AppInfo exposes build information as labels on a constant gauge.
var AppInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "tubeshelf_app_info",
		Help: "Application build information",
	},
	[]string{"version", "commit", "go_version"},
)
