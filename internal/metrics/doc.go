// Package metrics provides Prometheus instrumentation for tubeshelf.
//
// All metrics are prefixed with "tubeshelf_" and registered with promauto on
// the default registry. Mount promhttp.Handler() on the metrics port to
// expose them:
//
//	mux.Handle("/metrics", promhttp.Handler())
//
// # Metric Categories
//
//   - HTTP: request counts, latency and in-flight requests, recorded by the
//     middleware package.
//   - Catalog: directory scans, scan latency, sidecar read failures.
//   - Thumbnail: cache hits and misses, generation outcomes and latency,
//     lock waits, cache size (refreshed by the Collector).
//   - Process: ffmpeg and yt-dlp invocations by outcome, wall time and the
//     number currently running.
//   - Download: downloader outcomes and filename normalization results.
//   - Streaming: active streams, bytes sent, stream outcomes.
//   - Library: video counts per container, total size, sidecar count.
//   - Filesystem: stale-handle retries on network mounts.
//
// InitializeMetrics pre-creates every label combination so dashboards do
// not show gaps before the first event of each kind.
package metrics
