package metrics

import "runtime"

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup.
func InitializeMetrics(version, commit string) {
	AppInfo.WithLabelValues(version, commit, runtime.Version()).Set(1)

	for _, op := range []string{"list", "search", "suggest"} {
		CatalogScansTotal.WithLabelValues(op, "success")
		CatalogScansTotal.WithLabelValues(op, "error")
		CatalogScanDuration.WithLabelValues(op)
	}

	for _, status := range []string{"success", "error", "timeout", "invalid"} {
		ThumbnailGenerationsTotal.WithLabelValues(status)
	}

	for _, tool := range []string{"ffmpeg", "yt-dlp"} {
		for _, status := range []string{"success", "exit_error", "launch_error", "timeout", "canceled"} {
			ProcessRunsTotal.WithLabelValues(tool, status)
		}
		ProcessDuration.WithLabelValues(tool)
		ProcessesRunning.WithLabelValues(tool)
	}

	for _, status := range []string{"success", "error", "timeout"} {
		DownloadsTotal.WithLabelValues(status)
	}

	for _, result := range []string{"renamed", "skipped_exists", "failed"} {
		RenamesTotal.WithLabelValues(result)
	}

	for _, status := range []string{"complete", "client_gone", "timeout", "error"} {
		StreamsTotal.WithLabelValues(status)
	}

	for _, container := range []string{"mp4", "webm"} {
		LibraryVideos.WithLabelValues(container)
	}

	for _, op := range []string{"stat", "open", "readdir"} {
		for _, vol := range []string{"videos", "thumbnails", "unknown"} {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}
}
