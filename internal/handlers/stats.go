package handlers

import (
	"net/http"

	"tubeshelf/internal/logging"
	"tubeshelf/internal/metrics"
)

// GetStats implements metrics.StatsProvider. Partial results are returned
// when one of the directories cannot be read.
func (h *Handlers) GetStats() metrics.Stats {
	var stats metrics.Stats

	lib, err := h.catalog.Stats()
	if err != nil {
		logging.Warn("Failed to collect library stats: %v", err)
	} else {
		stats.Videos = lib.Videos
		stats.TotalVideos = lib.Total
		stats.VideoBytes = lib.Bytes
		stats.Sidecars = lib.Sidecars
	}

	count, size, err := h.thumbnails.Stats()
	if err != nil {
		logging.Debug("Failed to collect thumbnail stats: %v", err)
	} else {
		stats.Thumbnails = count
		stats.ThumbnailBytes = size
	}

	if stats.Videos == nil {
		stats.Videos = map[string]int{}
	}
	return stats
}

// GetLibraryStats returns the library summary as JSON.
func (h *Handlers) GetLibraryStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.GetStats())
}
