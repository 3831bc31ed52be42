package handlers

import (
	"net/http"
	"runtime"
	"time"

	"tubeshelf/internal/filesystem"
	"tubeshelf/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Error   string `json:"error,omitempty"`

	// Feature info
	ThumbnailsEnabled bool `json:"thumbnailsEnabled"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service. The service is
// ready when the videos directory can be read.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:            statusHealthy,
		Ready:             true,
		Version:           startup.Version,
		Uptime:            time.Since(h.startTime).Round(time.Second).String(),
		ThumbnailsEnabled: h.thumbnails.IsEnabled(),
		GoVersion:         runtime.Version(),
		NumCPU:            runtime.NumCPU(),
		NumGoroutine:      runtime.NumGoroutine(),
	}

	if err := h.checkVideosDir(); err != nil {
		response.Status = statusDegraded
		response.Ready = false
		response.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	// For HEAD requests, only send headers (no body)
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ReadinessCheck returns 200 only when the videos directory is readable
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if err := h.checkVideosDir(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handlers) checkVideosDir() error {
	_, err := filesystem.ReadDirWithRetry(h.fs, h.catalog.Dir(), h.retry)
	return err
}
