package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"tubeshelf/internal/downloader"
	"tubeshelf/internal/logging"
	"tubeshelf/internal/process"
)

const maxDownloadBody = 64 * 1024

// DownloadRequest is the body of POST /api/videos/download.
type DownloadRequest struct {
	URL string `json:"url"`
}

// DownloadResponse is returned when yt-dlp succeeded. Error carries yt-dlp's
// stderr, which is often non-empty (warnings) even on success.
type DownloadResponse struct {
	Message string `json:"message"`
	Output  string `json:"output"`
	Error   string `json:"error"`
}

// DownloadVideo runs yt-dlp for the posted URL and waits for it to finish.
func (h *Handlers) DownloadVideo(w http.ResponseWriter, r *http.Request) {
	var req DownloadRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxDownloadBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		// An unreadable body carries no URL; validation below rejects it.
		logging.Debug("DownloadVideo: unreadable body: %v", err)
	}

	if err := downloader.ValidateURL(req.URL); err != nil {
		if errors.Is(err, downloader.ErrURLRequired) {
			writeJSONError(w, http.StatusBadRequest, "Video URL is required.")
		} else {
			writeJSONError(w, http.StatusBadRequest, "Video URL must be an http or https URL.")
		}
		return
	}

	result, err := h.downloader.Download(r.Context(), req.URL)
	if err != nil {
		details := errorDetails(err)
		if result != nil && result.Stderr != "" {
			details = result.Stderr
		}

		status, message := http.StatusInternalServerError, "Failed to download video."
		if errors.Is(err, process.ErrTimeout) {
			status, message = http.StatusGatewayTimeout, "Video download timed out."
		}
		writeJSON(w, status, map[string]string{
			"error":   message,
			"details": details,
		})
		return
	}

	writeJSON(w, http.StatusOK, DownloadResponse{
		Message: "Video downloaded.",
		Output:  result.Stdout,
		Error:   result.Stderr,
	})
}

// NormalizeFilenames runs the rename pass on its own and reports what changed.
func (h *Handlers) NormalizeFilenames(w http.ResponseWriter, _ *http.Request) {
	report, err := h.downloader.Normalize()
	if err != nil {
		logging.Error("NormalizeFilenames failed: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to normalize filenames.")
		return
	}

	writeJSON(w, http.StatusOK, report)
}
