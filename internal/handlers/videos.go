package handlers

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"tubeshelf/internal/catalog"
	"tubeshelf/internal/filesystem"
	"tubeshelf/internal/logging"
	"tubeshelf/internal/mediatypes"
	"tubeshelf/internal/process"
	"tubeshelf/internal/streaming"
	"tubeshelf/internal/thumbnail"

	"github.com/gorilla/mux"
)

const (
	defaultSuggestionLimit = 10
	maxSuggestionLimit     = 50
)

// ListVideos returns one page of the library.
func (h *Handlers) ListVideos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit := catalog.NormalizePaging(q.Get("page"), q.Get("limit"))

	result, err := h.catalog.List(r.Context(), page, limit)
	if err != nil {
		logging.Error("ListVideos failed: %v", err)
		writeJSONMessage(w, http.StatusInternalServerError, "Error retrieving videos")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// SearchVideos returns every video whose title contains the title query
// parameter, case-insensitively.
func (h *Handlers) SearchVideos(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("title")
	if query == "" {
		writeJSONMessage(w, http.StatusBadRequest, "Title query parameter is required")
		return
	}

	result, err := h.catalog.Search(r.Context(), query)
	if err != nil {
		logging.Error("SearchVideos failed for %q: %v", query, err)
		writeJSONMessage(w, http.StatusInternalServerError, "Error searching videos")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// SearchSuggestions returns fuzzy title matches for type-ahead.
func (h *Handlers) SearchSuggestions(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusOK, []catalog.Suggestion{})
		return
	}

	limit := defaultSuggestionLimit
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = min(l, maxSuggestionLimit)
	}

	suggestions, err := h.catalog.Suggest(r.Context(), query, limit)
	if err != nil {
		logging.Error("SearchSuggestions failed for %q: %v", query, err)
		writeJSONMessage(w, http.StatusInternalServerError, "Error searching videos")
		return
	}

	writeJSON(w, http.StatusOK, suggestions)
}

// ServeVideo streams the whole file behind {title}.
func (h *Handlers) ServeVideo(w http.ResponseWriter, r *http.Request) {
	title := mux.Vars(r)["title"]

	video, ok := h.resolve(w, title, "Error streaming video")
	if !ok {
		return
	}

	f, err := filesystem.OpenWithRetry(h.fs, video.Path, h.retry)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeJSONMessage(w, http.StatusNotFound, "Video not found")
			return
		}
		logging.Error("ServeVideo: failed to open %s: %v", video.Path, err)
		writeJSONMessage(w, http.StatusInternalServerError, "Error streaming video")
		return
	}
	defer f.Close()

	err = streaming.ServeFile(r.Context(), w, f, video.Size, mediatypes.GetMimeType(video.Ext), h.stream)
	switch {
	case err == nil:
	case errors.Is(err, streaming.ErrNotStarted):
		logging.Error("ServeVideo: failed to read %s: %v", video.Path, err)
		writeJSONMessage(w, http.StatusInternalServerError, "Error streaming video")
	case errors.Is(err, streaming.ErrClientGone), errors.Is(err, streaming.ErrStreamCanceled):
		logging.Debug("ServeVideo: client went away during %s: %v", title, err)
	default:
		logging.Warn("ServeVideo: stream of %s aborted: %v", title, err)
	}
}

// GetThumbnail serves <title>.jpg, generating it with ffmpeg on a miss.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	title := mux.Vars(r)["title"]
	if err := catalog.ValidateTitle(title); err != nil {
		writeJSONMessage(w, http.StatusBadRequest, "Invalid title")
		return
	}

	path, hit, err := h.thumbnails.Get(r.Context(), title)
	if err != nil {
		switch {
		case errors.Is(err, thumbnail.ErrVideoNotFound):
			writeJSONMessage(w, http.StatusNotFound, "Video not found")
		case errors.Is(err, thumbnail.ErrThumbnailsDisabled):
			writeJSONMessage(w, http.StatusServiceUnavailable, "Thumbnail generation is disabled")
		case errors.Is(err, process.ErrTimeout):
			logging.Warn("Thumbnail generation for %s timed out", title)
			writeJSONMessage(w, http.StatusGatewayTimeout, "Thumbnail generation timed out")
		default:
			logging.Error("Thumbnail generation failed for %s: %v", title, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"message": "Error generating thumbnail",
				"details": errorDetails(err),
			})
		}
		return
	}

	f, err := filesystem.OpenWithRetry(h.fs, path, h.retry)
	if err != nil {
		logging.Error("Thumbnail: failed to open %s: %v", path, err)
		writeJSONMessage(w, http.StatusInternalServerError, "Error generating thumbnail")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		logging.Error("Thumbnail: failed to stat %s: %v", path, err)
		writeJSONMessage(w, http.StatusInternalServerError, "Error generating thumbnail")
		return
	}

	cache := "MISS"
	if hit {
		cache = "HIT"
	}
	w.Header().Set("Content-Type", mediatypes.ThumbnailMimeType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("X-Thumbnail-Cache", cache)
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// GetVideoTags returns the tags embedded in the video container.
func (h *Handlers) GetVideoTags(w http.ResponseWriter, r *http.Request) {
	title := mux.Vars(r)["title"]

	video, ok := h.resolve(w, title, "Error reading tags")
	if !ok {
		return
	}

	tags, err := catalog.ReadTags(h.fs, video.Path, h.retry)
	if err != nil {
		if errors.Is(err, catalog.ErrNoTags) {
			writeJSONMessage(w, http.StatusUnprocessableEntity, "Video has no readable tags")
			return
		}
		logging.Error("GetVideoTags failed for %s: %v", title, err)
		writeJSONMessage(w, http.StatusInternalServerError, "Error reading tags")
		return
	}

	writeJSON(w, http.StatusOK, tags)
}

// resolve maps a title to its video, writing the error response itself
// when that fails.
func (h *Handlers) resolve(w http.ResponseWriter, title, failure string) (catalog.Video, bool) {
	video, err := h.catalog.Resolve(title)
	switch {
	case err == nil:
		return video, true
	case errors.Is(err, catalog.ErrInvalidTitle):
		writeJSONMessage(w, http.StatusBadRequest, "Invalid title")
	case errors.Is(err, catalog.ErrNotFound):
		writeJSONMessage(w, http.StatusNotFound, "Video not found")
	default:
		logging.Error("Failed to resolve %q: %v", title, err)
		writeJSONMessage(w, http.StatusInternalServerError, failure)
	}
	return catalog.Video{}, false
}
