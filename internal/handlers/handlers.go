package handlers

import (
	"time"

	"tubeshelf/internal/catalog"
	"tubeshelf/internal/downloader"
	"tubeshelf/internal/filesystem"
	"tubeshelf/internal/streaming"
	"tubeshelf/internal/thumbnail"

	"github.com/spf13/afero"
)

// Handlers serves the tubeshelf HTTP API.
type Handlers struct {
	fs         afero.Fs
	catalog    *catalog.Catalog
	thumbnails *thumbnail.Cache
	downloader *downloader.Downloader
	stream     streaming.TimeoutWriterConfig
	retry      filesystem.RetryConfig
	startTime  time.Time
}

// New creates the API handlers. fs must be the filesystem the catalog and
// thumbnail cache were built on.
func New(fs afero.Fs, cat *catalog.Catalog, thumbs *thumbnail.Cache, dl *downloader.Downloader) *Handlers {
	return &Handlers{
		fs:         fs,
		catalog:    cat,
		thumbnails: thumbs,
		downloader: dl,
		stream:     streaming.DefaultTimeoutWriterConfig(),
		retry:      filesystem.DefaultRetryConfig(),
		startTime:  time.Now(),
	}
}

// SetStreamConfig replaces the timeouts used for video responses.
func (h *Handlers) SetStreamConfig(config streaming.TimeoutWriterConfig) {
	h.stream = config
}
