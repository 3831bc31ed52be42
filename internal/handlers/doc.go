// Package handlers provides the HTTP handlers for the tubeshelf API.
//
// It includes handlers for:
//   - Listing, searching and type-ahead suggestions over the videos directory
//   - Video streaming and on-demand thumbnails
//   - Embedded container tags
//   - Triggering yt-dlp downloads and the filename normalization pass
//   - Health checks, version and library stats
//
// Every error response is JSON. Video endpoints use {"message": ...};
// the download endpoint uses {"error": ..., "details": ...}.
package handlers
