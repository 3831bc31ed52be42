// Package main is the tubeshelf server.
//
// tubeshelf serves a flat directory of downloaded videos over HTTP: it lists
// and searches them, streams their bytes, cuts thumbnails with ffmpeg on first
// request and fetches new videos with yt-dlp.
//
// # Application Lifecycle
//
//  1. Configuration: environment, .env and the optional TUBESHELF_CONFIG file
//     are read; directories are created and the thumbnail directory probed.
//  2. Memory: the Go soft memory limit is set from GOMEMLIMIT or MEMORY_LIMIT.
//  3. Components: process runner, catalog, ffmpeg frame extractor, thumbnail
//     cache (stale temp files removed), downloader and handlers.
//  4. HTTP: the router is wrapped in request id, CORS, access log and
//     compression middleware; metrics are served on their own port.
//  5. Shutdown: on SIGINT/SIGTERM the stats collector stops, running ffmpeg
//     and yt-dlp processes are killed and both listeners drain for up to 30s.
//
// # Background Services
//
// The only goroutine outside request handling is the metrics collector, which
// refreshes the library gauges every STATS_INTERVAL.
package main
