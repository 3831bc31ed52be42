// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// Configuration is read through viper ([NewViper], [Load]). Every key can be
// set from the environment variable of the same name in upper case, from a
// .env file in the working directory ([LoadDotEnv]), or from a YAML, TOML or
// JSON file named by TUBESHELF_CONFIG. Environment variables win over the
// file.
//
//   - VIDEOS_DIR: Directory holding videos and their .info.json sidecars (default: ./videos)
//   - THUMBNAILS_DIR: Thumbnail cache directory (default: ./thumbnails)
//   - PORT: HTTP server port (default: 3000)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - STATS_INTERVAL: Library gauge refresh interval (default: 1m)
//   - FFMPEG_PATH / YTDLP_PATH: External tool binaries (default: looked up on PATH)
//   - FFMPEG_TIMEOUT: Limit for one thumbnail extraction (default: 30s)
//   - DOWNLOAD_TIMEOUT: Limit for one yt-dlp run (default: 30m)
//   - DOWNLOAD_FORMAT_SORT: Value passed to yt-dlp -S (default: ext)
//   - THUMBNAIL_MAX_WIDTH: Downscale generated thumbnails wider than this (default: 0, off)
//   - CORS_ALLOWED_ORIGINS: Comma separated list of origins (default: *)
//   - LOG_LEVEL, LOG_STATIC_FILES, LOG_HEALTH_CHECKS: Logging controls
//   - CATALOG_WORKERS: Concurrent sidecar reads (default: derived from CPU count)
//   - MEMORY_LIMIT / MEMORY_RATIO: GOMEMLIMIT derivation
//
// Invalid values fall back to their defaults and are reported as warnings.
//
// # Directory Setup
//
// [SetupDirectories] makes both paths absolute, creates the videos
// directory when missing and probes the thumbnail directory with a test
// write. A thumbnail directory that cannot be written disables generation;
// cached thumbnails are still served.
//
// # Lifecycle Logging
//
// [LoadConfig], [CheckTools], [LogHTTPRoutes], [LogServerStarted] and the
// LogShutdown* helpers print the sectioned startup and shutdown log.
package startup
