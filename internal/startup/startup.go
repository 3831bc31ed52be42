package startup

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"tubeshelf/internal/filesystem"
	"tubeshelf/internal/logging"
	"tubeshelf/internal/process"

	"github.com/gorilla/mux"
	"github.com/samber/lo"
	"github.com/spf13/afero"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// LoadConfig loads configuration for the server, logging the banner, the
// effective settings and the directory setup as it goes.
func LoadConfig(fs afero.Fs) (*Config, error) {
	loadedEnv, envErr := LoadDotEnv()

	v := NewViper()
	config, warnings, err := Load(v)
	if err != nil {
		return nil, err
	}
	applyLogLevel(config.LogLevel)

	printBanner()
	logSystemInfo()

	logSection("CONFIGURATION")
	if envErr != nil {
		logging.Warn("  %v", envErr)
	}
	for _, f := range loadedEnv {
		logging.Info("  Loaded environment from %s", f)
	}
	if config.ConfigFile != "" {
		logging.Info("  Config file: %s", config.ConfigFile)
	}
	logSettings([][2]string{
		{"VIDEOS_DIR", config.VideosDir},
		{"THUMBNAILS_DIR", config.ThumbnailsDir},
		{"PORT", config.Port},
		{"METRICS_PORT", config.MetricsPort},
		{"METRICS_ENABLED", strconv.FormatBool(config.MetricsEnabled)},
		{"STATS_INTERVAL", config.StatsInterval.String()},
		{"FFMPEG_PATH", config.FFmpegPath},
		{"YTDLP_PATH", config.YtDlpPath},
		{"FFMPEG_TIMEOUT", config.FFmpegTimeout.String()},
		{"DOWNLOAD_TIMEOUT", config.DownloadTimeout.String()},
		{"DOWNLOAD_FORMAT_SORT", config.DownloadFormatSort},
		{"THUMBNAIL_MAX_WIDTH", strconv.Itoa(config.ThumbnailMaxWidth)},
		{"CORS_ALLOWED_ORIGINS", strings.Join(config.CORSAllowedOrigins, ", ")},
		{"LOG_STATIC_FILES", strconv.FormatBool(config.LogStaticFiles)},
		{"LOG_HEALTH_CHECKS", strconv.FormatBool(config.LogHealthChecks)},
		{"LOG_LEVEL", logging.GetLevel().String()},
		{"CATALOG_WORKERS", strconv.Itoa(config.CatalogWorkers)},
		{"MEMORY_RATIO", strconv.FormatFloat(config.MemoryRatio, 'f', 2, 64)},
	})
	for _, w := range warnings {
		logging.Warn("  %s", w)
	}

	logSection("DIRECTORY SETUP")

	if err := SetupDirectories(fs, config); err != nil {
		return nil, err
	}

	logging.Info("")
	logging.Info("  Features: listing and streaming ENABLED, thumbnails %s, metrics %s",
		toggle(config.ThumbnailsEnabled, "ENABLED", "DISABLED"), toggle(config.MetricsEnabled, "ENABLED", "DISABLED"))

	return config, nil
}

func applyLogLevel(name string) {
	if os.Getenv("DEBUG") != "" && logging.IsDebugEnabled() {
		return
	}
	level, ok := logging.ParseLevel(name)
	if !ok && name != "" {
		logging.Warn("Unknown LOG_LEVEL %q, using info", name)
	}
	logging.SetLevel(level)
}

// SetupDirectories resolves both directories to absolute paths, creates
// the videos directory if needed and probes the thumbnail directory. A
// thumbnail directory that cannot be written disables generation.
func SetupDirectories(fs afero.Fs, config *Config) error {
	var err error

	config.VideosDir, err = filepath.Abs(config.VideosDir)
	if err != nil {
		return fmt.Errorf("failed to resolve videos directory path: %w", err)
	}
	logging.Info("  Videos directory (absolute): %s", config.VideosDir)

	config.ThumbnailsDir, err = filepath.Abs(config.ThumbnailsDir)
	if err != nil {
		return fmt.Errorf("failed to resolve thumbnails directory path: %w", err)
	}
	logging.Info("  Thumbnails directory (absolute): %s", config.ThumbnailsDir)

	if err := ensureDirectory(fs, config.VideosDir, "videos"); err != nil {
		return fmt.Errorf("videos directory error: %w", err)
	}

	config.ThumbnailsEnabled = setupOptionalDir(fs, config.ThumbnailsDir, "thumbnails")
	return nil
}

func setupOptionalDir(fs afero.Fs, path, name string) bool {
	logging.Debug("  Setting up %s directory: %s", name, path)

	if err := fs.MkdirAll(path, 0o755); err != nil {
		logging.Warn("    Failed to create %s directory: %v", name, err)
		logging.Warn("    %s generation will be disabled", name)
		return false
	}

	if err := testWriteAccess(fs, path); err != nil {
		logging.Warn("    %s directory is not writable: %v", name, err)
		logging.Warn("    %s generation will be disabled", name)
		return false
	}

	logging.Debug("    [OK] %s directory ready", name)
	return true
}

func toggle(on bool, yes, no string) string {
	if on {
		return yes
	}
	return no
}

const rule = "------------------------------------------------------------"

// logSection prints a titled separator block in the startup log.
func logSection(format string, args ...interface{}) {
	logging.Info("")
	logging.Info(rule)
	logging.Info(format, args...)
	logging.Info(rule)
}

// logSettings prints name/value pairs with the values lined up.
func logSettings(settings [][2]string) {
	width := 0
	for _, kv := range settings {
		width = max(width, len(kv[0]))
	}
	for _, kv := range settings {
		logging.Info("  %-*s %s", width+1, kv[0]+":", kv[1])
	}
}

// ToolStatus reports which external programs answered a version probe.
type ToolStatus struct {
	FFmpeg bool
	YtDlp  bool
}

// CheckTools probes ffmpeg and yt-dlp. Missing tools are logged, not fatal:
// the catalog and streaming work without them.
func CheckTools(ctx context.Context, runner process.Runner, config *Config) ToolStatus {
	logSection("EXTERNAL TOOLS")

	status := ToolStatus{
		FFmpeg: checkTool(ctx, runner, "ffmpeg", config.FFmpegPath, "-version"),
		YtDlp:  checkTool(ctx, runner, "yt-dlp", config.YtDlpPath, "--version"),
	}
	if !status.FFmpeg {
		logging.Warn("  Thumbnails cannot be generated until ffmpeg is available")
	}
	if !status.YtDlp {
		logging.Warn("  Downloads will fail until yt-dlp is available")
	}
	return status
}

func checkTool(ctx context.Context, runner process.Runner, tool, path, versionFlag string) bool {
	resolved, err := process.LookPath(path)
	if err != nil {
		logging.Warn("  %s not found (%s): %v", tool, path, err)
		return false
	}
	logging.Debug("  %s path: %s", tool, resolved)

	result, err := runner.Run(ctx, process.Command{
		Tool:    tool,
		Path:    path,
		Args:    []string{versionFlag},
		Timeout: 5 * time.Second,
	})
	if err != nil {
		logging.Warn("  %s version check failed: %v", tool, err)
		return false
	}

	version, _, _ := strings.Cut(strings.TrimSpace(result.Stdout), "\n")
	logging.Info("  [OK] %s: %s", tool, version)
	return true
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	logSection("HTTP SERVER SETUP")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}
		logging.Debug("  Registered routes (%d total):", len(routes))

		groups := lo.GroupBy(routes, func(r RouteInfo) string { return getRouteGroup(r.Path) })
		for _, group := range slices.Sorted(maps.Keys(groups)) {
			logging.Debug("  [%s]", toggle(group != "", group, "root"))
			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
		}
	}

	logging.Info("  Access log: media requests %s, health checks %s",
		toggle(logStaticFiles, "ON", "OFF (LOG_STATIC_FILES=true)"),
		toggle(logHealthChecks, "ON", "OFF (LOG_HEALTH_CHECKS=true)"))
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	first, rest, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if first == "api" && rest != "" {
		second, _, _ := strings.Cut(rest, "/")
		return "api/" + second
	}
	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	metricsURL := "DISABLED"
	if config.MetricsEnabled {
		metricsURL = fmt.Sprintf("http://0.0.0.0:%s/metrics", config.MetricsPort)
	}

	logSection("SERVER STARTED")
	logSettings([][2]string{
		{"Startup time", config.StartupDuration.Round(time.Millisecond).String()},
		{"API", fmt.Sprintf("http://0.0.0.0:%s/api/videos", config.Port)},
		{"Health", fmt.Sprintf("http://0.0.0.0:%s/health", config.Port)},
		{"Metrics", metricsURL},
	})
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info(rule)
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logSection("SHUTDOWN INITIATED (received %s)", signal)
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func printBanner() {
	banner := `
------------------------------------------------------------
  _         _              _          _  __
 | |_ _   _| |__   ___ ___| |__   ___| |/ _|
 | __| | | | '_ \ / _ / __| '_ \ / _ \ | |_
 | |_| |_| | |_) |  __\__ \ | | |  __/ |  _|
  \__|\__,_|_.__/ \___|___/_| |_|\___|_|_|

------------------------------------------------------------`
	fmt.Println(banner)
	logSettings([][2]string{
		{"Version", Version},
		{"Commit", Commit},
		{"Build Time", BuildTime},
		{"Started", time.Now().Format(time.RFC1123)},
	})
}

func logSystemInfo() {
	logSection("SYSTEM INFORMATION")
	logSettings([][2]string{
		{"Go version", runtime.Version()},
		{"OS/Arch", runtime.GOOS + "/" + runtime.GOARCH},
		{"CPUs available", strconv.Itoa(runtime.NumCPU())},
		{"GOMAXPROCS", strconv.Itoa(runtime.GOMAXPROCS(0))},
	})

	if logging.IsDebugEnabled() {
		wd, _ := os.Getwd()
		hostname, _ := os.Hostname()
		logging.Debug("  Working dir: %s, hostname: %s", wd, hostname)
	}
}

// ensureDirectory creates path when it is missing and fails when it names
// something other than a directory.
func ensureDirectory(fs afero.Fs, path, name string) error {
	info, err := filesystem.StatWithRetry(fs, path, filesystem.DefaultRetryConfig())
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := fs.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Info("  [OK] Created %s directory: %s", name, path)
		return nil
	case err != nil:
		return fmt.Errorf("failed to stat directory: %w", err)
	case !info.IsDir():
		return fmt.Errorf("%s is not a directory", path)
	}

	if logging.IsDebugEnabled() {
		entries, _ := filesystem.ReadDirWithRetry(fs, path, filesystem.DefaultRetryConfig())
		logging.Debug("    [OK] %s directory exists (%d entries)", name, len(entries))
	}
	return nil
}

func testWriteAccess(fs afero.Fs, dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := afero.WriteFile(fs, testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := fs.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}
