package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tubeshelf/internal/catalog"
	"tubeshelf/internal/downloader"
	"tubeshelf/internal/filesystem"
	"tubeshelf/internal/handlers"
	"tubeshelf/internal/logging"
	"tubeshelf/internal/memory"
	"tubeshelf/internal/metrics"
	"tubeshelf/internal/middleware"
	"tubeshelf/internal/process"
	"tubeshelf/internal/startup"
	"tubeshelf/internal/thumbnail"
	"tubeshelf/internal/transcoder"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"
)

func main() {
	startTime := time.Now()
	fs := afero.NewOsFs()

	// Load configuration
	config, err := startup.LoadConfig(fs)
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	memory.Configure(config.MemoryLimit, config.MemoryRatio)

	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"videos":     config.VideosDir,
		"thumbnails": config.ThumbnailsDir,
	}))
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	metrics.InitializeMetrics(startup.Version, startup.Commit)

	runner := process.NewExecRunner()
	startup.CheckTools(context.Background(), runner, config)

	cat := catalog.New(fs, config.VideosDir, catalog.Options{Workers: config.CatalogWorkers})

	trans := transcoder.New(runner, fs, transcoder.Config{
		FFmpegPath: config.FFmpegPath,
		Timeout:    config.FFmpegTimeout,
	})
	thumbs := thumbnail.New(fs, cat, trans, thumbnail.Config{
		Dir:      config.ThumbnailsDir,
		Enabled:  config.ThumbnailsEnabled,
		MaxWidth: config.ThumbnailMaxWidth,
	})
	if config.ThumbnailsEnabled {
		thumbs.RemoveStale()
	}

	dl := downloader.New(fs, runner, downloader.Config{
		VideosDir:  config.VideosDir,
		YtDlpPath:  config.YtDlpPath,
		FormatSort: config.DownloadFormatSort,
		Timeout:    config.DownloadTimeout,
	})

	// Initialize handlers
	h := handlers.New(fs, cat, thumbs, dl)

	collector := metrics.NewCollector(h, config.StatsInterval)
	collector.Start()

	// Setup router
	router := setupRouter(h)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	handler := buildHandler(router, config)

	// Create server. WriteTimeout stays 0: downloads and video streams run
	// long and carry their own deadlines.
	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = startMetricsServer(config.MetricsPort, h)
	}

	// Start graceful shutdown handler
	go handleShutdown(srv, metricsSrv, collector, runner)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// Video API
	r.HandleFunc("/api/videos", h.ListVideos).Methods("GET")
	videos := r.PathPrefix("/api/videos").Subrouter()
	videos.HandleFunc("/", h.ListVideos).Methods("GET")
	videos.HandleFunc("/search", h.SearchVideos).Methods("GET")
	videos.HandleFunc("/search/suggestions", h.SearchSuggestions).Methods("GET")
	videos.HandleFunc("/serve/{title}", h.ServeVideo).Methods("GET")
	videos.HandleFunc("/thumbnail/{title}", h.GetThumbnail).Methods("GET")
	videos.HandleFunc("/tags/{title}", h.GetVideoTags).Methods("GET")
	videos.HandleFunc("/download", h.DownloadVideo).Methods("POST")
	videos.HandleFunc("/normalize", h.NormalizeFilenames).Methods("POST")

	r.HandleFunc("/api/stats", h.GetLibraryStats).Methods("GET")

	return r
}

// buildHandler wraps the router in the middleware chain. Metrics runs
// inside the router so it can label requests by route template.
func buildHandler(router *mux.Router, config *startup.Config) http.Handler {
	router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	var handler http.Handler = middleware.Logger(loggingConfig)(router)
	handler = middleware.Compression(middleware.DefaultCompressionConfig())(handler)
	handler = middleware.CORS(config.CORSAllowedOrigins)(handler)
	return middleware.RequestID(handler)
}

func startMetricsServer(port string, h *handlers.Handlers) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", h.MetricsHandler())

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics server error: %v", err)
		}
	}()
	return srv
}

func handleShutdown(srv, metricsSrv *http.Server, collector *metrics.Collector, runner *process.ExecRunner) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping metrics collector")
	collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	startup.LogShutdownStep("Killing external processes")
	runner.Cleanup()
	startup.LogShutdownStepComplete("External processes stopped")

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownComplete()
}
