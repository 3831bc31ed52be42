package startup

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration keys. Each is read from the environment variable of the
// same name in upper case, or from the optional config file.
const (
	KeyVideosDir          = "videos_dir"
	KeyThumbnailsDir      = "thumbnails_dir"
	KeyPort               = "port"
	KeyMetricsPort        = "metrics_port"
	KeyMetricsEnabled     = "metrics_enabled"
	KeyStatsInterval      = "stats_interval"
	KeyFFmpegPath         = "ffmpeg_path"
	KeyYtDlpPath          = "ytdlp_path"
	KeyFFmpegTimeout      = "ffmpeg_timeout"
	KeyDownloadTimeout    = "download_timeout"
	KeyDownloadFormatSort = "download_format_sort"
	KeyThumbnailMaxWidth  = "thumbnail_max_width"
	KeyCORSOrigins        = "cors_allowed_origins"
	KeyLogLevel           = "log_level"
	KeyLogStaticFiles     = "log_static_files"
	KeyLogHealthChecks    = "log_health_checks"
	KeyCatalogWorkers     = "catalog_workers"
	KeyMemoryLimit        = "memory_limit"
	KeyMemoryRatio        = "memory_ratio"
	KeyConfigFile         = "config"
)

// ConfigFileEnv names the environment variable that points at a config file.
const ConfigFileEnv = "TUBESHELF_CONFIG"

var defaults = map[string]any{
	KeyVideosDir:          "./videos",
	KeyThumbnailsDir:      "./thumbnails",
	KeyPort:               "3000",
	KeyMetricsPort:        "9090",
	KeyMetricsEnabled:     true,
	KeyStatsInterval:      "1m",
	KeyFFmpegPath:         "ffmpeg",
	KeyYtDlpPath:          "yt-dlp",
	KeyFFmpegTimeout:      "30s",
	KeyDownloadTimeout:    "30m",
	KeyDownloadFormatSort: "ext",
	KeyThumbnailMaxWidth:  0,
	KeyCORSOrigins:        "*",
	KeyLogLevel:           "info",
	KeyLogStaticFiles:     false,
	KeyLogHealthChecks:    true,
	KeyCatalogWorkers:     0,
	KeyMemoryLimit:        0,
	KeyMemoryRatio:        0.85,
}

// Config holds all application configuration
type Config struct {
	VideosDir     string
	ThumbnailsDir string

	Port           string
	MetricsPort    string
	MetricsEnabled bool
	StatsInterval  time.Duration

	FFmpegPath         string
	YtDlpPath          string
	FFmpegTimeout      time.Duration
	DownloadTimeout    time.Duration
	DownloadFormatSort string
	ThumbnailMaxWidth  int

	CORSAllowedOrigins []string

	LogLevel        string
	LogStaticFiles  bool
	LogHealthChecks bool

	CatalogWorkers int
	MemoryLimit    int64
	MemoryRatio    float64

	// ConfigFile is the file the settings were read from, if any.
	ConfigFile string

	// Set during directory setup
	ThumbnailsEnabled bool
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none
// are given) into the process environment. Variables that are already set
// win. Missing files are skipped; the files actually loaded are returned.
func LoadDotEnv(files ...string) ([]string, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var loaded []string
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return loaded, fmt.Errorf("load %s: %w", f, err)
		}
		loaded = append(loaded, f)
	}
	return loaded, nil
}

// NewViper returns a viper instance with every default registered and
// environment lookup enabled.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv(KeyConfigFile, ConfigFileEnv)

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

// Load reads the configuration from v, including the config file named by
// TUBESHELF_CONFIG when set. Invalid values fall back to their defaults with
// a warning; only an unreadable config file is an error.
func Load(v *viper.Viper) (*Config, []string, error) {
	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	configFile := v.GetString(KeyConfigFile)
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, warnings, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	duration := func(key string) time.Duration {
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil || d <= 0 {
			def, _ := time.ParseDuration(defaults[key].(string))
			warn("Invalid %s %q, using default: %v", strings.ToUpper(key), v.GetString(key), def)
			return def
		}
		return d
	}

	config := &Config{
		VideosDir:          v.GetString(KeyVideosDir),
		ThumbnailsDir:      v.GetString(KeyThumbnailsDir),
		Port:               v.GetString(KeyPort),
		MetricsPort:        v.GetString(KeyMetricsPort),
		MetricsEnabled:     v.GetBool(KeyMetricsEnabled),
		StatsInterval:      duration(KeyStatsInterval),
		FFmpegPath:         v.GetString(KeyFFmpegPath),
		YtDlpPath:          v.GetString(KeyYtDlpPath),
		FFmpegTimeout:      duration(KeyFFmpegTimeout),
		DownloadTimeout:    duration(KeyDownloadTimeout),
		DownloadFormatSort: v.GetString(KeyDownloadFormatSort),
		ThumbnailMaxWidth:  v.GetInt(KeyThumbnailMaxWidth),
		CORSAllowedOrigins: stringList(v.Get(KeyCORSOrigins)),
		LogLevel:           v.GetString(KeyLogLevel),
		LogStaticFiles:     v.GetBool(KeyLogStaticFiles),
		LogHealthChecks:    v.GetBool(KeyLogHealthChecks),
		CatalogWorkers:     v.GetInt(KeyCatalogWorkers),
		MemoryLimit:        v.GetInt64(KeyMemoryLimit),
		MemoryRatio:        v.GetFloat64(KeyMemoryRatio),
		ConfigFile:         v.ConfigFileUsed(),
	}

	if config.ThumbnailMaxWidth < 0 {
		warn("Invalid THUMBNAIL_MAX_WIDTH %d, thumbnails will keep their original size", config.ThumbnailMaxWidth)
		config.ThumbnailMaxWidth = 0
	}
	if config.MemoryRatio <= 0 || config.MemoryRatio > 1 {
		warn("MEMORY_RATIO %v out of range (0.0-1.0), using default 0.85", config.MemoryRatio)
		config.MemoryRatio = defaults[KeyMemoryRatio].(float64)
	}
	if config.VideosDir == "" {
		return nil, warnings, errors.New("VIDEOS_DIR must not be empty")
	}

	return config, warnings, nil
}

// stringList accepts either a list (from a config file) or a comma
// separated string (from the environment).
func stringList(value any) []string {
	var raw []string
	switch v := value.(type) {
	case []string:
		raw = v
	case []any:
		for _, item := range v {
			raw = append(raw, fmt.Sprint(item))
		}
	case string:
		raw = strings.Split(v, ",")
	}

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
