package downloader

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"tubeshelf/internal/filesystem"
	"tubeshelf/internal/logging"
	"tubeshelf/internal/metrics"
	"tubeshelf/internal/process"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// ToolName labels yt-dlp runs in logs and metrics.
const ToolName = "yt-dlp"

// OutputTemplate names downloaded files "(<channel>) <title>.<ext>".
const OutputTemplate = "(%(channel)s) %(title)s.%(ext)s"

var (
	// ErrURLRequired is returned when no source URL was supplied.
	ErrURLRequired = errors.New("video URL is required")
	// ErrInvalidURL is returned for anything but an absolute http(s) URL.
	ErrInvalidURL = errors.New("video URL must be an http or https URL")
)

// Config configures the downloader.
type Config struct {
	VideosDir string
	YtDlpPath string
	// FormatSort is passed to yt-dlp -S.
	FormatSort string
	Timeout    time.Duration
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		VideosDir:  "./videos",
		YtDlpPath:  "yt-dlp",
		FormatSort: "ext",
		Timeout:    30 * time.Minute,
	}
}

// Result describes a finished download.
type Result struct {
	JobID    string
	URL      string
	Stdout   string
	Stderr   string
	Duration time.Duration
	Renames  *RenameReport
}

// Downloader fetches videos with yt-dlp into the videos directory and
// normalizes the resulting file names.
type Downloader struct {
	fs     afero.Fs
	runner process.Runner
	config Config
	retry  filesystem.RetryConfig

	// protected is the yt-dlp executable's name when it lives in the
	// videos directory; renaming it would break later downloads.
	protected string

	renameMu sync.Mutex
}

// New creates a Downloader.
func New(fs afero.Fs, runner process.Runner, config Config) *Downloader {
	defaults := DefaultConfig()
	if config.YtDlpPath == "" {
		config.YtDlpPath = defaults.YtDlpPath
	}
	if config.FormatSort == "" {
		config.FormatSort = defaults.FormatSort
	}

	d := &Downloader{
		fs:     fs,
		runner: runner,
		config: config,
		retry:  filesystem.DefaultRetryConfig(),
	}
	if strings.ContainsAny(config.YtDlpPath, `/\`) && sameDir(filepath.Dir(config.YtDlpPath), config.VideosDir) {
		d.protected = filepath.Base(config.YtDlpPath)
		logging.Debug("Downloader: %s lives in the videos directory and will not be renamed", d.protected)
	}
	return d
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// ValidateURL accepts absolute http and https URLs with a host.
func ValidateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return ErrURLRequired
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}

// Args builds the yt-dlp arguments for sourceURL. The URL follows "--" so
// it can never be read as an option.
func (d *Downloader) Args(sourceURL string) []string {
	return []string{
		"-S", d.config.FormatSort,
		"--restrict-filenames",
		"--write-info-json",
		"-o", filepath.Join(d.config.VideosDir, OutputTemplate),
		"--", sourceURL,
	}
}

// Download runs yt-dlp for sourceURL and waits for it to finish. On success
// the rename pass runs before returning. The Result is returned alongside
// errors so callers can report yt-dlp's output.
func (d *Downloader) Download(ctx context.Context, sourceURL string) (*Result, error) {
	if err := ValidateURL(sourceURL); err != nil {
		return nil, err
	}

	res := &Result{JobID: uuid.NewString(), URL: sourceURL}
	logging.Info("Download %s started: %s", res.JobID, sourceURL)

	out, err := d.runner.Run(ctx, process.Command{
		Tool:    ToolName,
		Path:    d.config.YtDlpPath,
		Args:    d.Args(sourceURL),
		Dir:     d.config.VideosDir,
		Timeout: d.config.Timeout,
	})
	if out != nil {
		res.Stdout, res.Stderr, res.Duration = out.Stdout, out.Stderr, out.Duration
	}

	if err != nil {
		status := "error"
		if errors.Is(err, process.ErrTimeout) {
			status = "timeout"
		}
		metrics.DownloadsTotal.WithLabelValues(status).Inc()
		logging.Error("Download %s failed: %v: %s", res.JobID, err, process.Diagnostics(out, nil))
		return res, err
	}

	metrics.DownloadsTotal.WithLabelValues("success").Inc()
	logging.Info("Download %s finished in %v", res.JobID, res.Duration)

	report, err := d.Normalize()
	if err != nil {
		// The download itself succeeded; the names can be fixed by a later pass.
		logging.Warn("Download %s: filename normalization failed: %v", res.JobID, err)
	}
	res.Renames = report

	return res, nil
}
