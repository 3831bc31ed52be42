package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"tubeshelf/internal/catalog"
	"tubeshelf/internal/filesystem"
	"tubeshelf/internal/logging"
	"tubeshelf/internal/mediatypes"
	"tubeshelf/internal/metrics"
	"tubeshelf/internal/process"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

var (
	// ErrVideoNotFound is returned when the requested title has no video.
	ErrVideoNotFound = errors.New("video not found")
	// ErrThumbnailsDisabled is returned on a cache miss when the thumbnail
	// directory is not writable.
	ErrThumbnailsDisabled = errors.New("thumbnail generation disabled")
	// ErrInvalidImage is returned when ffmpeg output does not decode.
	ErrInvalidImage = errors.New("generated thumbnail is not a valid image")
)

const tempPrefix = ".tmp-"

// VideoResolver finds the file behind a title.
type VideoResolver interface {
	Resolve(title string) (catalog.Video, error)
}

// FrameExtractor writes one frame of a video to an image file.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, input, output string) (*process.Result, error)
}

// Config configures a Cache.
type Config struct {
	Dir     string
	Enabled bool
	// MaxWidth downscales wider frames; 0 keeps ffmpeg's size.
	MaxWidth int
	Quality  int
}

// Cache serves <title>.jpg thumbnails from a directory, generating missing
// ones on demand. Existing files are trusted as-is.
type Cache struct {
	fs        afero.Fs
	config    Config
	videos    VideoResolver
	extractor FrameExtractor
	retry     filesystem.RetryConfig

	locks sync.Map // title -> *sync.Mutex
}

// New creates a thumbnail cache.
func New(fs afero.Fs, videos VideoResolver, extractor FrameExtractor, config Config) *Cache {
	if config.Quality <= 0 {
		config.Quality = 85
	}
	if config.Enabled {
		logging.Debug("Thumbnail cache: enabled, dir: %s", config.Dir)
	} else {
		logging.Debug("Thumbnail cache: generation disabled, serving existing files only")
	}
	return &Cache{
		fs:        fs,
		config:    config,
		videos:    videos,
		extractor: extractor,
		retry:     filesystem.DefaultRetryConfig(),
	}
}

// IsEnabled reports whether missing thumbnails can be generated.
func (c *Cache) IsEnabled() bool {
	return c.config.Enabled
}

// Path returns where the thumbnail for title is cached.
func (c *Cache) Path(title string) string {
	return filepath.Join(c.config.Dir, title+mediatypes.ThumbnailExt)
}

// Get returns the path of the thumbnail for title, generating it first if
// needed. hit reports whether the file already existed. Concurrent requests
// for the same title run ffmpeg at most once.
func (c *Cache) Get(ctx context.Context, title string) (path string, hit bool, err error) {
	video, err := c.videos.Resolve(title)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) || errors.Is(err, catalog.ErrInvalidTitle) {
			return "", false, fmt.Errorf("%w: %s", ErrVideoNotFound, title)
		}
		return "", false, err
	}

	path = c.Path(title)
	if c.exists(path) {
		metrics.ThumbnailCacheHits.Inc()
		logging.Debug("Thumbnail cache hit: %s", title)
		return path, true, nil
	}

	if !c.config.Enabled {
		return "", false, ErrThumbnailsDisabled
	}

	mu := c.lockFor(title)
	mu.Lock()
	defer mu.Unlock()

	if c.exists(path) {
		metrics.ThumbnailLockWaits.Inc()
		metrics.ThumbnailCacheHits.Inc()
		return path, true, nil
	}

	metrics.ThumbnailCacheMisses.Inc()
	if err := c.generate(ctx, video, path); err != nil {
		return "", false, err
	}
	return path, false, nil
}

func (c *Cache) lockFor(title string) *sync.Mutex {
	mu, _ := c.locks.LoadOrStore(title, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (c *Cache) exists(path string) bool {
	ok, err := filesystem.Exists(c.fs, path, c.retry)
	if err != nil {
		logging.Warn("Failed to stat thumbnail %s: %v", path, err)
	}
	return ok
}

func (c *Cache) generate(ctx context.Context, video catalog.Video, path string) (err error) {
	start := time.Now()
	tmp := filepath.Join(c.config.Dir, tempPrefix+uuid.NewString()+mediatypes.ThumbnailExt)

	status := "error"
	defer func() {
		if err != nil {
			if rmErr := c.fs.Remove(tmp); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				logging.Warn("Failed to remove temporary thumbnail %s: %v", tmp, rmErr)
			}
		}
		metrics.ThumbnailGenerationsTotal.WithLabelValues(status).Inc()
		metrics.ThumbnailGenerationDuration.Observe(time.Since(start).Seconds())
	}()

	logging.Debug("Thumbnail generating: %s", video.Title)

	result, err := c.extractor.ExtractFrame(ctx, video.Path, tmp)
	if err != nil {
		if errors.Is(err, process.ErrTimeout) {
			status = "timeout"
		}
		logging.Warn("Thumbnail generation failed for %s: %s", video.Title, process.Diagnostics(result, err))
		return fmt.Errorf("extract frame from %s: %w", video.Path, err)
	}

	if err = c.finalize(tmp); err != nil {
		status = "invalid"
		return err
	}

	if err = c.fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("move thumbnail into place: %w", err)
	}

	status = "success"
	logging.Debug("Thumbnail cached: %s (%v)", path, time.Since(start))
	return nil
}

// finalize decodes the extracted frame and, when a max width is set,
// rewrites it downscaled.
func (c *Cache) finalize(tmp string) error {
	f, err := c.fs.Open(tmp)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	img, err := imaging.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	if c.config.MaxWidth <= 0 || img.Bounds().Dx() <= c.config.MaxWidth {
		return nil
	}

	resized := imaging.Resize(img, c.config.MaxWidth, 0, imaging.Lanczos)
	out, err := c.fs.OpenFile(tmp, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("rewrite thumbnail: %w", err)
	}
	if err := imaging.Encode(out, resized, imaging.JPEG, imaging.JPEGQuality(c.config.Quality)); err != nil {
		out.Close()
		return fmt.Errorf("encode thumbnail: %w", err)
	}
	return out.Close()
}

// Stats counts cached thumbnails and their total size.
func (c *Cache) Stats() (count int, size int64, err error) {
	entries, err := filesystem.ReadDirWithRetry(c.fs, c.config.Dir, c.retry)
	if err != nil {
		return 0, 0, err
	}
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), tempPrefix) ||
			!strings.EqualFold(filepath.Ext(e.Name()), mediatypes.ThumbnailExt) {
			continue
		}
		count++
		size += e.Size()
	}
	return count, size, nil
}

// RemoveStale deletes temporary files left behind by an interrupted
// generation. It is meant to run once at startup.
func (c *Cache) RemoveStale() int {
	entries, err := filesystem.ReadDirWithRetry(c.fs, c.config.Dir, c.retry)
	if err != nil {
		return 0
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), tempPrefix) {
			continue
		}
		path := filepath.Join(c.config.Dir, e.Name())
		if err := c.fs.Remove(path); err != nil {
			logging.Warn("Failed to remove stale thumbnail %s: %v", path, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		logging.Info("Removed %d stale temporary thumbnails", removed)
	}
	return removed
}
