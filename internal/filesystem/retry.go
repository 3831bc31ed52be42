package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"tubeshelf/internal/logging"

	"github.com/spf13/afero"
)

// VolumeResolver maps file paths to known volume names for metric labeling.
// It uses longest-prefix matching on absolute paths.
type VolumeResolver struct {
	// mounts is sorted by path length descending for longest-prefix matching
	mounts []volumeMount
}

type volumeMount struct {
	path string // absolute path with trailing slash (e.g., "/srv/videos/")
	name string // volume label (e.g., "videos")
}

// NewVolumeResolver creates a resolver from a map of volume name → path.
//
//	NewVolumeResolver(map[string]string{
//	    "videos":     "/srv/videos",
//	    "thumbnails": "/srv/thumbnails",
//	})
func NewVolumeResolver(volumes map[string]string) *VolumeResolver {
	mounts := make([]volumeMount, 0, len(volumes))
	for name, path := range volumes {
		absPath, err := filepath.Abs(path)
		if err != nil {
			absPath = path
		}
		if !strings.HasSuffix(absPath, "/") {
			absPath += "/"
		}
		mounts = append(mounts, volumeMount{path: absPath, name: name})
	}

	sort.Slice(mounts, func(i, j int) bool {
		return len(mounts[i].path) > len(mounts[j].path)
	})

	return &VolumeResolver{mounts: mounts}
}

// Resolve returns the volume name for a given file path.
// Returns "unknown" if the path doesn't match any configured volume.
func (vr *VolumeResolver) Resolve(path string) string {
	if vr == nil {
		return "unknown"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "unknown"
	}

	for _, mount := range vr.mounts {
		if strings.HasPrefix(absPath+"/", mount.path) {
			return mount.name
		}
	}

	return "unknown"
}

// defaultResolver is the package-level resolver set at startup
var defaultResolver *VolumeResolver

// SetDefaultVolumeResolver sets the package-level volume resolver.
// Call this once at startup after loading configuration.
func SetDefaultVolumeResolver(vr *VolumeResolver) {
	defaultResolver = vr
}

// RetryConfig configures retry behavior for filesystem operations
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// VolumeResolver overrides the package-level resolver for this operation.
	VolumeResolver *VolumeResolver
}

// DefaultRetryConfig returns sensible defaults for NFS retry behavior
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

func (c *RetryConfig) resolveVolume(path string) string {
	if c.VolumeResolver != nil {
		return c.VolumeResolver.Resolve(path)
	}
	return defaultResolver.Resolve(path)
}

// isNFSStaleError checks if an error is an NFS stale file handle error
func isNFSStaleError(err error) bool {
	if err == nil {
		return false
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}

	return false
}

// withRetry runs fn until it succeeds, fails with something other than
// ESTALE, or MaxRetries is exhausted.
func withRetry[T any](op, path string, config RetryConfig, fn func() (T, error)) (T, error) {
	start := time.Now()
	volume := config.resolveVolume(path)
	o := observe()
	backoff := config.InitialBackoff

	var zero T
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result, err := fn()
		if err == nil {
			if attempt > 0 {
				logging.Info("NFS %s succeeded on retry %d for %s", op, attempt, path)
				if o != nil {
					o.ObserveRetrySuccess(op, volume)
				}
			}
			if o != nil {
				o.ObserveDuration(op, volume, time.Since(start).Seconds())
			}
			return result, nil
		}

		lastErr = err

		if !isNFSStaleError(err) {
			if o != nil {
				o.ObserveDuration(op, volume, time.Since(start).Seconds())
			}
			return zero, err
		}

		if o != nil {
			o.ObserveStaleError(op, volume)
		}

		if attempt < config.MaxRetries {
			if o != nil {
				o.ObserveRetryAttempt(op, volume)
			}
			logging.Debug("NFS %s stale file handle for %s, retrying in %v (attempt %d/%d)",
				op, path, backoff, attempt+1, config.MaxRetries)
			time.Sleep(backoff)

			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	logging.Warn("NFS %s failed after %d retries for %s: %v", op, config.MaxRetries, path, lastErr)
	if o != nil {
		o.ObserveRetryFailure(op, volume)
		o.ObserveDuration(op, volume, time.Since(start).Seconds())
	}
	return zero, lastErr
}

// StatWithRetry performs fs.Stat with retry logic for NFS stale file handle errors
func StatWithRetry(fs afero.Fs, path string, config RetryConfig) (os.FileInfo, error) {
	return withRetry("stat", path, config, func() (os.FileInfo, error) {
		return fs.Stat(path)
	})
}

// OpenWithRetry performs fs.Open with retry logic for NFS stale file handle errors
func OpenWithRetry(fs afero.Fs, path string, config RetryConfig) (afero.File, error) {
	return withRetry("open", path, config, func() (afero.File, error) {
		return fs.Open(path)
	})
}

// ReadDirWithRetry lists dir sorted by file name, retrying on NFS stale
// file handle errors.
func ReadDirWithRetry(fs afero.Fs, dir string, config RetryConfig) ([]os.FileInfo, error) {
	return withRetry("readdir", dir, config, func() ([]os.FileInfo, error) {
		return afero.ReadDir(fs, dir)
	})
}

// Exists reports whether path exists. Errors other than not-exist are
// returned so callers can tell "absent" from "unreadable".
func Exists(fs afero.Fs, path string, config RetryConfig) (bool, error) {
	_, err := StatWithRetry(fs, path, config)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
