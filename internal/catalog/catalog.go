package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"tubeshelf/internal/filesystem"
	"tubeshelf/internal/logging"
	"tubeshelf/internal/mediatypes"
	"tubeshelf/internal/metrics"
	"tubeshelf/internal/workers"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
	"github.com/spf13/afero"
)

var (
	// ErrNotFound is returned when a title has no playable file.
	ErrNotFound = errors.New("video not found")
	// ErrInvalidTitle is returned for titles that could escape the videos directory.
	ErrInvalidTitle = errors.New("invalid title")
)

// Options tunes a Catalog. Zero values pick defaults.
type Options struct {
	// Workers bounds concurrent sidecar loads; 0 uses workers.ForIO.
	Workers int
	Retry   *filesystem.RetryConfig
}

// Catalog enumerates the videos directory on every call. It holds no state
// besides its configuration and is safe for concurrent use.
type Catalog struct {
	fs       afero.Fs
	dir      string
	sidecars *SidecarStore
	workers  int
	retry    filesystem.RetryConfig
}

// New creates a catalog over dir.
func New(fs afero.Fs, dir string, opts Options) *Catalog {
	retry := filesystem.DefaultRetryConfig()
	if opts.Retry != nil {
		retry = *opts.Retry
	}
	n := opts.Workers
	if n < 1 {
		n = workers.ForIO(16)
	}
	return &Catalog{
		fs:       fs,
		dir:      dir,
		sidecars: NewSidecarStore(fs, dir, retry),
		workers:  n,
		retry:    retry,
	}
}

// Dir returns the videos directory.
func (c *Catalog) Dir() string {
	return c.dir
}

// List returns one page of the listing. page and limit below 1 are replaced
// by the defaults; a page past the end is empty, not an error.
func (c *Catalog) List(ctx context.Context, page, limit int) (*Page, error) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}

	videos, err := c.scan(ctx, "list", nil)
	if err != nil {
		return nil, err
	}

	window := []Video{}
	// Guard against (page-1)*limit overflowing for absurd page numbers.
	if page-1 <= len(videos)/limit {
		start := (page - 1) * limit
		window = lo.Slice(videos, start, start+limit)
	}

	return &Page{
		Total:  len(videos),
		Page:   page,
		Limit:  limit,
		Videos: window,
	}, nil
}

// Search returns every video whose title contains query, ignoring case.
func (c *Catalog) Search(ctx context.Context, query string) (*SearchResult, error) {
	needle := strings.ToLower(query)
	videos, err := c.scan(ctx, "search", func(v Video) bool {
		return strings.Contains(strings.ToLower(v.Title), needle)
	})
	if err != nil {
		return nil, err
	}
	return &SearchResult{Total: len(videos), Videos: videos}, nil
}

// Suggest ranks titles by fuzzy similarity to query. Sidecars are not read.
func (c *Catalog) Suggest(ctx context.Context, query string, max int) ([]Suggestion, error) {
	start := time.Now()
	candidates, err := c.enumerate()
	if err != nil {
		metrics.CatalogScansTotal.WithLabelValues("suggest", "error").Inc()
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	titles := lo.Map(candidates, func(v Video, _ int) string { return v.Title })
	ranks := fuzzy.RankFindFold(query, titles)
	sort.Sort(ranks)

	suggestions := lo.Map(ranks, func(r fuzzy.Rank, _ int) Suggestion {
		return Suggestion{Title: r.Target, Distance: r.Distance}
	})
	if max > 0 && len(suggestions) > max {
		suggestions = suggestions[:max]
	}

	metrics.CatalogScansTotal.WithLabelValues("suggest", "success").Inc()
	metrics.CatalogScanDuration.WithLabelValues("suggest").Observe(time.Since(start).Seconds())
	return suggestions, nil
}

// Resolve finds the playable file for title, preferring extensions in
// mediatypes.VideoExtensions order. Metadata is not loaded.
func (c *Catalog) Resolve(title string) (Video, error) {
	if err := ValidateTitle(title); err != nil {
		return Video{}, err
	}

	for _, ext := range mediatypes.VideoExtensions {
		for _, candidate := range []string{ext, strings.ToUpper(ext)} {
			path := filepath.Join(c.dir, title+candidate)
			info, err := filesystem.StatWithRetry(c.fs, path, c.retry)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					continue
				}
				return Video{}, fmt.Errorf("stat %s: %w", path, err)
			}
			if !info.Mode().IsRegular() {
				continue
			}
			return Video{Title: title, Path: path, Ext: ext, Size: info.Size()}, nil
		}
	}

	return c.resolveMixedCase(title)
}

// resolveMixedCase finds title among the listed entries, so extensions such
// as .Mp4 that enumerate accepts resolve too.
func (c *Catalog) resolveMixedCase(title string) (Video, error) {
	candidates, err := c.enumerate()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Video{}, ErrNotFound
		}
		return Video{}, err
	}

	for _, ext := range mediatypes.VideoExtensions {
		if v, ok := lo.Find(candidates, func(v Video) bool {
			return v.Title == title && v.Ext == ext
		}); ok {
			return v, nil
		}
	}
	return Video{}, ErrNotFound
}

// Stats summarizes the videos directory for the library gauges.
type Stats struct {
	Videos   map[string]int
	Total    int
	Bytes    int64
	Sidecars int
}

// Stats counts videos per container and sidecars without reading any file.
func (c *Catalog) Stats() (Stats, error) {
	entries, err := filesystem.ReadDirWithRetry(c.fs, c.dir, c.retry)
	if err != nil {
		return Stats{}, fmt.Errorf("read videos directory: %w", err)
	}

	stats := Stats{Videos: make(map[string]int)}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch mediatypes.GetFileType(e.Name()) {
		case mediatypes.FileTypeVideo:
			stats.Videos[strings.TrimPrefix(mediatypes.VideoExt(e.Name()), ".")]++
			stats.Total++
			stats.Bytes += e.Size()
		case mediatypes.FileTypeSidecar:
			stats.Sidecars++
		}
	}
	return stats, nil
}

// ValidateTitle rejects titles that are empty, dot segments, or contain a
// path separator.
func ValidateTitle(title string) error {
	if title == "" || title == "." || title == ".." ||
		strings.ContainsAny(title, `/\`) || strings.ContainsRune(title, 0) {
		return ErrInvalidTitle
	}
	return nil
}

// enumerate lists the recognized video files in name order.
func (c *Catalog) enumerate() ([]Video, error) {
	entries, err := filesystem.ReadDirWithRetry(c.fs, c.dir, c.retry)
	if err != nil {
		return nil, fmt.Errorf("read videos directory: %w", err)
	}

	return lo.FilterMap(entries, func(e os.FileInfo, _ int) (Video, bool) {
		if e.IsDir() {
			return Video{}, false
		}
		title, ok := mediatypes.TitleOf(e.Name())
		if !ok {
			return Video{}, false
		}
		return Video{
			Title: title,
			Path:  filepath.Join(c.dir, e.Name()),
			Ext:   mediatypes.VideoExt(e.Name()),
			Size:  e.Size(),
		}, true
	}), nil
}

// scan enumerates, filters by keep (nil keeps everything) and loads
// metadata for the survivors.
func (c *Catalog) scan(ctx context.Context, op string, keep func(Video) bool) ([]Video, error) {
	start := time.Now()

	candidates, err := c.enumerate()
	if err != nil {
		metrics.CatalogScansTotal.WithLabelValues(op, "error").Inc()
		return nil, err
	}
	if keep != nil {
		candidates = lo.Filter(candidates, func(v Video, _ int) bool { return keep(v) })
	}

	videos, err := workers.OrderedMap(ctx, candidates, c.workers, c.withMetadata)
	if err != nil {
		metrics.CatalogScansTotal.WithLabelValues(op, "canceled").Inc()
		return nil, err
	}

	metrics.CatalogScansTotal.WithLabelValues(op, "success").Inc()
	metrics.CatalogScanDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	metrics.CatalogVideosScanned.Observe(float64(len(videos)))
	logging.Debug("Catalog %s: %d videos in %v", op, len(videos), time.Since(start))

	return videos, nil
}

func (c *Catalog) withMetadata(v Video) Video {
	meta, found, err := c.sidecars.Load(v.Title)
	switch {
	case err != nil:
		logging.Warn("Ignoring unreadable metadata for %q: %v", v.Title, err)
		metrics.CatalogSidecarErrors.Inc()
	case !found:
		logging.Debug("Metadata file not found for %q", v.Title)
		metrics.CatalogSidecarsMissing.Inc()
	}

	v.Metadata = meta
	v.ID = hashID(v.Title, meta)
	return v
}
