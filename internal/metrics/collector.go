package metrics

import (
	"sync"
	"time"

	"tubeshelf/internal/logging"
)

// StatsProvider supplies a point-in-time view of the library.
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current library statistics.
type Stats struct {
	Videos         map[string]int `json:"videos"` // by container, e.g. "mp4"
	TotalVideos    int            `json:"totalVideos"`
	VideoBytes     int64          `json:"videoBytes"`
	Sidecars       int            `json:"sidecars"`
	Thumbnails     int            `json:"thumbnails"`
	ThumbnailBytes int64          `json:"thumbnailBytes"`
}

// Collector refreshes the library gauges from a StatsProvider on a fixed
// interval.
type Collector struct {
	provider StatsProvider
	interval time.Duration

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewCollector creates a collector. An interval of zero or less means one
// minute.
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Collector{
		provider: provider,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start collects once immediately and then on every tick until Stop.
func (c *Collector) Start() {
	go func() {
		defer close(c.done)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			c.collect()
			select {
			case <-ticker.C:
			case <-c.stop:
				return
			}
		}
	}()
}

// Stop ends collection and waits for an in-flight pass to finish. It is safe
// to call more than once, but only after Start.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}

func (c *Collector) collect() {
	if c.provider == nil {
		return
	}
	stats := c.provider.GetStats()

	// Containers that vanished from the library must not keep their last value.
	LibraryVideos.Reset()
	for container, n := range stats.Videos {
		LibraryVideos.WithLabelValues(container).Set(float64(n))
	}
	LibraryBytes.Set(float64(stats.VideoBytes))
	LibrarySidecars.Set(float64(stats.Sidecars))
	ThumbnailCacheCount.Set(float64(stats.Thumbnails))
	ThumbnailCacheSize.Set(float64(stats.ThumbnailBytes))

	logging.Debug("Library stats: %d videos (%d bytes), %d sidecars, %d thumbnails",
		stats.TotalVideos, stats.VideoBytes, stats.Sidecars, stats.Thumbnails)
}
