package metrics

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeStatsProvider struct {
	stats Stats
	calls atomic.Int32
}

func (f *fakeStatsProvider) GetStats() Stats {
	f.calls.Add(1)
	return f.stats
}

func TestCollectorCollect(t *testing.T) {
	provider := &fakeStatsProvider{stats: Stats{
		Videos:         map[string]int{"mp4": 7, "webm": 2},
		TotalVideos:    9,
		VideoBytes:     4096,
		Sidecars:       8,
		Thumbnails:     5,
		ThumbnailBytes: 1024,
	}}

	c := NewCollector(provider, time.Hour)
	c.collect()

	if n := provider.calls.Load(); n != 1 {
		t.Fatalf("Expected provider to be called once, got %d", n)
	}
	if got := testutil.ToFloat64(LibraryVideos.WithLabelValues("mp4")); got != 7 {
		t.Errorf("Expected mp4 videos=7, got %v", got)
	}
	if got := testutil.ToFloat64(LibraryVideos.WithLabelValues("webm")); got != 2 {
		t.Errorf("Expected webm videos=2, got %v", got)
	}
	if got := testutil.ToFloat64(LibraryBytes); got != 4096 {
		t.Errorf("Expected library bytes=4096, got %v", got)
	}
	if got := testutil.ToFloat64(LibrarySidecars); got != 8 {
		t.Errorf("Expected sidecars=8, got %v", got)
	}
	if got := testutil.ToFloat64(ThumbnailCacheCount); got != 5 {
		t.Errorf("Expected thumbnail count=5, got %v", got)
	}
	if got := testutil.ToFloat64(ThumbnailCacheSize); got != 1024 {
		t.Errorf("Expected thumbnail bytes=1024, got %v", got)
	}
}

func TestCollectorNilProvider(_ *testing.T) {
	c := NewCollector(nil, time.Hour)
	c.collect()
}

func TestCollectorStartStop(t *testing.T) {
	provider := &fakeStatsProvider{stats: Stats{Videos: map[string]int{}}}
	c := NewCollector(provider, 10*time.Millisecond)
	c.Start()
	time.Sleep(50 * time.Millisecond)
	c.Stop()

	if provider.calls.Load() == 0 {
		t.Error("Expected collector to call the provider at least once")
	}
}

func TestInitializeMetrics(t *testing.T) {
	InitializeMetrics("test", "abc123")

	if got := testutil.ToFloat64(AppInfo.WithLabelValues("test", "abc123", goVersion())); got != 1 {
		t.Errorf("Expected app info gauge=1, got %v", got)
	}
	if n := testutil.CollectAndCount(ProcessRunsTotal); n < 10 {
		t.Errorf("Expected pre-populated process series, got %d", n)
	}
}

func TestCollectorDropsVanishedContainers(t *testing.T) {
	provider := &fakeStatsProvider{stats: Stats{Videos: map[string]int{"mp4": 3, "webm": 1}}}
	c := NewCollector(provider, time.Hour)
	c.collect()

	provider.stats = Stats{Videos: map[string]int{"mp4": 4}}
	c.collect()

	if n := testutil.CollectAndCount(LibraryVideos); n != 1 {
		t.Errorf("Expected only the mp4 series to remain, got %d series", n)
	}
	if got := testutil.ToFloat64(LibraryVideos.WithLabelValues("mp4")); got != 4 {
		t.Errorf("Expected mp4 videos=4, got %v", got)
	}
}

func TestCollectorStopTwice(_ *testing.T) {
	c := NewCollector(&fakeStatsProvider{}, time.Hour)
	c.Start()
	c.Stop()
	c.Stop()
}

func TestCollectorDefaultInterval(t *testing.T) {
	if c := NewCollector(nil, 0); c.interval != time.Minute {
		t.Errorf("interval = %v, want 1m", c.interval)
	}
}
