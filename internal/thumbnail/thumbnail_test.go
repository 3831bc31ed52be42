package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"testing"

	"tubeshelf/internal/catalog"
	"tubeshelf/internal/process"
	"tubeshelf/internal/process/processtest"
	"tubeshelf/internal/transcoder"

	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
)

const (
	videosDir = "/videos"
	thumbsDir = "/thumbnails"
)

func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := imaging.New(width, height, color.NRGBA{R: 200, G: 30, B: 30, A: 255})
	if err := imaging.Encode(&buf, img, imaging.JPEG); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

// ffmpegWrites returns a handler that writes data to the output argument.
func ffmpegWrites(fs afero.Fs, data []byte) processtest.HandlerFunc {
	return func(_ context.Context, cmd process.Command) (*process.Result, error) {
		return &process.Result{}, afero.WriteFile(fs, cmd.Args[len(cmd.Args)-1], data, 0o644)
	}
}

func newTestCache(t *testing.T, handler processtest.HandlerFunc, cfg Config) (*Cache, afero.Fs, *processtest.FakeRunner) {
	t.Helper()

	fs := afero.NewMemMapFs()
	_ = fs.MkdirAll(videosDir, 0o755)
	_ = fs.MkdirAll(thumbsDir, 0o755)
	_ = afero.WriteFile(fs, videosDir+"/clip.mp4", []byte("video"), 0o644)
	_ = afero.WriteFile(fs, videosDir+"/other.webm", []byte("video"), 0o644)

	runner := &processtest.FakeRunner{Handler: handler}
	cat := catalog.New(fs, videosDir, catalog.Options{})
	tc := transcoder.New(runner, fs, transcoder.DefaultConfig())

	cfg.Dir = thumbsDir
	return New(fs, cat, tc, cfg), fs, runner
}

func TestGetMissingVideo(t *testing.T) {
	t.Parallel()

	c, _, runner := newTestCache(t, nil, Config{Enabled: true})

	for _, title := range []string{"nope", "..", "a/b"} {
		_, _, err := c.Get(context.Background(), title)
		if !errors.Is(err, ErrVideoNotFound) {
			t.Errorf("Get(%q) error = %v, want ErrVideoNotFound", title, err)
		}
	}
	if runner.CallCount() != 0 {
		t.Errorf("Expected ffmpeg not to run, got %d calls", runner.CallCount())
	}
}

func TestGetCacheHit(t *testing.T) {
	t.Parallel()

	c, fs, runner := newTestCache(t, nil, Config{Enabled: true})
	cached := []byte("existing thumbnail, served as-is")
	_ = afero.WriteFile(fs, thumbsDir+"/clip.jpg", cached, 0o644)

	path, hit, err := c.Get(context.Background(), "clip")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !hit || path != thumbsDir+"/clip.jpg" {
		t.Errorf("Get() = (%q, %v), want cached path and hit", path, hit)
	}
	if runner.CallCount() != 0 {
		t.Errorf("Expected ffmpeg not to run on a hit, got %d calls", runner.CallCount())
	}
	data, _ := afero.ReadFile(fs, path)
	if !bytes.Equal(data, cached) {
		t.Error("Cached thumbnail was modified")
	}
}

func TestGetGenerates(t *testing.T) {
	t.Parallel()

	c, fs, runner := newTestCache(t, nil, Config{Enabled: true})
	runner.Handler = ffmpegWrites(fs, testJPEG(t, 64, 36))

	path, hit, err := c.Get(context.Background(), "other")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if hit {
		t.Error("Expected a miss on first request")
	}
	if path != thumbsDir+"/other.jpg" {
		t.Errorf("Unexpected path %q", path)
	}

	calls := runner.Calls()
	if len(calls) != 1 {
		t.Fatalf("Expected 1 ffmpeg run, got %d", len(calls))
	}
	if calls[0].Args[4] != videosDir+"/other.webm" {
		t.Errorf("Expected ffmpeg input to be the webm file, got %v", calls[0].Args)
	}

	if _, hit, _ := c.Get(context.Background(), "other"); !hit {
		t.Error("Expected a hit on second request")
	}
	if runner.CallCount() != 1 {
		t.Errorf("Expected no further ffmpeg runs, got %d", runner.CallCount())
	}

	entries, _ := afero.ReadDir(fs, thumbsDir)
	if len(entries) != 1 {
		t.Errorf("Expected only the final thumbnail in the cache dir, got %d entries", len(entries))
	}
}

func TestGetDownscales(t *testing.T) {
	t.Parallel()

	c, fs, runner := newTestCache(t, nil, Config{Enabled: true, MaxWidth: 32})
	runner.Handler = ffmpegWrites(fs, testJPEG(t, 128, 64))

	path, _, err := c.Get(context.Background(), "clip")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	f, err := fs.Open(path)
	if err != nil {
		t.Fatalf("open thumbnail: %v", err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if cfg.Width != 32 || cfg.Height != 16 {
		t.Errorf("Expected 32x16, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestGetFailuresLeaveNoFiles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler func(fs afero.Fs) processtest.HandlerFunc
		check   func(error) bool
	}{
		{
			name: "ffmpeg exit error",
			handler: func(fs afero.Fs) processtest.HandlerFunc {
				return func(_ context.Context, cmd process.Command) (*process.Result, error) {
					_ = afero.WriteFile(fs, cmd.Args[len(cmd.Args)-1], []byte("partial"), 0o644)
					return &process.Result{Stderr: "moov atom not found"}, processtest.Exit("ffmpeg", 1, "moov atom not found")
				}
			},
			check: func(err error) bool {
				var exitErr *process.ExitError
				return errors.As(err, &exitErr)
			},
		},
		{
			name: "timeout",
			handler: func(fs afero.Fs) processtest.HandlerFunc {
				return func(context.Context, process.Command) (*process.Result, error) {
					return &process.Result{}, fmt.Errorf("ffmpeg: %w", process.ErrTimeout)
				}
			},
			check: func(err error) bool { return errors.Is(err, process.ErrTimeout) },
		},
		{
			name: "garbage output",
			handler: func(fs afero.Fs) processtest.HandlerFunc {
				return ffmpegWrites(fs, []byte("definitely not a jpeg"))
			},
			check: func(err error) bool { return errors.Is(err, ErrInvalidImage) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, fs, runner := newTestCache(t, nil, Config{Enabled: true})
			runner.Handler = tt.handler(fs)

			_, _, err := c.Get(context.Background(), "clip")
			if !tt.check(err) {
				t.Errorf("Unexpected error: %v", err)
			}
			if runner.CallCount() != 1 {
				t.Errorf("Expected 1 ffmpeg run, got %d", runner.CallCount())
			}

			entries, _ := afero.ReadDir(fs, thumbsDir)
			if len(entries) != 0 {
				t.Errorf("Expected empty cache dir after failure, found %d entries", len(entries))
			}
		})
	}
}

func TestGetDisabled(t *testing.T) {
	t.Parallel()

	c, fs, runner := newTestCache(t, nil, Config{Enabled: false})

	if _, _, err := c.Get(context.Background(), "clip"); !errors.Is(err, ErrThumbnailsDisabled) {
		t.Errorf("Expected ErrThumbnailsDisabled, got %v", err)
	}
	if runner.CallCount() != 0 {
		t.Errorf("Expected ffmpeg not to run, got %d calls", runner.CallCount())
	}

	_ = afero.WriteFile(fs, thumbsDir+"/clip.jpg", []byte("x"), 0o644)
	if _, hit, err := c.Get(context.Background(), "clip"); err != nil || !hit {
		t.Errorf("Expected existing thumbnails to be served when disabled, got hit=%v err=%v", hit, err)
	}
}

func TestGetConcurrentSameTitle(t *testing.T) {
	t.Parallel()

	c, fs, runner := newTestCache(t, nil, Config{Enabled: true})
	runner.Handler = ffmpegWrites(fs, testJPEG(t, 16, 16))

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := c.Get(context.Background(), "clip"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Get() error = %v", err)
	}
	if runner.CallCount() != 1 {
		t.Errorf("Expected exactly 1 ffmpeg run, got %d", runner.CallCount())
	}
}

func TestStatsAndRemoveStale(t *testing.T) {
	t.Parallel()

	c, fs, _ := newTestCache(t, nil, Config{Enabled: true})
	_ = afero.WriteFile(fs, thumbsDir+"/a.jpg", []byte("1234"), 0o644)
	_ = afero.WriteFile(fs, thumbsDir+"/b.jpg", []byte("12"), 0o644)
	_ = afero.WriteFile(fs, thumbsDir+"/.tmp-abc.jpg", []byte("123"), 0o644)

	count, size, err := c.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if count != 2 || size != 6 {
		t.Errorf("Stats() = (%d, %d), want (2, 6)", count, size)
	}

	if removed := c.RemoveStale(); removed != 1 {
		t.Errorf("RemoveStale() = %d, want 1", removed)
	}
	if ok, _ := afero.Exists(fs, thumbsDir+"/.tmp-abc.jpg"); ok {
		t.Error("Stale temp file still present")
	}
}
