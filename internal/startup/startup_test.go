package startup

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	"tubeshelf/internal/process"
	"tubeshelf/internal/process/processtest"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.GoVersion == "" {
		t.Error("Expected GoVersion to be set")
	}
	if info.OS == "" {
		t.Error("Expected OS to be set")
	}
	if info.Arch == "" {
		t.Error("Expected Arch to be set")
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
}

func TestSetupDirectoriesCreatesBoth(t *testing.T) {
	fs := afero.NewMemMapFs()
	config := &Config{VideosDir: "/data/videos", ThumbnailsDir: "/data/thumbs"}

	if err := SetupDirectories(fs, config); err != nil {
		t.Fatalf("SetupDirectories() error = %v", err)
	}

	for _, dir := range []string{"/data/videos", "/data/thumbs"} {
		info, err := fs.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("Expected %s to be created, err=%v", dir, err)
		}
	}
	if !config.ThumbnailsEnabled {
		t.Error("Expected thumbnails to be enabled for a writable directory")
	}
	if exists, _ := afero.Exists(fs, "/data/thumbs/.write-test"); exists {
		t.Error("Expected write probe to be removed")
	}
}

func TestSetupDirectoriesMakesPathsAbsolute(t *testing.T) {
	fs := afero.NewMemMapFs()
	config := &Config{VideosDir: "videos", ThumbnailsDir: "thumbs"}

	if err := SetupDirectories(fs, config); err != nil {
		t.Fatalf("SetupDirectories() error = %v", err)
	}
	if !filepath.IsAbs(config.VideosDir) {
		t.Errorf("VideosDir = %q, want absolute path", config.VideosDir)
	}
	if !filepath.IsAbs(config.ThumbnailsDir) {
		t.Errorf("ThumbnailsDir = %q, want absolute path", config.ThumbnailsDir)
	}
}

func TestSetupDirectoriesVideosPathIsFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/data/videos", []byte("not a dir"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := SetupDirectories(fs, &Config{VideosDir: "/data/videos", ThumbnailsDir: "/data/thumbs"})
	if err == nil {
		t.Fatal("Expected error when videos path is a regular file")
	}
}

func TestSetupDirectoriesReadOnlyThumbnails(t *testing.T) {
	base := afero.NewMemMapFs()
	if err := base.MkdirAll("/data/videos", 0o755); err != nil {
		t.Fatal(err)
	}
	fs := afero.NewReadOnlyFs(base)
	config := &Config{VideosDir: "/data/videos", ThumbnailsDir: "/data/thumbs"}

	if err := SetupDirectories(fs, config); err != nil {
		t.Fatalf("SetupDirectories() error = %v", err)
	}
	if config.ThumbnailsEnabled {
		t.Error("Expected thumbnails to be disabled on a read-only filesystem")
	}
}

func TestCheckTools(t *testing.T) {
	tests := []struct {
		name       string
		failTool   string
		wantFFmpeg bool
		wantYtDlp  bool
	}{
		{name: "both available", wantFFmpeg: true, wantYtDlp: true},
		{name: "ffmpeg fails", failTool: "ffmpeg", wantFFmpeg: false, wantYtDlp: true},
		{name: "yt-dlp fails", failTool: "yt-dlp", wantFFmpeg: true, wantYtDlp: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &processtest.FakeRunner{
				Handler: func(_ context.Context, cmd process.Command) (*process.Result, error) {
					if cmd.Tool == tt.failTool {
						return &process.Result{}, processtest.Exit(cmd.Tool, 1, "broken")
					}
					return &process.Result{Stdout: cmd.Tool + " version 1.0\nmore\n"}, nil
				},
			}
			// sh stands in for both binaries so LookPath succeeds.
			config := &Config{FFmpegPath: "sh", YtDlpPath: "sh"}

			status := CheckTools(context.Background(), runner, config)
			if status.FFmpeg != tt.wantFFmpeg {
				t.Errorf("FFmpeg = %v, want %v", status.FFmpeg, tt.wantFFmpeg)
			}
			if status.YtDlp != tt.wantYtDlp {
				t.Errorf("YtDlp = %v, want %v", status.YtDlp, tt.wantYtDlp)
			}
		})
	}
}

func TestCheckToolsVersionFlags(t *testing.T) {
	flags := map[string]string{}
	runner := &processtest.FakeRunner{
		Handler: func(_ context.Context, cmd process.Command) (*process.Result, error) {
			flags[cmd.Tool] = cmd.Args[0]
			return &process.Result{}, nil
		},
	}

	CheckTools(context.Background(), runner, &Config{FFmpegPath: "sh", YtDlpPath: "sh"})

	if flags["ffmpeg"] != "-version" {
		t.Errorf("ffmpeg flag = %q, want -version", flags["ffmpeg"])
	}
	if flags["yt-dlp"] != "--version" {
		t.Errorf("yt-dlp flag = %q, want --version", flags["yt-dlp"])
	}
}

func TestCheckToolsMissingBinary(t *testing.T) {
	runner := &processtest.FakeRunner{
		Handler: func(context.Context, process.Command) (*process.Result, error) {
			return nil, errors.New("should not run")
		},
	}
	config := &Config{
		FFmpegPath: "/nonexistent/ffmpeg-for-test",
		YtDlpPath:  "/nonexistent/yt-dlp-for-test",
	}

	status := CheckTools(context.Background(), runner, config)
	if status.FFmpeg || status.YtDlp {
		t.Errorf("Expected both tools unavailable, got %+v", status)
	}
	if runner.CallCount() != 0 {
		t.Errorf("Expected no process runs, got %d", runner.CallCount())
	}
}

func TestGetRoutes(t *testing.T) {
	noop := func(http.ResponseWriter, *http.Request) {}
	r := mux.NewRouter()
	r.HandleFunc("/api/videos", noop).Methods("GET").Name("list")
	r.HandleFunc("/api/download", noop).Methods("POST")
	r.HandleFunc("/health", noop)

	routes, err := GetRoutes(r)
	if err != nil {
		t.Fatalf("GetRoutes() error = %v", err)
	}
	if len(routes) != 3 {
		t.Fatalf("Expected 3 routes, got %d: %+v", len(routes), routes)
	}

	want := []RouteInfo{
		{Method: "GET", Path: "/api/videos", Name: "list"},
		{Method: "POST", Path: "/api/download"},
		{Method: "*", Path: "/health"},
	}
	for i, w := range want {
		if routes[i] != w {
			t.Errorf("routes[%d] = %+v, want %+v", i, routes[i], w)
		}
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/videos", "api/videos"},
		{"/api/videos/serve/{title}", "api/videos"},
		{"/api/download", "api/download"},
		{"/health", "health"},
		{"/", ""},
	}

	for _, tt := range tests {
		if got := getRouteGroup(tt.path); got != tt.want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
