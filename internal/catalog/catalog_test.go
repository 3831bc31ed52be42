package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"tubeshelf/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
)

const testDir = "/videos"

func newTestCatalog(t *testing.T, files map[string]string) (*Catalog, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll(testDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	for name, content := range files {
		if err := afero.WriteFile(fs, testDir+"/"+name, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile(%s): %v", name, err)
		}
	}
	return New(fs, testDir, Options{Workers: 4}), fs
}

func TestListPagination(t *testing.T) {
	files := make(map[string]string)
	for i := 0; i < 25; i++ {
		files[fmt.Sprintf("video %02d.mp4", i)] = "data"
	}
	c, _ := newTestCatalog(t, files)

	tests := []struct {
		page          int
		expectedCount int
		expectedFirst string
	}{
		{1, 10, "video 00"},
		{2, 10, "video 10"},
		{3, 5, "video 20"},
		{4, 0, ""},
		{1000000, 0, ""},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d", tt.page), func(t *testing.T) {
			p, err := c.List(context.Background(), tt.page, 10)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if p.Total != 25 {
				t.Errorf("Expected total 25, got %d", p.Total)
			}
			if p.Page != tt.page || p.Limit != 10 {
				t.Errorf("Expected page %d limit 10, got %d/%d", tt.page, p.Page, p.Limit)
			}
			if len(p.Videos) != tt.expectedCount {
				t.Fatalf("Expected %d videos, got %d", tt.expectedCount, len(p.Videos))
			}
			if p.Videos == nil {
				t.Error("Expected non-nil videos slice")
			}
			if tt.expectedCount > 0 && p.Videos[0].Title != tt.expectedFirst {
				t.Errorf("Expected first title %q, got %q", tt.expectedFirst, p.Videos[0].Title)
			}
		})
	}
}

func TestListDefaultsForInvalidPaging(t *testing.T) {
	files := make(map[string]string)
	for i := 0; i < 12; i++ {
		files[fmt.Sprintf("v%02d.mp4", i)] = "x"
	}
	c, _ := newTestCatalog(t, files)

	p, err := c.List(context.Background(), 0, -3)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if p.Page != 1 || p.Limit != 10 || len(p.Videos) != 10 {
		t.Errorf("Expected defaults page=1 limit=10 with 10 videos, got %d/%d with %d", p.Page, p.Limit, len(p.Videos))
	}
}

func TestListFiltersEntries(t *testing.T) {
	c, fs := newTestCatalog(t, map[string]string{
		"a.mp4":            "x",
		"b.webm":           "x",
		"C.MP4":            "x",
		"a.info.json":      `{"title":"a"}`,
		"notes.txt":        "x",
		"partial.mp4.part": "x",
		"yt-dlp":           "binary",
		"b.webm.info.json": "{}",
		"movie.mkv":        "x",
	})
	if err := fs.MkdirAll(testDir+"/folder.mp4", 0o755); err != nil {
		t.Fatal(err)
	}

	p, err := c.List(context.Background(), 1, 50)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	var titles []string
	for _, v := range p.Videos {
		titles = append(titles, v.Title)
	}
	want := []string{"C", "a", "b"}
	if fmt.Sprint(titles) != fmt.Sprint(want) {
		t.Errorf("Expected titles %v, got %v", want, titles)
	}
}

func TestListLoadsMetadata(t *testing.T) {
	c, _ := newTestCatalog(t, map[string]string{
		"with meta.mp4":       "x",
		"with meta.info.json": "{\n  \"channel\": \"Nature\",\n  \"duration\": 42\n}\n",
		"without meta.mp4":    "x",
	})

	p, err := c.List(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(p.Videos) != 2 {
		t.Fatalf("Expected 2 videos, got %d", len(p.Videos))
	}

	withMeta, withoutMeta := p.Videos[0], p.Videos[1]
	if string(withMeta.Metadata) != `{"channel":"Nature","duration":42}` {
		t.Errorf("Expected compacted metadata, got %s", withMeta.Metadata)
	}
	if withMeta.ID != ComputeID("with meta", withMeta.Metadata) {
		t.Errorf("ID does not match ComputeID")
	}
	if string(withoutMeta.Metadata) != "{}" {
		t.Errorf("Expected {} for missing sidecar, got %s", withoutMeta.Metadata)
	}
	if withoutMeta.ID != ComputeID("without meta", EmptyMetadata) {
		t.Errorf("ID does not match ComputeID for empty metadata")
	}
}

func TestListCorruptSidecarFallsBack(t *testing.T) {
	c, _ := newTestCatalog(t, map[string]string{
		"broken.mp4":       "x",
		"broken.info.json": `{"title": "unterminated`,
	})

	before := testutil.ToFloat64(metrics.CatalogSidecarErrors)

	p, err := c.List(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(p.Videos) != 1 {
		t.Fatalf("Expected 1 video, got %d", len(p.Videos))
	}
	if string(p.Videos[0].Metadata) != "{}" {
		t.Errorf("Expected {} fallback, got %s", p.Videos[0].Metadata)
	}
	if got := testutil.ToFloat64(metrics.CatalogSidecarErrors) - before; got != 1 {
		t.Errorf("Expected sidecar error counter to increase by 1, got %v", got)
	}
}

func TestListMissingDirectory(t *testing.T) {
	c := New(afero.NewMemMapFs(), "/does-not-exist", Options{})

	if _, err := c.List(context.Background(), 1, 10); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestListCanceledContext(t *testing.T) {
	c, _ := newTestCatalog(t, map[string]string{"a.mp4": "x", "b.mp4": "x"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.List(ctx, 1, 10); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestSearch(t *testing.T) {
	c, _ := newTestCatalog(t, map[string]string{
		"Cats are great.mp4": "x",
		"Dogs are fine.mp4":  "x",
		"concatenate.webm":   "x",
		"(Nature) Birds.mp4": "x",
	})

	tests := []struct {
		name     string
		query    string
		expected []string
	}{
		{"substring any case", "cat", []string{"Cats are great", "concatenate"}},
		{"upper case query", "DOGS", []string{"Dogs are fine"}},
		{"parenthesized channel", "(nature)", []string{"(Nature) Birds"}},
		{"no match", "zzz", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Search(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if res.Total != len(tt.expected) {
				t.Errorf("Expected total %d, got %d", len(tt.expected), res.Total)
			}
			if res.Videos == nil {
				t.Fatal("Expected non-nil videos slice")
			}
			for i, v := range res.Videos {
				if i < len(tt.expected) && v.Title != tt.expected[i] {
					t.Errorf("Result %d: expected %q, got %q", i, tt.expected[i], v.Title)
				}
				if v.ID == "" {
					t.Errorf("Result %d has no id", i)
				}
			}
		})
	}
}

func TestSuggest(t *testing.T) {
	c, _ := newTestCatalog(t, map[string]string{
		"Cats are great.mp4":   "x",
		"Dogs are fine.mp4":    "x",
		"Catalina island.webm": "x",
	})

	got, err := c.Suggest(context.Background(), "cat", 10)
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 suggestions, got %v", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Distance < got[i-1].Distance {
			t.Errorf("Suggestions not ranked by distance: %v", got)
		}
	}

	limited, err := c.Suggest(context.Background(), "cat", 1)
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("Expected 1 suggestion with max=1, got %d", len(limited))
	}
}

func TestResolve(t *testing.T) {
	c, fs := newTestCatalog(t, map[string]string{
		"both.mp4":  "mp4",
		"both.webm": "webm",
		"only.webm": "webm",
		"Shout.MP4": "mp4",
		"Clip.Mp4":  "mp4",
		"loud.WebM": "webm",
	})
	if err := fs.MkdirAll(testDir+"/dir.mp4", 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		title       string
		expectedExt string
		expectedErr error
	}{
		{"both", ".mp4", nil},
		{"only", ".webm", nil},
		{"Shout", ".mp4", nil},
		{"Clip", ".mp4", nil},
		{"loud", ".webm", nil},
		{"clip", "", ErrNotFound},
		{"missing", "", ErrNotFound},
		{"dir", "", ErrNotFound},
		{"", "", ErrInvalidTitle},
		{"..", "", ErrInvalidTitle},
		{"../etc/passwd", "", ErrInvalidTitle},
		{`a\b`, "", ErrInvalidTitle},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			v, err := c.Resolve(tt.title)
			if tt.expectedErr != nil {
				if !errors.Is(err, tt.expectedErr) {
					t.Errorf("Resolve(%q) error = %v, want %v", tt.title, err, tt.expectedErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) error = %v", tt.title, err)
			}
			if v.Ext != tt.expectedExt {
				t.Errorf("Resolve(%q) ext = %q, want %q", tt.title, v.Ext, tt.expectedExt)
			}
			if v.Size == 0 {
				t.Errorf("Resolve(%q) size not populated", tt.title)
			}
		})
	}
}

func TestStats(t *testing.T) {
	c, _ := newTestCatalog(t, map[string]string{
		"a.mp4":       "12345",
		"b.mp4":       "12",
		"c.webm":      "123",
		"a.info.json": "{}",
		"other.txt":   "x",
	})

	stats, err := c.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Total != 3 || stats.Videos["mp4"] != 2 || stats.Videos["webm"] != 1 {
		t.Errorf("Unexpected video counts: %+v", stats)
	}
	if stats.Bytes != 10 {
		t.Errorf("Expected 10 bytes, got %d", stats.Bytes)
	}
	if stats.Sidecars != 1 {
		t.Errorf("Expected 1 sidecar, got %d", stats.Sidecars)
	}
}
