package catalog

import (
	"errors"
	"fmt"
	"io"

	"tubeshelf/internal/filesystem"

	"github.com/dhowden/tag"
	"github.com/spf13/afero"
)

// ErrNoTags is returned when a container carries no readable embedded tags.
var ErrNoTags = errors.New("no embedded tags")

// Tags are the embedded container tags of a video file.
type Tags struct {
	Format      string `json:"format"`
	FileType    string `json:"fileType"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	AlbumArtist string `json:"albumArtist"`
	Genre       string `json:"genre"`
	Year        int    `json:"year"`
	Comment     string `json:"comment"`
	Track       int    `json:"track,omitempty"`
	HasPicture  bool   `json:"hasPicture"`
}

// ReadTags parses the tags embedded in the file at path. A file in a format
// without tags, or whose tags do not parse, returns ErrNoTags; a failure to
// read the file is returned as is.
func ReadTags(fs afero.Fs, path string, retry filesystem.RetryConfig) (*Tags, error) {
	f, err := filesystem.OpenWithRetry(fs, path, retry)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	src := &readRecorder{SectionReader: io.NewSectionReader(f, 0, info.Size())}
	m, err := tag.ReadFrom(src)
	if err != nil {
		if src.err != nil {
			return nil, fmt.Errorf("read %s: %w", path, src.err)
		}
		return nil, fmt.Errorf("%w: %v", ErrNoTags, err)
	}

	track, _ := m.Track()
	return &Tags{
		Format:      string(m.Format()),
		FileType:    string(m.FileType()),
		Title:       m.Title(),
		Artist:      m.Artist(),
		Album:       m.Album(),
		AlbumArtist: m.AlbumArtist(),
		Genre:       m.Genre(),
		Year:        m.Year(),
		Comment:     m.Comment(),
		Track:       track,
		HasPicture:  m.Picture() != nil,
	}, nil
}

// Tags resolves title and reads its embedded tags.
func (c *Catalog) Tags(title string) (*Tags, error) {
	v, err := c.Resolve(title)
	if err != nil {
		return nil, err
	}
	return ReadTags(c.fs, v.Path, c.retry)
}

// readRecorder keeps the first read error other than EOF, so a failed parse
// can be told apart from a failed read.
type readRecorder struct {
	*io.SectionReader
	err error
}

func (r *readRecorder) Read(p []byte) (int, error) {
	n, err := r.SectionReader.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && r.err == nil {
		r.err = err
	}
	return n, err
}
