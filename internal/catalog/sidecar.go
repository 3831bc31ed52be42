package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"tubeshelf/internal/filesystem"
	"tubeshelf/internal/mediatypes"

	"github.com/spf13/afero"
)

// EmptyMetadata is what a video without a sidecar carries.
var EmptyMetadata = json.RawMessage(`{}`)

// SidecarStore reads the downloader-written <title>.info.json files that sit
// next to each video.
type SidecarStore struct {
	fs    afero.Fs
	dir   string
	retry filesystem.RetryConfig
}

// NewSidecarStore creates a store rooted at dir.
func NewSidecarStore(fs afero.Fs, dir string, retry filesystem.RetryConfig) *SidecarStore {
	return &SidecarStore{fs: fs, dir: dir, retry: retry}
}

// Path returns where the sidecar for title lives.
func (s *SidecarStore) Path(title string) string {
	return filepath.Join(s.dir, title+mediatypes.SidecarSuffix)
}

// Load returns the sidecar for title in canonical JSON form (see
// canonicalJSON). found is false and meta is EmptyMetadata when no sidecar
// exists. A sidecar that exists but cannot be read or parsed returns an error.
func (s *SidecarStore) Load(title string) (meta json.RawMessage, found bool, err error) {
	path := s.Path(title)

	f, err := filesystem.OpenWithRetry(s.fs, path, s.retry)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return EmptyMetadata, false, nil
		}
		return EmptyMetadata, false, fmt.Errorf("open sidecar %s: %w", path, err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return EmptyMetadata, true, fmt.Errorf("read sidecar %s: %w", path, err)
	}

	canonical, err := canonicalJSON(raw)
	if err != nil {
		return EmptyMetadata, true, fmt.Errorf("parse sidecar %s: %w", path, err)
	}

	return json.RawMessage(canonical), true, nil
}
