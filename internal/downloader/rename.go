package downloader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tubeshelf/internal/filesystem"
	"tubeshelf/internal/logging"
	"tubeshelf/internal/metrics"
)

var nameReplacer = strings.NewReplacer("_", " ", "-", " ")

// NormalizeName replaces every underscore and hyphen in name with a space.
func NormalizeName(name string) string {
	return nameReplacer.Replace(name)
}

// Rename is one entry moved by the rename pass.
type Rename struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// RenameFailure is one entry the rename pass could not move.
type RenameFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// RenameReport summarizes a rename pass.
type RenameReport struct {
	Renamed []Rename        `json:"renamed"`
	Skipped []string        `json:"skipped"`
	Failed  []RenameFailure `json:"failed"`
}

// Normalize renames every entry of the videos directory so it contains no
// underscores or hyphens. Entries whose new name is already taken are
// skipped, and per-entry failures are reported rather than returned.
// Running it twice in a row renames nothing the second time.
func (d *Downloader) Normalize() (*RenameReport, error) {
	d.renameMu.Lock()
	defer d.renameMu.Unlock()

	report := &RenameReport{
		Renamed: []Rename{},
		Skipped: []string{},
		Failed:  []RenameFailure{},
	}

	entries, err := filesystem.ReadDirWithRetry(d.fs, d.config.VideosDir, d.retry)
	if err != nil {
		return report, fmt.Errorf("read videos directory: %w", err)
	}

	for _, e := range entries {
		name := e.Name()
		newName := NormalizeName(name)
		if newName == name || name == d.protected {
			continue
		}

		from := filepath.Join(d.config.VideosDir, name)
		to := filepath.Join(d.config.VideosDir, newName)

		exists, err := filesystem.Exists(d.fs, to, d.retry)
		if err != nil {
			d.fail(report, name, err)
			continue
		}
		if exists {
			logging.Warn("Not renaming %s: %s already exists", name, newName)
			metrics.RenamesTotal.WithLabelValues("skipped_exists").Inc()
			report.Skipped = append(report.Skipped, name)
			continue
		}

		if err := d.fs.Rename(from, to); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				// Removed between listing and renaming.
				continue
			}
			d.fail(report, name, err)
			continue
		}

		logging.Info("Renamed: %s -> %s", name, newName)
		metrics.RenamesTotal.WithLabelValues("renamed").Inc()
		report.Renamed = append(report.Renamed, Rename{From: name, To: newName})
	}

	return report, nil
}

func (d *Downloader) fail(report *RenameReport, name string, err error) {
	logging.Error("Error renaming file %s: %v", name, err)
	metrics.RenamesTotal.WithLabelValues("failed").Inc()
	report.Failed = append(report.Failed, RenameFailure{Name: name, Error: err.Error()})
}
