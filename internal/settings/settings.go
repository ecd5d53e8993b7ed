// Package settings persists the per-format resume counters kept next to an export.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileName is the settings file inside the export directory.
const FileName = ".settings"

// Indices holds how many activities of each format have been exported.
type Indices struct {
	TCX      int `json:"tcx"`
	GPX      int `json:"gpx"`
	JSON     int `json:"json"`
	Original int `json:"original"`
}

// Settings is the on-disk structure.
type Settings struct {
	ActivityIndices Indices `json:"activity_indices"`
}

// Index returns the counter for a format name; unknown names read as zero.
func (s Settings) Index(format string) int {
	switch format {
	case "tcx":
		return s.ActivityIndices.TCX
	case "gpx":
		return s.ActivityIndices.GPX
	case "json":
		return s.ActivityIndices.JSON
	case "original":
		return s.ActivityIndices.Original
	}
	return 0
}

func (s *Settings) setIndex(format string, n int) error {
	switch format {
	case "tcx":
		s.ActivityIndices.TCX = n
	case "gpx":
		s.ActivityIndices.GPX = n
	case "json":
		s.ActivityIndices.JSON = n
	case "original":
		s.ActivityIndices.Original = n
	default:
		return fmt.Errorf("no activity index for format %q", format)
	}
	return nil
}

// Read loads the settings stored in dir. A missing file yields zeroed settings.
func Read(dir string) (Settings, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings: %w", err)
	}
	return s, nil
}

// WriteIndex stores n as the counter for format, keeping the other counters.
func WriteIndex(dir, format string, n int) error {
	s, err := Read(dir)
	if err != nil {
		return err
	}
	if err := s.setIndex(format, n); err != nil {
		return err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
