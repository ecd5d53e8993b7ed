package export

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sstent/garminexport/internal/convert"
	"github.com/sstent/garminexport/internal/garmin"
)

// DownloadAPI fetches activity exports.
type DownloadAPI interface {
	Download(ctx context.Context, format garmin.Format, activityID string) ([]byte, error)
}

// Request describes one artifact to persist.
type Request struct {
	ActivityID string
	Detail     garmin.Detail
	// StartTimeLocal is Garmin's naive "2006-01-02 15:04:05" local start time.
	StartTimeLocal string
	StartTime      time.Time
	Description    string
}

// Outcome reports what Download did.
type Outcome struct {
	// Path is the artifact path named after the activity, zip included.
	Path string
	// Files are the files left on disk by this call.
	Files []string
	Size  int64
	// Skipped is set when the artifact already existed and nothing was fetched.
	Skipped bool
	// Empty is set when Garmin had no original file for the activity.
	Empty bool
}

// Downloader persists activity artifacts under the export directory.
type Downloader struct {
	api    DownloadAPI
	opts   Options
	logger *log.Logger
}

// NewDownloader creates a Downloader for opts.Format.
func NewDownloader(api DownloadAPI, opts Options, logger *log.Logger) *Downloader {
	if logger == nil {
		logger = log.Default()
	}
	return &Downloader{api: api, opts: opts, logger: logger}
}

// Download writes the artifact for req unless it is already on disk.
func (d *Downloader) Download(ctx context.Context, req Request) (Outcome, error) {
	format := d.opts.Format
	dir := convert.ResolvePath(d.opts.Directory, d.opts.Subdir, req.StartTimeLocal)
	base := d.stem(req) + "_" + req.ActivityID
	path := filepath.Join(dir, base+"."+format.Extension())

	if existing, ok := d.existing(path); ok {
		d.logger.Debug("Skipping already-existing file", "path", existing)
		return Outcome{Path: existing, Skipped: true}, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Outcome{}, fmt.Errorf("failed to create directory: %w", err)
	}

	var (
		data        []byte
		placeholder bool
	)
	if format == garmin.FormatJSON {
		data = req.Detail.Raw
	} else {
		var err error
		data, err = d.api.Download(ctx, format, req.ActivityID)
		switch {
		case err != nil && format == garmin.FormatOriginal && garmin.IsNotFound(err):
			// Manually entered activities have no original upload.
			d.logger.Info("Writing empty file since there was no original activity data", "activityId", req.ActivityID)
			data, placeholder = nil, true
		case err != nil:
			return Outcome{}, fmt.Errorf("failed to download activity %s: %w", req.ActivityID, err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Outcome{}, fmt.Errorf("failed to write file: %w", err)
	}
	out := Outcome{Path: path, Files: []string{path}, Size: int64(len(data)), Empty: placeholder}

	if format == garmin.FormatOriginal && !placeholder {
		if len(data) == 0 {
			d.logger.Warn("Skipping 0Kb zip file", "activityId", req.ActivityID)
			if err := os.Remove(path); err != nil {
				return Outcome{}, fmt.Errorf("failed to remove empty zip: %w", err)
			}
			out.Files, out.Empty = nil, true
			return out, nil
		}
		files, err := d.unzip(path, base)
		if err != nil {
			return Outcome{}, err
		}
		if d.opts.Unzip {
			if err := os.Remove(path); err != nil {
				return Outcome{}, fmt.Errorf("failed to remove zip: %w", err)
			}
			out.Files = files
		} else {
			out.Files = append(out.Files, files...)
		}
	}

	if d.opts.OriginalTime && !req.StartTime.IsZero() {
		for _, f := range out.Files {
			if err := os.Chtimes(f, req.StartTime, req.StartTime); err != nil {
				return Outcome{}, fmt.Errorf("failed to set file time: %w", err)
			}
		}
	}
	return out, nil
}

// existing reports whether the artifact at path is already on disk. When zips
// are removed after extraction, an extracted sibling marks the artifact too.
func (d *Downloader) existing(path string) (string, bool) {
	if _, err := os.Stat(path); err == nil {
		return path, true
	}
	if d.opts.Format != garmin.FormatOriginal || !d.opts.Unzip {
		return "", false
	}
	matches, _ := filepath.Glob(strings.TrimSuffix(path, ".zip") + ".*")
	if len(matches) == 0 {
		return "", false
	}
	return matches[0], true
}

// stem is the file name prefix derived from the local start time, optionally
// followed by the sanitized description.
func (d *Downloader) stem(req Request) string {
	var stem string
	if d.opts.FilePrefix && !req.StartTime.IsZero() {
		stem = req.StartTime.Format("20060102-150405")
	} else {
		stem = convert.ValidFilename(req.StartTimeLocal)
	}
	if d.opts.Desc && req.Description != "" {
		if desc := convert.SanitizeFilename(req.Description, d.opts.DescLength); desc != "" {
			stem += "_" + desc
		}
	}
	return stem
}

// unzip extracts every entry of the archive next to it, naming each one base
// plus the entry's own extension.
func (d *Downloader) unzip(path, base string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer zr.Close()

	dir := filepath.Dir(path)
	var files []string
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		target := filepath.Join(dir, base+filepath.Ext(entry.Name))
		d.logger.Debug("Unzipping", "entry", entry.Name, "target", target)
		if err := extract(entry, target); err != nil {
			return nil, err
		}
		files = append(files, target)
	}
	return files, nil
}

func extract(entry *zip.File, target string) error {
	rc, err := entry.Open()
	if err != nil {
		return fmt.Errorf("failed to open zip entry %s: %w", entry.Name, err)
	}
	defer rc.Close()

	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return fmt.Errorf("failed to extract %s: %w", entry.Name, err)
	}
	return f.Close()
}
