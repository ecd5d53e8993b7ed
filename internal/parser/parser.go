// Package parser reads summary metrics out of exported activity files.
package parser

import (
	"fmt"
	"os"

	"github.com/sstent/garminexport/internal/models"
)

// Parser extracts metrics from the raw bytes of one file type.
type Parser interface {
	ParseData(data []byte) (*models.ActivityMetrics, error)
}

// NewParser returns the parser for fileType, or nil when there is none.
func NewParser(fileType FileType) Parser {
	switch fileType {
	case FileTypeFIT:
		return NewFITParser()
	case FileTypeTCX:
		return NewTCXParser()
	case FileTypeGPX:
		return NewGPXParser()
	}
	return nil
}

// Inspector reads metrics from downloaded artifacts, choosing the parser by
// content rather than by file name.
type Inspector struct{}

func NewInspector() *Inspector {
	return &Inspector{}
}

// Inspect parses the file at path.
func (i *Inspector) Inspect(path string) (*models.ActivityMetrics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fileType := DetectFileTypeFromData(data)
	p := NewParser(fileType)
	if p == nil {
		return nil, fmt.Errorf("unsupported file type %s: %s", fileType, path)
	}
	metrics, err := p.ParseData(data)
	if err != nil {
		return nil, err
	}
	metrics.FileType = string(fileType)
	return metrics, nil
}
