package garmin

import (
	"fmt"
	"strings"
)

// Format is an export format.
type Format string

const (
	FormatOriginal Format = "original"
	FormatGPX      Format = "gpx"
	FormatTCX      Format = "tcx"
	FormatJSON     Format = "json"
)

// Formats lists every supported format.
var Formats = []Format{FormatGPX, FormatTCX, FormatOriginal, FormatJSON}

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want gpx, tcx, original or json)", ErrUnknownFormat, s)
}

// Extension is the file extension an artifact in this format is written with.
// Originals arrive as zip archives.
func (f Format) Extension() string {
	if f == FormatOriginal {
		return "zip"
	}
	return string(f)
}
