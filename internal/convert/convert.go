// Package convert holds the unit and text conversions used when projecting
// Garmin Connect values into CSV cells and file names.
package convert

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Type ids whose speed is shown as pace (min/km): running, hiking, walking.
var usesPace = map[int]bool{1: true, 3: true, 9: true}

// ParentTypeNames maps the numeric parentTypeId to its key.
var ParentTypeNames = map[int]string{
	1:   "running",
	2:   "cycling",
	3:   "hiking",
	4:   "other",
	9:   "walking",
	17:  "any",
	26:  "swimming",
	29:  "fitness_equipment",
	71:  "motorcycling",
	83:  "transition",
	144: "diving",
	149: "yoga",
}

const (
	garminTimeLayout = "2006-01-02 15:04:05"
	isoLayout        = "2006-01-02T15:04:05-07:00"
	// Garmin's old 'display' format, close to RFC 1123 but without seconds.
	almostRFC1123 = "Mon, 02 Jan 2006 15:04"
)

const validFilenameChars = "-_.() abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var invalidStemChars = regexp.MustCompile(`[^-\p{L}\p{N}_.]`)

// HHMMSS formats whole seconds as HH:MM:SS. Durations of a day or more get a
// "N day(s), " prefix and an unpadded hour.
func HHMMSS(seconds float64) string {
	total := int64(seconds)
	days := total / 86400
	rem := total % 86400
	if rem < 0 {
		days--
		rem += 86400
	}
	h, m, s := rem/3600, (rem%3600)/60, rem%60
	if days == 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	unit := "days"
	if days == 1 || days == -1 {
		unit = "day"
	}
	return fmt.Sprintf("%d %s, %d:%02d:%02d", days, unit, h, m, s)
}

// KmhFromMps converts meters per second to a km/h string.
func KmhFromMps(mps float64) string {
	return FloatString(mps * 3.6)
}

// Trunc6 floors f to six decimals and always prints six digits.
func Trunc6(f float64) string {
	return strconv.FormatFloat(math.Floor(f*1e6)/1e6, 'f', 6, 64)
}

// UsesPace reports whether an activity type shows pace instead of speed.
func UsesPace(typeID, parentTypeID int) bool {
	return usesPace[typeID] || usesPace[parentTypeID]
}

// PaceOrSpeedRaw returns km/h, or min/km for pace-based activity types.
func PaceOrSpeedRaw(typeID, parentTypeID int, mps float64) float64 {
	kmh := 3.6 * mps
	if UsesPace(typeID, parentTypeID) {
		return 60 / kmh
	}
	return kmh
}

// PaceOrSpeedFormatted renders pace as MM:SS per km or speed as km/h with one decimal.
func PaceOrSpeedFormatted(typeID, parentTypeID int, mps float64) string {
	kmh := 3.6 * mps
	if UsesPace(typeID, parentTypeID) {
		secs := int64(math.RoundToEven(3600 / kmh))
		return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
	}
	return strconv.FormatFloat(kmh, 'f', 1, 64)
}

// FloatString prints f the way the CSV has always shown raw floats: shortest
// representation, with a trailing ".0" on integral values.
func FloatString(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// Round rounds f to the given number of decimals and prints it with FloatString.
func Round(f float64, places int) string {
	p := math.Pow(10, float64(places))
	return FloatString(math.RoundToEven(f*p) / p)
}

// SanitizeFilename folds name to ASCII, keeps only filename-safe characters and
// replaces spaces with underscores. A positive maxLength truncates the result.
func SanitizeFilename(name string, maxLength int) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(name) {
		if r < 128 && strings.ContainsRune(validFilenameChars, r) {
			b.WriteRune(r)
		}
	}
	cleaned := strings.ReplaceAll(b.String(), " ", "_")
	if maxLength > 0 && len(cleaned) > maxLength {
		cleaned = cleaned[:maxLength]
	}
	return cleaned
}

// ValidFilename trims s, turns spaces into underscores and strips everything
// that is not a letter, digit, dash, underscore or dot.
func ValidFilename(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
	return invalidStemChars.ReplaceAllString(s, "")
}

// ResolvePath joins directory and subdir, replacing {YYYY} and {MM} with the
// year and month of a "YYYY-MM-DD ..." timestamp.
func ResolvePath(directory, subdir, startTimeLocal string) string {
	p := filepath.Join(directory, subdir)
	if len(startTimeLocal) >= 4 {
		p = strings.ReplaceAll(p, "{YYYY}", startTimeLocal[0:4])
	}
	if len(startTimeLocal) >= 7 {
		p = strings.ReplaceAll(p, "{MM}", startTimeLocal[5:7])
	}
	return p
}

// OffsetDateTime builds a zoned time from the naive local and GMT timestamps of
// an activity, using their difference as the zone offset.
func OffsetDateTime(local, gmt string) (time.Time, error) {
	l, err := time.Parse(garminTimeLayout, local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse local start time %q: %w", local, err)
	}
	g, err := time.Parse(garminTimeLayout, gmt)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse GMT start time %q: %w", gmt, err)
	}
	offset := int(l.Sub(g).Seconds())
	zone := time.FixedZone("LCL", offset)
	return time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), l.Second(), 0, zone), nil
}

// ISO renders t as an ISO 8601 timestamp with a numeric offset.
func ISO(t time.Time) string {
	return t.Format(isoLayout)
}

// RFC1123ish renders t as "Mon, 02 Jan 2006 15:04".
func RFC1123ish(t time.Time) string {
	return t.Format(almostRFC1123)
}

// Kilometers formats meters as kilometers with the given precision.
func Kilometers(meters float64, precision int) string {
	return strconv.FormatFloat(meters/1000, 'f', precision, 64)
}
