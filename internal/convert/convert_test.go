package convert

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrunc6(t *testing.T) {
	assert.Equal(t, "1.234567", Trunc6(1.234567891))
	assert.Equal(t, "1.000000", Trunc6(1))
	assert.Equal(t, "47.123456", Trunc6(47.1234569))
	// floor, not truncation toward zero
	assert.Equal(t, "-1.234568", Trunc6(-1.2345671))
}

func TestPaceOrSpeedFormatted(t *testing.T) {
	// running: 3 m/s is 10.8 km/h, i.e. 333s per km
	assert.Equal(t, "05:33", PaceOrSpeedFormatted(1, 1, 3.0))
	// cycling shows km/h with one decimal
	assert.Equal(t, "10.8", PaceOrSpeedFormatted(2, 2, 3.0))
	// parent type alone decides pace too
	assert.Equal(t, "05:33", PaceOrSpeedFormatted(7, 9, 3.0))
}

func TestPaceOrSpeedRaw(t *testing.T) {
	assert.InDelta(t, 60/10.8, PaceOrSpeedRaw(1, 1, 3.0), 1e-9)
	assert.InDelta(t, 10.8, PaceOrSpeedRaw(2, 2, 3.0), 1e-9)
}

func TestHHMMSS(t *testing.T) {
	assert.Equal(t, "00:00:00", HHMMSS(0))
	assert.Equal(t, "01:02:03", HHMMSS(3723.9))
	assert.Equal(t, "10:00:00", HHMMSS(36000))
	assert.Equal(t, "1 day, 1:00:00", HHMMSS(90000))
	assert.Equal(t, "2 days, 0:00:05", HHMMSS(172805))
}

func TestKmhFromMps(t *testing.T) {
	assert.Equal(t, "36.0", KmhFromMps(10))
	assert.Equal(t, "3.6", KmhFromMps(1))
}

func TestRound(t *testing.T) {
	assert.Equal(t, "12.35", Round(12.349999, 2))
	assert.Equal(t, "12.0", Round(12, 2))
	assert.Equal(t, "123.457", Round(123.4567, 3))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "Morning_Run_Zurich", SanitizeFilename("Morning Run: Zürich!", 0))
	assert.Equal(t, "Morni", SanitizeFilename("Morning Run", 5))
	assert.Equal(t, "a_(b)", SanitizeFilename("a (b)", 0))
	assert.Equal(t, "", SanitizeFilename("", 0))
}

func TestValidFilename(t *testing.T) {
	assert.Equal(t, "johns_portrait_in_2004.jpg", ValidFilename("john's portrait in 2004.jpg"))
	assert.Equal(t, "2023-08-15_123045", ValidFilename(" 2023-08-15 12:30:45 "))
}

func TestResolvePath(t *testing.T) {
	got := ResolvePath("/exports", "{YYYY}/{MM}", "2021-03-04 05:06:07")
	assert.Equal(t, filepath.Join("/exports", "2021", "03"), got)
	assert.Equal(t, "/exports", ResolvePath("/exports", "", "2021-03-04 05:06:07"))
}

func TestOffsetDateTime(t *testing.T) {
	ts, err := OffsetDateTime("2021-03-04 07:06:07", "2021-03-04 05:06:07")
	require.NoError(t, err)
	assert.Equal(t, "2021-03-04T07:06:07+02:00", ISO(ts))
	assert.Equal(t, "Thu, 04 Mar 2021 07:06", RFC1123ish(ts))

	west, err := OffsetDateTime("2021-03-04 00:06:07", "2021-03-04 05:06:07")
	require.NoError(t, err)
	assert.Equal(t, "2021-03-04T00:06:07-05:00", ISO(west))

	_, err = OffsetDateTime("yesterday", "2021-03-04 05:06:07")
	assert.Error(t, err)
}

func TestKilometers(t *testing.T) {
	assert.Equal(t, "10.00000", Kilometers(10000, 5))
	assert.Equal(t, "1.235", Kilometers(1234.6, 3))
}
