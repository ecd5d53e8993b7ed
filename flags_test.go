package main

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sstent/garminexport/internal/export"
	"github.com/sstent/garminexport/internal/garmin"
)

func TestParseFlagsDefaults(t *testing.T) {
	opts, err := parseFlags(nil, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, export.Count{Mode: export.CountN, N: 1}, opts.count)
	assert.Equal(t, garmin.FormatGPX, opts.format)
	assert.Equal(t, defaultDirectory(time.Now()), opts.directory)
	assert.False(t, opts.desc.enabled)
	assert.Equal(t, log.WarnLevel, opts.verbosity.level())
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{
		"--count", "new", "--format", "ORIGINAL", "--unzip", "--originaltime",
		"--desc=20", "--fileprefix", "--subdir", "{YYYY}/{MM}", "-v", "-v",
	}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, export.CountNew, opts.count.Mode)
	assert.Equal(t, garmin.FormatOriginal, opts.format)
	assert.True(t, opts.unzip)
	assert.True(t, opts.originalTime)
	assert.True(t, opts.filePrefix)
	assert.Equal(t, descFlag{enabled: true, length: 20}, opts.desc)
	assert.Equal(t, "{YYYY}/{MM}", opts.subdir)
	assert.Equal(t, log.DebugLevel, opts.verbosity.level())
}

func TestParseFlagsDescWithoutLength(t *testing.T) {
	opts, err := parseFlags([]string{"--desc", "-vv"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, descFlag{enabled: true}, opts.desc)
	assert.Equal(t, log.DebugLevel, opts.verbosity.level())
}

func TestParseFlagsRejectsInvalidValues(t *testing.T) {
	for _, args := range [][]string{
		{"--count", "some"},
		{"--count", "-1"},
		{"--format", "fit"},
		{"--desc=-3"},
		{"stray"},
	} {
		_, err := parseFlags(args, io.Discard)
		assert.Error(t, err, "%v", args)
	}

	_, err := parseFlags([]string{"--count", "x"}, io.Discard)
	assert.ErrorIs(t, err, export.ErrInvalidCount)
	_, err = parseFlags([]string{"--format", "fit"}, io.Discard)
	assert.ErrorIs(t, err, garmin.ErrUnknownFormat)
}

func TestDefaultDirectory(t *testing.T) {
	assert.Equal(t, "./2021-03-04_garmin_connect_export", defaultDirectory(time.Date(2021, 3, 4, 23, 0, 0, 0, time.UTC)))
}
