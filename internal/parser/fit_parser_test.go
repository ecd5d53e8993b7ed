package parser

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tormoder/fit"
)

// encodeActivity builds an activity FIT file holding one running session.
func encodeActivity(t *testing.T, start time.Time) []byte {
	t.Helper()
	file, err := fit.NewFile(fit.FileTypeActivity, fit.NewHeader(fit.V20, true))
	require.NoError(t, err)
	act, err := file.Activity()
	require.NoError(t, err)

	session := fit.NewSessionMsg()
	session.Timestamp = start.Add(time.Hour)
	session.StartTime = start
	session.Sport = fit.SportRunning
	session.TotalTimerTime = 3_600_000 // ms
	session.TotalDistance = 1_000_000  // cm
	session.AvgHeartRate = 148
	session.MaxHeartRate = 171
	session.TotalCalories = 612
	session.TotalAscent = 101
	act.Sessions = append(act.Sessions, session)

	summary := fit.NewActivityMsg()
	summary.Timestamp = start.Add(time.Hour)
	summary.NumSessions = 1
	act.Activity = summary

	var buf bytes.Buffer
	require.NoError(t, fit.Encode(&buf, file, binary.LittleEndian))
	return buf.Bytes()
}

func TestFITParserReadsSession(t *testing.T) {
	start := time.Date(2021, 3, 4, 6, 6, 7, 0, time.UTC)

	m, err := NewFITParser().ParseData(encodeActivity(t, start))
	require.NoError(t, err)

	assert.Equal(t, fit.SportRunning.String(), m.ActivityType)
	assert.True(t, start.Equal(m.StartTime), "start %s", m.StartTime)
	assert.Equal(t, time.Hour, m.Duration)
	assert.InDelta(t, 10000, m.Distance, 1e-6)
	assert.Equal(t, 148, m.AvgHeartRate)
	assert.Equal(t, 171, m.MaxHeartRate)
	assert.Equal(t, 612, m.Calories)
	assert.InDelta(t, 101, m.ElevationGain, 1e-9)
	// fields the session leaves unset stay zero
	assert.Zero(t, m.AvgPower)
	assert.Zero(t, m.ElevationLoss)
	assert.Zero(t, m.MaxTemperature)
}

func TestInspectorDetectsFIT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2021-03-04_070607_1.fit")
	require.NoError(t, os.WriteFile(path, encodeActivity(t, time.Date(2021, 3, 4, 6, 0, 0, 0, time.UTC)), 0o644))

	m, err := NewInspector().Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, "fit", m.FileType)
	assert.Equal(t, 171, m.MaxHeartRate)
}
