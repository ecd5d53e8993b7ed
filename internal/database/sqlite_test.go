package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "ledger", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordExportUpsertsByActivityAndFormat(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	start := time.Date(2021, 3, 4, 6, 6, 7, 0, time.UTC)

	require.NoError(t, db.RecordExport(ctx, Export{
		ActivityID: 123, Format: "gpx", RunID: "run-1", Name: "Morning Run",
		StartTime: start, Duration: 3723, Distance: 10000, Downloaded: true,
		Filename: "2021-03-04_070607_123.gpx", FileSize: 10,
	}))
	require.NoError(t, db.RecordExport(ctx, Export{
		ActivityID: 123, Format: "gpx", RunID: "run-2", Name: "Morning Run",
		StartTime: start, Duration: 3723, Distance: 10000, Downloaded: true,
		Filename: "2021-03-04_070607_123.gpx", FileSize: 12,
	}))
	require.NoError(t, db.RecordExport(ctx, Export{
		ActivityID: 123, Format: "original", RunID: "run-2", StartTime: start, Downloaded: true, Empty: true,
	}))

	e, err := db.GetExport(ctx, 123, "gpx")
	require.NoError(t, err)
	assert.Equal(t, "run-2", e.RunID)
	assert.Equal(t, int64(12), e.FileSize)
	assert.True(t, start.Equal(e.StartTime))
	assert.True(t, e.Downloaded)
	assert.False(t, e.LastSync.IsZero())

	all, err := db.GetActivityExports(ctx, 123)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "gpx", all[0].Format)
	assert.Equal(t, "original", all[1].Format)

	_, err = db.GetExport(ctx, 999, "gpx")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatsAndFilters(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	base := time.Date(2022, 1, 1, 8, 0, 0, 0, time.UTC)

	for i, e := range []Export{
		{ActivityID: 1, Format: "gpx", RunID: "a", ActivityType: "running", Distance: 5000, Downloaded: true},
		{ActivityID: 2, Format: "gpx", RunID: "a", ActivityType: "cycling", Distance: 40000, Downloaded: true},
		{ActivityID: 3, Format: "original", RunID: "b", ActivityType: "running", Downloaded: true, Empty: true},
	} {
		e.StartTime = base.AddDate(0, 0, i)
		require.NoError(t, db.RecordExport(ctx, e))
	}

	stats, err := db.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Downloaded)
	assert.Equal(t, 1, stats.Empty)
	assert.Equal(t, 2, stats.Runs)
	assert.Equal(t, map[string]int{"gpx": 2, "original": 1}, stats.ByFormat)

	running, err := db.FilterExports(ctx, ExportFilters{ActivityType: "running", SortBy: "start_time", SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, running, 2)
	assert.Equal(t, int64(1), running[0].ActivityID)
	assert.Equal(t, int64(3), running[1].ActivityID)

	far, err := db.FilterExports(ctx, ExportFilters{MinDistance: 10000})
	require.NoError(t, err)
	require.Len(t, far, 1)
	assert.Equal(t, int64(2), far[0].ActivityID)

	from := base.AddDate(0, 0, 1)
	recent, err := db.FilterExports(ctx, ExportFilters{DateFrom: &from, SortBy: "id; DROP TABLE exports"})
	require.NoError(t, err)
	assert.Len(t, recent, 2)
	assert.Equal(t, int64(3), recent[0].ActivityID)

	page, err := db.GetExports(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(2), page[0].ActivityID)
}

func TestEmptyLedger(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	exports, err := db.GetExports(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, exports)

	stats, err := db.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
}
