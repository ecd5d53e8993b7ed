// internal/database/sqlite.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const timeLayout = "2006-01-02 15:04:05"

// ErrNotFound is returned when no ledger row matches.
var ErrNotFound = errors.New("export not found")

const exportColumns = `
	id, activity_id, format, run_id, name, activity_type, start_time,
	duration, distance, max_heart_rate, avg_heart_rate, avg_power,
	calories, elevation_gain, device, gear, filename, file_size,
	downloaded, empty, created_at, last_sync`

// Columns FilterExports may sort by.
var sortColumns = map[string]bool{
	"start_time": true, "activity_id": true, "distance": true,
	"duration": true, "last_sync": true, "format": true,
}

type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB opens (creating if needed) the ledger at dbPath.
func NewSQLiteDB(dbPath string) (*SQLiteDB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	sqlite := &SQLiteDB{db: db}
	if err := sqlite.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return sqlite, nil
}

func (s *SQLiteDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS exports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		activity_id INTEGER NOT NULL,
		format TEXT NOT NULL,
		run_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		activity_type TEXT NOT NULL DEFAULT '',
		start_time DATETIME NOT NULL,
		duration INTEGER NOT NULL DEFAULT 0,
		distance REAL NOT NULL DEFAULT 0,
		max_heart_rate INTEGER NOT NULL DEFAULT 0,
		avg_heart_rate INTEGER NOT NULL DEFAULT 0,
		avg_power INTEGER NOT NULL DEFAULT 0,
		calories INTEGER NOT NULL DEFAULT 0,
		elevation_gain REAL NOT NULL DEFAULT 0,
		device TEXT NOT NULL DEFAULT '',
		gear TEXT NOT NULL DEFAULT '',
		filename TEXT NOT NULL DEFAULT '',
		file_size INTEGER NOT NULL DEFAULT 0,
		downloaded BOOLEAN NOT NULL DEFAULT FALSE,
		empty BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_sync DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (activity_id, format)
	);

	CREATE INDEX IF NOT EXISTS idx_exports_activity_id ON exports(activity_id);
	CREATE INDEX IF NOT EXISTS idx_exports_start_time ON exports(start_time);
	CREATE INDEX IF NOT EXISTS idx_exports_run_id ON exports(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordExport inserts e, or refreshes the existing row for the same
// activity and format.
func (s *SQLiteDB) RecordExport(ctx context.Context, e Export) error {
	query := `
	INSERT INTO exports (
		activity_id, format, run_id, name, activity_type, start_time,
		duration, distance, max_heart_rate, avg_heart_rate, avg_power,
		calories, elevation_gain, device, gear, filename, file_size,
		downloaded, empty
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (activity_id, format) DO UPDATE SET
		run_id = excluded.run_id, name = excluded.name,
		activity_type = excluded.activity_type, start_time = excluded.start_time,
		duration = excluded.duration, distance = excluded.distance,
		max_heart_rate = excluded.max_heart_rate, avg_heart_rate = excluded.avg_heart_rate,
		avg_power = excluded.avg_power, calories = excluded.calories,
		elevation_gain = excluded.elevation_gain, device = excluded.device,
		gear = excluded.gear, filename = excluded.filename,
		file_size = excluded.file_size, downloaded = excluded.downloaded,
		empty = excluded.empty, last_sync = CURRENT_TIMESTAMP`

	_, err := s.db.ExecContext(ctx, query,
		e.ActivityID, e.Format, e.RunID, e.Name, e.ActivityType,
		e.StartTime.UTC().Format(timeLayout),
		e.Duration, e.Distance, e.MaxHeartRate, e.AvgHeartRate, e.AvgPower,
		e.Calories, e.ElevationGain, e.Device, e.Gear, e.Filename, e.FileSize,
		e.Downloaded, e.Empty,
	)
	if err != nil {
		return fmt.Errorf("failed to record export of activity %d: %w", e.ActivityID, err)
	}
	return nil
}

func (s *SQLiteDB) GetExports(ctx context.Context, limit, offset int) ([]Export, error) {
	return s.FilterExports(ctx, ExportFilters{Limit: limit, Offset: offset})
}

func (s *SQLiteDB) GetExport(ctx context.Context, activityID int64, format string) (*Export, error) {
	query := `SELECT` + exportColumns + ` FROM exports WHERE activity_id = ? AND format = ?`

	e, err := scanExport(s.db.QueryRowContext(ctx, query, activityID, format))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetActivityExports returns every format exported for one activity.
func (s *SQLiteDB) GetActivityExports(ctx context.Context, activityID int64) ([]Export, error) {
	query := `SELECT` + exportColumns + ` FROM exports WHERE activity_id = ? ORDER BY format`
	rows, err := s.db.QueryContext(ctx, query, activityID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (s *SQLiteDB) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByFormat: make(map[string]int)}

	err := s.db.QueryRowContext(ctx, `
	SELECT COUNT(*),
	       COALESCE(SUM(CASE WHEN downloaded AND NOT empty THEN 1 ELSE 0 END), 0),
	       COALESCE(SUM(CASE WHEN empty THEN 1 ELSE 0 END), 0),
	       COUNT(DISTINCT run_id)
	FROM exports`).Scan(&stats.Total, &stats.Downloaded, &stats.Empty, &stats.Runs)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT format, COUNT(*) FROM exports GROUP BY format`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var format string
		var n int
		if err := rows.Scan(&format, &n); err != nil {
			return nil, err
		}
		stats.ByFormat[format] = n
	}
	return stats, rows.Err()
}

func (s *SQLiteDB) FilterExports(ctx context.Context, filters ExportFilters) ([]Export, error) {
	query := `SELECT` + exportColumns + ` FROM exports WHERE 1=1`

	var args []interface{}
	var conditions []string

	if filters.Format != "" {
		conditions = append(conditions, "format = ?")
		args = append(args, filters.Format)
	}
	if filters.ActivityType != "" {
		conditions = append(conditions, "activity_type = ?")
		args = append(args, filters.ActivityType)
	}
	if filters.RunID != "" {
		conditions = append(conditions, "run_id = ?")
		args = append(args, filters.RunID)
	}
	if filters.DateFrom != nil {
		conditions = append(conditions, "start_time >= ?")
		args = append(args, filters.DateFrom.UTC().Format(timeLayout))
	}
	if filters.DateTo != nil {
		conditions = append(conditions, "start_time <= ?")
		args = append(args, filters.DateTo.UTC().Format(timeLayout))
	}
	if filters.MinDistance > 0 {
		conditions = append(conditions, "distance >= ?")
		args = append(args, filters.MinDistance)
	}
	if filters.MaxDistance > 0 {
		conditions = append(conditions, "distance <= ?")
		args = append(args, filters.MaxDistance)
	}
	if filters.Downloaded != nil {
		conditions = append(conditions, "downloaded = ?")
		args = append(args, *filters.Downloaded)
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	orderBy := "start_time"
	if sortColumns[filters.SortBy] {
		orderBy = filters.SortBy
	}
	order := "DESC"
	if filters.SortOrder == "asc" {
		order = "ASC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s, id %s", orderBy, order, order)

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)

		if filters.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filters.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanExport(row scanner) (*Export, error) {
	var e Export
	var startTime, createdAt, lastSync string

	err := row.Scan(
		&e.ID, &e.ActivityID, &e.Format, &e.RunID, &e.Name, &e.ActivityType, &startTime,
		&e.Duration, &e.Distance, &e.MaxHeartRate, &e.AvgHeartRate, &e.AvgPower,
		&e.Calories, &e.ElevationGain, &e.Device, &e.Gear, &e.Filename, &e.FileSize,
		&e.Downloaded, &e.Empty, &createdAt, &lastSync,
	)
	if err != nil {
		return nil, err
	}

	e.StartTime = parseTime(startTime)
	e.CreatedAt = parseTime(createdAt)
	e.LastSync = parseTime(lastSync)
	return &e, nil
}

func collect(rows *sql.Rows) ([]Export, error) {
	defer rows.Close()

	exports := []Export{}
	for rows.Next() {
		e, err := scanExport(rows)
		if err != nil {
			return nil, err
		}
		exports = append(exports, *e)
	}
	return exports, rows.Err()
}

// parseTime reads the timestamps sqlite hands back, which come either in the
// layout they were written with or as RFC 3339.
func parseTime(s string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
