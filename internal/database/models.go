// internal/database/models.go
package database

import (
	"context"
	"time"
)

// Export is one ledger row: an activity exported in one format.
type Export struct {
	ID            int64     `json:"id"`
	ActivityID    int64     `json:"activity_id"`
	Format        string    `json:"format"`
	RunID         string    `json:"run_id"`
	Name          string    `json:"name"`
	ActivityType  string    `json:"activity_type"`
	StartTime     time.Time `json:"start_time"`
	Duration      int       `json:"duration"` // seconds
	Distance      float64   `json:"distance"` // meters
	MaxHeartRate  int       `json:"max_heart_rate"`
	AvgHeartRate  int       `json:"avg_heart_rate"`
	AvgPower      int       `json:"avg_power"`
	Calories      int       `json:"calories"`
	ElevationGain float64   `json:"elevation_gain"`
	Device        string    `json:"device"`
	Gear          string    `json:"gear"`
	Filename      string    `json:"filename"`
	FileSize      int64     `json:"file_size"`
	Downloaded    bool      `json:"downloaded"`
	Empty         bool      `json:"empty"`
	CreatedAt     time.Time `json:"created_at"`
	LastSync      time.Time `json:"last_sync"`
}

type Stats struct {
	Total      int            `json:"total"`
	Downloaded int            `json:"downloaded"`
	Empty      int            `json:"empty"`
	Runs       int            `json:"runs"`
	ByFormat   map[string]int `json:"by_format"`
}

// Ledger is the export history store.
type Ledger interface {
	RecordExport(ctx context.Context, e Export) error
	GetExports(ctx context.Context, limit, offset int) ([]Export, error)
	GetExport(ctx context.Context, activityID int64, format string) (*Export, error)
	GetActivityExports(ctx context.Context, activityID int64) ([]Export, error)
	FilterExports(ctx context.Context, filters ExportFilters) ([]Export, error)
	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}

type ExportFilters struct {
	Format       string
	ActivityType string
	RunID        string
	DateFrom     *time.Time
	DateTo       *time.Time
	MinDistance  float64
	MaxDistance  float64
	Downloaded   *bool
	Limit        int
	Offset       int
	SortBy       string
	SortOrder    string
}
