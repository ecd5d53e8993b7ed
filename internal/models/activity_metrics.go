package models

import "time"

// ActivityMetrics are the summary values read back from an exported activity
// file. They are stored in the export ledger next to what Garmin reported.
type ActivityMetrics struct {
	FileType       string
	ActivityType   string
	StartTime      time.Time
	Duration       time.Duration
	Distance       float64 // in meters
	MaxHeartRate   int
	AvgHeartRate   int
	AvgPower       int
	Calories       int
	ElevationGain  float64 // in meters
	ElevationLoss  float64 // in meters
	MaxTemperature float64 // in °C
	AvgTemperature float64 // in °C
}
