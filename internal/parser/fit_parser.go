package parser

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/tormoder/fit"

	"github.com/sstent/garminexport/internal/models"
)

type FITParser struct{}

func NewFITParser() *FITParser {
	return &FITParser{}
}

func (p *FITParser) ParseData(data []byte) (*models.ActivityMetrics, error) {
	fitFile, err := fit.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode FIT file: %w", err)
	}

	activity, err := fitFile.Activity()
	if err != nil {
		return nil, fmt.Errorf("failed to get activity from FIT: %w", err)
	}
	if len(activity.Sessions) == 0 {
		return nil, fmt.Errorf("no sessions found in FIT file")
	}

	session := activity.Sessions[0]
	metrics := &models.ActivityMetrics{
		ActivityType: session.Sport.String(),
		StartTime:    session.StartTime,
	}
	if secs := session.GetTotalTimerTimeScaled(); !math.IsNaN(secs) {
		metrics.Duration = time.Duration(secs * float64(time.Second))
	}
	if meters := session.GetTotalDistanceScaled(); !math.IsNaN(meters) {
		metrics.Distance = meters
	}

	// Unset FIT fields hold the all-ones value of their type.
	if session.AvgHeartRate != 0xFF {
		metrics.AvgHeartRate = int(session.AvgHeartRate)
	}
	if session.MaxHeartRate != 0xFF {
		metrics.MaxHeartRate = int(session.MaxHeartRate)
	}
	if session.AvgPower != 0xFFFF {
		metrics.AvgPower = int(session.AvgPower)
	}
	if session.TotalCalories != 0xFFFF {
		metrics.Calories = int(session.TotalCalories)
	}
	if session.TotalAscent != 0xFFFF {
		metrics.ElevationGain = float64(session.TotalAscent)
	}
	if session.TotalDescent != 0xFFFF {
		metrics.ElevationLoss = float64(session.TotalDescent)
	}
	if session.AvgTemperature != 0x7F {
		metrics.AvgTemperature = float64(session.AvgTemperature)
	}
	if session.MaxTemperature != 0x7F {
		metrics.MaxTemperature = float64(session.MaxTemperature)
	}

	return metrics, nil
}
