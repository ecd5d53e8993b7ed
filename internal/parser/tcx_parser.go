package parser

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/sstent/garminexport/internal/models"
)

type TCXParser struct{}

func NewTCXParser() *TCXParser {
	return &TCXParser{}
}

type tcxDatabase struct {
	Activities struct {
		Activity []tcxActivity `xml:"Activity"`
	} `xml:"Activities"`
}

type tcxActivity struct {
	Sport string   `xml:"Sport,attr"`
	Laps  []tcxLap `xml:"Lap"`
}

type tcxLap struct {
	StartTime        string       `xml:"StartTime,attr"`
	TotalTimeSeconds float64      `xml:"TotalTimeSeconds"`
	DistanceMeters   float64      `xml:"DistanceMeters"`
	Calories         int          `xml:"Calories"`
	AverageHeartRate tcxHeartRate `xml:"AverageHeartRateBpm"`
	MaximumHeartRate tcxHeartRate `xml:"MaximumHeartRateBpm"`
	Track            struct {
		Trackpoints []tcxTrackpoint `xml:"Trackpoint"`
	} `xml:"Track"`
}

type tcxHeartRate struct {
	Value int `xml:"Value"`
}

type tcxTrackpoint struct {
	AltitudeMeters *float64     `xml:"AltitudeMeters"`
	HeartRateBpm   tcxHeartRate `xml:"HeartRateBpm"`
}

func (p *TCXParser) ParseData(data []byte) (*models.ActivityMetrics, error) {
	var tcx tcxDatabase
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&tcx); err != nil {
		return nil, fmt.Errorf("failed to decode TCX file: %w", err)
	}
	if len(tcx.Activities.Activity) == 0 || len(tcx.Activities.Activity[0].Laps) == 0 {
		return nil, fmt.Errorf("no activity data found")
	}

	activity := tcx.Activities.Activity[0]
	metrics := &models.ActivityMetrics{
		ActivityType: mapTCXSportType(activity.Sport),
	}
	if startTime, err := time.Parse(time.RFC3339, activity.Laps[0].StartTime); err == nil {
		metrics.StartTime = startTime
	}

	var totalDuration float64
	var hrValues []int
	var altitudes []float64
	for _, lap := range activity.Laps {
		totalDuration += lap.TotalTimeSeconds
		metrics.Distance += lap.DistanceMeters
		metrics.Calories += lap.Calories
		if lap.MaximumHeartRate.Value > metrics.MaxHeartRate {
			metrics.MaxHeartRate = lap.MaximumHeartRate.Value
		}
		for _, tp := range lap.Track.Trackpoints {
			if tp.HeartRateBpm.Value > 0 {
				hrValues = append(hrValues, tp.HeartRateBpm.Value)
			}
			if tp.AltitudeMeters != nil {
				altitudes = append(altitudes, *tp.AltitudeMeters)
			}
		}
	}
	metrics.Duration = time.Duration(totalDuration * float64(time.Second))
	metrics.AvgHeartRate = average(hrValues)
	metrics.ElevationGain, metrics.ElevationLoss = climb(altitudes)

	return metrics, nil
}

func mapTCXSportType(sport string) string {
	switch sport {
	case "Running":
		return "running"
	case "Biking":
		return "cycling"
	default:
		return "other"
	}
}

func average(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return sum / len(values)
}

// climb sums the positive and negative altitude changes along a track.
func climb(altitudes []float64) (gain, loss float64) {
	for i := 1; i < len(altitudes); i++ {
		d := altitudes[i] - altitudes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	return gain, loss
}
