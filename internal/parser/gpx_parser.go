package parser

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"time"

	"github.com/sstent/garminexport/internal/models"
)

type GPXParser struct{}

func NewGPXParser() *GPXParser {
	return &GPXParser{}
}

type gpxFile struct {
	Tracks []struct {
		Type     string `xml:"type"`
		Segments []struct {
			Points []gpxPoint `xml:"trkpt"`
		} `xml:"trkseg"`
	} `xml:"trk"`
}

type gpxPoint struct {
	Lat       float64  `xml:"lat,attr"`
	Lon       float64  `xml:"lon,attr"`
	Elevation *float64 `xml:"ele"`
	Time      string   `xml:"time"`
	HR        int      `xml:"extensions>TrackPointExtension>hr"`
}

func (p *GPXParser) ParseData(data []byte) (*models.ActivityMetrics, error) {
	var gpx gpxFile
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&gpx); err != nil {
		return nil, fmt.Errorf("failed to decode GPX file: %w", err)
	}

	var points []gpxPoint
	activityType := "other"
	for _, track := range gpx.Tracks {
		if track.Type != "" {
			activityType = track.Type
		}
		for _, segment := range track.Segments {
			points = append(points, segment.Points...)
		}
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no track points found")
	}

	metrics := &models.ActivityMetrics{ActivityType: activityType}

	var startTime, endTime time.Time
	var hrValues []int
	var altitudes []float64
	for i, point := range points {
		if t, err := time.Parse(time.RFC3339, point.Time); err == nil {
			if startTime.IsZero() {
				startTime = t
			}
			endTime = t
		}
		if i > 0 {
			prev := points[i-1]
			metrics.Distance += haversine(prev.Lat, prev.Lon, point.Lat, point.Lon)
		}
		if point.HR > 0 {
			hrValues = append(hrValues, point.HR)
			if point.HR > metrics.MaxHeartRate {
				metrics.MaxHeartRate = point.HR
			}
		}
		if point.Elevation != nil {
			altitudes = append(altitudes, *point.Elevation)
		}
	}

	metrics.StartTime = startTime
	if !startTime.IsZero() {
		metrics.Duration = endTime.Sub(startTime)
	}
	metrics.AvgHeartRate = average(hrValues)
	metrics.ElevationGain, metrics.ElevationLoss = climb(altitudes)

	return metrics, nil
}

// haversine returns the great-circle distance in meters between two points.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371000

	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}
