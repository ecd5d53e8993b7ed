package export

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	processedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garminexport",
		Subsystem: "export",
		Name:      "activities_processed_total",
		Help:      "Number of activities written to the CSV, by export format.",
	}, []string{"format"})

	downloadCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garminexport",
		Subsystem: "export",
		Name:      "downloads_total",
		Help:      "Artifact downloads grouped by format and outcome (written, skipped, empty).",
	}, []string{"format", "outcome"})

	detailRetryCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "garminexport",
		Subsystem: "export",
		Name:      "detail_retries_total",
		Help:      "Number of repeated activity detail requests after an incomplete answer.",
	})

	lastRunGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "garminexport",
		Subsystem: "export",
		Name:      "last_run_completed_timestamp_seconds",
		Help:      "Unix timestamp of the most recent export run that finished without error.",
	})
)

func init() {
	prometheus.MustRegister(processedCounter, downloadCounter, detailRetryCounter, lastRunGauge)
}

func recordProcessed(format string) {
	processedCounter.WithLabelValues(format).Inc()
}

func recordDownload(format string, out Outcome) {
	outcome := "written"
	switch {
	case out.Skipped:
		outcome = "skipped"
	case out.Empty:
		outcome = "empty"
	}
	downloadCounter.WithLabelValues(format, outcome).Inc()
}

func recordDetailRetry() {
	detailRetryCounter.Inc()
}

func recordRunCompleted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastRunGauge.Set(float64(ts.Unix()))
}
