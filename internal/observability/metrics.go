// Package observability holds process-wide watermark gauges.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	activityRecordedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fittrack",
		Subsystem: "activities",
		Name:      "last_recorded_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity logged through the API.",
	})
	activityIngestedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fittrack",
		Subsystem: "activities",
		Name:      "last_ingested_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity ingested from Kafka.",
	})
)

func init() {
	prometheus.MustRegister(activityRecordedGauge, activityIngestedGauge)
}

// RecordActivityRecorded updates the API watermark gauge.
func RecordActivityRecorded(ts time.Time) {
	if ts.IsZero() {
		return
	}
	activityRecordedGauge.Set(float64(ts.Unix()))
}

// RecordActivityIngested updates the ingest watermark gauge.
func RecordActivityIngested(ts time.Time) {
	if ts.IsZero() {
		return
	}
	activityIngestedGauge.Set(float64(ts.Unix()))
}
