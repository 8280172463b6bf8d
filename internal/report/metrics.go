package report

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	reportsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fittrack",
		Subsystem: "report",
		Name:      "dispatches_total",
		Help:      "Weekly report dispatch outcomes grouped by stream.",
	}, []string{"stream", "outcome"})

	dispatchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fittrack",
		Subsystem: "report",
		Name:      "dispatch_duration_seconds",
		Help:      "Time spent aggregating, rendering and sending a weekly report.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"stream"})

	lastSentGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "fittrack",
		Subsystem: "report",
		Name:      "last_sent_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful report per stream.",
	}, []string{"stream"})
)

const (
	outcomeSent    = "sent"
	outcomeFailed  = "failed"
	outcomeSkipped = "skipped"
)

func init() {
	prometheus.MustRegister(reportsCounter, dispatchDuration, lastSentGauge)
}

func recordOutcome(stream, outcome string) {
	reportsCounter.WithLabelValues(stream, outcome).Inc()
}

func recordSent(stream string, started, finished time.Time) {
	recordOutcome(stream, outcomeSent)
	dispatchDuration.WithLabelValues(stream).Observe(finished.Sub(started).Seconds())
	lastSentGauge.WithLabelValues(stream).Set(float64(finished.Unix()))
}
