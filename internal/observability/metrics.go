// Package observability exposes the Prometheus collectors shared by the loader and the analytics engine.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	analyzerRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beebi",
		Subsystem: "analytics",
		Name:      "analyzer_runs_total",
		Help:      "Number of analyzer invocations, labeled by analyzer and report status.",
	}, []string{"analyzer", "status"})

	analyzerDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "beebi",
		Subsystem: "analytics",
		Name:      "analyzer_duration_seconds",
		Help:      "Time spent loading, extracting, and computing one analyzer report.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"analyzer"})

	loadDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "beebi",
		Subsystem: "store",
		Name:      "load_duration_seconds",
		Help:      "Time spent fetching activity records from the configured source.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"source", "type"})

	loadFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beebi",
		Subsystem: "store",
		Name:      "load_failures_total",
		Help:      "Number of activity loads that failed, labeled by source.",
	}, []string{"source"})

	droppedRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beebi",
		Subsystem: "store",
		Name:      "malformed_records_dropped_total",
		Help:      "Number of stored rows dropped because they could not form a valid activity record.",
	}, []string{"source"})

	alertsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beebi",
		Subsystem: "notify",
		Name:      "alerts_published_total",
		Help:      "Diaper alert events handed to Kafka, labeled by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(analyzerRuns, analyzerDuration, loadDuration, loadFailures, droppedRecords, alertsPublished)
}

// RecordAnalyzerRun counts one analyzer invocation and observes its latency.
func RecordAnalyzerRun(analyzer, status string, elapsed time.Duration) {
	analyzerRuns.WithLabelValues(analyzer, status).Inc()
	analyzerDuration.WithLabelValues(analyzer).Observe(elapsed.Seconds())
}

// RecordLoad observes one successful or failed source fetch.
func RecordLoad(source, activityType string, elapsed time.Duration, err error) {
	loadDuration.WithLabelValues(source, activityType).Observe(elapsed.Seconds())
	if err != nil {
		loadFailures.WithLabelValues(source).Inc()
	}
}

// RecordDropped adds n malformed rows to the dropped counter.
func RecordDropped(source string, n int) {
	if n <= 0 {
		return
	}
	droppedRecords.WithLabelValues(source).Add(float64(n))
}

// RecordAlertPublish counts a publish attempt.
func RecordAlertPublish(err error) {
	outcome := "delivered"
	if err != nil {
		outcome = "failed"
	}
	alertsPublished.WithLabelValues(outcome).Inc()
}
